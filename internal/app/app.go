// Package app wires the rowforge pipeline end to end: read the trial export,
// harmonize it into entities, derive the run schema, flatten, export and
// optionally publish.
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/rowforge/rowforge/internal/config"
	"github.com/rowforge/rowforge/internal/export"
	"github.com/rowforge/rowforge/internal/flatten"
	"github.com/rowforge/rowforge/internal/harmonize"
	"github.com/rowforge/rowforge/internal/hydrate"
	"github.com/rowforge/rowforge/internal/observability"
	"github.com/rowforge/rowforge/internal/schema"
	"github.com/rowforge/rowforge/internal/storage"
	"github.com/rowforge/rowforge/pkg/types"
)

// App runs one harmonization pipeline invocation.
type App struct {
	cfg   *config.Config
	stats *observability.RunStats
}

// New creates an App with the given configuration.
func New(cfg *config.Config) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	return &App{cfg: cfg, stats: observability.NewRunStats()}, nil
}

// Stats returns the run's diagnostics.
func (a *App) Stats() *observability.RunStats { return a.stats }

// Run executes the pipeline and returns the export result.
func (a *App) Run(ctx context.Context) (*export.Result, error) {
	rc := export.NewRunContext(a.cfg.Trial)
	log.Printf("run %s started for trial %s", rc.RunID, rc.Trial)

	records, err := ReadRecords(a.cfg.Input)
	if err != nil {
		return nil, err
	}
	log.Printf("run %s: read %d records from %s", rc.RunID, len(records), a.cfg.Input)

	mode := hydrate.FailOnMissing
	if a.cfg.DropOrphans {
		mode = hydrate.SkipOnMissing
	}
	h := &harmonize.Harmonizer{Trial: a.cfg.Trial, Stats: a.stats, OnOrphan: mode}
	entities, err := h.Harmonize(records)
	if err != nil {
		return nil, err
	}
	log.Printf("run %s: harmonized %d subjects", rc.RunID, len(entities))

	deriver := schema.NewDeriver(schema.NewCache(), a.stats)
	sch, err := deriver.Derive(harmonize.PatientDescriptor(), entities)
	if err != nil {
		return nil, err
	}

	f := &flatten.Flattener{Schema: sch, Workers: a.cfg.Workers, Stats: a.stats}
	tables := make(map[string]*types.Table)
	if a.cfg.WriteWide {
		wide, err := f.Wide(entities)
		if err != nil {
			return nil, err
		}
		tables["wide"] = wide
	}
	if a.cfg.WriteNormalized {
		normalized, err := f.Normalized(entities)
		if err != nil {
			return nil, err
		}
		for name, t := range normalized {
			tables[name] = t
		}
	}

	keys := make([][]string, len(entities))
	for i, e := range entities {
		keys[i] = e.Identity()
	}

	format, err := export.ParseFormat(a.cfg.Format)
	if err != nil {
		return nil, err
	}
	exporter := &export.Exporter{OutDir: a.cfg.OutDir, Format: format}
	result, err := exporter.Export(rc, a.cfg.Input, tables, keys)
	if err != nil {
		return nil, err
	}
	log.Printf("run %s: wrote %d tables to %s", rc.RunID, len(tables), result.Dir)

	if a.cfg.Publish.Enabled {
		if err := a.publish(ctx, rc, result.Dir); err != nil {
			return nil, err
		}
	}
	if a.cfg.Postgres.Enabled {
		w := &export.PostgresWriter{
			DSN:      a.cfg.Postgres.DSN,
			Schema:   a.cfg.Postgres.Schema,
			Truncate: a.cfg.Postgres.Truncate,
		}
		if err := w.Write(ctx, tables); err != nil {
			return nil, err
		}
		log.Printf("run %s: loaded %d tables into postgres", rc.RunID, len(tables))
	}

	log.Printf("run %s finished: %s", rc.RunID, a.stats.Summary())
	return result, nil
}

// publish uploads the run directory to the configured artifact store.
func (a *App) publish(ctx context.Context, rc export.RunContext, runDir string) error {
	var store storage.ObjectStore
	var err error
	switch a.cfg.Publish.Type {
	case "s3":
		store, err = storage.NewS3Store(ctx, a.cfg.Publish.S3.Bucket, storage.S3Config{
			Region:       a.cfg.Publish.S3.Region,
			Endpoint:     a.cfg.Publish.S3.Endpoint,
			UsePathStyle: a.cfg.Publish.S3.UsePathStyle,
		})
	default:
		store, err = storage.NewLocalStore(a.cfg.Publish.Path)
	}
	if err != nil {
		return err
	}
	uploaded, err := storage.PublishRun(ctx, store, runDir, rc.ArtifactPrefix())
	if err != nil {
		return err
	}
	log.Printf("run %s: published %d artifacts under %s", rc.RunID, len(uploaded), rc.ArtifactPrefix())
	return nil
}
