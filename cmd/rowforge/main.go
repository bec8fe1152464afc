// Package main implements the rowforge binary: it harmonizes one trial
// export into flattened tables and writes them as a run directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rowforge/rowforge/internal/app"
	"github.com/rowforge/rowforge/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  string
		trial       string
		input       string
		outDir      string
		format      string
		workers     int
		wideOnly    bool
		normOnly    bool
		dropOrphans bool
		showVersion bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&trial, "trial", "", "Trial identifier")
	flag.StringVar(&input, "input", "", "Path to the merged eCRF export (csv or tsv)")
	flag.StringVar(&outDir, "out-dir", "", "Base directory for run output")
	flag.StringVar(&format, "format", "", "Export format: csv, tsv, sqlite")
	flag.IntVar(&workers, "workers", 0, "Flattener parallelism (0 uses the config value)")
	flag.BoolVar(&wideOnly, "wide-only", false, "Export only the wide table")
	flag.BoolVar(&normOnly, "normalized-only", false, "Export only the normalized tables")
	flag.BoolVar(&dropOrphans, "drop-orphans", false, "Drop sub-records without a parent subject instead of failing")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "rowforge - clinical trial harmonization pipeline\n\n")
		fmt.Fprintf(os.Stderr, "Usage: rowforge [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  rowforge --trial IMPRESS --input export.csv --out-dir ./data\n")
		fmt.Fprintf(os.Stderr, "  rowforge --config pipeline.yaml --format sqlite\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  ROWFORGE_TRIAL          Trial identifier\n")
		fmt.Fprintf(os.Stderr, "  ROWFORGE_INPUT          Input export path\n")
		fmt.Fprintf(os.Stderr, "  ROWFORGE_OUT_DIR        Base output directory\n")
		fmt.Fprintf(os.Stderr, "  ROWFORGE_FORMAT         Export format (csv, tsv, sqlite)\n")
		fmt.Fprintf(os.Stderr, "  ROWFORGE_POSTGRES_DSN   Enable the Postgres load\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("rowforge version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if trial != "" {
		cfg.Trial = trial
	}
	if input != "" {
		cfg.Input = input
	}
	if outDir != "" {
		cfg.OutDir = outDir
	}
	if format != "" {
		cfg.Format = format
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if wideOnly {
		cfg.WriteWide, cfg.WriteNormalized = true, false
	}
	if normOnly {
		cfg.WriteWide, cfg.WriteNormalized = false, true
	}
	if dropOrphans {
		cfg.DropOrphans = true
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal: %v", sig)
		cancel()
	}()

	result, err := application.Run(ctx)
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}
	log.Printf("Run complete: %s", result.Dir)
}

// loadConfig loads configuration from file and environment.
func loadConfig(configFile string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}
	if err := config.LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
