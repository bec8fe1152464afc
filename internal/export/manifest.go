package export

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rowforge/rowforge/internal/errors"
	"github.com/rowforge/rowforge/pkg/types"
)

// ManifestName is the manifest file name inside a run directory.
const ManifestName = "manifest.json"

// TableMeta describes one exported table in the manifest.
type TableMeta struct {
	Rows   int               `json:"rows"`
	Cols   int               `json:"cols"`
	Schema map[string]string `json:"schema"`
	File   string            `json:"file"`
}

// Manifest records everything needed to interpret one run directory without
// re-reading the data files.
type Manifest struct {
	Trial     string               `json:"trial"`
	RunID     string               `json:"run_id"`
	StartedAt string               `json:"started_at"`
	Input     string               `json:"input"`
	Directory string               `json:"directory"`
	Format    string               `json:"format"`
	Tables    map[string]TableMeta `json:"tables"`
	KeyFilter string               `json:"key_filter,omitempty"`
	Options   map[string]string    `json:"options,omitempty"`
}

// tableMeta builds the manifest entry for one table.
func tableMeta(t *types.Table, file string) TableMeta {
	schema := make(map[string]string, len(t.Columns))
	for _, c := range t.Columns {
		schema[c.Name] = c.Type.String()
	}
	return TableMeta{
		Rows:   t.NumRows(),
		Cols:   len(t.Columns),
		Schema: schema,
		File:   file,
	}
}

// WriteManifest writes the manifest into the run directory.
func WriteManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed, "marshal manifest", err)
	}
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed, "write manifest", err)
	}
	return nil
}

// ReadManifest loads a run directory's manifest.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed, "read manifest", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed, "parse manifest", err)
	}
	return &m, nil
}
