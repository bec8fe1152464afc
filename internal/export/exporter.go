package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rowforge/rowforge/internal/errors"
	"github.com/rowforge/rowforge/pkg/types"
)

// Format selects the on-disk encoding of exported tables.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatTSV    Format = "tsv"
	FormatSQLite Format = "sqlite"
)

// SQLiteFileName is the database file name for sqlite-format runs.
const SQLiteFileName = "harmonized.db"

// KeyFilterName is the key filter sidecar file name.
const KeyFilterName = "run.keyfilter"

// ParseFormat validates a format string from config or flags.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatTSV, FormatSQLite:
		return Format(s), nil
	default:
		return "", errors.Newf(errors.CategoryExport, errors.CodeUnsupportedFormat,
			"unsupported export format %q (want csv, tsv or sqlite)", s)
	}
}

// Exporter writes one run's tables into a run directory under OutDir.
type Exporter struct {
	OutDir string
	Format Format
}

// Result describes what one export produced.
type Result struct {
	Dir      string
	Files    map[string]string
	Manifest *Manifest
}

// Export writes every table, the identity key filter and the manifest into
// this run's directory. identityKeys are the identity tuples of the exported
// entities; they feed the key filter sidecar.
func (e *Exporter) Export(rc RunContext, input string, tables map[string]*types.Table, identityKeys [][]string) (*Result, error) {
	dir := rc.Dir(e.OutDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed,
			fmt.Sprintf("create run directory %s", dir), err)
	}

	files, err := e.writeTables(dir, tables)
	if err != nil {
		return nil, err
	}

	kf := NewKeyFilter(len(identityKeys))
	for _, key := range identityKeys {
		kf.Add(key)
	}
	if err := kf.WriteSidecar(filepath.Join(dir, KeyFilterName)); err != nil {
		return nil, err
	}

	m := &Manifest{
		Trial:     rc.Trial,
		RunID:     rc.RunID,
		StartedAt: rc.StartedAt,
		Input:     input,
		Directory: dir,
		Format:    string(e.Format),
		Tables:    make(map[string]TableMeta, len(tables)),
		KeyFilter: KeyFilterName,
	}
	for name, t := range tables {
		m.Tables[name] = tableMeta(t, filepath.Base(files[name]))
	}
	if err := WriteManifest(dir, m); err != nil {
		return nil, err
	}
	return &Result{Dir: dir, Files: files, Manifest: m}, nil
}

func (e *Exporter) writeTables(dir string, tables map[string]*types.Table) (map[string]string, error) {
	files := make(map[string]string, len(tables))

	if e.Format == FormatSQLite {
		path := filepath.Join(dir, SQLiteFileName)
		if err := writeSQLite(tables, path); err != nil {
			return nil, err
		}
		for name := range tables {
			files[name] = path
		}
		return files, nil
	}

	sep := ','
	if e.Format == FormatTSV {
		sep = '\t'
	}
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path := filepath.Join(dir, name+"."+string(e.Format))
		if err := writeDelimited(tables[name], path, sep); err != nil {
			return nil, err
		}
		files[name] = path
	}
	return files, nil
}
