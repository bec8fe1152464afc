package export

import (
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rowforge/rowforge/pkg/types"
)

func sampleTables(t *testing.T) map[string]*types.Table {
	t.Helper()
	wide := types.NewTable("wide", []types.Column{
		{Name: "patient_id", Type: types.TypeString},
		{Name: "trial_id", Type: types.TypeString},
		{Name: "age", Type: types.TypeInteger, Nullable: true},
		{Name: "dose", Type: types.TypeFloat, Nullable: true},
		{Name: "start_date", Type: types.TypeDate, Nullable: true},
	})
	rows := [][]types.Value{
		{"S1", "t1", int64(61), 2.5, types.Date{Year: 2023, Month: time.May, Day: 1}},
		{"S2", "t1", nil, nil, nil},
	}
	for _, row := range rows {
		if err := wide.AppendRow(row); err != nil {
			t.Fatal(err)
		}
	}
	return map[string]*types.Table{"wide": wide}
}

func testRunContext() RunContext {
	return RunContext{Trial: "T1", RunID: "abcd1234", StartedAt: "20260823T120000Z"}
}

func TestRunContextDir(t *testing.T) {
	rc := testRunContext()
	want := filepath.Join("base", "t1", "20260823T120000Z_abcd1234")
	if got := rc.Dir("base"); got != want {
		t.Errorf("Dir = %q, want %q", got, want)
	}
	if got := rc.ArtifactPrefix(); got != "t1/20260823T120000Z_abcd1234" {
		t.Errorf("ArtifactPrefix = %q", got)
	}
}

func TestNewRunContextShape(t *testing.T) {
	rc := NewRunContext("T1")
	if len(rc.RunID) != 8 {
		t.Errorf("run id %q, want 8 hex chars", rc.RunID)
	}
	if _, err := time.Parse(startedAtLayout, rc.StartedAt); err != nil {
		t.Errorf("started_at %q does not match layout: %v", rc.StartedAt, err)
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"csv", "tsv", "sqlite"} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q) = %v", s, err)
		}
	}
	if _, err := ParseFormat("parquet"); err == nil {
		t.Error("expected an error for an unsupported format")
	}
}

func TestExportCSVRun(t *testing.T) {
	e := &Exporter{OutDir: t.TempDir(), Format: FormatCSV}
	rc := testRunContext()

	res, err := e.Export(rc, "export.csv", sampleTables(t), [][]string{{"S1", "t1"}, {"S2", "t1"}})
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if res.Dir != rc.Dir(e.OutDir) {
		t.Errorf("result dir = %q", res.Dir)
	}

	// The data file is valid CSV with the right shape and cell rendering.
	f, err := os.Open(res.Files["wide"])
	if err != nil {
		t.Fatalf("open data file: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d csv rows, want header + 2", len(records))
	}
	if records[0][0] != "patient_id" {
		t.Errorf("header = %v", records[0])
	}
	if records[1][2] != "61" || records[1][4] != "2023-05-01" {
		t.Errorf("S1 row = %v", records[1])
	}
	// Nulls render as empty cells.
	if records[2][2] != "" {
		t.Errorf("S2 age cell = %q, want empty", records[2][2])
	}

	// The manifest round-trips and describes the table.
	m, err := ReadManifest(res.Dir)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if m.Trial != "T1" || m.RunID != "abcd1234" || m.Format != "csv" {
		t.Errorf("manifest = %+v", m)
	}
	meta, ok := m.Tables["wide"]
	if !ok {
		t.Fatal("manifest missing the wide table")
	}
	if meta.Rows != 2 || meta.Cols != 5 || meta.File != "wide.csv" {
		t.Errorf("table meta = %+v", meta)
	}
	if meta.Schema["age"] != types.TypeInteger.String() {
		t.Errorf("schema[age] = %q", meta.Schema["age"])
	}

	// The key filter sidecar decodes and answers membership.
	kf, err := ReadSidecar(filepath.Join(res.Dir, KeyFilterName))
	if err != nil {
		t.Fatalf("read key filter: %v", err)
	}
	if !kf.MayContain([]string{"S1", "t1"}) {
		t.Error("key filter lost S1")
	}
	if kf.NumKeys() != 2 {
		t.Errorf("key filter NumKeys = %d, want 2", kf.NumKeys())
	}
}

func TestExportTSVUsesTabs(t *testing.T) {
	e := &Exporter{OutDir: t.TempDir(), Format: FormatTSV}
	res, err := e.Export(testRunContext(), "in.csv", sampleTables(t), nil)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	data, err := os.ReadFile(res.Files["wide"])
	if err != nil {
		t.Fatal(err)
	}
	header := strings.SplitN(string(data), "\n", 2)[0]
	if !strings.Contains(header, "patient_id\ttrial_id") {
		t.Errorf("tsv header = %q", header)
	}
}

func TestExportSQLiteRun(t *testing.T) {
	e := &Exporter{OutDir: t.TempDir(), Format: FormatSQLite}
	res, err := e.Export(testRunContext(), "in.csv", sampleTables(t), nil)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	path := res.Files["wide"]
	if filepath.Base(path) != SQLiteFileName {
		t.Errorf("sqlite path = %q", path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM "wide"`).Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 2 {
		t.Errorf("wide has %d rows, want 2", count)
	}
	var age sql.NullInt64
	if err := db.QueryRow(`SELECT "age" FROM "wide" WHERE "patient_id" = 'S1'`).Scan(&age); err != nil {
		t.Fatalf("age query: %v", err)
	}
	if !age.Valid || age.Int64 != 61 {
		t.Errorf("S1 age = %+v, want 61", age)
	}
	if err := db.QueryRow(`SELECT "age" FROM "wide" WHERE "patient_id" = 'S2'`).Scan(&age); err != nil {
		t.Fatalf("null age query: %v", err)
	}
	if age.Valid {
		t.Errorf("S2 age = %+v, want NULL", age)
	}
}
