package flatten

import (
	"reflect"
	"testing"

	"github.com/rowforge/rowforge/pkg/types"
)

func TestNormalizedTableFamily(t *testing.T) {
	entities := []types.Entity{patient("p1", 2), emptyPatient("p2")}
	f := New(deriveSchema(t, entities))

	tables, err := f.Normalized(entities)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"patients", "profile", "visits"} {
		if tables[name] == nil {
			t.Fatalf("missing table %q", name)
		}
	}

	// Root table: exactly one row per entity, unconditionally.
	root := tables["patients"]
	if root.NumRows() != 2 {
		t.Fatalf("patients has %d rows, want 2", root.NumRows())
	}
	if got := root.Cell(0, "patient_id"); got != "p1" {
		t.Errorf("root row 0 patient_id = %v, want p1", got)
	}
	if got := root.Cell(1, "age"); got != nil {
		t.Errorf("p2 age = %v, want nil", got)
	}

	// Singleton table: rows only for entities with the singleton populated.
	profile := tables["profile"]
	if profile.NumRows() != 1 {
		t.Fatalf("profile has %d rows, want 1", profile.NumRows())
	}
	if got := profile.Cell(0, "profile.city"); got != "Oslo" {
		t.Errorf("profile.city = %v, want Oslo", got)
	}

	// Collection table: one row per item with a 0-based row_index.
	visits := tables["visits"]
	if visits.NumRows() != 2 {
		t.Fatalf("visits has %d rows, want 2", visits.NumRows())
	}
	wantCols := []string{"patient_id", "trial_id", RowIndexColumn, "visits.score", "visits.note"}
	if got := visits.ColumnNames(); !reflect.DeepEqual(got, wantCols) {
		t.Errorf("visits columns = %v, want %v", got, wantCols)
	}
	if got := visits.Cell(0, RowIndexColumn); got != int64(0) {
		t.Errorf("visits row 0 row_index = %v, want 0", got)
	}
	if got := visits.Cell(1, RowIndexColumn); got != int64(1) {
		t.Errorf("visits row 1 row_index = %v, want 1", got)
	}
}

func TestNormalizedEmptyBatchStillYieldsTables(t *testing.T) {
	entities := []types.Entity{patient("p1", 0)}
	f := New(deriveSchema(t, entities))

	tables, err := f.Normalized(entities)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The visits table exists even though no entity has a visit.
	if tables["visits"] == nil || tables["visits"].NumRows() != 0 {
		t.Errorf("visits = %+v, want an empty table", tables["visits"])
	}
}

func TestNormalizedParallelMatchesSerial(t *testing.T) {
	var entities []types.Entity
	for i := 0; i < 11; i++ {
		entities = append(entities, patient(pid(i), i%3))
	}
	s := deriveSchema(t, entities)

	a, err := (&Flattener{Schema: s, Workers: 1}).Normalized(entities)
	if err != nil {
		t.Fatalf("serial: %v", err)
	}
	b, err := (&Flattener{Schema: s, Workers: 8}).Normalized(entities)
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("parallel normalized output differs from serial output")
	}
}
