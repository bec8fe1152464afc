package flatten

import (
	"reflect"
	"testing"

	"github.com/rowforge/rowforge/pkg/types"
)

// mixedBatch builds one entity with a populated singleton and an empty
// collection, and one with no singleton and two collection items.
func mixedBatch() []types.Entity {
	a := patient("pa", 0)
	b := &fakeEntity{
		id:         []string{"pb", "t1"},
		scalars:    map[string]types.Value{"age": int64(40), "cohort": "B"},
		singletons: map[string]types.Leaf{},
		collections: map[string][]types.Leaf{
			"visits": {
				leafOf("score", int64(1), "note", "v0"),
				leafOf("score", int64(2), "note", "v1"),
			},
		},
	}
	return []types.Entity{a, b}
}

func TestMixedBatchShapes(t *testing.T) {
	entities := mixedBatch()
	f := New(deriveSchema(t, entities))

	wide, err := f.Wide(entities)
	if err != nil {
		t.Fatalf("wide: %v", err)
	}
	// Base rows for both entities plus one row per item of pb's collection.
	if wide.NumRows() != 4 {
		t.Fatalf("wide has %d rows, want 4", wide.NumRows())
	}
	if got := wide.Cell(0, "profile.city"); got != "Oslo" {
		t.Errorf("pa base profile.city = %v, want Oslo", got)
	}
	if got := wide.Cell(1, "profile.city"); got != nil {
		t.Errorf("pb base profile.city = %v, want nil", got)
	}
	if got := wide.Cell(2, RowIndexColumn); got != int64(0) {
		t.Errorf("first visit row_index = %v, want 0", got)
	}
	if got := wide.Cell(3, "visits.note"); got != "v1" {
		t.Errorf("second visit note = %v, want v1", got)
	}

	normalized, err := f.Normalized(entities)
	if err != nil {
		t.Fatalf("normalized: %v", err)
	}
	if got := normalized["patients"].NumRows(); got != 2 {
		t.Errorf("patients rows = %d, want 2", got)
	}
	// The singleton table has pa only; the collection table has pb only.
	if got := normalized["profile"].NumRows(); got != 1 {
		t.Errorf("profile rows = %d, want 1", got)
	}
	if got := normalized["profile"].Cell(0, "patient_id"); got != "pa" {
		t.Errorf("profile row patient_id = %v, want pa", got)
	}
	if got := normalized["visits"].NumRows(); got != 2 {
		t.Errorf("visits rows = %d, want 2", got)
	}
	if got := normalized["visits"].Cell(0, "patient_id"); got != "pb" {
		t.Errorf("visits row patient_id = %v, want pb", got)
	}
}

// TestWideBaseScalarsMatchRootTable checks that every scalar cell reads
// identically from a wide base row and from the normalized root table.
func TestWideBaseScalarsMatchRootTable(t *testing.T) {
	entities := mixedBatch()
	f := New(deriveSchema(t, entities))

	wide, err := f.Wide(entities)
	if err != nil {
		t.Fatalf("wide: %v", err)
	}
	root, err := f.Normalized(entities)
	if err != nil {
		t.Fatalf("normalized: %v", err)
	}
	patients := root["patients"]

	baseRow := func(id string) int {
		for i := 0; i < wide.NumRows(); i++ {
			if wide.Cell(i, "patient_id") == id && wide.Cell(i, RowTypeColumn) == RowTypeBase {
				return i
			}
		}
		return -1
	}
	for r := 0; r < patients.NumRows(); r++ {
		id := patients.Cell(r, "patient_id").(string)
		w := baseRow(id)
		if w < 0 {
			t.Fatalf("no wide base row for %s", id)
		}
		for _, sf := range f.Schema.Scalars() {
			wv := wide.Cell(w, sf.Name)
			nv := patients.Cell(r, sf.Name)
			if !reflect.DeepEqual(wv, nv) {
				t.Errorf("%s.%s: wide = %v, normalized = %v", id, sf.Name, wv, nv)
			}
		}
	}
}

// TestRepeatedRunsAreIdentical checks that flattening the same ordered batch
// twice yields identical tables in both shapes.
func TestRepeatedRunsAreIdentical(t *testing.T) {
	var entities []types.Entity
	for i := 0; i < 9; i++ {
		entities = append(entities, patient(pid(i), i%3))
	}
	f := New(deriveSchema(t, entities))

	w1, err := f.Wide(entities)
	if err != nil {
		t.Fatalf("first wide: %v", err)
	}
	w2, err := f.Wide(entities)
	if err != nil {
		t.Fatalf("second wide: %v", err)
	}
	if !reflect.DeepEqual(w1, w2) {
		t.Error("repeated wide runs differ")
	}

	n1, err := f.Normalized(entities)
	if err != nil {
		t.Fatalf("first normalized: %v", err)
	}
	n2, err := f.Normalized(entities)
	if err != nil {
		t.Fatalf("second normalized: %v", err)
	}
	if !reflect.DeepEqual(n1, n2) {
		t.Error("repeated normalized runs differ")
	}
}
