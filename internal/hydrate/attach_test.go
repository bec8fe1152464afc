package hydrate

import (
	"testing"

	"github.com/rowforge/rowforge/internal/errors"
	"github.com/rowforge/rowforge/internal/observability"
	"github.com/rowforge/rowforge/pkg/types"
)

type stubLeaf struct{ fields *types.OrderedFields }

func (l *stubLeaf) Fields() *types.OrderedFields { return l.fields }

type stubEntity struct {
	id          []string
	singletons  map[string]types.Leaf
	collections map[string][]types.Leaf
}

func newStubEntity(id ...string) *stubEntity {
	return &stubEntity{
		id:          id,
		singletons:  make(map[string]types.Leaf),
		collections: make(map[string][]types.Leaf),
	}
}

func (e *stubEntity) Descriptor() *types.EntityDescriptor  { return nil }
func (e *stubEntity) Identity() []string                   { return e.id }
func (e *stubEntity) Scalar(string) types.Value            { return nil }
func (e *stubEntity) Singleton(field string) types.Leaf    { return e.singletons[field] }
func (e *stubEntity) Collection(field string) []types.Leaf { return e.collections[field] }
func (e *stubEntity) SetSingleton(field string, leaf types.Leaf) error {
	e.singletons[field] = leaf
	return nil
}
func (e *stubEntity) SetCollection(field string, leaves []types.Leaf) error {
	e.collections[field] = leaves
	return nil
}

func buildStub(key []string, row Row) (types.Leaf, error) {
	f := types.NewOrderedFields()
	for k, v := range row {
		f.Set(k, v)
	}
	return &stubLeaf{fields: f}, nil
}

func lookupOf(entities ...*stubEntity) ParentLookup {
	return func(key []string) (types.Entity, bool) {
		for _, e := range entities {
			if len(key) == 1 && e.id[0] == key[0] {
				return e, true
			}
		}
		return nil, false
	}
}

func TestAttachSingletonUsesFirstRow(t *testing.T) {
	parent := newStubEntity("p1")
	groups := Pack([]Row{
		{"pid": "p1", "v": int64(1)},
		{"pid": "p1", "v": int64(2)},
	}, []string{"pid"}, nil)

	h := &Hydrator{}
	if err := h.AttachSingleton(groups, lookupOf(parent), buildStub, "profile", FailOnMissing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	leaf := parent.Singleton("profile")
	if leaf == nil {
		t.Fatal("singleton was not attached")
	}
	if v, _ := leaf.Fields().Get("v"); v != int64(1) {
		t.Errorf("singleton built from row v=%v, want the group's first row", v)
	}
}

func TestAttachCollectionPreservesGroupOrder(t *testing.T) {
	parent := newStubEntity("p1")
	groups := Pack([]Row{
		{"pid": "p1", "line": int64(2)},
		{"pid": "p1", "line": int64(1)},
	}, []string{"pid"}, []string{"line"})

	h := &Hydrator{}
	if err := h.AttachCollection(groups, lookupOf(parent), buildStub, "treatments", FailOnMissing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	leaves := parent.Collection("treatments")
	if len(leaves) != 2 {
		t.Fatalf("got %d leaves, want 2", len(leaves))
	}
	for i, want := range []int64{1, 2} {
		if v, _ := leaves[i].Fields().Get("line"); v != want {
			t.Errorf("leaf %d line = %v, want %d", i, v, want)
		}
	}
}

func TestAttachOrphanFails(t *testing.T) {
	groups := Pack([]Row{{"pid": "ghost", "v": int64(1)}}, []string{"pid"}, nil)

	h := &Hydrator{}
	err := h.AttachCollection(groups, lookupOf(), buildStub, "treatments", FailOnMissing)
	if err == nil {
		t.Fatal("expected an integrity violation for an orphaned group")
	}
	if !errors.IsIntegrityViolation(err) {
		t.Errorf("error is not an integrity violation: %v", err)
	}
}

func TestAttachOrphanSkipCountsDrop(t *testing.T) {
	stats := observability.NewRunStats()
	parent := newStubEntity("p1")
	groups := Pack([]Row{
		{"pid": "ghost", "v": int64(1)},
		{"pid": "p1", "v": int64(2)},
	}, []string{"pid"}, nil)

	h := &Hydrator{Stats: stats}
	if err := h.AttachSingleton(groups, lookupOf(parent), buildStub, "profile", SkipOnMissing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parent.Singleton("profile") == nil {
		t.Error("the non-orphan group must still attach")
	}
	if got := stats.OrphansDropped(); got != 1 {
		t.Errorf("orphans dropped = %d, want 1", got)
	}
	if got := stats.OrphanGroups()["profile"]; got != 1 {
		t.Errorf("orphan count for profile = %d, want 1", got)
	}
}

func TestAttachSkipsEmptyGroups(t *testing.T) {
	parent := newStubEntity("p1")
	h := &Hydrator{}
	groups := []Group{{Key: []string{"p1"}}}
	if err := h.AttachSingleton(groups, lookupOf(parent), buildStub, "profile", FailOnMissing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parent.Singleton("profile") != nil {
		t.Error("an empty group must not attach anything")
	}
}
