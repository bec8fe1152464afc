package schema

import (
	"testing"

	"github.com/rowforge/rowforge/internal/observability"
	"github.com/rowforge/rowforge/pkg/types"
)

type fakeLeaf struct{ fields *types.OrderedFields }

func (l *fakeLeaf) Fields() *types.OrderedFields { return l.fields }

func leafOf(pairs ...interface{}) *fakeLeaf {
	f := types.NewOrderedFields()
	for i := 0; i < len(pairs); i += 2 {
		f.Set(pairs[i].(string), pairs[i+1])
	}
	return &fakeLeaf{fields: f}
}

type fakeEntity struct {
	desc        *types.EntityDescriptor
	id          []string
	scalars     map[string]types.Value
	singletons  map[string]types.Leaf
	collections map[string][]types.Leaf
}

func (e *fakeEntity) Descriptor() *types.EntityDescriptor { return e.desc }
func (e *fakeEntity) Identity() []string                  { return e.id }
func (e *fakeEntity) Scalar(field string) types.Value     { return e.scalars[field] }
func (e *fakeEntity) Singleton(field string) types.Leaf   { return e.singletons[field] }
func (e *fakeEntity) Collection(field string) []types.Leaf {
	return e.collections[field]
}
func (e *fakeEntity) SetSingleton(field string, leaf types.Leaf) error {
	if e.singletons == nil {
		e.singletons = make(map[string]types.Leaf)
	}
	e.singletons[field] = leaf
	return nil
}
func (e *fakeEntity) SetCollection(field string, leaves []types.Leaf) error {
	if e.collections == nil {
		e.collections = make(map[string][]types.Leaf)
	}
	e.collections[field] = leaves
	return nil
}

var surveyDesc = &types.EntityDescriptor{
	Name:     "subjects",
	Identity: []string{"subject_id", "study_id"},
	Fields: []types.FieldDef{
		{Name: "age", Kind: types.ScalarField, Type: types.TypeInteger},
		{Name: "answers", Kind: types.CollectionField, Leaf: &types.LeafDescriptor{Name: "answers", Dynamic: true}},
	},
}

func surveyEntity(id string, answers ...types.Leaf) *fakeEntity {
	return &fakeEntity{
		desc:        surveyDesc,
		id:          []string{id, "s1"},
		scalars:     map[string]types.Value{"age": int64(40)},
		collections: map[string][]types.Leaf{"answers": answers},
	}
}

func TestDeriveDynamicLeafFirstObservationOrder(t *testing.T) {
	entities := []types.Entity{
		surveyEntity("a", leafOf("q2", int64(1), "q1", int64(2))),
		surveyEntity("b", leafOf("q1", int64(3), "q3", "n/a")),
	}

	s, err := NewDeriver(nil, nil).Derive(surveyDesc, entities)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	leaf := s.Field("answers").Leaf
	got := make([]string, len(leaf.Columns))
	for i, c := range leaf.Columns {
		got[i] = c.Name
	}
	want := []string{"q2", "q1", "q3"}
	if len(got) != len(want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("columns = %v, want %v", got, want)
		}
	}
}

func TestDeriveDynamicLeafUnifiesTypes(t *testing.T) {
	stats := observability.NewRunStats()
	entities := []types.Entity{
		surveyEntity("a", leafOf("q1", int64(1))),
		surveyEntity("b", leafOf("q1", "unknown")),
	}

	s, err := NewDeriver(nil, stats).Derive(surveyDesc, entities)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	col := s.Field("answers").Leaf.Column("q1")
	if col == nil || col.Type != types.TypeString {
		t.Fatalf("q1 = %+v, want string after int+string unification", col)
	}
	coercions := stats.Coercions()
	if len(coercions) != 1 {
		t.Fatalf("coercions = %v, want exactly one", coercions)
	}
	if coercions[0].From != types.TypeInteger || coercions[0].To != types.TypeString {
		t.Errorf("coercion = %+v, want integer -> string", coercions[0])
	}
}

func TestDeriveDynamicLeafObservedOnlyNull(t *testing.T) {
	entities := []types.Entity{
		surveyEntity("a", leafOf("q1", nil)),
	}
	s, err := NewDeriver(nil, nil).Derive(surveyDesc, entities)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	col := s.Field("answers").Leaf.Column("q1")
	if col == nil || col.Type != types.TypeString {
		t.Fatalf("q1 = %+v, want string for a field observed only as null", col)
	}
}

func TestDeriveDynamicLeafNeverObserved(t *testing.T) {
	entities := []types.Entity{
		surveyEntity("a"),
		surveyEntity("b"),
	}
	s, err := NewDeriver(nil, nil).Derive(surveyDesc, entities)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(s.Field("answers").Leaf.Columns); n != 0 {
		t.Errorf("never-populated dynamic leaf derived %d columns, want 0", n)
	}
}

func TestDeriveUsesCache(t *testing.T) {
	cache := NewCache()
	d := NewDeriver(cache, nil)

	first, err := d.Derive(surveyDesc, []types.Entity{surveyEntity("a", leafOf("q1", int64(1)))})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A second call with a different batch must return the cached schema.
	second, err := d.Derive(surveyDesc, []types.Entity{surveyEntity("b", leafOf("zz", "x"))})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Error("expected the cached schema instance on the second derivation")
	}
	if cache.Len() != 1 {
		t.Errorf("cache holds %d schemas, want 1", cache.Len())
	}
}

func TestDeriveRejectsInvalidDescriptor(t *testing.T) {
	bad := &types.EntityDescriptor{Name: "x"}
	if _, err := NewDeriver(nil, nil).Derive(bad, nil); err == nil {
		t.Fatal("expected error for descriptor without identity")
	}
	if _, err := NewDeriver(nil, nil).Derive(nil, nil); err == nil {
		t.Fatal("expected error for nil descriptor")
	}
}

func TestDeriveDeclaredLeafCopiesColumns(t *testing.T) {
	desc := &types.EntityDescriptor{
		Name:     "subjects",
		Identity: []string{"subject_id"},
		Fields: []types.FieldDef{
			{Name: "profile", Kind: types.SingletonField, Leaf: &types.LeafDescriptor{
				Name: "profile",
				Columns: []types.LeafColumn{
					{Name: "city", Type: types.TypeString},
					{Name: "zip", Type: types.TypeInteger},
				},
			}},
		},
	}
	s, err := NewDeriver(nil, nil).Derive(desc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	leaf := s.Field("profile").Leaf
	if len(leaf.Columns) != 2 || leaf.Columns[0].Name != "city" || leaf.Columns[1].Type != types.TypeInteger {
		t.Errorf("declared leaf schema = %+v", leaf.Columns)
	}
}
