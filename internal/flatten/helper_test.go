package flatten

import (
	"fmt"
	"testing"

	"github.com/rowforge/rowforge/internal/schema"
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
	id          []string
	scalars     map[string]types.Value
	singletons  map[string]types.Leaf
	collections map[string][]types.Leaf
}

func (e *fakeEntity) Descriptor() *types.EntityDescriptor  { return patientDesc }
func (e *fakeEntity) Identity() []string                   { return e.id }
func (e *fakeEntity) Scalar(field string) types.Value      { return e.scalars[field] }
func (e *fakeEntity) Singleton(field string) types.Leaf    { return e.singletons[field] }
func (e *fakeEntity) Collection(field string) []types.Leaf { return e.collections[field] }
func (e *fakeEntity) SetSingleton(field string, leaf types.Leaf) error {
	e.singletons[field] = leaf
	return nil
}
func (e *fakeEntity) SetCollection(field string, leaves []types.Leaf) error {
	e.collections[field] = leaves
	return nil
}

var patientDesc = &types.EntityDescriptor{
	Name:     "patients",
	Identity: []string{"patient_id", "trial_id"},
	Fields: []types.FieldDef{
		{Name: "age", Kind: types.ScalarField, Type: types.TypeInteger},
		{Name: "cohort", Kind: types.ScalarField, Type: types.TypeString},
		{Name: "profile", Kind: types.SingletonField, Leaf: &types.LeafDescriptor{
			Name: "profile",
			Columns: []types.LeafColumn{
				{Name: "city", Type: types.TypeString},
				{Name: "zip", Type: types.TypeInteger},
			},
		}},
		{Name: "visits", Kind: types.CollectionField, Leaf: &types.LeafDescriptor{
			Name: "visits",
			Columns: []types.LeafColumn{
				{Name: "score", Type: types.TypeInteger},
				{Name: "note", Type: types.TypeString},
			},
		}},
	},
}

func patient(id string, visits int) *fakeEntity {
	e := &fakeEntity{
		id:          []string{id, "t1"},
		scalars:     map[string]types.Value{"age": int64(60), "cohort": "A"},
		singletons:  map[string]types.Leaf{"profile": leafOf("city", "Oslo", "zip", int64(333))},
		collections: map[string][]types.Leaf{},
	}
	var leaves []types.Leaf
	for i := 0; i < visits; i++ {
		leaves = append(leaves, leafOf("score", int64(i+1), "note", fmt.Sprintf("v%d", i)))
	}
	e.collections["visits"] = leaves
	return e
}

func emptyPatient(id string) *fakeEntity {
	return &fakeEntity{
		id:      []string{id, "t1"},
		scalars: map[string]types.Value{},
	}
}

func deriveSchema(t *testing.T, entities []types.Entity) *types.Schema {
	t.Helper()
	s, err := deriveSchemaErr(entities)
	if err != nil {
		t.Fatalf("schema derivation failed: %v", err)
	}
	return s
}

func deriveSchemaErr(entities []types.Entity) (*types.Schema, error) {
	return schema.NewDeriver(nil, nil).Derive(patientDesc, entities)
}
