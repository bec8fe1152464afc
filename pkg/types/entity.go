package types

import "fmt"

// FieldKind classifies a root-entity field.
type FieldKind int

const (
	// ScalarField is a nullable primitive field on the root entity.
	ScalarField FieldKind = iota
	// SingletonField is an optional 1:1 reference to a leaf sub-record.
	SingletonField
	// CollectionField is an ordered 0:N sequence of leaf sub-records.
	CollectionField
)

// String returns the lowercase name of the field kind.
func (k FieldKind) String() string {
	switch k {
	case ScalarField:
		return "scalar"
	case SingletonField:
		return "singleton"
	case CollectionField:
		return "collection"
	default:
		return fmt.Sprintf("fieldkind(%d)", int(k))
	}
}

// LeafColumn declares one scalar field of a leaf sub-record type.
type LeafColumn struct {
	Name string
	Type DataType
}

// LeafDescriptor declares a leaf sub-record kind. A leaf either declares its
// columns statically, or is Dynamic: its field set is only discoverable by
// scanning populated instances.
type LeafDescriptor struct {
	Name    string
	Columns []LeafColumn
	Dynamic bool
}

// FieldDef declares one field of a root-entity type. Type is set for scalar
// fields; Leaf is set for singleton and collection fields.
type FieldDef struct {
	Name string
	Kind FieldKind
	Type DataType
	Leaf *LeafDescriptor
}

// EntityDescriptor is the static schema declaration of a root-entity type.
// It replaces runtime reflection: every producer registers one descriptor per
// entity type, and the schema deriver works from it.
type EntityDescriptor struct {
	// Name is the entity kind name; it becomes the root table name.
	Name string
	// Identity lists the identity column names, in order. Identity values
	// are non-null strings, unique per entity, immutable after construction.
	Identity []string
	// Fields lists the declared fields in output order.
	Fields []FieldDef
}

// Validate checks the descriptor's internal consistency.
func (d *EntityDescriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("entity descriptor has no name")
	}
	if len(d.Identity) == 0 {
		return fmt.Errorf("entity %q declares no identity columns", d.Name)
	}
	seen := make(map[string]bool, len(d.Fields)+len(d.Identity))
	for _, id := range d.Identity {
		if seen[id] {
			return fmt.Errorf("entity %q: duplicate identity column %q", d.Name, id)
		}
		seen[id] = true
	}
	for _, f := range d.Fields {
		if f.Name == d.Name {
			// Singleton and collection fields become table names alongside
			// the root table; a collision would overwrite it.
			return fmt.Errorf("entity %q: field %q collides with the entity name", d.Name, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("entity %q: duplicate field %q", d.Name, f.Name)
		}
		seen[f.Name] = true
		switch f.Kind {
		case ScalarField:
			if f.Leaf != nil {
				return fmt.Errorf("entity %q: scalar field %q declares a leaf", d.Name, f.Name)
			}
		case SingletonField, CollectionField:
			if f.Leaf == nil {
				return fmt.Errorf("entity %q: %s field %q declares no leaf", d.Name, f.Kind, f.Name)
			}
			if !f.Leaf.Dynamic && len(f.Leaf.Columns) == 0 {
				return fmt.Errorf("entity %q: leaf %q declares no columns and is not dynamic", d.Name, f.Leaf.Name)
			}
		default:
			return fmt.Errorf("entity %q: field %q has unknown kind %d", d.Name, f.Name, int(f.Kind))
		}
	}
	return nil
}

// Field returns the declared field with the given name, or nil.
func (d *EntityDescriptor) Field(name string) *FieldDef {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return &d.Fields[i]
		}
	}
	return nil
}

// Leaf is a flat bag of named scalar fields. Leaves never nest: a leaf field
// value is always a permitted scalar, never a struct or a list.
type Leaf interface {
	// Fields returns the leaf's populated fields in a stable order. For
	// declared leaf kinds the order follows the declaration; for dynamic
	// kinds it is the instance's insertion order.
	Fields() *OrderedFields
}

// Entity is the contract a producer's root-entity type must satisfy. Entities
// are constructed once per run, mutated only by the hydration protocol while
// sub-records are attached, then handed to the engine as a read-only batch.
type Entity interface {
	// Descriptor returns the static descriptor shared by all entities of
	// this type.
	Descriptor() *EntityDescriptor
	// Identity returns the identity column values, aligned with
	// Descriptor().Identity. Never nil, never empty strings.
	Identity() []string
	// Scalar returns the value of a declared scalar field (nil when unset).
	Scalar(field string) Value
	// Singleton returns the attached leaf for a singleton field, or nil.
	Singleton(field string) Leaf
	// Collection returns the attached leaves for a collection field, in
	// hydration order. May be nil or empty.
	Collection(field string) []Leaf
	// SetSingleton attaches a leaf to a singleton field. Called only by the
	// hydration protocol.
	SetSingleton(field string, leaf Leaf) error
	// SetCollection attaches an ordered leaf sequence to a collection
	// field. Called only by the hydration protocol.
	SetCollection(field string, leaves []Leaf) error
}
