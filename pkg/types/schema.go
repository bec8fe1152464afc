package types

// LeafSchema is the derived column set of one leaf kind. A leaf kind that was
// never populated across a batch derives to zero columns, which is valid.
type LeafSchema struct {
	Columns []LeafColumn
}

// Column returns the leaf column with the given name, or nil.
func (s *LeafSchema) Column(name string) *LeafColumn {
	for i := range s.Columns {
		if s.Columns[i].Name == name {
			return &s.Columns[i]
		}
	}
	return nil
}

// SchemaField is one derived root-entity field: a scalar type, or the leaf
// schema of a singleton (struct) or collection (list) field.
type SchemaField struct {
	Name string
	Kind FieldKind
	Type DataType
	Leaf *LeafSchema
}

// Schema is the canonical derived schema of one root-entity type. It is
// deterministic for a fixed entity batch order and drives both flatteners.
type Schema struct {
	Entity   string
	Identity []string
	Fields   []SchemaField
}

// Field returns the derived field with the given name, or nil.
func (s *Schema) Field(name string) *SchemaField {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// Scalars returns the scalar fields in schema order.
func (s *Schema) Scalars() []SchemaField {
	return s.byKind(ScalarField)
}

// Singletons returns the singleton fields in schema order.
func (s *Schema) Singletons() []SchemaField {
	return s.byKind(SingletonField)
}

// Collections returns the collection fields in schema order.
func (s *Schema) Collections() []SchemaField {
	return s.byKind(CollectionField)
}

func (s *Schema) byKind(k FieldKind) []SchemaField {
	var out []SchemaField
	for _, f := range s.Fields {
		if f.Kind == k {
			out = append(out, f)
		}
	}
	return out
}
