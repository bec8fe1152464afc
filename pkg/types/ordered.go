package types

// OrderedFields is an insertion-ordered field-name-to-value map. Leaf kinds
// whose field set is only known at the instance level (numbered repeating
// items, questionnaire answers) expose their fields through it, so the schema
// deriver observes field names in a stable order.
type OrderedFields struct {
	names  []string
	values map[string]Value
}

// NewOrderedFields creates an empty ordered field map.
func NewOrderedFields() *OrderedFields {
	return &OrderedFields{values: make(map[string]Value)}
}

// Set stores a value under name. The first Set of a name fixes its position;
// later Sets overwrite the value in place.
func (f *OrderedFields) Set(name string, v Value) {
	if _, ok := f.values[name]; !ok {
		f.names = append(f.names, name)
	}
	f.values[name] = Normalize(v)
}

// Get returns the value stored under name.
func (f *OrderedFields) Get(name string) (Value, bool) {
	v, ok := f.values[name]
	return v, ok
}

// Names returns the field names in insertion order. The returned slice is
// shared; callers must not modify it.
func (f *OrderedFields) Names() []string {
	return f.names
}

// Len returns the number of fields.
func (f *OrderedFields) Len() int {
	return len(f.names)
}
