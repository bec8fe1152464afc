// Package flatten turns a schema plus a fully-hydrated entity batch into the
// two canonical tabular shapes: one wide denormalized table and one family of
// normalized per-entity tables. Both are pure, stateless batch transforms;
// flattening never starts before the schema covers the whole batch, so every
// emitted row of a given kind shares one column set.
package flatten

import (
	"fmt"

	"github.com/rowforge/rowforge/internal/errors"
	"github.com/rowforge/rowforge/internal/observability"
	"github.com/rowforge/rowforge/pkg/types"
)

// Column names injected by the wide flattener.
const (
	RowTypeColumn  = "row_type"
	RowIndexColumn = "row_index"
	RowTypeBase    = "base"
)

// PrefixSep separates a field name from a leaf column name in flattened
// column names, e.g. "tumor_type.icd10_code".
const PrefixSep = "."

// Flattener flattens hydrated entity batches against one derived schema.
// Workers > 1 shards per-entity row building across that many goroutines;
// the output is byte-identical to the serial path.
type Flattener struct {
	Schema  *types.Schema
	Workers int
	Stats   *observability.RunStats
}

// New creates a serial flattener for the given schema.
func New(schema *types.Schema) *Flattener {
	return &Flattener{Schema: schema, Workers: 1}
}

func prefixed(field, column string) string {
	return field + PrefixSep + column
}

// identityValues validates and returns an entity's identity tuple.
func (f *Flattener) identityValues(e types.Entity) ([]string, error) {
	id := e.Identity()
	if len(id) != len(f.Schema.Identity) {
		return nil, errors.Newf(errors.CategorySchema, errors.CodeSchemaViolation,
			"entity %q: identity has %d values, schema declares %d columns",
			f.Schema.Entity, len(id), len(f.Schema.Identity))
	}
	for i, v := range id {
		if v == "" {
			return nil, errors.Newf(errors.CategorySchema, errors.CodeSchemaViolation,
				"entity %q: identity column %q is empty", f.Schema.Entity, f.Schema.Identity[i])
		}
	}
	return id, nil
}

// checkCell validates one cell against its column type. nil always conforms;
// otherwise the value's inferred type must match the column type or widen
// into it the same way the unifier would (integer into float, date into
// datetime, anything into string).
func checkCell(table, column string, colType types.DataType, v types.Value) (types.Value, error) {
	v = types.Normalize(v)
	if v == nil {
		return nil, nil
	}
	vt, ok := types.InferType(v)
	if !ok {
		return nil, cellViolation(table, column, v, "not a scalar value")
	}
	if vt == colType {
		return v, nil
	}
	switch colType {
	case types.TypeString:
		return v, nil
	case types.TypeFloat:
		if vt == types.TypeInteger {
			return v, nil
		}
	case types.TypeDateTime:
		if vt == types.TypeDate {
			return v, nil
		}
	case types.TypeInteger:
		if vt == types.TypeBoolean {
			return v, nil
		}
	}
	return nil, cellViolation(table, column, v, fmt.Sprintf("value type %s does not conform to column type %s", vt, colType))
}

func cellViolation(table, column string, v types.Value, msg string) error {
	return errors.Newf(errors.CategorySchema, errors.CodeSchemaViolation,
		"table %q column %q: %s", table, column, msg).
		WithDetails(map[string]interface{}{
			"table":  table,
			"column": column,
			"value":  fmt.Sprintf("%v", v),
		})
}

// leafValues extracts and validates one leaf's cells against its derived
// column set, in schema order. A populated field that has no derived column
// is a schema violation: it would break the one-column-set-per-row-kind
// invariant.
func leafValues(table, field string, leafSchema *types.LeafSchema, leaf types.Leaf) ([]types.Value, error) {
	out := make([]types.Value, len(leafSchema.Columns))
	if leaf == nil {
		return out, nil
	}
	fields := leaf.Fields()
	if fields == nil {
		return out, nil
	}
	for _, name := range fields.Names() {
		if v, _ := fields.Get(name); v != nil && leafSchema.Column(name) == nil {
			return nil, errors.Newf(errors.CategorySchema, errors.CodeSchemaViolation,
				"table %q: leaf field %q of %q is not in the derived schema", table, name, field)
		}
	}
	for i, col := range leafSchema.Columns {
		raw, _ := fields.Get(col.Name)
		v, err := checkCell(table, prefixed(field, col.Name), col.Type, raw)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// verifyFlat is the post-flatten invariant check: no cell of any
// output table may hold a struct- or list-shaped value. A violation signals
// an incomplete unnest and fails the whole flatten.
func verifyFlat(t *types.Table) error {
	for _, row := range t.Rows {
		for i, v := range row {
			if !types.IsScalar(v) {
				return errors.Newf(errors.CategorySchema, errors.CodeSchemaViolation,
					"table %q column %q holds a nested value after flattening", t.Name, t.Columns[i].Name)
			}
		}
	}
	return nil
}
