// Package schema derives the canonical column schema of a root-entity type.
// Declared leaf kinds derive directly from their descriptors; dynamic leaf
// kinds are derived by scanning every populated instance across the whole
// batch and unifying the observed value types.
package schema

import (
	"github.com/rowforge/rowforge/internal/errors"
	"github.com/rowforge/rowforge/internal/observability"
	"github.com/rowforge/rowforge/pkg/types"
)

// Deriver builds schemas from entity descriptors and sample batches. The
// cache is caller-owned and scoped to one pipeline run; Stats receives the
// coercion report for silent type widenings.
type Deriver struct {
	cache *Cache
	stats *observability.RunStats
}

// NewDeriver creates a deriver. Both arguments may be nil: a nil cache
// disables memoization, a nil stats discards the coercion report.
func NewDeriver(cache *Cache, stats *observability.RunStats) *Deriver {
	return &Deriver{cache: cache, stats: stats}
}

// Derive builds the canonical schema for desc from the given entity batch.
// The result is deterministic for a fixed batch order: field order follows
// the descriptor, dynamic leaf columns follow first observation order, and
// unification is order-insensitive in its end result.
//
// A dynamic leaf kind that is never populated across the batch derives to a
// schema with zero columns, which is valid, not an error.
func (d *Deriver) Derive(desc *types.EntityDescriptor, entities []types.Entity) (*types.Schema, error) {
	if desc == nil {
		return nil, errors.New(errors.CategorySchema, errors.CodeInvalidDescriptor, "nil entity descriptor")
	}
	if d.cache != nil {
		if s, ok := d.cache.Get(desc.Name); ok {
			return s, nil
		}
	}
	if err := desc.Validate(); err != nil {
		return nil, errors.Wrap(errors.CategorySchema, errors.CodeInvalidDescriptor, "invalid entity descriptor", err)
	}

	s := &types.Schema{
		Entity:   desc.Name,
		Identity: append([]string(nil), desc.Identity...),
	}
	for _, f := range desc.Fields {
		switch f.Kind {
		case types.ScalarField:
			s.Fields = append(s.Fields, types.SchemaField{
				Name: f.Name,
				Kind: types.ScalarField,
				Type: f.Type,
			})
		case types.SingletonField, types.CollectionField:
			var leaf *types.LeafSchema
			if f.Leaf.Dynamic {
				leaf = d.scanDynamicLeaf(desc.Name, f, entities)
			} else {
				leaf = declaredLeafSchema(f.Leaf)
			}
			s.Fields = append(s.Fields, types.SchemaField{
				Name: f.Name,
				Kind: f.Kind,
				Leaf: leaf,
			})
		}
	}

	if d.cache != nil {
		d.cache.Put(desc.Name, s)
	}
	return s, nil
}

func declaredLeafSchema(desc *types.LeafDescriptor) *types.LeafSchema {
	cols := make([]types.LeafColumn, len(desc.Columns))
	copy(cols, desc.Columns)
	return &types.LeafSchema{Columns: cols}
}

// scanDynamicLeaf learns a leaf kind's column set from the data. Every
// populated instance across every entity is visited; observed field names
// keep their first-observation order, and each field's type is the
// unification of every non-null value seen for it. A field observed with
// only null values falls back to string.
func (d *Deriver) scanDynamicLeaf(entity string, f types.FieldDef, entities []types.Entity) *types.LeafSchema {
	order := make([]string, 0, 8)
	seen := make(map[string]bool)
	typed := make(map[string]types.DataType)

	observe := func(leaf types.Leaf) {
		if leaf == nil {
			return
		}
		fields := leaf.Fields()
		if fields == nil {
			return
		}
		for _, name := range fields.Names() {
			if !seen[name] {
				seen[name] = true
				order = append(order, name)
			}
			v, _ := fields.Get(name)
			if v == nil {
				continue
			}
			vt, ok := types.InferType(v)
			if !ok {
				// Non-scalar values are rejected later, at flatten
				// time; for inference they widen to string.
				vt = types.TypeString
			}
			prev, has := typed[name]
			if !has {
				typed[name] = vt
				continue
			}
			merged := types.Unify(prev, vt)
			if merged != prev {
				typed[name] = merged
				d.stats.RecordCoercion(observability.Coercion{
					Entity: entity,
					Field:  f.Name,
					Column: name,
					From:   prev,
					To:     merged,
				})
			}
		}
	}

	for _, e := range entities {
		switch f.Kind {
		case types.SingletonField:
			observe(e.Singleton(f.Name))
		case types.CollectionField:
			for _, leaf := range e.Collection(f.Name) {
				observe(leaf)
			}
		}
	}

	leaf := &types.LeafSchema{}
	for _, name := range order {
		t, ok := typed[name]
		if !ok {
			// Observed, but never with a non-null value.
			t = types.TypeString
		}
		leaf.Columns = append(leaf.Columns, types.LeafColumn{Name: name, Type: t})
	}
	return leaf
}
