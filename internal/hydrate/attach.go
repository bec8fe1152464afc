package hydrate

import (
	"strings"

	"github.com/rowforge/rowforge/internal/errors"
	"github.com/rowforge/rowforge/internal/observability"
	"github.com/rowforge/rowforge/pkg/types"
)

// OnMissingKey controls what happens when a grouped key has no matching
// parent entity. A detail row for an unknown key is a data-integrity defect,
// so the default is to fail, not to silently discard.
type OnMissingKey int

const (
	// FailOnMissing aborts hydration with an IntegrityViolation.
	FailOnMissing OnMissingKey = iota
	// SkipOnMissing drops the orphaned group and counts it for
	// observability.
	SkipOnMissing
)

// ParentLookup resolves a group key to its root entity.
type ParentLookup func(key []string) (types.Entity, bool)

// LeafBuilder constructs one leaf sub-record from a grouped row.
type LeafBuilder func(key []string, row Row) (types.Leaf, error)

// Hydrator attaches packed groups onto root entities. A zero Hydrator works;
// Stats, when set, receives the orphan-drop counts.
type Hydrator struct {
	Stats *observability.RunStats
}

// AttachSingleton builds exactly one leaf per group (from the group's first
// row) and assigns it to targetField on the parent entity. Groups whose key
// has no parent fail the batch under FailOnMissing, or are dropped and
// counted under SkipOnMissing.
func (h *Hydrator) AttachSingleton(groups []Group, lookup ParentLookup, build LeafBuilder, targetField string, mode OnMissingKey) error {
	for _, g := range groups {
		if len(g.Rows) == 0 {
			continue
		}
		parent, err := h.resolve(g, lookup, targetField, mode)
		if err != nil {
			return err
		}
		if parent == nil {
			continue
		}
		leaf, err := build(g.Key, g.Rows[0])
		if err != nil {
			return err
		}
		if err := parent.SetSingleton(targetField, leaf); err != nil {
			return err
		}
	}
	return nil
}

// AttachCollection builds one leaf per grouped row, in group order, and
// assigns the full ordered list to targetField on the parent entity. Group
// order is authoritative: it becomes the row position discriminator at
// flatten time.
func (h *Hydrator) AttachCollection(groups []Group, lookup ParentLookup, build LeafBuilder, targetField string, mode OnMissingKey) error {
	for _, g := range groups {
		if len(g.Rows) == 0 {
			continue
		}
		parent, err := h.resolve(g, lookup, targetField, mode)
		if err != nil {
			return err
		}
		if parent == nil {
			continue
		}
		leaves := make([]types.Leaf, 0, len(g.Rows))
		for _, row := range g.Rows {
			leaf, err := build(g.Key, row)
			if err != nil {
				return err
			}
			leaves = append(leaves, leaf)
		}
		if err := parent.SetCollection(targetField, leaves); err != nil {
			return err
		}
	}
	return nil
}

// resolve returns the parent for a group, nil when the group was skipped, or
// an IntegrityViolation when the key is unknown and mode is FailOnMissing.
func (h *Hydrator) resolve(g Group, lookup ParentLookup, targetField string, mode OnMissingKey) (types.Entity, error) {
	parent, ok := lookup(g.Key)
	if ok {
		return parent, nil
	}
	if mode == SkipOnMissing {
		h.Stats.RecordOrphanGroup(targetField)
		return nil, nil
	}
	return nil, errors.Newf(errors.CategoryIntegrity, errors.CodeMissingParent,
		"no parent entity for key (%s) while attaching %q", strings.Join(g.Key, ", "), targetField).
		WithDetails(map[string]interface{}{
			"key":          g.Key,
			"target_field": targetField,
			"rows":         len(g.Rows),
		})
}
