// Package hydrate implements the grouping and attach primitives producers use
// to populate singleton and collection fields on already-constructed root
// entities. It is the engine's boundary contract toward upstream parsing
// code: keyed detail rows enter only through Pack and the Attach functions,
// which close the referential-integrity gap between detail rows and
// root-entity identity.
package hydrate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rowforge/rowforge/pkg/types"
)

// Row is one keyed detail row produced by the parsing layer.
type Row map[string]types.Value

// Group holds the rows sharing one key tuple, in group order.
type Group struct {
	Key  []string
	Rows []Row
}

// Pack groups rows by the key column tuple. When orderBy is given, all rows
// are globally stable-sorted by (key, orderBy...) before grouping, with ties
// broken by later order columns. When orderBy is empty, the original row
// order within each key is preserved with no implicit resort. Groups come back
// in first-seen key order either way, so packing is deterministic for a
// fixed input order.
func Pack(rows []Row, keyCols []string, orderBy []string) []Group {
	if len(orderBy) > 0 {
		sorted := make([]Row, len(rows))
		copy(sorted, rows)
		sort.SliceStable(sorted, func(i, j int) bool {
			// Key columns compare on their rendered form, the same one
			// grouping uses, so rows that group together always sort
			// together even when their key cells are mixed-typed.
			for _, col := range keyCols {
				cmp := strings.Compare(keyString(sorted[i][col]), keyString(sorted[j][col]))
				if cmp != 0 {
					return cmp < 0
				}
			}
			for _, col := range orderBy {
				cmp := compareValues(sorted[i][col], sorted[j][col])
				if cmp != 0 {
					return cmp < 0
				}
			}
			return false
		})
		rows = sorted
	}

	var groups []Group
	index := make(map[string]int)
	for _, row := range rows {
		key := keyTuple(row, keyCols)
		ks := strings.Join(key, "\x1f")
		i, ok := index[ks]
		if !ok {
			i = len(groups)
			index[ks] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Rows = append(groups[i].Rows, row)
	}
	return groups
}

func keyTuple(row Row, keyCols []string) []string {
	key := make([]string, len(keyCols))
	for i, col := range keyCols {
		key[i] = keyString(row[col])
	}
	return key
}

// keyString renders a key column value. Identity keys are strings end to end;
// other values are formatted so grouping stays total.
func keyString(v types.Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// compareValues orders two cell values: nil first, then by value within a
// type, mixed types by type name. Total, so sorting never fails.
func compareValues(a, b types.Value) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	a, b = types.Normalize(a), types.Normalize(b)
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case int64:
		switch bv := b.(type) {
		case int64:
			return compareInt64(av, bv)
		case float64:
			return compareFloat64(float64(av), bv)
		}
	case float64:
		switch bv := b.(type) {
		case float64:
			return compareFloat64(av, bv)
		case int64:
			return compareFloat64(av, float64(bv))
		}
	case bool:
		if bv, ok := b.(bool); ok {
			if av == bv {
				return 0
			}
			if !av {
				return -1
			}
			return 1
		}
	case types.Date:
		switch bv := b.(type) {
		case types.Date:
			if av == bv {
				return 0
			}
			if av.Before(bv) {
				return -1
			}
			return 1
		case time.Time:
			return compareTime(av.Time(), bv)
		}
	case time.Time:
		switch bv := b.(type) {
		case time.Time:
			return compareTime(av, bv)
		case types.Date:
			return compareTime(av, bv.Time())
		}
	}
	// Mixed incomparable types: fall back to the rendered form.
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}
