package flatten

import (
	"sort"
	"strings"

	"github.com/rowforge/rowforge/internal/errors"
	"github.com/rowforge/rowforge/pkg/types"
)

// wideLayout precomputes the wide table's column set and the index ranges
// each row kind writes into.
type wideLayout struct {
	columns []types.Column

	identityIdx []int
	rowTypeIdx  int
	rowIndexIdx int
	scalarIdx   map[string]int            // scalar field -> column index
	leafIdx     map[string]map[string]int // field -> leaf column -> column index
	rankByType  map[string]int            // row_type -> sort rank (base = 0)
}

func newWideLayout(s *types.Schema) (*wideLayout, error) {
	l := &wideLayout{
		scalarIdx:  make(map[string]int),
		leafIdx:    make(map[string]map[string]int),
		rankByType: map[string]int{RowTypeBase: 0},
	}
	used := make(map[string]bool)
	add := func(c types.Column) (int, error) {
		if used[c.Name] {
			return 0, errors.Newf(errors.CategorySchema, errors.CodeSchemaViolation,
				"wide table: duplicate column %q", c.Name)
		}
		used[c.Name] = true
		l.columns = append(l.columns, c)
		return len(l.columns) - 1, nil
	}

	for _, id := range s.Identity {
		idx, err := add(types.Column{Name: id, Type: types.TypeString})
		if err != nil {
			return nil, err
		}
		l.identityIdx = append(l.identityIdx, idx)
	}
	var err error
	if l.rowTypeIdx, err = add(types.Column{Name: RowTypeColumn, Type: types.TypeString}); err != nil {
		return nil, err
	}
	if l.rowIndexIdx, err = add(types.Column{Name: RowIndexColumn, Type: types.TypeInteger, Nullable: true}); err != nil {
		return nil, err
	}

	for _, f := range s.Fields {
		switch f.Kind {
		case types.ScalarField:
			idx, err := add(types.Column{Name: f.Name, Type: f.Type, Nullable: true})
			if err != nil {
				return nil, err
			}
			l.scalarIdx[f.Name] = idx
		case types.SingletonField, types.CollectionField:
			cols := make(map[string]int, len(f.Leaf.Columns))
			for _, c := range f.Leaf.Columns {
				idx, err := add(types.Column{Name: prefixed(f.Name, c.Name), Type: c.Type, Nullable: true})
				if err != nil {
					return nil, err
				}
				cols[c.Name] = idx
			}
			l.leafIdx[f.Name] = cols
			if f.Kind == types.CollectionField {
				l.rankByType[f.Name] = len(l.rankByType)
			}
		}
	}
	return l, nil
}

// Wide flattens the batch into one denormalized table. Every entity emits one
// base row (scalars plus unnested singletons); every collection item emits
// one row discriminated by row_type and 0-based row_index in hydration order.
// Columns inapplicable to a row's kind are null. Rows are sorted by
// (identity, row-kind rank, row_index) for reproducible output.
func (f *Flattener) Wide(entities []types.Entity) (*types.Table, error) {
	layout, err := newWideLayout(f.Schema)
	if err != nil {
		return nil, err
	}

	perEntity := make([][][]types.Value, len(entities))
	err = forEachEntity(len(entities), f.Workers, func(i int) error {
		rows, err := f.wideEntityRows(layout, entities[i])
		if err != nil {
			return err
		}
		perEntity[i] = rows
		return nil
	})
	if err != nil {
		return nil, err
	}

	table := types.NewTable("wide", layout.columns)
	for _, rows := range perEntity {
		table.Rows = append(table.Rows, rows...)
	}
	sortWideRows(table.Rows, layout)

	if err := verifyFlat(table); err != nil {
		return nil, err
	}
	f.Stats.RecordRows(table.Name, table.NumRows())
	return table, nil
}

// wideEntityRows builds the base row and every collection-item row for one
// entity, full-width with nulls in inapplicable columns.
func (f *Flattener) wideEntityRows(layout *wideLayout, e types.Entity) ([][]types.Value, error) {
	id, err := f.identityValues(e)
	if err != nil {
		return nil, err
	}

	newRow := func(rowType string, rowIndex types.Value) []types.Value {
		row := make([]types.Value, len(layout.columns))
		for i, idx := range layout.identityIdx {
			row[idx] = id[i]
		}
		row[layout.rowTypeIdx] = rowType
		row[layout.rowIndexIdx] = rowIndex
		return row
	}

	base := newRow(RowTypeBase, nil)
	for _, sf := range f.Schema.Scalars() {
		v, err := checkCell("wide", sf.Name, sf.Type, e.Scalar(sf.Name))
		if err != nil {
			return nil, err
		}
		base[layout.scalarIdx[sf.Name]] = v
	}
	for _, sf := range f.Schema.Singletons() {
		vals, err := leafValues("wide", sf.Name, sf.Leaf, e.Singleton(sf.Name))
		if err != nil {
			return nil, err
		}
		for i, c := range sf.Leaf.Columns {
			base[layout.leafIdx[sf.Name][c.Name]] = vals[i]
		}
	}
	rows := [][]types.Value{base}

	for _, cf := range f.Schema.Collections() {
		for i, leaf := range e.Collection(cf.Name) {
			row := newRow(cf.Name, int64(i))
			vals, err := leafValues("wide", cf.Name, cf.Leaf, leaf)
			if err != nil {
				return nil, err
			}
			for j, c := range cf.Leaf.Columns {
				row[layout.leafIdx[cf.Name][c.Name]] = vals[j]
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// sortWideRows orders rows by (identity columns, row-kind rank, row_index).
// The sort is stable, so equal keys keep their build order.
func sortWideRows(rows [][]types.Value, layout *wideLayout) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		for _, idx := range layout.identityIdx {
			av, _ := a[idx].(string)
			bv, _ := b[idx].(string)
			if c := strings.Compare(av, bv); c != 0 {
				return c < 0
			}
		}
		ar := layout.rankByType[a[layout.rowTypeIdx].(string)]
		br := layout.rankByType[b[layout.rowTypeIdx].(string)]
		if ar != br {
			return ar < br
		}
		ai, bi := int64(-1), int64(-1)
		if v, ok := a[layout.rowIndexIdx].(int64); ok {
			ai = v
		}
		if v, ok := b[layout.rowIndexIdx].(int64); ok {
			bi = v
		}
		return ai < bi
	})
}
