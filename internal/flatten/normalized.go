package flatten

import (
	"github.com/rowforge/rowforge/pkg/types"
)

// Normalized flattens the batch into one table per entity kind, keyed by
// table name:
//
//   - the root table holds identity plus every scalar column, exactly one
//     row per entity, unconditionally;
//   - each singleton field yields a table with rows only for entities where
//     the singleton is populated;
//   - each collection field yields a table with identity, row_index and one
//     row per item.
//
// A leaf kind whose derived schema is empty degrades to an identity-only
// (plus row_index, for collections) table rather than failing.
func (f *Flattener) Normalized(entities []types.Entity) (map[string]*types.Table, error) {
	perEntity := make([]map[string][][]types.Value, len(entities))
	err := forEachEntity(len(entities), f.Workers, func(i int) error {
		rows, err := f.normalizedEntityRows(entities[i])
		if err != nil {
			return err
		}
		perEntity[i] = rows
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]*types.Table)
	out[f.Schema.Entity] = types.NewTable(f.Schema.Entity, f.rootColumns())
	for _, sf := range f.Schema.Singletons() {
		out[sf.Name] = types.NewTable(sf.Name, f.leafTableColumns(sf, false))
	}
	for _, cf := range f.Schema.Collections() {
		out[cf.Name] = types.NewTable(cf.Name, f.leafTableColumns(cf, true))
	}

	for _, tables := range perEntity {
		for name, rows := range tables {
			out[name].Rows = append(out[name].Rows, rows...)
		}
	}

	for _, t := range out {
		if err := verifyFlat(t); err != nil {
			return nil, err
		}
		f.Stats.RecordRows(t.Name, t.NumRows())
	}
	return out, nil
}

func (f *Flattener) rootColumns() []types.Column {
	var cols []types.Column
	for _, id := range f.Schema.Identity {
		cols = append(cols, types.Column{Name: id, Type: types.TypeString})
	}
	for _, sf := range f.Schema.Scalars() {
		cols = append(cols, types.Column{Name: sf.Name, Type: sf.Type, Nullable: true})
	}
	return cols
}

func (f *Flattener) leafTableColumns(sf types.SchemaField, withIndex bool) []types.Column {
	var cols []types.Column
	for _, id := range f.Schema.Identity {
		cols = append(cols, types.Column{Name: id, Type: types.TypeString})
	}
	if withIndex {
		cols = append(cols, types.Column{Name: RowIndexColumn, Type: types.TypeInteger})
	}
	for _, c := range sf.Leaf.Columns {
		cols = append(cols, types.Column{Name: prefixed(sf.Name, c.Name), Type: c.Type, Nullable: true})
	}
	return cols
}

// normalizedEntityRows builds one entity's contribution to every normalized
// table. Entities with an absent singleton or an empty collection contribute
// zero rows to those tables, never an all-null placeholder row.
func (f *Flattener) normalizedEntityRows(e types.Entity) (map[string][][]types.Value, error) {
	id, err := f.identityValues(e)
	if err != nil {
		return nil, err
	}
	idValues := func() []types.Value {
		row := make([]types.Value, 0, len(id))
		for _, v := range id {
			row = append(row, v)
		}
		return row
	}

	out := make(map[string][][]types.Value)

	root := idValues()
	for _, sf := range f.Schema.Scalars() {
		v, err := checkCell(f.Schema.Entity, sf.Name, sf.Type, e.Scalar(sf.Name))
		if err != nil {
			return nil, err
		}
		root = append(root, v)
	}
	out[f.Schema.Entity] = [][]types.Value{root}

	for _, sf := range f.Schema.Singletons() {
		leaf := e.Singleton(sf.Name)
		if leaf == nil {
			continue
		}
		vals, err := leafValues(sf.Name, sf.Name, sf.Leaf, leaf)
		if err != nil {
			return nil, err
		}
		out[sf.Name] = [][]types.Value{append(idValues(), vals...)}
	}

	for _, cf := range f.Schema.Collections() {
		leaves := e.Collection(cf.Name)
		if len(leaves) == 0 {
			continue
		}
		rows := make([][]types.Value, 0, len(leaves))
		for i, leaf := range leaves {
			vals, err := leafValues(cf.Name, cf.Name, cf.Leaf, leaf)
			if err != nil {
				return nil, err
			}
			row := append(idValues(), int64(i))
			rows = append(rows, append(row, vals...))
		}
		out[cf.Name] = rows
	}
	return out, nil
}
