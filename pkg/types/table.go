package types

import "fmt"

// Column describes one column of a tabular output structure. Column types are
// always scalar: the flatteners guarantee no struct- or list-typed column ever
// reaches a Table.
type Column struct {
	Name     string
	Type     DataType
	Nullable bool
}

// Table is a plain in-memory tabular structure: ordered typed columns and
// positional rows. It is opaque to file format and run metadata; writers live
// outside the engine.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]Value
}

// NewTable creates an empty table with the given columns.
func NewTable(name string, columns []Column) *Table {
	return &Table{Name: name, Columns: columns}
}

// ColumnIndex returns the index of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return i
		}
	}
	return -1
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// AppendRow appends a row, enforcing column arity.
func (t *Table) AppendRow(row []Value) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("table %q: row has %d values, want %d", t.Name, len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// Cell returns the value at (row, column name), or nil when the column does
// not exist.
func (t *Table) Cell(row int, column string) Value {
	idx := t.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return nil
	}
	return t.Rows[row][idx]
}
