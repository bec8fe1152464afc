package export

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rowforge/rowforge/internal/errors"
	"github.com/rowforge/rowforge/pkg/types"
)

// sqliteType maps a column type to its SQLite storage class.
func sqliteType(t types.DataType) string {
	switch t {
	case types.TypeInteger, types.TypeBoolean:
		return "INTEGER"
	case types.TypeFloat:
		return "REAL"
	default:
		// Strings, dates and datetimes all travel as TEXT.
		return "TEXT"
	}
}

// writeSQLite writes all tables into one SQLite database file. Table names
// are written in sorted order so repeated runs produce identical files.
func writeSQLite(tables map[string]*types.Table, path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed,
			fmt.Sprintf("open sqlite database %s", path), err)
	}
	defer db.Close()

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed, "begin sqlite transaction", err)
	}
	defer tx.Rollback()

	for _, name := range names {
		if err := writeSQLiteTable(tx, tables[name]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed, "commit sqlite transaction", err)
	}
	return db.Close()
}

func writeSQLiteTable(tx *sql.Tx, t *types.Table) error {
	cols := make([]string, len(t.Columns))
	placeholders := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = fmt.Sprintf("%q %s", c.Name, sqliteType(c.Type))
		placeholders[i] = "?"
	}
	ddl := fmt.Sprintf("CREATE TABLE %q (%s)", t.Name, strings.Join(cols, ", "))
	if _, err := tx.Exec(ddl); err != nil {
		return errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed,
			fmt.Sprintf("create table %s", t.Name), err)
	}

	quoted := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		quoted[i] = fmt.Sprintf("%q", c.Name)
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		t.Name, strings.Join(quoted, ", "), strings.Join(placeholders, ", ")))
	if err != nil {
		return errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed,
			fmt.Sprintf("prepare insert for %s", t.Name), err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			args[i] = sqliteValue(v)
		}
		if _, err := stmt.Exec(args...); err != nil {
			return errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed,
				fmt.Sprintf("insert into %s", t.Name), err)
		}
	}
	return nil
}

// sqliteValue converts a flattened cell to a driver-supported value.
func sqliteValue(v types.Value) interface{} {
	switch x := v.(type) {
	case types.Date:
		return x.String()
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return x
	}
}
