package export

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rowforge/rowforge/internal/errors"
	"github.com/rowforge/rowforge/pkg/types"
)

// PostgresWriter loads flattened tables into Postgres in a single
// transaction using COPY. Target tables must already exist with matching
// column names; the writer does not manage DDL.
type PostgresWriter struct {
	DSN      string
	Schema   string
	Truncate bool
}

// Write copies every table, optionally truncating the targets first. Either
// all tables land or none do.
func (w *PostgresWriter) Write(ctx context.Context, tables map[string]*types.Table) error {
	conn, err := pgx.Connect(ctx, w.DSN)
	if err != nil {
		return errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed, "connect to postgres", err)
	}
	defer conn.Close(ctx)

	schema := w.Schema
	if schema == "" {
		schema = "public"
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed, "begin postgres transaction", err)
	}
	defer tx.Rollback(ctx)

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		t := tables[name]
		ident := pgx.Identifier{schema, t.Name}
		if w.Truncate {
			if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s", ident.Sanitize())); err != nil {
				return errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed,
					fmt.Sprintf("truncate %s", t.Name), err)
			}
		}
		if t.NumRows() == 0 {
			continue
		}
		rows := make([][]interface{}, t.NumRows())
		for i, row := range t.Rows {
			out := make([]interface{}, len(row))
			for j, v := range row {
				out[j] = pgValue(v)
			}
			rows[i] = out
		}
		if _, err := tx.CopyFrom(ctx, ident, t.ColumnNames(), pgx.CopyFromRows(rows)); err != nil {
			return errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed,
				fmt.Sprintf("copy into %s", t.Name), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed, "commit postgres transaction", err)
	}
	return nil
}

// pgValue converts a flattened cell to a driver-supported value.
func pgValue(v types.Value) interface{} {
	switch x := v.(type) {
	case types.Date:
		return x.Time()
	case time.Time:
		return x.UTC()
	default:
		return x
	}
}
