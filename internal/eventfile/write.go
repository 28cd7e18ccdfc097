package eventfile

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
	"github.com/banshee-data/cherenkov.pipe/internal/table"
)

// WriteTable appends the rows of t to a dataset, creating it when needed.
// Columns missing from an existing dataset are added; columns of the
// dataset missing from t are written as null.
func (f *File) WriteTable(ctx context.Context, path string, t *table.Table) error {
	if f.readOnly {
		return pipeerr.Wrap(pipeerr.CodeIO, "write "+path, ErrReadOnly)
	}
	if !strings.HasPrefix(path, "/") {
		return pipeerr.Newf(pipeerr.CodeValue, "dataset path %q must start with /", path)
	}

	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return pipeerr.Wrap(pipeerr.CodeIO, "begin write", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := ensureDataset(ctx, tx, path, t); err != nil {
		return err
	}

	names := make([]string, t.NumColumns())
	marks := make([]string, t.NumColumns())
	for i, c := range t.Columns() {
		names[i] = quoteIdent(c.Name)
		marks[i] = "?"
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(path), strings.Join(names, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return pipeerr.Wrap(pipeerr.CodeIO, "prepare insert into "+path, err)
	}
	defer stmt.Close()

	args := make([]any, t.NumColumns())
	for row := 0; row < t.NumRows(); row++ {
		for i, c := range t.Columns() {
			v, err := encode(c.Type, c.Values[row])
			if err != nil {
				return fmt.Errorf("%s.%s row %d: %w", path, c.Name, row, err)
			}
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return pipeerr.Wrap(pipeerr.CodeIO, "insert into "+path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return pipeerr.Wrap(pipeerr.CodeIO, "commit "+path, err)
	}
	return nil
}

func ensureDataset(ctx context.Context, tx *sql.Tx, path string, t *table.Table) error {
	existing, err := tableColumns(ctx, tx, path)
	if err != nil {
		return err
	}
	if existing == nil {
		defs := make([]string, t.NumColumns())
		for i, c := range t.Columns() {
			defs[i] = quoteIdent(c.Name) + " " + declType(c.Type)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)",
			quoteIdent(path), strings.Join(defs, ", "))); err != nil {
			return pipeerr.Wrap(pipeerr.CodeIO, "create dataset "+path, err)
		}
		return nil
	}
	for _, c := range t.Columns() {
		decl, ok := existing[c.Name]
		if !ok {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
				quoteIdent(path), quoteIdent(c.Name), declType(c.Type))); err != nil {
				return pipeerr.Wrap(pipeerr.CodeIO, "add column to "+path, err)
			}
			continue
		}
		d, err := dataType(decl)
		if err != nil {
			return err
		}
		if d != c.Type {
			return pipeerr.WithMetadata(pipeerr.CodeValue, "column type differs from dataset",
				map[string]string{"dataset": path, "column": c.Name, "stored": d.String(), "given": c.Type.String()})
		}
	}
	return nil
}

// tableColumns returns the declared types of a dataset's columns, or nil
// when the dataset does not exist.
func tableColumns(ctx context.Context, tx *sql.Tx, path string) (map[string]string, error) {
	rows, err := tx.QueryContext(ctx, "SELECT name, type FROM pragma_table_info(?)", path)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.CodeIO, "schema of "+path, err)
	}
	defer rows.Close()

	var cols map[string]string
	for rows.Next() {
		var name, decl string
		if err := rows.Scan(&name, &decl); err != nil {
			return nil, pipeerr.Wrap(pipeerr.CodeIO, "schema of "+path, err)
		}
		if cols == nil {
			cols = map[string]string{}
		}
		cols[name] = decl
	}
	if err := rows.Err(); err != nil {
		return nil, pipeerr.Wrap(pipeerr.CodeIO, "schema of "+path, err)
	}
	return cols, nil
}
