package eventfile

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
	"github.com/banshee-data/cherenkov.pipe/internal/table"
)

// KeyFilter restricts a read to a set of (obs_id, event_id) pairs.
type KeyFilter struct {
	pairs map[[2]int64]struct{}
}

// NewKeyFilter builds a filter from parallel obs_id and event_id slices.
func NewKeyFilter(obsIDs, eventIDs []int64) *KeyFilter {
	k := &KeyFilter{pairs: make(map[[2]int64]struct{}, len(obsIDs))}
	for i := range obsIDs {
		k.pairs[[2]int64{obsIDs[i], eventIDs[i]}] = struct{}{}
	}
	return k
}

// KeyFilterFromTable builds a filter from the obs_id and event_id columns
// of t.
func KeyFilterFromTable(t *table.Table) (*KeyFilter, error) {
	obs, err := t.Int64s("obs_id")
	if err != nil {
		return nil, err
	}
	evt, err := t.Int64s("event_id")
	if err != nil {
		return nil, err
	}
	return NewKeyFilter(obs, evt), nil
}

// Len returns the number of distinct pairs.
func (k *KeyFilter) Len() int { return len(k.pairs) }

// Contains reports whether the pair is part of the filter.
func (k *KeyFilter) Contains(obsID, eventID int64) bool {
	_, ok := k.pairs[[2]int64{obsID, eventID}]
	return ok
}

// ReadOptions select part of a dataset. Start and Stop are row positions
// in file order; Keys is applied after slicing.
type ReadOptions struct {
	Start   *int
	Stop    *int
	Keys    *KeyFilter
	Columns []string
}

// Column describes a stored dataset column.
type Column struct {
	Name string
	Type table.DataType
}

// Schema returns the columns of a dataset in storage order.
func (f *File) Schema(ctx context.Context, path string) ([]Column, error) {
	if err := f.requireDataset(ctx, path); err != nil {
		return nil, err
	}
	rows, err := f.db.QueryContext(ctx, "SELECT name, type FROM pragma_table_info(?)", path)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.CodeIO, "schema of "+path, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var name, decl string
		if err := rows.Scan(&name, &decl); err != nil {
			return nil, pipeerr.Wrap(pipeerr.CodeIO, "schema of "+path, err)
		}
		d, err := dataType(decl)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", path, name, err)
		}
		cols = append(cols, Column{Name: name, Type: d})
	}
	if err := rows.Err(); err != nil {
		return nil, pipeerr.Wrap(pipeerr.CodeIO, "schema of "+path, err)
	}
	return cols, nil
}

// ReadTable reads a dataset into memory, in file order.
func (f *File) ReadTable(ctx context.Context, path string, opts ReadOptions) (*table.Table, error) {
	schema, err := f.Schema(ctx, path)
	if err != nil {
		return nil, err
	}
	cols, err := selectColumns(schema, opts.Columns, path)
	if err != nil {
		return nil, err
	}

	obsPos, evtPos := -1, -1
	if opts.Keys != nil {
		if cols, obsPos, evtPos, err = withKeyColumns(schema, cols, path); err != nil {
			return nil, err
		}
	}

	query, args := buildSelect(path, cols, opts)
	rows, err := f.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.CodeIO, "read "+path, err)
	}
	defer rows.Close()

	values := make([][]any, len(cols))
	for i := range values {
		values[i] = []any{}
	}
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, pipeerr.Wrap(pipeerr.CodeIO, "read "+path, err)
		}
		if opts.Keys != nil {
			obs, ok1 := raw[obsPos].(int64)
			evt, ok2 := raw[evtPos].(int64)
			if !ok1 || !ok2 || !opts.Keys.Contains(obs, evt) {
				continue
			}
		}
		for i, c := range cols {
			v, err := decode(c.Type, raw[i])
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", path, c.Name, err)
			}
			values[i] = append(values[i], v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, pipeerr.Wrap(pipeerr.CodeIO, "read "+path, err)
	}

	out := make([]*table.Column, 0, len(cols))
	for i, c := range cols {
		if opts.Keys != nil && len(opts.Columns) > 0 && !slices.Contains(opts.Columns, c.Name) {
			continue
		}
		out = append(out, &table.Column{Name: c.Name, Type: c.Type, Values: values[i]})
	}
	t, err := table.New(out...)
	if err != nil {
		return nil, err
	}
	t.Meta["path"] = path
	return t, nil
}

func selectColumns(schema []Column, names []string, path string) ([]Column, error) {
	if len(names) == 0 {
		return schema, nil
	}
	out := make([]Column, 0, len(names))
	for _, n := range names {
		i := indexOf(schema, n)
		if i < 0 {
			return nil, pipeerr.WithMetadata(pipeerr.CodeValue,
				"column not in dataset", map[string]string{"dataset": path, "column": n})
		}
		out = append(out, schema[i])
	}
	return out, nil
}

// withKeyColumns makes sure obs_id and event_id are read for key
// filtering and returns their positions.
func withKeyColumns(schema, cols []Column, path string) ([]Column, int, int, error) {
	pos := [2]int{}
	for k, name := range table.SubarrayEventKeys {
		pos[k] = indexOf(cols, name)
		if pos[k] >= 0 {
			continue
		}
		i := indexOf(schema, name)
		if i < 0 {
			return nil, 0, 0, pipeerr.WithMetadata(pipeerr.CodeKeyMismatch,
				"dataset has no event keys", map[string]string{"dataset": path, "column": name})
		}
		cols = append(cols, schema[i])
		pos[k] = len(cols) - 1
	}
	return cols, pos[0], pos[1], nil
}

func buildSelect(path string, cols []Column, opts ReadOptions) (string, []any) {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = quoteIdent(c.Name)
	}
	var (
		b    strings.Builder
		args []any
	)
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(names, ", "), quoteIdent(path))
	sliced := opts.Start != nil || opts.Stop != nil
	if opts.Keys != nil && !sliced {
		writeKeyClause(&b, opts.Keys)
	}
	b.WriteString(" ORDER BY rowid")
	if sliced {
		start := 0
		if opts.Start != nil {
			start = max(0, *opts.Start)
		}
		limit := -1
		if opts.Stop != nil {
			limit = max(0, *opts.Stop-start)
		}
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, limit, start)
	}
	return b.String(), args
}

// writeKeyClause restricts a select to the filter's pairs with a row value
// IN over a VALUES list. The pairs are integers and are written as
// literals, which keeps large chunks clear of the bound parameter limit.
func writeKeyClause(b *strings.Builder, k *KeyFilter) {
	if len(k.pairs) == 0 {
		b.WriteString(" WHERE 0")
		return
	}
	pairs := make([][2]int64, 0, len(k.pairs))
	for p := range k.pairs {
		pairs = append(pairs, p)
	}
	slices.SortFunc(pairs, func(x, y [2]int64) int {
		if c := cmp.Compare(x[0], y[0]); c != 0 {
			return c
		}
		return cmp.Compare(x[1], y[1])
	})
	b.WriteString(" WHERE (obs_id, event_id) IN (VALUES ")
	for i, p := range pairs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		b.WriteString(strconv.FormatInt(p[0], 10))
		b.WriteString(", ")
		b.WriteString(strconv.FormatInt(p[1], 10))
		b.WriteString(")")
	}
	b.WriteString(")")
}

func indexOf(cols []Column, name string) int {
	for i, c := range cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}
