package table

import (
	"fmt"
	"strings"

	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
)

// Key columns of the two event granularities.
var (
	SubarrayEventKeys  = []string{"obs_id", "event_id"}
	TelescopeEventKeys = []string{"obs_id", "event_id", "tel_id"}
)

// Table is an ordered set of equally long columns.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int

	// Meta carries free-form annotations such as the source dataset path.
	Meta map[string]string
}

// New builds a table from columns. Names must be unique and lengths equal.
func New(cols ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(cols)), Meta: map[string]string{}}
	for i, c := range cols {
		if i == 0 {
			t.rows = c.Len()
		}
		if err := t.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustNew is New for static fixtures; it panics on error.
func MustNew(cols ...*Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Empty returns a table with the given columns and no rows.
func Empty(names []string, types []DataType) *Table {
	t := &Table{index: make(map[string]int, len(names)), Meta: map[string]string{}}
	for i, n := range names {
		t.index[n] = len(t.cols)
		t.cols = append(t.cols, &Column{Name: n, Type: types[i], Values: []any{}})
	}
	return t
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.rows }

// NumColumns returns the column count.
func (t *Table) NumColumns() int { return len(t.cols) }

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in table order. Callers must not mutate them.
func (t *Table) Columns() []*Column { return t.cols }

// HasColumn reports whether a column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column or nil.
func (t *Table) Column(name string) *Column {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	return t.cols[i]
}

// AddColumn appends a column. The column length must match the table.
func (t *Table) AddColumn(c *Column) error {
	if _, ok := t.index[c.Name]; ok {
		return pipeerr.Newf(pipeerr.CodeValue, "duplicate column %q", c.Name)
	}
	if len(t.cols) > 0 && c.Len() != t.rows {
		return pipeerr.Newf(pipeerr.CodeValue, "column %q has %d rows, table has %d", c.Name, c.Len(), t.rows)
	}
	if len(t.cols) == 0 {
		t.rows = c.Len()
	}
	t.index[c.Name] = len(t.cols)
	t.cols = append(t.cols, c)
	return nil
}

// Int64s returns a column as int64 values. Nulls and non-integers fail.
func (t *Table) Int64s(name string) ([]int64, error) {
	c := t.Column(name)
	if c == nil {
		return nil, pipeerr.Newf(pipeerr.CodeKeyMismatch, "missing column %q", name)
	}
	out := make([]int64, c.Len())
	for i := range c.Values {
		v, ok := c.Int64(i)
		if !ok {
			return nil, pipeerr.Newf(pipeerr.CodeValue, "column %q row %d is not an integer", name, i)
		}
		out[i] = v
	}
	return out, nil
}

// Value returns the value of a column at row, nil when absent.
func (t *Table) Value(name string, row int) any {
	c := t.Column(name)
	if c == nil {
		return nil
	}
	return c.Values[row]
}

// Slice returns rows [start, stop), clamped to the table.
func (t *Table) Slice(start, stop int) *Table {
	start = max(0, min(start, t.rows))
	stop = max(start, min(stop, t.rows))
	idx := make([]int, stop-start)
	for i := range idx {
		idx[i] = start + i
	}
	return t.Take(idx)
}

// Take returns the rows at idx in that order. A negative index yields a
// null row.
func (t *Table) Take(idx []int) *Table {
	out := &Table{index: make(map[string]int, len(t.cols)), rows: len(idx), Meta: t.cloneMeta()}
	for _, c := range t.cols {
		out.index[c.Name] = len(out.cols)
		out.cols = append(out.cols, c.take(idx))
	}
	return out
}

// Filter keeps rows for which keep returns true, in order.
func (t *Table) Filter(keep func(row int) bool) *Table {
	idx := make([]int, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return t.Take(idx)
}

// Select returns a table with only the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	out := &Table{index: make(map[string]int, len(names)), rows: t.rows, Meta: t.cloneMeta()}
	for _, n := range names {
		c := t.Column(n)
		if c == nil {
			return nil, pipeerr.Newf(pipeerr.CodeValue, "missing column %q", n)
		}
		out.index[n] = len(out.cols)
		out.cols = append(out.cols, c)
	}
	return out, nil
}

// Drop returns the table without the named columns. Unknown names are ignored.
func (t *Table) Drop(names ...string) *Table {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	out := &Table{index: make(map[string]int, len(t.cols)), rows: t.rows, Meta: t.cloneMeta()}
	for _, c := range t.cols {
		if skip[c.Name] {
			continue
		}
		out.index[c.Name] = len(out.cols)
		out.cols = append(out.cols, c)
	}
	return out
}

// WithPrefix renames every column except the listed ones to
// "<prefix>_<name>". This is the convention used for reconstruction
// algorithm outputs, e.g. HillasReconstructor_alt.
func (t *Table) WithPrefix(prefix string, except ...string) *Table {
	if prefix == "" {
		return t
	}
	keep := make(map[string]bool, len(except))
	for _, n := range except {
		keep[n] = true
	}
	out := &Table{index: make(map[string]int, len(t.cols)), rows: t.rows, Meta: t.cloneMeta()}
	for _, c := range t.cols {
		name := c.Name
		if !keep[name] {
			name = Prefixed(prefix, name)
		}
		out.index[name] = len(out.cols)
		out.cols = append(out.cols, c.renamed(name))
	}
	return out
}

// Prefixed joins a prefix and a column name with an underscore.
func Prefixed(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}

// VStack concatenates tables row-wise. The result has the union of all
// columns in first-seen order; columns missing from a table are null for
// its rows. Column types must agree.
func VStack(tables ...*Table) (*Table, error) {
	out := &Table{index: map[string]int{}, Meta: map[string]string{}}
	for _, t := range tables {
		for _, c := range t.cols {
			i, ok := out.index[c.Name]
			if !ok {
				out.index[c.Name] = len(out.cols)
				out.cols = append(out.cols, &Column{Name: c.Name, Type: c.Type})
				continue
			}
			if out.cols[i].Type != c.Type {
				return nil, pipeerr.Newf(pipeerr.CodeValue,
					"cannot stack column %q: %s vs %s", c.Name, out.cols[i].Type, c.Type)
			}
		}
	}
	for _, oc := range out.cols {
		oc.Values = make([]any, 0)
	}
	for _, t := range tables {
		for _, oc := range out.cols {
			if c := t.Column(oc.Name); c != nil {
				oc.Values = append(oc.Values, c.Values...)
			} else {
				oc.Values = append(oc.Values, make([]any, t.rows)...)
			}
		}
		out.rows += t.rows
	}
	return out, nil
}

func (t *Table) cloneMeta() map[string]string {
	m := make(map[string]string, len(t.Meta))
	for k, v := range t.Meta {
		m[k] = v
	}
	return m
}

// String renders a short description for logs.
func (t *Table) String() string {
	return fmt.Sprintf("Table(%d rows: %s)", t.rows, strings.Join(t.ColumnNames(), ", "))
}
