package table

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
)

// JoinKind selects what happens to left rows without a match.
type JoinKind int

const (
	// JoinLeft keeps every left row and null-fills the added columns.
	JoinLeft JoinKind = iota
	// JoinInner drops left rows without a match.
	JoinInner
)

func (k JoinKind) String() string {
	if k == JoinInner {
		return "inner"
	}
	return "left"
}

// JoinOptions configures Join.
type JoinOptions struct {
	// On lists the key columns. Both tables must carry all of them.
	On   []string
	Kind JoinKind

	// RightPrefix is prepended as "<prefix>_<column>" to every non-key
	// column of right. RightSuffix is appended as "<column>_<suffix>" only
	// to columns that still collide after the prefix.
	RightPrefix string
	RightSuffix string

	// RightColumns limits the columns taken from right. Empty means all.
	RightColumns []string

	// LeftName and RightName identify the tables in error messages.
	LeftName  string
	RightName string
}

func (o JoinOptions) names() (string, string) {
	l, r := o.LeftName, o.RightName
	if l == "" {
		l = "left"
	}
	if r == "" {
		r = "right"
	}
	return l, r
}

// Join attaches the columns of right to left by equality on opts.On.
//
// The output has exactly the row order of left. Each right row may match
// any number of left rows, so a subarray table joined onto a telescope
// table broadcasts its values to every telescope of an event. Keys must be
// unique within right.
func Join(left, right *Table, opts JoinOptions) (*Table, error) {
	lname, rname := opts.names()
	if len(opts.On) == 0 {
		return nil, pipeerr.Newf(pipeerr.CodeKeyMismatch, "join of %s and %s: no key columns", lname, rname)
	}
	lkeys, err := keyColumns(left, opts.On, lname)
	if err != nil {
		return nil, err
	}
	rkeys, err := keyColumns(right, opts.On, rname)
	if err != nil {
		return nil, err
	}
	for i := range lkeys {
		if lkeys[i].Type != rkeys[i].Type {
			return nil, pipeerr.WithMetadata(pipeerr.CodeKeyMismatch,
				"key column types differ",
				map[string]string{"column": opts.On[i], lname: lkeys[i].Type.String(), rname: rkeys[i].Type.String()})
		}
	}

	added, err := addedColumns(left, right, opts, lname, rname)
	if err != nil {
		return nil, err
	}

	idx, err := buildIndex(rkeys, rname)
	if err != nil {
		return nil, err
	}

	// match[i] is the right row of left row i, -1 when absent.
	match := make([]int, left.NumRows())
	rows := make([]int, 0, left.NumRows())
	for i := range match {
		match[i] = idx.lookup(lkeys, i)
		if match[i] >= 0 || opts.Kind == JoinLeft {
			rows = append(rows, i)
		}
	}

	out := left.Take(rows)
	ridx := make([]int, len(rows))
	for i, r := range rows {
		ridx[i] = match[r]
	}
	for _, a := range added {
		c := a.col.take(ridx)
		c.Name = a.name
		if err := out.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type addedColumn struct {
	name string
	col  *Column
}

func addedColumns(left, right *Table, opts JoinOptions, lname, rname string) ([]addedColumn, error) {
	isKey := make(map[string]bool, len(opts.On))
	for _, k := range opts.On {
		isKey[k] = true
	}
	src := right.cols
	if len(opts.RightColumns) > 0 {
		src = make([]*Column, 0, len(opts.RightColumns))
		for _, n := range opts.RightColumns {
			c := right.Column(n)
			if c == nil {
				return nil, pipeerr.WithMetadata(pipeerr.CodeValue,
					"requested column missing", map[string]string{"table": rname, "column": n})
			}
			src = append(src, c)
		}
	}

	seen := map[string]bool{}
	var out []addedColumn
	for _, c := range src {
		if isKey[c.Name] {
			continue
		}
		name := Prefixed(opts.RightPrefix, c.Name)
		if left.HasColumn(name) && opts.RightSuffix != "" {
			name = name + "_" + opts.RightSuffix
		}
		if left.HasColumn(name) || seen[name] {
			return nil, pipeerr.WithMetadata(pipeerr.CodeValue,
				"column collision in join",
				map[string]string{"column": name, "left": lname, "right": rname})
		}
		seen[name] = true
		out = append(out, addedColumn{name: name, col: c})
	}
	return out, nil
}

func keyColumns(t *Table, on []string, name string) ([]*Column, error) {
	cols := make([]*Column, len(on))
	var missing []string
	for i, k := range on {
		cols[i] = t.Column(k)
		if cols[i] == nil {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, pipeerr.WithMetadata(pipeerr.CodeKeyMismatch,
			"key columns missing",
			map[string]string{"table": name, "columns": strings.Join(missing, ",")})
	}
	return cols, nil
}

// keyIndex maps hashed key tuples to right rows. Buckets are verified by
// value so hash collisions never produce false matches.
type keyIndex struct {
	keys    []*Column
	buckets map[uint64][]int
}

func buildIndex(keys []*Column, name string) (*keyIndex, error) {
	n := 0
	if len(keys) > 0 {
		n = keys[0].Len()
	}
	idx := &keyIndex{keys: keys, buckets: make(map[uint64][]int, n)}
	var d xxhash.Digest
	for row := 0; row < n; row++ {
		h := hashKey(&d, keys, row)
		for _, other := range idx.buckets[h] {
			if keysEqual(keys, row, keys, other) {
				return nil, pipeerr.WithMetadata(pipeerr.CodeKeyMismatch,
					"duplicate key in join table",
					map[string]string{"table": name, "key": formatKey(keys, row)})
			}
		}
		idx.buckets[h] = append(idx.buckets[h], row)
	}
	return idx, nil
}

func (k *keyIndex) lookup(probe []*Column, row int) int {
	var d xxhash.Digest
	for _, cand := range k.buckets[hashKey(&d, probe, row)] {
		if keysEqual(probe, row, k.keys, cand) {
			return cand
		}
	}
	return -1
}

func hashKey(d *xxhash.Digest, keys []*Column, row int) uint64 {
	d.Reset()
	var buf [9]byte
	for _, c := range keys {
		b := buf[:0]
		switch v := c.Values[row].(type) {
		case nil:
			b = append(b, 0)
		case int64:
			b = binary.LittleEndian.AppendUint64(append(b, 1), uint64(v))
		case float64:
			if v == 0 {
				v = 0 // -0 == +0 in keysEqual, so they must share a bucket
			}
			b = binary.LittleEndian.AppendUint64(append(b, 2), math.Float64bits(v))
		case bool:
			if v {
				b = append(b, 3, 1)
			} else {
				b = append(b, 3, 0)
			}
		case string:
			_, _ = d.Write([]byte{4})
			_, _ = d.WriteString(v)
			b = append(b, 0xff)
		}
		_, _ = d.Write(b)
	}
	return d.Sum64()
}

// keysEqual compares scalar keys. Nulls never match.
func keysEqual(a []*Column, i int, b []*Column, j int) bool {
	for k := range a {
		va, vb := a[k].Values[i], b[k].Values[j]
		if va == nil || vb == nil {
			return false
		}
		switch x := va.(type) {
		case int64, float64, bool, string:
			if x != vb {
				return false
			}
		default:
			return false
		}
	}
	return true
}
