// Package table holds the in-memory columnar event tables and the
// operations the loader builds on: keyed joins that preserve the order of
// the driving table, event order checks and chunked row ranges.
//
// Row and join operations return new tables and never mutate their inputs.
// Column value slices may be shared between tables.
package table
