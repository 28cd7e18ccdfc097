// Package eventfile stores hierarchical event tables in a single SQLite
// file.
//
// Every dataset is a table named by its group path, for example
// /dl1/event/subarray/trigger or /dl1/event/telescope/parameters/tel_001.
// Rows are kept in insertion (rowid) order, which is the order the loader
// treats as the order of the file. Declared column types carry the table
// element types; array columns are little-endian BLOBs.
//
// Files opened with Open are read-only. Create makes a writable file and
// applies the embedded schema migrations for the fixed configuration
// tables.
package eventfile
