package export

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/banshee-data/cherenkov.pipe/internal/monitoring"
	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
	"github.com/banshee-data/cherenkov.pipe/internal/table"
)

// ParquetWriter streams tables with one schema into a Parquet file, one row
// group per Write. The schema is fixed by the first table.
type ParquetWriter struct {
	path   string
	f      *os.File
	w      *pqarrow.FileWriter
	schema *arrow.Schema
	mem    memory.Allocator
	rows   int64
}

// NewParquetWriter creates path. An existing file is an error unless
// overwrite is set.
func NewParquetWriter(path string, overwrite bool) (*ParquetWriter, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, pipeerr.Newf(pipeerr.CodeConfiguration, "output file %s exists, use overwrite", path)
		}
		return nil, pipeerr.Wrap(pipeerr.CodeIO, "failed to create parquet file", err)
	}
	return &ParquetWriter{path: path, f: f, mem: memory.NewGoAllocator()}, nil
}

// Write appends t. Its columns must match earlier writes; the metadata of
// the first table is kept.
func (p *ParquetWriter) Write(t *table.Table) error {
	schema, err := Schema(t)
	if err != nil {
		return err
	}
	if p.w == nil {
		props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
		arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
		p.w, err = pqarrow.NewFileWriter(schema, p.f, props, arrowProps)
		if err != nil {
			return pipeerr.Wrap(pipeerr.CodeIO, "failed to create parquet writer", err)
		}
		p.schema = schema
	} else if !sameFields(p.schema, schema) {
		return pipeerr.Newf(pipeerr.CodeValue, "table schema %s does not match %s", schema, p.schema)
	}

	rec := record(t, p.schema, p.mem)
	defer rec.Release()
	if err := p.w.Write(rec); err != nil {
		return pipeerr.Wrap(pipeerr.CodeIO, "failed to write table to parquet", err)
	}
	p.rows += rec.NumRows()
	return nil
}

// Rows returns the number of rows written so far.
func (p *ParquetWriter) Rows() int64 { return p.rows }

// Close flushes the footer and closes the file. A writer that never got a
// table leaves an empty file behind.
func (p *ParquetWriter) Close() error {
	if p.w != nil {
		if err := p.w.Close(); err != nil {
			return pipeerr.Wrap(pipeerr.CodeIO, "failed to close parquet writer", err)
		}
		monitoring.Debugf("wrote %d rows to %s", p.rows, p.path)
	}
	// The parquet writer may already have closed the file.
	if err := p.f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return pipeerr.Wrap(pipeerr.CodeIO, "failed to close parquet file", err)
	}
	return nil
}

// WriteParquet writes a single table to path.
func WriteParquet(path string, t *table.Table, overwrite bool) error {
	w, err := NewParquetWriter(path, overwrite)
	if err != nil {
		return err
	}
	if err := w.Write(t); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// ReadParquet reads a whole Parquet file written by ParquetWriter.
func ReadParquet(ctx context.Context, path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.CodeIO, "failed to open parquet file", err)
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f, file.WithReadProps(&parquet.ReaderProperties{}))
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.CodeIO, "failed to create parquet reader", err)
	}
	defer pf.Close()

	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.CodeIO, "failed to create arrow reader", err)
	}
	at, err := reader.ReadTable(ctx)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.CodeIO, "failed to read parquet data", err)
	}
	defer at.Release()

	t, err := FromArrow(at)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
