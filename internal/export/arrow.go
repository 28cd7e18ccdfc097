// Package export converts joined event tables to Apache Arrow records and
// writes them as Parquet files.
package export

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
	"github.com/banshee-data/cherenkov.pipe/internal/table"
)

func arrowType(d table.DataType) (arrow.DataType, error) {
	switch d {
	case table.Int64:
		return arrow.PrimitiveTypes.Int64, nil
	case table.Float64:
		return arrow.PrimitiveTypes.Float64, nil
	case table.Bool:
		return arrow.FixedWidthTypes.Boolean, nil
	case table.String:
		return arrow.BinaryTypes.String, nil
	case table.Float32Array:
		return arrow.ListOf(arrow.PrimitiveTypes.Float32), nil
	case table.BoolArray:
		return arrow.ListOf(arrow.FixedWidthTypes.Boolean), nil
	}
	return nil, pipeerr.Newf(pipeerr.CodeValue, "no arrow type for %s", d)
}

func tableType(dt arrow.DataType) (table.DataType, error) {
	switch dt.ID() {
	case arrow.INT64:
		return table.Int64, nil
	case arrow.FLOAT64:
		return table.Float64, nil
	case arrow.BOOL:
		return table.Bool, nil
	case arrow.STRING:
		return table.String, nil
	case arrow.LIST:
		switch dt.(*arrow.ListType).Elem().ID() {
		case arrow.FLOAT32:
			return table.Float32Array, nil
		case arrow.BOOL:
			return table.BoolArray, nil
		}
	}
	return 0, pipeerr.Newf(pipeerr.CodeValue, "unsupported arrow type %s", dt)
}

// Schema returns the arrow schema of t. Every field is nullable; t.Meta is
// carried as schema metadata.
func Schema(t *table.Table) (*arrow.Schema, error) {
	fields := make([]arrow.Field, 0, t.NumColumns())
	for _, c := range t.Columns() {
		dt, err := arrowType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		fields = append(fields, arrow.Field{Name: c.Name, Type: dt, Nullable: true})
	}
	var md *arrow.Metadata
	if len(t.Meta) > 0 {
		m := arrow.MetadataFrom(t.Meta)
		md = &m
	}
	return arrow.NewSchema(fields, md), nil
}

// ToRecord converts t to an arrow record. The caller releases it.
func ToRecord(t *table.Table, mem memory.Allocator) (arrow.Record, error) {
	schema, err := Schema(t)
	if err != nil {
		return nil, err
	}
	return record(t, schema, mem), nil
}

// record builds a record of t with a schema whose fields match t's columns.
func record(t *table.Table, schema *arrow.Schema, mem memory.Allocator) arrow.Record {
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	for i, c := range t.Columns() {
		appendColumn(b.Field(i), c)
	}
	return b.NewRecord()
}

// sameFields compares schemas ignoring metadata.
func sameFields(a, b *arrow.Schema) bool {
	return arrow.NewSchema(a.Fields(), nil).Equal(arrow.NewSchema(b.Fields(), nil))
}

func appendColumn(fb array.Builder, c *table.Column) {
	fb.Reserve(c.Len())
	for _, v := range c.Values {
		if v == nil {
			fb.AppendNull()
			continue
		}
		switch b := fb.(type) {
		case *array.Int64Builder:
			b.Append(v.(int64))
		case *array.Float64Builder:
			b.Append(v.(float64))
		case *array.BooleanBuilder:
			b.Append(v.(bool))
		case *array.StringBuilder:
			b.Append(v.(string))
		case *array.ListBuilder:
			b.Append(true)
			switch vb := b.ValueBuilder().(type) {
			case *array.Float32Builder:
				vb.AppendValues(v.([]float32), nil)
			case *array.BooleanBuilder:
				vb.AppendValues(v.([]bool), nil)
			}
		}
	}
}

// FromArrow converts an arrow table back to a table.
func FromArrow(at arrow.Table) (*table.Table, error) {
	schema := at.Schema()
	cols := make([]*table.Column, 0, at.NumCols())
	for i := 0; i < int(at.NumCols()); i++ {
		field := schema.Field(i)
		dt, err := tableType(field.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", field.Name, err)
		}
		col := &table.Column{Name: field.Name, Type: dt, Values: make([]any, 0, at.NumRows())}
		for _, chunk := range at.Column(i).Data().Chunks() {
			col.Values = appendValues(col.Values, chunk)
		}
		cols = append(cols, col)
	}
	t, err := table.New(cols...)
	if err != nil {
		return nil, err
	}
	if md := schema.Metadata(); md.Len() > 0 {
		for i, k := range md.Keys() {
			t.Meta[k] = md.Values()[i]
		}
	}
	return t, nil
}

func appendValues(dst []any, arr arrow.Array) []any {
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			dst = append(dst, nil)
			continue
		}
		switch a := arr.(type) {
		case *array.Int64:
			dst = append(dst, a.Value(i))
		case *array.Float64:
			dst = append(dst, a.Value(i))
		case *array.Boolean:
			dst = append(dst, a.Value(i))
		case *array.String:
			dst = append(dst, a.Value(i))
		case *array.List:
			start, end := a.ValueOffsets(i)
			switch vals := a.ListValues().(type) {
			case *array.Float32:
				out := make([]float32, 0, end-start)
				for j := start; j < end; j++ {
					out = append(out, vals.Value(int(j)))
				}
				dst = append(dst, out)
			case *array.Boolean:
				out := make([]bool, 0, end-start)
				for j := start; j < end; j++ {
					out = append(out, vals.Value(int(j)))
				}
				dst = append(dst, out)
			}
		}
	}
	return dst
}
