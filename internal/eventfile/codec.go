package eventfile

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
	"github.com/banshee-data/cherenkov.pipe/internal/table"
)

// Declared SQLite column types per element type.
var declTypes = map[table.DataType]string{
	table.Int64:        "INTEGER",
	table.Float64:      "REAL",
	table.Bool:         "BOOLEAN",
	table.String:       "TEXT",
	table.Float32Array: "FLOAT32_ARRAY",
	table.BoolArray:    "BOOL_ARRAY",
}

func declType(d table.DataType) string { return declTypes[d] }

func dataType(decl string) (table.DataType, error) {
	decl = strings.ToUpper(strings.TrimSpace(decl))
	for d, s := range declTypes {
		if s == decl {
			return d, nil
		}
	}
	switch decl {
	case "BIGINT", "INT":
		return table.Int64, nil
	case "DOUBLE", "FLOAT":
		return table.Float64, nil
	}
	return 0, pipeerr.Newf(pipeerr.CodeValue, "unsupported column type %q", decl)
}

// encode converts a table value to a driver value.
func encode(d table.DataType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if !table.CheckValue(d, v) {
		return nil, pipeerr.Newf(pipeerr.CodeValue, "value %T does not fit column type %s", v, d)
	}
	switch d {
	case table.Bool:
		if v.(bool) {
			return int64(1), nil
		}
		return int64(0), nil
	case table.Float32Array:
		a := v.([]float32)
		b := make([]byte, 0, 4*len(a))
		for _, x := range a {
			b = binary.LittleEndian.AppendUint32(b, math.Float32bits(x))
		}
		return b, nil
	case table.BoolArray:
		a := v.([]bool)
		b := make([]byte, len(a))
		for i, x := range a {
			if x {
				b[i] = 1
			}
		}
		return b, nil
	}
	return v, nil
}

// decode converts a scanned driver value back to the table representation.
func decode(d table.DataType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch d {
	case table.Int64:
		switch x := v.(type) {
		case int64:
			return x, nil
		case float64:
			return int64(x), nil
		}
	case table.Float64:
		switch x := v.(type) {
		case float64:
			return x, nil
		case int64:
			return float64(x), nil
		}
	case table.Bool:
		switch x := v.(type) {
		case int64:
			return x != 0, nil
		case bool:
			return x, nil
		}
	case table.String:
		switch x := v.(type) {
		case string:
			return x, nil
		case []byte:
			return string(x), nil
		}
	case table.Float32Array:
		if b, ok := v.([]byte); ok && len(b)%4 == 0 {
			out := make([]float32, len(b)/4)
			for i := range out {
				out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
			}
			return out, nil
		}
	case table.BoolArray:
		if b, ok := v.([]byte); ok {
			out := make([]bool, len(b))
			for i, x := range b {
				out[i] = x != 0
			}
			return out, nil
		}
	}
	return nil, pipeerr.New(pipeerr.CodeValue, fmt.Sprintf("cannot decode %T as %s", v, d))
}
