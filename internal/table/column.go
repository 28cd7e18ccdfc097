package table

import "fmt"

// DataType is the element type of a Column.
type DataType int

const (
	Int64 DataType = iota
	Float64
	Bool
	String
	Float32Array
	BoolArray
)

func (d DataType) String() string {
	switch d {
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case Bool:
		return "bool"
	case String:
		return "string"
	case Float32Array:
		return "float32[]"
	case BoolArray:
		return "bool[]"
	default:
		return fmt.Sprintf("DataType(%d)", int(d))
	}
}

// Column is a named, typed vector of values. A nil entry is a null.
//
// Values hold int64, float64, bool, string or []float32 depending on Type.
type Column struct {
	Name   string
	Type   DataType
	Values []any
}

// Len returns the number of rows.
func (c *Column) Len() int { return len(c.Values) }

// IsNull reports whether row i is null.
func (c *Column) IsNull(i int) bool { return c.Values[i] == nil }

// Int64 returns row i as int64, false when null or of another type.
func (c *Column) Int64(i int) (int64, bool) {
	v, ok := c.Values[i].(int64)
	return v, ok
}

// Float64 returns row i as float64, false when null or of another type.
func (c *Column) Float64(i int) (float64, bool) {
	v, ok := c.Values[i].(float64)
	return v, ok
}

func (c *Column) take(idx []int) *Column {
	out := &Column{Name: c.Name, Type: c.Type, Values: make([]any, len(idx))}
	for i, j := range idx {
		if j >= 0 {
			out.Values[i] = c.Values[j]
		}
	}
	return out
}

func (c *Column) renamed(name string) *Column {
	return &Column{Name: name, Type: c.Type, Values: c.Values}
}

// NewInt64Column builds an Int64 column.
func NewInt64Column(name string, vals []int64) *Column {
	c := &Column{Name: name, Type: Int64, Values: make([]any, len(vals))}
	for i, v := range vals {
		c.Values[i] = v
	}
	return c
}

// NewFloat64Column builds a Float64 column.
func NewFloat64Column(name string, vals []float64) *Column {
	c := &Column{Name: name, Type: Float64, Values: make([]any, len(vals))}
	for i, v := range vals {
		c.Values[i] = v
	}
	return c
}

// NewBoolColumn builds a Bool column.
func NewBoolColumn(name string, vals []bool) *Column {
	c := &Column{Name: name, Type: Bool, Values: make([]any, len(vals))}
	for i, v := range vals {
		c.Values[i] = v
	}
	return c
}

// NewStringColumn builds a String column.
func NewStringColumn(name string, vals []string) *Column {
	c := &Column{Name: name, Type: String, Values: make([]any, len(vals))}
	for i, v := range vals {
		c.Values[i] = v
	}
	return c
}

// NewFloat32ArrayColumn builds a Float32Array column, e.g. camera images.
func NewFloat32ArrayColumn(name string, vals [][]float32) *Column {
	c := &Column{Name: name, Type: Float32Array, Values: make([]any, len(vals))}
	for i, v := range vals {
		if v != nil {
			c.Values[i] = v
		}
	}
	return c
}

// NewBoolArrayColumn builds a BoolArray column, e.g. tels_with_trigger.
func NewBoolArrayColumn(name string, vals [][]bool) *Column {
	c := &Column{Name: name, Type: BoolArray, Values: make([]any, len(vals))}
	for i, v := range vals {
		if v != nil {
			c.Values[i] = v
		}
	}
	return c
}

// CheckValue reports whether v may be stored in a column of type d.
func CheckValue(d DataType, v any) bool {
	if v == nil {
		return true
	}
	switch d {
	case Int64:
		_, ok := v.(int64)
		return ok
	case Float64:
		_, ok := v.(float64)
		return ok
	case Bool:
		_, ok := v.(bool)
		return ok
	case String:
		_, ok := v.(string)
		return ok
	case Float32Array:
		_, ok := v.([]float32)
		return ok
	case BoolArray:
		_, ok := v.([]bool)
		return ok
	}
	return false
}
