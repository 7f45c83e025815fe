package survey

import (
	"math"
	"strconv"
	"strings"
)

// ValueType defines the storage type for a cell
type ValueType string

const (
	ValueTypeMissing ValueType = "missing"
	ValueTypeNumeric ValueType = "numeric"
	ValueTypeString  ValueType = "string"
)

// Value is one typed spreadsheet cell.
type Value struct {
	Type ValueType
	Text string
	Num  float64
}

// Missing is the zero-information cell.
func Missing() Value {
	return Value{Type: ValueTypeMissing}
}

// Number creates a numeric value. NaN and infinities are stored as missing.
func Number(n float64) Value {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return Missing()
	}
	return Value{Type: ValueTypeNumeric, Num: n}
}

// Text creates a string value. Blank strings are stored as missing.
func Text(s string) Value {
	if strings.TrimSpace(s) == "" {
		return Missing()
	}
	return Value{Type: ValueTypeString, Text: s}
}

// IsMissing reports whether the cell carries no answer.
func (v Value) IsMissing() bool {
	return v.Type == ValueTypeMissing || v.Type == ""
}

// Float returns the numeric content of the cell. Text cells that parse as a
// number are accepted; everything else yields NaN.
func (v Value) Float() float64 {
	switch v.Type {
	case ValueTypeNumeric:
		return v.Num
	case ValueTypeString:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64); err == nil {
			return f
		}
	}
	return math.NaN()
}

// String renders the cell as a category label. Missing cells render empty.
func (v Value) String() string {
	switch v.Type {
	case ValueTypeNumeric:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case ValueTypeString:
		return v.Text
	}
	return ""
}

// Interface returns the cell as a plain Go value for writers: nil, float64 or string.
func (v Value) Interface() interface{} {
	switch v.Type {
	case ValueTypeNumeric:
		return v.Num
	case ValueTypeString:
		return v.Text
	}
	return nil
}
