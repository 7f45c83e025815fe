package survey

import (
	"fmt"
	"math"
)

// Table is a row-per-respondent table with named, ordered columns.
// Storage is column-major; every column has exactly Len() cells.
type Table struct {
	columns []string
	data    map[string][]Value
	rows    int
}

// NewTable creates an empty table with the given columns. Duplicate names
// keep their first position.
func NewTable(columns ...string) *Table {
	t := &Table{data: make(map[string][]Value, len(columns))}
	for _, c := range columns {
		if _, ok := t.data[c]; ok {
			continue
		}
		t.columns = append(t.columns, c)
		t.data[c] = nil
	}
	return t
}

// AppendRow adds one respondent. Cells are matched to columns by position;
// short rows are padded with missing values.
func (t *Table) AppendRow(cells ...Value) error {
	if len(cells) > len(t.columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(cells), len(t.columns))
	}
	for i, c := range t.columns {
		v := Missing()
		if i < len(cells) {
			v = cells[i]
		}
		t.data[c] = append(t.data[c], v)
	}
	t.rows++
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// HasColumn reports whether name is part of the schema.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.data[name]
	return ok
}

// Column returns the cells of a column. The slice is shared with the table
// and must not be modified.
func (t *Table) Column(name string) ([]Value, bool) {
	v, ok := t.data[name]
	return v, ok
}

// Numbers returns a column as floats, NaN for missing or non-numeric cells.
func (t *Table) Numbers(name string) ([]float64, bool) {
	cells, ok := t.data[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(cells))
	for i, c := range cells {
		out[i] = c.Float()
	}
	return out, true
}

// Row returns the cells of row i in column order.
func (t *Table) Row(i int) []Value {
	out := make([]Value, len(t.columns))
	for j, c := range t.columns {
		out[j] = t.data[c][i]
	}
	return out
}

// SetColumn replaces or appends a column.
func (t *Table) SetColumn(name string, cells []Value) error {
	if len(cells) != t.rows {
		return fmt.Errorf("column %q has %d cells, table has %d rows", name, len(cells), t.rows)
	}
	if _, ok := t.data[name]; !ok {
		t.columns = append(t.columns, name)
	}
	t.data[name] = cells
	return nil
}

// SetNumbers stores a float column; NaN and infinities become missing.
func (t *Table) SetNumbers(name string, nums []float64) error {
	cells := make([]Value, len(nums))
	for i, n := range nums {
		cells[i] = Number(n)
	}
	return t.SetColumn(name, cells)
}

// Rename renames columns in place. Unknown source names are ignored. When two
// columns end up with the same name the later one wins and keeps the earlier
// position.
func (t *Table) Rename(mapping map[string]string) {
	next := make([]string, 0, len(t.columns))
	data := make(map[string][]Value, len(t.data))
	for _, c := range t.columns {
		name := c
		if to, ok := mapping[c]; ok {
			name = to
		}
		if _, dup := data[name]; !dup {
			next = append(next, name)
		}
		data[name] = t.data[c]
	}
	t.columns, t.data = next, data
}

// Drop removes the named columns. Unknown names are ignored.
func (t *Table) Drop(names ...string) {
	for _, n := range names {
		if _, ok := t.data[n]; ok {
			t.removeColumn(n)
			delete(t.data, n)
		}
	}
}

// Filter returns a new table holding only the rows for which keep is true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	out := NewTable(t.columns...)
	var idx []int
	for i := 0; i < t.rows; i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	for _, c := range t.columns {
		src := t.data[c]
		cells := make([]Value, len(idx))
		for j, i := range idx {
			cells[j] = src[i]
		}
		out.data[c] = cells
	}
	out.rows = len(idx)
	return out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	return t.Filter(func(int) bool { return true })
}

func (t *Table) removeColumn(name string) {
	for i, c := range t.columns {
		if c == name {
			t.columns = append(t.columns[:i], t.columns[i+1:]...)
			return
		}
	}
}

// ValidNumbers drops NaN entries from xs.
func ValidNumbers(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}
