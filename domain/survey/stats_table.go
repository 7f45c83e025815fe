package survey

import (
	"fmt"
	"math"
	"strings"
)

// StatsTable is the output of an aggregation query: rows are categories (or
// statistic names), columns are value series (a single total, or one per
// breakout group). Missing cells hold NaN.
type StatsTable struct {
	Index   []string
	Columns []string
	Values  [][]float64
}

// NewStatsTable allocates a table with every cell missing.
func NewStatsTable(index, columns []string) *StatsTable {
	values := make([][]float64, len(index))
	for i := range values {
		row := make([]float64, len(columns))
		for j := range row {
			row[j] = math.NaN()
		}
		values[i] = row
	}
	return &StatsTable{
		Index:   append([]string(nil), index...),
		Columns: append([]string(nil), columns...),
		Values:  values,
	}
}

// Set stores v at (row, col); unknown labels are ignored.
func (s *StatsTable) Set(row, col string, v float64) {
	i, j := s.rowIndex(row), s.colIndex(col)
	if i < 0 || j < 0 {
		return
	}
	s.Values[i][j] = v
}

// Get returns the value at (row, col) and whether it is present.
func (s *StatsTable) Get(row, col string) (float64, bool) {
	i, j := s.rowIndex(row), s.colIndex(col)
	if i < 0 || j < 0 {
		return math.NaN(), false
	}
	v := s.Values[i][j]
	return v, !math.IsNaN(v)
}

// Column returns one column as a slice aligned with Index.
func (s *StatsTable) Column(col string) ([]float64, bool) {
	j := s.colIndex(col)
	if j < 0 {
		return nil, false
	}
	out := make([]float64, len(s.Index))
	for i := range s.Index {
		out[i] = s.Values[i][j]
	}
	return out, true
}

// Sum adds the present values of a column.
func (s *StatsTable) Sum(col string) float64 {
	vals, _ := s.Column(col)
	total := 0.0
	for _, v := range vals {
		if !math.IsNaN(v) {
			total += v
		}
	}
	return total
}

// Reindex returns a copy whose rows follow order. Labels absent from the
// table come back as all-missing rows; rows not named in order are dropped.
func (s *StatsTable) Reindex(order []string) *StatsTable {
	out := NewStatsTable(order, s.Columns)
	for i, label := range order {
		if src := s.rowIndex(label); src >= 0 {
			copy(out.Values[i], s.Values[src])
		}
	}
	return out
}

// Select returns a copy holding only the named columns, in that order.
func (s *StatsTable) Select(cols ...string) *StatsTable {
	out := NewStatsTable(s.Index, cols)
	for j, c := range cols {
		src := s.colIndex(c)
		if src < 0 {
			continue
		}
		for i := range s.Index {
			out.Values[i][j] = s.Values[i][src]
		}
	}
	return out
}

// RenameColumns relabels columns in place.
func (s *StatsTable) RenameColumns(mapping map[string]string) {
	for j, c := range s.Columns {
		if to, ok := mapping[c]; ok {
			s.Columns[j] = to
		}
	}
}

// Format renders the table as aligned text, percentages when percent is set.
func (s *StatsTable) Format(percent bool) string {
	var b strings.Builder
	width := 0
	for _, l := range s.Index {
		if w := len([]rune(flatten(l))); w > width {
			width = w
		}
	}
	fmt.Fprintf(&b, "%-*s", width, "")
	for _, c := range s.Columns {
		fmt.Fprintf(&b, "\t%s", flatten(c))
	}
	b.WriteString("\n")
	for i, l := range s.Index {
		fmt.Fprintf(&b, "%-*s", width, flatten(l))
		for _, v := range s.Values[i] {
			b.WriteString("\t")
			b.WriteString(FormatValue(v, percent))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatValue renders one cell: "-" when missing, "12.3%" when percent.
func FormatValue(v float64, percent bool) string {
	switch {
	case math.IsNaN(v):
		return "-"
	case percent:
		return fmt.Sprintf("%.1f%%", v*100)
	case v == math.Trunc(v) && math.Abs(v) < 1e15:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func flatten(label string) string {
	return strings.ReplaceAll(label, "\n", " ")
}

func (s *StatsTable) rowIndex(label string) int {
	for i, l := range s.Index {
		if l == label {
			return i
		}
	}
	return -1
}

func (s *StatsTable) colIndex(label string) int {
	for j, c := range s.Columns {
		if c == label {
			return j
		}
	}
	return -1
}
