package results

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"surveydeck/domain/survey"
	"surveydeck/internal/errors"
	"surveydeck/internal/profiling"

	"gonum.org/v1/gonum/stat"
)

// Row labels of the descriptive statistics table.
const (
	StatMean   = "mean"
	StatStd    = "std"
	StatMin    = "min"
	StatQ25    = "25%"
	StatMedian = "50%"
	StatQ75    = "75%"
	StatMax    = "max"
)

// Numeric aggregates a continuous column. Cells that do not parse as a
// number count as missing.
type Numeric struct {
	Base
	values []float64 // row-aligned, NaN when missing
}

// NewNumeric binds a numeric view.
func NewNumeric(table *survey.Table, column string) (*Numeric, error) {
	base, err := newBase(table, column, survey.AnswerNumeric, func(v survey.Value) bool {
		return !math.IsNaN(v.Float())
	})
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(base.cells))
	for i, c := range base.cells {
		values[i] = c.Float()
	}
	return &Numeric{Base: base, values: values}, nil
}

// Values returns the valid values in row order.
func (n *Numeric) Values() []float64 {
	return survey.ValidNumbers(n.values)
}

// Summary returns the descriptive statistics of the valid values.
func (n *Numeric) Summary() profiling.Summary {
	return profiling.Summarize(n.Values())
}

// Mean is the mean of the valid values, NaN when there are none.
func (n *Numeric) Mean() float64 {
	vals := n.Values()
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}

// Stats without a breakout returns mean, sample std-dev, min, quartiles and
// max in a single "value" column, all missing when there is no valid value.
// With a breakout it returns per-group count and mean, one row per group.
func (n *Numeric) Stats(opts StatsOptions) (*survey.StatsTable, error) {
	if opts.Breakout == "" {
		s := n.Summary()
		index := []string{StatMean, StatStd, StatMin, StatQ25, StatMedian, StatQ75, StatMax}
		st := survey.NewStatsTable(index, []string{ColValue})
		for i, v := range []float64{s.Mean, s.StdDev, s.Min, s.Q25, s.Median, s.Q75, s.Max} {
			st.Values[i][0] = v
		}
		return reorder(st, opts.Order), nil
	}

	groups, err := n.groups(opts.Breakout)
	if err != nil {
		return nil, err
	}
	index := make([]string, len(groups))
	counts := make([]float64, len(groups))
	means := make([]float64, len(groups))
	for gi, g := range groups {
		vals := make([]float64, 0, len(g.rows))
		for _, i := range g.rows {
			if v := n.values[i]; !math.IsNaN(v) {
				vals = append(vals, v)
			}
		}
		counts[gi] = float64(len(vals))
		means[gi] = math.NaN()
		if len(vals) > 0 {
			means[gi] = stat.Mean(vals, nil)
		}
		index[gi] = g.name
		if !opts.OmitBase {
			index[gi] = survey.BaseLabel(g.name, len(vals))
		}
	}
	st := survey.NewStatsTable(index, []string{ColCount, ColMean})
	for i := range index {
		st.Values[i][0] = counts[i]
		st.Values[i][1] = means[i]
	}
	return reorder(st, opts.Order), nil
}

// StatsByBins counts the valid values per left-closed bin [edge[i], edge[i+1]).
// A value equal to the lowest edge is counted in the first bin; a value equal
// to the highest edge, or outside the edges, is not counted. Percentages are
// taken against ValidCount.
func (n *Numeric) StatsByBins(edges []float64) (*survey.StatsTable, error) {
	if len(edges) < 2 {
		return nil, errors.InvalidInput("bins need at least two edges")
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return nil, errors.InvalidInput(fmt.Sprintf("bin edges must be strictly ascending, got %v", edges))
		}
	}

	lo, hi := edges[0], edges[len(edges)-1]
	inside := make([]float64, 0, len(n.values))
	for _, v := range n.values {
		if !math.IsNaN(v) && v >= lo && v < hi {
			inside = append(inside, v)
		}
	}
	sort.Float64s(inside)
	counts := stat.Histogram(nil, edges, inside, nil)

	labels := BinLabels(edges)
	st := survey.NewStatsTable(labels, []string{ColCount, ColPercentage})
	for i, c := range counts {
		st.Values[i][0] = c
		if n.nValid > 0 {
			st.Values[i][1] = c / float64(n.nValid)
		}
	}
	return st, nil
}

// BinLabels renders "[lo, hi)" labels for consecutive edges.
func BinLabels(edges []float64) []string {
	if len(edges) < 2 {
		return nil
	}
	out := make([]string, len(edges)-1)
	for i := range out {
		out[i] = fmt.Sprintf("[%s, %s)", formatEdge(edges[i]), formatEdge(edges[i+1]))
	}
	return out
}

func formatEdge(e float64) string {
	return strconv.FormatFloat(e, 'g', 6, 64)
}
