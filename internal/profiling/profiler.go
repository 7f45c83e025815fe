package profiling

import (
	"surveydeck/domain/survey"
)

// ColumnProfile describes the numeric content of one column.
type ColumnProfile struct {
	Column   string
	Total    int
	Summary  Summary
	Outliers int
}

// Profiler summarises the numeric columns of a table.
type Profiler struct {
	// OutlierFactor is the IQR multiplier used to count outliers.
	OutlierFactor float64
}

// NewProfiler creates a profiler counting outliers at factor·IQR.
func NewProfiler(factor float64) *Profiler {
	return &Profiler{OutlierFactor: factor}
}

// ProfileColumn profiles one column. ok is false when the column is absent.
func (p *Profiler) ProfileColumn(t *survey.Table, column string) (ColumnProfile, bool) {
	nums, ok := t.Numbers(column)
	if !ok {
		return ColumnProfile{}, false
	}
	vals := survey.ValidNumbers(nums)
	return ColumnProfile{
		Column:   column,
		Total:    len(nums),
		Summary:  Summarize(vals),
		Outliers: DetectOutliers(vals, p.OutlierFactor),
	}, true
}

// ProfileTable profiles every column holding at least one number, in
// table order.
func (p *Profiler) ProfileTable(t *survey.Table) []ColumnProfile {
	var out []ColumnProfile
	for _, col := range t.Columns() {
		cp, _ := p.ProfileColumn(t, col)
		if cp.Summary.Count > 0 {
			out = append(out, cp)
		}
	}
	return out
}
