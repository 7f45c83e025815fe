// Package cleaning turns a raw questionnaire export into the analysis table:
// it drops and renames columns, converts percentages, derives the patient
// funnel, maps hospitals to regions, removes outliers and simplifies answers.
package cleaning

import (
	"fmt"
	"math"
	"strings"

	"surveydeck/domain/survey"
	"surveydeck/internal/errors"
	"surveydeck/internal/logging"
	"surveydeck/internal/profiling"
	"surveydeck/internal/settings"
)

// Lookups are the mappings read from the settings workbook.
type Lookups struct {
	Questions map[string]string // original column name -> short name
	Regions   map[string]string // target name -> region
}

// Outlier is one row removed by the IQR filter.
type Outlier struct {
	Column   string
	Hospital string
	Name     string
	Value    survey.Value
}

// Report summarises what a cleaning run changed.
type Report struct {
	RowsIn         int
	RowsOut        int
	Dropped        []string
	Renamed        int
	Derived        []string
	UnmappedRegion int
	Outliers       []Outlier
	Fallbacks      map[string]int
}

// Cleaner applies a survey definition to raw tables.
type Cleaner struct {
	def     *settings.Survey
	lookups Lookups
}

// New creates a cleaner.
func New(def *settings.Survey, lookups Lookups) *Cleaner {
	return &Cleaner{def: def, lookups: lookups}
}

// Clean runs every step in order on a copy of raw.
func (c *Cleaner) Clean(raw *survey.Table) (*survey.Table, *Report, error) {
	if raw == nil {
		return nil, nil, errors.InvalidInput("nil table")
	}
	logger := logging.Component("cleaning")
	t := raw.Clone()
	rep := &Report{RowsIn: raw.Len(), Fallbacks: make(map[string]int)}

	steps := []struct {
		name string
		fn   func(*survey.Table, *Report) (*survey.Table, error)
	}{
		{"drop", c.drop},
		{"rename", c.rename},
		{"percent", c.percent},
		{"funnel", c.funnel},
		{"region", c.region},
		{"outliers", c.outliers},
		{"value_maps", c.valueMaps},
	}
	for _, s := range steps {
		next, err := s.fn(t, rep)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "cleaning step %s", s.name)
		}
		t = next
		logger.Debug().Str("step", s.name).Int("rows", t.Len()).Int("columns", len(t.Columns())).Msg("Step done")
	}

	rep.RowsOut = t.Len()
	logger.Info().
		Int("rows_in", rep.RowsIn).
		Int("rows_out", rep.RowsOut).
		Int("outliers", len(rep.Outliers)).
		Msg("Cleaning finished")
	return t, rep, nil
}

func (c *Cleaner) drop(t *survey.Table, rep *Report) (*survey.Table, error) {
	for _, col := range c.def.Clean.Drop {
		if !t.HasColumn(col) {
			return nil, errors.MissingColumn(col)
		}
	}
	t.Drop(c.def.Clean.Drop...)
	rep.Dropped = append(rep.Dropped, c.def.Clean.Drop...)
	return t, nil
}

// rename applies the workbook mapping, then the definition's own renames.
func (c *Cleaner) rename(t *survey.Table, rep *Report) (*survey.Table, error) {
	mapping := make(map[string]string, len(c.lookups.Questions)+len(c.def.Clean.Rename))
	for k, v := range c.lookups.Questions {
		mapping[k] = v
	}
	for k, v := range c.def.Clean.Rename {
		mapping[k] = v
	}
	for _, col := range t.Columns() {
		if to, ok := mapping[col]; ok && to != col {
			rep.Renamed++
		}
	}
	t.Rename(mapping)
	return t, nil
}

func (c *Cleaner) percent(t *survey.Table, _ *Report) (*survey.Table, error) {
	for _, col := range c.def.Clean.Percent {
		nums, ok := t.Numbers(col)
		if !ok {
			return nil, errors.MissingColumn(col)
		}
		for i := range nums {
			nums[i] /= 100
		}
		if err := t.SetNumbers(col, nums); err != nil {
			return nil, errors.InternalError(err.Error())
		}
	}
	return t, nil
}

func (c *Cleaner) region(t *survey.Table, rep *Report) (*survey.Table, error) {
	if len(c.lookups.Regions) == 0 && len(c.def.Clean.RegionOverrides) == 0 {
		return t, nil
	}
	cols := c.def.Columns
	hospitals, ok := t.Column(cols.Hospital)
	if !ok {
		return nil, errors.MissingColumn(cols.Hospital)
	}
	existing, hasRegion := t.Column(cols.Region)

	targets := make([]survey.Value, len(hospitals))
	regions := make([]survey.Value, len(hospitals))
	for i, h := range hospitals {
		targets[i] = survey.Missing()
		regions[i] = survey.Missing()
		if h.IsMissing() {
			rep.UnmappedRegion++
			continue
		}
		target := TargetName(h.String(), c.def.Clean.RegionSeparator)
		targets[i] = survey.Text(target)

		switch {
		case c.def.Clean.RegionOverrides[h.String()] != "":
			regions[i] = survey.Text(c.def.Clean.RegionOverrides[h.String()])
		case c.lookups.Regions[target] != "":
			regions[i] = survey.Text(c.lookups.Regions[target])
		case hasRegion && !existing[i].IsMissing():
			regions[i] = existing[i]
		default:
			rep.UnmappedRegion++
		}
	}
	if err := t.SetColumn(cols.Target, targets); err != nil {
		return nil, errors.InternalError(err.Error())
	}
	if err := t.SetColumn(cols.Region, regions); err != nil {
		return nil, errors.InternalError(err.Error())
	}
	if rep.UnmappedRegion > 0 {
		logging.Component("cleaning").Warn().Int("rows", rep.UnmappedRegion).Msg("Rows without a region")
	}
	return t, nil
}

// TargetName is the last segment of a hospital name such as
// "天津‐天津市‐某医院", trimmed.
func TargetName(hospital, sep string) string {
	parts := strings.Split(hospital, sep)
	return strings.TrimSpace(parts[len(parts)-1])
}

// outliers removes, per configured column, the rows whose value falls
// outside [Q1-k·IQR, Q3+k·IQR]. Rows with a missing value are removed too.
// A column without any value is left untouched.
func (c *Cleaner) outliers(t *survey.Table, rep *Report) (*survey.Table, error) {
	logger := logging.Component("cleaning")
	k := c.def.Clean.Outliers.Factor
	for _, col := range c.def.Clean.Outliers.Columns {
		nums, ok := t.Numbers(col)
		if !ok {
			return nil, errors.MissingColumn(col)
		}
		lower, upper, ok := profiling.IQRBounds(survey.ValidNumbers(nums), k)
		if !ok {
			logger.Warn().Str("column", col).Msg("No values, outlier filter skipped")
			continue
		}

		keep := func(i int) bool {
			v := nums[i]
			return !math.IsNaN(v) && v >= lower && v <= upper
		}
		cells, _ := t.Column(col)
		hospitals, _ := t.Column(c.def.Columns.Hospital)
		names, _ := t.Column(c.def.Columns.Name)
		for i := range nums {
			if keep(i) {
				continue
			}
			o := Outlier{Column: col, Value: cells[i]}
			if hospitals != nil {
				o.Hospital = hospitals[i].String()
			}
			if names != nil {
				o.Name = names[i].String()
			}
			rep.Outliers = append(rep.Outliers, o)
			logger.Info().
				Str("column", col).
				Str("hospital", o.Hospital).
				Str("name", o.Name).
				Str("value", o.Value.String()).
				Msg("Outlier removed")
		}
		logger.Debug().Str("column", col).Float64("lower", lower).Float64("upper", upper).Msg("Outlier bounds")
		t = t.Filter(keep)
	}
	return t, nil
}

func (c *Cleaner) valueMaps(t *survey.Table, rep *Report) (*survey.Table, error) {
	for _, vm := range c.def.Clean.ValueMaps {
		cells, ok := t.Column(vm.Column)
		if !ok {
			return nil, errors.MissingColumn(vm.Column)
		}
		out := make([]survey.Value, len(cells))
		for i, v := range cells {
			if mapped, ok := vm.Values[v.String()]; ok && !v.IsMissing() {
				out[i] = survey.Text(mapped)
				continue
			}
			out[i] = survey.Text(vm.Fallback)
			rep.Fallbacks[vm.Column]++
		}
		if err := t.SetColumn(vm.Column, out); err != nil {
			return nil, errors.InternalError(err.Error())
		}
	}
	return t, nil
}

func missingColumns(t *survey.Table, cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if len(missing) == 1 {
		return errors.MissingColumn(missing[0])
	}
	return errors.New(errors.CodeMissingColumn, fmt.Sprintf("columns not found: %s", strings.Join(missing, ", ")))
}
