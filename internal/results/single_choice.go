package results

import (
	"surveydeck/domain/survey"
)

// SingleChoice aggregates a categorical column where each respondent picks
// exactly one label.
type SingleChoice struct {
	Base
	weights survey.WeightMap
}

// NewSingleChoice binds a single-choice view. weights may be nil.
func NewSingleChoice(table *survey.Table, column string, weights survey.WeightMap) (*SingleChoice, error) {
	base, err := newBase(table, column, survey.AnswerSingle, nil)
	if err != nil {
		return nil, err
	}
	return &SingleChoice{Base: base, weights: weights}, nil
}

// Counts returns the number of valid respondents.
func (s *SingleChoice) Counts() int { return s.nValid }

// CountsBy returns the valid respondents per breakout group, counting only
// rows with both a target and a breakout value.
func (s *SingleChoice) CountsBy(breakout string) (map[string]int, error) {
	groups, err := s.groups(breakout)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(groups))
	for _, g := range groups {
		out[g.name] = s.validRows(g.rows)
	}
	return out, nil
}

func (s *SingleChoice) tally(rows []int) *tally {
	t := newTally()
	for _, i := range rows {
		if c := s.cells[i]; s.valid(c) {
			t.add(c.String())
		}
	}
	return t
}

// Stats returns the label distribution, sorted by descending frequency.
// With a breakout, each group column is normalised by that group's own valid
// count and only groups with at least one answer are kept; rows follow the
// overall ranking.
func (s *SingleChoice) Stats(opts StatsOptions) (*survey.StatsTable, error) {
	overall := s.tally(s.allRows())
	labels := overall.ranked()

	if opts.Breakout == "" {
		col := ColPercentage
		if opts.Counts {
			col = ColCount
		}
		st := survey.NewStatsTable(labels, []string{col})
		for i, l := range labels {
			v := float64(overall.counts[l])
			if !opts.Counts {
				v /= float64(s.nValid)
			}
			st.Values[i][0] = v
		}
		return reorder(st, opts.Order), nil
	}

	groups, err := s.groups(opts.Breakout)
	if err != nil {
		return nil, err
	}
	var (
		columns []string
		tallies []*tally
	)
	for _, g := range groups {
		t := s.tally(g.rows)
		n := t.total()
		if n == 0 {
			continue
		}
		name := g.name
		if !opts.OmitBase {
			name = survey.BaseLabel(g.name, n)
		}
		columns = append(columns, name)
		tallies = append(tallies, t)
	}

	st := survey.NewStatsTable(labels, columns)
	for j, t := range tallies {
		n := float64(t.total())
		for i, l := range labels {
			v := float64(t.counts[l])
			if !opts.Counts {
				v /= n
			}
			st.Values[i][j] = v
		}
	}
	return reorder(st, opts.Order), nil
}

// Weights returns the attached weight map.
func (s *SingleChoice) Weights() survey.WeightMap { return s.weights }

// WeightedAverage maps every answer through the weight map and averages the
// mapped values. Answers without a weight are ignored. The result is
// unavailable when there are no weights or nothing maps.
func (s *SingleChoice) WeightedAverage() survey.Average {
	return s.weightedMean(s.allRows())
}

// WeightedAverageBy computes one weighted average per breakout group, for
// the groups that have at least one answer. annotate appends the group base
// to the labels.
func (s *SingleChoice) WeightedAverageBy(breakout string, annotate bool) (survey.GroupAverages, error) {
	groups, err := s.groups(breakout)
	if err != nil {
		return survey.GroupAverages{}, err
	}
	var out survey.GroupAverages
	for _, g := range groups {
		n := s.validRows(g.rows)
		if n == 0 {
			continue
		}
		label := g.name
		if annotate {
			label = survey.BaseLabel(g.name, n)
		}
		out.Groups = append(out.Groups, g.name)
		out.Labels = append(out.Labels, label)
		out.Values = append(out.Values, s.weightedMean(g.rows))
	}
	return out, nil
}

func (s *SingleChoice) weightedMean(rows []int) survey.Average {
	if len(s.weights) == 0 {
		return survey.Unavailable()
	}
	sum, n := 0.0, 0
	for _, i := range rows {
		c := s.cells[i]
		if !s.valid(c) {
			continue
		}
		if w, ok := s.weights.Lookup(c.String()); ok {
			sum += w
			n++
		}
	}
	if n == 0 {
		return survey.Unavailable()
	}
	return survey.Average{Value: sum / float64(n), Available: true}
}
