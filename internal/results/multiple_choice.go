package results

import (
	"fmt"
	"strings"

	"surveydeck/domain/survey"
)

// DefaultDelimiter separates the labels of a multiple-choice answer in the
// survey export.
const DefaultDelimiter = "┋"

// MultipleChoice aggregates a column whose answers are delimiter-joined
// label lists. Each selected label is one vote.
type MultipleChoice struct {
	Base
	delimiter string
}

// NewMultipleChoice binds a multiple-choice view. An empty delimiter selects
// DefaultDelimiter.
func NewMultipleChoice(table *survey.Table, column, delimiter string) (*MultipleChoice, error) {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	base, err := newBase(table, column, survey.AnswerMultiple, nil)
	if err != nil {
		return nil, err
	}
	return &MultipleChoice{Base: base, delimiter: delimiter}, nil
}

// Labels splits one answer into its selected labels, skipping blanks.
func (m *MultipleChoice) Labels(v survey.Value) []string {
	if !m.valid(v) {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v.String(), m.delimiter) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (m *MultipleChoice) tally(rows []int) *tally {
	t := newTally()
	for _, i := range rows {
		for _, l := range m.Labels(m.cells[i]) {
			t.add(l)
		}
	}
	return t
}

// Votes is the total number of selected labels across all respondents.
func (m *MultipleChoice) Votes() int {
	return m.tally(m.allRows()).total()
}

// Stats returns vote counts and count/validCount percentages per label,
// sorted by descending votes. Percentages may sum above 1. With a breakout,
// one "<column>=<group>" column per group is appended, normalised by that
// group's own vote total.
func (m *MultipleChoice) Stats(opts StatsOptions) (*survey.StatsTable, error) {
	overall := m.tally(m.allRows())
	labels := overall.ranked()

	columns := []string{ColCount, ColPercentage}
	var (
		groupCols []string
		tallies   []*tally
	)
	if opts.Breakout != "" {
		groups, err := m.groups(opts.Breakout)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			t := m.tally(g.rows)
			if t.total() == 0 {
				continue
			}
			groupCols = append(groupCols, fmt.Sprintf("%s=%s", m.column, g.name))
			tallies = append(tallies, t)
		}
		columns = append(columns, groupCols...)
	}

	st := survey.NewStatsTable(labels, columns)
	for i, l := range labels {
		c := float64(overall.counts[l])
		st.Values[i][0] = c
		st.Values[i][1] = c / float64(m.nValid)
		for j, t := range tallies {
			st.Values[i][2+j] = float64(t.counts[l]) / float64(t.total())
		}
	}
	return reorder(st, opts.Order), nil
}
