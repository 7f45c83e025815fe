// Package results turns one survey column into presentation-ready aggregates:
// counts, percentages, weighted averages, descriptive statistics and
// per-group breakouts.
//
// Every result is a read-only view over a survey.Table. Views never mutate
// the table, so any number of them may share one table, including across
// goroutines.
package results

import (
	"fmt"
	"sort"

	"surveydeck/domain/survey"
	"surveydeck/internal/errors"
)

// Result is the contract shared by all answer types.
type Result interface {
	Column() string
	AnswerType() survey.AnswerType
	TotalCount() int
	ValidCount() int
	Stats(opts StatsOptions) (*survey.StatsTable, error)
}

// StatsOptions controls an aggregation query. The zero value asks for
// percentages over the whole column with base annotations on group labels.
type StatsOptions struct {
	// Breakout names a grouping column; empty means no breakout.
	Breakout string
	// Counts returns raw counts instead of percentages (single choice only).
	Counts bool
	// Order reindexes the rows; labels absent from the data come back missing.
	Order []string
	// OmitBase drops the "(n=…)" annotation from group labels.
	OmitBase bool
}

// Column names used in returned tables.
const (
	ColCount      = "count"
	ColPercentage = "percentage"
	ColMean       = "mean"
	ColValue      = "value"
)

// Base binds a table, a column and an answer type, and holds the
// respondent counts computed once at construction.
type Base struct {
	table  *survey.Table
	column string
	answer survey.AnswerType
	cells  []survey.Value
	valid  func(survey.Value) bool
	total  int
	nValid int
}

func newBase(table *survey.Table, column string, answer survey.AnswerType, valid func(survey.Value) bool) (Base, error) {
	if table == nil {
		return Base{}, errors.InvalidInput("nil table")
	}
	cells, ok := table.Column(column)
	if !ok {
		return Base{}, errors.MissingColumn(column)
	}
	if valid == nil {
		valid = func(v survey.Value) bool { return !v.IsMissing() }
	}
	b := Base{
		table:  table,
		column: column,
		answer: answer,
		cells:  cells,
		valid:  valid,
		total:  len(cells),
	}
	for _, c := range cells {
		if valid(c) {
			b.nValid++
		}
	}
	return b, nil
}

// Column returns the bound column name.
func (b *Base) Column() string { return b.column }

// AnswerType returns the declared answer type.
func (b *Base) AnswerType() survey.AnswerType { return b.answer }

// TotalCount is the number of rows regardless of missingness.
func (b *Base) TotalCount() int { return b.total }

// ValidCount is the number of rows with an answer.
func (b *Base) ValidCount() int { return b.nValid }

// Title renders the chart title suffix, e.g. "(单选, n=90)".
func (b *Base) Title() string {
	return fmt.Sprintf("(%s, n=%d)", b.answer.Label(), b.nValid)
}

// group is one breakout partition: the raw group value and its row indices.
type group struct {
	name string
	rows []int
}

// groups partitions the rows by the breakout column. Rows with a missing
// breakout value are left out; groups come back sorted by name.
func (b *Base) groups(breakout string) ([]group, error) {
	keys, ok := b.table.Column(breakout)
	if !ok {
		return nil, errors.MissingColumn(breakout)
	}
	index := make(map[string]int)
	var out []group
	for i, k := range keys {
		if k.IsMissing() {
			continue
		}
		name := k.String()
		j, seen := index[name]
		if !seen {
			j = len(out)
			index[name] = j
			out = append(out, group{name: name})
		}
		out[j].rows = append(out[j].rows, i)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

// validRows counts the rows in idx holding an answer.
func (b *Base) validRows(idx []int) int {
	n := 0
	for _, i := range idx {
		if b.valid(b.cells[i]) {
			n++
		}
	}
	return n
}

func (b *Base) allRows() []int {
	idx := make([]int, b.total)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// tally counts labels in first-seen order.
type tally struct {
	labels []string
	counts map[string]int
}

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

func (t *tally) add(label string) {
	if _, ok := t.counts[label]; !ok {
		t.labels = append(t.labels, label)
	}
	t.counts[label]++
}

func (t *tally) total() int {
	n := 0
	for _, c := range t.counts {
		n += c
	}
	return n
}

// ranked returns the labels by descending count; ties keep first-seen order.
func (t *tally) ranked() []string {
	out := append([]string(nil), t.labels...)
	sort.SliceStable(out, func(i, j int) bool { return t.counts[out[i]] > t.counts[out[j]] })
	return out
}

// Option configures New.
type Option func(*options)

type options struct {
	weights   survey.WeightMap
	delimiter string
}

// WithWeights attaches a weight map to single-choice results.
func WithWeights(w survey.WeightMap) Option {
	return func(o *options) { o.weights = w }
}

// WithDelimiter overrides the multiple-choice label delimiter.
func WithDelimiter(d string) Option {
	return func(o *options) { o.delimiter = d }
}

// New builds the result variant for the given answer type.
func New(table *survey.Table, column string, answer survey.AnswerType, opts ...Option) (Result, error) {
	o := options{delimiter: DefaultDelimiter}
	for _, opt := range opts {
		opt(&o)
	}
	switch answer {
	case survey.AnswerSingle:
		return NewSingleChoice(table, column, o.weights)
	case survey.AnswerMultiple:
		return NewMultipleChoice(table, column, o.delimiter)
	case survey.AnswerNumeric:
		return NewNumeric(table, column)
	}
	return nil, errors.InvalidInput(fmt.Sprintf("unsupported answer type %q", answer))
}

func reorder(st *survey.StatsTable, order []string) *survey.StatsTable {
	if len(order) == 0 {
		return st
	}
	return st.Reindex(order)
}
