package survey

import (
	"fmt"
	"strings"
)

// AnswerType tags how a question column is answered.
type AnswerType string

const (
	AnswerSingle   AnswerType = "single"
	AnswerMultiple AnswerType = "multiple"
	AnswerNumeric  AnswerType = "numeric"
)

// Label is the display label used in chart titles.
func (a AnswerType) Label() string {
	switch a {
	case AnswerSingle:
		return "单选"
	case AnswerMultiple:
		return "多选"
	case AnswerNumeric:
		return "数值填空"
	}
	return string(a)
}

// ParseAnswerType accepts the english tags and the display labels.
func ParseAnswerType(s string) (AnswerType, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "single", "单选":
		return AnswerSingle, nil
	case "multiple", "多选":
		return AnswerMultiple, nil
	case "numeric", "数值填空":
		return AnswerNumeric, nil
	}
	return "", fmt.Errorf("unknown answer type %q", s)
}

// WeightMap maps a categorical band label to a representative number,
// e.g. "20-40%" -> 0.3.
type WeightMap map[string]float64

// Lookup returns the weight for label.
func (w WeightMap) Lookup(label string) (float64, bool) {
	if w == nil {
		return 0, false
	}
	v, ok := w[label]
	return v, ok
}

// Average is a mean that may be unavailable, e.g. a weighted average over a
// question whose answers have no weights.
type Average struct {
	Value     float64
	Available bool
}

// Unavailable is the "cannot be computed" average.
func Unavailable() Average { return Average{} }

// Format renders the average as a percentage or "n/a".
func (a Average) Format() string {
	if !a.Available {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", a.Value*100)
}

// GroupAverages holds one average per breakout group. Labels carry the
// optional "(n=…)" annotation; Groups are the raw group values.
type GroupAverages struct {
	Groups []string
	Labels []string
	Values []Average
}

// Available reports whether at least one group average could be computed.
func (g GroupAverages) Available() bool {
	for _, v := range g.Values {
		if v.Available {
			return true
		}
	}
	return false
}

// Get returns the average of a raw group value.
func (g GroupAverages) Get(group string) Average {
	for i, name := range g.Groups {
		if name == group {
			return g.Values[i]
		}
	}
	return Unavailable()
}

// BaseLabel appends the respondent base to a group label.
func BaseLabel(group string, n int) string {
	return fmt.Sprintf("%s\n(n=%d)", group, n)
}
