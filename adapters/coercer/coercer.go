package coercer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"surveydeck/domain/survey"
)

// Coercer converts raw spreadsheet cells into typed survey values with
// fixed, deterministic rules.
type Coercer struct {
	config Config
}

// Config holds the coercion thresholds and rules.
type Config struct {
	NumericThreshold  float64  // share of valid cells that must parse as numbers
	MultipleThreshold float64  // share of valid cells that must carry the delimiter
	Delimiter         string   // multiple-choice label delimiter
	MissingTokens     []string // cell texts treated as no answer
}

// DefaultConfig returns the rules used for questionnaire exports.
func DefaultConfig() Config {
	return Config{
		NumericThreshold:  0.9,
		MultipleThreshold: 0.05,
		Delimiter:         "┋",
		MissingTokens:     []string{"(空)", "(跳过)", "nan", "null", "n/a"},
	}
}

// New creates a coercer with the given config.
func New(config Config) *Coercer {
	return &Coercer{config: config}
}

var (
	thousandsPattern = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)
	spacePattern     = regexp.MustCompile(`\s+`)
)

// Coerce converts one raw cell. Numbers become numeric values, blank cells
// and missing tokens become missing, everything else is kept as text with
// its inner whitespace collapsed.
func (c *Coercer) Coerce(raw string) survey.Value {
	s := strings.TrimSpace(raw)
	if s == "" || c.isMissingToken(s) {
		return survey.Missing()
	}
	if n, ok := c.parseNumber(s); ok {
		return survey.Number(n)
	}
	return survey.Text(c.normalize(s))
}

// CoerceRow converts a raw row.
func (c *Coercer) CoerceRow(raw []string) []survey.Value {
	out := make([]survey.Value, len(raw))
	for i, cell := range raw {
		out[i] = c.Coerce(cell)
	}
	return out
}

func (c *Coercer) isMissingToken(s string) bool {
	lower := strings.ToLower(s)
	for _, tok := range c.config.MissingTokens {
		if lower == strings.ToLower(tok) {
			return true
		}
	}
	return false
}

// parseNumber accepts plain decimals, scientific notation, thousands
// separators ("1,234.5") and accounting negatives ("(12)").
func (c *Coercer) parseNumber(s string) (float64, bool) {
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = strings.TrimSpace(s[1 : len(s)-1])
		negative = true
	}
	if thousandsPattern.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	}
	// ParseFloat also accepts "inf" and "nan", which are not answers.
	lower := strings.ToLower(strings.TrimLeft(s, "+-"))
	if strings.HasPrefix(lower, "inf") || lower == "nan" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

// normalize collapses whitespace runs and strips control characters.
func (c *Coercer) normalize(s string) string {
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}

// Analysis describes the cells of one column.
type Analysis struct {
	TotalCount      int
	ValidCount      int
	NumericCount    int
	DelimitedCount  int
	NumericRatio    float64
	DelimitedRatio  float64
	RecommendedType survey.AnswerType
}

// Analyze inspects coerced cells and recommends an answer type. Columns
// that are mostly numbers are numeric; columns where a noticeable share of
// answers carry the delimiter are multiple choice; the rest single choice.
func (c *Coercer) Analyze(cells []survey.Value) Analysis {
	a := Analysis{TotalCount: len(cells)}
	for _, v := range cells {
		if v.IsMissing() {
			continue
		}
		a.ValidCount++
		switch {
		case v.Type == survey.ValueTypeNumeric:
			a.NumericCount++
		case c.config.Delimiter != "" && strings.Contains(v.Text, c.config.Delimiter):
			a.DelimitedCount++
		}
	}
	if a.ValidCount > 0 {
		a.NumericRatio = float64(a.NumericCount) / float64(a.ValidCount)
		a.DelimitedRatio = float64(a.DelimitedCount) / float64(a.ValidCount)
	}
	a.RecommendedType = c.recommend(a)
	return a
}

func (c *Coercer) recommend(a Analysis) survey.AnswerType {
	if a.ValidCount == 0 {
		return survey.AnswerSingle
	}
	if a.NumericRatio >= c.config.NumericThreshold {
		return survey.AnswerNumeric
	}
	if a.DelimitedCount > 0 && a.DelimitedRatio >= c.config.MultipleThreshold {
		return survey.AnswerMultiple
	}
	return survey.AnswerSingle
}
