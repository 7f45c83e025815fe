// Package settings loads the survey definition: how to clean an export,
// which weight maps and breakout orders apply, and which slides to build.
package settings

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"surveydeck/domain/survey"
	"surveydeck/internal/errors"
)

// Survey is the root of a survey definition file.
type Survey struct {
	Title     string                      `yaml:"title" validate:"required"`
	Columns   Columns                     `yaml:"columns"`
	Sources   []string                    `yaml:"sources"`
	Clean     Clean                       `yaml:"clean"`
	Weights   map[string]survey.WeightMap `yaml:"weights"`
	Questions []Question                  `yaml:"questions" validate:"dive"`
	Breakouts map[string][]string         `yaml:"breakouts"`
	Deck      Deck                        `yaml:"deck"`
}

// Columns names the structural columns of the export.
type Columns struct {
	Hospital string `yaml:"hospital"`
	Name     string `yaml:"name"`
	Target   string `yaml:"target"`
	Region   string `yaml:"region"`
}

// Clean drives the cleaning pipeline.
type Clean struct {
	Drop            []string          `yaml:"drop"`
	Rename          map[string]string `yaml:"rename"`
	Percent         []string          `yaml:"percent"`
	Funnel          bool              `yaml:"funnel"`
	RegionSeparator string            `yaml:"region_separator"`
	RegionOverrides map[string]string `yaml:"region_overrides"`
	Outliers        Outliers          `yaml:"outliers"`
	ValueMaps       []ValueMap        `yaml:"value_maps" validate:"dive"`
}

// Outliers configures the IQR filter.
type Outliers struct {
	Columns []string `yaml:"columns"`
	Factor  float64  `yaml:"factor" validate:"gte=0"`
}

// ValueMap rewrites the answers of one categorical column.
type ValueMap struct {
	Column   string            `yaml:"column" validate:"required"`
	Values   map[string]string `yaml:"values" validate:"required"`
	Fallback string            `yaml:"fallback"`
}

// Question declares the answer type of a column and, for single choice,
// the weight map used for weighted averages.
type Question struct {
	Column  string            `yaml:"column" validate:"required"`
	Type    survey.AnswerType `yaml:"type" validate:"required,oneof=single multiple numeric"`
	Weights string            `yaml:"weights"`
	Order   []string          `yaml:"order"`
}

// Deck lists the slides to build.
type Deck struct {
	Title  string  `yaml:"title"`
	Slides []Slide `yaml:"slides" validate:"dive"`
}

// Slide kinds.
const (
	KindStandard     = "standard"
	KindInOut        = "in_out"
	KindFunnel       = "funnel"
	KindDistribution = "distribution"
	KindBins         = "bins"
	KindCompare      = "compare"
)

// Slide is one deck entry. Which fields apply depends on Kind.
type Slide struct {
	Kind     string    `yaml:"kind" validate:"required,oneof=standard in_out funnel distribution bins compare"`
	Title    string    `yaml:"title"`
	Note     string    `yaml:"note"`
	Column   string    `yaml:"column"`
	Columns  []string  `yaml:"columns"`
	Breakout string    `yaml:"breakout"`
	Metric   string    `yaml:"metric"`
	Paired   string    `yaml:"paired"`
	Stages   []string  `yaml:"stages"`
	Weighted string    `yaml:"weighted"`
	Edges    []float64 `yaml:"edges"`
}

// Defaults.
const (
	DefaultRegionSeparator = "‐"
	DefaultOutlierFactor   = 3
	DefaultFallback        = "其他"
)

// DefaultSources are the patient sources prefixed to the funnel columns.
var DefaultSources = []string{"门诊", "病房", "门诊+病房"}

// Load reads and validates a survey definition.
func Load(path string) (*Survey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IOError(fmt.Sprintf("read survey definition %s", path), err)
	}
	return Parse(data)
}

// Parse decodes a survey definition from YAML.
func Parse(data []byte) (*Survey, error) {
	s := &Survey{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("decode survey definition: %w", err))
	}
	s.setDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Survey) setDefaults() {
	if s.Columns.Hospital == "" {
		s.Columns.Hospital = "医院"
	}
	if s.Columns.Name == "" {
		s.Columns.Name = "姓名"
	}
	if s.Columns.Target == "" {
		s.Columns.Target = "目标名称"
	}
	if s.Columns.Region == "" {
		s.Columns.Region = "大区"
	}
	if len(s.Sources) == 0 {
		s.Sources = append([]string(nil), DefaultSources...)
	}
	if s.Clean.RegionSeparator == "" {
		s.Clean.RegionSeparator = DefaultRegionSeparator
	}
	if s.Clean.Outliers.Factor == 0 {
		s.Clean.Outliers.Factor = DefaultOutlierFactor
	}
	for i := range s.Questions {
		if t, err := survey.ParseAnswerType(string(s.Questions[i].Type)); err == nil {
			s.Questions[i].Type = t
		}
	}
	for i := range s.Clean.ValueMaps {
		if s.Clean.ValueMaps[i].Fallback == "" {
			s.Clean.ValueMaps[i].Fallback = DefaultFallback
		}
	}
	if s.Deck.Title == "" {
		s.Deck.Title = s.Title
	}
}

var validate = validator.New()

// Validate checks the struct tags and the cross references between
// questions, weight maps, breakouts and slides.
func (s *Survey) Validate() error {
	if err := validate.Struct(s); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
		} else {
			fields = append(fields, err.Error())
		}
		return errors.ConfigInvalid("invalid survey definition: " + strings.Join(fields, ", "))
	}

	for _, q := range s.Questions {
		if q.Weights == "" {
			continue
		}
		if q.Type != survey.AnswerSingle {
			return errors.ConfigInvalid(fmt.Sprintf("question %q: weights apply to single choice only", q.Column))
		}
		if _, ok := s.Weights[q.Weights]; !ok {
			return errors.ConfigInvalid(fmt.Sprintf("question %q: unknown weight map %q", q.Column, q.Weights))
		}
	}

	for i, sl := range s.Deck.Slides {
		if err := s.validateSlide(sl); err != nil {
			return errors.Wrapf(err, "slide %d", i+1)
		}
	}
	return nil
}

func (s *Survey) validateSlide(sl Slide) error {
	if sl.Breakout != "" {
		if _, ok := s.Breakouts[sl.Breakout]; !ok {
			return errors.ConfigInvalid(fmt.Sprintf("breakout %q has no group order", sl.Breakout))
		}
	}
	switch sl.Kind {
	case KindStandard:
		if sl.Column == "" {
			return errors.ConfigInvalid("standard slide needs a column")
		}
	case KindInOut:
		if sl.Metric == "" {
			return errors.ConfigInvalid("in_out slide needs a metric")
		}
	case KindFunnel:
		if len(sl.Stages) < 2 || sl.Weighted == "" {
			return errors.ConfigInvalid("funnel slide needs at least two stages and a weighted column")
		}
	case KindDistribution, KindCompare:
		if len(sl.Columns) == 0 {
			return errors.ConfigInvalid(sl.Kind + " slide needs columns")
		}
	case KindBins:
		if sl.Column == "" || len(sl.Edges) < 2 {
			return errors.ConfigInvalid("bins slide needs a column and at least two edges")
		}
		for i := 1; i < len(sl.Edges); i++ {
			if !(sl.Edges[i] > sl.Edges[i-1]) {
				return errors.ConfigInvalid(fmt.Sprintf("bin edges must be strictly ascending, got %v", sl.Edges))
			}
		}
	}
	return nil
}

// Question returns the declared question for a column.
func (s *Survey) Question(column string) (Question, bool) {
	for _, q := range s.Questions {
		if q.Column == column {
			return q, true
		}
	}
	return Question{}, false
}

// WeightsFor returns the weight map attached to a column, or nil.
func (s *Survey) WeightsFor(column string) survey.WeightMap {
	q, ok := s.Question(column)
	if !ok || q.Weights == "" {
		return nil
	}
	return s.Weights[q.Weights]
}

// GroupOrder returns the configured group order of a breakout column.
func (s *Survey) GroupOrder(breakout string) []string {
	return s.Breakouts[breakout]
}
