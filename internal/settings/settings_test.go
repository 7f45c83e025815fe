package settings

import (
	"path/filepath"
	"runtime"
	"testing"

	"surveydeck/domain/survey"
	"surveydeck/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
title: 测试调研
weights:
  band: {"＜20%": 0.1, "＞80%": 0.9}
questions:
  - column: 贫血比例
    type: single
    weights: band
  - column: 顾虑
    type: 多选
breakouts:
  大区: [北区, 南区]
deck:
  slides:
    - kind: standard
      column: 贫血比例
      breakout: 大区
`

func TestParse_Defaults(t *testing.T) {
	s, err := Parse([]byte(`
title: 测试调研
clean:
  value_maps:
    - column: q
      values: {a: b}
`))
	require.NoError(t, err)

	assert.Equal(t, "医院", s.Columns.Hospital)
	assert.Equal(t, "大区", s.Columns.Region)
	assert.Equal(t, DefaultSources, s.Sources)
	assert.Equal(t, DefaultRegionSeparator, s.Clean.RegionSeparator)
	assert.Equal(t, float64(DefaultOutlierFactor), s.Clean.Outliers.Factor)
	assert.Equal(t, DefaultFallback, s.Clean.ValueMaps[0].Fallback)
	assert.Equal(t, "测试调研", s.Deck.Title)
}

func TestParse_Lookups(t *testing.T) {
	s, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, survey.WeightMap{"＜20%": 0.1, "＞80%": 0.9}, s.WeightsFor("贫血比例"))
	assert.Nil(t, s.WeightsFor("其他题"))
	assert.Equal(t, []string{"北区", "南区"}, s.GroupOrder("大区"))

	q, ok := s.Question("贫血比例")
	require.True(t, ok)
	assert.Equal(t, survey.AnswerSingle, q.Type)

	q, ok = s.Question("顾虑")
	require.True(t, ok)
	assert.Equal(t, survey.AnswerMultiple, q.Type, "display labels are accepted as type tags")
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing title", `questions: []`},
		{"unknown weights", "title: t\nquestions:\n  - {column: q, type: single, weights: nope}"},
		{"weights on numeric", "title: t\nweights: {w: {a: 1}}\nquestions:\n  - {column: q, type: numeric, weights: w}"},
		{"unknown kind", "title: t\ndeck: {slides: [{kind: pie}]}"},
		{"unknown breakout", "title: t\ndeck: {slides: [{kind: standard, column: q, breakout: 省份}]}"},
		{"bins edges", "title: t\ndeck: {slides: [{kind: bins, column: q, edges: [0, 0]}]}"},
		{"funnel stages", "title: t\ndeck: {slides: [{kind: funnel, stages: [患者数]}]}"},
		{"bad yaml", "title: [t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestLoad_ShippedDefinition(t *testing.T) {
	_, file, _, _ := runtime.Caller(0)
	path := filepath.Join(filepath.Dir(file), "..", "..", "configs", "survey.yaml")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Len(t, s.Deck.Slides, 10)
	assert.Equal(t, []string{"东1区", "东2区", "中区", "北区", "南区", "西区"}, s.GroupOrder("大区"))
	assert.InDelta(t, 0.3, s.WeightsFor("ND-CKD3-5期合并肾性贫血比例")["20-40%"], 1e-12)
	assert.Equal(t, "其他", s.Clean.ValueMaps[0].Fallback)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Equal(t, errors.CodeIOError, errors.GetCode(err))
}
