package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"surveydeck/domain/survey"
	"surveydeck/internal/errors"
	"surveydeck/internal/results"
	"surveydeck/internal/settings"
)

const deckDefinition = `
title: 测试调研
weights:
  band: {"＜20%": 0.1, "20-40%": 0.3, "40-60%": 0.5, "60-80%": 0.7, "＞80%": 0.9}
questions:
  - column: 贫血比例
    type: single
    weights: band
  - column: 顾虑
    type: multiple
breakouts:
  大区: [北区, 南区]
deck:
  slides:
    - {kind: standard, column: 贫血比例, breakout: 大区}
    - {kind: standard, column: 顾虑, breakout: 大区}
    - {kind: in_out, metric: 患者数}
    - {kind: in_out, metric: 患者数, paired: CKD患者数, breakout: 大区}
    - {kind: funnel, stages: [患者数, CKD患者数], weighted: 贫血比例, metric: CKD合并贫血患者数}
    - {kind: distribution, title: 患者数分布, columns: [门诊患者数, 病房患者数]}
    - {kind: bins, column: HIF总体使用比例, edges: [0, 0.5, 1]}
    - {kind: compare, columns: [贫血比例]}
`

func cleanedTable(t *testing.T) *survey.Table {
	t.Helper()
	tbl := survey.NewTable(
		"大区", "贫血比例", "顾虑",
		"门诊患者数", "病房患者数", "门诊+病房患者数",
		"门诊CKD患者数", "病房CKD患者数", "门诊+病房CKD患者数",
		"HIF总体使用比例",
	)
	n, txt, miss := survey.Number, survey.Text, survey.Missing()
	rows := [][]survey.Value{
		{txt("北区"), txt("＜20%"), txt("价格┋安全性"), n(100), n(50), n(150), n(50), n(20), n(70), n(0.1)},
		{txt("北区"), txt("20-40%"), txt("价格"), n(200), n(30), n(230), n(80), n(10), n(90), n(0.3)},
		{txt("南区"), txt("20-40%"), txt("疗效"), n(300), n(20), n(320), n(90), n(5), n(95), n(0.5)},
		{txt("南区"), txt("＞80%"), miss, n(400), n(0), n(400), n(100), n(0), n(100), n(0.9)},
		{txt("西区"), miss, txt("价格"), miss, n(10), miss, miss, n(2), miss, miss},
	}
	for _, r := range rows {
		require.NoError(t, tbl.AppendRow(r...))
	}
	return tbl
}

func buildDeck(t *testing.T) *Deck {
	t.Helper()
	def, err := settings.Parse([]byte(deckDefinition))
	require.NoError(t, err)
	deck, err := NewBuilder(cleanedTable(t), def, 4).Build(context.Background())
	require.NoError(t, err)
	return deck
}

func panelTitles(s Slide) []string {
	var out []string
	for _, p := range s.Panels {
		out = append(out, p.Title)
	}
	return out
}

func TestBuild_KeepsDefinitionOrder(t *testing.T) {
	deck := buildDeck(t)

	require.Len(t, deck.Slides, 8)
	_, err := uuid.Parse(deck.ID)
	assert.NoError(t, err)
	assert.Equal(t, "测试调研", deck.Title)
	assert.Equal(t, "贫血比例", deck.Slides[0].Title)
	assert.Equal(t, "顾虑", deck.Slides[1].Title)
	assert.Equal(t, "门诊/病房患者数 - 全国", deck.Slides[2].Title)
	assert.Equal(t, "门诊/病房患者数 & CKD患者数 - 分大区", deck.Slides[3].Title)
	assert.Equal(t, "患者数分布", deck.Slides[5].Title)
}

func TestStandard_SingleChoiceBreakout(t *testing.T) {
	s := buildDeck(t).Slides[0]

	assert.Equal(t, "(单选, n=4)", s.Subtitle)
	// 西区 has no answer and gets no panel
	assert.Equal(t, []string{National, "北区\n(n=2)", "南区\n(n=2)"}, panelTitles(s))
	assert.Equal(t, "加权平均：40.0%", s.Panels[0].Caption)
	assert.Equal(t, "加权平均：20.0%", s.Panels[1].Caption)
	assert.Equal(t, "加权平均：60.0%", s.Panels[2].Caption)

	north := s.Panels[1]
	assert.Equal(t, []string{"北区"}, north.Series)
	assert.InDelta(t, 1.0, north.Table.Sum("北区"), 1e-9)
	assert.True(t, north.Percent)
}

func TestStandard_MultipleChoiceGroupOrder(t *testing.T) {
	s := buildDeck(t).Slides[1]

	// configured groups first, then the rest as found
	assert.Equal(t, []string{National, "北区", "南区", "西区"}, panelTitles(s))
	assert.Equal(t, []string{"顾虑=北区"}, s.Panels[1].Series)
	assert.Empty(t, s.Panels[0].Caption)
}

func TestInOut_Histograms(t *testing.T) {
	s := buildDeck(t).Slides[2]

	require.Len(t, s.Panels, 3)
	assert.Equal(t, "(数值填空, n=4)", s.Subtitle)
	for _, p := range s.Panels {
		assert.Equal(t, ChartHistogram, p.Chart)
		assert.Equal(t, []string{results.ColCount}, p.Series)
	}
	assert.Equal(t, "门诊患者数", s.Panels[0].Title)
	assert.InDelta(t, 4.0, s.Panels[0].Table.Sum(results.ColCount), 1e-9, "every valid value lands in a bin")
	assert.InDelta(t, 5.0, s.Panels[1].Table.Sum(results.ColCount), 1e-9)
}

func TestInOut_BreakoutMeans(t *testing.T) {
	s := buildDeck(t).Slides[3]

	require.Len(t, s.Panels, 6)
	p := s.Panels[0]
	assert.Equal(t, ChartColumn, p.Chart)
	assert.Equal(t, []string{"北区", "南区", "西区"}, p.Table.Index)
	mean, ok := p.Table.Get("北区", results.ColMean)
	require.True(t, ok)
	assert.InDelta(t, 150.0, mean, 1e-9)
	_, ok = p.Table.Get("西区", results.ColMean)
	assert.False(t, ok)
	assert.Equal(t, "门诊CKD患者数", s.Panels[3].Title)
}

func TestFunnel(t *testing.T) {
	s := buildDeck(t).Slides[4]

	require.Len(t, s.Panels, 3)
	outpatient := s.Panels[0]
	assert.Equal(t, "门诊", outpatient.Title)
	assert.Equal(t, []string{"患者数", "CKD患者数", "CKD合并贫血患者数"}, outpatient.Table.Index)

	want := map[string]float64{"患者数": 250, "CKD患者数": 80, "CKD合并贫血患者数": 32}
	for row, w := range want {
		v, ok := outpatient.Table.Get(row, results.ColMean)
		require.True(t, ok, row)
		assert.InDelta(t, w, v, 1e-9, row)
	}
	ward, _ := s.Panels[1].Table.Get("CKD合并贫血患者数", results.ColMean)
	assert.InDelta(t, 7.4*0.4, ward, 1e-9)
}

func TestFunnel_UnavailableAverage(t *testing.T) {
	def, err := settings.Parse([]byte(`
title: t
deck:
  slides:
    - {kind: funnel, stages: [患者数, CKD患者数], weighted: 贫血比例}
`))
	require.NoError(t, err)

	_, err = NewBuilder(cleanedTable(t), def, 2).Build(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeEmptyResult, errors.GetCode(err))
}

func TestBuild_MissingColumn(t *testing.T) {
	def, err := settings.Parse([]byte("title: t\ndeck:\n  slides:\n    - {kind: bins, column: 不存在, edges: [0, 1]}\n"))
	require.NoError(t, err)

	_, err = NewBuilder(cleanedTable(t), def, 1).Build(context.Background())
	assert.Equal(t, errors.CodeMissingColumn, errors.GetCode(err))
}

func TestBuild_CancelledContext(t *testing.T) {
	def, err := settings.Parse([]byte(deckDefinition))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewBuilder(cleanedTable(t), def, 1).Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDistributionBinsCompare(t *testing.T) {
	deck := buildDeck(t)

	dist := deck.Slides[5].Panels[0]
	assert.False(t, dist.Percent)
	v, _ := dist.Table.Get("病房患者数", results.ColMean)
	assert.InDelta(t, 22.0, v, 1e-9)

	bins := deck.Slides[6].Panels[0]
	assert.Equal(t, []string{"[0, 0.5)", "[0.5, 1)"}, bins.Table.Index)
	p, _ := bins.Table.Get("[0.5, 1)", results.ColPercentage)
	assert.InDelta(t, 0.5, p, 1e-9)
	assert.Equal(t, "均值 45.0% / 中位数 40.0%", bins.Caption)

	cmp := deck.Slides[7]
	require.Len(t, cmp.Panels, 1)
	assert.Equal(t, "加权平均：40.0%", cmp.Panels[0].Caption)
}

func TestWriteWorkbook(t *testing.T) {
	deck := buildDeck(t)
	path := filepath.Join(t.TempDir(), "deck.xlsx")
	require.NoError(t, WriteWorkbook(deck, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	require.Len(t, sheets, len(deck.Slides)+1)
	assert.Equal(t, IndexSheet, sheets[0])
	assert.Equal(t, "01 贫血比例", sheets[1])

	props, err := f.GetDocProps()
	require.NoError(t, err)
	assert.Equal(t, deck.ID, props.Identifier)

	title, err := f.GetCellValue(sheets[1], "A1")
	require.NoError(t, err)
	assert.Equal(t, "贫血比例", title)
	panel, err := f.GetCellValue(sheets[1], "A5")
	require.NoError(t, err)
	assert.Equal(t, National, panel)
}

func TestSheetNames(t *testing.T) {
	deck := &Deck{Slides: []Slide{
		{Title: "a/b"},
		{Title: strings.Repeat("长", 40)},
		{Title: strings.Repeat("长", 40)},
	}}
	names := sheetNames(deck)

	assert.Equal(t, "01 a_b", names[0])
	assert.Len(t, []rune(names[1]), 31)
	assert.True(t, strings.HasPrefix(names[2], "03 长"))
	assert.NotEqual(t, names[1], names[2])
}

func TestRenderMarkdownAndHTML(t *testing.T) {
	deck := buildDeck(t)
	deck.Created = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	md := string(RenderMarkdown(deck))
	assert.Contains(t, md, "# 测试调研")
	assert.Contains(t, md, "## 1. 贫血比例")
	assert.Contains(t, md, "### 北区 (n=2)")
	assert.Contains(t, md, "| ＜20% | 50.0% |")
	assert.Contains(t, md, "加权平均：20.0%")

	path := filepath.Join(t.TempDir(), "deck.html")
	require.NoError(t, WriteHTML(deck, path))
	page, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<html")
	assert.Contains(t, string(page), "<table>")
	assert.Contains(t, string(page), "<title>测试调研</title>")
}
