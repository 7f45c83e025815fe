package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"surveydeck/internal/errors"
	"surveydeck/internal/logging"
)

// IndexSheet lists the slides of a written deck.
const IndexSheet = "目录"

const (
	maxSheetName = 31
	chartRows    = 18 // rows reserved below a chart anchor
	chartWidth   = 640
	chartHeight  = 340
)

// WriteWorkbook writes the deck as a workbook: an index sheet, then one
// sheet per slide holding each panel's data block next to a native chart.
func WriteWorkbook(deck *Deck, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", IndexSheet); err != nil {
		return errors.IOError("name index sheet", err)
	}
	st, err := newStyles(f)
	if err != nil {
		return err
	}

	names := sheetNames(deck)
	if err := writeIndex(f, deck, names, st); err != nil {
		return err
	}
	for i, slide := range deck.Slides {
		if _, err := f.NewSheet(names[i]); err != nil {
			return errors.IOError("create sheet", err)
		}
		if err := writeSlide(f, names[i], slide, st); err != nil {
			return errors.Wrapf(err, "sheet %q", names[i])
		}
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:      deck.Title,
		Identifier: deck.ID,
		Creator:    "surveydeck",
		Created:    deck.Created.UTC().Format(time.RFC3339),
	}); err != nil {
		return errors.IOError("set document properties", err)
	}
	if err := f.SaveAs(path); err != nil {
		return errors.IOError("save workbook", err)
	}
	logging.Component("report").Info().Str("path", path).Int("sheets", len(deck.Slides)+1).Msg("Workbook written")
	return nil
}

type styles struct {
	title   int
	header  int
	percent int
	number  int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	if s.title, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}); err != nil {
		return s, errors.IOError("create style", err)
	}
	if s.header, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return s, errors.IOError("create style", err)
	}
	if s.percent, err = f.NewStyle(&excelize.Style{NumFmt: 10}); err != nil {
		return s, errors.IOError("create style", err)
	}
	if s.number, err = f.NewStyle(&excelize.Style{NumFmt: 4}); err != nil {
		return s, errors.IOError("create style", err)
	}
	return s, nil
}

func writeIndex(f *excelize.File, deck *Deck, names []string, st styles) error {
	rows := [][]interface{}{
		{deck.Title},
		{"ID", deck.ID},
		{"生成时间", deck.Created.Format("2006-01-02 15:04:05")},
		{},
		{"#", "页", "标题"},
	}
	for i, s := range deck.Slides {
		rows = append(rows, []interface{}{i + 1, names[i], s.Title})
	}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(IndexSheet, cell, &row); err != nil {
			return errors.IOError("write index", err)
		}
	}
	if err := f.SetCellStyle(IndexSheet, "A1", "A1", st.title); err != nil {
		return errors.IOError("style index", err)
	}
	if err := f.SetCellStyle(IndexSheet, "A5", "C5", st.header); err != nil {
		return errors.IOError("style index", err)
	}
	for i, name := range names {
		cell, _ := excelize.CoordinatesToCellName(2, i+6)
		if err := f.SetCellHyperLink(IndexSheet, cell, fmt.Sprintf("'%s'!A1", name), "Location"); err != nil {
			return errors.IOError("link index", err)
		}
	}
	if err := f.SetColWidth(IndexSheet, "C", "C", 60); err != nil {
		return errors.IOError("size index", err)
	}
	return nil
}

// writeSlide lays out: title, subtitle, note, then one block per panel.
func writeSlide(f *excelize.File, sheet string, slide Slide, st styles) error {
	header := []string{slide.Title, slide.Subtitle, slide.Note}
	for i, text := range header {
		if text == "" {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetCellValue(sheet, cell, text); err != nil {
			return errors.IOError("write header", err)
		}
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", st.title); err != nil {
		return errors.IOError("style header", err)
	}
	if err := f.SetColWidth(sheet, "A", "A", 28); err != nil {
		return errors.IOError("size column", err)
	}

	row := 5
	for _, p := range slide.Panels {
		next, err := writePanel(f, sheet, row, p, st)
		if err != nil {
			return errors.Wrapf(err, "panel %q", p.Title)
		}
		row = next
	}
	return nil
}

// writePanel writes a panel at top and returns the first free row after it.
//
//	top:    title
//	top+1:  "" | series...
//	top+2…: label | values...
func writePanel(f *excelize.File, sheet string, top int, p Panel, st styles) (int, error) {
	if err := f.SetCellValue(sheet, cellName(1, top), p.Title); err != nil {
		return 0, errors.IOError("write panel title", err)
	}
	if err := f.SetCellStyle(sheet, cellName(1, top), cellName(1, top), st.header); err != nil {
		return 0, errors.IOError("style panel title", err)
	}
	if p.Caption != "" {
		if err := f.SetCellValue(sheet, cellName(2, top), p.Caption); err != nil {
			return 0, errors.IOError("write caption", err)
		}
	}

	cols := make([]int, len(p.Series))
	for j, s := range p.Series {
		cols[j] = -1
		for k, c := range p.Table.Columns {
			if c == s {
				cols[j] = k
			}
		}
		if err := f.SetCellValue(sheet, cellName(j+2, top+1), flatten(s)); err != nil {
			return 0, errors.IOError("write series header", err)
		}
	}

	first := top + 2
	index := p.Table.Index
	if p.Chart == ChartBar || p.Chart == ChartFunnel {
		// horizontal bar charts draw the first category at the bottom
		index = reversed(index)
	}
	for i, label := range index {
		r := first + i
		if err := f.SetCellValue(sheet, cellName(1, r), flatten(label)); err != nil {
			return 0, errors.IOError("write label", err)
		}
		src := rowOf(p.Table.Index, label)
		for j, c := range cols {
			if c < 0 {
				continue
			}
			v := p.Table.Values[src][c]
			if math.IsNaN(v) {
				continue
			}
			if err := f.SetCellValue(sheet, cellName(j+2, r), v); err != nil {
				return 0, errors.IOError("write value", err)
			}
		}
	}
	last := first + len(index) - 1

	if len(index) > 0 && len(p.Series) > 0 {
		style := st.number
		if p.Percent {
			style = st.percent
		}
		if err := f.SetCellStyle(sheet, cellName(2, first), cellName(len(p.Series)+1, last), style); err != nil {
			return 0, errors.IOError("style values", err)
		}
		if err := f.AddChart(sheet, cellName(len(p.Series)+3, top), panelChart(sheet, p, first, last)); err != nil {
			return 0, errors.IOError("add chart", err)
		}
	}

	next := last + 3
	if floor := top + chartRows; next < floor {
		next = floor
	}
	return next, nil
}

func panelChart(sheet string, p Panel, first, last int) *excelize.Chart {
	typ := excelize.Col
	if p.Chart == ChartBar || p.Chart == ChartFunnel {
		typ = excelize.Bar
	}
	ref := func(col, row int) string {
		return fmt.Sprintf("'%s'!%s", sheet, absCell(col, row))
	}
	var series []excelize.ChartSeries
	for j := range p.Series {
		series = append(series, excelize.ChartSeries{
			Name:       ref(j+2, first-1),
			Categories: ref(1, first) + ":" + absCell(1, last),
			Values:     ref(j+2, first) + ":" + absCell(j+2, last),
		})
	}
	numFmt := "0"
	if p.Percent {
		numFmt = "0.0%"
	}
	legend := "none"
	if len(p.Series) > 1 {
		legend = "bottom"
	}
	return &excelize.Chart{
		Type:      typ,
		Series:    series,
		Title:     []excelize.RichTextRun{{Text: flatten(p.Title)}},
		Legend:    excelize.ChartLegend{Position: legend},
		Dimension: excelize.ChartDimension{Width: chartWidth, Height: chartHeight},
		PlotArea: excelize.ChartPlotArea{
			ShowVal: true,
			NumFmt:  excelize.ChartNumFmt{CustomNumFmt: numFmt},
		},
	}
}

// sheetNames derives unique, valid sheet names from slide titles.
func sheetNames(deck *Deck) []string {
	used := map[string]bool{strings.ToLower(IndexSheet): true}
	names := make([]string, len(deck.Slides))
	for i, s := range deck.Slides {
		prefix := fmt.Sprintf("%02d ", i+1)
		base := []rune(prefix + sanitizeSheetName(s.Title))
		if len(base) > maxSheetName {
			base = base[:maxSheetName]
		}
		name := strings.TrimSpace(string(base))
		for n := 2; used[strings.ToLower(name)]; n++ {
			suffix := fmt.Sprintf("~%d", n)
			r := []rune(name)
			if len(r)+len(suffix) > maxSheetName {
				r = r[:maxSheetName-len(suffix)]
			}
			name = string(r) + suffix
		}
		used[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

func sanitizeSheetName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']', '\'':
			return '_'
		case '\n', '\r', '\t':
			return ' '
		}
		return r
	}, s)
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func absCell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row, true)
	return name
}

func flatten(label string) string {
	return strings.ReplaceAll(label, "\n", " ")
}

func reversed(xs []string) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[len(xs)-1-i] = x
	}
	return out
}

func rowOf(index []string, label string) int {
	for i, l := range index {
		if l == label {
			return i
		}
	}
	return -1
}
