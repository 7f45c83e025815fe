package report

import (
	"fmt"
	"strings"

	"surveydeck/domain/survey"
	"surveydeck/internal/errors"
	"surveydeck/internal/profiling"
	"surveydeck/internal/results"
	"surveydeck/internal/settings"
)

// National is the panel title of the whole-sample view.
const National = "全国"

// result binds the declared answer type of a column; undeclared columns are
// treated as single choice.
func (b *Builder) result(column string) (results.Result, settings.Question, error) {
	q, ok := b.def.Question(column)
	if !ok {
		q = settings.Question{Column: column, Type: survey.AnswerSingle}
	}
	r, err := results.New(b.table, column, q.Type, results.WithWeights(b.def.WeightsFor(column)))
	if err != nil {
		return nil, q, err
	}
	return r, q, nil
}

func (b *Builder) standard(spec settings.Slide) (Slide, error) {
	r, q, err := b.result(spec.Column)
	if err != nil {
		return Slide{}, err
	}
	slide := Slide{
		Title:    orDefault(spec.Title, spec.Column),
		Subtitle: subtitle(r),
		Note:     spec.Note,
	}

	national, err := r.Stats(results.StatsOptions{Order: q.Order})
	if err != nil {
		return Slide{}, err
	}
	series, percent := valueSeries(r)
	p := Panel{Title: National, Chart: ChartBar, Table: national, Series: []string{series}, Percent: percent}
	if sc, ok := r.(*results.SingleChoice); ok {
		p.Caption = weightedCaption(sc.WeightedAverage())
	}
	slide.Panels = append(slide.Panels, p)

	if spec.Breakout == "" {
		return slide, nil
	}
	panels, err := b.breakoutPanels(r, q, spec.Breakout)
	if err != nil {
		return Slide{}, err
	}
	slide.Panels = append(slide.Panels, panels...)
	return slide, nil
}

func (b *Builder) breakoutPanels(r results.Result, q settings.Question, breakout string) ([]Panel, error) {
	var panels []Panel
	switch v := r.(type) {
	case *results.SingleChoice:
		st, err := v.Stats(results.StatsOptions{Breakout: breakout, OmitBase: true, Order: q.Order})
		if err != nil {
			return nil, err
		}
		counts, err := v.CountsBy(breakout)
		if err != nil {
			return nil, err
		}
		averages, err := v.WeightedAverageBy(breakout, false)
		if err != nil {
			return nil, err
		}
		for _, g := range b.groups(breakout, st.Columns) {
			panels = append(panels, Panel{
				Title:   survey.BaseLabel(g, counts[g]),
				Chart:   ChartBar,
				Table:   st.Select(g),
				Series:  []string{g},
				Percent: true,
				Caption: weightedCaption(averages.Get(g)),
			})
		}

	case *results.MultipleChoice:
		st, err := v.Stats(results.StatsOptions{Breakout: breakout, Order: q.Order})
		if err != nil {
			return nil, err
		}
		prefix := v.Column() + "="
		var present []string
		for _, c := range st.Columns {
			if strings.HasPrefix(c, prefix) {
				present = append(present, strings.TrimPrefix(c, prefix))
			}
		}
		for _, g := range b.groups(breakout, present) {
			panels = append(panels, Panel{
				Title:   g,
				Chart:   ChartBar,
				Table:   st.Select(prefix + g),
				Series:  []string{prefix + g},
				Percent: true,
			})
		}

	case *results.Numeric:
		p, err := b.meansByGroup(v, breakout, "分"+breakout)
		if err != nil {
			return nil, err
		}
		panels = append(panels, p)
	}
	return panels, nil
}

func (b *Builder) meansByGroup(n *results.Numeric, breakout, title string) (Panel, error) {
	st, err := n.Stats(results.StatsOptions{Breakout: breakout, OmitBase: true})
	if err != nil {
		return Panel{}, err
	}
	st = st.Reindex(b.groups(breakout, st.Index))
	return Panel{
		Title:   title,
		Chart:   ChartColumn,
		Table:   st,
		Series:  []string{results.ColMean},
		Percent: isShare(n.Column()),
	}, nil
}

// inOut shows one metric per patient source: histograms nationally, group
// means with a breakout. A paired metric adds a second row.
func (b *Builder) inOut(spec settings.Slide) (Slide, error) {
	metrics := []string{spec.Metric}
	if spec.Paired != "" {
		metrics = append(metrics, spec.Paired)
	}
	scope := National
	if spec.Breakout != "" {
		scope = "分" + spec.Breakout
	}
	title := spec.Title
	if title == "" {
		title = fmt.Sprintf("%s%s - %s", strings.Join(b.baseSources(), "/"), strings.Join(metrics, " & "), scope)
	}
	slide := Slide{Title: title, Note: spec.Note}

	for row, metric := range metrics {
		for _, source := range b.def.Sources {
			n, err := results.NewNumeric(b.table, source+metric)
			if err != nil {
				return Slide{}, err
			}
			if row == 0 && slide.Subtitle == "" && source == b.def.Sources[len(b.def.Sources)-1] {
				slide.Subtitle = subtitle(n)
			}
			var p Panel
			if spec.Breakout == "" {
				p, err = histogram(n)
			} else {
				p, err = b.meansByGroup(n, spec.Breakout, n.Column())
			}
			if err != nil {
				return Slide{}, err
			}
			slide.Panels = append(slide.Panels, p)
		}
	}
	return slide, nil
}

// baseSources are the sources that are not a combination of others.
func (b *Builder) baseSources() []string {
	var out []string
	for _, s := range b.def.Sources {
		if !strings.Contains(s, "+") {
			out = append(out, s)
		}
	}
	return out
}

func histogram(n *results.Numeric) (Panel, error) {
	p := Panel{Title: n.Column(), Chart: ChartHistogram, Series: []string{results.ColCount}}
	vals := n.Values()
	if len(vals) == 0 {
		p.Table = survey.NewStatsTable(nil, []string{results.ColCount, results.ColPercentage})
		p.Caption = "n=0"
		return p, nil
	}
	edges := profiling.BinEdges(vals, profiling.SturgesBins(len(vals)))
	st, err := n.StatsByBins(edges)
	if err != nil {
		return Panel{}, err
	}
	p.Table = st
	p.Caption = summaryCaption(n.Summary(), isShare(n.Column()))
	return p, nil
}

// funnel shows mean patient counts down the stages per source; the last
// bar is the last stage scaled by a weighted prevalence.
func (b *Builder) funnel(spec settings.Slide) (Slide, error) {
	sc, err := results.NewSingleChoice(b.table, spec.Weighted, b.def.WeightsFor(spec.Weighted))
	if err != nil {
		return Slide{}, err
	}
	avg := sc.WeightedAverage()
	if !avg.Available {
		return Slide{}, errors.EmptyResult(fmt.Sprintf("no weighted average for %q", spec.Weighted))
	}

	last := spec.Stages[len(spec.Stages)-1]
	final := orDefault(spec.Metric, last+"(加权)")
	index := append(append([]string(nil), spec.Stages...), final)

	slide := Slide{
		Title:    orDefault(spec.Title, "每月相关病人数推算"),
		Subtitle: subtitle(sc),
		Note:     spec.Note,
	}
	for _, source := range b.def.Sources {
		st := survey.NewStatsTable(index, []string{results.ColMean})
		for _, stage := range spec.Stages {
			n, err := results.NewNumeric(b.table, source+stage)
			if err != nil {
				return Slide{}, err
			}
			st.Set(stage, results.ColMean, n.Mean())
		}
		if m, ok := st.Get(last, results.ColMean); ok {
			st.Set(final, results.ColMean, m*avg.Value)
		}
		slide.Panels = append(slide.Panels, Panel{
			Title:   source,
			Chart:   ChartFunnel,
			Table:   st,
			Series:  []string{results.ColMean},
			Caption: weightedCaption(avg),
		})
	}
	return slide, nil
}

// distribution compares the means of several numeric columns in one panel.
func (b *Builder) distribution(spec settings.Slide) (Slide, error) {
	st := survey.NewStatsTable(spec.Columns, []string{results.ColMean})
	slide := Slide{Title: orDefault(spec.Title, spec.Columns[0]), Note: spec.Note}
	percent := true
	for _, col := range spec.Columns {
		n, err := results.NewNumeric(b.table, col)
		if err != nil {
			return Slide{}, err
		}
		if slide.Subtitle == "" {
			slide.Subtitle = subtitle(n)
		}
		percent = percent && isShare(col)
		st.Set(col, results.ColMean, n.Mean())
	}
	slide.Panels = []Panel{{
		Title:   slide.Title,
		Chart:   ChartBar,
		Table:   st,
		Series:  []string{results.ColMean},
		Percent: percent,
	}}
	return slide, nil
}

func (b *Builder) bins(spec settings.Slide) (Slide, error) {
	n, err := results.NewNumeric(b.table, spec.Column)
	if err != nil {
		return Slide{}, err
	}
	st, err := n.StatsByBins(spec.Edges)
	if err != nil {
		return Slide{}, err
	}
	title := orDefault(spec.Title, spec.Column)
	return Slide{
		Title:    title,
		Subtitle: subtitle(n),
		Note:     spec.Note,
		Panels: []Panel{{
			Title:   spec.Column,
			Chart:   ChartColumn,
			Table:   st,
			Series:  []string{results.ColPercentage},
			Percent: true,
			Caption: summaryCaption(n.Summary(), isShare(spec.Column)),
		}},
	}, nil
}

// compare puts several questions side by side, one panel each.
func (b *Builder) compare(spec settings.Slide) (Slide, error) {
	slide := Slide{Title: orDefault(spec.Title, strings.Join(spec.Columns, " / ")), Note: spec.Note}
	for _, col := range spec.Columns {
		r, q, err := b.result(col)
		if err != nil {
			return Slide{}, err
		}
		if slide.Subtitle == "" {
			slide.Subtitle = subtitle(r)
		}
		st, err := r.Stats(results.StatsOptions{Order: q.Order})
		if err != nil {
			return Slide{}, err
		}
		series, percent := valueSeries(r)
		p := Panel{Title: col, Chart: ChartBar, Table: st, Series: []string{series}, Percent: percent}
		if sc, ok := r.(*results.SingleChoice); ok {
			p.Caption = weightedCaption(sc.WeightedAverage())
		}
		slide.Panels = append(slide.Panels, p)
	}
	return slide, nil
}

// groups orders the present group values: configured order first, then
// any other present value in the order given.
func (b *Builder) groups(breakout string, present []string) []string {
	seen := make(map[string]bool, len(present))
	for _, p := range present {
		seen[p] = true
	}
	var out []string
	for _, g := range b.def.GroupOrder(breakout) {
		if seen[g] {
			out = append(out, g)
			delete(seen, g)
		}
	}
	for _, p := range present {
		if seen[p] {
			out = append(out, p)
		}
	}
	return out
}

func subtitle(r results.Result) string {
	return fmt.Sprintf("(%s, n=%d)", r.AnswerType().Label(), r.ValidCount())
}

func valueSeries(r results.Result) (string, bool) {
	if r.AnswerType() == survey.AnswerNumeric {
		return results.ColValue, isShare(r.Column())
	}
	return results.ColPercentage, true
}

func weightedCaption(avg survey.Average) string {
	if !avg.Available {
		return ""
	}
	return "加权平均：" + avg.Format()
}

func summaryCaption(s profiling.Summary, percent bool) string {
	return fmt.Sprintf("均值 %s / 中位数 %s", survey.FormatValue(s.Mean, percent), survey.FormatValue(s.Median, percent))
}

// isShare reports whether a column holds fractions rather than counts.
func isShare(column string) bool {
	return strings.Contains(column, "占比") || strings.Contains(column, "比例")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
