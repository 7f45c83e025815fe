package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"surveydeck/adapters/coercer"
	"surveydeck/adapters/excel"
	"surveydeck/domain/survey"
	"surveydeck/internal/cleaning"
	"surveydeck/internal/config"
	"surveydeck/internal/errors"
	"surveydeck/internal/logging"
	"surveydeck/internal/profiling"
	"surveydeck/internal/report"
	"surveydeck/internal/results"
	"surveydeck/internal/settings"
)

func newCleanCmd(opts *globalOptions) *cobra.Command {
	var in inputFlags
	var out string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean a survey export and write the analysis table",
		Long: `Run the cleaning pipeline of the survey definition over an export:
drop and rename columns, convert percentages, derive the patient funnel,
map hospitals to regions, remove outliers and simplify answers.

Example: surveydeck clean --data export.xlsx --settings survey.yaml --workbook 设置.xlsx --out cleaned.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(opts, &in, nil)
			if err != nil {
				return err
			}
			return runClean(cmd.OutOrStdout(), cfg, out)
		},
	}

	in.bind(cmd)
	cmd.Flags().StringVar(&out, "out", "", "Cleaned workbook path (default: <output dir>/cleaned.xlsx)")
	return cmd
}

func runClean(w io.Writer, cfg *config.Config, out string) error {
	table, _, rep, err := loadCleaned(cfg)
	if err != nil {
		return err
	}
	if out == "" {
		out = filepath.Join(cfg.Output.Dir, "cleaned.xlsx")
	}
	if err := ensureDir(out); err != nil {
		return err
	}
	if err := excel.WriteTable(out, excel.DefaultSheet, table); err != nil {
		return err
	}

	fmt.Fprintf(w, "🧹 Cleaned %s\n", cfg.Data.File)
	fmt.Fprintf(w, "Rows: %d → %d\n", rep.RowsIn, rep.RowsOut)
	fmt.Fprintf(w, "Columns renamed: %d, dropped: %d, derived: %d\n", rep.Renamed, len(rep.Dropped), len(rep.Derived))
	if rep.UnmappedRegion > 0 {
		fmt.Fprintf(w, "Rows without a region: %d\n", rep.UnmappedRegion)
	}
	if len(rep.Outliers) > 0 {
		fmt.Fprintf(w, "Outliers removed: %d\n", len(rep.Outliers))
		for _, o := range rep.Outliers {
			fmt.Fprintf(w, "  %s: %s %s = %s\n", o.Column, o.Hospital, o.Name, o.Value.String())
		}
	}
	if len(rep.Fallbacks) > 0 {
		cols := make([]string, 0, len(rep.Fallbacks))
		for col := range rep.Fallbacks {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		for _, col := range cols {
			fmt.Fprintf(w, "Fallback answers in %s: %d\n", col, rep.Fallbacks[col])
		}
	}
	fmt.Fprintf(w, "Written: %s\n", out)
	return nil
}

func newStatsCmd(opts *globalOptions) *cobra.Command {
	var in inputFlags
	var (
		column   string
		typeName string
		breakout string
		bins     string
		counts   bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate one question of the cleaned survey",
		Long: `Print the aggregate table of one column of the cleaned survey.

The answer type comes from --type, else from the survey definition, else it
is inferred from the column values. Single-choice questions with a weight map
also print their weighted average.

Example: surveydeck stats --data export.xlsx --column 贫血比例 --breakout 大区`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			edges, err := parseBins(bins)
			if err != nil {
				return err
			}
			cfg, err := setup(opts, &in, nil)
			if err != nil {
				return err
			}
			return runStats(cmd.OutOrStdout(), cfg, statsQuery{
				column:   column,
				typeName: typeName,
				breakout: breakout,
				edges:    edges,
				counts:   counts,
			})
		},
	}

	in.bind(cmd)
	cmd.Flags().StringVar(&column, "column", "", "Column to aggregate")
	cmd.Flags().StringVar(&typeName, "type", "", "Answer type: single|multiple|numeric")
	cmd.Flags().StringVar(&breakout, "breakout", "", "Grouping column")
	cmd.Flags().StringVar(&bins, "bins", "", "Comma-separated bin edges for numeric columns, e.g. 0,10,20")
	cmd.Flags().BoolVar(&counts, "counts", false, "Raw counts instead of percentages (single choice)")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

type statsQuery struct {
	column   string
	typeName string
	breakout string
	edges    []float64
	counts   bool
}

func runStats(w io.Writer, cfg *config.Config, q statsQuery) error {
	table, def, _, err := loadCleaned(cfg)
	if err != nil {
		return err
	}
	answer, err := answerType(table, def, q)
	if err != nil {
		return err
	}

	var order []string
	if declared, ok := def.Question(q.column); ok {
		order = declared.Order
	}
	r, err := results.New(table, q.column, answer, results.WithWeights(def.WeightsFor(q.column)))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "📊 %s (%s, n=%d of %d)\n\n", q.column, answer.Label(), r.ValidCount(), r.TotalCount())

	if len(q.edges) > 0 {
		n, ok := r.(*results.Numeric)
		if !ok {
			return errors.InvalidInput("--bins needs a numeric column")
		}
		st, err := n.StatsByBins(q.edges)
		if err != nil {
			return err
		}
		fmt.Fprint(w, st.Format(false))
		return nil
	}

	st, err := r.Stats(results.StatsOptions{Breakout: q.breakout, Counts: q.counts, Order: order})
	if err != nil {
		return err
	}
	fmt.Fprint(w, st.Format(answer == survey.AnswerSingle && !q.counts))

	sc, ok := r.(*results.SingleChoice)
	if !ok || len(sc.Weights()) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\n加权平均: %s\n", sc.WeightedAverage().Format())
	if q.breakout != "" {
		averages, err := sc.WeightedAverageBy(q.breakout, true)
		if err != nil {
			return err
		}
		for i, label := range averages.Labels {
			fmt.Fprintf(w, "  %s: %s\n", strings.ReplaceAll(label, "\n", " "), averages.Values[i].Format())
		}
	}
	return nil
}

// answerType resolves the answer type of the queried column: flag first,
// then the definition, then inference from the values.
func answerType(table *survey.Table, def *settings.Survey, q statsQuery) (survey.AnswerType, error) {
	if q.typeName != "" {
		t, err := survey.ParseAnswerType(q.typeName)
		if err != nil {
			return "", errors.InvalidInput(err.Error())
		}
		return t, nil
	}
	if declared, ok := def.Question(q.column); ok {
		return declared.Type, nil
	}
	cells, ok := table.Column(q.column)
	if !ok {
		return "", errors.MissingColumn(q.column)
	}
	analysis := coercer.New(coercer.DefaultConfig()).Analyze(cells)
	logging.Component("cli").Debug().
		Str("column", q.column).
		Float64("numeric_ratio", analysis.NumericRatio).
		Float64("delimited_ratio", analysis.DelimitedRatio).
		Str("type", string(analysis.RecommendedType)).
		Msg("Answer type inferred")
	return analysis.RecommendedType, nil
}

func newProfileCmd(opts *globalOptions) *cobra.Command {
	var in inputFlags
	var factor float64

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Summarise every numeric column of the cleaned survey",
		Long: `Print count, mean, median, range and the number of IQR outliers for every
column of the cleaned survey that holds numbers. Useful to pick the
outlier columns of the survey definition.

Example: surveydeck profile --data export.xlsx --factor 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(opts, &in, nil)
			if err != nil {
				return err
			}
			table, _, _, err := loadCleaned(cfg)
			if err != nil {
				return err
			}
			profiles := profiling.NewProfiler(factor).ProfileTable(table)

			index := make([]string, len(profiles))
			for i, p := range profiles {
				index[i] = p.Column
			}
			st := survey.NewStatsTable(index, []string{"n", "total", "mean", "median", "min", "max", "outliers"})
			for i, p := range profiles {
				s := p.Summary
				copy(st.Values[i], []float64{
					float64(s.Count), float64(p.Total), s.Mean, s.Median, s.Min, s.Max, float64(p.Outliers),
				})
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "🔬 %d numeric columns of %d\n\n", len(profiles), len(table.Columns()))
			fmt.Fprint(w, st.Format(false))
			return nil
		},
	}

	in.bind(cmd)
	cmd.Flags().Float64Var(&factor, "factor", settings.DefaultOutlierFactor, "IQR multiplier for outliers")
	return cmd
}

func newDeckCmd(opts *globalOptions) *cobra.Command {
	var in inputFlags
	var (
		out      string
		htmlPath string
		mdPath   string
		workers  int
	)

	cmd := &cobra.Command{
		Use:   "deck",
		Short: "Build the chart deck of the survey definition",
		Long: `Clean the export, build every slide of the survey definition and write
the deck as a workbook with one sheet and native charts per slide.
Optionally also write the deck as Markdown and as a standalone HTML page.

Example: surveydeck deck --data export.xlsx --settings survey.yaml --out deck.xlsx --html deck.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(opts, &in, func(c *config.Config) {
				if workers > 0 {
					c.Workers = workers
				}
			})
			if err != nil {
				return err
			}

			table, def, _, err := loadCleaned(cfg)
			if err != nil {
				return err
			}
			start := time.Now()
			deck, err := report.NewBuilder(table, def, cfg.Workers).Build(cmd.Context())
			if err != nil {
				return err
			}

			if out == "" {
				out = filepath.Join(cfg.Output.Dir, "deck.xlsx")
			}
			if err := ensureDir(out); err != nil {
				return err
			}
			if err := report.WriteWorkbook(deck, out); err != nil {
				return err
			}
			if htmlPath != "" {
				if err := ensureDir(htmlPath); err != nil {
					return err
				}
				if err := report.WriteHTML(deck, htmlPath); err != nil {
					return err
				}
			}
			if mdPath != "" {
				if err := ensureDir(mdPath); err != nil {
					return err
				}
				if err := os.WriteFile(mdPath, report.RenderMarkdown(deck), 0644); err != nil {
					return errors.IOError("write Markdown", err)
				}
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "📑 Deck %s: %d slides in %v\n", deck.ID, len(deck.Slides), time.Since(start).Round(time.Millisecond))
			for _, path := range []string{out, htmlPath, mdPath} {
				if path != "" {
					fmt.Fprintf(w, "Written: %s\n", path)
				}
			}
			return nil
		},
	}

	in.bind(cmd)
	cmd.Flags().StringVar(&out, "out", "", "Deck workbook path (default: <output dir>/deck.xlsx)")
	cmd.Flags().StringVar(&htmlPath, "html", "", "Also write the deck as an HTML page")
	cmd.Flags().StringVar(&mdPath, "markdown", "", "Also write the deck as Markdown")
	cmd.Flags().IntVar(&workers, "workers", 0, "Slides built concurrently (default from config)")
	return cmd
}

// loadCleaned reads the definition, the export and the settings workbook,
// and runs the cleaning pipeline.
func loadCleaned(cfg *config.Config) (*survey.Table, *settings.Survey, *cleaning.Report, error) {
	logger := logging.Component("cli")

	def, err := settings.Load(cfg.Data.Settings)
	if err != nil {
		return nil, nil, nil, err
	}
	readerCfg := excel.DefaultConfig()
	readerCfg.Sheet = cfg.Data.Sheet
	raw, err := excel.NewDataReader(cfg.Data.File, readerCfg).ReadTable()
	if err != nil {
		return nil, nil, nil, err
	}
	lookups, err := readLookups(cfg.Data.Workbook)
	if err != nil {
		return nil, nil, nil, err
	}

	table, rep, err := cleaning.New(def, lookups).Clean(raw)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Info().
		Str("survey", def.Title).
		Int("rows", table.Len()).
		Int("columns", len(table.Columns())).
		Msg("Survey loaded")
	return table, def, rep, nil
}

func readLookups(workbook string) (cleaning.Lookups, error) {
	if workbook == "" {
		return cleaning.Lookups{}, nil
	}
	r := excel.NewDataReader(workbook, excel.DefaultConfig())
	questions, err := r.QuestionMap()
	if err != nil {
		return cleaning.Lookups{}, errors.Wrapf(err, "settings workbook sheet %s", excel.QuestionMapSheet)
	}
	regions, err := r.RegionMap()
	if err != nil {
		return cleaning.Lookups{}, errors.Wrapf(err, "settings workbook sheet %s", excel.RegionSheet)
	}
	return cleaning.Lookups{Questions: questions, Regions: regions}, nil
}

// parseBins parses "0,10,20" into edges. An empty string means no bins.
func parseBins(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	edges := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("bad bin edge %q", p))
		}
		edges = append(edges, v)
	}
	return edges, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.IOError("create output directory", err)
	}
	return nil
}
