// Package report assembles survey results into a deck of slides and writes
// it out as a workbook with native charts, or as Markdown/HTML.
package report

import (
	"time"

	"surveydeck/domain/survey"
)

// ChartKind is how a panel is drawn.
type ChartKind string

const (
	ChartBar       ChartKind = "bar"       // horizontal bars, one per row
	ChartColumn    ChartKind = "column"    // vertical bars, one per row
	ChartHistogram ChartKind = "histogram" // vertical bars over bins
	ChartFunnel    ChartKind = "funnel"    // horizontal bars, top stage first
)

// Panel is one chart with the table it plots.
type Panel struct {
	Title   string
	Chart   ChartKind
	Table   *survey.StatsTable
	Series  []string // table columns plotted, in order
	Percent bool
	Caption string
}

// Slide groups the panels shown together.
type Slide struct {
	Title    string
	Subtitle string
	Note     string
	Panels   []Panel
}

// Deck is an ordered list of slides.
type Deck struct {
	ID      string
	Title   string
	Created time.Time
	Slides  []Slide
}
