package report

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"surveydeck/domain/survey"
	"surveydeck/internal/errors"
	"surveydeck/internal/logging"
)

// RenderMarkdown renders the deck as Markdown: one section per slide and
// one table per panel.
func RenderMarkdown(deck *Deck) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", deck.Title)
	fmt.Fprintf(&b, "Deck `%s`, generated %s.\n\n", deck.ID, deck.Created.Format("2006-01-02 15:04"))

	for i, s := range deck.Slides {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, s.Title)
		if s.Subtitle != "" {
			fmt.Fprintf(&b, "*%s*\n\n", s.Subtitle)
		}
		for _, p := range s.Panels {
			writePanelMarkdown(&b, p)
		}
		if s.Note != "" {
			fmt.Fprintf(&b, "> %s\n\n", s.Note)
		}
	}
	return b.Bytes()
}

func writePanelMarkdown(b *bytes.Buffer, p Panel) {
	fmt.Fprintf(b, "### %s\n\n", flatten(p.Title))

	b.WriteString("|")
	align := "|---|"
	for _, s := range p.Series {
		fmt.Fprintf(b, " | %s", cellText(s))
		align += "---:|"
	}
	b.WriteString(" |\n")
	b.WriteString(align + "\n")

	for i, label := range p.Table.Index {
		fmt.Fprintf(b, "| %s", cellText(label))
		for _, s := range p.Series {
			text := "-"
			if j := colOf(p.Table.Columns, s); j >= 0 {
				text = survey.FormatValue(p.Table.Values[i][j], p.Percent)
			}
			fmt.Fprintf(b, " | %s", text)
		}
		b.WriteString(" |\n")
	}
	b.WriteString("\n")
	if p.Caption != "" {
		fmt.Fprintf(b, "%s\n\n", p.Caption)
	}
}

// WriteHTML renders the deck to a standalone HTML page.
func WriteHTML(deck *Deck, path string) error {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: deck.Title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	page := markdown.ToHTML(RenderMarkdown(deck), p, renderer)
	if err := os.WriteFile(path, page, 0644); err != nil {
		return errors.IOError("write HTML", err)
	}
	logging.Component("report").Info().Str("path", path).Int("bytes", len(page)).Msg("HTML written")
	return nil
}

func cellText(s string) string {
	return strings.ReplaceAll(flatten(s), "|", `\|`)
}

func colOf(columns []string, name string) int {
	for j, c := range columns {
		if c == name {
			return j
		}
	}
	return -1
}
