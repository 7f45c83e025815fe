package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"surveydeck/domain/survey"
	"surveydeck/internal/errors"
	"surveydeck/internal/logging"
	"surveydeck/internal/settings"
)

// Builder turns slide definitions into slides over one cleaned table.
// The table is only read, so slides are built concurrently.
type Builder struct {
	table   *survey.Table
	def     *settings.Survey
	workers int
	now     func() time.Time
}

// NewBuilder creates a builder. workers below 1 means one.
func NewBuilder(table *survey.Table, def *settings.Survey, workers int) *Builder {
	if workers < 1 {
		workers = 1
	}
	return &Builder{table: table, def: def, workers: workers, now: time.Now}
}

// Build builds every slide of the definition, keeping definition order.
// The first failing slide cancels the rest.
func (b *Builder) Build(ctx context.Context) (*Deck, error) {
	logger := logging.Component("report")
	specs := b.def.Deck.Slides
	slides := make([]Slide, len(specs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			s, err := b.BuildSlide(spec)
			if err != nil {
				return errors.Wrapf(err, "slide %d (%s)", i+1, spec.Kind)
			}
			slides[i] = s
			logger.Debug().
				Int("slide", i+1).
				Str("kind", spec.Kind).
				Int("panels", len(s.Panels)).
				Dur("elapsed", time.Since(start)).
				Msg("Slide built")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	deck := &Deck{
		ID:      uuid.NewString(),
		Title:   b.def.Deck.Title,
		Created: b.now(),
		Slides:  slides,
	}
	logger.Info().Str("deck_id", deck.ID).Int("slides", len(slides)).Msg("Deck built")
	return deck, nil
}

// BuildSlide builds one slide.
func (b *Builder) BuildSlide(spec settings.Slide) (Slide, error) {
	switch spec.Kind {
	case settings.KindStandard:
		return b.standard(spec)
	case settings.KindInOut:
		return b.inOut(spec)
	case settings.KindFunnel:
		return b.funnel(spec)
	case settings.KindDistribution:
		return b.distribution(spec)
	case settings.KindBins:
		return b.bins(spec)
	case settings.KindCompare:
		return b.compare(spec)
	}
	return Slide{}, errors.InvalidInput("unknown slide kind " + spec.Kind)
}
