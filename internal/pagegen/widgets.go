package pagegen

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/jgxilos/wdd231/internal/directory"
	"github.com/jgxilos/wdd231/internal/discover"
	"github.com/jgxilos/wdd231/internal/dom"
	"github.com/jgxilos/wdd231/internal/join"
	"github.com/jgxilos/wdd231/internal/spotlight"
	"github.com/jgxilos/wdd231/internal/theme"
	"github.com/jgxilos/wdd231/internal/weather"
)

// DirectoryWidget loads the member directory into the page and leaves it in
// mode. The page must provide the directory's element IDs.
func DirectoryWidget(src directory.Source, mode directory.Mode, logger *zap.Logger) Widget {
	logger = orNop(logger)
	return func(ctx context.Context, doc *html.Node) error {
		c, err := directory.FromDocument(doc, logger)
		if err != nil {
			return err
		}
		if err := c.Load(ctx, src); err != nil {
			logger.Warn("directory rendered with error block", zap.Error(err))
		}
		if mode != c.CurrentMode() {
			return c.SetMode(mode)
		}
		return nil
	}
}

// SpotlightWidget features up to n Gold/Silver members. A nil rng draws from
// a freshly seeded source.
func SpotlightWidget(src directory.Source, n int, rng *rand.Rand, logger *zap.Logger) Widget {
	logger = orNop(logger)
	return func(ctx context.Context, doc *html.Node) error {
		target := dom.FindByID(doc, spotlight.ListID)
		if target == nil {
			return nil
		}
		members, err := src.Load(ctx)
		if err != nil && !directory.IsEmpty(err) {
			logger.Warn("spotlights unavailable", zap.Error(err))
			spotlight.RenderError(target)
			return nil
		}
		r := rng
		if r == nil {
			r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
		spotlight.Render(target, spotlight.Select(members, n, r))
		return nil
	}
}

// WeatherWidget fills the weather readings. A nil client leaves the widget
// in its error state.
func WeatherWidget(client weather.Client, logger *zap.Logger) Widget {
	return func(ctx context.Context, doc *html.Node) error {
		if client == nil {
			weather.RenderError(doc, "Weather unavailable")
			weather.RenderForecastError(doc)
			return nil
		}
		weather.Apply(ctx, doc, client, logger)
		return nil
	}
}

// PlacesWidget renders the discover cards.
func PlacesWidget(loader *directory.Loader, logger *zap.Logger) Widget {
	logger = orNop(logger)
	return func(ctx context.Context, doc *html.Node) error {
		target := dom.FindByID(doc, discover.ContainerID)
		if target == nil {
			return &dom.MissingIDError{IDs: []string{discover.ContainerID}}
		}
		places, err := discover.LoadPlaces(ctx, loader)
		if err != nil {
			logger.Warn("places unavailable", zap.Error(err))
			discover.RenderError(target, err)
			return nil
		}
		discover.RenderPlaces(target, places)
		return nil
	}
}

// VisitorWidget writes the returning-visitor greeting.
func VisitorWidget(message string) Widget {
	return func(_ context.Context, doc *html.Node) error {
		discover.RenderVisitorMessage(doc, message)
		return nil
	}
}

// JoinWidget stamps the form, renders the level dialogs and, for a rejected
// submission, refills the form and lists the errors.
func JoinWidget(levels []join.LevelDetail, now time.Time, submitted *join.Application, errs map[string]string) Widget {
	return func(_ context.Context, doc *html.Node) error {
		join.SetTimestamp(doc, now)
		if err := join.RenderDialogs(doc, levels); err != nil {
			return err
		}
		if submitted != nil {
			join.Populate(doc, *submitted)
			join.RenderErrors(doc, errs)
		}
		return nil
	}
}

// ThankYouWidget fills the submission summary.
func ThankYouWidget(app join.Application) Widget {
	return func(_ context.Context, doc *html.Node) error {
		join.Summary(doc, app)
		return nil
	}
}

// ThemeWidget applies the visitor's theme to <body>.
func ThemeWidget(name string) Widget {
	return func(_ context.Context, doc *html.Node) error {
		theme.Apply(doc, name)
		return nil
	}
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
