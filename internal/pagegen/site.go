package pagegen

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jgxilos/wdd231/internal/directory"
	"github.com/jgxilos/wdd231/internal/discover"
	"github.com/jgxilos/wdd231/internal/join"
	"github.com/jgxilos/wdd231/internal/theme"
	"github.com/jgxilos/wdd231/internal/utils"
	"github.com/jgxilos/wdd231/internal/weather"
)

// PageSpec describes one output page.
type PageSpec struct {
	Output   string
	Template string
	Active   string
	Title    string
	Widgets  []Widget
}

// Site wires the data sources and widgets of every page.
type Site struct {
	Generator      *Generator
	SourceDir      string
	Logo           string
	Stylesheet     string
	Members        directory.Source
	Data           *directory.Loader
	Weather        weather.Client
	Levels         []join.LevelDetail
	SpotlightCount int
	DefaultView    directory.Mode
	Now            func() time.Time
	Logger         *zap.Logger
}

func (s *Site) logger() *zap.Logger {
	return orNop(s.Logger)
}

// Clock returns the current time, from Now when set.
func (s *Site) Clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Home is the landing page with spotlights and weather.
func (s *Site) Home(members directory.Source) PageSpec {
	return PageSpec{
		Output: "index.html", Template: "index.html", Active: "home", Title: "Home",
		Widgets: []Widget{
			SpotlightWidget(members, s.SpotlightCount, nil, s.Logger),
			WeatherWidget(s.Weather, s.Logger),
		},
	}
}

// Directory is the member directory in mode.
func (s *Site) Directory(members directory.Source, mode directory.Mode) PageSpec {
	out := "directory.html"
	if mode == directory.ModeList {
		out = "directory-list.html"
	}
	return PageSpec{
		Output: out, Template: "directory.html", Active: "directory", Title: "Directory",
		Widgets: []Widget{DirectoryWidget(members, mode, s.Logger)},
	}
}

// Discover lists places of interest and greets the visitor with message.
func (s *Site) Discover(message string) PageSpec {
	return PageSpec{
		Output: "discover.html", Template: "discover.html", Active: "discover", Title: "Discover",
		Widgets: []Widget{
			PlacesWidget(s.Data, s.Logger),
			VisitorWidget(message),
		},
	}
}

// Join is the application form. submitted and errs are set when a
// submission was rejected.
func (s *Site) Join(submitted *join.Application, errs map[string]string) PageSpec {
	return PageSpec{
		Output: "join.html", Template: "join.html", Active: "join", Title: "Join",
		Widgets: []Widget{JoinWidget(s.Levels, s.Clock(), submitted, errs)},
	}
}

// ThankYou summarises a submitted application.
func (s *Site) ThankYou(app join.Application) PageSpec {
	return PageSpec{
		Output: "thankyou.html", Template: "thankyou.html", Active: "join", Title: "Thank You",
		Widgets: []Widget{ThankYouWidget(app)},
	}
}

// RenderOptions carries the per-visitor parts of a page.
type RenderOptions struct {
	Theme     string
	CSRFField template.HTML
	Static    bool
}

// RenderPage renders a page for one visitor.
func (s *Site) RenderPage(ctx context.Context, w io.Writer, ps PageSpec, opts RenderOptions) error {
	page := s.Generator.NewPage(ps.Active, ps.Title)
	page.Theme = theme.Normalize(opts.Theme)
	page.CSRFField = opts.CSRFField
	page.Static = opts.Static
	page.Timestamp = s.Clock().UTC().Format(join.TimestampLayout)
	widgets := append([]Widget{}, ps.Widgets...)
	widgets = append(widgets, ThemeWidget(page.Theme))
	return s.Generator.Render(ctx, w, ps.Template, page, widgets...)
}

// StaticPages lists what a build writes. The directory is written once per
// view mode.
func (s *Site) StaticPages(members directory.Source) []PageSpec {
	return []PageSpec{
		s.Home(members),
		s.Directory(members, directory.ModeGrid),
		s.Directory(members, directory.ModeList),
		s.Discover(discover.WelcomeMessage),
		s.Join(nil, nil),
		s.ThankYou(join.Application{}),
	}
}

// Build regenerates the palette, copies the static trees and writes every
// static page into outDir. Pages render concurrently from a single member
// fetch.
func (s *Site) Build(ctx context.Context, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if s.Logo != "" && s.Stylesheet != "" {
		if _, err := os.Stat(s.Logo); err == nil {
			fmt.Printf("Generating color scheme from %s...\n", s.Logo)
			if _, err := theme.GenerateFromLogo(s.Logo, s.Stylesheet); err != nil {
				return err
			}
			fmt.Printf("Generated color scheme and updated %s\n", s.Stylesheet)
		} else {
			s.logger().Info("logo not found, keeping existing palette", zap.String("logo", s.Logo))
		}
	}

	trees := []struct{ src, dst string }{
		{filepath.Join(s.SourceDir, "static"), filepath.Join(outDir, "static")},
		{filepath.Join(s.SourceDir, "assets"), filepath.Join(outDir, "assets")},
		{filepath.Join(s.SourceDir, "data"), filepath.Join(outDir, "data")},
	}
	for _, t := range trees {
		fmt.Printf("Copying %s to %s...\n", t.src, t.dst)
		n, err := utils.CopyTree(t.src, t.dst)
		if errors.Is(err, fs.ErrNotExist) {
			s.logger().Warn("source tree missing, skipped", zap.String("dir", t.src))
			continue
		}
		if err != nil {
			return err
		}
		s.logger().Debug("tree copied", zap.String("dir", t.src), zap.Int("files", n))
	}

	members := newOnceSource(s.Members)
	g, gctx := errgroup.WithContext(ctx)
	for _, ps := range s.StaticPages(members) {
		g.Go(func() error {
			return s.writePage(gctx, outDir, ps)
		})
	}
	return g.Wait()
}

func (s *Site) writePage(ctx context.Context, outDir string, ps PageSpec) error {
	outputPath := filepath.Join(outDir, ps.Output)
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", outputPath, err)
	}
	if err := s.RenderPage(ctx, file, ps, RenderOptions{Static: true}); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	fmt.Printf("Generated %s\n", outputPath)
	return nil
}
