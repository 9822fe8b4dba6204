// Package pagegen turns the page templates into finished HTML documents.
// Each template is executed, parsed into a DOM, handed to the page's
// widgets, and serialized.
package pagegen

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/jgxilos/wdd231/internal/dom"
)

// Partials every page template may use.
var Partials = []string{"header.html", "navbar.html", "footer.html"}

// Page is the data handed to every template.
type Page struct {
	Title        string
	SiteTitle    string
	ActivePage   string
	CurrentYear  int
	LastModified string
	Theme        string
	CSRFField    template.HTML
	Timestamp    string
	Static       bool
}

// Href links to a page by name. Static builds link to the written files;
// the server links to its routes.
func (p Page) Href(name string) string {
	if name == "home" {
		if p.Static {
			return "index.html"
		}
		return "/"
	}
	if p.Static {
		return name + ".html"
	}
	return "/" + name
}

// Asset resolves a path below the static tree.
func (p Page) Asset(path string) string {
	if p.Static {
		return "static/" + path
	}
	return "/static/" + path
}

// Widget mutates a parsed page. Widgets contain their own data failures;
// a returned error means the page itself is unusable.
type Widget func(ctx context.Context, doc *html.Node) error

// Generator renders templates from a directory.
type Generator struct {
	templatesDir string
	siteTitle    string
	now          func() time.Time
	logger       *zap.Logger
}

// NewGenerator returns a generator reading templatesDir.
func NewGenerator(templatesDir, siteTitle string, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{templatesDir: templatesDir, siteTitle: siteTitle, now: time.Now, logger: logger}
}

// NewPage fills the fields shared by every page.
func (g *Generator) NewPage(active, title string) Page {
	now := g.now()
	full := g.siteTitle
	if title != "" {
		full = title + " | " + g.siteTitle
	}
	return Page{
		Title:        full,
		SiteTitle:    g.siteTitle,
		ActivePage:   active,
		CurrentYear:  now.Year(),
		LastModified: now.Format("January 2, 2006 15:04"),
	}
}

func (g *Generator) parse(templateName string) (*template.Template, error) {
	files := []string{filepath.Join(g.templatesDir, templateName)}
	for _, p := range Partials {
		files = append(files, filepath.Join(g.templatesDir, "partials", p))
	}
	tmpl, err := template.ParseFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", templateName, err)
	}
	return tmpl, nil
}

// Render executes templateName with data, runs the widgets in order over the
// resulting document and writes the serialized page to w.
func (g *Generator) Render(ctx context.Context, w io.Writer, templateName string, data Page, widgets ...Widget) error {
	tmpl, err := g.parse(templateName)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	doc, err := dom.Parse(&buf)
	if err != nil {
		return fmt.Errorf("template %s: %w", templateName, err)
	}
	for _, widget := range widgets {
		if err := widget(ctx, doc); err != nil {
			return fmt.Errorf("template %s: %w", templateName, err)
		}
	}

	if err := dom.Render(w, doc); err != nil {
		return fmt.Errorf("failed to write %s: %w", templateName, err)
	}
	g.logger.Debug("page rendered", zap.String("template", templateName), zap.Int("widgets", len(widgets)))
	return nil
}
