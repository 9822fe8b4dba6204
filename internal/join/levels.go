package join

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"

	"github.com/jgxilos/wdd231/internal/dom"
)

// Raw HTML in the markdown is escaped.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps()),
)

// LevelDetail is the rendered benefits text of one membership level.
type LevelDetail struct {
	Level string
	Title string
	HTML  string
}

// LoadLevels renders <level>.md from fsys for each known level. Levels
// without a file are skipped.
func LoadLevels(fsys fs.FS) ([]LevelDetail, error) {
	var out []LevelDetail
	for _, level := range Levels {
		src, err := fs.ReadFile(fsys, level+".md")
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read level %s: %w", level, err)
		}
		var buf bytes.Buffer
		if err := markdown.Convert(src, &buf); err != nil {
			return nil, fmt.Errorf("failed to render level %s: %w", level, err)
		}
		out = append(out, LevelDetail{Level: level, Title: LevelLabel(level), HTML: buf.String()})
	}
	return out, nil
}

// DialogID is the id of a level's dialog.
func DialogID(level string) string {
	return "modal-" + level
}

// RenderDialogs writes one <dialog> per level into the level-dialogs
// container.
func RenderDialogs(doc *html.Node, levels []LevelDetail) error {
	target := dom.FindByID(doc, DialogsID)
	if target == nil {
		return nil
	}
	dom.Clear(target)
	for _, l := range levels {
		body, err := dom.ParseFragment(l.HTML)
		if err != nil {
			return fmt.Errorf("level %s: %w", l.Level, err)
		}
		content := dom.El("div", []html.Attribute{dom.Attr("class", "modal-content")},
			dom.El("h3", []html.Attribute{dom.Attr("id", DialogID(l.Level)+"-title")}, dom.Text(l.Title)),
		)
		dom.Append(content, body...)
		dom.Append(content, dom.El("button", []html.Attribute{
			dom.Attr("type", "button"),
			dom.Attr("class", "close-modal"),
			dom.Attr("data-close", DialogID(l.Level)),
		}, dom.Text("Close")))

		target.AppendChild(dom.El("dialog", []html.Attribute{
			dom.Attr("id", DialogID(l.Level)),
			dom.Attr("class", "membership-modal"),
			dom.Attr("aria-labelledby", DialogID(l.Level)+"-title"),
		}, content))
	}
	return nil
}
