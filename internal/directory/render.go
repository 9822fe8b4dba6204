package directory

import (
	"golang.org/x/net/html"

	"github.com/jgxilos/wdd231/internal/dom"
	"github.com/jgxilos/wdd231/internal/models"
)

// Renderer writes one presentation unit per member into target, replacing
// whatever target held before.
type Renderer interface {
	Render(members []models.Member, target *html.Node)
}

// GridRenderer renders image cards.
type GridRenderer struct{}

// ListRenderer renders compact rows with the website shown as text.
type ListRenderer struct{}

func (GridRenderer) Render(members []models.Member, target *html.Node) {
	dom.Clear(target)
	for _, m := range members {
		info := dom.El("div", []html.Attribute{dom.Attr("class", "member-info")},
			dom.El("h3", nil, dom.Text(m.Name)),
			badgeNode(m),
			labelled("📍", m.Address),
			labelled("📞", m.Phone),
			dom.El("p", nil,
				dom.El("strong", nil, dom.Text("🌐")),
				dom.Text(" "),
				websiteLink(m.Website, "Visit website"),
			),
			category(m),
			description(m),
		)
		card := dom.El("article", []html.Attribute{dom.Attr("class", "member-card")},
			dom.El("img", []html.Attribute{
				dom.Attr("src", dom.SafeURL(m.Image)),
				dom.Attr("alt", "Logo of "+m.Name),
				dom.Attr("loading", "lazy"),
			}),
			info,
		)
		target.AppendChild(card)
	}
}

func (ListRenderer) Render(members []models.Member, target *html.Node) {
	dom.Clear(target)
	for _, m := range members {
		item := dom.El("article", []html.Attribute{dom.Attr("class", "member-list-item")},
			dom.El("h3", nil, dom.Text(m.Name+" "), badgeNode(m)),
			labelled("Address:", m.Address),
			labelled("Phone:", m.Phone),
			dom.El("p", nil,
				dom.El("strong", nil, dom.Text("Web:")),
				dom.Text(" "),
				websiteLink(m.Website, m.Website),
			),
			category(m),
			description(m),
		)
		target.AppendChild(item)
	}
}

func badgeNode(m models.Member) *html.Node {
	b := BadgeFor(m.Level())
	return dom.El("span", []html.Attribute{dom.Attr("class", "membership-badge "+b.Class)}, dom.Text(b.Label))
}

func labelled(label, value string) *html.Node {
	return dom.El("p", nil, dom.El("strong", nil, dom.Text(label)), dom.Text(" "+value))
}

func websiteLink(href, text string) *html.Node {
	return dom.El("a", []html.Attribute{
		dom.Attr("href", dom.SafeURL(href)),
		dom.Attr("target", "_blank"),
		dom.Attr("rel", "noopener noreferrer"),
	}, dom.Text(text))
}

func category(m models.Member) *html.Node {
	if m.Category == "" {
		return nil
	}
	return labelled("Category:", m.Category)
}

func description(m models.Member) *html.Node {
	if m.Description == "" {
		return nil
	}
	return dom.El("p", []html.Attribute{dom.Attr("class", "member-description")}, dom.Text(m.Description))
}
