// Package spotlight picks featured Gold and Silver members for the home page.
package spotlight

import (
	"math/rand/v2"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/jgxilos/wdd231/internal/dom"
	"github.com/jgxilos/wdd231/internal/models"
)

// ListID is the element the spotlight cards are written into.
const ListID = "spotlights-list"

// DefaultCount is how many members the home page features.
const DefaultCount = 3

var (
	schemePrefix = regexp.MustCompile(`^https?://`)
	nonDigits    = regexp.MustCompile(`\D`)
)

// Qualified returns the Gold and Silver members in source order.
func Qualified(members []models.Member) []models.Member {
	var out []models.Member
	for _, m := range members {
		if l := m.Level(); l == models.LevelGold || l == models.LevelSilver {
			out = append(out, m)
		}
	}
	return out
}

// Select draws min(n, qualified) members uniformly without replacement. The
// result is in draw order.
func Select(members []models.Member, n int, rng *rand.Rand) []models.Member {
	pool := Qualified(members)
	if n > len(pool) {
		n = len(pool)
	}
	if n <= 0 {
		return nil
	}
	// Partial Fisher-Yates: the first n slots end up holding the draw.
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}

// Render writes one card per pick into target.
func Render(target *html.Node, picks []models.Member) {
	if len(picks) == 0 {
		dom.ReplaceChildren(target, dom.El("p", nil, dom.Text("No qualified members found")))
		return
	}
	dom.Clear(target)
	for _, m := range picks {
		target.AppendChild(card(m))
	}
}

// RenderError writes the spotlight failure message.
func RenderError(target *html.Node) {
	dom.ReplaceChildren(target,
		dom.El("div", []html.Attribute{dom.Attr("class", "spotlight-error")},
			dom.El("p", nil, dom.Text("Unable to load member spotlights")),
			dom.El("p", nil, dom.Text("Please try refreshing the page")),
		),
	)
}

// DisplayWebsite strips the scheme and a trailing slash.
func DisplayWebsite(url string) string {
	return strings.TrimSuffix(schemePrefix.ReplaceAllString(url, ""), "/")
}

func card(m models.Member) *html.Node {
	class, label := "silver", "⭐ Silver"
	if m.Level() == models.LevelGold {
		class, label = "gold", "⭐ Gold"
	}
	return dom.El("article", []html.Attribute{dom.Attr("class", "spotlight-card-home")},
		dom.El("div", []html.Attribute{dom.Attr("class", "spotlight-header-home")},
			dom.El("h3", nil, dom.Text(m.Name)),
			dom.El("span", []html.Attribute{dom.Attr("class", "spotlight-badge "+class)}, dom.Text(label)),
		),
		dom.El("div", []html.Attribute{dom.Attr("class", "spotlight-image-home")},
			dom.El("img", []html.Attribute{
				dom.Attr("src", dom.SafeURL(m.Image)),
				dom.Attr("alt", m.Name+" logo"),
				dom.Attr("loading", "lazy"),
			}),
		),
		dom.El("div", []html.Attribute{dom.Attr("class", "spotlight-info-home")},
			dom.El("p", nil, dom.El("strong", nil, dom.Text("📍")), dom.Text(" "+m.Address)),
			dom.El("p", nil, dom.El("strong", nil, dom.Text("📞")), dom.Text(" "),
				dom.El("a", []html.Attribute{dom.Attr("href", "tel:"+nonDigits.ReplaceAllString(m.Phone, ""))}, dom.Text(m.Phone)),
			),
			dom.El("p", nil, dom.El("strong", nil, dom.Text("🌐")), dom.Text(" "),
				dom.El("a", []html.Attribute{
					dom.Attr("href", dom.SafeURL(m.Website)),
					dom.Attr("target", "_blank"),
					dom.Attr("rel", "noopener noreferrer"),
				}, dom.Text(DisplayWebsite(m.Website))),
			),
		),
	)
}
