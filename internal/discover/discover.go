// Package discover renders the points-of-interest page and its returning
// visitor greeting.
package discover

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/net/html"

	"github.com/jgxilos/wdd231/internal/directory"
	"github.com/jgxilos/wdd231/internal/dom"
	"github.com/jgxilos/wdd231/internal/models"
)

const (
	PlacesPath       = "data/places.json"
	ContainerID      = "discover-container"
	VisitorMessageID = "visitor-message"
	WelcomeMessage   = "Welcome! Let us know if you have any questions."
	SameDayMessage   = "Back so soon! Awesome!"
	NoPlacesMessage  = "No places data available."
	placeImageWidth  = "300"
	placeImageHeight = "200"
)

type placesDocument struct {
	Places []models.Place `json:"places"`
}

// LoadPlaces fetches data/places.json. An empty list is a KindEmpty
// LoadError, like the member document.
func LoadPlaces(ctx context.Context, loader *directory.Loader) ([]models.Place, error) {
	var doc placesDocument
	if err := loader.Fetch(ctx, PlacesPath, &doc); err != nil {
		return nil, err
	}
	if len(doc.Places) == 0 {
		return nil, &directory.LoadError{Kind: directory.KindEmpty}
	}
	return doc.Places, nil
}

// RenderPlaces writes one card per place into target.
func RenderPlaces(target *html.Node, places []models.Place) {
	if len(places) == 0 {
		dom.ReplaceChildren(target,
			dom.El("p", []html.Attribute{dom.Attr("class", "status-message")}, dom.Text(NoPlacesMessage)))
		return
	}
	dom.Clear(target)
	for _, p := range places {
		target.AppendChild(card(p))
	}
}

// RenderError writes a load failure into target.
func RenderError(target *html.Node, err error) {
	if directory.IsEmpty(err) {
		RenderPlaces(target, nil)
		return
	}
	dom.ReplaceChildren(target,
		dom.El("div", []html.Attribute{dom.Attr("class", "status-message error"), dom.Attr("role", "alert")},
			dom.El("p", nil, dom.Text("Unable to load places")),
			dom.El("p", nil, dom.Text(err.Error())),
		),
	)
}

func card(p models.Place) *html.Node {
	return dom.El("article", []html.Attribute{dom.Attr("class", "discover-card")},
		dom.El("h2", nil, dom.Text(p.Name)),
		dom.El("figure", nil,
			dom.El("img", []html.Attribute{
				dom.Attr("src", dom.SafeURL(p.Image)),
				dom.Attr("alt", p.Name),
				dom.Attr("loading", "lazy"),
				dom.Attr("width", placeImageWidth),
				dom.Attr("height", placeImageHeight),
			}),
		),
		dom.El("address", nil, dom.Text("📍 "+p.Address)),
		dom.El("p", nil, dom.Text(p.Description)),
		dom.El("button", []html.Attribute{
			dom.Attr("type", "button"),
			dom.Attr("aria-label", "Learn more about "+p.Name),
		}, dom.Text("Learn More")),
	)
}

// VisitorMessage greets a visitor given their previous visit, if any.
func VisitorMessage(last time.Time, seen bool, now time.Time) string {
	if !seen {
		return WelcomeMessage
	}
	days := int(now.Sub(last) / (24 * time.Hour))
	if days < 1 {
		return SameDayMessage
	}
	unit := "days"
	if days == 1 {
		unit = "day"
	}
	return fmt.Sprintf("You last visited %d %s ago.", days, unit)
}

// RenderVisitorMessage writes the greeting into the page when the element
// exists.
func RenderVisitorMessage(doc *html.Node, message string) {
	if n := dom.FindByID(doc, VisitorMessageID); n != nil {
		dom.SetText(n, message)
	}
}
