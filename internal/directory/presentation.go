package directory

import (
	"golang.org/x/net/html"

	"github.com/jgxilos/wdd231/internal/dom"
)

const (
	loadingText  = "Loading members..."
	errorHeader  = "Error loading members"
	reloadAdvice = "Please try reloading the page."
)

// ShowLoading replaces target's content with a neutral placeholder.
func ShowLoading(target *html.Node) {
	dom.ReplaceChildren(target,
		dom.El("p", []html.Attribute{dom.Attr("class", "status-message loading")}, dom.Text(loadingText)),
	)
}

// ShowError replaces target's content with the terminal error block.
func ShowError(target *html.Node, message string) {
	dom.ReplaceChildren(target,
		dom.El("div", []html.Attribute{dom.Attr("class", "status-message error"), dom.Attr("role", "alert")},
			dom.El("p", []html.Attribute{dom.Attr("class", "error-title")}, dom.Text(errorHeader)),
			dom.El("p", []html.Attribute{dom.Attr("class", "error-detail")}, dom.Text(message)),
			dom.El("p", []html.Attribute{dom.Attr("class", "error-hint")}, dom.Text(reloadAdvice)),
		),
	)
}
