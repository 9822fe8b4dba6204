package theme

import (
	"golang.org/x/net/html"

	"github.com/jgxilos/wdd231/internal/dom"
	"github.com/jgxilos/wdd231/internal/prefs"
)

// DarkClass is set on <body> for the dark theme.
const DarkClass = "dark-theme"

// Apply sets or clears the dark theme class on the document body.
func Apply(doc *html.Node, theme string) {
	body := dom.FindTag(doc, "body")
	if body == nil {
		return
	}
	if theme == prefs.ThemeDark {
		dom.AddClass(body, DarkClass)
		return
	}
	dom.RemoveClass(body, DarkClass)
}

// Normalize maps anything but "dark" to the light theme.
func Normalize(theme string) string {
	if theme == prefs.ThemeDark {
		return prefs.ThemeDark
	}
	return prefs.ThemeLight
}
