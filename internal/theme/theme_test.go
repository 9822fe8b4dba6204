package theme

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgxilos/wdd231/internal/dom"
)

var (
	red   = color.RGBA{R: 200, A: 255}
	green = color.RGBA{G: 150, A: 255}
	blue  = color.RGBA{B: 100, A: 255}
)

// stripes paints counts[i] pixels of colors[i] on a single row.
func stripes(colors []color.RGBA, counts []int) *image.RGBA {
	total := 0
	for _, c := range counts {
		total += c
	}
	img := image.NewRGBA(image.Rect(0, 0, total+1, 1))
	x := 0
	for i, c := range colors {
		for j := 0; j < counts[i]; j++ {
			img.Set(x, 0, c)
			x++
		}
	}
	// The remaining pixel stays transparent and is ignored.
	return img
}

func TestPaletteOrdersByFrequency(t *testing.T) {
	img := stripes([]color.RGBA{red, green, blue}, []int{2, 5, 3})

	got := Palette(img, 2)

	if diff := cmp.Diff([]color.RGBA{green, blue}, got); diff != "" {
		t.Errorf("Palette() mismatch (-want +got):\n%s", diff)
	}
}

func TestPaletteBreaksTiesByValue(t *testing.T) {
	img := stripes([]color.RGBA{red, green, blue}, []int{4, 4, 4})

	for i := 0; i < 10; i++ {
		got := Palette(img, 3)
		assert.Equal(t, []color.RGBA{blue, green, red}, got)
	}
}

func TestReplaceCSSVars(t *testing.T) {
	vars := CSSVars([]color.RGBA{red, green})
	require.Equal(t, "--color-1: rgb(200, 0, 0);", vars[0])

	css := ":root {\n    " + StartMarker + "\n    --color-1: rgb(1, 1, 1);\n    " + EndMarker + "\n}\n"
	out := ReplaceCSSVars(css, vars)
	assert.Contains(t, out, "--color-2: rgb(0, 150, 0);")
	assert.NotContains(t, out, "rgb(1, 1, 1)")
	assert.Equal(t, out, ReplaceCSSVars(out, vars))

	onlyStart := ":root {\n    " + StartMarker + "\n}\n"
	out = ReplaceCSSVars(onlyStart, vars)
	assert.Contains(t, out, EndMarker)
	assert.Equal(t, 1, strings.Count(out, "--color-1"))

	bare := ":root {\n}\n"
	assert.Contains(t, ReplaceCSSVars(bare, vars), ":root {\n    --color-1")
}

func TestGenerateFromLogo(t *testing.T) {
	dir := t.TempDir()
	logo := filepath.Join(dir, "logo.png")
	f, err := os.Create(logo)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, stripes([]color.RGBA{red, blue}, []int{3, 1})))
	require.NoError(t, f.Close())
	cssPath := filepath.Join(dir, "style.css")
	require.NoError(t, os.WriteFile(cssPath, []byte(":root {\n    "+StartMarker+"\n    "+EndMarker+"\n}\n"), 0o644))

	colors, err := GenerateFromLogo(logo, cssPath)

	require.NoError(t, err)
	assert.Equal(t, []color.RGBA{red, blue}, colors)
	css, err := os.ReadFile(cssPath)
	require.NoError(t, err)
	assert.Contains(t, string(css), "--color-1: rgb(200, 0, 0);")

	before, err := os.Stat(cssPath)
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(cssPath, before.ModTime().Add(-time.Hour), before.ModTime().Add(-time.Hour)))
	_, err = GenerateFromLogo(logo, cssPath)
	require.NoError(t, err)
	after, err := os.Stat(cssPath)
	require.NoError(t, err)
	assert.True(t, after.ModTime().Equal(before.ModTime().Add(-time.Hour)), "unchanged palette must not rewrite the stylesheet")

	_, err = GenerateFromLogo(filepath.Join(dir, "missing.png"), cssPath)
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	doc, err := dom.Parse(strings.NewReader(`<html><body class="page"></body></html>`))
	require.NoError(t, err)
	body := dom.FindTag(doc, "body")

	Apply(doc, "dark")
	assert.True(t, dom.HasClass(body, DarkClass))
	assert.True(t, dom.HasClass(body, "page"))

	Apply(doc, "light")
	assert.False(t, dom.HasClass(body, DarkClass))
	assert.True(t, dom.HasClass(body, "page"))

	assert.Equal(t, "light", Normalize("solarized"))
}
