// Package theme derives the site colour variables from the chamber logo and
// applies the visitor's light/dark choice.
package theme

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sort"
	"strings"
)

// Markers delimiting the generated block in the stylesheet.
const (
	StartMarker = "/* Color variables will be generated here */"
	EndMarker   = "/* End Color variables */"
)

// DefaultColors is how many variables a build generates.
const DefaultColors = 5

// Palette returns the n most frequent opaque colours in img. Equal counts are
// ordered by colour value.
func Palette(img image.Image, n int) []color.RGBA {
	bounds := img.Bounds()
	counts := make(map[color.RGBA]int)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			if c.A == 0 {
				continue
			}
			counts[c]++
		}
	}

	type colorFreq struct {
		color color.RGBA
		freq  int
	}
	freqs := make([]colorFreq, 0, len(counts))
	for c, f := range counts {
		freqs = append(freqs, colorFreq{color: c, freq: f})
	}
	sort.Slice(freqs, func(i, j int) bool {
		if freqs[i].freq != freqs[j].freq {
			return freqs[i].freq > freqs[j].freq
		}
		return pack(freqs[i].color) < pack(freqs[j].color)
	})

	var out []color.RGBA
	for i := 0; i < n && i < len(freqs); i++ {
		out = append(out, freqs[i].color)
	}
	return out
}

func pack(c color.RGBA) uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}

// CSSVars formats colours as --color-N declarations.
func CSSVars(colors []color.RGBA) []string {
	vars := make([]string, 0, len(colors))
	for i, c := range colors {
		vars = append(vars, fmt.Sprintf("--color-%d: rgb(%d, %d, %d);", i+1, c.R, c.G, c.B))
	}
	return vars
}

// ReplaceCSSVars rewrites the generated block of css. With only the start
// marker the block is inserted after it; with neither marker the variables
// are prepended to the :root rule.
func ReplaceCSSVars(css string, vars []string) string {
	body := strings.Join(vars, "\n    ")
	start := strings.Index(css, StartMarker)
	switch {
	case start >= 0 && strings.Contains(css[start:], EndMarker):
		from := start + len(StartMarker)
		to := from + strings.Index(css[from:], EndMarker)
		return css[:from] + "\n    " + body + "\n    " + css[to:]
	case start >= 0:
		return strings.Replace(css, StartMarker, StartMarker+"\n    "+body+"\n    "+EndMarker, 1)
	default:
		return strings.Replace(css, ":root {", ":root {\n    "+body, 1)
	}
}

// DecodeFile opens and decodes a PNG or JPEG.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// WriteCSSVars replaces the generated block in the stylesheet at cssPath.
func WriteCSSVars(cssPath string, colors []color.RGBA) error {
	content, err := os.ReadFile(cssPath)
	if err != nil {
		return fmt.Errorf("failed to read css file: %w", err)
	}
	updated := ReplaceCSSVars(string(content), CSSVars(colors))
	if updated == string(content) {
		return nil
	}
	if err := os.WriteFile(cssPath, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("failed to write css variables: %w", err)
	}
	return nil
}

// GenerateFromLogo derives the palette from the logo at imagePath and writes
// it into cssPath.
func GenerateFromLogo(imagePath, cssPath string) ([]color.RGBA, error) {
	img, err := DecodeFile(imagePath)
	if err != nil {
		return nil, err
	}
	colors := Palette(img, DefaultColors)
	if err := WriteCSSVars(cssPath, colors); err != nil {
		return nil, err
	}
	return colors, nil
}
