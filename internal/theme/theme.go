// Package theme holds the built-in presentation themes. Themes are static and
// never persisted.
package theme

import (
	"strings"

	"github.com/fatih/color"
)

// Palette is the set of colour tokens a theme exposes to renderers.
type Palette struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Background string `json:"background"`
	Text       string `json:"text"`
	Border     string `json:"border"`
	Hover      string `json:"hover"`
}

// Theme is a named bundle of presentation tokens.
type Theme struct {
	Slug   string  `json:"slug"`
	Name   string  `json:"name"`
	Colors Palette `json:"colors"`

	header []color.Attribute
	accent []color.Attribute
	border []color.Attribute
}

// Header styles the header row in terminal output.
func (t Theme) Header() *color.Color { return color.New(t.header...) }

// Accent styles highlights such as the active cell.
func (t Theme) Accent() *color.Color { return color.New(t.accent...) }

// Border styles separators and secondary text.
func (t Theme) Border() *color.Color { return color.New(t.border...) }

var builtin = []Theme{
	{
		Slug: "classic-blue",
		Name: "Classic Blue",
		Colors: Palette{
			Primary:    "#2563eb",
			Secondary:  "#f3f4f6",
			Accent:     "#eff6ff",
			Background: "#ffffff",
			Text:       "#111827",
			Border:     "#d1d5db",
			Hover:      "#eff6ff",
		},
		header: []color.Attribute{color.Bold, color.FgBlue},
		accent: []color.Attribute{color.FgHiBlue},
		border: []color.Attribute{color.FgHiBlack},
	},
	{
		Slug: "modern-green",
		Name: "Modern Green",
		Colors: Palette{
			Primary:    "#16a34a",
			Secondary:  "#d1fae5",
			Accent:     "#f0fdf4",
			Background: "#ffffff",
			Text:       "#111827",
			Border:     "#6ee7b7",
			Hover:      "#f0fdf4",
		},
		header: []color.Attribute{color.Bold, color.FgGreen},
		accent: []color.Attribute{color.FgHiGreen},
		border: []color.Attribute{color.FgGreen},
	},
	{
		Slug: "luxury-purple",
		Name: "Luxury Purple",
		Colors: Palette{
			Primary:    "#9333ea",
			Secondary:  "#f3e8ff",
			Accent:     "#faf5ff",
			Background: "#ffffff",
			Text:       "#111827",
			Border:     "#d8b4fe",
			Hover:      "#faf5ff",
		},
		header: []color.Attribute{color.Bold, color.FgMagenta},
		accent: []color.Attribute{color.FgHiMagenta},
		border: []color.Attribute{color.FgMagenta},
	},
	{
		Slug: "elegant-dark",
		Name: "Elegant Dark",
		Colors: Palette{
			Primary:    "#1f2937",
			Secondary:  "#374151",
			Accent:     "#f3f4f6",
			Background: "#f9fafb",
			Text:       "#111827",
			Border:     "#9ca3af",
			Hover:      "#f3f4f6",
		},
		header: []color.Attribute{color.Bold, color.FgWhite, color.BgBlack},
		accent: []color.Attribute{color.FgHiWhite},
		border: []color.Attribute{color.FgHiBlack},
	},
}

// All returns the built-in themes in display order.
func All() []Theme {
	return append([]Theme(nil), builtin...)
}

// Default is the theme in effect before the user picks one.
func Default() Theme {
	return builtin[0]
}

// Lookup finds a theme by slug or display name, case-insensitively.
func Lookup(name string) (Theme, bool) {
	name = strings.TrimSpace(name)
	for _, t := range builtin {
		if strings.EqualFold(t.Slug, name) || strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return Theme{}, false
}
