// Package theme defines color themes for the runledger dashboard.
package theme

import (
	"slices"

	"github.com/charmbracelet/lipgloss"
)

// Theme maps the dashboard's color roles to concrete colors.
type Theme struct {
	Name string

	Background    lipgloss.Color
	Surface       lipgloss.Color // cards and panels
	SurfaceHover  lipgloss.Color // active tab
	SurfaceBright lipgloss.Color // selected row
	Border        lipgloss.Color
	BorderAccent  lipgloss.Color // focused card

	TextDim     lipgloss.Color // hints, axes
	TextMuted   lipgloss.Color // labels
	TextPrimary lipgloss.Color

	Accent       lipgloss.Color
	AccentBright lipgloss.Color

	Green       lipgloss.Color
	GreenBright lipgloss.Color // income
	Orange      lipgloss.Color // warnings
	Red         lipgloss.Color // spending, errors
	Yellow      lipgloss.Color // special drops
	Cyan        lipgloss.Color
}

// FlexokiDark is the default.
var FlexokiDark = Theme{
	Name:       "flexoki-dark",
	Background: "#100F0F", Surface: "#1C1B1A", SurfaceHover: "#282726", SurfaceBright: "#343331",
	Border: "#403E3C", BorderAccent: "#3AA99F",
	TextDim: "#575653", TextMuted: "#878580", TextPrimary: "#FFFCF0",
	Accent: "#3AA99F", AccentBright: "#5BC8BE",
	Green: "#879A39", GreenBright: "#A3B859", Orange: "#DA702C", Red: "#D14D41",
	Yellow: "#D0A215", Cyan: "#24837B",
}

// Jade is a green-gold palette.
var Jade = Theme{
	Name:       "jade",
	Background: "#0E1412", Surface: "#16201C", SurfaceHover: "#21302A", SurfaceBright: "#2C3F37",
	Border: "#3A5047", BorderAccent: "#C9A227",
	TextDim: "#52675E", TextMuted: "#8FA69B", TextPrimary: "#EEF3EC",
	Accent: "#C9A227", AccentBright: "#E8C65A",
	Green: "#4E9F74", GreenBright: "#7CCB9B", Orange: "#D9822B", Red: "#D0534A",
	Yellow: "#E8C65A", Cyan: "#5FB3A8",
}

// CatppuccinMocha is a pastel palette.
var CatppuccinMocha = Theme{
	Name:       "catppuccin-mocha",
	Background: "#1E1E2E", Surface: "#313244", SurfaceHover: "#45475A", SurfaceBright: "#585B70",
	Border: "#585B70", BorderAccent: "#89B4FA",
	TextDim: "#6C7086", TextMuted: "#A6ADC8", TextPrimary: "#CDD6F4",
	Accent: "#89B4FA", AccentBright: "#B4D0FB",
	Green: "#A6E3A1", GreenBright: "#C6F6C1", Orange: "#FAB387", Red: "#F38BA8",
	Yellow: "#F9E2AF", Cyan: "#94E2D5",
}

// Terminal sticks to the ANSI 16 colors.
var Terminal = Theme{
	Name:       "terminal",
	Background: "0", Surface: "0", SurfaceHover: "8", SurfaceBright: "8",
	Border: "8", BorderAccent: "6",
	TextDim: "8", TextMuted: "7", TextPrimary: "15",
	Accent: "6", AccentBright: "14",
	Green: "2", GreenBright: "10", Orange: "3", Red: "1",
	Yellow: "11", Cyan: "6",
}

// All lists the themes in display order.
var All = []Theme{FlexokiDark, Jade, CatppuccinMocha, Terminal}

// Active is the theme every renderer reads.
var Active = FlexokiDark

func index(name string) int {
	return slices.IndexFunc(All, func(t Theme) bool { return t.Name == name })
}

// ByName returns the named theme, or FlexokiDark.
func ByName(name string) Theme {
	if i := index(name); i >= 0 {
		return All[i]
	}
	return FlexokiDark
}

// Names lists the theme names in display order.
func Names() []string {
	names := make([]string, len(All))
	for i, t := range All {
		names[i] = t.Name
	}
	return names
}

// Valid reports whether name is a known theme.
func Valid(name string) bool { return index(name) >= 0 }

func SetActive(name string) { Active = ByName(name) }

// Gain picks the color for a signed gold amount.
func (t Theme) Gain(v int64) lipgloss.Color {
	switch {
	case v > 0:
		return t.GreenBright
	case v < 0:
		return t.Red
	default:
		return t.TextMuted
	}
}
