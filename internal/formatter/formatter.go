// Package formatter renders trees for non-interactive output: an outline of
// the flattened view and an ASCII tree of the whole forest.
package formatter

import (
	"image/color"
	"os"

	"charm.land/lipgloss/v2"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/oakwood-commons/kvtree/internal/adapter"
)

const ellipsis = "..."

var (
	defaultNameColor        = lipgloss.Color("14")
	defaultStringColor      = lipgloss.Color("10")
	defaultNumberColor      = lipgloss.Color("12")
	defaultBoolColor        = lipgloss.Color("13")
	defaultNullColor        = lipgloss.Color("244")
	defaultContainerColor   = lipgloss.Color("248")
	defaultPlaceholderColor = lipgloss.Color("208")
	defaultTypeColor        = lipgloss.Color("240")
	defaultSelectedBG       = lipgloss.Color("236")

	nameStyle        lipgloss.Style
	stringStyle      lipgloss.Style
	numberStyle      lipgloss.Style
	boolStyle        lipgloss.Style
	nullStyle        lipgloss.Style
	containerStyle   lipgloss.Style
	placeholderStyle lipgloss.Style
	typeStyle        lipgloss.Style
	markerStyle      lipgloss.Style
	selectedStyle    lipgloss.Style
)

// Theme controls the colors used for outline rows. Nil fields fall back to
// the formatter defaults (ANSI 256 codes).
type Theme struct {
	Name        color.Color
	String      color.Color
	Number      color.Color
	Bool        color.Color
	Null        color.Color
	Container   color.Color
	Placeholder color.Color
	Type        color.Color
	SelectedBG  color.Color
}

func pick(c, fallback color.Color) color.Color {
	if c == nil {
		return fallback
	}
	return c
}

func applyTheme(th Theme) {
	nameStyle = lipgloss.NewStyle().Foreground(pick(th.Name, defaultNameColor))
	stringStyle = lipgloss.NewStyle().Foreground(pick(th.String, defaultStringColor))
	numberStyle = lipgloss.NewStyle().Foreground(pick(th.Number, defaultNumberColor))
	boolStyle = lipgloss.NewStyle().Foreground(pick(th.Bool, defaultBoolColor))
	nullStyle = lipgloss.NewStyle().Foreground(pick(th.Null, defaultNullColor)).Italic(true)
	containerStyle = lipgloss.NewStyle().Foreground(pick(th.Container, defaultContainerColor))
	placeholderStyle = lipgloss.NewStyle().Foreground(pick(th.Placeholder, defaultPlaceholderColor)).Italic(true)
	typeStyle = lipgloss.NewStyle().Foreground(pick(th.Type, defaultTypeColor))
	markerStyle = lipgloss.NewStyle().Foreground(pick(th.Type, defaultTypeColor))
	selectedStyle = lipgloss.NewStyle().Bold(true).Background(pick(th.SelectedBG, defaultSelectedBG))
}

// SetTheme overrides the global outline styles.
func SetTheme(th Theme) {
	applyTheme(th)
}

//nolint:gochecknoinits // initialize default theme for package consumers
func init() {
	applyTheme(Theme{})
}

// valueStyle returns the style used for the display string of a kind.
func valueStyle(k adapter.Kind, display string) lipgloss.Style {
	switch k {
	case adapter.KindString, adapter.KindGUID:
		return stringStyle
	case adapter.KindNull:
		return nullStyle
	case adapter.KindCollection, adapter.KindDictionary, adapter.KindObject:
		return containerStyle
	case adapter.KindCircularReference, adapter.KindMaxDepthReached:
		return placeholderStyle
	case adapter.KindPrimitive:
		if display == "true" || display == "false" {
			return boolStyle
		}
		return numberStyle
	default:
		return numberStyle
	}
}

// truncate shortens s to at most width terminal cells, ending in "...".
func truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= len(ellipsis) {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, ellipsis)
}

// TerminalWidth returns the width of the terminal attached to stdout, or 120
// when it cannot be detected.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 120
	}
	return width
}
