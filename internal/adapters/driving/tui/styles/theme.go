// Package styles provides colour themes and styling for the TUI.
package styles

import (
	"fmt"
	"regexp"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the browser colour palette.
type Theme struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
	Border     lipgloss.Color

	// Citation highlights page references inside summaries.
	Citation lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:    lipgloss.Color("#2563EB"), // Blue
		Secondary:  lipgloss.Color("#06B6D4"), // Cyan
		Foreground: lipgloss.Color("#E5E7EB"),
		Muted:      lipgloss.Color("#6B7280"),
		Success:    lipgloss.Color("#22C55E"),
		Warning:    lipgloss.Color("#EAB308"),
		Error:      lipgloss.Color("#EF4444"),
		Border:     lipgloss.Color("#374151"),
		Citation:   lipgloss.Color("#F59E0B"), // Amber
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	theme *Theme

	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Normal    lipgloss.Style
	Muted     lipgloss.Style
	Selected  lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Filter    lipgloss.Style
	StatusBar lipgloss.Style
	Help      lipgloss.Style

	// Panel frames the position detail.
	Panel lipgloss.Style

	// Label is used for field names in the detail view.
	Label lipgloss.Style

	// Citation renders [p. N] references.
	Citation lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		Subtitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),

		Normal: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Foreground).
			Background(theme.Primary),

		Error:   lipgloss.NewStyle().Foreground(theme.Error),
		Success: lipgloss.NewStyle().Foreground(theme.Success),
		Warning: lipgloss.NewStyle().Foreground(theme.Warning),

		Filter: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		StatusBar: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Background(lipgloss.Color("#111827")).
			Padding(0, 1),

		Help: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		Label: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),

		Citation: lipgloss.NewStyle().
			Foreground(theme.Citation),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

var citationPattern = regexp.MustCompile(`\[p\.\s*\d+(?:\s*[-,]\s*\d+)*\]`)

// HighlightCitations renders every page citation in text with the Citation style.
func (s *Styles) HighlightCitations(text string) string {
	return citationPattern.ReplaceAllStringFunc(text, func(c string) string {
		return s.Citation.Render(c)
	})
}

// Confidence renders a confidence score coloured by band.
// Nil scores render as a dash.
func (s *Styles) Confidence(score *float64) string {
	if score == nil {
		return s.Muted.Render("-")
	}
	label := fmt.Sprintf("%.0f%%", *score*100)
	switch {
	case *score >= 0.75:
		return s.Success.Render(label)
	case *score >= 0.4:
		return s.Warning.Render(label)
	default:
		return s.Error.Render(label)
	}
}
