// Package input provides text input components for the TUI.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/plataformas/internal/adapters/driving/tui/styles"
)

// Filter wraps a bubbles textinput used to narrow a list.
type Filter struct {
	textinput textinput.Model
	styles    *styles.Styles
}

// NewFilter creates an unfocused filter input.
func NewFilter(s *styles.Styles, placeholder string) *Filter {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 64
	ti.Width = 30

	return &Filter{textinput: ti, styles: s}
}

// Update forwards input messages to the text field.
func (f *Filter) Update(msg tea.Msg) (*Filter, tea.Cmd) {
	var cmd tea.Cmd
	f.textinput, cmd = f.textinput.Update(msg)
	return f, cmd
}

// View renders the filter.
func (f *Filter) View() string {
	label := f.styles.Subtitle.Render("Filter: ")
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, f.styles.Filter.Render(f.textinput.View()))
}

// Value returns the current text.
func (f *Filter) Value() string {
	return f.textinput.Value()
}

// SetValue sets the text.
func (f *Filter) SetValue(value string) {
	f.textinput.SetValue(value)
}

// Focus gives the filter keyboard focus.
func (f *Filter) Focus() tea.Cmd {
	return f.textinput.Focus()
}

// Blur releases keyboard focus.
func (f *Filter) Blur() {
	f.textinput.Blur()
}

// Focused reports whether the filter has focus.
func (f *Filter) Focused() bool {
	return f.textinput.Focused()
}

// SetWidth sets the text field width.
func (f *Filter) SetWidth(width int) {
	w := width - 14
	if w < 10 {
		w = 10
	}
	f.textinput.Width = w
}

// Reset clears the text.
func (f *Filter) Reset() {
	f.textinput.Reset()
}
