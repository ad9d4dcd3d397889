// Package status provides the status bar component for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/plataformas/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/plataformas/internal/adapters/driving/tui/styles"
)

// State is what the bar reports on its left side.
type State string

const (
	StateReady   State = "ready"
	StateLoading State = "loading"
	StateError   State = "error"
	StateReading State = "reading"
)

// Bar displays the current state and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	message string
	count   int
	noun    string
	width   int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keymap: km, state: StateReady, width: 80}
}

// View renders the bar across the full width.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderRight()

	// The bar style pads one cell on each side.
	padding := b.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (b *Bar) renderLeft() string {
	switch b.state {
	case StateLoading:
		return b.styles.Muted.Render("Loading...")
	case StateError:
		if b.message != "" {
			return b.styles.Error.Render("Error: " + b.message)
		}
		return b.styles.Error.Render("Error")
	case StateReading:
		if b.message != "" {
			return b.styles.Normal.Render(b.message)
		}
	case StateReady:
		if b.count > 0 {
			return b.styles.Normal.Render(fmt.Sprintf("%d %s", b.count, b.noun))
		}
	}
	return b.styles.Muted.Render("Ready")
}

func (b *Bar) renderRight() string {
	bindings := b.keymap.ShortHelp()
	if b.state == StateReading {
		bindings = b.keymap.DetailHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		h := binding.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return b.styles.Muted.Render(strings.Join(hints, " | "))
}

// Hints returns the bindings currently advertised.
func (b *Bar) Hints() []key.Binding {
	if b.state == StateReading {
		return b.keymap.DetailHelp()
	}
	return b.keymap.ShortHelp()
}

// SetState sets the current state.
func (b *Bar) SetState(state State) {
	b.state = state
}

// State returns the current state.
func (b *Bar) State() State {
	return b.state
}

// SetMessage sets the text shown for error and reading states.
func (b *Bar) SetMessage(message string) {
	b.message = message
}

// Message returns the current message.
func (b *Bar) Message() string {
	return b.message
}

// SetCount sets the item count shown when ready, e.g. 12 "parties".
func (b *Bar) SetCount(count int, noun string) {
	b.count = count
	b.noun = noun
}

// SetWidth sets the bar width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}

// Clear resets the bar to the ready state.
func (b *Bar) Clear() {
	b.state = StateReady
	b.message = ""
	b.count = 0
	b.noun = ""
}
