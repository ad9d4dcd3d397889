// Package parties provides the party list view for the TUI.
package parties

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/plataformas/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/plataformas/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/plataformas/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/plataformas/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driving"
)

// View lists registered parties and lets the user narrow them by name.
type View struct {
	ctx     context.Context
	styles  *styles.Styles
	corpus  driving.CorpusService
	list    *list.List
	filter  *input.Filter
	parties []domain.Party
	shown   []domain.Party
	err     error
	loading bool
	width   int
	height  int
}

// NewView creates the party list view.
func NewView(s *styles.Styles, corpus driving.CorpusService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		ctx:    context.Background(),
		styles: s,
		corpus: corpus,
		list:   list.New(s, "No parties registered. Run 'plataformas discover' first."),
		filter: input.NewFilter(s, "name or abbreviation"),
		width:  80,
		height: 24,
	}
}

// SetContext sets the context used by loads.
func (v *View) SetContext(ctx context.Context) {
	v.ctx = ctx
}

// Init loads the parties.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.load()
}

func (v *View) load() tea.Cmd {
	ctx, corpus := v.ctx, v.corpus
	return func() tea.Msg {
		if corpus == nil {
			return messages.PartiesLoaded{Err: errors.New("corpus service not available")}
		}
		parties, err := corpus.ListParties(ctx)
		return messages.PartiesLoaded{Parties: parties, Err: err}
	}
}

// Update handles messages for the party list.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.PartiesLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.parties = msg.Parties
			v.applyFilter()
		}
		return v, nil

	case tea.KeyMsg:
		if v.filter.Focused() {
			return v.updateFilter(msg)
		}
		switch msg.String() {
		case "/":
			return v, v.filter.Focus()
		case "enter":
			if p, ok := v.SelectedParty(); ok {
				return v, func() tea.Msg { return messages.PartySelected{Party: p} }
			}
			return v, nil
		case "esc":
			if v.filter.Value() != "" {
				v.filter.Reset()
				v.applyFilter()
			}
			return v, nil
		case "r":
			v.loading = true
			return v, v.load()
		case "q":
			return v, tea.Quit
		}
		v.list, _ = v.list.Update(msg)
	}
	return v, nil
}

func (v *View) updateFilter(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.Type { //nolint:exhaustive // only keys that leave the filter
	case tea.KeyEnter, tea.KeyEsc:
		if msg.Type == tea.KeyEsc {
			v.filter.Reset()
		}
		v.filter.Blur()
		v.applyFilter()
		return v, nil
	}
	var cmd tea.Cmd
	v.filter, cmd = v.filter.Update(msg)
	v.applyFilter()
	return v, cmd
}

func (v *View) applyFilter() {
	term := strings.ToLower(strings.TrimSpace(v.filter.Value()))
	v.shown = v.shown[:0]
	for _, p := range v.parties {
		if term == "" ||
			strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.Abbreviation), term) {
			v.shown = append(v.shown, p)
		}
	}

	rows := make([]list.Row, 0, len(v.shown))
	for _, p := range v.shown {
		rows = append(rows, list.Row{
			Title:   p.Name,
			Tag:     p.Abbreviation,
			Preview: partyPreview(p),
		})
	}
	v.list.SetRows(rows)
}

func partyPreview(p domain.Party) string {
	parts := make([]string, 0, 2)
	if p.Ideology != "" {
		parts = append(parts, p.Ideology)
	}
	if p.Website != "" {
		parts = append(parts, p.Website)
	}
	if len(parts) == 0 {
		return p.FolderName
	}
	return strings.Join(parts, " · ")
}

// View renders the party list.
func (v *View) View() string {
	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Party platforms"))
	b.WriteString("\n\n")

	if v.filter.Focused() || v.filter.Value() != "" {
		b.WriteString(v.filter.View())
		b.WriteString("\n\n")
	}

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading parties..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %v", v.err)))
	default:
		b.WriteString(v.list.View())
	}
	return b.String()
}

// SelectedParty returns the party under the cursor.
func (v *View) SelectedParty() (domain.Party, bool) {
	i := v.list.Selected()
	if i < 0 || i >= len(v.shown) {
		return domain.Party{}, false
	}
	return v.shown[i], true
}

// Count returns the number of parties shown.
func (v *View) Count() int {
	return len(v.shown)
}

// Filtering reports whether the filter has focus.
func (v *View) Filtering() bool {
	return v.filter.Focused()
}

// Err returns the last load error.
func (v *View) Err() error {
	return v.err
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.filter.SetWidth(width)
	// Title, filter and status bar.
	v.list.SetSize(width, height-6)
}
