// Package positions provides the per-party position list view for the TUI.
package positions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/plataformas/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/plataformas/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/plataformas/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driving"
)

// View lists one party's positions, one row per category.
type View struct {
	ctx       context.Context
	styles    *styles.Styles
	reports   driving.ReportService
	list      *list.List
	party     domain.Party
	positions []domain.PositionView
	err       error
	loading   bool
	width     int
	height    int
}

// NewView creates the position list view.
func NewView(s *styles.Styles, reports driving.ReportService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		ctx:     context.Background(),
		styles:  s,
		reports: reports,
		list:    list.New(s, "No positions yet. Run 'plataformas process' for this party."),
		width:   80,
		height:  24,
	}
}

// SetContext sets the context used by loads.
func (v *View) SetContext(ctx context.Context) {
	v.ctx = ctx
}

// SetParty switches to a party and loads its positions.
func (v *View) SetParty(p domain.Party) tea.Cmd {
	v.party = p
	v.positions = nil
	v.list.SetRows(nil)
	v.err = nil
	v.loading = true

	ctx, reports, abbr := v.ctx, v.reports, p.Abbreviation
	return func() tea.Msg {
		if reports == nil {
			return messages.PositionsLoaded{Abbreviation: abbr, Err: errors.New("report service not available")}
		}
		views, err := reports.Positions(ctx, abbr, "")
		return messages.PositionsLoaded{Abbreviation: abbr, Positions: views, Err: err}
	}
}

// Update handles messages for the position list.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.PositionsLoaded:
		// A slow load for a party we already left.
		if msg.Abbreviation != v.party.Abbreviation {
			return v, nil
		}
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.setPositions(msg.Positions)
		}
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if pv, ok := v.SelectedPosition(); ok {
				return v, func() tea.Msg { return messages.PositionSelected{Position: pv} }
			}
			return v, nil
		case "esc":
			return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewParties} }
		}
		v.list, _ = v.list.Update(msg)
	}
	return v, nil
}

func (v *View) setPositions(views []domain.PositionView) {
	v.positions = views
	rows := make([]list.Row, 0, len(views))
	for _, pv := range views {
		rows = append(rows, list.Row{
			Title:   pv.Category.Name,
			Tag:     v.styles.Confidence(pv.Position.ConfidenceScore),
			Preview: pv.Position.Summary,
		})
	}
	v.list.SetRows(rows)
}

// View renders the position list.
func (v *View) View() string {
	var b strings.Builder
	title := v.party.Name
	if v.party.Abbreviation != "" {
		title = fmt.Sprintf("%s (%s)", v.party.Name, v.party.Abbreviation)
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n")
	if v.party.Ideology != "" {
		b.WriteString(v.styles.Muted.Render(v.party.Ideology))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading positions..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %v", v.err)))
	default:
		b.WriteString(v.list.View())
	}
	return b.String()
}

// SelectedPosition returns the position under the cursor.
func (v *View) SelectedPosition() (domain.PositionView, bool) {
	i := v.list.Selected()
	if i < 0 || i >= len(v.positions) {
		return domain.PositionView{}, false
	}
	return v.positions[i], true
}

// Party returns the party being shown.
func (v *View) Party() domain.Party {
	return v.party
}

// Count returns the number of positions loaded.
func (v *View) Count() int {
	return len(v.positions)
}

// Err returns the last load error.
func (v *View) Err() error {
	return v.err
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.list.SetSize(width, height-6)
}
