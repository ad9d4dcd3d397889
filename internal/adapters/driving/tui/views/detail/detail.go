// Package detail renders one party position in a scrollable viewport.
package detail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/plataformas/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/plataformas/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driving"
)

// View shows the summary, proposals and generation metadata of a position.
type View struct {
	ctx         context.Context
	styles      *styles.Styles
	reports     driving.ReportService
	viewport    viewport.Model
	position    domain.PositionView
	history     []domain.PositionView
	showHistory bool
	historyErr  error
	width       int
	height      int
}

// NewView creates the detail view.
func NewView(s *styles.Styles, reports driving.ReportService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		ctx:      context.Background(),
		styles:   s,
		reports:  reports,
		viewport: viewport.New(80, 20),
		width:    80,
		height:   24,
	}
}

// SetContext sets the context used by history loads.
func (v *View) SetContext(ctx context.Context) {
	v.ctx = ctx
}

// SetPosition replaces the shown position and scrolls to the top.
func (v *View) SetPosition(pv domain.PositionView) {
	v.position = pv
	v.history = nil
	v.historyErr = nil
	v.showHistory = false
	v.render()
	v.viewport.GotoTop()
}

func (v *View) loadHistory() tea.Cmd {
	ctx, reports := v.ctx, v.reports
	abbr, key := v.position.Party.Abbreviation, v.position.Category.Key
	return func() tea.Msg {
		if reports == nil {
			return messages.HistoryLoaded{CategoryKey: key, Err: errors.New("report service not available")}
		}
		h, err := reports.History(ctx, abbr, key)
		return messages.HistoryLoaded{CategoryKey: key, History: h, Err: err}
	}
}

// Update handles scrolling and history toggling.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.HistoryLoaded:
		if msg.CategoryKey != v.position.Category.Key {
			return v, nil
		}
		v.history = msg.History
		v.historyErr = msg.Err
		v.render()
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewPositions} }
		case "h":
			v.showHistory = !v.showHistory
			v.render()
			if v.showHistory && v.history == nil && v.historyErr == nil {
				return v, v.loadHistory()
			}
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

func (v *View) render() {
	v.viewport.SetContent(v.Content())
}

// Content returns the rendered body without the viewport frame.
func (v *View) Content() string {
	pos := v.position.Position
	wrap := lipgloss.NewStyle().Width(v.contentWidth())

	var b strings.Builder
	b.WriteString(v.styles.Label.Render("Summary"))
	b.WriteString("\n")
	b.WriteString(wrap.Render(v.styles.HighlightCitations(pos.Summary)))
	b.WriteString("\n\n")

	if len(pos.KeyProposals) > 0 {
		b.WriteString(v.styles.Label.Render("Key proposals"))
		b.WriteString("\n")
		for i, p := range pos.KeyProposals {
			b.WriteString(wrap.Render(fmt.Sprintf("%d. %s", i+1, v.styles.HighlightCitations(p))))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	v.field(&b, "Ideology", pos.IdeologyPosition)
	v.field(&b, "Budget", pos.BudgetMentioned)
	b.WriteString(v.styles.Label.Render("Confidence: "))
	b.WriteString(v.styles.Confidence(pos.ConfidenceScore))
	b.WriteString("\n\n")

	b.WriteString(v.styles.Muted.Render(fmt.Sprintf(
		"%d chunks (avg similarity %.2f) · %d tokens · $%.4f · %s",
		pos.ChunksUsed, pos.AvgSimilarity, pos.TokensUsed(), pos.CostUSD, pos.Model)))
	if !pos.UpdatedAt.IsZero() {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render("Updated " + pos.UpdatedAt.Format("2006-01-02 15:04")))
	}

	if v.showHistory {
		b.WriteString("\n\n")
		v.renderHistory(&b, wrap)
	}
	return b.String()
}

func (v *View) field(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	b.WriteString(v.styles.Label.Render(label + ": "))
	b.WriteString(v.styles.Normal.Render(value))
	b.WriteString("\n")
}

func (v *View) renderHistory(b *strings.Builder, wrap lipgloss.Style) {
	b.WriteString(v.styles.Subtitle.Render("History"))
	b.WriteString("\n")
	switch {
	case v.historyErr != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %v", v.historyErr)))
	case v.history == nil:
		b.WriteString(v.styles.Muted.Render("Loading history..."))
	case len(v.history) == 0:
		b.WriteString(v.styles.Muted.Render("No earlier versions."))
	default:
		for _, h := range v.history {
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("%s · %s",
				h.Position.CreatedAt.Format("2006-01-02 15:04"), h.Position.Model)))
			b.WriteString("\n")
			b.WriteString(wrap.Render(h.Position.Summary))
			b.WriteString("\n\n")
		}
	}
}

func (v *View) contentWidth() int {
	w := v.width - 4
	if w < 20 {
		w = 20
	}
	return w
}

// View renders the detail view.
func (v *View) View() string {
	title := fmt.Sprintf("%s · %s", v.position.Party.Abbreviation, v.position.Category.Name)
	header := v.styles.Title.Render(title)
	footer := v.styles.Muted.Render(fmt.Sprintf("%3.0f%%", v.viewport.ScrollPercent()*100))
	return header + "\n\n" + v.viewport.View() + "\n" + footer
}

// Position returns the position being shown.
func (v *View) Position() domain.PositionView {
	return v.position
}

// ShowingHistory reports whether history is expanded.
func (v *View) ShowingHistory() bool {
	return v.showHistory
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.viewport.Width = width
	// Header, footer and status bar.
	vh := height - 5
	if vh < 3 {
		vh = 3
	}
	v.viewport.Height = vh
	v.render()
}
