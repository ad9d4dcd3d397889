package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/plataformas/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/plataformas/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/plataformas/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/plataformas/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/plataformas/internal/adapters/driving/tui/views/detail"
	"github.com/custodia-labs/plataformas/internal/adapters/driving/tui/views/parties"
	"github.com/custodia-labs/plataformas/internal/adapters/driving/tui/views/positions"
)

// App is the browser model: parties, then a party's positions, then one position.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	partiesView   *parties.View
	positionsView *positions.View
	detailView    *detail.View
	statusBar     *status.Bar

	currentView messages.ViewType
	// previousView is where esc returns to from help.
	previousView messages.ViewType

	err    error
	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new browser with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	return &App{
		ports:         ports,
		ctx:           context.Background(),
		styles:        s,
		keymap:        km,
		partiesView:   parties.NewView(s, ports.Corpus),
		positionsView: positions.NewView(s, ports.Reports),
		detailView:    detail.NewView(s, ports.Reports),
		statusBar:     status.NewBar(s, km),
		currentView:   messages.ViewParties,
	}, nil
}

// WithContext sets the context for the app and its views.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.partiesView.SetContext(ctx)
	a.positionsView.SetContext(ctx)
	a.detailView.SetContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	a.statusBar.SetState(status.StateLoading)
	return tea.Batch(
		tea.SetWindowTitle("plataformas"),
		a.partiesView.Init(),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.currentView == messages.ViewHelp {
			if msg.Type == tea.KeyEsc || msg.String() == "?" {
				a.currentView = a.previousView
			}
			return a, nil
		}
		if a.partiesView.Filtering() {
			return a, a.forward(msg)
		}
		if msg.String() == "q" {
			return a, tea.Quit
		}
		if msg.String() == "?" {
			a.previousView = a.currentView
			a.currentView = messages.ViewHelp
			return a, nil
		}
		return a, a.forward(msg)

	case messages.PartiesLoaded:
		a.partiesView, cmd = a.partiesView.Update(msg)
		a.noteLoad(msg.Err, a.partiesView.Count(), "parties")
		return a, cmd

	case messages.PartySelected:
		a.currentView = messages.ViewPositions
		a.statusBar.SetState(status.StateLoading)
		return a, a.positionsView.SetParty(msg.Party)

	case messages.PositionsLoaded:
		a.positionsView, cmd = a.positionsView.Update(msg)
		if a.currentView == messages.ViewPositions {
			a.noteLoad(msg.Err, a.positionsView.Count(), "positions")
		}
		return a, cmd

	case messages.PositionSelected:
		a.detailView.SetPosition(msg.Position)
		a.currentView = messages.ViewDetail
		a.statusBar.SetState(status.StateReading)
		a.statusBar.SetMessage(fmt.Sprintf("%s / %s",
			msg.Position.Party.Abbreviation, msg.Position.Category.Name))
		return a, nil

	case messages.HistoryLoaded:
		a.detailView, cmd = a.detailView.Update(msg)
		if msg.Err != nil {
			a.err = msg.Err
		}
		return a, cmd

	case messages.ViewChanged:
		a.currentView = msg.View
		switch msg.View {
		case messages.ViewParties:
			a.noteLoad(a.partiesView.Err(), a.partiesView.Count(), "parties")
		case messages.ViewPositions:
			a.noteLoad(a.positionsView.Err(), a.positionsView.Count(), "positions")
		case messages.ViewDetail, messages.ViewHelp:
		}
		return a, nil

	case messages.ErrorOccurred:
		a.err = msg.Err
		a.statusBar.SetState(status.StateError)
		a.statusBar.SetMessage(msg.Err.Error())
		return a, nil

	case messages.Quit:
		return a, tea.Quit
	}

	return a, a.forward(msg)
}

func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewParties:
		a.partiesView, cmd = a.partiesView.Update(msg)
	case messages.ViewPositions:
		a.positionsView, cmd = a.positionsView.Update(msg)
	case messages.ViewDetail:
		a.detailView, cmd = a.detailView.Update(msg)
	case messages.ViewHelp:
	}
	return cmd
}

func (a *App) noteLoad(err error, count int, noun string) {
	if err != nil {
		a.err = err
		a.statusBar.SetState(status.StateError)
		a.statusBar.SetMessage(err.Error())
		return
	}
	a.statusBar.Clear()
	a.statusBar.SetCount(count, noun)
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var body string
	switch a.currentView {
	case messages.ViewPositions:
		body = a.positionsView.View()
	case messages.ViewDetail:
		body = a.detailView.View()
	case messages.ViewHelp:
		body = a.viewHelp()
	default:
		body = a.partiesView.View()
	}

	// Pin the status bar to the last line.
	gap := a.height - strings.Count(body, "\n") - 2
	if gap < 1 {
		gap = 1
	}
	return body + strings.Repeat("\n", gap) + a.statusBar.View()
}

func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help"))
	b.WriteString("\n\n")
	for _, group := range a.keymap.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(fmt.Sprintf("  %-12s %s\n", h.Key, h.Desc))
		}
		b.WriteString("\n")
	}
	b.WriteString(a.styles.Muted.Render("[esc] back"))
	return b.String()
}

// Run starts the browser.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the active view.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sizes the app and every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.partiesView.SetDimensions(width, height)
	a.positionsView.SetDimensions(width, height)
	a.detailView.SetDimensions(width, height)
	a.statusBar.SetWidth(width)
}
