// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"github.com/custodia-labs/plataformas/internal/core/domain"
)

// PartiesLoaded carries the registered parties.
type PartiesLoaded struct {
	Parties []domain.Party
	Err     error
}

// PartySelected is sent when a party is opened from the list.
type PartySelected struct {
	Party domain.Party
}

// PositionsLoaded carries the current positions of one party.
type PositionsLoaded struct {
	Abbreviation string
	Positions    []domain.PositionView
	Err          error
}

// PositionSelected is sent when a category row is opened.
type PositionSelected struct {
	Position domain.PositionView
}

// HistoryLoaded carries replaced positions for the open detail.
type HistoryLoaded struct {
	CategoryKey string
	History     []domain.PositionView
	Err         error
}

// ErrorOccurred is sent when an error needs to be displayed.
type ErrorOccurred struct {
	Err error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// Quit is sent to exit the application.
type Quit struct{}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewParties lists registered parties.
	ViewParties ViewType = iota
	// ViewPositions lists one party's positions by category.
	ViewPositions
	// ViewDetail shows one position.
	ViewDetail
	// ViewHelp shows keybindings.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewParties:
		return "parties"
	case ViewPositions:
		return "positions"
	case ViewDetail:
		return "detail"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}
