// Package list provides a navigable row list for the TUI.
package list

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/plataformas/internal/adapters/driving/tui/styles"
)

// Row is one entry: a title, a right-aligned tag and a one-line preview.
type Row struct {
	Title   string
	Tag     string
	Preview string
}

// List displays rows with a cursor and scrolls to keep it visible.
type List struct {
	rows     []Row
	selected int
	styles   *styles.Styles
	width    int
	height   int
	empty    string
}

// New creates a list that shows emptyText when it has no rows.
func New(s *styles.Styles, emptyText string) *List {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &List{styles: s, width: 80, height: 10, empty: emptyText}
}

// Update handles navigation keys.
func (l *List) Update(msg tea.Msg) (*List, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		case "home", "g":
			l.selected = 0
		case "end", "G":
			if len(l.rows) > 0 {
				l.selected = len(l.rows) - 1
			}
		}
	}
	return l, nil
}

// View renders the visible window of rows.
func (l *List) View() string {
	if len(l.rows) == 0 {
		return l.styles.Muted.Render(l.empty)
	}

	// Two lines per row.
	visible := l.height / 2
	if visible < 1 {
		visible = 1
	}
	start := 0
	if l.selected >= visible {
		start = l.selected - visible + 1
	}
	end := start + visible
	if end > len(l.rows) {
		end = len(l.rows)
	}

	lines := make([]string, 0, (end-start)*2)
	for i := start; i < end; i++ {
		lines = append(lines, l.renderRow(i))
	}
	return strings.Join(lines, "\n")
}

func (l *List) renderRow(i int) string {
	row := l.rows[i]
	titleWidth := l.width - lipgloss.Width(row.Tag) - 6
	if titleWidth < 10 {
		titleWidth = 10
	}
	title := Truncate(row.Title, titleWidth)
	pad := titleWidth - len([]rune(title))
	if pad < 0 {
		pad = 0
	}

	head := "  " + title + strings.Repeat(" ", pad) + "  "
	var line string
	if i == l.selected {
		line = l.styles.Selected.Render("> " + head[2:] + row.Tag)
	} else {
		line = l.styles.Normal.Render(head) + l.styles.Muted.Render(row.Tag)
	}

	preview := Truncate(row.Preview, l.width-6)
	return line + "\n" + l.styles.Muted.Render("    "+preview)
}

// SetRows replaces the rows and resets the cursor.
func (l *List) SetRows(rows []Row) {
	l.rows = rows
	l.selected = 0
}

// Rows returns the current rows.
func (l *List) Rows() []Row {
	return l.rows
}

// Selected returns the cursor index.
func (l *List) Selected() int {
	return l.selected
}

// SetSelected moves the cursor when index is in range.
func (l *List) SetSelected(index int) {
	if index >= 0 && index < len(l.rows) {
		l.selected = index
	}
}

// MoveUp moves the cursor up.
func (l *List) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves the cursor down.
func (l *List) MoveDown() {
	if l.selected < len(l.rows)-1 {
		l.selected++
	}
}

// Len returns the number of rows.
func (l *List) Len() int {
	return len(l.rows)
}

// SetSize sets the render area.
func (l *List) SetSize(width, height int) {
	l.width = width
	l.height = height
}

// Truncate shortens s to at most n runes, ending in "..." when cut.
func Truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
