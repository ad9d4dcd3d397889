package parties

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/plataformas/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driving"
)

type stubCorpus struct {
	driving.CorpusService
	parties []domain.Party
	err     error
}

func (s *stubCorpus) ListParties(context.Context) ([]domain.Party, error) {
	return s.parties, s.err
}

func sampleParties() []domain.Party {
	return []domain.Party{
		{Name: "Partido Acción Ciudadana", Abbreviation: "PAC", Website: "pac.cr"},
		{Name: "Partido Unidad Social Cristiana", Abbreviation: "PUSC", Ideology: "Christian democracy"},
	}
}

func loaded(t *testing.T, corpus driving.CorpusService) *View {
	t.Helper()
	v := NewView(nil, corpus)
	v.SetDimensions(100, 30)
	msg := v.Init()()
	v.Update(msg)
	return v
}

func TestView_Load(t *testing.T) {
	v := loaded(t, &stubCorpus{parties: sampleParties()})

	require.NoError(t, v.Err())
	assert.Equal(t, 2, v.Count())
	out := v.View()
	assert.Contains(t, out, "Partido Acción Ciudadana")
	assert.Contains(t, out, "Christian democracy")
	assert.Contains(t, out, "pac.cr")
}

func TestView_LoadError(t *testing.T) {
	v := loaded(t, &stubCorpus{err: errors.New("no database")})

	assert.EqualError(t, v.Err(), "no database")
	assert.Contains(t, v.View(), "no database")
}

func TestView_NilService(t *testing.T) {
	v := loaded(t, nil)

	assert.Error(t, v.Err())
}

func TestView_EmptyHint(t *testing.T) {
	v := loaded(t, &stubCorpus{})

	assert.Contains(t, v.View(), "plataformas discover")
}

func TestView_SelectEmitsParty(t *testing.T) {
	v := loaded(t, &stubCorpus{parties: sampleParties()})
	v.Update(tea.KeyMsg{Type: tea.KeyDown})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	msg, ok := cmd().(messages.PartySelected)
	require.True(t, ok)
	assert.Equal(t, "PUSC", msg.Party.Abbreviation)
}

func TestView_SelectOnEmptyList(t *testing.T) {
	v := loaded(t, &stubCorpus{})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
}

func TestView_FilterByAbbreviation(t *testing.T) {
	v := loaded(t, &stubCorpus{parties: sampleParties()})

	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	require.True(t, v.Filtering())
	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("pusc")})
	v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, v.Filtering())
	assert.Equal(t, 1, v.Count())
	p, ok := v.SelectedParty()
	require.True(t, ok)
	assert.Equal(t, "PUSC", p.Abbreviation)
}

func TestView_EscClearsFilter(t *testing.T) {
	v := loaded(t, &stubCorpus{parties: sampleParties()})
	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("zzz")})
	assert.Equal(t, 0, v.Count())

	v.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.False(t, v.Filtering())
	assert.Equal(t, 2, v.Count())
}

func TestView_Reload(t *testing.T) {
	corpus := &stubCorpus{parties: sampleParties()[:1]}
	v := loaded(t, corpus)
	corpus.parties = sampleParties()

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.NotNil(t, cmd)
	v.Update(cmd())

	assert.Equal(t, 2, v.Count())
}
