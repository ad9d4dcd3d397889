package tui

import (
	"context"

	"github.com/custodia-labs/plataformas/internal/core/domain"
)

type mockCorpusService struct {
	parties []domain.Party
	err     error
}

func (m *mockCorpusService) Discover(context.Context, string) (*domain.DiscoveryReport, error) {
	return &domain.DiscoveryReport{}, nil
}

func (m *mockCorpusService) ListParties(context.Context) ([]domain.Party, error) {
	return m.parties, m.err
}

func (m *mockCorpusService) GetParty(_ context.Context, abbr string) (*domain.Party, error) {
	for _, p := range m.parties {
		if p.Abbreviation == abbr {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockCorpusService) ListDocuments(context.Context, string) ([]domain.Document, error) {
	return nil, nil
}

func (m *mockCorpusService) EnsureText(context.Context, int64, bool) ([]domain.PageText, bool, error) {
	return nil, false, nil
}

type mockReportService struct {
	positions map[string][]domain.PositionView
	history   []domain.PositionView
	err       error
}

func (m *mockReportService) Positions(_ context.Context, abbr, _ string) ([]domain.PositionView, error) {
	return m.positions[abbr], m.err
}

func (m *mockReportService) History(context.Context, string, string) ([]domain.PositionView, error) {
	return m.history, m.err
}

func (m *mockReportService) Status(context.Context) (*domain.StatusReport, error) {
	return &domain.StatusReport{}, nil
}

func (m *mockReportService) RecentLogs(context.Context, int) ([]domain.ProcessingLogEntry, error) {
	return nil, nil
}

func testParties() []domain.Party {
	return []domain.Party{
		{ID: 1, Name: "Partido Liberación Nacional", Abbreviation: "PLN", Ideology: "Social democracy"},
		{ID: 2, Name: "Frente Amplio", Abbreviation: "FA", Ideology: "Left"},
	}
}

func testPositions() map[string][]domain.PositionView {
	score := 0.8
	return map[string][]domain.PositionView{
		"PLN": {
			{
				Party:    testParties()[0],
				Category: domain.Category{ID: 1, Key: "education", Name: "Education"},
				Position: domain.PartyPosition{
					Summary:         "Expand public preschool [p. 12].",
					KeyProposals:    []string{"Universal preschool [p. 12]"},
					ConfidenceScore: &score,
					Model:           "gpt-4o-mini",
				},
			},
			{
				Party:    testParties()[0],
				Category: domain.Category{ID: 2, Key: "health", Name: "Health"},
				Position: domain.PartyPosition{Summary: "Reduce waiting lists [p. 20]."},
			},
		},
	}
}

func newTestPorts() *Ports {
	return &Ports{
		Corpus:  &mockCorpusService{parties: testParties()},
		Reports: &mockReportService{positions: testPositions()},
	}
}
