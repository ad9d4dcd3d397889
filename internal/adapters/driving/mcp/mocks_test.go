package mcp

import (
	"context"

	"github.com/custodia-labs/plataformas/internal/core/domain"
)

type mockRetrievalService struct {
	chunks []domain.RetrievedChunk
	err    error

	query string
	scope domain.SearchScope
	k     int
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	query string,
	scope domain.SearchScope,
	k int,
) ([]domain.RetrievedChunk, error) {
	m.query, m.scope, m.k = query, scope, k
	return m.chunks, m.err
}

type mockCorpusService struct {
	parties   []domain.Party
	documents map[string][]domain.Document
	err       error
}

func (m *mockCorpusService) Discover(_ context.Context, _ string) (*domain.DiscoveryReport, error) {
	return &domain.DiscoveryReport{}, m.err
}

func (m *mockCorpusService) ListParties(_ context.Context) ([]domain.Party, error) {
	return m.parties, m.err
}

func (m *mockCorpusService) GetParty(_ context.Context, abbr string) (*domain.Party, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.parties {
		if m.parties[i].Abbreviation == abbr {
			return &m.parties[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockCorpusService) ListDocuments(_ context.Context, abbr string) ([]domain.Document, error) {
	return m.documents[abbr], m.err
}

func (m *mockCorpusService) EnsureText(_ context.Context, _ int64, _ bool) ([]domain.PageText, bool, error) {
	return nil, false, m.err
}

type mockCategoryService struct {
	categories []domain.Category
	err        error
}

func (m *mockCategoryService) List(_ context.Context, _ bool) ([]domain.Category, error) {
	return m.categories, m.err
}

func (m *mockCategoryService) Seed(_ context.Context) (int, error) {
	return 0, m.err
}

func (m *mockCategoryService) Load(_ context.Context, c []domain.Category) (int, error) {
	return len(c), m.err
}

func (m *mockCategoryService) SetActive(_ context.Context, _ string, _ bool) error {
	return m.err
}

type mockReportService struct {
	views []domain.PositionView
	err   error

	abbr, category string
}

func (m *mockReportService) Positions(_ context.Context, abbr, category string) ([]domain.PositionView, error) {
	m.abbr, m.category = abbr, category
	return m.views, m.err
}

func (m *mockReportService) History(_ context.Context, _, _ string) ([]domain.PositionView, error) {
	return nil, m.err
}

func (m *mockReportService) Status(_ context.Context) (*domain.StatusReport, error) {
	return &domain.StatusReport{}, m.err
}

func (m *mockReportService) RecentLogs(_ context.Context, _ int) ([]domain.ProcessingLogEntry, error) {
	return nil, m.err
}

func testParties() []domain.Party {
	return []domain.Party{
		{ID: 1, Abbreviation: "PLN", Name: "Partido Liberación Nacional", Ideology: "Socialdemocracia"},
		{ID: 2, Abbreviation: "PUSC", Name: "Partido Unidad Social Cristiana"},
	}
}

func testPorts() (*Ports, *mockRetrievalService, *mockReportService) {
	retrieval := &mockRetrievalService{}
	reports := &mockReportService{}
	return &Ports{
		Retrieval: retrieval,
		Corpus: &mockCorpusService{
			parties: testParties(),
			documents: map[string][]domain.Document{
				"PLN": {{ID: 10, PartyID: 1, Title: "Plan de Gobierno PLN 2026", PageCount: 120}},
			},
		},
		Categories: &mockCategoryService{categories: domain.DefaultCategories()[:2]},
		Reports:    reports,
	}, retrieval, reports
}
