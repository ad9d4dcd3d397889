package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
	"github.com/custodia-labs/plataformas/internal/core/ports/driving"
)

// Ensure ReportService implements the interface.
var _ driving.ReportService = (*ReportService)(nil)

// ReportService reads stored positions and processing state.
type ReportService struct {
	parties    driven.PartyStore
	documents  driven.DocumentStore
	categories driven.CategoryStore
	positions  driven.PositionStore
	status     driven.StatusStore
	embeddings driven.EmbeddingStore
	logs       driven.ProcessingLogStore
}

// NewReportService creates a new report service.
func NewReportService(
	parties driven.PartyStore,
	documents driven.DocumentStore,
	categories driven.CategoryStore,
	positions driven.PositionStore,
	status driven.StatusStore,
	embeddings driven.EmbeddingStore,
	logs driven.ProcessingLogStore,
) *ReportService {
	return &ReportService{
		parties:    parties,
		documents:  documents,
		categories: categories,
		positions:  positions,
		status:     status,
		embeddings: embeddings,
		logs:       logs,
	}
}

// Positions returns a party's positions in category display order,
// optionally restricted to one category.
func (s *ReportService) Positions(ctx context.Context, abbr, categoryKey string) ([]domain.PositionView, error) {
	party, err := s.party(ctx, abbr)
	if err != nil {
		return nil, err
	}
	cats, err := s.categoryIndex(ctx)
	if err != nil {
		return nil, err
	}

	positions, err := s.positions.ListPositionsByParty(ctx, party.ID)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}

	views := make([]domain.PositionView, 0, len(positions))
	for _, p := range positions {
		cat := cats[p.CategoryID]
		if categoryKey != "" && cat.Key != categoryKey {
			continue
		}
		views = append(views, domain.PositionView{Party: *party, Category: cat, Position: p})
	}
	return views, nil
}

// History returns replaced positions for a party and category, newest first.
func (s *ReportService) History(ctx context.Context, abbr, categoryKey string) ([]domain.PositionView, error) {
	party, err := s.party(ctx, abbr)
	if err != nil {
		return nil, err
	}
	cat, err := s.categories.GetCategoryByKey(ctx, categoryKey)
	if err != nil {
		return nil, fmt.Errorf("get category %q: %w", categoryKey, err)
	}

	history, err := s.positions.ListHistory(ctx, party.ID, cat.ID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	views := make([]domain.PositionView, 0, len(history))
	for _, p := range history {
		views = append(views, domain.PositionView{Party: *party, Category: *cat, Position: p})
	}
	return views, nil
}

// Status summarises the corpus, spend and per-category progress.
func (s *ReportService) Status(ctx context.Context) (*domain.StatusReport, error) {
	parties, err := s.parties.ListParties(ctx)
	if err != nil {
		return nil, fmt.Errorf("list parties: %w", err)
	}
	docs, err := s.documents.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	embeddings, err := s.embeddings.CountEmbeddings(ctx, domain.SearchScope{}, "")
	if err != nil {
		return nil, fmt.Errorf("count embeddings: %w", err)
	}
	totals, err := s.positions.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("position totals: %w", err)
	}
	progress, err := s.status.Progress(ctx)
	if err != nil {
		return nil, fmt.Errorf("progress: %w", err)
	}

	return &domain.StatusReport{
		Parties:    len(parties),
		Documents:  len(docs),
		Embeddings: embeddings,
		Totals:     totals,
		Progress:   progress,
	}, nil
}

// RecentLogs returns the latest processing-log rows.
func (s *ReportService) RecentLogs(ctx context.Context, limit int) ([]domain.ProcessingLogEntry, error) {
	if s.logs == nil {
		return nil, nil
	}
	return s.logs.RecentLogs(ctx, limit)
}

func (s *ReportService) party(ctx context.Context, abbr string) (*domain.Party, error) {
	party, err := s.parties.GetPartyByAbbreviation(ctx, strings.ToUpper(strings.TrimSpace(abbr)))
	if err != nil {
		return nil, fmt.Errorf("get party %s: %w", abbr, err)
	}
	return party, nil
}

func (s *ReportService) categoryIndex(ctx context.Context) (map[int64]domain.Category, error) {
	cats, err := s.categories.ListCategories(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	index := make(map[int64]domain.Category, len(cats))
	for _, c := range cats {
		index[c.ID] = c
	}
	return index, nil
}
