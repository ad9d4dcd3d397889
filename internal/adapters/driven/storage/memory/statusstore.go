package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
)

// Ensure the result stores implement their interfaces.
var (
	_ driven.StatusStore        = (*StatusStore)(nil)
	_ driven.PositionStore      = (*StatusStore)(nil)
	_ driven.ProcessingLogStore = (*LogStore)(nil)
)

type pairKey struct {
	documentID int64
	categoryID int64
}

type positionKey struct {
	partyID    int64
	documentID int64
	categoryID int64
}

// StatusStore is an in-memory implementation of driven.StatusStore and
// driven.PositionStore. A single mutex makes Claim and Complete atomic.
type StatusStore struct {
	mu         sync.Mutex
	nextID     int64
	statuses   map[pairKey]domain.ProcessingStatus
	positions  map[positionKey]domain.PartyPosition
	history    []domain.PartyPosition
	documents  *DocumentStore
	categories *CategoryStore
	staleAfter time.Duration
}

// NewStatusStore creates a status store that reads documents and
// categories for backfill and progress queries.
func NewStatusStore(documents *DocumentStore, categories *CategoryStore) *StatusStore {
	return &StatusStore{
		statuses:   make(map[pairKey]domain.ProcessingStatus),
		positions:  make(map[positionKey]domain.PartyPosition),
		documents:  documents,
		categories: categories,
		staleAfter: domain.DefaultStaleClaimAfter,
	}
}

// SetStaleClaimAfter sets how old another run's claim must be before Claim
// takes it over. Zero takes over any other run's claim.
func (s *StatusStore) SetStaleClaimAfter(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staleAfter = d
}

// GetStatus returns the recorded status or domain.ErrNotFound.
func (s *StatusStore) GetStatus(_ context.Context, documentID, categoryID int64) (*domain.ProcessingStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[pairKey{documentID, categoryID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &st, nil
}

// Claim moves a pair to started for runID.
func (s *StatusStore) Claim(_ context.Context, runID string, documentID, categoryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{documentID, categoryID}
	now := time.Now()
	st, ok := s.statuses[key]
	if ok {
		switch {
		case st.State == domain.StateCompleted:
			return domain.ErrAlreadyCompleted
		case st.State == domain.StateStarted && st.RunID == runID:
			return domain.ErrAlreadyClaimed
		case st.State == domain.StateStarted && now.Sub(st.StartedAt) < s.staleAfter:
			return domain.ErrAlreadyClaimed
		}
	}
	s.statuses[key] = domain.ProcessingStatus{
		DocumentID: documentID,
		CategoryID: categoryID,
		State:      domain.StateStarted,
		RunID:      runID,
		StartedAt:  now,
		UpdatedAt:  now,
	}
	return nil
}

// Complete stores the position and marks the pair completed.
func (s *StatusStore) Complete(_ context.Context, runID string, pos *domain.PartyPosition, keepHistory bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{pos.DocumentID, pos.CategoryID}
	st, ok := s.statuses[key]
	if !ok || st.State != domain.StateStarted || st.RunID != runID {
		return domain.ErrInvalidTransition
	}

	now := time.Now()
	pk := positionKey{pos.PartyID, pos.DocumentID, pos.CategoryID}
	if prev, ok := s.positions[pk]; ok {
		if keepHistory {
			s.history = append(s.history, prev)
		}
		pos.ID = prev.ID
		pos.CreatedAt = prev.CreatedAt
	} else {
		s.nextID++
		pos.ID = s.nextID
		pos.CreatedAt = now
	}
	pos.UpdatedAt = now
	s.positions[pk] = *pos

	st.State = domain.StateCompleted
	st.CompletedAt = now
	st.UpdatedAt = now
	st.ErrorMessage = ""
	s.statuses[key] = st
	return nil
}

// Fail marks a pair started by runID as failed.
func (s *StatusStore) Fail(_ context.Context, runID string, documentID, categoryID int64, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{documentID, categoryID}
	st, ok := s.statuses[key]
	if !ok || st.State != domain.StateStarted || st.RunID != runID {
		return domain.ErrInvalidTransition
	}
	st.State = domain.StateFailed
	st.ErrorMessage = message
	st.UpdatedAt = time.Now()
	s.statuses[key] = st
	return nil
}

// Release returns a pair started by runID to pending.
func (s *StatusStore) Release(_ context.Context, runID string, documentID, categoryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{documentID, categoryID}
	st, ok := s.statuses[key]
	if !ok || st.State != domain.StateStarted || st.RunID != runID {
		return domain.ErrInvalidTransition
	}
	delete(s.statuses, key)
	return nil
}

// Reset deletes a completed pair's status.
func (s *StatusStore) Reset(_ context.Context, documentID, categoryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{documentID, categoryID}
	if st, ok := s.statuses[key]; ok && st.State == domain.StateCompleted {
		delete(s.statuses, key)
	}
	return nil
}

// DocumentsNotCompleted returns documents whose pair with the category is not completed.
func (s *StatusStore) DocumentsNotCompleted(ctx context.Context, categoryID int64) ([]int64, error) {
	docs, err := s.documents.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for _, d := range docs {
		st, ok := s.statuses[pairKey{d.ID, categoryID}]
		if ok && st.State == domain.StateCompleted {
			continue
		}
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// Progress counts states per active category.
func (s *StatusStore) Progress(ctx context.Context) ([]domain.CategoryProgress, error) {
	cats, err := s.categories.ListCategories(ctx, true)
	if err != nil {
		return nil, err
	}
	docs, err := s.documents.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CategoryProgress, 0, len(cats))
	for _, c := range cats {
		p := domain.CategoryProgress{Category: c, Total: len(docs)}
		for _, d := range docs {
			switch s.statuses[pairKey{d.ID, c.ID}].State {
			case domain.StateCompleted:
				p.Completed++
			case domain.StateFailed:
				p.Failed++
			case domain.StateStarted:
				p.Started++
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// GetPosition retrieves the position for (party, document, category).
func (s *StatusStore) GetPosition(_ context.Context, partyID, documentID, categoryID int64) (*domain.PartyPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[positionKey{partyID, documentID, categoryID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

// ListPositionsByParty returns a party's positions in category display order.
func (s *StatusStore) ListPositionsByParty(_ context.Context, partyID int64) ([]domain.PartyPosition, error) {
	s.mu.Lock()
	var out []domain.PartyPosition
	for k, p := range s.positions {
		if k.partyID == partyID {
			out = append(out, p)
		}
	}
	s.mu.Unlock()
	s.sortByCategory(out)
	return out, nil
}

// ListHistory returns replaced positions, newest first.
func (s *StatusStore) ListHistory(_ context.Context, partyID, categoryID int64) ([]domain.PartyPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PartyPosition
	for i := len(s.history) - 1; i >= 0; i-- {
		h := s.history[i]
		if h.PartyID == partyID && h.CategoryID == categoryID {
			out = append(out, h)
		}
	}
	return out, nil
}

// Totals aggregates stored positions.
func (s *StatusStore) Totals(_ context.Context) (domain.PositionTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var t domain.PositionTotals
	for _, p := range s.positions {
		t.Positions++
		t.TokensUsed += p.TokensUsed()
		t.CostUSD += p.CostUSD
	}
	return t, nil
}

func (s *StatusStore) sortByCategory(positions []domain.PartyPosition) {
	order := func(id int64) int {
		if c, ok := s.categories.categoryByID(id); ok {
			return c.DisplayOrder
		}
		return 0
	}
	sort.SliceStable(positions, func(i, j int) bool {
		oi, oj := order(positions[i].CategoryID), order(positions[j].CategoryID)
		if oi != oj {
			return oi < oj
		}
		return positions[i].DocumentID < positions[j].DocumentID
	})
}

// LogStore is an in-memory implementation of driven.ProcessingLogStore.
type LogStore struct {
	mu      sync.RWMutex
	entries []domain.ProcessingLogEntry
}

// NewLogStore creates a new in-memory processing log.
func NewLogStore() *LogStore {
	return &LogStore{}
}

// AppendLog inserts a log entry.
func (s *LogStore) AppendLog(_ context.Context, entry *domain.ProcessingLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = int64(len(s.entries) + 1)
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	s.entries = append(s.entries, *entry)
	return nil
}

// RecentLogs returns the newest entries first.
func (s *LogStore) RecentLogs(_ context.Context, limit int) ([]domain.ProcessingLogEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ProcessingLogEntry, 0, min(limit, len(s.entries)))
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

// Entries returns every entry in insertion order.
func (s *LogStore) Entries() []domain.ProcessingLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ProcessingLogEntry(nil), s.entries...)
}
