package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
)

// Ensure the corpus stores implement their interfaces.
var (
	_ driven.PartyStore    = (*PartyStore)(nil)
	_ driven.DocumentStore = (*DocumentStore)(nil)
	_ driven.PageTextStore = (*PageTextStore)(nil)
)

// PartyStore is an in-memory implementation of driven.PartyStore.
type PartyStore struct {
	mu      sync.RWMutex
	nextID  int64
	parties map[int64]domain.Party
}

// NewPartyStore creates a new in-memory party store.
func NewPartyStore() *PartyStore {
	return &PartyStore{parties: make(map[int64]domain.Party)}
}

// UpsertParty inserts or updates a party keyed by abbreviation.
func (s *PartyStore) UpsertParty(_ context.Context, party *domain.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.parties {
		if p.Abbreviation == party.Abbreviation {
			party.ID = id
			party.CreatedAt = p.CreatedAt
			s.parties[id] = *party
			return nil
		}
	}
	s.nextID++
	party.ID = s.nextID
	party.CreatedAt = time.Now()
	s.parties[party.ID] = *party
	return nil
}

// GetParty retrieves a party by ID.
func (s *PartyStore) GetParty(_ context.Context, id int64) (*domain.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parties[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

// GetPartyByAbbreviation retrieves a party by abbreviation.
func (s *PartyStore) GetPartyByAbbreviation(_ context.Context, abbr string) (*domain.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.parties {
		if p.Abbreviation == abbr {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListParties returns all parties ordered by abbreviation.
func (s *PartyStore) ListParties(_ context.Context) ([]domain.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Party, 0, len(s.parties))
	for _, p := range s.parties {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Abbreviation < out[j].Abbreviation })
	return out, nil
}

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	nextID    int64
	documents map[int64]domain.Document
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{documents: make(map[int64]domain.Document)}
}

// SaveDocument inserts a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.documents {
		if d.FileHash == doc.FileHash || d.FilePath == doc.FilePath {
			return domain.ErrAlreadyExists
		}
	}
	s.nextID++
	doc.ID = s.nextID
	doc.CreatedAt = time.Now()
	s.documents[doc.ID] = *doc
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id int64) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

// GetDocumentByHash retrieves a document by content hash.
func (s *DocumentStore) GetDocumentByHash(_ context.Context, hash string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.documents {
		if d.FileHash == hash {
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListDocuments returns all documents ordered by ID.
func (s *DocumentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	return s.list(func(domain.Document) bool { return true }), nil
}

// ListDocumentsByParty returns a party's documents ordered by ID.
func (s *DocumentStore) ListDocumentsByParty(_ context.Context, partyID int64) ([]domain.Document, error) {
	return s.list(func(d domain.Document) bool { return d.PartyID == partyID }), nil
}

func (s *DocumentStore) list(keep func(domain.Document) bool) []domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Document, 0, len(s.documents))
	for _, d := range s.documents {
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateWordCount records the word count after extraction.
func (s *DocumentStore) UpdateWordCount(_ context.Context, id int64, words int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	d.WordCount = words
	s.documents[id] = d
	return nil
}

// PageTextStore is an in-memory implementation of driven.PageTextStore.
// Deleting pages also clears their embeddings when an EmbeddingStore is attached.
type PageTextStore struct {
	mu         sync.RWMutex
	nextID     int64
	pages      map[int64][]domain.PageText
	embeddings *EmbeddingStore
}

// NewPageTextStore creates a new in-memory page text store.
func NewPageTextStore(embeddings *EmbeddingStore) *PageTextStore {
	return &PageTextStore{
		pages:      make(map[int64][]domain.PageText),
		embeddings: embeddings,
	}
}

// SavePages stores every page of a document.
func (s *PageTextStore) SavePages(_ context.Context, documentID int64, pages []domain.ExtractedPage) ([]domain.PageText, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pages[documentID]) > 0 {
		return nil, domain.ErrAlreadyExists
	}
	saved := make([]domain.PageText, 0, len(pages))
	for _, p := range pages {
		s.nextID++
		saved = append(saved, domain.PageText{
			ID:          s.nextID,
			DocumentID:  documentID,
			PageNumber:  p.PageNumber,
			Text:        p.Text,
			Method:      p.Method,
			ExtractedAt: time.Now(),
		})
	}
	sort.Slice(saved, func(i, j int) bool { return saved[i].PageNumber < saved[j].PageNumber })
	s.pages[documentID] = saved
	return saved, nil
}

// GetPages returns a document's pages ordered by page number.
func (s *PageTextStore) GetPages(_ context.Context, documentID int64) ([]domain.PageText, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.PageText(nil), s.pages[documentID]...), nil
}

// HasPages reports whether a document has cached pages.
func (s *PageTextStore) HasPages(_ context.Context, documentID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages[documentID]) > 0, nil
}

// DeletePages removes a document's pages and their embeddings.
func (s *PageTextStore) DeletePages(ctx context.Context, documentID int64) error {
	s.mu.Lock()
	delete(s.pages, documentID)
	s.mu.Unlock()
	if s.embeddings != nil {
		_, err := s.embeddings.DeleteForDocument(ctx, documentID)
		return err
	}
	return nil
}
