package driven

import (
	"context"

	"github.com/custodia-labs/plataformas/internal/core/domain"
)

// PartyStore persists parties.
type PartyStore interface {
	// UpsertParty inserts or updates a party keyed by abbreviation.
	// The party's ID is set on return.
	UpsertParty(ctx context.Context, party *domain.Party) error

	// GetParty retrieves a party by ID.
	GetParty(ctx context.Context, id int64) (*domain.Party, error)

	// GetPartyByAbbreviation retrieves a party by its abbreviation.
	GetPartyByAbbreviation(ctx context.Context, abbr string) (*domain.Party, error)

	// ListParties returns all parties ordered by abbreviation.
	ListParties(ctx context.Context) ([]domain.Party, error)
}

// DocumentStore persists platform documents.
type DocumentStore interface {
	// SaveDocument inserts a document and sets its ID.
	// Returns domain.ErrAlreadyExists when the hash or path is registered.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)

	// GetDocumentByHash retrieves a document by content hash.
	GetDocumentByHash(ctx context.Context, hash string) (*domain.Document, error)

	// ListDocuments returns all documents ordered by ID.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// ListDocumentsByParty returns a party's documents ordered by ID.
	ListDocumentsByParty(ctx context.Context, partyID int64) ([]domain.Document, error)

	// UpdateWordCount records the word count after extraction.
	UpdateWordCount(ctx context.Context, id int64, words int) error
}

// PageTextStore is the extracted-text cache. Pages are written once per
// document and read by the indexer.
type PageTextStore interface {
	// SavePages stores every page of a document in one transaction and
	// returns them with IDs assigned.
	SavePages(ctx context.Context, documentID int64, pages []domain.ExtractedPage) ([]domain.PageText, error)

	// GetPages returns a document's pages ordered by page number.
	GetPages(ctx context.Context, documentID int64) ([]domain.PageText, error)

	// HasPages reports whether text was already extracted for the document.
	HasPages(ctx context.Context, documentID int64) (bool, error)

	// DeletePages removes a document's cached pages and their embeddings.
	DeletePages(ctx context.Context, documentID int64) error
}
