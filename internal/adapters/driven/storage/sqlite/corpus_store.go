package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
)

// ==================== Party Store ====================

// partyStore implements driven.PartyStore.
type partyStore struct {
	store *Store
}

var _ driven.PartyStore = (*partyStore)(nil)

const partyColumns = `id, name, abbreviation, folder_name, ideology, website, created_at`

// UpsertParty inserts or updates a party keyed by abbreviation.
func (s *partyStore) UpsertParty(ctx context.Context, party *domain.Party) error {
	if party == nil || party.Abbreviation == "" {
		return domain.ErrInvalidInput
	}

	var createdAt string
	err := s.store.db.QueryRowContext(ctx, `
		INSERT INTO parties (name, abbreviation, folder_name, ideology, website, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(abbreviation) DO UPDATE SET
			name = excluded.name,
			folder_name = excluded.folder_name,
			ideology = excluded.ideology,
			website = excluded.website
		RETURNING id, created_at
	`, party.Name, party.Abbreviation, party.FolderName,
		nullString(party.Ideology), nullString(party.Website),
		formatTime(time.Now())).Scan(&party.ID, &createdAt)
	if err != nil {
		return fmt.Errorf("saving party: %w", err)
	}
	party.CreatedAt = parseTime(createdAt)
	return nil
}

// GetParty retrieves a party by ID.
func (s *partyStore) GetParty(ctx context.Context, id int64) (*domain.Party, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+partyColumns+` FROM parties WHERE id = ?`, id)
	return scanParty(row)
}

// GetPartyByAbbreviation retrieves a party by its abbreviation.
func (s *partyStore) GetPartyByAbbreviation(ctx context.Context, abbr string) (*domain.Party, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+partyColumns+` FROM parties WHERE abbreviation = ?`, abbr)
	return scanParty(row)
}

// ListParties returns all parties ordered by abbreviation.
func (s *partyStore) ListParties(ctx context.Context) ([]domain.Party, error) {
	rows, err := s.store.db.QueryContext(ctx, `SELECT `+partyColumns+` FROM parties ORDER BY abbreviation`)
	if err != nil {
		return nil, fmt.Errorf("querying parties: %w", err)
	}
	defer rows.Close()

	var parties []domain.Party //nolint:prealloc // size unknown from query
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, err
		}
		parties = append(parties, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating parties: %w", err)
	}
	return parties, nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `id, party_id, title, file_path, file_hash, page_count, word_count, created_at`

// SaveDocument inserts a document and sets its ID.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil {
		return domain.ErrInvalidInput
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (party_id, title, file_path, file_hash, page_count, word_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, doc.PartyID, doc.Title, doc.FilePath, doc.FileHash, doc.PageCount, doc.WordCount,
		formatTime(doc.CreatedAt))
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading document id: %w", err)
	}
	doc.ID = id
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// GetDocumentByHash retrieves a document by content hash.
func (s *documentStore) GetDocumentByHash(ctx context.Context, hash string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE file_hash = ?`, hash)
	return scanDocument(row)
}

// ListDocuments returns all documents ordered by ID.
func (s *documentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	return s.list(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY id`)
}

// ListDocumentsByParty returns a party's documents ordered by ID.
func (s *documentStore) ListDocumentsByParty(ctx context.Context, partyID int64) ([]domain.Document, error) {
	return s.list(ctx, `SELECT `+documentColumns+` FROM documents WHERE party_id = ? ORDER BY id`, partyID)
}

func (s *documentStore) list(ctx context.Context, query string, args ...any) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// UpdateWordCount records the word count after extraction.
func (s *documentStore) UpdateWordCount(ctx context.Context, id int64, words int) error {
	res, err := s.store.db.ExecContext(ctx, "UPDATE documents SET word_count = ? WHERE id = ?", words, id)
	if err != nil {
		return fmt.Errorf("updating word count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ==================== Page Text Store ====================

// pageTextStore implements driven.PageTextStore.
type pageTextStore struct {
	store *Store
}

var _ driven.PageTextStore = (*pageTextStore)(nil)

// SavePages stores every page of a document in one transaction.
func (s *pageTextStore) SavePages(
	ctx context.Context, documentID int64, pages []domain.ExtractedPage,
) ([]domain.PageText, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existing int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM page_text WHERE document_id = ?", documentID).Scan(&existing); err != nil {
		return nil, fmt.Errorf("counting pages: %w", err)
	}
	if existing > 0 {
		return nil, domain.ErrAlreadyExists
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO page_text (document_id, page_number, text, method, extracted_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing page insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	saved := make([]domain.PageText, 0, len(pages))
	for _, p := range pages {
		method := p.Method
		if !method.IsValid() {
			method = domain.ExtractionNative
		}
		res, err := stmt.ExecContext(ctx, documentID, p.PageNumber, p.Text, string(method), formatTime(now))
		if isUniqueViolation(err) {
			return nil, domain.ErrAlreadyExists
		}
		if err != nil {
			return nil, fmt.Errorf("saving page %d: %w", p.PageNumber, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("reading page id: %w", err)
		}
		saved = append(saved, domain.PageText{
			ID:          id,
			DocumentID:  documentID,
			PageNumber:  p.PageNumber,
			Text:        p.Text,
			Method:      method,
			ExtractedAt: now,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing pages: %w", err)
	}
	sortPages(saved)
	return saved, nil
}

// GetPages returns a document's pages ordered by page number.
func (s *pageTextStore) GetPages(ctx context.Context, documentID int64) ([]domain.PageText, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, page_number, text, method, extracted_at
		FROM page_text WHERE document_id = ?
		ORDER BY page_number
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying pages: %w", err)
	}
	defer rows.Close()

	var pages []domain.PageText //nolint:prealloc // size unknown from query
	for rows.Next() {
		var p domain.PageText
		var method, extractedAt string
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.PageNumber, &p.Text, &method, &extractedAt); err != nil {
			return nil, fmt.Errorf("scanning page: %w", err)
		}
		p.Method = domain.ExtractionMethod(method)
		p.ExtractedAt = parseTime(extractedAt)
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pages: %w", err)
	}
	return pages, nil
}

// HasPages reports whether text was already extracted for the document.
func (s *pageTextStore) HasPages(ctx context.Context, documentID int64) (bool, error) {
	var exists int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM page_text WHERE document_id = ?)", documentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking pages: %w", err)
	}
	return exists == 1, nil
}

// DeletePages removes a document's cached pages and their embeddings.
func (s *pageTextStore) DeletePages(ctx context.Context, documentID int64) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM embeddings WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting embeddings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM page_text WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting pages: %w", err)
	}
	return tx.Commit()
}

// ==================== Helper Functions ====================

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanParty scans a party row.
func scanParty(row rowScanner) (*domain.Party, error) {
	var p domain.Party
	var ideology, website sql.NullString
	var createdAt string

	if err := row.Scan(&p.ID, &p.Name, &p.Abbreviation, &p.FolderName,
		&ideology, &website, &createdAt); err != nil {
		return nil, scanError(err, "party")
	}
	p.Ideology = ideology.String
	p.Website = website.String
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

// scanDocument scans a document row.
func scanDocument(row rowScanner) (*domain.Document, error) {
	var d domain.Document
	var createdAt string

	if err := row.Scan(&d.ID, &d.PartyID, &d.Title, &d.FilePath, &d.FileHash,
		&d.PageCount, &d.WordCount, &createdAt); err != nil {
		return nil, scanError(err, "document")
	}
	d.CreatedAt = parseTime(createdAt)
	return &d, nil
}

// sortPages orders pages by page number.
func sortPages(pages []domain.PageText) {
	sort.Slice(pages, func(i, j int) bool { return pages[i].PageNumber < pages[j].PageNumber })
}
