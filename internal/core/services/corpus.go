package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
	"github.com/custodia-labs/plataformas/internal/core/ports/driving"
	"github.com/custodia-labs/plataformas/internal/logger"
)

// Ensure CorpusService implements the interface.
var _ driving.CorpusService = (*CorpusService)(nil)

// metadataFile is the optional per-party metadata file.
const metadataFile = "metadata.json"

// CorpusService registers party platforms and caches their page text.
type CorpusService struct {
	parties   driven.PartyStore
	documents driven.DocumentStore
	pages     driven.PageTextStore
	extractor driven.TextExtractor
}

// NewCorpusService creates a new corpus service.
// The extractor may be nil; discovery then records a zero page count and
// EnsureText only serves cached text.
func NewCorpusService(
	parties driven.PartyStore,
	documents driven.DocumentStore,
	pages driven.PageTextStore,
	extractor driven.TextExtractor,
) *CorpusService {
	return &CorpusService{
		parties:   parties,
		documents: documents,
		pages:     pages,
		extractor: extractor,
	}
}

// partyMetadata mirrors metadata.json.
type partyMetadata struct {
	Party struct {
		Name     string `json:"name"`
		Ideology string `json:"ideology"`
		Website  string `json:"website"`
	} `json:"party"`
}

// Discover scans dir for party folders named ABBR-Full-Name that hold
// ABBR.pdf, upserting each party and registering new platform documents.
// Problems with one folder are recorded in the report and do not stop
// the scan.
func (s *CorpusService) Discover(ctx context.Context, dir string) (*domain.DiscoveryReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	report := &domain.DiscoveryReport{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		folder := entry.Name()
		abbr, rest, ok := strings.Cut(folder, "-")
		if !ok || abbr == "" || rest == "" {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: folder name is not ABBR-Name", folder))
			continue
		}

		pdfPath := filepath.Join(dir, folder, abbr+".pdf")
		if _, err := os.Stat(pdfPath); err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %s.pdf not found", folder, abbr))
			continue
		}

		party := domain.Party{
			Name:         strings.ReplaceAll(rest, "-", " "),
			Abbreviation: abbr,
			FolderName:   folder,
		}
		if err := applyMetadata(&party, filepath.Join(dir, folder, metadataFile)); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", folder, err))
		}

		if err := s.parties.UpsertParty(ctx, &party); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: save party: %v", folder, err))
			continue
		}
		report.Parties++

		doc, err := s.registerDocument(ctx, party, pdfPath)
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			report.Skipped++
			logger.Debug("%s already registered", pdfPath)
		case err != nil:
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", folder, err))
		default:
			report.Registered = append(report.Registered, *doc)
			logger.Info("Registered %s (%s), %d pages", party.Name, abbr, doc.PageCount)
		}
	}

	return report, nil
}

// registerDocument saves a platform PDF unless its content hash is known.
func (s *CorpusService) registerDocument(ctx context.Context, party domain.Party, path string) (*domain.Document, error) {
	hash, err := fileHash(path)
	if err != nil {
		return nil, fmt.Errorf("hash %s: %w", path, err)
	}

	if _, err := s.documents.GetDocumentByHash(ctx, hash); err == nil {
		return nil, domain.ErrAlreadyExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup hash: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	doc := &domain.Document{
		PartyID:  party.ID,
		Title:    domain.PlatformTitle(party.Name, domain.ElectionYear),
		FilePath: abs,
		FileHash: hash,
	}
	if s.extractor != nil {
		n, err := s.extractor.PageCount(abs)
		if err != nil {
			logger.Warn("Page count for %s: %v", abs, err)
		}
		doc.PageCount = n
	}

	if err := s.documents.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	return doc, nil
}

// ListParties returns every registered party.
func (s *CorpusService) ListParties(ctx context.Context) ([]domain.Party, error) {
	return s.parties.ListParties(ctx)
}

// GetParty finds a party by abbreviation, case-insensitively.
func (s *CorpusService) GetParty(ctx context.Context, abbr string) (*domain.Party, error) {
	return s.parties.GetPartyByAbbreviation(ctx, strings.ToUpper(strings.TrimSpace(abbr)))
}

// ListDocuments returns a party's documents, or all documents when abbr is empty.
func (s *CorpusService) ListDocuments(ctx context.Context, abbr string) ([]domain.Document, error) {
	if abbr == "" {
		return s.documents.ListDocuments(ctx)
	}
	party, err := s.GetParty(ctx, abbr)
	if err != nil {
		return nil, fmt.Errorf("get party %s: %w", abbr, err)
	}
	return s.documents.ListDocumentsByParty(ctx, party.ID)
}

// EnsureText returns a document's page text, extracting and caching it on
// first use. The boolean reports whether extraction ran. With force set,
// cached text and its embeddings are discarded first.
func (s *CorpusService) EnsureText(ctx context.Context, documentID int64, force bool) ([]domain.PageText, bool, error) {
	doc, err := s.documents.GetDocument(ctx, documentID)
	if err != nil {
		return nil, false, fmt.Errorf("get document: %w", err)
	}

	if force {
		if err := s.pages.DeletePages(ctx, documentID); err != nil {
			return nil, false, fmt.Errorf("clear page text: %w", err)
		}
	} else {
		has, err := s.pages.HasPages(ctx, documentID)
		if err != nil {
			return nil, false, fmt.Errorf("check page text: %w", err)
		}
		if has {
			pages, err := s.pages.GetPages(ctx, documentID)
			if err != nil {
				return nil, false, fmt.Errorf("get page text: %w", err)
			}
			return pages, false, nil
		}
	}

	if s.extractor == nil {
		return nil, false, fmt.Errorf("%w: no extractor configured", domain.ErrExtractionFailed)
	}

	done := logger.Timed("Extract %s", filepath.Base(doc.FilePath))
	result, err := s.extractor.Extract(ctx, doc.FilePath)
	done()
	if err != nil {
		return nil, false, err
	}
	if len(result.Pages) == 0 {
		return nil, false, fmt.Errorf("%w: %s has no text", domain.ErrExtractionFailed, doc.FilePath)
	}

	pages, err := s.pages.SavePages(ctx, documentID, result.Pages)
	if err != nil {
		return nil, false, fmt.Errorf("save page text: %w", err)
	}
	if err := s.documents.UpdateWordCount(ctx, documentID, result.WordCount()); err != nil {
		return nil, false, fmt.Errorf("update word count: %w", err)
	}
	return pages, true, nil
}

// applyMetadata overlays metadata.json onto a party when the file exists.
func applyMetadata(party *domain.Party, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", metadataFile, err)
	}

	var meta partyMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("parse %s: %w", metadataFile, err)
	}
	if meta.Party.Name != "" {
		party.Name = meta.Party.Name
	}
	party.Ideology = meta.Party.Ideology
	party.Website = meta.Party.Website
	return nil
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
