package domain

import (
	"fmt"
	"time"
)

// Party is a political party registered in the corpus.
type Party struct {
	// ID is the store-assigned identifier.
	ID int64

	// Name is the full party name.
	Name string

	// Abbreviation is the unique short name (e.g. "PLN").
	// It also prefixes the party's platform folder.
	Abbreviation string

	// FolderName is the directory the platform was discovered in.
	FolderName string

	// Ideology is an optional self-declared label from metadata.json.
	Ideology string

	// Website is an optional party URL.
	Website string

	// CreatedAt is when the party was first registered.
	CreatedAt time.Time
}

// Document is one platform PDF belonging to one party.
// It is immutable once registered; a changed file produces a new hash.
type Document struct {
	// ID is the store-assigned identifier.
	ID int64

	// PartyID links to the owning Party.
	PartyID int64

	// Title is the human-readable title.
	Title string

	// FilePath is the absolute path of the PDF.
	FilePath string

	// FileHash is the hex SHA-256 of the file contents.
	FileHash string

	// PageCount is the number of pages in the PDF.
	PageCount int

	// WordCount is filled in after extraction.
	WordCount int

	// CreatedAt is when the document was registered.
	CreatedAt time.Time
}

// PlatformTitle returns the default document title for a party.
func PlatformTitle(partyName string, year int) string {
	return fmt.Sprintf("Plan de Gobierno %s %d", partyName, year)
}

// ElectionYear is the election the corpus covers.
const ElectionYear = 2026

// DiscoveryReport summarises a scan of a platforms directory.
type DiscoveryReport struct {
	// Registered holds documents added by this scan.
	Registered []Document

	// Parties is the number of party folders upserted.
	Parties int

	// Skipped counts PDFs whose hash was already registered.
	Skipped int

	// Errors holds one message per folder that could not be registered.
	Errors []string
}
