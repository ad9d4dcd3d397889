// Package domain defines the core business entities for Plataformas.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Party, Document: a political party and its platform PDF
//   - PageText: extracted text for one page of a document
//   - Chunk, Embedding: the retrieval units built from page text
//   - Category: an analysis dimension applied to every document
//   - PartyPosition: the synthesized summary for (party, document, category)
//   - ProcessingStatus: the per-(document, category) state machine
//   - CategoryResult, DocumentSummary, BatchReport: pipeline reports
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
