// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - PartyStore, DocumentStore, PageTextStore: the corpus
//   - CategoryStore: analysis categories
//   - StatusStore, PositionStore: processing state and results
//   - ProcessingLogStore: append-only stage log
//   - EmbeddingStore: vector storage and nearest-neighbour search
//   - TextExtractor: PDF text with OCR fallback
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Without it, indexing and retrieval are disabled.
//   - LLMService: Without it, position synthesis is disabled.
//   - QueryEmbeddingCache: Without it, every query is embedded.
//   - PromptStore: Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
