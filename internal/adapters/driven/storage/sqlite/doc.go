// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements every store the pipeline
// needs through a single database connection:
//
//   - PartyStore, DocumentStore, PageTextStore: the corpus and its text cache
//   - EmbeddingStore: chunk vectors as float32 blobs with cosine ranking
//   - CategoryStore: analysis categories
//   - StatusStore, PositionStore: the per-pair state machine and positions
//   - ProcessingLogStore: the append-only processing log
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.plataformas/data/plataformas.db
//
// # Concurrency
//
// Claim is a single conditional upsert and Complete runs in one immediate
// transaction, so parallel workers sharing the file never process the same
// pair twice. A started pair owned by another run is only taken over once
// it is older than the stale threshold, so a second process sharing the file
// leaves live work alone while a crashed run's pairs are eventually retried.
package sqlite
