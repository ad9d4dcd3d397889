// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The pipeline is built from small services: CorpusService extracts and
// caches page text, Indexer embeds chunks, Retriever runs nearest-neighbour
// search, Synthesizer asks the LLM for a cited position and Tracker guards
// the per-(document, category) state machine. Orchestrator sequences them.
//
// Services are pure Go with no CGO. They depend only on ports, the logger
// and google/uuid.
package services
