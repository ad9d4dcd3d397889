package mcp

import (
	"github.com/custodia-labs/plataformas/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	// Retrieval runs semantic search over indexed chunks.
	Retrieval driving.RetrievalService

	// Corpus resolves parties and documents.
	Corpus driving.CorpusService

	// Categories lists the analysis categories. Optional.
	Categories driving.CategoryService

	// Reports reads stored positions.
	Reports driving.ReportService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	switch {
	case p.Retrieval == nil:
		return ErrMissingRetrievalService
	case p.Corpus == nil:
		return ErrMissingCorpusService
	case p.Reports == nil:
		return ErrMissingReportService
	}
	return nil
}
