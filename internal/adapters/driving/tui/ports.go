// Package tui provides an interactive terminal browser for synthesized
// party positions. It implements a driving adapter over the core services.
package tui

import (
	"github.com/custodia-labs/plataformas/internal/core/ports/driving"
)

// Ports aggregates the driving ports the browser reads from.
type Ports struct {
	// Corpus lists parties.
	Corpus driving.CorpusService

	// Reports reads positions and their history.
	Reports driving.ReportService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Corpus == nil {
		return ErrMissingCorpusService
	}
	if p.Reports == nil {
		return ErrMissingReportService
	}
	return nil
}
