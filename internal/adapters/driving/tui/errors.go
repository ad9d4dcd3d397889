package tui

import "errors"

// ErrMissingCorpusService is returned when the corpus service is not provided.
var ErrMissingCorpusService = errors.New("tui: corpus service is required")

// ErrMissingReportService is returned when the report service is not provided.
var ErrMissingReportService = errors.New("tui: report service is required")

// ErrInvalidPorts is returned when no ports are given at all.
var ErrInvalidPorts = errors.New("tui: invalid ports configuration")
