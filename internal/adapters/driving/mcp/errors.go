// Package mcp provides an MCP (Model Context Protocol) server adapter.
// It lets AI assistants search party platforms and read stored positions.
package mcp

import "errors"

// Errors returned by Ports.Validate.
var (
	ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
	ErrMissingCorpusService    = errors.New("mcp: corpus service is required")
	ErrMissingReportService    = errors.New("mcp: report service is required")
)
