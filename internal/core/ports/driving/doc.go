// Package driving holds the ports the CLI, the TUI browser and the MCP
// server call into the core:
//
//   - CorpusService: discovery of party folders and page text extraction
//   - IndexService, RetrievalService: chunk embeddings and semantic search
//   - PipelineService: synthesis runs, backfills, dry-run plans and resets
//   - CategoryService, ReportService: categories and stored results
//   - SettingsService: typed view over the config file
//
// internal/core/services implements every port.
package driving
