package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const uriScheme = "plataformas://"

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "parties",
		Name:        "parties",
		Description: "Registered parties and their platform documents",
		MIMEType:    "application/json",
	}, s.handlePartiesResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "categories",
		Name:        "categories",
		Description: "Analysis categories in display order",
		MIMEType:    "application/json",
	}, s.handleCategoriesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "parties/{abbr}/positions",
		Name:        "party-positions",
		Description: "Every stored position for one party",
		MIMEType:    "application/json",
	}, s.handlePositionsResource)
}

type partyInfo struct {
	Abbreviation string    `json:"abbreviation"`
	Name         string    `json:"name"`
	Ideology     string    `json:"ideology,omitempty"`
	Website      string    `json:"website,omitempty"`
	Documents    []docInfo `json:"documents"`
}

type docInfo struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	PageCount int    `json:"page_count"`
}

func (s *Server) handlePartiesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	parties, err := s.ports.Corpus.ListParties(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing parties: %w", err)
	}

	infos := make([]partyInfo, len(parties))
	for i, p := range parties {
		docs, err := s.ports.Corpus.ListDocuments(ctx, p.Abbreviation)
		if err != nil {
			return nil, fmt.Errorf("listing documents for %s: %w", p.Abbreviation, err)
		}
		infos[i] = partyInfo{
			Abbreviation: p.Abbreviation,
			Name:         p.Name,
			Ideology:     p.Ideology,
			Website:      p.Website,
			Documents:    make([]docInfo, len(docs)),
		}
		for j, d := range docs {
			infos[i].Documents[j] = docInfo{ID: d.ID, Title: d.Title, PageCount: d.PageCount}
		}
	}
	return jsonResource(req.Params.URI, infos)
}

func (s *Server) handleCategoriesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type categoryInfo struct {
		Key         string `json:"key"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Active      bool   `json:"active"`
	}

	if s.ports.Categories == nil {
		return jsonResource(req.Params.URI, []categoryInfo{})
	}

	cats, err := s.ports.Categories.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	infos := make([]categoryInfo, len(cats))
	for i, c := range cats {
		infos[i] = categoryInfo{Key: c.Key, Name: c.Name, Description: c.Description, Active: c.Active}
	}
	return jsonResource(req.Params.URI, infos)
}

func (s *Server) handlePositionsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	abbr := extractPartyAbbr(req.Params.URI)
	if abbr == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	views, err := s.ports.Reports.Positions(ctx, abbr, "")
	if err != nil {
		return nil, fmt.Errorf("getting positions: %w", err)
	}
	out := make([]PositionOutput, len(views))
	for i, v := range views {
		out[i] = toPositionOutput(v)
	}
	return jsonResource(req.Params.URI, out)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractPartyAbbr extracts ABBR from plataformas://parties/{abbr}/positions.
func extractPartyAbbr(uri string) string {
	const prefix = uriScheme + "parties/"
	const suffix = "/positions"

	if !strings.HasPrefix(uri, prefix) || !strings.HasSuffix(uri, suffix) {
		return ""
	}
	abbr := strings.TrimSuffix(strings.TrimPrefix(uri, prefix), suffix)
	if abbr == "" || strings.Contains(abbr, "/") {
		return ""
	}
	return abbr
}
