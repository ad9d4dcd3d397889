package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/plataformas/internal/core/domain"
)

// SearchPlatformInput is the input schema for the search_platform tool.
type SearchPlatformInput struct {
	Party string `json:"party" jsonschema:"party abbreviation, e.g. PLN"`
	Query string `json:"query" jsonschema:"natural-language query in Spanish"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of excerpts (default 15)"`
}

// SearchPlatformOutput is the output schema for the search_platform tool.
type SearchPlatformOutput struct {
	Party    string          `json:"party"`
	Excerpts []ExcerptOutput `json:"excerpts"`
	Count    int             `json:"count"`
}

// ExcerptOutput is one retrieved chunk.
type ExcerptOutput struct {
	Page       int     `json:"page"`
	Similarity float64 `json:"similarity"`
	Text       string  `json:"text"`
}

// GetPositionInput is the input schema for the get_position tool.
type GetPositionInput struct {
	Party    string `json:"party" jsonschema:"party abbreviation, e.g. PLN"`
	Category string `json:"category,omitempty" jsonschema:"category key, e.g. salud; empty returns all categories"`
}

// GetPositionOutput is the output schema for the get_position tool.
type GetPositionOutput struct {
	Positions []PositionOutput `json:"positions"`
	Count     int              `json:"count"`
}

// PositionOutput is the presentation shape of a stored position.
type PositionOutput struct {
	Party            string   `json:"party"`
	Category         string   `json:"category"`
	CategoryName     string   `json:"category_name"`
	Summary          string   `json:"summary"`
	KeyProposals     []string `json:"key_proposals"`
	IdeologyPosition string   `json:"ideology_position,omitempty"`
	BudgetMentioned  string   `json:"budget_mentioned,omitempty"`
	ConfidenceScore  *float64 `json:"confidence_score,omitempty"`
	Model            string   `json:"model,omitempty"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_platform",
		Description: "Semantic search over one party's platform, returning cited page excerpts",
	}, s.handleSearchPlatform)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_position",
		Description: "Get a party's summarised position for a category, or all categories",
	}, s.handleGetPosition)
}

func (s *Server) handleSearchPlatform(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchPlatformInput,
) (*mcp.CallToolResult, SearchPlatformOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchPlatformOutput{}, fmt.Errorf("query is required")
	}

	party, err := s.ports.Corpus.GetParty(ctx, input.Party)
	if err != nil {
		return nil, SearchPlatformOutput{}, fmt.Errorf("party %q: %w", input.Party, err)
	}

	chunks, err := s.ports.Retrieval.Retrieve(ctx, input.Query, domain.SearchScope{PartyID: party.ID}, input.Limit)
	if err != nil {
		return nil, SearchPlatformOutput{}, err
	}

	output := SearchPlatformOutput{
		Party:    party.Abbreviation,
		Excerpts: make([]ExcerptOutput, len(chunks)),
		Count:    len(chunks),
	}
	for i, c := range chunks {
		output.Excerpts[i] = ExcerptOutput{
			Page:       c.PageNumber,
			Similarity: c.Similarity,
			Text:       c.Text,
		}
	}
	return nil, output, nil
}

func (s *Server) handleGetPosition(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetPositionInput,
) (*mcp.CallToolResult, GetPositionOutput, error) {
	views, err := s.ports.Reports.Positions(ctx, input.Party, input.Category)
	if err != nil {
		return nil, GetPositionOutput{}, err
	}

	output := GetPositionOutput{
		Positions: make([]PositionOutput, len(views)),
		Count:     len(views),
	}
	for i, v := range views {
		output.Positions[i] = toPositionOutput(v)
	}
	return nil, output, nil
}

func toPositionOutput(v domain.PositionView) PositionOutput {
	proposals := v.Position.KeyProposals
	if proposals == nil {
		proposals = []string{}
	}
	return PositionOutput{
		Party:            v.Party.Abbreviation,
		Category:         v.Category.Key,
		CategoryName:     v.Category.Name,
		Summary:          v.Position.Summary,
		KeyProposals:     proposals,
		IdeologyPosition: v.Position.IdeologyPosition,
		BudgetMentioned:  v.Position.BudgetMentioned,
		ConfidenceScore:  v.Position.ConfidenceScore,
		Model:            v.Position.Model,
	}
}
