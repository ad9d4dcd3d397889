package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/plataformas/internal/core/domain"
)

func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: uri},
	}
}

func TestExtractPartyAbbr(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want string
	}{
		{"valid", "plataformas://parties/PLN/positions", "PLN"},
		{"wrong scheme", "file://parties/PLN/positions", ""},
		{"missing suffix", "plataformas://parties/PLN", ""},
		{"empty abbreviation", "plataformas://parties//positions", ""},
		{"nested path", "plataformas://parties/PLN/x/positions", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractPartyAbbr(tt.uri))
		})
	}
}

func TestServer_handlePartiesResource(t *testing.T) {
	ports, _, _ := testPorts()
	server, err := NewServer(ports)
	require.NoError(t, err)

	res, err := server.handlePartiesResource(context.Background(), makeReadResourceRequest("plataformas://parties"))
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, "application/json", res.Contents[0].MIMEType)

	var parties []partyInfo
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &parties))
	require.Len(t, parties, 2)
	assert.Equal(t, "PLN", parties[0].Abbreviation)
	assert.Equal(t, "Socialdemocracia", parties[0].Ideology)
	assert.Equal(t, []docInfo{{ID: 10, Title: "Plan de Gobierno PLN 2026", PageCount: 120}}, parties[0].Documents)
	assert.Empty(t, parties[1].Documents)
}

func TestServer_handleCategoriesResource(t *testing.T) {
	t.Run("lists categories", func(t *testing.T) {
		ports, _, _ := testPorts()
		server, err := NewServer(ports)
		require.NoError(t, err)

		res, err := server.handleCategoriesResource(context.Background(), makeReadResourceRequest("plataformas://categories"))
		require.NoError(t, err)
		assert.Contains(t, res.Contents[0].Text, `"key": "educacion"`)
		assert.Contains(t, res.Contents[0].Text, `"key": "salud"`)
	})

	t.Run("no category service", func(t *testing.T) {
		ports, _, _ := testPorts()
		ports.Categories = nil
		server, err := NewServer(ports)
		require.NoError(t, err)

		res, err := server.handleCategoriesResource(context.Background(), makeReadResourceRequest("plataformas://categories"))
		require.NoError(t, err)
		assert.Equal(t, "[]", res.Contents[0].Text)
	})
}

func TestServer_handlePositionsResource(t *testing.T) {
	t.Run("returns the party's positions", func(t *testing.T) {
		ports, _, reports := testPorts()
		reports.views = []domain.PositionView{{
			Party:    testParties()[1],
			Category: domain.Category{Key: "empleo", Name: "Empleo"},
			Position: domain.PartyPosition{Summary: "Reducir cargas sociales [Página 3]"},
		}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		res, err := server.handlePositionsResource(context.Background(),
			makeReadResourceRequest("plataformas://parties/PUSC/positions"))
		require.NoError(t, err)

		var out []PositionOutput
		require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &out))
		require.Len(t, out, 1)
		assert.Equal(t, "empleo", out[0].Category)
		assert.Equal(t, "PUSC", reports.abbr)
		assert.Empty(t, reports.category)
	})

	t.Run("malformed URI", func(t *testing.T) {
		ports, _, _ := testPorts()
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, err = server.handlePositionsResource(context.Background(),
			makeReadResourceRequest("plataformas://parties/PUSC"))
		assert.Error(t, err)
	})
}
