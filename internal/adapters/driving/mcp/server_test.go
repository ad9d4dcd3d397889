package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("missing ports returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingRetrievalService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports, _, _ := testPorts()
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	full, _, _ := testPorts()

	tests := []struct {
		name  string
		ports Ports
		want  error
	}{
		{"no retrieval", Ports{Corpus: full.Corpus, Reports: full.Reports}, ErrMissingRetrievalService},
		{"no corpus", Ports{Retrieval: full.Retrieval, Reports: full.Reports}, ErrMissingCorpusService},
		{"no reports", Ports{Retrieval: full.Retrieval, Corpus: full.Corpus}, ErrMissingReportService},
		{"categories optional", Ports{Retrieval: full.Retrieval, Corpus: full.Corpus, Reports: full.Reports}, nil},
		{"all ports", *full, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ports.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
