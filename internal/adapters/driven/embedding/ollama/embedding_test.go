package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/plataformas/internal/core/domain"
)

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
}

func TestEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		assert.Equal(t, "salud", req.Input)

		_, _ = w.Write([]byte(`{"embeddings":[[0.5,0.25,-0.75]],"prompt_eval_count":2}`))
	}))
	defer server.Close()

	svc := NewEmbeddingService(Config{BaseURL: server.URL})
	vec, tokens, err := svc.Embed(context.Background(), "salud")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25, -0.75}, vec)
	assert.Equal(t, 2, tokens)
}

func TestEmbed_Errors(t *testing.T) {
	t.Run("model missing is fatal", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"model not found"}`))
		}))
		defer server.Close()

		_, _, err := NewEmbeddingService(Config{BaseURL: server.URL}).Embed(context.Background(), "x")
		require.Error(t, err)
		assert.False(t, domain.IsTransient(err))
	})

	t.Run("overloaded is transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, _, err := NewEmbeddingService(Config{BaseURL: server.URL}).Embed(context.Background(), "x")
		assert.True(t, domain.IsTransient(err))
	})

	t.Run("empty embeddings", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"embeddings":[]}`))
		}))
		defer server.Close()

		_, _, err := NewEmbeddingService(Config{BaseURL: server.URL}).Embed(context.Background(), "x")
		assert.Error(t, err)
	})
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	assert.NoError(t, NewEmbeddingService(Config{BaseURL: server.URL}).Ping(context.Background()))
}
