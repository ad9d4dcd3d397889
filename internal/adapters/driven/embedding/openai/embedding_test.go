package openai

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

func newTestService(t *testing.T, handler http.HandlerFunc) *EmbeddingService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewEmbeddingService(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	return svc
}

func TestNewEmbeddingService(t *testing.T) {
	t.Run("requires API key", func(t *testing.T) {
		_, err := NewEmbeddingService(Config{})
		assert.Error(t, err)
	})

	t.Run("applies defaults", func(t *testing.T) {
		svc, err := NewEmbeddingService(Config{APIKey: "k"})
		require.NoError(t, err)
		assert.Equal(t, DefaultModel, svc.ModelName())
		assert.Equal(t, 1536, svc.Dimensions())
	})

	t.Run("known model dimensions", func(t *testing.T) {
		svc, err := NewEmbeddingService(Config{APIKey: "k", Model: "text-embedding-3-large"})
		require.NoError(t, err)
		assert.Equal(t, 3072, svc.Dimensions())
	})
}

func TestEmbed(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultModel, req.Model)
		assert.Equal(t, []string{"educación pública"}, req.Input)

		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.5,-0.25],"index":0}],"usage":{"prompt_tokens":4,"total_tokens":4}}`))
	})

	vec, tokens, err := svc.Embed(context.Background(), "educación pública")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.25}, vec)
	assert.Equal(t, 4, tokens)
}

func TestEmbedBatch_OrdersByIndex(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"embedding":[2],"index":1},{"embedding":[1],"index":0}],"usage":{"prompt_tokens":7}}`))
	})

	vecs, tokens, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, vecs)
	assert.Equal(t, 7, tokens)
}

func TestEmbed_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantTransient bool
		wantRateLimit bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, true, true},
		{"server error", http.StatusBadGateway, `bad gateway`, true, false},
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, false, false},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"too long"}}`, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, _, err := svc.Embed(context.Background(), "x")
			require.Error(t, err)

			var backendErr *domain.BackendError
			require.ErrorAs(t, err, &backendErr)
			assert.Equal(t, tt.status, backendErr.StatusCode)
			assert.Equal(t, tt.wantTransient, domain.IsTransient(err))
			assert.Equal(t, tt.wantRateLimit, backendErr.Is(domain.ErrRateLimited))
		})
	}
}

func TestEmbed_NoData(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[],"usage":{"prompt_tokens":1}}`))
	})

	_, _, err := svc.Embed(context.Background(), "x")
	assert.Error(t, err)
}

func TestEmbed_NetworkErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, _, err = svc.Embed(context.Background(), "x")
	assert.True(t, domain.IsTransient(err))
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	assert.NoError(t, svc.Ping(context.Background()))

	failing := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	assert.Error(t, failing.Ping(context.Background()))
}
