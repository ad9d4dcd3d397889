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
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
)

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Equal(t, "json", req.Format)
		assert.Equal(t, 500, req.Options.NumPredict)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		_, _ = w.Write([]byte(`{"model":"llama3.2","message":{"role":"assistant","content":"{}"},"done":true,"prompt_eval_count":40,"eval_count":5}`))
	}))
	defer server.Close()

	svc := NewLLMService(LLMConfig{BaseURL: server.URL})
	resp, err := svc.Generate(context.Background(), driven.GenerateRequest{
		System: "s", Prompt: "p", MaxTokens: 500, JSON: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Content)
	assert.Equal(t, domain.TokenUsage{InputTokens: 40, OutputTokens: 5}, resp.Usage)
}

func TestGenerate_Errors(t *testing.T) {
	t.Run("http error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := NewLLMService(LLMConfig{BaseURL: server.URL}).Generate(context.Background(), driven.GenerateRequest{Prompt: "p"})
		assert.True(t, domain.IsTransient(err))
	})

	t.Run("error field", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"error":"model 'x' not found"}`))
		}))
		defer server.Close()

		_, err := NewLLMService(LLMConfig{BaseURL: server.URL}).Generate(context.Background(), driven.GenerateRequest{Prompt: "p"})
		require.Error(t, err)
		assert.False(t, domain.IsTransient(err))
	})
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	assert.Error(t, NewLLMService(LLMConfig{BaseURL: server.URL}).Ping(context.Background()))
}
