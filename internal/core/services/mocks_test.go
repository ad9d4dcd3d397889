package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
)

// --- Mock implementations shared by the service tests ---

// mockEmbedder derives a deterministic vector from the words of a text.
// Texts sharing words end up close together.
type mockEmbedder struct {
	mu      sync.Mutex
	model   string
	calls   int
	failOn  string // Embed fails for texts containing this substring
	failErr error
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{model: "mock-embed"}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, int, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.failOn != "" && strings.Contains(text, m.failOn) {
		err := m.failErr
		if err == nil {
			err = domain.NewBackendError("mock", 400, "bad chunk")
		}
		return nil, 0, err
	}

	vec := make([]float32, 16)
	words := strings.Fields(strings.ToLower(text))
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%16]++
	}
	return vec, len(words), nil
}

func (m *mockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockEmbedder) Dimensions() int              { return 16 }
func (m *mockEmbedder) ModelName() string            { return m.model }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockLLM replays scripted responses and errors in order.
type mockLLM struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	usage     domain.TokenUsage
	echoModel string
	requests  []driven.GenerateRequest
}

func (m *mockLLM) Generate(_ context.Context, req driven.GenerateRequest) (*driven.GenerateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := len(m.requests)
	m.requests = append(m.requests, req)

	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	content := ""
	switch {
	case i < len(m.responses):
		content = m.responses[i]
	case len(m.responses) > 0:
		content = m.responses[len(m.responses)-1]
	}
	model := m.echoModel
	if model == "" {
		model = "gpt-4o"
	}
	return &driven.GenerateResponse{Content: content, Usage: m.usage, Model: model}, nil
}

func (m *mockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *mockLLM) ModelName() string            { return "gpt-4o" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// mockExtractor returns fixed pages for any path.
type mockExtractor struct {
	mu    sync.Mutex
	pages []domain.ExtractedPage
	err   error
	calls int
}

func (m *mockExtractor) Extract(_ context.Context, _ string) (*domain.ExtractionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &domain.ExtractionResult{Pages: m.pages}, nil
}

func (m *mockExtractor) PageCount(_ string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return len(m.pages), nil
}

func (m *mockExtractor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockExtractor) Close() error { return nil }

// mockPromptStore serves prompts from a map.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if p, ok := m.prompts[name]; ok {
		return p, nil
	}
	return "", errors.New("prompt not found")
}

func (m *mockPromptStore) Reload() {}

// mockChunker splits text on blank lines.
type mockChunker struct{}

func (mockChunker) Name() string { return "mock" }

func (mockChunker) Split(text string) []domain.Chunk {
	var chunks []domain.Chunk
	offset := 0
	for _, part := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(part) != "" {
			chunks = append(chunks, domain.Chunk{
				Index: len(chunks),
				Text:  part,
				Start: offset,
				End:   offset + len(part),
			})
		}
		offset += len(part) + 2
	}
	return chunks
}

// mockValidator records validation calls.
type mockValidator struct {
	embeddingErr error
	llmErr       error
	embedCalls   int
	llmCalls     int
}

func (m *mockValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error {
	m.embedCalls++
	return m.embeddingErr
}

func (m *mockValidator) ValidateLLM(_ *domain.LLMSettings) error {
	m.llmCalls++
	return m.llmErr
}

// mockQueryCache is a map-backed query cache.
type mockQueryCache struct {
	mu      sync.Mutex
	vectors map[string][]float32
	gets    int
	getErr  error
}

func newMockQueryCache() *mockQueryCache {
	return &mockQueryCache{vectors: make(map[string][]float32)}
}

func (c *mockQueryCache) Get(_ context.Context, model, query string) ([]float32, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.vectors[model+"|"+query]
	return v, ok, nil
}

func (c *mockQueryCache) Set(_ context.Context, model, query string, vector []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vectors[model+"|"+query] = vector
	return nil
}

func (c *mockQueryCache) Close() error { return nil }

// noSleep records backoff durations without waiting.
type noSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (n *noSleep) sleep(_ context.Context, d time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.waits = append(n.waits, d)
	return nil
}
