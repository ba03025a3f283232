package rag_test

import (
	"context"
	"errors"
	"iter"
	"sync"

	"github.com/akolanti/filebook/internal/rag/embedding"
	"github.com/akolanti/filebook/internal/rag/llm"
)

// MockEmbedder implements embedding.Embedder
type MockEmbedder struct {
	OnGetEmbedding func(ctx context.Context, text string) ([]float32, error)

	mu    sync.Mutex
	calls int
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, text string, intent embedding.Intent) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, text)
	}
	return []float32{1, 0, 0}, nil
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, texts []string, intent embedding.Intent) []embedding.Result {
	out := make([]embedding.Result, len(texts))
	for i, text := range texts {
		v, err := m.GetEmbedding(ctx, text, intent)
		out[i] = embedding.Result{Index: i, Vector: v, Err: err}
	}
	return out
}

func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockLLM implements llm.Provider
type MockLLM struct {
	OnGenerate func(ctx context.Context, prompt llm.Prompt) (string, error)
	// OnStream returns the deltas to yield and an error to end with
	OnStream func(ctx context.Context, prompt llm.Prompt) ([]string, error)

	mu      sync.Mutex
	calls   int
	prompts []llm.Prompt
}

func (m *MockLLM) record(prompt llm.Prompt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
}

func (m *MockLLM) Generate(ctx context.Context, model llm.Model, prompt llm.Prompt) (string, error) {
	m.record(prompt)
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, prompt)
	}
	return "mocked llm response", nil
}

func (m *MockLLM) Stream(ctx context.Context, model llm.Model, prompt llm.Prompt) iter.Seq2[string, error] {
	m.record(prompt)
	deltas, err := []string{"mocked ", "llm ", "response"}, error(nil)
	if m.OnStream != nil {
		deltas, err = m.OnStream(ctx, prompt)
	}
	return func(yield func(string, error) bool) {
		for _, d := range deltas {
			if !yield(d, nil) {
				return
			}
		}
		if err != nil {
			yield("", err)
		}
	}
}

func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockLLM) LastPrompt() llm.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return llm.Prompt{}
	}
	return m.prompts[len(m.prompts)-1]
}

// brokenWriter fails every write after the first n bytes were accepted.
type brokenWriter struct {
	n       int
	written []byte
}

func (w *brokenWriter) Write(p []byte) (int, error) {
	if len(w.written)+len(p) > w.n {
		return 0, errors.New("connection reset by peer")
	}
	w.written = append(w.written, p...)
	return len(p), nil
}
