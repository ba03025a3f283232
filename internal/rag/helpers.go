package rag

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/akolanti/filebook/internal/domain/commonModels"
	"github.com/akolanti/filebook/internal/metrics"
	"github.com/akolanti/filebook/internal/rag/embedding"
	"github.com/akolanti/filebook/internal/rag/vectorDB"
	"github.com/akolanti/filebook/pkg/logger_i"
)

func (s *service) executeEmbeddingStep(ctx context.Context, question string) ([]float32, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("query_embedding", time.Since(start)) }()

	return s.embedder.GetEmbedding(ctx, question, embedding.IntentQuery)
}

func (s *service) executeVectorSearchStep(ctx context.Context, vec []float32, topK int, filter vectorDB.Filter) ([]commonModels.ScoredChunk, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	return s.vectorDB.Query(ctx, vec, topK, filter)
}

func (s *service) executeLLMStep(ctx context.Context, t *turn) (string, error) {
	provider, err := s.models.Resolve(t.model)
	if err != nil {
		return "", err
	}
	return provider.Generate(ctx, t.model, t.prompt)
}

// fanOut is the two sinks of a streamed answer: the client writer and the
// buffer that gets persisted. Once a client write fails the writer is
// abandoned and only the buffer keeps growing.
type fanOut struct {
	w      io.Writer
	buf    strings.Builder
	closed bool
	log    *logger_i.Logger
}

func newFanOut(w io.Writer, log *logger_i.Logger) *fanOut {
	return &fanOut{w: w, log: log}
}

func (f *fanOut) Send(delta string) {
	f.buf.WriteString(delta)
	if f.closed || f.w == nil {
		return
	}
	if _, err := io.WriteString(f.w, delta); err != nil {
		f.closed = true
		f.log.Warn("client went away, continuing without it", "error", err)
		return
	}
	if fl, ok := f.w.(http.Flusher); ok {
		fl.Flush()
	}
}

func (f *fanOut) Text() string {
	return f.buf.String()
}

func (f *fanOut) Closed() bool {
	return f.closed
}
