package rag

import (
	"context"
	"io"
	"time"

	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/internal/domain/commonModels"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/akolanti/filebook/internal/quota"
	"github.com/akolanti/filebook/internal/rag/embedding"
	"github.com/akolanti/filebook/internal/rag/llm"
	"github.com/akolanti/filebook/internal/rag/vectorDB"
	"github.com/akolanti/filebook/pkg/logger_i"
)

// Service answers questions about a collection. Handlers and the MCP server
// only see this interface; the clients behind it stay private to the package.
type Service interface {
	Ask(ctx context.Context, req AskRequest) (Answer, error)
	// AskStream writes the answer to w as it is produced and returns it once
	// complete. A failing w stops forwarding but the turn is still recorded.
	AskStream(ctx context.Context, req AskRequest, w io.Writer) (Answer, error)
	// Search is retrieval only: no quota, no model call, nothing persisted.
	Search(ctx context.Context, req SearchRequest) ([]commonModels.ScoredChunk, error)
}

type AskRequest struct {
	Session      filebookModel.Session
	CollectionId string
	DocumentId   string
	Question     string
	Model        string
}

type SearchRequest struct {
	Session      filebookModel.Session
	CollectionId string
	DocumentId   string
	Query        string
	TopK         int
}

type Source struct {
	DocumentId string  `json:"document_id"`
	DocName    string  `json:"doc_name"`
	ChunkOrder int     `json:"chunk_order"`
	Score      float32 `json:"score"`
}

type Answer struct {
	Text    string
	Model   llm.Model
	Sources []Source
	// Canned answers were produced without calling a model.
	Canned bool
}

type ConversationStore interface {
	GetCollection(ctx context.Context, id string) (filebookModel.Collection, error)
	filebookModel.MessageStore
}

type Gate interface {
	Check(ctx context.Context, session filebookModel.Session, model string) (quota.Decision, error)
	HistoryRetention(plan filebookModel.Plan) int
}

type Options struct {
	DefaultModel llm.Model
	TopK         int
	HistoryTurns int
	Timeout      time.Duration
}

func DefaultOptions() Options {
	return Options{
		DefaultModel: llm.ModelGeminiFlash,
		TopK:         config.RetrievalTopK,
		HistoryTurns: config.HistoryTurns,
		Timeout:      config.AskTimeout,
	}
}

type service struct {
	store    ConversationStore
	gate     Gate
	embedder embedding.Embedder
	vectorDB vectorDB.DataProcessor
	models   *llm.Registry
	opts     Options
	logger   *logger_i.Logger
}

func NewService(store ConversationStore, gate Gate, em embedding.Embedder, vector vectorDB.DataProcessor, models *llm.Registry, opts Options) Service {
	if opts.DefaultModel == "" {
		opts.DefaultModel = llm.ModelGeminiFlash
	}
	if opts.TopK <= 0 {
		opts.TopK = config.RetrievalTopK
	}
	if opts.Timeout <= 0 {
		opts.Timeout = config.AskTimeout
	}
	return &service{
		store:    store,
		gate:     gate,
		embedder: em,
		vectorDB: vector,
		models:   models,
		opts:     opts,
		logger:   logger_i.NewLogger("RAG Service"),
	}
}

func (s *service) Ask(ctx context.Context, req AskRequest) (Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	t, err := s.prepare(ctx, req)
	if err != nil {
		return Answer{}, err
	}
	if t.canned != "" {
		s.persist(ctx, t, t.canned, "")
		return t.answer(t.canned, true), nil
	}

	s.step(t, filebookModel.StepModelInvoked)
	text, err := s.executeLLMStep(ctx, t)
	if err != nil {
		t.log.Error("model invocation failed", "error", err)
		return Answer{}, filebookModel.Internal(err)
	}

	s.persist(ctx, t, text, string(t.model))
	return t.answer(text, false), nil
}

func (s *service) AskStream(ctx context.Context, req AskRequest, w io.Writer) (Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	t, err := s.prepare(ctx, req)
	if err != nil {
		return Answer{}, err
	}
	sink := newFanOut(w, t.log)
	if t.canned != "" {
		sink.Send(t.canned)
		s.persist(ctx, t, t.canned, "")
		return t.answer(t.canned, true), nil
	}

	s.step(t, filebookModel.StepModelInvoked)
	provider, err := s.models.Resolve(t.model)
	if err != nil {
		return Answer{}, filebookModel.Internal(err)
	}

	s.step(t, filebookModel.StepStreaming)
	start := time.Now()
	var streamErr error
	for delta, err := range provider.Stream(ctx, t.model, t.prompt) {
		if err != nil {
			streamErr = err
			break
		}
		sink.Send(delta)
	}
	t.log.Debug("stream finished", "elapsed", time.Since(start), "clientGone", sink.Closed())

	text := sink.Text()
	if text == "" {
		if streamErr == nil {
			streamErr = llm.ErrEmptyResponse
		}
		t.log.Error("model stream produced nothing", "error", streamErr)
		return Answer{}, filebookModel.Internal(streamErr)
	}
	if streamErr != nil {
		// part of the answer reached the client, so the turn is recorded as it stands
		t.log.Warn("model stream ended early", "error", streamErr, "chars", len(text))
	}

	s.persist(ctx, t, text, string(t.model))
	return t.answer(text, false), nil
}

func (s *service) Search(ctx context.Context, req SearchRequest) ([]commonModels.ScoredChunk, error) {
	log := s.logger.WithContext(ctx).With("collectionId", req.CollectionId)
	if req.Query == "" {
		return nil, filebookModel.Validation("Query is required")
	}
	collection, err := s.readableCollection(ctx, req.Session, req.CollectionId)
	if err != nil {
		return nil, err
	}
	vec, err := s.executeEmbeddingStep(ctx, req.Query)
	if err != nil {
		log.Error("query embedding failed", "error", err)
		return nil, filebookModel.Internal(err)
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.opts.TopK
	}
	hits, err := s.executeVectorSearchStep(ctx, vec, topK, retrievalFilter(collection, req.DocumentId))
	if err != nil {
		log.Error("vector search failed", "error", err)
		return nil, filebookModel.Internal(err)
	}
	return hits, nil
}
