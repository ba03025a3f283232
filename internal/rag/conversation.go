package rag

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/akolanti/filebook/internal/domain/commonModels"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/akolanti/filebook/internal/metrics"
	"github.com/akolanti/filebook/internal/rag/llm"
	"github.com/akolanti/filebook/internal/rag/vectorDB"
	"github.com/akolanti/filebook/pkg/logger_i"
	"golang.org/x/sync/errgroup"
)

const (
	greetingReply      = "Hello! I'm your filebook assistant. Ask me anything about the documents in this filebook."
	noContextReply     = "I couldn't find any relevant information in the document to answer your question."
	notAvailablePhrase = "This information is not available in the provided documents."
	persistTimeout     = 10 * time.Second
)

const systemInstruction = `You are a knowledgeable assistant answering questions about documents the user uploaded.
Rules:
- Answer only from the context supplied with the question. Do not use outside knowledge.
- If the context does not contain the answer, reply exactly: "` + notAvailablePhrase + `"
- If the context is ambiguous or the question could mean several things, ask a short clarifying question instead of guessing.
- Keep answers concise and quote figures exactly as they appear in the context.`

var greetings = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "hii": {}, "hiya": {}, "hola": {}, "yo": {},
	"greetings": {}, "good morning": {}, "good afternoon": {}, "good evening": {},
}

func isGreeting(question string) bool {
	_, ok := greetings[strings.ToLower(strings.TrimSpace(question))]
	return ok
}

// turn is the state of one question while it moves through the steps.
type turn struct {
	req        AskRequest
	log        *logger_i.Logger
	collection filebookModel.Collection
	model      llm.Model
	prompt     llm.Prompt
	sources    []Source
	// canned is set when the answer is known without a model call
	canned     string
	chargeable bool
}

func (t *turn) answer(text string, canned bool) Answer {
	return Answer{Text: text, Model: t.model, Sources: t.sources, Canned: canned}
}

// prepare runs every step up to the model call: access, quota, embedding,
// history, retrieval and prompt assembly.
func (s *service) prepare(ctx context.Context, req AskRequest) (*turn, error) {
	t := &turn{
		req: req,
		log: s.logger.WithContext(ctx).With("collectionId", req.CollectionId, "userId", req.Session.UserId),
	}
	s.step(t, filebookModel.StepReceived)

	req.Question = strings.TrimSpace(req.Question)
	t.req.Question = req.Question
	if req.Question == "" || req.CollectionId == "" {
		return nil, filebookModel.Validation("Missing question or filebookId")
	}
	model, err := llm.ParseModel(req.Model, s.opts.DefaultModel)
	if err != nil {
		return nil, filebookModel.Validation("Unknown model " + req.Model)
	}
	if _, err := s.models.Resolve(model); err != nil {
		return nil, filebookModel.Validation("Model " + string(model) + " is not available")
	}
	t.model = model
	t.log = t.log.With("model", model)

	collection, err := s.readableCollection(ctx, req.Session, req.CollectionId)
	if err != nil {
		return nil, err
	}
	t.collection = collection

	if isGreeting(req.Question) {
		t.canned = greetingReply
		return t, nil
	}

	decision, err := s.gate.Check(ctx, req.Session, string(model))
	if err != nil {
		return nil, filebookModel.Internal(err)
	}
	if !decision.Allowed {
		t.log.Info("question rejected by quota", "reason", decision.Reason)
		return nil, decision.Error()
	}
	t.chargeable = true
	s.step(t, filebookModel.StepLimitChecked)

	var (
		vec     []float32
		history []filebookModel.ChatMessage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vec, err = s.executeEmbeddingStep(gctx, req.Question)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.store.RecentMessages(gctx, collection.Id, s.opts.HistoryTurns)
		return err
	})
	if err := g.Wait(); err != nil {
		t.log.Error("embedding or history fetch failed", "error", err)
		return nil, filebookModel.Internal(err)
	}
	s.step(t, filebookModel.StepEmbedded)

	hits, err := s.executeVectorSearchStep(ctx, vec, s.opts.TopK, retrievalFilter(collection, req.DocumentId))
	if err != nil {
		t.log.Error("vector search failed", "error", err)
		return nil, filebookModel.Internal(err)
	}
	s.step(t, filebookModel.StepRetrieved)

	if len(hits) == 0 {
		t.canned = noContextReply
		return t, nil
	}
	t.sources = toSources(hits)
	t.prompt = assemblePrompt(req.Question, hits, history)
	s.step(t, filebookModel.StepContextAssembled)
	return t, nil
}

func (s *service) readableCollection(ctx context.Context, session filebookModel.Session, id string) (filebookModel.Collection, error) {
	collection, err := s.store.GetCollection(ctx, id)
	if errors.Is(err, filebookModel.ErrNotFound) {
		return filebookModel.Collection{}, filebookModel.NotFound("Filebook not found")
	}
	if err != nil {
		return filebookModel.Collection{}, filebookModel.Internal(err)
	}
	if !collection.CanRead(session) {
		return filebookModel.Collection{}, filebookModel.Forbidden("You do not have access to this filebook")
	}
	return collection, nil
}

// persist records both sides of the turn on a context detached from the
// request, so a client that hung up mid stream still gets its history. A
// failure here is logged only; the caller already has the answer.
func (s *service) persist(ctx context.Context, t *turn, text, answeredBy string) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	now := time.Now()
	question := filebookModel.ChatMessage{
		AuthorId:  t.req.Session.UserId,
		Role:      filebookModel.MessageRoleUser,
		Content:   t.req.Question,
		CreatedAt: now,
	}
	if t.chargeable {
		question.Model = string(t.model)
	}
	reply := filebookModel.ChatMessage{
		AuthorId:  t.req.Session.UserId,
		Role:      filebookModel.MessageRoleAssistant,
		Content:   text,
		Model:     answeredBy,
		CreatedAt: now.Add(time.Millisecond),
	}

	retain := s.gate.HistoryRetention(t.collection.OwnerPlan)
	if err := s.store.AppendMessages(pctx, t.collection.Id, retain, question, reply); err != nil {
		t.log.Error("failed to persist chat turn", "error", err)
		return
	}
	s.step(t, filebookModel.StepPersisted)
}

func (s *service) step(t *turn, step filebookModel.TurnStep) {
	t.log.Debug("ask", "step", step)
	metrics.IncrementTurns(string(t.model), string(step))
}

func retrievalFilter(collection filebookModel.Collection, documentId string) vectorDB.Filter {
	return vectorDB.Filter{
		CollectionID: collection.Id,
		OwnerID:      collection.OwnerId,
		DocumentID:   documentId,
	}
}

// assemblePrompt maps stored roles onto model roles and inlines the retrieved
// chunks with the live question.
func assemblePrompt(question string, hits []commonModels.ScoredChunk, history []filebookModel.ChatMessage) llm.Prompt {
	turns := make([]llm.Turn, 0, len(history))
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == filebookModel.MessageRoleAssistant {
			role = llm.RoleModel
		}
		turns = append(turns, llm.Turn{Role: role, Text: m.Content})
	}

	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		parts = append(parts, h.Chunk)
	}
	return llm.Prompt{
		System:   systemInstruction,
		History:  turns,
		Question: "Context:\n" + strings.Join(parts, "\n\n") + "\n\nQuestion:\n" + question,
	}
}

func toSources(hits []commonModels.ScoredChunk) []Source {
	out := make([]Source, len(hits))
	for i, h := range hits {
		out[i] = Source{
			DocumentId: h.Doc.Id,
			DocName:    h.Doc.Name,
			ChunkOrder: h.ChunkOrder,
			Score:      h.Score,
		}
	}
	return out
}
