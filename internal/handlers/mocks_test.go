package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/akolanti/filebook/internal/auth"
	"github.com/akolanti/filebook/internal/domain/commonModels"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/akolanti/filebook/internal/quota"
	"github.com/akolanti/filebook/internal/rag"
	"github.com/akolanti/filebook/internal/rag/ingest"
)

type MockService struct {
	OnAsk       func(ctx context.Context, req rag.AskRequest) (rag.Answer, error)
	OnAskStream func(ctx context.Context, req rag.AskRequest, w io.Writer) (rag.Answer, error)
	OnSearch    func(ctx context.Context, req rag.SearchRequest) ([]commonModels.ScoredChunk, error)
}

func (m *MockService) Ask(ctx context.Context, req rag.AskRequest) (rag.Answer, error) {
	return m.OnAsk(ctx, req)
}

func (m *MockService) AskStream(ctx context.Context, req rag.AskRequest, w io.Writer) (rag.Answer, error) {
	return m.OnAskStream(ctx, req, w)
}

func (m *MockService) Search(ctx context.Context, req rag.SearchRequest) ([]commonModels.ScoredChunk, error) {
	return m.OnSearch(ctx, req)
}

type MockUploader struct {
	OnIngest func(ctx context.Context, up ingest.Upload) (ingest.Result, error)
}

func (m *MockUploader) Ingest(ctx context.Context, up ingest.Upload) (ingest.Result, error) {
	return m.OnIngest(ctx, up)
}

// MockLibrary only implements what the tests touch; the rest report not found.
type MockLibrary struct {
	OnDeleteCollection func(ctx context.Context, session filebookModel.Session, collectionId string) error
	OnDeleteDocument   func(ctx context.Context, session filebookModel.Session, collectionId, documentId string) error
	OnMessages         func(ctx context.Context, session filebookModel.Session, collectionId string, n int) ([]filebookModel.ChatMessage, error)
	OnCreateCollection func(ctx context.Context, session filebookModel.Session, name string) (filebookModel.Collection, error)
}

func (m *MockLibrary) CreateCollection(ctx context.Context, session filebookModel.Session, name string) (filebookModel.Collection, error) {
	if m.OnCreateCollection == nil {
		return filebookModel.Collection{}, filebookModel.NotFound("not mocked")
	}
	return m.OnCreateCollection(ctx, session, name)
}

func (m *MockLibrary) ListCollections(ctx context.Context, session filebookModel.Session) ([]filebookModel.Collection, error) {
	return nil, nil
}

func (m *MockLibrary) ListDocuments(ctx context.Context, session filebookModel.Session, collectionId string) ([]commonModels.Document, error) {
	return nil, nil
}

func (m *MockLibrary) Messages(ctx context.Context, session filebookModel.Session, collectionId string, n int) ([]filebookModel.ChatMessage, error) {
	if m.OnMessages == nil {
		return nil, filebookModel.NotFound("not mocked")
	}
	return m.OnMessages(ctx, session, collectionId, n)
}

func (m *MockLibrary) DeleteCollection(ctx context.Context, session filebookModel.Session, collectionId string) error {
	if m.OnDeleteCollection == nil {
		return filebookModel.NotFound("not mocked")
	}
	return m.OnDeleteCollection(ctx, session, collectionId)
}

func (m *MockLibrary) DeleteDocument(ctx context.Context, session filebookModel.Session, collectionId, documentId string) error {
	if m.OnDeleteDocument == nil {
		return filebookModel.NotFound("not mocked")
	}
	return m.OnDeleteDocument(ctx, session, collectionId, documentId)
}

func (m *MockLibrary) Usage(ctx context.Context, session filebookModel.Session) (quota.Usage, error) {
	return quota.Usage{Plan: session.Plan}, nil
}

var alice = filebookModel.Session{UserId: "alice", Role: filebookModel.RoleUser, Plan: filebookModel.PlanFree}

// withSession stands in for the auth middleware.
func withSession(session filebookModel.Session, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next(w, r.WithContext(auth.WithSession(r.Context(), session)))
	}
}

func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, r)
	return rec
}
