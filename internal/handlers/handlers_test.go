package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/akolanti/filebook/internal/api"
	"github.com/akolanti/filebook/internal/domain/commonModels"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/akolanti/filebook/internal/rag"
	"github.com/akolanti/filebook/internal/rag/ingest"
	"github.com/akolanti/filebook/internal/rag/llm"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func askBody(t *testing.T, req api.AskRequest) io.Reader {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var body api.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.NotNil(t, body.Error)
	return body
}

func TestAsk(t *testing.T) {
	var got rag.AskRequest
	svc := &MockService{OnAsk: func(ctx context.Context, req rag.AskRequest) (rag.Answer, error) {
		got = req
		return rag.Answer{
			Text:    "Revenue grew 12%.",
			Model:   llm.ModelGeminiFlash,
			Sources: []rag.Source{{DocumentId: "d1", DocName: "report.pdf"}},
		}, nil
	}}
	h := NewHandler(svc, nil, nil, 0)

	r := httptest.NewRequest(http.MethodPost, "/ask", askBody(t, api.AskRequest{Question: "revenue?", CollectionId: "c1", DocumentId: "d1"}))
	rec := serve(withSession(alice, h.Ask), r)

	require.Equal(t, http.StatusOK, rec.Code)
	var body api.AskResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Revenue grew 12%.", body.Answer)
	assert.Equal(t, "gemini-2.5-flash", body.Model)
	assert.Len(t, body.Sources, 1)

	assert.Equal(t, alice, got.Session)
	assert.Equal(t, "c1", got.CollectionId)
	assert.Equal(t, "d1", got.DocumentId)
}

func TestAsk_Errors(t *testing.T) {
	tests := []struct {
		name      string
		session   bool
		body      string
		err       error
		wantCode  int
		wantMsg   string
		wantRetry bool
	}{
		{name: "no session", body: `{}`, wantCode: http.StatusUnauthorized, wantMsg: "Unauthorized"},
		{name: "bad json", session: true, body: `{"question":`, wantCode: http.StatusBadRequest, wantMsg: "Bad Request"},
		{name: "quota", session: true, body: `{"question":"q","collection_id":"c1"}`,
			err:      filebookModel.NewError(filebookModel.KindQuota, "Your daily limit for gemini-2.5-flash (10/10) is reached.", nil),
			wantCode: http.StatusForbidden, wantMsg: "Your daily limit for gemini-2.5-flash (10/10) is reached.", wantRetry: true},
		{name: "internal stays generic", session: true, body: `{"question":"q","collection_id":"c1"}`,
			err:      filebookModel.Internal(io.ErrUnexpectedEOF),
			wantCode: http.StatusInternalServerError, wantMsg: "Something went wrong. Please try again later.", wantRetry: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockService{OnAsk: func(ctx context.Context, req rag.AskRequest) (rag.Answer, error) {
				return rag.Answer{}, tt.err
			}}
			h := NewHandler(svc, nil, nil, 0)
			handler := h.Ask
			if tt.session {
				handler = withSession(alice, h.Ask)
			}

			rec := serve(handler, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantCode, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, tt.wantMsg, body.Error.Message)
			assert.Equal(t, tt.wantRetry, body.Error.Retry)
		})
	}
}

func TestAskStream(t *testing.T) {
	svc := &MockService{OnAskStream: func(ctx context.Context, req rag.AskRequest, w io.Writer) (rag.Answer, error) {
		for _, part := range []string{"Revenue ", "grew ", "12%."} {
			if _, err := io.WriteString(w, part); err != nil {
				return rag.Answer{}, err
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
		return rag.Answer{Text: "Revenue grew 12%."}, nil
	}}
	h := NewHandler(svc, nil, nil, 0)

	r := httptest.NewRequest(http.MethodPost, "/ask/stream", askBody(t, api.AskRequest{Question: "revenue?", CollectionId: "c1"}))
	rec := serve(withSession(alice, h.AskStream), r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Revenue grew 12%.", rec.Body.String())
	assert.True(t, rec.Flushed, "the stream writer exposes the response flusher")
}

func TestAskStream_ErrorBeforeFirstByte(t *testing.T) {
	svc := &MockService{OnAskStream: func(ctx context.Context, req rag.AskRequest, w io.Writer) (rag.Answer, error) {
		return rag.Answer{}, filebookModel.Forbidden("You do not have access to this filebook")
	}}
	h := NewHandler(svc, nil, nil, 0)

	r := httptest.NewRequest(http.MethodPost, "/ask/stream", askBody(t, api.AskRequest{Question: "q", CollectionId: "c1"}))
	rec := serve(withSession(alice, h.AskStream), r)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "You do not have access to this filebook", decodeError(t, rec).Error.Message)
}

func multipartUpload(t *testing.T, collectionId, fileName string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if collectionId != "" {
		require.NoError(t, mw.WriteField("collection_id", collectionId))
	}
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestUpload(t *testing.T) {
	var got ingest.Upload
	up := &MockUploader{OnIngest: func(ctx context.Context, u ingest.Upload) (ingest.Result, error) {
		got = u
		return ingest.Result{
			Document:        commonModels.Document{Id: "doc-1", Name: u.FileName},
			ChunksProcessed: 5,
			TotalChunks:     6,
			Warning:         "1 of 6 chunks could not be processed",
		}, nil
	}}
	h := NewHandler(nil, up, nil, 0)

	rec := serve(withSession(alice, h.Upload), multipartUpload(t, "c1", "notes.txt", []byte("hello world")))

	require.Equal(t, http.StatusOK, rec.Code)
	var body api.UploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "doc-1", body.DocumentId)
	assert.Equal(t, 5, body.ChunksProcessed)
	assert.Equal(t, 6, body.TotalChunks)
	assert.NotEmpty(t, body.Warning)

	assert.Equal(t, "c1", got.CollectionId)
	assert.Equal(t, "notes.txt", got.FileName)
	assert.Equal(t, []byte("hello world"), got.Data)
	assert.Equal(t, alice, got.Session)
}

func TestUpload_Rejections(t *testing.T) {
	never := &MockUploader{OnIngest: func(ctx context.Context, u ingest.Upload) (ingest.Result, error) {
		t.Fatal("ingest must not run")
		return ingest.Result{}, nil
	}}
	h := NewHandler(nil, never, nil, 1024)

	rec := serve(withSession(alice, h.Upload), multipartUpload(t, "c1", "big.txt", bytes.Repeat([]byte("a"), 4096)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "File is too large. Maximum size is 1KB", decodeError(t, rec).Error.Message)

	rec = serve(withSession(alice, h.Upload), multipartUpload(t, "c1", "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file provided", decodeError(t, rec).Error.Message)
}

func TestCollectionRoutes(t *testing.T) {
	var deleted []string
	lib := &MockLibrary{
		OnDeleteDocument: func(ctx context.Context, session filebookModel.Session, collectionId, documentId string) error {
			deleted = append(deleted, collectionId+"/"+documentId)
			return nil
		},
		OnMessages: func(ctx context.Context, session filebookModel.Session, collectionId string, n int) ([]filebookModel.ChatMessage, error) {
			return []filebookModel.ChatMessage{{Id: "m1", Role: filebookModel.MessageRoleUser, Content: "hi"}}[:min(n, 1)], nil
		},
		OnCreateCollection: func(ctx context.Context, session filebookModel.Session, name string) (filebookModel.Collection, error) {
			return filebookModel.Collection{Id: "new", Name: name, OwnerId: session.UserId}, nil
		},
	}
	h := NewHandler(nil, nil, lib, 0)

	router := chi.NewRouter()
	router.Post("/collections", withSession(alice, h.CreateCollection))
	router.Delete("/collections/{id}", withSession(alice, h.DeleteCollection))
	router.Delete("/collections/{id}/documents/{docId}", withSession(alice, h.DeleteDocument))
	router.Get("/collections/{id}/messages", withSession(alice, h.Messages))
	router.Get("/usage", withSession(alice, h.Usage))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/collections/c1/documents/d9", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"c1/d9"}, deleted)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/collections/ghost", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/collections", strings.NewReader(`{"name":"Taxes"}`)))
	assert.Equal(t, http.StatusCreated, rec.Code)
	var created api.CollectionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "Taxes", created.Name)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/collections/c1/messages?limit=1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var msgs []api.MessageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&msgs))
	assert.Len(t, msgs, 1)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/collections/c1/messages?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/usage", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"plan":"FREE"`)
}
