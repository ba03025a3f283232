package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/akolanti/filebook/internal/adapter"
	"github.com/akolanti/filebook/internal/api"
	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/akolanti/filebook/internal/rag"
	"github.com/akolanti/filebook/internal/rag/ingest"
)

// room for the multipart boundaries and the collection_id field
const uploadOverhead = config.MaxUploadBodyBytes - config.MaxUploadSize

type Uploader interface {
	Ingest(ctx context.Context, up ingest.Upload) (ingest.Result, error)
}

// Handler serves the HTTP API on top of the conversation service, the
// ingestor and the library.
type Handler struct {
	service   rag.Service
	uploader  Uploader
	library   Librarian
	maxUpload int64
}

func NewHandler(service rag.Service, uploader Uploader, library Librarian, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = config.MaxUploadSize
	}
	return &Handler{service: service, uploader: uploader, library: library, maxUpload: maxUpload}
}

// GetHandler godoc
// @Summary      Liveness probe
// @Tags         Health
// @Success      200
// @Router       /healthz [get]
func GetHandler(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ask godoc
// @Summary      Ask a question about a filebook
// @Description  Answers from the filebook's documents and records the turn in its transcript.
// @Tags         Conversation
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      api.AskRequest     true  "Question and target filebook"
// @Success      200      {object}  api.AskResponse
// @Failure      400      {object}  api.ErrorResponse  "Missing question or filebook"
// @Failure      403      {object}  api.ErrorResponse  "No access or quota reached"
// @Failure      404      {object}  api.ErrorResponse  "Filebook not found"
// @Router       /ask [post]
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	req, err := h.askRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	answer, err := h.service.Ask(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToAskResponse(answer))
}

// AskStream godoc
// @Summary      Ask a question and stream the answer
// @Description  Streams the answer as plain text. Errors found before the first byte use the JSON error envelope.
// @Tags         Conversation
// @Accept       json
// @Produce      plain
// @Security     BearerAuth
// @Param        request  body      api.AskRequest     true  "Question and target filebook"
// @Success      200      {string}  string             "Answer text"
// @Failure      403      {object}  api.ErrorResponse  "No access or quota reached"
// @Router       /ask/stream [post]
func (h *Handler) AskStream(w http.ResponseWriter, r *http.Request) {
	req, err := h.askRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sw := &streamWriter{w: w}
	if _, err := h.service.AskStream(r.Context(), req, sw); err != nil {
		if !sw.started {
			writeError(w, r, err)
			return
		}
		logRH.WithContext(r.Context()).Error("stream failed after the first byte", "error", err)
	}
}

func (h *Handler) askRequest(r *http.Request) (rag.AskRequest, error) {
	session, err := sessionOf(r)
	if err != nil {
		return rag.AskRequest{}, err
	}
	var body api.AskRequest
	if err := decodeJSON(r, &body); err != nil {
		return rag.AskRequest{}, err
	}
	return rag.AskRequest{
		Session:      session,
		CollectionId: body.CollectionId,
		DocumentId:   body.DocumentId,
		Question:     body.Question,
		Model:        body.Model,
	}, nil
}

// Upload godoc
// @Summary      Upload a document into a filebook
// @Description  Parses, chunks, embeds and indexes the file synchronously.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        collection_id  formData  string  true  "Target filebook"
// @Param        file           formData  file    true  "PDF, DOCX, DOC, XLSX, XLS, CSV or TXT, at most 2MB"
// @Success      200  {object}  api.UploadResponse
// @Failure      400  {object}  api.ErrorResponse  "Missing fields, file too large or unreadable"
// @Failure      403  {object}  api.ErrorResponse  "No access or document limit reached"
// @Router       /upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	session, err := sessionOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+uploadOverhead)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || r.ContentLength > h.maxUpload+uploadOverhead {
			writeError(w, r, filebookModel.Validation(ingest.TooLargeMessage(h.maxUpload)))
			return
		}
		writeError(w, r, filebookModel.Validation("Bad Request"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, filebookModel.Validation("No file provided"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		writeError(w, r, filebookModel.Validation("Could not read file"))
		return
	}
	if int64(len(data)) > h.maxUpload {
		writeError(w, r, filebookModel.Validation(ingest.TooLargeMessage(h.maxUpload)))
		return
	}

	result, err := h.uploader.Ingest(r.Context(), ingest.Upload{
		Session:      session,
		CollectionId: r.FormValue("collection_id"),
		FileName:     header.Filename,
		MediaType:    header.Header.Get("Content-Type"),
		Data:         data,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToUploadResponse(result))
}

// streamWriter commits the 200 and the text/plain header on the first byte,
// so failures before that can still be reported as JSON.
type streamWriter struct {
	w       http.ResponseWriter
	started bool
}

func (s *streamWriter) Write(p []byte) (int, error) {
	if !s.started {
		s.started = true
		s.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		s.w.Header().Set("X-Content-Type-Options", "nosniff")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.WriteHeader(http.StatusOK)
	}
	return s.w.Write(p)
}

func (s *streamWriter) Flush() {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
}
