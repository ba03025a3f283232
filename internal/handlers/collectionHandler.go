package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/akolanti/filebook/internal/adapter"
	"github.com/akolanti/filebook/internal/adapter/utils"
	"github.com/akolanti/filebook/internal/api"
	"github.com/akolanti/filebook/internal/domain/commonModels"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/akolanti/filebook/internal/quota"
)

// Librarian is the collection management surface; *rag.Library implements it.
type Librarian interface {
	CreateCollection(ctx context.Context, session filebookModel.Session, name string) (filebookModel.Collection, error)
	ListCollections(ctx context.Context, session filebookModel.Session) ([]filebookModel.Collection, error)
	ListDocuments(ctx context.Context, session filebookModel.Session, collectionId string) ([]commonModels.Document, error)
	Messages(ctx context.Context, session filebookModel.Session, collectionId string, n int) ([]filebookModel.ChatMessage, error)
	DeleteCollection(ctx context.Context, session filebookModel.Session, collectionId string) error
	DeleteDocument(ctx context.Context, session filebookModel.Session, collectionId, documentId string) error
	Usage(ctx context.Context, session filebookModel.Session) (quota.Usage, error)
}

// CreateCollection godoc
// @Summary      Create a filebook
// @Tags         Filebooks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      api.CreateCollectionRequest  true  "Filebook name"
// @Success      201      {object}  api.CollectionResponse
// @Failure      403      {object}  api.ErrorResponse  "Filebook limit reached"
// @Router       /collections [post]
func (h *Handler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	session, err := sessionOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body api.CreateCollectionRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.library.CreateCollection(r.Context(), session, body.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusCreated, adapter.ToCollectionResponse(c))
}

// ListCollections godoc
// @Summary      List the caller's filebooks
// @Tags         Filebooks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  api.CollectionResponse
// @Router       /collections [get]
func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	session, err := sessionOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.library.ListCollections(r.Context(), session)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToCollectionResponses(list))
}

// DeleteCollection godoc
// @Summary      Delete a filebook with its documents, vectors and messages
// @Tags         Filebooks
// @Security     BearerAuth
// @Param        id   path  string  true  "Filebook ID"
// @Success      204
// @Failure      404  {object}  api.ErrorResponse
// @Router       /collections/{id} [delete]
func (h *Handler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	session, err := sessionOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.library.DeleteCollection(r.Context(), session, utils.GetChiURLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDocuments godoc
// @Summary      List the documents of a filebook
// @Tags         Filebooks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path   string  true  "Filebook ID"
// @Success      200  {array}  api.DocumentResponse
// @Router       /collections/{id}/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	session, err := sessionOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	docs, err := h.library.ListDocuments(r.Context(), session, utils.GetChiURLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentResponses(docs))
}

// DeleteDocument godoc
// @Summary      Delete one document and its vectors
// @Tags         Filebooks
// @Security     BearerAuth
// @Param        id     path  string  true  "Filebook ID"
// @Param        docId  path  string  true  "Document ID"
// @Success      204
// @Failure      404  {object}  api.ErrorResponse
// @Router       /collections/{id}/documents/{docId} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	session, err := sessionOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	err = h.library.DeleteDocument(r.Context(), session, utils.GetChiURLParam(r, "id"), utils.GetChiURLParam(r, "docId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Messages godoc
// @Summary      Recent chat messages of a filebook
// @Tags         Filebooks
// @Produce      json
// @Security     BearerAuth
// @Param        id     path   string  true   "Filebook ID"
// @Param        limit  query  int     false  "How many messages, capped by the plan's retention"
// @Success      200    {array}  api.MessageResponse
// @Router       /collections/{id}/messages [get]
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	session, err := sessionOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			writeError(w, r, filebookModel.Validation("limit must be a positive number"))
			return
		}
	}
	msgs, err := h.library.Messages(r.Context(), session, utils.GetChiURLParam(r, "id"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToMessageResponses(msgs))
}

// Usage godoc
// @Summary      Today's usage against the plan limits
// @Tags         Filebooks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  api.UsageResponse
// @Router       /usage [get]
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	session, err := sessionOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.library.Usage(r.Context(), session)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToUsageResponse(u))
}
