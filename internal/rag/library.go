package rag

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/akolanti/filebook/internal/adapter/utils"
	"github.com/akolanti/filebook/internal/domain/commonModels"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/akolanti/filebook/internal/quota"
	"github.com/akolanti/filebook/internal/rag/vectorDB"
	"github.com/akolanti/filebook/pkg/logger_i"
)

const maxCollectionName = 120

// Library manages collections and their documents. Deletes purge the vector
// index before the records so a half finished delete never leaves vectors
// that nothing points at.
type Library struct {
	store  filebookModel.Store
	index  vectorDB.DataProcessor
	gate   *quota.Governor
	logger *logger_i.Logger
}

func NewLibrary(store filebookModel.Store, index vectorDB.DataProcessor, gate *quota.Governor) *Library {
	return &Library{
		store:  store,
		index:  index,
		gate:   gate,
		logger: logger_i.NewLogger("Library"),
	}
}

func (l *Library) CreateCollection(ctx context.Context, session filebookModel.Session, name string) (filebookModel.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return filebookModel.Collection{}, filebookModel.Validation("Filebook name is required")
	}
	if len([]rune(name)) > maxCollectionName {
		return filebookModel.Collection{}, filebookModel.Validation("Filebook name is too long")
	}

	decision, err := l.gate.CanCreateCollection(ctx, session)
	if err != nil {
		return filebookModel.Collection{}, filebookModel.Internal(err)
	}
	if !decision.Allowed {
		return filebookModel.Collection{}, decision.Error()
	}

	plan := session.Plan
	if plan == "" {
		plan = filebookModel.PlanFree
	}
	c := filebookModel.Collection{
		Id:        utils.GetNewUUID(),
		Name:      name,
		OwnerId:   session.UserId,
		OwnerPlan: plan,
		CreatedAt: time.Now(),
	}
	if err := l.store.CreateCollection(ctx, c); err != nil {
		return filebookModel.Collection{}, filebookModel.Internal(err)
	}
	l.logger.WithContext(ctx).Info("collection created", "collectionId", c.Id, "ownerId", c.OwnerId)
	return c, nil
}

func (l *Library) ListCollections(ctx context.Context, session filebookModel.Session) ([]filebookModel.Collection, error) {
	out, err := l.store.ListCollections(ctx, session.UserId)
	if err != nil {
		return nil, filebookModel.Internal(err)
	}
	return out, nil
}

func (l *Library) ListDocuments(ctx context.Context, session filebookModel.Session, collectionId string) ([]commonModels.Document, error) {
	if _, err := l.collection(ctx, collectionId, session, filebookModel.Collection.CanRead); err != nil {
		return nil, err
	}
	docs, err := l.store.ListDocuments(ctx, collectionId)
	if err != nil {
		return nil, filebookModel.Internal(err)
	}
	return docs, nil
}

// Messages returns the newest n messages of the transcript, oldest first.
func (l *Library) Messages(ctx context.Context, session filebookModel.Session, collectionId string, n int) ([]filebookModel.ChatMessage, error) {
	c, err := l.collection(ctx, collectionId, session, filebookModel.Collection.CanRead)
	if err != nil {
		return nil, err
	}
	if limit := l.gate.HistoryRetention(c.OwnerPlan); n <= 0 || n > limit {
		n = limit
	}
	msgs, err := l.store.RecentMessages(ctx, collectionId, n)
	if err != nil {
		return nil, filebookModel.Internal(err)
	}
	return msgs, nil
}

func (l *Library) DeleteCollection(ctx context.Context, session filebookModel.Session, collectionId string) error {
	log := l.logger.WithContext(ctx).With("collectionId", collectionId)
	if _, err := l.collection(ctx, collectionId, session, filebookModel.Collection.CanWrite); err != nil {
		return err
	}
	if err := l.index.DeleteByCollection(ctx, collectionId); err != nil {
		log.Error("failed to purge collection vectors", "error", err)
		return filebookModel.Internal(err)
	}
	if err := l.store.DeleteCollection(ctx, collectionId); err != nil {
		log.Error("failed to delete collection", "error", err)
		return filebookModel.Internal(err)
	}
	log.Info("collection deleted")
	return nil
}

func (l *Library) DeleteDocument(ctx context.Context, session filebookModel.Session, collectionId, documentId string) error {
	log := l.logger.WithContext(ctx).With("collectionId", collectionId, "documentId", documentId)
	if _, err := l.collection(ctx, collectionId, session, filebookModel.Collection.CanWrite); err != nil {
		return err
	}
	doc, err := l.store.GetDocument(ctx, documentId)
	if errors.Is(err, filebookModel.ErrNotFound) || (err == nil && doc.CollectionId != collectionId) {
		return filebookModel.NotFound("Document not found")
	}
	if err != nil {
		return filebookModel.Internal(err)
	}
	if err := l.index.DeleteByDocument(ctx, documentId); err != nil {
		log.Error("failed to purge document vectors", "error", err)
		return filebookModel.Internal(err)
	}
	if err := l.store.DeleteDocument(ctx, documentId); err != nil {
		log.Error("failed to delete document", "error", err)
		return filebookModel.Internal(err)
	}
	log.Info("document deleted")
	return nil
}

func (l *Library) Usage(ctx context.Context, session filebookModel.Session) (quota.Usage, error) {
	u, err := l.gate.Usage(ctx, session)
	if err != nil {
		return quota.Usage{}, filebookModel.Internal(err)
	}
	return u, nil
}

func (l *Library) collection(ctx context.Context, id string, session filebookModel.Session, allowed func(filebookModel.Collection, filebookModel.Session) bool) (filebookModel.Collection, error) {
	c, err := l.store.GetCollection(ctx, id)
	if errors.Is(err, filebookModel.ErrNotFound) {
		return filebookModel.Collection{}, filebookModel.NotFound("Filebook not found")
	}
	if err != nil {
		return filebookModel.Collection{}, filebookModel.Internal(err)
	}
	if !allowed(c, session) {
		return filebookModel.Collection{}, filebookModel.Forbidden("You do not have access to this filebook")
	}
	return c, nil
}
