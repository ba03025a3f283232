package store

import (
	"context"
	"slices"
	"sync"

	"github.com/akolanti/filebook/internal/domain/commonModels"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/akolanti/filebook/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMem FilebookStore")

// InMemoryFilebookStore is the fallback when Redis is offline. Its state
// is lost on restart and is not shared between instances.
type InMemoryFilebookStore struct {
	mu          *sync.RWMutex
	collections map[string]filebookModel.Collection
	documents   map[string]commonModels.Document
	messages    map[string][]filebookModel.ChatMessage
	usage       []filebookModel.ChatMessage
}

func InitInMemoryFilebookStore() *InMemoryFilebookStore {
	return &InMemoryFilebookStore{
		mu:          new(sync.RWMutex),
		collections: make(map[string]filebookModel.Collection),
		documents:   make(map[string]commonModels.Document),
		messages:    make(map[string][]filebookModel.ChatMessage),
	}
}

func (store *InMemoryFilebookStore) CreateCollection(ctx context.Context, c filebookModel.Collection) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.collections[c.Id] = c
	inMemLogger.Debug("Saved collection", "collectionId", c.Id)
	return nil
}

func (store *InMemoryFilebookStore) GetCollection(ctx context.Context, id string) (filebookModel.Collection, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	c, ok := store.collections[id]
	if !ok {
		return filebookModel.Collection{}, filebookModel.ErrNotFound
	}
	return c, nil
}

func (store *InMemoryFilebookStore) UpdateCollection(ctx context.Context, c filebookModel.Collection) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if _, ok := store.collections[c.Id]; !ok {
		return filebookModel.ErrNotFound
	}
	store.collections[c.Id] = c
	return nil
}

func (store *InMemoryFilebookStore) ListCollections(ctx context.Context, ownerId string) ([]filebookModel.Collection, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	out := make([]filebookModel.Collection, 0)
	for _, c := range store.collections {
		if c.OwnerId == ownerId {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b filebookModel.Collection) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (store *InMemoryFilebookStore) CountCollections(ctx context.Context, ownerId string) (int, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	n := 0
	for _, c := range store.collections {
		if c.OwnerId == ownerId {
			n++
		}
	}
	return n, nil
}

func (store *InMemoryFilebookStore) DeleteCollection(ctx context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if _, ok := store.collections[id]; !ok {
		return filebookModel.ErrNotFound
	}
	delete(store.collections, id)
	delete(store.messages, id)
	for docId, d := range store.documents {
		if d.CollectionId == id {
			delete(store.documents, docId)
		}
	}
	return nil
}

func (store *InMemoryFilebookStore) CreateDocument(ctx context.Context, d commonModels.Document) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.documents[d.Id] = d
	return nil
}

func (store *InMemoryFilebookStore) GetDocument(ctx context.Context, id string) (commonModels.Document, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	d, ok := store.documents[id]
	if !ok {
		return commonModels.Document{}, filebookModel.ErrNotFound
	}
	return d, nil
}

func (store *InMemoryFilebookStore) ListDocuments(ctx context.Context, collectionId string) ([]commonModels.Document, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	out := make([]commonModels.Document, 0)
	for _, d := range store.documents {
		if d.CollectionId == collectionId {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b commonModels.Document) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (store *InMemoryFilebookStore) CountDocumentsByOwner(ctx context.Context, ownerId string) (int, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	n := 0
	for _, d := range store.documents {
		if d.OwnerId == ownerId {
			n++
		}
	}
	return n, nil
}

func (store *InMemoryFilebookStore) DeleteDocument(ctx context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if _, ok := store.documents[id]; !ok {
		return filebookModel.ErrNotFound
	}
	delete(store.documents, id)
	return nil
}
