package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/internal/data/redisStore"
	"github.com/akolanti/filebook/internal/domain/commonModels"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/akolanti/filebook/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

// RedisFilebookStore keeps collections, documents and transcripts as JSON
// records with set and sorted set indexes next to them.
type RedisFilebookStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

// GetRedisFilebookStore returns nil when Redis is offline.
func GetRedisFilebookStore(ctx context.Context, settings config.RedisSettings) *RedisFilebookStore {
	s := redisStore.GetRedisStore(ctx, settings)
	if s == nil {
		return nil
	}
	return NewRedisFilebookStore(s)
}

func NewRedisFilebookStore(s *redisStore.Store) *RedisFilebookStore {
	return &RedisFilebookStore{
		store:  s,
		logger: logger_i.NewLogger("FilebookStore"),
	}
}

func (s *RedisFilebookStore) CreateCollection(ctx context.Context, c filebookModel.Collection) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	return s.store.Atomically(ctx, func(tx redis.Pipeliner) error {
		tx.Set(ctx, collectionKey(c.Id), data, 0)
		tx.SAdd(ctx, ownerCollectionsKey(c.OwnerId), c.Id)
		return nil
	})
}

func (s *RedisFilebookStore) GetCollection(ctx context.Context, id string) (filebookModel.Collection, error) {
	raw, err := s.store.Get(ctx, collectionKey(id))
	if s.store.IsNil(err) {
		return filebookModel.Collection{}, filebookModel.ErrNotFound
	}
	if err != nil {
		return filebookModel.Collection{}, err
	}
	return decode[filebookModel.Collection](raw)
}

func (s *RedisFilebookStore) UpdateCollection(ctx context.Context, c filebookModel.Collection) error {
	exists, err := s.store.Exists(ctx, collectionKey(c.Id))
	if err != nil {
		return err
	}
	if !exists {
		return filebookModel.ErrNotFound
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	return s.store.Set(ctx, collectionKey(c.Id), data, 0)
}

func (s *RedisFilebookStore) ListCollections(ctx context.Context, ownerId string) ([]filebookModel.Collection, error) {
	ids, err := s.store.SetMembers(ctx, ownerCollectionsKey(ownerId))
	if err != nil {
		return nil, err
	}
	out, err := loadAll[filebookModel.Collection](ctx, s, ids, collectionKey)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b filebookModel.Collection) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *RedisFilebookStore) CountCollections(ctx context.Context, ownerId string) (int, error) {
	n, err := s.store.SetCount(ctx, ownerCollectionsKey(ownerId))
	return int(n), err
}

// DeleteCollection removes the collection with its documents and transcript.
// Vectors are purged by the caller.
func (s *RedisFilebookStore) DeleteCollection(ctx context.Context, id string) error {
	c, err := s.GetCollection(ctx, id)
	if err != nil {
		return err
	}
	docIds, err := s.store.SetMembers(ctx, collectionDocsKey(id))
	if err != nil {
		return err
	}

	return s.store.Atomically(ctx, func(tx redis.Pipeliner) error {
		keys := []string{collectionKey(id), collectionDocsKey(id), collectionMessagesKey(id)}
		for _, docId := range docIds {
			keys = append(keys, documentKey(docId))
		}
		tx.Del(ctx, keys...)
		tx.SRem(ctx, ownerCollectionsKey(c.OwnerId), id)
		if len(docIds) > 0 {
			tx.SRem(ctx, ownerDocsKey(c.OwnerId), toAny(docIds)...)
		}
		return nil
	})
}

func (s *RedisFilebookStore) CreateDocument(ctx context.Context, d commonModels.Document) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return s.store.Atomically(ctx, func(tx redis.Pipeliner) error {
		tx.Set(ctx, documentKey(d.Id), data, 0)
		tx.SAdd(ctx, collectionDocsKey(d.CollectionId), d.Id)
		tx.SAdd(ctx, ownerDocsKey(d.OwnerId), d.Id)
		return nil
	})
}

func (s *RedisFilebookStore) GetDocument(ctx context.Context, id string) (commonModels.Document, error) {
	raw, err := s.store.Get(ctx, documentKey(id))
	if s.store.IsNil(err) {
		return commonModels.Document{}, filebookModel.ErrNotFound
	}
	if err != nil {
		return commonModels.Document{}, err
	}
	return decode[commonModels.Document](raw)
}

func (s *RedisFilebookStore) ListDocuments(ctx context.Context, collectionId string) ([]commonModels.Document, error) {
	ids, err := s.store.SetMembers(ctx, collectionDocsKey(collectionId))
	if err != nil {
		return nil, err
	}
	out, err := loadAll[commonModels.Document](ctx, s, ids, documentKey)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b commonModels.Document) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *RedisFilebookStore) CountDocumentsByOwner(ctx context.Context, ownerId string) (int, error) {
	n, err := s.store.SetCount(ctx, ownerDocsKey(ownerId))
	return int(n), err
}

func (s *RedisFilebookStore) DeleteDocument(ctx context.Context, id string) error {
	d, err := s.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	return s.store.Atomically(ctx, func(tx redis.Pipeliner) error {
		tx.Del(ctx, documentKey(id))
		tx.SRem(ctx, collectionDocsKey(d.CollectionId), id)
		tx.SRem(ctx, ownerDocsKey(d.OwnerId), id)
		return nil
	})
}

// loadAll fetches the records behind ids, skipping ids whose record is gone.
func loadAll[T any](ctx context.Context, s *RedisFilebookStore, ids []string, key func(string) string) ([]T, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = key(id)
	}
	raws, err := s.store.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		if raw == "" {
			s.logger.WithContext(ctx).Warn("dangling index entry", "key", keys[i])
			continue
		}
		v, err := decode[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
