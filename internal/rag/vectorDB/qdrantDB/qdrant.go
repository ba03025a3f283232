package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/internal/domain/commonModels"
	"github.com/akolanti/filebook/internal/metrics"
	"github.com/akolanti/filebook/internal/rag/vectorDB"
	"github.com/akolanti/filebook/pkg/logger_i"
	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

var logger = logger_i.NewLogger("Qdrant")
var quadrantInstance *ClientHolder
var once sync.Once
var dimension = uint64(config.EmbeddingOutputDimensionality)

var ErrQdrantUnreachable = errors.New("qdrant is unreachable")

// payload fields that get a keyword index, every retrieval filters on them
var indexedFields = []string{vectorDB.FieldCollectionID, vectorDB.FieldOwnerID, vectorDB.FieldDocumentID}

type ClientHolder struct {
	QObj       *qdrant.Client
	collection string
}

// GetQuadrantClient returns nil when Qdrant cannot be reached or prepared.
func GetQuadrantClient(ctx context.Context, settings config.QdrantSettings) *ClientHolder {
	once.Do(func() {
		holder, err := newClient(ctx, settings)
		if err != nil {
			logger.Error("could not initialise qdrant", "error", err)
			return
		}
		quadrantInstance = holder
		go closeQdrant(ctx, holder.QObj)
	})
	return quadrantInstance
}

func newClient(ctx context.Context, settings config.QdrantSettings) (*ClientHolder, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     settings.Host,
		Port:     settings.Port,
		APIKey:   settings.APIKey,
		UseTLS:   settings.UseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		return nil, fmt.Errorf("could not instantiate: %w", err)
	}

	holder := &ClientHolder{QObj: client, collection: settings.Collection}
	if err := holder.healthCheckWithRetry(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}
	if err := holder.EnsureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("could not create collection %s: %w", settings.Collection, err)
	}
	logger.Info("Qdrant ready", "host", settings.Host, "port", settings.Port, "collection", settings.Collection)
	return holder, nil
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	if err := qi.Close(); err != nil {
		logger.Error("could not close Qdrant", "error", err)
	}
}

func (db *ClientHolder) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = config.QdrantConnectionTimeout

	return backoff.Retry(func() error {
		res, err := db.QObj.HealthCheck(ctx)
		if err != nil {
			logger.Warn("qdrant health check failed, retrying", "error", err)
			return err
		}
		if res == nil || res.GetTitle() == "" {
			return errors.New("health check returned invalid response")
		}
		return nil
	}, backoff.WithContext(b, ctx))
}

// EnsureCollection creates the chunk collection and its payload indexes if
// they do not exist yet.
func (db *ClientHolder) EnsureCollection(ctx context.Context) error {
	if db.collection == "" {
		return errors.New("empty collection name")
	}

	exists, err := db.QObj.CollectionExists(ctx, db.collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = db.QObj.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: db.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return err
	}

	for _, field := range indexedFields {
		_, err := db.QObj.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: db.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}
	return nil
}

func (db *ClientHolder) Upsert(ctx context.Context, chunks []commonModels.DocChunk) error {
	return vectorDB.InBatches(ctx, chunks, config.UpsertBatchSize, config.UpsertConcurrency, db.upsertBatch)
}

func (db *ClientHolder) upsertBatch(ctx context.Context, chunks []commonModels.DocChunk) error {
	start := time.Now()
	defer func() {
		metrics.CaptureExecutionMetrics("qdrant_upsert", time.Since(start))
	}()

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		points[i] = toPoint(chunk)
	}

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: db.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func (db *ClientHolder) Query(ctx context.Context, vector []float32, topK int, filter vectorDB.Filter) ([]commonModels.ScoredChunk, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() {
		metrics.CaptureExecutionMetrics("qdrant_query", time.Since(start))
	}()

	result, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: db.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         toQdrantFilter(filter),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		logger.WithContext(ctx).Error("Error querying Qdrant", "error", err)
		return nil, err
	}

	matches := make([]commonModels.ScoredChunk, 0, len(result))
	for _, hit := range result {
		matches = append(matches, fromPoint(hit))
	}
	return matches, nil
}

func (db *ClientHolder) DeleteByDocument(ctx context.Context, documentID string) error {
	return db.deleteWhere(ctx, vectorDB.FieldDocumentID, documentID)
}

func (db *ClientHolder) DeleteByCollection(ctx context.Context, collectionID string) error {
	return db.deleteWhere(ctx, vectorDB.FieldCollectionID, collectionID)
}

func (db *ClientHolder) deleteWhere(ctx context.Context, field, value string) error {
	if value == "" {
		return fmt.Errorf("refusing to delete with empty %s", field)
	}
	_, err := db.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: db.collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(field, value)},
		}),
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant delete by %s failed: %w", field, err)
	}
	return nil
}
