package vectorDB

import (
	"context"
	"errors"

	"github.com/akolanti/filebook/internal/domain/commonModels"
	"golang.org/x/sync/errgroup"
)

// Payload keys shared by every index implementation.
const (
	FieldContent      = "content"
	FieldDocumentID   = "document_id"
	FieldDocName      = "doc_name"
	FieldCollectionID = "collection_id"
	FieldOwnerID      = "owner_id"
	FieldChunkOrder   = "chunk_order"
	FieldChunkTotal   = "chunk_total"
	FieldIngestedAt   = "ingested_at"
)

var ErrMissingCollectionFilter = errors.New("query filter needs a collection id")

// Filter is a set of exact match predicates. CollectionID is mandatory; the
// others narrow the search when set.
type Filter struct {
	CollectionID string
	OwnerID      string
	DocumentID   string
}

func (f Filter) Validate() error {
	if f.CollectionID == "" {
		return ErrMissingCollectionFilter
	}
	return nil
}

// Matches reports whether a chunk satisfies every predicate.
func (f Filter) Matches(c commonModels.DocChunk) bool {
	if c.CollectionId != f.CollectionID {
		return false
	}
	if f.OwnerID != "" && c.OwnerId != f.OwnerID {
		return false
	}
	if f.DocumentID != "" && c.Doc.Id != f.DocumentID {
		return false
	}
	return true
}

type DataProcessor interface {
	EnsureCollection(ctx context.Context) error
	// Upsert stores chunks with their vectors. Any failed batch fails the call.
	Upsert(ctx context.Context, chunks []commonModels.DocChunk) error
	Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]commonModels.ScoredChunk, error)
	DeleteByDocument(ctx context.Context, documentID string) error
	DeleteByCollection(ctx context.Context, collectionID string) error
}

// InBatches runs fn over consecutive slices of at most size chunks, up to
// concurrency at a time. The first error cancels the rest and is returned.
func InBatches(ctx context.Context, chunks []commonModels.DocChunk, size, concurrency int, fn func(ctx context.Context, batch []commonModels.DocChunk) error) error {
	if size <= 0 {
		size = len(chunks)
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for start := 0; start < len(chunks); start += size {
		batch := chunks[start:min(start+size, len(chunks))]
		g.Go(func() error {
			return fn(gctx, batch)
		})
	}
	return g.Wait()
}
