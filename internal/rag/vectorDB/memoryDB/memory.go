package memoryDB

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"

	"github.com/akolanti/filebook/internal/domain/commonModels"
	"github.com/akolanti/filebook/internal/rag/vectorDB"
	"github.com/akolanti/filebook/pkg/logger_i"
)

var logger = logger_i.NewLogger("memory_vector_index")

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Index is a brute force cosine index held in process memory. It stands in
// for Qdrant in development and tests.
type Index struct {
	mu        sync.RWMutex
	dimension int
	points    map[string]commonModels.DocChunk
}

func NewIndex(dimension int) *Index {
	return &Index{dimension: dimension, points: make(map[string]commonModels.DocChunk)}
}

func (s *Index) EnsureCollection(ctx context.Context) error {
	return nil
}

func (s *Index) Upsert(ctx context.Context, chunks []commonModels.DocChunk) error {
	for _, c := range chunks {
		if s.dimension > 0 && len(c.Vector) != s.dimension {
			return ErrDimensionMismatch
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		s.points[c.ChunkId] = c
	}
	logger.WithContext(ctx).Debug("upserted chunks", "count", len(chunks), "total", len(s.points))
	return nil
}

func (s *Index) Query(ctx context.Context, vector []float32, topK int, filter vectorDB.Filter) ([]commonModels.ScoredChunk, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	hits := make([]commonModels.ScoredChunk, 0)
	for _, c := range s.points {
		if !filter.Matches(c) {
			continue
		}
		hits = append(hits, commonModels.ScoredChunk{DocChunk: c, Score: cosine(vector, c.Vector)})
	}
	s.mu.RUnlock()

	slices.SortFunc(hits, func(a, b commonModels.ScoredChunk) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		// deterministic order for equal scores
		if a.ChunkId < b.ChunkId {
			return -1
		}
		if a.ChunkId > b.ChunkId {
			return 1
		}
		return 0
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (s *Index) DeleteByDocument(ctx context.Context, documentID string) error {
	return s.deleteWhere(func(c commonModels.DocChunk) bool { return c.Doc.Id == documentID })
}

func (s *Index) DeleteByCollection(ctx context.Context, collectionID string) error {
	return s.deleteWhere(func(c commonModels.DocChunk) bool { return c.CollectionId == collectionID })
}

func (s *Index) deleteWhere(match func(commonModels.DocChunk) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.points {
		if match(c) {
			delete(s.points, id)
		}
	}
	return nil
}

// Len is the number of stored points.
func (s *Index) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

func cosine(a, b []float32) float32 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
