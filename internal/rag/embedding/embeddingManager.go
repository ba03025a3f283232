package embedding

import (
	"context"
	"errors"
)

// Intent selects the representation the embedding model produces. The same
// text embeds differently for indexing and for searching.
type Intent string

const (
	IntentDocument Intent = "RETRIEVAL_DOCUMENT"
	IntentQuery    Intent = "RETRIEVAL_QUERY"
)

var ErrEmptyEmbedding = errors.New("embedding service returned no values")

// Result is the outcome for texts[Index] of a batch call.
type Result struct {
	Index  int
	Vector []float32
	Err    error
}

func (r Result) Ok() bool {
	return r.Err == nil && len(r.Vector) > 0
}

type Embedder interface {
	GetEmbedding(ctx context.Context, text string, intent Intent) ([]float32, error)
	// BatchEmbedding returns one Result per input, in input order. A failing
	// item never fails its siblings.
	BatchEmbedding(ctx context.Context, texts []string, intent Intent) []Result
}
