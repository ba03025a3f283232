package embedding

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// EmbedAll splits texts into batches of batchSize and embeds up to
// concurrency batches at a time. Results come back in input order with
// Index pointing into texts.
func EmbedAll(ctx context.Context, e Embedder, texts []string, intent Intent, batchSize, concurrency int) []Result {
	if batchSize <= 0 {
		batchSize = len(texts)
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]Result, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		g.Go(func() error {
			batch := e.BatchEmbedding(gctx, texts[start:end], intent)
			for i := start; i < end; i++ {
				results[i] = Result{Index: i, Err: ErrEmptyEmbedding}
			}
			for _, r := range batch {
				if r.Index < 0 || r.Index >= end-start {
					continue
				}
				r.Index += start
				results[r.Index] = r
			}
			// item failures are reported through results, never through the group
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Succeeded counts the usable vectors in results.
func Succeeded(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Ok() {
			n++
		}
	}
	return n
}
