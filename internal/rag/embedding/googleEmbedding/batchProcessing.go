package googleEmbedding

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/internal/rag/embedding"
	"github.com/cenkalti/backoff/v4"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))

	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}

// isRateLimited reports quota errors, which are worth waiting out. Everything
// else is treated as permanent.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusTooManyRequests
	}
	return strings.Contains(err.Error(), "RESOURCE_EXHAUSTED")
}

func newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = config.EmbeddingRetryInitialInterval
	b.MaxInterval = config.EmbeddingRetryMaxInterval
	b.MaxElapsedTime = config.EmbeddingRetryMaxElapsed
	return backoff.WithContext(b, ctx)
}

func (c *client) embedWithRetry(ctx context.Context, content []*genai.Content, intent embedding.Intent) (*genai.EmbedContentResponse, error) {
	var res *genai.EmbedContentResponse

	operation := func() error {
		var err error
		res, err = c.doCall(ctx, content, intent)
		if err != nil {
			if isRateLimited(err) {
				logger.WithContext(ctx).Warn("Rate limit hit, backing off", "error", err)
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	if err := backoff.Retry(operation, newBackOff(ctx)); err != nil {
		return nil, err
	}
	return res, nil
}
