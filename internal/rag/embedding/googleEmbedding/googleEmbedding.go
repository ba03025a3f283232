package googleEmbedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/internal/customHttpClient"
	"github.com/akolanti/filebook/internal/metrics"
	"github.com/akolanti/filebook/internal/rag/embedding"
	"github.com/akolanti/filebook/pkg/logger_i"
	"google.golang.org/genai"
)

var logger = logger_i.NewLogger("google_embedding")
var once sync.Once
var embeddingClient *client
var dimension int32 = config.EmbeddingOutputDimensionality

type client struct {
	genAi *genai.Client
	model string
}

func newGoogleEmbedder(ctx context.Context, modelName string, apikey string) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apikey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: customHttpClient.GetHttpClient(),
	})
	if err != nil {
		logger.Error("Error creating Google Embedding client", "error", err)
		return
	}
	embeddingClient = &client{
		genAi: c,
		model: modelName,
	}
	logger.Info("Google Embedding client created", "model", modelName, "dimension", dimension)
}

// GetGoogleEmbeddingClient returns nil when the client could not be built.
func GetGoogleEmbeddingClient(ctx context.Context, modelName string, apikey string) embedding.Embedder {
	once.Do(func() {
		newGoogleEmbedder(ctx, modelName, apikey)
	})

	if embeddingClient == nil {
		return nil
	}
	return embeddingClient
}

func (c *client) GetEmbedding(ctx context.Context, text string, intent embedding.Intent) ([]float32, error) {
	res, err := c.embedWithRetry(ctx, getContent([]string{text}), intent)
	if err != nil {
		logger.WithContext(ctx).Error("Error getting embedding from Google", "intent", intent, "error", err)
		return nil, err
	}
	if len(res.Embeddings) == 0 || res.Embeddings[0] == nil || len(res.Embeddings[0].Values) == 0 {
		return nil, embedding.ErrEmptyEmbedding
	}
	return res.Embeddings[0].Values, nil
}

// BatchEmbedding sends the whole batch in one request. When that request fails
// the batch is retried item by item so one bad text only fails itself.
func (c *client) BatchEmbedding(ctx context.Context, texts []string, intent embedding.Intent) []embedding.Result {
	log := logger.WithContext(ctx)
	results := make([]embedding.Result, len(texts))
	for i := range results {
		results[i].Index = i
	}
	if len(texts) == 0 {
		return results
	}

	res, err := c.embedWithRetry(ctx, getContent(texts), intent)
	if err == nil && len(res.Embeddings) == len(texts) {
		for i, e := range res.Embeddings {
			if e == nil || len(e.Values) == 0 {
				results[i].Err = embedding.ErrEmptyEmbedding
				continue
			}
			results[i].Vector = e.Values
		}
		return results
	}

	if err == nil {
		err = fmt.Errorf("expected %d embeddings, got %d", len(texts), len(res.Embeddings))
	}
	log.Warn("Batch embedding failed, falling back to single requests", "batchSize", len(texts), "error", err)

	for i, text := range texts {
		if ctx.Err() != nil {
			results[i].Err = ctx.Err()
			continue
		}
		results[i].Vector, results[i].Err = c.GetEmbedding(ctx, text, intent)
	}
	return results
}

func (c *client) doCall(ctx context.Context, content []*genai.Content, intent embedding.Intent) (*genai.EmbedContentResponse, error) {
	start := time.Now()
	defer func() {
		metrics.CaptureExecutionMetrics("embedding", time.Since(start))
	}()
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{
		OutputDimensionality: &dimension,
		TaskType:             string(intent),
	})
}
