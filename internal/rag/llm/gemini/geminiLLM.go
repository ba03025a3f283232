package gemini

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/internal/customHttpClient"
	"github.com/akolanti/filebook/internal/metrics"
	"github.com/akolanti/filebook/internal/rag/llm"
	"github.com/akolanti/filebook/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client *genai.Client
}

var logger = logger_i.NewLogger("llm_gemini")
var geminiClient *llmClient
var once sync.Once

// GetGeminiClient returns nil when the client could not be built.
func GetGeminiClient(ctx context.Context, apikey string) llm.Provider {
	once.Do(func() {
		newGeminiClient(ctx, apikey)
	})

	if geminiClient == nil {
		return nil
	}
	return geminiClient
}

func newGeminiClient(ctx context.Context, apikey string) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apikey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: customHttpClient.GetHttpClient(),
	})
	if err != nil {
		logger.Error("Error creating Gemini client", "error", err)
		return
	}
	geminiClient = &llmClient{client: c}
	logger.Info("Gemini client created")
}

func (c *llmClient) Generate(ctx context.Context, model llm.Model, prompt llm.Prompt) (string, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	res, err := c.client.Models.GenerateContent(ctx, string(model), toContents(prompt), generationConfig(prompt))
	if err != nil {
		logger.WithContext(ctx).Error("Gemini generation failed", "model", model, "error", err)
		return "", err
	}
	text := res.Text()
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

func (c *llmClient) Stream(ctx context.Context, model llm.Model, prompt llm.Prompt) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		start := time.Now()
		defer func() { metrics.CaptureExecutionMetrics("llm_stream", time.Since(start)) }()

		for res, err := range c.client.Models.GenerateContentStream(ctx, string(model), toContents(prompt), generationConfig(prompt)) {
			if err != nil {
				logger.WithContext(ctx).Error("Gemini stream failed", "model", model, "error", err)
				yield("", err)
				return
			}
			delta := res.Text()
			if delta == "" {
				continue
			}
			if !yield(delta, nil) {
				return
			}
		}
	}
}

func toContents(prompt llm.Prompt) []*genai.Content {
	contents := make([]*genai.Content, 0, len(prompt.History)+1)
	for _, turn := range prompt.History {
		var role genai.Role = genai.RoleUser
		if turn.Role == llm.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	return append(contents, genai.NewContentFromText(prompt.Question, genai.RoleUser))
}

func generationConfig(prompt llm.Prompt) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		Temperature:       genai.Ptr(config.ModelTemperature),
	}
}
