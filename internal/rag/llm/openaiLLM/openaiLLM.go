package openaiLLM

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
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var logger = logger_i.NewLogger("llm_openai")
var once sync.Once
var openaiClient *llmClient

type llmClient struct {
	client openai.Client
}

// GetOpenAIClient returns nil without an API key so the registry simply does
// not offer OpenAI models.
func GetOpenAIClient(apikey string) llm.Provider {
	once.Do(func() {
		if apikey == "" {
			logger.Warn("OPENAI_API_KEY not set, OpenAI models disabled")
			return
		}
		openaiClient = &llmClient{
			client: openai.NewClient(
				option.WithAPIKey(apikey),
				option.WithHTTPClient(customHttpClient.GetHttpClient()),
			),
		}
		logger.Info("OpenAI client created")
	})

	if openaiClient == nil {
		return nil
	}
	return openaiClient
}

func (c *llmClient) Generate(ctx context.Context, model llm.Model, prompt llm.Prompt) (string, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	resp, err := c.client.Chat.Completions.New(ctx, toParams(model, prompt))
	if err != nil {
		logger.WithContext(ctx).Error("OpenAI completion failed", "model", model, "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", llm.ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *llmClient) Stream(ctx context.Context, model llm.Model, prompt llm.Prompt) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		start := time.Now()
		defer func() { metrics.CaptureExecutionMetrics("llm_stream", time.Since(start)) }()

		stream := c.client.Chat.Completions.NewStreaming(ctx, toParams(model, prompt))
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			if !yield(chunk.Choices[0].Delta.Content, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			logger.WithContext(ctx).Error("OpenAI stream failed", "model", model, "error", err)
			yield("", err)
		}
	}
}

func toParams(model llm.Model, prompt llm.Prompt) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    toMessages(prompt),
		Temperature: openai.Float(float64(config.ModelTemperature)),
	}
}

func toMessages(prompt llm.Prompt) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(prompt.History)+2)
	msgs = append(msgs, openai.SystemMessage(prompt.System))
	for _, turn := range prompt.History {
		if turn.Role == llm.RoleModel {
			msgs = append(msgs, openai.AssistantMessage(turn.Text))
		} else {
			msgs = append(msgs, openai.UserMessage(turn.Text))
		}
	}
	return append(msgs, openai.UserMessage(prompt.Question))
}
