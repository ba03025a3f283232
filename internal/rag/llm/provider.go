package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/akolanti/filebook/internal/config"
)

type Model string

const (
	ModelGeminiFlash     Model = config.DefaultChatModelName
	ModelGeminiFlashLite Model = config.GeminiFlashLiteName
	ModelGPT4oMini       Model = config.OpenAIChatModelName
)

var (
	ErrUnknownModel     = errors.New("unknown model")
	ErrModelUnavailable = errors.New("model has no configured provider")
	ErrEmptyResponse    = errors.New("model returned no content")
)

var knownModels = []Model{ModelGeminiFlash, ModelGeminiFlashLite, ModelGPT4oMini}

// ParseModel maps a requested model id onto a known model. An empty id picks
// fallback.
func ParseModel(id string, fallback Model) (Model, error) {
	if id == "" {
		return fallback, nil
	}
	m := Model(id)
	if !slices.Contains(knownModels, m) {
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}
	return m, nil
}

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type Turn struct {
	Role Role
	Text string
}

// Prompt is provider neutral: a system instruction, prior turns oldest
// first, and the live question with its retrieved context already inlined.
type Prompt struct {
	System   string
	History  []Turn
	Question string
}

type Provider interface {
	Generate(ctx context.Context, model Model, prompt Prompt) (string, error)
	// Stream yields text deltas in order. A non-nil error ends the sequence.
	Stream(ctx context.Context, model Model, prompt Prompt) iter.Seq2[string, error]
}

// Registry binds every model to the provider that serves it.
type Registry struct {
	mu        sync.RWMutex
	providers map[Model]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[Model]Provider)}
}

// Register binds models to p. A nil provider is ignored so callers can pass
// the result of a client constructor that failed.
func (r *Registry) Register(p Provider, models ...Model) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range models {
		r.providers[m] = p
	}
}

func (r *Registry) Resolve(model Model) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[model]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, model)
	}
	return p, nil
}

// Models lists the models that can currently be served.
func (r *Registry) Models() []Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Model, 0, len(r.providers))
	for _, m := range knownModels {
		if _, ok := r.providers[m]; ok {
			out = append(out, m)
		}
	}
	return out
}
