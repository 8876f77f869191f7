package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"afaq.com/stylist-gateway/internal/config"
)

// AdapterFactory builds an Adapter from the service configuration.
type AdapterFactory func(ctx context.Context, cfg config.Config) (Adapter, error)

// Registry maps MODEL_PROVIDER names to adapter factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]AdapterFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]AdapterFactory)}
}

func (r *Registry) Register(name string, f AdapterFactory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Get(ctx context.Context, cfg config.Config) (Adapter, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.ModelProvider))
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown model provider: %s", name)
	}
	return f(ctx, cfg)
}

// DefaultRegistry knows the gemini and ollama backends.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("gemini", func(ctx context.Context, cfg config.Config) (Adapter, error) {
		return NewGeminiAdapter(ctx, cfg.GeminiAPIKey, GenerationSettings{
			Model:       cfg.GeminiModel,
			Temperature: cfg.ModelTemperature,
			MaxTokens:   cfg.ModelMaxTokens,
		}, cfg.ModelMode == "session")
	})
	r.Register("ollama", func(ctx context.Context, cfg config.Config) (Adapter, error) {
		return NewOllamaAdapter(cfg.OllamaBaseURL, &http.Client{Timeout: cfg.ModelTimeout}, GenerationSettings{
			Model:       cfg.OllamaModel,
			Temperature: cfg.ModelTemperature,
			MaxTokens:   cfg.ModelMaxTokens,
		}, cfg.ModelMode == "session"), nil
	})
	return r
}

// NewAdapter builds the backend named by cfg.ModelProvider.
func NewAdapter(ctx context.Context, cfg config.Config) (Adapter, error) {
	return DefaultRegistry().Get(ctx, cfg)
}
