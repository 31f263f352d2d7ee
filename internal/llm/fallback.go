package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrModelsExhausted is returned when every model in the list was throttled
// or unavailable
var ErrModelsExhausted = errors.New("all models exhausted")

// DefaultModels is the preference list used when the caller passes none:
// the strong model first, one smaller fallback.
var DefaultModels = []string{
	"llama-3.3-70b-versatile",
	"llama-3.1-8b-instant",
}

// Completer runs a request against an ordered model preference list and
// reports which model answered
type Completer interface {
	Complete(ctx context.Context, req *Request, models []string) (*Response, string, error)
}

// FallbackChain walks a model preference list on one provider
type FallbackChain struct {
	provider Provider
	logger   *slog.Logger
}

// NewFallbackChain creates a chain over provider
func NewFallbackChain(provider Provider, logger *slog.Logger) *FallbackChain {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackChain{provider: provider, logger: logger}
}

// Complete tries each model in order. Only 429 and 503 move on to the next
// model; any other error is returned as is.
func (c *FallbackChain) Complete(ctx context.Context, req *Request, models []string) (*Response, string, error) {
	if len(models) == 0 {
		models = DefaultModels
	}

	var lastErr error
	for i, model := range models {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		attempt := *req
		attempt.Model = model

		resp, err := c.provider.Generate(ctx, &attempt)
		if err == nil {
			if resp.Model == "" {
				resp.Model = model
			}
			return resp, model, nil
		}
		if !ShouldFallback(err) {
			return nil, model, err
		}

		lastErr = err
		if i < len(models)-1 {
			c.logger.Warn("model unavailable, falling back",
				"provider", c.provider.Name(),
				"model", model,
				"next", models[i+1],
				"status", StatusCode(err))
		}
	}

	return nil, "", fmt.Errorf("%w: %w", ErrModelsExhausted, lastErr)
}
