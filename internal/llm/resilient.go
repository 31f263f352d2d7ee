package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"
)

// ErrLocalRateLimit is returned when the client-side limiter rejects a call
var ErrLocalRateLimit = errors.New("local rate limit exceeded")

// ResilientProvider wraps an LLM provider with resilience patterns from fortify.
// Circuit breakers are kept per model so a throttled primary model does not
// block its fallbacks.
type ResilientProvider struct {
	provider  Provider
	cfg       ResilientConfig
	retrier   retry.Retry[*Response]
	bulkhead  bulkhead.Bulkhead[*Response]
	rateLimit ratelimit.RateLimiter
	logger    *slog.Logger

	mu       sync.Mutex
	breakers map[string]circuitbreaker.CircuitBreaker[*Response]
}

// ResilientConfig holds configuration for resilient provider wrapper
type ResilientConfig struct {
	// EnableCircuitBreaker enables a circuit breaker per model
	EnableCircuitBreaker bool

	// EnableRetry enables retry with backoff on transport failures
	EnableRetry bool

	// EnableBulkhead enables concurrency limiting
	EnableBulkhead bool

	// EnableRateLimit enables rate limiting
	EnableRateLimit bool

	// MaxConcurrent for bulkhead (default: 5)
	MaxConcurrent int

	// RatePerSecond for rate limiting (default: 2)
	RatePerSecond int

	// MaxAttempts for retry (default: 3)
	MaxAttempts int

	// InitialDelay for retry backoff (default: 500ms)
	InitialDelay time.Duration

	// Logger for resilience events
	Logger *slog.Logger
}

// DefaultResilientConfig returns sensible defaults for LLM resilience
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		EnableCircuitBreaker: true,
		EnableRetry:          true,
		EnableBulkhead:       true,
		EnableRateLimit:      true,
		MaxConcurrent:        5,
		RatePerSecond:        2,
		MaxAttempts:          3,
		InitialDelay:         500 * time.Millisecond,
	}
}

// NewResilientProvider wraps a provider with resilience patterns using fortify
func NewResilientProvider(provider Provider, cfg ResilientConfig) *ResilientProvider {
	rp := &ResilientProvider{
		provider: provider,
		cfg:      cfg,
		logger:   cfg.Logger,
		breakers: make(map[string]circuitbreaker.CircuitBreaker[*Response]),
	}

	if cfg.EnableRetry {
		attempts := cfg.MaxAttempts
		if attempts <= 0 {
			attempts = 3
		}
		delay := cfg.InitialDelay
		if delay <= 0 {
			delay = 500 * time.Millisecond
		}
		rp.retrier = retry.New[*Response](retry.Config{
			MaxAttempts:   attempts,
			InitialDelay:  delay,
			MaxDelay:      10 * time.Second,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable:   retryOnSameModel,
		})
	}

	if cfg.EnableBulkhead {
		maxConcurrent := cfg.MaxConcurrent
		if maxConcurrent <= 0 {
			maxConcurrent = 5
		}
		rp.bulkhead = bulkhead.New[*Response](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
			MaxQueue:      maxConcurrent * 2,
			QueueTimeout:  30 * time.Second,
		})
	}

	if cfg.EnableRateLimit {
		rate := cfg.RatePerSecond
		if rate <= 0 {
			rate = 2
		}
		rp.rateLimit = ratelimit.New(&ratelimit.Config{
			Rate:     rate,
			Burst:    rate * 3,
			Interval: time.Second,
		})
	}

	return rp
}

// retryOnSameModel only repeats requests that got no HTTP answer at all.
// 429 and 503 belong to the fallback chain and every other status is final.
func retryOnSameModel(err error) bool {
	return IsTransportFailure(err)
}

func (p *ResilientProvider) Name() string {
	return p.provider.Name()
}

func (p *ResilientProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	if p.rateLimit != nil {
		if !p.rateLimit.Allow(ctx, p.Name()) {
			return nil, fmt.Errorf("%w for provider %s", ErrLocalRateLimit, p.Name())
		}
	}

	operation := func(ctx context.Context) (*Response, error) {
		return p.provider.Generate(ctx, req)
	}

	if p.bulkhead != nil {
		inner := operation
		operation = func(ctx context.Context) (*Response, error) {
			return p.bulkhead.Execute(ctx, inner)
		}
	}

	if p.retrier != nil {
		inner := operation
		operation = func(ctx context.Context) (*Response, error) {
			return p.retrier.Do(ctx, inner)
		}
	}

	cb := p.breaker(req.Model)
	if cb == nil {
		return operation(ctx)
	}

	var called bool
	resp, err := cb.Execute(ctx, func(ctx context.Context) (*Response, error) {
		called = true
		return operation(ctx)
	})
	if err != nil && !called {
		// An open breaker means the model is unavailable from our side
		return nil, &StatusError{
			Provider: p.Name(),
			Code:     http.StatusServiceUnavailable,
			Body:     fmt.Sprintf("circuit open for model %q: %v", req.Model, err),
		}
	}
	return resp, err
}

func (p *ResilientProvider) breaker(model string) circuitbreaker.CircuitBreaker[*Response] {
	if !p.cfg.EnableCircuitBreaker {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if cb, ok := p.breakers[model]; ok {
		return cb
	}
	cb := circuitbreaker.New[*Response](circuitbreaker.Config{
		MaxRequests: 2,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			if p.logger != nil {
				p.logger.Warn("circuit breaker state change",
					"provider", p.Name(),
					"model", model,
					"from", from.String(),
					"to", to.String())
			}
		},
	})
	p.breakers[model] = cb
	return cb
}

// Close releases resources held by the resilient provider
func (p *ResilientProvider) Close() error {
	if p.rateLimit != nil {
		return p.rateLimit.Close()
	}
	return nil
}
