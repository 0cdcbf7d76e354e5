package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/sony/gobreaker"
	"github.com/upb/vector-cv/config"
	"go.uber.org/zap"
)

// Breaker guards calls to an upstream AI API with a circuit breaker. Client
// errors (non-retryable 4xx) and caller cancellation do not count as failures.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker creates a breaker named after the upstream it protects
func NewBreaker(name string, cfg config.BreakerConfig, logger *zap.Logger) *Breaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: countsAsSuccess,
	})

	return &Breaker{name: name, cb: cb}
}

// Name returns the breaker name
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current breaker state ("closed", "half-open", "open")
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Execute runs fn through the breaker. Rejections while open are returned
// as a retryable ProviderError with code CIRCUIT_OPEN.
func Execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if b == nil {
		return fn()
	}

	result, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, NewProviderError(b.name, CodeCircuitOpen, "upstream temporarily unavailable", http.StatusServiceUnavailable, true, err)
		}
		return zero, err
	}

	typed, ok := result.(T)
	if !ok {
		return zero, nil
	}
	return typed, nil
}

func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) && !provErr.Retryable && provErr.StatusCode >= 400 && provErr.StatusCode < 500 {
		return true
	}
	return false
}

// BreakerProvider wraps a Provider so every completion goes through a Breaker
type BreakerProvider struct {
	Provider
	breaker *Breaker
}

// WithBreaker wraps provider with a breaker named after it
func WithBreaker(provider Provider, cfg config.BreakerConfig, logger *zap.Logger) *BreakerProvider {
	return &BreakerProvider{
		Provider: provider,
		breaker:  NewBreaker(provider.Name(), cfg, logger),
	}
}

// ChatCompletion performs the wrapped completion through the breaker
func (p *BreakerProvider) ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return Execute(p.breaker, func() (*ChatResponse, error) {
		return p.Provider.ChatCompletion(ctx, req)
	})
}

// BreakerState exposes the breaker state for status reporting
func (p *BreakerProvider) BreakerState() string {
	return p.breaker.State()
}
