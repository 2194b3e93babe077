package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"personachat/internal/domain"
	"personachat/internal/infra/config"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// CircuitBreakerProvider wraps a domain.Provider with circuit breaker
// protection. When the wrapped provider fails repeatedly, the circuit opens
// and subsequent sends fail fast without reaching the provider, preventing
// retry storms against a degraded API.
type CircuitBreakerProvider struct {
	inner   domain.Provider
	breaker *gobreaker.CircuitBreaker[string]
	logger  *slog.Logger
}

// NewCircuitBreakerProvider wraps inner with a circuit breaker. Zero-valued
// settings fall back to defaults.
func NewCircuitBreakerProvider(inner domain.Provider, cfg config.CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerProvider {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	name := string(inner.Type()) + ":" + inner.Model()
	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "llm:" + name,
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &CircuitBreakerProvider{
		inner:   inner,
		breaker: cb,
		logger:  logger,
	}
}

// Send implements domain.Provider. Calls route through the circuit breaker.
func (p *CircuitBreakerProvider) Send(ctx context.Context, window []domain.Message, systemPrompt string, maxResponseTokens int) (string, error) {
	reply, err := p.breaker.Execute(func() (string, error) {
		return p.inner.Send(ctx, window, systemPrompt, maxResponseTokens)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return "", fmt.Errorf("provider %s circuit open: %w", p.inner.Type(), err)
		}
		return "", err
	}
	return reply, nil
}

// ContextLimit implements domain.Provider; limit lookups bypass the breaker
// since they degrade gracefully on their own.
func (p *CircuitBreakerProvider) ContextLimit(ctx context.Context, model string) int {
	return p.inner.ContextLimit(ctx, model)
}

// TotalTokens implements domain.Provider.
func (p *CircuitBreakerProvider) TotalTokens(window []domain.Message) int {
	return p.inner.TotalTokens(window)
}

// ContextStats implements domain.Provider.
func (p *CircuitBreakerProvider) ContextStats(ctx context.Context, window []domain.Message, cfg domain.ConversationConfig) domain.ContextStats {
	return p.inner.ContextStats(ctx, window, cfg)
}

// Type implements domain.Provider.
func (p *CircuitBreakerProvider) Type() domain.ProviderType { return p.inner.Type() }

// Model implements domain.Provider.
func (p *CircuitBreakerProvider) Model() string { return p.inner.Model() }
