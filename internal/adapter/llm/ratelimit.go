package llm

import (
	"context"

	"golang.org/x/time/rate"

	"personachat/internal/domain"
	"personachat/internal/infra/config"
)

// RateLimitedProvider throttles outgoing sends with a token bucket. Useful
// when several conversations share one API key and the provider enforces a
// requests-per-second quota.
type RateLimitedProvider struct {
	inner   domain.Provider
	limiter *rate.Limiter
}

// NewRateLimitedProvider wraps inner with the configured requests-per-second
// budget.
func NewRateLimitedProvider(inner domain.Provider, cfg config.RateLimitConfig) *RateLimitedProvider {
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), burst),
	}
}

// Send implements domain.Provider, waiting for limiter capacity first.
// Context cancellation during the wait aborts the send.
func (p *RateLimitedProvider) Send(ctx context.Context, window []domain.Message, systemPrompt string, maxResponseTokens int) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return p.inner.Send(ctx, window, systemPrompt, maxResponseTokens)
}

// ContextLimit implements domain.Provider.
func (p *RateLimitedProvider) ContextLimit(ctx context.Context, model string) int {
	return p.inner.ContextLimit(ctx, model)
}

// TotalTokens implements domain.Provider.
func (p *RateLimitedProvider) TotalTokens(window []domain.Message) int {
	return p.inner.TotalTokens(window)
}

// ContextStats implements domain.Provider.
func (p *RateLimitedProvider) ContextStats(ctx context.Context, window []domain.Message, cfg domain.ConversationConfig) domain.ContextStats {
	return p.inner.ContextStats(ctx, window, cfg)
}

// Type implements domain.Provider.
func (p *RateLimitedProvider) Type() domain.ProviderType { return p.inner.Type() }

// Model implements domain.Provider.
func (p *RateLimitedProvider) Model() string { return p.inner.Model() }
