package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"personachat/internal/domain"
	"personachat/internal/infra/config"
)

// flakyProvider fails every Send and counts how many reached it.
type flakyProvider struct {
	calls int
	err   error
}

func (p *flakyProvider) Send(context.Context, []domain.Message, string, int) (string, error) {
	p.calls++
	return "", p.err
}

func (p *flakyProvider) ContextLimit(context.Context, string) int { return 8192 }

func (p *flakyProvider) TotalTokens([]domain.Message) int { return 0 }

func (p *flakyProvider) ContextStats(context.Context, []domain.Message, domain.ConversationConfig) domain.ContextStats {
	return domain.ContextStats{}
}

func (p *flakyProvider) Type() domain.ProviderType { return domain.ProviderOpenAI }
func (p *flakyProvider) Model() string             { return "gpt-4o" }

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyProvider{err: errors.New("provider down")}
	cb := NewCircuitBreakerProvider(inner, config.CircuitBreakerConfig{
		Enabled:     true,
		MaxFailures: 2,
		Timeout:     time.Minute,
		Interval:    time.Minute,
	}, newTestLogger())

	for i := 0; i < 2; i++ {
		if _, err := cb.Send(context.Background(), nil, "sys", 100); err == nil {
			t.Fatalf("send %d: expected error", i)
		}
	}
	if inner.calls != 2 {
		t.Fatalf("inner calls = %d, want 2", inner.calls)
	}

	// Circuit is open: the call fails fast without reaching the provider.
	if _, err := cb.Send(context.Background(), nil, "sys", 100); err == nil {
		t.Fatal("expected fast failure with open circuit")
	}
	if inner.calls != 2 {
		t.Errorf("inner calls = %d after open circuit, want 2", inner.calls)
	}
}

func TestCircuitBreakerDelegatesPassthroughMethods(t *testing.T) {
	inner := &flakyProvider{err: errors.New("x")}
	cb := NewCircuitBreakerProvider(inner, config.CircuitBreakerConfig{}, newTestLogger())

	if cb.Type() != domain.ProviderOpenAI {
		t.Errorf("Type = %q", cb.Type())
	}
	if cb.Model() != "gpt-4o" {
		t.Errorf("Model = %q", cb.Model())
	}
	if got := cb.ContextLimit(context.Background(), "gpt-4o"); got != 8192 {
		t.Errorf("ContextLimit = %d", got)
	}
}
