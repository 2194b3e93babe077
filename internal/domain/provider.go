package domain

import "context"

// Provider sends bounded message windows to a remote LLM endpoint. One
// instance is bound to a single provider/model pair and is held by every
// conversation created for that pair.
type Provider interface {
	// Send issues a single completion call. The window excludes the system
	// message, which travels out-of-band as systemPrompt. maxResponseTokens
	// bounds the generated reply. Returns the assistant text.
	Send(ctx context.Context, window []Message, systemPrompt string, maxResponseTokens int) (string, error)

	// ContextLimit reports the provider's maximum context window for model.
	// It never fails: unknown models resolve to a conservative default and
	// remote lookup failures degrade to static tables.
	ContextLimit(ctx context.Context, model string) int

	// TotalTokens sums per-message token counts over the window, using
	// cached counts where present. Provider-specific structural overhead is
	// included here, not in the estimator.
	TotalTokens(window []Message) int

	// ContextStats reports usage against the model's real context limit.
	ContextStats(ctx context.Context, window []Message, cfg ConversationConfig) ContextStats

	Type() ProviderType
	Model() string
}

// ContextStats is the provider-level usage report. Unlike the engine-level
// snapshot it is computed against the adapter-reported context limit and
// clamps remaining capacity at zero.
type ContextStats struct {
	TotalTokens       int `json:"total_tokens"`
	RemainingCapacity int `json:"remaining_capacity"`
}
