package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"personachat/internal/domain"
	"personachat/internal/infra/config"
	"personachat/internal/infra/tracer"
)

const defaultAnthropicVersion = "2023-06-01"

// anthropicFallbackLimit is the conservative context window assumed for
// models missing from the static table.
const anthropicFallbackLimit = 100000

// anthropicModelLimits is the static lookup table of known context windows.
// No remote discovery endpoint exists for Anthropic, so unknown models fall
// back to anthropicFallbackLimit.
var anthropicModelLimits = map[string]int{
	"claude-3-opus-20240229":     200000,
	"claude-3-sonnet-20240229":   200000,
	"claude-3-haiku-20240307":    200000,
	"claude-3-5-sonnet-20240620": 200000,
	"claude-3-5-sonnet-20241022": 200000,
	"claude-3-5-haiku-20241022":  200000,
	"claude-2.1":                 200000,
	"claude-2.0":                 100000,
	"claude-instant-1.2":         100000,
}

// AnthropicProvider implements domain.Provider for the Anthropic Messages
// API.
type AnthropicProvider struct {
	model   string
	apiKey  string
	baseURL string
	version string
	client  *http.Client
	counter domain.TokenCounter
	logger  *slog.Logger
}

// NewAnthropicProvider creates a provider bound to one model.
func NewAnthropicProvider(cfg config.ProviderConfig, counter domain.TokenCounter, logger *slog.Logger) *AnthropicProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	return &AnthropicProvider{
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		version: defaultAnthropicVersion,
		client:  NewHTTPClient(cfg),
		counter: counter,
		logger:  logger,
	}
}

// Type implements domain.Provider.
func (p *AnthropicProvider) Type() domain.ProviderType { return domain.ProviderAnthropic }

// Model implements domain.Provider.
func (p *AnthropicProvider) Model() string { return p.model }

// --- Anthropic API wire types ---

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Send implements domain.Provider. The window must already exclude the
// system message; it travels in the request's system field.
func (p *AnthropicProvider) Send(ctx context.Context, window []domain.Message, systemPrompt string, maxResponseTokens int) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "llm.send",
		trace.WithAttributes(
			tracer.StringAttr("llm.provider", string(domain.ProviderAnthropic)),
			tracer.StringAttr("llm.model", p.model),
			tracer.IntAttr("llm.window", len(window)),
		),
	)
	defer span.End()

	if maxResponseTokens <= 0 {
		maxResponseTokens = 1000
	}

	req := anthropicRequest{
		Model:     p.model,
		MaxTokens: maxResponseTokens,
		System:    systemPrompt,
		Messages:  make([]anthropicMessage, 0, len(window)),
	}
	for _, m := range window {
		role := "assistant"
		if m.Role == domain.RoleUser {
			role = "user"
		}
		req.Messages = append(req.Messages, anthropicMessage{Role: role, Content: m.Content})
	}

	body, err := json.Marshal(req)
	if err != nil {
		tracer.RecordError(span, err)
		return "", fmt.Errorf("marshal request: %w", err)
	}

	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": p.version,
	}

	respBody, err := postJSON(ctx, p.client, p.baseURL+"/v1/messages", body, headers)
	if err != nil {
		tracer.RecordError(span, err)
		return "", err
	}

	var resp anthropicResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		tracer.RecordError(span, err)
		return "", fmt.Errorf("%w: %s", domain.ErrMalformedResponse, err)
	}
	if len(resp.Content) == 0 || resp.Content[0].Text == "" {
		err := fmt.Errorf("%w: missing content[0].text", domain.ErrMalformedResponse)
		tracer.RecordError(span, err)
		return "", err
	}

	tracer.SetOK(span)
	p.logger.Debug("anthropic send completed",
		"model", p.model,
		"response_id", resp.ID,
	)
	return resp.Content[0].Text, nil
}

// ContextLimit implements domain.Provider using the static table. It never
// performs a remote call.
func (p *AnthropicProvider) ContextLimit(_ context.Context, model string) int {
	if limit, ok := anthropicModelLimits[model]; ok {
		return limit
	}
	p.logger.Debug("unknown anthropic model, using fallback context limit",
		"model", model,
		"fallback", anthropicFallbackLimit,
	)
	return anthropicFallbackLimit
}

// TotalTokens implements domain.Provider. Anthropic prompts carry no
// per-message structural overhead in this approximation.
func (p *AnthropicProvider) TotalTokens(window []domain.Message) int {
	return windowTokens(window, p.counter, 0)
}

// ContextStats implements domain.Provider.
func (p *AnthropicProvider) ContextStats(ctx context.Context, window []domain.Message, cfg domain.ConversationConfig) domain.ContextStats {
	return contextStats(p.TotalTokens(window), p.ContextLimit(ctx, p.model), cfg.ReservedTokens)
}
