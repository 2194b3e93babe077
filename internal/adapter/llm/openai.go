package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"personachat/internal/domain"
	"personachat/internal/infra/config"
	"personachat/internal/infra/tracer"
)

// openaiMessageOverhead is the fixed per-message structural cost of the chat
// format (role markers and separators). Intentional provider-specific
// divergence from the Anthropic adapter.
const openaiMessageOverhead = 4

// openaiFallbackLimit is the conservative context window assumed when both
// remote discovery and the static table fail to resolve a model.
const openaiFallbackLimit = 8192

// openaiModelLimits holds known defaults used when the models endpoint is
// unreachable.
var openaiModelLimits = map[string]int{
	"gpt-4":               8192,
	"gpt-4-32k":           32768,
	"gpt-4-turbo":         128000,
	"gpt-4-turbo-preview": 128000,
	"gpt-4o":              128000,
	"gpt-4o-mini":         128000,
	"gpt-3.5-turbo":       16385,
}

// OpenAIProvider implements domain.Provider for the OpenAI chat completions
// API.
type OpenAIProvider struct {
	model   string
	apiKey  string
	baseURL string
	client  *http.Client
	counter domain.TokenCounter
	logger  *slog.Logger

	// limitMu guards limitCache, populated lazily from the models endpoint
	// and kept for the process lifetime.
	limitMu    sync.Mutex
	limitCache map[string]int
}

// NewOpenAIProvider creates a provider bound to one model.
func NewOpenAIProvider(cfg config.ProviderConfig, counter domain.TokenCounter, logger *slog.Logger) *OpenAIProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAIProvider{
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		client:     NewHTTPClient(cfg),
		counter:    counter,
		logger:     logger,
		limitCache: make(map[string]int),
	}
}

// Type implements domain.Provider.
func (p *OpenAIProvider) Type() domain.ProviderType { return domain.ProviderOpenAI }

// Model implements domain.Provider.
func (p *OpenAIProvider) Model() string { return p.model }

// --- OpenAI API wire types ---

type openaiRequest struct {
	Model     string          `json:"model"`
	Messages  []openaiMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []openaiChoice `json:"choices"`
}

type openaiChoice struct {
	Index   int           `json:"index"`
	Message openaiMessage `json:"message"`
}

type openaiModelList struct {
	Data []openaiModelInfo `json:"data"`
}

type openaiModelInfo struct {
	ID            string `json:"id"`
	ContextWindow int    `json:"context_window"`
}

// Send implements domain.Provider. The chat completions format carries the
// system prompt as the leading message.
func (p *OpenAIProvider) Send(ctx context.Context, window []domain.Message, systemPrompt string, maxResponseTokens int) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "llm.send",
		trace.WithAttributes(
			tracer.StringAttr("llm.provider", string(domain.ProviderOpenAI)),
			tracer.StringAttr("llm.model", p.model),
			tracer.IntAttr("llm.window", len(window)),
		),
	)
	defer span.End()

	msgs := make([]openaiMessage, 0, len(window)+1)
	msgs = append(msgs, openaiMessage{Role: domain.RoleSystem, Content: systemPrompt})
	for _, m := range window {
		role := domain.RoleAssistant
		if m.Role == domain.RoleUser {
			role = domain.RoleUser
		}
		msgs = append(msgs, openaiMessage{Role: role, Content: m.Content})
	}

	req := openaiRequest{
		Model:     p.model,
		Messages:  msgs,
		MaxTokens: maxResponseTokens,
	}

	body, err := json.Marshal(req)
	if err != nil {
		tracer.RecordError(span, err)
		return "", fmt.Errorf("marshal request: %w", err)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + p.apiKey,
	}

	respBody, err := postJSON(ctx, p.client, p.baseURL+"/chat/completions", body, headers)
	if err != nil {
		tracer.RecordError(span, err)
		return "", err
	}

	var resp openaiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		tracer.RecordError(span, err)
		return "", fmt.Errorf("%w: %s", domain.ErrMalformedResponse, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		err := fmt.Errorf("%w: missing choices[0].message.content", domain.ErrMalformedResponse)
		tracer.RecordError(span, err)
		return "", err
	}

	tracer.SetOK(span)
	p.logger.Debug("openai send completed",
		"model", p.model,
		"response_id", resp.ID,
	)
	return resp.Choices[0].Message.Content, nil
}

// ContextLimit implements domain.Provider. The models endpoint is queried
// once per model and cached for the process lifetime; lookup failures
// degrade to the static table and then the fallback constant, never an
// error.
func (p *OpenAIProvider) ContextLimit(ctx context.Context, model string) int {
	p.limitMu.Lock()
	if limit, ok := p.limitCache[model]; ok {
		p.limitMu.Unlock()
		return limit
	}
	p.limitMu.Unlock()

	limit, err := p.fetchContextLimit(ctx, model)
	if err != nil {
		var ok bool
		limit, ok = openaiModelLimits[model]
		if !ok {
			limit = openaiFallbackLimit
		}
		p.logger.Warn("openai model limit lookup failed, using static default",
			"model", model,
			"limit", limit,
			"error", err,
		)
	}

	p.limitMu.Lock()
	p.limitCache[model] = limit
	p.limitMu.Unlock()
	return limit
}

func (p *OpenAIProvider) fetchContextLimit(ctx context.Context, model string) (int, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + p.apiKey,
	}
	body, err := getJSON(ctx, p.client, p.baseURL+"/models", headers)
	if err != nil {
		return 0, err
	}

	var list openaiModelList
	if err := json.Unmarshal(body, &list); err != nil {
		return 0, fmt.Errorf("%w: %s", domain.ErrMalformedResponse, err)
	}
	for _, info := range list.Data {
		if info.ID == model && info.ContextWindow > 0 {
			return info.ContextWindow, nil
		}
	}
	return 0, fmt.Errorf("model %q not in listing", model)
}

// TotalTokens implements domain.Provider, adding the fixed per-message
// overhead of the chat format.
func (p *OpenAIProvider) TotalTokens(window []domain.Message) int {
	return windowTokens(window, p.counter, openaiMessageOverhead)
}

// ContextStats implements domain.Provider.
func (p *OpenAIProvider) ContextStats(ctx context.Context, window []domain.Message, cfg domain.ConversationConfig) domain.ContextStats {
	return contextStats(p.TotalTokens(window), p.ContextLimit(ctx, p.model), cfg.ReservedTokens)
}
