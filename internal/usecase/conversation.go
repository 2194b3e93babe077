package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"personachat/internal/domain"
)

// Conversation owns one persona's message history against a single
// provider/model pair and orchestrates send → optimize → call provider →
// append → optimize → persist.
//
// Two durable states exist: fresh (system message only) and active (system
// plus at least one exchange). A transient pending flag guards the in-flight
// send; a second SendMessage while pending is rejected, not queued.
type Conversation struct {
	mu      sync.Mutex
	id      domain.ConversationID
	msgs    []domain.Message
	cfg     domain.ConversationConfig
	total   int // cached token total for the current history
	pending bool

	provider domain.Provider
	counter  domain.TokenCounter
	store    domain.ConversationStore
	logger   *slog.Logger

	updatedAt time.Time
}

// NewConversation creates (or resumes) a conversation for persona against
// provider. Saved state for the exact identity is restored when present;
// otherwise the system prompt is synthesized from the persona profile and
// the fresh state is persisted immediately.
func NewConversation(
	provider domain.Provider,
	persona domain.PersonaConfig,
	cfg domain.ConversationConfig,
	counter domain.TokenCounter,
	store domain.ConversationStore,
	logger *slog.Logger,
) *Conversation {
	c := &Conversation{
		id: domain.ConversationID{
			Persona:  persona.Handle(),
			Provider: provider.Type(),
			Model:    provider.Model(),
		},
		cfg:       cfg,
		provider:  provider,
		counter:   counter,
		store:     store,
		logger:    logger,
		updatedAt: time.Now(),
	}

	if rec, err := store.Load(c.id); err == nil && len(rec.Messages) > 0 {
		c.msgs = rec.Messages
		c.total = provider.TotalTokens(c.msgs)
		logger.Debug("conversation restored",
			"conversation", c.id.String(),
			"messages", len(c.msgs),
			"tokens", c.total,
		)
		return c
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		// Corrupt saved state reads as a fresh start; the record is
		// overwritten on the next save.
		logger.Warn("ignoring unreadable conversation state",
			"conversation", c.id.String(),
			"error", err,
		)
	}

	system := domain.NewMessage(domain.RoleSystem, BuildSystemPrompt(persona), counter)
	c.msgs = []domain.Message{system}
	c.total = system.TokenCount
	c.persistLocked()
	return c
}

// ID returns the conversation's composite identity.
func (c *Conversation) ID() domain.ConversationID { return c.id }

// Config returns the eviction policy in effect.
func (c *Conversation) Config() domain.ConversationConfig { return c.cfg }

// Provider returns the bound provider adapter.
func (c *Conversation) Provider() domain.Provider { return c.provider }

// UpdatedAt returns the time of the last mutation.
func (c *Conversation) UpdatedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updatedAt
}

// SendMessage appends text as a user turn, sends the optimized window to the
// provider, appends the reply, persists, and returns the assistant text.
//
// Empty or whitespace-only text returns ErrEmptyMessage. A send already in
// flight returns ErrSendPending. On provider failure the user message stays
// appended (no rollback), the pending flag clears, and the error propagates.
func (c *Conversation) SendMessage(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrEmptyMessage
	}

	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return "", domain.ErrSendPending
	}
	c.pending = true

	c.msgs = append(c.msgs, domain.NewMessage(domain.RoleUser, text, c.counter))
	c.optimizeLocked()

	window := make([]domain.Message, len(c.msgs)-1)
	copy(window, c.msgs[1:])
	systemPrompt := c.msgs[0].Content
	reserved := c.cfg.ReservedTokens
	c.mu.Unlock()

	requestID := ulid.MustNew(ulid.Now(), rand.New(rand.NewSource(time.Now().UnixNano()))).String()
	c.logger.Debug("sending message",
		"conversation", c.id.String(),
		"request_id", requestID,
		"window", len(window),
	)

	reply, err := c.provider.Send(ctx, window, systemPrompt, reserved)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false

	if err != nil {
		// The user turn was already persisted before the call; it stays
		// visible in history as an unanswered message.
		c.logger.Warn("send failed",
			"conversation", c.id.String(),
			"request_id", requestID,
			"error", err,
		)
		return "", domain.WrapOp("Conversation.SendMessage", err)
	}

	c.msgs = append(c.msgs, domain.NewMessage(domain.RoleAssistant, reply, c.counter))
	c.optimizeLocked()
	c.logger.Debug("assistant reply appended",
		"conversation", c.id.String(),
		"request_id", requestID,
		"tokens", c.total,
	)
	return reply, nil
}

// Pending reports whether a send is currently in flight.
func (c *Conversation) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// ContextStats returns the engine-level usage snapshot. RemainingCapacity is
// MaxTokens minus the running total and is deliberately not clamped; the
// provider's ContextStats clamps against the real model limit.
func (c *Conversation) ContextStats() domain.ContextStatsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	oldestAge := 0
	if len(c.msgs) > 1 && c.msgs[1].HasTimestamp() {
		oldestAge = int(time.Since(c.msgs[1].Timestamp).Minutes())
	}

	return domain.ContextStatsSnapshot{
		MessageCount:      len(c.msgs),
		TotalTokens:       c.total,
		OldestMessageAge:  oldestAge,
		RemainingCapacity: c.cfg.MaxTokens - c.total,
	}
}

// Messages returns a copy of the full history including the system message.
// Callers filtering for display must exclude RoleSystem themselves.
func (c *Conversation) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]domain.Message, len(c.msgs))
	copy(cp, c.msgs)
	return cp
}

// AppendHistory restores saved messages directly, bypassing system prompt
// regeneration and the optimizer. Used only by registry restore.
func (c *Conversation) AppendHistory(messages []domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, messages...)
	c.total = c.provider.TotalTokens(c.msgs)
	c.updatedAt = time.Now()
}

// ClearHistory resets the conversation to just its system message and
// removes the persisted record.
func (c *Conversation) ClearHistory() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.msgs = c.msgs[:1:1]
	c.total = c.provider.TotalTokens(c.msgs)
	c.updatedAt = time.Now()

	if err := c.store.Delete(c.id); err != nil {
		return domain.WrapOp("Conversation.ClearHistory", err)
	}
	return nil
}

// optimizeLocked trims history, refreshes the token total, and persists.
// Callers must hold c.mu.
func (c *Conversation) optimizeLocked() {
	c.msgs = OptimizeContext(c.msgs, c.cfg, time.Now(), c.counter)
	c.total = c.provider.TotalTokens(c.msgs)
	c.persistLocked()
}

// persistLocked writes the current state synchronously. Persistence failures
// are logged, not propagated: an unsaved turn is preferable to a failed send.
func (c *Conversation) persistLocked() {
	c.updatedAt = time.Now()
	rec := domain.ConversationRecord{
		ID:        c.id,
		Messages:  c.msgs,
		UpdatedAt: c.updatedAt,
	}
	if err := c.store.Save(rec); err != nil {
		c.logger.Error("persist conversation failed",
			"conversation", c.id.String(),
			"error", err,
		)
	}
}
