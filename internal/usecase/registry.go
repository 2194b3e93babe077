package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"personachat/internal/domain"
)

// ProviderFactory builds a provider adapter for a saved or requested
// provider/model identity. The registry uses it to reconstruct adapters
// during restore without depending on the adapter package.
type ProviderFactory func(providerType domain.ProviderType, model string) (domain.Provider, error)

// PersonaLookup resolves a persona handle to its catalog profile.
type PersonaLookup func(handle string) (domain.PersonaConfig, error)

// Registry is the sole owner of all live conversations, keyed by composite
// identity. Insert and delete are serialized by the internal lock; each
// conversation guards its own message sequence independently, so sends to
// different conversations proceed concurrently.
type Registry struct {
	mu            sync.RWMutex
	conversations map[domain.ConversationID]*Conversation
	selected      domain.ConversationID
	hasSelected   bool

	cfg       domain.ConversationConfig
	counter   domain.TokenCounter
	store     domain.ConversationStore
	providers ProviderFactory
	personas  PersonaLookup
	logger    *slog.Logger
}

// NewRegistry creates an empty conversation registry.
func NewRegistry(
	cfg domain.ConversationConfig,
	counter domain.TokenCounter,
	store domain.ConversationStore,
	providers ProviderFactory,
	personas PersonaLookup,
	logger *slog.Logger,
) *Registry {
	return &Registry{
		conversations: make(map[domain.ConversationID]*Conversation),
		cfg:           cfg,
		counter:       counter,
		store:         store,
		providers:     providers,
		personas:      personas,
		logger:        logger,
	}
}

// Start creates a new conversation for persona against the given provider
// identity, registers it, and selects it. Starting the same persona under a
// different provider/model yields an independent entry; starting an identity
// that already exists replaces the live engine with a fresh one (which will
// itself resume any persisted history).
func (r *Registry) Start(persona domain.PersonaConfig, providerType domain.ProviderType, model string) (*Conversation, error) {
	provider, err := r.providers(providerType, model)
	if err != nil {
		return nil, domain.WrapOp("Registry.Start", err)
	}

	conv := NewConversation(provider, persona, r.cfg, r.counter, r.store, r.logger)

	r.mu.Lock()
	r.conversations[conv.ID()] = conv
	r.selected = conv.ID()
	r.hasSelected = true
	r.mu.Unlock()

	if err := r.store.SetSelected(conv.ID().String()); err != nil {
		r.logger.Warn("remember selected conversation failed", "error", err)
	}

	r.logger.Info("conversation started",
		"conversation", conv.ID().String(),
	)
	return conv, nil
}

// Get returns the conversation for id, or ErrConversationGone.
func (r *Registry) Get(id domain.ConversationID) (*Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.conversations[id]
	if !ok {
		return nil, domain.NewDomainError("Registry.Get", domain.ErrConversationGone, id.String())
	}
	return conv, nil
}

// Select changes which conversation is active for UI purposes. Engine state
// is untouched.
func (r *Registry) Select(id domain.ConversationID) error {
	r.mu.Lock()
	_, ok := r.conversations[id]
	if ok {
		r.selected = id
		r.hasSelected = true
	}
	r.mu.Unlock()

	if !ok {
		return domain.NewDomainError("Registry.Select", domain.ErrConversationGone, id.String())
	}
	if err := r.store.SetSelected(id.String()); err != nil {
		r.logger.Warn("remember selected conversation failed", "error", err)
	}
	return nil
}

// Selected returns the active conversation, or nil when none is selected.
func (r *Registry) Selected() *Conversation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.hasSelected {
		return nil
	}
	return r.conversations[r.selected]
}

// Delete removes the conversation from the registry. The persisted record is
// kept, so the history resurfaces if the identity is started again.
func (r *Registry) Delete(id domain.ConversationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[id]; !ok {
		return domain.NewDomainError("Registry.Delete", domain.ErrConversationGone, id.String())
	}
	delete(r.conversations, id)
	if r.selected == id {
		r.hasSelected = false
	}
	return nil
}

// List returns all live conversations.
func (r *Registry) List() []*Conversation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Conversation, 0, len(r.conversations))
	for _, conv := range r.conversations {
		out = append(out, conv)
	}
	return out
}

// RestoreAll rehydrates the registry from the durable store. It runs once at
// startup after the persona catalog has loaded, since persona lookup is
// required to rebuild conversations. A corrupt or unresolvable record only
// skips that conversation; the rest still load.
func (r *Registry) RestoreAll(ctx context.Context) error {
	records, err := r.store.List()
	if err != nil {
		return domain.WrapOp("Registry.RestoreAll", err)
	}

	for _, rec := range records {
		if err := r.restoreOne(rec); err != nil {
			r.logger.Warn("skipping conversation during restore",
				"conversation", rec.ID.String(),
				"error", err,
			)
		}
	}

	if key, err := r.store.Selected(); err == nil && key != "" {
		if id, err := domain.ParseConversationID(key); err == nil {
			r.mu.Lock()
			if _, ok := r.conversations[id]; ok {
				r.selected = id
				r.hasSelected = true
			}
			r.mu.Unlock()
		}
	}

	r.logger.Info("registry restored", "conversations", len(r.conversations))
	return nil
}

func (r *Registry) restoreOne(rec domain.ConversationRecord) error {
	persona, err := r.personas(rec.ID.Persona)
	if err != nil {
		return err
	}
	provider, err := r.providers(rec.ID.Provider, rec.ID.Model)
	if err != nil {
		return err
	}

	// NewConversation loads the same record from the store, so saved
	// messages come back without prompt regeneration or optimizer passes.
	conv := NewConversation(provider, persona, r.cfg, r.counter, r.store, r.logger)
	if len(conv.Messages()) <= 1 && len(rec.Messages) > 1 {
		conv.AppendHistory(rec.Messages[1:])
	}

	r.mu.Lock()
	r.conversations[conv.ID()] = conv
	r.mu.Unlock()
	return nil
}

// ReapIdle drops conversations whose last mutation is older than maxIdle
// from the registry and returns how many were dropped. Persisted records are
// untouched, matching Delete semantics.
func (r *Registry) ReapIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()

	var reaped int
	for id, conv := range r.conversations {
		if conv.UpdatedAt().Before(cutoff) {
			delete(r.conversations, id)
			if r.selected == id {
				r.hasSelected = false
			}
			reaped++
		}
	}
	if reaped > 0 {
		r.logger.Info("reaped idle conversations", "count", reaped)
	}
	return reaped
}
