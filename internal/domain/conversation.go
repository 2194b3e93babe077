package domain

import (
	"fmt"
	"strings"
	"time"
)

// ProviderType identifies a remote LLM provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
)

// ParseProviderType validates a provider identifier.
func ParseProviderType(s string) (ProviderType, error) {
	switch ProviderType(strings.ToLower(s)) {
	case ProviderAnthropic:
		return ProviderAnthropic, nil
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	default:
		return "", fmt.Errorf("%w: provider %q", ErrInvalidInput, s)
	}
}

// ConversationConfig is the tunable eviction policy for one conversation.
type ConversationConfig struct {
	// MaxTokens is the authoritative token budget for the optimizer,
	// usually the provider context ceiling or a safe default.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens"`
	// MaxMessageAge is the maximum age of a non-system message in minutes.
	MaxMessageAge int `yaml:"max_message_age" json:"max_message_age"`
	// MaxMessages caps history length including the system message.
	MaxMessages int `yaml:"max_messages" json:"max_messages"`
	// ReservedTokens is capacity carved out for the upcoming response.
	ReservedTokens int `yaml:"reserved_tokens" json:"reserved_tokens"`
}

// DefaultConversationConfig mirrors the product defaults.
func DefaultConversationConfig() ConversationConfig {
	return ConversationConfig{
		MaxTokens:      100000,
		MaxMessageAge:  60,
		MaxMessages:    20,
		ReservedTokens: 1000,
	}
}

// MaxAge returns the age limit as a duration.
func (c ConversationConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxMessageAge) * time.Minute
}

// Budget is the token ceiling available to history after reserving response
// capacity.
func (c ConversationConfig) Budget() int {
	return c.MaxTokens - c.ReservedTokens
}

// ConversationID is the composite identity of a conversation: the same
// persona may run independent simultaneous sessions against different
// provider/model pairs.
type ConversationID struct {
	Persona  string       `json:"persona"` // persona handle, e.g. "naval"
	Provider ProviderType `json:"provider"`
	Model    string       `json:"model"`
}

// idSeparator joins the identity fields in String. Persona handles and model
// names never contain it.
const idSeparator = ":"

func (id ConversationID) String() string {
	return id.Persona + idSeparator + string(id.Provider) + idSeparator + id.Model
}

// ParseConversationID is the inverse of String.
func ParseConversationID(s string) (ConversationID, error) {
	parts := strings.SplitN(s, idSeparator, 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return ConversationID{}, fmt.Errorf("%w: conversation id %q", ErrInvalidInput, s)
	}
	pt, err := ParseProviderType(parts[1])
	if err != nil {
		return ConversationID{}, err
	}
	return ConversationID{Persona: parts[0], Provider: pt, Model: parts[2]}, nil
}

// ConversationRecord is the persisted form of one conversation.
type ConversationRecord struct {
	ID        ConversationID `json:"id"`
	Messages  []Message      `json:"messages"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ContextStatsSnapshot is the engine-level view of context usage exposed to
// the UI.
type ContextStatsSnapshot struct {
	MessageCount     int `json:"message_count"`
	TotalTokens      int `json:"total_tokens"`
	OldestMessageAge int `json:"oldest_message_age"` // minutes; 0 if no non-system message
	// RemainingCapacity is MaxTokens minus TotalTokens, deliberately not
	// clamped at zero; the provider-level stats clamp.
	RemainingCapacity int `json:"remaining_capacity"`
}
