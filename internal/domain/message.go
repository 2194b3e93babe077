package domain

import "time"

// Role constants for message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a conversation. Messages are stored in strict
// chronological append order; index 0 is always the system message.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	// TokenCount caches the estimated token count for Content. Zero means
	// "not cached"; callers must recompute through a TokenCounter.
	TokenCount int `json:"token_count,omitempty"`
}

// HasTimestamp reports whether the message carries a creation time.
// Legacy persisted records may lack one; the optimizer evicts those.
func (m Message) HasTimestamp() bool {
	return !m.Timestamp.IsZero()
}

// NewMessage builds a message stamped with the current time and a cached
// token count from the given counter.
func NewMessage(role, content string, counter TokenCounter) Message {
	return Message{
		Role:       role,
		Content:    content,
		Timestamp:  time.Now(),
		TokenCount: counter.CountText(content),
	}
}

// TokenCounter estimates token usage for budgeting. Implementations are
// deterministic and never fail; exact provider tokenization is out of scope.
type TokenCounter interface {
	// CountText returns the approximate token count for text. Empty input
	// returns 0.
	CountText(text string) int
	// CountMessages sums per-message counts, preferring cached TokenCount
	// values and falling back to CountText.
	CountMessages(messages []Message) int
}
