package usecase

import (
	"time"

	"personachat/internal/domain"
)

// OptimizeContext trims a conversation history to its configured bounds. It
// is a pure transformation: persistence is the caller's responsibility.
//
// Three passes run in order, each narrowing the previous result:
//
//  1. Age filter: drop every non-system message older than cfg.MaxMessageAge
//     minutes, or lacking a timestamp. The system message at index 0 is
//     always retained.
//  2. Count cap: keep the system message plus only the most recent
//     cfg.MaxMessages-1 messages.
//  3. Token budget: evict the oldest non-system message one at a time while
//     the estimated total exceeds cfg.MaxTokens-cfg.ReservedTokens, but
//     never below the system message plus one other.
//
// Age filtering may legitimately leave just the system message; that is not
// an error, subsequent sends re-populate the history.
func OptimizeContext(messages []domain.Message, cfg domain.ConversationConfig, now time.Time, counter domain.TokenCounter) []domain.Message {
	if len(messages) == 0 {
		return messages
	}

	maxAge := cfg.MaxAge()
	kept := make([]domain.Message, 0, len(messages))
	for i, m := range messages {
		if i == 0 {
			kept = append(kept, m)
			continue
		}
		if !m.HasTimestamp() {
			continue
		}
		if now.Sub(m.Timestamp) > maxAge {
			continue
		}
		kept = append(kept, m)
	}

	if len(kept) > cfg.MaxMessages {
		recent := kept[len(kept)-(cfg.MaxMessages-1):]
		capped := make([]domain.Message, 0, cfg.MaxMessages)
		capped = append(capped, kept[0])
		capped = append(capped, recent...)
		kept = capped
	}

	budget := cfg.Budget()
	for counter.CountMessages(kept) > budget && len(kept) > 2 {
		// Oldest non-system message is always at index 1.
		kept = append(kept[:1], kept[2:]...)
	}

	return kept
}
