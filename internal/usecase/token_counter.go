package usecase

import (
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"personachat/internal/domain"
)

// charsPerToken is the heuristic ratio for natural-language text.
const charsPerToken = 4

// HeuristicTokenCounter approximates token counts from text length. It is
// pure and deterministic; exact provider tokenization is out of scope.
type HeuristicTokenCounter struct{}

// NewHeuristicTokenCounter returns the default length-based counter.
func NewHeuristicTokenCounter() *HeuristicTokenCounter {
	return &HeuristicTokenCounter{}
}

// CountText estimates ~1 token per 4 characters, blended with the word count
// to track natural-language text a little more closely. Returns 0 for empty
// input.
func (c *HeuristicTokenCounter) CountText(text string) int {
	if text == "" {
		return 0
	}
	byChars := (len(text) + charsPerToken - 1) / charsPerToken
	words := len(strings.Fields(text))
	if words == 0 {
		return byChars
	}
	// Words average a bit over one token each; weight the char estimate
	// higher since it dominates for long tokens and non-prose input.
	blended := (byChars*3 + words*4) / 4
	if blended < 1 {
		return 1
	}
	return blended
}

// CountMessages implements domain.TokenCounter.
func (c *HeuristicTokenCounter) CountMessages(messages []domain.Message) int {
	return sumMessageTokens(c, messages)
}

// TiktokenCounter counts tokens with a real BPE encoding. Still an
// approximation of provider-side accounting, but much closer than the
// length heuristic for unusual input.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named encoding (e.g. "cl100k_base").
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &TiktokenCounter{encoding: enc}, nil
}

// CountText implements domain.TokenCounter.
func (c *TiktokenCounter) CountText(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// CountMessages implements domain.TokenCounter.
func (c *TiktokenCounter) CountMessages(messages []domain.Message) int {
	return sumMessageTokens(c, messages)
}

// sumMessageTokens prefers cached per-message counts and falls back to the
// counter for messages that lack one.
func sumMessageTokens(c domain.TokenCounter, messages []domain.Message) int {
	total := 0
	for _, m := range messages {
		if m.TokenCount > 0 {
			total += m.TokenCount
			continue
		}
		total += c.CountText(m.Content)
	}
	return total
}

// NewTokenCounter builds a counter for the configured kind. Unknown kinds
// and tiktoken load failures degrade to the heuristic counter with a log
// line rather than an error.
func NewTokenCounter(kind, encoding string, logger *slog.Logger) domain.TokenCounter {
	if kind == "tiktoken" {
		if encoding == "" {
			encoding = "cl100k_base"
		}
		counter, err := NewTiktokenCounter(encoding)
		if err == nil {
			return counter
		}
		logger.Warn("tiktoken encoding unavailable, falling back to heuristic counter",
			"encoding", encoding,
			"error", err,
		)
	}
	return NewHeuristicTokenCounter()
}
