package usecase

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"personachat/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHeuristicCountTextEmpty(t *testing.T) {
	counter := NewHeuristicTokenCounter()
	if got := counter.CountText(""); got != 0 {
		t.Errorf("CountText(\"\") = %d, want 0", got)
	}
}

func TestHeuristicCountTextNonEmptyIsPositive(t *testing.T) {
	counter := NewHeuristicTokenCounter()
	for _, text := range []string{"a", "hi", "    ", "one two three"} {
		if got := counter.CountText(text); got < 1 {
			t.Errorf("CountText(%q) = %d, want >= 1", text, got)
		}
	}
}

func TestHeuristicCountTextMonotonic(t *testing.T) {
	counter := NewHeuristicTokenCounter()
	prev := 0
	text := ""
	for i := 0; i < 50; i++ {
		text += "word "
		got := counter.CountText(text)
		if got < prev {
			t.Fatalf("count decreased from %d to %d at length %d", prev, got, len(text))
		}
		prev = got
	}
}

func TestHeuristicCountTextScalesWithLength(t *testing.T) {
	counter := NewHeuristicTokenCounter()
	short := counter.CountText("hello world")
	long := counter.CountText(strings.Repeat("hello world ", 100))
	if long <= short {
		t.Errorf("long text count %d not greater than short %d", long, short)
	}
}

func TestCountMessagesPrefersCachedCounts(t *testing.T) {
	counter := NewHeuristicTokenCounter()
	msgs := []domain.Message{
		{Role: domain.RoleUser, Content: "some long content here", TokenCount: 7},
		{Role: domain.RoleAssistant, Content: "fallback path"},
	}
	want := 7 + counter.CountText("fallback path")
	if got := counter.CountMessages(msgs); got != want {
		t.Errorf("CountMessages = %d, want %d", got, want)
	}
}

func TestNewTokenCounterUnknownKindFallsBack(t *testing.T) {
	counter := NewTokenCounter("", "", newTestLogger())
	if _, ok := counter.(*HeuristicTokenCounter); !ok {
		t.Errorf("got %T, want *HeuristicTokenCounter", counter)
	}

	counter = NewTokenCounter("heuristic", "", newTestLogger())
	if _, ok := counter.(*HeuristicTokenCounter); !ok {
		t.Errorf("got %T, want *HeuristicTokenCounter", counter)
	}
}
