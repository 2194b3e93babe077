package usecase

import (
	"testing"
	"time"

	"personachat/internal/domain"
)

func testConfig() domain.ConversationConfig {
	return domain.ConversationConfig{
		MaxTokens:      100000,
		MaxMessageAge:  60,
		MaxMessages:    20,
		ReservedTokens: 1000,
	}
}

// history builds a system message plus n alternating user/assistant turns,
// all stamped at now.
func history(n int, now time.Time, counter domain.TokenCounter) []domain.Message {
	msgs := make([]domain.Message, 0, n+1)
	msgs = append(msgs, domain.Message{
		Role:       domain.RoleSystem,
		Content:    "system prompt",
		Timestamp:  now,
		TokenCount: counter.CountText("system prompt"),
	})
	for i := 0; i < n; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		msgs = append(msgs, domain.Message{
			Role:       role,
			Content:    "turn content",
			Timestamp:  now,
			TokenCount: counter.CountText("turn content"),
		})
	}
	return msgs
}

func TestOptimizeContextEmpty(t *testing.T) {
	counter := NewHeuristicTokenCounter()
	out := OptimizeContext(nil, testConfig(), time.Now(), counter)
	if len(out) != 0 {
		t.Errorf("len = %d, want 0", len(out))
	}
}

func TestOptimizeContextAgeFilter(t *testing.T) {
	counter := NewHeuristicTokenCounter()
	now := time.Now()

	msgs := []domain.Message{
		{Role: domain.RoleSystem, Content: "system", Timestamp: now.Add(-3 * time.Hour)},
		{Role: domain.RoleUser, Content: "too old", Timestamp: now.Add(-2 * time.Hour)},
		{Role: domain.RoleAssistant, Content: "no timestamp"},
		{Role: domain.RoleUser, Content: "fresh", Timestamp: now.Add(-time.Minute)},
	}

	out := OptimizeContext(msgs, testConfig(), now, counter)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].Role != domain.RoleSystem {
		t.Errorf("index 0 role = %q, want system", out[0].Role)
	}
	if out[1].Content != "fresh" {
		t.Errorf("kept %q, want \"fresh\"", out[1].Content)
	}
}

func TestOptimizeContextAgeFilterCanLeaveSystemOnly(t *testing.T) {
	counter := NewHeuristicTokenCounter()
	now := time.Now()

	msgs := history(6, now.Add(-2*time.Hour), counter)
	msgs[0].Timestamp = now // system age is irrelevant

	out := OptimizeContext(msgs, testConfig(), now, counter)
	if len(out) != 1 {
		t.Fatalf("len = %d, want 1 (system only)", len(out))
	}
	if out[0].Role != domain.RoleSystem {
		t.Errorf("survivor role = %q, want system", out[0].Role)
	}
}

func TestOptimizeContextCountCap(t *testing.T) {
	counter := NewHeuristicTokenCounter()
	now := time.Now()

	// 25 user/assistant pairs on top of the system message.
	msgs := history(50, now, counter)
	for i := range msgs {
		msgs[i].Content = contentFor(i)
		msgs[i].TokenCount = counter.CountText(msgs[i].Content)
	}

	out := OptimizeContext(msgs, testConfig(), now, counter)
	if len(out) != 20 {
		t.Fatalf("len = %d, want 20", len(out))
	}
	if out[0].Role != domain.RoleSystem {
		t.Errorf("index 0 role = %q, want system", out[0].Role)
	}
	// The 19 most recent turns survive.
	if out[1].Content != contentFor(32) {
		t.Errorf("oldest kept = %q, want %q", out[1].Content, contentFor(32))
	}
	if out[19].Content != contentFor(50) {
		t.Errorf("newest kept = %q, want %q", out[19].Content, contentFor(50))
	}
}

func contentFor(i int) string {
	return "turn " + string(rune('A'+i%26)) + string(rune('a'+i/26))
}

func TestOptimizeContextTokenBudgetEvictsOldestFirst(t *testing.T) {
	counter := NewHeuristicTokenCounter()
	now := time.Now()

	cfg := testConfig()
	cfg.MaxTokens = 100
	cfg.ReservedTokens = 20

	msgs := []domain.Message{
		{Role: domain.RoleSystem, Content: "sys", Timestamp: now, TokenCount: 10},
		{Role: domain.RoleUser, Content: "a", Timestamp: now, TokenCount: 40},
		{Role: domain.RoleAssistant, Content: "b", Timestamp: now, TokenCount: 40},
		{Role: domain.RoleUser, Content: "c", Timestamp: now, TokenCount: 40},
	}

	out := OptimizeContext(msgs, cfg, now, counter)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].Content != "sys" || out[1].Content != "c" {
		t.Errorf("kept %q,%q; want sys,c", out[0].Content, out[1].Content)
	}
}

func TestOptimizeContextNeverBelowTwoMessages(t *testing.T) {
	counter := NewHeuristicTokenCounter()
	now := time.Now()

	cfg := testConfig()
	cfg.MaxTokens = 10
	cfg.ReservedTokens = 9 // budget of 1, impossible to satisfy

	msgs := []domain.Message{
		{Role: domain.RoleSystem, Content: "sys", Timestamp: now, TokenCount: 50},
		{Role: domain.RoleUser, Content: "a", Timestamp: now, TokenCount: 50},
		{Role: domain.RoleAssistant, Content: "b", Timestamp: now, TokenCount: 50},
	}

	out := OptimizeContext(msgs, cfg, now, counter)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2 even when over budget", len(out))
	}
}

func TestOptimizeContextDoesNotMutateInput(t *testing.T) {
	counter := NewHeuristicTokenCounter()
	now := time.Now()

	cfg := testConfig()
	cfg.MaxTokens = 100
	cfg.ReservedTokens = 0

	msgs := []domain.Message{
		{Role: domain.RoleSystem, Content: "sys", Timestamp: now, TokenCount: 10},
		{Role: domain.RoleUser, Content: "a", Timestamp: now, TokenCount: 60},
		{Role: domain.RoleAssistant, Content: "b", Timestamp: now, TokenCount: 60},
		{Role: domain.RoleUser, Content: "c", Timestamp: now, TokenCount: 10},
	}
	want := make([]domain.Message, len(msgs))
	copy(want, msgs)

	OptimizeContext(msgs, cfg, now, counter)

	for i := range want {
		if msgs[i].Content != want[i].Content {
			t.Fatalf("input mutated at %d: %q != %q", i, msgs[i].Content, want[i].Content)
		}
	}
}
