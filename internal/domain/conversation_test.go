package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseProviderType(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want ProviderType
	}{
		{"anthropic", ProviderAnthropic},
		{"Anthropic", ProviderAnthropic},
		{"OPENAI", ProviderOpenAI},
	} {
		got, err := ParseProviderType(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseProviderType(%q) = %q, %v", tt.in, got, err)
		}
	}

	if _, err := ParseProviderType("gemini"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown provider err = %v, want ErrInvalidInput", err)
	}
}

func TestConversationIDRoundTrip(t *testing.T) {
	id := ConversationID{Persona: "ada", Provider: ProviderOpenAI, Model: "gpt-4o"}
	s := id.String()
	if s != "ada:openai:gpt-4o" {
		t.Errorf("String = %q", s)
	}

	got, err := ParseConversationID(s)
	if err != nil {
		t.Fatalf("ParseConversationID: %v", err)
	}
	if got != id {
		t.Errorf("round trip = %+v, want %+v", got, id)
	}
}

func TestParseConversationIDModelWithColons(t *testing.T) {
	// Model names may carry version suffixes with colons; only the first two
	// separators split fields.
	got, err := ParseConversationID("ada:openai:ft:gpt-4o:org::v1")
	if err != nil {
		t.Fatalf("ParseConversationID: %v", err)
	}
	if got.Model != "ft:gpt-4o:org::v1" {
		t.Errorf("Model = %q", got.Model)
	}
}

func TestParseConversationIDInvalid(t *testing.T) {
	for _, s := range []string{"", "ada", "ada:anthropic", "ada::m", ":anthropic:m", "ada:gemini:m"} {
		if _, err := ParseConversationID(s); err == nil {
			t.Errorf("ParseConversationID(%q) accepted invalid input", s)
		}
	}
}

func TestConversationConfigDerived(t *testing.T) {
	cfg := DefaultConversationConfig()
	if cfg.MaxTokens != 100000 || cfg.MaxMessageAge != 60 || cfg.MaxMessages != 20 || cfg.ReservedTokens != 1000 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.MaxAge() != time.Hour {
		t.Errorf("MaxAge = %v, want 1h", cfg.MaxAge())
	}
	if cfg.Budget() != 99000 {
		t.Errorf("Budget = %d, want 99000", cfg.Budget())
	}
}
