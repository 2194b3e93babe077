package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	c := cfg.Conversation
	if c.MaxTokens != 100000 {
		t.Errorf("MaxTokens = %d, want 100000", c.MaxTokens)
	}
	if c.MaxMessageAge != 60 {
		t.Errorf("MaxMessageAge = %d, want 60", c.MaxMessageAge)
	}
	if c.MaxMessages != 20 {
		t.Errorf("MaxMessages = %d, want 20", c.MaxMessages)
	}
	if c.ReservedTokens != 1000 {
		t.Errorf("ReservedTokens = %d, want 1000", c.ReservedTokens)
	}

	if cfg.Tokenizer.Kind != "heuristic" {
		t.Errorf("Tokenizer.Kind = %q, want heuristic", cfg.Tokenizer.Kind)
	}
	if cfg.Catalog.Path == "" || cfg.Storage.Path == "" {
		t.Error("default paths must not be empty")
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Conversation.MaxTokens != 100000 {
		t.Errorf("MaxTokens = %d, want default", cfg.Conversation.MaxTokens)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
conversation:
  max_tokens: 50000
  max_messages: 10
logger:
  level: debug
providers:
  - type: anthropic
    model: claude-3-5-sonnet-20241022
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Conversation.MaxTokens != 50000 {
		t.Errorf("MaxTokens = %d, want 50000", cfg.Conversation.MaxTokens)
	}
	if cfg.Conversation.MaxMessages != 10 {
		t.Errorf("MaxMessages = %d, want 10", cfg.Conversation.MaxMessages)
	}
	// Unset fields keep their defaults.
	if cfg.Conversation.ReservedTokens != 1000 {
		t.Errorf("ReservedTokens = %d, want default 1000", cfg.Conversation.ReservedTokens)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("Logger.Level = %q", cfg.Logger.Level)
	}
	if len(cfg.Providers) != 1 || cfg.Providers[0].Model != "claude-3-5-sonnet-20241022" {
		t.Errorf("Providers = %+v", cfg.Providers)
	}
}

func TestLoadProcessesIncludes(t *testing.T) {
	dir := t.TempDir()
	extra := filepath.Join(dir, "extra.yaml")
	if err := os.WriteFile(extra, []byte("conversation:\n  max_messages: 8\n"), 0600); err != nil {
		t.Fatalf("write extra: %v", err)
	}
	main := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(main, []byte("includes:\n  - extra.yaml\nconversation:\n  max_tokens: 40000\n"), 0600); err != nil {
		t.Fatalf("write main: %v", err)
	}

	cfg, err := Load(main)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Conversation.MaxMessages != 8 {
		t.Errorf("included MaxMessages = %d, want 8", cfg.Conversation.MaxMessages)
	}
	if cfg.Conversation.MaxTokens != 40000 {
		t.Errorf("MaxTokens = %d, want 40000", cfg.Conversation.MaxTokens)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PERSONACHAT_MAX_TOKENS", "12345")
	t.Setenv("PERSONACHAT_TOKENIZER", "tiktoken")
	t.Setenv("ANTHROPIC_API_KEY", "sk-env")

	cfg := Defaults()
	cfg.Providers = []ProviderConfig{{Type: "anthropic", Model: "m"}}
	ApplyEnvOverrides(cfg)

	if cfg.Conversation.MaxTokens != 12345 {
		t.Errorf("MaxTokens = %d, want 12345", cfg.Conversation.MaxTokens)
	}
	if cfg.Tokenizer.Kind != "tiktoken" {
		t.Errorf("Tokenizer.Kind = %q", cfg.Tokenizer.Kind)
	}
	if cfg.Providers[0].APIKey != "sk-env" {
		t.Errorf("APIKey = %q, want env fallback", cfg.Providers[0].APIKey)
	}
}

func TestEnvDoesNotOverrideExplicitAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg := Defaults()
	cfg.Providers = []ProviderConfig{{Type: "openai", Model: "m", APIKey: "sk-config"}}
	ApplyEnvOverrides(cfg)

	if cfg.Providers[0].APIKey != "sk-config" {
		t.Errorf("APIKey = %q, explicit key must win", cfg.Providers[0].APIKey)
	}
}
