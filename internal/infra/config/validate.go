package config

import (
	"fmt"
	"time"

	"personachat/internal/domain"
)

// Validate checks the configuration for values that would misbehave at
// runtime. It is called by Load after overrides are applied.
func Validate(cfg *Config) error {
	if cfg.Catalog.Path == "" {
		return fmt.Errorf("catalog.path must not be empty")
	}
	if cfg.Storage.Path == "" {
		return fmt.Errorf("storage.path must not be empty")
	}

	c := cfg.Conversation
	if c.MaxTokens <= 0 {
		return fmt.Errorf("conversation.max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.MaxMessages < 2 {
		return fmt.Errorf("conversation.max_messages must be at least 2, got %d", c.MaxMessages)
	}
	if c.MaxMessageAge <= 0 {
		return fmt.Errorf("conversation.max_message_age must be positive, got %d", c.MaxMessageAge)
	}
	if c.ReservedTokens < 0 || c.ReservedTokens >= c.MaxTokens {
		return fmt.Errorf("conversation.reserved_tokens must be in [0, max_tokens), got %d", c.ReservedTokens)
	}

	switch cfg.Tokenizer.Kind {
	case "", "heuristic", "tiktoken":
	default:
		return fmt.Errorf("tokenizer.kind must be \"heuristic\" or \"tiktoken\", got %q", cfg.Tokenizer.Kind)
	}

	for i, p := range cfg.Providers {
		if _, err := domain.ParseProviderType(p.Type); err != nil {
			return fmt.Errorf("providers[%d]: %w", i, err)
		}
		if p.Model == "" {
			return fmt.Errorf("providers[%d]: model must not be empty", i)
		}
		if p.RateLimit.Enabled && p.RateLimit.RPS <= 0 {
			return fmt.Errorf("providers[%d]: rate_limit.rps must be positive", i)
		}
	}

	if cfg.Reaper.Enabled {
		if cfg.Reaper.Schedule == "" {
			return fmt.Errorf("reaper.schedule must not be empty when enabled")
		}
		if _, err := time.ParseDuration(cfg.Reaper.MaxIdle); err != nil {
			return fmt.Errorf("reaper.max_idle: %w", err)
		}
	}

	return nil
}
