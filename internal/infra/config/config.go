package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"personachat/internal/domain"
)

// Config is the top-level application configuration.
type Config struct {
	// Includes lists additional YAML files (globs allowed) merged over this
	// one, resolved relative to the including file.
	Includes []string `yaml:"includes"`

	Catalog      CatalogConfig             `yaml:"catalog"`
	Storage      StorageConfig             `yaml:"storage"`
	Providers    []ProviderConfig          `yaml:"providers"`
	Conversation domain.ConversationConfig `yaml:"conversation"`
	Tokenizer    TokenizerConfig           `yaml:"tokenizer"`
	Reaper       ReaperConfig              `yaml:"reaper"`
	Logger       LoggerConfig              `yaml:"logger"`
	Tracer       TracerConfig              `yaml:"tracer"`
}

// CatalogConfig locates the persona catalog.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// StorageConfig locates the local SQLite database holding conversations and
// credentials.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// ProviderConfig holds settings for a single LLM provider.
type ProviderConfig struct {
	Type        string        `yaml:"type"` // "anthropic" | "openai"
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"` // overrides the credential store when set
	Model       string        `yaml:"model"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
	RespTimeout time.Duration `yaml:"resp_timeout"`

	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
}

// CircuitBreakerConfig holds circuit breaker settings for provider calls.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// RateLimitConfig throttles outgoing provider calls.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

// TokenizerConfig selects the token counting strategy.
type TokenizerConfig struct {
	// Kind is "heuristic" (default, chars/4 with word refinement) or
	// "tiktoken" (BPE-backed, falls back to heuristic if the encoding
	// cannot be loaded).
	Kind     string `yaml:"kind"`
	Encoding string `yaml:"encoding"` // tiktoken encoding name, default "cl100k_base"
}

// ReaperConfig controls scheduled eviction of idle conversations from the
// registry. Persisted records are untouched.
type ReaperConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"` // cron expression
	MaxIdle  string `yaml:"max_idle"` // duration string, e.g. "24h"
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
}

// Defaults returns a config populated with sensible defaults.
func Defaults() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Catalog: CatalogConfig{
			Path: filepath.Join(dataDir, "personas.json"),
		},
		Storage: StorageConfig{
			Path: filepath.Join(dataDir, "personachat.db"),
		},
		Conversation: domain.DefaultConversationConfig(),
		Tokenizer: TokenizerConfig{
			Kind:     "heuristic",
			Encoding: "cl100k_base",
		},
		Reaper: ReaperConfig{
			Enabled:  false,
			Schedule: "@hourly",
			MaxIdle:  "24h",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".personachat")
}

// Load reads a YAML config file and applies env var overrides. A missing
// file yields defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if len(cfg.Includes) > 0 {
		if err := processIncludes(cfg, filepath.Dir(path), nil, 0); err != nil {
			return nil, err
		}
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps PERSONACHAT_* env vars to config fields. API keys
// also honor the conventional provider env vars so users don't have to put
// secrets in the config file.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PERSONACHAT_CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}
	if v := os.Getenv("PERSONACHAT_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("PERSONACHAT_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("PERSONACHAT_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("PERSONACHAT_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("PERSONACHAT_TOKENIZER"); v != "" {
		cfg.Tokenizer.Kind = v
	}
	if v := os.Getenv("PERSONACHAT_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Conversation.MaxTokens = n
		}
	}
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.APIKey != "" {
			continue
		}
		switch p.Type {
		case string(domain.ProviderAnthropic):
			p.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case string(domain.ProviderOpenAI):
			p.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}
