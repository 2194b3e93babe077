package llm

import (
	"log/slog"

	"personachat/internal/domain"
	"personachat/internal/infra/config"
)

// Factory builds provider adapters from configuration plus the credential
// store. Constructed once at startup and handed to the registry so restore
// can rebuild adapters for saved provider identities.
type Factory struct {
	configs     map[domain.ProviderType]config.ProviderConfig
	credentials domain.CredentialStore
	counter     domain.TokenCounter
	logger      *slog.Logger
}

// NewFactory indexes the configured providers by type.
func NewFactory(configs []config.ProviderConfig, credentials domain.CredentialStore, counter domain.TokenCounter, logger *slog.Logger) *Factory {
	byType := make(map[domain.ProviderType]config.ProviderConfig, len(configs))
	for _, cfg := range configs {
		if pt, err := domain.ParseProviderType(cfg.Type); err == nil {
			byType[pt] = cfg
		}
	}
	return &Factory{
		configs:     byType,
		credentials: credentials,
		counter:     counter,
		logger:      logger,
	}
}

// New builds a provider for the given type and model, resolving the API key
// from config or the credential store and applying the configured resilience
// wrappers. A missing credential fails with ErrCredentialMissing: the
// conversation cannot start without one.
func (f *Factory) New(providerType domain.ProviderType, model string) (domain.Provider, error) {
	cfg := f.configs[providerType]
	cfg.Type = string(providerType)
	if model != "" {
		cfg.Model = model
	}

	if cfg.APIKey == "" {
		key, err := f.credentials.Get(providerType)
		if err != nil {
			return nil, domain.NewDomainError("Factory.New", domain.ErrCredentialMissing, string(providerType))
		}
		cfg.APIKey = key
	}

	var provider domain.Provider
	switch providerType {
	case domain.ProviderAnthropic:
		provider = NewAnthropicProvider(cfg, f.counter, f.logger)
	case domain.ProviderOpenAI:
		provider = NewOpenAIProvider(cfg, f.counter, f.logger)
	default:
		return nil, domain.NewDomainError("Factory.New", domain.ErrInvalidInput, string(providerType))
	}

	if cfg.RateLimit.Enabled {
		provider = NewRateLimitedProvider(provider, cfg.RateLimit)
	}
	if cfg.CircuitBreaker.Enabled {
		provider = NewCircuitBreakerProvider(provider, cfg.CircuitBreaker, f.logger)
	}
	return provider, nil
}
