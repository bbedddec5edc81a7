package llm

import (
	"fmt"
	"time"
)

// ProviderConfig carries everything needed to construct one provider client.
// Credentials are injected explicitly; nothing in this package reads ambient
// global state.
type ProviderConfig struct {
	Type    string
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewProvider creates an LLM provider from its configuration.
// Supported types: "openai", "groq", "anthropic", "ollama".
func NewProvider(cfg ProviderConfig) (Provider, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	switch cfg.Type {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.Timeout), nil

	case "groq":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("groq provider requires an API key")
		}
		return NewGroqProvider(cfg.APIKey, cfg.Model, cfg.Timeout), nil

	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		return NewAnthropicProvider(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout), nil

	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return NewOllamaProvider(baseURL, cfg.Model, cfg.Timeout), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Type)
	}
}
