package embedder

import (
	"fmt"
	"os"
	"strings"

	"github.com/fdnix/searchd/internal/config"
)

// New creates an embedder from explicit configuration.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	cache := NewCache(cfg.CacheSize)

	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		provider = detectFromConfig(cfg)
	}

	switch provider {
	case ProviderGemini:
		return NewGeminiProvider(cfg.APIKey, GeminiOptions{
			Model:      cfg.Model,
			TaskType:   cfg.TaskType,
			Dimensions: cfg.Dimensions,
		}, cache)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.Dimensions, cache)
	case ProviderOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model, cache)
	case ProviderLocal:
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
}

// NewFromEnv creates an embedder from environment variables alone.
// Priority:
//  1. SEARCHD_EMBEDDING_PROVIDER (gemini, openai, ollama, local)
//  2. Available API keys: GOOGLE_GEMINI_API_KEY, OPENAI_API_KEY
//  3. Local fallback
func NewFromEnv() (Embedder, error) {
	cfg := config.EmbeddingConfig{
		Provider:  os.Getenv("SEARCHD_EMBEDDING_PROVIDER"),
		CacheSize: 10000,
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	case ProviderOllama:
		cfg.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	default:
		cfg.APIKey = os.Getenv("GOOGLE_GEMINI_API_KEY")
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
			if cfg.Provider == "" && cfg.APIKey != "" {
				cfg.Provider = ProviderOpenAI
			}
		}
	}

	if cfg.Provider == "" {
		cfg.Provider = DetectProvider()
	}

	return New(cfg)
}

// DetectProvider returns the provider that NewFromEnv would select.
func DetectProvider() string {
	if provider := os.Getenv("SEARCHD_EMBEDDING_PROVIDER"); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv("GOOGLE_GEMINI_API_KEY") != "" {
		return ProviderGemini
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		return ProviderOpenAI
	}
	return ProviderLocal
}

// detectFromConfig picks a provider based on what the config can support.
func detectFromConfig(cfg config.EmbeddingConfig) string {
	if cfg.APIKey != "" {
		return ProviderGemini
	}
	if cfg.BaseURL != "" {
		return ProviderOllama
	}
	return ProviderLocal
}
