package embedder

import (
	"fmt"

	"github.com/jacobmentalconstruct/neocortex/internal/config"
)

const defaultCacheSize = 4096

// New builds an Embedder from configuration. Every provider shares the
// same content-hash cache semantics.
func New(cfg config.EmbedderConfig) (Embedder, error) {
	cache := NewCache(defaultCacheSize)

	switch cfg.Provider {
	case ProviderOllama, "":
		return NewOllamaProvider(cfg.OllamaURL, cfg.Model, cache), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cache)
	case ProviderLocal:
		return NewLocalProvider(cache), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNoProviderEnabled, cfg.Provider)
	}
}
