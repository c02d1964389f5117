package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Common errors
var (
	ErrEmptyText            = errors.New("text cannot be empty")
	ErrProviderFailed       = errors.New("embedding provider failed")
	ErrUnsupportedProvider  = errors.New("unsupported embedding provider")
	ErrNoProviderConfigured = errors.New("no embedding provider configured")
	ErrMalformedResponse    = errors.New("malformed embedding response")
)

// Embedder converts query text into a fixed-dimension vector.
//
// Implementations must return an error rather than panic on any
// failure; callers treat every error as "no embedding" and degrade to
// lexical search.
type Embedder interface {
	// Embed generates a single embedding for the given text.
	// Empty text fails locally without a network call.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedMany generates embeddings for multiple texts. Items that
	// fail are silently dropped, so the result may be shorter than the
	// input. Callers needing per-item errors should call Embed directly.
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)

	// HealthCheck performs one real embedding call, bypassing any
	// cache, and reports whether the provider is reachable.
	HealthCheck(ctx context.Context) bool

	// Dimension returns the embedding dimension for this provider.
	Dimension() int

	// Provider returns the provider name.
	Provider() string

	// Model returns the model name.
	Model() string

	// Close releases any resources held by the embedder.
	Close() error
}

// Cache provides in-memory LRU caching of embeddings by content hash.
type Cache struct {
	cache *lru.Cache[string, []float32]
}

// NewCache creates a new embedding cache with LRU eviction.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000
	}
	cache, err := lru.New[string, []float32](maxLen)
	if err != nil {
		cache, _ = lru.New[string, []float32](10000)
	}
	return &Cache{cache: cache}
}

// Get retrieves a copy of a cached vector. A copy is returned so caller
// mutations cannot pollute the cache.
func (c *Cache) Get(hash string) ([]float32, bool) {
	v, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, true
}

// Set stores a vector in cache with automatic LRU eviction.
func (c *Cache) Set(hash string, v []float32) {
	c.cache.Add(hash, v)
}

// Size returns the current cache size.
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.cache.Purge()
}

// ComputeHash computes the SHA-256 hash of text for cache keys.
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// parseEmbeddingPayload normalizes the vector out of a provider response
// body. Providers disagree on envelope shape, so all known forms are
// accepted:
//
//	[0.1, 0.2, ...]
//	{"embedding": [0.1, ...]}
//	{"embedding": {"values": [0.1, ...]}}
//	{"values": [0.1, ...]}
//	{"float": [0.1, ...]}
func parseEmbeddingPayload(data []byte) ([]float32, error) {
	// Flat array
	var flat []float32
	if err := json.Unmarshal(data, &flat); err == nil {
		return flat, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: not an array or object", ErrMalformedResponse)
	}

	for _, key := range []string{"embedding", "values", "float"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}

		var vec []float32
		if err := json.Unmarshal(raw, &vec); err == nil {
			return vec, nil
		}

		// Nested object form, e.g. {"embedding": {"values": [...]}}
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(raw, &nested); err == nil {
			if inner, ok := nested["values"]; ok {
				if err := json.Unmarshal(inner, &vec); err == nil {
					return vec, nil
				}
			}
		}
	}

	return nil, fmt.Errorf("%w: no embedding field found", ErrMalformedResponse)
}

// validateText rejects empty input before any network traffic.
func validateText(text string) error {
	if text == "" {
		return ErrEmptyText
	}
	return nil
}
