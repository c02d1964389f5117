package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// Provider configuration
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderLocal  = "local"

	// Default models
	DefaultGeminiModel = "gemini-embedding-001"
	DefaultOllamaModel = "nomic-embed-text"

	// Dimensions
	DefaultGeminiDimension = 256
	OllamaDimension        = 768
	LocalDimension         = 256

	// Gemini request defaults
	DefaultGeminiTaskType = "SEMANTIC_SIMILARITY"

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiProvider implements Embedder using the Gemini embedContent API.
type GeminiProvider struct {
	apiKey     string
	model      string
	taskType   string
	dimensions int
	httpClient *http.Client
	cache      *Cache
}

// GeminiOptions customizes a GeminiProvider beyond its defaults.
type GeminiOptions struct {
	Model      string
	TaskType   string
	Dimensions int
}

// NewGeminiProvider creates a Gemini embedder. The API key is required.
func NewGeminiProvider(apiKey string, opts GeminiOptions, cache *Cache) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GOOGLE_GEMINI_API_KEY not set", ErrNoProviderConfigured)
	}

	p := &GeminiProvider{
		apiKey:     apiKey,
		model:      opts.Model,
		taskType:   opts.TaskType,
		dimensions: opts.Dimensions,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      cache,
	}
	if p.model == "" {
		p.model = DefaultGeminiModel
	}
	if p.taskType == "" {
		p.taskType = DefaultGeminiTaskType
	}
	if p.dimensions <= 0 {
		p.dimensions = DefaultGeminiDimension
	}
	return p, nil
}

func (g *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	hash := ComputeHash(text)
	if g.cache != nil {
		if vec, ok := g.cache.Get(hash); ok {
			return vec, nil
		}
	}

	config := DefaultRetryConfig()
	vec, err := retryWithBackoff(ctx, config, func() ([]float32, error) {
		return g.callAPI(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrProviderFailed, MaxRetries, err)
	}

	if g.cache != nil {
		g.cache.Set(hash, vec)
	}
	return vec, nil
}

func (g *GeminiProvider) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, g, texts)
}

func (g *GeminiProvider) HealthCheck(ctx context.Context) bool {
	vec, err := g.callAPI(ctx, "test")
	return err == nil && len(vec) > 0
}

func (g *GeminiProvider) callAPI(ctx context.Context, text string) ([]float32, error) {
	reqBody := map[string]interface{}{
		"model": "models/" + g.model,
		"content": map[string]interface{}{
			"parts": []map[string]string{{"text": text}},
		},
		"taskType":             g.taskType,
		"outputDimensionality": g.dimensions,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:embedContent", geminiEndpoint, g.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
	}

	// Response shape: {"embedding": {"values": [...]}}
	vec, err := parseEmbeddingPayload(respBody)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrMalformedResponse)
	}
	return vec, nil
}

func (g *GeminiProvider) Dimension() int {
	return g.dimensions
}

func (g *GeminiProvider) Provider() string {
	return ProviderGemini
}

func (g *GeminiProvider) Model() string {
	return g.model
}

func (g *GeminiProvider) Close() error {
	g.httpClient.CloseIdleConnections()
	return nil
}

// OllamaProvider implements Embedder against a local Ollama server.
type OllamaProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
	cache      *Cache
}

// NewOllamaProvider creates an Ollama embedder. baseURL defaults to
// the standard local port.
func NewOllamaProvider(baseURL, model string, cache *Cache) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaProvider{
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      cache,
	}, nil
}

func (o *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	hash := ComputeHash(text)
	if o.cache != nil {
		if vec, ok := o.cache.Get(hash); ok {
			return vec, nil
		}
	}

	config := DefaultRetryConfig()
	vec, err := retryWithBackoff(ctx, config, func() ([]float32, error) {
		return o.callAPI(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrProviderFailed, MaxRetries, err)
	}

	if o.cache != nil {
		o.cache.Set(hash, vec)
	}
	return vec, nil
}

func (o *OllamaProvider) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, o, texts)
}

func (o *OllamaProvider) HealthCheck(ctx context.Context) bool {
	vec, err := o.callAPI(ctx, "test")
	return err == nil && len(vec) > 0
}

func (o *OllamaProvider) callAPI(ctx context.Context, text string) ([]float32, error) {
	reqBody := map[string]interface{}{
		"model":  o.model,
		"prompt": text,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
	}

	// Response shape: {"embedding": [...]}
	vec, err := parseEmbeddingPayload(respBody)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrMalformedResponse)
	}
	return vec, nil
}

func (o *OllamaProvider) Dimension() int {
	return OllamaDimension
}

func (o *OllamaProvider) Provider() string {
	return ProviderOllama
}

func (o *OllamaProvider) Model() string {
	return o.model
}

func (o *OllamaProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider produces deterministic offline vectors derived from the
// text hash. Used for development and tests; similarity between the
// vectors carries no semantic meaning.
type LocalProvider struct {
	model string
	cache *Cache
}

// NewLocalProvider creates a local embedder.
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{
		model: "local-embeddings",
		cache: cache,
	}, nil
}

func (l *LocalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	hash := ComputeHash(text)
	if l.cache != nil {
		if vec, ok := l.cache.Get(hash); ok {
			return vec, nil
		}
	}

	vec := NormalizeVector(localVector(text))
	if l.cache != nil {
		l.cache.Set(hash, vec)
	}
	return vec, nil
}

func (l *LocalProvider) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, l, texts)
}

func (l *LocalProvider) HealthCheck(ctx context.Context) bool {
	return true
}

// localVector expands the SHA-256 digest of the text into a raw vector
// with components in [0, 1]. Repeated digest rounds fill dimensions
// past 32. Embed normalizes the result to unit length.
func localVector(text string) []float32 {
	vec := make([]float32, LocalDimension)
	digest := sha256.Sum256([]byte(text))
	for i := 0; i < LocalDimension; i++ {
		if i > 0 && i%len(digest) == 0 {
			digest = sha256.Sum256(digest[:])
		}
		vec[i] = float32(digest[i%len(digest)]) / 255.0
	}
	return vec
}

func (l *LocalProvider) Dimension() int {
	return LocalDimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// embedEach implements EmbedMany as one Embed call per text, dropping
// items that fail.
func embedEach(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			continue
		}
		out = append(out, vec)
	}
	return out, nil
}

// NormalizeVector normalizes a vector to unit length.
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
