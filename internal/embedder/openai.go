package embedder

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultOpenAIModel = "text-embedding-3-small"
	OpenAIDimension    = 1536
)

// OpenAIProvider implements Embedder using the OpenAI embeddings API.
type OpenAIProvider struct {
	client     *openai.Client
	model      string
	dimensions int
	cache      *Cache
}

// NewOpenAIProvider creates an OpenAI embedder. The API key is required.
func NewOpenAIProvider(apiKey, model string, dimensions int, cache *Cache) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", ErrNoProviderConfigured)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if dimensions <= 0 {
		dimensions = OpenAIDimension
	}
	return &OpenAIProvider{
		client:     openai.NewClient(apiKey),
		model:      model,
		dimensions: dimensions,
		cache:      cache,
	}, nil
}

func (o *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
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

func (o *OpenAIProvider) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, o, texts)
}

func (o *OpenAIProvider) HealthCheck(ctx context.Context) bool {
	vec, err := o.callAPI(ctx, "test")
	return err == nil && len(vec) > 0
}

func (o *OpenAIProvider) callAPI(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(o.model),
		Dimensions: o.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrMalformedResponse)
	}
	return resp.Data[0].Embedding, nil
}

func (o *OpenAIProvider) Dimension() int {
	return o.dimensions
}

func (o *OpenAIProvider) Provider() string {
	return ProviderOpenAI
}

func (o *OpenAIProvider) Model() string {
	return o.model
}

func (o *OpenAIProvider) Close() error {
	return nil
}
