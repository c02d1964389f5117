package embedder

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// embeddingServer fakes the Ollama embeddings endpoint, counting calls
// and optionally failing the first failUntil requests.
func embeddingServer(t *testing.T, calls *atomic.Int64, failUntil int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n <= failUntil {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embedding": [0.1, 0.2, 0.3]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaEmbed(t *testing.T) {
	var calls atomic.Int64
	srv := embeddingServer(t, &calls, 0)

	emb, err := NewOllamaProvider(srv.URL, "", nil)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	vec, err := emb.Embed(context.Background(), "text editor")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("vector length = %d, want 3", len(vec))
	}
	if emb.Model() != DefaultOllamaModel {
		t.Errorf("model = %s, want default", emb.Model())
	}
}

func TestOllamaEmbedRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int64
	srv := embeddingServer(t, &calls, 2)

	emb, _ := NewOllamaProvider(srv.URL, "", nil)

	vec, err := emb.Embed(context.Background(), "text editor")
	if err != nil {
		t.Fatalf("embed should succeed on the third attempt: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("vector length = %d, want 3", len(vec))
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestOllamaEmbedExhaustsRetries(t *testing.T) {
	var calls atomic.Int64
	srv := embeddingServer(t, &calls, 1000)

	emb, _ := NewOllamaProvider(srv.URL, "", nil)

	_, err := emb.Embed(context.Background(), "text editor")
	if !errors.Is(err, ErrProviderFailed) {
		t.Fatalf("expected ErrProviderFailed, got %v", err)
	}
	if calls.Load() != MaxRetries {
		t.Errorf("expected %d attempts, got %d", MaxRetries, calls.Load())
	}
}

func TestOllamaEmbedUsesCache(t *testing.T) {
	var calls atomic.Int64
	srv := embeddingServer(t, &calls, 0)

	emb, _ := NewOllamaProvider(srv.URL, "", NewCache(10))
	ctx := context.Background()

	if _, err := emb.Embed(ctx, "text editor"); err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if _, err := emb.Embed(ctx, "text editor"); err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	if calls.Load() != 1 {
		t.Errorf("repeated text should hit the cache, got %d API calls", calls.Load())
	}
}

func TestOllamaHealthCheckBypassesCache(t *testing.T) {
	var calls atomic.Int64
	srv := embeddingServer(t, &calls, 0)

	emb, _ := NewOllamaProvider(srv.URL, "", NewCache(10))
	ctx := context.Background()

	// Prime the cache with the probe text; the health check must still
	// reach the network every time.
	if _, err := emb.Embed(ctx, "test"); err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if !emb.HealthCheck(ctx) {
		t.Fatal("health check should pass against a live server")
	}
	if !emb.HealthCheck(ctx) {
		t.Fatal("health check should pass against a live server")
	}

	if calls.Load() != 3 {
		t.Errorf("expected 3 API calls (1 embed + 2 health checks), got %d", calls.Load())
	}
}

func TestOllamaHealthCheckFailure(t *testing.T) {
	var calls atomic.Int64
	srv := embeddingServer(t, &calls, 1000)

	emb, _ := NewOllamaProvider(srv.URL, "", nil)
	if emb.HealthCheck(context.Background()) {
		t.Fatal("health check must fail against a failing server")
	}
}

func TestOllamaEmptyVectorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding": []}`))
	}))
	defer srv.Close()

	emb, _ := NewOllamaProvider(srv.URL, "", nil)
	_, err := emb.Embed(context.Background(), "text")
	if err == nil {
		t.Fatal("empty vector must be rejected")
	}
}

func TestGeminiRequiresAPIKey(t *testing.T) {
	_, err := NewGeminiProvider("", GeminiOptions{}, nil)
	if !errors.Is(err, ErrNoProviderConfigured) {
		t.Fatalf("expected ErrNoProviderConfigured, got %v", err)
	}
}

func TestGeminiDefaults(t *testing.T) {
	emb, err := NewGeminiProvider("test-key", GeminiOptions{}, nil)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	if emb.Model() != DefaultGeminiModel {
		t.Errorf("model = %s, want %s", emb.Model(), DefaultGeminiModel)
	}
	if emb.Dimension() != DefaultGeminiDimension {
		t.Errorf("dimension = %d, want %d", emb.Dimension(), DefaultGeminiDimension)
	}
	if emb.Provider() != ProviderGemini {
		t.Errorf("provider = %s", emb.Provider())
	}
}

func TestRetryWithBackoffHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	_, err := retryWithBackoff(ctx, RetryConfig{
		MaxRetries: 5,
		BaseDelay:  10 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2,
	}, func() (int, error) {
		attempts++
		cancel()
		return 0, errors.New("boom")
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("cancellation must stop retries, got %d attempts", attempts)
	}
}

func TestRetryWithBackoffEventualSuccess(t *testing.T) {
	attempts := 0
	got, err := retryWithBackoff(context.Background(), RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   10 * time.Millisecond,
		Multiplier: 2,
	}, func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})

	if err != nil || got != "ok" {
		t.Fatalf("expected eventual success, got (%q, %v)", got, err)
	}
}
