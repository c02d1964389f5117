// Package embedder generates vector embeddings for search queries using
// various providers.
//
// The embedder supports multiple providers (Gemini, OpenAI, Ollama, local)
// behind a single interface and provides caching, retries with exponential
// backoff, and health checking.
//
// # Basic Usage
//
//	// Create embedder (auto-detects provider from environment)
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	vector, err := emb.Embed(ctx, "markdown editor with vim bindings")
//	fmt.Printf("Vector dimension: %d\n", len(vector))
//
// # Provider Selection
//
// The factory picks a provider in this order:
//
//  1. Explicit provider name from config (SEARCHD_EMBEDDING_PROVIDER)
//  2. GOOGLE_GEMINI_API_KEY set: Gemini
//  3. OPENAI_API_KEY set: OpenAI
//  4. OLLAMA_BASE_URL set: Ollama
//  5. Fallback: deterministic local embedder (no network, test-friendly)
//
// # Caching
//
// Each provider shares an LRU cache keyed by the SHA-256 of the input text.
// Cache hits skip the network entirely. HealthCheck deliberately bypasses the
// cache so it exercises the real provider round trip.
//
// # Error Handling
//
// Empty input fails fast with ErrEmptyText before any network call. Transient
// provider failures are retried up to three times with exponential backoff;
// context cancellation aborts the retry loop immediately. EmbedMany is
// best-effort: texts that fail to embed are dropped rather than failing the
// whole batch.
package embedder
