package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fdnix/searchd/internal/catalog"
	"github.com/fdnix/searchd/internal/embedder"
	"github.com/fdnix/searchd/pkg/types"
)

// Options tunes the search engine.
type Options struct {
	// RRFConstant is the k value for Reciprocal Rank Fusion.
	RRFConstant float64

	// EmbedTimeout bounds the query embedding call. On expiry the
	// request degrades to lexical-only search.
	EmbedTimeout time.Duration

	// SearchTimeout bounds the whole search operation.
	SearchTimeout time.Duration

	// Query result cache settings.
	CacheEnabled bool
	CacheSize    int
	CacheTTL     time.Duration
}

// DefaultOptions returns the engine defaults used in production.
func DefaultOptions() Options {
	return Options{
		RRFConstant:   DefaultRRFConstant,
		EmbedTimeout:  5 * time.Second,
		SearchTimeout: 10 * time.Second,
		CacheEnabled:  true,
		CacheSize:     1000,
		CacheTTL:      60 * time.Second,
	}
}

// cacheEntry represents a cached result set with expiration time
type cacheEntry struct {
	results   *types.SearchResults
	expiresAt time.Time
}

// Engine coordinates hybrid search across the embedding provider and
// the catalog. Its Search method never returns an error: every failure
// downgrades the response rather than losing it.
type Engine struct {
	catalog  catalog.Catalog
	embedder embedder.Embedder // nil when embeddings are disabled
	opts     Options
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.RWMutex
}

// NewEngine creates a search engine. embedder may be nil, which pins
// every request to lexical search.
func NewEngine(cat catalog.Catalog, emb embedder.Embedder, opts Options) *Engine {
	if opts.RRFConstant <= 0 {
		opts.RRFConstant = DefaultRRFConstant
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1000
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 60 * time.Second
	}

	cache, err := lru.New[[32]byte, *cacheEntry](opts.CacheSize)
	if err != nil {
		// Only possible with a non-positive size, which is normalized above.
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Engine{
		catalog:  cat,
		embedder: emb,
		opts:     opts,
		cache:    cache,
	}
}

// Search executes one search request end to end: mode selection,
// retrieval, fusion, and post-processing. The response is always
// well-formed; catastrophic failures yield SearchTypeError with an
// empty package list and the elapsed time still recorded.
func (e *Engine) Search(ctx context.Context, params types.SearchParams) (res *types.SearchResults) {
	start := time.Now()
	params.Normalize()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("search panic recovered: %v", r)
			res = errorResults(start)
		}
	}()

	if e.opts.CacheEnabled {
		if cached := e.checkCache(params); cached != nil {
			cached.QueryTimeMs = elapsedMs(start)
			return cached
		}
	}

	if e.opts.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.SearchTimeout)
		defer cancel()
	}

	// Over-fetch both legs so fusion and post-filtering have enough
	// candidates to fill the requested page.
	fetchLimit := params.Limit * 2

	embedding := e.embedQuery(ctx, params.Query)

	var packages []types.Package
	mode := types.SearchTypeFTS

	if len(embedding) > 0 {
		mode = types.SearchTypeHybrid
		fused, err := e.hybridSearch(ctx, params.Query, embedding, fetchLimit)
		if err != nil {
			log.Printf("hybrid search failed: %v", err)
			return errorResults(start)
		}
		packages = fused
	} else {
		lexical, err := e.catalog.LexicalSearch(ctx, params.Query, fetchLimit)
		if err != nil {
			log.Printf("lexical search failed: %v", err)
			return errorResults(start)
		}
		packages = lexical
	}

	packages = PostProcess(packages, params)

	res = &types.SearchResults{
		Packages:    packages,
		TotalCount:  len(packages),
		QueryTimeMs: elapsedMs(start),
		SearchType:  mode,
	}

	if e.opts.CacheEnabled && len(res.Packages) > 0 {
		e.storeInCache(params, res)
	}

	return res
}

// embedQuery produces the query vector when hybrid search is possible.
// Any failure (no provider, lexical-only catalog, provider error,
// timeout) returns nil and the caller degrades to lexical search.
func (e *Engine) embedQuery(ctx context.Context, query string) []float32 {
	if e.embedder == nil || query == "" || !e.catalog.VectorReady() {
		return nil
	}

	ectx := ctx
	if e.opts.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		ectx, cancel = context.WithTimeout(ctx, e.opts.EmbedTimeout)
		defer cancel()
	}

	vec, err := e.embedder.Embed(ectx, query)
	if err != nil {
		log.Printf("query embedding failed, degrading to lexical search: %v", err)
		return nil
	}
	return vec
}

// searchLeg holds the outcome of one concurrent retrieval leg.
type searchLeg struct {
	packages []types.Package
	err      error
}

// runVectorSearch executes the vector leg in a goroutine.
func (e *Engine) runVectorSearch(ctx context.Context, embedding []float32, limit int, resultChan chan<- searchLeg) {
	var leg searchLeg
	leg.packages, leg.err = e.catalog.VectorSearch(ctx, embedding, limit)
	select {
	case resultChan <- leg:
	case <-ctx.Done():
	}
}

// runLexicalSearch executes the lexical leg in a goroutine.
func (e *Engine) runLexicalSearch(ctx context.Context, query string, limit int, resultChan chan<- searchLeg) {
	var leg searchLeg
	leg.packages, leg.err = e.catalog.LexicalSearch(ctx, query, limit)
	select {
	case resultChan <- leg:
	case <-ctx.Done():
	}
}

// hybridSearch runs both retrieval legs concurrently and fuses their
// rankings. One leg may fail; only the loss of both is an error.
func (e *Engine) hybridSearch(ctx context.Context, query string, embedding []float32, limit int) ([]types.Package, error) {
	vectorChan := make(chan searchLeg, 1)
	lexicalChan := make(chan searchLeg, 1)

	go e.runVectorSearch(ctx, embedding, limit, vectorChan)
	go e.runLexicalSearch(ctx, query, limit, lexicalChan)

	var vectorLeg, lexicalLeg searchLeg
	var vectorDone, lexicalDone bool
	for !vectorDone || !lexicalDone {
		select {
		case vectorLeg = <-vectorChan:
			vectorDone = true
		case lexicalLeg = <-lexicalChan:
			lexicalDone = true
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if vectorLeg.err != nil && lexicalLeg.err != nil {
		return nil, fmt.Errorf("both searches failed: vector=%w, lexical=%v", vectorLeg.err, lexicalLeg.err)
	}

	return Fuse(vectorLeg.packages, lexicalLeg.packages, e.opts.RRFConstant), nil
}

// errorResults builds the failure response: empty packages, error mode,
// elapsed time recorded.
func errorResults(start time.Time) *types.SearchResults {
	return &types.SearchResults{
		Packages:    []types.Package{},
		TotalCount:  0,
		QueryTimeMs: elapsedMs(start),
		SearchType:  types.SearchTypeError,
	}
}

// elapsedMs returns wall-clock time since start in fractional milliseconds.
func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Nanoseconds()) / 1e6
}

// checkCache looks up a cached result set, pruning expired entries.
func (e *Engine) checkCache(params types.SearchParams) *types.SearchResults {
	hash := computeQueryHash(params)
	now := time.Now()

	e.cacheMu.RLock()
	entry, found := e.cache.Get(hash)
	if !found {
		e.cacheMu.RUnlock()
		return nil
	}

	if now.After(entry.expiresAt) {
		e.cacheMu.RUnlock()
		e.cacheMu.Lock()
		e.cache.Remove(hash)
		e.cacheMu.Unlock()
		return nil
	}

	// Copy while still holding the read lock so the entry cannot
	// change mid-copy.
	results := copyResults(entry.results)
	e.cacheMu.RUnlock()

	return results
}

// storeInCache saves a result set with the configured TTL.
func (e *Engine) storeInCache(params types.SearchParams, results *types.SearchResults) {
	entry := &cacheEntry{
		results:   copyResults(results),
		expiresAt: time.Now().Add(e.opts.CacheTTL),
	}

	e.cacheMu.Lock()
	e.cache.Add(computeQueryHash(params), entry)
	e.cacheMu.Unlock()
}

// InvalidateCache drops all cached queries. Called when the catalog
// file is swapped out underneath a running process.
func (e *Engine) InvalidateCache() {
	e.cacheMu.Lock()
	e.cache.Purge()
	e.cacheMu.Unlock()
}

// copyResults creates a deep copy of a result set so cached values are
// isolated from caller mutations.
func copyResults(src *types.SearchResults) *types.SearchResults {
	if src == nil {
		return nil
	}
	dst := &types.SearchResults{
		TotalCount:  src.TotalCount,
		QueryTimeMs: src.QueryTimeMs,
		SearchType:  src.SearchType,
		Packages:    make([]types.Package, len(src.Packages)),
	}
	copy(dst.Packages, src.Packages)
	return dst
}

// computeQueryHash computes a stable cache key for a request.
func computeQueryHash(params types.SearchParams) [32]byte {
	key := fmt.Sprintf("%s|%d|%d|%s|%s",
		params.Query, params.Limit, params.Offset, params.License, params.Category)
	return sha256.Sum256([]byte(key))
}
