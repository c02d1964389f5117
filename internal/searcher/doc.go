// Package searcher implements hybrid package search combining vector similarity
// and BM25 keyword matching over a read-only catalog.
//
// The engine runs both retrieval legs concurrently, merges them with Reciprocal
// Rank Fusion, and applies post-filtering and pagination. When no embedding
// provider is configured (or the catalog carries no vectors) it degrades to
// lexical-only search transparently.
//
// # Basic Usage
//
//	engine := searcher.NewEngine(cat, emb, searcher.DefaultOptions())
//
//	results := engine.Search(ctx, types.SearchParams{
//	    Query: "text editor",
//	    Limit: 10,
//	})
//
//	for _, pkg := range results.Packages {
//	    fmt.Printf("%s %s (score: %.4f)\n", pkg.PackageName, pkg.Version, pkg.RelevanceScore)
//	}
//
// Search never returns an error. Failures surface as a result set with
// SearchType set to "error" and an empty package list, so callers always have
// a well-formed envelope to render.
//
// # Search Modes
//
// The mode is chosen per query and reported in SearchResults.SearchType:
//
//   - "hybrid": embedding provider available, catalog has vectors, and the
//     query embedded successfully. Both legs run and are fused.
//   - "fts": lexical-only. Used when embeddings are unavailable or the query
//     embedding failed. This is the degraded-but-healthy path.
//   - "error": the search could not produce results at all (lexical leg
//     failed, both legs failed, or the query timed out).
//
// # Rank Fusion
//
// Fuse implements standard RRF: each result list contributes
// 1/(k + rank + 1) per entry, contributions are summed per package, and the
// merged list is ordered by fused score. The constant k (default 60) dampens
// the advantage of top ranks; see Options.RRFConstant.
//
// # Caching
//
// Query results are cached in an LRU keyed by a hash of the full parameter
// set (query, limit, offset, filters) with a short TTL. Cached hits still
// report their own elapsed time. The cache holds deep copies in both
// directions so callers may mutate returned slices freely.
package searcher
