package types

// SearchType identifies which retrieval strategy produced a result set.
type SearchType string

const (
	SearchTypeVector SearchType = "vector" // embedding similarity only
	SearchTypeFTS    SearchType = "fts"    // lexical BM25 only
	SearchTypeHybrid SearchType = "hybrid" // vector + lexical fused with RRF
	SearchTypeError  SearchType = "error"  // catastrophic failure, empty results
)

// SearchResults is the outcome of one search request. It is always
// well-formed: a failed search carries SearchTypeError and an empty
// package list rather than being absent.
type SearchResults struct {
	// Packages ordered by descending relevance.
	Packages []Package

	// TotalCount is the number of packages in this response, counted
	// after filtering and pagination.
	TotalCount int

	// QueryTimeMs is the wall-clock duration of the search in
	// fractional milliseconds. Recorded on every outcome, including
	// errors.
	QueryTimeMs float64

	// SearchType records the strategy that actually ran, which may
	// differ from the one requested when the engine degrades.
	SearchType SearchType
}
