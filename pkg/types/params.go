package types

// Default request values applied when a parameter is missing or invalid.
const (
	DefaultLimit  = 50
	DefaultOffset = 0
)

// SearchParams carries a validated search request through the pipeline.
type SearchParams struct {
	// Query is the free-text search string. Required for lexical search.
	Query string

	// Limit is the maximum number of results to return after pagination.
	// Zero is honored and yields an empty result list.
	Limit int

	// Offset is the number of post-filter results to skip.
	Offset int

	// License, when non-empty, keeps only packages whose license string
	// contains this value (case-sensitive substring match).
	License string

	// Category is accepted for interface stability but has no effect:
	// the catalog carries no category metadata.
	Category string
}

// Normalize replaces negative values with defaults. An explicit zero
// limit is preserved.
func (p *SearchParams) Normalize() {
	if p.Limit < 0 {
		p.Limit = DefaultLimit
	}
	if p.Offset < 0 {
		p.Offset = DefaultOffset
	}
}
