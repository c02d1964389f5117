package types

import "errors"

// Domain errors shared across the search pipeline
var (
	ErrEmptyQuery       = errors.New("query cannot be empty")
	ErrCatalogNotFound  = errors.New("catalog database not found")
	ErrCatalogMalformed = errors.New("catalog database missing packages table")
	ErrVectorsDisabled  = errors.New("vector search not available")
)
