package catalog

import (
	"context"

	"github.com/fdnix/searchd/pkg/types"
)

// Catalog is the query interface over the pre-built package database.
// Both search operations are read-only and safe for concurrent use.
type Catalog interface {
	// VectorSearch returns packages ranked by embedding similarity,
	// best first, with RelevanceScore in (0, 1]. Returns an empty
	// slice without error when the vector is empty or the catalog has
	// no usable embeddings.
	VectorSearch(ctx context.Context, vector []float32, limit int) ([]types.Package, error)

	// LexicalSearch returns packages ranked by BM25 relevance, best
	// first. RelevanceScore is the raw BM25 magnitude and is not
	// comparable to vector scores. When the FTS index is unusable the
	// search degrades to substring matching instead of failing.
	LexicalSearch(ctx context.Context, query string, limit int) ([]types.Package, error)

	// VectorReady reports whether the catalog can serve vector
	// queries. Detected once at open time; a catalog without
	// embeddings stays lexical-only for the life of the process.
	VectorReady() bool

	// Stats returns catalog statistics for the status endpoint.
	Stats(ctx context.Context) (*Stats, error)

	// Health is a cheap liveness probe against the database.
	Health(ctx context.Context) error

	// Close releases the database handle.
	Close() error
}

// Stats describes the contents and capabilities of an open catalog.
type Stats struct {
	PackageCount   int
	EmbeddingCount int
	VectorReady    bool
	FTSReady       bool
	SizeMB         float64
	BuildMode      string
	Driver         string
}
