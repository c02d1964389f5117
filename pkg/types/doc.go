// Package types defines the shared domain model for the search service:
// catalog packages, search parameters, result envelopes, and the sentinel
// errors exchanged between the catalog, the search engine, and the
// request shells.
//
// The types here are intentionally free of behavior beyond validation
// and identity. All scoring, filtering, and pagination logic lives in
// internal/searcher.
package types
