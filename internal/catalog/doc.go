// Package catalog provides read-only SQLite access to the package catalog,
// including vector similarity search and FTS5 keyword search.
//
// A catalog is normally produced offline by an indexing pipeline and opened
// here with Open, which enforces query_only mode. Create builds a writable
// catalog (used by tests and tooling) with the full schema: the packages
// table, an external-content FTS5 index kept in sync by triggers, and an
// embeddings table holding serialized float32 vectors.
//
// Two build modes exist, selected at compile time:
//
//   - cgo (build tag sqlite_vec): mattn/go-sqlite3 with the sqlite-vec
//     extension, so vector distance is computed inside SQL.
//   - purego (default): modernc.org/sqlite, with cosine similarity computed
//     in Go over a full scan of the embeddings table.
//
// Vector availability is detected once at open time. Vector query failures
// are absorbed: they log and return an empty slice so the caller's lexical
// leg can still serve the request. FTS failures degrade to a LIKE-based
// substring scan.
package catalog
