package catalog

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fdnix/searchd/pkg/types"
)

func newTestCatalog(t *testing.T) *SQLiteCatalog {
	t.Helper()
	cat, err := Create(":memory:")
	if err != nil {
		t.Fatalf("failed to create test catalog: %v", err)
	}
	t.Cleanup(func() { _ = cat.Close() })
	return cat
}

func seedPackages(t *testing.T, cat *SQLiteCatalog) {
	t.Helper()
	ctx := context.Background()
	pkgs := []types.Package{
		{PackageID: "neovim-0.10.0", PackageName: "neovim", Version: "0.10.0",
			Description: "Vim-fork focused on extensibility and usability, a modern text editor",
			License:     "Apache-2.0", AttributePath: "neovim"},
		{PackageID: "emacs-29.3", PackageName: "emacs", Version: "29.3",
			Description: "Extensible, customizable text editor",
			License:     "GPL-3.0-or-later", AttributePath: "emacs"},
		{PackageID: "ripgrep-14.1.0", PackageName: "ripgrep", Version: "14.1.0",
			Description: "Utility that combines the usability of The Silver Searcher with the raw speed of grep",
			License:     "MIT License", AttributePath: "ripgrep"},
	}
	for i := range pkgs {
		if err := cat.UpsertPackage(ctx, &pkgs[i]); err != nil {
			t.Fatalf("failed to seed package %s: %v", pkgs[i].PackageID, err)
		}
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "does-not-exist.db"))
	if !errors.Is(err, types.ErrCatalogNotFound) {
		t.Fatalf("expected ErrCatalogNotFound, got %v", err)
	}
}

func TestOpenMalformedCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "malformed.db")

	db, err := sql.Open(DriverName, path)
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE notes (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	_ = db.Close()

	_, err = Open(path)
	if !errors.Is(err, types.ErrCatalogMalformed) {
		t.Fatalf("expected ErrCatalogMalformed, got %v", err)
	}
}

func TestOpenIsReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	cat, err := Create(path)
	if err != nil {
		t.Fatalf("failed to create catalog: %v", err)
	}
	seedPackages(t, cat)
	_ = cat.Close()

	ro, err := Open(path)
	if err != nil {
		t.Fatalf("failed to reopen catalog: %v", err)
	}
	defer func() { _ = ro.Close() }()

	err = ro.UpsertPackage(context.Background(), &types.Package{PackageID: "x", PackageName: "x"})
	if err == nil {
		t.Fatal("writes must fail on a catalog opened for serving")
	}
}

func TestLexicalSearchFTS(t *testing.T) {
	cat := newTestCatalog(t)
	seedPackages(t, cat)
	ctx := context.Background()

	results, err := cat.LexicalSearch(ctx, "editor", 10)
	if err != nil {
		t.Fatalf("lexical search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 editor packages, got %d", len(results))
	}
	for _, pkg := range results {
		if pkg.RelevanceScore <= 0 {
			t.Errorf("package %s: score %v, want positive BM25 magnitude", pkg.PackageName, pkg.RelevanceScore)
		}
	}

	results, err = cat.LexicalSearch(ctx, "grep", 10)
	if err != nil {
		t.Fatalf("lexical search failed: %v", err)
	}
	if len(results) != 1 || results[0].PackageName != "ripgrep" {
		t.Errorf("expected ripgrep, got %+v", results)
	}
}

func TestLexicalSearchNoMatches(t *testing.T) {
	cat := newTestCatalog(t)
	seedPackages(t, cat)

	results, err := cat.LexicalSearch(context.Background(), "quantum", 10)
	if err != nil {
		t.Fatalf("lexical search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no matches, got %d", len(results))
	}
}

func TestLexicalSearchEmptyQuery(t *testing.T) {
	cat := newTestCatalog(t)

	_, err := cat.LexicalSearch(context.Background(), "", 10)
	if !errors.Is(err, types.ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestLexicalSearchZeroLimit(t *testing.T) {
	cat := newTestCatalog(t)
	seedPackages(t, cat)

	results, err := cat.LexicalSearch(context.Background(), "editor", 0)
	if err != nil {
		t.Fatalf("lexical search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("zero limit must return empty, got %d", len(results))
	}
}

func TestLexicalSearchHonorsLimit(t *testing.T) {
	cat := newTestCatalog(t)
	seedPackages(t, cat)

	results, err := cat.LexicalSearch(context.Background(), "editor", 1)
	if err != nil {
		t.Fatalf("lexical search failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
}

func TestRefreshDetectsVectors(t *testing.T) {
	cat := newTestCatalog(t)
	seedPackages(t, cat)
	ctx := context.Background()

	if err := cat.Refresh(ctx); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if cat.VectorReady() {
		t.Fatal("catalog without embeddings must not report vector-ready")
	}

	vec := []float32{0.1, 0.2, 0.3, 0.4}
	if err := cat.UpsertEmbedding(ctx, "neovim-0.10.0", vec, "local", "local-embeddings"); err != nil {
		t.Fatalf("upsert embedding failed: %v", err)
	}
	if err := cat.Refresh(ctx); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if !cat.VectorReady() {
		t.Fatal("catalog with a stored vector must report vector-ready")
	}
}

func TestRefreshIgnoresNullVectors(t *testing.T) {
	cat := newTestCatalog(t)
	seedPackages(t, cat)
	ctx := context.Background()

	// A row with a NULL vector is bookkeeping, not searchable data.
	if err := cat.UpsertEmbedding(ctx, "neovim-0.10.0", nil, "local", "local-embeddings"); err != nil {
		t.Fatalf("upsert embedding failed: %v", err)
	}
	if err := cat.Refresh(ctx); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if cat.VectorReady() {
		t.Fatal("NULL vectors must not enable vector search")
	}
}

func TestVectorSearchGuards(t *testing.T) {
	cat := newTestCatalog(t)
	seedPackages(t, cat)
	ctx := context.Background()

	// Not vector-ready: silently empty.
	results, err := cat.VectorSearch(ctx, []float32{0.1, 0.2}, 10)
	if err != nil || len(results) != 0 {
		t.Errorf("lexical-only catalog: got (%d, %v), want empty", len(results), err)
	}

	if err := cat.UpsertEmbedding(ctx, "neovim-0.10.0", []float32{0.1, 0.2}, "local", "m"); err != nil {
		t.Fatalf("upsert embedding failed: %v", err)
	}
	if err := cat.Refresh(ctx); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	results, err = cat.VectorSearch(ctx, nil, 10)
	if err != nil || len(results) != 0 {
		t.Errorf("empty query vector: got (%d, %v), want empty", len(results), err)
	}

	results, err = cat.VectorSearch(ctx, []float32{0.1, 0.2}, 0)
	if err != nil || len(results) != 0 {
		t.Errorf("zero limit: got (%d, %v), want empty", len(results), err)
	}
}

func TestVectorSearchRanking(t *testing.T) {
	cat := newTestCatalog(t)
	seedPackages(t, cat)
	ctx := context.Background()

	embeddings := map[string][]float32{
		"neovim-0.10.0":  {1, 0, 0, 0},
		"emacs-29.3":     {0.9, 0.1, 0, 0},
		"ripgrep-14.1.0": {0, 0, 1, 0},
	}
	for id, vec := range embeddings {
		if err := cat.UpsertEmbedding(ctx, id, vec, "local", "m"); err != nil {
			t.Fatalf("upsert embedding for %s failed: %v", id, err)
		}
	}
	if err := cat.Refresh(ctx); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	results, err := cat.VectorSearch(ctx, []float32{1, 0, 0, 0}, 2)
	if err != nil {
		t.Fatalf("vector search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].PackageID != "neovim-0.10.0" {
		t.Errorf("closest vector should rank first, got %s", results[0].PackageID)
	}
	if results[0].RelevanceScore <= results[1].RelevanceScore {
		t.Errorf("scores must be descending: %v then %v",
			results[0].RelevanceScore, results[1].RelevanceScore)
	}
	// Exact match has distance 0 and the maximum score of 1.
	if diff := results[0].RelevanceScore - 1.0; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("exact-match score = %v, want 1.0", results[0].RelevanceScore)
	}
}

func TestVectorSearchSkipsDimensionMismatch(t *testing.T) {
	cat := newTestCatalog(t)
	seedPackages(t, cat)
	ctx := context.Background()

	if err := cat.UpsertEmbedding(ctx, "neovim-0.10.0", []float32{1, 0, 0, 0}, "local", "m"); err != nil {
		t.Fatalf("upsert embedding failed: %v", err)
	}
	if err := cat.UpsertEmbedding(ctx, "emacs-29.3", []float32{1, 0}, "local", "m"); err != nil {
		t.Fatalf("upsert embedding failed: %v", err)
	}
	if err := cat.Refresh(ctx); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	results, err := cat.VectorSearch(ctx, []float32{1, 0, 0, 0}, 10)
	if err != nil {
		t.Fatalf("vector search failed: %v", err)
	}
	if len(results) != 1 || results[0].PackageID != "neovim-0.10.0" {
		t.Errorf("mismatched dimensions must be skipped, got %+v", results)
	}
}

func TestStats(t *testing.T) {
	cat := newTestCatalog(t)
	seedPackages(t, cat)
	ctx := context.Background()

	if err := cat.UpsertEmbedding(ctx, "neovim-0.10.0", []float32{0.5, 0.5}, "local", "m"); err != nil {
		t.Fatalf("upsert embedding failed: %v", err)
	}
	if err := cat.Refresh(ctx); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	stats, err := cat.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PackageCount != 3 {
		t.Errorf("package count = %d, want 3", stats.PackageCount)
	}
	if stats.EmbeddingCount != 1 {
		t.Errorf("embedding count = %d, want 1", stats.EmbeddingCount)
	}
	if !stats.VectorReady || !stats.FTSReady {
		t.Errorf("readiness flags: vector=%v fts=%v", stats.VectorReady, stats.FTSReady)
	}
	if stats.BuildMode != BuildMode || stats.Driver != DriverName {
		t.Errorf("build info mismatch: %s/%s", stats.BuildMode, stats.Driver)
	}
}

func TestGetPackage(t *testing.T) {
	cat := newTestCatalog(t)
	seedPackages(t, cat)
	ctx := context.Background()

	pkg, err := cat.GetPackage(ctx, "ripgrep-14.1.0")
	if err != nil {
		t.Fatalf("get package failed: %v", err)
	}
	if pkg.PackageName != "ripgrep" || pkg.License != "MIT License" {
		t.Errorf("unexpected package %+v", pkg)
	}

	_, err = cat.GetPackage(ctx, "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertPackageUpdates(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	pkg := &types.Package{PackageID: "p1", PackageName: "tool", Version: "1.0", Description: "legacy scanning utility"}
	if err := cat.UpsertPackage(ctx, pkg); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	pkg.Version = "2.0"
	pkg.Description = "new description with keywords"
	if err := cat.UpsertPackage(ctx, pkg); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, err := cat.GetPackage(ctx, "p1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Version != "2.0" {
		t.Errorf("version = %s, want 2.0", got.Version)
	}

	// The FTS index must track the update through its triggers.
	results, err := cat.LexicalSearch(ctx, "keywords", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("updated description should be searchable, got %d results", len(results))
	}

	// The replaced description's terms must drop out of the index.
	results, err = cat.LexicalSearch(ctx, "legacy", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("old description should no longer match, got %d results", len(results))
	}
}

func TestUpsertPackageReplacesIndexedText(t *testing.T) {
	cat := newTestCatalog(t)
	seedPackages(t, cat)
	ctx := context.Background()

	results, err := cat.LexicalSearch(ctx, "text editor", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	matchesBefore := len(results)
	if matchesBefore != 2 {
		t.Fatalf("expected 2 editor matches before update, got %d", matchesBefore)
	}

	updated := &types.Package{
		PackageID: "neovim-0.10.0", PackageName: "neovim", Version: "0.10.0",
		Description: "hyperextensible vim-based code surgeon",
		License:     "Apache-2.0", AttributePath: "neovim",
	}
	if err := cat.UpsertPackage(ctx, updated); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	results, err = cat.LexicalSearch(ctx, "text editor", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != matchesBefore-1 {
		t.Fatalf("stale index after update: got %d matches, want %d", len(results), matchesBefore-1)
	}
	for _, pkg := range results {
		if pkg.PackageID == "neovim-0.10.0" {
			t.Error("package must not match terms its description no longer has")
		}
	}

	results, err = cat.LexicalSearch(ctx, "surgeon", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 || results[0].PackageID != "neovim-0.10.0" {
		t.Errorf("new description should match, got %+v", results)
	}
}

func TestDeletedPackageLeavesIndex(t *testing.T) {
	cat := newTestCatalog(t)
	seedPackages(t, cat)
	ctx := context.Background()

	if _, err := cat.db.ExecContext(ctx, "DELETE FROM packages WHERE package_id = ?", "ripgrep-14.1.0"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	results, err := cat.LexicalSearch(ctx, "grep", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("deleted package must not match, got %d results", len(results))
	}
}

func TestBulkLoadTransaction(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	tx, err := cat.BeginTx(ctx)
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	for i, name := range []string{"alpha", "beta"} {
		pkg := &types.Package{PackageID: name, PackageName: name, Version: "1.0"}
		if err := tx.UpsertPackage(ctx, pkg); err != nil {
			t.Fatalf("tx upsert %d failed: %v", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	stats, err := cat.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PackageCount != 2 {
		t.Errorf("package count = %d, want 2", stats.PackageCount)
	}
}

func TestHealth(t *testing.T) {
	cat := newTestCatalog(t)
	if err := cat.Health(context.Background()); err != nil {
		t.Fatalf("health check failed on live catalog: %v", err)
	}
}
