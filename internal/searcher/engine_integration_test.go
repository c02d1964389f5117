package searcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdnix/searchd/internal/catalog"
	"github.com/fdnix/searchd/internal/embedder"
	"github.com/fdnix/searchd/pkg/types"
)

// Full-stack test: real SQLite catalog, deterministic local embedder,
// real engine. Exercises the hybrid path end to end without a network.
func TestEngineAgainstRealCatalog(t *testing.T) {
	ctx := context.Background()

	cat, err := catalog.Create(":memory:")
	require.NoError(t, err)
	defer func() { _ = cat.Close() }()

	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)

	packages := []types.Package{
		{PackageID: "neovim-0.10.0", PackageName: "neovim", Version: "0.10.0",
			Description: "modern text editor", License: "Apache-2.0"},
		{PackageID: "emacs-29.3", PackageName: "emacs", Version: "29.3",
			Description: "extensible text editor", License: "GPL-3.0-or-later"},
		{PackageID: "helix-24.03", PackageName: "helix", Version: "24.03",
			Description: "post-modern text editor", License: "MPL-2.0"},
		{PackageID: "curl-8.7.1", PackageName: "curl", Version: "8.7.1",
			Description: "command line tool for transferring data with URLs", License: "MIT"},
	}
	for i := range packages {
		require.NoError(t, cat.UpsertPackage(ctx, &packages[i]))

		vec, err := emb.Embed(ctx, packages[i].Description)
		require.NoError(t, err)
		require.NoError(t, cat.UpsertEmbedding(ctx, packages[i].PackageID, vec, emb.Provider(), emb.Model()))
	}
	require.NoError(t, cat.Refresh(ctx))
	require.True(t, cat.VectorReady())

	engine := NewEngine(cat, emb, DefaultOptions())

	t.Run("hybrid search", func(t *testing.T) {
		res := engine.Search(ctx, types.SearchParams{Query: "text editor", Limit: 10})

		assert.Equal(t, types.SearchTypeHybrid, res.SearchType)
		require.NotEmpty(t, res.Packages)
		assert.Equal(t, len(res.Packages), res.TotalCount)
		assert.GreaterOrEqual(t, res.QueryTimeMs, 0.0)

		names := make(map[string]bool)
		for _, pkg := range res.Packages {
			names[pkg.PackageName] = true
		}
		assert.True(t, names["neovim"], "lexical leg should surface neovim")
		assert.True(t, names["emacs"], "lexical leg should surface emacs")
	})

	t.Run("license filter", func(t *testing.T) {
		res := engine.Search(ctx, types.SearchParams{Query: "text editor", Limit: 10, License: "Apache"})
		for _, pkg := range res.Packages {
			assert.Contains(t, pkg.License, "Apache")
		}
	})

	t.Run("lexical only without embedder", func(t *testing.T) {
		lexEngine := NewEngine(cat, nil, DefaultOptions())
		res := lexEngine.Search(ctx, types.SearchParams{Query: "text editor", Limit: 10})

		assert.Equal(t, types.SearchTypeFTS, res.SearchType)
		require.Len(t, res.Packages, 3)
		assert.Equal(t, 3, res.TotalCount)
	})

	t.Run("single lexical match", func(t *testing.T) {
		lexEngine := NewEngine(cat, nil, DefaultOptions())
		res := lexEngine.Search(ctx, types.SearchParams{Query: "transferring data", Limit: 10})

		assert.Equal(t, types.SearchTypeFTS, res.SearchType)
		require.Len(t, res.Packages, 1)
		assert.Equal(t, "curl", res.Packages[0].PackageName)
	})
}
