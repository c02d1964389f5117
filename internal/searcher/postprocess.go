package searcher

import (
	"strings"

	"github.com/fdnix/searchd/pkg/types"
)

// PostProcess applies the response shaping pipeline to a fused result
// list, in order: license filter, category filter, offset, limit.
//
// The license filter is a case-sensitive substring match, so "MIT"
// matches "MIT License" but not "mit". The category filter is declared
// for API stability and is a no-op: the catalog has no category
// metadata. A zero limit yields an empty list.
//
// PostProcess is pure and idempotent for offset 0 and limit >= len.
func PostProcess(packages []types.Package, params types.SearchParams) []types.Package {
	results := packages
	if results == nil {
		results = []types.Package{}
	}

	if params.License != "" {
		filtered := make([]types.Package, 0, len(results))
		for _, pkg := range results {
			if strings.Contains(pkg.License, params.License) {
				filtered = append(filtered, pkg)
			}
		}
		results = filtered
	}

	// Category filtering would slot in here once the catalog carries
	// category metadata.

	if params.Offset > 0 {
		if params.Offset >= len(results) {
			return []types.Package{}
		}
		results = results[params.Offset:]
	}

	if params.Limit < len(results) {
		results = results[:params.Limit]
	}

	return results
}
