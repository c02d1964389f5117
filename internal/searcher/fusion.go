package searcher

import (
	"sort"

	"github.com/fdnix/searchd/pkg/types"
)

// DefaultRRFConstant is the standard k value for Reciprocal Rank Fusion.
const DefaultRRFConstant = 60

// Fuse combines two ranked lists with Reciprocal Rank Fusion.
//
// Each list contributes 1/(k + rank + 1) per entry, with rank counted
// from zero; a package appearing in both lists sums both contributions.
// Packages are deduplicated by Key (catalog ID, falling back to name),
// and the metadata of the first occurrence wins. The vector list is
// processed first. Output is ordered by fused score descending, with
// ties broken by key for determinism.
//
// Fuse is pure: it reads only its arguments and touches no I/O.
func Fuse(vectorResults, lexicalResults []types.Package, k float64) []types.Package {
	if k <= 0 {
		k = DefaultRRFConstant
	}

	scores := make(map[string]float64)
	firstSeen := make(map[string]types.Package)

	accumulate := func(list []types.Package) {
		for rank := range list {
			pkg := list[rank]
			key := pkg.Key()
			scores[key] += 1.0 / (k + float64(rank) + 1.0)
			if _, seen := firstSeen[key]; !seen {
				firstSeen[key] = pkg
			}
		}
	}
	accumulate(vectorResults)
	accumulate(lexicalResults)

	fused := make([]types.Package, 0, len(scores))
	for key, score := range scores {
		pkg := firstSeen[key]
		pkg.RelevanceScore = score
		fused = append(fused, pkg)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].RelevanceScore != fused[j].RelevanceScore {
			return fused[i].RelevanceScore > fused[j].RelevanceScore
		}
		return fused[i].Key() < fused[j].Key()
	})

	return fused
}
