package types

// Package represents a single catalog entry returned by a search.
// JSON field names follow the public API envelope.
type Package struct {
	PackageID     string `json:"packageId"`
	PackageName   string `json:"packageName"`
	Version       string `json:"version"`
	Description   string `json:"description"`
	Homepage      string `json:"homepage"`
	License       string `json:"license"`
	AttributePath string `json:"attributePath"`

	// RelevanceScore is assigned by the search pipeline. Its scale depends
	// on the search type: (0, 1] for vector results, raw BM25 magnitude
	// for lexical results, and a rank-fusion sum for hybrid results.
	RelevanceScore float64 `json:"relevanceScore"`
}

// Key returns the identity used for deduplication during rank fusion.
// Falls back to the display name when the catalog row has no stable ID,
// which can merge distinct packages that share a name.
func (p *Package) Key() string {
	if p.PackageID != "" {
		return p.PackageID
	}
	return p.PackageName
}
