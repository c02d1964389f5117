package catalog

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/fdnix/searchd/pkg/types"
)

const packageColumns = `p.package_id, p.package_name, p.version, p.description, p.homepage, p.license, p.attribute_path`

// searchVector performs vector similarity search. Query failures are
// absorbed here: the caller gets an empty slice and the engine keeps
// serving lexical results.
func searchVector(ctx context.Context, db *sql.DB, queryVector []float32, limit int) ([]types.Package, error) {
	var results []types.Package
	var err error

	if VectorExtensionAvailable {
		results, err = searchVectorOptimized(ctx, db, queryVector, limit)
	} else {
		results, err = searchVectorFallback(ctx, db, queryVector, limit)
	}

	if err != nil {
		log.Printf("vector search failed, continuing without vector results: %v", err)
		return []types.Package{}, nil
	}
	return results, nil
}

// searchVectorOptimized computes cosine distance at the database layer
// via the sqlite-vec extension.
func searchVectorOptimized(ctx context.Context, db *sql.DB, queryVector []float32, limit int) ([]types.Package, error) {
	queryVectorBlob := serializeVector(queryVector)

	query := `
		SELECT ` + packageColumns + `,
		       vec_distance_cosine(e.vector, ?) AS distance
		FROM embeddings e
		INNER JOIN packages p ON p.package_id = e.package_id
		WHERE e.vector IS NOT NULL
		ORDER BY distance ASC
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, query, queryVectorBlob, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]types.Package, 0, limit)
	for rows.Next() {
		var pkg types.Package
		var distance float64
		if err := rows.Scan(
			&pkg.PackageID, &pkg.PackageName, &pkg.Version, &pkg.Description,
			&pkg.Homepage, &pkg.License, &pkg.AttributePath, &distance,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		pkg.RelevanceScore = distanceToScore(distance)
		results = append(results, pkg)
	}

	return results, rows.Err()
}

// searchVectorFallback scans all stored vectors and ranks them with
// Go-side cosine distance. Used by pure-Go builds without sqlite-vec.
func searchVectorFallback(ctx context.Context, db *sql.DB, queryVector []float32, limit int) ([]types.Package, error) {
	query := `
		SELECT ` + packageColumns + `, e.vector
		FROM embeddings e
		INNER JOIN packages p ON p.package_id = e.package_id
		WHERE e.vector IS NOT NULL
	`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]types.Package, 0, 1024)
	for rows.Next() {
		var pkg types.Package
		var blob []byte
		if err := rows.Scan(
			&pkg.PackageID, &pkg.PackageName, &pkg.Version, &pkg.Description,
			&pkg.Homepage, &pkg.License, &pkg.AttributePath, &blob,
		); err != nil {
			return nil, err
		}

		vector := deserializeVector(blob)
		if len(vector) != len(queryVector) {
			continue // dimension mismatch, skip
		}

		distance := 1.0 - cosineSimilarity(queryVector, vector)
		pkg.RelevanceScore = distanceToScore(distance)
		candidates = append(candidates, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].RelevanceScore > candidates[j].RelevanceScore
	})

	if limit > len(candidates) {
		limit = len(candidates)
	}
	return candidates[:limit], nil
}

// distanceToScore converts a cosine distance (0 best) into a relevance
// score in (0, 1] where higher is better.
func distanceToScore(distance float64) float64 {
	return 1.0 / (1.0 + distance)
}

// searchLexical performs BM25 full-text search with a substring
// fallback. A failing FTS query (missing or corrupt index) degrades to
// LIKE matching rather than surfacing an error.
func searchLexical(ctx context.Context, db *sql.DB, query string, limit int, ftsReady bool) ([]types.Package, error) {
	if ftsReady {
		results, err := searchFTS(ctx, db, query, limit)
		if err == nil {
			return results, nil
		}
		log.Printf("fts search failed, falling back to substring match: %v", err)
	}
	return searchSubstring(ctx, db, query, limit)
}

// searchFTS runs the FTS5 MATCH query ranked by bm25().
func searchFTS(ctx context.Context, db *sql.DB, query string, limit int) ([]types.Package, error) {
	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return nil, fmt.Errorf("empty search query")
	}

	// bm25() returns negative scores where lower is better.
	sqlQuery := `
		SELECT ` + packageColumns + `,
		       bm25(packages_fts) AS score
		FROM packages_fts
		INNER JOIN packages p ON p.rowid = packages_fts.rowid
		WHERE packages_fts MATCH ?
		ORDER BY score
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, sqlQuery, sanitized, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]types.Package, 0, limit)
	for rows.Next() {
		var pkg types.Package
		var score float64
		if err := rows.Scan(
			&pkg.PackageID, &pkg.PackageName, &pkg.Version, &pkg.Description,
			&pkg.Homepage, &pkg.License, &pkg.AttributePath, &score,
		); err != nil {
			return nil, err
		}
		// Report the BM25 magnitude so best matches carry the highest score.
		pkg.RelevanceScore = math.Abs(score)
		results = append(results, pkg)
	}

	return results, rows.Err()
}

// searchSubstring is the degraded lexical path: case-insensitive LIKE
// over name and description, name matches ranked first, with synthetic
// scores 1.0 - 0.1*rank.
func searchSubstring(ctx context.Context, db *sql.DB, query string, limit int) ([]types.Package, error) {
	pattern := "%" + query + "%"
	sqlQuery := `
		SELECT ` + packageColumns + `
		FROM packages p
		WHERE p.package_name LIKE ? OR p.description LIKE ?
		ORDER BY CASE WHEN p.package_name LIKE ? THEN 0 ELSE 1 END, p.package_name
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, sqlQuery, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute substring search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]types.Package, 0, limit)
	for rows.Next() {
		var pkg types.Package
		if err := rows.Scan(
			&pkg.PackageID, &pkg.PackageName, &pkg.Version, &pkg.Description,
			&pkg.Homepage, &pkg.License, &pkg.AttributePath,
		); err != nil {
			return nil, err
		}
		pkg.RelevanceScore = 1.0 - 0.1*float64(len(results))
		results = append(results, pkg)
	}

	return results, rows.Err()
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// FTS5 operator pattern for escaping Boolean operators
var ftsOperatorPattern = regexp.MustCompile(`\b(AND|OR|NOT|NEAR)\b`)

// sanitizeFTSQuery sanitizes a search query for FTS5 to prevent
// injection through MATCH syntax.
func sanitizeFTSQuery(query string) string {
	if query == "" {
		return ""
	}

	replacer := strings.NewReplacer(
		`"`, `\"`,
		`*`, `\*`,
		`(`, `\(`,
		`)`, `\)`,
	)
	escaped := replacer.Replace(query)

	escaped = ftsOperatorPattern.ReplaceAllStringFunc(escaped, func(match string) string {
		return `\` + match
	})

	return escaped
}

// SerializeVector is an exported helper for index tooling and tests
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for index tooling and tests
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for tests
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
