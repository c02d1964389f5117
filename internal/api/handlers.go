package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/fdnix/searchd/internal/catalog"
	"github.com/fdnix/searchd/pkg/types"
)

// SearchResponse is the public search envelope. Field names are part of
// the API contract and must not change.
type SearchResponse struct {
	Message     string          `json:"message"`
	Query       string          `json:"query"`
	TotalCount  int             `json:"total_count"`
	QueryTimeMs float64         `json:"query_time_ms"`
	SearchType  string          `json:"search_type"`
	Packages    []types.Package `json:"packages"`
}

// handleSearch serves GET /search?q=...&limit=&offset=&license=&category=
func (s *Server) handleSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, SearchResponse{
			Message:    "query parameter 'q' is required",
			SearchType: string(types.SearchTypeError),
			Packages:   []types.Package{},
		})
		return
	}

	params := types.SearchParams{
		Query:    query,
		Limit:    parseIntDefault(c.Query("limit"), types.DefaultLimit),
		Offset:   parseIntDefault(c.Query("offset"), types.DefaultOffset),
		License:  c.Query("license"),
		Category: c.Query("category"),
	}

	results := s.engine.Search(c.Request.Context(), params)

	message := fmt.Sprintf("Found %d packages", results.TotalCount)
	if results.SearchType == types.SearchTypeError {
		message = "search failed"
	}

	c.JSON(http.StatusOK, SearchResponse{
		Message:     message,
		Query:       query,
		TotalCount:  results.TotalCount,
		QueryTimeMs: results.QueryTimeMs,
		SearchType:  string(results.SearchType),
		Packages:    results.Packages,
	})
}

// handleStatus serves GET /status and GET /health. Catalog and provider
// health checks run concurrently.
func (s *Server) handleStatus(c *gin.Context) {
	g, ctx := errgroup.WithContext(c.Request.Context())

	var stats *catalog.Stats
	var dbHealthy, providerHealthy bool

	g.Go(func() error {
		dbHealthy = s.catalog.Health(ctx) == nil
		var err error
		stats, err = s.catalog.Stats(ctx)
		return err
	})

	if s.embedder != nil {
		g.Go(func() error {
			providerHealthy = s.embedder.HealthCheck(ctx)
			return nil
		})
	}

	statsErr := g.Wait()

	status := "healthy"
	code := http.StatusOK
	if !dbHealthy || statsErr != nil {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	} else if s.embedder != nil && !providerHealthy {
		status = "degraded"
	}

	database := gin.H{"accessible": dbHealthy}
	if stats != nil {
		database["packages"] = stats.PackageCount
		database["embeddings"] = stats.EmbeddingCount
		database["vector_ready"] = stats.VectorReady
		database["fts_ready"] = stats.FTSReady
		database["size_mb"] = stats.SizeMB
	}

	embeddings := gin.H{"enabled": s.embedder != nil}
	if s.embedder != nil {
		embeddings["provider"] = s.embedder.Provider()
		embeddings["model"] = s.embedder.Model()
		embeddings["dimension"] = s.embedder.Dimension()
		embeddings["healthy"] = providerHealthy
	}

	c.JSON(code, gin.H{
		"status":     status,
		"version":    s.version,
		"build_mode": catalog.BuildMode,
		"driver":     catalog.DriverName,
		"database":   database,
		"embeddings": embeddings,
	})
}

// parseIntDefault parses a query parameter, falling back to def when
// the value is missing, malformed, or negative. An explicit "0" is
// honored.
func parseIntDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
