package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/fdnix/searchd/internal/catalog"
	"github.com/fdnix/searchd/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32001 // Query parameter is empty
)

// handleSearchPackages handles the search_packages tool invocation
func (s *Server) handleSearchPackages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", types.DefaultLimit)
	if limit < 0 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 0 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	offset := getIntDefault(args, "offset", types.DefaultOffset)
	if offset < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "offset must be >= 0", map[string]interface{}{
			"param": "offset",
			"value": offset,
		})
	}

	params := types.SearchParams{
		Query:    query,
		Limit:    limit,
		Offset:   offset,
		License:  getStringDefault(args, "license", ""),
		Category: getStringDefault(args, "category", ""),
	}

	results := s.engine.Search(ctx, params)

	response := map[string]interface{}{
		"message":       fmt.Sprintf("Found %d packages", results.TotalCount),
		"query":         query,
		"total_count":   results.TotalCount,
		"query_time_ms": results.QueryTimeMs,
		"search_type":   string(results.SearchType),
		"packages":      results.Packages,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.catalog.Stats(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get catalog stats", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"server":     ServerName,
		"version":    ServerVersion,
		"build_mode": catalog.BuildMode,
		"database": map[string]interface{}{
			"accessible":   s.catalog.Health(ctx) == nil,
			"packages":     stats.PackageCount,
			"embeddings":   stats.EmbeddingCount,
			"vector_ready": stats.VectorReady,
			"fts_ready":    stats.FTSReady,
			"size_mb":      fmt.Sprintf("%.2f", stats.SizeMB),
		},
	}

	embeddings := map[string]interface{}{
		"enabled": s.embedder != nil,
	}
	if s.embedder != nil {
		embeddings["provider"] = s.embedder.Provider()
		embeddings["model"] = s.embedder.Model()
		embeddings["healthy"] = s.embedder.HealthCheck(ctx)
	}
	response["embeddings"] = embeddings

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
