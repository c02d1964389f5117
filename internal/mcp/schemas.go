package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchPackagesTool returns the tool definition for search_packages
func searchPackagesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_packages",
		Description: "Search the package catalog with natural language or keyword queries",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return",
					"default":     50,
					"minimum":     0,
					"maximum":     100,
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Number of results to skip for pagination",
					"default":     0,
					"minimum":     0,
				},
				"license": map[string]interface{}{
					"type":        "string",
					"description": "Keep only packages whose license contains this string (case-sensitive)",
				},
				"category": map[string]interface{}{
					"type":        "string",
					"description": "Category filter (accepted but currently has no effect)",
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report catalog statistics and embedding provider health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
