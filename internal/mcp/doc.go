// Package mcp exposes the search engine over the Model Context Protocol.
//
// The server speaks MCP over stdio and registers two tools:
//
//   - search_packages: hybrid package search with pagination and filters
//   - get_status: catalog statistics and embedding provider health
//
// Tool results carry the same JSON envelope as the HTTP API, serialized as
// indented text content.
package mcp
