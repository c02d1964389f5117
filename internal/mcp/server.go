package mcp

import (
	"context"
	"io"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/fdnix/searchd/internal/catalog"
	"github.com/fdnix/searchd/internal/embedder"
	"github.com/fdnix/searchd/internal/searcher"
)

const (
	// ServerName is the MCP server name
	ServerName = "fdnix-search"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	engine   *searcher.Engine
	catalog  catalog.Catalog
	embedder embedder.Embedder // nil when embeddings are disabled
}

// NewServer creates an MCP server over an already-wired search engine.
func NewServer(engine *searcher.Engine, cat catalog.Catalog, emb embedder.Embedder) *Server {
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		engine:   engine,
		catalog:  cat,
		embedder: emb,
	}

	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until the context
// is canceled or stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	return s.serve(ctx, os.Stdin, os.Stdout)
}

func (s *Server) serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, in, out)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchPackagesTool(), s.handleSearchPackages)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
