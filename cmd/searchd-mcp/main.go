package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fdnix/searchd/internal/catalog"
	"github.com/fdnix/searchd/internal/config"
	"github.com/fdnix/searchd/internal/embedder"
	"github.com/fdnix/searchd/internal/mcp"
	"github.com/fdnix/searchd/internal/searcher"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "searchd.toml", "path to TOML config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("fdnix searchd MCP server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", catalog.BuildMode)
		os.Exit(0)
	}

	// stdout is reserved for the MCP protocol.
	log.SetOutput(os.Stderr)
	log.Printf("searchd-mcp v%s starting...", version)

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cat, err := catalog.Open(cfg.Catalog.DBPath)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer func() { _ = cat.Close() }()

	var emb embedder.Embedder
	if cfg.Embedding.Enabled {
		emb, err = embedder.New(cfg.Embedding)
		if err != nil {
			log.Printf("Embedding provider unavailable, serving lexical-only: %v", err)
		} else {
			defer func() { _ = emb.Close() }()
		}
	}

	engine := searcher.NewEngine(cat, emb, searcher.Options{
		RRFConstant:   cfg.Search.RRFConstant,
		EmbedTimeout:  cfg.Search.EmbedTimeout,
		SearchTimeout: cfg.Search.SearchTimeout,
		CacheEnabled:  cfg.Search.CacheEnabled,
		CacheSize:     cfg.Search.CacheSize,
		CacheTTL:      cfg.Search.CacheTTL,
	})

	server := mcp.NewServer(engine, cat, emb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Println("MCP server ready, listening on stdio...")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}

	log.Println("Server stopped")
}
