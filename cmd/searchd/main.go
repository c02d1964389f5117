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

	"github.com/fdnix/searchd/internal/api"
	"github.com/fdnix/searchd/internal/catalog"
	"github.com/fdnix/searchd/internal/config"
	"github.com/fdnix/searchd/internal/embedder"
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
		fmt.Printf("fdnix searchd\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", catalog.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", catalog.DriverName)
		fmt.Printf("Vector Extension: %v\n", catalog.VectorExtensionAvailable)
		os.Exit(0)
	}

	log.SetOutput(os.Stderr)
	log.Printf("searchd v%s starting...", version)
	log.Printf("Build Mode: %s, Driver: %s, Vector Extension: %v",
		catalog.BuildMode, catalog.DriverName, catalog.VectorExtensionAvailable)

	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
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
			log.Printf("Embedding provider: %s (%s, %d dims)",
				emb.Provider(), emb.Model(), emb.Dimension())
		}
	}
	if !cat.VectorReady() {
		log.Printf("Catalog has no embeddings, hybrid search disabled")
	}

	engine := searcher.NewEngine(cat, emb, searcher.Options{
		RRFConstant:   cfg.Search.RRFConstant,
		EmbedTimeout:  cfg.Search.EmbedTimeout,
		SearchTimeout: cfg.Search.SearchTimeout,
		CacheEnabled:  cfg.Search.CacheEnabled,
		CacheSize:     cfg.Search.CacheSize,
		CacheTTL:      cfg.Search.CacheTTL,
	})

	server := api.NewServer(cfg, engine, cat, emb, version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
		if err := <-errChan; err != nil {
			log.Fatalf("Shutdown error: %v", err)
		}
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}

	log.Println("Server stopped")
}
