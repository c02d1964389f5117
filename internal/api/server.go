package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fdnix/searchd/internal/catalog"
	"github.com/fdnix/searchd/internal/config"
	"github.com/fdnix/searchd/internal/embedder"
	"github.com/fdnix/searchd/internal/searcher"
)

// Server is the HTTP shell around the search engine.
type Server struct {
	cfg      *config.Config
	engine   *searcher.Engine
	catalog  catalog.Catalog
	embedder embedder.Embedder // nil when embeddings are disabled
	version  string
	router   *gin.Engine
}

// NewServer wires the HTTP routes. embedder may be nil.
func NewServer(cfg *config.Config, engine *searcher.Engine, cat catalog.Catalog, emb embedder.Embedder, version string) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:      cfg,
		engine:   engine,
		catalog:  cat,
		embedder: emb,
		version:  version,
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger())

	router.GET("/search", s.handleSearch)
	router.GET("/status", s.handleStatus)
	router.GET("/health", s.handleStatus)

	s.router = router
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP until the context is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Printf("http server listening on %s", s.cfg.Server.ListenAddr)
		errChan <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// requestID assigns each request a UUID, echoed in the response header.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// requestLogger logs one line per request to stderr.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("%s %s %d %s", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start))
	}
}
