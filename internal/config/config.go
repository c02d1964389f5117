package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full service configuration. Values are loaded from an
// optional TOML file and may be overridden by SEARCHD_* environment
// variables.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Catalog   CatalogConfig   `toml:"catalog"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Search    SearchConfig    `toml:"search"`
}

// ServerConfig configures the HTTP shell.
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

// CatalogConfig points at the pre-built catalog database.
type CatalogConfig struct {
	DBPath string `toml:"db_path"`
}

// EmbeddingConfig configures the embedding provider used for the
// vector half of hybrid search.
type EmbeddingConfig struct {
	// Enabled gates vector search. Even when true, the engine degrades
	// to lexical-only if the catalog carries no embeddings.
	Enabled bool `toml:"enabled"`

	// Provider is one of gemini, openai, ollama, local. Empty selects
	// by available API keys.
	Provider string `toml:"provider"`

	Model      string `toml:"model"`
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"` // Ollama only
	Dimensions int    `toml:"dimensions"`
	TaskType   string `toml:"task_type"` // Gemini only
	CacheSize  int    `toml:"cache_size"`
}

// SearchConfig tunes the search engine.
type SearchConfig struct {
	RRFConstant   float64       `toml:"rrf_constant"`
	EmbedTimeout  time.Duration `toml:"embed_timeout"`
	SearchTimeout time.Duration `toml:"search_timeout"`
	CacheEnabled  bool          `toml:"cache_enabled"`
	CacheSize     int           `toml:"cache_size"`
	CacheTTL      time.Duration `toml:"cache_ttl"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
		Catalog: CatalogConfig{
			DBPath: "catalog.db",
		},
		Embedding: EmbeddingConfig{
			Enabled:    false,
			Model:      "gemini-embedding-001",
			Dimensions: 256,
			TaskType:   "SEMANTIC_SIMILARITY",
			CacheSize:  10000,
		},
		Search: SearchConfig{
			RRFConstant:   60,
			EmbedTimeout:  5 * time.Second,
			SearchTimeout: 10 * time.Second,
			CacheEnabled:  true,
			CacheSize:     1000,
			CacheTTL:      60 * time.Second,
		},
	}
}

// Load reads configuration from the given TOML file, then applies
// environment overrides. A missing file is not an error; a malformed
// one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides config values from the environment. Variable names
// mirror the original deployment so existing environments keep working.
func (c *Config) applyEnv() {
	if v := os.Getenv("SEARCHD_LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("SEARCHD_DB_PATH"); v != "" {
		c.Catalog.DBPath = v
	}
	if v := os.Getenv("SEARCHD_ENABLE_EMBEDDINGS"); v != "" {
		c.Embedding.Enabled = ParseBoolFlag(v)
	}
	if v := os.Getenv("SEARCHD_EMBEDDING_PROVIDER"); v != "" {
		c.Embedding.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("GOOGLE_GEMINI_API_KEY"); v != "" && c.Embedding.APIKey == "" {
		c.Embedding.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL_ID"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("GEMINI_OUTPUT_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Embedding.Dimensions = n
		}
	}
	if v := os.Getenv("GEMINI_TASK_TYPE"); v != "" {
		c.Embedding.TaskType = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.Embedding.APIKey == "" && c.Embedding.Provider == "openai" {
		c.Embedding.APIKey = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		c.Embedding.BaseURL = v
	}
	if v := os.Getenv("SEARCHD_EMBED_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Search.EmbedTimeout = d
		}
	}
	if v := os.Getenv("SEARCHD_SEARCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Search.SearchTimeout = d
		}
	}
	if v := os.Getenv("SEARCHD_CACHE_ENABLED"); v != "" {
		c.Search.CacheEnabled = ParseBoolFlag(v)
	}
}

// ParseBoolFlag interprets the truthy flag values accepted by the
// deployment environment: "1", "true", and "yes" (case-insensitive).
// Everything else is false.
func ParseBoolFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// Validate checks that the configuration is usable for serving.
func (c *Config) Validate() error {
	if c.Catalog.DBPath == "" {
		return fmt.Errorf("catalog db_path is required")
	}
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server listen_addr is required")
	}
	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("rrf_constant must be positive")
	}
	return nil
}
