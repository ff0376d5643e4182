// Package config loads the typed application configuration.
//
// Values resolve in three layers: built-in defaults, then the TOML
// config file (~/.retriva/config.toml by default), then RETRIVA_*
// environment variables. A .env file in the working directory is
// loaded into the environment first.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config is the root configuration.
type Config struct {
	Chunking  ChunkingConfig  `toml:"chunking"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Keyword   KeywordConfig   `toml:"keyword"`
	Vector    VectorConfig    `toml:"vector"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Cache     CacheConfig     `toml:"cache"`
	Storage   StorageConfig   `toml:"storage"`
	Ingest    IngestConfig    `toml:"ingest"`
}

// ChunkingConfig controls how document text is split.
type ChunkingConfig struct {
	// ChunkSize is the maximum chunk length in runes.
	ChunkSize int `toml:"chunk_size"`

	// Overlap is the number of runes shared between adjacent chunks.
	Overlap int `toml:"overlap"`

	// BoundaryWindow is how far back a chunk end may move to land on
	// a natural boundary.
	BoundaryWindow int `toml:"boundary_window"`
}

// RetrievalConfig carries the ranking knobs. These materially change
// ordering, so they are explicit rather than buried defaults.
type RetrievalConfig struct {
	// RRFConstant is the C in score = sum 1/(C + rank).
	RRFConstant int `toml:"rrf_constant"`

	// FanOut is the minimum candidate count fetched from each index.
	FanOut int `toml:"fan_out"`

	// TopK is the default number of passages returned.
	TopK int `toml:"top_k"`

	// SubQueryTimeoutMS bounds each per-index search independently,
	// in milliseconds.
	SubQueryTimeoutMS int `toml:"sub_query_timeout_ms"`
}

// SubQueryTimeout returns the per-index search timeout.
func (c RetrievalConfig) SubQueryTimeout() time.Duration {
	return time.Duration(c.SubQueryTimeoutMS) * time.Millisecond
}

// KeywordConfig tunes the BM25 index.
type KeywordConfig struct {
	K1              float64 `toml:"k1"`
	B               float64 `toml:"b"`
	FilterStopWords bool    `toml:"filter_stop_words"`
}

// VectorConfig selects and tunes the vector index backend.
type VectorConfig struct {
	// Backend is "hnsw" (in-memory) or "qdrant".
	Backend string `toml:"backend"`

	// Metric is "cosine" or "dot".
	Metric string `toml:"metric"`

	// HNSW graph parameters.
	M        int `toml:"m"`
	EF       int `toml:"ef"`
	EFSearch int `toml:"ef_search"`

	// Qdrant connection settings.
	QdrantURL        string `toml:"qdrant_url"`
	QdrantAPIKey     string `toml:"qdrant_api_key"`
	QdrantCollection string `toml:"qdrant_collection"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	// Provider is "ollama" or "openai".
	Provider string `toml:"provider"`

	BaseURL    string `toml:"base_url"`
	Model      string `toml:"model"`
	APIKey     string `toml:"api_key"`
	Dimensions int    `toml:"dimensions"`

	// RequestsPerSecond throttles provider calls. Zero disables it.
	RequestsPerSecond float64 `toml:"requests_per_second"`

	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Timeout returns the provider request timeout.
func (c EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheConfig controls the optional Redis result cache.
type CacheConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

// TTL returns how long cached results live.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// StorageConfig locates the SQLite metadata store.
type StorageConfig struct {
	// Path is the database file. Empty means the default under
	// ~/.retriva/data.
	Path string `toml:"path"`
}

// IngestConfig sizes the ingestion worker pools.
type IngestConfig struct {
	ChunkWorkers    int `toml:"chunk_workers"`
	DocumentWorkers int `toml:"document_workers"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			ChunkSize:      1000,
			Overlap:        200,
			BoundaryWindow: 120,
		},
		Retrieval: RetrievalConfig{
			RRFConstant:       60,
			FanOut:            20,
			TopK:              3,
			SubQueryTimeoutMS: 5000,
		},
		Keyword: KeywordConfig{
			K1: 1.5,
			B:  0.75,
		},
		Vector: VectorConfig{
			Backend:          "hnsw",
			Metric:           "cosine",
			M:                16,
			EF:               200,
			EFSearch:         64,
			QdrantURL:        "http://localhost:6333",
			QdrantCollection: "retriva",
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			TimeoutSeconds: 30,
		},
		Cache: CacheConfig{
			Addr:       "localhost:6379",
			TTLSeconds: 3600,
		},
		Ingest: IngestConfig{
			ChunkWorkers:    4,
			DocumentWorkers: 2,
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".retriva", "config.toml"), nil
}

// Load resolves the configuration. A missing config file is not an
// error; a malformed one is.
func Load(path string) (*Config, error) {
	// Side-load .env so RETRIVA_* variables set there are visible.
	// A missing .env is fine.
	_ = godotenv.Load()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults + env only.
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays RETRIVA_* environment variables. Only operational
// settings are exposed this way; ranking knobs live in the file.
func (c *Config) applyEnv() {
	envString("RETRIVA_EMBEDDING_PROVIDER", &c.Embedding.Provider)
	envString("RETRIVA_EMBEDDING_BASE_URL", &c.Embedding.BaseURL)
	envString("RETRIVA_EMBEDDING_MODEL", &c.Embedding.Model)
	envString("RETRIVA_EMBEDDING_API_KEY", &c.Embedding.APIKey)
	envInt("RETRIVA_EMBEDDING_DIMENSIONS", &c.Embedding.Dimensions)
	envFloat("RETRIVA_EMBEDDING_RPS", &c.Embedding.RequestsPerSecond)

	envString("RETRIVA_VECTOR_BACKEND", &c.Vector.Backend)
	envString("RETRIVA_QDRANT_URL", &c.Vector.QdrantURL)
	envString("RETRIVA_QDRANT_API_KEY", &c.Vector.QdrantAPIKey)
	envString("RETRIVA_QDRANT_COLLECTION", &c.Vector.QdrantCollection)

	envBool("RETRIVA_CACHE_ENABLED", &c.Cache.Enabled)
	envString("RETRIVA_CACHE_ADDR", &c.Cache.Addr)
	envString("RETRIVA_CACHE_PASSWORD", &c.Cache.Password)
	envInt("RETRIVA_CACHE_DB", &c.Cache.DB)

	envString("RETRIVA_DB_PATH", &c.Storage.Path)
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
