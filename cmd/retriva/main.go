// Command retriva is the hybrid retrieval CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/custodia-labs/retriva/internal/adapters/driven/cache/redis"
	"github.com/custodia-labs/retriva/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/retriva/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/retriva/internal/adapters/driven/index/bm25"
	"github.com/custodia-labs/retriva/internal/adapters/driven/index/hnsw"
	"github.com/custodia-labs/retriva/internal/adapters/driven/index/qdrant"
	"github.com/custodia-labs/retriva/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/retriva/internal/adapters/driving/cli"
	"github.com/custodia-labs/retriva/internal/chunker"
	"github.com/custodia-labs/retriva/internal/config"
	"github.com/custodia-labs/retriva/internal/core/domain"
	"github.com/custodia-labs/retriva/internal/core/ports/driven"
	"github.com/custodia-labs/retriva/internal/core/services"
	"github.com/custodia-labs/retriva/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("RETRIVA_CONFIG"))
	if err != nil {
		return err
	}

	store, err := sqlite.NewStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	defer embedder.Close()

	vectorIndex, err := buildVectorIndex(ctx, cfg, embedder.Dimensions())
	if err != nil {
		return err
	}
	defer vectorIndex.Close()

	keywordIndex := bm25.New(bm25.Config{
		K1:              cfg.Keyword.K1,
		B:               cfg.Keyword.B,
		FilterStopWords: cfg.Keyword.FilterStopWords,
	})
	defer keywordIndex.Close()

	// In-memory indexes start empty. Rebuild them from the persisted
	// chunks so the process picks up where the last one left off.
	if err := warmIndexes(ctx, store, keywordIndex, vectorIndex, cfg.Vector.Backend); err != nil {
		return fmt.Errorf("warm indexes: %w", err)
	}

	split := chunker.New(
		chunker.WithChunkSize(cfg.Chunking.ChunkSize),
		chunker.WithOverlap(cfg.Chunking.Overlap),
		chunker.WithBoundaryWindow(cfg.Chunking.BoundaryWindow),
	)

	ingest, err := services.NewIngestService(store, keywordIndex, vectorIndex, embedder, split)
	if err != nil {
		return err
	}
	ingest.SetWorkers(cfg.Ingest.ChunkWorkers, cfg.Ingest.DocumentWorkers)

	retrieval := services.NewRetrievalService(store, keywordIndex, vectorIndex, embedder, domain.FusionConfig{
		RRFConstant: cfg.Retrieval.RRFConstant,
		FanOut:      cfg.Retrieval.FanOut,
	})
	retrieval.SetSubQueryTimeout(cfg.Retrieval.SubQueryTimeout())

	if cfg.Cache.Enabled {
		cache, err := redis.New(ctx, redis.Config{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TTL:      cfg.Cache.TTL(),
		})
		if err != nil {
			logger.Warn("Result cache unavailable: %v", err)
		} else {
			defer cache.Close()
			retrieval.SetResultCache(cache)
			ingest.SetResultCache(cache)
		}
	}

	cli.SetServices(cli.Services{
		Retrieval:     retrieval,
		Ingest:        ingest,
		Documents:     store,
		Embedding:     embedder,
		VectorBackend: cfg.Vector.Backend,
	})

	return cli.Execute(ctx)
}

func buildEmbedder(cfg *config.Config) (driven.EmbeddingService, error) {
	switch strings.ToLower(cfg.Embedding.Provider) {
	case "", "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:           cfg.Embedding.BaseURL,
			Model:             cfg.Embedding.Model,
			Timeout:           cfg.Embedding.Timeout(),
			Dimensions:        cfg.Embedding.Dimensions,
			RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		}), nil

	case "openai":
		return openai.NewEmbeddingService(openai.Config{
			APIKey:            cfg.Embedding.APIKey,
			BaseURL:           cfg.Embedding.BaseURL,
			Model:             cfg.Embedding.Model,
			Timeout:           cfg.Embedding.Timeout(),
			Dimensions:        cfg.Embedding.Dimensions,
			RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		})

	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

func buildVectorIndex(ctx context.Context, cfg *config.Config, dims int) (driven.VectorIndex, error) {
	switch strings.ToLower(cfg.Vector.Backend) {
	case "", "hnsw":
		return hnsw.New(hnsw.Config{
			Dimensions: dims,
			Metric:     hnsw.Metric(cfg.Vector.Metric),
			M:          cfg.Vector.M,
			EF:         cfg.Vector.EF,
			EFSearch:   cfg.Vector.EFSearch,
		})

	case "qdrant":
		return qdrant.New(ctx, qdrant.Config{
			BaseURL:    cfg.Vector.QdrantURL,
			APIKey:     cfg.Vector.QdrantAPIKey,
			Collection: cfg.Vector.QdrantCollection,
			Dimensions: dims,
			Distance:   qdrantDistance(cfg.Vector.Metric),
		})

	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Vector.Backend)
	}
}

// qdrantDistance maps the metric names to Qdrant's distance names.
func qdrantDistance(metric string) string {
	switch strings.ToLower(metric) {
	case "dot":
		return "Dot"
	default:
		return "Cosine"
	}
}

// warmIndexes replays the persisted chunks into the in-memory indexes.
// The keyword index is always in-memory; vectors are replayed only for
// the hnsw backend since Qdrant persists server-side.
func warmIndexes(
	ctx context.Context,
	store *sqlite.Store,
	keywordIndex driven.KeywordIndex,
	vectorIndex driven.VectorIndex,
	backend string,
) error {
	warmVectors := strings.ToLower(backend) != "qdrant"

	docs, err := store.ListDocuments(ctx)
	if err != nil {
		return err
	}

	var warmed, skipped int
	for i := range docs {
		chunks, err := store.GetChunks(ctx, docs[i].ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return err
		}

		for _, chunk := range chunks {
			if err := keywordIndex.Upsert(ctx, chunk.ID, chunk.Content); err != nil {
				return fmt.Errorf("keyword warm-up for %s: %w", chunk.ID, err)
			}
			if !warmVectors {
				continue
			}
			if len(chunk.Embedding) != vectorIndex.Dimensions() {
				// Stale embedding from a different model. It will be
				// fixed on the next ingest of the document.
				skipped++
				continue
			}
			if err := vectorIndex.Upsert(ctx, domain.VectorRecord{
				ChunkID:    chunk.ID,
				DocumentID: chunk.DocumentID,
				Text:       chunk.Content,
				Embedding:  chunk.Embedding,
			}); err != nil {
				return fmt.Errorf("vector warm-up for %s: %w", chunk.ID, err)
			}
			warmed++
		}
	}

	if warmed > 0 || skipped > 0 {
		logger.Debug("Index warm-up: %d vectors restored, %d skipped", warmed, skipped)
	}
	return nil
}
