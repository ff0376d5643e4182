// Package hnsw provides an in-memory approximate nearest-neighbour
// vector index backed by a hierarchical navigable small world graph.
package hnsw

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/retriva/internal/core/domain"
	"github.com/custodia-labs/retriva/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default graph construction parameters.
const (
	DefaultM        = 16
	DefaultEF       = 200
	DefaultEFSearch = 64
)

// Config holds the index configuration. Dimensions and Metric are a
// fixed contract with the embedding model and are validated on every
// write.
type Config struct {
	// Dimensions is the fixed embedding dimension, required.
	Dimensions int

	// Metric is the similarity measure (default cosine).
	Metric Metric

	// M is the number of graph connections per node (default 16).
	M int

	// EF is the construction-time candidate list size (default 200).
	EF int

	// EFSearch is the query-time candidate list size (default 64).
	EFSearch int
}

// Index is an in-memory ANN index over chunk embeddings. Deletes are
// tombstones: the graph node stays but is unmapped, so it can never
// surface in results. Upsert replaces by chunk ID. All operations are
// atomic per chunk ID under one lock.
type Index struct {
	mu       sync.RWMutex
	graph    *graph
	metric   Metric
	dims     int
	efSearch int
	byChunk  map[string]uint32 // chunk id -> live graph node
	byNode   map[uint32]string // live graph node -> chunk id
}

// New creates an empty index for the given dimension and metric.
func New(cfg Config) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("hnsw: dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.Metric == "" {
		cfg.Metric = MetricCosine
	}
	if !cfg.Metric.Valid() {
		return nil, fmt.Errorf("hnsw: unknown metric %q: %w", cfg.Metric, domain.ErrMetricMismatch)
	}
	if cfg.M <= 0 {
		cfg.M = DefaultM
	}
	if cfg.EF <= 0 {
		cfg.EF = DefaultEF
	}
	if cfg.EFSearch <= 0 {
		cfg.EFSearch = DefaultEFSearch
	}

	return &Index{
		graph:    newGraph(cfg.Dimensions, cfg.M, cfg.EF, cfg.Metric),
		metric:   cfg.Metric,
		dims:     cfg.Dimensions,
		efSearch: cfg.EFSearch,
		byChunk:  make(map[string]uint32),
		byNode:   make(map[uint32]string),
	}, nil
}

// Upsert inserts or replaces the record for its chunk ID.
func (idx *Index) Upsert(_ context.Context, record domain.VectorRecord) error {
	if len(record.Embedding) != idx.dims {
		return fmt.Errorf("upsert %s: %w", record.ChunkID,
			&domain.DimensionError{Expected: idx.dims, Actual: len(record.Embedding)})
	}

	vec := make([]float32, len(record.Embedding))
	copy(vec, record.Embedding)
	if idx.metric == MetricCosine {
		normalize(vec)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if old, ok := idx.byChunk[record.ChunkID]; ok {
		delete(idx.byNode, old)
	}

	id := idx.graph.insert(vec)
	idx.byChunk[record.ChunkID] = id
	idx.byNode[id] = record.ChunkID
	return nil
}

// Delete tombstones a chunk's vector. Unknown chunk IDs are ignored.
func (idx *Index) Delete(_ context.Context, chunkID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if id, ok := idx.byChunk[chunkID]; ok {
		delete(idx.byNode, id)
		delete(idx.byChunk, chunkID)
	}
	return nil
}

// Search returns up to k hits by descending similarity. The empty index
// yields an empty slice.
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) != idx.dims {
		return nil, fmt.Errorf("search: %w",
			&domain.DimensionError{Expected: idx.dims, Actual: len(query)})
	}
	if k <= 0 {
		return []driven.VectorHit{}, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	if idx.metric == MetricCosine {
		normalize(q)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.byChunk) == 0 {
		return []driven.VectorHit{}, nil
	}

	// Over-fetch to compensate for the sentinel node and tombstoned
	// entries the graph still walks through.
	dead := len(idx.graph.nodes) - 1 - len(idx.byChunk)
	candidates := idx.graph.knn(q, k+dead+1, idx.efSearch+dead)

	hits := make([]driven.VectorHit, 0, k)
	for _, c := range candidates {
		chunkID, ok := idx.byNode[c.node]
		if !ok {
			continue
		}
		hits = append(hits, driven.VectorHit{
			ChunkID:    chunkID,
			Similarity: idx.metric.similarity(c.distance),
		})
		if len(hits) == k {
			break
		}
	}
	return hits, nil
}

// Dimensions returns the fixed embedding dimension.
func (idx *Index) Dimensions() int {
	return idx.dims
}

// Count returns the number of live vectors.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byChunk)
}

// Close releases resources. The in-memory index has none.
func (idx *Index) Close() error {
	return nil
}
