package driven

import (
	"context"

	"github.com/custodia-labs/retriva/internal/core/domain"
)

// VectorIndex provides approximate nearest-neighbour search over chunk
// embeddings. Implementations include the in-memory HNSW graph and the
// Qdrant adapter.
type VectorIndex interface {
	// Upsert inserts or replaces the record for its chunk ID. A record
	// whose embedding does not match the index dimension is rejected
	// with a domain.DimensionError.
	Upsert(ctx context.Context, record domain.VectorRecord) error

	// Delete removes a chunk's vector. Deleting an unknown chunk ID is
	// not an error.
	Delete(ctx context.Context, chunkID string) error

	// Search finds the k nearest neighbours to the query vector,
	// ordered by descending similarity. An empty index yields an empty
	// slice, not an error.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Dimensions returns the fixed embedding dimension of the index.
	Dimensions() int

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Similarity is the score under the configured metric (cosine or
	// dot product). Higher is more similar.
	Similarity float64
}
