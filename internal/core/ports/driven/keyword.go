package driven

import "context"

// KeywordIndex provides BM25 keyword search over chunk text.
type KeywordIndex interface {
	// Upsert adds or replaces a chunk's text in the index.
	Upsert(ctx context.Context, chunkID, text string) error

	// Delete removes a chunk from the index. Deleting an unknown chunk
	// ID is not an error.
	Delete(ctx context.Context, chunkID string) error

	// Search scores the query against the corpus and returns at most k
	// hits ordered by descending BM25 score. Query terms absent from
	// the corpus contribute nothing; an empty or matchless query yields
	// an empty slice.
	Search(ctx context.Context, query string, k int) ([]KeywordHit, error)

	// Close releases resources.
	Close() error
}

// KeywordHit represents a keyword search result.
type KeywordHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the BM25 relevance score.
	Score float64
}
