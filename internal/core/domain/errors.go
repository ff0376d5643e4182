package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch indicates an embedding does not match the
	// vector index dimension. This is a fatal configuration error and is
	// raised eagerly at construction or ingestion, never tolerated.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrMetricMismatch indicates the configured similarity metric does
	// not match the existing vector collection.
	ErrMetricMismatch = errors.New("similarity metric mismatch")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Semantic search and vector indexing are disabled.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrKeywordIndexUnavailable indicates the keyword index is not
	// configured. BM25 search is disabled.
	ErrKeywordIndexUnavailable = errors.New("keyword index unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not
	// configured. Semantic similarity search is disabled.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrRetrievalUnavailable indicates neither index answered a query.
	ErrRetrievalUnavailable = errors.New("no index available for retrieval")
)

// DimensionError reports the expected and actual embedding dimensions.
// It wraps ErrDimensionMismatch so callers can test with errors.Is.
type DimensionError struct {
	Expected int
	Actual   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionError) Unwrap() error {
	return ErrDimensionMismatch
}
