package driven

import (
	"context"

	"github.com/custodia-labs/retriva/internal/core/domain"
)

// ResultCache caches retrieval responses keyed by query. This is an
// optional collaborator - when nil, every query runs the full fusion
// path. Cache mechanics (key hashing, TTL, eviction) live behind this
// interface.
type ResultCache interface {
	// Get returns the cached result for the key, or (nil, nil) on a
	// cache miss. Cache errors are returned so the caller can log and
	// continue; a broken cache never fails a query.
	Get(ctx context.Context, key string) (*domain.RankedSet, error)

	// Set stores a result under the key.
	Set(ctx context.Context, key string, set *domain.RankedSet) error

	// Purge drops every cached result. Called after any index
	// mutation, since stale rankings are worse than slow ones.
	Purge(ctx context.Context) error

	// Close releases resources.
	Close() error
}
