package driving

import (
	"context"

	"github.com/custodia-labs/retriva/internal/core/domain"
)

// RetrievalService answers queries by fusing keyword and vector search.
type RetrievalService interface {
	// Retrieve runs the query against both indexes concurrently, fuses
	// the two ranked lists with Reciprocal Rank Fusion and returns at
	// most opts.K hydrated passages, best first. When exactly one index
	// is unavailable the result carries the surviving index's ranking
	// with the Degraded flag set; when both fail an error is returned.
	Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) (*domain.RankedSet, error)
}
