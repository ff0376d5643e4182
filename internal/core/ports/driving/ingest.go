package driving

import (
	"context"

	"github.com/custodia-labs/retriva/internal/core/domain"
)

// IngestService turns documents into indexed chunks.
type IngestService interface {
	// Ingest chunks the document, embeds each chunk and writes it into
	// both indexes under the same deterministic chunk ID. Ingestion is
	// atomic per chunk: after the call each chunk is either in both
	// indexes or in neither, and per-chunk failures are enumerated in
	// the report so the caller can retry precisely. Re-ingesting the
	// same content is an effective no-op; changed content hard-replaces
	// the document's chunk set.
	Ingest(ctx context.Context, doc *domain.Document) (*domain.IngestReport, error)

	// IngestAll ingests independent documents in parallel with a
	// bounded worker pool and returns one report per document.
	IngestAll(ctx context.Context, docs []*domain.Document) ([]*domain.IngestReport, error)

	// Remove deletes the document and every chunk derived from it from
	// both indexes and the store.
	Remove(ctx context.Context, documentID string) error
}
