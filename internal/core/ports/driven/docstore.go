package driven

import (
	"context"

	"github.com/custodia-labs/retriva/internal/core/domain"
)

// DocumentStore persists documents and their chunk sets. It is the
// hydration source for retrieval results: the indexes hold only chunk
// IDs and vectors, the store holds the text.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// SaveChunks stores or updates chunks, keyed by chunk ID.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetDocument retrieves a document by ID. Returns
	// domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetChunks retrieves all chunks for a document, ordered by ordinal.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetChunk retrieves a specific chunk by ID. Returns
	// domain.ErrNotFound if it does not exist.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// DeleteChunks removes the given chunks by ID. Used when a
	// re-ingested document shrinks and stale ordinals must go.
	DeleteChunks(ctx context.Context, chunkIDs []string) error

	// DeleteDocument removes a document and all its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns all stored documents.
	ListDocuments(ctx context.Context) ([]domain.Document, error)
}
