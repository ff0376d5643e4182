package domain

import (
	"fmt"
	"time"
)

// Document is the unit of ingestion: extracted plain text plus a stable,
// caller-owned identifier. Format-specific parsing happens upstream.
type Document struct {
	// ID is the stable identifier. Re-ingesting under the same ID
	// replaces the document's chunk set.
	ID string

	// Title is the human-readable title, if any.
	Title string

	// URI is the original location (file path, URL, etc).
	URI string

	// Content is the full extracted text before chunking.
	Content string

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]string

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time

	// UpdatedAt is when the document was last re-ingested.
	UpdatedAt time.Time
}

// Chunk is the atomic unit of indexing and retrieval: a contiguous,
// overlap-bounded segment of a document's text.
type Chunk struct {
	// ID is derived from DocumentID and Ordinal via ChunkID.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text of this segment.
	Content string

	// Ordinal is the 0-based position within the document. Ordinals are
	// contiguous and strictly increasing per document.
	Ordinal int

	// StartChar and EndChar are rune offsets of the segment within the
	// document content. Consecutive chunks overlap by the configured span.
	StartChar int
	EndChar   int

	// Embedding is the dense vector for semantic search, populated
	// during ingestion.
	Embedding []float32
}

// ChunkID derives the deterministic chunk identifier from the document id
// and the chunk ordinal. Identical input documents always produce
// identical ids, which is what makes re-ingestion idempotent.
func ChunkID(documentID string, ordinal int) string {
	return fmt.Sprintf("%s-%04d", documentID, ordinal)
}

// VectorRecord is what the vector index stores for one chunk: the
// embedding plus enough payload to identify and display the hit.
type VectorRecord struct {
	ChunkID    string
	DocumentID string
	Text       string
	Embedding  []float32
}
