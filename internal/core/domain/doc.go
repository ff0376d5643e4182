// Package domain defines the core business entities for Retriva.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: extracted text with a stable, caller-owned identifier
//   - Chunk: an overlap-bounded segment of a document, the unit of
//     indexing and retrieval
//   - VectorRecord: what the vector index stores per chunk
//   - RankedResult / Passage / RankedSet: query-time fusion output
//   - IngestReport / ChunkFailure: per-chunk ingestion outcomes
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
