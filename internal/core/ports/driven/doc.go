// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - KeywordIndex: BM25 keyword search. Always required.
//   - VectorIndex: Vector storage/search (in-memory HNSW or Qdrant).
//   - EmbeddingService: Generates embeddings; its dimension must match
//     the VectorIndex.
//   - DocumentStore: Document and chunk persistence (SQLite or memory).
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ResultCache: Query result caching (Redis). Without it, every
//     query runs the full fusion path.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
