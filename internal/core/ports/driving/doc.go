// Package driving defines the interfaces that external actors use to
// drive the core.
//
// These are the "driving" or "primary" ports in hexagonal architecture.
// Core services implement them; the CLI (and any embedding application)
// calls them.
//
//   - IngestService: document ingestion and removal
//   - RetrievalService: hybrid query-time retrieval
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package, core/services
package driving
