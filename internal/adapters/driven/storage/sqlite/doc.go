// Package sqlite persists documents and chunks in a single SQLite
// database file.
//
// The store fills two roles: it is the hydration source for retrieval
// results (the indexes only hold chunk IDs and vectors), and it keeps
// chunk embeddings so the in-memory indexes can be rebuilt at startup
// without re-embedding the corpus.
//
// The schema is managed by embedded SQL migrations applied in order at
// open time. The database runs in WAL mode so ingestion writes and
// query reads do not block each other.
package sqlite
