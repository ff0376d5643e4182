package domain

// Ingest failure stages, used alongside the index names in ChunkFailure.
const (
	StageEmbedding = "embedding"
)

// ChunkFailure records one chunk-level ingestion failure precisely
// enough for the caller to retry it: which chunk, at which stage or
// index, and why.
type ChunkFailure struct {
	ChunkID string
	Index   string // StageEmbedding, IndexVector or IndexKeyword
	Err     error
}

// IngestReport summarises one document ingestion. ChunkIDs lists the
// chunks present in both indexes after the call; Failures enumerates
// the rest.
type IngestReport struct {
	DocumentID string
	ChunkIDs   []string
	Failures   []ChunkFailure
}

// Failed reports whether any chunk failed to ingest.
func (r *IngestReport) Failed() bool {
	return len(r.Failures) > 0
}
