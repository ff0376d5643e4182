package domain

// Index names used in degradation flags and per-chunk failure reports.
const (
	IndexVector  = "vector"
	IndexKeyword = "keyword"
)

// RetrieveOptions configures a retrieval query.
type RetrieveOptions struct {
	// K is the maximum number of passages to return.
	K int
}

// FusionConfig carries the ranking knobs that materially change
// retrieval outcomes. They are explicit configuration, never hidden
// library defaults.
type FusionConfig struct {
	// RRFConstant is the C in score = sum 1/(C + rank).
	RRFConstant int

	// FanOut is the minimum number of candidates fetched from each
	// index before fusion; the effective fan-out is max(K, FanOut).
	FanOut int
}

// DefaultFusionConfig returns the standard fusion parameters.
func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		RRFConstant: 60,
		FanOut:      20,
	}
}

// RankedResult is a fused query-time ranking entry. It is derived per
// query and never persisted. Rank fields are 1-based positions in the
// per-index result lists; 0 means the chunk did not appear in that list.
type RankedResult struct {
	ChunkID     string
	Score       float64
	VectorRank  int
	KeywordRank int
}

// Passage is a RankedResult hydrated with the chunk text, ready for the
// caller to place into an LLM prompt.
type Passage struct {
	ChunkID     string
	DocumentID  string
	Text        string
	Score       float64
	VectorRank  int
	KeywordRank int
}

// RankedSet is the response of one retrieval call.
type RankedSet struct {
	// Passages is ordered best-first, at most K entries.
	Passages []Passage

	// Degraded is true when one index was unavailable at query time and
	// the ranking came from the surviving index alone.
	Degraded bool

	// FailedIndex names the index that was skipped when Degraded is set,
	// IndexVector or IndexKeyword.
	FailedIndex string
}
