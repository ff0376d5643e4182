// Package bm25 provides an in-memory inverted index with BM25 scoring.
package bm25

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/retriva/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.KeywordIndex = (*Index)(nil)

// Default BM25 parameters. K1 controls term-frequency saturation, B
// controls document-length normalization.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// Config holds the explicit scoring knobs. They materially change
// ranking outcomes and are never hidden defaults.
type Config struct {
	// K1 is the term-frequency saturation parameter (default 1.5).
	K1 float64

	// B is the length-normalization parameter (default 0.75).
	B float64

	// FilterStopWords drops a small English stop-word list during
	// tokenization. Applied identically to documents and queries.
	FilterStopWords bool
}

type posting struct {
	chunkID string
	count   int
}

// Index is an in-memory BM25 keyword index. Postings are kept per
// normalized term; corpus statistics (document frequency, average
// length) are maintained index-wide. Upserts and deletes are atomic
// per chunk ID under a single writer lock; searches take the read lock.
type Index struct {
	mu          sync.RWMutex
	k1          float64
	b           float64
	stopWords   map[string]struct{}
	inverted    map[string][]posting
	chunkTerms  map[string][]string
	chunkLength map[string]int
	totalLength int64
}

// New creates an empty BM25 index.
func New(cfg Config) *Index {
	if cfg.K1 <= 0 {
		cfg.K1 = DefaultK1
	}
	if cfg.B <= 0 {
		cfg.B = DefaultB
	}

	idx := &Index{
		k1:          cfg.K1,
		b:           cfg.B,
		inverted:    make(map[string][]posting),
		chunkTerms:  make(map[string][]string),
		chunkLength: make(map[string]int),
	}
	if cfg.FilterStopWords {
		idx.stopWords = stopWords
	}
	return idx
}

// Upsert adds or replaces the chunk's text in the index.
func (idx *Index) Upsert(_ context.Context, chunkID, text string) error {
	tokens := idx.tokenize(text)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.chunkLength[chunkID]; ok {
		idx.deleteLocked(chunkID)
	}

	length := len(tokens)
	idx.chunkLength[chunkID] = length
	idx.totalLength += int64(length)

	tf := make(map[string]int)
	for _, t := range tokens {
		tf[t]++
	}

	terms := make([]string, 0, len(tf))
	for t, count := range tf {
		idx.inverted[t] = append(idx.inverted[t], posting{chunkID: chunkID, count: count})
		terms = append(terms, t)
	}
	idx.chunkTerms[chunkID] = terms

	return nil
}

// Delete removes a chunk from the index.
func (idx *Index) Delete(_ context.Context, chunkID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.deleteLocked(chunkID)
	return nil
}

func (idx *Index) deleteLocked(chunkID string) {
	length, ok := idx.chunkLength[chunkID]
	if !ok {
		return
	}

	for _, t := range idx.chunkTerms[chunkID] {
		postings := idx.inverted[t]
		for i, p := range postings {
			if p.chunkID == chunkID {
				idx.inverted[t] = append(postings[:i], postings[i+1:]...)
				break
			}
		}
		if len(idx.inverted[t]) == 0 {
			delete(idx.inverted, t)
		}
	}

	delete(idx.chunkTerms, chunkID)
	delete(idx.chunkLength, chunkID)
	idx.totalLength -= int64(length)
}

// Search scores the query against the corpus and returns at most k hits
// by descending BM25 score. Unknown terms contribute zero; ties break
// by chunk ID so the ordering is total.
func (idx *Index) Search(_ context.Context, query string, k int) ([]driven.KeywordHit, error) {
	tokens := idx.tokenize(query)
	if len(tokens) == 0 || k <= 0 {
		return []driven.KeywordHit{}, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	docCount := len(idx.chunkLength)
	if docCount == 0 {
		return []driven.KeywordHit{}, nil
	}

	avgDL := float64(idx.totalLength) / float64(docCount)
	scores := make(map[string]float64)

	for _, t := range tokens {
		postings, ok := idx.inverted[t]
		if !ok {
			continue
		}

		idf := idx.idf(len(postings), docCount)

		for _, p := range postings {
			tf := float64(p.count)
			docLen := float64(idx.chunkLength[p.chunkID])

			num := tf * (idx.k1 + 1)
			denom := tf + idx.k1*(1-idx.b+idx.b*(docLen/avgDL))
			scores[p.chunkID] += idf * (num / denom)
		}
	}

	hits := make([]driven.KeywordHit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, driven.KeywordHit{ChunkID: id, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of indexed chunks.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunkLength)
}

// Close releases resources. The in-memory index has none.
func (idx *Index) Close() error {
	return nil
}

// idf computes ln(1 + (N - n + 0.5) / (n + 0.5)).
func (idx *Index) idf(df, docCount int) float64 {
	n := float64(df)
	return math.Log(1 + (float64(docCount)-n+0.5)/(n+0.5))
}

// tokenize lowercases and splits on non-alphanumeric runes. Documents
// and queries must pass through the exact same function, otherwise
// scoring silently degrades.
func (idx *Index) tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	if idx.stopWords == nil {
		return fields
	}

	tokens := fields[:0]
	for _, f := range fields {
		if _, stop := idx.stopWords[f]; !stop {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// stopWords is a minimal English stop-word list. Kept short on purpose:
// aggressive filtering hurts recall on technical text.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "but": {}, "by": {}, "for": {}, "if": {}, "in": {},
	"into": {}, "is": {}, "it": {}, "no": {}, "not": {}, "of": {},
	"on": {}, "or": {}, "such": {}, "that": {}, "the": {}, "their": {},
	"then": {}, "there": {}, "these": {}, "they": {}, "this": {},
	"to": {}, "was": {}, "will": {}, "with": {},
}
