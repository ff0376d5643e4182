package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/retriva/internal/core/domain"
	"github.com/custodia-labs/retriva/internal/core/ports/driven"
	"github.com/custodia-labs/retriva/internal/core/ports/driving"
	"github.com/custodia-labs/retriva/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// Default retrieval parameters.
const (
	DefaultTopK            = 3
	DefaultSubQueryTimeout = 5 * time.Second
)

// RetrievalService fuses keyword and vector search with Reciprocal
// Rank Fusion.
type RetrievalService struct {
	docStore         driven.DocumentStore
	keywordIndex     driven.KeywordIndex
	vectorIndex      driven.VectorIndex
	embeddingService driven.EmbeddingService
	resultCache      driven.ResultCache
	fusion           domain.FusionConfig
	subQueryTimeout  time.Duration
}

// NewRetrievalService creates a new retrieval service. Zero-valued
// fusion fields fall back to the defaults.
func NewRetrievalService(
	docStore driven.DocumentStore,
	keywordIndex driven.KeywordIndex,
	vectorIndex driven.VectorIndex,
	embeddingService driven.EmbeddingService,
	fusion domain.FusionConfig,
) *RetrievalService {
	def := domain.DefaultFusionConfig()
	if fusion.RRFConstant <= 0 {
		fusion.RRFConstant = def.RRFConstant
	}
	if fusion.FanOut <= 0 {
		fusion.FanOut = def.FanOut
	}

	return &RetrievalService{
		docStore:         docStore,
		keywordIndex:     keywordIndex,
		vectorIndex:      vectorIndex,
		embeddingService: embeddingService,
		fusion:           fusion,
		subQueryTimeout:  DefaultSubQueryTimeout,
	}
}

// SetResultCache sets the optional result cache consulted before and
// populated after fusion.
func (s *RetrievalService) SetResultCache(cache driven.ResultCache) {
	s.resultCache = cache
}

// SetSubQueryTimeout sets the per-index search timeout.
func (s *RetrievalService) SetSubQueryTimeout(d time.Duration) {
	if d > 0 {
		s.subQueryTimeout = d
	}
}

// Retrieve runs the query against both indexes and fuses the rankings.
func (s *RetrievalService) Retrieve(
	ctx context.Context, query string, opts domain.RetrieveOptions,
) (*domain.RankedSet, error) {
	logger.Section("Retrieval")
	logger.Debug("Query: %q", query)

	k := opts.K
	if k <= 0 {
		k = DefaultTopK
	}

	cacheKey := fmt.Sprintf("%s|k=%d", query, k)
	if s.resultCache != nil {
		cached, err := s.resultCache.Get(ctx, cacheKey)
		if err != nil {
			logger.Warn("Result cache read failed: %v", err)
		} else if cached != nil {
			logger.Debug("Cache hit for %q", cacheKey)
			return cached, nil
		}
	}

	// Fetch more candidates than k so fusion has enough overlap to
	// reorder.
	fanOut := s.fusion.FanOut
	if k > fanOut {
		fanOut = k
	}
	logger.Debug("Fan-out: %d, RRF constant: %d", fanOut, s.fusion.RRFConstant)

	// The two searches run under independent timeouts so one expiring
	// never cancels the other.
	var (
		vectorHits  []driven.VectorHit
		keywordHits []driven.KeywordHit
		vectorErr   error
		keywordErr  error
	)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		subCtx, cancel := context.WithTimeout(ctx, s.subQueryTimeout)
		defer cancel()
		vectorHits, vectorErr = s.vectorSearch(subCtx, query, fanOut)
	}()

	go func() {
		defer wg.Done()
		subCtx, cancel := context.WithTimeout(ctx, s.subQueryTimeout)
		defer cancel()
		keywordHits, keywordErr = s.keywordSearch(subCtx, query, fanOut)
	}()

	wg.Wait()

	if vectorErr != nil && keywordErr != nil {
		logger.Warn("Retrieval: both indexes failed")
		return nil, fmt.Errorf("%w: vector: %v, keyword: %v",
			domain.ErrRetrievalUnavailable, vectorErr, keywordErr)
	}

	set := &domain.RankedSet{}
	switch {
	case vectorErr != nil:
		logger.Warn("Retrieval degraded: vector index failed: %v", vectorErr)
		set.Degraded = true
		set.FailedIndex = domain.IndexVector
	case keywordErr != nil:
		logger.Warn("Retrieval degraded: keyword index failed: %v", keywordErr)
		set.Degraded = true
		set.FailedIndex = domain.IndexKeyword
	}

	ranked := fuse(vectorHits, keywordHits, s.fusion.RRFConstant)
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	logger.Debug("Fused %d vector + %d keyword hits into %d results",
		len(vectorHits), len(keywordHits), len(ranked))

	passages, err := s.hydrate(ctx, ranked)
	if err != nil {
		return nil, fmt.Errorf("hydrate passages: %w", err)
	}
	set.Passages = passages
	logger.Info("Retrieved %d passages", len(passages))

	// Degraded sets stay uncached: the TTL would outlive the index
	// outage and keep serving the incomplete ranking after recovery.
	if s.resultCache != nil && !set.Degraded {
		if err := s.resultCache.Set(ctx, cacheKey, set); err != nil {
			logger.Warn("Result cache write failed: %v", err)
		}
	}

	return set, nil
}

// vectorSearch embeds the query and searches the vector index.
func (s *RetrievalService) vectorSearch(ctx context.Context, query string, k int) ([]driven.VectorHit, error) {
	if s.vectorIndex == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if s.embeddingService == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	embedding, err := s.embeddingService.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.vectorIndex.Search(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return hits, nil
}

// keywordSearch runs the query against the keyword index. An empty
// query is not special-cased here: the index itself yields no hits.
func (s *RetrievalService) keywordSearch(ctx context.Context, query string, k int) ([]driven.KeywordHit, error) {
	if s.keywordIndex == nil {
		return nil, domain.ErrKeywordIndexUnavailable
	}

	hits, err := s.keywordIndex.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	return hits, nil
}

// fuse merges the two ranked lists with Reciprocal Rank Fusion.
// Each list contributes 1/(c + rank) per chunk, rank 1-based. Raw
// similarity and BM25 magnitudes are never blended, only positions.
// Ties sort by smaller combined rank sum, then by chunk ID.
func fuse(vectorHits []driven.VectorHit, keywordHits []driven.KeywordHit, c int) []domain.RankedResult {
	merged := make(map[string]*domain.RankedResult)

	entry := func(chunkID string) *domain.RankedResult {
		r, ok := merged[chunkID]
		if !ok {
			r = &domain.RankedResult{ChunkID: chunkID}
			merged[chunkID] = r
		}
		return r
	}

	for i, hit := range vectorHits {
		rank := i + 1
		r := entry(hit.ChunkID)
		r.VectorRank = rank
		r.Score += 1.0 / float64(c+rank)
	}
	for i, hit := range keywordHits {
		rank := i + 1
		r := entry(hit.ChunkID)
		r.KeywordRank = rank
		r.Score += 1.0 / float64(c+rank)
	}

	results := make([]domain.RankedResult, 0, len(merged))
	for _, r := range merged {
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		si := results[i].VectorRank + results[i].KeywordRank
		sj := results[j].VectorRank + results[j].KeywordRank
		if si != sj {
			return si < sj
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	return results
}

// hydrate resolves ranked chunk IDs into passages with text. Chunks
// deleted between ranking and hydration are skipped.
func (s *RetrievalService) hydrate(ctx context.Context, ranked []domain.RankedResult) ([]domain.Passage, error) {
	if s.docStore == nil {
		return nil, errors.New("document store unavailable")
	}

	passages := make([]domain.Passage, 0, len(ranked))
	for _, r := range ranked {
		chunk, err := s.docStore.GetChunk(ctx, r.ChunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Debug("Chunk %s vanished, skipping", r.ChunkID)
				continue
			}
			return nil, fmt.Errorf("get chunk %s: %w", r.ChunkID, err)
		}

		passages = append(passages, domain.Passage{
			ChunkID:     chunk.ID,
			DocumentID:  chunk.DocumentID,
			Text:        chunk.Content,
			Score:       r.Score,
			VectorRank:  r.VectorRank,
			KeywordRank: r.KeywordRank,
		})
	}

	return passages, nil
}
