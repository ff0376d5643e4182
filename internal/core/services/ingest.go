package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/retriva/internal/core/domain"
	"github.com/custodia-labs/retriva/internal/core/ports/driven"
	"github.com/custodia-labs/retriva/internal/core/ports/driving"
	"github.com/custodia-labs/retriva/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// Default worker pool sizes.
const (
	DefaultChunkWorkers    = 4
	DefaultDocumentWorkers = 2
)

// Splitter cuts document text into ordered chunks with deterministic
// IDs. Satisfied by the chunker package.
type Splitter interface {
	Split(documentID, text string) []domain.Chunk
}

// IngestService runs the chunk, embed and dual-index pipeline.
type IngestService struct {
	docStore         driven.DocumentStore
	keywordIndex     driven.KeywordIndex
	vectorIndex      driven.VectorIndex
	embeddingService driven.EmbeddingService
	resultCache      driven.ResultCache
	splitter         Splitter

	chunkWorkers    int
	documentWorkers int
}

// NewIngestService creates a new ingest service. It fails eagerly when
// the embedding model's dimensionality does not match the vector index.
func NewIngestService(
	docStore driven.DocumentStore,
	keywordIndex driven.KeywordIndex,
	vectorIndex driven.VectorIndex,
	embeddingService driven.EmbeddingService,
	splitter Splitter,
) (*IngestService, error) {
	if splitter == nil {
		return nil, fmt.Errorf("%w: splitter is required", domain.ErrInvalidInput)
	}
	if embeddingService != nil && vectorIndex != nil {
		if got, want := embeddingService.Dimensions(), vectorIndex.Dimensions(); got != want {
			return nil, fmt.Errorf("embedder/index mismatch: %w",
				&domain.DimensionError{Expected: want, Actual: got})
		}
	}

	return &IngestService{
		docStore:         docStore,
		keywordIndex:     keywordIndex,
		vectorIndex:      vectorIndex,
		embeddingService: embeddingService,
		splitter:         splitter,
		chunkWorkers:     DefaultChunkWorkers,
		documentWorkers:  DefaultDocumentWorkers,
	}, nil
}

// SetResultCache sets the optional result cache purged after mutations.
func (s *IngestService) SetResultCache(cache driven.ResultCache) {
	s.resultCache = cache
}

// SetWorkers overrides the chunk and document worker pool sizes.
// Non-positive values keep the current setting.
func (s *IngestService) SetWorkers(chunkWorkers, documentWorkers int) {
	if chunkWorkers > 0 {
		s.chunkWorkers = chunkWorkers
	}
	if documentWorkers > 0 {
		s.documentWorkers = documentWorkers
	}
}

// Ingest chunks, embeds and indexes one document. Each chunk ends up in
// both indexes or in neither.
func (s *IngestService) Ingest(ctx context.Context, doc *domain.Document) (*domain.IngestReport, error) {
	if doc == nil || doc.ID == "" {
		return nil, fmt.Errorf("%w: document ID is required", domain.ErrInvalidInput)
	}
	if s.docStore == nil {
		return nil, errors.New("document store unavailable")
	}
	if s.embeddingService == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.vectorIndex == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if s.keywordIndex == nil {
		return nil, domain.ErrKeywordIndexUnavailable
	}

	logger.Section("Ingest")
	logger.Debug("Document: %s (%d chars)", doc.ID, len(doc.Content))

	chunks := s.splitter.Split(doc.ID, doc.Content)
	logger.Debug("Split into %d chunks", len(chunks))

	// Re-ingesting shorter content leaves stale trailing ordinals from
	// the prior version. Hard-replace: remove them from both indexes
	// and the store before the new set goes in.
	if err := s.removeStaleChunks(ctx, doc.ID, len(chunks)); err != nil {
		return nil, fmt.Errorf("remove stale chunks: %w", err)
	}

	report := &domain.IngestReport{DocumentID: doc.ID}

	var mu sync.Mutex
	indexed := make([]domain.Chunk, 0, len(chunks))
	var wiped []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.chunkWorkers)

	for i := range chunks {
		chunk := chunks[i]
		g.Go(func() error {
			embedding, err := s.embedChunk(gctx, chunk)
			if err != nil {
				mu.Lock()
				report.Failures = append(report.Failures, domain.ChunkFailure{
					ChunkID: chunk.ID,
					Index:   domain.StageEmbedding,
					Err:     err,
				})
				mu.Unlock()
				return nil
			}
			chunk.Embedding = embedding

			failures := s.indexChunk(gctx, doc.ID, chunk)
			mu.Lock()
			if len(failures) == 0 {
				indexed = append(indexed, chunk)
			} else {
				report.Failures = append(report.Failures, failures...)
				wiped = append(wiped, chunk.ID)
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ingest %s: %w", doc.ID, err)
	}

	// Workers finish out of order; the store expects ordinal order.
	sort.Slice(indexed, func(i, j int) bool {
		return indexed[i].Ordinal < indexed[j].Ordinal
	})
	for _, c := range indexed {
		report.ChunkIDs = append(report.ChunkIDs, c.ID)
	}

	// Chunks wiped from the indexes must not be hydratable either, or a
	// re-ingest failure would keep serving the previous version's text.
	if len(wiped) > 0 {
		if err := s.docStore.DeleteChunks(ctx, wiped); err != nil {
			return nil, fmt.Errorf("drop failed chunks for %s: %w", doc.ID, err)
		}
	}

	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	if err := s.docStore.SaveChunks(ctx, indexed); err != nil {
		return nil, fmt.Errorf("save chunks for %s: %w", doc.ID, err)
	}

	s.purgeCache(ctx)

	if report.Failed() {
		logger.Warn("Ingested %s: %d chunks indexed, %d failed",
			doc.ID, len(report.ChunkIDs), len(report.Failures))
	} else {
		logger.Info("Ingested %s: %d chunks", doc.ID, len(report.ChunkIDs))
	}
	return report, nil
}

// IngestAll ingests documents in parallel with a bounded worker pool.
func (s *IngestService) IngestAll(ctx context.Context, docs []*domain.Document) ([]*domain.IngestReport, error) {
	reports := make([]*domain.IngestReport, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.documentWorkers)

	for i := range docs {
		g.Go(func() error {
			report, err := s.Ingest(gctx, docs[i])
			if err != nil {
				return fmt.Errorf("ingest %s: %w", docs[i].ID, err)
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// Remove deletes the document and every derived chunk from both
// indexes and the store.
func (s *IngestService) Remove(ctx context.Context, documentID string) error {
	if documentID == "" {
		return fmt.Errorf("%w: document ID is required", domain.ErrInvalidInput)
	}
	if s.docStore == nil {
		return errors.New("document store unavailable")
	}

	logger.Section("Remove")
	logger.Debug("Document: %s", documentID)

	chunks, err := s.docStore.GetChunks(ctx, documentID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("get chunks for %s: %w", documentID, err)
	}

	var errs []error
	for _, chunk := range chunks {
		if e := s.deleteFromIndexes(ctx, chunk.ID); e != nil {
			errs = append(errs, e)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("remove %s: %w", documentID, errors.Join(errs...))
	}

	if err := s.docStore.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document %s: %w", documentID, err)
	}

	s.purgeCache(ctx)
	logger.Info("Removed %s (%d chunks)", documentID, len(chunks))
	return nil
}

// embedChunk generates the chunk embedding and checks its
// dimensionality against the vector index.
func (s *IngestService) embedChunk(ctx context.Context, chunk domain.Chunk) ([]float32, error) {
	embedding, err := s.embeddingService.Embed(ctx, chunk.Content)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if want := s.vectorIndex.Dimensions(); len(embedding) != want {
		return nil, &domain.DimensionError{Expected: want, Actual: len(embedding)}
	}
	return embedding, nil
}

// indexChunk writes the chunk into both indexes concurrently. If
// either write fails the chunk is removed from both indexes, old
// version included, so no index holds what the other lacks.
func (s *IngestService) indexChunk(ctx context.Context, documentID string, chunk domain.Chunk) []domain.ChunkFailure {
	var vectorErr, keywordErr error

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		vectorErr = s.vectorIndex.Upsert(ctx, domain.VectorRecord{
			ChunkID:    chunk.ID,
			DocumentID: documentID,
			Text:       chunk.Content,
			Embedding:  chunk.Embedding,
		})
	}()

	go func() {
		defer wg.Done()
		keywordErr = s.keywordIndex.Upsert(ctx, chunk.ID, chunk.Content)
	}()

	wg.Wait()

	if vectorErr == nil && keywordErr == nil {
		return nil
	}

	// A failed upsert leaves the prior version of the chunk intact in
	// that index, so rolling back only the surviving write would leave
	// the two indexes disagreeing. Wipe the chunk from both; delete is
	// idempotent on every backend.
	if err := s.deleteFromIndexes(ctx, chunk.ID); err != nil {
		logger.Warn("Compensation failed for %s: %v", chunk.ID, err)
	}

	var failures []domain.ChunkFailure
	if vectorErr != nil {
		logger.Warn("Chunk %s failed in vector index: %v", chunk.ID, vectorErr)
		failures = append(failures, domain.ChunkFailure{
			ChunkID: chunk.ID,
			Index:   domain.IndexVector,
			Err:     vectorErr,
		})
	}
	if keywordErr != nil {
		logger.Warn("Chunk %s failed in keyword index: %v", chunk.ID, keywordErr)
		failures = append(failures, domain.ChunkFailure{
			ChunkID: chunk.ID,
			Index:   domain.IndexKeyword,
			Err:     keywordErr,
		})
	}
	return failures
}

// removeStaleChunks deletes prior-version chunks whose ordinals are
// beyond the new chunk count.
func (s *IngestService) removeStaleChunks(ctx context.Context, documentID string, newCount int) error {
	prior, err := s.docStore.GetChunks(ctx, documentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	var staleIDs []string
	for _, chunk := range prior {
		if chunk.Ordinal >= newCount {
			staleIDs = append(staleIDs, chunk.ID)
		}
	}
	if len(staleIDs) == 0 {
		return nil
	}

	logger.Debug("Hard-replace: removing %d stale chunks from %s", len(staleIDs), documentID)

	var errs []error
	for _, id := range staleIDs {
		if e := s.deleteFromIndexes(ctx, id); e != nil {
			errs = append(errs, e)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return s.docStore.DeleteChunks(ctx, staleIDs)
}

// deleteFromIndexes removes one chunk from both indexes.
func (s *IngestService) deleteFromIndexes(ctx context.Context, chunkID string) error {
	var errs []error
	if s.vectorIndex != nil {
		if err := s.vectorIndex.Delete(ctx, chunkID); err != nil {
			errs = append(errs, fmt.Errorf("vector delete %s: %w", chunkID, err))
		}
	}
	if s.keywordIndex != nil {
		if err := s.keywordIndex.Delete(ctx, chunkID); err != nil {
			errs = append(errs, fmt.Errorf("keyword delete %s: %w", chunkID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *IngestService) purgeCache(ctx context.Context) {
	if s.resultCache == nil {
		return
	}
	if err := s.resultCache.Purge(ctx); err != nil {
		logger.Warn("Result cache purge failed: %v", err)
	}
}
