package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/retriva/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/retriva/internal/chunker"
	"github.com/custodia-labs/retriva/internal/core/domain"
)

// --- Test helpers ---

func newTestIngestService(t *testing.T) (*IngestService, *memory.DocumentStore, *mockVectorIndex, *mockKeywordIndex) {
	t.Helper()
	store := memory.NewDocumentStore()
	vectorIndex := newMockVectorIndex(4)
	keywordIndex := newMockKeywordIndex()
	embedder := &mockEmbeddingService{dims: 4}

	service, err := NewIngestService(store, keywordIndex, vectorIndex, embedder, chunker.New())
	require.NoError(t, err)

	return service, store, vectorIndex, keywordIndex
}

func testDocument(id, content string) *domain.Document {
	return &domain.Document{
		ID:      id,
		Title:   "Document " + id,
		URI:     "file://" + id,
		Content: content,
	}
}

// --- Tests ---

func TestNewIngestService_DimensionMismatch(t *testing.T) {
	store := memory.NewDocumentStore()
	vectorIndex := newMockVectorIndex(768)
	embedder := &mockEmbeddingService{dims: 384}

	service, err := NewIngestService(store, newMockKeywordIndex(), vectorIndex, embedder, chunker.New())

	require.Error(t, err)
	assert.Nil(t, service)

	var dimErr *domain.DimensionError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 768, dimErr.Expected)
	assert.Equal(t, 384, dimErr.Actual)
}

func TestNewIngestService_RequiresSplitter(t *testing.T) {
	_, err := NewIngestService(memory.NewDocumentStore(), newMockKeywordIndex(), newMockVectorIndex(4), &mockEmbeddingService{dims: 4}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestService_Ingest_SingleChunk(t *testing.T) {
	service, store, vectorIndex, keywordIndex := newTestIngestService(t)
	ctx := context.Background()

	report, err := service.Ingest(ctx, testDocument("doc-1", "A short document."))

	require.NoError(t, err)
	assert.False(t, report.Failed())
	require.Equal(t, []string{domain.ChunkID("doc-1", 0)}, report.ChunkIDs)

	chunkID := report.ChunkIDs[0]
	assert.True(t, vectorIndex.has(chunkID))
	assert.True(t, keywordIndex.has(chunkID))

	chunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "A short document.", chunks[0].Content)
	assert.Len(t, chunks[0].Embedding, 4)

	doc, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Document doc-1", doc.Title)
}

func TestIngestService_Ingest_MultipleChunks(t *testing.T) {
	store := memory.NewDocumentStore()
	vectorIndex := newMockVectorIndex(4)
	keywordIndex := newMockKeywordIndex()
	embedder := &mockEmbeddingService{dims: 4}
	split := chunker.New(chunker.WithChunkSize(50), chunker.WithOverlap(10))

	service, err := NewIngestService(store, keywordIndex, vectorIndex, embedder, split)
	require.NoError(t, err)
	ctx := context.Background()

	content := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 10)
	report, err := service.Ingest(ctx, testDocument("doc-1", content))

	require.NoError(t, err)
	assert.False(t, report.Failed())
	require.Greater(t, len(report.ChunkIDs), 1)

	// Chunk IDs are deterministic and ordinal-ordered.
	for i, id := range report.ChunkIDs {
		assert.Equal(t, domain.ChunkID("doc-1", i), id)
		assert.True(t, vectorIndex.has(id))
		assert.True(t, keywordIndex.has(id))
	}

	chunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, chunks, len(report.ChunkIDs))
}

func TestIngestService_Ingest_Reingest_Idempotent(t *testing.T) {
	service, store, vectorIndex, keywordIndex := newTestIngestService(t)
	ctx := context.Background()

	doc := testDocument("doc-1", "Stable content.")
	first, err := service.Ingest(ctx, doc)
	require.NoError(t, err)

	second, err := service.Ingest(ctx, doc)
	require.NoError(t, err)

	assert.Equal(t, first.ChunkIDs, second.ChunkIDs)
	chunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
	assert.True(t, vectorIndex.has(first.ChunkIDs[0]))
	assert.True(t, keywordIndex.has(first.ChunkIDs[0]))
}

func TestIngestService_Ingest_HardReplaceShrinks(t *testing.T) {
	store := memory.NewDocumentStore()
	vectorIndex := newMockVectorIndex(4)
	keywordIndex := newMockKeywordIndex()
	embedder := &mockEmbeddingService{dims: 4}
	split := chunker.New(chunker.WithChunkSize(40), chunker.WithOverlap(5))

	service, err := NewIngestService(store, keywordIndex, vectorIndex, embedder, split)
	require.NoError(t, err)
	ctx := context.Background()

	long := strings.Repeat("One sentence here. Another sentence there. ", 8)
	first, err := service.Ingest(ctx, testDocument("doc-1", long))
	require.NoError(t, err)
	require.Greater(t, len(first.ChunkIDs), 1)

	second, err := service.Ingest(ctx, testDocument("doc-1", "Tiny now."))
	require.NoError(t, err)
	require.Len(t, second.ChunkIDs, 1)

	// Every stale trailing ordinal is gone from both indexes and the
	// store.
	for _, id := range first.ChunkIDs[1:] {
		assert.False(t, vectorIndex.has(id), "stale chunk %s still in vector index", id)
		assert.False(t, keywordIndex.has(id), "stale chunk %s still in keyword index", id)
	}
	chunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
	assert.Equal(t, "Tiny now.", chunks[0].Content)
}

func TestIngestService_Ingest_EmbeddingFailureFailsOnlyThatChunk(t *testing.T) {
	store := memory.NewDocumentStore()
	vectorIndex := newMockVectorIndex(4)
	keywordIndex := newMockKeywordIndex()
	embedder := &mockEmbeddingService{
		dims: 4,
		embedFn: func(text string) ([]float32, error) {
			if strings.Contains(text, "poison") {
				return nil, errors.New("model refused")
			}
			return make([]float32, 4), nil
		},
	}
	split := chunker.New(chunker.WithChunkSize(30), chunker.WithOverlap(0), chunker.WithBoundaryWindow(5))

	service, err := NewIngestService(store, keywordIndex, vectorIndex, embedder, split)
	require.NoError(t, err)
	ctx := context.Background()

	content := "aaaa aaaa aaaa aaaa aaaa aaaa poison poison poison poison bbbb bbbb bbbb bbbb bbbb bbbb"
	report, err := service.Ingest(ctx, testDocument("doc-1", content))

	require.NoError(t, err)
	require.True(t, report.Failed())
	require.NotEmpty(t, report.ChunkIDs)

	for _, failure := range report.Failures {
		assert.Equal(t, domain.StageEmbedding, failure.Index)
		assert.False(t, vectorIndex.has(failure.ChunkID))
		assert.False(t, keywordIndex.has(failure.ChunkID))
	}

	// Failed chunks are not persisted either.
	chunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, chunks, len(report.ChunkIDs))
}

func TestIngestService_Ingest_VectorFailureCompensatesKeyword(t *testing.T) {
	service, store, vectorIndex, keywordIndex := newTestIngestService(t)
	ctx := context.Background()

	chunkID := domain.ChunkID("doc-1", 0)
	vectorIndex.failChunks = map[string]error{chunkID: errors.New("qdrant down")}

	report, err := service.Ingest(ctx, testDocument("doc-1", "Some content."))

	require.NoError(t, err)
	require.True(t, report.Failed())
	require.Len(t, report.Failures, 1)
	assert.Equal(t, chunkID, report.Failures[0].ChunkID)
	assert.Equal(t, domain.IndexVector, report.Failures[0].Index)

	// The chunk is in neither index and not in the store.
	assert.False(t, vectorIndex.has(chunkID))
	assert.False(t, keywordIndex.has(chunkID))
	chunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestIngestService_Ingest_KeywordFailureCompensatesVector(t *testing.T) {
	service, _, vectorIndex, keywordIndex := newTestIngestService(t)
	ctx := context.Background()

	chunkID := domain.ChunkID("doc-1", 0)
	keywordIndex.failChunks = map[string]error{chunkID: errors.New("index corrupt")}

	report, err := service.Ingest(ctx, testDocument("doc-1", "Some content."))

	require.NoError(t, err)
	require.True(t, report.Failed())
	require.Len(t, report.Failures, 1)
	assert.Equal(t, domain.IndexKeyword, report.Failures[0].Index)

	assert.False(t, vectorIndex.has(chunkID))
	assert.False(t, keywordIndex.has(chunkID))
}

func TestIngestService_Ingest_ReingestFailureWipesPriorVersion(t *testing.T) {
	service, store, vectorIndex, keywordIndex := newTestIngestService(t)
	ctx := context.Background()

	chunkID := domain.ChunkID("doc-1", 0)
	_, err := service.Ingest(ctx, testDocument("doc-1", "Version one text."))
	require.NoError(t, err)
	require.True(t, vectorIndex.has(chunkID))
	require.True(t, keywordIndex.has(chunkID))

	// A failed upsert leaves the version-one record in place, as the
	// real backends do.
	vectorIndex.failChunks = map[string]error{chunkID: errors.New("qdrant down")}

	report, err := service.Ingest(ctx, testDocument("doc-1", "Version two text."))

	require.NoError(t, err)
	require.True(t, report.Failed())
	require.Len(t, report.Failures, 1)
	assert.Equal(t, domain.IndexVector, report.Failures[0].Index)

	// Neither index may keep serving version one, and the store must
	// not hydrate its text.
	assert.False(t, vectorIndex.has(chunkID))
	assert.False(t, keywordIndex.has(chunkID))
	_, err = store.GetChunk(ctx, chunkID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngestService_Ingest_WrongEmbeddingWidth(t *testing.T) {
	store := memory.NewDocumentStore()
	vectorIndex := newMockVectorIndex(4)
	embedder := &mockEmbeddingService{
		dims: 4,
		embedFn: func(string) ([]float32, error) {
			return make([]float32, 7), nil
		},
	}

	service, err := NewIngestService(store, newMockKeywordIndex(), vectorIndex, embedder, chunker.New())
	require.NoError(t, err)

	report, err := service.Ingest(context.Background(), testDocument("doc-1", "Content."))

	require.NoError(t, err)
	require.True(t, report.Failed())

	var dimErr *domain.DimensionError
	require.ErrorAs(t, report.Failures[0].Err, &dimErr)
	assert.Equal(t, 4, dimErr.Expected)
	assert.Equal(t, 7, dimErr.Actual)
}

func TestIngestService_Ingest_InvalidInput(t *testing.T) {
	service, _, _, _ := newTestIngestService(t)
	ctx := context.Background()

	_, err := service.Ingest(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = service.Ingest(ctx, testDocument("", "content"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestService_Ingest_PurgesCache(t *testing.T) {
	service, _, _, _ := newTestIngestService(t)
	cache := newMockResultCache()
	service.SetResultCache(cache)

	_, err := service.Ingest(context.Background(), testDocument("doc-1", "Content."))

	require.NoError(t, err)
	assert.Equal(t, 1, cache.purgeCount())
}

func TestIngestService_IngestAll(t *testing.T) {
	service, store, vectorIndex, keywordIndex := newTestIngestService(t)
	ctx := context.Background()

	docs := make([]*domain.Document, 5)
	for i := range docs {
		docs[i] = testDocument(fmt.Sprintf("doc-%d", i), fmt.Sprintf("Content of document %d.", i))
	}

	reports, err := service.IngestAll(ctx, docs)

	require.NoError(t, err)
	require.Len(t, reports, 5)
	for i, report := range reports {
		require.NotNil(t, report)
		assert.Equal(t, docs[i].ID, report.DocumentID)
		require.Len(t, report.ChunkIDs, 1)
		assert.True(t, vectorIndex.has(report.ChunkIDs[0]))
		assert.True(t, keywordIndex.has(report.ChunkIDs[0]))
	}

	listed, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 5)
}

func TestIngestService_Remove(t *testing.T) {
	service, store, vectorIndex, keywordIndex := newTestIngestService(t)
	cache := newMockResultCache()
	service.SetResultCache(cache)
	ctx := context.Background()

	report, err := service.Ingest(ctx, testDocument("doc-1", "Removable content."))
	require.NoError(t, err)
	chunkID := report.ChunkIDs[0]

	require.NoError(t, service.Remove(ctx, "doc-1"))

	assert.False(t, vectorIndex.has(chunkID))
	assert.False(t, keywordIndex.has(chunkID))

	_, err = store.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	chunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	// One purge for the ingest, one for the remove.
	assert.Equal(t, 2, cache.purgeCount())
}

func TestIngestService_Remove_EmptyID(t *testing.T) {
	service, _, _, _ := newTestIngestService(t)

	err := service.Remove(context.Background(), "")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
