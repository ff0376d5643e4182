package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/retriva/internal/core/domain"
)

func TestDocumentStore_SaveGet(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	doc := &domain.Document{ID: "doc-1", Title: "Title", Content: "text"}
	require.NoError(t, store.SaveDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Title", got.Title)

	_, err = store.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_Chunks(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	chunks := []domain.Chunk{
		{ID: domain.ChunkID("doc-1", 1), DocumentID: "doc-1", Content: "b", Ordinal: 1},
		{ID: domain.ChunkID("doc-1", 0), DocumentID: "doc-1", Content: "a", Ordinal: 0},
		{ID: domain.ChunkID("doc-2", 0), DocumentID: "doc-2", Content: "c", Ordinal: 0},
	}
	require.NoError(t, store.SaveChunks(ctx, chunks))

	got, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Ordinal, "chunks must come back in ordinal order")

	chunk, err := store.GetChunk(ctx, domain.ChunkID("doc-2", 0))
	require.NoError(t, err)
	assert.Equal(t, "c", chunk.Content)

	_, err = store.GetChunk(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_SaveChunks_Upsert(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	id := domain.ChunkID("doc-1", 0)
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{{ID: id, DocumentID: "doc-1", Content: "old"}}))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{{ID: id, DocumentID: "doc-1", Content: "new"}}))

	chunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "new", chunks[0].Content)
}

func TestDocumentStore_DeleteChunks(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: domain.ChunkID("doc-1", 0), DocumentID: "doc-1", Ordinal: 0},
		{ID: domain.ChunkID("doc-1", 1), DocumentID: "doc-1", Ordinal: 1},
	}))

	require.NoError(t, store.DeleteChunks(ctx, []string{domain.ChunkID("doc-1", 1)}))

	chunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestDocumentStore_DeleteDocument(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "doc-1"}))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: domain.ChunkID("doc-1", 0), DocumentID: "doc-1"},
	}))

	require.NoError(t, store.DeleteDocument(ctx, "doc-1"))

	_, err := store.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	chunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestDocumentStore_ListDocuments(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "b"}))
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "a"}))

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)
}
