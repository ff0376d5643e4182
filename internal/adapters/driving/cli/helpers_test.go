package cli

import (
	"context"

	"github.com/custodia-labs/retriva/internal/adapters/driven/index/bm25"
	"github.com/custodia-labs/retriva/internal/adapters/driven/index/hnsw"
	"github.com/custodia-labs/retriva/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/retriva/internal/chunker"
	"github.com/custodia-labs/retriva/internal/core/domain"
	"github.com/custodia-labs/retriva/internal/core/services"
)

// stubEmbedder produces a deterministic embedding from the text so
// vector search behaves consistently across test runs.
type stubEmbedder struct{}

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	embedding := make([]float32, 4)
	for i, b := range []byte(text) {
		embedding[i%4] += float32(b) / 255
	}
	return embedding, nil
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		result[i] = embedding
	}
	return result, nil
}

func (e *stubEmbedder) Dimensions() int { return 4 }

func (e *stubEmbedder) ModelName() string { return "stub-embed" }

func (e *stubEmbedder) Ping(_ context.Context) error { return nil }

func (e *stubEmbedder) Close() error { return nil }

// setupTestServices wires real in-memory adapters behind the commands
// and returns a cleanup that unwires them.
func setupTestServices() func() {
	store := memory.NewDocumentStore()
	keywordIndex := bm25.New(bm25.Config{})
	vectorIndex, err := hnsw.New(hnsw.Config{Dimensions: 4})
	if err != nil {
		panic(err)
	}
	embedder := &stubEmbedder{}
	split := chunker.New(chunker.WithChunkSize(100), chunker.WithOverlap(10))

	ingest, err := services.NewIngestService(store, keywordIndex, vectorIndex, embedder, split)
	if err != nil {
		panic(err)
	}
	retrieval := services.NewRetrievalService(store, keywordIndex, vectorIndex, embedder, domain.DefaultFusionConfig())

	SetServices(Services{
		Retrieval:     retrieval,
		Ingest:        ingest,
		Documents:     store,
		Embedding:     embedder,
		VectorBackend: "hnsw",
	})

	return func() {
		SetServices(Services{})
	}
}

// seedDocument ingests one document through the wired services.
func seedDocument(id, content string) error {
	_, err := ingestService.Ingest(context.Background(), &domain.Document{
		ID:      id,
		Title:   "Document " + id,
		Content: content,
	})
	return err
}
