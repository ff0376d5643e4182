package hnsw

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/retriva/internal/core/domain"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(Config{Dimensions: 3})
	if err != nil {
		t.Fatalf("creating index: %v", err)
	}
	return idx
}

func record(id string, v ...float32) domain.VectorRecord {
	return domain.VectorRecord{ChunkID: id, Embedding: v}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for missing dimensions")
	}

	if _, err := New(Config{Dimensions: 8, Metric: "euclid"}); !errors.Is(err, domain.ErrMetricMismatch) {
		t.Errorf("expected ErrMetricMismatch for unknown metric, got %v", err)
	}

	idx, err := New(Config{Dimensions: 8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Dimensions() != 8 {
		t.Errorf("Dimensions() = %d, want 8", idx.Dimensions())
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	idx := newTestIndex(t)

	err := idx.Upsert(context.Background(), record("c1", 1, 0))
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}

	var dimErr *domain.DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatal("expected a typed DimensionError")
	}
	if dimErr.Expected != 3 || dimErr.Actual != 2 {
		t.Errorf("unexpected dimensions in error: %+v", dimErr)
	}
}

func TestSearch_NearestFirst(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_ = idx.Upsert(ctx, record("x", 1, 0, 0))
	_ = idx.Upsert(ctx, record("y", 0, 1, 0))
	_ = idx.Upsert(ctx, record("z", 0, 0, 1))

	hits, err := idx.Search(ctx, []float32{0.9, 0.1, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].ChunkID != "x" {
		t.Errorf("expected x first, got %s", hits[0].ChunkID)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Similarity > hits[i-1].Similarity {
			t.Error("hits must be ordered by descending similarity")
		}
	}
}

func TestSearch_KLargerThanCorpus(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_ = idx.Upsert(ctx, record("a", 1, 0, 0))
	_ = idx.Upsert(ctx, record("b", 0, 1, 0))

	hits, err := idx.Search(ctx, []float32{1, 1, 0}, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("expected all 2 hits, got %d", len(hits))
	}
}

func TestUpsert_ReplacesByChunkID(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_ = idx.Upsert(ctx, record("c1", 1, 0, 0))
	_ = idx.Upsert(ctx, record("c1", 0, 1, 0))

	if idx.Count() != 1 {
		t.Fatalf("expected 1 live vector after upsert, got %d", idx.Count())
	}

	hits, _ := idx.Search(ctx, []float32{0, 1, 0}, 1)
	if len(hits) != 1 || hits[0].ChunkID != "c1" {
		t.Fatalf("expected c1, got %v", hits)
	}
	if hits[0].Similarity < 0.99 {
		t.Errorf("expected the replacement vector to match, similarity=%f", hits[0].Similarity)
	}
}

func TestDelete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_ = idx.Upsert(ctx, record("c1", 1, 0, 0))
	_ = idx.Upsert(ctx, record("c2", 0, 1, 0))

	if err := idx.Delete(ctx, "c1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hits, _ := idx.Search(ctx, []float32{1, 0, 0}, 5)
	for _, h := range hits {
		if h.ChunkID == "c1" {
			t.Error("deleted chunk surfaced in search results")
		}
	}
	if idx.Count() != 1 {
		t.Errorf("expected 1 live vector, got %d", idx.Count())
	}

	// Deleting an unknown id is not an error.
	if err := idx.Delete(ctx, "missing"); err != nil {
		t.Errorf("deleting unknown id: %v", err)
	}
}

func TestSearch_CosineSimilarityScale(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	// Same direction, different magnitude: cosine similarity must be 1.
	_ = idx.Upsert(ctx, record("c1", 2, 0, 0))

	hits, _ := idx.Search(ctx, []float32{5, 0, 0}, 1)
	if len(hits) != 1 {
		t.Fatal("expected one hit")
	}
	if hits[0].Similarity < 0.999 || hits[0].Similarity > 1.001 {
		t.Errorf("cosine similarity of parallel vectors = %f, want 1", hits[0].Similarity)
	}
}

func TestDotMetric(t *testing.T) {
	idx, err := New(Config{Dimensions: 2, Metric: MetricDot})
	if err != nil {
		t.Fatalf("creating index: %v", err)
	}
	ctx := context.Background()

	// Under dot product, magnitude matters.
	_ = idx.Upsert(ctx, domain.VectorRecord{ChunkID: "small", Embedding: []float32{1, 0}})
	_ = idx.Upsert(ctx, domain.VectorRecord{ChunkID: "large", Embedding: []float32{3, 0}})

	hits, _ := idx.Search(ctx, []float32{1, 0}, 2)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ChunkID != "large" {
		t.Errorf("expected the larger-magnitude vector first under dot metric, got %s", hits[0].ChunkID)
	}
}

func TestSearch_SmallM(t *testing.T) {
	// With M=2 the sampled node layer regularly exceeds M, so the graph
	// must size its connection lists off the layer, not M.
	idx, err := New(Config{Dimensions: 4, M: 2, EF: 8, EFSearch: 8})
	if err != nil {
		t.Fatalf("creating index: %v", err)
	}
	ctx := context.Background()

	for i := range 300 {
		v := []float32{float32(i%5) + 1, float32(i%7) + 1, float32(i%11) + 1, float32(i%13) + 1}
		if err := idx.Upsert(ctx, domain.VectorRecord{ChunkID: domain.ChunkID("doc", i), Embedding: v}); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	hits, err := idx.Search(ctx, []float32{1, 1, 1, 1}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 5 {
		t.Fatalf("expected 5 hits, got %d", len(hits))
	}
}

func TestSearch_ManyVectors(t *testing.T) {
	idx, err := New(Config{Dimensions: 4})
	if err != nil {
		t.Fatalf("creating index: %v", err)
	}
	ctx := context.Background()

	for i := range 200 {
		v := []float32{float32(i%7) + 1, float32(i%11) + 1, float32(i%13) + 1, float32(i%17) + 1}
		if err := idx.Upsert(ctx, domain.VectorRecord{ChunkID: domain.ChunkID("doc", i), Embedding: v}); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	hits, err := idx.Search(ctx, []float32{1, 1, 1, 1}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 10 {
		t.Fatalf("expected 10 hits, got %d", len(hits))
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Similarity > hits[i-1].Similarity+1e-6 {
			t.Error("hits must be ordered by descending similarity")
		}
	}
}
