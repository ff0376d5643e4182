// Package qdrant provides a vector index adapter backed by a Qdrant
// collection over its REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/retriva/internal/core/domain"
	"github.com/custodia-labs/retriva/internal/core/ports/driven"
	"github.com/custodia-labs/retriva/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:6333"
	DefaultTimeout = 30 * time.Second
)

// pointNamespace is the UUIDv5 namespace for deriving Qdrant point IDs
// from chunk IDs. Qdrant only accepts UUIDs or unsigned integers as
// point IDs, so the chunk ID itself travels in the payload. The
// derivation is deterministic, which is what makes upserts replace
// instead of duplicate.
var pointNamespace = uuid.MustParse("9f2c1e66-74a1-5e51-93fa-4f2b79f3a1d0")

// Config holds the Qdrant adapter configuration. Collection dimension
// and distance are a fixed contract verified eagerly at construction.
type Config struct {
	// BaseURL is the Qdrant HTTP endpoint (default http://localhost:6333).
	BaseURL string

	// APIKey is sent in the api-key header when set.
	APIKey string

	// Collection is the collection name, required.
	Collection string

	// Dimensions is the fixed embedding dimension, required.
	Dimensions int

	// Distance is the similarity metric, "Cosine" or "Dot"
	// (default Cosine).
	Distance string

	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration
}

// Index talks to one Qdrant collection.
type Index struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	collection string
	dims       int
	distance   string
}

type point struct {
	ID      string            `json:"id"`
	Vector  []float32         `json:"vector"`
	Payload map[string]string `json:"payload"`
}

type scoredPoint struct {
	ID      string            `json:"id"`
	Score   float64           `json:"score"`
	Payload map[string]string `json:"payload"`
}

// New creates the adapter and ensures the collection exists with the
// configured dimension and distance. An existing collection with a
// different dimension is a fatal configuration error, not something to
// silently tolerate.
func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant: collection name is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("qdrant: dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Distance == "" {
		cfg.Distance = "Cosine"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	idx := &Index{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dims:       cfg.Dimensions,
		distance:   cfg.Distance,
	}

	if err := idx.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

// ensureCollection creates the collection if missing and verifies
// {dimension, distance} if present.
func (idx *Index) ensureCollection(ctx context.Context) error {
	body, status, err := idx.do(ctx, http.MethodGet, "/collections/"+idx.collection, nil)
	if err != nil {
		return fmt.Errorf("qdrant: get collection: %w", err)
	}

	if status == http.StatusNotFound {
		logger.Info("Creating Qdrant collection %s (dim=%d, distance=%s)",
			idx.collection, idx.dims, idx.distance)
		reqBody := map[string]any{
			"vectors": map[string]any{
				"size":     idx.dims,
				"distance": idx.distance,
			},
		}
		if _, _, err := idx.do(ctx, http.MethodPut, "/collections/"+idx.collection, reqBody); err != nil {
			return fmt.Errorf("qdrant: create collection: %w", err)
		}
		return nil
	}

	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size     int    `json:"size"`
						Distance string `json:"distance"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return fmt.Errorf("qdrant: parse collection info: %w", err)
	}

	vectors := info.Result.Config.Params.Vectors
	if vectors.Size != idx.dims {
		return fmt.Errorf("qdrant: collection %s: %w",
			idx.collection, &domain.DimensionError{Expected: idx.dims, Actual: vectors.Size})
	}
	if !strings.EqualFold(vectors.Distance, idx.distance) {
		return fmt.Errorf("qdrant: collection %s configured for %s, want %s: %w",
			idx.collection, vectors.Distance, idx.distance, domain.ErrMetricMismatch)
	}
	return nil
}

// Upsert writes one point, replacing any previous point for the chunk.
func (idx *Index) Upsert(ctx context.Context, record domain.VectorRecord) error {
	if len(record.Embedding) != idx.dims {
		return fmt.Errorf("qdrant: upsert %s: %w", record.ChunkID,
			&domain.DimensionError{Expected: idx.dims, Actual: len(record.Embedding)})
	}

	reqBody := map[string]any{
		"points": []point{{
			ID:     pointID(record.ChunkID),
			Vector: record.Embedding,
			Payload: map[string]string{
				"chunk_id":    record.ChunkID,
				"document_id": record.DocumentID,
				"text":        record.Text,
			},
		}},
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", idx.collection)
	if _, _, err := idx.do(ctx, http.MethodPut, path, reqBody); err != nil {
		return fmt.Errorf("qdrant: upsert %s: %w", record.ChunkID, err)
	}
	return nil
}

// Delete removes the chunk's point. Unknown chunk IDs are a no-op on
// the Qdrant side.
func (idx *Index) Delete(ctx context.Context, chunkID string) error {
	reqBody := map[string]any{
		"points": []string{pointID(chunkID)},
	}

	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", idx.collection)
	if _, _, err := idx.do(ctx, http.MethodPost, path, reqBody); err != nil {
		return fmt.Errorf("qdrant: delete %s: %w", chunkID, err)
	}
	return nil
}

// Search returns up to k hits by descending similarity.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) != idx.dims {
		return nil, fmt.Errorf("qdrant: search: %w",
			&domain.DimensionError{Expected: idx.dims, Actual: len(query)})
	}
	if k <= 0 {
		return []driven.VectorHit{}, nil
	}

	reqBody := map[string]any{
		"vector":       query,
		"limit":        k,
		"with_payload": true,
	}

	path := fmt.Sprintf("/collections/%s/points/search", idx.collection)
	body, _, err := idx.do(ctx, http.MethodPost, path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("qdrant: search: %w", err)
	}

	var response struct {
		Result []scoredPoint `json:"result"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("qdrant: parse search response: %w", err)
	}

	hits := make([]driven.VectorHit, 0, len(response.Result))
	for _, p := range response.Result {
		chunkID := p.Payload["chunk_id"]
		if chunkID == "" {
			// Point written outside this adapter; nothing to hydrate.
			continue
		}
		hits = append(hits, driven.VectorHit{ChunkID: chunkID, Similarity: p.Score})
	}
	return hits, nil
}

// Count returns the number of points in the collection.
func (idx *Index) Count(ctx context.Context) (int, error) {
	path := fmt.Sprintf("/collections/%s/points/count", idx.collection)
	body, _, err := idx.do(ctx, http.MethodPost, path, map[string]any{"exact": true})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count: %w", err)
	}

	var response struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return 0, fmt.Errorf("qdrant: parse count response: %w", err)
	}
	return response.Result.Count, nil
}

// Dimensions returns the fixed collection dimension.
func (idx *Index) Dimensions() int {
	return idx.dims
}

// Ping verifies the Qdrant endpoint is reachable.
func (idx *Index) Ping(ctx context.Context) error {
	if _, _, err := idx.do(ctx, http.MethodGet, "/collections/"+idx.collection, nil); err != nil {
		return fmt.Errorf("qdrant: ping: %w", err)
	}
	return nil
}

// Close releases resources.
func (idx *Index) Close() error {
	idx.client.CloseIdleConnections()
	return nil
}

// do executes one REST call. A 404 is reported through the status, not
// as an error, so ensureCollection can branch on it; any other non-2xx
// status is an error carrying the response body.
func (idx *Index) do(ctx context.Context, method, path string, body any) ([]byte, int, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, idx.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idx.apiKey != "" {
		req.Header.Set("api-key", idx.apiKey)
	}

	resp, err := idx.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
		return nil, resp.StatusCode, fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, resp.StatusCode, nil
}

// pointID derives the deterministic Qdrant point UUID for a chunk.
func pointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}
