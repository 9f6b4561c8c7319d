package index

import (
	"context"
	"errors"

	"notebook-rag/internal/models"
)

// ErrNotFound is returned by Search when a notebook has no index yet.
// Callers recover it locally as an empty retrieval result.
var ErrNotFound = errors.New("no index found for notebook")

// RawMatch is a search hit with the engine's native similarity score.
// Both backends report cosine similarity in [-1, 1].
type RawMatch struct {
	Chunk models.Chunk
	Score float64
}

// Embedder turns text into a vector. Satisfied by langchaingo's
// embeddings.EmbedderImpl.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the per-notebook vector index capability. A notebook's
// index is created on first upsert or an explicit Ensure; it is never
// deleted through this interface.
type VectorIndex interface {
	// Ensure idempotently creates the durable index location.
	Ensure(ctx context.Context, notebookID string) error
	// Exists reports whether the notebook has an index.
	Exists(ctx context.Context, notebookID string) bool
	// Upsert embeds the chunks and appends them to the notebook's index,
	// creating it if needed.
	Upsert(ctx context.Context, notebookID string, chunks []models.Chunk) error
	// Search returns up to k matches ordered by descending raw score.
	Search(ctx context.Context, notebookID, query string, k int) ([]RawMatch, error)
}
