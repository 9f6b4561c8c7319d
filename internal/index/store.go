package index

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"notebook-rag/internal/models"
)

// DefaultBatchSize caps how many chunks are embedded and upserted per
// batch during ingestion.
const DefaultBatchSize = 160

// BatchError reports which ingestion batch failed. Batches before it are
// already committed and stay committed.
type BatchError struct {
	Batch int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("ingestion batch %d failed: %v", e.Batch, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Store owns notebook index lifecycle and batched ingestion on top of a
// VectorIndex backend.
type Store struct {
	index     VectorIndex
	batchSize int
}

func NewStore(index VectorIndex, batchSize int) *Store {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Store{index: index, batchSize: batchSize}
}

// EnsureNotebook idempotently creates the notebook's index location.
func (s *Store) EnsureNotebook(ctx context.Context, notebookID string) error {
	return s.index.Ensure(ctx, notebookID)
}

func (s *Store) Exists(ctx context.Context, notebookID string) bool {
	return s.index.Exists(ctx, notebookID)
}

// Ingest appends chunks to the notebook's index in fixed-size batches,
// strictly in input order. Each batch is embedded and committed before the
// next begins; a failing batch aborts the rest and surfaces a BatchError
// while the committed batches remain (at-least-once semantics).
func (s *Store) Ingest(ctx context.Context, notebookID string, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	total := len(chunks)
	processed := 0
	for i := 0; i < total; i += s.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := i + s.batchSize
		if end > total {
			end = total
		}
		if err := s.index.Upsert(ctx, notebookID, chunks[i:end]); err != nil {
			return &BatchError{Batch: i / s.batchSize, Err: err}
		}
		processed = end
		log.Debug().Str("notebook", notebookID).Msgf("Processed %d/%d chunks", processed, total)
	}
	log.Info().Str("notebook", notebookID).Int("chunks", total).Msg("Ingestion complete")
	return nil
}
