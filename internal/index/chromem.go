package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"notebook-rag/internal/helper"
	"notebook-rag/internal/models"
)

const (
	collectionName = "chunks"
	compress       = false
)

// ChromemIndex keeps one persistent chromem-go database per notebook,
// rooted at <baseDir>/<notebookID>/chroma. Writers are serialized per
// notebook; readers run concurrently.
type ChromemIndex struct {
	baseDir  string
	embedder Embedder

	mu    sync.Mutex
	dbs   map[string]*chromem.DB
	locks map[string]*sync.RWMutex
}

func NewChromemIndex(baseDir string, embedder Embedder) *ChromemIndex {
	return &ChromemIndex{
		baseDir:  baseDir,
		embedder: embedder,
		dbs:      map[string]*chromem.DB{},
		locks:    map[string]*sync.RWMutex{},
	}
}

func (x *ChromemIndex) path(notebookID string) string {
	return filepath.Join(x.baseDir, notebookID, "chroma")
}

func (x *ChromemIndex) lock(notebookID string) *sync.RWMutex {
	x.mu.Lock()
	defer x.mu.Unlock()
	l, ok := x.locks[notebookID]
	if !ok {
		l = &sync.RWMutex{}
		x.locks[notebookID] = l
	}
	return l
}

func (x *ChromemIndex) Ensure(ctx context.Context, notebookID string) error {
	if err := helper.CreateFolder(x.path(notebookID)); err != nil {
		return fmt.Errorf("failed to create notebook folder: %w", err)
	}
	return nil
}

func (x *ChromemIndex) Exists(ctx context.Context, notebookID string) bool {
	info, err := os.Stat(x.path(notebookID))
	return err == nil && info.IsDir()
}

// open returns the cached database for the notebook, loading or creating
// the persistent store on first use. Callers hold the notebook lock.
func (x *ChromemIndex) open(notebookID string) (*chromem.Collection, error) {
	x.mu.Lock()
	db, ok := x.dbs[notebookID]
	x.mu.Unlock()

	if !ok {
		var err error
		db, err = chromem.NewPersistentDB(x.path(notebookID), compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		x.mu.Lock()
		x.dbs[notebookID] = db
		x.mu.Unlock()
	}

	c, err := db.GetOrCreateCollection(collectionName, nil, x.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	return c, nil
}

func (x *ChromemIndex) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return x.embedder.EmbedQuery(ctx, text)
	}
}

func (x *ChromemIndex) Upsert(ctx context.Context, notebookID string, chunks []models.Chunk) error {
	l := x.lock(notebookID)
	l.Lock()
	defer l.Unlock()

	if err := x.Ensure(ctx, notebookID); err != nil {
		return err
	}
	col, err := x.open(notebookID)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		id, err := helper.GenerateUUID()
		if err != nil {
			return err
		}
		embedding, err := x.embedder.EmbedQuery(ctx, chunk.Content)
		if err != nil {
			return fmt.Errorf("failed to embed chunk: %w", err)
		}
		docs = append(docs, chromem.Document{
			ID:        id,
			Content:   chunk.Content,
			Metadata:  chunk.Metadata,
			Embedding: embedding,
		})
	}

	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

func (x *ChromemIndex) Search(ctx context.Context, notebookID, query string, k int) ([]RawMatch, error) {
	if !x.Exists(ctx, notebookID) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, notebookID)
	}

	l := x.lock(notebookID)
	l.RLock()
	defer l.RUnlock()

	col, err := x.open(notebookID)
	if err != nil {
		return nil, err
	}

	if n := col.Count(); n < k {
		k = n
	}
	if k <= 0 {
		return nil, nil
	}

	queryEmbedding, err := x.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := col.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryEmbedding,
		NResults:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	matches := make([]RawMatch, 0, len(results))
	for _, res := range results {
		matches = append(matches, RawMatch{
			Chunk: models.Chunk{Content: res.Content, Metadata: res.Metadata},
			Score: float64(res.Similarity),
		})
	}
	log.Debug().Str("notebook", notebookID).Int("matches", len(matches)).Msg("Index search complete")
	return matches, nil
}
