package index

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"notebook-rag/internal/models"
)

type chunkRecord struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`
	ID            int64             `bun:"id,pk,autoincrement"`
	NotebookID    string            `bun:"notebook_id,notnull"`
	Content       string            `bun:"content,notnull"`
	Metadata      map[string]string `bun:"metadata,type:jsonb"`
	Embedding     []float32         `bun:"embedding,notnull,type:vector(768)"`
	RawScore      float64           `bun:"raw_score,scanonly"`
}

type notebookRecord struct {
	bun.BaseModel `bun:"table:notebooks,alias:n"`
	ID            string `bun:"id,pk"`
}

// PgVectorIndex stores all notebooks in one Postgres database with a
// pgvector column, keyed by notebook id. Alternative to the default
// embedded chromem backend for deployments that already run Postgres.
type PgVectorIndex struct {
	db       *bun.DB
	embedder Embedder
}

// ConnectPostgres opens the database. With a password the bun pgdriver is
// used; otherwise the DSN goes through lib/pq directly.
func ConnectPostgres(dsn, password string) (*sql.DB, error) {
	if password == "" {
		return sql.Open("postgres", dsn)
	}
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(password))), nil
}

func NewPgVectorIndex(sqldb *sql.DB, embedder Embedder, debug bool) *PgVectorIndex {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &PgVectorIndex{db: db, embedder: embedder}
}

// Init creates the backing tables if they do not exist.
func (x *PgVectorIndex) Init(ctx context.Context) error {
	if _, err := x.db.NewCreateTable().Model((*notebookRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	_, err := x.db.NewCreateTable().Model((*chunkRecord)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (x *PgVectorIndex) Ensure(ctx context.Context, notebookID string) error {
	_, err := x.db.NewInsert().
		Model(&notebookRecord{ID: notebookID}).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	return err
}

func (x *PgVectorIndex) Exists(ctx context.Context, notebookID string) bool {
	exists, err := x.db.NewSelect().
		Model((*notebookRecord)(nil)).
		Where("n.id = ?", notebookID).
		Exists(ctx)
	return err == nil && exists
}

func (x *PgVectorIndex) Upsert(ctx context.Context, notebookID string, chunks []models.Chunk) error {
	if err := x.Ensure(ctx, notebookID); err != nil {
		return err
	}

	recs := make([]chunkRecord, 0, len(chunks))
	for _, chunk := range chunks {
		embedding, err := x.embedder.EmbedQuery(ctx, chunk.Content)
		if err != nil {
			return fmt.Errorf("failed to embed chunk: %w", err)
		}
		recs = append(recs, chunkRecord{
			NotebookID: notebookID,
			Content:    chunk.Content,
			Metadata:   chunk.Metadata,
			Embedding:  embedding,
		})
	}

	_, err := x.db.NewInsert().Model(&recs).Exec(ctx)
	return err
}

func (x *PgVectorIndex) Search(ctx context.Context, notebookID, query string, k int) ([]RawMatch, error) {
	if !x.Exists(ctx, notebookID) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, notebookID)
	}

	queryEmbedding, err := x.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var recs []chunkRecord
	// pgvector's <=> operator is cosine distance in [0,2]; 1-distance maps
	// it back onto cosine similarity in [-1,1], the range the retriever's
	// normalization assumes.
	err = x.db.NewSelect().
		Model(&recs).
		ColumnExpr("c.*").
		ColumnExpr("1 - (c.embedding <=> ?) AS raw_score", queryEmbedding).
		Where("c.notebook_id = ?", notebookID).
		OrderExpr("c.embedding <=> ?", queryEmbedding).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]RawMatch, 0, len(recs))
	for _, rec := range recs {
		matches = append(matches, RawMatch{
			Chunk: models.Chunk{Content: rec.Content, Metadata: rec.Metadata},
			Score: rec.RawScore,
		})
	}
	return matches, nil
}
