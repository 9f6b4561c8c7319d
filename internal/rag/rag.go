package rag

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"notebook-rag/internal/config"
	"notebook-rag/internal/generator"
	"notebook-rag/internal/index"
	"notebook-rag/internal/parser"
	"notebook-rag/internal/retriever"
	"notebook-rag/internal/splitter"
	"notebook-rag/internal/synthesizer"
)

// Service is the core exposed to the transport layer: notebook lifecycle,
// file ingestion, question answering and document generation. Answer and
// GenerateDocument return envelopes serialized as JSON text.
type Service struct {
	cfg       *config.Config
	parsers   *parser.Registry
	store     *index.Store
	answerer  *synthesizer.Synthesizer
	generator *generator.Generator
}

func NewService(cfg *config.Config, parsers *parser.Registry, store *index.Store, r *retriever.Retriever, llm synthesizer.Completer) *Service {
	return &Service{
		cfg:       cfg,
		parsers:   parsers,
		store:     store,
		answerer:  synthesizer.New(r, llm),
		generator: generator.New(r, llm),
	}
}

// EnsureNotebook idempotently creates the notebook's index location.
func (s *Service) EnsureNotebook(ctx context.Context, notebookID string) error {
	return s.store.EnsureNotebook(ctx, notebookID)
}

// IngestFile parses the file with the matching format parser, chunks the
// documents and appends them to the notebook's index.
func (s *Service) IngestFile(ctx context.Context, notebookID, path string) error {
	docs, err := s.parsers.Parse(path)
	if err != nil {
		return err
	}

	chunks, err := splitter.Split(docs, s.cfg.RAG.ChunkSize, s.cfg.RAG.ChunkOverlap)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		log.Info().Str("file", path).Msg("No content to ingest")
		return nil
	}
	log.Info().Str("file", path).Int("documents", len(docs)).Int("chunks", len(chunks)).Msg("Split file into chunks")

	return s.store.Ingest(ctx, notebookID, chunks)
}

// Answer returns the answer envelope for the query as JSON text. The
// envelope itself never fails; only serialization can error.
func (s *Service) Answer(ctx context.Context, notebookID, query string) (string, error) {
	env := s.answerer.Answer(ctx, notebookID, query)
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to encode answer envelope: %w", err)
	}
	return string(data), nil
}

// GenerateDocument returns the generated study artifact envelope as JSON
// text.
func (s *Service) GenerateDocument(ctx context.Context, notebookID, documentType, formatInstructions string) (string, error) {
	env := s.generator.Generate(ctx, notebookID, documentType, formatInstructions)
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to encode document envelope: %w", err)
	}
	return string(data), nil
}
