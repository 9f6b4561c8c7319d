package rag

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notebook-rag/internal/config"
	"notebook-rag/internal/index"
	"notebook-rag/internal/models"
	"notebook-rag/internal/parser"
	"notebook-rag/internal/retriever"
)

type memoryIndex struct {
	notebooks map[string][]models.Chunk
}

func newMemoryIndex() *memoryIndex {
	return &memoryIndex{notebooks: map[string][]models.Chunk{}}
}

func (m *memoryIndex) Ensure(ctx context.Context, notebookID string) error {
	if _, ok := m.notebooks[notebookID]; !ok {
		m.notebooks[notebookID] = nil
	}
	return nil
}

func (m *memoryIndex) Exists(ctx context.Context, notebookID string) bool {
	_, ok := m.notebooks[notebookID]
	return ok
}

func (m *memoryIndex) Upsert(ctx context.Context, notebookID string, chunks []models.Chunk) error {
	m.notebooks[notebookID] = append(m.notebooks[notebookID], chunks...)
	return nil
}

func (m *memoryIndex) Search(ctx context.Context, notebookID, query string, k int) ([]index.RawMatch, error) {
	chunks, ok := m.notebooks[notebookID]
	if !ok {
		return nil, index.ErrNotFound
	}
	var matches []index.RawMatch
	for _, c := range chunks {
		matches = append(matches, index.RawMatch{Chunk: c, Score: 0.8})
		if len(matches) == k {
			break
		}
	}
	return matches, nil
}

type stubCompleter struct {
	output string
	calls  int
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return s.output, nil
}

func newService(t *testing.T, idx index.VectorIndex, llm *stubCompleter) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.RAG.ChunkSize = 300
	cfg.RAG.ChunkOverlap = 100
	cfg.RAG.BatchSize = 160
	return NewService(cfg, parser.NewRegistry(), index.NewStore(idx, cfg.RAG.BatchSize), retriever.New(idx), llm)
}

func TestAnswer_EmptyNotebook(t *testing.T) {
	idx := newMemoryIndex()
	llm := &stubCompleter{output: "should never be called"}
	svc := newService(t, idx, llm)

	ctx := context.Background()
	require.NoError(t, svc.EnsureNotebook(ctx, "nb"))

	out, err := svc.Answer(ctx, "nb", "what is osmosis?")
	require.NoError(t, err)
	assert.Zero(t, llm.calls)

	var env models.AnswerEnvelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Equal(t, models.NoContextResponse, env.Response)
	assert.Equal(t, models.GenericQuestions, env.Questions)
}

func TestAnswer_MissingNotebookBehavesLikeEmpty(t *testing.T) {
	idx := newMemoryIndex()
	llm := &stubCompleter{}
	svc := newService(t, idx, llm)

	out, err := svc.Answer(context.Background(), "never-created", "anything?")
	require.NoError(t, err)
	assert.Zero(t, llm.calls)

	var env models.AnswerEnvelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Equal(t, models.NoContextResponse, env.Response)
}

func TestIngestFile_EndToEnd(t *testing.T) {
	idx := newMemoryIndex()
	svc := newService(t, idx, &stubCompleter{})

	path := filepath.Join(t.TempDir(), "notes.txt")
	content := "Photosynthesis converts light energy into chemical energy stored in glucose. " +
		"It happens in the chloroplasts of plant cells and depends on chlorophyll to absorb light."
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	ctx := context.Background()
	require.NoError(t, svc.EnsureNotebook(ctx, "bio"))
	require.NoError(t, svc.IngestFile(ctx, "bio", path))

	chunks := idx.notebooks["bio"]
	require.NotEmpty(t, chunks)
	assert.Equal(t, path, chunks[0].Metadata[models.MetaSource])
	assert.Equal(t, 0, chunks[0].StartIndex())
}

func TestIngestFile_UnsupportedFormat(t *testing.T) {
	idx := newMemoryIndex()
	svc := newService(t, idx, &stubCompleter{})

	path := filepath.Join(t.TempDir(), "archive.tar")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	err := svc.IngestFile(context.Background(), "nb", path)
	assert.ErrorIs(t, err, parser.ErrUnsupportedFormat)
	assert.Empty(t, idx.notebooks["nb"])
}

func TestIngestFile_EmptyFileIsNoop(t *testing.T) {
	idx := newMemoryIndex()
	svc := newService(t, idx, &stubCompleter{})

	path := filepath.Join(t.TempDir(), "blank.txt")
	require.NoError(t, os.WriteFile(path, []byte("   \n"), 0o644))

	ctx := context.Background()
	require.NoError(t, svc.EnsureNotebook(ctx, "nb"))
	require.NoError(t, svc.IngestFile(ctx, "nb", path))
	assert.Empty(t, idx.notebooks["nb"])
}

func TestAnswerAfterIngest(t *testing.T) {
	idx := newMemoryIndex()
	llm := &stubCompleter{output: `{"response": "It converts light into glucose.", "questions": ["Where does it happen?", "What pigment absorbs light?", "What gas is released?"]}`}
	svc := newService(t, idx, llm)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Photosynthesis converts light energy into glucose."), 0o644))

	ctx := context.Background()
	require.NoError(t, svc.EnsureNotebook(ctx, "bio"))
	require.NoError(t, svc.IngestFile(ctx, "bio", path))

	out, err := svc.Answer(ctx, "bio", "what does photosynthesis do?")
	require.NoError(t, err)
	assert.Equal(t, 1, llm.calls)

	var env models.AnswerEnvelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Equal(t, "It converts light into glucose.", env.Response)
	require.Len(t, env.Questions, 3)
}

func TestGenerateDocument_ReturnsJSONEnvelope(t *testing.T) {
	idx := newMemoryIndex()
	llm := &stubCompleter{output: "Study guide body"}
	svc := newService(t, idx, llm)

	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, "bio", []models.Chunk{{Content: "cells", Metadata: map[string]string{}}}))

	out, err := svc.GenerateDocument(ctx, "bio", "study_guide", "")
	require.NoError(t, err)

	var env models.DocumentEnvelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Equal(t, "study_guide", env.Type)
	assert.Equal(t, "Study Guide Document", env.Title)
	assert.Equal(t, "Study guide body", env.Content)
}
