package retriever

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notebook-rag/internal/index"
	"notebook-rag/internal/models"
)

type fakeIndex struct {
	matches     []index.RawMatch
	err         error
	searchCalls int
}

func (f *fakeIndex) Ensure(ctx context.Context, notebookID string) error { return nil }

func (f *fakeIndex) Exists(ctx context.Context, notebookID string) bool { return true }

func (f *fakeIndex) Upsert(ctx context.Context, notebookID string, chunks []models.Chunk) error {
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, notebookID, query string, k int) ([]index.RawMatch, error) {
	f.searchCalls++
	if f.err != nil {
		return nil, f.err
	}
	if k > len(f.matches) {
		k = len(f.matches)
	}
	return f.matches[:k], nil
}

func rawMatch(content string, score float64) index.RawMatch {
	return index.RawMatch{
		Chunk: models.Chunk{Content: content, Metadata: map[string]string{}},
		Score: score,
	}
}

func TestRetrieve_NormalizesCosineScores(t *testing.T) {
	idx := &fakeIndex{matches: []index.RawMatch{
		rawMatch("best", 1),
		rawMatch("neutral", 0),
		rawMatch("opposite", -1),
	}}
	r := New(idx)

	matches, err := r.Retrieve(context.Background(), "nb", "query", Options{K: 3})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, 1.0, matches[0].Score)
	assert.Equal(t, 0.5, matches[1].Score)
	assert.Equal(t, 0.0, matches[2].Score)
}

func TestRetrieve_OrderedByDescendingScore(t *testing.T) {
	idx := &fakeIndex{matches: []index.RawMatch{
		rawMatch("a", 0.2),
		rawMatch("b", 0.9),
		rawMatch("c", 0.5),
	}}
	r := New(idx)

	matches, err := r.Retrieve(context.Background(), "nb", "query", Options{K: 3})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
	assert.Equal(t, "b", matches[0].Chunk.Content)
}

func TestRetrieve_MissingIndexIsEmptyResult(t *testing.T) {
	idx := &fakeIndex{err: fmt.Errorf("%w: nb", index.ErrNotFound)}
	r := New(idx)

	matches, err := r.Retrieve(context.Background(), "nb", "query", QAOptions())
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRetrieve_OtherErrorsPropagate(t *testing.T) {
	boom := errors.New("engine exploded")
	idx := &fakeIndex{err: boom}
	r := New(idx)

	_, err := r.Retrieve(context.Background(), "nb", "query", QAOptions())
	assert.ErrorIs(t, err, boom)
}

func TestRetrieve_FloorFiltersMatches(t *testing.T) {
	// Raw 0.8 -> 0.9 normalized, raw -0.4 -> 0.3 normalized.
	idx := &fakeIndex{matches: []index.RawMatch{
		rawMatch("relevant", 0.8),
		rawMatch("irrelevant", -0.4),
	}}
	r := New(idx)

	matches, err := r.Retrieve(context.Background(), "nb", "query", Options{K: 3, Floor: 0.5})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "relevant", matches[0].Chunk.Content)
}

func TestRetrieve_DocumentFallbackBelowFloor(t *testing.T) {
	// Everything normalizes below the 0.4 floor.
	idx := &fakeIndex{matches: []index.RawMatch{
		rawMatch("a", -0.5),
		rawMatch("b", -0.7),
	}}
	r := New(idx)

	matches, err := r.Retrieve(context.Background(), "nb", "exam", DocumentOptions())
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, 0.5, m.Score)
	}
}

func TestRetrieve_EmptyIndexStaysEmptyWithFallback(t *testing.T) {
	idx := &fakeIndex{}
	r := New(idx)

	matches, err := r.Retrieve(context.Background(), "nb", "exam", DocumentOptions())
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestPolicies(t *testing.T) {
	qa := QAOptions()
	assert.Equal(t, 3, qa.K)
	assert.Equal(t, 0.5, qa.Floor)
	assert.False(t, qa.FallbackUnfiltered)

	doc := DocumentOptions()
	assert.Equal(t, 5, doc.K)
	assert.Equal(t, 0.4, doc.Floor)
	assert.True(t, doc.FallbackUnfiltered)
	assert.Equal(t, 0.5, doc.FallbackScore)
}
