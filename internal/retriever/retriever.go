package retriever

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog/log"

	"notebook-rag/internal/index"
	"notebook-rag/internal/models"
)

// Options control one retrieval.
type Options struct {
	// K is the maximum number of matches returned.
	K int
	// Floor is the minimum normalized score for a match to count.
	Floor float64
	// FallbackUnfiltered re-runs the search without the floor when nothing
	// clears it, assigning FallbackScore to every match.
	FallbackUnfiltered bool
	FallbackScore      float64
}

// QAOptions is the question-answering retrieval policy: top 3 above the
// relevance threshold.
func QAOptions() Options {
	return Options{K: 3, Floor: 0.5}
}

// DocumentOptions is the document-generation policy: top 5 above a 0.4
// floor, falling back to unfiltered top 5 at 0.5 confidence so generation
// is never suppressed for lack of relevant context.
func DocumentOptions() Options {
	return Options{K: 5, Floor: 0.4, FallbackUnfiltered: true, FallbackScore: 0.5}
}

// Retriever runs similarity queries against notebook indexes and maps raw
// engine scores onto a bounded confidence range.
type Retriever struct {
	index index.VectorIndex
}

func New(idx index.VectorIndex) *Retriever {
	return &Retriever{index: idx}
}

// Retrieve returns up to opts.K matches ordered by descending normalized
// score. A notebook without an index yields an empty result, not an
// error; callers handle the empty slice explicitly.
func (r *Retriever) Retrieve(ctx context.Context, notebookID, query string, opts Options) ([]models.ScoredMatch, error) {
	raw, err := r.index.Search(ctx, notebookID, query, opts.K)
	if err != nil {
		if errors.Is(err, index.ErrNotFound) {
			log.Debug().Str("notebook", notebookID).Msg("No index for notebook, returning empty result")
			return nil, nil
		}
		return nil, err
	}

	matches := normalize(raw)
	filtered := matches[:0:0]
	for _, m := range matches {
		if m.Score >= opts.Floor {
			filtered = append(filtered, m)
		}
	}

	if len(filtered) == 0 && opts.FallbackUnfiltered && len(matches) > 0 {
		log.Debug().Str("notebook", notebookID).Float64("floor", opts.Floor).
			Msg("No match cleared the relevance floor, falling back to unfiltered search")
		for i := range matches {
			matches[i].Score = opts.FallbackScore
		}
		return matches, nil
	}

	return filtered, nil
}

// normalize maps raw cosine similarity in [-1,1] onto [0,1] via
// (raw+1)/2. The formula assumes the backend reports cosine similarity;
// a backend with a different native range must convert before returning.
func normalize(raw []index.RawMatch) []models.ScoredMatch {
	matches := make([]models.ScoredMatch, 0, len(raw))
	for _, m := range raw {
		score := (m.Score + 1) / 2
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		matches = append(matches, models.ScoredMatch{Chunk: m.Chunk, Score: score})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches
}
