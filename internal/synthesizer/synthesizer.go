package synthesizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"notebook-rag/internal/models"
	"notebook-rag/internal/retriever"
)

// Completer is the language-model capability.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ContextRetriever supplies scored grounding context for a query.
type ContextRetriever interface {
	Retrieve(ctx context.Context, notebookID, query string, opts retriever.Options) ([]models.ScoredMatch, error)
}

// Synthesizer answers questions grounded in retrieved notebook context.
// Answer always returns a well-formed envelope; model and retrieval
// failures degrade the content, never the shape.
type Synthesizer struct {
	retriever ContextRetriever
	llm       Completer
}

func New(r ContextRetriever, llm Completer) *Synthesizer {
	return &Synthesizer{retriever: r, llm: llm}
}

func (s *Synthesizer) Answer(ctx context.Context, notebookID, query string) models.AnswerEnvelope {
	matches, err := s.retriever.Retrieve(ctx, notebookID, query, retriever.QAOptions())
	if err != nil {
		log.Error().Err(err).Str("notebook", notebookID).Msg("Retrieval failed")
		return errorEnvelope()
	}
	if len(matches) == 0 {
		return noContextEnvelope()
	}

	contents := make([]string, 0, len(matches))
	for _, m := range matches {
		contents = append(contents, m.Chunk.Content)
	}
	grounding := strings.Join(contents, models.ContextSeparator)

	prompt := fmt.Sprintf(models.AnswerPromptTemplate, grounding, query)
	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Str("notebook", notebookID).Msg("Completion failed")
		return errorEnvelope()
	}

	return repair(parseAnswer(raw))
}

func noContextEnvelope() models.AnswerEnvelope {
	return models.AnswerEnvelope{
		Response:  models.NoContextResponse,
		Questions: append([]string(nil), models.GenericQuestions...),
	}
}

func errorEnvelope() models.AnswerEnvelope {
	return models.AnswerEnvelope{
		Response:  models.ErrorResponse,
		Questions: append([]string(nil), models.GenericQuestions...),
	}
}

// repair enforces the envelope contract: a non-empty response and exactly
// three questions, substituting fixed fallbacks where the model came up
// short.
func repair(env models.AnswerEnvelope) models.AnswerEnvelope {
	if strings.TrimSpace(env.Response) == "" {
		env.Response = models.IncompleteResponse
	}

	questions := make([]string, 0, 3)
	for _, q := range env.Questions {
		if strings.TrimSpace(q) == "" {
			continue
		}
		questions = append(questions, q)
		if len(questions) == 3 {
			break
		}
	}
	for _, generic := range models.GenericQuestions {
		if len(questions) == 3 {
			break
		}
		if !contains(questions, generic) {
			questions = append(questions, generic)
		}
	}
	env.Questions = questions
	return env
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
