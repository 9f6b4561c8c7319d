package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"notebook-rag/internal/models"
	"notebook-rag/internal/retriever"
)

// Completer is the language-model capability.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ContextRetriever supplies scored grounding context for a topic.
type ContextRetriever interface {
	Retrieve(ctx context.Context, notebookID, query string, opts retriever.Options) ([]models.ScoredMatch, error)
}

var titleCaser = cases.Title(language.English)

// Generator produces long-form study artifacts (exam, study guide,
// briefing, FAQ, timeline) from topic-keyed retrieval. Failures are
// folded into the envelope content, never raised past this boundary.
type Generator struct {
	retriever ContextRetriever
	llm       Completer
}

func New(r ContextRetriever, llm Completer) *Generator {
	return &Generator{retriever: r, llm: llm}
}

// Generate retrieves context keyed by the document type and asks the
// model to produce the artifact. The raw model text is returned verbatim
// as the envelope content.
func (g *Generator) Generate(ctx context.Context, notebookID, documentType, formatInstructions string) models.DocumentEnvelope {
	matches, err := g.retriever.Retrieve(ctx, notebookID, documentType, retriever.DocumentOptions())
	if err != nil {
		log.Error().Err(err).Str("notebook", notebookID).Str("type", documentType).Msg("Retrieval failed")
		return errorEnvelope(documentType, fmt.Sprintf("Failed to retrieve context for the %s document: %v", documentType, err))
	}

	contents := make([]string, 0, len(matches))
	for _, m := range matches {
		contents = append(contents, m.Chunk.Content)
	}
	grounding := strings.Join(contents, models.ContextSeparator)

	tmpl, ok := models.DocumentPromptTemplates[documentType]
	if !ok {
		log.Debug().Str("type", documentType).Msg("Unrecognized document type, using generic template")
		tmpl = models.GenericDocumentTemplate
	}
	prompt := fmt.Sprintf(tmpl, grounding)
	if formatInstructions != "" {
		prompt += "\n\nFormatting instructions:\n" + formatInstructions
	}

	raw, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Str("notebook", notebookID).Str("type", documentType).Msg("Completion failed")
		return errorEnvelope(documentType, fmt.Sprintf("Failed to generate the %s document: %v", documentType, err))
	}

	return models.DocumentEnvelope{
		Type:    documentType,
		Title:   Title(documentType),
		Content: raw,
	}
}

// Title derives a display title from the document type, e.g.
// "study_guide" becomes "Study Guide Document".
func Title(documentType string) string {
	name := strings.ReplaceAll(documentType, "_", " ")
	return titleCaser.String(name) + " Document"
}

func errorEnvelope(documentType, message string) models.DocumentEnvelope {
	return models.DocumentEnvelope{
		Type:    documentType,
		Title:   Title(documentType),
		Content: message,
	}
}
