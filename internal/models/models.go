package models

import "strconv"

// Metadata keys attached to documents and chunks.
const (
	MetaSource     = "source"
	MetaPage       = "page"
	MetaStartIndex = "start_index"
)

// Document is a parsed unit of source text with its metadata.
// Produced by the format parsers, immutable afterwards.
type Document struct {
	Content  string
	Metadata map[string]string
}

// Chunk is a bounded fragment of a Document. It inherits the document
// metadata and adds start_index, the character offset of the chunk's
// first byte within the source content.
type Chunk struct {
	Content  string
	Metadata map[string]string
}

// StartIndex returns the recorded offset, or 0 if the metadata is missing.
func (c Chunk) StartIndex() int {
	n, err := strconv.Atoi(c.Metadata[MetaStartIndex])
	if err != nil {
		return 0
	}
	return n
}

// ScoredMatch is a retrieved chunk with its normalized similarity in [0,1].
// Transient query result, never persisted.
type ScoredMatch struct {
	Chunk Chunk
	Score float64
}

// AnswerEnvelope is the only shape the question-answering path returns.
// Questions always holds exactly three entries.
type AnswerEnvelope struct {
	Response  string   `json:"response"`
	Questions []string `json:"questions"`
}

// DocumentEnvelope wraps a generated study artifact.
type DocumentEnvelope struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
}
