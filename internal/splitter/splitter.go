package splitter

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"notebook-rag/internal/models"
)

// Separators tried in priority order when adjusting a cut point, so a
// chunk boundary prefers a paragraph break over a line break over a word
// break before falling back to a hard character cut.
var separators = []string{"\n\n", "\n", " "}

const (
	DefaultChunkSize    = 300
	DefaultChunkOverlap = 100
)

// Split breaks documents into overlapping chunks. Each chunk inherits the
// source document metadata and records start_index, the byte offset of the
// chunk within the document content. Size and overlap count characters
// (runes), so a cut never lands inside a multi-byte encoding.
func Split(docs []models.Document, chunkSize, chunkOverlap int) ([]models.Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, chunk size %d)", chunkOverlap, chunkSize)
	}

	var chunks []models.Chunk
	for _, doc := range docs {
		for _, sp := range splitText(doc.Content, chunkSize, chunkOverlap) {
			meta := make(map[string]string, len(doc.Metadata)+1)
			for k, v := range doc.Metadata {
				meta[k] = v
			}
			meta[models.MetaStartIndex] = strconv.Itoa(sp.start)
			chunks = append(chunks, models.Chunk{
				Content:  doc.Content[sp.start:sp.end],
				Metadata: meta,
			})
		}
	}
	return chunks, nil
}

// span is a half-open byte range into the source content.
type span struct {
	start, end int
}

// splitText produces contiguous spans of at most size runes. Consecutive
// spans overlap by exactly overlap runes, except the final span, which is
// snapped to cover the tail of the content in one piece. Cut points are
// pulled back to the best separator within the tail of each span. The
// walk happens in rune index space; offs maps rune indexes back to byte
// offsets.
func splitText(content string, size, overlap int) []span {
	if content == "" {
		return nil
	}

	offs := runeOffsets(content)
	n := len(offs) - 1

	var spans []span
	start := 0
	for {
		if n-start <= size {
			spans = append(spans, span{offs[start], offs[n]})
			break
		}

		end := breakPoint(content, offs, start, start+size, overlap)
		if n-end <= size {
			// One more full-size window reaches the end of the content.
			spans = append(spans, span{offs[start], offs[end]})
			spans = append(spans, span{offs[n-size], offs[n]})
			break
		}

		spans = append(spans, span{offs[start], offs[end]})
		start = end - overlap
	}
	return spans
}

// runeOffsets returns the byte offset of every rune start, with the
// content length appended so offs[i]..offs[i+1] brackets rune i.
func runeOffsets(content string) []int {
	offs := make([]int, 0, utf8.RuneCountInString(content)+1)
	for i := range content {
		offs = append(offs, i)
	}
	return append(offs, len(content))
}

// breakPoint adjusts the hard cut at rune index end back to the last
// separator found in the final fifth of the span. The cut always stays
// past start+overlap so the next span makes forward progress.
func breakPoint(content string, offs []int, start, end, overlap int) int {
	lookBack := (end - start) / 5
	floor := end - lookBack
	if floor < start+overlap+1 {
		floor = start + overlap + 1
	}
	if floor >= end {
		return end
	}

	window := content[offs[floor]:offs[end]]
	for _, sep := range separators {
		idx := strings.LastIndex(window, sep)
		if idx >= 0 {
			return floor + utf8.RuneCountInString(window[:idx+len(sep)])
		}
	}
	return end
}
