package parser

import (
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gmtext "github.com/yuin/goldmark/text"

	"notebook-rag/internal/models"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// parseMarkdown extracts plain text from a markdown file by walking the
// GFM syntax tree, so headings, emphasis markers and link targets do not
// leak into the indexed content.
func parseMarkdown(path string) ([]models.Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	root := markdown.Parser().Parse(gmtext.NewReader(src))
	var buf strings.Builder
	err = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			switch t := n.(type) {
			case *ast.Text:
				buf.Write(t.Segment.Value(src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					buf.WriteString("\n")
				}
			case *ast.FencedCodeBlock:
				writeLines(&buf, src, t)
			case *ast.CodeBlock:
				writeLines(&buf, src, t)
			}
			return ast.WalkContinue, nil
		}
		if n.Type() == ast.TypeBlock {
			buf.WriteString("\n\n")
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(buf.String())
	if content == "" {
		return nil, nil
	}
	return []models.Document{{Content: content, Metadata: sourceMeta(path)}}, nil
}

func writeLines(buf *strings.Builder, src []byte, n ast.Node) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
}
