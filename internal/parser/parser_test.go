package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notebook-rag/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRegistry_UnsupportedExtension(t *testing.T) {
	r := NewRegistry()
	_, err := r.Parse("slides.key")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	err := r.Register(".txt", parseText)
	assert.Error(t, err)

	err = r.Register(".rst", parseText)
	assert.NoError(t, err)
	assert.True(t, r.Supports(".rst"))
}

func TestRegistry_Supports(t *testing.T) {
	r := NewRegistry()
	for _, ext := range []string{".txt", ".md", ".mdx", ".csv", ".json", ".pdf", ".docx", ".pptx", ".xlsx", ".ods"} {
		assert.True(t, r.Supports(ext), ext)
	}
	assert.False(t, r.Supports(".exe"))
}

func TestParseText(t *testing.T) {
	path := writeFile(t, "notes.txt", "plain text notes")
	docs, err := NewRegistry().Parse(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "plain text notes", docs[0].Content)
	assert.Equal(t, path, docs[0].Metadata[models.MetaSource])
}

func TestParseText_EmptyFile(t *testing.T) {
	path := writeFile(t, "empty.txt", "   \n\t")
	docs, err := NewRegistry().Parse(path)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestParseCSV(t *testing.T) {
	path := writeFile(t, "grades.csv", "name,grade\nalice,A\nbob,B\n")
	docs, err := NewRegistry().Parse(path)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "name: alice\ngrade: A\n", docs[0].Content)
	assert.Equal(t, "1", docs[0].Metadata["row"])
	assert.Equal(t, "name: bob\ngrade: B\n", docs[1].Content)
	assert.Equal(t, "2", docs[1].Metadata["row"])
}

func TestParseJSON(t *testing.T) {
	path := writeFile(t, "syllabus.json", `{"week": 1, "topic": "cells"}`)
	docs, err := NewRegistry().Parse(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, `"topic": "cells"`)
}

func TestParseJSON_Invalid(t *testing.T) {
	path := writeFile(t, "broken.json", `{"week": `)
	_, err := NewRegistry().Parse(path)
	assert.Error(t, err)
}

func TestParseMarkdown(t *testing.T) {
	content := "# Cell Biology\n\nCells are the *basic* unit of life.\n\n```\nATP -> energy\n```\n"
	path := writeFile(t, "notes.md", content)
	docs, err := NewRegistry().Parse(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	// Markup is stripped, text and code content survive.
	assert.Contains(t, docs[0].Content, "Cell Biology")
	assert.Contains(t, docs[0].Content, "Cells are the basic unit of life.")
	assert.Contains(t, docs[0].Content, "ATP -> energy")
	assert.NotContains(t, docs[0].Content, "# ")
	assert.NotContains(t, docs[0].Content, "*basic*")
}

func TestParseMDX_IsPlainText(t *testing.T) {
	content := "export const x = 1\n\n# Heading\n"
	path := writeFile(t, "page.mdx", content)
	docs, err := NewRegistry().Parse(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, content, docs[0].Content)
}
