package parser

import (
	"archive/zip"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"notebook-rag/internal/models"
)

// ErrUnsupportedFormat is returned when no parser is registered for a
// file extension. It is fatal to the single ingestion call only.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ParseFunc loads one file into documents with source metadata attached.
type ParseFunc func(path string) ([]models.Document, error)

// Registry maps file extensions to parsers. Registration happens at
// configuration time; Parse dispatches on the extension at ingest time.
type Registry struct {
	parsers map[string]ParseFunc
}

// NewRegistry returns a registry with all built-in formats registered.
func NewRegistry() *Registry {
	r := &Registry{parsers: map[string]ParseFunc{}}
	r.parsers[".txt"] = parseText
	r.parsers[".mdx"] = parseText
	r.parsers[".md"] = parseMarkdown
	r.parsers[".csv"] = parseCSV
	r.parsers[".json"] = parseJSON
	r.parsers[".pdf"] = parsePDF
	r.parsers[".docx"] = parseDOCX
	r.parsers[".pptx"] = parsePPTX
	r.parsers[".xlsx"] = parseXLSX
	r.parsers[".ods"] = parseODS
	return r
}

// Register adds a parser for an extension. Registering the same extension
// twice is a configuration error.
func (r *Registry) Register(ext string, fn ParseFunc) error {
	ext = strings.ToLower(ext)
	if _, ok := r.parsers[ext]; ok {
		return fmt.Errorf("parser already registered for %s", ext)
	}
	r.parsers[ext] = fn
	return nil
}

// Supports reports whether the extension has a registered parser.
func (r *Registry) Supports(ext string) bool {
	_, ok := r.parsers[strings.ToLower(ext)]
	return ok
}

// Parse dispatches the file to the parser registered for its extension.
func (r *Registry) Parse(path string) ([]models.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	fn, ok := r.parsers[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	docs, err := fn(path)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("file", path).Int("documents", len(docs)).Msg("Parsed file")
	return docs, nil
}

func sourceMeta(path string) map[string]string {
	return map[string]string{models.MetaSource: path}
}

func parseText(path string) ([]models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	return []models.Document{{Content: string(data), Metadata: sourceMeta(path)}}, nil
}

func parseCSV(path string) ([]models.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}

	var docs []models.Document
	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		var text strings.Builder
		for i, field := range record {
			name := fmt.Sprintf("column_%d", i+1)
			if i < len(header) {
				name = header[i]
			}
			text.WriteString(name + ": " + field + "\n")
		}
		meta := sourceMeta(path)
		meta["row"] = strconv.Itoa(row)
		docs = append(docs, models.Document{Content: text.String(), Metadata: meta})
	}
	return docs, nil
}

func parseJSON(path string) ([]models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("invalid JSON in %s", path)
	}
	return []models.Document{{Content: string(data), Metadata: sourceMeta(path)}}, nil
}

func parsePDF(path string) ([]models.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	var docs []models.Document
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		meta := sourceMeta(path)
		meta[models.MetaPage] = strconv.Itoa(i)
		docs = append(docs, models.Document{Content: pageText, Metadata: meta})
	}
	return docs, nil
}

func parseDOCX(path string) ([]models.Document, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	var text strings.Builder
	for _, p := range strings.Split(content, "\n") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		text.WriteString(p + "\n")
	}
	if text.Len() == 0 {
		return nil, nil
	}
	return []models.Document{{Content: text.String(), Metadata: sourceMeta(path)}}, nil
}

func parsePPTX(path string) ([]models.Document, error) {
	f, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs []models.Document
	slideNum := 0
	for _, file := range f.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") {
			continue
		}
		slideNum++
		rc, err := file.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		slideText := extractTextFromXML(string(data))
		if strings.TrimSpace(slideText) == "" {
			continue
		}
		meta := sourceMeta(path)
		meta[models.MetaPage] = strconv.Itoa(slideNum)
		docs = append(docs, models.Document{Content: slideText, Metadata: meta})
	}
	return docs, nil
}

func parseXLSX(path string) ([]models.Document, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, err
	}

	var docs []models.Document
	for sheetNum, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		meta := sourceMeta(path)
		meta[models.MetaPage] = strconv.Itoa(sheetNum + 1)
		docs = append(docs, models.Document{Content: text.String(), Metadata: meta})
	}
	return docs, nil
}

func parseODS(path string) ([]models.Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs []models.Document
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		meta := sourceMeta(path)
		meta[models.MetaPage] = strconv.Itoa(sheetNum + 1)
		docs = append(docs, models.Document{Content: text.String(), Metadata: meta})
	}
	return docs, nil
}

func extractTextFromXML(xmlContent string) string {
	var text strings.Builder
	parts := strings.Split(xmlContent, "<a:t>")
	for i, part := range parts {
		if i == 0 {
			continue
		}
		endIdx := strings.Index(part, "</a:t>")
		if endIdx >= 0 {
			text.WriteString(part[:endIdx] + " ")
		}
	}
	return text.String()
}
