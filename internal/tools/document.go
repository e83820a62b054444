package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// maxDocumentBytes caps how much of a file is fed into the pipeline.
const maxDocumentBytes = 50 * 1024

// LoadedDocument is a text document prepared for the input stage.
type LoadedDocument struct {
	Path      string
	Name      string
	Content   string
	Truncated bool
}

// LoadDocument reads a text-based document from disk. Plain text and
// markdown are supported; binary formats are rejected.
func LoadDocument(docPath string) (LoadedDocument, error) {
	ext := strings.ToLower(filepath.Ext(docPath))
	switch ext {
	case ".txt", ".md", ".markdown", ".rst", ".csv", "":
	default:
		return LoadedDocument{}, fmt.Errorf("unsupported document type %q", ext)
	}

	data, err := os.ReadFile(docPath)
	if err != nil {
		return LoadedDocument{}, fmt.Errorf("failed to read document %s: %w", docPath, err)
	}
	if !utf8.Valid(data) {
		return LoadedDocument{}, fmt.Errorf("document %s is not valid UTF-8 text", docPath)
	}

	doc := LoadedDocument{
		Path: docPath,
		Name: filepath.Base(docPath),
	}
	if len(data) > maxDocumentBytes {
		doc.Content = truncateUTF8(string(data), maxDocumentBytes)
		doc.Truncated = true
	} else {
		doc.Content = string(data)
	}
	return doc, nil
}

func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
