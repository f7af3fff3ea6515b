// Package export persists extracted text as downloadable artifacts.
package export

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

// TextContentType is the media type of every exported artifact.
const TextContentType = "text/plain; charset=utf-8"

// ErrEmptyText is returned when there is nothing to export.
var ErrEmptyText = errors.New("no text to export")

// Artifact references an exported file.
type Artifact struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Size     int    `json:"size"`
}

// Exporter writes extracted text under a suggested file name.
type Exporter interface {
	Export(ctx context.Context, text, suggestedFileName string) (Artifact, error)
}

// SuggestedFileName derives the export name from the source document name:
// the first ".pdf" is removed and "_extracted_text.txt" appended.
func SuggestedFileName(source string) string {
	base := filepath.Base(strings.TrimSpace(source))
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}
	if i := strings.Index(strings.ToLower(base), ".pdf"); i >= 0 {
		base = base[:i] + base[i+len(".pdf"):]
	}
	if base == "" {
		base = "document"
	}
	return base + "_extracted_text.txt"
}
