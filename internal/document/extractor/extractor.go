// Package extractor defines the document parser collaborator used by the
// extraction pipeline and its PDF backend.
package extractor

import (
	"context"
	"errors"
)

// Parser errors. Backends wrap library failures with one of these so the
// pipeline can classify them without inspecting message text.
var (
	ErrEncrypted   = errors.New("document is encrypted")
	ErrMalformed   = errors.New("document is malformed")
	ErrPageMissing = errors.New("page object not found")
)

// Parser opens raw document bytes.
type Parser interface {
	Open(ctx context.Context, data []byte) (Document, error)
}

// Document is an opened document. It is owned by a single extraction run
// and must be closed when the run ends.
type Document interface {
	NumPages() int
	// Page returns the content fragments of the 1-based page index.
	Page(ctx context.Context, index int) ([]Fragment, error)
	Close() error
}

// Fragment is a unit of page content: either a TextFragment or a
// NonTextFragment.
type Fragment interface {
	fragment()
}

// TextFragment carries text as decoded by the parser.
type TextFragment struct {
	Value string
}

// NonTextFragment marks content with no textual value, such as a drawn
// rectangle or an image.
type NonTextFragment struct {
	Kind string
}

func (TextFragment) fragment()    {}
func (NonTextFragment) fragment() {}
