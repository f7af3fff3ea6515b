package document

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/Kamol774/pdf-text-extrator/internal/document/extractor"
)

// Validation errors. Any of these aborts the run before parsing.
var (
	ErrMissingFile    = errors.New("no file provided")
	ErrWrongMediaType = errors.New("file is not a PDF")
	ErrTooLarge       = errors.New("file size exceeds maximum allowed size")
)

// Open errors. Any of these aborts the run with no partial text.
var (
	ErrCorruptDocument   = errors.New("document is corrupt or not a valid PDF")
	ErrPasswordProtected = errors.New("document is password protected")
	ErrTransport         = errors.New("document could not be transferred")
	ErrUnknownOpen       = errors.New("document could not be opened")
)

// PageReadError records a page that could not be read. It is logged and
// replaced by a placeholder, never returned from Extract.
type PageReadError struct {
	Index int
	Err   error
}

func (e *PageReadError) Error() string {
	return fmt.Sprintf("page %d unreadable: %v", e.Index, e.Err)
}

func (e *PageReadError) Unwrap() error { return e.Err }

// classifyOpenError maps a parser failure to one of the open errors.
// Context errors are passed through untouched.
func classifyOpenError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var netErr net.Error
	switch {
	case errors.Is(err, extractor.ErrEncrypted):
		return fmt.Errorf("%w: %w", ErrPasswordProtected, err)
	case errors.Is(err, extractor.ErrMalformed):
		return fmt.Errorf("%w: %w", ErrCorruptDocument, err)
	case errors.Is(err, ErrTransport):
		return err
	case errors.As(err, &netErr):
		return fmt.Errorf("%w: %w", ErrTransport, err)
	default:
		return fmt.Errorf("%w: %w", ErrUnknownOpen, err)
	}
}

var kinds = []struct {
	err     error
	code    string
	message string
}{
	{ErrMissingFile, "missing_file", "Please choose a PDF file."},
	{ErrWrongMediaType, "wrong_media_type", "Only PDF files are accepted."},
	{ErrTooLarge, "too_large", "The file must not exceed the maximum upload size."},
	{ErrCorruptDocument, "corrupt_document", "The PDF file is damaged or in an invalid format."},
	{ErrPasswordProtected, "password_protected", "The PDF file is password protected."},
	{ErrTransport, "transport_error", "A network error occurred while loading the PDF."},
	{ErrUnknownOpen, "open_failed", "An error occurred while processing the PDF."},
}

// Kind returns a stable code for err, or "internal_error" if err is not
// part of the extraction taxonomy.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return "internal_error"
}

// UserMessage returns a single human-readable message for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.message
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "The extraction was cancelled before it finished."
	}
	return "An error occurred while processing the PDF."
}
