package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kamol774/pdf-text-extrator/internal/document/extractor"
)

// PageResult is the outcome of reading one page.
type PageResult struct {
	Index int // 1-based
	Text  string
	Err   error
}

// Failed reports whether the page could not be read.
func (r PageResult) Failed() bool { return r.Err != nil }

// Output returns the page text, or the placeholder for a failed page.
func (r PageResult) Output() string {
	if r.Failed() {
		return Placeholder(r.Index)
	}
	return r.Text
}

// Placeholder is the marker substituted for an unreadable page.
func Placeholder(index int) string {
	return fmt.Sprintf("[Page %d unreadable]", index)
}

// extractPage reads a single page and flattens its text fragments. It never
// panics; a failure is reported through PageResult.Err.
func extractPage(ctx context.Context, doc extractor.Document, index int) (res PageResult) {
	res.Index = index

	defer func() {
		if r := recover(); r != nil {
			res.Text = ""
			res.Err = &PageReadError{Index: index, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	frags, err := doc.Page(ctx, index)
	if err != nil {
		res.Err = &PageReadError{Index: index, Err: err}
		return res
	}

	res.Text = joinFragments(frags)
	return res
}

// joinFragments concatenates the value of every text fragment with single
// spaces. Non-text fragments are skipped.
func joinFragments(frags []extractor.Fragment) string {
	parts := make([]string, 0, len(frags))
	for _, f := range frags {
		if t, ok := f.(extractor.TextFragment); ok {
			parts = append(parts, t.Value)
		}
	}
	return strings.Join(parts, " ")
}
