package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxPages bounds the page tree of an opened document.
const DefaultMaxPages = 10000

// maxTreeDepth bounds the nesting of page tree nodes.
const maxTreeDepth = 64

// PDFParser opens PDF documents with github.com/ledongthuc/pdf. When Repair
// is set, a document rejected as malformed is rewritten with pdfcpu and
// opened a second time.
type PDFParser struct {
	Repair bool
	// MaxPages caps the pages taken from the page tree; a larger tree is
	// malformed. Zero selects DefaultMaxPages.
	MaxPages int
}

// NewPDFParser creates a new PDF parser with repair enabled
func NewPDFParser() *PDFParser {
	return &PDFParser{Repair: true, MaxPages: DefaultMaxPages}
}

// Open parses data into a navigable document.
func (p *PDFParser) Open(ctx context.Context, data []byte) (doc Document, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("%w: %v", ErrMalformed, r)
		}
	}()

	r, err := open(data)
	if err == nil {
		return p.newDocument(r)
	}
	if !p.Repair || errors.Is(err, ErrEncrypted) {
		return nil, err
	}

	repaired, rerr := repair(data)
	if rerr != nil {
		if passwordRequired(rerr) {
			return nil, fmt.Errorf("%w: %v", ErrEncrypted, rerr)
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err = open(repaired)
	if err != nil {
		return nil, err
	}
	return p.newDocument(r)
}

func open(data []byte) (*pdf.Reader, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, classifyOpenError(err)
	}
	return r, nil
}

func classifyOpenError(err error) error {
	if errors.Is(err, pdf.ErrInvalidPassword) || strings.Contains(strings.ToLower(err.Error()), "encrypt") {
		return fmt.Errorf("%w: %v", ErrEncrypted, err)
	}
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}

// newDocument collects the page leaves of r up front. The /Count entries of
// the page tree are written by the producer and are never consulted.
func (p *PDFParser) newDocument(r *pdf.Reader) (Document, error) {
	maxPages := p.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	pages, err := pageLeaves(r.Trailer().Key("Root").Key("Pages"), maxPages)
	if err != nil {
		return nil, err
	}
	return &pdfDocument{pages: pages}, nil
}

// pageLeaves walks the page tree rooted at root in document order. The walk
// visits at most 2*maxPages nodes and maxTreeDepth levels, so shared or
// cyclic /Kids references end it with ErrMalformed.
func pageLeaves(root pdf.Value, maxPages int) ([]pdf.Page, error) {
	var (
		leaves []pdf.Page
		budget = 2 * maxPages
	)

	var walk func(node pdf.Value, depth int) error
	walk = func(node pdf.Value, depth int) error {
		if depth > maxTreeDepth {
			return fmt.Errorf("%w: page tree deeper than %d levels", ErrMalformed, maxTreeDepth)
		}
		if budget--; budget < 0 {
			return fmt.Errorf("%w: page tree has more than %d nodes", ErrMalformed, 2*maxPages)
		}

		switch node.Key("Type").Name() {
		case "Page":
			if len(leaves) == maxPages {
				return fmt.Errorf("%w: more than %d pages", ErrMalformed, maxPages)
			}
			leaves = append(leaves, pdf.Page{V: node})
		case "Pages":
			kids := node.Key("Kids")
			for i := 0; i < kids.Len(); i++ {
				if err := walk(kids.Index(i), depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if root.IsNull() {
		return nil, nil
	}
	if err := walk(root, 0); err != nil {
		return nil, err
	}
	return leaves, nil
}

type pdfDocument struct {
	pages []pdf.Page
}

func (d *pdfDocument) NumPages() int {
	return len(d.pages)
}

func (d *pdfDocument) Page(ctx context.Context, index int) (frags []Fragment, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 1 || index > len(d.pages) {
		return nil, fmt.Errorf("page %d: %w", index, ErrPageMissing)
	}

	defer func() {
		if r := recover(); r != nil {
			frags = nil
			err = fmt.Errorf("page %d: %v", index, r)
		}
	}()

	content := d.pages[index-1].Content()
	for _, run := range textRuns(content.Text) {
		frags = append(frags, TextFragment{Value: run})
	}
	for range content.Rect {
		frags = append(frags, NonTextFragment{Kind: "rect"})
	}
	return frags, nil
}

// Close drops the page references. The reader holds only the in-memory
// byte slice, so there is nothing else to free.
func (d *pdfDocument) Close() error {
	d.pages = nil
	return nil
}

// textRuns merges the per-glyph text items of a page into runs along a
// shared baseline. A horizontal gap wider than a fraction of the font size
// becomes a single space.
func textRuns(texts []pdf.Text) []string {
	var (
		runs []string
		b    strings.Builder
		last pdf.Text
	)

	flush := func() {
		if s := b.String(); strings.TrimSpace(s) != "" {
			runs = append(runs, s)
		}
		b.Reset()
	}

	for i, t := range texts {
		if i > 0 {
			size := math.Max(last.FontSize, 1)
			switch {
			case math.Abs(t.Y-last.Y) > size*0.5:
				flush()
			case t.X-(last.X+last.W) > size*0.15:
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
		last = t
	}
	flush()

	return runs
}
