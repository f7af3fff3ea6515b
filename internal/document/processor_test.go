package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"reflect"
	"strings"
	"testing"

	"github.com/Kamol774/pdf-text-extrator/internal/document/extractor"
	"github.com/Kamol774/pdf-text-extrator/internal/pdftest"
)

type fakeParser struct {
	doc     *fakeDocument
	openErr error
	opened  int
}

func (p *fakeParser) Open(ctx context.Context, data []byte) (extractor.Document, error) {
	p.opened++
	if p.openErr != nil {
		return nil, p.openErr
	}
	return p.doc, nil
}

type fakeDocument struct {
	pages    [][]extractor.Fragment
	failing  map[int]error
	panicOn  map[int]bool
	onPage   func(index int)
	requests []int
	closed   int
	// count overrides the page count when non-zero.
	count int
}

func (d *fakeDocument) NumPages() int {
	if d.count != 0 {
		return d.count
	}
	return len(d.pages)
}

func (d *fakeDocument) Page(ctx context.Context, index int) ([]extractor.Fragment, error) {
	d.requests = append(d.requests, index)
	if d.onPage != nil {
		d.onPage(index)
	}
	if d.panicOn[index] {
		panic("bad content stream")
	}
	if err := d.failing[index]; err != nil {
		return nil, err
	}
	return d.pages[index-1], nil
}

func (d *fakeDocument) Close() error {
	d.closed++
	return nil
}

func textPage(values ...string) []extractor.Fragment {
	frags := make([]extractor.Fragment, 0, len(values))
	for _, v := range values {
		frags = append(frags, extractor.TextFragment{Value: v})
	}
	return frags
}

func pdfRequest(name string) UploadRequest {
	data := []byte("%PDF-1.7 fake body")
	return UploadRequest{
		FileBytes:         data,
		DeclaredMediaType: "application/pdf",
		ByteSize:          int64(len(data)),
		FileName:          name,
	}
}

func newTestProcessor(parser extractor.Parser) *Processor {
	return NewProcessor(parser, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExtract_ValidationShortCircuits(t *testing.T) {
	tests := []struct {
		name    string
		req     UploadRequest
		wantErr error
	}{
		{
			name:    "missing bytes",
			req:     UploadRequest{DeclaredMediaType: "application/pdf", FileName: "a.pdf"},
			wantErr: ErrMissingFile,
		},
		{
			name: "wrong media type",
			req: UploadRequest{
				FileBytes:         []byte("hello"),
				DeclaredMediaType: "text/plain",
				ByteSize:          5,
			},
			wantErr: ErrWrongMediaType,
		},
		{
			name: "too large even if valid",
			req: UploadRequest{
				FileBytes:         []byte("%PDF-1.7"),
				DeclaredMediaType: "application/pdf",
				ByteSize:          DefaultMaxBytes + 1,
			},
			wantErr: ErrTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := &fakeParser{doc: &fakeDocument{pages: [][]extractor.Fragment{textPage("x")}}}
			res, err := newTestProcessor(parser).Extract(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Extract() error = %v, want %v", err, tt.wantErr)
			}
			if res != nil {
				t.Fatalf("Extract() result = %+v, want nil", res)
			}
			if parser.opened != 0 {
				t.Fatalf("parser opened %d times, want 0", parser.opened)
			}
		})
	}
}

func TestExtract_AllPagesSucceed(t *testing.T) {
	doc := &fakeDocument{pages: [][]extractor.Fragment{
		textPage("Hello", "world"),
		textPage("Second"),
		textPage("Third", "page"),
	}}
	res, err := newTestProcessor(&fakeParser{doc: doc}).Extract(context.Background(), pdfRequest("report.pdf"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := "Hello world\n\nSecond\n\nThird page"
	if res.FullText != want {
		t.Fatalf("FullText = %q, want %q", res.FullText, want)
	}
	if res.PageCount != 3 {
		t.Fatalf("PageCount = %d, want 3", res.PageCount)
	}
	if res.TextLength != len(want) {
		t.Fatalf("TextLength = %d, want %d", res.TextLength, len(want))
	}
	if res.SourceFileName != "report.pdf" {
		t.Fatalf("SourceFileName = %q, want report.pdf", res.SourceFileName)
	}
	if len(res.FailedPages) != 0 {
		t.Fatalf("FailedPages = %v, want none", res.FailedPages)
	}
	if strings.Contains(res.FullText, "unreadable") {
		t.Fatalf("FullText contains a placeholder: %q", res.FullText)
	}
	if !reflect.DeepEqual(doc.requests, []int{1, 2, 3}) {
		t.Fatalf("pages requested in order %v, want [1 2 3]", doc.requests)
	}
	if doc.closed != 1 {
		t.Fatalf("document closed %d times, want 1", doc.closed)
	}
}

func TestExtract_FailedPageIsIsolated(t *testing.T) {
	doc := &fakeDocument{
		pages: [][]extractor.Fragment{
			textPage("page one"),
			nil,
			textPage("page three"),
		},
		failing: map[int]error{2: errors.New("bad xref")},
	}
	res, err := newTestProcessor(&fakeParser{doc: doc}).Extract(context.Background(), pdfRequest("a.pdf"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := "page one\n\n[Page 2 unreadable]\n\npage three"
	if res.FullText != want {
		t.Fatalf("FullText = %q, want %q", res.FullText, want)
	}
	if res.PageCount != 3 {
		t.Fatalf("PageCount = %d, want 3", res.PageCount)
	}
	if res.TextLength != len(want) {
		t.Fatalf("TextLength = %d, want %d", res.TextLength, len(want))
	}
	if !reflect.DeepEqual(res.FailedPages, []int{2}) {
		t.Fatalf("FailedPages = %v, want [2]", res.FailedPages)
	}
}

func TestExtract_PanickingPageIsIsolated(t *testing.T) {
	doc := &fakeDocument{
		pages:   [][]extractor.Fragment{textPage("first"), textPage("second")},
		panicOn: map[int]bool{1: true},
	}
	res, err := newTestProcessor(&fakeParser{doc: doc}).Extract(context.Background(), pdfRequest("a.pdf"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if want := "[Page 1 unreadable]\n\nsecond"; res.FullText != want {
		t.Fatalf("FullText = %q, want %q", res.FullText, want)
	}
}

func TestExtract_EveryPageFails(t *testing.T) {
	doc := &fakeDocument{
		pages:   make([][]extractor.Fragment, 2),
		failing: map[int]error{1: errors.New("x"), 2: errors.New("y")},
	}
	res, err := newTestProcessor(&fakeParser{doc: doc}).Extract(context.Background(), pdfRequest("a.pdf"))
	if err != nil {
		t.Fatalf("Extract() error = %v, want success", err)
	}
	if want := "[Page 1 unreadable]\n\n[Page 2 unreadable]"; res.FullText != want {
		t.Fatalf("FullText = %q, want %q", res.FullText, want)
	}
}

func TestExtract_EmptyDocument(t *testing.T) {
	doc := &fakeDocument{}
	res, err := newTestProcessor(&fakeParser{doc: doc}).Extract(context.Background(), pdfRequest("empty.pdf"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.PageCount != 0 || res.FullText != "" || res.TextLength != 0 {
		t.Fatalf("Extract() = %+v, want empty result", res)
	}
	if doc.closed != 1 {
		t.Fatalf("document closed %d times, want 1", doc.closed)
	}
}

func TestExtract_TrimsOnlyFinalConcatenation(t *testing.T) {
	doc := &fakeDocument{pages: [][]extractor.Fragment{
		textPage("  leading"),
		textPage("inner  "),
		textPage("trailing \n"),
	}}
	res, err := newTestProcessor(&fakeParser{doc: doc}).Extract(context.Background(), pdfRequest("a.pdf"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if want := "leading\n\ninner  \n\ntrailing"; res.FullText != want {
		t.Fatalf("FullText = %q, want %q", res.FullText, want)
	}
}

func TestExtract_TextLengthCountsCharacters(t *testing.T) {
	doc := &fakeDocument{pages: [][]extractor.Fragment{textPage("Ajratilgan o'zbekcha matn: ŝ ü")}}
	res, err := newTestProcessor(&fakeParser{doc: doc}).Extract(context.Background(), pdfRequest("a.pdf"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if want := len([]rune(res.FullText)); res.TextLength != want {
		t.Fatalf("TextLength = %d, want %d", res.TextLength, want)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	newDoc := func() *fakeDocument {
		return &fakeDocument{
			pages:   [][]extractor.Fragment{textPage("a"), nil, textPage("c")},
			failing: map[int]error{2: errors.New("broken")},
		}
	}
	p := newTestProcessor(&fakeParser{doc: newDoc()})
	first, err := p.Extract(context.Background(), pdfRequest("a.pdf"))
	if err != nil {
		t.Fatalf("first Extract() error = %v", err)
	}

	p = newTestProcessor(&fakeParser{doc: newDoc()})
	second, err := p.Extract(context.Background(), pdfRequest("a.pdf"))
	if err != nil {
		t.Fatalf("second Extract() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ:\n%+v\n%+v", first, second)
	}
}

func TestExtract_OpenErrorsAreClassified(t *testing.T) {
	tests := []struct {
		name    string
		openErr error
		want    error
	}{
		{"corrupt", fmt.Errorf("%w: missing header", extractor.ErrMalformed), ErrCorruptDocument},
		{"encrypted", fmt.Errorf("%w: invalid password", extractor.ErrEncrypted), ErrPasswordProtected},
		{"network", &net.OpError{Op: "read", Err: errors.New("connection reset")}, ErrTransport},
		{"transport sentinel", fmt.Errorf("fetch: %w", ErrTransport), ErrTransport},
		{"unknown", errors.New("something odd"), ErrUnknownOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newTestProcessor(&fakeParser{openErr: tt.openErr}).Extract(context.Background(), pdfRequest("a.pdf"))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Extract() error = %v, want %v", err, tt.want)
			}
			if res != nil {
				t.Fatalf("Extract() result = %+v, want nil", res)
			}
		})
	}
}

func TestExtract_CancelledBetweenPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	doc := &fakeDocument{
		pages:  [][]extractor.Fragment{textPage("a"), textPage("b"), textPage("c")},
		onPage: func(index int) { cancel() },
	}
	res, err := newTestProcessor(&fakeParser{doc: doc}).Extract(ctx, pdfRequest("a.pdf"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Extract() error = %v, want context.Canceled", err)
	}
	if res != nil {
		t.Fatalf("Extract() result = %+v, want nil", res)
	}
	if len(doc.requests) != 1 {
		t.Fatalf("pages requested %v, want only the first", doc.requests)
	}
	if doc.closed != 1 {
		t.Fatalf("document closed %d times, want 1", doc.closed)
	}
}

func TestJoinFragments_IgnoresNonText(t *testing.T) {
	frags := []extractor.Fragment{
		extractor.TextFragment{Value: "Hello"},
		extractor.NonTextFragment{Kind: "image"},
		extractor.TextFragment{Value: "world"},
	}
	if got := joinFragments(frags); got != "Hello world" {
		t.Fatalf("joinFragments() = %q, want %q", got, "Hello world")
	}
}

func TestKindAndUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		kind string
	}{
		{ErrMissingFile, "missing_file"},
		{fmt.Errorf("%w: 12 bytes", ErrTooLarge), "too_large"},
		{fmt.Errorf("%w: x", ErrPasswordProtected), "password_protected"},
		{context.Canceled, "cancelled"},
		{errors.New("boom"), "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.kind {
				t.Errorf("Kind() = %q, want %q", got, tt.kind)
			}
			if UserMessage(tt.err) == "" {
				t.Error("UserMessage() is empty")
			}
		})
	}
}

func TestExtract_NegativePageCount(t *testing.T) {
	doc := &fakeDocument{count: -1}
	res, err := newTestProcessor(&fakeParser{doc: doc}).Extract(context.Background(), pdfRequest("a.pdf"))
	if !errors.Is(err, ErrCorruptDocument) {
		t.Fatalf("Extract() error = %v, want ErrCorruptDocument", err)
	}
	if res != nil {
		t.Fatalf("Extract() result = %+v, want nil", res)
	}
	if doc.closed != 1 {
		t.Fatalf("document closed %d times, want 1", doc.closed)
	}
}

func TestExtract_RealPDF(t *testing.T) {
	tests := []struct {
		name  string
		count string
	}{
		{"declared count", ""},
		{"negative count", "-1"},
		{"huge count", "99999999999"},
		{"count beyond the tree", "5000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := pdftest.Build([]string{"Page1", "Page2"}, pdftest.Options{Count: tt.count})
			req := UploadRequest{
				FileBytes:         data,
				DeclaredMediaType: "application/pdf",
				ByteSize:          int64(len(data)),
				FileName:          "two.pdf",
			}
			res, err := newTestProcessor(extractor.NewPDFParser()).Extract(context.Background(), req)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if want := "Page1\n\nPage2"; res.FullText != want {
				t.Fatalf("FullText = %q, want %q", res.FullText, want)
			}
			if res.PageCount != 2 || len(res.FailedPages) != 0 {
				t.Fatalf("PageCount = %d, FailedPages = %v; want 2 pages, none failed", res.PageCount, res.FailedPages)
			}
		})
	}
}
