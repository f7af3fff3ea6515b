package document

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Kamol774/pdf-text-extrator/internal/document/extractor"
)

// ContentType represents a declared document media type
type ContentType string

// ContentTypePDF is the only media type accepted for extraction.
const ContentTypePDF ContentType = "application/pdf"

// PageSeparator is placed between consecutive pages in the full text.
const PageSeparator = "\n\n"

// ExtractionResult contains the extracted text and summary metadata
type ExtractionResult struct {
	FullText       string `json:"text"`
	PageCount      int    `json:"pages"`
	TextLength     int    `json:"textLength"`
	SourceFileName string `json:"fileName"`
	FailedPages    []int  `json:"failedPages"`
}

// Processor runs the extraction pipeline for one document at a time. It
// holds no per-run state, so a single Processor can serve concurrent runs.
type Processor struct {
	parser    extractor.Parser
	validator Validator
	logger    *slog.Logger
}

// NewProcessor creates a new document processor
func NewProcessor(parser extractor.Parser, maxBytes int64, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		parser:    parser,
		validator: NewValidator(maxBytes),
		logger:    logger,
	}
}

// MaxBytes returns the upload ceiling enforced by the processor.
func (p *Processor) MaxBytes() int64 {
	return p.validator.MaxBytes
}

// Extract validates req, opens the document and reads every page in
// order. Unreadable pages are replaced by a placeholder; validation and
// open failures abort the run.
func (p *Processor) Extract(ctx context.Context, req UploadRequest) (*ExtractionResult, error) {
	logger := p.logger.With("runId", uuid.NewString(), "file", req.FileName)

	if err := p.validator.Validate(req); err != nil {
		logger.Info("upload rejected", "error", err)
		return nil, err
	}

	doc, err := p.parser.Open(ctx, req.FileBytes)
	if err != nil {
		err = classifyOpenError(err)
		logger.Error("failed to open document", "error", err)
		return nil, err
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			logger.Warn("failed to close document", "error", cerr)
		}
	}()

	numPages := doc.NumPages()
	if numPages < 0 {
		err := fmt.Errorf("%w: negative page count %d", ErrCorruptDocument, numPages)
		logger.Error("failed to open document", "error", err)
		return nil, err
	}
	logger.Info("document opened", "pages", numPages, "bytes", req.ByteSize)

	var outputs []string
	failed := []int{}

	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			logger.Info("extraction cancelled", "page", i, "error", err)
			return nil, err
		}

		res := extractPage(ctx, doc, i)
		if res.Failed() {
			if err := ctx.Err(); err != nil {
				logger.Info("extraction cancelled", "page", i, "error", err)
				return nil, err
			}
			logger.Warn("page unreadable", "page", i, "error", res.Err)
			failed = append(failed, i)
		}
		outputs = append(outputs, res.Output())
	}

	fullText := strings.TrimSpace(strings.Join(outputs, PageSeparator))

	result := &ExtractionResult{
		FullText:       fullText,
		PageCount:      numPages,
		TextLength:     utf8.RuneCountInString(fullText),
		SourceFileName: req.FileName,
		FailedPages:    failed,
	}

	logger.Info("extraction complete",
		"pages", result.PageCount,
		"textLength", result.TextLength,
		"failedPages", len(failed),
	)

	return result, nil
}
