package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kamol774/pdf-text-extrator/internal/document"
	"github.com/Kamol774/pdf-text-extrator/internal/export"
	"github.com/Kamol774/pdf-text-extrator/internal/fetch"
)

// multipartOverhead is the allowance for form boundaries and headers on top
// of the file ceiling.
const multipartOverhead = 1 << 20

// Handler handles API requests
type Handler struct {
	processor      *document.Processor
	fetcher        *fetch.Fetcher
	exporter       export.Exporter
	logger         *slog.Logger
	extractTimeout time.Duration
}

// NewHandler creates a new handler. exporter may be nil, in which case the
// export endpoint reports that exporting is not configured.
func NewHandler(
	processor *document.Processor,
	fetcher *fetch.Fetcher,
	exporter export.Exporter,
	logger *slog.Logger,
	extractTimeout time.Duration,
) *Handler {
	return &Handler{
		processor:      processor,
		fetcher:        fetcher,
		exporter:       exporter,
		logger:         logger,
		extractTimeout: extractTimeout,
	}
}

// HealthCheck provides a simple health check endpoint
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// ExtractUpload extracts text from the multipart file field "pdf"
func (h *Handler) ExtractUpload(c *gin.Context) {
	maxBytes := h.processor.MaxBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)

	req, err := h.readUpload(c, maxBytes)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.extract(c, req)
}

// ExtractURL downloads a PDF from a URL and extracts its text
func (h *Handler) ExtractURL(c *gin.Context) {
	var body struct {
		URL string `json:"url" binding:"required"`
	}
	if !h.bindJSON(c, &body) {
		return
	}

	ctx, cancel := h.runContext(c)
	defer cancel()

	req, err := h.fetcher.Fetch(ctx, body.URL)
	if err != nil {
		if errors.Is(err, fetch.ErrInvalidURL) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A valid http or https URL is required.", "code": "invalid_url"})
			return
		}
		h.logger.Warn("fetch failed", "error", err)
		h.writeError(c, err)
		return
	}

	h.extractWith(ctx, c, req)
}

// Download returns text as a plain-text attachment
func (h *Handler) Download(c *gin.Context) {
	var body struct {
		Text     string `json:"text" binding:"required"`
		FileName string `json:"fileName"`
	}
	if !h.bindJSON(c, &body) {
		return
	}

	name := export.SuggestedFileName(body.FileName)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Data(http.StatusOK, export.TextContentType, []byte(body.Text))
}

// Export writes text through the configured exporter
func (h *Handler) Export(c *gin.Context) {
	if h.exporter == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Export is not configured", "code": "export_disabled"})
		return
	}

	var body struct {
		Text     string `json:"text" binding:"required"`
		FileName string `json:"fileName"`
	}
	if !h.bindJSON(c, &body) {
		return
	}

	artifact, err := h.exporter.Export(c.Request.Context(), body.Text, export.SuggestedFileName(body.FileName))
	if err != nil {
		h.logger.Error("export failed", "error", err, "fileName", body.FileName)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export text", "code": "export_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"artifact": artifact})
}

// bindJSON decodes a JSON body no larger than the upload ceiling plus
// multipartOverhead. It writes the error response and returns false on
// failure.
func (h *Handler) bindJSON(c *gin.Context, dst any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.processor.MaxBytes()+multipartOverhead)
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.writeError(c, document.ErrTooLarge)
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "code": "bad_request"})
		return false
	}
	return true
}

func (h *Handler) readUpload(c *gin.Context, maxBytes int64) (document.UploadRequest, error) {
	file, header, err := c.Request.FormFile("pdf")
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return document.UploadRequest{}, document.ErrTooLarge
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			// An empty request lets the validator report the missing file.
			return document.UploadRequest{}, nil
		default:
			return document.UploadRequest{}, err
		}
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return document.UploadRequest{}, err
	}

	return document.UploadRequest{
		FileBytes:         data,
		DeclaredMediaType: strings.TrimSpace(header.Header.Get("Content-Type")),
		ByteSize:          header.Size,
		FileName:          header.Filename,
	}, nil
}

func (h *Handler) extract(c *gin.Context, req document.UploadRequest) {
	ctx, cancel := h.runContext(c)
	defer cancel()
	h.extractWith(ctx, c, req)
}

func (h *Handler) extractWith(ctx context.Context, c *gin.Context, req document.UploadRequest) {
	result, err := h.processor.Extract(ctx, req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fileName":       result.SourceFileName,
		"pages":          result.PageCount,
		"textLength":     result.TextLength,
		"failedPages":    result.FailedPages,
		"text":           result.FullText,
		"exportFileName": export.SuggestedFileName(result.SourceFileName),
	})
}

func (h *Handler) runContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.extractTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.extractTimeout)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("extraction failed", "error", err, "status", status)
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{
		"error": document.UserMessage(err),
		"code":  document.Kind(err),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, document.ErrMissingFile), errors.Is(err, document.ErrWrongMediaType):
		return http.StatusBadRequest
	case errors.Is(err, document.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, document.ErrCorruptDocument), errors.Is(err, document.ErrPasswordProtected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, document.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
