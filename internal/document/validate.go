package document

import "fmt"

// DefaultMaxBytes is the default upload ceiling (10MB).
const DefaultMaxBytes int64 = 10 * 1024 * 1024

// UploadRequest is a single document submitted for extraction.
type UploadRequest struct {
	FileBytes         []byte
	DeclaredMediaType string
	ByteSize          int64
	FileName          string
}

// Validator checks an UploadRequest before any parsing happens.
type Validator struct {
	MaxBytes int64
}

// NewValidator creates a validator with the given ceiling; a non-positive
// ceiling selects DefaultMaxBytes.
func NewValidator(maxBytes int64) Validator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return Validator{MaxBytes: maxBytes}
}

// Validate returns nil if req is accepted. Rules are checked in order and
// the first failure wins.
func (v Validator) Validate(req UploadRequest) error {
	if len(req.FileBytes) == 0 {
		return ErrMissingFile
	}

	if req.DeclaredMediaType != string(ContentTypePDF) {
		return fmt.Errorf("%w: %q", ErrWrongMediaType, req.DeclaredMediaType)
	}

	if req.ByteSize > v.MaxBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, req.ByteSize, v.MaxBytes)
	}

	return nil
}
