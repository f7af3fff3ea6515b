package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCSExporter writes artifacts as objects in a Cloud Storage bucket.
type GCSExporter struct {
	bucket *storage.BucketHandle
	name   string
	prefix string
}

// NewGCSExporter uses client for the named bucket. Objects are stored
// under prefix, which may be empty.
func NewGCSExporter(client *storage.Client, bucket, prefix string) *GCSExporter {
	return &GCSExporter{
		bucket: client.Bucket(bucket),
		name:   bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (e *GCSExporter) Export(ctx context.Context, text, suggestedFileName string) (Artifact, error) {
	if text == "" {
		return Artifact{}, ErrEmptyText
	}

	objectName := path.Base(suggestedFileName)
	if e.prefix != "" {
		objectName = e.prefix + "/" + objectName
	}

	w := e.bucket.Object(objectName).NewWriter(ctx)
	w.ContentType = TextContentType
	w.ContentDisposition = fmt.Sprintf("attachment; filename=%q", path.Base(suggestedFileName))

	if _, err := io.Copy(w, strings.NewReader(text)); err != nil {
		_ = w.Close()
		return Artifact{}, fmt.Errorf("failed to write to GCS: %w", describe(err))
	}
	if err := w.Close(); err != nil {
		return Artifact{}, fmt.Errorf("failed to finalize GCS write: %w", describe(err))
	}

	return Artifact{
		Name:     path.Base(suggestedFileName),
		Location: fmt.Sprintf("gs://%s/%s", e.name, objectName),
		Size:     len(text),
	}, nil
}

func describe(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusForbidden {
		return fmt.Errorf("access denied to bucket: %w", err)
	}
	return err
}
