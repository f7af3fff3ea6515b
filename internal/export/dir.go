package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DirExporter writes artifacts into a local directory.
type DirExporter struct {
	dir string
}

// NewDirExporter creates the directory if needed.
func NewDirExporter(dir string) (*DirExporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &DirExporter{dir: dir}, nil
}

func (e *DirExporter) Export(ctx context.Context, text, suggestedFileName string) (Artifact, error) {
	if text == "" {
		return Artifact{}, ErrEmptyText
	}
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	name := filepath.Base(suggestedFileName)
	path := filepath.Join(e.dir, name)

	tmp, err := os.CreateTemp(e.dir, ".export-*")
	if err != nil {
		return Artifact{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		return Artifact{}, fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return Artifact{}, fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Artifact{}, fmt.Errorf("finalize %s: %w", name, err)
	}

	return Artifact{Name: name, Location: path, Size: len(text)}, nil
}
