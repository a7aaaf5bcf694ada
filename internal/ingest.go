package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Ingestor feeds text files into a DocumentService. Used by the watch
// command to pick up documents dropped into a directory.
type Ingestor struct {
	svc *DocumentService
	log *zap.Logger
}

func NewIngestor(svc *DocumentService, log *zap.Logger) *Ingestor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ingestor{svc: svc, log: log}
}

// Ingestible reports whether path looks like a plain-text document.
func Ingestible(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	}
	return false
}

// IngestFile reads path and stores its contents as one document.
func (in *Ingestor) IngestFile(ctx context.Context, path string) (*VectorRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil, fmt.Errorf("%s is empty", path)
	}

	rec, err := in.svc.Create(ctx, content)
	if err != nil {
		return nil, err
	}
	in.log.Info("ingested file",
		zap.String("path", path), zap.String("id", rec.ID))
	return rec, nil
}

// IngestDir stores every ingestible file directly under dir. Files
// that fail are logged and skipped.
func (in *Ingestor) IngestDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read dir %s: %w", dir, err)
	}

	n := 0
	for _, entry := range entries {
		if entry.IsDir() || !Ingestible(entry.Name()) {
			continue
		}
		if _, err := in.IngestFile(ctx, filepath.Join(dir, entry.Name())); err != nil {
			in.log.Warn("skipping file", zap.String("name", entry.Name()), zap.Error(err))
			continue
		}
		n++
	}
	return n, nil
}
