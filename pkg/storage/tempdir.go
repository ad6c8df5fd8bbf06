package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// TempDirStore writes uploads as files under dir. Keys are file paths.
type TempDirStore struct {
	dir string
}

func NewTempDirStore(dir string) (*TempDirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir %s: %w", dir, err)
	}
	return &TempDirStore{dir: dir}, nil
}

func (s *TempDirStore) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	path := filepath.Join(s.dir, objectName(name, contentType))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", name, err)
	}
	return path, nil
}

func (s *TempDirStore) Remove(ctx context.Context, key string) error {
	if err := os.Remove(key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	zap.L().Debug("removed temporary file", zap.String("path", key))
	return nil
}
