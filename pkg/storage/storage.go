package storage

import (
	"context"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store keeps uploaded images for the lifetime of a generation request.
type Store interface {
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
}

// objectName returns a fresh uuid name with an extension taken from the
// content type, falling back to the original file name.
func objectName(name, contentType string) string {
	ext := ""
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		ext = preferredExt(exts)
	}
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(name))
	}
	return uuid.NewString() + ext
}

func preferredExt(exts []string) string {
	for _, e := range exts {
		if e == ".png" || e == ".jpg" {
			return e
		}
	}
	return exts[0]
}
