package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

var ErrNotImage = errors.New("not an image")

// PendingImage is an accepted image waiting to be submitted.
type PendingImage struct {
	Name     string
	MIMEType string
	Data     []byte
	ModTime  time.Time
}

func (p *PendingImage) Size() int {
	return len(p.Data)
}

// LoadImageFile reads path into a PendingImage, sniffing the MIME type from its content.
func LoadImageFile(path string) (*PendingImage, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%s (%s): %w", filepath.Base(path), mt.String(), ErrNotImage)
	}
	return &PendingImage{
		Name:     filepath.Base(path),
		MIMEType: mt.String(),
		Data:     data,
		ModTime:  info.ModTime(),
	}, nil
}
