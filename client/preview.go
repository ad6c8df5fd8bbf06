package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/ngamolsky/Curbd/pkg/imaging"
)

const DefaultPreviewSize = 256

// Preview is a displayable reference to a pending image. It must be released
// once the image leaves the pending set.
type Preview interface {
	Location() string
	Release() error
}

type Previewer interface {
	Acquire(img *PendingImage) (Preview, error)
}

// ThumbnailPreviewer writes a small JPEG per image into dir.
type ThumbnailPreviewer struct {
	dir     string
	maxSide int
}

func NewThumbnailPreviewer(dir string, maxSide int) *ThumbnailPreviewer {
	if dir == "" {
		dir = os.TempDir()
	}
	if maxSide <= 0 {
		maxSide = DefaultPreviewSize
	}
	return &ThumbnailPreviewer{dir: dir, maxSide: maxSide}
}

func (t *ThumbnailPreviewer) Acquire(img *PendingImage) (Preview, error) {
	decoded, _, err := imaging.Decode(img.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create preview for %s: %w", img.Name, err)
	}
	thumb, err := imaging.EncodeJPEG(imaging.Fit(decoded, t.maxSide), DefaultQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to create preview for %s: %w", img.Name, err)
	}
	path := filepath.Join(t.dir, "curbd-preview-"+uuid.NewString()+".jpg")
	if err := os.WriteFile(path, thumb, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write preview for %s: %w", img.Name, err)
	}
	return &filePreview{path: path}, nil
}

type filePreview struct {
	path string
	once sync.Once
	err  error
}

func (p *filePreview) Location() string {
	return p.path
}

// Release removes the thumbnail. Calling it again is a no-op.
func (p *filePreview) Release() error {
	p.once.Do(func() {
		if err := os.Remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			p.err = fmt.Errorf("failed to remove preview %s: %w", p.path, err)
		}
	})
	return p.err
}
