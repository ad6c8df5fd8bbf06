package client

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/ngamolsky/Curbd/pkg/imaging"
)

const (
	DefaultMaxImageSize = 1 << 20
	DefaultScaleFactor  = 0.7
	DefaultQuality      = 80
)

// Compressor shrinks images above Threshold bytes. The scale and quality are
// fixed, so a compressed image can still be larger than Threshold.
type Compressor struct {
	Threshold int
	Scale     float64
	Quality   int
}

func NewCompressor(threshold int, scale float64, quality int) *Compressor {
	if threshold <= 0 {
		threshold = DefaultMaxImageSize
	}
	if scale <= 0 || scale > 1 {
		scale = DefaultScaleFactor
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Compressor{Threshold: threshold, Scale: scale, Quality: quality}
}

// Compress returns img itself when it is within the threshold, otherwise a new
// JPEG-encoded image with the same name. img is never modified.
func (c *Compressor) Compress(img *PendingImage) (*PendingImage, error) {
	if img.Size() <= c.Threshold {
		return img, nil
	}
	res, err := imaging.Downscale(img.Data, c.Scale, c.Quality)
	if err != nil {
		return nil, fmt.Errorf("failed to compress %s: %w", img.Name, err)
	}

	zap.L().Info("compressed image",
		zap.String("name", img.Name),
		zap.String("original_size", humanize.IBytes(uint64(img.Size()))),
		zap.String("compressed_size", humanize.IBytes(uint64(len(res.Data)))),
		zap.String("ratio", fmt.Sprintf("%.2f%%", float64(len(res.Data))/float64(img.Size())*100)),
	)

	return &PendingImage{
		Name:     img.Name,
		MIMEType: res.ContentType(),
		Data:     res.Data,
		ModTime:  time.Now(),
	}, nil
}
