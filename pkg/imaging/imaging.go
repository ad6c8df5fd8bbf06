package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
)

// Result is a re-encoded image.
type Result struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// ContentType returns the MIME type of the encoded data.
func (r *Result) ContentType() string {
	return "image/" + r.Format
}

func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// Scale resizes img by factor on both axes. Neither side drops below one pixel.
func Scale(img image.Image, factor float64) image.Image {
	src := img.Bounds()
	w := max(int(float64(src.Dx())*factor), 1)
	h := max(int(float64(src.Dy())*factor), 1)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	return dst
}

// Fit resizes img so that its longest side is at most maxSide, keeping the aspect ratio.
func Fit(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	longest := max(b.Dx(), b.Dy())
	if longest <= maxSide {
		return img
	}
	return Scale(img, float64(maxSide)/float64(longest))
}

func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Downscale decodes data, shrinks it by factor and re-encodes it as JPEG at the given quality.
// The size of the output is not checked against anything.
func Downscale(data []byte, factor float64, quality int) (*Result, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	scaled := Scale(img, factor)
	out, err := EncodeJPEG(scaled, quality)
	if err != nil {
		return nil, err
	}
	b := scaled.Bounds()
	return &Result{Data: out, Format: FormatJPEG, Width: b.Dx(), Height: b.Dy()}, nil
}
