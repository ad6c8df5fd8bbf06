package client

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"time"
)

// noisyPNG encodes a w x h image of random opaque pixels; noise keeps the PNG
// roughly 3 bytes per pixel so sizes are predictable.
func noisyPNG(w, h int) []byte {
	rng := rand.New(rand.NewSource(int64(w*h + 1)))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func pngImage(name string, w, h int) *PendingImage {
	return &PendingImage{
		Name:     name,
		MIMEType: "image/png",
		Data:     noisyPNG(w, h),
		ModTime:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
