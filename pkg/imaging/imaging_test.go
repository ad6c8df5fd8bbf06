package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	. "github.com/onsi/gomega"
)

func noisyImage(w, h int) *image.RGBA {
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestDownscale(t *testing.T) {
	g := NewWithT(t)
	src := encodePNG(t, noisyImage(100, 50))

	res, err := Downscale(src, 0.7, 80)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(res.Format).To(Equal(FormatJPEG))
	g.Expect(res.ContentType()).To(Equal("image/jpeg"))
	g.Expect(res.Width).To(Equal(70))
	g.Expect(res.Height).To(Equal(35))

	cfg, format, err := image.DecodeConfig(bytes.NewReader(res.Data))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(format).To(Equal("jpeg"))
	g.Expect(cfg.Width).To(Equal(70))
	g.Expect(cfg.Height).To(Equal(35))
}

func TestDownscaleKeepsOnePixel(t *testing.T) {
	g := NewWithT(t)
	res, err := Downscale(encodePNG(t, noisyImage(1, 1)), 0.5, 80)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(res.Width).To(Equal(1))
	g.Expect(res.Height).To(Equal(1))
}

func TestDownscaleRejectsGarbage(t *testing.T) {
	g := NewWithT(t)
	_, err := Downscale([]byte("definitely not an image"), 0.7, 80)
	g.Expect(err).To(MatchError(ContainSubstring("failed to decode image")))
}

func TestFit(t *testing.T) {
	g := NewWithT(t)
	small := noisyImage(10, 20)
	g.Expect(Fit(small, 64)).To(BeIdenticalTo(small))

	fitted := Fit(noisyImage(400, 200), 100)
	g.Expect(fitted.Bounds().Dx()).To(Equal(100))
	g.Expect(fitted.Bounds().Dy()).To(Equal(50))
}

func TestNormalizeConvertsToPNG(t *testing.T) {
	g := NewWithT(t)
	res, err := Normalize(encodeJPEG(t, noisyImage(32, 16)), 4<<20)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(res.Format).To(Equal(FormatPNG))
	g.Expect(res.Width).To(Equal(32))
	g.Expect(res.Height).To(Equal(16))

	_, format, err := image.DecodeConfig(bytes.NewReader(res.Data))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(format).To(Equal("png"))
}

func TestNormalizeKeepsSmallPNG(t *testing.T) {
	g := NewWithT(t)
	src := encodePNG(t, noisyImage(16, 16))
	res, err := Normalize(src, 4<<20)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(res.Data).To(Equal(src))
}

func TestNormalizeShrinksUntilItFits(t *testing.T) {
	g := NewWithT(t)
	src := encodePNG(t, noisyImage(300, 300))
	limit := len(src) / 3

	res, err := Normalize(src, limit)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(len(res.Data)).To(BeNumerically("<=", limit))
	g.Expect(res.Width).To(BeNumerically("<", 300))
	g.Expect(res.Width).To(Equal(res.Height))
}
