package client

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega"
)

func TestCompressPassesSmallImagesThrough(t *testing.T) {
	g := NewWithT(t)
	img := pngImage("small.png", 8, 8)
	c := NewCompressor(img.Size(), 0.7, 80)

	out, err := c.Compress(img)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(out).To(BeIdenticalTo(img))
}

func TestCompressReencodesLargeImages(t *testing.T) {
	g := NewWithT(t)
	img := pngImage("big.png", 100, 50)
	original := append([]byte(nil), img.Data...)
	c := NewCompressor(1024, 0.7, 80)

	before := time.Now()
	out, err := c.Compress(img)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(out).NotTo(BeIdenticalTo(img))
	g.Expect(out.Name).To(Equal("big.png"))
	g.Expect(out.MIMEType).To(Equal("image/jpeg"))
	g.Expect(out.ModTime).To(BeTemporally(">=", before))
	g.Expect(out.Data).NotTo(Equal(original))
	g.Expect(img.Data).To(Equal(original))

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out.Data))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(format).To(Equal("jpeg"))
	g.Expect(cfg.Width).To(Equal(70))
	g.Expect(cfg.Height).To(Equal(35))
}

func TestCompressSurfacesDecodeErrors(t *testing.T) {
	g := NewWithT(t)
	c := NewCompressor(4, 0.7, 80)
	_, err := c.Compress(&PendingImage{Name: "broken.jpg", MIMEType: "image/jpeg", Data: []byte("not really a jpeg")})
	g.Expect(err).To(MatchError(ContainSubstring("failed to compress broken.jpg")))
}

func TestNewCompressorDefaults(t *testing.T) {
	g := NewWithT(t)
	c := NewCompressor(0, 0, 0)
	g.Expect(c.Threshold).To(Equal(DefaultMaxImageSize))
	g.Expect(c.Scale).To(Equal(DefaultScaleFactor))
	g.Expect(c.Quality).To(Equal(DefaultQuality))
}

func TestLoadImageFile(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	g.Expect(os.WriteFile(path, noisyPNG(4, 4), 0o600)).To(Succeed())

	img, err := LoadImageFile(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(img.Name).To(Equal("photo.png"))
	g.Expect(img.MIMEType).To(Equal("image/png"))
	g.Expect(img.ModTime.IsZero()).To(BeFalse())

	notes := filepath.Join(dir, "notes.txt")
	g.Expect(os.WriteFile(notes, []byte("hello"), 0o600)).To(Succeed())
	_, err = LoadImageFile(notes)
	g.Expect(err).To(MatchError(ErrNotImage))

	_, err = LoadImageFile(filepath.Join(dir, "missing.png"))
	g.Expect(err).To(HaveOccurred())
}
