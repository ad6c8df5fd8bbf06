package client

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"
)

func TestThumbnailPreviewer(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	p := NewThumbnailPreviewer(dir, 32)

	preview, err := p.Acquire(pngImage("wide.png", 128, 64))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(filepath.Dir(preview.Location())).To(Equal(dir))

	data, err := os.ReadFile(preview.Location())
	g.Expect(err).NotTo(HaveOccurred())
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(format).To(Equal("jpeg"))
	g.Expect(cfg.Width).To(Equal(32))
	g.Expect(cfg.Height).To(Equal(16))

	g.Expect(preview.Release()).To(Succeed())
	g.Expect(preview.Location()).NotTo(BeAnExistingFile())
	g.Expect(preview.Release()).To(Succeed())
}

func TestThumbnailPreviewerRejectsGarbage(t *testing.T) {
	g := NewWithT(t)
	_, err := NewThumbnailPreviewer(t.TempDir(), 0).Acquire(&PendingImage{Name: "x.png", Data: []byte("nope")})
	g.Expect(err).To(MatchError(ContainSubstring("failed to create preview for x.png")))
}
