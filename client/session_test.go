package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ngamolsky/Curbd/pkg/models"
)

type fakePreview struct {
	location string
	released int
}

func (p *fakePreview) Location() string { return p.location }

func (p *fakePreview) Release() error {
	p.released++
	return nil
}

type fakePreviewer struct {
	mu       sync.Mutex
	previews []*fakePreview
}

func (f *fakePreviewer) Acquire(img *PendingImage) (Preview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &fakePreview{location: fmt.Sprintf("preview://%d/%s", len(f.previews), img.Name)}
	f.previews = append(f.previews, p)
	return p, nil
}

func (f *fakePreviewer) live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.previews {
		if p.released == 0 {
			n++
		}
	}
	return n
}

type generateCall struct {
	images []*PendingImage
	input  string
}

type fakeGenerator struct {
	calls   chan generateCall
	replies chan error
	resp    *models.PostGenerationResponse
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		calls:   make(chan generateCall, 1),
		replies: make(chan error, 1),
		resp: &models.PostGenerationResponse{
			Post: models.GeneratedPost{
				Title:       "Free oak desk",
				Description: "Solid desk, a few scratches.",
				Hashtags:    []string{"free", "#desk", " curbalert"},
			},
			ImageCount: 1,
			TotalCost:  0.01,
		},
	}
}

func (f *fakeGenerator) GeneratePost(ctx context.Context, images []*PendingImage, userInput string) (*models.PostGenerationResponse, error) {
	f.calls <- generateCall{images: images, input: userInput}
	if err := <-f.replies; err != nil {
		return nil, err
	}
	return f.resp, nil
}

var _ = Describe("Session", func() {
	var (
		gen       *fakeGenerator
		previewer *fakePreviewer
		session   *Session
	)

	submitAsync := func() chan error {
		done := make(chan error, 1)
		go func() {
			_, err := session.Submit(context.Background())
			done <- err
		}()
		Eventually(gen.calls).Should(Receive())
		return done
	}

	BeforeEach(func() {
		gen = newFakeGenerator()
		previewer = &fakePreviewer{}
		session = NewSession(Config{MaxImageSize: 1 << 20}, WithGenerator(gen), WithPreviewer(previewer))
	})

	It("starts idle with nothing to submit", func() {
		snap := session.Snapshot()
		Expect(snap.State).To(Equal(StateIdle))
		Expect(snap.Images).To(BeEmpty())
		Expect(snap.CanSubmit).To(BeFalse())
	})

	Context("accepting images", func() {
		It("keeps images and previews aligned", func() {
			Expect(session.AddImages([]*PendingImage{pngImage("a.png", 4, 4), pngImage("b.png", 4, 4)})).To(Succeed())
			Expect(session.AddImages([]*PendingImage{pngImage("c.png", 4, 4)})).To(Succeed())

			snap := session.Snapshot()
			Expect(snap.Images).To(HaveLen(3))
			Expect(snap.Previews).To(HaveLen(3))
			for i, img := range snap.Images {
				Expect(snap.Previews[i]).To(HaveSuffix(img.Name))
			}
			Expect(snap.CanSubmit).To(BeTrue())
		})

		It("keeps the good files when one fails", func() {
			session = NewSession(Config{MaxImageSize: 16}, WithGenerator(gen), WithPreviewer(previewer))
			broken := &PendingImage{Name: "broken.png", MIMEType: "image/png", Data: make([]byte, 64)}

			err := session.AddImages([]*PendingImage{pngImage("a.png", 4, 4), broken, pngImage("c.png", 4, 4)})
			Expect(err).To(MatchError(ContainSubstring("broken.png")))

			snap := session.Snapshot()
			Expect(snap.Images).To(HaveLen(2))
			Expect(snap.Previews).To(HaveLen(2))
			Expect(snap.Images[0].Name).To(Equal("a.png"))
			Expect(snap.Images[1].Name).To(Equal("c.png"))
			Expect(snap.Error).To(Equal(MsgProcessingFailed))
			Expect(snap.State).To(Equal(StateIdle))
		})

		It("releases the preview of a removed image", func() {
			Expect(session.AddImages([]*PendingImage{pngImage("a.png", 4, 4), pngImage("b.png", 4, 4)})).To(Succeed())
			Expect(session.RemoveImage(0)).To(Succeed())

			snap := session.Snapshot()
			Expect(snap.Images).To(HaveLen(1))
			Expect(snap.Images[0].Name).To(Equal("b.png"))
			Expect(snap.Previews).To(HaveLen(1))
			Expect(previewer.previews[0].released).To(Equal(1))
			Expect(previewer.live()).To(Equal(1))

			Expect(session.RemoveImage(5)).To(MatchError(ErrNoSuchImage))
		})
	})

	Context("submitting", func() {
		It("refuses to submit without images", func() {
			_, err := session.Submit(context.Background())
			Expect(err).To(MatchError(ErrNoImages))
			Expect(session.Snapshot().State).To(Equal(StateIdle))
			Expect(gen.calls).NotTo(Receive())
		})

		It("sends the images and text and stores the normalized post", func() {
			Expect(session.AddImages([]*PendingImage{pngImage("a.png", 4, 4)})).To(Succeed())
			Expect(session.SetInput("pick up by Friday")).To(Succeed())

			gen.replies <- nil
			post, err := session.Submit(context.Background())
			Expect(err).NotTo(HaveOccurred())

			var call generateCall
			Expect(gen.calls).To(Receive(&call))
			Expect(call.images).To(HaveLen(1))
			Expect(call.input).To(Equal("pick up by Friday"))

			Expect(post.Title).To(Equal("Free oak desk"))
			Expect(post.Hashtags).To(Equal([]string{"#free", "#desk", "#curbalert"}))

			snap := session.Snapshot()
			Expect(snap.State).To(Equal(StateSucceeded))
			Expect(snap.Post).To(Equal(post))
			Expect(snap.Response.TotalCost).To(Equal(0.01))
			Expect(snap.CanSubmit).To(BeFalse())
			Expect(session.SetInput("more")).To(MatchError(ErrAlreadySucceeded))
			_, err = session.Submit(context.Background())
			Expect(err).To(MatchError(ErrAlreadySucceeded))
		})

		It("allows only one request in flight", func() {
			Expect(session.AddImages([]*PendingImage{pngImage("a.png", 4, 4)})).To(Succeed())
			done := submitAsync()

			Expect(session.Snapshot().State).To(Equal(StateLoading))
			Expect(session.CanSubmit()).To(BeFalse())
			_, err := session.Submit(context.Background())
			Expect(err).To(MatchError(ErrSubmissionInFlight))

			gen.replies <- nil
			Eventually(done).Should(Receive(BeNil()))
			Expect(session.Snapshot().State).To(Equal(StateSucceeded))
		})

		It("keeps the form intact after a failure and allows resubmitting", func() {
			Expect(session.AddImages([]*PendingImage{pngImage("a.png", 4, 4)})).To(Succeed())
			Expect(session.SetInput("keep me")).To(Succeed())

			gen.replies <- errors.New("connection refused")
			_, err := session.Submit(context.Background())
			Expect(err).To(MatchError("connection refused"))
			Eventually(gen.calls).Should(Receive())

			snap := session.Snapshot()
			Expect(snap.State).To(Equal(StateFailed))
			Expect(snap.Error).To(Equal(MsgGenerationFailed))
			Expect(snap.Images).To(HaveLen(1))
			Expect(snap.Input).To(Equal("keep me"))
			Expect(snap.Post).To(BeNil())
			Expect(snap.CanSubmit).To(BeTrue())

			gen.replies <- nil
			_, err = session.Submit(context.Background())
			Expect(err).NotTo(HaveOccurred())
			snap = session.Snapshot()
			Expect(snap.State).To(Equal(StateSucceeded))
			Expect(snap.Error).To(BeEmpty())
		})
	})

	Context("resetting", func() {
		expectCleared := func() {
			snap := session.Snapshot()
			Expect(snap.State).To(Equal(StateIdle))
			Expect(snap.Images).To(BeEmpty())
			Expect(snap.Previews).To(BeEmpty())
			Expect(snap.Input).To(BeEmpty())
			Expect(snap.Post).To(BeNil())
			Expect(snap.Error).To(BeEmpty())
			Expect(previewer.live()).To(BeZero())
		}

		It("clears everything after a success", func() {
			Expect(session.AddImages([]*PendingImage{pngImage("a.png", 4, 4), pngImage("b.png", 4, 4)})).To(Succeed())
			Expect(session.SetInput("text")).To(Succeed())
			gen.replies <- nil
			_, err := session.Submit(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(session.Reset()).To(Succeed())
			expectCleared()
		})

		It("clears everything after a failure", func() {
			Expect(session.AddImages([]*PendingImage{pngImage("a.png", 4, 4)})).To(Succeed())
			gen.replies <- errors.New("502")
			_, err := session.Submit(context.Background())
			Expect(err).To(HaveOccurred())

			Expect(session.Reset()).To(Succeed())
			expectCleared()
		})

		It("clears an idle form", func() {
			Expect(session.AddImages([]*PendingImage{pngImage("a.png", 4, 4)})).To(Succeed())
			Expect(session.SetInput("text")).To(Succeed())
			Expect(session.Reset()).To(Succeed())
			expectCleared()
		})

		It("drops the outcome of a request that was in flight", func() {
			Expect(session.AddImages([]*PendingImage{pngImage("a.png", 4, 4)})).To(Succeed())
			done := submitAsync()

			Expect(session.Reset()).To(Succeed())
			Expect(session.Snapshot().State).To(Equal(StateLoading))
			Expect(session.Snapshot().Images).To(BeEmpty())

			gen.replies <- nil
			Eventually(done).Should(Receive(MatchError(ErrSessionReset)))
			expectCleared()
		})
	})

	It("releases every preview on close", func() {
		Expect(session.AddImages([]*PendingImage{pngImage("a.png", 4, 4), pngImage("b.png", 4, 4)})).To(Succeed())
		Expect(session.Close()).To(Succeed())
		Expect(previewer.live()).To(BeZero())
	})
})
