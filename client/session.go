package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ngamolsky/Curbd/config"
	"github.com/ngamolsky/Curbd/pkg/models"
)

type SubmissionState int

const (
	StateIdle SubmissionState = iota
	StateLoading
	StateSucceeded
	StateFailed
)

func (s SubmissionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("SubmissionState(%d)", int(s))
}

// User-facing messages. Causes are logged, not shown.
const (
	MsgProcessingFailed = "Error processing images. Please try again."
	MsgGenerationFailed = "Error generating post. Please try again."
)

var (
	ErrNoImages           = errors.New("no images to submit")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	ErrAlreadySucceeded   = errors.New("post already generated, reset first")
	ErrNoSuchImage        = errors.New("no such image")
	ErrSessionReset       = errors.New("session was reset while the submission was in flight")
)

type Config struct {
	BaseURL      string
	APIKey       string
	MaxImageSize int
	ScaleFactor  float64
	Quality      int
	PreviewDir   string
	PreviewSize  int
}

func NewConfig(c *config.Client) Config {
	return Config{
		BaseURL:      c.BaseURL(),
		APIKey:       c.APIKey,
		MaxImageSize: c.MaxImageSize,
		ScaleFactor:  c.ScaleFactor,
		Quality:      c.Quality,
		PreviewDir:   c.PreviewDir,
		PreviewSize:  c.PreviewSize,
	}
}

type Option func(*Session)

func WithGenerator(g Generator) Option {
	return func(s *Session) { s.generator = g }
}

func WithPreviewer(p Previewer) Option {
	return func(s *Session) { s.previewer = p }
}

// entry owns a pending image and its preview, so the two are always added
// and removed together.
type entry struct {
	image   *PendingImage
	preview Preview
}

// Session is the upload form: pending images, instructions and the state of
// the single generate request.
type Session struct {
	mu        sync.Mutex
	pipeline  *Pipeline
	generator Generator
	previewer Previewer

	entries  []entry
	input    string
	state    SubmissionState
	post     *models.GeneratedPost
	response *models.PostGenerationResponse
	errMsg   string
	// discard is set when Reset runs while a request is in flight.
	discard bool
}

func NewSession(cfg Config, opts ...Option) *Session {
	s := &Session{
		pipeline: NewPipeline(NewCompressor(cfg.MaxImageSize, cfg.ScaleFactor, cfg.Quality)),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.generator == nil {
		s.generator = NewAPIClient(cfg.BaseURL, cfg.APIKey)
	}
	if s.previewer == nil {
		s.previewer = NewThumbnailPreviewer(cfg.PreviewDir, cfg.PreviewSize)
	}
	return s
}

// AddImages runs the pipeline over files and appends every image that made it
// through, each with a fresh preview. Failures are joined into the returned
// error; successful files are kept regardless.
func (s *Session) AddImages(files []*PendingImage) error {
	s.mu.Lock()
	if s.state == StateSucceeded {
		s.mu.Unlock()
		return ErrAlreadySucceeded
	}
	s.mu.Unlock()

	var (
		accepted []entry
		errs     []error
	)
	for _, out := range s.pipeline.Process(files) {
		if out.Err != nil {
			errs = append(errs, out.Err)
			continue
		}
		preview, err := s.previewer.Acquire(out.Image)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		accepted = append(accepted, entry{image: out.Image, preview: preview})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSucceeded {
		releaseAll(accepted)
		return ErrAlreadySucceeded
	}
	s.entries = append(s.entries, accepted...)
	if len(errs) > 0 {
		err := errors.Join(errs...)
		zap.L().Error("Error processing images", zap.Int("failed", len(errs)), zap.Int("accepted", len(accepted)), zap.Error(err))
		s.errMsg = MsgProcessingFailed
		return err
	}
	return nil
}

// RemoveImage drops pending image i and releases its preview.
func (s *Session) RemoveImage(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSucceeded {
		return ErrAlreadySucceeded
	}
	if i < 0 || i >= len(s.entries) {
		return fmt.Errorf("%w: %d", ErrNoSuchImage, i)
	}
	e := s.entries[i]
	s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
	return e.preview.Release()
}

func (s *Session) SetInput(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSucceeded {
		return ErrAlreadySucceeded
	}
	s.input = text
	return nil
}

// CanSubmit reports whether the submit control is enabled.
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canSubmit()
}

func (s *Session) canSubmit() bool {
	return len(s.entries) > 0 && s.state != StateLoading && s.state != StateSucceeded
}

// Submit sends every pending image and the current instructions to the
// generator. Only one submission can be in flight.
func (s *Session) Submit(ctx context.Context) (*models.GeneratedPost, error) {
	s.mu.Lock()
	switch {
	case s.state == StateLoading:
		s.mu.Unlock()
		return nil, ErrSubmissionInFlight
	case s.state == StateSucceeded:
		s.mu.Unlock()
		return nil, ErrAlreadySucceeded
	case len(s.entries) == 0:
		s.mu.Unlock()
		return nil, ErrNoImages
	}
	images := make([]*PendingImage, len(s.entries))
	for i, e := range s.entries {
		images[i] = e.image
	}
	input := s.input
	s.state = StateLoading
	s.errMsg = ""
	s.mu.Unlock()

	resp, err := s.generator.GeneratePost(ctx, images, input)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.discard {
		s.discard = false
		s.state = StateIdle
		return nil, ErrSessionReset
	}
	if err != nil {
		zap.L().Error("Error generating post", zap.Int("images", len(images)), zap.Error(err))
		s.state = StateFailed
		s.errMsg = MsgGenerationFailed
		return nil, err
	}

	post := models.GeneratedPost{
		Title:       resp.Post.Title,
		Description: resp.Post.Description,
		Hashtags:    resp.Post.NormalizedHashtags(),
	}
	s.post = &post
	s.response = resp
	s.state = StateSucceeded
	zap.L().Debug("generation metadata",
		zap.Int("image_count", resp.ImageCount),
		zap.Float64("total_cost", resp.TotalCost),
		zap.Any("timing_info", resp.TimingInfo),
	)
	out := post
	out.Hashtags = append([]string(nil), post.Hashtags...)
	return &out, nil
}

// Reset clears images, previews, instructions, result and error. A request in
// flight is left to finish and its outcome is dropped.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := releaseAll(s.entries)
	s.entries = nil
	s.input = ""
	s.post = nil
	s.response = nil
	s.errMsg = ""
	if s.state == StateLoading {
		s.discard = true
	} else {
		s.state = StateIdle
	}
	return err
}

// Close releases every preview. The session should not be used afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := releaseAll(s.entries)
	s.entries = nil
	return err
}

// Snapshot is a copy of everything the form renders.
type Snapshot struct {
	State     SubmissionState
	Images    []*PendingImage
	Previews  []string
	Input     string
	Post      *models.GeneratedPost
	Response  *models.PostGenerationResponse
	Error     string
	CanSubmit bool
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:     s.state,
		Images:    make([]*PendingImage, len(s.entries)),
		Previews:  make([]string, len(s.entries)),
		Input:     s.input,
		Response:  s.response,
		Error:     s.errMsg,
		CanSubmit: s.canSubmit(),
	}
	for i, e := range s.entries {
		snap.Images[i] = e.image
		snap.Previews[i] = e.preview.Location()
	}
	if s.post != nil {
		post := *s.post
		post.Hashtags = append([]string(nil), s.post.Hashtags...)
		snap.Post = &post
	}
	return snap
}

func releaseAll(entries []entry) error {
	var errs []error
	for _, e := range entries {
		if err := e.preview.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		zap.L().Warn("failed to release previews", zap.Error(err))
		return err
	}
	return nil
}
