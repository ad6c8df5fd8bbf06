package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/ngamolsky/Curbd/pkg/imaging"
	"github.com/ngamolsky/Curbd/pkg/inference"
	"github.com/ngamolsky/Curbd/pkg/models"
)

// upload is one normalized image saved to the store for the current request.
type upload struct {
	key         string
	name        string
	contentType string
	data        []byte
}

// errInvalidImage marks an upload that could not be decoded.
type errInvalidImage struct {
	index int
	name  string
	err   error
}

func (e *errInvalidImage) Error() string {
	return fmt.Sprintf("image %d (%s) is not a valid image: %v", e.index, e.name, e.err)
}

func (e *errInvalidImage) Unwrap() error {
	return e.err
}

func (s *Service) GeneratePost(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["images"]) == 0 {
		return c.JSON(http.StatusUnprocessableEntity, missingImages())
	}
	files := form.File["images"]
	userInput := c.FormValue("user_input")
	notifyEmail := c.FormValue("notify_email")
	ctx := c.Request().Context()
	timing := map[string]float64{}

	generationID := s.createGeneration(ctx, len(files), userInput)

	start := time.Now()
	uploads, err := s.saveUploadedImages(ctx, files)
	timing["image_uploading"] = time.Since(start).Seconds()
	if !s.cfg.Storage.KeepUploads {
		defer s.cleanupUploads(uploads)
	}
	if err != nil {
		s.failGeneration(ctx, generationID)
		var invalid *errInvalidImage
		if errors.As(err, &invalid) {
			zap.L().Warn("rejected upload", zap.Error(err))
			return c.JSON(http.StatusUnprocessableEntity, invalidImage(invalid.index, "Invalid image"))
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Error saving images").SetInternal(err)
	}

	start = time.Now()
	analyses, err := iter.MapErr(uploads, func(u *upload) (*inference.ImageAnalysis, error) {
		return s.analyzer.Analyze(ctx, u.key, u.data, u.contentType)
	})
	timing["image_processing"] = time.Since(start).Seconds()
	if err != nil {
		s.failGeneration(ctx, generationID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Error analyzing images").SetInternal(err)
	}

	var imageCost float64
	descriptions := make([]string, 0, len(analyses))
	for i, a := range analyses {
		imageCost += a.Cost
		descriptions = append(descriptions, a.Description)
		zap.L().Info("image analysis result", zap.Int("image", i+1), zap.String("description", a.Description))
	}

	start = time.Now()
	post, postCost, err := s.writer.Write(ctx, descriptions, userInput)
	timing["post_generation"] = time.Since(start).Seconds()
	if err != nil {
		s.failGeneration(ctx, generationID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Error generating post").SetInternal(err)
	}
	timing["total"] = timing["image_uploading"] + timing["image_processing"] + timing["post_generation"]

	resp := models.PostGenerationResponse{
		Post:                *post,
		ImageCount:          len(files),
		TotalCost:           imageCost + postCost,
		ImageProcessingCost: imageCost,
		PostGenerationCost:  postCost,
		TimingInfo:          timing,
		GenerationID:        generationID,
	}
	zap.L().Info("generated post",
		zap.Int("generation_id", generationID),
		zap.String("title", post.Title),
		zap.Int("image_count", resp.ImageCount),
		zap.Float64("total_cost", resp.TotalCost),
		zap.Any("timing_info", timing),
	)

	s.completeGeneration(ctx, generationID, resp)
	s.publishGenerated(ctx, resp)
	s.notifyRecipient(ctx, notifyEmail, resp.Post)

	return c.JSON(http.StatusOK, resp)
}

// saveUploadedImages normalizes every upload and writes it to the store. On
// error the uploads saved so far are still returned so they can be cleaned up.
func (s *Service) saveUploadedImages(ctx context.Context, files []*multipart.FileHeader) ([]upload, error) {
	uploads := make([]upload, 0, len(files))
	for i, fh := range files {
		data, err := readFormFile(fh)
		if err != nil {
			return uploads, err
		}

		res, err := imaging.Normalize(data, s.cfg.Generation.MaxImageBytes)
		if err != nil {
			return uploads, &errInvalidImage{index: i, name: fh.Filename, err: err}
		}
		zap.L().Info("processed image",
			zap.String("name", fh.Filename),
			zap.String("initial_format", fh.Header.Get("Content-Type")),
			zap.String("initial_size", humanize.IBytes(uint64(len(data)))),
			zap.String("final_size", humanize.IBytes(uint64(len(res.Data)))),
			zap.Int("width", res.Width),
			zap.Int("height", res.Height),
		)

		key, err := s.store.Save(ctx, fh.Filename, res.Data, res.ContentType())
		if err != nil {
			return uploads, err
		}
		uploads = append(uploads, upload{key: key, name: fh.Filename, contentType: res.ContentType(), data: res.Data})
		zap.L().Info("saved image", zap.Int("image", i+1), zap.Int("of", len(files)), zap.String("key", key))
	}
	return uploads, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	return data, nil
}

func (s *Service) cleanupUploads(uploads []upload) {
	// the request context may already be cancelled here
	ctx := context.Background()
	for _, u := range uploads {
		if err := s.store.Remove(ctx, u.key); err != nil {
			zap.L().Warn("failed to remove upload", zap.String("key", u.key), zap.Error(err))
		}
	}
}
