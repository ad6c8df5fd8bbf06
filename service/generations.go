package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ngamolsky/Curbd/pkg/models"
)

func (s *Service) GetGeneration(c echo.Context) error {
	if s.GenerationDatabase == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "Generation records are disabled")
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid generation id").SetInternal(err)
	}
	generation, err := s.GenerationDatabase.GetGenerationByID(c.Request().Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return echo.NewHTTPError(http.StatusNotFound, "Generation not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Error loading generation").SetInternal(err)
	}
	return c.JSON(http.StatusOK, generation)
}

// The helpers below never fail the request: records, events and mails are
// best effort.

func (s *Service) createGeneration(ctx context.Context, imageCount int, userInput string) int {
	if s.GenerationDatabase == nil {
		return 0
	}
	id, err := s.GenerationDatabase.CreateGeneration(ctx, imageCount, userInput)
	if err != nil {
		zap.L().Error("failed to create generation record", zap.Error(err))
		return 0
	}
	return id
}

func (s *Service) failGeneration(ctx context.Context, id int) {
	if s.GenerationDatabase == nil || id == 0 {
		return
	}
	if err := s.GenerationDatabase.FailGeneration(ctx, id); err != nil {
		zap.L().Error("failed to mark generation failed", zap.Int("generation_id", id), zap.Error(err))
	}
}

func (s *Service) completeGeneration(ctx context.Context, id int, resp models.PostGenerationResponse) {
	if s.GenerationDatabase == nil || id == 0 {
		return
	}
	if err := s.GenerationDatabase.CompleteGeneration(ctx, id, resp.Post, resp.TotalCost); err != nil {
		zap.L().Error("failed to complete generation record", zap.Int("generation_id", id), zap.Error(err))
	}
}

func (s *Service) publishGenerated(ctx context.Context, resp models.PostGenerationResponse) {
	if s.publisher == nil {
		return
	}
	event := models.PostGeneratedEvent{
		GenerationID: resp.GenerationID,
		Title:        resp.Post.Title,
		Hashtags:     resp.Post.NormalizedHashtags(),
		ImageCount:   resp.ImageCount,
		TotalCost:    resp.TotalCost,
		GeneratedAt:  time.Now().UTC(),
	}
	if err := s.publisher.PublishPostGenerated(ctx, event); err != nil {
		zap.L().Error("failed to publish post generated event", zap.Error(err))
	}
}

func (s *Service) notifyRecipient(ctx context.Context, to string, post models.GeneratedPost) {
	if s.notifier == nil || to == "" {
		return
	}
	if err := s.notifier.SendPost(ctx, to, post); err != nil {
		zap.L().Error("failed to send post email", zap.String("to", to), zap.Error(err))
	}
}
