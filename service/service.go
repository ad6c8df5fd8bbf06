package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/ngamolsky/Curbd/config"
	"github.com/ngamolsky/Curbd/pkg/db"
	"github.com/ngamolsky/Curbd/pkg/events"
	"github.com/ngamolsky/Curbd/pkg/inference"
	"github.com/ngamolsky/Curbd/pkg/models"
	"github.com/ngamolsky/Curbd/pkg/notify"
	"github.com/ngamolsky/Curbd/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

type ImageAnalyzer interface {
	Analyze(ctx context.Context, key string, image []byte, contentType string) (*inference.ImageAnalysis, error)
}

type PostWriter interface {
	Write(ctx context.Context, descriptions []string, userInput string) (*models.GeneratedPost, float64, error)
}

// Service is the generate-post API. Optional backends (database, queue,
// mailer) stay nil when disabled.
type Service struct {
	cfg                *config.Config
	e                  *echo.Echo
	GenerationDatabase db.GenerationDatabase
	store              storage.Store
	analyzer           ImageAnalyzer
	writer             PostWriter
	publisher          events.Publisher
	notifier           notify.Notifier
	sqlDB              *sqlx.DB
}

func NewService(cfg *config.Config) *Service {
	return &Service{
		e:   echo.New(),
		cfg: cfg}
}

// StartService connects the configured backends and serves until ctx is done.
func (s *Service) StartService(ctx context.Context) error {
	if err := s.initBackends(ctx); err != nil {
		return err
	}
	defer s.closeBackends()

	s.setupRoutes()

	addr := s.cfg.Server.Host + s.cfg.Server.Port
	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server starting", zap.String("addr", addr))
		if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutdown signal received, initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	zap.L().Info("server gracefully stopped")
	return nil
}

func (s *Service) initBackends(ctx context.Context) error {
	if s.cfg.Server.APIKey == "" {
		zap.L().Warn("server.api_key is not set, every API request will be rejected")
	}

	if s.cfg.Postgres.Enabled {
		dB, err := sqlx.Open("postgres", fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			s.cfg.Postgres.Host, s.cfg.Postgres.Port, s.cfg.Postgres.Username, s.cfg.Postgres.Password, s.cfg.Postgres.Database))
		if err != nil {
			return fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		if err := dB.PingContext(ctx); err != nil {
			dB.Close()
			return fmt.Errorf("failed to ping Postgres: %w", err)
		}
		zap.L().Info("connected to Postgres", zap.String("database", s.cfg.Postgres.Database))
		s.sqlDB = dB
		s.GenerationDatabase, err = db.NewGenerationDatabase(s.cfg.Postgres.AutoCreate, dB)
		if err != nil {
			return fmt.Errorf("failed to initialize generation database: %w", err)
		}
	}

	if s.store == nil {
		var err error
		if s.cfg.Minio.Enabled {
			s.store, err = storage.NewMinioStore(ctx, s.cfg.Minio)
		} else {
			s.store, err = storage.NewTempDirStore(s.cfg.Storage.TempDir)
		}
		if err != nil {
			return err
		}
	}

	if s.cfg.RabbitMQ.Enabled {
		publisher, err := events.NewRabbitPublisher(s.cfg.RabbitMQ)
		if err != nil {
			return err
		}
		s.publisher = publisher
	}

	if s.cfg.Email.Enabled {
		s.notifier = notify.NewMailerSendNotifier(s.cfg.Email)
	}

	if s.analyzer == nil {
		s.analyzer = inference.NewCaptioner(s.cfg.HuggingFace)
	}
	if s.writer == nil {
		s.writer = inference.NewPostWriter(s.cfg.HuggingFace)
	}
	return nil
}

func (s *Service) closeBackends() {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			zap.L().Warn("failed to close publisher", zap.Error(err))
		}
	}
	if s.sqlDB != nil {
		if err := s.sqlDB.Close(); err != nil {
			zap.L().Warn("failed to close Postgres", zap.Error(err))
		}
	}
}

func (s *Service) setupRoutes() {
	s.e.HideBanner = true
	s.e.HTTPErrorHandler = httpErrorHandler
	s.e.Use(middleware.Logger())
	s.e.Use(middleware.Recover())
	if s.cfg.Server.BodyLimit != "" {
		s.e.Use(middleware.BodyLimit(s.cfg.Server.BodyLimit))
	}

	s.e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	v1 := s.e.Group("/api/v1", apiKeyAuth(s.cfg.Server.APIKey))
	v1.POST("/generate-post/", s.GeneratePost)
	v1.POST("/generate-post", s.GeneratePost)
	v1.GET("/generations/:id", s.GetGeneration)
}
