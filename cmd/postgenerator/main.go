package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ngamolsky/Curbd/config"
	"github.com/ngamolsky/Curbd/service"
)

func main() {
	configPath := pflag.StringP("config", "c", envOr("POSTGEN_CONFIG", "./config/config.yaml"), "path to the yaml config file")
	pflag.Parse()

	cfg, err := config.InitConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Log.Development)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	generationService := service.NewService(cfg)
	if err := generationService.StartService(ctx); err != nil {
		zap.L().Fatal("failed to run generation service", zap.Error(err))
	}
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
