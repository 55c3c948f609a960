package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hamed0406/formprobe/internal/app"
	"github.com/hamed0406/formprobe/internal/config"
	"github.com/hamed0406/formprobe/internal/domain"
	"github.com/hamed0406/formprobe/internal/logging"
	"github.com/hamed0406/formprobe/internal/scheduler"
)

func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("config_invalid", zap.Error(err))
	}

	deps, err := app.Build(cfg, logger)
	if err != nil {
		logger.Fatal("startup_error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := scheduler.NewRunner(logger, func(ctx context.Context) (domain.ProbeResult, error) {
		return deps.RunOnce(ctx, cfg, logger)
	}, cfg.Schedule, cfg.Location(), cfg.RunTimeout())
	r.RunOnStart = cfg.RunOnStart

	if err := r.Run(ctx); err != nil {
		logger.Fatal("runner_error", zap.Error(err))
	}
}
