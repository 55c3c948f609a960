package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hamed0406/formprobe/internal/app"
	"github.com/hamed0406/formprobe/internal/config"
	"github.com/hamed0406/formprobe/internal/logging"
	"github.com/hamed0406/formprobe/internal/probe"
)

// exitInfra is returned when no verdict could be produced.
const exitInfra = 2

func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	os.Exit(run(cfg, logger))
}

func run(cfg config.Config, logger *zap.Logger) int {
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Error("config_invalid", zap.Error(err))
		return exitInfra
	}

	deps, err := app.Build(cfg, logger)
	if err != nil {
		logger.Error("startup_error", zap.Error(err))
		return exitInfra
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := deps.RunOnce(ctx, cfg, logger)
	if err != nil {
		if errors.Is(err, probe.ErrInfrastructure) {
			logger.Error("probe_aborted", zap.Error(err))
		} else {
			logger.Error("probe_error", zap.Error(err))
		}
		return exitInfra
	}
	return probe.ExitCode(res)
}
