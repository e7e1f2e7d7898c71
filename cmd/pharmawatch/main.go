package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"PharmaWatch/internal/app"
	"PharmaWatch/internal/config"
	"PharmaWatch/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("cannot build application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("application exited")
}
