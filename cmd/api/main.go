package main

import (
	"Tuner/internal/database"
	"Tuner/internal/helpers"
	"Tuner/internal/logging"
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := helpers.ReadConfig(os.Getenv("TUNER_CONFIG")); err != nil {
		logging.NewLogger(os.Stderr, logging.ParseLevel("info")).Error("cannot read configuration", "error", err)
		os.Exit(1)
	}
	cfg := helpers.Load()
	logger := logging.NewLogger(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	handler, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseConnStr, logger)
	if err != nil {
		logger.Error("cannot connect to database", "error", err)
		os.Exit(1)
	}
	defer handler.Close()
	if err := handler.Migrate(); err != nil {
		logger.Error("cannot migrate database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to catalog database", "driver", cfg.DatabaseDriver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := App{}
	a.Initialize(handler, logger)
	if err := a.Run(ctx, cfg.ServerAddr); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
