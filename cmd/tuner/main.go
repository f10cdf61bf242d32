package main

import (
	"Tuner/internal/logging"
	"log/slog"
	"os"
)

func main() {
	logger := logging.NewLogger(os.Stderr, slog.LevelInfo)
	if err := Execute(os.Args[1:], logger); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
