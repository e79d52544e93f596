package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"camwatch/internal/app"
	"camwatch/internal/config"
	"camwatch/internal/logger"
)

func main() {
	cfg := config.MustLoad()

	logger := logger.NewLogger(cfg.LogDirectory)
	defer logger.Close()

	logger.Info("Starting camwatch (env %s)", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("Server stopped: %v", err)
		os.Exit(1)
	}
}
