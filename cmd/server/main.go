package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/HiranMayiNathi23/ai-reading-companion/internal/app"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/config"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", map[string]any{
			"error": err.Error(),
		})
	}
	logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize app", map[string]any{
			"error": err.Error(),
		})
	}

	go func() {
		if err := application.Run(); err != nil {
			logger.Fatal("http server failed", map[string]any{
				"error": err.Error(),
			})
		}
	}()

	logger.Info("reading-companion started", map[string]any{
		"port": cfg.AppPort,
	})

	<-ctx.Done()

	logger.Info("shutdown signal received", nil)

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("graceful shutdown failed", map[string]any{
			"error": err.Error(),
		})
	}

	logger.Info("reading-companion stopped cleanly", nil)
}
