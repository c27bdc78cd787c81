package app

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/HiranMayiNathi23/ai-reading-companion/internal/config"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/logger"
)

type App struct {
	httpServer *http.Server
	reaper     func(ctx context.Context)
	flush      func(ctx context.Context) error

	bgCtx   context.Context
	stop    context.CancelFunc
	started atomic.Bool
	done    chan struct{}
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	router, infra, err := setupHTTP(ctx, cfg)
	if err != nil {
		return nil, err
	}

	server := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	bgCtx, stop := context.WithCancel(context.Background())
	return &App{
		httpServer: server,
		reaper:     infra.Reaper.Run,
		flush:      infra.FlushTelemetry,
		bgCtx:      bgCtx,
		stop:       stop,
		done:       make(chan struct{}),
	}, nil
}

// Run starts the expiry reaper and serves HTTP until Shutdown.
func (a *App) Run() error {
	if a.started.CompareAndSwap(false, true) {
		go func() {
			defer close(a.done)
			a.reaper(a.bgCtx)
		}()
	}

	if err := a.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP requests, stops the reaper and flushes telemetry.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.httpServer.Shutdown(ctx)

	a.stop()
	if a.started.Load() {
		select {
		case <-a.done:
		case <-ctx.Done():
			logger.Warn("reaper did not stop before shutdown deadline", nil)
		}
	}

	if flushErr := a.flush(ctx); flushErr != nil {
		logger.Warn("telemetry flush failed", map[string]any{"error": flushErr.Error()})
	}
	return err
}
