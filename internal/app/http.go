package app

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HiranMayiNathi23/ai-reading-companion/internal/config"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/handler"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/middleware"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/pipeline"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/session"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, *Infra, error) {
	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	orchestrator := pipeline.New(infra.Store, infra.Gate, infra.Adapters, pipeline.Limits{
		MaxPages:       cfg.MaxPages,
		MaxImageBytes:  cfg.MaxImageBytes,
		OCRConcurrency: cfg.OCRConcurrency,
		OCRTimeout:     cfg.StageTimeout,
	})

	readerHandler := handler.NewHandler(orchestrator, handler.Options{
		MaxPages:      cfg.MaxPages,
		MaxImageBytes: cfg.MaxImageBytes,
		Cookie: session.CookieOptions{
			Secure:   cfg.CookieSecure,
			SameSite: http.SameSiteStrictMode,
		},
	})

	// ----------------------------
	// Router
	// ----------------------------

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// keep uploads in memory; nothing touches disk
	router.MaxMultipartMemory = int64(cfg.MaxPages+1) * cfg.MaxImageBytes
	router.Use(
		middleware.Recovery(),
		middleware.Gin(middleware.RequestID),
		middleware.AccessLog(),
		middleware.Gin(middleware.CORS(cfg.AllowedOrigin)),
		middleware.Gin(middleware.NoStore),
	)

	readerHandler.RegisterRoutes(router)

	return router, infra, nil
}
