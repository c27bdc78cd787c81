package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HiranMayiNathi23/ai-reading-companion/internal/logger"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/middleware"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/pipeline"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/session"
)

// statusClientClosed is written when the caller went away first.
const statusClientClosed = 499

// writeError maps pipeline errors onto HTTP statuses. Upstream and
// internal details are logged, never returned.
func writeError(c *gin.Context, err error) {
	var (
		verr  *pipeline.ValidationError
		upErr *pipeline.UpstreamError
	)

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Msg})

	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found or expired"})

	case errors.Is(err, pipeline.ErrPageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})

	case errors.As(err, &upErr):
		logger.Error("upstream stage failed", map[string]any{
			"stage":      upErr.Stage,
			"error":      upErr.Err.Error(),
			"request_id": middleware.RequestIDFromContext(c.Request.Context()),
		})
		c.JSON(http.StatusBadGateway, gin.H{"error": upErr.Stage + " failed, please try again"})

	case errors.Is(err, pipeline.ErrStageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "this feature is not configured"})

	case errors.Is(err, context.Canceled):
		c.AbortWithStatus(statusClientClosed)

	default:
		logger.Error("request failed", map[string]any{
			"path":       c.FullPath(),
			"error":      err.Error(),
			"request_id": middleware.RequestIDFromContext(c.Request.Context()),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
