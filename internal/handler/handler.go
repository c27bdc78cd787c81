// Package handler exposes the reading pipeline over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HiranMayiNathi23/ai-reading-companion/internal/logger"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/pipeline"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/session"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/stage"
)

// Pipeline is the orchestrator surface the handlers need.
type Pipeline interface {
	Upload(ctx context.Context, images []pipeline.Image) (*session.Session, error)
	Pages(ctx context.Context, id string) ([]session.Page, error)
	Translate(ctx context.Context, id string, page int, regenerate bool) (pipeline.TranslateResult, error)
	Summary(ctx context.Context, id string, kind stage.SummaryType, lang stage.Language, regenerate bool) (string, error)
	Characters(ctx context.Context, id string, lang stage.Language, regenerate bool) ([]stage.Character, error)
	TTS(ctx context.Context, id string, page int) (stage.Audio, error)
	Delete(ctx context.Context, id string)
	Sessions() int
	InFlight() int
}

// Options tune request parsing and the session cookie.
type Options struct {
	MaxPages      int
	MaxImageBytes int64
	Cookie        session.CookieOptions
}

type Handler struct {
	pipeline Pipeline
	opts     Options
}

func NewHandler(p Pipeline, opts Options) *Handler {
	def := pipeline.DefaultLimits()
	if opts.MaxPages <= 0 {
		opts.MaxPages = def.MaxPages
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = def.MaxImageBytes
	}
	return &Handler{pipeline: p, opts: opts}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/upload-images", h.upload)
	r.GET("/pages/:session_id", h.pages)
	r.POST("/translate", h.translate)
	r.POST("/summary", h.summary)
	r.POST("/characters", h.characters)
	r.POST("/tts/english", h.ttsEnglish)
	r.DELETE("/session/:session_id", h.deleteSession)
	r.GET("/health", h.health)

	if e, ok := r.(*gin.Engine); ok {
		for _, route := range e.Routes() {
			logger.Debug("route registered", map[string]any{
				"method": route.Method,
				"path":   route.Path,
			})
		}
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"sessions":  h.pipeline.Sessions(),
		"in_flight": h.pipeline.InFlight(),
	})
}

// sessionID prefers an explicit id and falls back to the session cookie.
func sessionID(c *gin.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return session.IDFromCookie(c.Request)
}
