package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HiranMayiNathi23/ai-reading-companion/internal/stage"
)

type pageRequest struct {
	SessionID  string `json:"session_id"`
	PageNumber int    `json:"page_number"`
	Regenerate bool   `json:"regenerate"`
}

type summaryRequest struct {
	SessionID   string `json:"session_id"`
	SummaryType string `json:"summary_type"`
	Language    string `json:"language"`
	Regenerate  bool   `json:"regenerate"`
}

type charactersRequest struct {
	SessionID  string `json:"session_id"`
	Language   string `json:"language"`
	Regenerate bool   `json:"regenerate"`
}

func (h *Handler) translate(c *gin.Context) {
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	res, err := h.pipeline.Translate(c.Request.Context(), sessionID(c, req.SessionID), req.PageNumber, req.Regenerate)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"page_number":  res.Page,
		"english_text": res.English,
		"telugu_text":  res.Telugu,
	})
}

func (h *Handler) summary(c *gin.Context) {
	var req summaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	kind, err := stage.ParseSummaryType(req.SummaryType)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	lang, err := stage.ParseLanguage(req.Language)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	summary, err := h.pipeline.Summary(c.Request.Context(), sessionID(c, req.SessionID), kind, lang, req.Regenerate)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary_type": kind,
		"summary":      summary,
		"language":     lang,
	})
}

func (h *Handler) characters(c *gin.Context) {
	var req charactersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	lang, err := stage.ParseLanguage(req.Language)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	chars, err := h.pipeline.Characters(c.Request.Context(), sessionID(c, req.SessionID), lang, req.Regenerate)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"characters": chars,
		"language":   lang,
	})
}

// ttsEnglish streams the page audio inline. It is never offered as a
// download and must not be stored by the browser or proxies.
func (h *Handler) ttsEnglish(c *gin.Context) {
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	audio, err := h.pipeline.TTS(c.Request.Context(), sessionID(c, req.SessionID), req.PageNumber)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store, no-cache, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Data(http.StatusOK, audio.ContentType, audio.Data)
}
