package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HiranMayiNathi23/ai-reading-companion/internal/session"
)

type pageResponse struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

func (h *Handler) pages(c *gin.Context) {
	id := c.Param("session_id")

	pages, err := h.pipeline.Pages(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]pageResponse, len(pages))
	for i, p := range pages {
		out[i] = pageResponse{PageNumber: p.Number, Text: p.Text}
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": id,
		"pages":      out,
	})
}

// deleteSession is idempotent: unknown or expired ids still get 204.
func (h *Handler) deleteSession(c *gin.Context) {
	h.pipeline.Delete(c.Request.Context(), c.Param("session_id"))
	session.ClearCookie(c.Writer, h.opts.Cookie)
	c.Status(http.StatusNoContent)
}
