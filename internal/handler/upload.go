package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HiranMayiNathi23/ai-reading-companion/internal/pipeline"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/session"
)

// multipart framing allowance on top of the file bytes
const formOverhead = 1 << 20

func (h *Handler) upload(c *gin.Context) {
	limit := int64(h.opts.MaxPages+1)*h.opts.MaxImageBytes + formOverhead
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			badRequest(c, "upload is too large")
			return
		}
		badRequest(c, "expected a multipart form with one or more files")
		return
	}

	files := form.File["files"]
	if len(files) > h.opts.MaxPages {
		// reject before reading any file into memory
		badRequest(c, fmt.Sprintf("too many images: %d (maximum %d)", len(files), h.opts.MaxPages))
		return
	}

	images := make([]pipeline.Image, 0, len(files))
	for _, fh := range files {
		img, err := h.readFile(fh)
		if err != nil {
			badRequest(c, fmt.Sprintf("cannot read %s", fh.Filename))
			return
		}
		images = append(images, img)
	}

	sess, err := h.pipeline.Upload(c.Request.Context(), images)
	if err != nil {
		writeError(c, err)
		return
	}

	session.SetCookie(c.Writer, sess.ID, sess.ExpiresAt, h.opts.Cookie)

	c.JSON(http.StatusOK, gin.H{
		"session_id": sess.ID,
		"page_count": len(sess.Pages),
		"message":    fmt.Sprintf("Processed %d page(s)", len(sess.Pages)),
	})
}

// readFile reads at most one byte past the size limit so oversized files
// are still reported by validation without being buffered whole.
func (h *Handler) readFile(fh *multipart.FileHeader) (pipeline.Image, error) {
	f, err := fh.Open()
	if err != nil {
		return pipeline.Image{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.opts.MaxImageBytes+1))
	if err != nil {
		return pipeline.Image{}, err
	}
	return pipeline.Image{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
