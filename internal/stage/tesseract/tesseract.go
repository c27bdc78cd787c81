// Package tesseract implements stage.OCR with the Tesseract engine.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/HiranMayiNathi23/ai-reading-companion/internal/stage"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/stage/imageprep"
)

// Engine runs Tesseract over preprocessed page images. A fresh client is
// created per page so concurrent calls never share engine state.
type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

var _ stage.OCR = (*Engine)(nil)

// New returns an engine for the given Tesseract language codes
// ("eng" when none are given).
func New(languages ...string) *Engine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Engine{languages: languages, clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize returns the trimmed page text. Empty output is not an error;
// the caller decides how to present an unreadable page.
func (e *Engine) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	prepared, err := imageprep.Prepare(image)
	if err != nil {
		return "", err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	// fully automatic page segmentation
	if err := c.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", fmt.Errorf("set page segmentation: %w", err)
	}
	if err := c.SetImageFromBytes(prepared); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return norm.NFC.String(strings.TrimSpace(text)), nil
}
