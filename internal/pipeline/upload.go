package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/HiranMayiNathi23/ai-reading-companion/internal/logger"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/session"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/stage"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/telemetry"
)

// Image is one uploaded page as received.
type Image struct {
	Filename    string
	ContentType string // declared by the client
	Data        []byte
}

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

// Upload validates every image, extracts text from all pages and creates
// a session. Nothing is stored unless every page succeeds.
func (o *Orchestrator) Upload(ctx context.Context, images []Image) (*session.Session, error) {
	if err := o.validate(images); err != nil {
		return nil, err
	}
	if o.adapters.OCR == nil {
		return nil, ErrStageUnavailable
	}

	pages := make([]session.Page, len(images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.limits.OCRConcurrency)
	for i, img := range images {
		number := i + 1
		g.Go(func() error {
			text, err := o.extract(gctx, number, img.Data)
			if err != nil {
				return err
			}
			pages[i] = session.Page{Number: number, Text: text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sess, err := o.store.Create(pages)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	logger.Info("session created", map[string]any{
		"session": shortID(sess.ID),
		"pages":   len(pages),
		"expires": sess.ExpiresAt,
	})
	return sess, nil
}

// extract runs OCR and, when enabled, correction for one page.
func (o *Orchestrator) extract(ctx context.Context, number int, data []byte) (string, error) {
	ctx, cancel := o.stageContext(ctx)
	defer cancel()

	ocrCtx, rec := telemetry.StartStage(ctx, stage.NameOCR, attribute.Int("page", number))
	text, err := bounded(ocrCtx, func(ctx context.Context) (string, error) {
		return o.adapters.OCR.Recognize(ctx, data)
	})
	rec.End(err)
	if err != nil {
		return "", &UpstreamError{Stage: stage.NameOCR, Err: fmt.Errorf("page %d: %w", number, err)}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Placeholder, nil
	}
	if o.adapters.Corrector == nil {
		return text, nil
	}

	corrCtx, rec := telemetry.StartStage(ctx, stage.NameCorrect, attribute.Int("page", number))
	corrected, err := bounded(corrCtx, func(ctx context.Context) (string, error) {
		return o.adapters.Corrector.Correct(ctx, text)
	})
	rec.End(err)
	if err != nil {
		logger.Warn("correction failed, keeping raw text", map[string]any{
			"page":  number,
			"error": err.Error(),
		})
		return text, nil
	}
	if strings.TrimSpace(corrected) == "" {
		return text, nil
	}
	return corrected, nil
}

func (o *Orchestrator) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.limits.OCRTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.limits.OCRTimeout)
}

// bounded stops waiting for call once ctx ends. The call itself is left
// to finish in the background; cgo OCR never looks at ctx.
func bounded[T any](ctx context.Context, call func(context.Context) (T, error)) (T, error) {
	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		var out outcome
		defer func() {
			if r := recover(); r != nil {
				out = outcome{err: fmt.Errorf("adapter panicked: %v", r)}
			}
			done <- out
		}()
		out.val, out.err = call(ctx)
	}()

	select {
	case out := <-done:
		return out.val, out.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (o *Orchestrator) validate(images []Image) error {
	if len(images) == 0 {
		return invalid("no images uploaded")
	}
	if len(images) > o.limits.MaxPages {
		return invalid("too many images: %d (maximum %d)", len(images), o.limits.MaxPages)
	}
	for i, img := range images {
		if err := o.validateImage(img); err != nil {
			return invalid("image %d (%s): %v", i+1, img.Filename, err)
		}
	}
	return nil
}

func (o *Orchestrator) validateImage(img Image) error {
	declared, _, err := mime.ParseMediaType(img.ContentType)
	if err != nil || !allowedTypes[strings.ToLower(declared)] {
		return fmt.Errorf("unsupported file type %q, use JPG or PNG", img.ContentType)
	}
	if len(img.Data) == 0 {
		return fmt.Errorf("file is empty")
	}
	if int64(len(img.Data)) > o.limits.MaxImageBytes {
		return fmt.Errorf("file is %d bytes (maximum %d)", len(img.Data), o.limits.MaxImageBytes)
	}

	sniffed := http.DetectContentType(img.Data)
	if !allowedTypes[sniffed] {
		return fmt.Errorf("content is %s, not JPG or PNG", sniffed)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return fmt.Errorf("cannot read image: %v", err)
	}
	lo, hi := o.limits.MinDimension, o.limits.MaxDimension
	if cfg.Width < lo || cfg.Height < lo {
		return fmt.Errorf("image is %dx%d, too small (minimum %dx%d)", cfg.Width, cfg.Height, lo, lo)
	}
	if cfg.Width > hi || cfg.Height > hi {
		return fmt.Errorf("image is %dx%d, too large (maximum %dx%d)", cfg.Width, cfg.Height, hi, hi)
	}
	return nil
}
