// Package pipeline orchestrates the reading stages over session state:
// it validates uploads, memoizes stage results per session and makes
// sure identical concurrent requests reach an adapter only once.
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/HiranMayiNathi23/ai-reading-companion/internal/gate"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/logger"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/session"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/stage"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/telemetry"
)

// Placeholder stands in for a page on which OCR found no text.
const Placeholder = "[Unable to extract text from this page]"

// Adapters are the stage implementations. A nil adapter makes its stage
// fail with ErrStageUnavailable; a nil Corrector disables correction.
type Adapters struct {
	OCR        stage.OCR
	Corrector  stage.Corrector
	Translator stage.Translator
	Summarizer stage.Summarizer
	Characters stage.CharacterExtractor
	TTS        stage.Synthesizer
}

// Limits bound uploads and stage calls.
type Limits struct {
	MaxPages       int
	MaxImageBytes  int64
	MinDimension   int
	MaxDimension   int
	OCRConcurrency int
	// OCRTimeout bounds a single page's OCR and correction calls.
	OCRTimeout     time.Duration
}

func DefaultLimits() Limits {
	return Limits{
		MaxPages:       15,
		MaxImageBytes:  10 << 20,
		MinDimension:   100,
		MaxDimension:   10000,
		OCRConcurrency: 4,
		OCRTimeout:     90 * time.Second,
	}
}

type Orchestrator struct {
	store    session.Store
	gate     *gate.Gate
	adapters Adapters
	limits   Limits
}

func New(store session.Store, g *gate.Gate, adapters Adapters, limits Limits) *Orchestrator {
	def := DefaultLimits()
	if limits.MaxPages <= 0 {
		limits.MaxPages = def.MaxPages
	}
	if limits.MaxImageBytes <= 0 {
		limits.MaxImageBytes = def.MaxImageBytes
	}
	if limits.MinDimension <= 0 {
		limits.MinDimension = def.MinDimension
	}
	if limits.MaxDimension <= 0 {
		limits.MaxDimension = def.MaxDimension
	}
	if limits.OCRConcurrency <= 0 {
		limits.OCRConcurrency = def.OCRConcurrency
	}
	return &Orchestrator{store: store, gate: g, adapters: adapters, limits: limits}
}

// Sessions returns the number of stored sessions, expired or not.
func (o *Orchestrator) Sessions() int { return o.store.Len() }

// InFlight returns the number of stage calls currently running.
func (o *Orchestrator) InFlight() int { return o.gate.InFlight() }

// Pages returns the pages of a live session in order.
func (o *Orchestrator) Pages(ctx context.Context, id string) ([]session.Page, error) {
	sess, err := o.store.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.Pages, nil
}

// Delete removes the session and every cached result. Unknown ids are
// ignored.
func (o *Orchestrator) Delete(ctx context.Context, id string) {
	o.store.Delete(id)
	logger.Debug("session deleted", map[string]any{"session": shortID(id)})
}

// getOrCompute returns the cached result for key or computes it through
// the gate. With regenerate set the cache is bypassed and overwritten.
// A computed result is cached even when every caller has gone away, but
// not when it arrives after the gate timeout.
func getOrCompute[T any](
	ctx context.Context,
	o *Orchestrator,
	sess *session.Session,
	key session.CacheKey,
	regenerate bool,
	compute func(ctx context.Context) (T, error),
) (T, error) {
	var zero T

	if !regenerate {
		v, ok, err := o.store.GetCache(sess.ID, key)
		if err != nil {
			return zero, err
		}
		if ok {
			telemetry.CacheHit(ctx, key.Stage)
			return v.(T), nil
		}
	}

	gateKey := sess.ID + "|" + key.String()
	if regenerate {
		// a regenerate must not settle for a normal call's cached answer
		gateKey += "|regen"
	}

	v, err, _ := o.gate.Do(ctx, gateKey, func(runCtx context.Context) (any, error) {
		// a call that finished after the first lookup must not run twice
		if !regenerate {
			if v, ok, err := o.store.GetCache(sess.ID, key); err != nil {
				return nil, err
			} else if ok {
				return v, nil
			}
		}

		stageCtx, rec := telemetry.StartStage(runCtx, key.Stage,
			attribute.Int("page", key.Page),
			attribute.String("variant", key.Variant),
			attribute.Bool("regenerate", regenerate),
		)
		result, err := compute(stageCtx)
		rec.End(err)
		if err != nil {
			logger.Warn("stage failed", map[string]any{
				"stage":   key.Stage,
				"session": shortID(sess.ID),
				"page":    key.Page,
				"error":   err.Error(),
			})
			return nil, &UpstreamError{Stage: key.Stage, Err: err}
		}
		if err := runCtx.Err(); err != nil {
			// the waiters already gave up on this call
			logger.Warn("discarding late stage result", map[string]any{
				"stage":   key.Stage,
				"session": shortID(sess.ID),
				"page":    key.Page,
			})
			return nil, &UpstreamError{Stage: key.Stage, Err: err}
		}

		if err := o.store.PutCache(sess.ID, key, result); err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				return nil, err
			}
			// expired or deleted mid-flight; the result is simply dropped
			logger.Debug("discarding result for vanished session", map[string]any{
				"stage":   key.Stage,
				"session": shortID(sess.ID),
			})
		}
		return result, nil
	})
	if err != nil {
		var upErr *UpstreamError
		if !errors.As(err, &upErr) && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			// the gate gave up on an adapter that ignored its deadline
			return zero, &UpstreamError{Stage: key.Stage, Err: err}
		}
		return zero, err
	}
	return v.(T), nil
}

// shortID keeps session ids, which are bearer capabilities, out of logs.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
