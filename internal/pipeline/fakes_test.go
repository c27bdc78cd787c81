package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/HiranMayiNathi23/ai-reading-companion/internal/gate"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/session"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/stage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeOCR reads the image width so tests can tell pages apart.
// Images exactly blankWidth pixels wide yield no text.
type fakeOCR struct {
	calls      atomic.Int32
	blankWidth int
	err        error
}

func (f *fakeOCR) Recognize(ctx context.Context, data []byte) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	if cfg.Width == f.blankWidth {
		return "   ", nil
	}
	return fmt.Sprintf("text of %dpx page", cfg.Width), nil
}

// fakeStages counts calls per stage. When release is set every call
// blocks until it is closed.
type fakeStages struct {
	translateCalls atomic.Int32
	summaryCalls   atomic.Int32
	characterCalls atomic.Int32
	ttsCalls       atomic.Int32
	correctCalls   atomic.Int32

	release    chan struct{}
	err        error
	correctErr error
}

func (f *fakeStages) wait(ctx context.Context) error {
	if f.release == nil {
		return nil
	}
	select {
	case <-f.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeStages) Correct(ctx context.Context, text string) (string, error) {
	f.correctCalls.Add(1)
	if f.correctErr != nil {
		return "", f.correctErr
	}
	return strings.ToUpper(text), nil
}

func (f *fakeStages) Translate(ctx context.Context, english string) (string, error) {
	n := f.translateCalls.Add(1)
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("te#%d:%s", n, english), nil
}

func (f *fakeStages) Summarize(ctx context.Context, text string, kind stage.SummaryType, lang stage.Language) (string, error) {
	n := f.summaryCalls.Add(1)
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("summary#%d %s/%s: %s", n, kind, lang, text), nil
}

func (f *fakeStages) ExtractCharacters(ctx context.Context, text string, lang stage.Language) ([]stage.Character, error) {
	n := f.characterCalls.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return []stage.Character{{
		Name:                fmt.Sprintf("Harry#%d", n),
		Role:                string(lang),
		Relationships:       []string{},
		FirstAppearancePage: 1,
	}}, nil
}

func (f *fakeStages) Synthesize(ctx context.Context, text string) (stage.Audio, error) {
	f.ttsCalls.Add(1)
	if err := f.wait(ctx); err != nil {
		return stage.Audio{}, err
	}
	if f.err != nil {
		return stage.Audio{}, f.err
	}
	return stage.Audio{Data: []byte("mp3:" + text), ContentType: "audio/mpeg"}, nil
}

// stuckAdapter blocks until unblock is closed and never looks at ctx.
type stuckAdapter struct {
	unblock  chan struct{}
	finished atomic.Int32
}

func (s *stuckAdapter) Recognize(ctx context.Context, data []byte) (string, error) {
	<-s.unblock
	s.finished.Add(1)
	return "late text", nil
}

func (s *stuckAdapter) Correct(ctx context.Context, text string) (string, error) {
	<-s.unblock
	s.finished.Add(1)
	return "late correction", nil
}

func (s *stuckAdapter) Translate(ctx context.Context, english string) (string, error) {
	<-s.unblock
	s.finished.Add(1)
	return "late", nil
}

type harness struct {
	o      *Orchestrator
	store  *session.MemoryStore
	clock  *fakeClock
	ocr    *fakeOCR
	stages *fakeStages
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, DefaultLimits(), time.Second)
}

func newHarnessWith(t *testing.T, limits Limits, timeout time.Duration) *harness {
	t.Helper()
	h := &harness{
		clock:  newFakeClock(),
		ocr:    &fakeOCR{blankWidth: -1},
		stages: &fakeStages{},
	}
	h.store = session.NewMemoryStore(session.WithClock(h.clock.Now))
	h.o = New(h.store, gate.New(timeout), Adapters{
		OCR:        h.ocr,
		Corrector:  h.stages,
		Translator: h.stages,
		Summarizer: h.stages,
		Characters: h.stages,
		TTS:        h.stages,
	}, limits)
	return h
}

// seed stores a three page session directly.
func (h *harness) seed(t *testing.T) string {
	t.Helper()
	sess, err := h.store.Create([]session.Page{
		{Number: 1, Text: "Harry met Ron."},
		{Number: 2, Text: "Ron met Hermione."},
		{Number: 3, Text: "They went to London."},
	})
	if err != nil {
		t.Fatal(err)
	}
	return sess.ID
}

func jpegImage(t *testing.T, w, h int) Image {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatal(err)
	}
	return Image{Filename: fmt.Sprintf("page-%d.jpg", w), ContentType: "image/jpeg", Data: buf.Bytes()}
}

func pngImage(t *testing.T, w, h int) Image {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return Image{Filename: fmt.Sprintf("page-%d.png", w), ContentType: "image/png", Data: buf.Bytes()}
}

func gifImage(t *testing.T, w, h int) Image {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatal(err)
	}
	// lies about its type
	return Image{Filename: "page.png", ContentType: "image/png", Data: buf.Bytes()}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}
