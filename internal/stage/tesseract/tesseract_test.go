package tesseract

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os/exec"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

func ensureTesseractAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
}

func TestEngineRecognize(t *testing.T) {
	ensureTesseractAvailable(t)

	img := image.NewRGBA(image.Rect(0, 0, 300, 80))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(10, 50),
	}
	d.DrawString("Hello Reader")

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	text, err := New("eng").Recognize(context.Background(), buf.Bytes())
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if !strings.Contains(strings.ToLower(text), "reader") {
		t.Fatalf("Recognize() = %q, want it to contain %q", text, "Reader")
	}
}

func TestEngineRecognizeRejectsUndecodableInput(t *testing.T) {
	if _, err := New().Recognize(context.Background(), []byte("nope")); err == nil {
		t.Fatal("expected error")
	}
}

func TestEngineRecognizeHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Recognize(ctx, nil); err == nil {
		t.Fatal("expected context error")
	}
}
