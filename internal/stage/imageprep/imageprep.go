// Package imageprep prepares page photos for OCR.
package imageprep

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"
)

const (
	// MinOCRWidth is the width below which pages are upscaled.
	MinOCRWidth = 1000
	// TargetWidth is the width small pages are scaled to.
	TargetWidth = 1500

	contrast = 1.5
)

// Prepare decodes a JPEG or PNG page, converts it to grayscale, upscales
// narrow images and stretches contrast. It returns a PNG encoding of the
// result for the OCR engine.
func Prepare(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	gray := Grayscale(src)
	if gray.Bounds().Dx() < MinOCRWidth {
		gray = Upscale(gray, TargetWidth)
	}
	Contrast(gray, contrast)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Grayscale flattens any alpha onto white and converts to 8-bit gray.
func Grayscale(src image.Image) *image.Gray {
	b := src.Bounds()
	rect := image.Rect(0, 0, b.Dx(), b.Dy())

	flat := image.NewRGBA(rect)
	draw.Draw(flat, rect, image.White, image.Point{}, draw.Src)
	draw.Draw(flat, rect, src, b.Min, draw.Over)

	gray := image.NewGray(rect)
	draw.Draw(gray, rect, flat, image.Point{}, draw.Src)
	return gray
}

// Upscale resizes img to width, keeping the aspect ratio.
func Upscale(img *image.Gray, width int) *image.Gray {
	b := img.Bounds()
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Contrast scales each pixel's distance from mid gray by factor in place.
func Contrast(img *image.Gray, factor float64) {
	var lut [256]uint8
	for i := range lut {
		v := (float64(i)-128)*factor + 128
		switch {
		case v < 0:
			v = 0
		case v > 255:
			v = 255
		}
		lut[i] = uint8(math.Round(v))
	}
	for i, p := range img.Pix {
		img.Pix[i] = lut[p]
	}
}
