package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// MinHeight is the height small images are scaled up to before
// recognition. Tesseract misses glyphs that are only a few pixels tall.
const MinHeight = 1000

// Prepare converts img to a grayscale PNG for recognition, scaling it up
// with Catmull-Rom interpolation when it is shorter than minHeight.
func Prepare(img image.Image, minHeight int) ([]byte, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("empty image")
	}
	w, h := b.Dx(), b.Dy()
	if minHeight > 0 && h < minHeight {
		w = w * minHeight / h
		h = minHeight
	}

	gray := image.NewGray(image.Rect(0, 0, max(w, 1), h))
	scaler := draw.Scaler(draw.CatmullRom)
	if w == b.Dx() && h == b.Dy() {
		scaler = draw.NearestNeighbor
	}
	scaler.Scale(gray, gray.Bounds(), img, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, fmt.Errorf("encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
