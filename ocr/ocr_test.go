//go:build ocr

package ocr

import (
	"image"
	"image/color"
	"testing"
)

// blockImage is a white image with one black rectangle.
func blockImage(width, height int) image.Image {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.White
			if x >= 10 && x < 50 && y >= 10 && y < 30 {
				c = color.Black
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func newClient(t *testing.T) *Client {
	t.Helper()
	client, err := New()
	if err != nil {
		t.Skipf("Tesseract not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRecognize(t *testing.T) {
	client := newClient(t)
	// The rectangle holds no text; only the call path is checked.
	if _, err := client.Recognize(blockImage(100, 50)); err != nil {
		t.Errorf("Recognize() error: %v", err)
	}
}

func TestSetLanguage(t *testing.T) {
	client := newClient(t)
	if err := client.SetLanguage("eng"); err != nil {
		t.Errorf("SetLanguage() error: %v", err)
	}
}

func TestCloseTwice(t *testing.T) {
	client, err := New()
	if err != nil {
		t.Skipf("Tesseract not available: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	client.client = nil
	if err := client.Close(); err != nil {
		t.Errorf("Close() on released client: %v", err)
	}
}
