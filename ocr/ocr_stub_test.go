//go:build !ocr

package ocr

import (
	"errors"
	"image"
	"testing"
)

func TestNewReturnsError(t *testing.T) {
	client, err := New()
	if !errors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("New() error = %v, want ErrOCRNotEnabled", err)
	}
	if client != nil {
		t.Error("New() returned a client without OCR support")
	}
	if Enabled {
		t.Error("Enabled = true in the stub build")
	}
}

func TestStubOperations(t *testing.T) {
	var client *Client
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client: %v", err)
	}
	if _, err := client.Recognize(image.NewGray(image.Rect(0, 0, 1, 1))); !errors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("Recognize() error = %v", err)
	}
	if err := client.SetLanguage("eng"); !errors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("SetLanguage() error = %v", err)
	}
}
