//go:build !ocr

// Package ocr recognizes text in images with the Tesseract engine, for
// scanned pages that carry no text operators.
//
// This build has no OCR support: New returns ErrOCRNotEnabled. Rebuild
// with -tags ocr, which needs Tesseract installed.
package ocr

import (
	"errors"
	"image"
)

// Enabled reports whether OCR support was compiled in.
const Enabled = false

// ErrOCRNotEnabled is returned by every operation of this build.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// Client is a placeholder with the API of the Tesseract client.
type Client struct{}

// New returns ErrOCRNotEnabled.
func New() (*Client, error) {
	return nil, ErrOCRNotEnabled
}

// Close is a no-op. It is safe to call on a nil client.
func (c *Client) Close() error {
	return nil
}

// RecognizeImage returns ErrOCRNotEnabled.
func (c *Client) RecognizeImage(imageData []byte) (string, error) {
	return "", ErrOCRNotEnabled
}

// Recognize returns ErrOCRNotEnabled.
func (c *Client) Recognize(img image.Image) (string, error) {
	return "", ErrOCRNotEnabled
}

// SetLanguage returns ErrOCRNotEnabled.
func (c *Client) SetLanguage(lang string) error {
	return ErrOCRNotEnabled
}
