//go:build ocr

// Package ocr recognizes text in images with the Tesseract engine, for
// scanned pages that carry no text operators.
//
// Tesseract must be installed to build with the "ocr" tag. On
// Ubuntu/Debian:
//
//	apt-get install tesseract-ocr libtesseract-dev
package ocr

import (
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Enabled reports whether OCR support was compiled in.
const Enabled = true

// Client wraps one Tesseract instance. It is not safe for concurrent use.
type Client struct {
	client *gosseract.Client
}

// New creates a client. Close it to release the engine.
func New() (*Client, error) {
	return &Client{client: gosseract.NewClient()}, nil
}

// Close releases the engine.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// RecognizeImage recognizes the text of an encoded image (PNG, JPEG,
// TIFF) with surrounding whitespace trimmed.
func (c *Client) RecognizeImage(imageData []byte) (string, error) {
	if err := c.client.SetImageFromBytes(imageData); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := c.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Recognize prepares img with Prepare and recognizes its text.
func (c *Client) Recognize(img image.Image) (string, error) {
	data, err := Prepare(img, MinHeight)
	if err != nil {
		return "", err
	}
	return c.RecognizeImage(data)
}

// SetLanguage sets the recognition languages as a "+" separated list,
// e.g. "eng+por". The default is "eng".
func (c *Client) SetLanguage(lang string) error {
	return c.client.SetLanguage(strings.Split(lang, "+")...)
}
