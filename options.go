package pdfhtml

import (
	"io"
	"log/slog"

	"github.com/tsawler/pdfhtml/text"
)

// ExtractOptions holds configuration for a conversion.
type ExtractOptions struct {
	// Page selection, 1-indexed; nil means all pages
	pages []int

	password     string
	logger       *slog.Logger
	maxFormDepth int
	inline       bool

	// OCR of pages without text
	ocr     bool
	ocrLang string
}

func defaultOptions() ExtractOptions {
	return ExtractOptions{
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxFormDepth: text.DefaultMaxFormDepth,
		inline:       true,
	}
}

// clone creates a deep copy of ExtractOptions.
func (o ExtractOptions) clone() ExtractOptions {
	out := o
	if o.pages != nil {
		out.pages = append([]int(nil), o.pages...)
	}
	return out
}
