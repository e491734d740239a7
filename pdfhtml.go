// Package pdfhtml converts PDF files to standalone HTML pages and merges
// them into one document.
//
// Basic usage:
//
//	text, warnings, err := pdfhtml.Open("document.pdf").Text()
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", pdfhtml.FormatWarnings(warnings))
//	}
//
// A full conversion collects the text and images of the selected pages
// and renders them as HTML:
//
//	res, err := pdfhtml.Open("scan.pdf").
//	    Password("secret").
//	    OCR("eng").
//	    Convert(ctx)
//	if err != nil {
//	    // handle error
//	}
//	doc, _ := res.HTML()
//	err = htmldoc.WriteFile("scan.html", doc)
//
// The batch package runs conversions over a directory and merges the
// inputs with the merge package; the lower-level reader, text and images
// packages are available for finer control.
package pdfhtml

import (
	"path/filepath"

	"github.com/tsawler/pdfhtml/reader"
)

// Open returns an Extractor for the PDF file at path. The file is read on
// the first terminal operation.
func Open(filename string) *Extractor {
	return &Extractor{
		filename: filename,
		title:    filepath.Base(filename),
		options:  defaultOptions(),
	}
}

// FromReader creates an Extractor over an already-parsed document.
func FromReader(r *reader.Reader) *Extractor {
	return &Extractor{
		reader:  r,
		options: defaultOptions(),
	}
}

// Must wraps a call returning (T, error) and panics on error. It is meant
// for scripts and tests.
//
//	count := pdfhtml.Must(pdfhtml.Open("document.pdf").PageCount())
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MustText wraps Text or Images, discarding warnings and panicking on
// error.
//
//	text := pdfhtml.MustText(pdfhtml.Open("document.pdf").Text())
func MustText[T any](val T, _ []Warning, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
