package pdfhtml

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"sort"
	"strings"

	"github.com/tsawler/pdfhtml/htmldoc"
	"github.com/tsawler/pdfhtml/images"
	"github.com/tsawler/pdfhtml/ocr"
	"github.com/tsawler/pdfhtml/reader"
	"github.com/tsawler/pdfhtml/text"
)

// Extractor provides a fluent interface for converting one PDF. Each
// configuration method returns a new Extractor, so a configured Extractor
// can be shared and reused.
type Extractor struct {
	filename string
	title    string
	reader   *reader.Reader
	options  ExtractOptions
}

// clone copies the Extractor with a deep copy of its options.
func (e *Extractor) clone() *Extractor {
	out := *e
	out.options = e.options.clone()
	return &out
}

// ensureReader parses the file if that has not happened yet.
func (e *Extractor) ensureReader() error {
	if e.reader != nil {
		return nil
	}
	if e.filename == "" {
		return fmt.Errorf("no filename specified")
	}
	r, err := reader.Open(e.filename,
		reader.WithLogger(e.options.logger),
		reader.WithPassword(e.options.password))
	if err != nil {
		return fmt.Errorf("failed to open PDF: %w", err)
	}
	e.reader = r
	return nil
}

// ============================================================================
// Configuration Methods (return new Extractor instance)
// ============================================================================

// Pages selects pages to convert, 1-indexed. Multiple calls are cumulative.
func (e *Extractor) Pages(pages ...int) *Extractor {
	out := e.clone()
	out.options.pages = append(out.options.pages, pages...)
	return out
}

// PageRange selects the pages start through end inclusive, 1-indexed.
func (e *Extractor) PageRange(start, end int) *Extractor {
	var pages []int
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	return e.Pages(pages...)
}

// Password sets the password for encrypted documents.
func (e *Extractor) Password(password string) *Extractor {
	out := e.clone()
	out.options.password = password
	return out
}

// Logger sets the logger that receives skipped content and repairs.
func (e *Extractor) Logger(logger *slog.Logger) *Extractor {
	out := e.clone()
	out.options.logger = logger
	return out
}

// Title sets the HTML heading. It defaults to the file's base name.
func (e *Extractor) Title(title string) *Extractor {
	out := e.clone()
	out.title = title
	return out
}

// MaxFormDepth bounds how deeply form XObjects are followed.
func (e *Extractor) MaxFormDepth(depth int) *Extractor {
	out := e.clone()
	out.options.maxFormDepth = depth
	return out
}

// ExcludeInlineImages skips BI ... EI images in content streams.
func (e *Extractor) ExcludeInlineImages() *Extractor {
	out := e.clone()
	out.options.inline = false
	return out
}

// OCR recognizes the images of pages that show no text, with the given
// Tesseract languages ("eng", "eng+por"). It needs a build with the "ocr"
// tag; otherwise each such page gets a warning.
func (e *Extractor) OCR(lang string) *Extractor {
	out := e.clone()
	out.options.ocr = true
	out.options.ocrLang = lang
	return out
}

// ============================================================================
// Terminal Operations
// ============================================================================

// Result is the content of one converted document.
type Result struct {
	Title    string
	Text     string // page texts joined by newlines
	Images   []images.DecodedImage
	Pages    int // pages converted
	Warnings []Warning
}

// Reader returns the parsed document, parsing it if needed.
func (e *Extractor) Reader() (*reader.Reader, error) {
	if err := e.ensureReader(); err != nil {
		return nil, err
	}
	return e.reader, nil
}

// PageCount returns the number of pages in the document.
func (e *Extractor) PageCount() (int, error) {
	if err := e.ensureReader(); err != nil {
		return 0, err
	}
	return e.reader.PageCount()
}

// Text returns the text of the selected pages, one line break between
// pages.
func (e *Extractor) Text() (string, []Warning, error) {
	res, err := e.Convert(context.Background())
	if err != nil {
		return "", nil, err
	}
	return res.Text, res.Warnings, nil
}

// Images returns the images of the selected pages in page order.
func (e *Extractor) Images() ([]images.DecodedImage, []Warning, error) {
	res, err := e.Convert(context.Background())
	if err != nil {
		return nil, nil, err
	}
	return res.Images, res.Warnings, nil
}

// Convert extracts the text and images of the selected pages. Problems
// confined to a page, a stream or an image become warnings; only a
// document that cannot be read, an invalid page selection or ctx ending
// fail the conversion. ctx is checked between pages and inside each
// page's content streams and forms.
func (e *Extractor) Convert(ctx context.Context) (*Result, error) {
	if err := e.ensureReader(); err != nil {
		return nil, err
	}
	indices, err := e.resolvePages()
	if err != nil {
		return nil, err
	}

	res := &Result{Title: e.title}
	for _, msg := range e.reader.Warnings() {
		res.Warnings = append(res.Warnings, Warning{Message: msg})
	}

	opts := e.options
	te := text.NewExtractor(e.reader,
		text.WithLogger(opts.logger),
		text.WithMaxFormDepth(opts.maxFormDepth))
	ie := images.NewExtractor(e.reader,
		images.WithLogger(opts.logger),
		images.WithMaxFormDepth(opts.maxFormDepth),
		images.WithInlineImages(opts.inline))
	recognizer := newRecognizer(opts)
	defer recognizer.close()

	var pageTexts []string
	for _, idx := range indices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		num := idx + 1
		page, err := e.reader.GetPage(idx)
		if err != nil {
			res.Warnings = append(res.Warnings, pageWarnings(num, err)...)
			continue
		}
		res.Pages++

		runs, textErr := te.ExtractPageContext(ctx, page)
		imgs, imgErr := ie.ExtractPageContext(ctx, page)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Warnings = append(res.Warnings, pageWarnings(num, textErr)...)
		res.Warnings = append(res.Warnings, pageWarnings(num, imgErr)...)
		pageText := text.Join(runs)
		res.Images = append(res.Images, imgs...)

		if pageText == "" && len(imgs) > 0 && opts.ocr {
			var warns []Warning
			pageText, warns = recognizer.recognize(num, imgs)
			res.Warnings = append(res.Warnings, warns...)
		}
		if pageText != "" {
			pageTexts = append(pageTexts, pageText)
		}
	}
	res.Text = strings.Join(pageTexts, "\n")
	return res, nil
}

// resolvePages returns the 0-indexed pages to convert, in order.
func (e *Extractor) resolvePages() ([]int, error) {
	pageCount, err := e.reader.PageCount()
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}

	if len(e.options.pages) == 0 {
		indices := make([]int, pageCount)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	seen := make(map[int]bool)
	var indices []int
	for _, p := range e.options.pages {
		if p < 1 || p > pageCount {
			return nil, fmt.Errorf("page %d out of range (1-%d)", p, pageCount)
		}
		if !seen[p-1] {
			seen[p-1] = true
			indices = append(indices, p-1)
		}
	}
	sort.Ints(indices)
	return indices, nil
}

// HTML builds the HTML page for the result. Raw images are encoded as
// PNG; an image that cannot be encoded is left out with a warning.
func (r *Result) HTML() (*htmldoc.Document, []Warning) {
	doc := &htmldoc.Document{Title: r.Title, Text: r.Text}
	var warnings []Warning
	for i := range r.Images {
		img := &r.Images[i]
		data, mime, err := img.Encode()
		if err != nil {
			warnings = append(warnings, Warning{
				Message: fmt.Sprintf("image /%s: %v", img.Name, err),
				Err:     err,
			})
			continue
		}
		doc.Images = append(doc.Images, htmldoc.Image{Name: img.Name, MIME: mime, Data: data})
	}
	return doc, warnings
}

// recognizer runs OCR for one conversion. The engine is started on first
// use.
type recognizer struct {
	lang   string
	client *ocr.Client
	err    error
}

func newRecognizer(opts ExtractOptions) *recognizer {
	return &recognizer{lang: opts.ocrLang}
}

func (rc *recognizer) start() error {
	if rc.client != nil || rc.err != nil {
		return rc.err
	}
	client, err := ocr.New()
	if err != nil {
		rc.err = err
		return err
	}
	if rc.lang != "" {
		if err := client.SetLanguage(rc.lang); err != nil {
			client.Close()
			rc.err = err
			return err
		}
	}
	rc.client = client
	return nil
}

// recognize returns the text OCR finds in a page's images, one line per
// image with text.
func (rc *recognizer) recognize(page int, imgs []images.DecodedImage) (string, []Warning) {
	if err := rc.start(); err != nil {
		return "", []Warning{{Page: page, Message: "OCR unavailable: " + err.Error(), Err: err}}
	}
	var lines []string
	var warnings []Warning
	for i := range imgs {
		img, err := goImage(&imgs[i])
		if err == nil {
			var s string
			s, err = rc.client.Recognize(img)
			if s != "" {
				lines = append(lines, s)
			}
		}
		if err != nil {
			warnings = append(warnings, Warning{
				Page:    page,
				Message: fmt.Sprintf("OCR of image /%s: %v", imgs[i].Name, err),
				Err:     err,
			})
		}
	}
	return strings.Join(lines, "\n"), warnings
}

func (rc *recognizer) close() {
	if rc.client != nil {
		rc.client.Close()
	}
}

// goImage decodes an extracted image for recognition. JPEG 2000 has no
// decoder here.
func goImage(img *images.DecodedImage) (image.Image, error) {
	switch img.Format {
	case images.FormatRaw:
		return img.Image()
	case images.FormatJPEG:
		return jpeg.Decode(bytes.NewReader(img.Data))
	}
	return nil, fmt.Errorf("cannot decode %s data", img.Format)
}
