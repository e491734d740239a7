package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tsawler/pdfhtml/contentstream"
	"github.com/tsawler/pdfhtml/core"
	"github.com/tsawler/pdfhtml/internal/filters"
	"github.com/tsawler/pdfhtml/pages"
)

// DefaultMaxFormDepth bounds how deeply form XObjects are searched.
const DefaultMaxFormDepth = 8

// Resolver resolves indirect references.
type Resolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger for skipped objects. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

// WithMaxFormDepth sets how deeply form XObjects are searched.
func WithMaxFormDepth(depth int) Option {
	return func(e *Extractor) { e.maxFormDepth = depth }
}

// WithInlineImages controls whether BI ... EI images in content streams
// are extracted. They are by default.
func WithInlineImages(enabled bool) Option {
	return func(e *Extractor) { e.inline = enabled }
}

// Extractor finds the images a page's resources provide.
type Extractor struct {
	resolver     Resolver
	logger       *slog.Logger
	maxFormDepth int
	inline       bool

	ctx     context.Context // set for the duration of one page
	seen    map[core.IndirectRef]bool
	images  []DecodedImage
	errs    []error
	inlineN int
}

// NewExtractor creates an image extractor.
func NewExtractor(resolver Resolver, opts ...Option) *Extractor {
	e := &Extractor{
		resolver:     resolver,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxFormDepth: DefaultMaxFormDepth,
		inline:       true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractPage returns the page's images: the image XObjects of its
// resources in name order, with form XObjects searched in place, then
// its inline images in content order. An image referenced more than once
// is returned once. Images that fail are reported as *ImageError values
// joined into the returned error; the images slice is valid either way.
func (e *Extractor) ExtractPage(page *pages.Page) ([]DecodedImage, error) {
	return e.ExtractPageContext(context.Background(), page)
}

// ExtractPageContext is ExtractPage, stopping between XObjects and content
// streams once ctx is done. The images decoded so far are returned with an
// error wrapping ctx.Err().
func (e *Extractor) ExtractPageContext(ctx context.Context, page *pages.Page) ([]DecodedImage, error) {
	e.ctx = ctx
	defer func() { e.ctx = nil }()
	e.seen = make(map[core.IndirectRef]bool)
	e.images = nil
	e.errs = nil
	e.inlineN = 0

	resources, err := page.Resources()
	if err != nil {
		return nil, fmt.Errorf("page resources: %w", err)
	}
	e.walk(resources, 0)

	if e.inline {
		streams, err := page.Contents()
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("page contents: %w", err))
		}
		for _, s := range streams {
			if ctx.Err() != nil {
				break
			}
			data, err := s.Decode()
			if err != nil {
				// The text pass reports undecodable content.
				continue
			}
			e.scanInline(data, resources)
		}
	}
	if err := ctx.Err(); err != nil {
		e.errs = append(e.errs, fmt.Errorf("image extraction stopped: %w", err))
	}
	return e.images, errors.Join(e.errs...)
}

// walk collects the image XObjects of res and recurses into forms.
func (e *Extractor) walk(res core.Dict, depth int) {
	xobjects, _ := e.resolve(res.Get("XObject")).(core.Dict)
	for _, name := range xobjects.Keys() {
		if e.ctx.Err() != nil {
			return
		}
		entry := xobjects.Get(name)
		ref, isRef := entry.(core.IndirectRef)
		if isRef {
			if e.seen[ref] {
				continue
			}
			e.seen[ref] = true
		}

		stream, ok := e.resolve(entry).(*core.Stream)
		if !ok {
			e.logger.Debug("skipping XObject that is not a stream", "name", name)
			continue
		}
		switch subtype, _ := stream.Dict.GetName("Subtype"); subtype {
		case "Image":
			img, err := e.decode(name, stream, res)
			if err != nil {
				e.errs = append(e.errs, &ImageError{Name: name, Ref: ref, Err: err})
				continue
			}
			img.Ref = ref
			e.images = append(e.images, *img)
		case "Form":
			if depth+1 > e.maxFormDepth {
				e.errs = append(e.errs, fmt.Errorf("form /%s: nested deeper than %d", name, e.maxFormDepth))
				continue
			}
			formRes, ok := e.resolve(stream.Dict.Get("Resources")).(core.Dict)
			if !ok {
				// Forms without resources use their parent's.
				formRes = res
			}
			e.walk(formRes, depth+1)
			if e.inline {
				if data, err := stream.Decode(); err == nil {
					e.scanInline(data, formRes)
				}
			}
		default:
			e.logger.Debug("skipping XObject", "name", name, "subtype", subtype)
		}
	}
}

// decode reads an image XObject's metadata and decodes its data.
func (e *Extractor) decode(name string, stream *core.Stream, res core.Dict) (*DecodedImage, error) {
	dict := stream.Dict
	width, ok := core.ToFloat(e.resolve(dict.Get("Width")))
	if !ok || width <= 0 {
		return nil, fmt.Errorf("invalid Width: %v", dict.Get("Width"))
	}
	height, ok := core.ToFloat(e.resolve(dict.Get("Height")))
	if !ok || height <= 0 {
		return nil, fmt.Errorf("invalid Height: %v", dict.Get("Height"))
	}

	img := &DecodedImage{
		Name:             name,
		Format:           FormatRaw,
		Width:            int(width),
		Height:           int(height),
		BitsPerComponent: 8,
		Filters:          stream.Filters(),
	}
	for _, f := range img.Filters {
		switch filters.Lookup(f) {
		case filters.DCT:
			img.Format = FormatJPEG
		case filters.JPX:
			img.Format = FormatJPX
		}
	}

	if mask, ok := dict.GetBool("ImageMask"); ok && bool(mask) {
		img.ImageMask = true
		img.BitsPerComponent = 1
	} else if bpc, ok := core.ToFloat(e.resolve(dict.Get("BitsPerComponent"))); ok {
		img.BitsPerComponent = int(bpc)
	} else if filters.Lookup(lastFilter(img.Filters)) == filters.CCITTFax {
		img.BitsPerComponent = 1
	}

	if !img.ImageMask {
		if csObj := dict.Get("ColorSpace"); csObj != nil {
			cs, err := e.parseColorSpace(csObj, res, 0)
			if err != nil {
				if img.Format == FormatRaw {
					return nil, err
				}
				// Encoded images carry their own color space.
				e.logger.Debug("ignoring image color space", "name", name, "error", err)
			}
			img.ColorSpace = cs
		} else if img.Format == FormatRaw {
			img.ColorSpace = deviceGray
		}
	}

	if decode, ok := e.resolve(dict.Get("Decode")).(core.Array); ok && len(decode) >= 2 {
		lo, _ := core.ToFloat(decode[0])
		hi, _ := core.ToFloat(decode[1])
		img.Invert = lo > hi
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, err
	}
	img.Data = data
	return img, nil
}

// inlineKeys expands the abbreviations allowed in inline image
// dictionaries.
var inlineKeys = map[string]string{
	"W":   "Width",
	"H":   "Height",
	"BPC": "BitsPerComponent",
	"CS":  "ColorSpace",
	"F":   "Filter",
	"DP":  "DecodeParms",
	"IM":  "ImageMask",
	"D":   "Decode",
	"I":   "Interpolate",
}

// scanInline collects the inline images of one content stream.
func (e *Extractor) scanInline(content []byte, res core.Dict) {
	ops, _ := contentstream.NewParser(content).Parse()
	for _, op := range ops {
		if op.Operator != "BI" || len(op.Operands) != 1 {
			continue
		}
		inline, ok := op.Operands[0].(*contentstream.InlineImage)
		if !ok {
			continue
		}
		e.inlineN++
		name := fmt.Sprintf("inline-%d", e.inlineN)

		dict := make(core.Dict, len(inline.Dict))
		for k, v := range inline.Dict {
			if full, ok := inlineKeys[k]; ok {
				k = full
			}
			dict[k] = v
		}
		img, err := e.decode(name, &core.Stream{Dict: dict, Data: inline.Data}, res)
		if err != nil {
			e.errs = append(e.errs, &ImageError{Name: name, Err: err})
			continue
		}
		e.images = append(e.images, *img)
	}
}

func (e *Extractor) resolve(obj core.Object) core.Object {
	if e.resolver == nil || obj == nil {
		return obj
	}
	out, err := e.resolver.Resolve(obj)
	if err != nil {
		return nil
	}
	return out
}

func lastFilter(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return names[len(names)-1]
}
