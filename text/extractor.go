package text

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/tsawler/pdfhtml/contentstream"
	"github.com/tsawler/pdfhtml/core"
	"github.com/tsawler/pdfhtml/font"
	"github.com/tsawler/pdfhtml/graphicsstate"
	"github.com/tsawler/pdfhtml/model"
	"github.com/tsawler/pdfhtml/pages"
)

// DefaultMaxFormDepth bounds how deeply form XObjects may nest.
const DefaultMaxFormDepth = 8

// TextRun is the text shown by one string operand, in execution order.
type TextRun struct {
	Text      string
	X, Y      float64 // baseline origin in user space
	EndX      float64 // x after the last glyph
	FontSize  float64 // effective size after the text matrix and CTM
	FontName  string  // BaseFont of the font used
	Invisible bool    // rendering mode 3, as in OCR text layers
	Direction Direction
}

// Resolver resolves indirect references.
type Resolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger for skipped content. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

// WithMaxFormDepth sets how deeply form XObjects may nest before they are
// skipped.
func WithMaxFormDepth(depth int) Option {
	return func(e *Extractor) { e.maxFormDepth = depth }
}

// Extractor replays content streams and records the text they show. It
// caches fonts by object reference, so reuse one Extractor for all pages
// of a document. An Extractor is not safe for concurrent use.
type Extractor struct {
	resolver     Resolver
	logger       *slog.Logger
	maxFormDepth int
	fonts        map[core.IndirectRef]*font.Font
	fontErrs     map[core.IndirectRef]error

	ctx   context.Context // set for the duration of one extraction
	gs    *graphicsstate.GraphicsState
	res   core.Dict
	forms []core.IndirectRef
	runs  []TextRun
	errs  []error
}

// NewExtractor creates a new text extractor
func NewExtractor(resolver Resolver, opts ...Option) *Extractor {
	e := &Extractor{
		resolver:     resolver,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxFormDepth: DefaultMaxFormDepth,
		fonts:        make(map[core.IndirectRef]*font.Font),
		fontErrs:     make(map[core.IndirectRef]error),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractPage concatenates the page's content streams and returns the
// runs they show. A stream that cannot be decoded, a malformed operator
// or an unusable font only loses its own text: the runs are valid even
// when the returned error, which joins every such problem, is not nil.
func (e *Extractor) ExtractPage(page *pages.Page) ([]TextRun, error) {
	return e.ExtractPageContext(context.Background(), page)
}

// ExtractPageContext is ExtractPage, stopping between content streams,
// operators and forms once ctx is done. The runs shown so far are
// returned with an error wrapping ctx.Err().
func (e *Extractor) ExtractPageContext(ctx context.Context, page *pages.Page) ([]TextRun, error) {
	resources, err := page.Resources()
	if err != nil {
		return nil, fmt.Errorf("page resources: %w", err)
	}
	streams, err := page.Contents()
	if err != nil {
		return nil, fmt.Errorf("page contents: %w", err)
	}

	var content []byte
	var errs []error
	for i, s := range streams {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("text extraction stopped: %w", err)
		}
		data, err := s.Decode()
		if err != nil {
			errs = append(errs, fmt.Errorf("content stream %d: %w", i, err))
			continue
		}
		content = append(content, data...)
		content = append(content, '\n')
	}
	runs, err := e.extract(ctx, content, resources)
	return runs, errors.Join(append(errs, err)...)
}

// Extract runs one content stream against resources.
func (e *Extractor) Extract(content []byte, resources core.Dict) ([]TextRun, error) {
	return e.extract(context.Background(), content, resources)
}

func (e *Extractor) extract(ctx context.Context, content []byte, resources core.Dict) ([]TextRun, error) {
	e.ctx = ctx
	defer func() { e.ctx = nil }()
	e.gs = graphicsstate.NewGraphicsState()
	e.res = resources
	e.forms = e.forms[:0]
	e.runs = nil
	e.errs = nil
	e.run(content)
	if err := ctx.Err(); err != nil {
		e.errs = append(e.errs, fmt.Errorf("text extraction stopped: %w", err))
	}
	return e.runs, errors.Join(e.errs...)
}

func (e *Extractor) run(content []byte) {
	ops, err := contentstream.NewParser(content).Parse()
	if err != nil {
		e.errs = append(e.errs, err)
	}
	for _, op := range ops {
		if e.ctx.Err() != nil {
			return
		}
		e.processOperation(op)
	}
}

// processOperation processes a single content stream operation. Operators
// outside the text and state subset are ignored.
func (e *Extractor) processOperation(op contentstream.Operation) {
	gs := e.gs
	args := op.Operands
	switch op.Operator {
	case "q":
		if err := gs.Save(); err != nil {
			e.errs = append(e.errs, err)
		}
	case "Q":
		if err := gs.Restore(); err != nil {
			e.logger.Debug("unbalanced Q", "error", err)
		}
	case "cm":
		if m, ok := toMatrix(args); ok {
			gs.Transform(m)
		}

	case "BT":
		gs.BeginText()
	case "Tf":
		if len(args) == 2 {
			name, _ := args[0].(core.Name)
			size, _ := core.ToFloat(args[1])
			gs.SetFont(string(name), e.font(string(name)), size)
		}
	case "Tc":
		if v, ok := number(args, 0, 1); ok {
			gs.SetCharSpacing(v)
		}
	case "Tw":
		if v, ok := number(args, 0, 1); ok {
			gs.SetWordSpacing(v)
		}
	case "Tz":
		if v, ok := number(args, 0, 1); ok {
			gs.SetHorizontalScaling(v)
		}
	case "TL":
		if v, ok := number(args, 0, 1); ok {
			gs.SetLeading(v)
		}
	case "Tr":
		if v, ok := number(args, 0, 1); ok {
			gs.SetRenderingMode(int(v))
		}
	case "Ts":
		if v, ok := number(args, 0, 1); ok {
			gs.SetTextRise(v)
		}

	case "Tm":
		if m, ok := toMatrix(args); ok {
			gs.SetTextMatrix(m)
		}
	case "Td", "TD":
		tx, ok1 := number(args, 0, 2)
		ty, ok2 := number(args, 1, 2)
		if !ok1 || !ok2 {
			break
		}
		if op.Operator == "TD" {
			gs.TranslateTextSetLeading(tx, ty)
		} else {
			gs.TranslateText(tx, ty)
		}
	case "T*":
		gs.NextLine()

	case "Tj":
		if len(args) == 1 {
			e.show(args[0])
		}
	case "TJ":
		if len(args) == 1 {
			if arr, ok := args[0].(core.Array); ok {
				e.showArray(arr)
			}
		}
	case "'":
		gs.NextLine()
		if len(args) == 1 {
			e.show(args[0])
		}
	case "\"":
		if len(args) == 3 {
			if aw, ok := core.ToFloat(args[0]); ok {
				gs.SetWordSpacing(aw)
			}
			if ac, ok := core.ToFloat(args[1]); ok {
				gs.SetCharSpacing(ac)
			}
			gs.NextLine()
			e.show(args[2])
		}

	case "Do":
		if len(args) == 1 {
			if name, ok := args[0].(core.Name); ok {
				e.doXObject(string(name))
			}
		}
	}
}

// show decodes a string operand with the current font and records it.
func (e *Extractor) show(operand core.Object) {
	data, ok := stringBytes(operand)
	if !ok {
		return
	}
	ts := &e.gs.Text
	f := ts.Font
	if f == nil {
		f = font.Fallback()
		ts.Font = f
	}

	glyphs := f.Decode(data)
	x, y := e.gs.TextPosition()
	size := e.gs.EffectiveFontSize()
	e.gs.ShowGlyphs(glyphs)
	endX, _ := e.gs.TextPosition()

	var sb strings.Builder
	for _, g := range glyphs {
		sb.WriteString(g.Text)
	}
	text := font.NormalizeUnicode(sb.String())
	if text == "" {
		return
	}
	e.runs = append(e.runs, TextRun{
		Text:      text,
		X:         x,
		Y:         y,
		EndX:      endX,
		FontSize:  size,
		FontName:  f.BaseFont,
		Invisible: ts.RenderingMode == graphicsstate.RenderInvisible,
		Direction: DetectDirection(text),
	})
}

// showArray handles TJ. A large negative adjustment inside the array is
// how many producers write a word space, so it becomes one.
func (e *Extractor) showArray(arr core.Array) {
	start := len(e.runs)
	for _, item := range arr {
		if n, ok := core.ToFloat(item); ok {
			e.gs.Adjust(n)
			if n < -spaceAdjustment && len(e.runs) > start {
				last := &e.runs[len(e.runs)-1]
				if !strings.HasSuffix(last.Text, " ") {
					last.Text += " "
				}
			}
			continue
		}
		e.show(item)
	}
}

// spaceAdjustment is the TJ offset, in thousandths of an em, treated as
// a word break.
const spaceAdjustment = 180

// font returns the font for a /Font resource name, loading it once per
// object. Missing or broken fonts fall back to Latin-1.
func (e *Extractor) font(name string) *font.Font {
	fonts, _ := e.resolve(e.res.Get("Font")).(core.Dict)
	entry := fonts.Get(name)
	ref, isRef := entry.(core.IndirectRef)
	if isRef {
		if f, ok := e.fonts[ref]; ok {
			return f
		}
		if _, failed := e.fontErrs[ref]; failed {
			return font.Fallback()
		}
	}

	dict, ok := e.resolve(entry).(core.Dict)
	if !ok {
		e.errs = append(e.errs, fmt.Errorf("font /%s not found in resources", name))
		return font.Fallback()
	}
	f, err := font.Load(dict, e.resolver)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("font /%s: %w", name, err))
		if isRef {
			e.fontErrs[ref] = err
		}
		return font.Fallback()
	}
	if isRef {
		e.fonts[ref] = f
	}
	return f
}

// doXObject runs a form XObject in place. Images and unknown names are
// ignored here.
func (e *Extractor) doXObject(name string) {
	xobjects, _ := e.resolve(e.res.Get("XObject")).(core.Dict)
	entry := xobjects.Get(name)
	stream, ok := e.resolve(entry).(*core.Stream)
	if !ok {
		return
	}
	if subtype, _ := stream.Dict.GetName("Subtype"); subtype != "Form" {
		return
	}

	ref, _ := entry.(core.IndirectRef)
	if len(e.forms) >= e.maxFormDepth {
		e.errs = append(e.errs, fmt.Errorf("form /%s: nested deeper than %d", name, e.maxFormDepth))
		return
	}
	for _, active := range e.forms {
		if ref != (core.IndirectRef{}) && active == ref {
			e.logger.Debug("skipping recursive form", "name", name, "ref", ref.String())
			return
		}
	}

	if e.ctx.Err() != nil {
		return
	}
	data, err := stream.Decode()
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("form /%s: %w", name, err))
		return
	}

	depth := e.gs.Depth()
	if err := e.gs.Save(); err != nil {
		e.errs = append(e.errs, err)
		return
	}
	if arr, ok := e.resolve(stream.Dict.Get("Matrix")).(core.Array); ok {
		if m, ok := toMatrix(arr); ok {
			e.gs.Transform(m)
		}
	}
	parent := e.res
	if res, ok := e.resolve(stream.Dict.Get("Resources")).(core.Dict); ok {
		e.res = res
	}
	e.forms = append(e.forms, ref)

	e.run(data)

	e.forms = e.forms[:len(e.forms)-1]
	e.res = parent
	// Unbalanced q inside the form must not leak out of it.
	for e.gs.Depth() > depth {
		e.gs.Restore()
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

func stringBytes(obj core.Object) ([]byte, bool) {
	switch v := obj.(type) {
	case core.String:
		return []byte(v), true
	case core.HexString:
		return []byte(v), true
	}
	return nil, false
}

// number returns operand i when the operator has exactly n operands.
func number(args []core.Object, i, n int) (float64, bool) {
	if len(args) != n {
		return 0, false
	}
	return core.ToFloat(args[i])
}

func toMatrix(args []core.Object) (model.Matrix, bool) {
	if len(args) != 6 {
		return model.Matrix{}, false
	}
	var m model.Matrix
	for i, a := range args {
		v, ok := core.ToFloat(a)
		if !ok {
			return model.Matrix{}, false
		}
		m[i] = v
	}
	return m, true
}
