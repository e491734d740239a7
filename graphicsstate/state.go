package graphicsstate

import (
	"fmt"

	"github.com/tsawler/pdfhtml/font"
	"github.com/tsawler/pdfhtml/model"
)

// maxStackDepth bounds nested q operators.
const maxStackDepth = 256

// Rendering modes set by the Tr operator.
const (
	RenderFill      = 0
	RenderInvisible = 3
)

// GraphicsState represents the PDF graphics state
type GraphicsState struct {
	// Current Transformation Matrix
	CTM model.Matrix

	// Text state
	Text TextState

	// Graphics state stack (for q/Q operators)
	stack []saved
}

type saved struct {
	ctm  model.Matrix
	text TextState
}

// TextState represents text-specific state
type TextState struct {
	FontName string     // resource name from Tf
	Font     *font.Font // nil until Tf names a font
	FontSize float64

	CharSpacing       float64
	WordSpacing       float64
	HorizontalScaling float64 // percent
	Leading           float64
	RenderingMode     int
	Rise              float64

	TextMatrix     model.Matrix
	TextLineMatrix model.Matrix
}

// NewGraphicsState creates a new graphics state with default values
func NewGraphicsState() *GraphicsState {
	return NewGraphicsStateWithCTM(model.Identity())
}

// NewGraphicsStateWithCTM starts from ctm instead of the identity, as
// when a form XObject is painted.
func NewGraphicsStateWithCTM(ctm model.Matrix) *GraphicsState {
	return &GraphicsState{
		CTM: ctm,
		Text: TextState{
			FontSize:          12,
			HorizontalScaling: 100,
			TextMatrix:        model.Identity(),
			TextLineMatrix:    model.Identity(),
		},
	}
}

// Save pushes the current graphics state onto the stack (q operator)
func (gs *GraphicsState) Save() error {
	if len(gs.stack) >= maxStackDepth {
		return fmt.Errorf("graphics state stack deeper than %d", maxStackDepth)
	}
	gs.stack = append(gs.stack, saved{ctm: gs.CTM, text: gs.Text})
	return nil
}

// Restore pops a graphics state from the stack (Q operator). The text
// matrices are not part of the saved state and keep their values.
func (gs *GraphicsState) Restore() error {
	if len(gs.stack) == 0 {
		return fmt.Errorf("graphics state stack underflow")
	}
	s := gs.stack[len(gs.stack)-1]
	gs.stack = gs.stack[:len(gs.stack)-1]

	tm, tlm := gs.Text.TextMatrix, gs.Text.TextLineMatrix
	gs.CTM = s.ctm
	gs.Text = s.text
	gs.Text.TextMatrix, gs.Text.TextLineMatrix = tm, tlm
	return nil
}

// Depth returns the number of saved states.
func (gs *GraphicsState) Depth() int { return len(gs.stack) }

// Transform applies a transformation matrix to CTM (cm operator)
func (gs *GraphicsState) Transform(m model.Matrix) {
	gs.CTM = m.Multiply(gs.CTM)
}

// SetFont sets the current font (Tf operator)
func (gs *GraphicsState) SetFont(name string, f *font.Font, size float64) {
	gs.Text.FontName = name
	gs.Text.Font = f
	gs.Text.FontSize = size
}

// SetCharSpacing sets character spacing (Tc operator)
func (gs *GraphicsState) SetCharSpacing(spacing float64) {
	gs.Text.CharSpacing = spacing
}

// SetWordSpacing sets word spacing (Tw operator)
func (gs *GraphicsState) SetWordSpacing(spacing float64) {
	gs.Text.WordSpacing = spacing
}

// SetHorizontalScaling sets horizontal scaling (Tz operator)
func (gs *GraphicsState) SetHorizontalScaling(scale float64) {
	gs.Text.HorizontalScaling = scale
}

// SetLeading sets text leading (TL operator)
func (gs *GraphicsState) SetLeading(leading float64) {
	gs.Text.Leading = leading
}

// SetRenderingMode sets text rendering mode (Tr operator)
func (gs *GraphicsState) SetRenderingMode(mode int) {
	gs.Text.RenderingMode = mode
}

// SetTextRise sets text rise (Ts operator)
func (gs *GraphicsState) SetTextRise(rise float64) {
	gs.Text.Rise = rise
}

// BeginText initializes text state (BT operator)
func (gs *GraphicsState) BeginText() {
	gs.Text.TextMatrix = model.Identity()
	gs.Text.TextLineMatrix = model.Identity()
}

// SetTextMatrix sets the text matrix (Tm operator)
func (gs *GraphicsState) SetTextMatrix(m model.Matrix) {
	gs.Text.TextMatrix = m
	gs.Text.TextLineMatrix = m
}

// TranslateText starts a new line offset from the current one (Td operator)
func (gs *GraphicsState) TranslateText(tx, ty float64) {
	gs.Text.TextLineMatrix = model.Translate(tx, ty).Multiply(gs.Text.TextLineMatrix)
	gs.Text.TextMatrix = gs.Text.TextLineMatrix
}

// TranslateTextSetLeading translates text and sets leading (TD operator)
func (gs *GraphicsState) TranslateTextSetLeading(tx, ty float64) {
	gs.SetLeading(-ty)
	gs.TranslateText(tx, ty)
}

// NextLine moves to next line (T* operator)
func (gs *GraphicsState) NextLine() {
	gs.TranslateText(0, -gs.Text.Leading)
}

// ShowGlyphs advances the text matrix past glyphs, applying character and
// word spacing.
func (gs *GraphicsState) ShowGlyphs(glyphs []font.Glyph) {
	ts := &gs.Text
	vertical := ts.Font != nil && ts.Font.IsVertical()
	for _, g := range glyphs {
		spacing := ts.CharSpacing
		if g.IsSpace() {
			spacing += ts.WordSpacing
		}
		if vertical {
			gs.advance(0, -ts.FontSize+spacing)
			continue
		}
		gs.advance((g.Width/1000*ts.FontSize+spacing)*ts.HorizontalScaling/100, 0)
	}
}

// Adjust applies a TJ array number, in thousandths of text space.
func (gs *GraphicsState) Adjust(n float64) {
	ts := &gs.Text
	if ts.Font != nil && ts.Font.IsVertical() {
		gs.advance(0, -n/1000*ts.FontSize)
		return
	}
	gs.advance(-n/1000*ts.FontSize*ts.HorizontalScaling/100, 0)
}

func (gs *GraphicsState) advance(tx, ty float64) {
	gs.Text.TextMatrix = model.Translate(tx, ty).Multiply(gs.Text.TextMatrix)
}

// TextPosition returns the current text origin, with rise, in user space
func (gs *GraphicsState) TextPosition() (x, y float64) {
	p := gs.Text.TextMatrix.Multiply(gs.CTM).Transform(model.Point{X: 0, Y: gs.Text.Rise})
	return p.X, p.Y
}

// EffectiveFontSize returns the font size as painted, after the text
// matrix and CTM scale it.
func (gs *GraphicsState) EffectiveFontSize() float64 {
	size := gs.Text.FontSize * gs.Text.TextMatrix.Multiply(gs.CTM).VerticalScale()
	if size < 0 {
		return -size
	}
	return size
}
