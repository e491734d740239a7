// Package graphicsstate tracks the parts of the PDF graphics state that
// text extraction needs.
//
// A [GraphicsState] holds the current transformation matrix and the text
// state, with a stack for the q and Q operators:
//
//	gs := graphicsstate.NewGraphicsState()
//	gs.Save()                  // q
//	gs.Transform(matrix)       // cm
//	gs.SetFont("F1", f, 12)    // Tf
//	gs.ShowGlyphs(f.Decode(s)) // Tj
//	x, y := gs.TextPosition()
//	gs.Restore()               // Q
//
// Glyph advances follow the font widths plus Tc, Tw and Tz, so positions
// stay correct across long lines. Fonts with vertical writing advance
// down instead of right.
package graphicsstate
