// Package font decodes the bytes of PDF string operands into text and
// glyph widths.
//
// # Loading
//
// [Load] reads a font dictionary from a page's /Font resources. Simple
// fonts (Type1, TrueType, Type3) use one byte per code; Type0 fonts use
// the code lengths of their encoding CMap and take widths from the
// descendant [CIDFont]:
//
//	f, err := font.Load(fontDict, resolver)
//	if err != nil {
//	    f = font.Fallback() // Latin-1
//	}
//	for _, g := range f.Decode(raw) {
//	    fmt.Println(g.Text, g.Width)
//	}
//
// # Text Sources
//
// A code's text comes from the first source that maps it:
//
//   - the /ToUnicode CMap
//   - the font encoding, with /Differences applied by glyph name
//   - the code itself, read as Latin-1 (or UCS-2 for composite fonts)
//
// # Widths
//
// Simple fonts use /Widths from /FirstChar on, then the built-in metrics
// of the standard fonts, then the descriptor's /MissingWidth. CIDFonts
// use /W and /DW.
package font
