package font

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tsawler/pdfhtml/core"
)

// Resolver resolves indirect references inside font dictionaries.
type Resolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// Glyph is one decoded character code.
type Glyph struct {
	Code  Code
	Text  string  // Unicode text, empty when the code has no mapping
	Width float64 // horizontal advance in thousandths of text space
}

// IsSpace reports whether word spacing applies to the glyph: only the
// single-byte code 32 qualifies.
func (g Glyph) IsSpace() bool { return g.Code.Len == 1 && g.Code.Value == 32 }

// Font maps the bytes of string operands to text and widths.
type Font struct {
	BaseFont  string
	Subtype   string
	Encoding  string // encoding or CMap name
	ToUnicode *CMap

	enc          *Encoding
	firstChar    int
	widths       []float64
	std          *[95]float64
	missingWidth float64
	scale        float64 // Type3 FontMatrix scale to thousandths

	composite bool
	vertical  bool
	codes     *CMap // encoding CMap of a Type0 font, nil for Identity
	ucs2      bool
	cid       *CIDFont
	embedded  map[uint32]rune // CID to text from the embedded font program
}

// FontDescriptor holds the descriptor entries used for decoding.
type FontDescriptor struct {
	FontName     string
	Flags        int
	MissingWidth float64
}

// symbolic is bit 3 of the descriptor flags.
const symbolic = 1 << 2

// Load builds a Font from a font dictionary. A broken /ToUnicode or
// /Encoding entry is ignored in favor of the next source of text, so an
// error means the dictionary cannot describe a font at all.
func Load(dict core.Dict, r Resolver) (*Font, error) {
	if dict == nil {
		return nil, fmt.Errorf("font dictionary is missing")
	}
	f := &Font{
		BaseFont: nameOf(dict.Get("BaseFont")),
		Subtype:  nameOf(dict.Get("Subtype")),
		scale:    1,
	}
	if stream, ok := resolve(r, dict.Get("ToUnicode")).(*core.Stream); ok {
		if cm, err := ParseCMapStream(stream); err == nil {
			f.ToUnicode = cm
		}
	}

	if f.Subtype == "Type0" {
		if err := f.loadType0(dict, r); err != nil {
			return nil, fmt.Errorf("font %s: %w", f.BaseFont, err)
		}
		return f, nil
	}
	f.loadSimple(dict, r)
	return f, nil
}

// Fallback returns a Latin-1 font with Helvetica metrics, for text whose
// font resource is missing or unusable.
func Fallback() *Font {
	return &Font{
		BaseFont: "Helvetica",
		Subtype:  "Type1",
		Encoding: latin1Encoding.Name,
		enc:      latin1Encoding,
		std:      &helveticaWidths,
		scale:    1,
	}
}

func (f *Font) loadSimple(dict core.Dict, r Resolver) {
	desc := loadDescriptor(dict, r)
	f.missingWidth = desc.MissingWidth
	f.std = standardWidths(f.BaseFont)

	base := standardEncoding
	if f.Subtype == "TrueType" && desc.Flags&symbolic == 0 {
		base = winAnsiEncoding
	}
	f.enc = base

	switch enc := resolve(r, dict.Get("Encoding")).(type) {
	case core.Name:
		f.enc = GetEncoding(string(enc))
	case core.Dict:
		if name, ok := enc.GetName("BaseEncoding"); ok {
			f.enc = GetEncoding(string(name))
		}
		if diffs, ok := resolve(r, enc.Get("Differences")).(core.Array); ok {
			f.enc = NewCustomEncoding(f.enc, parseDifferences(diffs))
		}
	}
	f.Encoding = f.enc.Name

	if fc, ok := core.ToFloat(resolve(r, dict.Get("FirstChar"))); ok && fc >= 0 {
		f.firstChar = int(fc)
	}
	if widths, ok := resolve(r, dict.Get("Widths")).(core.Array); ok {
		f.widths = make([]float64, len(widths))
		for i, w := range widths {
			f.widths[i] = numberOf(resolve(r, w))
		}
	}
	if f.Subtype == "Type3" {
		if fm, ok := resolve(r, dict.Get("FontMatrix")).(core.Array); ok && len(fm) == 6 {
			if a, ok := core.ToFloat(fm[0]); ok && a != 0 {
				f.scale = a * 1000
			}
		}
	}
}

func (f *Font) loadType0(dict core.Dict, r Resolver) error {
	f.composite = true
	switch enc := resolve(r, dict.Get("Encoding")).(type) {
	case core.Name:
		f.Encoding = string(enc)
	case *core.Stream:
		cm, err := ParseCMapStream(enc)
		if err != nil {
			return fmt.Errorf("encoding cmap: %w", err)
		}
		f.codes = cm
		f.Encoding = cm.Name
		if wmode, ok := enc.Dict.GetInt("WMode"); ok && wmode == 1 {
			f.vertical = true
		}
	default:
		f.Encoding = "Identity-H"
	}
	if IsVerticalEncoding(f.Encoding) {
		f.vertical = true
	}
	f.ucs2 = isUCS2CMap(f.Encoding)

	cid, err := loadCIDFont(dict, r)
	if err != nil {
		return err
	}
	f.cid = cid
	if f.ToUnicode == nil && !f.ucs2 {
		// Without a ToUnicode CMap the font program's own cmap is the best
		// remaining source of text. A broken program is not fatal.
		if m, err := cid.loadEmbeddedText(r); err == nil {
			f.embedded = m
		}
	}
	return nil
}

func loadDescriptor(dict core.Dict, r Resolver) FontDescriptor {
	fd, ok := resolve(r, dict.Get("FontDescriptor")).(core.Dict)
	if !ok {
		return FontDescriptor{}
	}
	return FontDescriptor{
		FontName:     nameOf(fd.Get("FontName")),
		Flags:        int(numberOf(resolve(r, fd.Get("Flags")))),
		MissingWidth: numberOf(resolve(r, fd.Get("MissingWidth"))),
	}
}

// parseDifferences reads [code name1 name2 ... code name1 ...] into a
// code to glyph name map.
func parseDifferences(diffs core.Array) map[byte]string {
	out := make(map[byte]string)
	code := -1
	for _, item := range diffs {
		switch v := item.(type) {
		case core.Int:
			code = int(v)
		case core.Real:
			code = int(v)
		case core.Name:
			if code >= 0 && code < 256 {
				out[byte(code)] = string(v)
				code++
			}
		}
	}
	return out
}

// IsComposite reports whether the font is a Type0 font.
func (f *Font) IsComposite() bool { return f.composite }

// IsVertical reports whether the font writes top to bottom.
func (f *Font) IsVertical() bool { return f.vertical }

// IsVerticalEncoding reports whether a CMap name selects vertical writing.
func IsVerticalEncoding(encoding string) bool {
	return encoding == "Identity-V" || strings.HasSuffix(encoding, "-V")
}

// Decode splits data into glyphs.
func (f *Font) Decode(data []byte) []Glyph {
	if f.composite {
		return f.decodeComposite(data)
	}
	glyphs := make([]Glyph, len(data))
	for i, b := range data {
		code := Code{Value: uint32(b), Len: 1}
		glyphs[i] = Glyph{Code: code, Text: f.simpleText(code), Width: f.simpleWidth(b)}
	}
	return glyphs
}

func (f *Font) simpleText(code Code) string {
	if f.ToUnicode != nil {
		if s, ok := f.ToUnicode.Lookup(code); ok {
			return s
		}
	}
	if r, ok := f.enc.Decode(byte(code.Value)); ok {
		return string(r)
	}
	if code.Value >= 0x20 {
		return string(rune(code.Value)) // Latin-1
	}
	return ""
}

func (f *Font) simpleWidth(b byte) float64 {
	if f.widths != nil {
		if i := int(b) - f.firstChar; i >= 0 && i < len(f.widths) {
			return f.widths[i] * f.scale
		}
		return f.missingWidth
	}
	if f.std != nil {
		if r, ok := f.enc.Decode(b); ok && r >= 32 && r < 127 {
			return f.std[r-32]
		}
	}
	if f.missingWidth > 0 {
		return f.missingWidth
	}
	return 500
}

func (f *Font) decodeComposite(data []byte) []Glyph {
	var codes []Code
	if f.codes != nil {
		codes = f.codes.Codes(data, 2)
	} else {
		codes = NewCMap().Codes(data, 2)
	}
	glyphs := make([]Glyph, len(codes))
	for i, code := range codes {
		cid := code.Value
		if f.codes != nil {
			if c, ok := f.codes.CID(code); ok {
				cid = c
			}
		}
		width := 1000.0
		if f.cid != nil {
			width = f.cid.Width(cid)
		}
		glyphs[i] = Glyph{Code: code, Text: f.compositeText(code, cid), Width: width}
	}
	return glyphs
}

func (f *Font) compositeText(code Code, cid uint32) string {
	if f.ToUnicode != nil {
		if s, ok := f.ToUnicode.Lookup(code); ok {
			return s
		}
	}
	if r, ok := f.embedded[cid]; ok {
		return string(r)
	}
	r := rune(code.Value)
	if f.ucs2 || r >= 0x20 && utf8.ValidRune(r) {
		return string(r)
	}
	return ""
}

// DecodeString returns the text of data, normalized.
func (f *Font) DecodeString(data []byte) string {
	var sb strings.Builder
	for _, g := range f.Decode(data) {
		sb.WriteString(g.Text)
	}
	return NormalizeUnicode(sb.String())
}

func resolve(r Resolver, obj core.Object) core.Object {
	if r == nil || obj == nil {
		return obj
	}
	out, err := r.Resolve(obj)
	if err != nil {
		return nil
	}
	return out
}

func nameOf(obj core.Object) string {
	if n, ok := obj.(core.Name); ok {
		return string(n)
	}
	return ""
}

func textOf(obj core.Object) string {
	switch v := obj.(type) {
	case core.String:
		return string(v)
	case core.Name:
		return string(v)
	}
	return ""
}

func numberOf(obj core.Object) float64 {
	v, _ := core.ToFloat(obj)
	return v
}
