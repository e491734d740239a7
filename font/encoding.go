package font

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// noRune marks an unassigned code.
const noRune = rune(-1)

// Encoding maps single-byte character codes to Unicode.
type Encoding struct {
	Name  string
	table [256]rune
}

// Decode returns the rune for code, or false if the code is unassigned.
func (e *Encoding) Decode(code byte) (rune, bool) {
	r := e.table[code]
	return r, r != noRune
}

// DecodeString decodes each byte of data. Unassigned codes are dropped.
func (e *Encoding) DecodeString(data []byte) string {
	var sb strings.Builder
	for _, b := range data {
		if r, ok := e.Decode(b); ok {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func fromCharmap(name string, cm *charmap.Charmap) *Encoding {
	e := &Encoding{Name: name}
	for i := range e.table {
		r := cm.DecodeByte(byte(i))
		if r == '\ufffd' {
			r = noRune
		}
		e.table[i] = r
	}
	return e
}

var (
	winAnsiEncoding  = fromCharmap("WinAnsiEncoding", charmap.Windows1252)
	macRomanEncoding = fromCharmap("MacRomanEncoding", charmap.Macintosh)
	latin1Encoding   = fromCharmap("Latin1", charmap.ISO8859_1)
	standardEncoding = newStandardEncoding()
	pdfDocEncoding   = newPDFDocEncoding()
)

// newStandardEncoding builds Adobe StandardEncoding: ASCII with curly
// quotes, plus the accents and ligatures in the high half.
func newStandardEncoding() *Encoding {
	e := &Encoding{Name: "StandardEncoding"}
	for i := range e.table {
		e.table[i] = noRune
	}
	for i := 0x20; i < 0x7F; i++ {
		e.table[i] = rune(i)
	}
	e.table[0x27] = '’'
	e.table[0x60] = '‘'
	high := map[byte]rune{
		0xA1: '¡', 0xA2: '¢', 0xA3: '£', 0xA4: '⁄', 0xA5: '¥', 0xA6: 'ƒ',
		0xA7: '§', 0xA8: '¤', 0xA9: '\'', 0xAA: '“', 0xAB: '«', 0xAC: '‹',
		0xAD: '›', 0xAE: 'ﬁ', 0xAF: 'ﬂ', 0xB1: '–', 0xB2: '†',
		0xB3: '‡', 0xB4: '·', 0xB6: '¶', 0xB7: '•', 0xB8: '‚',
		0xB9: '„', 0xBA: '”', 0xBB: '»', 0xBC: '…', 0xBD: '‰',
		0xBF: '¿', 0xC1: '`', 0xC2: '´', 0xC3: 'ˆ', 0xC4: '˜', 0xC5: '¯',
		0xC6: '˘', 0xC7: '˙', 0xC8: '¨', 0xCA: '˚', 0xCB: '¸',
		0xCD: '˝', 0xCE: '˛', 0xCF: 'ˇ', 0xD0: '—', 0xE1: 'Æ',
		0xE3: 'ª', 0xE8: 'Ł', 0xE9: 'Ø', 0xEA: 'Œ', 0xEB: 'º', 0xF1: 'æ',
		0xF5: 'ı', 0xF8: 'ł', 0xF9: 'ø', 0xFA: 'œ', 0xFB: 'ß',
	}
	for code, r := range high {
		e.table[code] = r
	}
	return e
}

// newPDFDocEncoding builds PDFDocEncoding, used for text strings outside
// content streams such as /Title.
func newPDFDocEncoding() *Encoding {
	e := &Encoding{Name: "PDFDocEncoding"}
	for i := range e.table {
		e.table[i] = rune(i)
	}
	special := map[byte]rune{
		0x18: '˘', 0x19: 'ˇ', 0x1A: 'ˆ', 0x1B: '˙', 0x1C: '˝',
		0x1D: '˛', 0x1E: '˚', 0x1F: '˜', 0x80: '•', 0x81: '†',
		0x82: '‡', 0x83: '…', 0x84: '—', 0x85: '–', 0x86: 'ƒ',
		0x87: '⁄', 0x88: '‹', 0x89: '›', 0x8A: '−', 0x8B: '‰',
		0x8C: '„', 0x8D: '“', 0x8E: '”', 0x8F: '‘', 0x90: '’',
		0x91: '‚', 0x92: '™', 0x93: 'ﬁ', 0x94: 'ﬂ', 0x95: 'Ł',
		0x96: 'Œ', 0x97: 'Š', 0x98: 'Ÿ', 0x99: 'Ž', 0x9A: 'ı',
		0x9B: 'ł', 0x9C: 'œ', 0x9D: 'š', 0x9E: 'ž', 0x9F: noRune,
		0xA0: '€', 0x7F: noRune, 0xAD: noRune,
	}
	for code, r := range special {
		e.table[code] = r
	}
	return e
}

// GetEncoding returns a predefined encoding by its PDF name. Unknown names
// get StandardEncoding.
func GetEncoding(name string) *Encoding {
	switch name {
	case "WinAnsiEncoding":
		return winAnsiEncoding
	case "MacRomanEncoding", "MacExpertEncoding":
		return macRomanEncoding
	case "PDFDocEncoding":
		return pdfDocEncoding
	case "Latin1":
		return latin1Encoding
	default:
		return standardEncoding
	}
}

// NewCustomEncoding applies a /Differences array, already split into
// (code, glyph name) pairs, on top of base.
func NewCustomEncoding(base *Encoding, differences map[byte]string) *Encoding {
	e := &Encoding{Name: base.Name + "+custom", table: base.table}
	for code, glyph := range differences {
		if r, ok := GlyphToRune(glyph); ok {
			e.table[code] = r
		}
	}
	return e
}

// accents maps glyph-name suffixes to combining marks. "eacute" is
// composed from "e" and U+0301.
var accents = []struct {
	suffix string
	mark   rune
}{
	{"acute", '\u0301'},
	{"grave", '\u0300'},
	{"circumflex", '\u0302'},
	{"tilde", '\u0303'},
	{"dieresis", '\u0308'},
	{"ring", '\u030a'},
	{"cedilla", '\u0327'},
	{"caron", '\u030c'},
	{"macron", '\u0304'},
	{"breve", '\u0306'},
	{"dotaccent", '\u0307'},
	{"ogonek", '\u0328'},
	{"hungarumlaut", '\u030b'},
}

// GlyphToRune maps an Adobe glyph name to Unicode. It understands the
// common named glyphs, uniXXXX and uXXXX[XX] names, and accented Latin
// letters such as "Aacute".
func GlyphToRune(name string) (rune, bool) {
	if name == "" {
		return 0, false
	}
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i] // "a.sc", "one.oldstyle"
	}
	if r, ok := glyphNames[name]; ok {
		return r, true
	}
	if len(name) == 1 {
		return rune(name[0]), true
	}
	if strings.HasPrefix(name, "uni") && len(name) == 7 {
		if v, err := strconv.ParseUint(name[3:], 16, 32); err == nil {
			return rune(v), true
		}
	}
	if name[0] == 'u' && len(name) >= 5 && len(name) <= 7 {
		if v, err := strconv.ParseUint(name[1:], 16, 32); err == nil {
			return rune(v), true
		}
	}
	for _, a := range accents {
		base, ok := strings.CutSuffix(name, a.suffix)
		if !ok || len(base) != 1 {
			continue
		}
		composed := norm.NFC.String(base + string(a.mark))
		if r := []rune(composed); len(r) == 1 {
			return r[0], true
		}
	}
	return 0, false
}

var glyphNames = map[string]rune{
	"space": ' ', "exclam": '!', "quotedbl": '"', "numbersign": '#', "dollar": '$',
	"percent": '%', "ampersand": '&', "quotesingle": '\'', "quoteright": '’',
	"parenleft": '(', "parenright": ')', "asterisk": '*', "plus": '+', "comma": ',',
	"hyphen": '-', "period": '.', "slash": '/', "zero": '0', "one": '1', "two": '2',
	"three": '3', "four": '4', "five": '5', "six": '6', "seven": '7', "eight": '8',
	"nine": '9', "colon": ':', "semicolon": ';', "less": '<', "equal": '=',
	"greater": '>', "question": '?', "at": '@', "bracketleft": '[', "backslash": '\\',
	"bracketright": ']', "asciicircum": '^', "underscore": '_', "grave": '`',
	"quoteleft": '‘', "braceleft": '{', "bar": '|', "braceright": '}',
	"asciitilde": '~', "bullet": '•', "endash": '–', "emdash": '—',
	"quotedblleft": '“', "quotedblright": '”', "quotesinglbase": '‚',
	"quotedblbase": '„', "ellipsis": '…', "dagger": '†',
	"daggerdbl": '‡', "trademark": '™', "copyright": '©', "registered": '®',
	"degree": '°', "fi": 'ﬁ', "fl": 'ﬂ', "ff": 'ﬀ', "ffi": 'ﬃ',
	"ffl": 'ﬄ', "Euro": '€', "section": '§', "paragraph": '¶',
	"periodcentered": '·', "guillemotleft": '«', "guillemotright": '»',
	"guilsinglleft": '‹', "guilsinglright": '›', "exclamdown": '¡',
	"questiondown": '¿', "cent": '¢', "sterling": '£', "yen": '¥', "currency": '¤',
	"brokenbar": '¦', "dieresis": '¨', "ordfeminine": 'ª', "ordmasculine": 'º',
	"logicalnot": '¬', "minus": '−', "plusminus": '±', "multiply": '×',
	"divide": '÷', "mu": 'µ', "onequarter": '¼', "onehalf": '½', "threequarters": '¾',
	"onesuperior": '¹', "twosuperior": '²', "threesuperior": '³', "nbspace": '\u00a0',
	"perthousand": '‰', "florin": 'ƒ', "circumflex": 'ˆ',
	"tilde": '˜', "germandbls": 'ß', "ae": 'æ', "AE": 'Æ', "oe": 'œ',
	"OE": 'Œ', "oslash": 'ø', "Oslash": 'Ø', "eth": 'ð', "Eth": 'Ð',
	"thorn": 'þ', "Thorn": 'Þ', "dotlessi": 'ı', "lslash": 'ł',
	"Lslash": 'Ł', "fraction": '⁄', "acute": '´', "cedilla": '¸',
	"macron": '¯', "sfthyphen": '\u00ad',
}
