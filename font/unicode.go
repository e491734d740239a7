package font

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"
)

var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// DecodeUTF16BE decodes big-endian UTF-16. Unpaired surrogates become
// U+FFFD and an odd trailing byte is dropped.
func DecodeUTF16BE(data []byte) string {
	if len(data)%2 == 1 {
		data = data[:len(data)-1]
	}
	out, err := utf16BE.NewDecoder().Bytes(data)
	if err != nil {
		return ""
	}
	return string(out)
}

// NormalizeUnicode applies compatibility composition, which splits
// ligatures such as "ﬁ" and folds presentation forms. Strings that are
// already plain ASCII are returned unchanged.
func NormalizeUnicode(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return norm.NFKC.String(s)
		}
	}
	return s
}

// DecodeTextString decodes a PDF text string such as a /Title entry:
// UTF-16 with a byte order mark, UTF-8 with one, else PDFDocEncoding.
func DecodeTextString(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return DecodeUTF16BE(data[2:])
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		out, err := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
		if err != nil {
			return ""
		}
		return string(out)
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return strings.ToValidUTF8(string(data[3:]), "�")
	}
	return pdfDocEncoding.DecodeString(data)
}
