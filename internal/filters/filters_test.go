package filters

import (
	"bytes"
	"compress/zlib"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hhrutter/lzw"
)

func zlibCompress(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

func lzwCompress(data []byte, earlyChange bool) []byte {
	var buf bytes.Buffer
	w := lzw.NewWriter(&buf, earlyChange)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	text := []byte("BT /F1 12 Tf 72 712 Td (Hello World) Tj ET")

	tests := []struct {
		name   string
		filter string
		input  []byte
		params Params
		want   []byte
	}{
		{"flate", "FlateDecode", zlibCompress(text), nil, text},
		{"flate abbreviated", "Fl", zlibCompress(text), nil, text},
		{"lzw early change", "LZWDecode", lzwCompress(text, true), nil, text},
		{"lzw no early change", "LZW", lzwCompress(text, false), Params{"EarlyChange": 0}, text},
		{"hex", "ASCIIHexDecode", []byte("48 65 6c6C 6F>"), nil, []byte("Hello")},
		{"hex odd digit", "AHx", []byte("4865F>"), nil, []byte{0x48, 0x65, 0xF0}},
		{"ascii85", "ASCII85Decode", []byte("<~87cURD]i,\"Ebo80~>"), nil, []byte("Hello World")},
		{"ascii85 z", "A85", []byte("z~>"), nil, []byte{0, 0, 0, 0}},
		{"run length", "RunLengthDecode", []byte{2, 'a', 'b', 'c', 254, 'x', 128}, nil, []byte("abcxxx")},
		{"dct passthrough", "DCTDecode", []byte{0xFF, 0xD8, 0xFF}, nil, []byte{0xFF, 0xD8, 0xFF}},
		{"jpx passthrough", "JPXDecode", []byte{0, 0, 0, 0x0C}, nil, []byte{0, 0, 0, 0x0C}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.filter, tt.input, tt.params)
			if err != nil {
				t.Fatalf("Decode(%s) error: %v", tt.filter, err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Decode(%s) = %q, want %q", tt.filter, got, tt.want)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		input  []byte
		params Params
		kind   ErrorKind
	}{
		{"unknown filter", "BogusDecode", []byte("x"), nil, UnsupportedFilter},
		{"jbig2", "JBIG2Decode", []byte("x"), nil, UnsupportedFilter},
		{"crypt", "Crypt", []byte("x"), Params{"Name": "StdCF"}, UnsupportedFilter},
		{"crypt bad name", "Crypt", []byte("x"), Params{"Name": 3}, UnsupportedFilter},
		{"bad zlib header", "FlateDecode", []byte("not zlib"), nil, CorruptStreamData},
		{"bad hex digit", "ASCIIHexDecode", []byte("4G>"), nil, CorruptStreamData},
		{"bad ascii85", "ASCII85Decode", []byte("abc{~>"), nil, CorruptStreamData},
		{"short run", "RunLengthDecode", []byte{5, 'a'}, nil, CorruptStreamData},
		{"fax too wide", "CCITTFaxDecode", []byte{0}, Params{"Columns": 1 << 61}, CorruptStreamData},
		{"fax no width", "CCITTFaxDecode", []byte{0}, Params{"Columns": 0}, CorruptStreamData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.filter, tt.input, tt.params)
			if err == nil {
				t.Fatal("expected error")
			}
			var fe *FilterError
			if !errors.As(err, &fe) {
				t.Fatalf("error %v is not a *FilterError", err)
			}
			if fe.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", fe.Kind, tt.kind)
			}
			if fe.Filter != tt.filter {
				t.Errorf("Filter = %q, want %q", fe.Filter, tt.filter)
			}
			if !IsKind(err, tt.kind) {
				t.Errorf("IsKind(%v) = false", tt.kind)
			}
		})
	}
}

func TestCryptIdentity(t *testing.T) {
	data := []byte("plain bytes")
	tests := []struct {
		name   string
		params Params
	}{
		{"no params", nil},
		{"no name", Params{"Type": "CryptFilterDecodeParms"}},
		{"identity", Params{"Name": "Identity"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode("Crypt", data, tt.params)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if diff := cmp.Diff(data, got); diff != "" {
				t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	tests := map[string]Name{
		"FlateDecode": Flate,
		"Fl":          Flate,
		"CCF":         CCITTFax,
		"DCT":         DCT,
		"JPXDecode":   JPX,
		"Nope":        Unknown,
	}
	for in, want := range tests {
		if got := Lookup(in); got != want {
			t.Errorf("Lookup(%q) = %v, want %v", in, got, want)
		}
	}
	if !DCT.IsImageCodec() || !JPX.IsImageCodec() || Flate.IsImageCodec() {
		t.Error("IsImageCodec misclassifies filters")
	}
}

func TestFlateTruncated(t *testing.T) {
	// Incompressible input spans several deflate blocks.
	text := make([]byte, 100000)
	seed := uint32(1)
	for i := range text {
		seed = seed*1103515245 + 12345
		text[i] = byte(seed >> 16)
	}
	full := zlibCompress(text)
	// Dropping the checksum and part of the final block still yields output.
	got, err := FlateDecode(full[:len(full)-8], nil)
	if err != nil {
		t.Fatalf("FlateDecode() error: %v", err)
	}
	if len(got) == 0 || !bytes.HasPrefix(text, got) {
		t.Errorf("FlateDecode() returned %d bytes that are not a prefix of the input", len(got))
	}
}

func TestPNGPredictors(t *testing.T) {
	// Two rows of three gray pixels, each row led by its filter type byte.
	tests := []struct {
		name string
		data []byte
		want []byte
	}{
		{"none", []byte{0, 1, 2, 3, 0, 4, 5, 6}, []byte{1, 2, 3, 4, 5, 6}},
		{"sub", []byte{1, 1, 1, 1, 1, 4, 1, 1}, []byte{1, 2, 3, 4, 5, 6}},
		{"up", []byte{0, 1, 2, 3, 2, 3, 3, 3}, []byte{1, 2, 3, 4, 5, 6}},
		{"average", []byte{0, 10, 20, 30, 3, 5, 5, 5}, []byte{10, 20, 30, 10, 20, 30}},
		{"paeth", []byte{0, 1, 2, 3, 4, 0, 0, 0}, []byte{1, 2, 3, 1, 2, 3}},
	}

	params := Params{"Predictor": 12, "Columns": 3}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FlateDecode(zlibCompress(tt.data), params)
			if err != nil {
				t.Fatalf("FlateDecode() error: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTIFFPredictor(t *testing.T) {
	params := Params{"Predictor": 2, "Columns": 2, "Colors": 3}
	data := []byte{10, 20, 30, 1, 2, 3}
	got, err := FlateDecode(zlibCompress(data), params)
	if err != nil {
		t.Fatalf("FlateDecode() error: %v", err)
	}
	want := []byte{10, 20, 30, 11, 22, 33}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPredictorSubByteSamples(t *testing.T) {
	// 16 one-bit pixels pack into two bytes per row.
	params := Params{"Predictor": 10, "Columns": 16, "BitsPerComponent": 1}
	data := []byte{0, 0xAA, 0x55, 2, 0x01, 0x01}
	got, err := applyPredictor(data, 10, params)
	if err != nil {
		t.Fatalf("applyPredictor() error: %v", err)
	}
	want := []byte{0xAA, 0x55, 0xAB, 0x56}
	if !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
}

func TestPredictorErrors(t *testing.T) {
	if _, err := applyPredictor([]byte{9, 1}, 12, Params{"Columns": 1}); err == nil {
		t.Error("expected error for unknown PNG filter type")
	}
	if _, err := applyPredictor([]byte{1}, 7, nil); err == nil {
		t.Error("expected error for unsupported predictor")
	}
	if _, err := applyPredictor([]byte{1}, 2, Params{"BitsPerComponent": 4}); err == nil {
		t.Error("expected error for 4-bit TIFF predictor")
	}

	huge := []struct {
		name   string
		params Params
	}{
		{"columns overflow", Params{"Columns": 1 << 61}},
		{"colors overflow", Params{"Columns": 1 << 20, "Colors": 1 << 40}},
		{"wide bpc", Params{"Columns": 4, "BitsPerComponent": 1 << 40}},
	}
	for _, tt := range huge {
		t.Run(tt.name, func(t *testing.T) {
			for _, predictor := range []int{2, 12} {
				if _, err := applyPredictor([]byte{1, 2, 3, 4}, predictor, tt.params); err == nil {
					t.Errorf("predictor %d: expected error", predictor)
				}
			}
		})
	}

	// Through Decode the failure is corrupt data, not a crash.
	_, err := Decode("FlateDecode", zlibCompress([]byte{1, 2, 3, 4}), Params{"Predictor": 2, "Columns": 1 << 61})
	if !IsKind(err, CorruptStreamData) {
		t.Errorf("Decode() error = %v, want CorruptStreamData", err)
	}
}

func TestPaeth(t *testing.T) {
	tests := []struct {
		a, b, c, want byte
	}{
		{0, 0, 0, 0},
		{10, 20, 10, 20},
		{20, 10, 10, 20},
		{10, 10, 20, 10},
	}
	for _, tt := range tests {
		if got := paeth(tt.a, tt.b, tt.c); got != tt.want {
			t.Errorf("paeth(%d, %d, %d) = %d, want %d", tt.a, tt.b, tt.c, got, tt.want)
		}
	}
}

func TestASCII85PartialGroup(t *testing.T) {
	got, err := ASCII85Decode([]byte("9jqo^~>"))
	if err != nil {
		t.Fatalf("ASCII85Decode() error: %v", err)
	}
	if string(got) != "Man " {
		t.Errorf("got %q, want %q", got, "Man ")
	}

	got, err = ASCII85Decode([]byte("9jqo~>"))
	if err != nil {
		t.Fatalf("ASCII85Decode() error: %v", err)
	}
	if string(got) != "Man" {
		t.Errorf("got %q, want %q", got, "Man")
	}
}

func TestCCITTFaxParams(t *testing.T) {
	// Arbitrary input must not panic whatever it decodes to.
	CCITTFaxDecode([]byte{0xFF, 0x00, 0x13}, Params{"K": -1, "Columns": 8, "Rows": 1})
	CCITTFaxDecode([]byte{0x00, 0x01}, Params{"K": 0, "Columns": 8})
	if getBoolParam(Params{"BlackIs1": true}, "BlackIs1", false) != true {
		t.Error("getBoolParam did not read true")
	}
	if getBoolParam(nil, "BlackIs1", true) != true {
		t.Error("getBoolParam did not default")
	}
	if getIntParam(Params{"Columns": int64(7)}, "Columns", 1) != 7 {
		t.Error("getIntParam did not read int64")
	}
}
