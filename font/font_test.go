package font

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tsawler/pdfhtml/core"
)

// mapResolver resolves references from a fixed object table.
type mapResolver map[int]core.Object

func (m mapResolver) Resolve(obj core.Object) (core.Object, error) {
	ref, ok := obj.(core.IndirectRef)
	if !ok {
		return obj, nil
	}
	if v, ok := m[ref.Number]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("object %d not found", ref.Number)
}

func glyphText(glyphs []Glyph) []string {
	out := make([]string, len(glyphs))
	for i, g := range glyphs {
		out[i] = g.Text
	}
	return out
}

func TestLoadStandardType1(t *testing.T) {
	f, err := Load(core.Dict{
		"Type":     core.Name("Font"),
		"Subtype":  core.Name("Type1"),
		"BaseFont": core.Name("Helvetica"),
	}, nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if f.Encoding != "StandardEncoding" || f.IsComposite() {
		t.Errorf("Encoding = %q, composite = %v", f.Encoding, f.IsComposite())
	}

	glyphs := f.Decode([]byte("Hi 'x'"))
	if diff := cmp.Diff([]string{"H", "i", " ", "’", "x", "’"}, glyphText(glyphs)); diff != "" {
		t.Errorf("text mismatch (-want +got):\n%s", diff)
	}
	if glyphs[0].Width != 722 || glyphs[2].Width != 278 {
		t.Errorf("widths = %v, %v", glyphs[0].Width, glyphs[2].Width)
	}
	if !glyphs[2].IsSpace() || glyphs[0].IsSpace() {
		t.Error("IsSpace() wrong")
	}
}

func TestLoadWidthsAndDifferences(t *testing.T) {
	r := mapResolver{
		10: core.Array{core.Int(500), core.Int(600), core.Real(250.5)},
		11: core.Dict{"Type": core.Name("FontDescriptor"), "MissingWidth": core.Int(321)},
		12: core.Dict{
			"BaseEncoding": core.Name("WinAnsiEncoding"),
			"Differences":  core.Array{core.Int(65), core.Name("bullet"), core.Name("uni2192")},
		},
	}
	f, err := Load(core.Dict{
		"Subtype":        core.Name("TrueType"),
		"BaseFont":       core.Name("ABCDEF+Custom"),
		"FirstChar":      core.Int(65),
		"Widths":         core.IndirectRef{Number: 10},
		"FontDescriptor": core.IndirectRef{Number: 11},
		"Encoding":       core.IndirectRef{Number: 12},
	}, r)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if f.Encoding != "WinAnsiEncoding+custom" {
		t.Errorf("Encoding = %q", f.Encoding)
	}

	glyphs := f.Decode([]byte("ABCZ"))
	if diff := cmp.Diff([]string{"•", "→", "C", "Z"}, glyphText(glyphs)); diff != "" {
		t.Errorf("text mismatch (-want +got):\n%s", diff)
	}
	var widths []float64
	for _, g := range glyphs {
		widths = append(widths, g.Width)
	}
	if diff := cmp.Diff([]float64{500, 600, 250.5, 321}, widths); diff != "" {
		t.Errorf("widths mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadToUnicodeWins(t *testing.T) {
	r := mapResolver{
		5: &core.Stream{Dict: core.Dict{}, Data: []byte("1 beginbfchar <41> <0058> endbfchar")},
	}
	f, err := Load(core.Dict{
		"Subtype":   core.Name("Type1"),
		"BaseFont":  core.Name("Times-Roman"),
		"ToUnicode": core.IndirectRef{Number: 5},
	}, r)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.DecodeString([]byte("AB")); got != "XB" {
		t.Errorf("DecodeString() = %q, want XB", got)
	}
}

func TestLoadBrokenToUnicodeIgnored(t *testing.T) {
	r := mapResolver{5: core.Int(3)}
	f, err := Load(core.Dict{
		"Subtype":   core.Name("Type1"),
		"ToUnicode": core.IndirectRef{Number: 5},
		"Encoding":  core.IndirectRef{Number: 99},
	}, r)
	if err != nil {
		t.Fatal(err)
	}
	if f.ToUnicode != nil {
		t.Error("ToUnicode set from a non-stream")
	}
	if got := f.DecodeString([]byte("ok")); got != "ok" {
		t.Errorf("DecodeString() = %q", got)
	}
}

func TestType3FontMatrix(t *testing.T) {
	f, err := Load(core.Dict{
		"Subtype":    core.Name("Type3"),
		"FontMatrix": core.Array{core.Real(0.5), core.Int(0), core.Int(0), core.Real(0.5), core.Int(0), core.Int(0)},
		"FirstChar":  core.Int(97),
		"Widths":     core.Array{core.Int(1)},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if w := f.Decode([]byte("a"))[0].Width; w != 500 {
		t.Errorf("width = %v, want 500", w)
	}
}

func TestFallback(t *testing.T) {
	f := Fallback()
	if got := f.DecodeString([]byte("Gr\xfc\xdfe")); got != "Grüße" {
		t.Errorf("DecodeString() = %q", got)
	}
	if w := f.Decode([]byte("W"))[0].Width; w != 944 {
		t.Errorf("width(W) = %v, want 944", w)
	}
}

func TestStandardWidths(t *testing.T) {
	tests := []struct {
		font string
		char byte
		want float64
	}{
		{"Helvetica", 'a', 556},
		{"Helvetica-Bold", 'b', 611},
		{"Times-Roman", 'i', 278},
		{"Courier-Bold", 'W', 600},
		{"XYZABC+Arial", 'l', 222},
		{"Unknown", 'a', 500},
	}
	for _, tt := range tests {
		t.Run(tt.font, func(t *testing.T) {
			f, err := Load(core.Dict{"Subtype": core.Name("Type1"), "BaseFont": core.Name(tt.font)}, nil)
			if err != nil {
				t.Fatal(err)
			}
			if w := f.Decode([]byte{tt.char})[0].Width; w != tt.want {
				t.Errorf("width(%c) = %v, want %v", tt.char, w, tt.want)
			}
		})
	}
	if IsStandardFont("Symbol") || !IsStandardFont("Courier") {
		t.Error("IsStandardFont() wrong")
	}
}

func TestIsVerticalEncoding(t *testing.T) {
	tests := map[string]bool{
		"Identity-V":    true,
		"Identity-H":    false,
		"UniJIS-UCS2-V": true,
		"WinAnsi":       false,
	}
	for enc, want := range tests {
		if got := IsVerticalEncoding(enc); got != want {
			t.Errorf("IsVerticalEncoding(%q) = %v", enc, got)
		}
	}
}
