package core

import (
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func parseOne(t *testing.T, input string) Object {
	t.Helper()
	obj, err := NewParser([]byte(input)).ParseObject()
	if err != nil {
		t.Fatalf("ParseObject(%q) error: %v", input, err)
	}
	return obj
}

func TestParserObjects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Object
	}{
		{"null", "null", Null{}},
		{"true", "true", Bool(true)},
		{"false", "false", Bool(false)},
		{"int", "-42", Int(-42)},
		{"real", "3.25", Real(3.25)},
		{"string", "(Hi)", String("Hi")},
		{"hex string", "<4869>", HexString("Hi")},
		{"name", "/Type", Name("Type")},
		{"reference", "10 0 R", IndirectRef{Number: 10}},
		{"array", "[1 2 0 R /N (s)]", Array{Int(1), IndirectRef{Number: 2}, Name("N"), String("s")}},
		{"integers not reference", "[1 2 3]", Array{Int(1), Int(2), Int(3)}},
		{
			name:  "nested",
			input: "<< /Kids [3 0 R 4 0 R] /Box [0 0 612 792.5] /Sub << /K true >> >>",
			want: Dict{
				"Kids": Array{IndirectRef{Number: 3}, IndirectRef{Number: 4}},
				"Box":  Array{Int(0), Int(0), Int(612), Real(792.5)},
				"Sub":  Dict{"K": Bool(true)},
			},
		},
		{"null values dropped", "<< /A null /B 1 >>", Dict{"B": Int(1)}},
		{"missing final value", "<< /A 1 /B >>", Dict{"A": Int(1)}},
		{"comments skipped", "[1 % comment\n 2]", Array{Int(1), Int(2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseOne(t, tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseObject(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated array", "[1 2"},
		{"unterminated dict", "<< /A 1"},
		{"non-name key", "<< 1 2 >>"},
		{"stray keyword", "endobj"},
		{"unterminated string", "(abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewParser([]byte(tt.input)).ParseObject(); err == nil {
				t.Errorf("ParseObject(%q) expected error", tt.input)
			}
		})
	}

	_, err := NewParser([]byte("[1 2")).ParseObject()
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("truncated array error %v does not wrap io.ErrUnexpectedEOF", err)
	}

	_, err = NewParser([]byte("   ")).ParseObject()
	if err != io.EOF {
		t.Errorf("empty input error = %v, want io.EOF", err)
	}
}

func TestParserNestingLimit(t *testing.T) {
	deep := make([]byte, 0, 2*maxNesting+2)
	for i := 0; i <= maxNesting; i++ {
		deep = append(deep, '[')
	}
	if _, err := NewParser(deep).ParseObject(); err == nil {
		t.Error("expected nesting error")
	}
}

func TestParseIndirectObject(t *testing.T) {
	input := "7 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n8 1 obj 42 endobj 9 0 obj endobj"
	p := NewParser([]byte(input))

	obj, err := p.ParseIndirectObject()
	if err != nil {
		t.Fatal(err)
	}
	if obj.Ref != (IndirectRef{Number: 7}) {
		t.Errorf("Ref = %v", obj.Ref)
	}
	if name, _ := obj.Object.(Dict).GetName("Type"); name != "Catalog" {
		t.Errorf("Type = %q", name)
	}

	obj, err = p.ParseIndirectObject()
	if err != nil {
		t.Fatal(err)
	}
	if obj.Ref != (IndirectRef{Number: 8, Generation: 1}) || obj.Object != Int(42) {
		t.Errorf("got %v = %v", obj.Ref, obj.Object)
	}

	obj, err = p.ParseIndirectObject()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := obj.Object.(Null); !ok {
		t.Errorf("empty object = %T, want Null", obj.Object)
	}

	if _, err := p.ParseIndirectObject(); err != io.EOF {
		t.Errorf("after last object err = %v, want io.EOF", err)
	}
}

func TestParseIndirectObjectMissingEndobj(t *testing.T) {
	p := NewParser([]byte("1 0 obj (a)\n2 0 obj (b) endobj"))
	first, err := p.ParseIndirectObject()
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.ParseIndirectObject()
	if err != nil {
		t.Fatalf("second object after missing endobj: %v", err)
	}
	if first.Object != String("a") || second.Object != String("b") {
		t.Errorf("got %v and %v", first.Object, second.Object)
	}
}

type mapResolver map[int]Object

func (m mapResolver) ResolveReference(ref IndirectRef) (Object, error) {
	if obj, ok := m[ref.Number]; ok {
		return obj, nil
	}
	return nil, errors.New("not found")
}

func TestParseStream(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		resolver ReferenceResolver
		want     string
	}{
		{
			name:  "direct length",
			input: "1 0 obj << /Length 5 >>\nstream\nHELLO\nendstream\nendobj",
			want:  "HELLO",
		},
		{
			name:  "crlf after keyword",
			input: "1 0 obj << /Length 5 >>\nstream\r\nHELLO\r\nendstream endobj",
			want:  "HELLO",
		},
		{
			name:     "indirect length",
			input:    "1 0 obj << /Length 9 0 R >>\nstream\nHELLO\nendstream\nendobj",
			resolver: mapResolver{9: Int(5)},
			want:     "HELLO",
		},
		{
			name:  "indirect length without resolver",
			input: "1 0 obj << /Length 9 0 R >>\nstream\nHELLO\nendstream\nendobj",
			want:  "HELLO",
		},
		{
			name:  "length too long",
			input: "1 0 obj << /Length 500 >>\nstream\nHELLO\nendstream\nendobj",
			want:  "HELLO",
		},
		{
			name:  "length too short",
			input: "1 0 obj << /Length 2 >>\nstream\nHELLO\nendstream\nendobj",
			want:  "HELLO",
		},
		{
			name:  "missing length",
			input: "1 0 obj << >>\nstream\nHE\x00\xffLO\nendstream\nendobj",
			want:  "HE\x00\xffLO",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser([]byte(tt.input))
			if tt.resolver != nil {
				p.SetReferenceResolver(tt.resolver)
			}
			obj, err := p.ParseIndirectObject()
			if err != nil {
				t.Fatal(err)
			}
			s, ok := obj.Object.(*Stream)
			if !ok {
				t.Fatalf("got %T, want *Stream", obj.Object)
			}
			if string(s.Data) != tt.want {
				t.Errorf("Data = %q, want %q", s.Data, tt.want)
			}
		})
	}
}

func TestParseStreamWithoutEndstream(t *testing.T) {
	p := NewParser([]byte("1 0 obj << /Length 3 >>\nstream\nABCDEF"))
	_, err := p.ParseIndirectObject()
	var le *LexError
	if !errors.As(err, &le) {
		t.Fatalf("error %v, want *LexError", err)
	}
}
