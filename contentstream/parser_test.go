package contentstream

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tsawler/pdfhtml/core"
)

func TestParseOperations(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Operation
	}{
		{
			name:  "simple operator",
			input: "q",
			want:  []Operation{{Operator: "q", Operands: []core.Object{}}},
		},
		{
			name:  "integer operand",
			input: "100 Tz",
			want:  []Operation{{Operator: "Tz", Operands: []core.Object{core.Int(100)}}},
		},
		{
			name:  "text block",
			input: "BT /F1 12 Tf 72 712.5 Td (Hello) Tj ET",
			want: []Operation{
				{Operator: "BT", Operands: []core.Object{}},
				{Operator: "Tf", Operands: []core.Object{core.Name("F1"), core.Int(12)}},
				{Operator: "Td", Operands: []core.Object{core.Int(72), core.Real(712.5)}},
				{Operator: "Tj", Operands: []core.Object{core.String("Hello")}},
				{Operator: "ET", Operands: []core.Object{}},
			},
		},
		{
			name:  "TJ array",
			input: "[(A) -120 (W) 30.5 <4243>] TJ",
			want: []Operation{{Operator: "TJ", Operands: []core.Object{core.Array{
				core.String("A"), core.Int(-120), core.String("W"), core.Real(30.5), core.HexString("BC"),
			}}}},
		},
		{
			name:  "quote operators",
			input: "(a) ' 1 2 (b) \" T*",
			want: []Operation{
				{Operator: "'", Operands: []core.Object{core.String("a")}},
				{Operator: "\"", Operands: []core.Object{core.Int(1), core.Int(2), core.String("b")}},
				{Operator: "T*", Operands: []core.Object{}},
			},
		},
		{
			name:  "matrix with reals and signs",
			input: "1 0 0 1 -.5 +3 cm",
			want: []Operation{{Operator: "cm", Operands: []core.Object{
				core.Int(1), core.Int(0), core.Int(0), core.Int(1), core.Real(-0.5), core.Int(3),
			}}},
		},
		{
			name:  "marked content dict",
			input: "/Span <</ActualText (x) /MCID 3>> BDC EMC",
			want: []Operation{
				{Operator: "BDC", Operands: []core.Object{core.Name("Span"), core.Dict{"ActualText": core.String("x"), "MCID": core.Int(3)}}},
				{Operator: "EMC", Operands: []core.Object{}},
			},
		},
		{
			name:  "comments and keywords",
			input: "% comment\ntrue false null /X d0",
			want: []Operation{{Operator: "d0", Operands: []core.Object{core.Bool(true), core.Bool(false), core.Null{}, core.Name("X")}}},
		},
		{
			name:  "escaped string",
			input: `(a\(b\)\n\101) Tj`,
			want:  []Operation{{Operator: "Tj", Operands: []core.Object{core.String("a(b)\nA")}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops, err := NewParser([]byte(tt.input)).Parse()
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if diff := cmp.Diff(tt.want, ops); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	for _, input := range []string{"", "   \n\t ", "% only a comment"} {
		ops, err := NewParser([]byte(input)).Parse()
		if err != nil || len(ops) != 0 {
			t.Errorf("Parse(%q) = %v, %v", input, ops, err)
		}
	}
}

func TestParseResync(t *testing.T) {
	// The stray ')' drops the pending operand; the following operators
	// still parse.
	input := "BT 5 ) Tj (ok) Tj ET"
	ops, err := NewParser([]byte(input)).Parse()
	if err == nil {
		t.Error("expected an error describing the bad byte")
	}
	var names []string
	for _, op := range ops {
		names = append(names, op.Operator)
	}
	if diff := cmp.Diff([]string{"BT", "Tj", "Tj", "ET"}, names); diff != "" {
		t.Fatalf("operators mismatch (-want +got):\n%s", diff)
	}
	if len(ops[1].Operands) != 0 {
		t.Errorf("operand survived the bad byte: %v", ops[1].Operands)
	}
	if ops[2].Operands[0] != core.String("ok") {
		t.Errorf("operand after resync = %v", ops[2].Operands)
	}
}

func TestParseUnclosedArray(t *testing.T) {
	ops, err := NewParser([]byte("q [(a) 1")).Parse()
	if err == nil {
		t.Error("expected error for unclosed array")
	}
	if len(ops) != 1 || ops[0].Operator != "q" {
		t.Errorf("ops = %v", ops)
	}
}

func TestParseInlineImage(t *testing.T) {
	input := "q BI /W 2 /H 1 /CS /G /BPC 8 ID \x00\xffEI EI Q"
	ops, err := NewParser([]byte(input)).Parse()
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("got %d operations, want 3: %v", len(ops), ops)
	}
	if ops[1].Operator != "BI" {
		t.Fatalf("operator = %q, want BI", ops[1].Operator)
	}
	img, ok := ops[1].Operands[0].(*InlineImage)
	if !ok {
		t.Fatalf("operand = %T", ops[1].Operands[0])
	}
	wantDict := core.Dict{"W": core.Int(2), "H": core.Int(1), "CS": core.Name("G"), "BPC": core.Int(8)}
	if diff := cmp.Diff(wantDict, img.Dict); diff != "" {
		t.Errorf("dict mismatch (-want +got):\n%s", diff)
	}
	// "EI" glued to the data is not the terminator.
	if got := string(img.Data); got != "\x00\xffEI" {
		t.Errorf("data = %q", got)
	}
	if ops[2].Operator != "Q" {
		t.Errorf("operator after image = %q", ops[2].Operator)
	}
}

func TestParseInlineImageWithoutEI(t *testing.T) {
	ops, err := NewParser([]byte("BI /W 1 ID abc")).Parse()
	if err == nil || !strings.Contains(err.Error(), "EI") {
		t.Errorf("error = %v, want missing EI", err)
	}
	if len(ops) != 0 {
		t.Errorf("ops = %v", ops)
	}
}

func TestFindEI(t *testing.T) {
	tests := []struct {
		data string
		from int
		want int
	}{
		{"abc EI", 0, 4},
		{"EI", 0, 0},
		{"xEI EI", 0, 4},
		{"EIx EI", 0, 4},
		{"none", 0, -1},
	}
	for _, tt := range tests {
		if got := findEI([]byte(tt.data), tt.from); got != tt.want {
			t.Errorf("findEI(%q) = %d, want %d", tt.data, got, tt.want)
		}
	}
}

func BenchmarkParse(b *testing.B) {
	data := []byte(strings.Repeat("BT /F1 12 Tf 72 712 Td [(Hello) -250 (World)] TJ ET q 1 0 0 1 0 0 cm Q\n", 200))
	for i := 0; i < b.N; i++ {
		NewParser(data).Parse()
	}
}
