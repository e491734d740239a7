package reader

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tsawler/pdfhtml/core"
	"github.com/tsawler/pdfhtml/internal/testpdf"
)

// minimalPDF is a minimal valid PDF for testing
const minimalPDF = `%PDF-1.4
1 0 obj
<< /Type /Catalog /Pages 2 0 R >>
endobj
2 0 obj
<< /Type /Pages /Kids [] /Count 0 >>
endobj
xref
0 3
0000000000 65535 f
0000000009 00000 n
0000000058 00000 n
trailer
<< /Size 3 /Root 1 0 R >>
startxref
110
%%EOF`

// createTempPDF creates a temporary PDF file with the given content
func createTempPDF(t *testing.T, content []byte) string {
	t.Helper()

	tmpFile := filepath.Join(t.TempDir(), "test.pdf")
	if err := os.WriteFile(tmpFile, content, 0644); err != nil {
		t.Fatalf("failed to create temp PDF: %v", err)
	}
	return tmpFile
}

func TestParseMinimal(t *testing.T) {
	r, err := Parse([]byte(minimalPDF))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if r.Version() != (PDFVersion{1, 4}) {
		t.Errorf("Version() = %v, want 1.4", r.Version())
	}
	if r.NumObjects() != 2 {
		t.Errorf("NumObjects() = %d, want 2", r.NumObjects())
	}
	if r.Recovered() {
		t.Error("Recovered() = true for an intact file")
	}
	count, err := r.PageCount()
	if err != nil || count != 0 {
		t.Errorf("PageCount() = %d, %v; want 0", count, err)
	}
	info, err := r.GetInfo()
	if err != nil || info != nil {
		t.Errorf("GetInfo() = %v, %v; want nil", info, err)
	}
}

func TestOpen(t *testing.T) {
	b := testpdf.New()
	b.AddPage("BT ET", nil)
	b.SetInfo(core.Dict{"Title": core.String("Test Document")})
	path := createTempPDF(t, b.Bytes())

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if r.Version().String() != "1.7" {
		t.Errorf("Version() = %v", r.Version())
	}
	info, err := r.GetInfo()
	if err != nil {
		t.Fatal(err)
	}
	if title, _ := info.GetString("Title"); title != "Test Document" {
		t.Errorf("Title = %q", title)
	}

	page, err := r.GetPage(0)
	if err != nil {
		t.Fatal(err)
	}
	contents, err := page.Contents()
	if err != nil || len(contents) != 1 {
		t.Fatalf("Contents() = %v, %v", contents, err)
	}
	if string(contents[0].Data) != "BT ET" {
		t.Errorf("content = %q", contents[0].Data)
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}

	_, err := Open(createTempPDF(t, nil))
	if !core.IsParseReason(err, core.TruncatedFile) {
		t.Errorf("empty file error = %v, want TruncatedFile", err)
	}
}

func TestNewReader(t *testing.T) {
	r, err := NewReader(strings.NewReader(minimalPDF))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.GetCatalog(); err != nil {
		t.Errorf("GetCatalog() error: %v", err)
	}
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		want   PDFVersion
		wantOK bool
	}{
		{"1.7", "%PDF-1.7\n", PDFVersion{1, 7}, true},
		{"2.0", "%PDF-2.0\r", PDFVersion{2, 0}, true},
		{"leading junk", "\x00\x00junk%PDF-1.3\n", PDFVersion{1, 3}, true},
		{"missing", "hello", PDFVersion{1, 4}, false},
		{"no minor", "%PDF-1\n", PDFVersion{1, 4}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseHeader([]byte(tt.data))
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("parseHeader() = %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestCatalogVersionOverridesHeader(t *testing.T) {
	data := testpdf.New().Bytes()
	data = appendUpdate(t, data, 1, "<</Type /Catalog /Pages 2 0 R /Version /2.0>>", 3)
	r, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if r.Version() != (PDFVersion{2, 0}) {
		t.Errorf("Version() = %v, want 2.0", r.Version())
	}
}

// appendUpdate appends an incremental update that redefines one object.
func appendUpdate(t *testing.T, base []byte, num int, body string, size int) []byte {
	t.Helper()
	prev, err := core.NewXRefParser(base).FindXRef()
	if err != nil {
		t.Fatalf("FindXRef: %v", err)
	}
	var buf bytes.Buffer
	buf.Write(base)
	off := buf.Len()
	fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n%d 1\n%010d 00000 n\r\n", num, off)
	fmt.Fprintf(&buf, "trailer\n<</Size %d /Root 1 0 R /Prev %d>>\nstartxref\n%d\n%%%%EOF\n", size, prev, xref)
	return buf.Bytes()
}

func TestIncrementalUpdateWins(t *testing.T) {
	b := testpdf.New()
	b.AddPage("BT ET", b.Helvetica())
	data := b.Bytes()
	// Object 3 is the font added by Helvetica.
	data = appendUpdate(t, data, 3, "<</Type /Font /Subtype /Type1 /BaseFont /Courier>>", 6)

	r, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	obj, err := r.GetObject(3)
	if err != nil {
		t.Fatal(err)
	}
	font := obj.(core.Dict)
	if name, _ := font.GetName("BaseFont"); name != "Courier" {
		t.Errorf("BaseFont = %q, want Courier", name)
	}
	if r.Recovered() {
		t.Error("incremental update should not need recovery")
	}
}

func TestRecoverBrokenStartXRef(t *testing.T) {
	data := testpdf.TextPage("Hello")
	i := bytes.LastIndex(data, []byte("startxref"))
	broken := append(append([]byte{}, data[:i]...), "startxref\n5\n%%EOF\n"...)

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))
	r, err := Parse(broken, WithLogger(logger))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !r.Recovered() {
		t.Error("Recovered() = false")
	}
	if count, _ := r.PageCount(); count != 1 {
		t.Errorf("PageCount() = %d, want 1", count)
	}
	if !strings.Contains(logBuf.String(), "scanning file") {
		t.Errorf("recovery not logged: %q", logBuf.String())
	}
	if len(r.Warnings()) == 0 {
		t.Error("Warnings() is empty")
	}
}

func TestRecoverMissingTrailer(t *testing.T) {
	data := testpdf.TextPage("Hello")
	cut := data[:bytes.Index(data, []byte("\nxref\n"))+1]

	r, err := Parse(cut)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !r.Recovered() {
		t.Error("Recovered() = false")
	}
	root, ok := r.Trailer().GetIndirectRef("Root")
	if !ok || root.Number != 1 {
		t.Errorf("rebuilt /Root = %v", r.Trailer().Get("Root"))
	}
	if count, _ := r.PageCount(); count != 1 {
		t.Errorf("PageCount() = %d, want 1", count)
	}
}

func TestTruncatedInsideObject(t *testing.T) {
	data := testpdf.TextPage("Hello")
	// Object 5 is the page, the last object written.
	i := bytes.Index(data, []byte("5 0 obj"))
	cut := data[:i+len("5 0 obj\n<</Type")]

	_, err := Parse(cut)
	if !core.IsParseReason(err, core.TruncatedFile) {
		t.Errorf("Parse() error = %v, want TruncatedFile", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		reason core.ParseReason
	}{
		{"empty", "", core.TruncatedFile},
		{"garbage with eof", "hello world\n%%EOF\n", core.CorruptXref},
		{"garbage", "hello world", core.TruncatedFile},
		{"no catalog", "%PDF-1.4\n1 0 obj\n<</A 1>>\nendobj\n%%EOF\n", core.UnresolvedTrailer},
		{"no catalog truncated", "%PDF-1.4\n1 0 obj\n<</A 1>>\nendobj\n", core.TruncatedFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !core.IsParseReason(err, tt.reason) {
				t.Errorf("Parse() error = %v, want %v", err, tt.reason)
			}
		})
	}
}

func TestRepairWrongOffset(t *testing.T) {
	data := testpdf.TextPage("Hello")

	// Point the xref entry of object 4 at object 3.
	xref := bytes.LastIndex(data, []byte("xref\n0 "))
	table := xref + bytes.IndexByte(data[xref+5:], '\n') + 6
	obj3 := bytes.Index(data, []byte("3 0 obj"))
	entry := table + 20*4
	broken := append([]byte{}, data...)
	copy(broken[entry:], fmt.Sprintf("%010d", obj3))

	r, err := Parse(broken)
	if err != nil {
		t.Fatal(err)
	}
	if r.Recovered() {
		t.Error("a single bad entry should be repaired without full recovery")
	}
	obj, err := r.GetObject(4)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := obj.(*core.Stream); !ok {
		t.Errorf("object 4 = %T, want stream", obj)
	}
	if len(r.Warnings()) == 0 {
		t.Error("repair produced no warning")
	}
}

func TestRecoverObjectStream(t *testing.T) {
	obj1 := "<</Type /Catalog /Pages 2 0 R>>\n"
	obj2 := "<</Type /Pages /Kids [3 0 R] /Count 1>>\n"
	header := fmt.Sprintf("1 0 2 %d\n", len(obj1))

	var buf bytes.Buffer
	w := core.NewWriter(&buf, "1.5")
	w.WriteObject(3, core.Dict{"Type": core.Name("Page"), "Parent": core.IndirectRef{Number: 2}, "Contents": core.IndirectRef{Number: 4}})
	w.WriteObject(4, &core.Stream{Dict: core.Dict{}, Data: []byte("BT ET")})
	w.WriteObject(10, &core.Stream{
		Dict: core.Dict{
			"Type":   core.Name("ObjStm"),
			"N":      core.Int(2),
			"First":  core.Int(len(header)),
			"Filter": core.Name("FlateDecode"),
		},
		Data: testpdf.Deflate([]byte(header + obj1 + obj2)),
	})
	if err := w.Close(core.Dict{"Root": core.IndirectRef{Number: 1}}); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	cut := data[:bytes.Index(data, []byte("\nxref\n"))+1]

	r, err := Parse(cut)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	ids := r.IDs()
	var nums []int
	for _, id := range ids {
		nums = append(nums, id.Number)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4, 10}, nums); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
	if count, _ := r.PageCount(); count != 1 {
		t.Errorf("PageCount() = %d, want 1", count)
	}
}

func TestResolve(t *testing.T) {
	r, err := Parse(testpdf.TextPage("Hi"))
	if err != nil {
		t.Fatal(err)
	}
	direct := core.Int(5)
	if got, _ := r.Resolve(direct); got != direct {
		t.Errorf("Resolve(direct) = %v", got)
	}
	got, err := r.Resolve(core.IndirectRef{Number: 1})
	if err != nil {
		t.Fatal(err)
	}
	if typ, _ := got.(core.Dict).GetName("Type"); typ != "Catalog" {
		t.Errorf("Resolve(1 0 R) = %v", got)
	}
	if _, err := r.Resolve(core.IndirectRef{Number: 99}); err == nil {
		t.Error("expected error for missing object")
	}
	if _, ok := r.Lookup(core.IndirectRef{Number: 1, Generation: 3}); !ok {
		t.Error("Lookup with a wrong generation should fall back to the number")
	}
}

// objectTable returns every loaded object keyed by its identifier.
func objectTable(t *testing.T, r *Reader) map[core.ObjectID]core.Object {
	t.Helper()
	table := make(map[core.ObjectID]core.Object, r.NumObjects())
	for _, id := range r.IDs() {
		obj, ok := r.Lookup(core.IndirectRef{Number: id.Number, Generation: id.Generation})
		if !ok {
			t.Fatalf("Lookup(%v) failed for a listed object", id)
		}
		table[id] = obj
	}
	return table
}

func TestParseWriteRoundTrip(t *testing.T) {
	withImage := testpdf.New()
	img := testpdf.Image(2, 1, "DeviceGray", 8, testpdf.Deflate([]byte{10, 20}))
	img.Dict["Filter"] = core.Name("FlateDecode")
	withImage.AddPage("q 2 0 0 1 0 0 cm /Im1 Do Q BT /F1 12 Tf (caption) Tj ET", core.Dict{
		"Font":    core.Dict{"F1": withImage.Add(core.Dict{"Type": core.Name("Font"), "Subtype": core.Name("Type1"), "BaseFont": core.Name("Helvetica")})},
		"XObject": core.Dict{"Im1": withImage.Add(img)},
	})
	withImage.Add(core.Array{core.String("lit (paren)\n"), core.HexString("\x00\xff"), core.Real(-0.5), core.Bool(true), core.Null{}})
	withImage.SetInfo(core.Dict{"Title": core.String("Round trip"), "Producer": core.Name("pdfhtml")})

	// TextPage writes objects 1 to 5.
	updated := appendUpdate(t, testpdf.TextPage("before"), 1, "<</Type /Catalog /Pages 2 0 R /Lang (en)>>", 6)

	tests := []struct {
		name string
		data []byte
	}{
		{"text page", testpdf.TextPage("hello")},
		{"image, info and mixed objects", withImage.Bytes()},
		{"incremental update", updated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, err := Parse(tt.data)
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}

			var buf bytes.Buffer
			w := core.NewWriter(&buf, "1.7")
			for _, id := range first.IDs() {
				obj, _ := first.Lookup(core.IndirectRef{Number: id.Number, Generation: id.Generation})
				if err := w.WriteObject(id.Number, obj); err != nil {
					t.Fatalf("WriteObject(%d) error: %v", id.Number, err)
				}
			}
			if err := w.Close(first.Trailer()); err != nil {
				t.Fatalf("Close() error: %v", err)
			}

			second, err := Parse(buf.Bytes())
			if err != nil {
				t.Fatalf("re-Parse() error: %v", err)
			}
			if second.Recovered() {
				t.Error("rewritten file needed recovery")
			}
			if diff := cmp.Diff(objectTable(t, first), objectTable(t, second)); diff != "" {
				t.Errorf("object table mismatch (-first +second):\n%s", diff)
			}
			if diff := cmp.Diff(first.Trailer().Get("Root"), second.Trailer().Get("Root")); diff != "" {
				t.Errorf("/Root mismatch (-first +second):\n%s", diff)
			}
		})
	}
}
