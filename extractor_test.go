package pdfhtml

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tsawler/pdfhtml/core"
	"github.com/tsawler/pdfhtml/images"
	"github.com/tsawler/pdfhtml/internal/testpdf"
	"github.com/tsawler/pdfhtml/ocr"
)

func writePDF(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8)), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// twoPages builds a document with text on both pages and a JPEG image on
// the first.
func twoPages(t *testing.T) []byte {
	b := testpdf.New()
	res := b.Helvetica()
	photo := testpdf.Image(8, 8, "DeviceGray", 8, jpegBytes(t))
	photo.Dict["Filter"] = core.Name("DCTDecode")
	res["XObject"] = core.Dict{"Im1": b.Add(photo)}

	b.AddPage("BT /F1 12 Tf 72 720 Td (Hello) Tj ET q 8 0 0 8 72 600 cm /Im1 Do Q", res)
	b.AddPage("BT /F1 12 Tf 72 720 Td (World) Tj ET", b.Helvetica())
	return b.Bytes()
}

func TestOpenMissingFile(t *testing.T) {
	_, _, err := Open("nonexistent.pdf").Text()
	if err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestConvert(t *testing.T) {
	path := writePDF(t, "report.pdf", twoPages(t))

	res, err := Open(path).Convert(context.Background())
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if res.Text != "Hello\nWorld" {
		t.Errorf("Text = %q, want %q", res.Text, "Hello\nWorld")
	}
	if res.Title != "report.pdf" || res.Pages != 2 || len(res.Warnings) != 0 {
		t.Errorf("result = %q, %d pages, warnings %v", res.Title, res.Pages, res.Warnings)
	}
	if len(res.Images) != 1 || res.Images[0].Format != images.FormatJPEG {
		t.Fatalf("Images = %+v", res.Images)
	}

	doc, warnings := res.HTML()
	if len(warnings) != 0 {
		t.Errorf("HTML() warnings: %v", warnings)
	}
	if len(doc.Images) != 1 || doc.Images[0].MIME != "image/jpeg" || doc.Text != res.Text {
		t.Errorf("HTML() = %+v", doc)
	}
}

func TestPageSelection(t *testing.T) {
	path := writePDF(t, "two.pdf", twoPages(t))

	tests := []struct {
		name    string
		ext     *Extractor
		want    string
		wantErr bool
	}{
		{"second page", Open(path).Pages(2), "World", false},
		{"repeated and reversed", Open(path).Pages(2, 1, 2), "Hello\nWorld", false},
		{"range", Open(path).PageRange(1, 1), "Hello", false},
		{"out of range", Open(path).Pages(3), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := tt.ext.Text()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Text() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigurationDoesNotLeak(t *testing.T) {
	base := Open("x.pdf")
	first := base.Pages(1)
	second := base.Pages(2).Password("p")
	if diff := cmp.Diff([]int{1}, first.options.pages); diff != "" {
		t.Errorf("first pages mismatch (-want +got):\n%s", diff)
	}
	if base.options.pages != nil || base.options.password != "" {
		t.Errorf("base options changed: %+v", base.options)
	}
	if second.options.password != "p" {
		t.Errorf("password = %q", second.options.password)
	}
}

func TestConvertWarnings(t *testing.T) {
	b := testpdf.New()
	broken := testpdf.Image(1, 1, "DeviceGray", 1, []byte{0})
	broken.Dict["Filter"] = core.Name("JBIG2Decode")
	res := b.Helvetica()
	res["XObject"] = core.Dict{"Im1": b.Add(broken)}
	b.AddPage("BT /F1 12 Tf 72 720 Td (Still here) Tj /F9 12 Tf (too) Tj ET", res)

	text, warnings, err := Open(writePDF(t, "w.pdf", b.Bytes())).Text()
	if err != nil {
		t.Fatalf("Text() error: %v", err)
	}
	if !strings.HasPrefix(text, "Still here") {
		t.Errorf("Text() = %q", text)
	}
	if len(warnings) != 2 {
		t.Fatalf("warnings = %v, want 2", warnings)
	}
	for _, w := range warnings {
		if w.Page != 1 || w.Err == nil {
			t.Errorf("warning = %+v", w)
		}
	}
	var imgErr *images.ImageError
	if !errors.As(warnings[1].Err, &imgErr) {
		t.Errorf("second warning = %v, want an image error", warnings[1].Err)
	}
	if got := FormatWarnings(warnings); !strings.Contains(got, "page 1: ") || !strings.Contains(got, "; ") {
		t.Errorf("FormatWarnings() = %q", got)
	}
}

func TestConvertCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Open(writePDF(t, "c.pdf", twoPages(t))).Convert(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Convert() error = %v, want context.Canceled", err)
	}
}

func TestRawImageHTML(t *testing.T) {
	b := testpdf.New()
	b.AddPage("", core.Dict{"XObject": core.Dict{
		"Im1": b.Add(testpdf.Image(2, 2, "DeviceGray", 8, []byte{0, 255, 255, 0})),
		"Im2": b.Add(testpdf.Image(2, 2, "DeviceGray", 8, []byte{0})),
	}})

	res, err := Open(writePDF(t, "raw.pdf", b.Bytes())).Convert(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	doc, warnings := res.HTML()
	if len(doc.Images) != 1 || doc.Images[0].MIME != "image/png" || doc.Images[0].Name != "Im1" {
		t.Errorf("images = %+v", doc.Images)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0].Message, "Im2") {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestOCRUnavailable(t *testing.T) {
	if ocr.Enabled {
		t.Skip("built with OCR support")
	}
	b := testpdf.New()
	b.AddPage("", core.Dict{"XObject": core.Dict{
		"Im1": b.Add(testpdf.Image(1, 1, "DeviceGray", 8, []byte{0})),
	}})
	res, err := Open(writePDF(t, "scan.pdf", b.Bytes())).OCR("eng").Convert(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "" || len(res.Warnings) != 1 || !errors.Is(res.Warnings[0].Err, ocr.ErrOCRNotEnabled) {
		t.Errorf("text %q, warnings %v", res.Text, res.Warnings)
	}
}
