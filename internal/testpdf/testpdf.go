// Package testpdf assembles small PDF files for tests.
package testpdf

import (
	"bytes"
	"compress/zlib"

	"github.com/tsawler/pdfhtml/core"
)

// Builder collects objects and pages and writes them as a PDF file.
type Builder struct {
	objects map[int]core.Object
	next    int
	pages   []core.IndirectRef
	info    core.Dict
}

// New creates an empty builder. Objects 1 and 2 are reserved for the
// catalog and the page tree root.
func New() *Builder {
	return &Builder{
		objects: make(map[int]core.Object),
		next:    3,
	}
}

// Add stores obj as a new indirect object.
func (b *Builder) Add(obj core.Object) core.IndirectRef {
	num := b.next
	b.next++
	b.objects[num] = obj
	return core.IndirectRef{Number: num}
}

// Object returns the object stored under ref, for tests that adjust a
// page or stream after adding it.
func (b *Builder) Object(ref core.IndirectRef) core.Object {
	return b.objects[ref.Number]
}

// SetInfo sets the document information dictionary.
func (b *Builder) SetInfo(info core.Dict) {
	b.info = info
}

// Helvetica returns a resources dictionary with /F1 bound to a new
// Helvetica font object.
func (b *Builder) Helvetica() core.Dict {
	font := b.Add(core.Dict{
		"Type":     core.Name("Font"),
		"Subtype":  core.Name("Type1"),
		"BaseFont": core.Name("Helvetica"),
		"Encoding": core.Name("WinAnsiEncoding"),
	})
	return core.Dict{"Font": core.Dict{"F1": font}}
}

// AddPage appends a letter-sized page with one content stream.
func (b *Builder) AddPage(content string, resources core.Dict) core.IndirectRef {
	contents := b.Add(&core.Stream{Dict: core.Dict{}, Data: []byte(content)})
	if resources == nil {
		resources = core.Dict{}
	}
	page := b.Add(core.Dict{
		"Type":      core.Name("Page"),
		"Parent":    core.IndirectRef{Number: 2},
		"MediaBox":  core.Array{core.Int(0), core.Int(0), core.Int(612), core.Int(792)},
		"Resources": resources,
		"Contents":  contents,
	})
	b.pages = append(b.pages, page)
	return page
}

// Image returns an uncompressed image XObject.
func Image(width, height int, colorSpace string, bpc int, data []byte) *core.Stream {
	return &core.Stream{
		Dict: core.Dict{
			"Type":             core.Name("XObject"),
			"Subtype":          core.Name("Image"),
			"Width":            core.Int(width),
			"Height":           core.Int(height),
			"ColorSpace":       core.Name(colorSpace),
			"BitsPerComponent": core.Int(bpc),
		},
		Data: data,
	}
}

// Deflate compresses data with zlib, as FlateDecode expects.
func Deflate(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

// Bytes writes the document: catalog, page tree, every added object and a
// cross-reference table.
func (b *Builder) Bytes() []byte {
	kids := make(core.Array, len(b.pages))
	for i, p := range b.pages {
		kids[i] = p
	}

	var buf bytes.Buffer
	w := core.NewWriter(&buf, "1.7")
	w.WriteObject(1, core.Dict{"Type": core.Name("Catalog"), "Pages": core.IndirectRef{Number: 2}})
	w.WriteObject(2, core.Dict{"Type": core.Name("Pages"), "Kids": kids, "Count": core.Int(len(kids))})
	for num := 3; num < b.next; num++ {
		w.WriteObject(num, b.objects[num])
	}

	trailer := core.Dict{"Root": core.IndirectRef{Number: 1}}
	if b.info != nil {
		num := b.next
		w.WriteObject(num, b.info)
		trailer.Set("Info", core.IndirectRef{Number: num})
	}
	w.Close(trailer)
	return buf.Bytes()
}

// TextPage returns a one-page document showing s at (72, 720).
func TextPage(s string) []byte {
	b := New()
	b.AddPage("BT /F1 12 Tf 72 720 Td ("+s+") Tj ET", b.Helvetica())
	return b.Bytes()
}
