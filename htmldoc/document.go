// Package htmldoc renders extracted PDF content as a standalone HTML page.
//
// The page holds a heading with the source file name, the text with each
// newline turned into a <br> element, then every image inlined as a
// base64 data URI followed by a line break:
//
//	<html><head>...</head><body>
//	<h2>report.pdf</h2>
//	<p>first line<br/>second line</p>
//	<img src="data:image/png;base64,..."/><br/>
//	</body></html>
//
// The markup is built as a golang.org/x/net/html node tree, so text and
// attribute values are always escaped.
package htmldoc

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Image is one encoded image to inline.
type Image struct {
	Name string // shown as the alt text
	MIME string // e.g. image/png or image/jpeg
	Data []byte
}

// Document is the content of one HTML page.
type Document struct {
	Title  string
	Text   string
	Images []Image
}

// DataURI returns the image as a data: URI.
func (img Image) DataURI() string {
	return "data:" + img.MIME + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Render writes doc as HTML.
func Render(w io.Writer, doc *Document) error {
	if err := html.Render(w, doc.Node()); err != nil {
		return fmt.Errorf("render HTML: %w", err)
	}
	return nil
}

// WriteFile renders doc to path, replacing any existing file.
func WriteFile(path string, doc *Document) error {
	var buf bytes.Buffer
	if err := Render(&buf, doc); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Node builds the document tree.
func (doc *Document) Node() *html.Node {
	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	page := element(atom.Html)
	root.AppendChild(page)

	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"}))
	title := element(atom.Title)
	title.AppendChild(text(doc.Title))
	head.AppendChild(title)
	page.AppendChild(head)

	body := element(atom.Body)
	page.AppendChild(body)

	h2 := element(atom.H2)
	h2.AppendChild(text(doc.Title))
	body.AppendChild(h2)

	p := element(atom.P)
	for i, line := range strings.Split(doc.Text, "\n") {
		if i > 0 {
			p.AppendChild(element(atom.Br))
		}
		if line != "" {
			p.AppendChild(text(line))
		}
	}
	body.AppendChild(p)

	for _, img := range doc.Images {
		body.AppendChild(element(atom.Img,
			html.Attribute{Key: "src", Val: img.DataURI()},
			html.Attribute{Key: "alt", Val: img.Name},
		))
		body.AppendChild(element(atom.Br))
	}
	return root
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
