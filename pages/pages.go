package pages

import (
	"fmt"

	"github.com/tsawler/pdfhtml/core"
)

// ObjectResolver interface for resolving indirect references
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// maxTreeDepth bounds page tree nesting.
const maxTreeDepth = 64

// Catalog represents the PDF document catalog (root of document structure)
type Catalog struct {
	dict     core.Dict
	resolver ObjectResolver
}

// NewCatalog creates a new catalog from a dictionary
func NewCatalog(dict core.Dict, resolver ObjectResolver) *Catalog {
	return &Catalog{
		dict:     dict,
		resolver: resolver,
	}
}

// Type returns the catalog type (should be "Catalog")
func (c *Catalog) Type() string {
	name, _ := c.dict.GetName("Type")
	return string(name)
}

// Pages returns the page tree root
func (c *Catalog) Pages() (core.Dict, error) {
	pagesObj := c.dict.Get("Pages")
	if pagesObj == nil {
		return nil, fmt.Errorf("catalog missing /Pages entry")
	}

	resolved, err := c.resolver.Resolve(pagesObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Pages: %w", err)
	}

	pagesDict, ok := resolved.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid /Pages type: %T", resolved)
	}
	return pagesDict, nil
}

// Version returns the /Version entry if present
func (c *Catalog) Version() string {
	name, _ := c.dict.GetName("Version")
	return string(name)
}

// PageTree represents the PDF page tree
type PageTree struct {
	root     core.Dict
	resolver ObjectResolver
	pages    []*Page // Cached flattened page list
	skipped  []error
}

// NewPageTree creates a new page tree from the root pages dictionary
func NewPageTree(root core.Dict, resolver ObjectResolver) *PageTree {
	return &PageTree{
		root:     root,
		resolver: resolver,
	}
}

// Count returns the number of page leaves actually present in the tree.
// The /Count entries are not trusted.
func (t *PageTree) Count() (int, error) {
	pages, err := t.Pages()
	return len(pages), err
}

// GetPage returns the page at the given index (0-based)
func (t *PageTree) GetPage(index int) (*Page, error) {
	pages, err := t.Pages()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(pages) {
		return nil, fmt.Errorf("page index %d out of range [0, %d)", index, len(pages))
	}
	return pages[index], nil
}

// Pages returns all pages in document order
func (t *PageTree) Pages() ([]*Page, error) {
	if t.pages == nil {
		t.pages = make([]*Page, 0)
		visited := make(map[core.IndirectRef]bool)
		if err := t.traverse(t.root, core.IndirectRef{}, nil, visited); err != nil {
			return nil, fmt.Errorf("failed to traverse page tree: %w", err)
		}
	}
	return t.pages, nil
}

// Skipped returns the errors for kids that could not be resolved. Such
// kids are left out of the page list rather than failing the document.
func (t *PageTree) Skipped() []error {
	return t.skipped
}

// traverse walks one node. ancestors holds the Pages nodes above it,
// nearest last, for attribute inheritance.
func (t *PageTree) traverse(node core.Dict, ref core.IndirectRef, ancestors []core.Dict, visited map[core.IndirectRef]bool) error {
	if len(ancestors) > maxTreeDepth {
		return fmt.Errorf("page tree deeper than %d levels", maxTreeDepth)
	}

	if !isPagesNode(node) {
		t.pages = append(t.pages, &Page{
			ref:       ref,
			dict:      node,
			ancestors: ancestors,
			resolver:  t.resolver,
		})
		return nil
	}

	kidsResolved, err := t.resolver.Resolve(node.Get("Kids"))
	if err != nil {
		return fmt.Errorf("failed to resolve /Kids: %w", err)
	}
	kids, _ := kidsResolved.(core.Array)

	chain := append(ancestors[:len(ancestors):len(ancestors)], node)
	for i, kid := range kids {
		kidRef, isRef := kid.(core.IndirectRef)
		if isRef {
			if visited[kidRef] {
				t.skipped = append(t.skipped, fmt.Errorf("kid %d: %v already visited", i, kidRef))
				continue
			}
			visited[kidRef] = true
		}

		resolved, err := t.resolver.Resolve(kid)
		if err != nil {
			t.skipped = append(t.skipped, fmt.Errorf("kid %d: %w", i, err))
			continue
		}
		kidDict, ok := resolved.(core.Dict)
		if !ok {
			t.skipped = append(t.skipped, fmt.Errorf("kid %d: invalid type %T", i, resolved))
			continue
		}
		if err := t.traverse(kidDict, kidRef, chain, visited); err != nil {
			return err
		}
	}
	return nil
}

// isPagesNode reports whether node is an intermediate node. Nodes with a
// missing /Type are classified by the presence of /Kids.
func isPagesNode(node core.Dict) bool {
	switch typ, _ := node.GetName("Type"); typ {
	case "Pages":
		return true
	case "Page":
		return false
	}
	return node.Has("Kids")
}

// Page represents a single PDF page
type Page struct {
	ref       core.IndirectRef
	dict      core.Dict
	ancestors []core.Dict // Pages nodes above the page, nearest last
	resolver  ObjectResolver
}

// NewPage creates a page from its dictionary. ancestors lists the Pages
// nodes above it, root first, for inherited attributes.
func NewPage(ref core.IndirectRef, dict core.Dict, ancestors []core.Dict, resolver ObjectResolver) *Page {
	return &Page{
		ref:       ref,
		dict:      dict,
		ancestors: ancestors,
		resolver:  resolver,
	}
}

// Ref returns the page's indirect reference. It is the zero value for a
// page dictionary that was not stored as an indirect object.
func (p *Page) Ref() core.IndirectRef {
	return p.ref
}

// Dict returns the page dictionary.
func (p *Page) Dict() core.Dict {
	return p.dict
}

// inherited looks key up on the page and then on each ancestor, nearest
// first.
func (p *Page) inherited(key string) core.Object {
	if v := p.dict.Get(key); v != nil {
		return v
	}
	for i := len(p.ancestors) - 1; i >= 0; i-- {
		if v := p.ancestors[i].Get(key); v != nil {
			return v
		}
	}
	return nil
}

// Attribute returns an inheritable attribute as stored, without resolving
// references. Copying a page out of its tree uses it to keep shared
// resource objects shared.
func (p *Page) Attribute(key string) core.Object {
	return p.inherited(key)
}

// Inherited returns an inheritable attribute, resolved, with the nearest
// definition winning. Inheritable keys are Resources, MediaBox, CropBox and
// Rotate.
func (p *Page) Inherited(key string) (core.Object, error) {
	v := p.inherited(key)
	if v == nil {
		return nil, nil
	}
	return p.resolver.Resolve(v)
}

// LetterBox is used when no MediaBox is defined anywhere in the tree.
var LetterBox = []float64{0, 0, 612, 792}

// MediaBox returns the page media box [x1 y1 x2 y2]
func (p *Page) MediaBox() ([]float64, error) {
	box, err := p.getBox("MediaBox")
	if err != nil {
		return nil, err
	}
	if box == nil {
		return LetterBox, nil
	}
	return box, nil
}

// CropBox returns the page crop box, defaulting to the MediaBox
func (p *Page) CropBox() ([]float64, error) {
	box, err := p.getBox("CropBox")
	if err != nil || box == nil {
		return p.MediaBox()
	}
	return box, nil
}

// getBox returns nil without error when the box is not defined.
func (p *Page) getBox(name string) ([]float64, error) {
	obj, err := p.Inherited(name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	if obj == nil {
		return nil, nil
	}

	arr, ok := obj.(core.Array)
	if !ok || len(arr) != 4 {
		return nil, fmt.Errorf("invalid %s: %v", name, obj)
	}

	box := make([]float64, 4)
	for i := range arr {
		elem, err := p.resolver.Resolve(arr[i])
		if err != nil {
			return nil, err
		}
		v, ok := core.ToFloat(elem)
		if !ok {
			return nil, fmt.Errorf("invalid %s element type: %T", name, elem)
		}
		box[i] = v
	}
	return box, nil
}

// Resources returns the page resources dictionary. A page without
// resources gets an empty dictionary.
func (p *Page) Resources() (core.Dict, error) {
	obj, err := p.Inherited("Resources")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Resources: %w", err)
	}
	if obj == nil {
		return core.Dict{}, nil
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid Resources type: %T", obj)
	}
	return dict, nil
}

// Contents returns the page content streams in order. Entries that do not
// resolve to streams are skipped.
func (p *Page) Contents() ([]*core.Stream, error) {
	contentsObj := p.dict.Get("Contents")
	if contentsObj == nil {
		return nil, nil
	}

	resolved, err := p.resolver.Resolve(contentsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Contents: %w", err)
	}

	switch v := resolved.(type) {
	case *core.Stream:
		return []*core.Stream{v}, nil
	case core.Array:
		streams := make([]*core.Stream, 0, len(v))
		for _, elem := range v {
			obj, err := p.resolver.Resolve(elem)
			if err != nil {
				continue
			}
			if s, ok := obj.(*core.Stream); ok {
				streams = append(streams, s)
			}
		}
		return streams, nil
	default:
		return nil, fmt.Errorf("invalid Contents type: %T", resolved)
	}
}

// Rotate returns the page rotation normalized to 0, 90, 180 or 270
func (p *Page) Rotate() int {
	obj, err := p.Inherited("Rotate")
	if err != nil {
		return 0
	}
	r, ok := obj.(core.Int)
	if !ok {
		return 0
	}
	deg := int(r) % 360
	if deg < 0 {
		deg += 360
	}
	return deg / 90 * 90
}

// Width returns the page width (from MediaBox)
func (p *Page) Width() (float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, err
	}
	return box[2] - box[0], nil
}

// Height returns the page height (from MediaBox)
func (p *Page) Height() (float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, err
	}
	return box[3] - box[1], nil
}
