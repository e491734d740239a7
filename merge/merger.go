package merge

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/tsawler/pdfhtml/core"
	"github.com/tsawler/pdfhtml/pages"
	"github.com/tsawler/pdfhtml/resolver"
)

// Document is a parsed source document.
type Document interface {
	Lookup(ref core.IndirectRef) (core.Object, bool)
	Pages() ([]*pages.Page, error)
}

// Source is one input to a merge. A source whose Err is set, typically
// because it failed to parse, is skipped and reported.
type Source struct {
	Name string
	Doc  Document
	Err  error
}

// Option configures a Merger.
type Option func(*Merger)

// WithLogger sets the logger for skipped sources. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Merger) { m.logger = logger }
}

// WithVersion sets the header version of the merged file (default "1.7").
func WithVersion(version string) Option {
	return func(m *Merger) { m.version = version }
}

// inheritable lists the page attributes a page may take from its
// ancestors. Copied pages get them directly, since their new parent has
// none.
var inheritable = []string{"Resources", "MediaBox", "CropBox", "Rotate"}

// Merger builds one document from the pages of several. Pages are
// appended in the order sources are added, then in page order. The
// output is produced once, by Write.
type Merger struct {
	logger  *slog.Logger
	version string

	objects   *ObjectMap
	out       map[int]core.Object
	kids      core.Array
	skipped   []error
	sources   int
	catalog   int
	pagesRoot int
	written   bool
}

// New creates an empty merger.
func New(opts ...Option) *Merger {
	m := &Merger{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		version: "1.7",
		objects: NewObjectMap(1),
		out:     make(map[int]core.Object),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.catalog = m.objects.Reserve()
	m.pagesRoot = m.objects.Reserve()
	return m
}

// Add copies every page of src, with every object the pages reach, into
// the merged document. A source that cannot contribute pages is skipped;
// the returned *SourceError is also kept for the MergeError.
func (m *Merger) Add(src Source) error {
	if m.written {
		return fmt.Errorf("merge: add after write")
	}
	id := SourceID(m.sources)
	m.sources++

	if src.Err != nil {
		return m.skip(src.Name, src.Err)
	}
	if src.Doc == nil {
		return m.skip(src.Name, errors.New("no document"))
	}
	pageList, err := src.Doc.Pages()
	if err != nil {
		return m.skip(src.Name, err)
	}
	if len(pageList) == 0 {
		return m.skip(src.Name, errors.New("document has no pages"))
	}

	// Pages are numbered first so that links between them point at the
	// copies rather than pulling the pages in as plain objects.
	numbers := make([]int, len(pageList))
	isPage := make(map[core.IndirectRef]bool, len(pageList))
	for i, p := range pageList {
		if ref := p.Ref(); ref != (core.IndirectRef{}) && !isPage[ref] {
			numbers[i], _ = m.objects.Assign(id, ref)
			isPage[ref] = true
		} else {
			numbers[i] = m.objects.Reserve()
		}
	}

	before := m.objects.Len()
	walker := resolver.NewWalker(src.Doc, resolver.WithSkipKeys("Parent"))
	for i, p := range pageList {
		dict := detach(p)
		walk := walker.Walk(dict)

		var added []core.IndirectRef
		for _, ref := range walk.Reachable {
			if isPage[ref] {
				continue
			}
			if _, isNew := m.objects.Assign(id, ref); isNew {
				added = append(added, ref)
			}
		}
		for _, ref := range added {
			num, _ := m.objects.Lookup(id, ref)
			obj, _ := src.Doc.Lookup(ref)
			m.out[num] = m.rewrite(id, obj)
		}
		for _, ref := range walk.Dangling {
			m.logger.Debug("dropping dangling reference", "source", src.Name, "ref", ref.String())
		}

		page := m.rewrite(id, dict).(core.Dict)
		page["Parent"] = core.IndirectRef{Number: m.pagesRoot}
		m.out[numbers[i]] = page
		m.kids = append(m.kids, core.IndirectRef{Number: numbers[i]})
	}

	m.logger.Debug("merged source",
		"source", src.Name,
		"pages", len(pageList),
		"objects", m.objects.Len()-before)
	return nil
}

// detach returns a copy of the page dictionary without /Parent and with
// inherited attributes made explicit.
func detach(p *pages.Page) core.Dict {
	dict := make(core.Dict, len(p.Dict())+len(inheritable))
	for k, v := range p.Dict() {
		dict[k] = v
	}
	delete(dict, "Parent")
	for _, key := range inheritable {
		if dict.Has(key) {
			continue
		}
		if v := p.Attribute(key); v != nil {
			dict[key] = v
		}
	}
	dict["Type"] = core.Name("Page")
	return dict
}

// rewrite deep-copies obj, replacing each reference with its destination
// number. References with no destination, such as those behind /Parent
// entries outside the page tree, become null. Stream data is shared with
// the source.
func (m *Merger) rewrite(source SourceID, obj core.Object) core.Object {
	switch v := obj.(type) {
	case core.IndirectRef:
		if num, ok := m.objects.Lookup(source, v); ok {
			return core.IndirectRef{Number: num}
		}
		return core.Null{}
	case core.Array:
		out := make(core.Array, len(v))
		for i, item := range v {
			out[i] = m.rewrite(source, item)
		}
		return out
	case core.Dict:
		out := make(core.Dict, len(v))
		for k, item := range v {
			out[k] = m.rewrite(source, item)
		}
		return out
	case *core.Stream:
		return &core.Stream{Dict: m.rewrite(source, v.Dict).(core.Dict), Data: v.Data}
	case nil:
		return core.Null{}
	}
	return obj
}

func (m *Merger) skip(name string, err error) error {
	serr := &SourceError{Name: name, Err: err}
	m.skipped = append(m.skipped, serr)
	m.logger.Warn("skipping merge source", "source", name, "error", err)
	return serr
}

// PageCount returns the number of pages merged so far.
func (m *Merger) PageCount() int { return len(m.kids) }

// ObjectCount returns the number of objects the merged file will hold,
// including its catalog and page tree root.
func (m *Merger) ObjectCount() int { return len(m.out) + 2 }

// Skipped returns the errors of the sources skipped so far.
func (m *Merger) Skipped() []error { return m.skipped }

// Write serializes the merged document to w: the catalog, one page tree
// node holding every page, the copied objects in number order, then a
// single cross-reference table and trailer. It returns a *MergeError
// without writing anything when no page was merged.
func (m *Merger) Write(w io.Writer) error {
	if m.written {
		return fmt.Errorf("merge: already written")
	}
	if len(m.kids) == 0 {
		return &MergeError{Skipped: m.skipped}
	}
	m.written = true

	pw := core.NewWriter(w, m.version)
	if err := pw.WriteObject(m.catalog, core.Dict{
		"Type":  core.Name("Catalog"),
		"Pages": core.IndirectRef{Number: m.pagesRoot},
	}); err != nil {
		return err
	}
	if err := pw.WriteObject(m.pagesRoot, core.Dict{
		"Type":  core.Name("Pages"),
		"Kids":  m.kids,
		"Count": core.Int(len(m.kids)),
	}); err != nil {
		return err
	}

	nums := make([]int, 0, len(m.out))
	for num := range m.out {
		nums = append(nums, num)
	}
	sort.Ints(nums)
	for _, num := range nums {
		if err := pw.WriteObject(num, m.out[num]); err != nil {
			return fmt.Errorf("write object %d: %w", num, err)
		}
	}
	return pw.Close(core.Dict{"Root": core.IndirectRef{Number: m.catalog}})
}

// Result summarizes a completed merge.
type Result struct {
	Pages   int
	Objects int
	Skipped []error
}

// Merge adds sources in order and writes the merged document to w.
func Merge(w io.Writer, sources []Source, opts ...Option) (Result, error) {
	m := New(opts...)
	for _, src := range sources {
		// Skipped sources are reported in the result.
		_ = m.Add(src)
	}
	res := Result{Pages: m.PageCount(), Objects: m.ObjectCount(), Skipped: m.Skipped()}
	return res, m.Write(w)
}
