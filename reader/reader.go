package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"

	"github.com/edsrzf/mmap-go"
	"github.com/tsawler/pdfhtml/core"
	"github.com/tsawler/pdfhtml/internal/security"
	"github.com/tsawler/pdfhtml/pages"
	"github.com/tsawler/pdfhtml/resolver"
)

// PDFVersion represents a PDF version
type PDFVersion struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

func (v PDFVersion) less(o PDFVersion) bool {
	return v.Major < o.Major || (v.Major == o.Major && v.Minor < o.Minor)
}

// Reader is a fully parsed PDF document. Every object named by the
// cross-reference data is loaded when the document is parsed, so a Reader
// is read-only afterwards and safe for concurrent use.
type Reader struct {
	version   PDFVersion
	trailer   core.Dict
	objects   map[int]core.IndirectObject
	recovered bool
	warnings  []string
	logger    *slog.Logger
	pageTree  *pages.PageTree
	pageErr   error
	password  string
	encrypted bool
}

// Ensure Reader implements the interfaces used by the other packages
var (
	_ pages.ObjectResolver  = (*Reader)(nil)
	_ resolver.ObjectReader = (*Reader)(nil)
)

// Option configures parsing
type Option func(*Reader)

// WithLogger sets the logger for recovery and repair warnings. By default
// nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithPassword sets the password for encrypted documents. Without it the
// empty password is tried, which opens most encrypted files.
func WithPassword(password string) Option {
	return func(r *Reader) {
		r.password = password
	}
}

// ErrPassword is returned when an encrypted document does not open with
// the given password.
var ErrPassword = security.ErrPassword

var (
	pdfMarker = []byte("%PDF-")
	eofMarker = []byte("%%EOF")
)

// Open reads and parses the PDF file at path. The file is memory-mapped
// for the duration of the parse.
func Open(path string, opts ...Option) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}
	if info.Size() == 0 {
		return Parse(nil, opts...)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to map file: %w", err)
	}
	r, err := Parse(m, opts...)
	if err == nil {
		r.detach()
	}
	if uerr := m.Unmap(); uerr != nil && err == nil {
		return nil, fmt.Errorf("failed to unmap file: %w", uerr)
	}
	return r, err
}

// NewReader reads all of src and parses it.
func NewReader(src io.Reader, opts ...Option) (*Reader, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return Parse(data, opts...)
}

// detach copies stream bodies that still point into the input buffer.
func (r *Reader) detach() {
	for _, obj := range r.objects {
		if s, ok := obj.Object.(*core.Stream); ok {
			s.Data = bytes.Clone(s.Data)
		}
	}
}

// Parse builds a document from the bytes of a PDF file. Stream bodies
// alias data; callers that reuse data must copy them.
//
// The cross-reference chain is used when it is intact. When it is missing
// or does not lead to a catalog, the file is scanned for "n g obj" markers
// and the object table is rebuilt from what is found. Failures are
// reported as *core.ParseError.
func Parse(data []byte, opts ...Option) (*Reader, error) {
	r := &Reader{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}

	if len(data) == 0 {
		return nil, &core.ParseError{Reason: core.TruncatedFile, Err: errors.New("empty file")}
	}

	version, ok := parseHeader(data)
	if !ok {
		r.warn("missing %PDF header, assuming 1.4")
	}
	r.version = version

	hasEOF := bytes.Contains(data, eofMarker)

	l, err := r.loadFromXRef(data)
	if errors.Is(err, errEncryption) {
		return nil, err
	}
	if err != nil {
		r.warn("cross-reference data unusable, scanning file", "error", err)
		l, err = r.loadFromScan(data)
		if errors.Is(err, errEncryption) {
			return nil, err
		}
		if err != nil {
			reason := core.CorruptXref
			if !hasEOF {
				reason = core.TruncatedFile
			}
			return nil, &core.ParseError{Reason: reason, Err: err}
		}
		r.recovered = true
	}
	r.objects = l.objects
	r.trailer = l.trailer

	if err := r.ensureCatalog(); err != nil {
		if r.recovered {
			return nil, r.classify(err, hasEOF)
		}
		r.warn("trailer does not lead to a catalog, scanning file", "error", err)
		l, serr := r.loadFromScan(data)
		if serr != nil {
			return nil, r.classify(err, hasEOF)
		}
		r.objects, r.trailer, r.recovered = l.objects, l.trailer, true
		if err := r.ensureCatalog(); err != nil {
			return nil, r.classify(err, hasEOF)
		}
	}

	if r.recovered && !hasEOF {
		if dangling := resolver.Dangling(r, r.trailer); len(dangling) > 0 {
			return nil, &core.ParseError{
				Reason: core.TruncatedFile,
				Err:    fmt.Errorf("%d references unresolved, first %v", len(dangling), dangling[0]),
			}
		}
	}

	if v, ok := r.catalogVersion(); ok && r.version.less(v) {
		r.version = v
	}
	r.pageTree, r.pageErr = r.buildPageTree()
	return r, nil
}

func (r *Reader) classify(err error, hasEOF bool) error {
	reason := core.UnresolvedTrailer
	if !hasEOF {
		reason = core.TruncatedFile
	}
	return &core.ParseError{Reason: reason, Err: err}
}

func (r *Reader) warn(msg string, args ...any) {
	r.logger.Warn(msg, args...)
	if len(args) >= 2 {
		msg = fmt.Sprintf("%s: %v", msg, args[1])
	}
	r.warnings = append(r.warnings, msg)
}

// parseHeader finds %PDF-x.y within the first kilobyte. Junk before the
// header is tolerated.
func parseHeader(data []byte) (PDFVersion, bool) {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	i := bytes.Index(head, pdfMarker)
	if i < 0 {
		return PDFVersion{Major: 1, Minor: 4}, false
	}
	return parseVersion(head[i+len(pdfMarker):])
}

func parseVersion(b []byte) (PDFVersion, bool) {
	end := 0
	for end < len(b) && (b[end] == '.' || (b[end] >= '0' && b[end] <= '9')) {
		end++
	}
	major, minor, found := bytes.Cut(b[:end], []byte("."))
	if !found {
		return PDFVersion{Major: 1, Minor: 4}, false
	}
	ma, err1 := strconv.Atoi(string(major))
	mi, err2 := strconv.Atoi(string(minor))
	if err1 != nil || err2 != nil {
		return PDFVersion{Major: 1, Minor: 4}, false
	}
	return PDFVersion{Major: ma, Minor: mi}, true
}

// loadFromXRef follows startxref and the /Prev chain, loads every object
// and repairs entries whose offsets are wrong from a file scan.
func (r *Reader) loadFromXRef(data []byte) (*loader, error) {
	tables, err := core.NewXRefParser(data).ParseAllXRefs()
	if err != nil {
		return nil, err
	}
	table := core.MergeXRefTables(tables...)
	if table.Trailer.Get("Root") == nil {
		return nil, errors.New("trailer has no /Root")
	}

	l := newLoader(data, table)
	if err := r.setupSecurity(l); err != nil {
		return nil, err
	}
	l.loadAll()

	// Entries that failed to load, and references that point past the
	// table, are looked up in a full scan.
	missing := l.failedNumbers()
	for _, ref := range resolver.Dangling(l, l.trailer) {
		missing = append(missing, ref.Number)
	}
	if len(missing) > 0 {
		scan, err := core.RebuildXRef(data)
		if err == nil {
			if n := l.repair(scan, missing); n > 0 {
				r.warn("repaired objects from file scan", "count", n)
			}
		}
	}
	for num, err := range l.failed {
		r.logger.Debug("object not loaded", "object", num, "error", err)
	}
	r.reportDecryption(l)
	return l, nil
}

// loadFromScan rebuilds the object table from "n g obj" markers.
func (r *Reader) loadFromScan(data []byte) (*loader, error) {
	table, err := core.RebuildXRef(data)
	if err != nil {
		return nil, err
	}
	l := newLoader(data, table)
	if err := r.setupSecurity(l); err != nil {
		return nil, err
	}
	l.loadAll()
	l.expandObjectStreams()
	if len(l.objects) == 0 {
		return nil, errors.New("no objects could be parsed")
	}
	r.reportDecryption(l)
	return l, nil
}

// errEncryption marks failures that a file scan cannot repair.
var errEncryption = errors.New("encrypted document")

// setupSecurity prepares l to decrypt objects as they load when the
// trailer names an /Encrypt dictionary.
func (r *Reader) setupSecurity(l *loader) error {
	entry := l.trailer.Get("Encrypt")
	if entry == nil {
		return nil
	}
	enc := entry
	if ref, ok := entry.(core.IndirectRef); ok {
		l.encryptNum = ref.Number
		obj, err := l.ResolveReference(ref)
		if err != nil {
			return fmt.Errorf("%w: %w", errEncryption, err)
		}
		enc = obj
	}
	dict, ok := enc.(core.Dict)
	if !ok {
		return fmt.Errorf("%w: /Encrypt is %T", errEncryption, enc)
	}

	var id []byte
	if ids, ok := l.trailer.Get("ID").(core.Array); ok && len(ids) > 0 {
		id, _ = core.StringBytes(ids[0])
	}
	h, err := security.NewHandler(dict, id, r.password)
	if err != nil {
		return fmt.Errorf("%w: %w", errEncryption, err)
	}
	l.decrypt = h
	r.encrypted = true
	return nil
}

func (r *Reader) reportDecryption(l *loader) {
	if len(l.decryptErrs) > 0 {
		r.warn("values left encrypted", "count", len(l.decryptErrs))
	}
}

// ensureCatalog checks that /Root leads to a dictionary. A trailer without
// a usable /Root gets the first /Type /Catalog object that has /Pages.
func (r *Reader) ensureCatalog() error {
	if _, err := r.GetCatalog(); err == nil {
		return nil
	}
	for _, id := range r.IDs() {
		d, ok := r.objects[id.Number].Object.(core.Dict)
		if !ok {
			continue
		}
		if typ, _ := d.GetName("Type"); typ == "Catalog" && d.Has("Pages") {
			r.trailer.Set("Root", id.Ref())
			r.warn("trailer /Root rebuilt", "object", id.String())
			return nil
		}
	}
	return errors.New("no document catalog found")
}

func (r *Reader) catalogVersion() (PDFVersion, bool) {
	cat, err := r.GetCatalog()
	if err != nil {
		return PDFVersion{}, false
	}
	v, ok := cat.GetName("Version")
	if !ok {
		return PDFVersion{}, false
	}
	return parseVersion([]byte(v))
}

// Version returns the PDF version. A catalog /Version newer than the
// header wins.
func (r *Reader) Version() PDFVersion {
	return r.version
}

// Trailer returns the effective trailer dictionary
func (r *Reader) Trailer() core.Dict {
	return r.trailer
}

// Recovered reports whether the object table was rebuilt by scanning the
// file instead of from the cross-reference data.
func (r *Reader) Recovered() bool {
	return r.recovered
}

// Encrypted reports whether the document was decrypted while loading.
func (r *Reader) Encrypted() bool {
	return r.encrypted
}

// Warnings returns the non-fatal problems met while parsing.
func (r *Reader) Warnings() []string {
	return r.warnings
}

// NumObjects returns the number of loaded objects
func (r *Reader) NumObjects() int {
	return len(r.objects)
}

// IDs returns the identifiers of all loaded objects in ascending order.
func (r *Reader) IDs() []core.ObjectID {
	ids := make([]core.ObjectID, 0, len(r.objects))
	for _, obj := range r.objects {
		ids = append(ids, obj.Ref.ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Number < ids[j].Number })
	return ids
}

// Lookup returns the object stored under ref's number. A generation
// mismatch is tolerated since damaged files often get generations wrong.
func (r *Reader) Lookup(ref core.IndirectRef) (core.Object, bool) {
	obj, ok := r.objects[ref.Number]
	if !ok {
		return nil, false
	}
	return obj.Object, true
}

// GetObject returns the object with the given number
func (r *Reader) GetObject(objNum int) (core.Object, error) {
	return r.ResolveReference(core.IndirectRef{Number: objNum})
}

// ResolveReference returns the object ref points to
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	obj, ok := r.Lookup(ref)
	if !ok {
		return nil, fmt.Errorf("object %v not found", ref)
	}
	return obj, nil
}

// maxRefChain bounds chains of references to references.
const maxRefChain = 32

// Resolve follows obj while it is an indirect reference.
func (r *Reader) Resolve(obj core.Object) (core.Object, error) {
	for i := 0; i < maxRefChain; i++ {
		ref, ok := obj.(core.IndirectRef)
		if !ok {
			return obj, nil
		}
		next, err := r.ResolveReference(ref)
		if err != nil {
			return nil, err
		}
		obj = next
	}
	return nil, fmt.Errorf("reference chain longer than %d", maxRefChain)
}

// GetCatalog returns the document catalog dictionary
func (r *Reader) GetCatalog() (core.Dict, error) {
	rootRef := r.trailer.Get("Root")
	if rootRef == nil {
		return nil, fmt.Errorf("trailer missing /Root")
	}
	obj, err := r.Resolve(rootRef)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog: %w", err)
	}
	catalog, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("catalog is not a dictionary: %T", obj)
	}
	return catalog, nil
}

// GetInfo returns the document information dictionary, or nil if the
// document has none.
func (r *Reader) GetInfo() (core.Dict, error) {
	infoRef := r.trailer.Get("Info")
	if infoRef == nil {
		return nil, nil
	}
	obj, err := r.Resolve(infoRef)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve info: %w", err)
	}
	info, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("info is not a dictionary: %T", obj)
	}
	return info, nil
}

// buildPageTree flattens the page tree once so later reads share it.
func (r *Reader) buildPageTree() (*pages.PageTree, error) {
	catalog, err := r.GetCatalog()
	if err != nil {
		return nil, err
	}
	root, err := pages.NewCatalog(catalog, r).Pages()
	if err != nil {
		return nil, err
	}
	tree := pages.NewPageTree(root, r)
	if _, err := tree.Pages(); err != nil {
		return nil, err
	}
	for _, err := range tree.Skipped() {
		r.warn("page tree entry skipped", "error", err)
	}
	return tree, nil
}

// PageTree returns the document page tree
func (r *Reader) PageTree() (*pages.PageTree, error) {
	return r.pageTree, r.pageErr
}

// Pages returns all pages in document order
func (r *Reader) Pages() ([]*pages.Page, error) {
	tree, err := r.PageTree()
	if err != nil {
		return nil, err
	}
	return tree.Pages()
}

// PageCount returns the number of pages in the document
func (r *Reader) PageCount() (int, error) {
	tree, err := r.PageTree()
	if err != nil {
		return 0, err
	}
	return tree.Count()
}

// GetPage returns a specific page (0-indexed)
func (r *Reader) GetPage(index int) (*pages.Page, error) {
	tree, err := r.PageTree()
	if err != nil {
		return nil, err
	}
	return tree.GetPage(index)
}
