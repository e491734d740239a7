package resolver

import (
	"sort"

	"github.com/tsawler/pdfhtml/core"
)

// ObjectReader looks up indirect objects in one document's object table.
type ObjectReader interface {
	Lookup(ref core.IndirectRef) (core.Object, bool)
}

// Walker finds every indirect object reachable from a set of roots. The
// object graph may contain cycles; each object is visited once.
type Walker struct {
	reader   ObjectReader
	skipKeys map[string]bool
	maxDepth int
}

// Option configures the walker
type Option func(*Walker)

// WithMaxDepth bounds the nesting of direct arrays and dictionaries inside
// one object (default: 100). Deeper values are not inspected.
func WithMaxDepth(depth int) Option {
	return func(w *Walker) {
		w.maxDepth = depth
	}
}

// WithSkipKeys stops the walk from following the named dictionary entries.
// Page copying skips /Parent so a page does not drag in its whole tree.
func WithSkipKeys(keys ...string) Option {
	return func(w *Walker) {
		for _, k := range keys {
			w.skipKeys[k] = true
		}
	}
}

// NewWalker creates a walker over reader.
func NewWalker(reader ObjectReader, opts ...Option) *Walker {
	w := &Walker{
		reader:   reader,
		skipKeys: make(map[string]bool),
		maxDepth: 100,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Result lists the references found by a walk.
type Result struct {
	// Reachable holds each resolvable reference once, in discovery order.
	Reachable []core.IndirectRef
	// Dangling holds references with no object behind them.
	Dangling []core.IndirectRef
}

// Walk visits roots depth-first. Dictionary entries are followed in key
// order, so the discovery order is deterministic for a given document.
func (w *Walker) Walk(roots ...core.Object) Result {
	var res Result
	seen := make(map[core.IndirectRef]bool)

	var visit func(obj core.Object, depth int)
	visit = func(obj core.Object, depth int) {
		if depth > w.maxDepth {
			return
		}
		switch v := obj.(type) {
		case core.IndirectRef:
			if seen[v] {
				return
			}
			seen[v] = true
			target, ok := w.reader.Lookup(v)
			if !ok {
				res.Dangling = append(res.Dangling, v)
				return
			}
			res.Reachable = append(res.Reachable, v)
			visit(target, 0)
		case core.Array:
			for _, item := range v {
				visit(item, depth+1)
			}
		case core.Dict:
			w.visitDict(v, depth, visit)
		case *core.Stream:
			w.visitDict(v.Dict, depth, visit)
		}
	}

	for _, root := range roots {
		visit(root, 0)
	}
	return res
}

func (w *Walker) visitDict(d core.Dict, depth int, visit func(core.Object, int)) {
	keys := make([]string, 0, len(d))
	for k := range d {
		if !w.skipKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		visit(d[k], depth+1)
	}
}

// Dangling reports the references reachable from roots that do not resolve.
func Dangling(reader ObjectReader, roots ...core.Object) []core.IndirectRef {
	return NewWalker(reader).Walk(roots...).Dangling
}
