// Package resolver walks the indirect-object graph of a PDF document.
//
// PDF documents use indirect references (e.g., "5 0 R") to refer to objects
// stored elsewhere in the file, and the resulting graph is usually cyclic:
// pages point at their parent, which lists the pages again. The [Walker]
// visits each reachable object exactly once.
//
// # Basic Usage
//
//	w := resolver.NewWalker(doc)
//	res := w.Walk(doc.Trailer())
//	for _, ref := range res.Dangling {
//	    log.Printf("unresolved reference %v", ref)
//	}
//
// # Copying Pages
//
// When copying a page into another document the closure of the page is
// needed without the page tree above it:
//
//	w := resolver.NewWalker(doc, resolver.WithSkipKeys("Parent"))
//	closure := w.Walk(pageRef).Reachable
package resolver
