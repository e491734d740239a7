// Package merge combines the pages of several PDF documents into one.
//
// Each source's pages are copied in order together with every object they
// reach: resources, content streams, fonts, nested forms and annotations.
// Objects are renumbered sequentially in the output, and an [ObjectMap]
// keyed by source and object number makes an object shared by several
// pages of one source appear once:
//
//	m := merge.New(merge.WithLogger(logger))
//	for _, src := range sources {
//	    m.Add(src) // failed sources are skipped and reported
//	}
//	err := m.Write(out)
//
// The output has a single page tree node and one cross-reference table,
// written once by [Merger.Write]. Inherited page attributes are copied
// onto each page. References that leave the page tree through /Parent
// entries, or that point at missing objects, are written as null.
//
// When no page could be merged Write returns a *[MergeError] and writes
// nothing.
package merge
