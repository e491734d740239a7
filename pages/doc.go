// Package pages walks a document's page tree.
//
// The catalog's /Pages entry is the root of a tree of /Pages nodes whose
// leaves are /Page dictionaries. [PageTree] flattens it into document
// order:
//
//	tree := pages.NewPageTree(root, resolver)
//	list, err := tree.Pages()
//
// Resources, MediaBox, CropBox and Rotate may be set on any ancestor; the
// nearest definition wins. [Page.Inherited] resolves such a value and
// [Page.Attribute] returns it unresolved, for callers that copy pages into
// another document.
//
// Real files break the tree in small ways, so the walk is lenient: a kid
// that does not resolve is skipped and reported by [PageTree.Skipped], a
// node reached twice is visited once, and a missing MediaBox defaults to
// US Letter.
//
// [ObjectResolver] is all the package needs from a document, which keeps
// it independent of the reader.
package pages
