// Package reader parses PDF files into an in-memory document.
//
// This package orchestrates the lower-level core package: it locates the
// cross-reference data, follows the /Prev chain of incremental updates and
// loads every object, so the returned [Reader] is immutable and can be
// shared between goroutines.
//
// # Opening PDF Files
//
// Use [Open] to read a file from disk, or [Parse] for bytes already in
// memory:
//
//	r, err := reader.Open("document.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Damaged Files
//
// When the cross-reference data is missing or wrong the file is scanned
// for "n g obj" markers and the object table is rebuilt from them. A
// trailer without /Root gets the document catalog found by the scan.
// [Reader.Recovered] and [Reader.Warnings] report what was repaired.
//
// A document that cannot be built at all yields a *core.ParseError:
//
//   - TruncatedFile - the file ends early and objects are missing
//   - CorruptXref - nothing usable was found, even by scanning
//   - UnresolvedTrailer - no document catalog could be found
//
// # Object Resolution
//
// The Reader resolves indirect object references:
//
//   - GetObject(objNum) - object by number
//   - ResolveReference(ref) - resolve an IndirectRef
//   - Resolve(obj) - resolve if indirect, otherwise return as-is
//   - Lookup(ref) - the lookup used by the resolver package
//
// # Page Access
//
// Pages are available in document order:
//
//	page, err := r.GetPage(0)  // First page
package reader
