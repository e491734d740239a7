// Package core provides low-level PDF parsing primitives and object types.
//
// # Object Types
//
// PDF defines eight basic object types, all implemented as types satisfying the
// Object interface:
//
//   - [Null] - the PDF null object
//   - [Bool] - true or false
//   - [Int] and [Real] - numbers
//   - [String] and [HexString] - literal and hexadecimal strings, both
//     holding the decoded bytes
//   - [Name] - names such as /Type, with #xx escapes resolved
//   - [Array] and [Dict] - containers
//
// [Stream] pairs a dictionary with raw data, and [IndirectRef] refers to an
// indirect object by [ObjectID].
//
// # Parsing
//
// The [Lexer] splits an in-memory buffer into tokens and can be repositioned
// with Seek. The [Parser] builds objects from tokens, including indirect
// object definitions and streams. A stream whose /Length is missing or wrong
// is recovered by searching for the endstream keyword.
//
// # Cross-Reference Data
//
// [XRefParser] reads classic xref tables and xref streams and follows the
// /Prev chain of incremental updates; [MergeXRefTables] gives the newest
// definition of each object precedence. When that data is unusable,
// [RebuildXRef] scans the whole file for "n g obj" markers instead.
//
// # Writing
//
// [AppendObject] serializes any object, and [Writer] produces a complete
// file with a single cross-reference table and trailer.
//
// # Stream Decoding
//
// [Stream.Decode] runs the filter chain named by /Filter through the
// internal filters package.
package core
