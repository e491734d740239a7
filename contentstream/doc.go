// Package contentstream splits a page's content stream into operations.
//
// A content stream is postfix: operands come first and the operator that
// consumes them follows.
//
//	BT /F1 12 Tf 72 720 Td (Hello) Tj ET
//
// parses to BT[], Tf[/F1 12], Td[72 720], Tj[(Hello)] and ET[].
//
//	ops, err := contentstream.NewParser(data).Parse()
//
// The parser does not know which operators exist or how many operands
// each takes; interpreting them is up to the caller, and an operator it
// does not recognize can simply be ignored.
//
// Damaged streams are common. A byte sequence that does not lex is
// skipped together with the operands pending before it, and parsing goes
// on. Parse returns every operation it recovered along with the joined
// errors, so a non-nil error does not make the operations unusable.
//
// Inline images (BI ... ID data EI) become a single "BI" operation whose
// operand is an [InlineImage]. The end of the data is found by searching
// for an EI delimited by whitespace, since inline images carry no length.
package contentstream
