// Package text replays page content streams and records the text they
// show.
//
// An [Extractor] interprets the text, graphics state and XObject
// operators and produces one [TextRun] per string operand, positioned in
// user space:
//
//	ex := text.NewExtractor(doc)
//	runs, err := ex.ExtractPage(page)
//	s := text.Join(runs)
//
// Other operators are skipped. Fonts that cannot be loaded fall back to
// Latin-1, so err lists what was lost while runs still holds everything
// that could be read.
//
// [Join] turns runs into plain text. A baseline that moves down starts a
// new line and a horizontal gap wider than a fifth of the font size
// becomes a space.
package text
