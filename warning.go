package pdfhtml

import (
	"fmt"
	"strings"
)

// Warning is a problem that lost part of the output, such as one image or
// one content stream, without failing the conversion.
type Warning struct {
	Page    int // 1-indexed; 0 for the whole document
	Message string
	Err     error
}

func (w Warning) String() string {
	if w.Page > 0 {
		return fmt.Sprintf("page %d: %s", w.Page, w.Message)
	}
	return w.Message
}

// FormatWarnings joins warnings into one line.
func FormatWarnings(warnings []Warning) string {
	msgs := make([]string, len(warnings))
	for i, w := range warnings {
		msgs[i] = w.String()
	}
	return strings.Join(msgs, "; ")
}

// pageWarnings splits a joined error into one warning per problem.
func pageWarnings(page int, err error) []Warning {
	var out []Warning
	for _, e := range flatten(err) {
		out = append(out, Warning{Page: page, Message: e.Error(), Err: e})
	}
	return out
}

// flatten unpacks errors built with errors.Join, at any depth.
func flatten(err error) []error {
	if err == nil {
		return nil
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}
	var out []error
	for _, e := range joined.Unwrap() {
		out = append(out, flatten(e)...)
	}
	return out
}
