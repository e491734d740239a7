package text

import (
	"bytes"
	"strings"
)

// Join assembles runs into text in the order they were shown. A run whose
// baseline lies below the current line by more than half its font size
// starts a new line. Runs on one line are separated by a space when the
// gap between them is wider than a fifth of an em. Multi-column pages come
// out in content-stream order, which is not always reading order.
func Join(runs []TextRun) string {
	if len(runs) == 0 {
		return ""
	}
	buf := []byte(runs[0].Text)
	lineY := runs[0].Y
	prev := runs[0]

	for _, r := range runs[1:] {
		tol := max(r.FontSize, prev.FontSize, 2) / 2
		switch {
		case r.Y < lineY-tol:
			buf = bytes.TrimRight(buf, " ")
			buf = append(buf, '\n')
			lineY = r.Y
		case r.Y > lineY+tol:
			lineY = r.Y
			buf = separate(buf, r.Text)
		default:
			if gap := r.X - prev.EndX; gap > r.FontSize/5 {
				buf = separate(buf, r.Text)
			}
		}
		buf = append(buf, r.Text...)
		prev = r
	}
	return strings.TrimRight(string(buf), " \n")
}

// separate appends a space unless one is already there.
func separate(buf []byte, next string) []byte {
	if len(buf) == 0 || strings.HasPrefix(next, " ") {
		return buf
	}
	if last := buf[len(buf)-1]; last == ' ' || last == '\n' {
		return buf
	}
	return append(buf, ' ')
}
