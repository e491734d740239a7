package core

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
)

// AppendObject appends the PDF serialization of obj to buf. Dictionary keys
// are written in sorted order so output is deterministic.
func AppendObject(buf []byte, obj Object) []byte {
	switch v := obj.(type) {
	case nil, Null:
		return append(buf, "null"...)
	case Bool:
		return strconv.AppendBool(buf, bool(v))
	case Int:
		return strconv.AppendInt(buf, int64(v), 10)
	case Real:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			f = 0
		}
		return strconv.AppendFloat(buf, f, 'f', -1, 64)
	case String:
		return appendLiteralString(buf, []byte(v))
	case HexString:
		buf = append(buf, '<')
		for _, b := range []byte(v) {
			buf = append(buf, hexDigits[b>>4], hexDigits[b&0x0F])
		}
		return append(buf, '>')
	case Name:
		return appendName(buf, string(v))
	case Array:
		buf = append(buf, '[')
		for i, item := range v {
			if i > 0 {
				buf = append(buf, ' ')
			}
			buf = AppendObject(buf, item)
		}
		return append(buf, ']')
	case Dict:
		return appendDict(buf, v, nil)
	case *Stream:
		buf = appendDict(buf, v.Dict, Dict{"Length": Int(len(v.Data))})
		buf = append(buf, "\nstream\n"...)
		buf = append(buf, v.Data...)
		return append(buf, "\nendstream"...)
	case IndirectRef:
		buf = strconv.AppendInt(buf, int64(v.Number), 10)
		buf = append(buf, ' ')
		buf = strconv.AppendInt(buf, int64(v.Generation), 10)
		return append(buf, " R"...)
	default:
		return append(buf, "null"...)
	}
}

const hexDigits = "0123456789ABCDEF"

// appendDict writes d with the entries of override replacing its own.
func appendDict(buf []byte, d Dict, override Dict) []byte {
	keys := d.Keys()
	for k := range override {
		if !d.Has(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	buf = append(buf, "<<"...)
	for _, k := range keys {
		val, ok := override[k]
		if !ok {
			val = d[k]
		}
		if val == nil {
			continue
		}
		buf = appendName(buf, k)
		buf = append(buf, ' ')
		buf = AppendObject(buf, val)
	}
	return append(buf, ">>"...)
}

func appendLiteralString(buf []byte, s []byte) []byte {
	buf = append(buf, '(')
	for _, b := range s {
		switch b {
		case '(', ')', '\\':
			buf = append(buf, '\\', b)
		case '\r':
			buf = append(buf, '\\', 'r')
		case '\n':
			buf = append(buf, '\\', 'n')
		default:
			buf = append(buf, b)
		}
	}
	return append(buf, ')')
}

// appendName writes a name, escaping bytes outside the regular printable
// range as #xx.
func appendName(buf []byte, name string) []byte {
	buf = append(buf, '/')
	for i := 0; i < len(name); i++ {
		b := name[i]
		if b < 0x21 || b > 0x7E || b == '#' || isDelimiter(b) {
			buf = append(buf, '#', hexDigits[b>>4], hexDigits[b&0x0F])
			continue
		}
		buf = append(buf, b)
	}
	return buf
}

// Writer serializes a complete PDF file: header, indirect objects, one
// classic cross-reference table and the trailer. Objects may be written in
// any order; the table is built from the recorded offsets when the writer
// is closed.
type Writer struct {
	w       *bufio.Writer
	offset  int64
	offsets map[int]int64
	scratch []byte
	err     error
	closed  bool
}

// NewWriter writes the file header for the given version, e.g. "1.7".
func NewWriter(w io.Writer, version string) *Writer {
	pw := &Writer{
		w:       bufio.NewWriter(w),
		offsets: make(map[int]int64),
	}
	// The comment line of high bytes marks the file as binary.
	pw.write([]byte("%PDF-" + version + "\n%\xE2\xE3\xCF\xD3\n"))
	return pw
}

func (pw *Writer) write(b []byte) {
	if pw.err != nil {
		return
	}
	n, err := pw.w.Write(b)
	pw.offset += int64(n)
	pw.err = err
}

// WriteObject writes obj as indirect object num with generation 0.
func (pw *Writer) WriteObject(num int, obj Object) error {
	if pw.closed {
		return fmt.Errorf("write to closed writer")
	}
	if num <= 0 {
		return fmt.Errorf("invalid object number %d", num)
	}
	if _, dup := pw.offsets[num]; dup {
		return fmt.Errorf("object %d written twice", num)
	}
	pw.offsets[num] = pw.offset

	buf := pw.scratch[:0]
	buf = strconv.AppendInt(buf, int64(num), 10)
	buf = append(buf, " 0 obj\n"...)
	buf = AppendObject(buf, obj)
	buf = append(buf, "\nendobj\n"...)
	pw.write(buf)
	pw.scratch = buf
	return pw.err
}

// Close writes the cross-reference table, the trailer and the end-of-file
// marker, then flushes. /Size is set from the highest object number
// written. Numbers that were never written are listed as free.
func (pw *Writer) Close(trailer Dict) error {
	if pw.closed {
		return fmt.Errorf("writer already closed")
	}
	pw.closed = true

	size := 1
	for num := range pw.offsets {
		if num+1 > size {
			size = num + 1
		}
	}

	xrefOffset := pw.offset
	buf := make([]byte, 0, 32+20*size)
	buf = append(buf, "xref\n0 "...)
	buf = strconv.AppendInt(buf, int64(size), 10)
	buf = append(buf, '\n')
	buf = append(buf, "0000000000 65535 f\r\n"...)
	for num := 1; num < size; num++ {
		off, ok := pw.offsets[num]
		if ok {
			buf = append(buf, fmt.Sprintf("%010d 00000 n\r\n", off)...)
		} else {
			buf = append(buf, "0000000000 00001 f\r\n"...)
		}
	}
	pw.write(buf)

	out := Dict{}
	for k, v := range trailer {
		out[k] = v
	}
	out.Set("Size", Int(size))
	out.Delete("Prev")
	out.Delete("XRefStm")

	buf = append(buf[:0], "trailer\n"...)
	buf = AppendObject(buf, out)
	buf = append(buf, "\nstartxref\n"...)
	buf = strconv.AppendInt(buf, xrefOffset, 10)
	buf = append(buf, "\n%%EOF\n"...)
	pw.write(buf)

	if pw.err != nil {
		return pw.err
	}
	return pw.w.Flush()
}

// Offset returns the number of bytes written so far.
func (pw *Writer) Offset() int64 {
	return pw.offset
}
