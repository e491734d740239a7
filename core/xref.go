package core

import (
	"bytes"
	"fmt"
	"strconv"
)

// XRefEntry represents a single cross-reference entry
type XRefEntry struct {
	Offset     int64 // Byte offset in file (for in-use objects) or next free object number (for free objects)
	Generation int   // Generation number
	InUse      bool  // true if object is in use, false if free

	// Compressed entries live inside an object stream (PDF 1.5+).
	Compressed   bool
	StreamNumber int // Object number of the containing object stream
	StreamIndex  int // Index within the object stream
}

// XRefTable represents a PDF cross-reference section and its trailer
type XRefTable struct {
	Entries map[int]*XRefEntry // Map from object number to XRef entry
	Trailer Dict               // Trailer dictionary
	Offset  int64              // Where this section starts in the file
}

// NewXRefTable creates a new empty XRef table
func NewXRefTable() *XRefTable {
	return &XRefTable{
		Entries: make(map[int]*XRefEntry),
		Trailer: make(Dict),
	}
}

// Get retrieves an XRef entry by object number
func (x *XRefTable) Get(objNum int) (*XRefEntry, bool) {
	entry, ok := x.Entries[objNum]
	return entry, ok
}

// Set adds or updates an XRef entry
func (x *XRefTable) Set(objNum int, entry *XRefEntry) {
	x.Entries[objNum] = entry
}

// Size returns the number of entries in the table
func (x *XRefTable) Size() int {
	return len(x.Entries)
}

// XRefParser parses cross-reference tables and streams from a file held
// in memory.
type XRefParser struct {
	data []byte
}

// NewXRefParser creates a new XRef parser
func NewXRefParser(data []byte) *XRefParser {
	return &XRefParser{data: data}
}

var startxrefKeyword = []byte("startxref")

// FindXRef finds the byte offset of the last cross-reference section by
// locating the final startxref keyword. PDFs end with
// "startxref\n<offset>\n%%EOF".
func (x *XRefParser) FindXRef() (int64, error) {
	idx := bytes.LastIndex(x.data, startxrefKeyword)
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found")
	}

	lex := NewLexer(x.data)
	lex.Seek(int64(idx + len(startxrefKeyword)))
	tok, err := lex.NextToken()
	if err != nil {
		return 0, fmt.Errorf("invalid startxref: %w", err)
	}
	if tok.Type != TokenInteger {
		return 0, fmt.Errorf("startxref is not followed by an offset")
	}
	offset, err := strconv.ParseInt(string(tok.Value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid xref offset: %w", err)
	}
	if offset < 0 || offset >= int64(len(x.data)) {
		return 0, fmt.Errorf("xref offset %d outside file of %d bytes", offset, len(x.data))
	}
	return offset, nil
}

// ParseXRef parses the cross-reference section at the given byte offset.
// The section may be a classic "xref" table or an xref stream object.
func (x *XRefParser) ParseXRef(offset int64) (*XRefTable, error) {
	if offset < 0 || offset >= int64(len(x.data)) {
		return nil, fmt.Errorf("xref offset %d outside file", offset)
	}

	lex := NewLexer(x.data)
	lex.Seek(offset)
	tok, err := lex.NextToken()
	if err != nil {
		return nil, err
	}

	var table *XRefTable
	if tok.Type == TokenKeyword && string(tok.Value) == "xref" {
		table, err = x.parseTable(lex)
	} else {
		table, err = x.parseStreamAt(offset)
	}
	if err != nil {
		return nil, err
	}
	table.Offset = offset
	return table, nil
}

// parseTable parses subsections of a classic xref table followed by the
// trailer dictionary. The lexer is positioned after the "xref" keyword.
func (x *XRefParser) parseTable(lex *Lexer) (*XRefTable, error) {
	table := NewXRefTable()

	for {
		tok, err := lex.NextToken()
		if err != nil {
			return nil, err
		}

		if tok.Type == TokenKeyword && string(tok.Value) == "trailer" {
			parser := &Parser{lexer: lex}
			obj, err := parser.ParseObject()
			if err != nil {
				return nil, fmt.Errorf("failed to parse trailer: %w", err)
			}
			dict, ok := obj.(Dict)
			if !ok {
				return nil, fmt.Errorf("trailer is not a dictionary, got %T", obj)
			}
			table.Trailer = dict
			return table, nil
		}

		if tok.Type != TokenInteger {
			return nil, fmt.Errorf("invalid subsection header at offset %d", tok.Pos)
		}
		first, _ := strconv.Atoi(string(tok.Value))

		countTok, err := lex.NextToken()
		if err != nil {
			return nil, err
		}
		if countTok.Type != TokenInteger {
			return nil, fmt.Errorf("invalid subsection count at offset %d", countTok.Pos)
		}
		count, _ := strconv.Atoi(string(countTok.Value))

		for i := 0; i < count; i++ {
			entry, err := parseEntry(lex)
			if err != nil {
				return nil, fmt.Errorf("failed to parse xref entry %d: %w", first+i, err)
			}
			// The first entry of a section that claims to start at 1 but
			// lists the free head is a common off-by-one.
			if i == 0 && first == 1 && !entry.InUse && entry.Generation == 65535 {
				first = 0
			}
			table.Set(first+i, entry)
		}
	}
}

// parseEntry reads one "offset generation n|f" entry.
func parseEntry(lex *Lexer) (*XRefEntry, error) {
	offTok, err := lex.NextToken()
	if err != nil {
		return nil, err
	}
	genTok, err := lex.NextToken()
	if err != nil {
		return nil, err
	}
	flagTok, err := lex.NextToken()
	if err != nil {
		return nil, err
	}
	if offTok.Type != TokenInteger || genTok.Type != TokenInteger || flagTok.Type != TokenKeyword {
		return nil, fmt.Errorf("malformed entry at offset %d", offTok.Pos)
	}

	offset, err := strconv.ParseInt(string(offTok.Value), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid offset %q: %w", offTok.Value, err)
	}
	generation, err := strconv.Atoi(string(genTok.Value))
	if err != nil {
		return nil, fmt.Errorf("invalid generation %q: %w", genTok.Value, err)
	}

	var inUse bool
	switch string(flagTok.Value) {
	case "n":
		inUse = true
	case "f":
		inUse = false
	default:
		return nil, fmt.Errorf("invalid in-use flag: %q", flagTok.Value)
	}

	return &XRefEntry{
		Offset:     offset,
		Generation: generation,
		InUse:      inUse,
	}, nil
}

// parseStreamAt parses an xref stream object (PDF 1.5+) at offset.
func (x *XRefParser) parseStreamAt(offset int64) (*XRefTable, error) {
	parser := NewParser(x.data)
	parser.Seek(offset)
	ind, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse xref stream: %w", err)
	}
	stream, ok := ind.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("object at xref offset is %T, not a stream", ind.Object)
	}
	if t, _ := stream.Dict.GetName("Type"); t != "XRef" {
		return nil, fmt.Errorf("stream at xref offset has type %q", t)
	}
	return ParseXRefStream(stream)
}

// ParseXRefStream decodes an xref stream into a table. The stream
// dictionary doubles as the trailer.
func ParseXRefStream(stream *Stream) (*XRefTable, error) {
	w, ok := stream.Dict.GetArray("W")
	if !ok || len(w) < 3 {
		return nil, fmt.Errorf("xref stream missing /W")
	}
	var widths [3]int
	rowLen := 0
	for i := 0; i < 3; i++ {
		n, ok := w.GetInt(i)
		if !ok || n < 0 || n > 8 {
			return nil, fmt.Errorf("invalid /W entry %v", w.Get(i))
		}
		widths[i] = int(n)
		rowLen += int(n)
	}
	if rowLen == 0 {
		return nil, fmt.Errorf("xref stream /W has zero width")
	}

	size, _ := stream.Dict.GetInt("Size")
	index := Array{Int(0), size}
	if idx, ok := stream.Dict.GetArray("Index"); ok {
		index = idx
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode xref stream: %w", err)
	}

	table := NewXRefTable()
	table.Trailer = stream.Dict
	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		first, _ := index.GetInt(i)
		count, _ := index.GetInt(i + 1)
		for j := 0; j < int(count); j++ {
			if pos+rowLen > len(data) {
				return table, nil
			}
			row := data[pos : pos+rowLen]
			pos += rowLen

			typ := int64(1)
			if widths[0] > 0 {
				typ = readField(row[:widths[0]])
			}
			f2 := readField(row[widths[0] : widths[0]+widths[1]])
			f3 := readField(row[widths[0]+widths[1]:])

			num := int(first) + j
			switch typ {
			case 0:
				table.Set(num, &XRefEntry{Offset: f2, Generation: int(f3)})
			case 1:
				table.Set(num, &XRefEntry{Offset: f2, Generation: int(f3), InUse: true})
			case 2:
				table.Set(num, &XRefEntry{InUse: true, Compressed: true, StreamNumber: int(f2), StreamIndex: int(f3)})
			}
		}
	}
	return table, nil
}

// readField reads a big-endian integer field of an xref stream row.
func readField(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

// ParseXRefFromEOF finds and parses the last XRef section
func (x *XRefParser) ParseXRefFromEOF() (*XRefTable, error) {
	offset, err := x.FindXRef()
	if err != nil {
		return nil, fmt.Errorf("failed to find xref: %w", err)
	}

	table, err := x.ParseXRef(offset)
	if err != nil {
		return nil, fmt.Errorf("failed to parse xref: %w", err)
	}

	return table, nil
}

// MergeXRefTables merges multiple XRef tables (from incremental updates)
// given oldest first. Later entries override earlier ones, and trailer keys
// of later sections override those of earlier ones.
func MergeXRefTables(tables ...*XRefTable) *XRefTable {
	merged := NewXRefTable()

	for _, table := range tables {
		for objNum, entry := range table.Entries {
			merged.Set(objNum, entry)
		}
		for key, val := range table.Trailer {
			merged.Trailer[key] = val
		}
		merged.Offset = table.Offset
	}
	for _, key := range []string{"Prev", "XRefStm", "Type", "W", "Index", "Filter", "DecodeParms", "Length"} {
		merged.Trailer.Delete(key)
	}

	return merged
}

// ParseAllXRefs parses the newest XRef section and every section it chains
// to through /Prev and /XRefStm. Sections are returned oldest first, so
// that MergeXRefTables gives precedence to the newest definitions.
func (x *XRefParser) ParseAllXRefs() ([]*XRefTable, error) {
	offset, err := x.FindXRef()
	if err != nil {
		return nil, err
	}

	var tables []*XRefTable
	seen := make(map[int64]bool)
	for {
		if seen[offset] {
			break // /Prev loop
		}
		seen[offset] = true

		table, err := x.ParseXRef(offset)
		if err != nil {
			if len(tables) == 0 {
				return nil, err
			}
			// A broken older section still leaves the newer ones usable.
			break
		}

		// Hybrid files: the stream holds objects hidden from old readers
		// and ranks just below the table it is attached to.
		if stm, ok := table.Trailer.GetInt("XRefStm"); ok && !seen[int64(stm)] {
			seen[int64(stm)] = true
			if hidden, err := x.ParseXRef(int64(stm)); err == nil {
				for num, entry := range hidden.Entries {
					if cur, ok := table.Entries[num]; !ok || !cur.InUse {
						table.Set(num, entry)
					}
				}
			}
		}

		tables = append([]*XRefTable{table}, tables...)

		prev, ok := table.Trailer.GetInt("Prev")
		if !ok {
			break
		}
		offset = int64(prev)
	}

	return tables, nil
}
