package font

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/tsawler/pdfhtml/core"
)

// Code is one character code read from a string operand, with the number
// of bytes it occupied.
type Code struct {
	Value uint32
	Len   int
}

// CMap maps character codes to Unicode text (a ToUnicode CMap) or to CIDs
// (an encoding CMap). Its codespace ranges say how many bytes each code in
// a string takes.
type CMap struct {
	Name string

	codespace []codespaceRange
	chars     map[Code]string
	ranges    []bfRange
	cids      map[Code]uint32
	cidRanges []cidRange
}

type codespaceRange struct {
	low, high []byte
}

// contains reports whether b lies in the range, byte by byte.
func (r codespaceRange) contains(b []byte) bool {
	if len(b) != len(r.low) {
		return false
	}
	for i := range b {
		if b[i] < r.low[i] || b[i] > r.high[i] {
			return false
		}
	}
	return true
}

type bfRange struct {
	lo, hi uint32
	n      int
	dst    []uint16 // starting destination, incremented in its last unit
	array  []string // explicit destination per code, when non-nil
}

type cidRange struct {
	lo, hi uint32
	n      int
	cid    uint32
}

// NewCMap returns an empty CMap.
func NewCMap() *CMap {
	return &CMap{
		chars: make(map[Code]string),
		cids:  make(map[Code]uint32),
	}
}

// ParseCMapStream decodes stream and parses it as a CMap.
func ParseCMapStream(stream *core.Stream) (*CMap, error) {
	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode cmap: %w", err)
	}
	cm, err := ParseCMap(data)
	if err != nil {
		return nil, err
	}
	if name, ok := stream.Dict.GetName("CMapName"); ok {
		cm.Name = string(name)
	}
	return cm, nil
}

// ParseCMap parses CMap program text. PostScript that is not part of a
// mapping section is ignored.
func ParseCMap(data []byte) (*CMap, error) {
	cm := NewCMap()
	lex := core.NewLexer(data)
	var operands []*core.Token
	sections := 0

	for {
		tok, err := lex.NextToken()
		if err != nil {
			lex.Seek(lex.Pos() + 1)
			operands = operands[:0]
			continue
		}
		switch tok.Type {
		case core.TokenEOF:
			if sections == 0 && len(cm.chars) == 0 {
				return nil, fmt.Errorf("cmap has no mappings")
			}
			return cm, nil
		case core.TokenKeyword:
			switch string(tok.Value) {
			case "begincodespacerange":
				cm.readSection(lex, "endcodespacerange", 2, cm.addCodespace)
				sections++
			case "beginbfchar":
				cm.readSection(lex, "endbfchar", 2, cm.addBFChar)
				sections++
			case "beginbfrange":
				cm.readSection(lex, "endbfrange", 3, cm.addBFRange)
				sections++
			case "begincidchar":
				cm.readSection(lex, "endcidchar", 2, cm.addCIDChar)
				sections++
			case "begincidrange":
				cm.readSection(lex, "endcidrange", 3, cm.addCIDRange)
				sections++
			case "def":
				if len(operands) == 2 && operands[0].Type == core.TokenName &&
					string(operands[0].Value) == "CMapName" && operands[1].Type == core.TokenName {
					cm.Name = string(operands[1].Value)
				}
			}
			operands = operands[:0]
		default:
			operands = append(operands, tok)
			if len(operands) > 2 {
				operands = operands[1:]
			}
		}
	}
}

// readSection collects entries of width tokens each until the end keyword
// and hands every complete entry to add. Arrays are read as one token list.
func (cm *CMap) readSection(lex *core.Lexer, end string, width int, add func([]sectionItem)) {
	var entry []sectionItem
	for {
		tok, err := lex.NextToken()
		if err != nil {
			lex.Seek(lex.Pos() + 1)
			entry = entry[:0]
			continue
		}
		switch tok.Type {
		case core.TokenEOF:
			return
		case core.TokenKeyword:
			if string(tok.Value) == end {
				return
			}
			entry = entry[:0]
			continue
		case core.TokenComment:
			continue
		case core.TokenArrayStart:
			entry = append(entry, sectionItem{array: readArray(lex)})
		default:
			entry = append(entry, sectionItem{tok: tok})
		}
		if len(entry) == width {
			add(entry)
			entry = entry[:0]
		}
	}
}

// sectionItem is a token or, for bfrange destinations, an array of them.
type sectionItem struct {
	tok   *core.Token
	array []*core.Token
}

func readArray(lex *core.Lexer) []*core.Token {
	var items []*core.Token
	for {
		tok, err := lex.NextToken()
		if err != nil || tok.Type == core.TokenEOF || tok.Type == core.TokenArrayEnd {
			return items
		}
		items = append(items, tok)
	}
}

func (it sectionItem) code() (Code, bool) {
	if it.tok == nil || it.tok.Type != core.TokenHexString || len(it.tok.Value) == 0 || len(it.tok.Value) > 4 {
		return Code{}, false
	}
	var v uint32
	for _, b := range it.tok.Value {
		v = v<<8 | uint32(b)
	}
	return Code{Value: v, Len: len(it.tok.Value)}, true
}

func (it sectionItem) number() (uint32, bool) {
	if it.tok == nil || it.tok.Type != core.TokenInteger {
		return 0, false
	}
	v, err := strconv.ParseUint(string(it.tok.Value), 10, 32)
	return uint32(v), err == nil
}

func (cm *CMap) addCodespace(e []sectionItem) {
	if e[0].tok == nil || e[1].tok == nil {
		return
	}
	low, high := e[0].tok.Value, e[1].tok.Value
	if len(low) == 0 || len(low) != len(high) || len(low) > 4 {
		return
	}
	cm.codespace = append(cm.codespace, codespaceRange{low: low, high: high})
	sort.SliceStable(cm.codespace, func(i, j int) bool {
		return len(cm.codespace[i].low) < len(cm.codespace[j].low)
	})
}

func (cm *CMap) addBFChar(e []sectionItem) {
	src, ok := e[0].code()
	if !ok || e[1].tok == nil {
		return
	}
	switch e[1].tok.Type {
	case core.TokenHexString:
		cm.chars[src] = utf16Text(e[1].tok.Value)
	case core.TokenName:
		if r, ok := GlyphToRune(string(e[1].tok.Value)); ok {
			cm.chars[src] = string(r)
		}
	}
}

func (cm *CMap) addBFRange(e []sectionItem) {
	lo, ok1 := e[0].code()
	hi, ok2 := e[1].code()
	if !ok1 || !ok2 || lo.Len != hi.Len || hi.Value < lo.Value {
		return
	}
	r := bfRange{lo: lo.Value, hi: hi.Value, n: lo.Len}
	switch {
	case e[2].array != nil:
		for _, t := range e[2].array {
			if t.Type == core.TokenHexString {
				r.array = append(r.array, utf16Text(t.Value))
			} else {
				r.array = append(r.array, "")
			}
		}
	case e[2].tok != nil && e[2].tok.Type == core.TokenHexString && len(e[2].tok.Value) > 0:
		r.dst = utf16Units(e[2].tok.Value)
	default:
		return
	}
	cm.ranges = append(cm.ranges, r)
}

func (cm *CMap) addCIDChar(e []sectionItem) {
	src, ok := e[0].code()
	cid, ok2 := e[1].number()
	if ok && ok2 {
		cm.cids[src] = cid
	}
}

func (cm *CMap) addCIDRange(e []sectionItem) {
	lo, ok1 := e[0].code()
	hi, ok2 := e[1].code()
	cid, ok3 := e[2].number()
	if ok1 && ok2 && ok3 && lo.Len == hi.Len && hi.Value >= lo.Value {
		cm.cidRanges = append(cm.cidRanges, cidRange{lo: lo.Value, hi: hi.Value, n: lo.Len, cid: cid})
	}
}

// utf16Units splits b into big-endian UTF-16 code units. An odd trailing
// byte becomes a unit of its own.
func utf16Units(b []byte) []uint16 {
	units := make([]uint16, 0, (len(b)+1)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	if len(b)%2 == 1 {
		units = append(units, uint16(b[len(b)-1]))
	}
	return units
}

func utf16Text(b []byte) string {
	if len(b) == 1 {
		return string(rune(b[0]))
	}
	return DecodeUTF16BE(b)
}

func unitsText(units []uint16) string {
	b := make([]byte, 0, len(units)*2)
	for _, u := range units {
		b = append(b, byte(u>>8), byte(u))
	}
	return DecodeUTF16BE(b)
}

// HasCodespace reports whether the CMap declares codespace ranges.
func (cm *CMap) HasCodespace() bool { return len(cm.codespace) > 0 }

// Codes splits data into character codes. Without codespace ranges every
// code is defaultLen bytes long. Bytes that match no range are consumed
// with the shortest declared code length.
func (cm *CMap) Codes(data []byte, defaultLen int) []Code {
	var codes []Code
	for i := 0; i < len(data); {
		n := cm.codeLen(data[i:], defaultLen)
		var v uint32
		for _, b := range data[i : i+n] {
			v = v<<8 | uint32(b)
		}
		codes = append(codes, Code{Value: v, Len: n})
		i += n
	}
	return codes
}

func (cm *CMap) codeLen(data []byte, defaultLen int) int {
	if len(cm.codespace) == 0 {
		return min(defaultLen, len(data))
	}
	for _, r := range cm.codespace {
		if n := len(r.low); n <= len(data) && r.contains(data[:n]) {
			return n
		}
	}
	return min(len(cm.codespace[0].low), len(data))
}

// Lookup returns the Unicode text for code.
func (cm *CMap) Lookup(code Code) (string, bool) {
	if s, ok := cm.chars[code]; ok {
		return s, true
	}
	// Later ranges override earlier ones.
	for i := len(cm.ranges) - 1; i >= 0; i-- {
		r := cm.ranges[i]
		if r.n != code.Len || code.Value < r.lo || code.Value > r.hi {
			continue
		}
		off := code.Value - r.lo
		if r.array != nil {
			if int(off) < len(r.array) && r.array[off] != "" {
				return r.array[off], true
			}
			return "", false
		}
		units := append([]uint16(nil), r.dst...)
		units[len(units)-1] += uint16(off)
		return unitsText(units), true
	}
	return "", false
}

// CID returns the CID the encoding CMap assigns to code.
func (cm *CMap) CID(code Code) (uint32, bool) {
	if cid, ok := cm.cids[code]; ok {
		return cid, true
	}
	for i := len(cm.cidRanges) - 1; i >= 0; i-- {
		r := cm.cidRanges[i]
		if r.n == code.Len && code.Value >= r.lo && code.Value <= r.hi {
			return r.cid + code.Value - r.lo, true
		}
	}
	return 0, false
}

// LookupString decodes data with the CMap's code lengths, defaulting to
// two-byte codes. Unmapped codes are dropped.
func (cm *CMap) LookupString(data []byte) string {
	var out []byte
	for _, c := range cm.Codes(data, 2) {
		if s, ok := cm.Lookup(c); ok {
			out = append(out, s...)
		}
	}
	return string(out)
}
