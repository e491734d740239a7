package font

import (
	"bytes"
	"fmt"

	gofont "github.com/go-text/typesetting/font"
	"github.com/tsawler/pdfhtml/core"
)

// glyphRunes inverts the cmap of an embedded TrueType or OpenType font so
// glyph IDs map back to characters. A glyph reachable from several
// characters keeps the lowest one.
func glyphRunes(data []byte) (map[uint32]rune, error) {
	face, err := gofont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse embedded font: %w", err)
	}
	out := make(map[uint32]rune)
	iter := face.Cmap.Iter()
	for iter.Next() {
		r, gid := iter.Char()
		if gid == 0 || r < 0x20 {
			continue
		}
		if prev, ok := out[uint32(gid)]; !ok || r < prev {
			out[uint32(gid)] = r
		}
	}
	return out, nil
}

// loadEmbeddedText maps CIDs to characters through the font program in
// /FontFile2 and the /CIDToGIDMap. It returns nil when the descendant
// embeds no TrueType program.
func (cid *CIDFont) loadEmbeddedText(r Resolver) (map[uint32]rune, error) {
	if cid.Subtype != "CIDFontType2" || cid.dict == nil {
		return nil, nil
	}
	fd, ok := resolve(r, cid.dict.Get("FontDescriptor")).(core.Dict)
	if !ok {
		return nil, nil
	}
	program, ok := resolve(r, fd.Get("FontFile2")).(*core.Stream)
	if !ok {
		return nil, nil
	}
	data, err := program.Decode()
	if err != nil {
		return nil, fmt.Errorf("FontFile2: %w", err)
	}
	byGID, err := glyphRunes(data)
	if err != nil {
		return nil, err
	}

	gidMap, ok := resolve(r, cid.dict.Get("CIDToGIDMap")).(*core.Stream)
	if !ok {
		// Identity
		return byGID, nil
	}
	table, err := gidMap.Decode()
	if err != nil {
		return nil, fmt.Errorf("CIDToGIDMap: %w", err)
	}
	out := make(map[uint32]rune)
	for c := 0; 2*c+1 < len(table); c++ {
		gid := uint32(table[2*c])<<8 | uint32(table[2*c+1])
		if r, ok := byGID[gid]; ok {
			out[uint32(c)] = r
		}
	}
	return out, nil
}
