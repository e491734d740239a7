package core

import (
	"bytes"
	"fmt"
	"strconv"
)

// RebuildXRef reconstructs a cross-reference table by scanning the whole
// file for "num gen obj" markers. When an object number is defined more
// than once the last definition in the file wins, matching incremental
// update order. The trailer is the last "trailer" dictionary found, or an
// empty dictionary with /Size when there is none.
//
// Stream bodies are skipped so binary data cannot produce false markers.
func RebuildXRef(data []byte) (*XRefTable, error) {
	table := NewXRefTable()
	lex := NewLexer(data)

	// A sliding window of the last two integer tokens.
	var prev2, prev1 *Token
	var trailer Dict

	for {
		tok, err := lex.NextToken()
		if err != nil {
			if le, ok := err.(*LexError); ok {
				lex.Seek(le.Offset + 1)
			}
			prev2, prev1 = nil, nil
			continue
		}
		if tok.Type == TokenEOF {
			break
		}

		switch {
		case tok.Type == TokenInteger:
			prev2, prev1 = prev1, tok
			continue

		case tok.Type == TokenKeyword && string(tok.Value) == "obj":
			if prev2 != nil && prev1 != nil {
				num, err1 := strconv.Atoi(string(prev2.Value))
				gen, err2 := strconv.Atoi(string(prev1.Value))
				if err1 == nil && err2 == nil && num > 0 && gen >= 0 {
					table.Set(num, &XRefEntry{Offset: prev2.Pos, Generation: gen, InUse: true})
				}
			}

		case tok.Type == TokenKeyword && string(tok.Value) == "stream":
			lex.SkipStreamEOL()
			rel := bytes.Index(data[lex.Pos():], endstreamKeyword)
			if rel < 0 {
				lex.Seek(int64(len(data)))
			} else {
				lex.Seek(lex.Pos() + int64(rel) + int64(len(endstreamKeyword)))
			}

		case tok.Type == TokenKeyword && string(tok.Value) == "trailer":
			mark := lex.Pos()
			p := &Parser{lexer: lex}
			if obj, err := p.ParseObject(); err == nil {
				if dict, ok := obj.(Dict); ok {
					trailer = dict
				}
			} else {
				lex.Seek(mark)
			}
		}
		prev2, prev1 = nil, nil
	}

	if table.Size() == 0 {
		return nil, fmt.Errorf("no object definitions found")
	}

	if trailer == nil {
		trailer = Dict{}
	}
	maxNum := 0
	for num := range table.Entries {
		if num > maxNum {
			maxNum = num
		}
	}
	if size, ok := trailer.GetInt("Size"); !ok || int(size) <= maxNum {
		trailer.Set("Size", Int(maxNum+1))
	}
	for _, key := range []string{"Prev", "XRefStm"} {
		trailer.Delete(key)
	}
	table.Trailer = trailer
	return table, nil
}
