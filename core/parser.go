package core

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// maxNesting bounds array and dictionary nesting so hostile input cannot
// exhaust the stack.
const maxNesting = 256

// ReferenceResolver is an interface for resolving indirect references.
// This allows the parser to resolve indirect stream lengths when needed.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// Parser parses PDF objects from an in-memory buffer using a Lexer for
// tokenization. It supports all PDF object types including indirect
// objects and streams.
type Parser struct {
	lexer    *Lexer
	resolver ReferenceResolver
	depth    int
}

// NewParser creates a new PDF parser for data, positioned at offset 0.
func NewParser(data []byte) *Parser {
	return &Parser{lexer: NewLexer(data)}
}

// SetReferenceResolver sets the reference resolver for the parser.
// This is needed to resolve indirect stream lengths.
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// Seek positions the parser at an absolute offset.
func (p *Parser) Seek(offset int64) {
	p.lexer.Seek(offset)
}

// Pos returns the offset of the next unread byte.
func (p *Parser) Pos() int64 {
	return p.lexer.Pos()
}

// Lexer returns the underlying lexer.
func (p *Parser) Lexer() *Lexer {
	return p.lexer
}

// next returns the next non-comment token.
func (p *Parser) next() (*Token, error) {
	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type != TokenComment {
			return tok, nil
		}
	}
}

// ParseObject parses and returns the next PDF object from the input.
// It handles all PDF object types: null, boolean, integer, real, string,
// name, array, dictionary, and indirect references. At end of input it
// returns io.EOF.
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok.Type == TokenEOF {
		return nil, io.EOF
	}
	return p.parseFrom(tok)
}

// parseFrom builds an object starting with an already-read token.
func (p *Parser) parseFrom(tok *Token) (Object, error) {
	switch tok.Type {
	case TokenEOF:
		return nil, fmt.Errorf("unexpected end of input: %w", io.ErrUnexpectedEOF)

	case TokenKeyword:
		switch string(tok.Value) {
		case "null":
			return Null{}, nil
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		default:
			return nil, fmt.Errorf("unexpected keyword %q at offset %d", tok.Value, tok.Pos)
		}

	case TokenInteger:
		return p.parseNumber(tok)

	case TokenReal:
		val, err := strconv.ParseFloat(string(tok.Value), 64)
		if err != nil {
			return nil, &LexError{Offset: tok.Pos, Msg: "invalid real number " + strconv.Quote(string(tok.Value))}
		}
		return Real(val), nil

	case TokenString:
		return String(tok.Value), nil

	case TokenHexString:
		return HexString(tok.Value), nil

	case TokenName:
		return Name(tok.Value), nil

	case TokenArrayStart:
		return p.parseArray()

	case TokenDictStart:
		return p.parseDict()

	default:
		return nil, fmt.Errorf("unexpected token %v at offset %d", tok.Type, tok.Pos)
	}
}

// parseNumber parses an integer or an indirect reference. Indirect
// references are detected by lookahead for the "num gen R" pattern; when
// the pattern does not match the lexer is rewound.
func (p *Parser) parseNumber(tok *Token) (Object, error) {
	first, err := strconv.ParseInt(string(tok.Value), 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(string(tok.Value), 64)
		if ferr != nil {
			return nil, &LexError{Offset: tok.Pos, Msg: "invalid number " + strconv.Quote(string(tok.Value))}
		}
		return Real(f), nil
	}

	mark := p.lexer.Pos()
	if gen, ok := p.tryRefTail(); ok {
		return IndirectRef{Number: int(first), Generation: gen}, nil
	}
	p.lexer.Seek(mark)
	return Int(first), nil
}

// tryRefTail consumes "gen R" if it follows. The caller rewinds on failure.
func (p *Parser) tryRefTail() (int, bool) {
	genTok, err := p.next()
	if err != nil || genTok.Type != TokenInteger {
		return 0, false
	}
	rTok, err := p.next()
	if err != nil || rTok.Type != TokenIndirectRef {
		return 0, false
	}
	gen, err := strconv.Atoi(string(genTok.Value))
	if err != nil {
		return 0, false
	}
	return gen, true
}

// parseArray parses a PDF array "[obj1 obj2 ...]" after the opening bracket.
func (p *Parser) parseArray() (Object, error) {
	if p.depth >= maxNesting {
		return nil, fmt.Errorf("nesting deeper than %d levels", maxNesting)
	}
	p.depth++
	defer func() { p.depth-- }()

	arr := Array{}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenArrayEnd:
			return arr, nil
		case TokenEOF:
			return nil, fmt.Errorf("unexpected EOF in array: %w", io.ErrUnexpectedEOF)
		}

		obj, err := p.parseFrom(tok)
		if err != nil {
			return nil, fmt.Errorf("error parsing array element: %w", err)
		}
		arr = append(arr, obj)
	}
}

// parseDict parses a PDF dictionary "<< /Key value ... >>" after the
// opening delimiter. A key with a null value is dropped.
func (p *Parser) parseDict() (Object, error) {
	if p.depth >= maxNesting {
		return nil, fmt.Errorf("nesting deeper than %d levels", maxNesting)
	}
	p.depth++
	defer func() { p.depth-- }()

	dict := make(Dict)
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenDictEnd:
			return dict, nil
		case TokenEOF:
			return nil, fmt.Errorf("unexpected EOF in dictionary: %w", io.ErrUnexpectedEOF)
		case TokenName:
		default:
			return nil, fmt.Errorf("expected name for dictionary key, got %v at offset %d", tok.Type, tok.Pos)
		}
		key := string(tok.Value)

		valTok, err := p.next()
		if err != nil {
			return nil, err
		}
		if valTok.Type == TokenDictEnd {
			// Missing value before >>; keep what we have.
			return dict, nil
		}
		value, err := p.parseFrom(valTok)
		if err != nil {
			return nil, fmt.Errorf("error parsing dictionary value for key '%s': %w", key, err)
		}
		if _, isNull := value.(Null); isNull {
			continue
		}
		dict[key] = value
	}
}

// ParseIndirectObject parses an indirect object definition at the current
// position. Format: "num gen obj <object> endobj" or
// "num gen obj <dict> stream ... endstream endobj". A missing endobj is
// tolerated.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	numTok, err := p.next()
	if err != nil {
		return nil, err
	}
	if numTok.Type == TokenEOF {
		return nil, io.EOF
	}
	if numTok.Type != TokenInteger {
		return nil, fmt.Errorf("expected object number, got %v at offset %d", numTok.Type, numTok.Pos)
	}
	num, err := strconv.Atoi(string(numTok.Value))
	if err != nil {
		return nil, fmt.Errorf("invalid object number: %w", err)
	}

	genTok, err := p.next()
	if err != nil {
		return nil, err
	}
	if genTok.Type != TokenInteger {
		return nil, fmt.Errorf("expected generation number, got %v at offset %d", genTok.Type, genTok.Pos)
	}
	gen, err := strconv.Atoi(string(genTok.Value))
	if err != nil {
		return nil, fmt.Errorf("invalid generation number: %w", err)
	}

	objTok, err := p.next()
	if err != nil {
		return nil, err
	}
	if objTok.Type != TokenKeyword || string(objTok.Value) != "obj" {
		return nil, fmt.Errorf("expected 'obj' keyword at offset %d", objTok.Pos)
	}

	ref := IndirectRef{Number: num, Generation: gen}

	valTok, err := p.next()
	if err != nil {
		return nil, err
	}
	var obj Object
	if valTok.Type == TokenKeyword && string(valTok.Value) == "endobj" {
		return &IndirectObject{Ref: ref, Object: Null{}}, nil
	}
	obj, err = p.parseFrom(valTok)
	if err != nil {
		return nil, fmt.Errorf("error parsing object %d %d: %w", num, gen, err)
	}

	mark := p.lexer.Pos()
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok.Type == TokenKeyword && string(tok.Value) == "stream" {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, fmt.Errorf("stream must follow a dictionary in object %d %d", num, gen)
		}
		stream, err := p.parseStream(dict)
		if err != nil {
			return nil, fmt.Errorf("error parsing stream %d %d: %w", num, gen, err)
		}
		obj = stream
		mark = p.lexer.Pos()
		tok, err = p.next()
		if err != nil {
			return nil, err
		}
	}

	if tok.Type != TokenKeyword || string(tok.Value) != "endobj" {
		p.lexer.Seek(mark)
	}

	return &IndirectObject{Ref: ref, Object: obj}, nil
}

var endstreamKeyword = []byte("endstream")

// parseStream reads stream data after the "stream" keyword. The declared
// /Length is trusted only when "endstream" follows it; otherwise the data
// runs up to the next "endstream" marker.
func (p *Parser) parseStream(dict Dict) (*Stream, error) {
	p.lexer.SkipStreamEOL()
	start := p.lexer.Pos()
	data := p.lexer.Bytes()

	if length, ok := p.streamLength(dict); ok && start+length <= int64(len(data)) {
		end := start + length
		if hasKeywordAt(data, end, endstreamKeyword) {
			p.lexer.Seek(end)
			if err := p.expectKeyword("endstream"); err == nil {
				return &Stream{Dict: dict, Data: data[start:end]}, nil
			}
		}
	}

	rel := bytes.Index(data[start:], endstreamKeyword)
	if rel < 0 {
		return nil, &LexError{Offset: start, Msg: "stream without endstream"}
	}
	end := start + int64(rel)
	after := end + int64(len(endstreamKeyword))
	// Trim the end-of-line that precedes endstream.
	if end > start && data[end-1] == '\n' {
		end--
	}
	if end > start && data[end-1] == '\r' {
		end--
	}
	p.lexer.Seek(after)
	return &Stream{Dict: dict, Data: data[start:end]}, nil
}

// streamLength returns the /Length entry, resolving an indirect value
// through the reference resolver when one is set.
func (p *Parser) streamLength(dict Dict) (int64, bool) {
	switch v := dict.Get("Length").(type) {
	case Int:
		return int64(v), v >= 0
	case IndirectRef:
		if p.resolver == nil {
			return 0, false
		}
		// The resolver may reuse this lexer's buffer; keep our position.
		mark := p.lexer.Pos()
		resolved, err := p.resolver.ResolveReference(v)
		p.lexer.Seek(mark)
		if err != nil {
			return 0, false
		}
		n, ok := resolved.(Int)
		return int64(n), ok && n >= 0
	}
	return 0, false
}

func (p *Parser) expectKeyword(kw string) error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if tok.Type != TokenKeyword || string(tok.Value) != kw {
		return fmt.Errorf("expected '%s' at offset %d", kw, tok.Pos)
	}
	return nil
}

// hasKeywordAt reports whether kw follows offset after optional whitespace.
func hasKeywordAt(data []byte, offset int64, kw []byte) bool {
	i := int(offset)
	for i < len(data) && isWhitespace(data[i]) {
		i++
	}
	return bytes.HasPrefix(data[i:], kw)
}
