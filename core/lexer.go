package core

import (
	"bytes"
)

// TokenType represents the type of token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenWhitespace
	TokenComment
	TokenKeyword     // true, false, null, obj, endobj, stream, content operators
	TokenInteger     // 123
	TokenReal        // 3.14
	TokenString      // (hello)
	TokenHexString   // <48656C6C6F>
	TokenName        // /Type
	TokenArrayStart  // [
	TokenArrayEnd    // ]
	TokenDictStart   // <<
	TokenDictEnd     // >>
	TokenIndirectRef // R (after two numbers)
)

// String returns the token type name
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenWhitespace:
		return "Whitespace"
	case TokenComment:
		return "Comment"
	case TokenKeyword:
		return "Keyword"
	case TokenInteger:
		return "Integer"
	case TokenReal:
		return "Real"
	case TokenString:
		return "String"
	case TokenHexString:
		return "HexString"
	case TokenName:
		return "Name"
	case TokenArrayStart:
		return "ArrayStart"
	case TokenArrayEnd:
		return "ArrayEnd"
	case TokenDictStart:
		return "DictStart"
	case TokenDictEnd:
		return "DictEnd"
	case TokenIndirectRef:
		return "IndirectRef"
	default:
		return "Unknown"
	}
}

// Token represents a lexical token. For strings, Value holds the unescaped
// bytes; for names, the name without the leading slash.
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int64 // Offset of the first byte of the token
}

// Lexer splits PDF bytes into tokens. It works on an in-memory buffer, so
// it can be repositioned with Seek and restarted at any offset.
type Lexer struct {
	data []byte
	pos  int
}

// NewLexer creates a new lexer over data
func NewLexer(data []byte) *Lexer {
	return &Lexer{data: data}
}

// Pos returns the offset of the next unread byte.
func (l *Lexer) Pos() int64 {
	return int64(l.pos)
}

// Seek moves the lexer to an absolute offset, clamped to the buffer.
func (l *Lexer) Seek(pos int64) {
	switch {
	case pos < 0:
		l.pos = 0
	case pos > int64(len(l.data)):
		l.pos = len(l.data)
	default:
		l.pos = int(pos)
	}
}

// Len returns the size of the underlying buffer.
func (l *Lexer) Len() int64 {
	return int64(len(l.data))
}

// Bytes returns the underlying buffer.
func (l *Lexer) Bytes() []byte {
	return l.data
}

func (l *Lexer) errorf(pos int, msg string) *LexError {
	return &LexError{Offset: int64(pos), Msg: msg}
}

// NextToken returns the next token from the input. At end of input it
// returns a TokenEOF token and a nil error.
func (l *Lexer) NextToken() (*Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.data) {
		return &Token{Type: TokenEOF, Pos: int64(l.pos)}, nil
	}

	b := l.data[l.pos]
	start := l.pos

	switch b {
	case '%':
		return l.readComment(), nil
	case '[':
		l.pos++
		return &Token{Type: TokenArrayStart, Value: []byte{'['}, Pos: int64(start)}, nil
	case ']':
		l.pos++
		return &Token{Type: TokenArrayEnd, Value: []byte{']'}, Pos: int64(start)}, nil
	case '(':
		return l.readString()
	case '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			l.pos += 2
			return &Token{Type: TokenDictStart, Value: []byte("<<"), Pos: int64(start)}, nil
		}
		return l.readHexString()
	case '>':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '>' {
			l.pos += 2
			return &Token{Type: TokenDictEnd, Value: []byte(">>"), Pos: int64(start)}, nil
		}
		l.pos++
		return nil, l.errorf(start, "unexpected '>'")
	case '/':
		return l.readName(), nil
	case '{', '}':
		// PostScript calculator braces; only meaningful inside Type 4 functions.
		l.pos++
		return &Token{Type: TokenKeyword, Value: []byte{b}, Pos: int64(start)}, nil
	case ')':
		l.pos++
		return nil, l.errorf(start, "unbalanced ')'")
	}

	if isDigit(b) || b == '-' || b == '+' || b == '.' {
		return l.readNumber(), nil
	}

	return l.readKeyword(), nil
}

// skipWhitespace skips all whitespace characters
// PDF whitespace: space (0x20), tab (0x09), LF (0x0A), CR (0x0D), FF (0x0C), null (0x00)
func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.data) && isWhitespace(l.data[l.pos]) {
		l.pos++
	}
}

// readComment reads a comment (% to end of line)
func (l *Lexer) readComment() *Token {
	start := l.pos
	for l.pos < len(l.data) && l.data[l.pos] != '\r' && l.data[l.pos] != '\n' {
		l.pos++
	}
	value := l.data[start:l.pos]
	l.skipEOL()
	return &Token{Type: TokenComment, Value: value, Pos: int64(start)}
}

// readString reads a literal string (hello)
func (l *Lexer) readString() (*Token, error) {
	start := l.pos
	l.pos++ // (

	var buf bytes.Buffer
	depth := 1
	for depth > 0 {
		if l.pos >= len(l.data) {
			return nil, l.errorf(start, "unterminated string")
		}
		b := l.data[l.pos]
		l.pos++

		switch b {
		case '(':
			depth++
			buf.WriteByte(b)
		case ')':
			depth--
			if depth > 0 {
				buf.WriteByte(b)
			}
		case '\r':
			// An unescaped end-of-line in a string reads as a single LF.
			if l.pos < len(l.data) && l.data[l.pos] == '\n' {
				l.pos++
			}
			buf.WriteByte('\n')
		case '\\':
			if l.pos >= len(l.data) {
				return nil, l.errorf(start, "unterminated string")
			}
			next := l.data[l.pos]
			l.pos++
			switch next {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '(', ')', '\\':
				buf.WriteByte(next)
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			case '0', '1', '2', '3', '4', '5', '6', '7':
				val := int(next - '0')
				for i := 0; i < 2 && l.pos < len(l.data) && isOctalDigit(l.data[l.pos]); i++ {
					val = val*8 + int(l.data[l.pos]-'0')
					l.pos++
				}
				buf.WriteByte(byte(val))
			default:
				buf.WriteByte(next)
			}
		default:
			buf.WriteByte(b)
		}
	}

	return &Token{Type: TokenString, Value: buf.Bytes(), Pos: int64(start)}, nil
}

// readHexString reads a hexadecimal string <48656C6C6F> and returns the
// decoded bytes. An odd final digit is padded with zero.
func (l *Lexer) readHexString() (*Token, error) {
	start := l.pos
	l.pos++ // <

	var buf bytes.Buffer
	var hi byte
	half := false
	for {
		if l.pos >= len(l.data) {
			return nil, l.errorf(start, "unterminated hex string")
		}
		b := l.data[l.pos]
		l.pos++
		if b == '>' {
			break
		}
		if isWhitespace(b) {
			continue
		}
		if !isHexDigit(b) {
			return nil, l.errorf(l.pos-1, "invalid hex digit in string")
		}
		if half {
			buf.WriteByte(hi<<4 | hexValue(b))
		} else {
			hi = hexValue(b)
		}
		half = !half
	}
	if half {
		buf.WriteByte(hi << 4)
	}

	return &Token{Type: TokenHexString, Value: buf.Bytes(), Pos: int64(start)}, nil
}

// readName reads a name object /Type
func (l *Lexer) readName() *Token {
	start := l.pos
	l.pos++ // /

	var buf bytes.Buffer
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.pos++
		if b == '#' && l.pos+1 < len(l.data) && isHexDigit(l.data[l.pos]) && isHexDigit(l.data[l.pos+1]) {
			buf.WriteByte(hexValue(l.data[l.pos])<<4 | hexValue(l.data[l.pos+1]))
			l.pos += 2
			continue
		}
		buf.WriteByte(b)
	}

	return &Token{Type: TokenName, Value: buf.Bytes(), Pos: int64(start)}
}

// readNumber reads an integer or real number. A lone sign or period reads
// as the integer zero.
func (l *Lexer) readNumber() *Token {
	start := l.pos
	hasDecimal := false
	hasDigit := false

	if l.data[l.pos] == '-' || l.data[l.pos] == '+' {
		l.pos++
		// Some producers write "--5"; the extra sign is dropped.
		for l.pos < len(l.data) && (l.data[l.pos] == '-' || l.data[l.pos] == '+') {
			l.pos++
		}
	}
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if b == '.' && !hasDecimal {
			hasDecimal = true
		} else if isDigit(b) {
			hasDigit = true
		} else {
			break
		}
		l.pos++
	}

	if !hasDigit {
		return &Token{Type: TokenInteger, Value: []byte("0"), Pos: int64(start)}
	}

	value := l.data[start:l.pos]
	if len(value) > 1 && (value[1] == '-' || value[1] == '+') {
		i := 1
		for i < len(value) && (value[i] == '-' || value[i] == '+') {
			i++
		}
		value = append([]byte{value[0]}, value[i:]...)
	}

	tokenType := TokenInteger
	if hasDecimal {
		tokenType = TokenReal
	}
	return &Token{Type: tokenType, Value: value, Pos: int64(start)}
}

// readKeyword reads a run of regular characters: true, false, null, R, obj,
// stream, or a content stream operator such as T* or '.
func (l *Lexer) readKeyword() *Token {
	start := l.pos
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.pos++
	}

	value := l.data[start:l.pos]
	if len(value) == 1 && value[0] == 'R' {
		return &Token{Type: TokenIndirectRef, Value: value, Pos: int64(start)}
	}
	return &Token{Type: TokenKeyword, Value: value, Pos: int64(start)}
}

// skipEOL consumes a single CR, LF, or CR LF sequence.
func (l *Lexer) skipEOL() {
	if l.pos < len(l.data) && l.data[l.pos] == '\r' {
		l.pos++
	}
	if l.pos < len(l.data) && l.data[l.pos] == '\n' {
		l.pos++
	}
}

// SkipStreamEOL consumes the end-of-line marker that follows the stream
// keyword. Spaces before the marker are tolerated.
func (l *Lexer) SkipStreamEOL() {
	for l.pos < len(l.data) && (l.data[l.pos] == ' ' || l.data[l.pos] == '\t') {
		l.pos++
	}
	l.skipEOL()
}

// ReadBytes returns the next n bytes without copying. It fails with a
// LexError when fewer than n bytes remain.
func (l *Lexer) ReadBytes(n int) ([]byte, error) {
	if n < 0 || l.pos+n > len(l.data) {
		return nil, l.errorf(l.pos, "unexpected end of data")
	}
	data := l.data[l.pos : l.pos+n]
	l.pos += n
	return data, nil
}

// Peek returns the next byte without consuming it. ok is false at end of input.
func (l *Lexer) Peek() (b byte, ok bool) {
	if l.pos >= len(l.data) {
		return 0, false
	}
	return l.data[l.pos], true
}

// Helper functions

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

func isDelimiter(b byte) bool {
	return b == '(' || b == ')' || b == '<' || b == '>' || b == '[' || b == ']' ||
		b == '{' || b == '}' || b == '/' || b == '%'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isOctalDigit(b byte) bool {
	return b >= '0' && b <= '7'
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexValue(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}

// IsWhitespace reports whether b is a PDF whitespace character.
func IsWhitespace(b byte) bool {
	return isWhitespace(b)
}
