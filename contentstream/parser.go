package contentstream

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/tsawler/pdfhtml/core"
)

// Operation represents a single content stream operation consisting of an
// operator and its operands. Operands are PDF objects that precede the operator.
type Operation struct {
	Operator string        // The operator (e.g., "Tj", "Tm", "q")
	Operands []core.Object // The operands
}

// maxOperands bounds the operand stack between two operators.
const maxOperands = 4096

// Parser parses PDF content streams into a sequence of operations.
// Each operation consists of an operator and its operands.
type Parser struct {
	objects *core.Parser
	lexer   *core.Lexer
	stack   []core.Object
	ops     []Operation
	errs    []error
}

// NewParser creates a new content stream parser for the given data.
func NewParser(data []byte) *Parser {
	objects := core.NewParser(data)
	return &Parser{
		objects: objects,
		lexer:   objects.Lexer(),
	}
}

// Parse parses the content stream and returns all operations in order.
//
// Malformed input does not stop the parse: the bad bytes are skipped, the
// pending operands are dropped and parsing resumes. The returned error
// joins every such problem, and the operations are valid either way.
func (p *Parser) Parse() ([]Operation, error) {
	for {
		mark := p.lexer.Pos()
		tok, err := p.lexer.NextToken()
		if err != nil {
			p.resync(err, mark)
			continue
		}

		switch tok.Type {
		case core.TokenEOF:
			return p.ops, errors.Join(p.errs...)
		case core.TokenComment:
			continue
		case core.TokenKeyword, core.TokenIndirectRef:
			p.keyword(tok)
		case core.TokenInteger:
			p.pushNumber(tok, false)
		case core.TokenReal:
			p.pushNumber(tok, true)
		case core.TokenString:
			p.push(core.String(tok.Value))
		case core.TokenHexString:
			p.push(core.HexString(tok.Value))
		case core.TokenName:
			p.push(core.Name(tok.Value))
		case core.TokenArrayStart, core.TokenDictStart:
			p.lexer.Seek(tok.Pos)
			obj, err := p.objects.ParseObject()
			if err != nil {
				p.resync(err, tok.Pos)
				continue
			}
			p.push(obj)
		default:
			p.resync(fmt.Errorf("unexpected %v", tok.Type), tok.Pos)
		}
	}
}

func (p *Parser) push(obj core.Object) {
	if len(p.stack) >= maxOperands {
		p.errs = append(p.errs, fmt.Errorf("more than %d operands at offset %d", maxOperands, p.lexer.Pos()))
		p.stack = p.stack[:0]
	}
	p.stack = append(p.stack, obj)
}

func (p *Parser) pushNumber(tok *core.Token, real bool) {
	if !real {
		if v, err := strconv.ParseInt(string(tok.Value), 10, 64); err == nil {
			p.push(core.Int(v))
			return
		}
	}
	v, err := strconv.ParseFloat(string(tok.Value), 64)
	if err != nil {
		// Malformed numbers such as "--5" or "1.2.3" read as zero.
		v = 0
	}
	p.push(core.Real(v))
}

// keyword handles operators and the three keyword operands.
func (p *Parser) keyword(tok *core.Token) {
	switch string(tok.Value) {
	case "true":
		p.push(core.Bool(true))
		return
	case "false":
		p.push(core.Bool(false))
		return
	case "null":
		p.push(core.Null{})
		return
	case "{", "}":
		return
	case "BI":
		p.inlineImage(tok.Pos)
		return
	}
	p.emit(string(tok.Value))
}

// emit creates an operation with the current operand stack, then clears
// the stack.
func (p *Parser) emit(operator string) {
	operands := make([]core.Object, len(p.stack))
	copy(operands, p.stack)
	p.ops = append(p.ops, Operation{Operator: operator, Operands: operands})
	p.stack = p.stack[:0]
}

// resync records err, drops the pending operands and moves past the byte
// where the problem started.
func (p *Parser) resync(err error, start int64) {
	var lexErr *core.LexError
	if errors.As(err, &lexErr) {
		start = lexErr.Offset
	}
	p.errs = append(p.errs, fmt.Errorf("offset %d: %w", start, err))
	p.stack = p.stack[:0]
	if next := start + 1; next > p.lexer.Pos() {
		p.lexer.Seek(next)
	}
}

// InlineImage is the single operand of the synthetic "BI" operation: the
// image dictionary with abbreviated keys as written, and the raw bytes
// between ID and EI.
type InlineImage struct {
	Dict core.Dict
	Data []byte
}

// Type implements core.Object.
func (img *InlineImage) Type() core.ObjectType { return core.ObjStream }

func (img *InlineImage) String() string {
	return fmt.Sprintf("inline image %v (%d bytes)", img.Dict, len(img.Data))
}

// inlineImage reads "BI <key value>... ID <data> EI" as one operation.
func (p *Parser) inlineImage(start int64) {
	p.stack = p.stack[:0]
	dict := core.Dict{}
	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			p.resync(err, start)
			return
		}
		if tok.Type == core.TokenEOF {
			p.errs = append(p.errs, fmt.Errorf("offset %d: inline image without ID", start))
			return
		}
		if tok.Type == core.TokenKeyword && string(tok.Value) == "ID" {
			break
		}
		if tok.Type != core.TokenName {
			p.resync(fmt.Errorf("inline image key is %v", tok.Type), tok.Pos)
			return
		}
		val, err := p.objects.ParseObject()
		if err != nil {
			p.resync(err, tok.Pos)
			return
		}
		dict[string(tok.Value)] = val
	}

	// One whitespace byte separates ID from the data.
	data := p.lexer.Bytes()
	pos := p.lexer.Pos()
	if b, ok := p.lexer.Peek(); ok && core.IsWhitespace(b) {
		pos++
	}
	end := findEI(data, int(pos))
	if end < 0 {
		p.errs = append(p.errs, fmt.Errorf("offset %d: inline image without EI", start))
		p.lexer.Seek(int64(len(data)))
		return
	}

	// Drop the whitespace byte that findEI requires before EI.
	body := data[pos:end]
	if n := len(body); n > 0 {
		body = body[:n-1]
	}
	p.ops = append(p.ops, Operation{
		Operator: "BI",
		Operands: []core.Object{&InlineImage{Dict: dict, Data: body}},
	})
	p.lexer.Seek(int64(end + 2))
}

// findEI returns the offset of the first "EI" at or after from that is
// preceded by whitespace and followed by whitespace or end of data.
func findEI(data []byte, from int) int {
	for i := from; i+1 < len(data); i++ {
		if data[i] != 'E' || data[i+1] != 'I' {
			continue
		}
		if i > from && !core.IsWhitespace(data[i-1]) {
			continue
		}
		if i+2 < len(data) && !core.IsWhitespace(data[i+2]) {
			continue
		}
		return i
	}
	return -1
}
