package expr

import (
	"fmt"

	"github.com/roach88/keywords/internal/value"
)

// binding powers of the binary operators; higher binds tighter
var binaryPrec = map[string]int{
	"??":  1,
	"||":  2,
	"&&":  3,
	"==":  4,
	"!=":  4,
	"===": 4,
	"!==": 4,
	"<":   5,
	"<=":  5,
	">":   5,
	">=":  5,
	"+":   6,
	"-":   6,
	"*":   7,
	"/":   7,
	"%":   7,
}

type parser struct {
	src  string
	toks []token
	i    int
}

// Parse parses a single expression. Trailing input is a syntax error.
func Parse(src string) (Node, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	n, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.typ != tokenEOF {
		return nil, syntaxError(src, tok.pos, fmt.Sprintf("unexpected %q", tok.val))
	}
	return n, nil
}

// ParseBody parses a ;-separated list of expressions, the form used for
// methods declared in component specs.
func ParseBody(src string) (Node, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	seq := &Sequence{}
	for {
		for p.isPunct(";") {
			p.advance()
		}
		if p.peek().typ == tokenEOF {
			break
		}
		n, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		seq.List = append(seq.List, n)
		if tok := p.peek(); tok.typ != tokenEOF && !p.isPunct(";") {
			return nil, syntaxError(src, tok.pos, fmt.Sprintf("unexpected %q", tok.val))
		}
	}
	if len(seq.List) == 1 {
		return seq.List[0], nil
	}
	return seq, nil
}

func newParser(src string) (*parser, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	return &parser{src: src, toks: toks}, nil
}

func (p *parser) peek() token {
	return p.toks[p.i]
}

func (p *parser) advance() token {
	tok := p.toks[p.i]
	if tok.typ != tokenEOF {
		p.i++
	}
	return tok
}

func (p *parser) isPunct(s string) bool {
	tok := p.peek()
	return tok.typ == tokenPunct && tok.val == s
}

func (p *parser) expect(s string) error {
	if !p.isPunct(s) {
		return p.unexpected("expected " + s)
	}
	p.advance()
	return nil
}

func (p *parser) unexpected(msg string) error {
	tok := p.peek()
	if tok.typ == tokenEOF {
		return syntaxError(p.src, tok.pos, "unexpected end of input, "+msg)
	}
	return syntaxError(p.src, tok.pos, fmt.Sprintf("unexpected %q, %s", tok.val, msg))
}

func (p *parser) parseAssign() (Node, error) {
	left, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	if tok.typ != tokenPunct || (tok.val != "=" && tok.val != "+=" && tok.val != "-=") {
		return left, nil
	}
	switch left.(type) {
	case *Ident, *Member:
	default:
		return nil, syntaxError(p.src, tok.pos, "invalid assignment target")
	}
	p.advance()
	right, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	return &Assign{At: tok.pos, Op: tok.val, Target: left, Value: right}, nil
}

func (p *parser) parseConditional() (Node, error) {
	test, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if !p.isPunct("?") {
		return test, nil
	}
	at := p.advance().pos
	then, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	els, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	return &Conditional{At: at, Test: test, Then: then, Else: els}, nil
}

func (p *parser) parseBinary(minPrec int) (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.typ != tokenPunct {
			return left, nil
		}
		prec, ok := binaryPrec[tok.val]
		if !ok || prec < minPrec {
			return left, nil
		}
		p.advance()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		switch tok.val {
		case "&&", "||", "??":
			left = &Logical{At: tok.pos, Op: tok.val, L: left, R: right}
		default:
			left = &Binary{At: tok.pos, Op: tok.val, L: left, R: right}
		}
	}
}

func (p *parser) parseUnary() (Node, error) {
	tok := p.peek()
	isOp := tok.typ == tokenPunct && (tok.val == "!" || tok.val == "-" || tok.val == "+")
	if isOp || (tok.typ == tokenIdent && tok.val == "typeof") {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{At: tok.pos, Op: tok.val, X: x}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Node, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		switch {
		case p.isPunct("."):
			p.advance()
			name := p.peek()
			if name.typ != tokenIdent {
				return nil, p.unexpected("expected property name")
			}
			p.advance()
			x = &Member{At: tok.pos, Object: x, Property: &Literal{At: name.pos, Value: name.val}}
		case p.isPunct("["):
			p.advance()
			prop, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			x = &Member{At: tok.pos, Object: x, Property: prop}
		case p.isPunct("("):
			p.advance()
			args, err := p.parseList(")")
			if err != nil {
				return nil, err
			}
			x = &Call{At: tok.pos, Callee: x, Args: args}
		default:
			return x, nil
		}
	}
}

// parseList parses comma-separated expressions up to and including the
// closing delimiter. A trailing comma is allowed.
func (p *parser) parseList(closing string) ([]Node, error) {
	var list []Node
	for !p.isPunct(closing) {
		n, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		list = append(list, n)
		if !p.isPunct(",") {
			break
		}
		p.advance()
	}
	if err := p.expect(closing); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.peek()
	switch tok.typ {
	case tokenNumber:
		p.advance()
		return &Literal{At: tok.pos, Value: tok.num}, nil
	case tokenString:
		p.advance()
		return &Literal{At: tok.pos, Value: tok.val}, nil
	case tokenIdent:
		p.advance()
		switch tok.val {
		case "true":
			return &Literal{At: tok.pos, Value: true}, nil
		case "false":
			return &Literal{At: tok.pos, Value: false}, nil
		case "null":
			return &Literal{At: tok.pos, Value: value.Null}, nil
		case "undefined":
			return &Literal{At: tok.pos, Value: nil}, nil
		case "this":
			return &This{At: tok.pos}, nil
		}
		return &Ident{At: tok.pos, Name: tok.val}, nil
	case tokenPunct:
		switch tok.val {
		case "(":
			p.advance()
			n, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return n, nil
		case "[":
			p.advance()
			elems, err := p.parseList("]")
			if err != nil {
				return nil, err
			}
			return &ArrayLit{At: tok.pos, Elems: elems}, nil
		case "{":
			return p.parseObject()
		}
	}
	return nil, p.unexpected("expected expression")
}

func (p *parser) parseObject() (Node, error) {
	obj := &ObjectLit{At: p.advance().pos}
	for !p.isPunct("}") {
		key := p.peek()
		var name string
		switch key.typ {
		case tokenIdent, tokenString:
			name = key.val
		case tokenNumber:
			name = value.String(key.num)
		default:
			return nil, p.unexpected("expected property name")
		}
		p.advance()

		var val Node
		if p.isPunct(":") {
			p.advance()
			v, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			val = v
		} else if key.typ == tokenIdent {
			val = &Ident{At: key.pos, Name: key.val}
		} else {
			return nil, p.unexpected("expected :")
		}
		obj.Keys = append(obj.Keys, name)
		obj.Values = append(obj.Values, val)

		if !p.isPunct(",") {
			break
		}
		p.advance()
	}
	if err := p.expect("}"); err != nil {
		return nil, err
	}
	return obj, nil
}
