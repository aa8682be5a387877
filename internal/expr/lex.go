package expr

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenType int

const (
	tokenEOF    tokenType = iota
	tokenNumber           // 12.5
	tokenString           // "foo" or 'foo'
	tokenIdent            // foo
	tokenPunct            // operators and delimiters
)

const eof rune = -1

// punctuators, longest first so the scanner is greedy
var punctuators = []string{
	"===", "!==",
	"==", "!=", "<=", ">=", "&&", "||", "??", "+=", "-=",
	"+", "-", "*", "/", "%", "<", ">", "!", "(", ")", "[", "]",
	"{", "}", ",", ".", ":", "?", "=", ";",
}

type token struct {
	typ tokenType
	val string
	num float64
	pos int
}

type lexer struct {
	src    string
	pos    int
	start  int
	width  int
	tokens []token
}

func lex(src string) ([]token, error) {
	l := &lexer{src: src}
	for {
		l.skipSpace()
		l.start = l.pos
		r := l.peek()
		var err error
		switch {
		case r == eof:
			l.tokens = append(l.tokens, token{typ: tokenEOF, pos: l.pos})
			return l.tokens, nil
		case r == '"' || r == '\'':
			l.next()
			err = l.lexString(r)
		case isDigit(r) || (r == '.' && l.pos+1 < len(l.src) && isDigit(rune(l.src[l.pos+1]))):
			err = l.lexNumber()
		case isIdentStart(r):
			l.acceptIdent()
			l.emit(tokenIdent, l.src[l.start:l.pos])
		default:
			err = l.lexPunct()
		}
		if err != nil {
			return nil, err
		}
	}
}

func (l *lexer) next() rune {
	if l.pos >= len(l.src) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.src[l.pos:])
	l.width = w
	l.pos += w
	return r
}

func (l *lexer) backup() {
	l.pos -= l.width
	l.width = 0
}

func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

func (l *lexer) emit(typ tokenType, val string) {
	l.tokens = append(l.tokens, token{typ: typ, val: val, pos: l.start})
}

func (l *lexer) skipSpace() {
	for {
		r := l.next()
		if r == eof {
			return
		}
		if !unicode.IsSpace(r) {
			l.backup()
			return
		}
	}
}

func (l *lexer) acceptIdent() {
	for {
		r := l.next()
		if r == eof {
			return
		}
		if !isIdentPart(r) {
			l.backup()
			return
		}
	}
}

func (l *lexer) acceptDigits() {
	for isDigit(l.peek()) {
		l.next()
	}
}

func (l *lexer) lexNumber() error {
	l.acceptDigits()
	if l.peek() == '.' {
		l.next()
		l.acceptDigits()
	}
	if r := l.peek(); r == 'e' || r == 'E' {
		l.next()
		if r := l.peek(); r == '+' || r == '-' {
			l.next()
		}
		if !isDigit(l.peek()) {
			return syntaxError(l.src, l.pos, "malformed exponent")
		}
		l.acceptDigits()
	}
	text := l.src[l.start:l.pos]
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return syntaxError(l.src, l.start, "invalid number "+strconv.Quote(text))
	}
	l.tokens = append(l.tokens, token{typ: tokenNumber, val: text, num: f, pos: l.start})
	return nil
}

func (l *lexer) lexString(quote rune) error {
	var sb strings.Builder
	for {
		r := l.next()
		switch r {
		case eof, '\n':
			return syntaxError(l.src, l.start, "unterminated string literal")
		case quote:
			l.emit(tokenString, sb.String())
			return nil
		case '\\':
			esc := l.next()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '0':
				sb.WriteByte(0)
			case 'u':
				if l.pos+4 > len(l.src) {
					return syntaxError(l.src, l.pos, "invalid unicode escape")
				}
				code, err := strconv.ParseUint(l.src[l.pos:l.pos+4], 16, 32)
				if err != nil {
					return syntaxError(l.src, l.pos, "invalid unicode escape")
				}
				l.pos += 4
				sb.WriteRune(rune(code))
			case eof:
				return syntaxError(l.src, l.start, "unterminated string literal")
			default:
				sb.WriteRune(esc)
			}
		default:
			sb.WriteRune(r)
		}
	}
}

func (l *lexer) lexPunct() error {
	rest := l.src[l.pos:]
	for _, p := range punctuators {
		if strings.HasPrefix(rest, p) {
			l.pos += len(p)
			l.emit(tokenPunct, p)
			return nil
		}
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return syntaxError(l.src, l.pos, "unexpected character "+strconv.QuoteRune(r))
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}
