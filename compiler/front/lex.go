package front

import (
	"context"
	"strconv"
	"unicode"
	"unicode/utf8"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/yotlang/yotc/compiler/ast"
)

type (
	Source interface {
		Next(ctx context.Context) (Lexeme, error)
		File() *File
	}

	Lexer struct {
		f *File
		b []byte
		i int

		err error
	}

	// Replay feeds already lexed tokens to the parser.
	Replay struct {
		f *File
		l []Lexeme
		i int
	}

	// Spaces is a set of ASCII whitespace characters.
	Spaces uint64
)

var (
	ErrInvalidInteger     = errors.New("invalid integer literal")
	ErrUnknownSymbol      = errors.New("unknown token")
	ErrUnterminatedString = errors.New("unterminated string literal")
)

var SpaceAll = NewSpaces(' ', '\t', '\r', '\n', '\v', '\f')

func NewLexer(f *File) *Lexer {
	return &Lexer{
		f: f,
		b: f.Text,
	}
}

func (l *Lexer) File() *File { return l.f }

// Next returns the next token. Lexeme.Tok is nil at the end of input.
func (l *Lexer) Next(ctx context.Context) (x Lexeme, err error) {
	if l.err != nil {
		return Lexeme{Pos: l.i}, l.err
	}

	if tr := tlog.SpanFromContext(ctx); tr.If("lex") {
		defer func(st int) {
			tr.Printw("next token", "st", st, "tk", x, "i", l.i, "err", err, "from", loc.Callers(1, 3))
		}(l.i)
	}

	x, err = l.next()
	if err != nil {
		l.err = &Error{Pos: x.Pos, Err: err}

		return x, l.err
	}

	return x, nil
}

// All drains the lexer.
func (l *Lexer) All(ctx context.Context) (r []Lexeme, err error) {
	for {
		x, err := l.Next(ctx)
		if err != nil {
			return r, err
		}

		if x.Tok == nil {
			return r, nil
		}

		r = append(r, x)
	}
}

func (l *Lexer) next() (x Lexeme, err error) {
again:
	l.i = l.skipSpaces(l.i)
	st := l.i

	x.Pos = st

	if st == len(l.b) {
		return x, nil
	}

	c := l.b[st]

	switch {
	case isIdentStart(c):
		l.i = skipIdent(l.b, st+1)
		x.Tok = Ident(l.b[st:l.i])

		return x, nil
	case isDigit(c):
		l.i = skipNum(l.b, st+1)

		v, err := strconv.ParseInt(string(l.b[st:l.i]), 10, 32)
		if err != nil {
			return x, errors.Wrap(ErrInvalidInteger, "%s", l.b[st:l.i])
		}

		x.Tok = Literal{Value: ast.Int(v)}

		return x, nil
	case c == '"':
		i := st + 1
		for i < len(l.b) && l.b[i] != '"' {
			i++
		}

		if i == len(l.b) {
			return x, ErrUnterminatedString
		}

		x.Tok = Literal{Value: ast.Str(l.b[st+1 : i])}
		l.i = i + 1

		return x, nil
	}

	_, size := utf8.DecodeRune(l.b[st:])
	e := st + size

	for e < len(l.b) {
		_, size = utf8.DecodeRune(l.b[e:])

		if _, ok := Symbols[string(l.b[st:e+size])]; !ok {
			break
		}

		e += size
	}

	l.i = e
	sym := string(l.b[st:e])

	if sym == "//" {
		l.i = skipLine(l.b, e)

		goto again
	}

	if _, ok := Symbols[sym]; !ok {
		return x, errors.Wrap(ErrUnknownSymbol, "%q", sym)
	}

	x.Tok = Symbol(sym)

	return x, nil
}

func (l *Lexer) skipSpaces(i int) int {
	for i < len(l.b) {
		i = SpaceAll.Skip(l.b, i)

		if i == len(l.b) || l.b[i] < utf8.RuneSelf {
			break
		}

		r, size := utf8.DecodeRune(l.b[i:])
		if !unicode.IsSpace(r) {
			break
		}

		i += size
	}

	return i
}

func NewReplay(f *File, l []Lexeme) *Replay {
	return &Replay{
		f: f,
		l: l,
	}
}

func (r *Replay) File() *File { return r.f }

func (r *Replay) Next(ctx context.Context) (x Lexeme, err error) {
	if r.i == len(r.l) {
		if r.f != nil {
			x.Pos = len(r.f.Text)
		}

		return x, nil
	}

	x = r.l[r.i]
	r.i++

	return x, nil
}

func NewSpaces(skip ...byte) (ss Spaces) {
	for _, q := range skip {
		if q >= 64 {
			panic("too high char code")
		}

		ss |= 1 << q
	}

	return
}

func (s Spaces) Skip(b []byte, st int) (i int) {
	i = st

	for i < len(b) && b[i] < 64 && s&(1<<b[i]) != 0 {
		i++
	}

	return
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func skipNum(b []byte, i int) int {
	for i < len(b) && isDigit(b[i]) {
		i++
	}

	return i
}

func skipIdent(b []byte, i int) int {
	for i < len(b) && (isIdentStart(b[i]) || isDigit(b[i])) {
		i++
	}

	return i
}

func skipLine(b []byte, i int) int {
	for i < len(b) && b[i] != '\n' {
		i++
	}

	return i
}
