package front

import (
	"fmt"
	"strconv"

	"tlog.app/go/tlog/tlwire"

	"github.com/yotlang/yotc/compiler/ast"
)

type (
	Token interface {
		token()
	}

	Ident  string
	Symbol string

	Literal struct {
		Value ast.Lit
	}

	Lexeme struct {
		Tok Token
		Pos int
	}
)

// Symbols is the fixed symbol table. Any prefix of a valid symbol
// that is not itself listed is an unknown token.
var Symbols = map[string]struct{}{
	"=": {}, "+": {}, "-": {}, "*": {}, "/": {},
	"==": {}, "!=": {}, "<": {}, ">": {}, "<=": {}, ">=": {},
	"?": {}, ":": {}, "@": {}, "@!": {}, "->": {},
	";": {}, ",": {}, "{": {}, "}": {}, "[": {}, "]": {}, "(": {}, ")": {},
	"//": {},
}

// Precedence returns binary operator precedence, -1 if op is not a binary operator.
func Precedence(op string) int {
	switch op {
	case "=":
		return 0
	case "==", "!=", "<", ">", "<=", ">=":
		return 10
	case "+", "-":
		return 20
	case "*", "/":
		return 30
	default:
		return -1
	}
}

func RightAssoc(op string) bool { return op == "=" }

func IsUnary(op string) bool { return op == "-" }

func (Ident) token()   {}
func (Symbol) token()  {}
func (Literal) token() {}

func (t Ident) String() string  { return fmt.Sprintf("Identifier(%s)", string(t)) }
func (t Symbol) String() string { return fmt.Sprintf("Symbol(%s)", string(t)) }

func (t Literal) String() string {
	switch v := t.Value.(type) {
	case ast.Int:
		return fmt.Sprintf("Literal(Integer(%d))", v)
	case ast.Str:
		return fmt.Sprintf("Literal(Str(%s))", strconv.Quote(string(v)))
	default:
		return fmt.Sprintf("Literal(%v)", v)
	}
}

func (l Lexeme) String() string {
	if l.Tok == nil {
		return "EOF"
	}

	return fmt.Sprint(l.Tok)
}

func (l Lexeme) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)
	b = e.AppendString(b, "tok")
	b = e.AppendString(b, l.String())
	b = e.AppendKeyInt64(b, "pos", int64(l.Pos))

	return b
}

// describe names a token for error messages.
func describe(t Token) string {
	switch t := t.(type) {
	case nil:
		return "end of input"
	case Symbol:
		return "`" + string(t) + "`"
	case Ident:
		return "identifier `" + string(t) + "`"
	case Literal:
		switch v := t.Value.(type) {
		case ast.Int:
			return fmt.Sprintf("integer %d", v)
		case ast.Str:
			return fmt.Sprintf("string %q", string(v))
		}
	}

	return fmt.Sprintf("%v", t)
}
