package front

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yotlang/yotc/compiler/ast"
)

func lexAll(t *testing.T, text string) ([]Lexeme, error) {
	t.Helper()

	return NewLexer(NewFile("test.yot", []byte(text))).All(context.Background())
}

func toks(ls []Lexeme) (r []Token) {
	for _, l := range ls {
		r = append(r, l.Tok)
	}

	return r
}

func TestLexTokens(t *testing.T) {
	ls, err := lexAll(t, "@main[a, _] {\n\t-> foo(a) <= 12;\n}")
	require.NoError(t, err)

	assert.Equal(t, []Token{
		Symbol("@"), Ident("main"), Symbol("["), Ident("a"), Symbol(","), Ident("_"), Symbol("]"),
		Symbol("{"),
		Symbol("->"), Ident("foo"), Symbol("("), Ident("a"), Symbol(")"), Symbol("<="), Literal{Value: ast.Int(12)}, Symbol(";"),
		Symbol("}"),
	}, toks(ls))

	assert.Equal(t, 0, ls[0].Pos)
	assert.Equal(t, 1, ls[1].Pos)
}

func TestLexEmpty(t *testing.T) {
	for _, text := range []string{"", "  \n\t ", "// only comment", "// a\n// b\n"} {
		ls, err := lexAll(t, text)
		require.NoError(t, err, "%q", text)
		assert.Empty(t, ls, "%q", text)
	}
}

func TestLexComment(t *testing.T) {
	ls, err := lexAll(t, "// c\n@m[]{}")
	require.NoError(t, err)

	assert.Equal(t, []Token{Symbol("@"), Ident("m"), Symbol("["), Symbol("]"), Symbol("{"), Symbol("}")}, toks(ls))
	assert.Equal(t, 5, ls[0].Pos)

	ls, err = lexAll(t, "1 // tail -> ;\n2")
	require.NoError(t, err)

	assert.Equal(t, []Token{Literal{Value: ast.Int(1)}, Literal{Value: ast.Int(2)}}, toks(ls))
}

func TestLexMaximalMunch(t *testing.T) {
	for _, tc := range []struct {
		text string
		exp  []Token
	}{
		{"<=", []Token{Symbol("<=")}},
		{"< =", []Token{Symbol("<"), Symbol("=")}},
		{"==", []Token{Symbol("==")}},
		{"===", []Token{Symbol("=="), Symbol("=")}},
		{"->", []Token{Symbol("->")}},
		{"--1", []Token{Symbol("-"), Symbol("-"), Literal{Value: ast.Int(1)}}},
		{"@!f", []Token{Symbol("@!"), Ident("f")}},
		{"a/b", []Token{Ident("a"), Symbol("/"), Ident("b")}},
	} {
		ls, err := lexAll(t, tc.text)
		require.NoError(t, err, "%q", tc.text)
		assert.Equal(t, tc.exp, toks(ls), "%q", tc.text)
	}
}

func TestLexIntegers(t *testing.T) {
	ls, err := lexAll(t, "0 2147483647 007")
	require.NoError(t, err)

	assert.Equal(t, []Token{
		Literal{Value: ast.Int(0)},
		Literal{Value: ast.Int(2147483647)},
		Literal{Value: ast.Int(7)},
	}, toks(ls))

	_, err = lexAll(t, "1 + 2147483648")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInteger)

	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 4, fe.Pos)
}

func TestLexUnknownSymbol(t *testing.T) {
	for _, text := range []string{"a $ b", "!", "a & b", "x ~"} {
		_, err := lexAll(t, text)
		assert.ErrorIs(t, err, ErrUnknownSymbol, "%q", text)
	}
}

func TestLexStrings(t *testing.T) {
	ls, err := lexAll(t, `puts("hello, world")`)
	require.NoError(t, err)

	assert.Equal(t, []Token{Ident("puts"), Symbol("("), Literal{Value: ast.Str("hello, world")}, Symbol(")")}, toks(ls))

	_, err = lexAll(t, `puts("hello`)
	assert.ErrorIs(t, err, ErrUnterminatedString)
}

func TestLexErrorSticky(t *testing.T) {
	ctx := context.Background()
	l := NewLexer(NewFile("", []byte("a $ b")))

	x, err := l.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, Ident("a"), x.Tok)

	_, err1 := l.Next(ctx)
	require.Error(t, err1)

	_, err2 := l.Next(ctx)
	assert.Equal(t, err1, err2)
}

func TestLexUnicodeSpaces(t *testing.T) {
	ls, err := lexAll(t, "a\u00a0\u2003b")
	require.NoError(t, err)

	assert.Equal(t, []Token{Ident("a"), Ident("b")}, toks(ls))
}

func TestTokenString(t *testing.T) {
	assert.Equal(t, "Identifier(abc)", Ident("abc").String())
	assert.Equal(t, "Symbol(<=)", Symbol("<=").String())
	assert.Equal(t, "Literal(Integer(-5))", Literal{Value: ast.Int(-5)}.String())
	assert.Equal(t, `Literal(Str("hi"))`, Literal{Value: ast.Str("hi")}.String())
	assert.Equal(t, "EOF", Lexeme{}.String())
}

func TestPrecedence(t *testing.T) {
	assert.Equal(t, 0, Precedence("="))
	assert.Equal(t, 10, Precedence("<="))
	assert.Equal(t, 20, Precedence("-"))
	assert.Equal(t, 30, Precedence("/"))
	assert.Equal(t, -1, Precedence(";"))
	assert.Equal(t, -1, Precedence("->"))

	assert.True(t, IsUnary("-"))
	assert.False(t, IsUnary("+"))
}

func TestFilePosition(t *testing.T) {
	f := NewFile("x.yot", []byte("ab\nпри\n\nz"))

	assert.Equal(t, Position{Line: 1, Col: 1}, f.Position(0))
	assert.Equal(t, Position{Line: 1, Col: 3}, f.Position(2))
	assert.Equal(t, Position{Line: 2, Col: 1}, f.Position(3))
	assert.Equal(t, Position{Line: 2, Col: 3}, f.Position(7))
	assert.Equal(t, Position{Line: 4, Col: 1}, f.Position(11))
	assert.Equal(t, "x.yot:2:1", f.Where(3))
}
