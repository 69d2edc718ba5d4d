package front

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yotlang/yotc/compiler/ast"
)

func parseExpr(t *testing.T, text string) (ast.Expr, error) {
	t.Helper()

	p := NewParser(NewLexer(NewFile("", []byte(text))))

	return p.ParseExpr(context.Background())
}

func parseProg(t *testing.T, text string) (*ast.Program, *Parser, error) {
	t.Helper()

	p := NewParser(NewLexer(NewFile("test.yot", []byte(text))))
	x, err := p.ParseProgram(context.Background())

	return x, p, err
}

// sexpr prints expression tree in prefix form ignoring positions.
func sexpr(x ast.Expr) string {
	switch x := x.(type) {
	case *ast.Literal:
		return Literal{Value: x.Value}.String()
	case *ast.VarRef:
		return x.Name
	case *ast.Paren:
		return "(" + sexpr(x.X) + ")"
	case *ast.Unary:
		return x.Op + "(" + sexpr(x.X) + ")"
	case *ast.Binary:
		return x.Op + "(" + sexpr(x.L) + ", " + sexpr(x.R) + ")"
	case *ast.Call:
		s := x.Name + "["

		for i, a := range x.Args {
			if i != 0 {
				s += ", "
			}

			s += sexpr(a)
		}

		return s + "]"
	default:
		return "?"
	}
}

func TestParseExprPrecedence(t *testing.T) {
	for _, tc := range []struct {
		text string
		exp  string
	}{
		{"1+2*3", "+(Literal(Integer(1)), *(Literal(Integer(2)), Literal(Integer(3))))"},
		{"1*2+3", "+(*(Literal(Integer(1)), Literal(Integer(2))), Literal(Integer(3)))"},
		{"a-b-c", "-(-(a, b), c)"},
		{"a/b*c", "*(/(a, b), c)"},
		{"a<b==c", "==(<(a, b), c)"},
		{"a=b=1", "=(a, =(b, Literal(Integer(1))))"},
		{"a=b+1", "=(a, +(b, Literal(Integer(1))))"},
		{"a+b<c*d", "<(+(a, b), *(c, d))"},
		{"a+b*c-d", "-(+(a, *(b, c)), d)"},
		{"(1+2)*3", "*((+(Literal(Integer(1)), Literal(Integer(2)))), Literal(Integer(3)))"},
		{"-a*b", "*(-(a), b)"},
		{"--a", "-(-(a))"},
		{"f(1, g(x), y+1)", "f[Literal(Integer(1)), g[x], +(y, Literal(Integer(1)))]"},
		{"f()", "f[]"},
	} {
		x, err := parseExpr(t, tc.text)
		require.NoError(t, err, "%q", tc.text)
		assert.Equal(t, tc.exp, sexpr(x), "%q", tc.text)
	}
}

func TestParseExprErrors(t *testing.T) {
	_, err := parseExpr(t, "1=a")
	assert.ErrorIs(t, err, ErrNotAssignable)

	_, err = parseExpr(t, "(a)=1")
	assert.ErrorIs(t, err, ErrNotAssignable)

	_, err = parseExpr(t, "a+")
	assert.ErrorIs(t, err, ErrNoExpression)

	_, err = parseExpr(t, ";")
	assert.ErrorIs(t, err, ErrNoExpression)

	_, err = parseExpr(t, "f(1 2)")
	var ue *UnexpectedError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, Literal{Value: ast.Int(2)}, ue.Got)

	_, err = parseExpr(t, "(1")
	require.ErrorAs(t, err, &ue)
	assert.Nil(t, ue.Got)
	assert.Contains(t, err.Error(), "unexpected end of input")
}

func TestParseProgram(t *testing.T) {
	x, p, err := parseProg(t, `
@!puts[s];
@add[a, b] -> a + b;

@main[] {
	@x = 1;
	@y;
	y = add(x, 2);
	?[y > 2] -> y; : { ; }
	puts("done");
	-> 0;
}
`)
	require.NoError(t, err)
	assert.Empty(t, p.Warnings)

	require.Len(t, x.Funcs, 3)

	ext, ok := x.Funcs[0].(*ast.External)
	require.True(t, ok)
	assert.Equal(t, "puts", ext.Name)
	assert.Equal(t, []string{"s"}, ext.Params)

	add, ok := x.Funcs[1].(*ast.Regular)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, add.Params)
	assert.IsType(t, &ast.Return{}, add.Body)

	m := x.Main()
	require.NotNil(t, m)
	assert.Nil(t, m.Params)

	body, ok := m.Body.(*ast.Compound)
	require.True(t, ok)
	require.Len(t, body.Stmts, 6)

	d := body.Stmts[0].(*ast.VarDecl)
	assert.Equal(t, "x", d.Name)
	assert.NotNil(t, d.Value)

	d = body.Stmts[1].(*ast.VarDecl)
	assert.Equal(t, "y", d.Name)
	assert.Nil(t, d.Value)

	es := body.Stmts[2].(*ast.ExprStmt)
	assert.Equal(t, "=(y, add[x, Literal(Integer(2))])", sexpr(es.X))

	is := body.Stmts[3].(*ast.If)
	assert.Equal(t, ">(y, Literal(Integer(2)))", sexpr(is.Cond))
	assert.IsType(t, &ast.Return{}, is.Then)
	require.IsType(t, &ast.Compound{}, is.Else)
	assert.IsType(t, &ast.NoOp{}, is.Else.(*ast.Compound).Stmts[0])

	assert.IsType(t, &ast.ExprStmt{}, body.Stmts[4])
	assert.IsType(t, &ast.Return{}, body.Stmts[5])
}

func TestParseIfWithoutElse(t *testing.T) {
	x, _, err := parseProg(t, "@main[a] { ?[a] -> 1; -> 2; }")
	require.NoError(t, err)

	body := x.Main().Body.(*ast.Compound)
	require.Len(t, body.Stmts, 2)

	is := body.Stmts[0].(*ast.If)
	assert.Nil(t, is.Else)
}

func TestParseMissingMain(t *testing.T) {
	x, p, err := parseProg(t, "@f[] -> 1;")
	require.NoError(t, err)
	require.Len(t, x.Funcs, 1)

	assert.Nil(t, x.Main())
	assert.Equal(t, []string{"no main function found"}, p.Warnings)

	x, p, err = parseProg(t, "")
	require.NoError(t, err)
	assert.Empty(t, x.Funcs)
	assert.Len(t, p.Warnings, 1)
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		text string
		pos  int
		msg  string
	}{
		{"main[] -> 0;", 0, "unexpected identifier `main`"},
		{"@main[] -> 0", 12, "unexpected end of input, expected `;` after return statement"},
		{"@main[a b] -> 0;", 8, "unexpected identifier `b`, expected `,` or `]`"},
		{"@!f[];;", 6, "unexpected `;`"},
		{"@!f[] -> 1;", 6, "expected `;` after external function"},
		{"@main[] { @1; }", 11, "expected variable name"},
		{"@main[] { ?(a) -> 1; }", 11, "expected `[` after `?` in if statement"},
		{"@main[] { @x = 1 }", 17, "expected `;` after variable declaration statement"},
		{"@main[] { -> 1;", 15, "end of input"},
	} {
		_, _, err := parseProg(t, tc.text)
		require.Error(t, err, "%q", tc.text)

		var fe *Error
		require.ErrorAs(t, err, &fe, "%q", tc.text)
		assert.Equal(t, tc.pos, fe.Pos, "%q", tc.text)
		assert.Contains(t, err.Error(), tc.msg, "%q", tc.text)
	}
}

func TestParseLexErrorPropagates(t *testing.T) {
	_, _, err := parseProg(t, "@main[] -> 1 $ 2;")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestParseReplay(t *testing.T) {
	ctx := context.Background()
	f := NewFile("", []byte("@main[] -> 1 + 2;"))

	ls, err := NewLexer(f).All(ctx)
	require.NoError(t, err)

	x, err := NewParser(NewReplay(f, ls)).ParseProgram(ctx)
	require.NoError(t, err)

	r := x.Main().Body.(*ast.Return)
	assert.Equal(t, "+(Literal(Integer(1)), Literal(Integer(2)))", sexpr(r.Value))
}
