package format

import (
	"context"
	"strconv"
	"strings"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/yotlang/yotc/compiler/ast"
)

// Format appends canonical source text of x to b.
// x is *ast.Program, ast.Func, ast.Stmt or ast.Expr.
func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	return format(ctx, b, x, 0)
}

// Expr is a shortcut for error messages.
func Expr(x ast.Expr) string {
	b, err := formatExpr(context.Background(), nil, x)
	if err != nil {
		return "<" + err.Error() + ">"
	}

	return string(b)
}

func format(ctx context.Context, b []byte, x any, d int) ([]byte, error) {
	switch x := x.(type) {
	case *ast.Program:
		return formatProgram(ctx, b, x, d)
	case ast.Func:
		return formatFunc(ctx, b, x, d)
	case ast.Stmt:
		return formatStmt(ctx, b, x, d)
	case ast.Expr:
		return formatExpr(ctx, b, x)
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

func formatProgram(ctx context.Context, b []byte, x *ast.Program, d int) (_ []byte, err error) {
	for i, f := range x.Funcs {
		if i != 0 {
			b = append(b, '\n')
		}

		b, err = formatFunc(ctx, b, f, d)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.FuncName())
		}
	}

	return b, nil
}

func formatFunc(ctx context.Context, b []byte, x ast.Func, d int) (_ []byte, err error) {
	switch x := x.(type) {
	case *ast.External:
		b = app(b, d, "@!%s[%s];\n", x.Name, strings.Join(x.Params, ", "))
	case *ast.Regular:
		b = app(b, d, "@%s[%s] ", x.Name, strings.Join(x.Params, ", "))

		b, err = formatBody(ctx, b, x.Body, d)
		if err != nil {
			return nil, errors.Wrap(err, "body")
		}
	default:
		return nil, errors.New("unsupported func: %T", x)
	}

	return b, nil
}

// formatBody continues the current line with s.
func formatBody(ctx context.Context, b []byte, s ast.Stmt, d int) (_ []byte, err error) {
	c, ok := s.(*ast.Compound)
	if !ok {
		if len(b) != 0 && b[len(b)-1] == ' ' {
			b = b[:len(b)-1]
		}

		b = append(b, '\n')

		return formatStmt(ctx, b, s, d+1)
	}

	b = append(b, "{\n"...)

	for _, s := range c.Stmts {
		b, err = formatStmt(ctx, b, s, d+1)
		if err != nil {
			return nil, err
		}
	}

	b = app(b, d, "}\n")

	return b, nil
}

func formatStmt(ctx context.Context, b []byte, x ast.Stmt, d int) (_ []byte, err error) {
	switch x := x.(type) {
	case *ast.Compound:
		b = app(b, d, "")

		return formatBody(ctx, b, x, d)
	case *ast.If:
		b = app(b, d, "?[")

		b, err = formatExpr(ctx, b, x.Cond)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}

		b = append(b, "] "...)

		b, err = formatBody(ctx, b, x.Then, d)
		if err != nil {
			return nil, errors.Wrap(err, "then")
		}

		if x.Else == nil {
			return b, nil
		}

		b = app(b, d, ": ")

		b, err = formatBody(ctx, b, x.Else, d)
		if err != nil {
			return nil, errors.Wrap(err, "else")
		}
	case *ast.Return:
		b = app(b, d, "-> ")

		b, err = formatExpr(ctx, b, x.Value)
		if err != nil {
			return nil, errors.Wrap(err, "return")
		}

		b = append(b, ";\n"...)
	case *ast.VarDecl:
		b = app(b, d, "@%s", x.Name)

		if x.Value != nil {
			b = append(b, " = "...)

			b, err = formatExpr(ctx, b, x.Value)
			if err != nil {
				return nil, errors.Wrap(err, "var %v", x.Name)
			}
		}

		b = append(b, ";\n"...)
	case *ast.ExprStmt:
		b = app(b, d, "")

		b, err = formatExpr(ctx, b, x.X)
		if err != nil {
			return nil, errors.Wrap(err, "expr")
		}

		b = append(b, ";\n"...)
	case *ast.NoOp:
		b = app(b, d, ";\n")
	default:
		return nil, errors.New("unsupported stmt: %T", x)
	}

	return b, nil
}

func formatExpr(ctx context.Context, b []byte, x ast.Expr) (_ []byte, err error) {
	switch x := x.(type) {
	case *ast.Literal:
		switch v := x.Value.(type) {
		case ast.Int:
			b = strconv.AppendInt(b, int64(v), 10)
		case ast.Str:
			b = append(b, '"')
			b = append(b, v...)
			b = append(b, '"')
		default:
			return nil, errors.New("unsupported literal: %T", v)
		}
	case *ast.Paren:
		b = append(b, '(')

		b, err = formatExpr(ctx, b, x.X)
		if err != nil {
			return nil, err
		}

		b = append(b, ')')
	case *ast.VarRef:
		b = append(b, x.Name...)
	case *ast.Call:
		b = append(b, x.Name...)
		b = append(b, '(')

		for i, a := range x.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b, err = formatExpr(ctx, b, a)
			if err != nil {
				return nil, errors.Wrap(err, "arg %d", i)
			}
		}

		b = append(b, ')')
	case *ast.Binary:
		b, err = formatExpr(ctx, b, x.L)
		if err != nil {
			return nil, errors.Wrap(err, "left")
		}

		b = hfmt.Appendf(b, " %s ", x.Op)

		b, err = formatExpr(ctx, b, x.R)
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}
	case *ast.Unary:
		b = append(b, x.Op...)

		b, err = formatExpr(ctx, b, x.X)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported expr: %T", x)
	}

	return b, nil
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	for d > len(tabs) {
		b = append(b, tabs...)
		d -= len(tabs)
	}

	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
