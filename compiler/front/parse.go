package front

import (
	"context"
	"fmt"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/yotlang/yotc/compiler/ast"
)

type (
	Parser struct {
		src Source

		tk    Lexeme
		ahead bool

		Warnings []string
	}

	UnexpectedError struct {
		Got  Token
		Want []string
	}
)

var (
	ErrNotAssignable = errors.New("left side of assignment is not a variable")
	ErrNoExpression  = errors.New("expression expected")
)

func NewParser(src Source) *Parser {
	return &Parser{src: src}
}

// Parse lexes and parses the whole file.
func Parse(ctx context.Context, f *File) (*ast.Program, error) {
	return NewParser(NewLexer(f)).ParseProgram(ctx)
}

func (p *Parser) ParseProgram(ctx context.Context) (x *ast.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "front: parse program")
	defer tr.Finish("err", &err)

	x = &ast.Program{}

	for {
		tk, err := p.peek(ctx)
		if err != nil {
			return nil, err
		}

		if tk.Tok == nil {
			break
		}

		f, err := p.parseFunc(ctx)
		if err != nil {
			return nil, err
		}

		x.Funcs = append(x.Funcs, f)
	}

	if x.Main() == nil {
		p.Warnings = append(p.Warnings, "no main function found")

		tr.Printw("no main function found", "", tlog.Warn)
	}

	tr.Printw("parsed", "funcs", len(x.Funcs))

	return x, nil
}

func (p *Parser) parseFunc(ctx context.Context) (f ast.Func, err error) {
	tk, err := p.next(ctx)
	if err != nil {
		return nil, err
	}

	kind, ok := tk.Tok.(Symbol)
	if !ok || kind != "@" && kind != "@!" {
		return nil, p.unexpected(tk, "`@` or `@!` (only top level functions allowed)")
	}

	name, err := p.expectIdent(ctx, "function name")
	if err != nil {
		return nil, err
	}

	params, err := p.parseParams(ctx, name)
	if err != nil {
		return nil, errors.Wrap(err, "function %v", name)
	}

	if kind == "@!" {
		err = p.expect(ctx, ";", "after external function")
		if err != nil {
			return nil, errors.Wrap(err, "function %v", name)
		}

		return &ast.External{
			Base:   ast.Base{Pos: tk.Pos},
			Name:   name,
			Params: params,
		}, nil
	}

	body, err := p.parseStmt(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "function %v", name)
	}

	return &ast.Regular{
		Base:   ast.Base{Pos: tk.Pos},
		Name:   name,
		Params: params,
		Body:   body,
	}, nil
}

func (p *Parser) parseParams(ctx context.Context, fn string) (params []string, err error) {
	err = p.expect(ctx, "[", "after function name")
	if err != nil {
		return nil, err
	}

	err = p.list(ctx, "]", func() error {
		name, err := p.expectIdent(ctx, "parameter name")
		if err != nil {
			return err
		}

		params = append(params, name)

		return nil
	})

	return params, err
}

// list parses `elem (, elem)* closer` or a lone closer.
func (p *Parser) list(ctx context.Context, closer Symbol, elem func() error) error {
	ok, err := p.accept(ctx, closer)
	if err != nil || ok {
		return err
	}

	for {
		err = elem()
		if err != nil {
			return err
		}

		tk, err := p.next(ctx)
		if err != nil {
			return err
		}

		switch tk.Tok {
		case closer:
			return nil
		case Symbol(","):
		default:
			return p.unexpected(tk, "`,` or `"+string(closer)+"`")
		}
	}
}

func (p *Parser) parseStmt(ctx context.Context) (x ast.Stmt, err error) {
	tk, err := p.peek(ctx)
	if err != nil {
		return nil, err
	}

	if tr := tlog.SpanFromContext(ctx); tr.If("parse") {
		defer func() {
			tr.Printw("statement", "tk", tk, "typ", tlog.NextAsType, x, "err", err)
		}()
	}

	base := ast.Base{Pos: tk.Pos}

	switch tk.Tok {
	case Symbol("{"):
		p.skip()

		c := &ast.Compound{Base: base}

		for {
			ok, err := p.accept(ctx, "}")
			if err != nil {
				return nil, errors.Wrap(err, "compound statement")
			}

			if ok {
				return c, nil
			}

			s, err := p.parseStmt(ctx)
			if err != nil {
				return nil, err
			}

			c.Stmts = append(c.Stmts, s)
		}
	case Symbol("?"):
		p.skip()

		return p.parseIf(ctx, base)
	case Symbol("->"):
		p.skip()

		v, err := p.ParseExpr(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "return statement")
		}

		err = p.expect(ctx, ";", "after return statement")
		if err != nil {
			return nil, err
		}

		return &ast.Return{Base: base, Value: v}, nil
	case Symbol("@"):
		p.skip()

		return p.parseVarDecl(ctx, base)
	case Symbol(";"):
		p.skip()

		return &ast.NoOp{Base: base}, nil
	}

	v, err := p.ParseExpr(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "expression statement")
	}

	err = p.expect(ctx, ";", "after expression statement")
	if err != nil {
		return nil, err
	}

	return &ast.ExprStmt{Base: base, X: v}, nil
}

func (p *Parser) parseIf(ctx context.Context, base ast.Base) (x ast.Stmt, err error) {
	err = p.expect(ctx, "[", "after `?` in if statement")
	if err != nil {
		return nil, err
	}

	cond, err := p.ParseExpr(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "if condition")
	}

	err = p.expect(ctx, "]", "after condition in if statement")
	if err != nil {
		return nil, err
	}

	s := &ast.If{Base: base, Cond: cond}

	s.Then, err = p.parseStmt(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "if then")
	}

	ok, err := p.accept(ctx, ":")
	if err != nil {
		return nil, err
	}

	if !ok {
		return s, nil
	}

	s.Else, err = p.parseStmt(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "if else")
	}

	return s, nil
}

func (p *Parser) parseVarDecl(ctx context.Context, base ast.Base) (x ast.Stmt, err error) {
	name, err := p.expectIdent(ctx, "variable name")
	if err != nil {
		return nil, errors.Wrap(err, "variable declaration")
	}

	d := &ast.VarDecl{Base: base, Name: name}

	ok, err := p.accept(ctx, "=")
	if err != nil {
		return nil, err
	}

	if ok {
		d.Value, err = p.ParseExpr(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "variable %v", name)
		}
	}

	err = p.expect(ctx, ";", "after variable declaration statement")
	if err != nil {
		return nil, err
	}

	return d, nil
}

func (p *Parser) ParseExpr(ctx context.Context) (x ast.Expr, err error) {
	l, err := p.parseExprNoBinary(ctx)
	if err != nil {
		return nil, err
	}

	return p.parseBinaryR(ctx, 0, l)
}

func (p *Parser) parseExprNoBinary(ctx context.Context) (x ast.Expr, err error) {
	tk, err := p.next(ctx)
	if err != nil {
		return nil, err
	}

	base := ast.Base{Pos: tk.Pos}

	switch t := tk.Tok.(type) {
	case Literal:
		return &ast.Literal{Base: base, Value: t.Value}, nil
	case Ident:
		ok, err := p.accept(ctx, "(")
		if err != nil {
			return nil, err
		}

		if !ok {
			return &ast.VarRef{Base: base, Name: string(t)}, nil
		}

		c := &ast.Call{Base: base, Name: string(t)}

		err = p.list(ctx, ")", func() error {
			a, err := p.ParseExpr(ctx)
			if err != nil {
				return err
			}

			c.Args = append(c.Args, a)

			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "call %v", t)
		}

		return c, nil
	case Symbol:
		switch {
		case t == "(":
			in, err := p.ParseExpr(ctx)
			if err != nil {
				return nil, errors.Wrap(err, "paren expression")
			}

			err = p.expect(ctx, ")", "after expression")
			if err != nil {
				return nil, err
			}

			return &ast.Paren{Base: base, X: in}, nil
		case IsUnary(string(t)):
			in, err := p.parseExprNoBinary(ctx)
			if err != nil {
				return nil, errors.Wrap(err, "unary %v", t)
			}

			return &ast.Unary{Base: base, Op: string(t), X: in}, nil
		}
	}

	return nil, &Error{Pos: tk.Pos, Err: errors.Wrap(ErrNoExpression, "got %v", describe(tk.Tok))}
}

// parseBinaryR is the precedence climbing loop.
// Operators of equal precedence group to the left except assignment.
func (p *Parser) parseBinaryR(ctx context.Context, minPrec int, l ast.Expr) (_ ast.Expr, err error) {
	for {
		tk, err := p.peek(ctx)
		if err != nil {
			return nil, err
		}

		op, _ := tk.Tok.(Symbol)
		prec := Precedence(string(op))

		if prec < minPrec || prec < 0 {
			return l, nil
		}

		p.skip()

		r, err := p.parseExprNoBinary(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "right operand of %v", op)
		}

		nk, err := p.peek(ctx)
		if err != nil {
			return nil, err
		}

		nop, _ := nk.Tok.(Symbol)
		next := Precedence(string(nop))

		switch {
		case next > prec:
			r, err = p.parseBinaryR(ctx, prec+1, r)
		case next == prec && RightAssoc(string(op)):
			r, err = p.parseBinaryR(ctx, prec, r)
		}
		if err != nil {
			return nil, err
		}

		if op == "=" {
			if _, ok := l.(*ast.VarRef); !ok {
				return nil, &Error{Pos: tk.Pos, Err: errors.Wrap(ErrNotAssignable, "got %T", l)}
			}
		}

		l = &ast.Binary{
			Base: ast.Base{Pos: tk.Pos},
			Op:   string(op),
			L:    l,
			R:    r,
		}
	}
}

func (p *Parser) expectIdent(ctx context.Context, what string) (string, error) {
	tk, err := p.next(ctx)
	if err != nil {
		return "", err
	}

	id, ok := tk.Tok.(Ident)
	if !ok {
		return "", p.unexpected(tk, what)
	}

	return string(id), nil
}

func (p *Parser) expect(ctx context.Context, s Symbol, where string) error {
	tk, err := p.next(ctx)
	if err != nil {
		return err
	}

	if tk.Tok != s {
		return p.unexpected(tk, "`"+string(s)+"` "+where)
	}

	return nil
}

// accept consumes the lookahead if it is s.
func (p *Parser) accept(ctx context.Context, s Symbol) (bool, error) {
	tk, err := p.peek(ctx)
	if err != nil {
		return false, err
	}

	if tk.Tok != s {
		return false, nil
	}

	p.skip()

	return true, nil
}

func (p *Parser) peek(ctx context.Context) (Lexeme, error) {
	if p.ahead {
		return p.tk, nil
	}

	tk, err := p.src.Next(ctx)
	if err != nil {
		return tk, err
	}

	p.tk = tk
	p.ahead = true

	return tk, nil
}

func (p *Parser) next(ctx context.Context) (Lexeme, error) {
	tk, err := p.peek(ctx)
	if err != nil {
		return tk, err
	}

	p.ahead = false

	return tk, nil
}

func (p *Parser) skip() { p.ahead = false }

func (p *Parser) unexpected(tk Lexeme, want ...string) error {
	return &Error{
		Pos: tk.Pos,
		Err: &UnexpectedError{Got: tk.Tok, Want: want},
	}
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected %v, expected %v", describe(e.Got), strings.Join(e.Want, " or "))
}
