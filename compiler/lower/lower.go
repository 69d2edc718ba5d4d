package lower

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/yotlang/yotc/compiler/ast"
	"github.com/yotlang/yotc/compiler/format"
	"github.com/yotlang/yotc/compiler/ir"
)

type (
	Options struct {
		// Branching enables three-block lowering of if statements.
		// Without it an if statement is an unsupported construct.
		Branching bool
	}

	Lowerer struct {
		Options

		b *ir.Builder
		s *Scopes

		fn string
	}

	// Error is a lowering failure at a source position inside a function.
	Error struct {
		Func string
		Pos  int
		Err  error
	}
)

var (
	ErrUnresolved     = errors.New("unresolved variable")
	ErrUndeclaredFunc = errors.New("undeclared function")
	ErrNotAssignable  = errors.New("assignment target is not a variable")
	ErrUnsupported    = errors.New("unsupported construct")
	ErrArgCount       = errors.New("wrong number of arguments")
	ErrStringValue    = errors.New("string literal is only allowed as an argument of an external function")
	ErrAfterReturn    = errors.New("statement after return is never executed")
)

func Lower(ctx context.Context, name string, prog *ast.Program, opts Options) (p *ir.Package, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "lower: program", "name", name, "funcs", len(prog.Funcs))
	defer tr.Finish("err", &err)

	l := New(name, opts)

	for _, f := range prog.Funcs {
		err = l.Func(ctx, f)
		if err != nil {
			return nil, err
		}
	}

	return l.Package(), nil
}

func New(name string, opts Options) *Lowerer {
	return &Lowerer{
		Options: opts,
		b:       ir.NewBuilder(&ir.Package{Name: name}),
		s:       NewScopes(),
	}
}

func (l *Lowerer) Package() *ir.Package { return l.b.Package() }

// Func lowers one function. Locals never leak between functions.
func (l *Lowerer) Func(ctx context.Context, f ast.Func) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "lower: func", "name", f.FuncName(), "params", f.FuncParams())
	defer tr.Finish("err", &err)

	l.s.Reset()
	l.fn = f.FuncName()

	switch f := f.(type) {
	case *ast.External:
		_, err = l.b.DeclareFunc(f.Name, f.Params, true)
		if err != nil {
			return l.fail(f.Pos, err)
		}

		return nil
	case *ast.Regular:
		err = l.regular(ctx, f)
	default:
		panic(fmt.Sprintf("unexpected function %T", f))
	}

	if err != nil {
		return err
	}

	if tr.If("dump_ir") {
		tr.Printw("lowered", "ir", string(ir.FormatFunc(nil, l.b.Current())))
	}

	return nil
}

func (l *Lowerer) regular(ctx context.Context, f *ast.Regular) (err error) {
	_, err = l.b.DeclareFunc(f.Name, f.Params, false)
	if err != nil {
		return l.fail(f.Pos, err)
	}

	entry := l.b.AppendBlock("entry")
	l.b.SetBlock(entry)

	for i, name := range f.Params {
		slot := l.b.Alloca(name)

		if name != ast.Discard {
			l.b.Store(l.b.Param(i), slot)
		}

		err = l.s.Declare(name, slot)
		if err != nil {
			return l.fail(f.Pos, errors.Wrap(err, "parameter"))
		}
	}

	err = l.stmt(ctx, f.Body)
	if err != nil {
		return err
	}

	if cur := l.b.Block(); !l.b.Terminated() && cur != entry && !l.b.HasPreds(cur) {
		l.b.Unreachable()
	}

	return nil
}

func (l *Lowerer) stmt(ctx context.Context, s ast.Stmt) (err error) {
	if tr := tlog.SpanFromContext(ctx); tr.If("lower") {
		tr.Printw("statement", "typ", tlog.NextAsType, s, "depth", l.s.Depth(), "block", l.b.Block())
	}

	switch s := s.(type) {
	case *ast.Compound:
		l.s.Push()

		for _, s := range s.Stmts {
			if _, ok := s.(*ast.NoOp); !ok && l.b.Terminated() {
				return l.fail(s.At(), ErrAfterReturn)
			}

			err = l.stmt(ctx, s)
			if err != nil {
				return err
			}
		}

		l.s.Pop()
	case *ast.If:
		return l.ifStmt(ctx, s)
	case *ast.Return:
		v, err := l.expr(ctx, s.Value)
		if err != nil {
			return errors.Wrap(err, "return")
		}

		l.b.Ret(v)
	case *ast.VarDecl:
		slot := l.b.Alloca(s.Name)

		err = l.s.Declare(s.Name, slot)
		if err != nil {
			return l.fail(s.Pos, err)
		}

		if s.Value == nil {
			return nil
		}

		v, err := l.expr(ctx, s.Value)
		if err != nil {
			return errors.Wrap(err, "variable %v", s.Name)
		}

		l.b.Store(v, slot)
	case *ast.ExprStmt:
		_, err = l.expr(ctx, s.X)
		if err != nil {
			return err
		}
	case *ast.NoOp:
	default:
		panic(fmt.Sprintf("unexpected statement %T", s))
	}

	return nil
}

func (l *Lowerer) ifStmt(ctx context.Context, s *ast.If) (err error) {
	if !l.Branching {
		return l.fail(s.Pos, errors.Wrap(ErrUnsupported, "if statement (branching is disabled)"))
	}

	c, err := l.expr(ctx, s.Cond)
	if err != nil {
		return errors.Wrap(err, "if condition")
	}

	cond := l.b.ICmp(ir.NE, c, l.b.Const(0))

	then := l.b.AppendBlock("then")
	els := ir.Label(-1)

	if s.Else != nil {
		els = l.b.AppendBlock("else")
	}

	merge := l.b.AppendBlock("merge")

	if s.Else == nil {
		els = merge
	}

	l.b.CondBr(cond, then, els)

	err = l.branch(ctx, then, merge, s.Then)
	if err != nil {
		return errors.Wrap(err, "if then")
	}

	if s.Else != nil {
		err = l.branch(ctx, els, merge, s.Else)
		if err != nil {
			return errors.Wrap(err, "if else")
		}
	}

	l.b.SetBlock(merge)

	return nil
}

func (l *Lowerer) branch(ctx context.Context, blk, merge ir.Label, s ast.Stmt) (err error) {
	l.b.SetBlock(blk)
	l.s.Push()

	err = l.stmt(ctx, s)
	if err != nil {
		return err
	}

	l.s.Pop()

	if !l.b.Terminated() {
		l.b.Br(merge)
	}

	return nil
}

func (l *Lowerer) expr(ctx context.Context, e ast.Expr) (_ ir.Expr, err error) {
	switch e := e.(type) {
	case *ast.Literal:
		switch v := e.Value.(type) {
		case ast.Int:
			return l.b.Const(int32(v)), nil
		case ast.Str:
			return ir.Nil, l.fail(e.Pos, errors.Wrap(ErrStringValue, "%q", string(v)))
		default:
			panic(fmt.Sprintf("unexpected literal %T", v))
		}
	case *ast.Paren:
		return l.expr(ctx, e.X)
	case *ast.VarRef:
		slot, ok := l.s.Lookup(e.Name)
		if !ok {
			return ir.Nil, l.fail(e.Pos, errors.Wrap(ErrUnresolved, "%v", e.Name))
		}

		return l.b.Load(slot), nil
	case *ast.Call:
		return l.call(ctx, e)
	case *ast.Binary:
		if e.Op == "=" {
			return l.assign(ctx, e)
		}

		return l.binary(ctx, e)
	case *ast.Unary:
		if e.Op != "-" {
			panic(fmt.Sprintf("unexpected unary operator %q", e.Op))
		}

		x, err := l.expr(ctx, e.X)
		if err != nil {
			return ir.Nil, err
		}

		return l.b.Neg(x), nil
	default:
		panic(fmt.Sprintf("unexpected expression %T", e))
	}
}

func (l *Lowerer) call(ctx context.Context, e *ast.Call) (_ ir.Expr, err error) {
	args := make([]ir.Expr, len(e.Args))
	var str *ast.Literal

	for i, a := range e.Args {
		if lit, ok := a.(*ast.Literal); ok {
			if s, ok := lit.Value.(ast.Str); ok {
				args[i] = l.b.Str(string(s))

				if str == nil {
					str = lit
				}

				continue
			}
		}

		args[i], err = l.expr(ctx, a)
		if err != nil {
			return ir.Nil, errors.Wrap(err, "call %v: arg %d", e.Name, i)
		}
	}

	callee := l.b.Func(e.Name)
	if callee == nil {
		return ir.Nil, l.fail(e.Pos, errors.Wrap(ErrUndeclaredFunc, "%v", e.Name))
	}

	if len(args) != len(callee.Params) {
		return ir.Nil, l.fail(e.Pos, errors.Wrap(ErrArgCount, "%v: got %d, want %d", e.Name, len(args), len(callee.Params)))
	}

	if str != nil && !callee.External {
		return ir.Nil, l.fail(str.Pos, errors.Wrap(ErrStringValue, "call %v", e.Name))
	}

	return l.b.Call(e.Name, args), nil
}

// assign stores the right side into the variable slot.
// The stored value is the value of the expression.
func (l *Lowerer) assign(ctx context.Context, e *ast.Binary) (_ ir.Expr, err error) {
	v, ok := e.L.(*ast.VarRef)
	if !ok {
		return ir.Nil, l.fail(e.Pos, errors.Wrap(ErrNotAssignable, "%s", format.Expr(e.L)))
	}

	r, err := l.expr(ctx, e.R)
	if err != nil {
		return ir.Nil, errors.Wrap(err, "assign %v", v.Name)
	}

	slot, ok := l.s.Lookup(v.Name)
	if !ok {
		return ir.Nil, l.fail(v.Pos, errors.Wrap(ErrUnresolved, "%v", v.Name))
	}

	l.b.Store(r, slot)

	return r, nil
}

func (l *Lowerer) binary(ctx context.Context, e *ast.Binary) (_ ir.Expr, err error) {
	x, err := l.expr(ctx, e.L)
	if err != nil {
		return ir.Nil, errors.Wrap(err, "left of %v", e.Op)
	}

	y, err := l.expr(ctx, e.R)
	if err != nil {
		return ir.Nil, errors.Wrap(err, "right of %v", e.Op)
	}

	switch e.Op {
	case "+":
		return l.b.Add(x, y), nil
	case "-":
		return l.b.Sub(x, y), nil
	case "*":
		return l.b.Mul(x, y), nil
	case "/":
		return l.b.SDiv(x, y), nil
	}

	pred, ok := ir.CmpPred(e.Op)
	if !ok {
		return ir.Nil, l.fail(e.Pos, errors.Wrap(ErrUnsupported, "binary operator %q", e.Op))
	}

	return l.b.ZExt(l.b.ICmp(pred, x, y)), nil
}

func (l *Lowerer) fail(pos int, err error) error {
	return &Error{
		Func: l.fn,
		Pos:  pos,
		Err:  err,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("func %v: at pos 0x%x: %v", e.Func, e.Pos, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
