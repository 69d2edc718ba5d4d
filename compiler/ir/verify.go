package ir

import (
	"tlog.app/go/errors"
)

var ErrInvalid = errors.New("invalid module")

// Verify checks structural well-formedness of the package,
// the same way the LLVM verifier rejects malformed modules.
func Verify(p *Package) error {
	for _, f := range p.Funcs {
		err := verifyFunc(p, f)
		if err != nil {
			return errors.Wrap(err, "func %v", f.Name)
		}
	}

	return nil
}

func verifyFunc(p *Package, f *Func) error {
	if f.External {
		if len(f.Blocks) != 0 {
			return errors.Wrap(ErrInvalid, "external function has a body")
		}

		return nil
	}

	if len(f.Blocks) == 0 {
		return errors.Wrap(ErrInvalid, "no entry block")
	}

	for l, b := range f.Blocks {
		if len(b.Code) == 0 || !f.Terminated(Label(l)) {
			return errors.Wrap(ErrInvalid, "block %v (%v) does not have a terminator", l, b.Name)
		}

		for i, id := range b.Code {
			if id < 0 || int(id) >= len(f.Exprs) {
				return errors.Wrap(ErrInvalid, "block %v: expr %v out of range", b.Name, id)
			}

			x := f.Exprs[id]

			if IsTerminator(x) && i != len(b.Code)-1 {
				return errors.Wrap(ErrInvalid, "block %v: terminator %T in the middle of the block", b.Name, x)
			}

			err := verifyExpr(p, f, x)
			if err != nil {
				return errors.Wrap(err, "block %v: expr %v", b.Name, id)
			}
		}
	}

	return nil
}

func verifyExpr(p *Package, f *Func, x any) (err error) {
	check := func(ids ...Expr) error {
		for _, id := range ids {
			if id < 0 || int(id) >= len(f.Exprs) {
				return errors.Wrap(ErrInvalid, "operand %v out of range", id)
			}

			switch f.Exprs[id].(type) {
			case Str, Alloca, Store, Ret, Br, CondBr, Unreachable:
				return errors.Wrap(ErrInvalid, "operand %v (%T) is not an integer value", id, f.Exprs[id])
			}
		}

		return nil
	}

	label := func(ls ...Label) error {
		for _, l := range ls {
			if l < 0 || int(l) >= len(f.Blocks) {
				return errors.Wrap(ErrInvalid, "label %v out of range", l)
			}
		}

		return nil
	}

	ptr := func(id Expr) error {
		if id < 0 || int(id) >= len(f.Exprs) {
			return errors.Wrap(ErrInvalid, "operand %v out of range", id)
		}

		if _, ok := f.Exprs[id].(Alloca); !ok {
			return errors.Wrap(ErrInvalid, "operand %v (%T) is not a stack slot", id, f.Exprs[id])
		}

		return nil
	}

	switch x := x.(type) {
	case Alloca, Unreachable:
	case Load:
		err = ptr(x.Ptr)
	case Store:
		err = ptr(x.Ptr)
		if err == nil {
			err = check(x.Val)
		}
	case Add:
		err = check(x.L, x.R)
	case Sub:
		err = check(x.L, x.R)
	case Mul:
		err = check(x.L, x.R)
	case SDiv:
		err = check(x.L, x.R)
	case ICmp:
		err = check(x.L, x.R)
	case ZExt:
		err = check(x.X)
	case Neg:
		err = check(x.X)
	case Ret:
		err = check(x.X)
	case Br:
		err = label(x.To)
	case CondBr:
		err = check(x.Cond)
		if err != nil {
			return err
		}

		if _, ok := f.Exprs[x.Cond].(ICmp); !ok {
			return errors.Wrap(ErrInvalid, "branch condition %v (%T) is not a comparison", x.Cond, f.Exprs[x.Cond])
		}

		err = label(x.Then, x.Else)
	case Call:
		callee := p.Func(x.Func)
		if callee == nil {
			return errors.Wrap(ErrInvalid, "call to undeclared function %v", x.Func)
		}

		if len(callee.Params) != len(x.In) {
			return errors.Wrap(ErrInvalid, "call %v: %d arguments, want %d", x.Func, len(x.In), len(callee.Params))
		}

		for _, id := range x.In {
			if id >= 0 && int(id) < len(f.Exprs) {
				if _, ok := f.Exprs[id].(Str); ok {
					continue
				}
			}

			err = check(id)
			if err != nil {
				return errors.Wrap(err, "call %v", x.Func)
			}
		}
	default:
		return errors.Wrap(ErrInvalid, "unexpected %T in block", x)
	}

	return err
}
