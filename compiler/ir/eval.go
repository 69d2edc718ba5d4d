package ir

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

type (
	// Extern implements an external function for the Machine.
	// Args are int32 or string.
	Extern func(ctx context.Context, args []any) (int32, error)

	// Machine interprets a Package.
	// It follows the semantics of the emitted code with
	// 32-bit wrapping arithmetic.
	Machine struct {
		Pkg     *Package
		Externs map[string]Extern

		MaxDepth int

		depth int
	}

	frame struct {
		f    *Func
		vals []any
		mem  map[Expr]int32
	}
)

var (
	ErrDivByZero     = errors.New("division by zero")
	ErrNoExtern      = errors.New("external function is not provided")
	ErrDepthExceeded = errors.New("call depth exceeded")
	ErrUninitialized = errors.New("load of uninitialized slot")
)

func NewMachine(p *Package) *Machine {
	return &Machine{
		Pkg:      p,
		Externs:  map[string]Extern{},
		MaxDepth: 10000,
	}
}

func (m *Machine) Call(ctx context.Context, name string, args ...int32) (int32, error) {
	in := make([]any, len(args))
	for i, a := range args {
		in[i] = a
	}

	return m.call(ctx, name, in)
}

func (m *Machine) call(ctx context.Context, name string, args []any) (r int32, err error) {
	f := m.Pkg.Func(name)
	if f == nil {
		return 0, errors.New("no such function: %v", name)
	}

	if len(args) != len(f.Params) {
		return 0, errors.New("%v: %d arguments, want %d", name, len(args), len(f.Params))
	}

	if f.External {
		ext, ok := m.Externs[name]
		if !ok {
			return 0, errors.Wrap(ErrNoExtern, "%v", name)
		}

		return ext(ctx, args)
	}

	if m.MaxDepth > 0 && m.depth >= m.MaxDepth {
		return 0, errors.Wrap(ErrDepthExceeded, "%v", name)
	}

	m.depth++
	defer func() { m.depth-- }()

	fr := &frame{
		f:    f,
		vals: make([]any, len(f.Exprs)),
		mem:  map[Expr]int32{},
	}

	copy(fr.vals, args)

	if tr := tlog.SpanFromContext(ctx); tr.If("eval") {
		tr.Printw("call", "func", name, "args", args, "depth", m.depth)
	}

	l := Label(0)

	for {
		next, ret, done, err := m.block(ctx, fr, l)
		if err != nil {
			return 0, errors.Wrap(err, "%v: block %v", name, f.Blocks[l].Name)
		}

		if done {
			return ret, nil
		}

		l = next
	}
}

func (m *Machine) block(ctx context.Context, fr *frame, l Label) (next Label, ret int32, done bool, err error) {
	f := fr.f

	for _, id := range f.Blocks[l].Code {
		switch x := f.Exprs[id].(type) {
		case Alloca:
		case Load:
			v, ok := fr.mem[x.Ptr]
			if !ok {
				return 0, 0, false, errors.Wrap(ErrUninitialized, "%v", f.Exprs[x.Ptr].(Alloca).Name)
			}

			fr.vals[id] = v
		case Store:
			fr.mem[x.Ptr] = fr.int(x.Val)
		case Add:
			fr.vals[id] = fr.int(x.L) + fr.int(x.R)
		case Sub:
			fr.vals[id] = fr.int(x.L) - fr.int(x.R)
		case Mul:
			fr.vals[id] = fr.int(x.L) * fr.int(x.R)
		case SDiv:
			d := fr.int(x.R)
			if d == 0 {
				return 0, 0, false, ErrDivByZero
			}

			fr.vals[id] = fr.int(x.L) / d
		case ICmp:
			fr.vals[id] = compare(x.Pred, fr.int(x.L), fr.int(x.R))
		case ZExt:
			fr.vals[id] = fr.int(x.X)
		case Neg:
			fr.vals[id] = -fr.int(x.X)
		case Call:
			args := make([]any, len(x.In))

			for i, a := range x.In {
				if s, ok := f.Exprs[a].(Str); ok {
					args[i] = s.Value
				} else {
					args[i] = fr.int(a)
				}
			}

			r, err := m.call(ctx, x.Func, args)
			if err != nil {
				return 0, 0, false, errors.Wrap(err, "call %v", x.Func)
			}

			fr.vals[id] = r
		case Ret:
			return 0, fr.int(x.X), true, nil
		case Br:
			return x.To, 0, false, nil
		case CondBr:
			if fr.int(x.Cond) != 0 {
				return x.Then, 0, false, nil
			}

			return x.Else, 0, false, nil
		case Unreachable:
			return 0, 0, false, errors.New("unreachable executed")
		default:
			return 0, 0, false, errors.New("unsupported instruction: %T", x)
		}
	}

	return 0, 0, false, errors.New("fell off the end of block")
}

func (fr *frame) int(id Expr) int32 {
	switch x := fr.f.Exprs[id].(type) {
	case Const:
		return x.Value
	}

	v, _ := fr.vals[id].(int32)

	return v
}

func compare(p Pred, l, r int32) int32 {
	var ok bool

	switch p {
	case EQ:
		ok = l == r
	case NE:
		ok = l != r
	case SLT:
		ok = l < r
	case SGT:
		ok = l > r
	case SLE:
		ok = l <= r
	case SGE:
		ok = l >= r
	}

	if ok {
		return 1
	}

	return 0
}
