package ir

import "tlog.app/go/tlog/tlwire"

type (
	// Expr is an index into Func.Exprs.
	Expr int

	// Label is an index into Func.Blocks.
	Label int

	Pred int

	Package struct {
		Name string

		Funcs []*Func
	}

	Func struct {
		Name     string
		Params   []string
		External bool

		Exprs  []any
		Blocks []*Block
	}

	Block struct {
		Name string
		Code []Expr
	}

	// Values not placed into blocks.

	Param struct {
		N int
	}

	Const struct {
		Value int32
	}

	// Str is a constant byte sequence, passed by pointer.
	Str struct {
		Value string
	}

	// Instructions.

	Alloca struct {
		Name string
	}

	Load struct {
		Ptr Expr
	}

	Store struct {
		Val Expr
		Ptr Expr
	}

	Add struct {
		L, R Expr
	}

	Sub struct {
		L, R Expr
	}

	Mul struct {
		L, R Expr
	}

	SDiv struct {
		L, R Expr
	}

	ICmp struct {
		Pred Pred
		L, R Expr
	}

	// ZExt widens 1-bit value to 32 bits.
	ZExt struct {
		X Expr
	}

	Neg struct {
		X Expr
	}

	Call struct {
		Func string
		In   []Expr
	}

	Ret struct {
		X Expr
	}

	Br struct {
		To Label
	}

	CondBr struct {
		Cond Expr
		Then Label
		Else Label
	}

	Unreachable struct{}
)

const (
	EQ Pred = iota
	NE
	SLT
	SGT
	SLE
	SGE
)

const Nil Expr = -1

var predNames = []string{"eq", "ne", "slt", "sgt", "sle", "sge"}

// CmpPred maps comparison operator to its signed predicate.
func CmpPred(op string) (Pred, bool) {
	switch op {
	case "==":
		return EQ, true
	case "!=":
		return NE, true
	case "<":
		return SLT, true
	case ">":
		return SGT, true
	case "<=":
		return SLE, true
	case ">=":
		return SGE, true
	}

	return 0, false
}

func (p Pred) String() string {
	if p < 0 || int(p) >= len(predNames) {
		return "pred?"
	}

	return predNames[p]
}

func (p *Package) Func(name string) *Func {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f
		}
	}

	return nil
}

func IsTerminator(x any) bool {
	switch x.(type) {
	case Ret, Br, CondBr, Unreachable:
		return true
	}

	return false
}

// Placed reports whether x is an instruction rather than a constant or parameter.
func Placed(x any) bool {
	switch x.(type) {
	case Param, Const, Str:
		return false
	}

	return true
}

func (f *Func) Terminated(l Label) bool {
	b := f.Blocks[l]

	return len(b.Code) != 0 && IsTerminator(f.Exprs[b.Code[len(b.Code)-1]])
}

func (x Call) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)
	b = e.AppendString(b, "func")
	b = e.AppendString(b, x.Func)
	b = e.AppendString(b, "in")
	b = e.AppendTag(b, tlwire.Array, -1)

	for _, id := range x.In {
		b = e.AppendInt(b, int(id))
	}

	b = e.AppendBreak(b)

	return b
}
