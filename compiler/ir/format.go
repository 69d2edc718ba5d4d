package ir

import (
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
)

// Format appends human readable listing of the package to b.
func Format(b []byte, p *Package) []byte {
	b = hfmt.Appendf(b, "; package %s\n", p.Name)

	for _, f := range p.Funcs {
		b = append(b, '\n')
		b = FormatFunc(b, f)
	}

	return b
}

func FormatFunc(b []byte, f *Func) []byte {
	if f.External {
		b = append(b, "extern "...)
	}

	b = hfmt.Appendf(b, "func %s(", f.Name)

	for i, name := range f.Params {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = hfmt.Appendf(b, "%%%d %s", i, name)
	}

	b = append(b, ')')

	if f.External {
		return append(b, '\n')
	}

	b = append(b, " {\n"...)

	for l, blk := range f.Blocks {
		b = hfmt.Appendf(b, "%s.%d:\n", blk.Name, l)

		for _, id := range blk.Code {
			b = append(b, '\t')

			if x := f.Exprs[id]; producesValue(x) {
				b = hfmt.Appendf(b, "%%%d = ", id)
			}

			b = appendExpr(b, f, f.Exprs[id])
			b = append(b, '\n')
		}
	}

	b = append(b, "}\n"...)

	return b
}

func appendExpr(b []byte, f *Func, x any) []byte {
	switch x := x.(type) {
	case Alloca:
		return hfmt.Appendf(b, "alloca %s", x.Name)
	case Load:
		return hfmt.Appendf(b, "load %s", operand(f, x.Ptr))
	case Store:
		return hfmt.Appendf(b, "store %s, %s", operand(f, x.Val), operand(f, x.Ptr))
	case Add:
		return hfmt.Appendf(b, "add %s, %s", operand(f, x.L), operand(f, x.R))
	case Sub:
		return hfmt.Appendf(b, "sub %s, %s", operand(f, x.L), operand(f, x.R))
	case Mul:
		return hfmt.Appendf(b, "mul %s, %s", operand(f, x.L), operand(f, x.R))
	case SDiv:
		return hfmt.Appendf(b, "sdiv %s, %s", operand(f, x.L), operand(f, x.R))
	case ICmp:
		return hfmt.Appendf(b, "icmp %v %s, %s", x.Pred, operand(f, x.L), operand(f, x.R))
	case ZExt:
		return hfmt.Appendf(b, "zext %s", operand(f, x.X))
	case Neg:
		return hfmt.Appendf(b, "neg %s", operand(f, x.X))
	case Call:
		b = hfmt.Appendf(b, "call %s(", x.Func)

		for i, id := range x.In {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = append(b, operand(f, id)...)
		}

		return append(b, ')')
	case Ret:
		return hfmt.Appendf(b, "ret %s", operand(f, x.X))
	case Br:
		return hfmt.Appendf(b, "br %s", label(f, x.To))
	case CondBr:
		return hfmt.Appendf(b, "br %s, %s, %s", operand(f, x.Cond), label(f, x.Then), label(f, x.Else))
	case Unreachable:
		return append(b, "unreachable"...)
	default:
		return hfmt.Appendf(b, "%T %+v", x, x)
	}
}

func operand(f *Func, id Expr) string {
	if id < 0 || int(id) >= len(f.Exprs) {
		return "%?" + strconv.Itoa(int(id))
	}

	switch x := f.Exprs[id].(type) {
	case Const:
		return strconv.Itoa(int(x.Value))
	case Str:
		return strconv.Quote(x.Value)
	}

	return "%" + strconv.Itoa(int(id))
}

func label(f *Func, l Label) string {
	if l < 0 || int(l) >= len(f.Blocks) {
		return "?." + strconv.Itoa(int(l))
	}

	return f.Blocks[l].Name + "." + strconv.Itoa(int(l))
}

func producesValue(x any) bool {
	switch x.(type) {
	case Store, Ret, Br, CondBr, Unreachable:
		return false
	}

	return true
}
