package ir

import (
	"tlog.app/go/errors"
)

type Builder struct {
	p *Package
	f *Func
	b Label
}

var ErrRedeclaredFunc = errors.New("function redeclared")

func NewBuilder(p *Package) *Builder {
	return &Builder{p: p, b: -1}
}

func (b *Builder) Package() *Package { return b.p }

// Func looks up already declared function.
func (b *Builder) Func(name string) *Func { return b.p.Func(name) }

// DeclareFunc adds a function to the package and makes it current.
// Parameters are added as the first len(params) expressions.
func (b *Builder) DeclareFunc(name string, params []string, external bool) (*Func, error) {
	if b.p.Func(name) != nil {
		return nil, errors.Wrap(ErrRedeclaredFunc, "%v", name)
	}

	f := &Func{
		Name:     name,
		Params:   params,
		External: external,
	}

	for i := range params {
		f.Exprs = append(f.Exprs, Param{N: i})
	}

	b.p.Funcs = append(b.p.Funcs, f)
	b.f = f
	b.b = -1

	return f, nil
}

func (b *Builder) Current() *Func { return b.f }

func (b *Builder) AppendBlock(name string) Label {
	b.f.Blocks = append(b.f.Blocks, &Block{Name: name})

	return Label(len(b.f.Blocks) - 1)
}

func (b *Builder) SetBlock(l Label) { b.b = l }

func (b *Builder) Block() Label { return b.b }

func (b *Builder) Terminated() bool { return b.f.Terminated(b.b) }

// HasPreds reports whether any branch targets l.
func (b *Builder) HasPreds(l Label) bool {
	for _, blk := range b.f.Blocks {
		if len(blk.Code) == 0 {
			continue
		}

		switch x := b.f.Exprs[blk.Code[len(blk.Code)-1]].(type) {
		case Br:
			if x.To == l {
				return true
			}
		case CondBr:
			if x.Then == l || x.Else == l {
				return true
			}
		}
	}

	return false
}

func (b *Builder) Param(n int) Expr { return Expr(n) }

func (b *Builder) Const(v int32) Expr { return b.alloc(Const{Value: v}) }

func (b *Builder) Str(s string) Expr { return b.alloc(Str{Value: s}) }

// Alloca places a stack slot at the top of the entry block,
// so it dominates every use.
func (b *Builder) Alloca(name string) Expr {
	id := b.alloc(Alloca{Name: name})

	entry := b.f.Blocks[0]

	i := 0
	for i < len(entry.Code) {
		if _, ok := b.f.Exprs[entry.Code[i]].(Alloca); !ok {
			break
		}

		i++
	}

	entry.Code = append(entry.Code, 0)
	copy(entry.Code[i+1:], entry.Code[i:])
	entry.Code[i] = id

	return id
}

func (b *Builder) Load(ptr Expr) Expr { return b.add(Load{Ptr: ptr}) }

func (b *Builder) Store(val, ptr Expr) Expr { return b.add(Store{Val: val, Ptr: ptr}) }

func (b *Builder) Add(l, r Expr) Expr  { return b.add(Add{L: l, R: r}) }
func (b *Builder) Sub(l, r Expr) Expr  { return b.add(Sub{L: l, R: r}) }
func (b *Builder) Mul(l, r Expr) Expr  { return b.add(Mul{L: l, R: r}) }
func (b *Builder) SDiv(l, r Expr) Expr { return b.add(SDiv{L: l, R: r}) }

func (b *Builder) ICmp(p Pred, l, r Expr) Expr { return b.add(ICmp{Pred: p, L: l, R: r}) }

func (b *Builder) ZExt(x Expr) Expr { return b.add(ZExt{X: x}) }

func (b *Builder) Neg(x Expr) Expr { return b.add(Neg{X: x}) }

func (b *Builder) Call(name string, in []Expr) Expr { return b.add(Call{Func: name, In: in}) }

func (b *Builder) Ret(x Expr) Expr { return b.add(Ret{X: x}) }

func (b *Builder) Br(to Label) Expr { return b.add(Br{To: to}) }

func (b *Builder) CondBr(cond Expr, then, els Label) Expr {
	return b.add(CondBr{Cond: cond, Then: then, Else: els})
}

func (b *Builder) Unreachable() Expr { return b.add(Unreachable{}) }

func (b *Builder) alloc(x any) Expr {
	b.f.Exprs = append(b.f.Exprs, x)

	return Expr(len(b.f.Exprs) - 1)
}

func (b *Builder) add(x any) Expr {
	id := b.alloc(x)

	blk := b.f.Blocks[b.b]
	blk.Code = append(blk.Code, id)

	return id
}
