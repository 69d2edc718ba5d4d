package back

import (
	"context"

	"tinygo.org/x/go-llvm"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/yotlang/yotc/compiler/ir"
)

type (
	// Module owns LLVM context, module and builder.
	// Close disposes them in reverse order of creation.
	Module struct {
		ctx llvm.Context
		mod llvm.Module
		b   llvm.Builder

		i32 llvm.Type
		ptr llvm.Type

		funcs map[string]function
	}

	function struct {
		v  llvm.Value
		tp llvm.Type
	}

	funcState struct {
		f      *ir.Func
		v      llvm.Value
		vals   []llvm.Value
		blocks []llvm.BasicBlock
		strs   map[ir.Expr]llvm.Value
	}
)

var ErrVerify = errors.New("module verification failed")

func NewModule(name string) *Module {
	ctx := llvm.NewContext()

	return &Module{
		ctx:   ctx,
		mod:   ctx.NewModule(name),
		b:     ctx.NewBuilder(),
		i32:   ctx.Int32Type(),
		ptr:   llvm.PointerType(ctx.Int8Type(), 0),
		funcs: map[string]function{},
	}
}

// Translate builds LLVM module from p.
func Translate(ctx context.Context, p *ir.Package) (m *Module, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: translate", "name", p.Name, "funcs", len(p.Funcs))
	defer tr.Finish("err", &err)

	m = NewModule(p.Name)

	defer func() {
		if err != nil {
			m.Close()
			m = nil
		}
	}()

	for _, f := range p.Funcs {
		m.declare(f)
	}

	for _, f := range p.Funcs {
		if f.External {
			continue
		}

		err = m.body(ctx, f)
		if err != nil {
			return m, errors.Wrap(err, "func %v", f.Name)
		}
	}

	return m, nil
}

func (m *Module) Close() {
	m.b.Dispose()
	m.mod.Dispose()
	m.ctx.Dispose()
}

func (m *Module) Verify() error {
	err := llvm.VerifyModule(m.mod, llvm.ReturnStatusAction)
	if err != nil {
		return errors.Wrap(ErrVerify, "%v", err)
	}

	return nil
}

// IR returns textual LLVM IR.
func (m *Module) IR() string {
	return m.mod.String()
}

func (m *Module) declare(f *ir.Func) {
	params := make([]llvm.Type, len(f.Params))
	for i := range params {
		params[i] = m.i32
	}

	tp := llvm.FunctionType(m.i32, params, false)
	v := llvm.AddFunction(m.mod, f.Name, tp)

	for i, name := range f.Params {
		v.Param(i).SetName(name)
	}

	m.funcs[f.Name] = function{v: v, tp: tp}
}

func (m *Module) body(ctx context.Context, f *ir.Func) (err error) {
	fn := m.funcs[f.Name]

	s := &funcState{
		f:      f,
		v:      fn.v,
		vals:   make([]llvm.Value, len(f.Exprs)),
		blocks: make([]llvm.BasicBlock, len(f.Blocks)),
		strs:   map[ir.Expr]llvm.Value{},
	}

	for i := range f.Params {
		s.vals[i] = fn.v.Param(i)
	}

	for l, blk := range f.Blocks {
		s.blocks[l] = m.ctx.AddBasicBlock(fn.v, blk.Name)
	}

	for l, blk := range f.Blocks {
		m.b.SetInsertPointAtEnd(s.blocks[l])

		for _, id := range blk.Code {
			s.vals[id], err = m.instr(s, id, f.Exprs[id])
			if err != nil {
				return errors.Wrap(err, "block %v: expr %v", blk.Name, id)
			}
		}
	}

	return nil
}

func (m *Module) instr(s *funcState, id ir.Expr, x any) (v llvm.Value, err error) {
	b := m.b

	switch x := x.(type) {
	case ir.Alloca:
		return b.CreateAlloca(m.i32, x.Name), nil
	case ir.Load:
		return b.CreateLoad(m.i32, s.vals[x.Ptr], ""), nil
	case ir.Store:
		return b.CreateStore(m.value(s, x.Val), s.vals[x.Ptr]), nil
	case ir.Add:
		return b.CreateAdd(m.value(s, x.L), m.value(s, x.R), ""), nil
	case ir.Sub:
		return b.CreateSub(m.value(s, x.L), m.value(s, x.R), ""), nil
	case ir.Mul:
		return b.CreateMul(m.value(s, x.L), m.value(s, x.R), ""), nil
	case ir.SDiv:
		return b.CreateSDiv(m.value(s, x.L), m.value(s, x.R), ""), nil
	case ir.ICmp:
		return b.CreateICmp(intPredicate(x.Pred), m.value(s, x.L), m.value(s, x.R), ""), nil
	case ir.ZExt:
		return b.CreateZExt(m.value(s, x.X), m.i32, ""), nil
	case ir.Neg:
		return b.CreateNeg(m.value(s, x.X), ""), nil
	case ir.Call:
		return m.call(s, x)
	case ir.Ret:
		return b.CreateRet(m.value(s, x.X)), nil
	case ir.Br:
		return b.CreateBr(s.blocks[x.To]), nil
	case ir.CondBr:
		return b.CreateCondBr(s.vals[x.Cond], s.blocks[x.Then], s.blocks[x.Else]), nil
	case ir.Unreachable:
		return b.CreateUnreachable(), nil
	default:
		return v, errors.New("unsupported instruction: %T", x)
	}
}

// call passes string arguments by pointer. The call site type
// follows the actual arguments, the callee is declared with i32 params.
func (m *Module) call(s *funcState, x ir.Call) (llvm.Value, error) {
	callee, ok := m.funcs[x.Func]
	if !ok {
		return llvm.Value{}, errors.New("call to undeclared function %v", x.Func)
	}

	tp := callee.tp
	fn := callee.v
	args := make([]llvm.Value, len(x.In))
	params := make([]llvm.Type, len(x.In))
	direct := true

	for i, id := range x.In {
		if str, ok := s.f.Exprs[id].(ir.Str); ok {
			args[i] = m.str(s, id, str.Value)
			params[i] = m.ptr
			direct = false

			continue
		}

		args[i] = m.value(s, id)
		params[i] = m.i32
	}

	// typed pointers (LLVM 14) require the callee to match the call site type
	if !direct {
		tp = llvm.FunctionType(m.i32, params, false)
		fn = llvm.ConstBitCast(callee.v, llvm.PointerType(tp, 0))
	}

	return m.b.CreateCall(tp, fn, args, ""), nil
}

func (m *Module) value(s *funcState, id ir.Expr) llvm.Value {
	if c, ok := s.f.Exprs[id].(ir.Const); ok {
		return llvm.ConstInt(m.i32, uint64(int64(c.Value)), true)
	}

	return s.vals[id]
}

func (m *Module) str(s *funcState, id ir.Expr, v string) llvm.Value {
	if p, ok := s.strs[id]; ok {
		return p
	}

	p := m.b.CreateGlobalStringPtr(v, "str")
	s.strs[id] = p

	return p
}

func intPredicate(p ir.Pred) llvm.IntPredicate {
	switch p {
	case ir.EQ:
		return llvm.IntEQ
	case ir.NE:
		return llvm.IntNE
	case ir.SLT:
		return llvm.IntSLT
	case ir.SGT:
		return llvm.IntSGT
	case ir.SLE:
		return llvm.IntSLE
	case ir.SGE:
		return llvm.IntSGE
	default:
		panic(p)
	}
}
