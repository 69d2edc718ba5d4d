package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFunc(t *testing.T, p *Package, name string, params ...string) *Builder {
	t.Helper()

	b := NewBuilder(p)

	_, err := b.DeclareFunc(name, params, false)
	require.NoError(t, err)

	b.SetBlock(b.AppendBlock("entry"))

	return b
}

func TestVerifyOK(t *testing.T) {
	p := &Package{Name: "test"}

	b := NewBuilder(p)
	_, err := b.DeclareFunc("puts", []string{"s"}, true)
	require.NoError(t, err)

	_, err = b.DeclareFunc("main", []string{"a"}, false)
	require.NoError(t, err)

	b.SetBlock(b.AppendBlock("entry"))

	slot := b.Alloca("a")
	b.Store(b.Param(0), slot)
	b.Call("puts", []Expr{b.Str("hi")})
	c := b.ICmp(SLT, b.Load(slot), b.Const(10))

	then := b.AppendBlock("then")
	els := b.AppendBlock("else")
	b.CondBr(c, then, els)

	b.SetBlock(then)
	b.Ret(b.Const(1))

	b.SetBlock(els)
	b.Ret(b.ZExt(c))

	assert.NoError(t, Verify(p))
}

func TestVerifyMissingTerminator(t *testing.T) {
	p := &Package{}
	b := newFunc(t, p, "main")

	b.Add(b.Const(1), b.Const(2))

	assert.ErrorIs(t, Verify(p), ErrInvalid)
}

func TestVerifyEmptyBlock(t *testing.T) {
	p := &Package{}
	newFunc(t, p, "main")

	assert.ErrorIs(t, Verify(p), ErrInvalid)
}

func TestVerifyTerminatorInTheMiddle(t *testing.T) {
	p := &Package{}
	b := newFunc(t, p, "main")

	b.Ret(b.Const(1))
	b.Ret(b.Const(2))

	err := Verify(p)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "middle")
}

func TestVerifyOperands(t *testing.T) {
	t.Run("string_operand", func(t *testing.T) {
		p := &Package{}
		b := newFunc(t, p, "main")
		b.Ret(b.Add(b.Str("x"), b.Const(1)))

		assert.ErrorIs(t, Verify(p), ErrInvalid)
	})

	t.Run("slot_operand", func(t *testing.T) {
		p := &Package{}
		b := newFunc(t, p, "main")
		b.Ret(b.Alloca("x"))

		assert.ErrorIs(t, Verify(p), ErrInvalid)
	})

	t.Run("load_non_slot", func(t *testing.T) {
		p := &Package{}
		b := newFunc(t, p, "main")
		b.Ret(b.Load(b.Const(1)))

		assert.ErrorIs(t, Verify(p), ErrInvalid)
	})

	t.Run("branch_non_cmp", func(t *testing.T) {
		p := &Package{}
		b := newFunc(t, p, "main")
		b.CondBr(b.Const(1), 0, 0)

		assert.ErrorIs(t, Verify(p), ErrInvalid)
	})

	t.Run("label_range", func(t *testing.T) {
		p := &Package{}
		b := newFunc(t, p, "main")
		b.Br(5)

		assert.ErrorIs(t, Verify(p), ErrInvalid)
	})
}

func TestVerifyCalls(t *testing.T) {
	p := &Package{}
	b := newFunc(t, p, "f", "a")
	b.Ret(b.Param(0))

	_, err := b.DeclareFunc("main", nil, false)
	require.NoError(t, err)
	b.SetBlock(b.AppendBlock("entry"))
	b.Ret(b.Call("f", []Expr{b.Const(1), b.Const(2)}))

	assert.ErrorIs(t, Verify(p), ErrInvalid)

	p.Funcs[1].Blocks[0].Code = nil
	b.SetBlock(0)
	b.Ret(b.Call("g", nil))

	err = Verify(p)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "undeclared")
}

func TestVerifyExternalWithBody(t *testing.T) {
	p := &Package{}
	b := NewBuilder(p)

	_, err := b.DeclareFunc("f", nil, true)
	require.NoError(t, err)

	b.SetBlock(b.AppendBlock("entry"))
	b.Ret(b.Const(0))

	assert.ErrorIs(t, Verify(p), ErrInvalid)
}

func TestBuilderRedeclare(t *testing.T) {
	p := &Package{}
	b := NewBuilder(p)

	_, err := b.DeclareFunc("f", nil, false)
	require.NoError(t, err)

	_, err = b.DeclareFunc("f", nil, true)
	assert.ErrorIs(t, err, ErrRedeclaredFunc)
}

func TestBuilderHasPreds(t *testing.T) {
	p := &Package{}
	b := newFunc(t, p, "main")

	next := b.AppendBlock("next")
	dead := b.AppendBlock("dead")

	b.Br(next)

	assert.True(t, b.HasPreds(next))
	assert.False(t, b.HasPreds(dead))
	assert.True(t, b.Terminated())

	b.SetBlock(next)
	assert.False(t, b.Terminated())
}
