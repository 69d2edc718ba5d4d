package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yotlang/yotc/compiler/ir"
)

func TestScopesShadowing(t *testing.T) {
	s := NewScopes()
	assert.Equal(t, 1, s.Depth())

	require.NoError(t, s.Declare("x", 1))
	require.NoError(t, s.Declare("y", 2))

	s.Push()
	require.NoError(t, s.Declare("x", 3))
	require.NoError(t, s.Declare("z", 4))

	v, ok := s.Lookup("x")
	assert.True(t, ok)
	assert.Equal(t, ir.Expr(3), v)

	v, ok = s.Lookup("y")
	assert.True(t, ok)
	assert.Equal(t, ir.Expr(2), v)

	s.Pop()
	assert.Equal(t, 1, s.Depth())

	v, ok = s.Lookup("x")
	assert.True(t, ok)
	assert.Equal(t, ir.Expr(1), v)

	_, ok = s.Lookup("z")
	assert.False(t, ok)
}

func TestScopesNestedShadowing(t *testing.T) {
	s := NewScopes()
	require.NoError(t, s.Declare("x", 1))

	s.Push()
	require.NoError(t, s.Declare("x", 2))

	s.Push()
	require.NoError(t, s.Declare("x", 3))

	s.Pop()

	v, _ := s.Lookup("x")
	assert.Equal(t, ir.Expr(2), v)

	s.Pop()

	v, _ = s.Lookup("x")
	assert.Equal(t, ir.Expr(1), v)
}

func TestScopesRedeclared(t *testing.T) {
	s := NewScopes()
	require.NoError(t, s.Declare("x", 1))

	err := s.Declare("x", 2)
	assert.ErrorIs(t, err, ErrRedeclared)

	v, _ := s.Lookup("x")
	assert.Equal(t, ir.Expr(1), v)
}

func TestScopesDiscard(t *testing.T) {
	s := NewScopes()

	require.NoError(t, s.Declare("_", 1))
	require.NoError(t, s.Declare("_", 2))

	_, ok := s.Lookup("_")
	assert.False(t, ok)
}

func TestScopesReset(t *testing.T) {
	s := NewScopes()
	require.NoError(t, s.Declare("a", 1))

	s.Push()
	s.Push()

	s.Reset()
	assert.Equal(t, 1, s.Depth())

	_, ok := s.Lookup("a")
	assert.False(t, ok)

	require.NoError(t, s.Declare("a", 5))
}
