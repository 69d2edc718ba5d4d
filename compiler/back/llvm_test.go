package back

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yotlang/yotc/compiler/front"
	"github.com/yotlang/yotc/compiler/ir"
	"github.com/yotlang/yotc/compiler/lower"
)

func build(t *testing.T, text string, opts lower.Options) *ir.Package {
	t.Helper()

	ctx := context.Background()

	prog, err := front.Parse(ctx, front.NewFile("test.yot", []byte(text)))
	require.NoError(t, err)

	p, err := lower.Lower(ctx, "test", prog, opts)
	require.NoError(t, err)
	require.NoError(t, ir.Verify(p))

	return p
}

func TestTranslate(t *testing.T) {
	p := build(t, `
@!puts[s];
@add[a, b] -> a + b;

@main[] {
	@x = add(1, 2) * 3;
	puts("hello");
	-> x / 2 - (x < 4);
}
`, lower.Options{})

	m, err := Translate(context.Background(), p)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Verify())

	s := m.IR()
	t.Logf("ir:\n%s", s)

	assert.Contains(t, s, "declare i32 @puts(i32")
	assert.Contains(t, s, "define i32 @add(i32 %a, i32 %b)")
	assert.Contains(t, s, "define i32 @main()")
	assert.Contains(t, s, "alloca i32")
	assert.Contains(t, s, "sdiv i32")
	assert.Contains(t, s, "icmp slt i32")
	assert.Contains(t, s, "zext i1")
	assert.Contains(t, s, `c"hello\00"`)
}

func TestTranslateBranching(t *testing.T) {
	p := build(t, `
@fact[n] {
	?[n < 2] -> 1;
	-> n * fact(n - 1);
}

@main[] { ?[1] -> fact(5); : -> 0; }
`, lower.Options{Branching: true})

	m, err := Translate(context.Background(), p)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Verify())

	s := m.IR()

	assert.Contains(t, s, "br i1")
	assert.Contains(t, s, "unreachable")
}

func TestEmitObject(t *testing.T) {
	p := build(t, "@main[] -> 0;", lower.Options{})

	m, err := Translate(context.Background(), p)
	require.NoError(t, err)
	defer m.Close()

	obj, err := m.EmitObject(context.Background(), 7)
	require.NoError(t, err)
	assert.NotEmpty(t, obj)
}

func TestCodeGenLevel(t *testing.T) {
	ctx := context.Background()

	for opt := 0; opt <= 3; opt++ {
		_, got := CodeGenLevel(ctx, opt)
		assert.Equal(t, opt, got)
	}

	_, got := CodeGenLevel(ctx, -1)
	assert.Equal(t, DefaultOptimization, got)

	_, got = CodeGenLevel(ctx, 4)
	assert.Equal(t, DefaultOptimization, got)
}

// With -tags llvm14 pointers are typed and the call site must match the callee type.
func TestTranslateStringArgument(t *testing.T) {
	p := build(t, `
@!printf[f, x];

@main[] {
	printf(1, 2);
	printf("one %d", 3);
	printf("two %d %d", 4);
	-> 0;
}
`, lower.Options{})

	m, err := Translate(context.Background(), p)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Verify())

	s := m.IR()
	t.Logf("ir:\n%s", s)

	assert.Contains(t, s, "declare i32 @printf(i32")
	assert.Contains(t, s, "call i32 @printf(i32 1, i32 2)")
	assert.Contains(t, s, `c"one %d\00"`)
	assert.Contains(t, s, `c"two %d %d\00"`)
}
