package back

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"sync"

	"tinygo.org/x/go-llvm"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

const DefaultOptimization = 2

var initTargets sync.Once

// CodeGenLevel maps optimization level 0..3.
// Anything else falls back to DefaultOptimization with a warning.
func CodeGenLevel(ctx context.Context, opt int) (llvm.CodeGenOptLevel, int) {
	switch opt {
	case 0:
		return llvm.CodeGenLevelNone, opt
	case 1:
		return llvm.CodeGenLevelLess, opt
	case 2:
		return llvm.CodeGenLevelDefault, opt
	case 3:
		return llvm.CodeGenLevelAggressive, opt
	}

	tlog.SpanFromContext(ctx).Printw("invalid optimization level, using default", "level", opt, "default", DefaultOptimization, "", tlog.Warn)

	return llvm.CodeGenLevelDefault, DefaultOptimization
}

// EmitObject generates object file for the host default target.
func (m *Module) EmitObject(ctx context.Context, opt int) (obj []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: emit object", "opt", opt)
	defer tr.Finish("err", &err)

	initTargets.Do(func() {
		llvm.InitializeAllTargetInfos()
		llvm.InitializeAllTargets()
		llvm.InitializeAllTargetMCs()
		llvm.InitializeAllAsmParsers()
		llvm.InitializeAllAsmPrinters()
	})

	triple := llvm.DefaultTargetTriple()

	target, err := llvm.GetTargetFromTriple(triple)
	if err != nil {
		return nil, errors.Wrap(err, "get target %v", triple)
	}

	level, opt := CodeGenLevel(ctx, opt)

	tr.Printw("target", "triple", triple, "opt", opt)

	tm := target.CreateTargetMachine(triple, "generic", "", level, llvm.RelocPIC, llvm.CodeModelDefault)
	defer tm.Dispose()

	m.mod.SetTarget(triple)

	td := tm.CreateTargetData()
	defer td.Dispose()

	m.mod.SetDataLayout(td.String())

	buf, err := tm.EmitToMemoryBuffer(m.mod, llvm.ObjectFile)
	if err != nil {
		return nil, errors.Wrap(err, "emit")
	}

	defer buf.Dispose()

	obj = append([]byte{}, buf.Bytes()...)

	tr.Printw("object emitted", "size", len(obj))

	return obj, nil
}

// Link combines one object file into an executable with the system C compiler driver.
// $CC overrides the driver.
func Link(ctx context.Context, obj, out string) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: link", "obj", obj, "out", out)
	defer tr.Finish("err", &err)

	cc := os.Getenv("CC")
	if cc == "" {
		cc = "cc"
	}

	var stderr strings.Builder

	cmd := exec.CommandContext(ctx, cc, obj, "-o", out)
	cmd.Stderr = &stderr

	err = cmd.Run()
	if err != nil {
		return errors.Wrap(err, "%v: %s", cc, strings.TrimSpace(stderr.String()))
	}

	return nil
}
