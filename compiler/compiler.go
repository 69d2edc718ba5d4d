package compiler

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kr/pretty"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/yotlang/yotc/compiler/back"
	"github.com/yotlang/yotc/compiler/front"
	"github.com/yotlang/yotc/compiler/ir"
	"github.com/yotlang/yotc/compiler/lower"
)

type (
	Format int

	Config struct {
		Input  string
		Output string // DefaultOutput if empty

		Format       Format
		Optimization int

		PrintTokens bool
		PrintAST    bool

		Branching bool

		Stdout io.Writer // tokens and AST dumps, os.Stdout if nil
	}

	// StageError tells which compilation stage failed.
	StageError struct {
		Stage string
		Err   error
	}
)

const (
	Executable Format = iota
	TextIR
	ObjectFile
)

var formats = []struct {
	name, ext string
}{
	Executable: {"executable", "out"},
	TextIR:     {"llvm", "ll"},
	ObjectFile: {"object-file", "o"},
}

func ParseFormat(s string) (Format, error) {
	for f, x := range formats {
		if x.name == s {
			return Format(f), nil
		}
	}

	return 0, errors.New("unknown output format: %q", s)
}

func (f Format) String() string {
	if f < 0 || int(f) >= len(formats) {
		return fmt.Sprintf("Format(%d)", int(f))
	}

	return formats[f].name
}

func (f Format) Ext() string {
	if f < 0 || int(f) >= len(formats) {
		return "out"
	}

	return formats[f].ext
}

// Stem is the input file name without directory and extension.
func Stem(input string) string {
	base := filepath.Base(input)

	return strings.TrimSuffix(base, filepath.Ext(base))
}

func DefaultOutput(input string, f Format) string {
	return Stem(input) + "." + f.Ext()
}

// Run compiles cfg.Input into the requested artifact.
func Run(ctx context.Context, cfg Config) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "input", cfg.Input, "format", cfg.Format)
	defer tr.Finish("err", &err)

	if cfg.Output == "" {
		cfg.Output = DefaultOutput(cfg.Input, cfg.Format)
	}

	f, err := front.ReadFile(ctx, cfg.Input)
	if err != nil {
		return stage("read", err)
	}

	p, err := Build(ctx, f, cfg)
	if err != nil {
		return err
	}

	err = ir.Verify(p)
	if err != nil {
		return stage("verify", err)
	}

	m, err := back.Translate(ctx, p)
	if err != nil {
		return stage("emit", err)
	}

	defer m.Close()

	err = m.Verify()
	if err != nil {
		return stage("verify", err)
	}

	switch cfg.Format {
	case TextIR:
		err = os.WriteFile(cfg.Output, []byte(m.IR()), 0o644)
		if err != nil {
			return stage("write", err)
		}
	case ObjectFile:
		err = writeObject(ctx, m, cfg.Optimization, cfg.Output)
		if err != nil {
			return err
		}
	case Executable:
		obj := strings.TrimSuffix(cfg.Output, filepath.Ext(cfg.Output)) + ".o"
		if obj == cfg.Output {
			obj += ".o"
		}

		err = writeObject(ctx, m, cfg.Optimization, obj)
		if err != nil {
			return err
		}

		defer func() {
			if e := os.Remove(obj); e != nil {
				tr.Printw("unable to delete object file", "obj", obj, "err", e, "", tlog.Warn)
			}
		}()

		err = back.Link(ctx, obj, cfg.Output)
		if err != nil {
			return stage("link", err)
		}
	default:
		return errors.New("unsupported output format: %v", cfg.Format)
	}

	tr.Printw("output written", "output", cfg.Output)

	return nil
}

// Build runs the front end and lowering: text -> tokens -> AST -> IR.
func Build(ctx context.Context, f *front.File, cfg Config) (p *ir.Package, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "build", "name", f.Name, "size", len(f.Text))
	defer tr.Finish("err", &err)

	w := cfg.Stdout
	if w == nil {
		w = os.Stdout
	}

	var src front.Source = front.NewLexer(f)

	if cfg.PrintTokens {
		toks, err := front.NewLexer(f).All(ctx)
		if err != nil {
			return nil, stage("lex", positioned(f, err))
		}

		fmt.Fprintf(w, "***TOKENS***\n")

		for _, t := range toks {
			fmt.Fprintf(w, "%v\n", t)
		}

		src = front.NewReplay(f, toks)
	}

	prs := front.NewParser(src)

	prog, err := prs.ParseProgram(ctx)
	if err != nil {
		st := "parse"
		if isLexError(err) {
			st = "lex"
		}

		return nil, stage(st, positioned(f, err))
	}

	if cfg.PrintAST {
		fmt.Fprintf(w, "***AST***\n")
		pretty.Fprintf(w, "%# v\n", prog)
	}

	p, err = lower.Lower(ctx, Stem(f.Name), prog, lower.Options{Branching: cfg.Branching})
	if err != nil {
		return nil, stage("lower", positioned(f, err))
	}

	return p, nil
}

func writeObject(ctx context.Context, m *back.Module, opt int, out string) error {
	obj, err := m.EmitObject(ctx, opt)
	if err != nil {
		return stage("emit", err)
	}

	err = os.WriteFile(out, obj, 0o644)
	if err != nil {
		return stage("write", err)
	}

	return nil
}

func isLexError(err error) bool {
	return errors.Is(err, front.ErrInvalidInteger) ||
		errors.Is(err, front.ErrUnknownSymbol) ||
		errors.Is(err, front.ErrUnterminatedString)
}

// positioned replaces byte offsets with file:line:col.
func positioned(f *front.File, err error) error {
	var fe *front.Error
	if errors.As(err, &fe) {
		return errors.Wrap(fe.Err, "%v", f.Where(fe.Pos))
	}

	var le *lower.Error
	if errors.As(err, &le) {
		return errors.Wrap(le.Err, "%v: in function %v", f.Where(le.Pos), le.Func)
	}

	return err
}

func stage(name string, err error) error {
	return &StageError{Stage: name, Err: err}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%v: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
