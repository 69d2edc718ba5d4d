package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/kr/pretty"
	"github.com/yotlang/yotc/compiler"
	"github.com/yotlang/yotc/compiler/format"
	"github.com/yotlang/yotc/compiler/front"
	"github.com/yotlang/yotc/compiler/ir"
)

func main() {
	parseCmd := &cli.Command{
		Name:        "parse",
		Description: "print abstract syntax tree",
		Action:      parseAct,
		Args:        cli.Args{},
	}

	fmtCmd := &cli.Command{
		Name:        "fmt",
		Description: "print source in canonical form",
		Action:      fmtAct,
		Args:        cli.Args{},
	}

	runCmd := &cli.Command{
		Name:        "run",
		Description: "evaluate main with the reference interpreter, exit with its result",
		Action:      runAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("branching", false, "lower if statements into branches"),
		},
	}

	app := &cli.Command{
		Name:        "yotc",
		Description: "yotc is a compiler for yot lang - a toy language",
		Before:      before,
		Action:      compileAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("output,o", "", "path to generated output (default <input-stem>.<ext>)"),
			cli.NewFlag("output-format,f", "executable", "the type of file to output: llvm, object-file, executable"),
			cli.NewFlag("optimization,O", 2, "level of optimization (0-3)"),
			cli.NewFlag("print-tokens", false, "print raw tokens from the lexer"),
			cli.NewFlag("print-ast", false, "print the raw abstract syntax tree"),
			cli.NewFlag("branching", false, "lower if statements into branches"),
			cli.NewFlag("verbosity,v", "", "logger verbosity topics (lex,parse,lower,dump_ir,eval)"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			parseCmd,
			fmtCmd,
			runCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}

func compileAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	if len(c.Args) != 1 {
		return errors.New("exactly one input file expected, got %d", len(c.Args))
	}

	f, err := compiler.ParseFormat(c.String("output-format"))
	if err != nil {
		return err
	}

	cfg := compiler.Config{
		Input:        c.Args[0],
		Output:       c.String("output"),
		Format:       f,
		Optimization: c.Int("optimization"),
		PrintTokens:  c.Bool("print-tokens"),
		PrintAST:     c.Bool("print-ast"),
		Branching:    c.Bool("branching"),
	}

	return compiler.Run(ctx, cfg)
}

func parseAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		f, err := front.ReadFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		x, err := front.Parse(ctx, f)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		pretty.Printf("%# v\n", x)
	}

	return nil
}

func fmtAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		f, err := front.ReadFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "fmt %v", a)
		}

		x, err := front.Parse(ctx, f)
		if err != nil {
			return errors.Wrap(err, "fmt %v", a)
		}

		b, err := format.Format(ctx, nil, x)
		if err != nil {
			return errors.Wrap(err, "fmt %v", a)
		}

		_, err = os.Stdout.Write(b)
		if err != nil {
			return err
		}
	}

	return nil
}

func runAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	if len(c.Args) == 0 {
		return errors.New("input file expected")
	}

	f, err := front.ReadFile(ctx, c.Args[0])
	if err != nil {
		return errors.Wrap(err, "run")
	}

	p, err := compiler.Build(ctx, f, compiler.Config{Branching: c.Bool("branching")})
	if err != nil {
		return errors.Wrap(err, "run")
	}

	args := make([]int32, 0, len(c.Args)-1)

	for _, a := range c.Args[1:] {
		v, err := strconv.ParseInt(a, 10, 32)
		if err != nil {
			return errors.Wrap(err, "argument %q", a)
		}

		args = append(args, int32(v))
	}

	m := ir.NewMachine(p)
	m.Externs["putchar"] = putchar
	m.Externs["puts"] = puts

	r, err := m.Call(ctx, "main", args...)
	if err != nil {
		return errors.Wrap(err, "run")
	}

	os.Exit(int(r))

	return nil
}

func putchar(ctx context.Context, args []any) (int32, error) {
	c, ok := args[0].(int32)
	if !ok {
		return 0, errors.New("putchar: integer expected, got %T", args[0])
	}

	_, err := os.Stdout.Write([]byte{byte(c)})
	if err != nil {
		return -1, err
	}

	return c, nil
}

func puts(ctx context.Context, args []any) (int32, error) {
	s, ok := args[0].(string)
	if !ok {
		return 0, errors.New("puts: string expected, got %T", args[0])
	}

	_, err := fmt.Println(s)
	if err != nil {
		return -1, err
	}

	return 0, nil
}
