// Command calx is the calx interpreter: an interactive REPL, or a one-shot
// runner for a file or a -c code string.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/shdown/calx/compiler"
	"github.com/shdown/calx/host"
	"github.com/shdown/calx/vm"
)

// codeFlag is a flag.Value that also counts how many times -c was given, so
// "more than one -c" can be rejected as a usage error (flag.StringVar would
// silently keep only the last one).
type codeFlag struct {
	value string
	n     int
}

func (c *codeFlag) String() string { return c.value }
func (c *codeFlag) Set(s string) error {
	c.n++
	c.value = s
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("calx", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var code codeFlag
	fs.Var(&code, "c", "execute `CODE` as if a file")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s [-c CODE | FILE]\n", fs.Name())
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()

	switch {
	case code.n > 1:
		fmt.Fprintln(stderr, "calx: -c may only be given once")
		fs.Usage()
		return 2
	case code.n == 1 && len(rest) > 0:
		fmt.Fprintln(stderr, "calx: -c and a file argument are mutually exclusive")
		fs.Usage()
		return 2
	case len(rest) > 1:
		fmt.Fprintln(stderr, "calx: at most one file argument is allowed")
		fs.Usage()
		return 2
	}

	useColor := isatty.IsTerminal(fileFd(stdout))
	e := newEnv(stdout, stderr, useColor)

	switch {
	case code.n == 1:
		return e.runSource("<-c>", code.value, stdin, stdout)
	case len(rest) == 1:
		return e.runFile(rest[0], stdin, stdout)
	default:
		return e.repl(stdin, stdout)
	}
}

// fileFd extracts the OS file descriptor behind w, or an invalid one if w
// isn't an *os.File (so isatty reports false and color stays off).
func fileFd(w io.Writer) uintptr {
	if f, ok := w.(*os.File); ok {
		return f.Fd()
	}
	return ^uintptr(0)
}

// env bundles the pieces shared by runSource/runFile/repl: where diagnostics
// and program output go, and whether to colorize them.
type env struct {
	stdout, stderr io.Writer
	color          bool
}

func newEnv(stdout, stderr io.Writer, color bool) *env {
	return &env{stdout: stdout, stderr: stderr, color: color}
}

// newInstance builds a fresh vm.Instance with every host builtin installed
// and Require wired to CALX_PATH.
func newInstance(stdin io.Reader, stdout io.Writer) *vm.Instance {
	i, err := vm.New(vm.Output(stdout), vm.Require(host.FileLoader(calxPath())))
	if err != nil {
		panic(err) // vm.New only fails if an Option does; none here can.
	}
	host.Install(i, stdin)
	return i
}

func calxPath() string {
	if p := os.Getenv("CALX_PATH"); p != "" {
		return p
	}
	return "."
}

// runFile executes the named file ("-" means stdin) and returns the process
// exit code.
func (e *env) runFile(name string, stdin io.Reader, stdout io.Writer) int {
	var src []byte
	var err error
	origin := name
	if name == "-" {
		origin = "<stdin>"
		src, err = io.ReadAll(stdin)
	} else {
		src, err = os.ReadFile(name)
	}
	if err != nil {
		fmt.Fprintf(e.stderr, "calx: %v\n", err)
		return 1
	}
	return e.runSource(origin, string(src), stdin, stdout)
}

// runSource compiles and runs one complete program, rendering any parse or
// runtime error, and returns the process exit code. A panic that is not a
// *vm.RuntimeError (allocator/sizing overflow — §5, §7.6) is treated as
// fatal: logged as a single-line diagnostic and turned into exit code 1
// rather than an unhandled Go stack trace.
func (e *env) runSource(origin, src string, stdin io.Reader, stdout io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fatalf("fatal: %v", r)
			code = 1
		}
	}()

	i := newInstance(stdin, stdout)
	chunk, err := compiler.Compile(origin, src, i)
	if err != nil {
		if pe, ok := err.(*compiler.ParseError); ok {
			e.renderParseError(src, pe)
			return 1
		}
		fmt.Fprintf(e.stderr, "calx: %v\n", err)
		return 1
	}
	maybeDumpChunk(chunk)
	if _, err := i.Run(chunk); err != nil {
		e.renderRuntimeError(err)
		return 1
	}
	reportStats(i)
	return 0
}
