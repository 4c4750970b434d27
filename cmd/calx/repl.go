package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shdown/calx/compiler"
	"github.com/shdown/calx/vm"
)

const (
	replPrompt    = "≈≈> "
	replContinue  = "×⋅⋅⋅> "
	replOriginFmt = "<repl:%d>"
)

// repl runs an interactive read-eval-print loop, per the protocol in §6: a
// line is read and compiled; a compile failure with NeedMore set (the
// offending token was EOF) means the statement isn't finished yet, so a
// continuation line is read and appended rather than reported. A successful
// program is run and its value discarded.
func (e *env) repl(stdin io.Reader, stdout io.Writer) int {
	i := newInstance(stdin, stdout)
	e.loadRC(i)

	in := bufio.NewReader(stdin)
	n := 0
	for {
		fmt.Fprint(e.stdout, replPrompt)
		src, ok := readStatement(in, e.stdout, i)
		if !ok {
			return 0 // EOF on the primary prompt: clean exit
		}
		n++
		origin := fmt.Sprintf(replOriginFmt, n)

		chunk, err := compiler.Compile(origin, src, i)
		if err != nil {
			// this branch only reports hard errors: readStatement already
			// drove the NeedMore retry loop to completion.
			if pe, ok := err.(*compiler.ParseError); ok {
				e.renderParseError(src, pe)
			} else {
				fmt.Fprintf(e.stderr, "calx: %v\n", err)
			}
			continue
		}
		maybeDumpChunk(chunk)
		if _, err := i.Run(chunk); err != nil {
			e.renderRuntimeError(err)
		}
		reportStats(i)
	}
}

// readStatement reads one line, then keeps appending continuation lines
// (prompting with replContinue) while the accumulated source fails to
// compile solely because it ran out of input. It returns ok=false on EOF
// before any line was read. The probe compile against i interns any new
// identifiers early, but Intern is idempotent so the real compile below
// sees the same slots.
func readStatement(in *bufio.Reader, out io.Writer, i *vm.Instance) (src string, ok bool) {
	line, err := in.ReadString('\n')
	if line == "" && err != nil {
		return "", false
	}
	src = line
	for {
		_, cerr := compiler.Compile("<repl-probe>", src, i)
		pe, isParseErr := cerr.(*compiler.ParseError)
		if cerr == nil || !isParseErr || !pe.NeedMore {
			return src, true
		}
		fmt.Fprint(out, replContinue)
		more, merr := in.ReadString('\n')
		if more == "" && merr != nil {
			return src, true
		}
		src += more
	}
}

// loadRC runs CALX_PATH/rc.calx, if present, before the first prompt.
func (e *env) loadRC(i *vm.Instance) {
	rc := filepath.Join(calxPath(), "rc.calx")
	data, err := os.ReadFile(rc)
	if err != nil {
		return
	}
	chunk, cerr := compiler.Compile(rc, string(data), i)
	if cerr != nil {
		fmt.Fprintf(e.stderr, "calx: %v\n", cerr)
		return
	}
	if _, rerr := i.Run(chunk); rerr != nil {
		e.renderRuntimeError(rerr)
	}
}
