package vm

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Frame is one snapshot entry in a RuntimeError's traceback, outermost call
// last.
type Frame struct {
	Origin string
	Line   int
}

// RuntimeError is what Run returns when the chunk raises an error: a native
// operation failed (division by zero, wrong-kind argument, index out of
// range, a host builtin returning an error) or a CALL found a non-callable
// value. Trace is innermost-first, built from each live frame's chunk and
// current instruction.
type RuntimeError struct {
	Message string
	Trace   []Frame
	cause   error
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, f := range e.Trace {
		fmt.Fprintf(&b, "\n\tat %s:%d", f.Origin, f.Line)
	}
	return b.String()
}

func (e *RuntimeError) Unwrap() error { return e.cause }

// raise panics with a *RuntimeError built from the live frame stack; it is
// recovered and returned by Run, mirroring the reference VM's panic/recover
// non-local exit.
func (i *Instance) raise(format string, args ...interface{}) {
	panic(i.newError(fmt.Sprintf(format, args...), nil))
}

func (i *Instance) raiseErr(err error) {
	panic(i.newError(err.Error(), err))
}

func (i *Instance) newError(msg string, cause error) *RuntimeError {
	trace := make([]Frame, 0, len(i.frames))
	for k := len(i.frames) - 1; k >= 0; k-- {
		f := &i.frames[k]
		trace = append(trace, Frame{Origin: f.chunk.Origin, Line: f.chunk.LineFor(f.ip)})
	}
	return &RuntimeError{Message: msg, Trace: trace, cause: errors.WithStack(cause)}
}
