package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/shdown/calx/compiler"
	"github.com/shdown/calx/vm"
)

var (
	parseErrorHeader   = color.New(color.FgRed, color.Bold)
	runtimeErrorHeader = color.New(color.FgRed, color.Bold)
	traceLine          = color.New(color.Faint)
)

// renderParseError prints a ParseError the way the reference REPL/CLI does:
// a ">>> Parse error at ORIGIN:LINE:COL:" header, the offending source line,
// a caret-and-tildes underline spanning the failing token, and the message.
func (e *env) renderParseError(src string, pe *compiler.ParseError) {
	e.headerf(parseErrorHeader, ">>> Parse error at %s:%d:%d:", pe.Origin, pe.Line, pe.Col)

	line := sourceLine(src, pe.Line)
	fmt.Fprintln(e.stderr, line)
	fmt.Fprintln(e.stderr, underline(line, pe.Col, pe.Size))
	fmt.Fprintln(e.stderr, pe.Message)
}

// renderRuntimeError prints a *vm.RuntimeError's message and traceback, or
// falls back to a plain one-liner for any other error shape.
func (e *env) renderRuntimeError(err error) {
	re, ok := err.(*vm.RuntimeError)
	if !ok {
		fmt.Fprintf(e.stderr, "calx: %v\n", err)
		return
	}
	e.headerf(runtimeErrorHeader, "Runtime error: %s", re.Message)
	for _, f := range re.Trace {
		e.tracef("\tat %s:%d", f.Origin, f.Line)
	}
}

func (e *env) headerf(c *color.Color, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if e.color {
		c.Fprintln(e.stderr, msg)
	} else {
		fmt.Fprintln(e.stderr, msg)
	}
}

func (e *env) tracef(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if e.color {
		traceLine.Fprintln(e.stderr, msg)
	} else {
		fmt.Fprintln(e.stderr, msg)
	}
}

// sourceLine returns the 1-indexed n'th line of src, or "" if src has fewer
// lines (can happen for an error reported at EOF).
func sourceLine(src string, n int) string {
	lines := strings.Split(src, "\n")
	if n < 1 || n > len(lines) {
		return ""
	}
	return lines[n-1]
}

// underline builds a caret-and-tildes marker under the token starting at the
// 1-indexed byte column col and spanning size bytes of line, using
// go-runewidth so multibyte runes shift the marker by their real terminal
// width rather than one column per byte.
func underline(line string, col, size int) string {
	if col < 1 {
		col = 1
	}
	var b strings.Builder
	width := 0
	for i, r := range line {
		if i >= col-1 {
			break
		}
		width += runeDisplayWidth(r)
	}
	b.WriteString(strings.Repeat(" ", width))

	span := runewidth.StringWidth(tokenSpan(line, col, size))
	if span < 1 {
		span = 1
	}
	b.WriteByte('^')
	if span > 1 {
		b.WriteString(strings.Repeat("~", span-1))
	}
	return b.String()
}

// tokenSpan extracts the byte range [col-1, col-1+size) of line, clamped to
// its bounds.
func tokenSpan(line string, col, size int) string {
	start := col - 1
	if start < 0 {
		start = 0
	}
	if start > len(line) {
		start = len(line)
	}
	end := start + size
	if end > len(line) {
		end = len(line)
	}
	return line[start:end]
}

// runeDisplayWidth reports r's terminal display width, treating an invalid
// UTF-8 byte (utf8.RuneError with size 1) as width 1.
func runeDisplayWidth(r rune) int {
	w := runewidth.RuneWidth(r)
	if w < 0 {
		return 1
	}
	return w
}
