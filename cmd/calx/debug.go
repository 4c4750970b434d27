package main

import (
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/shdown/calx/bytecode"
	"github.com/shdown/calx/vm"
)

// debugLog is the package-level logger CALX_DEBUG dumps and fatal-abort
// diagnostics go through, configured with a bare text formatter (no
// timestamps) to match the teacher's terse stderr register.
var debugLog = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})
	l.SetLevel(logrus.DebugLevel)
	return l
}()

var debugEnabled = strings.Contains(os.Getenv("CALX_DEBUG"), "1")

// maybeDumpChunk writes chunk's disassembly to stderr via debugLog when
// CALX_DEBUG contains '1'.
func maybeDumpChunk(chunk *bytecode.Chunk) {
	if !debugEnabled {
		return
	}
	debugLog.Debugf("compiled %s: %s instructions, %s constants\n%s",
		chunk.Origin,
		humanize.Comma(int64(len(chunk.Instrs))),
		humanize.Comma(int64(len(chunk.Consts))),
		chunk.Disassemble())
}

// reportStats logs a humanized instruction count when CALX_DEBUG is set,
// called after a program finishes running.
func reportStats(i *vm.Instance) {
	if !debugEnabled {
		return
	}
	debugLog.Debugf("executed %s instructions", humanize.Comma(i.InstructionCount()))
}

// fatalf logs a single-line diagnostic for an unrecoverable condition
// (allocation failure, sizing overflow) and aborts the process, matching
// §5/§7.6's "abort with a single-line diagnostic; never recoverable".
func fatalf(format string, args ...interface{}) {
	debugLog.Fatalf(format, args...)
}
