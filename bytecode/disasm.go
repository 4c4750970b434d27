package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders c's instructions one per line, annotated with the
// source line from Quarks whenever it changes. Used by the CALX_DEBUG dump.
func (c *Chunk) Disassemble() string {
	var b strings.Builder
	fmt.Fprintf(&b, "; chunk %s (%d instrs, %d consts, %d shapes)\n", c.Origin, len(c.Instrs), len(c.Consts), len(c.Shapes))
	lastLine := -1
	for i, instr := range c.Instrs {
		line := c.LineFor(i)
		if line != lastLine {
			fmt.Fprintf(&b, "%4d:\n", line)
			lastLine = line
		}
		fmt.Fprintf(&b, "  %04d  %-16s a=%-3d c=%d\n", i, instr.Op(), instr.A(), instr.C())
	}
	for i, s := range c.Shapes {
		fmt.Fprintf(&b, "; shape %d: nargs=%d nlocals=%d offset=%d maxstack=%d\n",
			i, s.NArgsEncoded, s.NLocals, s.Offset, s.MaxStack)
	}
	return b.String()
}
