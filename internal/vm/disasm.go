package vm

import (
	"fmt"
	"strings"

	"github.com/sfexlang/sfex/internal/value"
)

// Disassemble renders a chunk for debugging and tests.
func Disassemble(c *Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s.%s ==\n", c.Concept, c.Method)
	for ip := 0; ip < len(c.Code); {
		ip = disasmInstruction(&b, c, ip)
	}
	return b.String()
}

func disasmInstruction(b *strings.Builder, c *Chunk, ip int) int {
	op := Opcode(c.Code[ip])
	fmt.Fprintf(b, "%04d %s", ip, op)
	ip++
	switch op {
	case OP_CONST, OP_GET_FIELD, OP_SET_FIELD:
		idx := c.ReadU16(ip)
		ip += 2
		if idx < len(c.Constants) {
			fmt.Fprintf(b, " %d (%s)", idx, value.Debug(c.Constants[idx]))
		} else {
			fmt.Fprintf(b, " %d (?)", idx)
		}
	case OP_GET_LOCAL, OP_SET_LOCAL:
		fmt.Fprintf(b, " %d", c.Code[ip])
		ip++
	case OP_JUMP, OP_JUMP_IF_FALSE:
		dist := c.ReadU16(ip)
		ip += 2
		fmt.Fprintf(b, " -> %04d", ip+dist)
	case OP_LOOP:
		dist := c.ReadU16(ip)
		ip += 2
		fmt.Fprintf(b, " -> %04d", ip-dist)
	}
	b.WriteByte('\n')
	return ip
}
