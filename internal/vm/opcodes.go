// Package vm is the generated-code tier: a compiler from method-body IR to
// compact bytecode and a stack machine that executes it. Field writes are
// buffered and committed only after every guard has been re-checked, so a
// guard failure mid-execution traps back to the interpreter with no
// partially applied side effects.
package vm

// Opcode is a single instruction.
type Opcode byte

const (
	// Stack manipulation
	OP_CONST Opcode = iota // Push constant from pool (2-byte index)
	OP_POP                 // Discard top of stack
	OP_TRUE                // Push Boolean True
	OP_FALSE               // Push Boolean False

	// Arithmetic
	OP_ADD
	OP_SUB
	OP_MUL
	OP_DIV
	OP_MOD
	OP_NEG // Unary minus

	// Comparison
	OP_EQ
	OP_NE
	OP_LT
	OP_LE
	OP_GT
	OP_GE

	// Logic / misc unary
	OP_NOT
	OP_TRUTHY // Convert top of stack to its Boolean truthiness
	OP_LEN
	OP_INDEX // 1-based container indexing

	// Locals (params occupy the first slots)
	OP_GET_LOCAL // 1-byte slot
	OP_SET_LOCAL // 1-byte slot

	// Receiver fields
	OP_GET_FIELD // 2-byte name constant; reads through the write buffer
	OP_SET_FIELD // 2-byte name constant; buffers the write, commit at return

	// Control flow
	OP_JUMP          // 2-byte forward offset
	OP_JUMP_IF_FALSE // 2-byte forward offset, pops condition
	OP_LOOP          // 2-byte backward offset

	OP_RETURN // Guard-check and commit buffered writes, then return TOS
)

var opNames = [...]string{
	OP_CONST:         "CONST",
	OP_POP:           "POP",
	OP_TRUE:          "TRUE",
	OP_FALSE:         "FALSE",
	OP_ADD:           "ADD",
	OP_SUB:           "SUB",
	OP_MUL:           "MUL",
	OP_DIV:           "DIV",
	OP_MOD:           "MOD",
	OP_NEG:           "NEG",
	OP_EQ:            "EQ",
	OP_NE:            "NE",
	OP_LT:            "LT",
	OP_LE:            "LE",
	OP_GT:            "GT",
	OP_GE:            "GE",
	OP_NOT:           "NOT",
	OP_TRUTHY:        "TRUTHY",
	OP_LEN:           "LEN",
	OP_INDEX:         "INDEX",
	OP_GET_LOCAL:     "GET_LOCAL",
	OP_SET_LOCAL:     "SET_LOCAL",
	OP_GET_FIELD:     "GET_FIELD",
	OP_SET_FIELD:     "SET_FIELD",
	OP_JUMP:          "JUMP",
	OP_JUMP_IF_FALSE: "JUMP_IF_FALSE",
	OP_LOOP:          "LOOP",
	OP_RETURN:        "RETURN",
}

func (op Opcode) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "UNKNOWN"
}
