package vm

import "github.com/sfexlang/sfex/internal/value"

// Chunk is one compiled method body: bytecode, constant pool and the
// metadata the tier manager needs to guard it.
type Chunk struct {
	// Code is the bytecode instructions.
	Code []byte

	// Constants pool - literals and field names.
	Constants []value.Value

	// Concept and Method name the chunk was compiled for.
	Concept string
	Method  string

	// ParamCount params occupy local slots [0, ParamCount).
	ParamCount int

	// LocalCount is the total number of local slots including params.
	LocalCount int

	// WrittenFields are the receiver fields the body may write. The tier
	// manager refuses promotion while an observer depends on any of them,
	// and the VM re-checks the same condition before committing.
	WrittenFields []string
}

// NewChunk creates an empty chunk.
func NewChunk(concept, method string) *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 64),
		Constants: make([]value.Value, 0, 8),
		Concept:   concept,
		Method:    method,
	}
}

// WriteOp appends an opcode.
func (c *Chunk) WriteOp(op Opcode) {
	c.Code = append(c.Code, byte(op))
}

// WriteByte appends a raw operand byte.
func (c *Chunk) WriteByte(b byte) {
	c.Code = append(c.Code, b)
}

// WriteU16 appends a 2-byte big-endian operand.
func (c *Chunk) WriteU16(v int) {
	c.Code = append(c.Code, byte(v>>8), byte(v))
}

// AddConstant adds a constant to the pool and returns its index.
func (c *Chunk) AddConstant(v value.Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// ReadU16 reads a 2-byte operand at offset.
func (c *Chunk) ReadU16(offset int) int {
	return int(c.Code[offset])<<8 | int(c.Code[offset+1])
}

// Len returns the number of bytes in the chunk.
func (c *Chunk) Len() int { return len(c.Code) }

// fieldName wraps a field name for the constant pool.
func fieldName(name string) value.Value { return value.Str(name) }
