package vm

import (
	"errors"
	"fmt"

	"github.com/sfexlang/sfex/internal/ir"
)

// ErrUnsupported marks a body the backend declines to compile. Compilation
// is advisory: the tier manager leaves such sites permanently interpreted
// and nothing user-visible changes.
var ErrUnsupported = errors.New("unsupported construct for code generation")

// Compiler lowers a method-body IR to a bytecode chunk. Bodies containing
// calls or Proceed are declined: delegation must stay on the interpreter
// path where the dispatch chain and per-site profiles live.
type Compiler struct {
	chunk  *Chunk
	locals map[string]int
}

// Compile compiles one method body for the given concept.
func Compile(concept string, m *ir.Method) (*Chunk, error) {
	if m.IsNative() {
		return nil, fmt.Errorf("native method %s.%s: %w", concept, m.Name, ErrUnsupported)
	}
	if ir.HasCalls(m.Body) {
		return nil, fmt.Errorf("method %s.%s contains calls: %w", concept, m.Name, ErrUnsupported)
	}

	c := &Compiler{
		chunk:  NewChunk(concept, m.Name),
		locals: make(map[string]int, len(m.Params)),
	}
	for i, p := range m.Params {
		c.locals[p] = i
	}
	c.chunk.ParamCount = len(m.Params)
	c.chunk.WrittenFields = ir.WrittenFields(m.Body)

	if err := c.compileBlock(m.Body); err != nil {
		return nil, err
	}
	// Implicit result of a body that falls off the end.
	c.chunk.WriteOp(OP_FALSE)
	c.chunk.WriteOp(OP_RETURN)
	c.chunk.LocalCount = len(c.locals)
	return c.chunk, nil
}

func (c *Compiler) compileBlock(b *ir.Block) error {
	if b == nil {
		return nil
	}
	for _, s := range b.Stmts {
		if err := c.compileStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileStmt(s ir.Stmt) error {
	switch stmt := s.(type) {
	case *ir.Block:
		return c.compileBlock(stmt)

	case *ir.Set:
		if err := c.compileExpr(stmt.Value); err != nil {
			return err
		}
		idx := c.chunk.AddConstant(fieldName(stmt.Field))
		c.chunk.WriteOp(OP_SET_FIELD)
		c.chunk.WriteU16(idx)
		return nil

	case *ir.Let:
		if err := c.compileExpr(stmt.Value); err != nil {
			return err
		}
		c.chunk.WriteOp(OP_SET_LOCAL)
		c.chunk.WriteByte(byte(c.slot(stmt.Name)))
		return nil

	case *ir.Assign:
		if err := c.compileExpr(stmt.Value); err != nil {
			return err
		}
		c.chunk.WriteOp(OP_SET_LOCAL)
		c.chunk.WriteByte(byte(c.slot(stmt.Name)))
		return nil

	case *ir.If:
		if err := c.compileExpr(stmt.Cond); err != nil {
			return err
		}
		elseJump := c.emitJump(OP_JUMP_IF_FALSE)
		if err := c.compileBlock(stmt.Then); err != nil {
			return err
		}
		endJump := c.emitJump(OP_JUMP)
		c.patchJump(elseJump)
		if err := c.compileBlock(stmt.Else); err != nil {
			return err
		}
		c.patchJump(endJump)
		return nil

	case *ir.While:
		loopStart := c.chunk.Len()
		if err := c.compileExpr(stmt.Cond); err != nil {
			return err
		}
		exitJump := c.emitJump(OP_JUMP_IF_FALSE)
		if err := c.compileBlock(stmt.Body); err != nil {
			return err
		}
		c.emitLoop(loopStart)
		c.patchJump(exitJump)
		return nil

	case *ir.Return:
		if stmt.Value == nil {
			c.chunk.WriteOp(OP_FALSE)
		} else if err := c.compileExpr(stmt.Value); err != nil {
			return err
		}
		c.chunk.WriteOp(OP_RETURN)
		return nil

	case *ir.ExprStmt:
		if err := c.compileExpr(stmt.X); err != nil {
			return err
		}
		c.chunk.WriteOp(OP_POP)
		return nil

	default:
		return fmt.Errorf("statement %T: %w", s, ErrUnsupported)
	}
}

func (c *Compiler) compileExpr(e ir.Expr) error {
	switch expr := e.(type) {
	case *ir.Lit:
		idx := c.chunk.AddConstant(expr.Value)
		c.chunk.WriteOp(OP_CONST)
		c.chunk.WriteU16(idx)
		return nil

	case *ir.Param:
		slot, ok := c.locals[expr.Name]
		if !ok {
			return fmt.Errorf("unknown parameter %q: %w", expr.Name, ErrUnsupported)
		}
		c.chunk.WriteOp(OP_GET_LOCAL)
		c.chunk.WriteByte(byte(slot))
		return nil

	case *ir.Local:
		slot, ok := c.locals[expr.Name]
		if !ok {
			return fmt.Errorf("unknown local %q: %w", expr.Name, ErrUnsupported)
		}
		c.chunk.WriteOp(OP_GET_LOCAL)
		c.chunk.WriteByte(byte(slot))
		return nil

	case *ir.FieldRead:
		idx := c.chunk.AddConstant(fieldName(expr.Name))
		c.chunk.WriteOp(OP_GET_FIELD)
		c.chunk.WriteU16(idx)
		return nil

	case *ir.Binary:
		return c.compileBinary(expr)

	case *ir.Unary:
		if err := c.compileExpr(expr.Operand); err != nil {
			return err
		}
		switch expr.Op {
		case ir.OpNot:
			c.chunk.WriteOp(OP_NOT)
		case ir.OpNeg:
			c.chunk.WriteOp(OP_NEG)
		case ir.OpLen:
			c.chunk.WriteOp(OP_LEN)
		default:
			return fmt.Errorf("unary operator %d: %w", expr.Op, ErrUnsupported)
		}
		return nil

	default:
		return fmt.Errorf("expression %T: %w", e, ErrUnsupported)
	}
}

var binaryOps = map[ir.BinOp]Opcode{
	ir.OpAdd:   OP_ADD,
	ir.OpSub:   OP_SUB,
	ir.OpMul:   OP_MUL,
	ir.OpDiv:   OP_DIV,
	ir.OpMod:   OP_MOD,
	ir.OpEq:    OP_EQ,
	ir.OpNe:    OP_NE,
	ir.OpLt:    OP_LT,
	ir.OpLe:    OP_LE,
	ir.OpGt:    OP_GT,
	ir.OpGe:    OP_GE,
	ir.OpIndex: OP_INDEX,
}

func (c *Compiler) compileBinary(expr *ir.Binary) error {
	switch expr.Op {
	case ir.OpAnd:
		if err := c.compileExpr(expr.Left); err != nil {
			return err
		}
		elseJump := c.emitJump(OP_JUMP_IF_FALSE)
		if err := c.compileExpr(expr.Right); err != nil {
			return err
		}
		c.chunk.WriteOp(OP_TRUTHY)
		endJump := c.emitJump(OP_JUMP)
		c.patchJump(elseJump)
		c.chunk.WriteOp(OP_FALSE)
		c.patchJump(endJump)
		return nil

	case ir.OpOr:
		if err := c.compileExpr(expr.Left); err != nil {
			return err
		}
		rhsJump := c.emitJump(OP_JUMP_IF_FALSE)
		c.chunk.WriteOp(OP_TRUE)
		endJump := c.emitJump(OP_JUMP)
		c.patchJump(rhsJump)
		if err := c.compileExpr(expr.Right); err != nil {
			return err
		}
		c.chunk.WriteOp(OP_TRUTHY)
		c.patchJump(endJump)
		return nil
	}

	op, ok := binaryOps[expr.Op]
	if !ok {
		return fmt.Errorf("binary operator %d: %w", expr.Op, ErrUnsupported)
	}
	if err := c.compileExpr(expr.Left); err != nil {
		return err
	}
	if err := c.compileExpr(expr.Right); err != nil {
		return err
	}
	c.chunk.WriteOp(op)
	return nil
}

// slot returns the local slot for name, allocating one on first use.
func (c *Compiler) slot(name string) int {
	if s, ok := c.locals[name]; ok {
		return s
	}
	s := len(c.locals)
	c.locals[name] = s
	return s
}

// emitJump writes op with a placeholder operand and returns the operand
// offset for patching.
func (c *Compiler) emitJump(op Opcode) int {
	c.chunk.WriteOp(op)
	c.chunk.WriteU16(0xffff)
	return c.chunk.Len() - 2
}

// patchJump fixes a forward jump to land after the current instruction.
func (c *Compiler) patchJump(operandAt int) {
	dist := c.chunk.Len() - operandAt - 2
	c.chunk.Code[operandAt] = byte(dist >> 8)
	c.chunk.Code[operandAt+1] = byte(dist)
}

// emitLoop writes a backward jump to loopStart.
func (c *Compiler) emitLoop(loopStart int) {
	c.chunk.WriteOp(OP_LOOP)
	dist := c.chunk.Len() + 2 - loopStart
	c.chunk.WriteU16(dist)
}
