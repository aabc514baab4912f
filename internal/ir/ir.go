// Package ir defines the intermediate representation of method bodies that
// the evaluator layer hands to the engine: the interpreter tier walks it and
// the code-generation backend compiles it. It is deliberately small
// (control flow, value operations, field access, calls and Proceed) and
// carries no source syntax.
package ir

import "github.com/sfexlang/sfex/internal/value"

// Expr is a side-effect-free expression node, except Call and Proceed which
// may run arbitrary bodies.
type Expr interface{ exprNode() }

// Stmt is a statement node.
type Stmt interface{ stmtNode() }

// BinOp enumerates binary operators.
type BinOp uint8

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpIndex
)

// UnOp enumerates unary operators.
type UnOp uint8

const (
	OpNot UnOp = iota
	OpNeg
	OpLen
)

type (
	// Lit is a literal value.
	Lit struct{ Value value.Value }

	// Param reads a method parameter by name.
	Param struct{ Name string }

	// Local reads a local variable introduced by Let.
	Local struct{ Name string }

	// FieldRead reads a field of the receiver instance.
	FieldRead struct{ Name string }

	// Binary applies Op to Left and Right.
	Binary struct {
		Op          BinOp
		Left, Right Expr
	}

	// Unary applies Op to Operand.
	Unary struct {
		Op      UnOp
		Operand Expr
	}

	// Call invokes another method on the receiver instance. It goes back
	// through the tier manager so the callee site keeps its own profile.
	// Site is the stable call-site identifier minted by the evaluator
	// layer for this source call expression.
	Call struct {
		Site   string
		Method string
		Args   []Expr
	}

	// Proceed delegates to the next element of the resolution chain. Legal
	// only inside an adjustment body.
	Proceed struct{ Args []Expr }
)

func (*Lit) exprNode()       {}
func (*Param) exprNode()     {}
func (*Local) exprNode()     {}
func (*FieldRead) exprNode() {}
func (*Binary) exprNode()    {}
func (*Unary) exprNode()     {}
func (*Call) exprNode()      {}
func (*Proceed) exprNode()   {}

type (
	// Block is a statement sequence.
	Block struct{ Stmts []Stmt }

	// Set writes a field of the receiver instance. Field writes are routed
	// through the reactive graph, never applied raw.
	Set struct {
		Field string
		Value Expr
	}

	// Let introduces a local variable.
	Let struct {
		Name  string
		Value Expr
	}

	// Assign updates an existing local variable.
	Assign struct {
		Name  string
		Value Expr
	}

	// If executes Then when Cond is truthy, Else otherwise.
	If struct {
		Cond Expr
		Then *Block
		Else *Block
	}

	// While repeats Body while Cond is truthy.
	While struct {
		Cond Expr
		Body *Block
	}

	// Return ends the body. A nil Value returns Boolean False, the
	// language's implicit result.
	Return struct{ Value Expr }

	// ExprStmt evaluates X for its effects.
	ExprStmt struct{ X Expr }
)

func (*Block) stmtNode()    {}
func (*Set) stmtNode()      {}
func (*Let) stmtNode()      {}
func (*Assign) stmtNode()   {}
func (*If) stmtNode()       {}
func (*While) stmtNode()    {}
func (*Return) stmtNode()   {}
func (*ExprStmt) stmtNode() {}

// Method is a named executable unit: a base method body, a Situation
// adjustment, or an observer body. Native methods carry a host function
// instead of a block and are never compiled.
type Method struct {
	Name   string
	Params []string
	Body   *Block
	Native value.NativeFunc
}

// IsNative reports whether the method is a registered host callable.
func (m *Method) IsNative() bool { return m.Native != nil }
