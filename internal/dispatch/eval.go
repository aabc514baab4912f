package dispatch

import (
	"github.com/sfexlang/sfex/internal/ir"
	"github.com/sfexlang/sfex/internal/object"
	"github.com/sfexlang/sfex/internal/rterr"
	"github.com/sfexlang/sfex/internal/value"
)

// execState is one body execution frame: the chain position (for Proceed),
// the receiver, and the parameter/local bindings.
type execState struct {
	ctx    *Context
	eff    Effects
	chain  Chain
	idx    int
	inst   *object.Instance
	args   []value.Value
	params map[string]value.Value
	locals map[string]value.Value
}

// RunBody executes a standalone body (an observer) against the given
// effects. Proceed is illegal outside an adjustment chain.
func RunBody(ctx *Context, eff Effects, inst *object.Instance, body *ir.Block, params map[string]value.Value) error {
	if params == nil {
		params = make(map[string]value.Value)
	}
	st := &execState{
		ctx:    ctx,
		eff:    eff,
		inst:   inst,
		params: params,
		locals: make(map[string]value.Value),
	}
	_, _, err := st.execBlock(body)
	return err
}

func (st *execState) execBlock(b *ir.Block) (value.Value, bool, error) {
	if b == nil {
		return value.Value{}, false, nil
	}
	for _, s := range b.Stmts {
		result, returned, err := st.execStmt(s)
		if err != nil || returned {
			return result, returned, err
		}
	}
	return value.Value{}, false, nil
}

func (st *execState) execStmt(s ir.Stmt) (value.Value, bool, error) {
	switch stmt := s.(type) {
	case *ir.Block:
		return st.execBlock(stmt)

	case *ir.Set:
		v, err := st.evalExpr(stmt.Value)
		if err != nil {
			return value.Value{}, false, err
		}
		return value.Value{}, false, st.eff.WriteField(st.inst, stmt.Field, v)

	case *ir.Let:
		v, err := st.evalExpr(stmt.Value)
		if err != nil {
			return value.Value{}, false, err
		}
		st.locals[stmt.Name] = v
		return value.Value{}, false, nil

	case *ir.Assign:
		v, err := st.evalExpr(stmt.Value)
		if err != nil {
			return value.Value{}, false, err
		}
		st.locals[stmt.Name] = v
		return value.Value{}, false, nil

	case *ir.If:
		cond, err := st.evalExpr(stmt.Cond)
		if err != nil {
			return value.Value{}, false, err
		}
		if value.Truthy(cond) {
			return st.execBlock(stmt.Then)
		}
		return st.execBlock(stmt.Else)

	case *ir.While:
		for {
			cond, err := st.evalExpr(stmt.Cond)
			if err != nil {
				return value.Value{}, false, err
			}
			if !value.Truthy(cond) {
				return value.Value{}, false, nil
			}
			result, returned, err := st.execBlock(stmt.Body)
			if err != nil || returned {
				return result, returned, err
			}
		}

	case *ir.Return:
		if stmt.Value == nil {
			return value.Bool(false), true, nil
		}
		v, err := st.evalExpr(stmt.Value)
		if err != nil {
			return value.Value{}, false, err
		}
		return v, true, nil

	case *ir.ExprStmt:
		_, err := st.evalExpr(stmt.X)
		return value.Value{}, false, err

	default:
		return value.Value{}, false, rterr.New(rterr.TypeMismatch, "unsupported statement %T", s)
	}
}

func (st *execState) evalExpr(e ir.Expr) (value.Value, error) {
	switch expr := e.(type) {
	case *ir.Lit:
		return expr.Value, nil

	case *ir.Param:
		if v, ok := st.params[expr.Name]; ok {
			return v, nil
		}
		return value.Value{}, rterr.New(rterr.TypeMismatch, "unknown parameter %q", expr.Name)

	case *ir.Local:
		if v, ok := st.locals[expr.Name]; ok {
			return v, nil
		}
		return value.Value{}, rterr.New(rterr.TypeMismatch, "unknown local %q", expr.Name)

	case *ir.FieldRead:
		return st.eff.ReadField(st.inst, expr.Name)

	case *ir.Binary:
		return st.evalBinary(expr)

	case *ir.Unary:
		return st.evalUnary(expr)

	case *ir.Call:
		args, err := st.evalArgs(expr.Args)
		if err != nil {
			return value.Value{}, err
		}
		return st.eff.Call(st.ctx, expr.Site, st.inst, expr.Method, args)

	case *ir.Proceed:
		args := st.args
		if len(expr.Args) > 0 {
			fresh, err := st.evalArgs(expr.Args)
			if err != nil {
				return value.Value{}, err
			}
			args = fresh
		}
		return invokeAt(st.ctx, st.eff, st.chain, st.idx+1, st.inst, args)

	default:
		return value.Value{}, rterr.New(rterr.TypeMismatch, "unsupported expression %T", e)
	}
}

func (st *execState) evalArgs(exprs []ir.Expr) ([]value.Value, error) {
	args := make([]value.Value, len(exprs))
	for i, a := range exprs {
		v, err := st.evalExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (st *execState) evalBinary(expr *ir.Binary) (value.Value, error) {
	// Logic operators short-circuit.
	if expr.Op == ir.OpAnd || expr.Op == ir.OpOr {
		left, err := st.evalExpr(expr.Left)
		if err != nil {
			return value.Value{}, err
		}
		lt := value.Truthy(left)
		if expr.Op == ir.OpAnd && !lt {
			return value.Bool(false), nil
		}
		if expr.Op == ir.OpOr && lt {
			return value.Bool(true), nil
		}
		right, err := st.evalExpr(expr.Right)
		if err != nil {
			return value.Value{}, err
		}
		return value.Bool(value.Truthy(right)), nil
	}

	left, err := st.evalExpr(expr.Left)
	if err != nil {
		return value.Value{}, err
	}
	right, err := st.evalExpr(expr.Right)
	if err != nil {
		return value.Value{}, err
	}
	return EvalBinOp(expr.Op, left, right)
}

// EvalBinOp applies a strict binary operator. The generated-code tier uses
// the same function, which keeps the tiers observably identical.
func EvalBinOp(op ir.BinOp, left, right value.Value) (value.Value, error) {
	switch op {
	case ir.OpAdd:
		return value.Add(left, right)
	case ir.OpSub:
		return value.Subtract(left, right)
	case ir.OpMul:
		return value.Multiply(left, right)
	case ir.OpDiv:
		return value.Divide(left, right)
	case ir.OpMod:
		return value.Modulo(left, right)
	case ir.OpEq:
		return value.Bool(value.Equals(left, right)), nil
	case ir.OpNe:
		return value.Bool(!value.Equals(left, right)), nil
	case ir.OpLt, ir.OpLe, ir.OpGt, ir.OpGe:
		cmp, err := value.Compare(left, right)
		if err != nil {
			return value.Value{}, err
		}
		switch op {
		case ir.OpLt:
			return value.Bool(cmp < 0), nil
		case ir.OpLe:
			return value.Bool(cmp <= 0), nil
		case ir.OpGt:
			return value.Bool(cmp > 0), nil
		default:
			return value.Bool(cmp >= 0), nil
		}
	case ir.OpIndex:
		return value.Index(left, right)
	default:
		return value.Value{}, rterr.New(rterr.TypeMismatch, "unsupported binary operator %d", op)
	}
}

func (st *execState) evalUnary(expr *ir.Unary) (value.Value, error) {
	operand, err := st.evalExpr(expr.Operand)
	if err != nil {
		return value.Value{}, err
	}
	return EvalUnOp(expr.Op, operand)
}

// EvalUnOp applies a unary operator, shared by both tiers.
func EvalUnOp(op ir.UnOp, operand value.Value) (value.Value, error) {
	switch op {
	case ir.OpNot:
		return value.Bool(!value.Truthy(operand)), nil
	case ir.OpNeg:
		switch operand.Kind() {
		case value.KindNumber:
			return value.Number(operand.AsNumber().Neg()), nil
		case value.KindFastNumber:
			return value.Fast(-operand.AsFast()), nil
		default:
			return value.Value{}, rterr.New(rterr.TypeMismatch, "cannot negate %s", operand.Kind())
		}
	case ir.OpLen:
		n, err := value.Length(operand)
		if err != nil {
			return value.Value{}, err
		}
		return value.NumberFromInt(int64(n)), nil
	default:
		return value.Value{}, rterr.New(rterr.TypeMismatch, "unsupported unary operator %d", op)
	}
}
