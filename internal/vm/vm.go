package vm

import (
	"errors"
	"fmt"

	"github.com/sfexlang/sfex/internal/object"
	"github.com/sfexlang/sfex/internal/value"
)

var errTruncatedBytecode = errors.New("truncated bytecode")
var errStackUnderflow = errors.New("stack underflow")
var errInvalidConstantIndex = errors.New("invalid constant index")

// Host is the engine surface generated code runs against. Reads come from
// the object model; writes are only committed through CommitWrite after
// WriteAllowed has approved every buffered write.
type Host interface {
	ReadField(inst *object.Instance, name string) (value.Value, error)
	// WriteAllowed reports whether committing a write to the field is still
	// covered by the entry guard: no observer depends on it and no active
	// Situation adjusts the compiled method.
	WriteAllowed(inst *object.Instance, name string) bool
	CommitWrite(inst *object.Instance, name string, v value.Value) error
}

// Trap signals that generated code abandoned execution before committing
// any side effect; the tier manager replays the call through the
// interpreter. Traps are a tiering mechanism, never a user-visible error.
type Trap struct {
	Reason string
}

func (t *Trap) Error() string { return "deoptimization trap: " + t.Reason }

// IsTrap reports whether err is a deoptimization trap.
func IsTrap(err error) bool {
	var t *Trap
	return errors.As(err, &t)
}

type bufferedWrite struct {
	field string
	val   value.Value
}

// Run executes a chunk against the receiver instance. All field writes are
// buffered; the commit happens at return, after re-checking the write
// guards, so a trap leaves no partially applied effects.
func Run(chunk *Chunk, host Host, inst *object.Instance, args []value.Value) (value.Value, error) {
	locals := make([]value.Value, chunk.LocalCount)
	for i := range locals {
		locals[i] = value.Bool(false)
	}
	for i := 0; i < chunk.ParamCount && i < len(args); i++ {
		locals[i] = args[i]
	}

	stack := make([]value.Value, 0, 16)
	var writes []bufferedWrite

	push := func(v value.Value) { stack = append(stack, v) }
	pop := func() (value.Value, error) {
		if len(stack) == 0 {
			return value.Value{}, errStackUnderflow
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, nil
	}
	pop2 := func() (value.Value, value.Value, error) {
		right, err := pop()
		if err != nil {
			return value.Value{}, value.Value{}, err
		}
		left, err := pop()
		return left, right, err
	}

	code := chunk.Code
	for ip := 0; ip < len(code); {
		op := Opcode(code[ip])
		ip++
		switch op {
		case OP_CONST:
			if ip+2 > len(code) {
				return value.Value{}, errTruncatedBytecode
			}
			idx := chunk.ReadU16(ip)
			ip += 2
			if idx >= len(chunk.Constants) {
				return value.Value{}, errInvalidConstantIndex
			}
			push(chunk.Constants[idx])

		case OP_POP:
			if _, err := pop(); err != nil {
				return value.Value{}, err
			}

		case OP_TRUE:
			push(value.Bool(true))

		case OP_FALSE:
			push(value.Bool(false))

		case OP_ADD, OP_SUB, OP_MUL, OP_DIV, OP_MOD, OP_INDEX:
			left, right, err := pop2()
			if err != nil {
				return value.Value{}, err
			}
			var result value.Value
			switch op {
			case OP_ADD:
				result, err = value.Add(left, right)
			case OP_SUB:
				result, err = value.Subtract(left, right)
			case OP_MUL:
				result, err = value.Multiply(left, right)
			case OP_DIV:
				result, err = value.Divide(left, right)
			case OP_MOD:
				result, err = value.Modulo(left, right)
			case OP_INDEX:
				result, err = value.Index(left, right)
			}
			if err != nil {
				return value.Value{}, err
			}
			push(result)

		case OP_EQ, OP_NE:
			left, right, err := pop2()
			if err != nil {
				return value.Value{}, err
			}
			eq := value.Equals(left, right)
			if op == OP_NE {
				eq = !eq
			}
			push(value.Bool(eq))

		case OP_LT, OP_LE, OP_GT, OP_GE:
			left, right, err := pop2()
			if err != nil {
				return value.Value{}, err
			}
			cmp, err := value.Compare(left, right)
			if err != nil {
				return value.Value{}, err
			}
			var b bool
			switch op {
			case OP_LT:
				b = cmp < 0
			case OP_LE:
				b = cmp <= 0
			case OP_GT:
				b = cmp > 0
			case OP_GE:
				b = cmp >= 0
			}
			push(value.Bool(b))

		case OP_NOT:
			v, err := pop()
			if err != nil {
				return value.Value{}, err
			}
			push(value.Bool(!value.Truthy(v)))

		case OP_TRUTHY:
			v, err := pop()
			if err != nil {
				return value.Value{}, err
			}
			push(value.Bool(value.Truthy(v)))

		case OP_NEG:
			v, err := pop()
			if err != nil {
				return value.Value{}, err
			}
			switch v.Kind() {
			case value.KindNumber:
				push(value.Number(v.AsNumber().Neg()))
			case value.KindFastNumber:
				push(value.Fast(-v.AsFast()))
			default:
				return value.Value{}, fmt.Errorf("cannot negate %s", v.Kind())
			}

		case OP_LEN:
			v, err := pop()
			if err != nil {
				return value.Value{}, err
			}
			n, err := value.Length(v)
			if err != nil {
				return value.Value{}, err
			}
			push(value.NumberFromInt(int64(n)))

		case OP_GET_LOCAL:
			if ip >= len(code) {
				return value.Value{}, errTruncatedBytecode
			}
			push(locals[code[ip]])
			ip++

		case OP_SET_LOCAL:
			if ip >= len(code) {
				return value.Value{}, errTruncatedBytecode
			}
			v, err := pop()
			if err != nil {
				return value.Value{}, err
			}
			locals[code[ip]] = v
			ip++

		case OP_GET_FIELD:
			if ip+2 > len(code) {
				return value.Value{}, errTruncatedBytecode
			}
			name := chunk.Constants[chunk.ReadU16(ip)].AsString()
			ip += 2
			// Read through the write buffer so the body sees its own
			// uncommitted writes, matching interpreter order.
			v, found := lastBuffered(writes, name)
			if !found {
				read, err := host.ReadField(inst, name)
				if err != nil {
					return value.Value{}, err
				}
				v = read
			}
			push(v)

		case OP_SET_FIELD:
			if ip+2 > len(code) {
				return value.Value{}, errTruncatedBytecode
			}
			name := chunk.Constants[chunk.ReadU16(ip)].AsString()
			ip += 2
			v, err := pop()
			if err != nil {
				return value.Value{}, err
			}
			writes = append(writes, bufferedWrite{field: name, val: v})

		case OP_JUMP:
			if ip+2 > len(code) {
				return value.Value{}, errTruncatedBytecode
			}
			ip += 2 + chunk.ReadU16(ip)

		case OP_JUMP_IF_FALSE:
			if ip+2 > len(code) {
				return value.Value{}, errTruncatedBytecode
			}
			dist := chunk.ReadU16(ip)
			ip += 2
			v, err := pop()
			if err != nil {
				return value.Value{}, err
			}
			if !value.Truthy(v) {
				ip += dist
			}

		case OP_LOOP:
			if ip+2 > len(code) {
				return value.Value{}, errTruncatedBytecode
			}
			ip += 2
			ip -= chunk.ReadU16(ip - 2)

		case OP_RETURN:
			result, err := pop()
			if err != nil {
				return value.Value{}, err
			}
			// Trap point: every guard is re-checked before the first
			// commit, never between commits.
			for _, w := range writes {
				if !host.WriteAllowed(inst, w.field) {
					return value.Value{}, &Trap{Reason: fmt.Sprintf("write guard failed for %s.%s", chunk.Concept, w.field)}
				}
			}
			for _, w := range writes {
				if err := host.CommitWrite(inst, w.field, w.val); err != nil {
					return value.Value{}, err
				}
			}
			return result, nil

		default:
			return value.Value{}, fmt.Errorf("unknown opcode %d at %d", op, ip-1)
		}
	}
	return value.Value{}, errTruncatedBytecode
}

func lastBuffered(writes []bufferedWrite, field string) (value.Value, bool) {
	for i := len(writes) - 1; i >= 0; i-- {
		if writes[i].field == field {
			return writes[i].val, true
		}
	}
	return value.Value{}, false
}
