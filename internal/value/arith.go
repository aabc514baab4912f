package value

import (
	"math"

	"github.com/sfexlang/sfex/internal/rterr"
)

// Mixed Number/FastNumber operands follow one promotion rule everywhere:
// promote the exact Number to FastNumber, accepting precision loss. The
// interpreter and the generated-code tier share these functions, which is
// what makes the tiers bit-for-bit transparent.

func (v Value) toFast() float64 {
	if v.kind == KindNumber {
		f, _ := v.num.Float64()
		return f
	}
	return v.fast
}

func bothNumeric(a, b Value) bool {
	return (a.kind == KindNumber || a.kind == KindFastNumber) &&
		(b.kind == KindNumber || b.kind == KindFastNumber)
}

// Add computes a + b. Besides numeric addition it supports string
// concatenation with number, boolean and option operands, and list
// concatenation, matching the language's beginner-friendly surface.
func Add(a, b Value) (Value, error) {
	switch {
	case a.kind == KindNumber && b.kind == KindNumber:
		return Number(a.num.Add(b.num)), nil
	case bothNumeric(a, b):
		return Fast(a.toFast() + b.toFast()), nil
	case a.kind == KindString && b.kind == KindString:
		return Str(a.str + b.str), nil
	case a.kind == KindString:
		if s, ok := displayOperand(b); ok {
			return Str(a.str + s), nil
		}
	case b.kind == KindString:
		if s, ok := displayOperand(a); ok {
			return Str(s + b.str), nil
		}
	case a.kind == KindList && b.kind == KindList:
		items := a.AsList().Snapshot()
		items = append(items, b.AsList().Snapshot()...)
		return NewList(items...), nil
	}
	return Value{}, rterr.New(rterr.TypeMismatch, "cannot add %s and %s", a.kind, b.kind)
}

// displayOperand formats the kinds that may appear next to a string in a
// concatenation.
func displayOperand(v Value) (string, bool) {
	switch v.kind {
	case KindNumber, KindFastNumber, KindBoolean, KindOption, KindWeakRef:
		return Display(v), true
	default:
		return "", false
	}
}

func Subtract(a, b Value) (Value, error) {
	switch {
	case a.kind == KindNumber && b.kind == KindNumber:
		return Number(a.num.Sub(b.num)), nil
	case bothNumeric(a, b):
		return Fast(a.toFast() - b.toFast()), nil
	}
	return Value{}, rterr.New(rterr.TypeMismatch, "cannot subtract %s from %s", b.kind, a.kind)
}

func Multiply(a, b Value) (Value, error) {
	switch {
	case a.kind == KindNumber && b.kind == KindNumber:
		return Number(a.num.Mul(b.num)), nil
	case bothNumeric(a, b):
		return Fast(a.toFast() * b.toFast()), nil
	}
	return Value{}, rterr.New(rterr.TypeMismatch, "cannot multiply %s and %s", a.kind, b.kind)
}

func Divide(a, b Value) (Value, error) {
	switch {
	case a.kind == KindNumber && b.kind == KindNumber:
		if b.num.IsZero() {
			return Value{}, rterr.New(rterr.DivisionByZero, "division by zero")
		}
		return Number(a.num.Div(b.num)), nil
	case bothNumeric(a, b):
		if b.toFast() == 0 {
			return Value{}, rterr.New(rterr.DivisionByZero, "division by zero")
		}
		return Fast(a.toFast() / b.toFast()), nil
	}
	return Value{}, rterr.New(rterr.TypeMismatch, "cannot divide %s by %s", a.kind, b.kind)
}

func Modulo(a, b Value) (Value, error) {
	switch {
	case a.kind == KindNumber && b.kind == KindNumber:
		if b.num.IsZero() {
			return Value{}, rterr.New(rterr.DivisionByZero, "modulo by zero")
		}
		return Number(a.num.Mod(b.num)), nil
	case bothNumeric(a, b):
		if b.toFast() == 0 {
			return Value{}, rterr.New(rterr.DivisionByZero, "modulo by zero")
		}
		return Fast(math.Mod(a.toFast(), b.toFast())), nil
	}
	return Value{}, rterr.New(rterr.TypeMismatch, "cannot modulo %s by %s", a.kind, b.kind)
}

// Equals applies structural equality for scalars and options, identity for
// containers and handles.
func Equals(a, b Value) bool {
	switch {
	case a.kind == KindNumber && b.kind == KindNumber:
		return a.num.Equal(b.num)
	case bothNumeric(a, b):
		return a.toFast() == b.toFast()
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindString:
		return a.str == b.str
	case KindBoolean:
		return a.b == b.b
	case KindOption:
		if a.ref == nil || b.ref == nil {
			return a.ref == nil && b.ref == nil
		}
		return Equals(*a.ref.(*Value), *b.ref.(*Value))
	case KindError:
		ea, eb := a.AsError(), b.AsError()
		return ea.Kind == eb.Kind && ea.Message == eb.Message
	default:
		return RefEqual(a, b)
	}
}

// Compare orders numbers and strings. Returns -1, 0 or 1.
func Compare(a, b Value) (int, error) {
	switch {
	case a.kind == KindNumber && b.kind == KindNumber:
		return a.num.Cmp(b.num), nil
	case bothNumeric(a, b):
		af, bf := a.toFast(), b.toFast()
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	case a.kind == KindString && b.kind == KindString:
		switch {
		case a.str < b.str:
			return -1, nil
		case a.str > b.str:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, rterr.New(rterr.TypeMismatch, "cannot compare %s and %s", a.kind, b.kind)
}

// Truthy reports the conditional interpretation of a value.
func Truthy(v Value) bool {
	switch v.kind {
	case KindBoolean:
		return v.b
	case KindNumber:
		return !v.num.IsZero()
	case KindFastNumber:
		return v.fast != 0
	case KindString:
		return v.str != ""
	case KindList:
		return v.AsList().Length() > 0
	case KindMap:
		return v.AsMap().Len() > 0
	case KindOption:
		return v.ref != nil
	case KindWeakRef:
		return v.WeakValid()
	default:
		return true
	}
}
