// Package value implements the SFX tagged value representation: exact
// decimal numbers, floating fast numbers, grapheme-aware strings, 1-based
// lists, insertion-ordered maps, options, weak references, task handles and
// error objects. There is no null: every kind has a well-defined zero value
// and absence is expressed only through Option.
package value

import (
	"weak"

	"github.com/shopspring/decimal"

	"github.com/sfexlang/sfex/internal/rterr"
)

// Kind identifies the variant stored in a Value.
type Kind uint8

const (
	KindNumber Kind = iota
	KindFastNumber
	KindString
	KindBoolean
	KindList
	KindMap
	KindOption
	KindWeakRef
	KindTask
	KindError
	KindNative
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "Number"
	case KindFastNumber:
		return "FastNumber"
	case KindString:
		return "String"
	case KindBoolean:
		return "Boolean"
	case KindList:
		return "List"
	case KindMap:
		return "Map"
	case KindOption:
		return "Option"
	case KindWeakRef:
		return "WeakRef"
	case KindTask:
		return "TaskHandle"
	case KindError:
		return "Error"
	case KindNative:
		return "NativeFunction"
	default:
		return "Unknown"
	}
}

// NativeFunc is an opaque host callable registered by the stdlib layer.
// Native functions run through the ordinary invoke path but are never
// candidates for generated-code promotion.
type NativeFunc func(args []Value) (Value, error)

// Value is a tagged union. Small variants are stored inline, container and
// handle variants share the ref slot.
type Value struct {
	kind Kind
	num  decimal.Decimal
	fast float64
	b    bool
	str  string
	ref  any
}

// Constructors

func Number(d decimal.Decimal) Value { return Value{kind: KindNumber, num: d} }

func NumberFromInt(n int64) Value {
	return Value{kind: KindNumber, num: decimal.NewFromInt(n)}
}

// NumberFromString parses an exact decimal literal.
func NumberFromString(s string) (Value, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Value{}, rterr.New(rterr.TypeMismatch, "invalid number: %s", s)
	}
	return Number(d), nil
}

func Fast(f float64) Value { return Value{kind: KindFastNumber, fast: f} }

func Str(s string) Value { return Value{kind: KindString, str: s} }

func Bool(b bool) Value { return Value{kind: KindBoolean, b: b} }

func NewList(items ...Value) Value {
	return Value{kind: KindList, ref: &List{items: items}}
}

func FromList(l *List) Value { return Value{kind: KindList, ref: l} }

func NewMap() Value { return Value{kind: KindMap, ref: newMap()} }

func FromMap(m *Map) Value { return Value{kind: KindMap, ref: m} }

// Some wraps v in a present Option.
func Some(v Value) Value {
	inner := v
	return Value{kind: KindOption, ref: &inner}
}

// None is the absent Option.
func None() Value { return Value{kind: KindOption} }

// Task wraps an opaque task handle owned by the task package.
func Task(handle any) Value { return Value{kind: KindTask, ref: handle} }

// Err wraps a recoverable runtime error as a first-class value.
func Err(e *rterr.Error) Value { return Value{kind: KindError, ref: e} }

func Native(fn NativeFunc) Value { return Value{kind: KindNative, ref: fn} }

// Zero returns the declared default for a field of the given kind:
// 0, "", False, empty List, empty Map, None.
func Zero(kind Kind) Value {
	switch kind {
	case KindNumber:
		return NumberFromInt(0)
	case KindFastNumber:
		return Fast(0)
	case KindString:
		return Str("")
	case KindBoolean:
		return Bool(false)
	case KindList:
		return NewList()
	case KindMap:
		return NewMap()
	case KindOption:
		return None()
	default:
		return None()
	}
}

// Accessors

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNumber() bool     { return v.kind == KindNumber }
func (v Value) IsFastNumber() bool { return v.kind == KindFastNumber }
func (v Value) IsString() bool     { return v.kind == KindString }
func (v Value) IsBoolean() bool    { return v.kind == KindBoolean }
func (v Value) IsError() bool      { return v.kind == KindError }
func (v Value) IsNative() bool     { return v.kind == KindNative }

func (v Value) AsNumber() decimal.Decimal { return v.num }
func (v Value) AsFast() float64           { return v.fast }
func (v Value) AsBool() bool              { return v.b }
func (v Value) AsString() string          { return v.str }

func (v Value) AsList() *List {
	l, _ := v.ref.(*List)
	return l
}

func (v Value) AsMap() *Map {
	m, _ := v.ref.(*Map)
	return m
}

func (v Value) AsError() *rterr.Error {
	e, _ := v.ref.(*rterr.Error)
	return e
}

func (v Value) AsNative() NativeFunc {
	fn, _ := v.ref.(NativeFunc)
	return fn
}

// AsTask returns the opaque handle stored by Task.
func (v Value) AsTask() any { return v.ref }

// Option operations

func (v Value) IsSome() bool { return v.kind == KindOption && v.ref != nil }
func (v Value) IsNone() bool { return v.kind == KindOption && v.ref == nil }

// Unwrap extracts the value inside a Some, failing with UnwrapOnNone for
// None and TypeMismatch for non-options.
func (v Value) Unwrap() (Value, error) {
	if v.kind != KindOption {
		return Value{}, rterr.New(rterr.TypeMismatch, "%s is not an Option", v.kind)
	}
	if v.ref == nil {
		return Value{}, rterr.New(rterr.UnwrapOnNone, "cannot unwrap None value")
	}
	return *v.ref.(*Value), nil
}

// UnwrapOr extracts the value inside a Some, or returns def for None.
func (v Value) UnwrapOr(def Value) (Value, error) {
	if v.kind != KindOption {
		return Value{}, rterr.New(rterr.TypeMismatch, "%s is not an Option", v.kind)
	}
	if v.ref == nil {
		return def, nil
	}
	return *v.ref.(*Value), nil
}

// Weak references

// weakRef is a non-owning handle to a List or Map payload. It becomes
// invalid once no owning reference remains and is observable only through
// the liveness check.
type weakRef struct {
	kind Kind
	list weak.Pointer[List]
	mp   weak.Pointer[Map]
}

// Weak creates a non-owning reference to a List or Map value.
func Weak(v Value) (Value, error) {
	switch v.kind {
	case KindList:
		return Value{kind: KindWeakRef, ref: &weakRef{kind: KindList, list: weak.Make(v.AsList())}}, nil
	case KindMap:
		return Value{kind: KindWeakRef, ref: &weakRef{kind: KindMap, mp: weak.Make(v.AsMap())}}, nil
	default:
		return Value{}, rterr.New(rterr.TypeMismatch, "cannot create weak reference from %s", v.kind)
	}
}

// WeakValid reports whether the weak target is still owned somewhere.
func (v Value) WeakValid() bool {
	w, ok := v.ref.(*weakRef)
	if !ok {
		return false
	}
	if w.kind == KindList {
		return w.list.Value() != nil
	}
	return w.mp.Value() != nil
}

// UpgradeWeak returns Some(target) while the target is alive, None after it
// has been collected.
func (v Value) UpgradeWeak() (Value, error) {
	w, ok := v.ref.(*weakRef)
	if !ok {
		return Value{}, rterr.New(rterr.TypeMismatch, "%s is not a weak reference", v.kind)
	}
	if w.kind == KindList {
		if l := w.list.Value(); l != nil {
			return Some(FromList(l)), nil
		}
		return None(), nil
	}
	if m := w.mp.Value(); m != nil {
		return Some(FromMap(m)), nil
	}
	return None(), nil
}

// RefEqual reports identity equality for container and handle kinds.
func RefEqual(a, b Value) bool {
	return a.ref != nil && a.ref == b.ref
}

// CloneDeep copies v recursively. Containers get fresh storage; handles,
// natives and weak references are shared (they are host-level objects that
// are safe to share across execution contexts).
func (v Value) CloneDeep() Value {
	switch v.kind {
	case KindList:
		src := v.AsList().Snapshot()
		items := make([]Value, len(src))
		for i, it := range src {
			items[i] = it.CloneDeep()
		}
		return NewList(items...)
	case KindMap:
		src := v.AsMap()
		dst := newMap()
		for _, k := range src.Keys() {
			item, _ := src.Get(k)
			dst.Set(k, item.CloneDeep())
		}
		return FromMap(dst)
	case KindOption:
		if v.ref == nil {
			return None()
		}
		return Some((*v.ref.(*Value)).CloneDeep())
	default:
		return v
	}
}
