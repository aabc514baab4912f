package ir

import (
	"testing"

	"github.com/sfexlang/sfex/internal/value"
)

func TestWrittenFieldsOrderedUnique(t *testing.T) {
	body := &Block{Stmts: []Stmt{
		&Set{Field: "B", Value: &Lit{Value: value.NumberFromInt(1)}},
		&If{
			Cond: &Lit{Value: value.Bool(true)},
			Then: &Block{Stmts: []Stmt{
				&Set{Field: "A", Value: &Lit{Value: value.NumberFromInt(2)}},
			}},
			Else: &Block{Stmts: []Stmt{
				&Set{Field: "B", Value: &Lit{Value: value.NumberFromInt(3)}},
			}},
		},
		&While{
			Cond: &Lit{Value: value.Bool(false)},
			Body: &Block{Stmts: []Stmt{
				&Set{Field: "C", Value: &Lit{Value: value.NumberFromInt(4)}},
			}},
		},
	}}

	fields := WrittenFields(body)
	want := []string{"B", "A", "C"}
	if len(fields) != len(want) {
		t.Fatalf("fields: got=%v, want=%v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("field %d: got=%q, want=%q", i, fields[i], want[i])
		}
	}
}

func TestHasCalls(t *testing.T) {
	plain := &Block{Stmts: []Stmt{
		&Return{Value: &Binary{
			Op:    OpAdd,
			Left:  &FieldRead{Name: "X"},
			Right: &Lit{Value: value.NumberFromInt(1)},
		}},
	}}
	if HasCalls(plain) {
		t.Errorf("plain body reported calls")
	}

	nestedCall := &Block{Stmts: []Stmt{
		&If{
			Cond: &Lit{Value: value.Bool(true)},
			Then: &Block{Stmts: []Stmt{
				&Let{Name: "x", Value: &Binary{
					Op:    OpMul,
					Left:  &Call{Site: "s", Method: "Other"},
					Right: &Lit{Value: value.NumberFromInt(2)},
				}},
			}},
		},
	}}
	if !HasCalls(nestedCall) {
		t.Errorf("nested call not detected")
	}

	withProceed := &Block{Stmts: []Stmt{
		&Return{Value: &Proceed{}},
	}}
	if !HasCalls(withProceed) {
		t.Errorf("Proceed not detected")
	}
}

func TestIsNative(t *testing.T) {
	m := &Method{Name: "A", Body: &Block{}}
	if m.IsNative() {
		t.Errorf("body method reported native")
	}
	n := &Method{Name: "B", Native: func(args []value.Value) (value.Value, error) {
		return value.Bool(true), nil
	}}
	if !n.IsNative() {
		t.Errorf("native method not reported")
	}
}
