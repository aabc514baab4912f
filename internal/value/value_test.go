package value

import (
	"testing"

	"github.com/sfexlang/sfex/internal/rterr"
)

func mustNumber(t *testing.T, s string) Value {
	t.Helper()
	v, err := NumberFromString(s)
	if err != nil {
		t.Fatalf("invalid number literal %q: %v", s, err)
	}
	return v
}

func testNumberValue(t *testing.T, v Value, expected string) {
	t.Helper()
	if v.Kind() != KindNumber {
		t.Fatalf("value is not Number. got=%s (%+v)", v.Kind(), v)
	}
	want := mustNumber(t, expected)
	if !v.AsNumber().Equal(want.AsNumber()) {
		t.Errorf("value has wrong number. got=%s, want=%s", v.AsNumber(), expected)
	}
}

func testFastValue(t *testing.T, v Value, expected float64) {
	t.Helper()
	if v.Kind() != KindFastNumber {
		t.Fatalf("value is not FastNumber. got=%s (%+v)", v.Kind(), v)
	}
	if v.AsFast() != expected {
		t.Errorf("value has wrong float. got=%f, want=%f", v.AsFast(), expected)
	}
}

func testStringValue(t *testing.T, v Value, expected string) {
	t.Helper()
	if v.Kind() != KindString {
		t.Fatalf("value is not String. got=%s (%+v)", v.Kind(), v)
	}
	if v.AsString() != expected {
		t.Errorf("value has wrong string. got=%q, want=%q", v.AsString(), expected)
	}
}

func testBoolValue(t *testing.T, v Value, expected bool) {
	t.Helper()
	if v.Kind() != KindBoolean {
		t.Fatalf("value is not Boolean. got=%s (%+v)", v.Kind(), v)
	}
	if v.AsBool() != expected {
		t.Errorf("value has wrong bool. got=%t, want=%t", v.AsBool(), expected)
	}
}

func TestExactDecimalArithmetic(t *testing.T) {
	tests := []struct {
		left, right string
		op          func(a, b Value) (Value, error)
		expected    string
	}{
		{"0.1", "0.2", Add, "0.3"},
		{"1", "3", Add, "4"},
		{"1.5", "0.5", Subtract, "1"},
		{"0.1", "3", Multiply, "0.3"},
		{"10", "4", Divide, "2.5"},
		{"10", "3", Modulo, "1"},
	}

	for _, tt := range tests {
		result, err := tt.op(mustNumber(t, tt.left), mustNumber(t, tt.right))
		if err != nil {
			t.Fatalf("%s op %s: %v", tt.left, tt.right, err)
		}
		testNumberValue(t, result, tt.expected)
	}
}

func TestMixedNumericPromotesToFast(t *testing.T) {
	result, err := Add(mustNumber(t, "1.5"), Fast(2.5))
	if err != nil {
		t.Fatalf("mixed add: %v", err)
	}
	testFastValue(t, result, 4.0)

	result, err = Multiply(Fast(2), mustNumber(t, "3"))
	if err != nil {
		t.Fatalf("mixed multiply: %v", err)
	}
	testFastValue(t, result, 6.0)
}

func TestDivisionByZero(t *testing.T) {
	if _, err := Divide(mustNumber(t, "1"), mustNumber(t, "0")); !rterr.Is(err, rterr.DivisionByZero) {
		t.Fatalf("exact divide by zero: got=%v, want DivisionByZero", err)
	}
	if _, err := Divide(Fast(1), Fast(0)); !rterr.Is(err, rterr.DivisionByZero) {
		t.Fatalf("fast divide by zero: got=%v, want DivisionByZero", err)
	}
	if _, err := Modulo(mustNumber(t, "7"), mustNumber(t, "0")); !rterr.Is(err, rterr.DivisionByZero) {
		t.Fatalf("modulo by zero: got=%v, want DivisionByZero", err)
	}
}

func TestFastModulo(t *testing.T) {
	tests := []struct {
		name     string
		a, b     float64
		expected float64
	}{
		{"small", 10, 3, 1},
		{"negative dividend", -10, 3, -1},
		{"fractional", 5.5, 2, 1.5},
		{"huge quotient", 1e20, 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Modulo(Fast(tt.a), Fast(tt.b))
			if err != nil {
				t.Fatalf("modulo: %v", err)
			}
			testFastValue(t, got, tt.expected)
			if got.AsFast() > tt.a && tt.a > 0 {
				t.Errorf("remainder %g exceeds dividend %g", got.AsFast(), tt.a)
			}
		})
	}
}

func TestStringConcatenation(t *testing.T) {
	tests := []struct {
		left, right Value
		expected    string
	}{
		{Str("total: "), mustNumber(t, "12.5"), "total: 12.5"},
		{mustNumber(t, "3"), Str(" items"), "3 items"},
		{Str("ok="), Bool(true), "ok=True"},
		{Str("x="), None(), "x=None"},
		{Str("a"), Str("b"), "ab"},
	}

	for _, tt := range tests {
		result, err := Add(tt.left, tt.right)
		if err != nil {
			t.Fatalf("concat: %v", err)
		}
		testStringValue(t, result, tt.expected)
	}
}

func TestAddTypeMismatch(t *testing.T) {
	if _, err := Add(Bool(true), mustNumber(t, "1")); !rterr.Is(err, rterr.TypeMismatch) {
		t.Fatalf("got=%v, want TypeMismatch", err)
	}
}

func TestListIndexingIsOneBased(t *testing.T) {
	list := NewList(Str("a"), Str("b"), Str("c"))

	first, err := Index(list, mustNumber(t, "1"))
	if err != nil {
		t.Fatalf("index 1: %v", err)
	}
	testStringValue(t, first, "a")

	last, err := Index(list, mustNumber(t, "3"))
	if err != nil {
		t.Fatalf("index 3: %v", err)
	}
	testStringValue(t, last, "c")

	if _, err := Index(list, mustNumber(t, "0")); !rterr.Is(err, rterr.IndexOutOfRange) {
		t.Fatalf("index 0: got=%v, want IndexOutOfRange", err)
	}
	if _, err := Index(list, mustNumber(t, "4")); !rterr.Is(err, rterr.IndexOutOfRange) {
		t.Fatalf("index 4: got=%v, want IndexOutOfRange", err)
	}
}

func TestStringIndexingByGrapheme(t *testing.T) {
	s := Str("héllo")
	second, err := Index(s, mustNumber(t, "2"))
	if err != nil {
		t.Fatalf("index 2: %v", err)
	}
	testStringValue(t, second, "é")

	// A flag emoji is two code points but one character.
	flag := Str("🇺🇦!")
	n, err := Length(flag)
	if err != nil {
		t.Fatalf("length: %v", err)
	}
	if n != 2 {
		t.Errorf("grapheme length: got=%d, want=2", n)
	}
	first, err := Index(flag, mustNumber(t, "1"))
	if err != nil {
		t.Fatalf("index 1: %v", err)
	}
	testStringValue(t, first, "🇺🇦")
}

func TestMapInsertionOrder(t *testing.T) {
	m := NewMap().AsMap()
	m.Set("zeta", NumberFromInt(1))
	m.Set("alpha", NumberFromInt(2))
	m.Set("mid", NumberFromInt(3))
	m.Set("zeta", NumberFromInt(9)) // update must not reorder

	keys := m.Keys()
	want := []string{"zeta", "alpha", "mid"}
	if len(keys) != len(want) {
		t.Fatalf("keys: got=%v, want=%v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key %d: got=%q, want=%q", i, keys[i], want[i])
		}
	}

	if !m.Delete("alpha") {
		t.Fatalf("delete existing key failed")
	}
	if m.Delete("alpha") {
		t.Fatalf("delete missing key reported true")
	}
	if m.Len() != 2 {
		t.Errorf("len after delete: got=%d, want=2", m.Len())
	}
}

func TestMapMissingKey(t *testing.T) {
	m := NewMap()
	if _, err := Index(m, Str("nope")); !rterr.Is(err, rterr.IndexOutOfRange) {
		t.Fatalf("got=%v, want IndexOutOfRange", err)
	}
}

func TestOptionUnwrap(t *testing.T) {
	some := Some(NumberFromInt(7))
	inner, err := some.Unwrap()
	if err != nil {
		t.Fatalf("unwrap Some: %v", err)
	}
	testNumberValue(t, inner, "7")

	if _, err := None().Unwrap(); !rterr.Is(err, rterr.UnwrapOnNone) {
		t.Fatalf("unwrap None: got=%v, want UnwrapOnNone", err)
	}

	def, err := None().UnwrapOr(Str("fallback"))
	if err != nil {
		t.Fatalf("unwrapOr None: %v", err)
	}
	testStringValue(t, def, "fallback")
}

func TestEquals(t *testing.T) {
	tests := []struct {
		a, b     Value
		expected bool
	}{
		{mustNumber(t, "1.50"), mustNumber(t, "1.5"), true},
		{mustNumber(t, "2"), Fast(2), true},
		{Str("a"), Str("a"), true},
		{Str("a"), Str("b"), false},
		{Some(NumberFromInt(1)), Some(NumberFromInt(1)), true},
		{Some(NumberFromInt(1)), None(), false},
		{None(), None(), true},
		{Bool(true), mustNumber(t, "1"), false},
	}

	for _, tt := range tests {
		if got := Equals(tt.a, tt.b); got != tt.expected {
			t.Errorf("Equals(%s, %s): got=%t, want=%t", Debug(tt.a), Debug(tt.b), got, tt.expected)
		}
	}

	shared := NewList(NumberFromInt(1))
	other := NewList(NumberFromInt(1))
	if !Equals(shared, shared) {
		t.Errorf("list should equal itself")
	}
	if Equals(shared, other) {
		t.Errorf("distinct lists with equal contents are not identical")
	}
}

func TestDisplay(t *testing.T) {
	third, err := Divide(mustNumber(t, "1"), mustNumber(t, "3"))
	if err != nil {
		t.Fatalf("divide: %v", err)
	}

	tests := []struct {
		v        Value
		expected string
	}{
		{mustNumber(t, "3"), "3"},
		{mustNumber(t, "2.50"), "2.5"},
		{third, "0.3333333333"},
		{Bool(true), "True"},
		{Bool(false), "False"},
		{Str("hi"), "hi"},
		{NewList(NumberFromInt(1), Str("a")), "[1, a]"},
		{Some(Str("x")), "Some(x)"},
		{None(), "None"},
		{Err(rterr.New(rterr.IndexOutOfRange, "index 9 out of range")), "Error.Lookup.IndexOutOfRange: index 9 out of range"},
	}

	for _, tt := range tests {
		if got := Display(tt.v); got != tt.expected {
			t.Errorf("Display: got=%q, want=%q", got, tt.expected)
		}
	}
}

func TestCloneDeepIsolation(t *testing.T) {
	inner := NewList(NumberFromInt(1))
	outer := NewList(inner, Str("keep"))

	clone := outer.CloneDeep()
	clone.AsList().Append(Str("extra"))
	if outer.AsList().Length() != 2 {
		t.Fatalf("clone append leaked into original")
	}

	clonedInner, err := clone.AsList().Get(1)
	if err != nil {
		t.Fatalf("get cloned inner: %v", err)
	}
	clonedInner.AsList().Append(NumberFromInt(2))
	if inner.AsList().Length() != 1 {
		t.Errorf("nested clone shares storage with original")
	}
}

func TestWeakReference(t *testing.T) {
	target := NewList(Str("payload"))
	w, err := Weak(target)
	if err != nil {
		t.Fatalf("weak: %v", err)
	}
	if !w.WeakValid() {
		t.Fatalf("weak reference invalid while target is owned")
	}

	up, err := w.UpgradeWeak()
	if err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if !up.IsSome() {
		t.Fatalf("upgrade while alive: got=%s, want Some", Debug(up))
	}
	got, _ := up.Unwrap()
	if !RefEqual(got, target) {
		t.Errorf("upgrade returned a different list")
	}

	if _, err := Weak(NumberFromInt(1)); !rterr.Is(err, rterr.TypeMismatch) {
		t.Errorf("weak of Number: got=%v, want TypeMismatch", err)
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v        Value
		expected bool
	}{
		{Bool(true), true},
		{Bool(false), false},
		{mustNumber(t, "0"), false},
		{mustNumber(t, "0.1"), true},
		{Str(""), false},
		{Str("x"), true},
		{NewList(), false},
		{NewList(Bool(false)), true},
		{None(), false},
		{Some(Bool(false)), true},
	}

	for _, tt := range tests {
		if got := Truthy(tt.v); got != tt.expected {
			t.Errorf("Truthy(%s): got=%t, want=%t", Debug(tt.v), got, tt.expected)
		}
	}
}

func TestZeroDefaults(t *testing.T) {
	testNumberValue(t, Zero(KindNumber), "0")
	testStringValue(t, Zero(KindString), "")
	testBoolValue(t, Zero(KindBoolean), false)
	if !Zero(KindOption).IsNone() {
		t.Errorf("Option zero: got=%s, want None", Debug(Zero(KindOption)))
	}
	if Zero(KindList).AsList().Length() != 0 {
		t.Errorf("List zero is not empty")
	}
}
