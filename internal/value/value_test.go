package value

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/itsmostafa/phunkie/internal/replerr"
)

func TestArith(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		a, b     Value
		wantType string
		want     string
	}{
		{name: "int plus int", op: "+", a: Int(1), b: Int(1), wantType: "Int", want: "2"},
		{name: "int plus float", op: "+", a: Int(1), b: Float(0.5), wantType: "Float", want: "1.5"},
		{name: "even division stays int", op: "/", a: Int(6), b: Int(3), wantType: "Int", want: "2"},
		{name: "uneven division is float", op: "/", a: Int(7), b: Int(2), wantType: "Float", want: "3.5"},
		{name: "negative exponent is float", op: "**", a: Int(2), b: Int(-1), wantType: "Float", want: "0.5"},
		{name: "positive exponent is int", op: "**", a: Int(2), b: Int(10), wantType: "Int", want: "1024"},
		{name: "overflow promotes", op: "+", a: Int(math.MaxInt64), b: Int(1), wantType: "Float", want: "9.2233720368548E+18"},
		{name: "numeric string", op: "*", a: Str("3"), b: Int(4), wantType: "Int", want: "12"},
		{name: "modulo", op: "%", a: Int(7), b: Int(3), wantType: "Int", want: "1"},
		{name: "float sum rounds for display", op: "+", a: Float(0.1), b: Float(0.2), wantType: "Float", want: "0.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Arith(tt.op, tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if TypeOf(got) != tt.wantType {
				t.Errorf("TypeOf() = %q, want %q", TypeOf(got), tt.wantType)
			}
			if Format(got) != tt.want {
				t.Errorf("Format() = %q, want %q", Format(got), tt.want)
			}
		})
	}
}

func TestArithErrors(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		a, b     Value
		want     string
		wantType bool
	}{
		{name: "division by zero", op: "/", a: Int(1), b: Int(0), want: "Division by zero"},
		{name: "modulo by zero", op: "%", a: Int(1), b: Int(0), want: "Modulo by zero"},
		{name: "array plus int", op: "+", a: List(Int(1)), b: Int(1), want: "Unsupported operand types: array + int", wantType: true},
		{name: "non numeric string", op: "-", a: Str("abc"), b: Int(1), want: "Unsupported operand types: string - int", wantType: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Arith(tt.op, tt.a, tt.b)
			if err == nil {
				t.Fatal("expected error")
			}
			if replerr.Reason(err) != tt.want {
				t.Errorf("error = %q, want %q", replerr.Reason(err), tt.want)
			}
			if replerr.IsType(err) != tt.wantType {
				t.Errorf("IsType() = %v, want %v", replerr.IsType(err), tt.wantType)
			}
		})
	}
}

func TestArrayUnion(t *testing.T) {
	a := NewArray().Set(StrKey("a"), Int(1))
	b := NewArray().Set(StrKey("a"), Int(2)).Set(StrKey("b"), Int(3))
	got, err := Arith("+", Arr(a), Arr(b))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Format(got) != "[1, 3]" {
		t.Errorf("Format() = %q, want %q", Format(got), "[1, 3]")
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{name: "null", v: Null, want: "null"},
		{name: "true", v: Bool(true), want: "true"},
		{name: "string escapes quotes", v: Str(`say "hi"`), want: `"say \"hi\""`},
		{name: "integral float", v: Float(2), want: "2"},
		{name: "large float", v: Float(1e25), want: "1.0E+25"},
		{name: "small float", v: Float(0.00001), want: "1.0E-5"},
		{name: "nested list", v: List(Int(1), List(Int(2), Int(3))), want: "[1, [2, 3]]"},
		{name: "string keys show values", v: Arr(NewArray().Set(StrKey("k"), Str("v"))), want: `["v"]`},
		{name: "callable", v: Fn(&NativeFunc{FuncName: "f"}), want: "<function>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.v); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{name: "true", v: Bool(true), want: "1"},
		{name: "false", v: Bool(false), want: ""},
		{name: "null", v: Null, want: ""},
		{name: "array", v: List(Int(1)), want: "Array"},
		{name: "float", v: Float(1.5), want: "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Stringify(tt.v); got != tt.want {
				t.Errorf("Stringify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Value
		loose     bool
		identical bool
		cmp       int
	}{
		{name: "int and float", a: Int(1), b: Float(1), loose: true, identical: false, cmp: 0},
		{name: "numeric strings", a: Str("10"), b: Str("1e1"), loose: true, identical: false, cmp: 0},
		{name: "number and text", a: Int(0), b: Str("a"), loose: false, identical: false, cmp: -1},
		{name: "null and empty string", a: Null, b: Str(""), loose: true, identical: false, cmp: 0},
		{name: "strings", a: Str("abc"), b: Str("abd"), loose: false, identical: false, cmp: -1},
		{name: "arrays by size", a: List(Int(1), Int(2)), b: List(Int(5)), loose: false, identical: false, cmp: 1},
		{name: "equal arrays", a: List(Int(1)), b: List(Int(1)), loose: true, identical: true, cmp: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooseEquals(tt.a, tt.b); got != tt.loose {
				t.Errorf("LooseEquals() = %v, want %v", got, tt.loose)
			}
			if got := Identical(tt.a, tt.b); got != tt.identical {
				t.Errorf("Identical() = %v, want %v", got, tt.identical)
			}
			if got := Compare(tt.a, tt.b); got != tt.cmp {
				t.Errorf("Compare() = %d, want %d", got, tt.cmp)
			}
		})
	}
}

func TestArrayValueSemantics(t *testing.T) {
	a := NewList(Int(1), Int(2))
	b := a.Append(Int(3))
	if a.Len() != 2 {
		t.Errorf("original Len() = %d, want 2", a.Len())
	}
	if b.Len() != 3 {
		t.Errorf("copy Len() = %d, want 3", b.Len())
	}

	c := b.Set(StrKey("7"), Int(9)).Append(Int(10))
	want := []Key{IntKey(0), IntKey(1), IntKey(2), IntKey(7), IntKey(8)}
	if diff := cmp.Diff(want, c.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
}

func TestTruthy(t *testing.T) {
	falsy := []Value{Null, Bool(false), Int(0), Float(0), Str(""), Str("0"), Arr(NewArray())}
	for _, v := range falsy {
		if Truthy(v) {
			t.Errorf("Truthy(%s) = true, want false", v)
		}
	}
	truthy := []Value{Bool(true), Int(-1), Str("0.0"), List(Null)}
	for _, v := range truthy {
		if !Truthy(v) {
			t.Errorf("Truthy(%s) = false, want true", v)
		}
	}
}

func TestGeneratorRestarts(t *testing.T) {
	g := NewGenerator(func(yield func(k, v Value) bool) error {
		for i := int64(0); i < 3; i++ {
			if !yield(Int(i), Int(i*10)) {
				return nil
			}
		}
		return nil
	})

	for range 2 {
		got, err := g.Collect(false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if Format(Arr(got)) != "[0, 10, 20]" {
			t.Errorf("Collect() = %s, want [0, 10, 20]", Format(Arr(got)))
		}
	}

	if g.Current().AsInt() != 0 {
		t.Errorf("Current() = %s, want 0", g.Current())
	}
	g.Next()
	if g.Key().AsInt() != 1 || g.Current().AsInt() != 10 {
		t.Errorf("after Next() key=%s current=%s", g.Key(), g.Current())
	}
	g.Next()
	g.Next()
	if g.Valid() {
		t.Error("Valid() = true after exhausting, want false")
	}
}

func TestExport(t *testing.T) {
	v := Arr(NewArray().Set(IntKey(0), Int(1)).Set(StrKey("a"), Str("it's")))
	want := "array (\n  0 => 1,\n  'a' => 'it\\'s',\n)"
	if got := Export(v); got != want {
		t.Errorf("Export() = %q, want %q", got, want)
	}
	if got := Export(Float(1)); got != "1.0" {
		t.Errorf("Export(1.0) = %q, want %q", got, "1.0")
	}
}

func TestCheckArity(t *testing.T) {
	params := ParseParams("int a, int b")
	err := CheckArity("f", params, 1)
	if err == nil {
		t.Fatal("expected error")
	}
	want := "f() expects exactly 2 arguments, 1 given"
	if replerr.Reason(err) != want {
		t.Errorf("error = %q, want %q", replerr.Reason(err), want)
	}
	if err := CheckArity("g", ParseParams("string s, ...rest"), 5); err != nil {
		t.Errorf("unexpected error for variadic: %v", err)
	}
}
