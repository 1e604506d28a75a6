package host

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/itsmostafa/phunkie/internal/replerr"
	"github.com/itsmostafa/phunkie/internal/value"
)

func call(t *testing.T, rt *Runtime, name string, args ...value.Value) (value.Value, error) {
	t.Helper()
	fn, ok := rt.LookupFunction(name)
	if !ok {
		t.Fatalf("LookupFunction(%q) not found", name)
	}
	return fn.Call(args)
}

func assoc(pairs ...any) value.Value {
	a := value.NewArray()
	for i := 0; i < len(pairs); i += 2 {
		a.Put(value.StrKey(pairs[i].(string)), pairs[i+1].(value.Value))
	}
	return value.Arr(a)
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		name string
		fn   string
		args []value.Value
		want value.Value
	}{
		{"upper", "strtoupper", []value.Value{value.Str("abc")}, value.Str("ABC")},
		{"title case", "ucwords", []value.Value{value.Str("hello wide world")}, value.Str("Hello Wide World")},
		{"first upper", "ucfirst", []value.Value{value.Str("php")}, value.Str("Php")},
		{"grouped number", "number_format", []value.Value{value.Float(1234567.891), value.Int(2)}, value.Str("1,234,567.89")},
		{"rounded number", "number_format", []value.Value{value.Float(1234.5)}, value.Str("1,235")},
		{"repeat", "str_repeat", []value.Value{value.Str("ab"), value.Int(3)}, value.Str("ababab")},
		{"implode", "implode", []value.Value{value.Str(","), value.List(value.Int(1), value.Int(2), value.Int(3))}, value.Str("1,2,3")},
		{"sprintf", "sprintf", []value.Value{value.Str("%d-%s"), value.Int(5), value.Str("a")}, value.Str("5-a")},
		{"numeric string coerced", "strlen", []value.Value{value.Int(12345)}, value.Int(5)},
		{"sum", "array_sum", []value.Value{value.List(value.Int(1), value.Int(2), value.Float(0.5))}, value.Float(3.5)},
		{"count", "count", []value.Value{value.List(value.Int(1), value.Int(2))}, value.Int(2)},
		{"in array", "in_array", []value.Value{value.Int(2), value.List(value.Int(1), value.Int(2))}, value.Bool(true)},
		{"intdiv", "intdiv", []value.Value{value.Int(7), value.Int(2)}, value.Int(3)},
		{"max", "max", []value.Value{value.Int(1), value.Int(5), value.Int(3)}, value.Int(5)},
		{"gettype", "gettype", []value.Value{value.Float(1.5)}, value.Str("double")},
		{"json encode", "json_encode", []value.Value{assoc("a", value.Int(1), "b", value.List(value.Int(1), value.Int(2)))}, value.Str(`{"a":1,"b":[1,2]}`)},
		{"json list", "json_encode", []value.Value{value.List(value.Str("x"), value.Bool(true), value.Null)}, value.Str(`["x",true,null]`)},
		{"preg match", "preg_match", []value.Value{value.Str(`/(\d+)/`), value.Str("ab12")}, value.Int(1)},
		{"preg lookbehind", "preg_match", []value.Value{value.Str(`/(?<=a)b/`), value.Str("cab")}, value.Int(1)},
		{"preg replace", "preg_replace", []value.Value{value.Str(`/a+/`), value.Str("b"), value.Str("caaat")}, value.Str("cbt")},
		{"case insensitive name", "STRTOLOWER", []value.Value{value.Str("ABC")}, value.Str("abc")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := New()
			got, err := call(t, rt, tt.fn, tt.args...)
			if err != nil {
				t.Fatalf("%s() error = %v", tt.fn, err)
			}
			if value.Format(got) != value.Format(tt.want) || got.Kind != tt.want.Kind {
				t.Errorf("%s() = %s (%s), want %s (%s)",
					tt.fn, value.Format(got), value.TypeOf(got), value.Format(tt.want), value.TypeOf(tt.want))
			}
		})
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name     string
		fn       string
		args     []value.Value
		wantType bool
	}{
		{"missing argument", "strtoupper", nil, true},
		{"wrong type", "strlen", []value.Value{value.List()}, true},
		{"division by zero", "intdiv", []value.Value{value.Int(1), value.Int(0)}, false},
		{"bad pattern", "preg_match", []value.Value{value.Str("abc"), value.Str("abc")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call(t, New(), tt.fn, tt.args...)
			if err == nil {
				t.Fatalf("%s() error = nil", tt.fn)
			}
			if replerr.IsType(err) != tt.wantType {
				t.Errorf("IsType(%v) = %v, want %v", err, !tt.wantType, tt.wantType)
			}
		})
	}
}

func TestJSONDecodeKeepsOrder(t *testing.T) {
	rt := New()
	got, err := call(t, rt, "json_decode", value.Str(`{"z":1,"a":{"k":"v"},"m":[1,2]}`), value.Bool(true))
	if err != nil {
		t.Fatalf("json_decode() error = %v", err)
	}
	var keys []string
	for k := range got.AsArray().All() {
		keys = append(keys, k.String())
	}
	if diff := cmp.Diff([]string{"z", "a", "m"}, keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestOutput(t *testing.T) {
	out := &bytes.Buffer{}
	rt := New(WithOutput(out))
	if err := rt.Echo(value.Str("hi ")); err != nil {
		t.Fatal(err)
	}
	if _, err := call(t, rt, "printf", value.Str("%s=%d"), value.Str("n"), value.Int(3)); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "hi n=3" {
		t.Errorf("output = %q", got)
	}
	if !IsOutputCall("var_dump", nil) || IsOutputCall("strlen", nil) {
		t.Error("IsOutputCall() misclassifies builtins")
	}

	prev := rt.SetOutput(&bytes.Buffer{})
	if prev != out {
		t.Error("SetOutput() did not return the previous writer")
	}
}

func pointSpec() *ClassSpec {
	zero := func(*Class) (value.Value, error) { return value.Int(0), nil }
	return &ClassSpec{
		Name: "Point",
		Kind: KindClass,
		Props: []PropSpec{
			{Name: "x", Default: zero},
			{Name: "secret", Visibility: Private, Default: zero},
		},
		Methods: []MethodSpec{{
			Name:   "getX",
			Params: []value.Param{},
			Body: func(inv Invocation, _ []value.Value) (value.Value, error) {
				return inv.This.Prop("x"), nil
			},
		}},
	}
}

func TestClasses(t *testing.T) {
	rt := New()
	c, err := rt.Declare(pointSpec())
	if err != nil {
		t.Fatalf("Declare() error = %v", err)
	}
	if _, err := rt.Declare(pointSpec()); err == nil {
		t.Error("redeclaring Point succeeded")
	}

	obj, err := rt.Construct("point", nil)
	if err != nil {
		t.Fatalf("Construct() error = %v", err)
	}
	if err := rt.SetProperty(obj, "x", value.Int(4), nil); err != nil {
		t.Fatalf("SetProperty() error = %v", err)
	}
	m, err := rt.Method(obj, "getX", nil)
	if err != nil {
		t.Fatalf("Method() error = %v", err)
	}
	if got, err := m.Call(nil); err != nil || got != value.Int(4) {
		t.Errorf("getX() = %v, %v; want 4", got, err)
	}

	if _, err := rt.GetProperty(obj, "secret", nil); err == nil {
		t.Error("private property readable from outside the class")
	}
	if _, err := rt.GetProperty(obj, "secret", c); err != nil {
		t.Errorf("private property unreadable from its class: %v", err)
	}
	if !rt.InstanceOf(obj, "Point") || rt.InstanceOf(obj, "Exception") {
		t.Error("InstanceOf() misreports Point")
	}

	clone, err := rt.Clone(obj)
	if err != nil {
		t.Fatalf("Clone() error = %v", err)
	}
	if err := rt.SetProperty(clone, "x", value.Int(9), nil); err != nil {
		t.Fatal(err)
	}
	if got, _ := rt.GetProperty(obj, "x", nil); got != value.Int(4) {
		t.Errorf("clone shares state with original: x = %v", got)
	}

	rt.Reset()
	if _, ok := rt.Class("Point"); ok {
		t.Error("Reset() kept user class")
	}
	if _, ok := rt.Class("Exception"); !ok {
		t.Error("Reset() dropped builtin class")
	}
}

func TestExceptions(t *testing.T) {
	rt := New()
	err := rt.Throw("RuntimeException", "boom")
	var thrown *Thrown
	if !errors.As(err, &thrown) {
		t.Fatalf("Throw() = %T, want *Thrown", err)
	}
	if thrown.Message() != "boom" || thrown.Subject() != "RuntimeException" {
		t.Errorf("thrown = %s %q", thrown.Subject(), thrown.Message())
	}
	if !rt.InstanceOf(value.Obj(thrown.Object), "Exception") {
		t.Error("RuntimeException is not an Exception")
	}

	tests := []struct {
		name      string
		err       error
		wantClass string
	}{
		{"evaluation error", replerr.Evalf("", "bad"), "Error"},
		{"type error", replerr.Typef("", "must be of type int"), "TypeError"},
		{"rethrown", err, "RuntimeException"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rt.ThrowableFromError(tt.err).ClassName(); got != tt.wantClass {
				t.Errorf("ThrowableFromError() class = %s, want %s", got, tt.wantClass)
			}
		})
	}
}

func TestFunctionsAndConstants(t *testing.T) {
	rt := New()
	fn := &value.NativeFunc{FuncName: "twice", Value: func(a ...value.Value) (value.Value, error) {
		return value.Int(a[0].AsInt() * 2), nil
	}}
	if err := rt.DeclareFunction("twice", fn); err != nil {
		t.Fatalf("DeclareFunction() error = %v", err)
	}
	if err := rt.DeclareFunction("strlen", fn); err == nil {
		t.Error("builtin strlen was shadowed")
	}
	if !rt.FunctionExists("TWICE") {
		t.Error("FunctionExists() is case sensitive")
	}

	if err := rt.DefineConstant("ANSWER", value.Int(42)); err != nil {
		t.Fatalf("DefineConstant() error = %v", err)
	}
	if err := rt.DefineConstant("ANSWER", value.Int(1)); err == nil {
		t.Error("constant redefined")
	}
	if v, ok := rt.Constant("ANSWER"); !ok || v != value.Int(42) {
		t.Errorf("Constant(ANSWER) = %v, %v", v, ok)
	}
	if v, ok := rt.Constant("PHP_EOL"); !ok || v != value.Str("\n") {
		t.Errorf("Constant(PHP_EOL) = %v, %v", v, ok)
	}

	rt.Reset()
	if rt.FunctionExists("twice") {
		t.Error("Reset() kept user function")
	}
}

func TestImport(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    []string
		wantErr string
	}{
		{name: "single", spec: "immlist/head", want: []string{`\Phunkie\Functions\immlist\head`}},
		{name: "packaged", spec: "effect::console/println", want: []string{`\Phunkie\Effect\Functions\console\println`}},
		{name: "bad format", spec: "head", wantErr: "Invalid import format"},
		{name: "unknown package", spec: "nope::x/y", wantErr: "Unknown package 'nope'"},
		{name: "unknown module", spec: "nope/x", wantErr: "Module 'nope' not found in package 'phunkie/phunkie'"},
		{name: "unknown function", spec: "immlist/nope", wantErr: "Function 'nope' not found in module 'immlist'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := New()
			got, err := rt.Import(tt.spec)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Import() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Import() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Import() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	rt := New()
	names, err := rt.Import("immlist/*")
	if err != nil || len(names) < 2 {
		t.Fatalf("Import(immlist/*) = %v, %v", names, err)
	}
	head, err := call(t, rt, "head", value.List(value.Int(7), value.Int(8)))
	if err != nil || head != value.Int(7) {
		t.Errorf("head() = %v, %v; want 7", head, err)
	}
}
