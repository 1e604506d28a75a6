package eval

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/itsmostafa/phunkie/internal/host"
	"github.com/itsmostafa/phunkie/internal/parser"
	"github.com/itsmostafa/phunkie/internal/replerr"
	"github.com/itsmostafa/phunkie/internal/result"
	"github.com/itsmostafa/phunkie/internal/session"
	"github.com/itsmostafa/phunkie/internal/value"
)

type harness struct {
	t   *testing.T
	out *bytes.Buffer
	ev  *Evaluator
	s   session.Session
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	out := &bytes.Buffer{}
	return &harness{t: t, out: out, ev: New(host.New(host.WithOutput(out))), s: session.New(false)}
}

// eval runs one fragment and threads its bindings into the session the
// way the console does
func (h *harness) eval(src string) (result.Result, error) {
	h.t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		h.t.Fatalf("Parse(%q) error = %v", src, err)
	}
	res, err := h.ev.Evaluate(prog, h.s)
	if err != nil {
		return res, err
	}
	h.s = res.Apply(h.s)
	if res.Signal.Kind == result.SignalBind && strings.HasPrefix(res.Signal.Name, "$") {
		h.s = h.s.WithVariable(res.Signal.Name, res.Value)
	}
	if res.Signal.Kind == result.SignalNamespace {
		h.s = h.s.WithNamespace(res.Signal.Name)
	}
	return res, nil
}

func (h *harness) must(src string) result.Result {
	h.t.Helper()
	res, err := h.eval(src)
	if err != nil {
		h.t.Fatalf("Evaluate(%q) error = %v", src, err)
	}
	return res
}

func TestEvaluateValues(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want value.Value
	}{
		{"arithmetic", "1 + 2 * 3", value.Int(7)},
		{"concat", "'a' . 'b' . 1", value.Str("ab1")},
		{"variables across statements", "$x = 5; $x * 2", value.Int(10)},
		{"interpolation", `$n = 'php'; "hi $n"`, value.Str("hi php")},
		{"match arms", "match(2) { 1 => 'a', 2, 3 => 'b', default => 'c' }", value.Str("b")},
		{"match default", "match(7) { 1 => 'a', default => 'c' }", value.Str("c")},
		{"arrow function", "$f = fn($a) => $a + 1; $f(2)", value.Int(3)},
		{"arrow captures", "$k = 10; $f = fn($a) => $a + $k; $f(1)", value.Int(11)},
		{"default parameter", "function add(int $a, int $b = 2) { return $a + $b; } add(1)", value.Int(3)},
		{"named arguments", "function sub($a, $b) { return $a - $b; } sub(b: 1, a: 5)", value.Int(4)},
		{"variadic", "function total(...$n) { return array_sum($n); } total(1, 2, 3)", value.Int(6)},
		{"spread arguments", "function pair($a, $b) { return $a . $b; } pair(...['x', 'y'])", value.Str("xy")},
		{"append", "$a = [1, 2]; $a[] = 3; count($a)", value.Int(3)},
		{"nested write", "$a = ['x' => ['y' => 1]]; $a['x']['y'] = 2; $a['x']['y']", value.Int(2)},
		{"destructuring", "[$a, [$b, $c]] = [1, [2, 3]]; $a + $b + $c", value.Int(6)},
		{"keyed destructuring", "['p' => $p, 'q' => $q] = ['q' => 2, 'p' => 1]; $p - $q", value.Int(-1)},
		{"for with break", "$s = 0; for ($i = 0; $i < 5; $i++) { if ($i == 3) { break; } $s += $i; } $s", value.Int(3)},
		{"while", "$i = 0; while (true) { $i++; if ($i > 3) break; } $i", value.Int(4)},
		{"nested continue", "$n = 0; foreach ([1, 2] as $a) { foreach ([1, 2] as $b) { if ($b == 2) continue 2; $n++; } } $n", value.Int(2)},
		{"foreach keys", "$s = ''; foreach (['a' => 1, 'b' => 2] as $k => $v) { $s .= $k . $v; } $s", value.Str("a1b2")},
		{"foreach by reference", "$a = [1, 2]; foreach ($a as &$v) { $v *= 10; } $a[1]", value.Int(20)},
		{"switch fallthrough", "switch (2) { case 1: $r = 'one'; break; case 2: $r = 'two'; case 3: $r .= '!'; break; } $r", value.Str("two!")},
		{"null coalescing", "$x = null; $x ?? 'd'", value.Str("d")},
		{"coalesce assign", "$y ??= 4; $y", value.Int(4)},
		{"isset missing", "isset($nope['a'])", value.Bool(false)},
		{"coalesce missing nested key", "$a = ['k' => 1]; $a['x']['y'] ?? 9", value.Int(9)},
		{"coalesce missing property", "$o = new stdClass(); $o->p ?? 'none'", value.Str("none")},
		{"empty missing key", "$a = []; empty($a['k'])", value.Bool(true)},
		{"empty", "empty('0')", value.Bool(true)},
		{"variable variables", "$v = 'x'; $$v = 7; $x", value.Int(7)},
		{"increment", "$i = 1; $i++; ++$i", value.Int(3)},
		{"ternary short", "0 ?: 'fallback'", value.Str("fallback")},
		{"string offset", "$s = 'abc'; $s[1]", value.Str("b")},
		{"cast", "(int) '12abc'", value.Int(12)},
		{"spaceship", "2 <=> 1", value.Int(1)},
		{"compact", "$a = 1; $c = compact('a'); $c['a']", value.Int(1)},
		{"extract", "extract(['z' => 9]); $z", value.Int(9)},
		{"closure by reference", "$n = 0; $inc = function () use (&$n) { $n++; }; $inc(); $inc(); $n", value.Int(2)},
		{"closure by value", "$n = 1; $get = function () use ($n) { return $n; }; $n = 5; $get()", value.Int(1)},
		{"by reference parameter", "function bump(&$x) { $x++; } $v = 1; bump($v); $v", value.Int(2)},
		{"recursion", "function fact($n) { return $n <= 1 ? 1 : $n * fact($n - 1); } fact(5)", value.Int(120)},
		{"first class callable", "$len = strlen(...); $len('four')", value.Int(4)},
		{"early return", "$a = 1; return $a + 1; $a = 100", value.Int(2)},
		{"magic constant", "__LINE__", value.Int(1)},
		{"constant", "const ANSWER = 42; ANSWER", value.Int(42)},
		{"suppress", "@(1 / 0)", value.Null},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			res := h.must(tt.src)
			if !value.Identical(res.Value, tt.want) {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.src, res.Value, tt.want)
			}
		})
	}
}

func TestEvaluateObjects(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want value.Value
	}{
		{
			"promoted constructor",
			"class P { public function __construct(public int $x) {} public function dbl() { return $this->x * 2; } } (new P(4))->dbl()",
			value.Int(8),
		},
		{
			"inheritance and parent",
			"class A { public function hi() { return 'A'; } } class B extends A { public function hi() { return parent::hi() . 'B'; } } (new B)->hi()",
			value.Str("AB"),
		},
		{
			"late static binding",
			"class M { public static function make() { return new static(); } } class N extends M {} get_class(N::make())",
			value.Str("N"),
		},
		{
			"static property",
			"class C { public static int $n = 0; public static function inc(): int { return ++static::$n; } } C::inc(); C::inc()",
			value.Int(2),
		},
		{
			"class constant",
			"class K { const LIMIT = 3; public function twice() { return self::LIMIT * 2; } } (new K)->twice()",
			value.Int(6),
		},
		{
			"interface instanceof",
			"interface I {} class Impl implements I {} $o = new Impl; $o instanceof I",
			value.Bool(true),
		},
		{
			"trait method",
			"trait Greets { public function greet() { return 'hi ' . $this->name; } } class G { use Greets; public $name = 'g'; } (new G)->greet()",
			value.Str("hi g"),
		},
		{
			"backed enum",
			"enum Suit: string { case Hearts = 'H'; case Spades = 'S'; } Suit::from('S')->name",
			value.Str("Spades"),
		},
		{
			"enum cases",
			"enum Dir { case Up; case Down; } count(Dir::cases())",
			value.Int(2),
		},
		{
			"anonymous class",
			"$o = new class(3) { public function __construct(public int $v) {} }; $o->v",
			value.Int(3),
		},
		{
			"nullsafe",
			"$o = null; $o?->name",
			value.Null,
		},
		{
			"clone is independent",
			"class Box { public $v = 1; } $a = new Box; $b = clone $a; $b->v = 2; $a->v",
			value.Int(1),
		},
		{
			"class name constant",
			"namespace App; class Thing {} Thing::class",
			value.Str(`App\Thing`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			res := h.must(tt.src)
			if !value.Identical(res.Value, tt.want) {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.src, res.Value, tt.want)
			}
		})
	}
}

func TestExceptions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want value.Value
	}{
		{
			"caught by parent class",
			"try { throw new RuntimeException('boom'); } catch (Exception $e) { $m = $e->getMessage(); } $m",
			value.Str("boom"),
		},
		{
			"finally runs",
			"$log = ''; try { $log .= 't'; } finally { $log .= 'f'; } $log",
			value.Str("tf"),
		},
		{
			"runtime failures are catchable",
			"try { [1][3]; } catch (Error $e) { $m = $e->getMessage(); } $m",
			value.Str("Undefined array index: 3"),
		},
		{
			"type errors are catchable",
			"function t(int $x) { return $x; } try { t('abc'); } catch (TypeError $e) { $m = 'caught'; } $m",
			value.Str("caught"),
		},
		{
			"multi catch",
			"try { throw new LogicException('x'); } catch (RuntimeException | LogicException $e) { $m = get_class($e); } $m",
			value.Str("LogicException"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			res := h.must(tt.src)
			if !value.Identical(res.Value, tt.want) {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.src, res.Value, tt.want)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantType bool
		reason   string
	}{
		{"undefined variable", "$undefined", false, "Undefined variable $undefined"},
		{"unknown function", "nope()", false, "Function not found: nope (resolved to: nope)"},
		{"namespaced unknown function", "namespace App; nope()", false, `Function not found: nope (resolved to: App\nope)`},
		{"missing index", "[1][5]", false, "Undefined array index: 5"},
		{"scalar index", "$n = 5; $n[0]", false, "Cannot use array access on non-array type: Int"},
		{"unmatched match", "match(9) { 1 => 2 }", false, "No matching case found in match expression"},
		{"argument type", "function t(int $x) { return $x; } t('abc')", true, "t(): Argument #1 ($x) must be of type int, string given"},
		{"return type", "function r(): int { return 'x'; } r()", true, "r(): Return value must be of type int, string returned"},
		{"too few arguments", "function two($a, $b) {} two(1)", true, "two() expects exactly 2 arguments, 1 given"},
		{"uncaught exception", "throw new LogicException('bad')", false, "bad"},
		{"variable not callable", "$x = 1; $x()", false, "Variable is not callable"},
		{"duplicate class", "class A {} class A {}", false, "Class 'A' is already defined"},
		{"unknown parameter class", "function f(Missing $m) {}", false, "Class 'Missing' not found"},
		{"break outside loop", "break;", false, "'break' not in the 'loop' or 'switch' context"},
		{"bad spread", "function one($a) {} one(...5)", false, "Only arrays and Traversables can be unpacked"},
		{"variable variable name", "${1}", false, "Variable variable name must be a string"},
		{"throw non object", "throw 5", false, "Can only throw objects"},
		{"coalesce keeps call errors", "undefined_fn() ?? 5", false, "Function not found: undefined_fn (resolved to: undefined_fn)"},
		{"coalesce keeps arithmetic errors", "(1 % 0) ?? 7", false, "Modulo by zero"},
		{"coalesce keeps key errors", "$a = [1]; $a[intdiv(1, 0)] ?? 9", false, "Division by zero"},
		{"coalesce assign keeps key errors", "$a = [1]; $a[1 % 0] ??= 9", false, "Modulo by zero"},
		{"empty keeps errors", "empty(intdiv(1, 0))", false, "Division by zero"},
		{"isset keeps key errors", "$a = []; isset($a[1 % 0])", false, "Modulo by zero"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.eval(tt.src)
			if err == nil {
				t.Fatalf("Evaluate(%q) succeeded, want error %q", tt.src, tt.reason)
			}
			if got := replerr.Reason(err); got != tt.reason {
				t.Errorf("Evaluate(%q) reason = %q, want %q", tt.src, got, tt.reason)
			}
			if replerr.IsType(err) != tt.wantType {
				t.Errorf("Evaluate(%q) IsType = %v, want %v (%v)", tt.src, !tt.wantType, tt.wantType, err)
			}
		})
	}
}

func TestFailedDeclarationsRegisterNothing(t *testing.T) {
	tests := []struct {
		name   string
		setup  string
		src    string
		reason string
		check  string
		want   value.Value
	}{
		{
			name:   "final parent",
			setup:  "final class Base {}",
			src:    "class Child extends Base {}",
			reason: "Class Child cannot extend final class Base",
			check:  "class_exists('Child')",
			want:   value.Bool(false),
		},
		{
			name:   "missing parent",
			src:    "class Orphan extends Nowhere {}",
			reason: "Cannot extend non-existent class: Nowhere",
			check:  "class_exists('Orphan')",
			want:   value.Bool(false),
		},
		{
			name:   "missing interface",
			src:    "class Widget implements Renderable {}",
			reason: "Cannot implement non-existent interface: Renderable",
			check:  "class_exists('Widget')",
			want:   value.Bool(false),
		},
		{
			name:   "unimplemented abstract method",
			setup:  "abstract class Shape { abstract public function area(); }",
			src:    "class Square extends Shape {}",
			reason: "Class Square contains 1 abstract method and must therefore be declared abstract or implement the remaining methods (Shape::area)",
			check:  "class_exists('Square')",
			want:   value.Bool(false),
		},
		{
			name:   "duplicate enum",
			setup:  "enum Suit { case Hearts; }",
			src:    "enum Suit { case Spades; case Clubs; }",
			reason: "Cannot declare enum Suit, because the name is already in use",
			check:  "count(Suit::cases())",
			want:   value.Int(1),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.setup != "" {
				h.must(tt.setup)
			}
			_, err := h.eval(tt.src)
			if err == nil {
				t.Fatalf("Evaluate(%q) succeeded, want error %q", tt.src, tt.reason)
			}
			if got := replerr.Reason(err); got != tt.reason {
				t.Errorf("Evaluate(%q) reason = %q, want %q", tt.src, got, tt.reason)
			}
			if got := h.must(tt.check).Value; !value.Identical(got, tt.want) {
				t.Errorf("%s = %v, want %v", tt.check, got, tt.want)
			}
		})
	}
}

func TestUncaughtExceptionSubject(t *testing.T) {
	h := newHarness(t)
	_, err := h.eval("throw new InvalidArgumentException('nope')")
	var ee *replerr.EvaluationError
	if !errors.As(err, &ee) {
		t.Fatalf("error = %T %v, want *replerr.EvaluationError", err, err)
	}
	if ee.Subject != "InvalidArgumentException" {
		t.Errorf("Subject = %q, want InvalidArgumentException", ee.Subject)
	}
}

func TestEmptyProgram(t *testing.T) {
	ev := New(host.New())
	_, err := ev.Evaluate(nil, session.New(false))
	if err == nil || replerr.Reason(err) != "Empty expression" {
		t.Errorf("Evaluate(nil) error = %v, want Empty expression", err)
	}
}

func TestSignals(t *testing.T) {
	t.Run("assignment binds", func(t *testing.T) {
		res := newHarness(t).must("$x = 1")
		if res.Signal.Kind != result.SignalBind || res.Signal.Name != "$x" {
			t.Errorf("Signal = %+v, want Bind($x)", res.Signal)
		}
	})

	t.Run("element assignment binds the root", func(t *testing.T) {
		h := newHarness(t)
		h.must("$a = [1]")
		res := h.must("$a[] = 2")
		if res.Signal.Name != "$a" || res.Value.AsArray().Len() != 2 {
			t.Errorf("Result = %+v, want $a bound to two elements", res)
		}
	})

	t.Run("earlier assignments are side bindings", func(t *testing.T) {
		res := newHarness(t).must("$a = 1; $b = 2")
		want := []string{"$a"}
		var got []string
		for _, b := range res.Side {
			got = append(got, b.Name)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Side mismatch (-want +got):\n%s", diff)
		}
		if res.Signal.Name != "$b" {
			t.Errorf("Signal.Name = %q, want $b", res.Signal.Name)
		}
	})

	t.Run("loop bindings are exported", func(t *testing.T) {
		h := newHarness(t)
		res := h.must("for ($i = 0; $i < 3; $i++) {}")
		if res.Signal.Kind != result.SignalSilent {
			t.Errorf("Signal = %+v, want Silent", res.Signal)
		}
		v, ok := h.s.Variable("$i")
		if !ok || v.AsInt() != 3 {
			t.Errorf("$i = %v, %v; want 3", v, ok)
		}
	})

	t.Run("unset removes", func(t *testing.T) {
		h := newHarness(t)
		h.must("$gone = 1")
		res := h.must("unset($gone)")
		if diff := cmp.Diff([]string{"$gone"}, res.Removed); diff != "" {
			t.Errorf("Removed mismatch (-want +got):\n%s", diff)
		}
		if _, ok := h.s.Variable("$gone"); ok {
			t.Error("$gone still bound after unset")
		}
	})

	t.Run("echo is output only", func(t *testing.T) {
		h := newHarness(t)
		res := h.must("echo 'hi', 1")
		if !res.SideEffectOnly {
			t.Error("SideEffectOnly = false, want true")
		}
		if got := h.out.String(); got != "hi1" {
			t.Errorf("output = %q, want hi1", got)
		}
	})

	t.Run("var_dump is output only", func(t *testing.T) {
		res := newHarness(t).must("var_dump(1)")
		if !res.SideEffectOnly {
			t.Error("SideEffectOnly = false, want true")
		}
	})

	t.Run("function declaration", func(t *testing.T) {
		res := newHarness(t).must("function hello() { return 1; }")
		if res.Type != "Function" || res.Signal.Name != "$hello" {
			t.Errorf("Result = %+v, want Function bound to $hello", res)
		}
	})

	t.Run("declarations", func(t *testing.T) {
		tests := []struct {
			src  string
			typ  string
			kind result.SignalKind
		}{
			{"class X {}", "Class", result.SignalBind},
			{"interface Y {}", "Interface", result.SignalSilent},
			{"trait Z {}", "Trait", result.SignalSilent},
			{"enum E { case A; }", "EnumDefinition", result.SignalSilent},
		}
		for _, tt := range tests {
			res := newHarness(t).must(tt.src)
			if res.Type != tt.typ || res.Signal.Kind != tt.kind {
				t.Errorf("Evaluate(%q) = %s/%v, want %s/%v", tt.src, res.Type, res.Signal.Kind, tt.typ, tt.kind)
			}
		}
	})

	t.Run("namespace and use", func(t *testing.T) {
		h := newHarness(t)
		res := h.must(`namespace App; use Lib\Tools\Hammer`)
		if res.Signal.Kind != result.SignalImport {
			t.Fatalf("Signal = %+v, want Import", res.Signal)
		}
		if ns, ok := h.s.Namespace(); !ok || ns != "App" {
			t.Errorf("Namespace() = %q, %v; want App", ns, ok)
		}
		if got := h.s.ResolveName("Hammer"); got != `Lib\Tools\Hammer` {
			t.Errorf("ResolveName(Hammer) = %q", got)
		}
	})
}

func TestGenerators(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want value.Value
	}{
		{
			"return value",
			"function gen() { yield 1; yield 2; return 3; } $g = gen(); $t = 0; foreach ($g as $v) { $t += $v; } $t + $g->getReturn()",
			value.Int(6),
		},
		{
			"keys",
			"function kv() { yield 'a' => 1; yield 'b' => 2; } implode(',', array_keys(iterator_to_array(kv())))",
			value.Str("a,b"),
		},
		{
			"consumer stops early",
			"function g() { foreach ([1, 2, 3] as $v) { yield $v; } } $o = []; foreach (g() as $v) { $o[] = $v; if ($v == 2) break; } count($o)",
			value.Int(2),
		},
		{
			"yield from",
			"function inner() { yield 1; yield 2; return 'r'; } function outer() { $r = yield from inner(); yield $r; } implode(',', iterator_to_array(outer(), false))",
			value.Str("1,2,r"),
		},
		{
			"restart per traversal",
			"function once() { yield 1; } $g = once(); count(iterator_to_array($g)) + count(iterator_to_array($g))",
			value.Int(2),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newHarness(t).must(tt.src)
			if !value.Identical(res.Value, tt.want) {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.src, res.Value, tt.want)
			}
		})
	}
}

func TestSessionCarriesState(t *testing.T) {
	h := newHarness(t)
	h.must("$x = 5")
	h.must("function twice($n) { return $n * 2; }")
	res := h.must("twice($x) + 1")
	if !value.Identical(res.Value, value.Int(11)) {
		t.Errorf("twice($x) + 1 = %v, want 11", res.Value)
	}
}
