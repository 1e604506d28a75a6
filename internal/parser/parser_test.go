package parser

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/itsmostafa/phunkie/internal/ast"
	"github.com/itsmostafa/phunkie/internal/replerr"
)

func parseOne(t *testing.T, input string) ast.Stmt {
	t.Helper()
	stmts, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", input, err)
	}
	if len(stmts) != 1 {
		t.Fatalf("Parse(%q) returned %d statements, want 1", input, len(stmts))
	}
	return stmts[0]
}

func parseExprStmt(t *testing.T, input string) ast.Expr {
	t.Helper()
	stmt, ok := parseOne(t, input).(*ast.ExprStmt)
	if !ok {
		t.Fatalf("Parse(%q) did not produce an expression statement", input)
	}
	return stmt.Expr
}

func TestParseRetry(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"bare expression", "1 + 1", 1},
		{"terminated", "1 + 1;", 1},
		{"block missing semicolon", "if (true) { $a = 1 }", 1},
		{"two statements", "$a = 1; $b = 2", 2},
		{"php tag", "<?php echo 1;", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmts, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(stmts) != tt.want {
				t.Errorf("Parse() = %d statements, want %d", len(stmts), tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{"dangling operator", "1 +", "Syntax error"},
		{"unterminated string", `"abc`, "unterminated string"},
		{"anonymous class statement", "class { }", "Anonymous classes can only be instantiated"},
		{"assign to literal", "1 = 2", "Syntax error"},
		{"first class callable new", "new Foo(...)", "Cannot create Closure for new expression"},
		{"first class callable anonymous class", "new class(...) {}", "Cannot create Closure for new expression"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Fatal("Parse() error = nil, want error")
			}
			var pe *replerr.ParseError
			if !asParseError(err, &pe) {
				t.Fatalf("Parse() error type = %T, want *replerr.ParseError", err)
			}
			if !strings.Contains(pe.Reason, tt.reason) {
				t.Errorf("Reason = %q, want it to contain %q", pe.Reason, tt.reason)
			}
			if !strings.HasPrefix(err.Error(), "Parse error: ") {
				t.Errorf("Error() = %q, want Parse error prefix", err.Error())
			}
		})
	}
}

func asParseError(err error, target **replerr.ParseError) bool {
	pe, ok := err.(*replerr.ParseError)
	if ok {
		*target = pe
	}
	return ok
}

func TestPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ast.Expr
	}{
		{
			name:  "multiplication binds tighter",
			input: "1 + 2 * 3",
			want: &ast.Binary{Op: "+", Left: &ast.IntLit{Value: 1},
				Right: &ast.Binary{Op: "*", Left: &ast.IntLit{Value: 2}, Right: &ast.IntLit{Value: 3}}},
		},
		{
			name:  "power is right associative",
			input: "2 ** 3 ** 2",
			want: &ast.Binary{Op: "**", Left: &ast.IntLit{Value: 2},
				Right: &ast.Binary{Op: "**", Left: &ast.IntLit{Value: 3}, Right: &ast.IntLit{Value: 2}}},
		},
		{
			name:  "unary minus below power",
			input: "-2 ** 2",
			want: &ast.Unary{Op: "-",
				Operand: &ast.Binary{Op: "**", Left: &ast.IntLit{Value: 2}, Right: &ast.IntLit{Value: 2}}},
		},
		{
			name:  "coalesce is right associative",
			input: "$a ?? $b ?? 3",
			want: &ast.Binary{Op: "??", Left: &ast.Variable{Name: "a"},
				Right: &ast.Binary{Op: "??", Left: &ast.Variable{Name: "b"}, Right: &ast.IntLit{Value: 3}}},
		},
		{
			name:  "assignment inside and",
			input: "$a = true and false",
			want: &ast.Binary{Op: "and",
				Left:  &ast.Assign{Target: &ast.Variable{Name: "a"}, Value: &ast.ConstFetch{Name: "true"}},
				Right: &ast.ConstFetch{Name: "false"}},
		},
		{
			name:  "short ternary",
			input: "$a ?: 2",
			want:  &ast.Ternary{Cond: &ast.Variable{Name: "a"}, Else: &ast.IntLit{Value: 2}},
		},
		{
			name:  "not applies before instanceof",
			input: "!$a instanceof Foo",
			want: &ast.Unary{Op: "!",
				Operand: &ast.Instanceof{Expr: &ast.Variable{Name: "a"}, Class: ast.ClassRef{Name: "Foo"}}},
		},
		{
			name:  "concat and addition",
			input: `"a" . 1 + 2`,
			want: &ast.Binary{Op: ".", Left: &ast.StringLit{Value: "a"},
				Right: &ast.Binary{Op: "+", Left: &ast.IntLit{Value: 1}, Right: &ast.IntLit{Value: 2}}},
		},
		{
			name:  "not equal spelling",
			input: "1 <> 2",
			want:  &ast.Binary{Op: "!=", Left: &ast.IntLit{Value: 1}, Right: &ast.IntLit{Value: 2}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseExprStmt(t, tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ast.Expr
	}{
		{"hex", "0x1F", &ast.IntLit{Value: 31}},
		{"binary", "0b101", &ast.IntLit{Value: 5}},
		{"octal", "017", &ast.IntLit{Value: 15}},
		{"explicit octal", "0o17", &ast.IntLit{Value: 15}},
		{"underscores", "1_000", &ast.IntLit{Value: 1000}},
		{"overflow becomes float", "9223372036854775808", &ast.FloatLit{Value: 9223372036854775808}},
		{"float", "1.5", &ast.FloatLit{Value: 1.5}},
		{"exponent", "1e3", &ast.FloatLit{Value: 1000}},
		{"single quoted", `'a\'b\n'`, &ast.StringLit{Value: `a'b\n`}},
		{"double quoted escapes", `"a\tb\x41\u{1F600}"`, &ast.StringLit{Value: "a\tbA\U0001F600"}},
		{"unknown escape kept", `"\q"`, &ast.StringLit{Value: `\q`}},
		{"magic constant", "__line__", &ast.MagicConst{Name: "__LINE__"}},
		{"cast", "(int) '5'", &ast.Cast{To: "int", Expr: &ast.StringLit{Value: "5"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseExprStmt(t, tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInterpolation(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ast.Expr
	}{
		{
			name:  "simple variable",
			input: `"Hi $name!"`,
			want: &ast.Interpolated{Parts: []ast.Expr{
				&ast.StringLit{Value: "Hi "}, &ast.Variable{Name: "name"}, &ast.StringLit{Value: "!"},
			}},
		},
		{
			name:  "array offset",
			input: `"$a[0] $a[key]"`,
			want: &ast.Interpolated{Parts: []ast.Expr{
				&ast.Index{Target: &ast.Variable{Name: "a"}, Index: &ast.IntLit{Value: 0}},
				&ast.StringLit{Value: " "},
				&ast.Index{Target: &ast.Variable{Name: "a"}, Index: &ast.StringLit{Value: "key"}},
			}},
		},
		{
			name:  "property",
			input: `"$o->name"`,
			want: &ast.Interpolated{Parts: []ast.Expr{
				&ast.PropertyFetch{Object: &ast.Variable{Name: "o"}, Name: "name"},
			}},
		},
		{
			name:  "braced expression",
			input: `"{$o->items[1]}"`,
			want: &ast.Interpolated{Parts: []ast.Expr{
				&ast.Index{Target: &ast.PropertyFetch{Object: &ast.Variable{Name: "o"}, Name: "items"}, Index: &ast.IntLit{Value: 1}},
			}},
		},
		{
			name:  "dollar brace",
			input: `"${x}y"`,
			want: &ast.Interpolated{Parts: []ast.Expr{
				&ast.Variable{Name: "x"}, &ast.StringLit{Value: "y"},
			}},
		},
		{
			name:  "escaped dollar",
			input: `"\$x"`,
			want:  &ast.StringLit{Value: "$x"},
		},
		{
			name:  "lone dollar",
			input: `"costs $5"`,
			want:  &ast.StringLit{Value: "costs $5"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseExprStmt(t, tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHeredoc(t *testing.T) {
	input := "$s = <<<EOT\n    Hello $name\n      indented\n    EOT;"
	assign, ok := parseExprStmt(t, input).(*ast.Assign)
	if !ok {
		t.Fatal("expected assignment")
	}
	want := &ast.Interpolated{Parts: []ast.Expr{
		&ast.StringLit{Value: "Hello "}, &ast.Variable{Name: "name"}, &ast.StringLit{Value: "\n  indented"},
	}}
	if diff := cmp.Diff(want, assign.Value); diff != "" {
		t.Errorf("heredoc mismatch (-want +got):\n%s", diff)
	}

	nowdoc := parseExprStmt(t, "<<<'EOT'\nraw $x\nEOT;")
	if diff := cmp.Diff(&ast.StringLit{Value: "raw $x"}, nowdoc); diff != "" {
		t.Errorf("nowdoc mismatch (-want +got):\n%s", diff)
	}
}

func TestPostfixChains(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ast.Expr
	}{
		{
			name:  "method call on index",
			input: "$a[0]->run(1)",
			want: &ast.MethodCall{
				Object: &ast.Index{Target: &ast.Variable{Name: "a"}, Index: &ast.IntLit{Value: 0}},
				Method: "run", Args: []ast.Arg{{Value: &ast.IntLit{Value: 1}}},
			},
		},
		{
			name:  "nullsafe property",
			input: "$a?->b",
			want:  &ast.PropertyFetch{Object: &ast.Variable{Name: "a"}, Name: "b", NullSafe: true},
		},
		{
			name:  "static call",
			input: "Foo::bar()",
			want:  &ast.StaticCall{Class: ast.ClassRef{Name: "Foo"}, Method: "bar", Args: []ast.Arg{}},
		},
		{
			name:  "class constant",
			input: "Foo::class",
			want:  &ast.ClassConstFetch{Class: ast.ClassRef{Name: "Foo"}, Name: "class"},
		},
		{
			name:  "static property",
			input: "Foo::$count",
			want:  &ast.StaticPropFetch{Class: ast.ClassRef{Name: "Foo"}, Name: "count"},
		},
		{
			name:  "first class callable",
			input: "strlen(...)",
			want:  &ast.FuncCall{Name: "strlen", FirstClass: true},
		},
		{
			name:  "named and spread arguments",
			input: "f(a: 1, ...$rest)",
			want: &ast.FuncCall{Name: "f", Args: []ast.Arg{
				{Name: "a", Value: &ast.IntLit{Value: 1}},
				{Value: &ast.Variable{Name: "rest"}, Unpack: true},
			}},
		},
		{
			name:  "immediately invoked closure",
			input: "(fn($x) => $x)(3)",
			want: &ast.FuncCall{
				Callee: &ast.ArrowFn{Params: []ast.Param{{Name: "x"}}, Body: &ast.Variable{Name: "x"}},
				Args:   []ast.Arg{{Value: &ast.IntLit{Value: 3}}},
			},
		},
		{
			name:  "variable variable",
			input: "$$name",
			want:  &ast.Variable{NameExpr: &ast.Variable{Name: "name"}},
		},
		{
			name:  "postfix increment",
			input: "$i++",
			want:  &ast.IncDec{Op: "++", Target: &ast.Variable{Name: "i"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseExprStmt(t, tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAssignments(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ast.Expr
	}{
		{
			name:  "compound",
			input: "$a .= 'x'",
			want:  &ast.CompoundAssign{Op: ".", Target: &ast.Variable{Name: "a"}, Value: &ast.StringLit{Value: "x"}},
		},
		{
			name:  "coalesce assign",
			input: "$a ??= 1",
			want:  &ast.CompoundAssign{Op: "??", Target: &ast.Variable{Name: "a"}, Value: &ast.IntLit{Value: 1}},
		},
		{
			name:  "short list destructuring",
			input: "[$a, , $b] = $xs",
			want: &ast.Assign{
				Target: &ast.ListExpr{Items: []*ast.ArrayItem{
					{Value: &ast.Variable{Name: "a"}}, nil, {Value: &ast.Variable{Name: "b"}},
				}},
				Value: &ast.Variable{Name: "xs"},
			},
		},
		{
			name:  "keyed list",
			input: "list('x' => $x) = $p",
			want: &ast.Assign{
				Target: &ast.ListExpr{Items: []*ast.ArrayItem{
					{Key: &ast.StringLit{Value: "x"}, Value: &ast.Variable{Name: "x"}},
				}},
				Value: &ast.Variable{Name: "p"},
			},
		},
		{
			name:  "append",
			input: "$a[] = 1",
			want:  &ast.Assign{Target: &ast.Index{Target: &ast.Variable{Name: "a"}}, Value: &ast.IntLit{Value: 1}},
		},
		{
			name:  "chained",
			input: "$a = $b = 2",
			want: &ast.Assign{Target: &ast.Variable{Name: "a"},
				Value: &ast.Assign{Target: &ast.Variable{Name: "b"}, Value: &ast.IntLit{Value: 2}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseExprStmt(t, tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMatchAndClosures(t *testing.T) {
	m, ok := parseExprStmt(t, "match($x) { 1, 2 => 'low', default => 'high' }").(*ast.Match)
	if !ok {
		t.Fatal("expected match expression")
	}
	if len(m.Arms) != 2 || len(m.Arms[0].Conds) != 2 || m.Arms[1].Conds != nil {
		t.Errorf("unexpected arms: %+v", m.Arms)
	}

	c, ok := parseExprStmt(t, "function($a) use ($b, &$c): int { return $a; }").(*ast.Closure)
	if !ok {
		t.Fatal("expected closure")
	}
	wantUses := []ast.ClosureUse{{Name: "b"}, {Name: "c", ByRef: true}}
	if diff := cmp.Diff(wantUses, c.Uses); diff != "" {
		t.Errorf("uses mismatch (-want +got):\n%s", diff)
	}
	if c.ReturnType.String() != "int" {
		t.Errorf("ReturnType = %s, want int", c.ReturnType)
	}
}

func TestNew(t *testing.T) {
	n, ok := parseExprStmt(t, "new Foo(1)").(*ast.New)
	if !ok || n.Class.Name != "Foo" || len(n.Args) != 1 {
		t.Errorf("unexpected new: %+v", n)
	}

	anon, ok := parseExprStmt(t, "new class(2) extends Base { public $x = 1; }").(*ast.New)
	if !ok || anon.Anon == nil {
		t.Fatal("expected anonymous class")
	}
	if anon.Anon.Extends != "Base" || len(anon.Anon.Body.Props) != 1 || len(anon.Args) != 1 {
		t.Errorf("unexpected anonymous class: %+v", anon.Anon)
	}

	chained, ok := parseExprStmt(t, "(new Foo)->bar()").(*ast.MethodCall)
	if !ok || chained.Method != "bar" {
		t.Errorf("unexpected chained call: %+v", chained)
	}
}

func TestStatements(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, s ast.Stmt)
	}{
		{
			name:  "function declaration",
			input: "function add(int $a, int $b = 2): int { return $a + $b; }",
			check: func(t *testing.T, s ast.Stmt) {
				fn := s.(*ast.FuncDecl)
				if fn.Name != "add" || len(fn.Params) != 2 || fn.Params[1].Default == nil {
					t.Errorf("unexpected function: %+v", fn)
				}
			},
		},
		{
			name:  "class declaration",
			input: "final class Point extends Base implements A, B { const ORIGIN = 0; public function __construct(private int $x = 0) {} abstract protected function f(); }",
			check: func(t *testing.T, s ast.Stmt) {
				c := s.(*ast.ClassDecl)
				if !c.Final || c.Extends != "Base" || len(c.Implements) != 2 {
					t.Errorf("unexpected header: %+v", c)
				}
				if len(c.Body.Consts) != 1 || len(c.Body.Methods) != 2 {
					t.Errorf("unexpected body: %+v", c.Body)
				}
				if c.Body.Methods[0].Params[0].Promote != "private" {
					t.Errorf("promotion not recorded: %+v", c.Body.Methods[0].Params[0])
				}
				if c.Body.Methods[1].Body != nil {
					t.Errorf("abstract method has a body")
				}
			},
		},
		{
			name:  "backed enum",
			input: "enum Suit: string { case Hearts = 'H'; case Spades = 'S'; }",
			check: func(t *testing.T, s ast.Stmt) {
				e := s.(*ast.EnumDecl)
				if e.BackingType != "string" || len(e.Body.Cases) != 2 {
					t.Errorf("unexpected enum: %+v", e)
				}
			},
		},
		{
			name:  "foreach with key",
			input: "foreach ($xs as $k => [$a, $b]) { echo $a; }",
			check: func(t *testing.T, s ast.Stmt) {
				f := s.(*ast.Foreach)
				if f.Key == nil {
					t.Fatal("missing key")
				}
				if _, ok := f.Value.(*ast.ListExpr); !ok {
					t.Errorf("Value = %T, want list target", f.Value)
				}
			},
		},
		{
			name:  "group use",
			input: `use Phunkie\Types\{ImmList, Option as Opt};`,
			check: func(t *testing.T, s ast.Stmt) {
				u := s.(*ast.Use)
				want := []ast.UseItem{
					{Name: `Phunkie\Types\ImmList`},
					{Name: `Phunkie\Types\Option`, Alias: "Opt"},
				}
				if diff := cmp.Diff(want, u.Items); diff != "" {
					t.Errorf("items mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name:  "try catch finally",
			input: "try { f(); } catch (A|B $e) { } finally { g(); }",
			check: func(t *testing.T, s ast.Stmt) {
				tr := s.(*ast.Try)
				if len(tr.Catches) != 1 || len(tr.Catches[0].Types) != 2 || tr.Catches[0].Var != "e" || tr.Finally == nil {
					t.Errorf("unexpected try: %+v", tr)
				}
			},
		},
		{
			name:  "switch",
			input: "switch ($x) { case 1: echo 'a'; break; default: echo 'b'; }",
			check: func(t *testing.T, s ast.Stmt) {
				sw := s.(*ast.Switch)
				if len(sw.Cases) != 2 || sw.Cases[1].Cond != nil || len(sw.Cases[0].Body) != 2 {
					t.Errorf("unexpected switch: %+v", sw)
				}
			},
		},
		{
			name:  "namespace",
			input: `namespace App\Models;`,
			check: func(t *testing.T, s ast.Stmt) {
				if ns := s.(*ast.Namespace); ns.Name != `App\Models` || ns.Braced {
					t.Errorf("unexpected namespace: %+v", ns)
				}
			},
		},
		{
			name:  "else if chain",
			input: "if ($a) { } elseif ($b) { } else if ($c) { } else { }",
			check: func(t *testing.T, s ast.Stmt) {
				i := s.(*ast.If)
				if len(i.ElseIfs) != 2 || !i.HasElse {
					t.Errorf("unexpected if: %+v", i)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, parseOne(t, tt.input))
		})
	}
}

func TestParseExpr(t *testing.T) {
	e, err := ParseExpr("strlen('abc')")
	if err != nil {
		t.Fatalf("ParseExpr() error = %v", err)
	}
	if call, ok := e.(*ast.FuncCall); !ok || call.Name != "strlen" {
		t.Errorf("ParseExpr() = %#v, want call to strlen", e)
	}
	if _, err := ParseExpr("1 1"); err == nil {
		t.Error("ParseExpr(\"1 1\") error = nil, want error")
	}
}
