package repl

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/itsmostafa/phunkie/internal/session"
	"github.com/itsmostafa/phunkie/internal/value"
)

// scriptReader feeds fixed lines and records the prompts it was given
type scriptReader struct {
	lines   []string
	prompts []string
}

func (r *scriptReader) ReadLine(prompt string) (string, error) {
	r.prompts = append(r.prompts, prompt)
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func runLines(t *testing.T, lines ...string) (string, session.Session, *scriptReader) {
	t.Helper()
	out := &bytes.Buffer{}
	in := &scriptReader{lines: lines}
	c := New(Config{Input: in, Output: out})
	s, err := c.Run(session.New(false))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return out.String(), s, in
}

func TestConsoleOutput(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []string
	}{
		{
			name:  "auto bound results",
			lines: []string{"1 + 1", "$var0 * 2", ":vars"},
			want: []string{
				"$var0: Int = 2\n",
				"$var1: Int = 4\n",
				"\nDefined variables:\n  $var0 = 2\n  $var1 = 4\n\n",
			},
		},
		{
			name:  "assignment",
			lines: []string{"$x = 'hi'"},
			want:  []string{`$x: String = "hi"`},
		},
		{
			name:  "reset clears variables",
			lines: []string{"$a = 1", ":reset", ":vars"},
			want:  []string{"REPL state reset\n", "No variables defined\n"},
		},
		{
			name:  "multi-line function",
			lines: []string{"function f($a, $b = 10) {", "  return $a + $b;", "}", "f(5)"},
			want:  []string{"// function f defined\n", "$var0: Int = 15\n"},
		},
		{
			name: "error text cleaned",
			lines: []string{
				"throw new ArgumentCountError('Too few arguments to function f(), 1 passed and exactly 2 expected')",
				"throw new Exception(\"spread \\n   over   lines\")",
			},
			want: []string{
				"Error: Too few arguments to function f(), 1 passed\n",
				"Error: spread over lines\n",
			},
		},
		{
			name:  "unknown command",
			lines: []string{":foo"},
			want:  []string{"CommandError: Unknown command: :foo\n"},
		},
		{
			name:  "command missing its argument",
			lines: []string{":load"},
			want:  []string{"CommandError: Unknown command: :load\n"},
		},
		{
			name:  "undefined variable",
			lines: []string{"$nope"},
			want:  []string{"Error: Undefined variable $nope\n"},
		},
		{
			name:  "arity failure",
			lines: []string{"function two($a, $b) { return $a; }", "two(1)"},
			want:  []string{"TypeError: "},
		},
		{
			name:  "namespace",
			lines: []string{"namespace App", "namespace App\\Models;"},
			want:  []string{"Namespace set to: App\n", "Namespace set to: App\\Models\n"},
		},
		{
			name:  "use imports",
			lines: []string{"use Foo\\Bar", "use A\\B, C\\D"},
			want:  []string{"Imported 1 class/function\n", "Imported 2 classes/functions\n"},
		},
		{
			name:  "declarations",
			lines: []string{"class Point {}", "interface Shape {}", "trait Named {}", "enum Suit { case Hearts; }"},
			want: []string{
				"// class Point defined\n",
				"// interface Shape defined\n",
				"// trait Named defined\n",
				"// enum Suit defined\n",
			},
		},
		{
			name:  "echo is not bound",
			lines: []string{"echo 'hi'", ":vars"},
			want:  []string{"hi\n", "No variables defined\n"},
		},
		{
			name:  "history",
			lines: []string{":history", "1", "2"},
			want:  []string{"No history\n"},
		},
		{
			name:  "type and kind",
			lines: []string{":type 1.5", ":kind [1, 2]", ":k 1", ":type $missing"},
			want:  []string{"Float\n", "* -> *\n", "*\n", "Error: Undefined variable $missing\n"},
		},
		{
			name:  "import",
			lines: []string{":import immlist/head", ":import nope/x", "head([7, 8])"},
			want: []string{
				"imported function \\Phunkie\\Functions\\immlist\\head()\n",
				"Error: Module 'nope' not found in package 'phunkie/phunkie'\n",
				"$var0: Int = 7\n",
			},
		},
		{
			name:  "exit",
			lines: []string{":exit", "1 + 1"},
			want:  []string{"\nbye \\o\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, _ := runLines(t, tt.lines...)
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q\ngot:\n%s", w, out)
				}
			}
		})
	}
}

func TestExitStopsReading(t *testing.T) {
	out, _, in := runLines(t, ":quit", "1 + 1")
	if strings.Contains(out, "$var0") {
		t.Errorf("input after :quit was evaluated:\n%s", out)
	}
	if len(in.lines) != 1 {
		t.Errorf("remaining lines = %d, want 1", len(in.lines))
	}
}

func TestSideBindingsFollowPrimary(t *testing.T) {
	out, s, _ := runLines(t, "$var0 = 5; 1 + 1", "$var0")
	if !strings.Contains(out, "$var0: Int = 2\n") {
		t.Errorf("output missing the auto binding:\n%s", out)
	}
	if !strings.Contains(out, "$var1: Int = 5\n") {
		t.Errorf("side assignment did not win over the auto binding:\n%s", out)
	}
	if v, _ := s.Variable("$var0"); v != value.Int(5) {
		t.Errorf("$var0 = %v, want 5", v)
	}
}

func TestParseErrorKeepsSession(t *testing.T) {
	out, s, _ := runLines(t, "$x = 5", "$x = $x +")
	if !strings.Contains(out, "Parse error: ") {
		t.Errorf("output missing parse error:\n%s", out)
	}
	v, ok := s.Variable("$x")
	if !ok || v != value.Int(5) {
		t.Errorf("$x = %v, %v; want 5", v, ok)
	}
	if got := s.History(); len(got) != 1 {
		t.Errorf("History() = %v, want only the successful input", got)
	}
}

func TestWhileLoopUpdatesSession(t *testing.T) {
	_, s, _ := runLines(t, "$i = 0; while ($i < 3) { $i = $i + 1; }")
	if v, _ := s.Variable("$i"); v != value.Int(3) {
		t.Errorf("$i = %v, want 3", v)
	}
}

// counterReader yields "$n = 0" followed by increments of $n
type counterReader struct {
	read, total int
}

func (r *counterReader) ReadLine(string) (string, error) {
	if r.read > r.total {
		return "", io.EOF
	}
	r.read++
	if r.read == 1 {
		return "$n = 0", nil
	}
	return "$n = $n + 1", nil
}

func TestLongSessionRunsInConstantStack(t *testing.T) {
	const turns = 100000
	c := New(Config{Input: &counterReader{total: turns}, Output: io.Discard})
	s, err := c.Run(session.New(false))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got, ok := s.Variable("$n"); !ok || !value.Identical(got, value.Int(turns)) {
		t.Errorf("$n = %v, want %d", got, turns)
	}
	if got := len(s.History()); got != turns+1 {
		t.Errorf("len(History()) = %d, want %d", got, turns+1)
	}
}

func TestPrompts(t *testing.T) {
	_, s, in := runLines(t, "if (true) {", "  1;", "}")
	want := []string{DefaultPrompt, DefaultContinuationPrompt, DefaultContinuationPrompt, DefaultPrompt}
	if diff := cmp.Diff(want, in.prompts); diff != "" {
		t.Errorf("prompts mismatch (-want +got):\n%s", diff)
	}
	if s.Incomplete() != "" {
		t.Errorf("Incomplete() = %q, want empty", s.Incomplete())
	}
	if got := s.History(); len(got) != 1 || !strings.Contains(got[0], "\n") {
		t.Errorf("History() = %q, want the joined fragment", got)
	}
}

func TestCommandsIgnoredWhileBuffering(t *testing.T) {
	out, _, _ := runLines(t, "$a = [", ":vars", "]")
	if strings.Contains(out, "Defined variables") || strings.Contains(out, "No variables") {
		t.Errorf(":vars ran inside a buffered fragment:\n%s", out)
	}
}

func TestColor(t *testing.T) {
	out := &bytes.Buffer{}
	in := &scriptReader{lines: []string{"1"}}
	c := New(Config{Input: in, Output: out, Color: true, Banner: true})
	if _, err := c.Run(session.New(true)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(in.prompts[0], "\x1b[38;2;85;85;255m") {
		t.Errorf("prompt %q is not colored", in.prompts[0])
	}
	if !strings.Contains(out.String(), "Welcome to \x1b[") {
		t.Errorf("banner is not colored:\n%q", out.String())
	}
	if strings.Contains(out.String(), "$var0: Int = 1") {
		t.Errorf("result line is not styled:\n%q", out.String())
	}
}

func TestBannerPlain(t *testing.T) {
	out := &bytes.Buffer{}
	c := New(Config{Input: &scriptReader{}, Output: out, Banner: true})
	if _, err := c.Run(session.New(false)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := "Welcome to phunkie console.\n\nType in expressions to have them evaluated.\n\n\nbye \\o\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.php")
	src := "<?php\nfunction double($x) { return $x * 2; }\n$loaded = 3;\necho 'noise';\n"
	if err := os.WriteFile(lib, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("1"), 0644); err != nil {
		t.Fatal(err)
	}

	out, s, _ := runLines(t,
		":load "+lib,
		"double($loaded)",
		":load "+txt,
		":load "+filepath.Join(dir, "missing.php"),
	)
	for _, w := range []string{
		"// file lib.php loaded\n",
		"$var0: Int = 6\n",
		"Error: File must have .phunkie or .php extension\n",
		"Error: File not found: ",
	} {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q\ngot:\n%s", w, out)
		}
	}
	if strings.Contains(out, "noise") {
		t.Errorf("output of loaded file was not discarded:\n%s", out)
	}
	if _, ok := s.Variable("$loaded"); !ok {
		t.Error("variable from loaded file not kept")
	}
}

func TestScriptModeStopsOnError(t *testing.T) {
	out := &bytes.Buffer{}
	in := NewScanReader(strings.NewReader("$a = 1\n$b\n$c = 3\n"), nil)
	c := New(Config{Input: in, Output: out, Script: true})
	s, err := c.Run(session.New(false))
	if err == nil {
		t.Fatal("Run() error = nil, want undefined variable error")
	}
	if !strings.Contains(err.Error(), "Undefined variable $b") {
		t.Errorf("error = %v", err)
	}
	if _, ok := s.Variable("$c"); ok {
		t.Error("script continued after the failing line")
	}
	if strings.Contains(out.String(), "bye") {
		t.Errorf("script mode printed the farewell:\n%s", out.String())
	}
}

func TestEval(t *testing.T) {
	out := &bytes.Buffer{}
	c := New(Config{Output: out})
	s, err := c.Eval("  2 ** -1 ", session.New(false))
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if got := out.String(); got != "$var0: Float = 0.5\n" {
		t.Errorf("output = %q", got)
	}
	if _, err := c.Eval("$undefined", s); err == nil {
		t.Error("Eval() of an undefined variable returned no error")
	}
}

func TestTranscript(t *testing.T) {
	tr := NewTranscript(filepath.Join(t.TempDir(), "session.jsonl"))
	c := New(Config{Input: &scriptReader{lines: []string{"$x = 1", "$y", ":vars"}}, Transcript: tr})
	if _, err := c.Run(session.New(false)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	turns, err := tr.Turns(c.SessionID())
	if err != nil {
		t.Fatalf("Turns() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}
	if turns[0].Variable != "$x" || turns[0].Type != "Int" || turns[0].Number != 1 {
		t.Errorf("turns[0] = %+v", turns[0])
	}
	if turns[1].Error == "" {
		t.Errorf("turns[1] = %+v, want an error", turns[1])
	}

	other, err := tr.Turns("someone-else")
	if err != nil || len(other) != 0 {
		t.Errorf("Turns(other) = %v, %v; want none", other, err)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		typ  string
		want string
	}{
		{"Array", "* -> *"},
		{"Generator", "* -> *"},
		{"Option<Int>", "* -> *"},
		{"Int", "*"},
		{"Callable", "*"},
		{"Point", "*"},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			if got := kindOf(tt.typ); got != tt.want {
				t.Errorf("kindOf(%q) = %q, want %q", tt.typ, got, tt.want)
			}
		})
	}
}

func TestStripOpenTag(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"with tag", "<?php\n$a = 1;", "$a = 1;"},
		{"leading blank lines", "\n\n<?php $a = 1;", "$a = 1;"},
		{"without tag", "$a = 1;", "$a = 1;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripOpenTag(tt.src); got != tt.want {
				t.Errorf("StripOpenTag() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScanReader(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewScanReader(strings.NewReader("one\r\ntwo\n"), out)
	var got []string
	for {
		line, err := r.ReadLine("> ")
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadLine() error = %v", err)
		}
		got = append(got, line)
	}
	if diff := cmp.Diff([]string{"one", "two"}, got); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
	if out.String() != "> > > " {
		t.Errorf("prompts = %q", out.String())
	}
}

func TestTrimHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	var lines []string
	for i := range 10 {
		lines = append(lines, strings.Repeat("x", i+1))
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := trimHistory(path, 3); err != nil {
		t.Fatalf("trimHistory() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("xxxxxxxx\nxxxxxxxxx\nxxxxxxxxxx\n", string(data)); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}
