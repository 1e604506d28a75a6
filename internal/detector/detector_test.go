package detector

import "testing"

func TestIsComplete(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "simple expression", input: "1 + 1", want: true},
		{name: "open brace", input: "function f() {", want: false},
		{name: "open brace with trailing whitespace", input: "if (true) {   \n  ", want: false},
		{name: "closed function", input: "function f() {\n  return 1;\n}", want: true},
		{name: "open bracket", input: "$a = [1, 2,", want: false},
		{name: "open paren", input: "strlen(", want: false},
		{name: "brace inside string", input: `$s = "{"`, want: true},
		{name: "unterminated string", input: `$s = "abc`, want: false},
		{name: "escaped quote", input: `$s = "a\"b"`, want: true},
		{name: "single quoted brace", input: `$s = '}'`, want: true},
		{name: "trailing operator is left to the parser", input: "$x = $x +", want: true},
		{name: "dangling attribute", input: "#[Pure]", want: false},
		{name: "attribute with declaration", input: "#[Pure]\nfunction f() { return 1; }", want: true},
		{name: "open heredoc", input: "$s = <<<EOT\nhello", want: false},
		{name: "closed heredoc", input: "$s = <<<EOT\nhello\nEOT;", want: true},
		{name: "closed nowdoc", input: "$s = <<<'EOT'\nhello\n  EOT", want: true},
		{name: "quoted heredoc label", input: "$s = <<<\"EOT\"\nhello", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsComplete(tt.input); got != tt.want {
				t.Errorf("IsComplete(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestConcatenatedCompleteFragmentsStayComplete(t *testing.T) {
	fragments := []string{"1 + 1", "$a = [1, 2]", "function f() { return 1; }", `echo "}"`, "if ($x) { $y = 1; }"}

	for _, a := range fragments {
		for _, b := range fragments {
			if !IsComplete(a + "\n" + b) {
				t.Errorf("IsComplete(%q + %q) = false, want true", a, b)
			}
		}
	}
}

func TestIsCompleteIsIdempotent(t *testing.T) {
	inputs := []string{"function f() {", "1 + 1", "$s = <<<EOT\nx"}
	for _, in := range inputs {
		if IsComplete(in) != IsComplete(in) {
			t.Errorf("IsComplete(%q) changed between calls", in)
		}
	}
}
