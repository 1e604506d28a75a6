package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rc := filepath.Join(t.TempDir(), "rc.yaml")
	if err := os.WriteFile(rc, []byte("history_limit: 10\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetArgs(append(args, "--config", rc, "--no-history"))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestEvalCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr string
	}{
		{name: "expression", args: []string{"eval", "1 + 1"}, want: "$var0: Int = 2\n"},
		{name: "joined arguments", args: []string{"eval", "strtoupper('a')", ".", "'b'"}, want: "$var0: String = \"Ab\"\n"},
		{name: "assignment", args: []string{"eval", "$x = [1, 2]"}, want: "$x: Array = [1, 2]\n"},
		{name: "failure", args: []string{"eval", "$nope"}, wantErr: "Undefined variable $nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := execute(t, tt.args...)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScriptMode(t *testing.T) {
	dir := t.TempDir()
	ok := filepath.Join(dir, "ok.php")
	if err := os.WriteFile(ok, []byte("<?php\n$a = 2;\nfunction triple($n) {\n  return $n * 3;\n}\ntriple($a)\n"), 0644); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "bad.php")
	if err := os.WriteFile(bad, []byte("$a = 1;\n$b + 1;\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, ok)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	want := "$a: Int = 2\n// function triple defined\n$var0: Int = 6\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}

	if _, err := execute(t, bad); err == nil || !strings.Contains(err.Error(), "bad.php") {
		t.Errorf("error = %v, want failure naming the script", err)
	}
}
