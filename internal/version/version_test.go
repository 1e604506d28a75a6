package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	Version, Commit = "1.2.3", "abc123"
	got := String()
	for _, want := range []string{"1.2.3", "commit: abc123", "go"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
}
