package session

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/itsmostafa/phunkie/internal/value"
)

func TestSessionIsImmutable(t *testing.T) {
	s := New(false)
	s2 := s.WithVariable("$x", value.Int(1)).WithHistory("$x = 1")

	if _, ok := s.Variable("$x"); ok {
		t.Error("original session gained $x")
	}
	if len(s.History()) != 0 {
		t.Errorf("original history = %v, want empty", s.History())
	}
	v, ok := s2.Variable("$x")
	if !ok || v.AsInt() != 1 {
		t.Errorf("Variable($x) = %v, %v; want 1, true", v, ok)
	}
}

func TestHistoryBranchesDoNotAlias(t *testing.T) {
	base := New(false).WithHistory("a")
	left := base.WithHistory("b")
	right := base.WithHistory("c")

	if diff := cmp.Diff([]string{"a", "b"}, left.History()); diff != "" {
		t.Errorf("left history mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "c"}, right.History()); diff != "" {
		t.Errorf("right history mismatch (-want +got):\n%s", diff)
	}
}

func TestNextVariable(t *testing.T) {
	s := New(false)
	name, s := s.NextVariable()
	if name != "$var0" {
		t.Errorf("NextVariable() = %q, want $var0", name)
	}
	name, s = s.NextVariable()
	if name != "$var1" {
		t.Errorf("NextVariable() = %q, want $var1", name)
	}
	if s.Counter() != 2 {
		t.Errorf("Counter() = %d, want 2", s.Counter())
	}
}

func TestReset(t *testing.T) {
	s := New(true).
		WithVariable("$x", value.Int(1)).
		WithHistory("$x = 1").
		WithNamespace("App").
		WithAlias("Foo", `Lib\Foo`).
		WithIncomplete("if (")
	_, s = s.NextVariable()

	r := s.Reset()
	if len(r.Variables()) != 0 || len(r.History()) != 0 || r.Counter() != 0 || r.Incomplete() != "" {
		t.Errorf("Reset() left state behind: %+v", r)
	}
	if _, ok := r.Namespace(); ok {
		t.Error("Reset() kept namespace")
	}
	if len(r.Aliases()) != 0 {
		t.Error("Reset() kept aliases")
	}
	if !r.ColorEnabled() {
		t.Error("Reset() dropped color setting")
	}
}

func TestResolveName(t *testing.T) {
	s := New(false).WithNamespace(`App\Models`).WithAlias("Coll", `Lib\Collections`)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "fully qualified", in: `\strlen`, want: "strlen"},
		{name: "namespace prefix", in: "User", want: `App\Models\User`},
		{name: "alias", in: "Coll", want: `Lib\Collections`},
		{name: "alias first segment", in: `Coll\ImmList`, want: `Lib\Collections\ImmList`},
		{name: "qualified gets namespace", in: `Sub\Thing`, want: `App\Models\Sub\Thing`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.ResolveName(tt.in); got != tt.want {
				t.Errorf("ResolveName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	if got := New(false).ResolveName("strlen"); got != "strlen" {
		t.Errorf("ResolveName without namespace = %q, want strlen", got)
	}
}
