package result

import (
	"testing"

	"github.com/itsmostafa/phunkie/internal/session"
	"github.com/itsmostafa/phunkie/internal/value"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		r        Result
		wantType string
		wantKind SignalKind
	}{
		{name: "plain value", r: Of(value.Int(2)), wantType: "Int", wantKind: SignalValue},
		{name: "bound value", r: Bound("$x", value.Str("a")), wantType: "String", wantKind: SignalBind},
		{name: "declaration", r: Declared("Trait", "T", Silent), wantType: "Trait", wantKind: SignalSilent},
		{name: "namespace", r: Result{Signal: Namespace("App")}, wantType: "", wantKind: SignalNamespace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.r.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", tt.r.Type, tt.wantType)
			}
			if tt.r.Signal.Kind != tt.wantKind {
				t.Errorf("Signal.Kind = %v, want %v", tt.r.Signal.Kind, tt.wantKind)
			}
		})
	}
}

func TestApply(t *testing.T) {
	r := Bound("$a", value.Int(1))
	r.Side = []Binding{{Name: "$b", Value: value.Int(2)}, {Name: "$c", Value: value.Int(3)}}

	s := r.Apply(session.New(false))
	for _, name := range []string{"$b", "$c"} {
		if _, ok := s.Variable(name); !ok {
			t.Errorf("Apply() did not bind %s", name)
		}
	}
	if _, ok := s.Variable("$a"); ok {
		t.Error("Apply() bound the primary variable, which is the driver's job")
	}
	if !Output(value.Null).SideEffectOnly {
		t.Error("Output() should be side-effect only")
	}
}
