// Package result describes what one evaluation produced.
package result

import (
	"github.com/itsmostafa/phunkie/internal/session"
	"github.com/itsmostafa/phunkie/internal/value"
)

// SignalKind tells the driver how to present a result
type SignalKind int

const (
	// SignalValue is a plain value bound to the next $varN
	SignalValue SignalKind = iota
	// SignalBind is an assignment or declaration bound to Signal.Name
	SignalBind
	// SignalNamespace sets or clears the current namespace
	SignalNamespace
	// SignalImport registers use aliases
	SignalImport
	// SignalSilent is recorded in history only
	SignalSilent
)

// Signal carries the presentation instruction of a Result
type Signal struct {
	Kind SignalKind
	// Name is the bound variable for SignalBind and the namespace for SignalNamespace
	Name    string
	Aliases []session.Alias
}

// Bind signals an assignment to name
func Bind(name string) Signal { return Signal{Kind: SignalBind, Name: name} }

// Namespace signals a namespace change; an empty name clears it
func Namespace(name string) Signal { return Signal{Kind: SignalNamespace, Name: name} }

// Import signals new use aliases
func Import(aliases ...session.Alias) Signal {
	return Signal{Kind: SignalImport, Aliases: aliases}
}

// Silent signals a history-only result
var Silent = Signal{Kind: SignalSilent}

// Binding is a variable assignment performed as a side effect
type Binding struct {
	Name  string
	Value value.Value
}

// Result is the outcome of evaluating a fragment
type Result struct {
	Value  value.Value
	Type   string
	Signal Signal
	// Side holds assignments made besides the primary one, in order
	Side []Binding
	// Removed lists variables unset by the fragment
	Removed []string
	// Scope holds namespace and import signals raised before the last
	// statement of the fragment
	Scope []Signal
	// SideEffectOnly marks results whose effect was output, not a value
	SideEffectOnly bool
}

// Of wraps a plain value
func Of(v value.Value) Result {
	return Result{Value: v, Type: value.TypeOf(v)}
}

// Bound wraps a value assigned to name
func Bound(name string, v value.Value) Result {
	return Result{Value: v, Type: value.TypeOf(v), Signal: Bind(name)}
}

// Output wraps the result of an output statement
func Output(v value.Value) Result {
	r := Of(v)
	r.SideEffectOnly = true
	return r
}

// Declared reports a declaration of the given kind, such as Class or Trait
func Declared(kind, name string, sig Signal) Result {
	return Result{Value: value.Str(name), Type: kind, Signal: sig}
}

// Apply replays earlier namespace and import changes, then binds the side
// assignments into s and drops removed variables
func (r Result) Apply(s session.Session) session.Session {
	return r.ApplyBindings(r.ApplyScope(s))
}

// ApplyScope replays the namespace and import changes raised before the
// last statement
func (r Result) ApplyScope(s session.Session) session.Session {
	for _, sig := range r.Scope {
		switch sig.Kind {
		case SignalNamespace:
			s = s.WithNamespace(sig.Name)
		case SignalImport:
			for _, a := range sig.Aliases {
				s = s.WithAlias(a.Alias, a.FullName)
			}
		}
	}
	return s
}

// ApplyBindings binds the side assignments into s and drops removed
// variables
func (r Result) ApplyBindings(s session.Session) session.Session {
	for _, b := range r.Side {
		s = s.WithVariable(b.Name, b.Value)
	}
	for _, name := range r.Removed {
		s = s.WithoutVariable(name)
	}
	return s
}
