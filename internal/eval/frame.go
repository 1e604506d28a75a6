package eval

import (
	"strings"

	"github.com/itsmostafa/phunkie/internal/host"
	"github.com/itsmostafa/phunkie/internal/result"
	"github.com/itsmostafa/phunkie/internal/session"
	"github.com/itsmostafa/phunkie/internal/value"
)

// frame is one activation: the top level of a fragment or a function call.
// Variable names are stored without the leading $.
type frame struct {
	vars  map[string]*value.Ref
	order []string

	this   *host.Instance
	self   *host.Class
	static *host.Class

	function string
	method   string
	args     []value.Value

	// names resolves class and function names against the namespace and
	// use imports in effect where the code was written
	names session.Session

	gen *generatorState

	// last and lastOutput track the most recent expression statement
	last       value.Value
	lastOutput bool
}

func newFrame(names session.Session) *frame {
	return &frame{vars: make(map[string]*value.Ref), names: names, last: value.Null}
}

// topFrame seeds a frame with the session's variables
func topFrame(s session.Session) *frame {
	f := newFrame(s)
	for _, v := range s.Variables() {
		f.set(strings.TrimPrefix(v.Name, "$"), v.Value)
	}
	return f
}

func (f *frame) lookup(name string) (*value.Ref, bool) {
	r, ok := f.vars[name]
	return r, ok
}

// slot returns the variable's cell, creating it as null when missing
func (f *frame) slot(name string) *value.Ref {
	if r, ok := f.vars[name]; ok {
		return r
	}
	r := &value.Ref{Value: value.Null}
	f.bind(name, r)
	return r
}

func (f *frame) set(name string, v value.Value) {
	f.slot(name).Value = value.Deref(v)
}

// bind makes name an alias of r
func (f *frame) bind(name string, r *value.Ref) {
	if _, ok := f.vars[name]; !ok {
		f.order = append(f.order, name)
	}
	f.vars[name] = r
}

func (f *frame) unset(name string) {
	if _, ok := f.vars[name]; !ok {
		return
	}
	delete(f.vars, name)
	for i, n := range f.order {
		if n == name {
			f.order = append(f.order[:i:i], f.order[i+1:]...)
			break
		}
	}
}

// snapshot returns the variables by value in definition order
func (f *frame) snapshot() *value.Array {
	out := value.NewArray()
	for _, name := range f.order {
		out.Put(value.StrKey(name), f.vars[name].Value)
	}
	return out
}

// copyVars gives a generator traversal its own cells holding the values
// bound at call time
func (f *frame) copyVars() *frame {
	c := *f
	c.vars = make(map[string]*value.Ref, len(f.vars))
	c.order = append([]string(nil), f.order...)
	for name, r := range f.vars {
		c.vars[name] = &value.Ref{Value: r.Value}
	}
	return &c
}

// changes diffs the frame against the variables the fragment started
// with. primary is left out of the side bindings because the result
// already binds it.
func (f *frame) changes(before *value.Array, primary string) ([]result.Binding, []string) {
	var side []result.Binding
	for _, name := range f.order {
		key := "$" + name
		if key == primary {
			continue
		}
		now := f.vars[name].Value
		old, existed := before.Get(value.StrKey(key))
		if existed && !changed(old, now) {
			continue
		}
		side = append(side, result.Binding{Name: key, Value: now})
	}
	var removed []string
	for k := range before.All() {
		if _, ok := f.vars[strings.TrimPrefix(k.String(), "$")]; !ok {
			removed = append(removed, k.String())
		}
	}
	return side, removed
}

func changed(old, now value.Value) bool {
	if old.Kind != now.Kind {
		return true
	}
	switch now.Kind {
	case value.KindArray, value.KindCallable, value.KindGenerator:
		return old.Data != now.Data
	case value.KindObject:
		return old.AsObject().Handle() != now.AsObject().Handle()
	}
	return !value.Identical(old, now)
}
