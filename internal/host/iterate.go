package host

import (
	"iter"

	"github.com/itsmostafa/phunkie/internal/value"
)

// Iterate returns the key/value sequence of an array, generator,
// ArrayObject or IteratorAggregate. Generator failures are reported by
// the returned error func after the sequence ends.
func (rt *Runtime) Iterate(v value.Value) (iter.Seq2[value.Value, value.Value], func() error, error) {
	none := func() error { return nil }
	switch v.Kind {
	case value.KindArray:
		a := v.AsArray()
		return func(yield func(k, v value.Value) bool) {
			for k, el := range a.All() {
				if !yield(k.Value(), el) {
					return
				}
			}
		}, none, nil
	case value.KindGenerator:
		g := v.AsGenerator()
		return g.All(), g.Err, nil
	case value.KindObject:
		if a, ok := ArrayStorage(v); ok {
			return rt.Iterate(value.Arr(a.Copy()))
		}
		if rt.InstanceOf(v, "IteratorAggregate") {
			m, err := rt.Method(v, "getIterator", nil)
			if err != nil {
				return nil, nil, err
			}
			inner, err := m.Call(nil)
			if err != nil {
				return nil, nil, err
			}
			return rt.Iterate(inner)
		}
		return func(yield func(k, v value.Value) bool) {
			for k, el := range v.AsObject().Properties().All() {
				if !yield(k.Value(), el) {
					return
				}
			}
		}, none, nil
	}
	return nil, nil, errorf("Error", "foreach() argument must be of type array|object, %s given", value.DebugType(v))
}

// ToArray materializes any iterable
func (rt *Runtime) ToArray(v value.Value, preserveKeys bool) (*value.Array, error) {
	if v.Kind == value.KindArray {
		if preserveKeys {
			return v.AsArray(), nil
		}
		return value.NewList(v.AsArray().Values()...), nil
	}
	seq, done, err := rt.Iterate(v)
	if err != nil {
		return nil, err
	}
	out := value.NewArray()
	for k, el := range seq {
		if !preserveKeys {
			out.Push(el)
			continue
		}
		key, err := value.ToKey(k)
		if err != nil {
			return nil, err
		}
		out.Put(key, el)
	}
	return out, done()
}
