package host

import (
	"github.com/itsmostafa/phunkie/internal/value"
)

func (rt *Runtime) registerCalls() {
	rt.def("call_user_func", "callable callback, mixed ...args", func(a ...value.Value) (value.Value, error) {
		return rt.call(a[0], a[1:]...)
	})
	rt.def("call_user_func_array", "callable callback, array args", func(a ...value.Value) (value.Value, error) {
		fn, err := rt.Callable(a[0], nil)
		if err != nil {
			return value.Null, err
		}
		var positional []value.Value
		var named []value.NamedArg
		for k, v := range a[1].AsArray().All() {
			if k.IsStr {
				named = append(named, value.NamedArg{Name: k.Str, Value: v})
				continue
			}
			if len(named) > 0 {
				return value.Null, errorf("Error", "Cannot use positional argument after named argument during unpacking")
			}
			positional = append(positional, v)
		}
		args, err := value.BindNamed(fn, positional, named)
		if err != nil {
			return value.Null, err
		}
		return fn.Call(args)
	})
}
