package host

import (
	"fmt"

	"github.com/itsmostafa/phunkie/internal/value"
)

var exceptionTree = []struct{ name, parent string }{
	{"Exception", ""},
	{"ErrorException", "Exception"},
	{"RuntimeException", "Exception"},
	{"LogicException", "Exception"},
	{"JsonException", "Exception"},
	{"InvalidArgumentException", "LogicException"},
	{"DomainException", "LogicException"},
	{"LengthException", "LogicException"},
	{"OutOfRangeException", "LogicException"},
	{"BadFunctionCallException", "LogicException"},
	{"BadMethodCallException", "BadFunctionCallException"},
	{"OutOfBoundsException", "RuntimeException"},
	{"UnexpectedValueException", "RuntimeException"},
	{"RangeException", "RuntimeException"},
	{"OverflowException", "RuntimeException"},
	{"UnderflowException", "RuntimeException"},
	{"Error", ""},
	{"TypeError", "Error"},
	{"ArgumentCountError", "TypeError"},
	{"ValueError", "Error"},
	{"ArithmeticError", "Error"},
	{"DivisionByZeroError", "ArithmeticError"},
	{"UnhandledMatchError", "Error"},
}

func (rt *Runtime) registerBuiltinClasses() {
	for _, name := range []string{"Traversable", "Stringable", "UnitEnum", "BackedEnum", "Throwable"} {
		rt.declareBuiltin(&ClassSpec{Name: name, Kind: KindInterface})
	}
	rt.declareBuiltin(&ClassSpec{Name: "Countable", Kind: KindInterface, Methods: []MethodSpec{
		{Name: "count", Params: []value.Param{}, Abstract: true},
	}})
	rt.declareBuiltin(&ClassSpec{Name: "JsonSerializable", Kind: KindInterface, Methods: []MethodSpec{
		{Name: "jsonSerialize", Params: []value.Param{}, Abstract: true},
	}})
	rt.declareBuiltin(&ClassSpec{Name: "IteratorAggregate", Kind: KindInterface, Interfaces: []string{"Traversable"}, Methods: []MethodSpec{
		{Name: "getIterator", Params: []value.Param{}, Abstract: true},
	}})

	for _, e := range exceptionTree {
		spec := &ClassSpec{Name: e.name, Kind: KindClass, Parent: e.parent}
		if e.parent == "" {
			spec.Interfaces = []string{"Throwable", "Stringable"}
			spec.Props = throwableProps()
			spec.Methods = rt.throwableMethods()
		}
		rt.declareBuiltin(spec)
	}

	rt.declareBuiltin(&ClassSpec{Name: "stdClass", Kind: KindClass})
	rt.declareBuiltin(rt.arrayObjectSpec())
}

func (rt *Runtime) declareBuiltin(spec *ClassSpec) {
	c, err := rt.Declare(spec)
	if err != nil {
		panic(fmt.Sprintf("builtin class %s: %v", spec.Name, err))
	}
	c.builtin = true
}

func fixed(v value.Value) func(*Class) (value.Value, error) {
	return func(*Class) (value.Value, error) { return v, nil }
}

func throwableProps() []PropSpec {
	return []PropSpec{
		{Name: "message", Visibility: Protected, Default: fixed(value.Str(""))},
		{Name: "code", Visibility: Protected, Default: fixed(value.Int(0))},
		{Name: "file", Visibility: Protected, Default: fixed(value.Str("phunkie console"))},
		{Name: "line", Visibility: Protected, Default: fixed(value.Int(1))},
		{Name: "previous", Visibility: Private, Default: fixed(value.Null)},
	}
}

func getter(prop string) MethodFunc {
	return func(inv Invocation, _ []value.Value) (value.Value, error) {
		return inv.This.Prop(prop), nil
	}
}

func (rt *Runtime) throwableMethods() []MethodSpec {
	return []MethodSpec{
		{
			Name:   "__construct",
			Params: value.ParseParams("string message = '', int code = 0, ?Throwable previous"),
			Body: func(inv Invocation, args []value.Value) (value.Value, error) {
				names := []string{"message", "code", "previous"}
				for i, arg := range args {
					if i >= len(names) {
						break
					}
					if arg.IsAbsent() {
						continue
					}
					inv.This.SetProp(names[i], arg)
				}
				return value.Null, nil
			},
		},
		{Name: "getMessage", Params: []value.Param{}, Final: true, Body: getter("message")},
		{Name: "getCode", Params: []value.Param{}, Final: true, Body: getter("code")},
		{Name: "getPrevious", Params: []value.Param{}, Final: true, Body: getter("previous")},
		{Name: "getFile", Params: []value.Param{}, Final: true, Body: getter("file")},
		{Name: "getLine", Params: []value.Param{}, Final: true, Body: getter("line")},
		{Name: "getTrace", Params: []value.Param{}, Final: true, Body: func(Invocation, []value.Value) (value.Value, error) {
			return value.Arr(value.NewArray()), nil
		}},
		{Name: "getTraceAsString", Params: []value.Param{}, Final: true, Body: func(Invocation, []value.Value) (value.Value, error) {
			return value.Str("#0 {main}"), nil
		}},
		{Name: "__toString", Params: []value.Param{}, Body: func(inv Invocation, _ []value.Value) (value.Value, error) {
			o := inv.This
			return value.Str(fmt.Sprintf("%s: %s in %s:%s\nStack trace:\n#0 {main}",
				o.class.Name, o.message(), value.Stringify(o.Prop("file")), value.Stringify(o.Prop("line")))), nil
		}},
	}
}

func storage(o *Instance) *value.Array {
	a, ok := o.native.(*value.Array)
	if !ok {
		a = value.NewArray()
		o.native = a
	}
	return a
}

func (rt *Runtime) arrayObjectSpec() *ClassSpec {
	offset := func(args []value.Value) (value.Key, error) {
		return value.ToKey(args[0])
	}
	return &ClassSpec{
		Name:       "ArrayObject",
		Kind:       KindClass,
		Interfaces: []string{"IteratorAggregate", "Countable"},
		Methods: []MethodSpec{
			{Name: "__construct", Params: value.ParseParams("array array = []"), Body: func(inv Invocation, args []value.Value) (value.Value, error) {
				a := value.NewArray()
				if len(args) > 0 && args[0].Kind == value.KindArray {
					a = args[0].AsArray().Copy()
				}
				inv.This.native = a
				return value.Null, nil
			}},
			{Name: "count", Params: []value.Param{}, Body: func(inv Invocation, _ []value.Value) (value.Value, error) {
				return value.Int(int64(storage(inv.This).Len())), nil
			}},
			{Name: "getArrayCopy", Params: []value.Param{}, Body: func(inv Invocation, _ []value.Value) (value.Value, error) {
				return value.Arr(storage(inv.This).Copy()), nil
			}},
			{Name: "append", Params: value.ParseParams("mixed value"), Body: func(inv Invocation, args []value.Value) (value.Value, error) {
				storage(inv.This).Push(args[0])
				return value.Null, nil
			}},
			{Name: "offsetExists", Params: value.ParseParams("mixed key"), Body: func(inv Invocation, args []value.Value) (value.Value, error) {
				k, err := offset(args)
				if err != nil {
					return value.Null, err
				}
				return value.Bool(storage(inv.This).Has(k)), nil
			}},
			{Name: "offsetGet", Params: value.ParseParams("mixed key"), Body: func(inv Invocation, args []value.Value) (value.Value, error) {
				k, err := offset(args)
				if err != nil {
					return value.Null, err
				}
				v, ok := storage(inv.This).Get(k)
				if !ok {
					return value.Null, errorf("Error", "Undefined array index: %s", k)
				}
				return v, nil
			}},
			{Name: "offsetSet", Params: value.ParseParams("mixed key, mixed value"), Body: func(inv Invocation, args []value.Value) (value.Value, error) {
				if args[0].IsNull() {
					storage(inv.This).Push(args[1])
					return value.Null, nil
				}
				k, err := offset(args)
				if err != nil {
					return value.Null, err
				}
				storage(inv.This).Put(k, args[1])
				return value.Null, nil
			}},
			{Name: "offsetUnset", Params: value.ParseParams("mixed key"), Body: func(inv Invocation, args []value.Value) (value.Value, error) {
				k, err := offset(args)
				if err != nil {
					return value.Null, err
				}
				inv.This.native = storage(inv.This).Delete(k)
				return value.Null, nil
			}},
			{Name: "getIterator", Params: []value.Param{}, Body: func(inv Invocation, _ []value.Value) (value.Value, error) {
				return value.Gen(arrayGenerator(storage(inv.This).Copy())), nil
			}},
		},
	}
}

func arrayGenerator(a *value.Array) *value.Generator {
	return value.NewGenerator(func(yield func(k, v value.Value) bool) error {
		for k, v := range a.All() {
			if !yield(k.Value(), v) {
				return nil
			}
		}
		return nil
	})
}

func cloneNative(native any) any {
	if a, ok := native.(*value.Array); ok {
		return a.Copy()
	}
	return native
}

// ArrayStorage returns the elements of an ArrayObject
func ArrayStorage(v value.Value) (*value.Array, bool) {
	if v.Kind != value.KindObject {
		return nil, false
	}
	o, ok := v.AsObject().(*Instance)
	if !ok || !o.class.IsSubclassOf("ArrayObject") {
		return nil, false
	}
	return storage(o), true
}

func generatorMethod(g *value.Generator, name string) (value.Callable, error) {
	method := func(sig string, body func(args ...value.Value) (value.Value, error)) value.Callable {
		return &value.NativeFunc{FuncName: "Generator::" + name, Meta: value.ParseParams(sig), Value: body}
	}
	switch normalize(name) {
	case "current":
		return method("", func(...value.Value) (value.Value, error) { return g.Current(), g.Err() }), nil
	case "key":
		return method("", func(...value.Value) (value.Value, error) { return g.Key(), g.Err() }), nil
	case "next":
		return method("", func(...value.Value) (value.Value, error) {
			g.Next()
			return value.Null, g.Err()
		}), nil
	case "valid":
		return method("", func(...value.Value) (value.Value, error) { return value.Bool(g.Valid()), g.Err() }), nil
	case "rewind":
		return method("", func(...value.Value) (value.Value, error) {
			g.Rewind()
			return value.Null, g.Err()
		}), nil
	case "send":
		return method("mixed value", func(...value.Value) (value.Value, error) {
			g.Next()
			return g.Current(), g.Err()
		}), nil
	case "getreturn":
		return method("", func(...value.Value) (value.Value, error) { return g.Return(), g.Err() }), nil
	}
	return nil, errorf("Error", "Call to undefined method Generator::%s()", name)
}
