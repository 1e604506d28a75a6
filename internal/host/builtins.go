package host

import (
	"fmt"
	"strings"

	"github.com/itsmostafa/phunkie/internal/value"
)

// builtinFunc is the Go signature of a library function
type builtinFunc func(args ...value.Value) (value.Value, error)

func (rt *Runtime) registerBuiltins() {
	rt.registerStrings()
	rt.registerArrays()
	rt.registerMath()
	rt.registerTypes()
	rt.registerOutput()
	rt.registerJSON()
	rt.registerRegex()
	rt.registerCalls()
}

// def registers a library function. sig lists the parameters in the
// compact form understood by value.ParseParams; declared scalar types are
// coerced before fn runs.
func (rt *Runtime) def(name, sig string, fn builtinFunc) {
	params := value.ParseParams(sig)
	rt.builtins[normalize(name)] = &value.NativeFunc{
		FuncName: name,
		Meta:     params,
		Value:    rt.coerceArgs(name, params, fn),
	}
}

// alias registers name as another name for an existing builtin
func (rt *Runtime) alias(name, target string) {
	orig := rt.builtins[normalize(target)].(*value.NativeFunc)
	rt.builtins[normalize(name)] = &value.NativeFunc{FuncName: name, Meta: orig.Meta, Value: orig.Value}
}

func (rt *Runtime) coerceArgs(name string, params []value.Param, fn builtinFunc) builtinFunc {
	return func(args ...value.Value) (value.Value, error) {
		for len(args) > 0 && args[len(args)-1].IsAbsent() {
			args = args[:len(args)-1]
		}
		out := make([]value.Value, len(args))
		for i, arg := range args {
			p := paramAt(params, i)
			if arg.IsAbsent() {
				arg = p.Default
				if arg.IsAbsent() {
					arg = value.Null
				}
			}
			if p.ByRef {
				out[i] = arg
				continue
			}
			arg = value.Deref(arg)
			coerced, err := rt.coerceArg(p, arg)
			if err != nil {
				return value.Null, errorf("TypeError", "%s(): Argument #%d ($%s) must be of type %s, %s given",
					name, i+1, p.Name, p.Type, value.DebugType(arg))
			}
			out[i] = coerced
		}
		return fn(out...)
	}
}

func paramAt(params []value.Param, i int) value.Param {
	switch {
	case i < len(params):
		return params[i]
	case len(params) > 0 && params[len(params)-1].Variadic:
		return params[len(params)-1]
	}
	return value.Param{Name: fmt.Sprintf("arg%d", i)}
}

func (rt *Runtime) coerceArg(p value.Param, v value.Value) (value.Value, error) {
	switch p.Type {
	case "", "mixed":
		return v, nil
	}
	if p.Optional && v.IsNull() && !p.Default.IsAbsent() && p.Default.IsNull() {
		return v, nil
	}
	return rt.CoerceType(p.Type, v, nil)
}

// call invokes any callable value from library code
func (rt *Runtime) call(fn value.Value, args ...value.Value) (value.Value, error) {
	c, err := rt.Callable(fn, nil)
	if err != nil {
		return value.Null, err
	}
	return c.Call(args)
}

func argOr(args []value.Value, i int, def value.Value) value.Value {
	if i < len(args) && !args[i].IsAbsent() {
		return args[i]
	}
	return def
}

func intArg(args []value.Value, i int, def int64) int64 {
	if i < len(args) && !args[i].IsAbsent() && !args[i].IsNull() {
		return value.ToInt(args[i])
	}
	return def
}

func strArg(args []value.Value, i int) string {
	if i < len(args) {
		return value.Stringify(args[i])
	}
	return ""
}

func boolArg(args []value.Value, i int) bool {
	return i < len(args) && value.Truthy(args[i])
}

func arrArg(args []value.Value, i int) *value.Array {
	if i < len(args) && args[i].Kind == value.KindArray {
		return args[i].AsArray()
	}
	return value.NewArray()
}

// IsOutputCall reports whether a call to the named builtin only produces
// output, so its result should not be bound to a fresh variable
func IsOutputCall(name string, args []value.Value) bool {
	if i := strings.LastIndex(name, `\`); i >= 0 {
		name = name[i+1:]
	}
	switch normalize(name) {
	case "var_dump", "printf", "println", "print_table", "vprintf":
		return true
	case "print_r", "var_export":
		return len(args) < 2 || !value.Truthy(args[1])
	}
	return false
}
