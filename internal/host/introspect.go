package host

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/itsmostafa/phunkie/internal/value"
)

func (rt *Runtime) registerTypes() {
	is := func(name string, pred func(value.Value) bool) {
		rt.def(name, "mixed value", func(a ...value.Value) (value.Value, error) {
			return value.Bool(pred(a[0])), nil
		})
	}
	kind := func(k value.Kind) func(value.Value) bool {
		return func(v value.Value) bool { return v.Kind == k }
	}
	is("is_int", kind(value.KindInt))
	rt.alias("is_integer", "is_int")
	rt.alias("is_long", "is_int")
	is("is_float", kind(value.KindFloat))
	rt.alias("is_double", "is_float")
	is("is_string", kind(value.KindString))
	is("is_bool", kind(value.KindBool))
	is("is_array", kind(value.KindArray))
	is("is_null", kind(value.KindNull))
	is("is_numeric", value.IsNumeric)
	is("is_callable", rt.IsCallable)
	is("is_object", func(v value.Value) bool {
		return v.Kind == value.KindObject || v.Kind == value.KindCallable || v.Kind == value.KindGenerator
	})
	is("is_scalar", func(v value.Value) bool {
		switch v.Kind {
		case value.KindInt, value.KindFloat, value.KindString, value.KindBool:
			return true
		}
		return false
	})
	is("is_iterable", func(v value.Value) bool { return rt.matchesExactly("iterable", v, nil) })
	is("is_countable", func(v value.Value) bool { return v.Kind == value.KindArray || rt.InstanceOf(v, "Countable") })

	rt.def("gettype", "mixed value", func(a ...value.Value) (value.Value, error) {
		return value.Str(value.GetType(a[0])), nil
	})
	rt.def("get_debug_type", "mixed value", func(a ...value.Value) (value.Value, error) {
		return value.Str(value.DebugType(a[0])), nil
	})
	rt.def("get_class", "object object", func(a ...value.Value) (value.Value, error) {
		return value.Str(value.DebugType(a[0])), nil
	})
	rt.def("get_parent_class", "mixed object_or_class", func(a ...value.Value) (value.Value, error) {
		c, ok := rt.classOf(a[0])
		if !ok || c.Parent == nil {
			return value.Bool(false), nil
		}
		return value.Str(c.Parent.Name), nil
	})
	rt.def("intval", "mixed value, int base = 10", func(a ...value.Value) (value.Value, error) {
		base := intArg(a, 1, 10)
		if a[0].Kind == value.KindString && base != 10 {
			s := strings.TrimSpace(a[0].AsString())
			neg := strings.HasPrefix(s, "-")
			s = strings.TrimLeft(s, "+-")
			if base == 16 {
				s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
			}
			n, _ := strconv.ParseInt(filterDigits(strings.ToLower(s), int(base)), int(base), 64)
			if neg {
				n = -n
			}
			return value.Int(n), nil
		}
		return value.Int(value.ToInt(a[0])), nil
	})
	rt.def("floatval", "mixed value", func(a ...value.Value) (value.Value, error) {
		return value.Float(value.ToFloat(a[0])), nil
	})
	rt.alias("doubleval", "floatval")
	rt.def("strval", "mixed value", func(a ...value.Value) (value.Value, error) {
		s, err := value.ToStr(a[0])
		return value.Str(s), err
	})
	rt.def("boolval", "mixed value", func(a ...value.Value) (value.Value, error) {
		return value.Bool(value.Truthy(a[0])), nil
	})

	rt.def("method_exists", "mixed object_or_class, string method", func(a ...value.Value) (value.Value, error) {
		c, ok := rt.classOf(a[0])
		return value.Bool(ok && c.HasMethod(a[1].AsString())), nil
	})
	rt.def("property_exists", "mixed object_or_class, string property", func(a ...value.Value) (value.Value, error) {
		c, ok := rt.classOf(a[0])
		if !ok {
			return value.Bool(false), nil
		}
		if c.HasProperty(a[1].AsString()) {
			return value.Bool(true), nil
		}
		if o, isObj := a[0].AsObject().(*Instance); isObj && a[0].Kind == value.KindObject {
			return value.Bool(o.props.Has(value.StrKey(a[1].AsString()))), nil
		}
		return value.Bool(false), nil
	})
	exists := func(name string, kind ClassKind) {
		rt.def(name, "string class, bool autoload = true", func(a ...value.Value) (value.Value, error) {
			return value.Bool(rt.ClassExists(a[0].AsString(), kind)), nil
		})
	}
	exists("class_exists", KindClass)
	exists("interface_exists", KindInterface)
	exists("trait_exists", KindTrait)
	exists("enum_exists", KindEnum)
	rt.def("function_exists", "string function", func(a ...value.Value) (value.Value, error) {
		return value.Bool(rt.FunctionExists(a[0].AsString())), nil
	})
	rt.def("get_object_vars", "object object", func(a ...value.Value) (value.Value, error) {
		return value.Arr(rt.PublicProperties(a[0])), nil
	})
	rt.def("get_class_methods", "mixed object_or_class", func(a ...value.Value) (value.Value, error) {
		c, ok := rt.classOf(a[0])
		if !ok {
			return value.Null, errorf("TypeError", "get_class_methods(): Argument #1 ($object_or_class) must be an object or a valid class name, %s given", value.DebugType(a[0]))
		}
		out := value.NewArray()
		for _, m := range c.Methods() {
			out.Push(value.Str(m))
		}
		return value.Arr(out), nil
	})
	rt.def("is_a", "mixed object_or_class, string class, bool allow_string = false", func(a ...value.Value) (value.Value, error) {
		if a[0].Kind == value.KindString && boolArg(a, 2) {
			c, ok := rt.Class(a[0].AsString())
			return value.Bool(ok && c.IsSubclassOf(a[1].AsString())), nil
		}
		return value.Bool(rt.InstanceOf(a[0], a[1].AsString())), nil
	})
	rt.def("is_subclass_of", "mixed object_or_class, string class", func(a ...value.Value) (value.Value, error) {
		c, ok := rt.classOf(a[0])
		return value.Bool(ok && !strings.EqualFold(c.Name, strings.TrimPrefix(a[1].AsString(), `\`)) && c.IsSubclassOf(a[1].AsString())), nil
	})
	rt.def("spl_object_id", "object object", func(a ...value.Value) (value.Value, error) {
		return value.Int(int64(handleOf(a[0]))), nil
	})
	rt.def("spl_object_hash", "object object", func(a ...value.Value) (value.Value, error) {
		return value.Str(fmt.Sprintf("%032x", handleOf(a[0]))), nil
	})

	rt.def("define", "string constant_name, mixed value", func(a ...value.Value) (value.Value, error) {
		if err := rt.DefineConstant(a[0].AsString(), a[1]); err != nil {
			return value.Null, err
		}
		return value.Bool(true), nil
	})
	rt.def("defined", "string constant_name", func(a ...value.Value) (value.Value, error) {
		_, ok := rt.Constant(a[0].AsString())
		return value.Bool(ok), nil
	})
	rt.def("constant", "string name", func(a ...value.Value) (value.Value, error) {
		name := a[0].AsString()
		if class, cname, ok := strings.Cut(name, "::"); ok {
			c, found := rt.Class(class)
			if !found {
				return value.Null, errorf("Error", "Class \"%s\" not found", class)
			}
			return rt.ClassConstant(c, cname, nil)
		}
		v, ok := rt.Constant(name)
		if !ok {
			return value.Null, errorf("Error", "Undefined constant \"%s\"", name)
		}
		return v, nil
	})
	rt.def("phpversion", "", func(...value.Value) (value.Value, error) {
		return value.Str(Version), nil
	})
	rt.def("time", "", func(...value.Value) (value.Value, error) {
		return value.Int(time.Now().Unix()), nil
	})
	rt.def("microtime", "bool as_float = false", func(a ...value.Value) (value.Value, error) {
		now := time.Now()
		if boolArg(a, 0) {
			return value.Float(float64(now.UnixNano()) / 1e9), nil
		}
		return value.Str(fmt.Sprintf("%.8f %d", float64(now.Nanosecond())/1e9, now.Unix())), nil
	})
}

// classOf resolves an object or a class name to its class
func (rt *Runtime) classOf(v value.Value) (*Class, bool) {
	switch v.Kind {
	case value.KindObject:
		o, ok := v.AsObject().(*Instance)
		if !ok {
			return nil, false
		}
		return o.class, true
	case value.KindString:
		return rt.Class(v.AsString())
	}
	return nil, false
}

// PublicProperties returns the initialized properties visible from
// outside the class
func (rt *Runtime) PublicProperties(v value.Value) *value.Array {
	out := value.NewArray()
	o, ok := v.AsObject().(*Instance)
	if !ok || v.Kind != value.KindObject {
		return out
	}
	for k, el := range o.props.All() {
		if el.IsAbsent() {
			continue
		}
		if p, declared := o.class.Property(k.String()); declared && p.Visibility != Public {
			continue
		}
		out.Put(k, el)
	}
	return out
}

func handleOf(v value.Value) int {
	switch v.Kind {
	case value.KindObject:
		return v.AsObject().Handle()
	case value.KindGenerator:
		return v.AsGenerator().ID()
	}
	return 0
}
