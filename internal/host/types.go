package host

import (
	"errors"
	"math"
	"strings"

	"github.com/itsmostafa/phunkie/internal/value"
)

var errTypeMismatch = errors.New("type mismatch")

var scalarTypes = map[string]bool{
	"int": true, "float": true, "string": true, "bool": true, "array": true,
	"callable": true, "iterable": true, "object": true, "mixed": true,
	"null": true, "void": true, "never": true, "false": true, "true": true,
	"self": true, "static": true, "parent": true,
}

// CoerceType checks v against a declared type and applies the scalar
// conversions PHP performs in coercive typing mode. self resolves self,
// static and parent.
func (rt *Runtime) CoerceType(typ string, v value.Value, self *Class) (value.Value, error) {
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return v, nil
	}
	if strings.HasPrefix(typ, "?") {
		if v.IsNull() {
			return v, nil
		}
		typ = typ[1:]
	}
	if strings.Contains(typ, "|") {
		branches := strings.Split(typ, "|")
		// exact matches first so int|string keeps "5" a string
		for _, b := range branches {
			if rt.matchesExactly(strings.Trim(b, "() "), v, self) {
				return v, nil
			}
		}
		for _, b := range branches {
			if out, err := rt.CoerceType(strings.Trim(b, "() "), v, self); err == nil {
				return out, nil
			}
		}
		return v, errTypeMismatch
	}
	if strings.Contains(typ, "&") {
		for _, b := range strings.Split(typ, "&") {
			if !rt.matchesExactly(b, v, self) {
				return v, errTypeMismatch
			}
		}
		return v, nil
	}
	if rt.matchesExactly(typ, v, self) {
		return v, nil
	}
	switch strings.ToLower(typ) {
	case "int":
		switch v.Kind {
		case value.KindFloat:
			f := v.AsFloat()
			if f == math.Trunc(f) && !math.IsInf(f, 0) {
				return value.Int(int64(f)), nil
			}
		case value.KindBool:
			return value.Int(value.ToInt(v)), nil
		case value.KindString:
			if n, ok := value.ParseNumeric(v.AsString()); ok {
				if n.Kind == value.KindInt {
					return n, nil
				}
				if f := n.AsFloat(); f == math.Trunc(f) {
					return value.Int(int64(f)), nil
				}
			}
		}
	case "float":
		switch v.Kind {
		case value.KindInt, value.KindBool:
			return value.Float(value.ToFloat(v)), nil
		case value.KindString:
			if n, ok := value.ParseNumeric(v.AsString()); ok {
				return value.Float(value.ToFloat(n)), nil
			}
		}
	case "string":
		switch v.Kind {
		case value.KindInt, value.KindFloat, value.KindBool:
			return value.Str(value.Stringify(v)), nil
		case value.KindObject:
			if s, ok := v.AsObject().ToString(); ok {
				return value.Str(s), nil
			}
		}
	case "bool":
		switch v.Kind {
		case value.KindInt, value.KindFloat, value.KindString:
			return value.Bool(value.Truthy(v)), nil
		}
	}
	return v, errTypeMismatch
}

// matchesExactly reports whether v already has type typ
func (rt *Runtime) matchesExactly(typ string, v value.Value, self *Class) bool {
	switch strings.ToLower(typ) {
	case "mixed":
		return true
	case "int":
		return v.Kind == value.KindInt
	case "float":
		return v.Kind == value.KindFloat || v.Kind == value.KindInt
	case "string":
		return v.Kind == value.KindString
	case "bool":
		return v.Kind == value.KindBool
	case "false":
		return v.Kind == value.KindBool && !v.AsBool()
	case "true":
		return v.Kind == value.KindBool && v.AsBool()
	case "array":
		return v.Kind == value.KindArray
	case "null", "void":
		return v.IsNull()
	case "never":
		return false
	case "callable":
		return rt.IsCallable(v)
	case "iterable":
		return v.Kind == value.KindArray || v.Kind == value.KindGenerator || rt.InstanceOf(v, "Traversable")
	case "object":
		return v.Kind == value.KindObject || v.Kind == value.KindCallable || v.Kind == value.KindGenerator
	case "self", "static":
		return self != nil && rt.InstanceOf(v, self.Name)
	case "parent":
		return self != nil && self.Parent != nil && rt.InstanceOf(v, self.Parent.Name)
	}
	return rt.InstanceOf(v, typ)
}

// TypeExists reports whether every class named in a declared type is
// known. It returns the first unknown name.
func (rt *Runtime) TypeExists(typ string) (string, bool) {
	for _, part := range strings.FieldsFunc(typ, func(r rune) bool { return strings.ContainsRune("?|&() ", r) }) {
		lower := strings.ToLower(part)
		if scalarTypes[lower] {
			continue
		}
		switch lower {
		case "closure", "generator", "traversable", "iterator":
			continue
		}
		if _, ok := rt.Class(part); !ok {
			return part, false
		}
	}
	return "", true
}
