package value

import (
	"fmt"
	"strings"

	"github.com/itsmostafa/phunkie/internal/replerr"
)

// Param describes one declared parameter of a callable
type Param struct {
	Name     string
	Type     string
	Optional bool
	// Default is used when a named call skips an optional parameter.
	// Absent leaves the default to the callee.
	Default  Value
	Variadic bool
	ByRef    bool
}

// Callable is anything that can be invoked with positional arguments
type Callable interface {
	// Name returns the function name, or {closure} for anonymous functions
	Name() string
	// Params returns parameter metadata; ok is false when none is available
	Params() (params []Param, ok bool)
	// Call invokes the callable
	Call(args []Value) (Value, error)
}

// NativeFunc is a callable implemented in Go
type NativeFunc struct {
	FuncName string
	Meta     []Param
	Value    func(args ...Value) (Value, error)
}

// Name returns the function name
func (f *NativeFunc) Name() string { return f.FuncName }

// Params returns the declared parameters
func (f *NativeFunc) Params() ([]Param, bool) { return f.Meta, f.Meta != nil }

// Call checks arity against the metadata and runs the function
func (f *NativeFunc) Call(args []Value) (Value, error) {
	if f.Meta != nil {
		if err := CheckArity(f.FuncName, f.Meta, len(args)); err != nil {
			return Null, err
		}
	}
	return f.Value(args...)
}

// CheckArity validates the argument count against params
func CheckArity(name string, params []Param, given int) error {
	required, most := 0, len(params)
	for _, p := range params {
		if p.Variadic {
			most = -1
			continue
		}
		if !p.Optional {
			required++
		}
	}
	switch {
	case given < required && most == required:
		return replerr.Typef(name, "%s() expects exactly %s, %d given", name, plural(required, "argument"), given)
	case given < required:
		return replerr.Typef(name, "%s() expects at least %s, %d given", name, plural(required, "argument"), given)
	case most >= 0 && given > most && most == required:
		return replerr.Typef(name, "%s() expects exactly %s, %d given", name, plural(most, "argument"), given)
	case most >= 0 && given > most:
		return replerr.Typef(name, "%s() expects at most %s, %d given", name, plural(most, "argument"), given)
	}
	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// ParseParams builds metadata from a compact signature such as
// "string, ?int length = null, ...values". A leading ? marks an optional
// parameter without a literal default and a leading & a by-reference one.
func ParseParams(sig string) []Param {
	params := []Param{}
	if strings.TrimSpace(sig) == "" {
		return params
	}
	for _, part := range strings.Split(sig, ",") {
		part = strings.TrimSpace(part)
		p := Param{Default: Absent}
		if name, def, ok := strings.Cut(part, "="); ok {
			part = strings.TrimSpace(name)
			p.Optional = true
			p.Default = literalDefault(strings.TrimSpace(def))
		}
		if strings.HasPrefix(part, "?") {
			part = part[1:]
			p.Optional = true
			if p.Default.IsAbsent() {
				p.Default = Null
			}
		}
		if strings.HasPrefix(part, "&") {
			part = part[1:]
			p.ByRef = true
		}
		if strings.HasPrefix(part, "...") {
			part = part[3:]
			p.Variadic = true
			p.Optional = true
		}
		if typ, name, ok := strings.Cut(part, " "); ok {
			p.Type, p.Name = typ, strings.TrimSpace(name)
		} else {
			p.Name = part
		}
		params = append(params, p)
	}
	return params
}

func literalDefault(s string) Value {
	switch strings.ToLower(s) {
	case "null":
		return Null
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	case "[]":
		return Arr(NewArray())
	}
	if strings.HasPrefix(s, "'") || strings.HasPrefix(s, `"`) {
		return Str(strings.Trim(s, `'"`))
	}
	if n, ok := ParseNumeric(s); ok {
		return n
	}
	return Str(s)
}

// NamedArg is an argument passed as name: value
type NamedArg struct {
	Name  string
	Value Value
}

// BindNamed merges named arguments into positional slots using the
// callee's parameter metadata. Skipped optional parameters receive their
// Default, which is Absent when the callee computes its own default.
func BindNamed(c Callable, positional []Value, named []NamedArg) ([]Value, error) {
	if len(named) == 0 {
		return positional, nil
	}
	params, ok := c.Params()
	if !ok {
		return nil, replerr.Evalf(c.Name(), "Named arguments are not supported for this function")
	}
	args := append([]Value(nil), positional...)
	filled := make([]bool, len(params))
	for i := range args {
		if i < len(filled) {
			filled[i] = true
		}
	}
	for _, na := range named {
		idx := -1
		for i, p := range params {
			if p.Name == na.Name && !p.Variadic {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, replerr.Evalf(c.Name(), "Unknown parameter: %s", na.Name)
		}
		if filled[idx] {
			return nil, replerr.Evalf(c.Name(), "Named parameter $%s overwrites previous argument", na.Name)
		}
		for len(args) <= idx {
			args = append(args, Absent)
		}
		args[idx] = na.Value
		filled[idx] = true
	}
	for i := range args {
		if filled[i] || i >= len(params) {
			continue
		}
		p := params[i]
		if !p.Optional {
			return nil, replerr.Typef(c.Name(), "%s(): Argument #%d ($%s) not passed", c.Name(), i+1, p.Name)
		}
		args[i] = p.Default
	}
	return args, nil
}
