// Package host is the runtime the evaluator delegates to: the class
// registry, instances, the function table, constants and the builtin
// library.
package host

import (
	"io"
	"log/slog"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/itsmostafa/phunkie/internal/replerr"
	"github.com/itsmostafa/phunkie/internal/value"
)

// Runtime owns every declaration made during a console session
type Runtime struct {
	classes   map[string]*Class
	functions map[string]value.Callable
	builtins  map[string]value.Callable
	imported  map[string]value.Callable
	constants map[string]value.Value
	handles   int
	jsonError int
	patterns  map[string]*regexp2.Regexp

	out    io.Writer
	logger *slog.Logger
}

// Option configures a Runtime
type Option func(*Runtime)

// WithOutput sets the writer used by output builtins
func WithOutput(w io.Writer) Option {
	return func(rt *Runtime) { rt.out = w }
}

// WithLogger sets the debug logger
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) { rt.logger = l }
}

// New creates a runtime with the builtin classes and functions registered
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		out:    io.Discard,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.builtins = make(map[string]value.Callable)
	rt.registerBuiltins()
	rt.Reset()
	return rt
}

// Reset drops every user declaration and import
func (rt *Runtime) Reset() {
	rt.classes = make(map[string]*Class)
	rt.functions = make(map[string]value.Callable)
	rt.imported = make(map[string]value.Callable)
	rt.constants = builtinConstants()
	rt.registerBuiltinClasses()
}

// Output returns the writer used for program output
func (rt *Runtime) Output() io.Writer { return rt.out }

// SetOutput replaces the output writer and returns the previous one
func (rt *Runtime) SetOutput(w io.Writer) io.Writer {
	prev := rt.out
	rt.out = w
	return prev
}

// Logger returns the runtime logger
func (rt *Runtime) Logger() *slog.Logger { return rt.logger }

func (rt *Runtime) nextHandle() int {
	rt.handles++
	return rt.handles
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimPrefix(name, `\`))
}

// LookupFunction finds a user-declared, builtin or imported function
func (rt *Runtime) LookupFunction(name string) (value.Callable, bool) {
	key := normalize(name)
	if fn, ok := rt.functions[key]; ok {
		return fn, true
	}
	if fn, ok := rt.builtins[key]; ok {
		return fn, true
	}
	fn, ok := rt.imported[key]
	return fn, ok
}

// DeclareFunction registers a user function. Redeclaring a user function
// replaces it; builtins cannot be shadowed.
func (rt *Runtime) DeclareFunction(name string, fn value.Callable) error {
	key := normalize(name)
	if _, ok := rt.builtins[key]; ok {
		return replerr.Evalf(name, "Cannot redeclare %s()", name)
	}
	rt.functions[key] = fn
	rt.logger.Debug("function declared", "name", name)
	return nil
}

// FunctionExists reports whether name resolves to any function
func (rt *Runtime) FunctionExists(name string) bool {
	_, ok := rt.LookupFunction(name)
	return ok
}

// Constant looks up a global constant
func (rt *Runtime) Constant(name string) (value.Value, bool) {
	name = strings.TrimPrefix(name, `\`)
	if v, ok := rt.constants[name]; ok {
		return v, true
	}
	switch strings.ToLower(name) {
	case "true":
		return value.Bool(true), true
	case "false":
		return value.Bool(false), true
	case "null":
		return value.Null, true
	}
	return value.Null, false
}

// DefineConstant declares a global constant
func (rt *Runtime) DefineConstant(name string, v value.Value) error {
	name = strings.TrimPrefix(name, `\`)
	if _, ok := rt.Constant(name); ok {
		return replerr.Evalf(name, "Constant %s already defined", name)
	}
	rt.constants[name] = v
	return nil
}

// Thrown carries an exception object up the evaluator until a catch
// clause handles it
type Thrown struct {
	Object *Instance
}

func (t *Thrown) Error() string   { return t.Kind() + ": " + t.Message() }
func (t *Thrown) Kind() string    { return "Error" }
func (t *Thrown) Message() string { return t.Object.message() }

// Subject returns the class of the thrown object
func (t *Thrown) Subject() string { return t.Object.class.Name }

// ThrowableFromError converts an evaluation failure into an exception
// object so that catch clauses can handle it
func (rt *Runtime) ThrowableFromError(err error) *Instance {
	if t, ok := err.(*Thrown); ok {
		return t.Object
	}
	re := replerr.From(err)
	class := "Error"
	switch e := re.(type) {
	case *replerr.TypeError:
		class = "TypeError"
		if strings.Contains(e.Reason, "expects") && strings.Contains(e.Reason, "given") {
			class = "ArgumentCountError"
		}
	case *replerr.EvaluationError:
		if c, ok := rt.Class(e.Subject); ok && c.IsSubclassOf("Throwable") {
			class = c.Name
		}
	}
	obj, cerr := rt.newThrowable(class, re.Message())
	if cerr != nil {
		obj, _ = rt.newThrowable("Error", re.Message())
	}
	return obj
}

func (rt *Runtime) newThrowable(class, message string) (*Instance, error) {
	v, err := rt.Construct(class, []value.Value{value.Str(message)})
	if err != nil {
		return nil, err
	}
	return v.AsObject().(*Instance), nil
}

// Throw builds a Thrown error for a new exception of the given class
func (rt *Runtime) Throw(class, message string) error {
	obj, err := rt.newThrowable(class, message)
	if err != nil {
		return err
	}
	return &Thrown{Object: obj}
}

// errorf reports a runtime failure. The class names the exception a catch
// clause sees when it converts the failure with ThrowableFromError.
func errorf(class, format string, args ...any) error {
	if class == "TypeError" {
		return replerr.Typef(class, format, args...)
	}
	return replerr.Evalf(class, format, args...)
}
