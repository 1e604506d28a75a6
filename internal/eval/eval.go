// Package eval walks parsed fragments against a session and the host
// runtime and reports what each fragment produced.
package eval

import (
	"errors"
	"io"
	"iter"
	"log/slog"

	"github.com/itsmostafa/phunkie/internal/ast"
	"github.com/itsmostafa/phunkie/internal/host"
	"github.com/itsmostafa/phunkie/internal/replerr"
	"github.com/itsmostafa/phunkie/internal/result"
	"github.com/itsmostafa/phunkie/internal/session"
	"github.com/itsmostafa/phunkie/internal/value"
)

// Host is the runtime the evaluator delegates object, function and
// constant handling to
type Host interface {
	Class(name string) (*host.Class, bool)
	Declare(spec *host.ClassSpec) (*host.Class, error)
	Construct(class string, args []value.Value) (value.Value, error)
	ConstructorOf(c *host.Class, scope *host.Class) (value.Callable, error)
	Method(obj value.Value, name string, scope *host.Class) (value.Callable, error)
	StaticMethod(c *host.Class, name string, inv host.Invocation, scope *host.Class) (value.Callable, error)
	GetProperty(obj value.Value, name string, scope *host.Class) (value.Value, error)
	HasProperty(obj value.Value, name string, scope *host.Class) bool
	SetProperty(obj value.Value, name string, v value.Value, scope *host.Class) error
	UnsetProperty(obj value.Value, name string, scope *host.Class) error
	GetStaticProperty(c *host.Class, name string, scope *host.Class) (value.Value, error)
	SetStaticProperty(c *host.Class, name string, v value.Value, scope *host.Class) error
	ClassConstant(c *host.Class, name string, scope *host.Class) (value.Value, error)
	InstanceOf(v value.Value, class string) bool
	Clone(v value.Value) (value.Value, error)
	Callable(v value.Value, scope *host.Class) (value.Callable, error)

	LookupFunction(name string) (value.Callable, bool)
	DeclareFunction(name string, fn value.Callable) error
	Constant(name string) (value.Value, bool)
	DefineConstant(name string, v value.Value) error

	CoerceType(typ string, v value.Value, self *host.Class) (value.Value, error)
	TypeExists(typ string) (string, bool)
	Iterate(v value.Value) (iter.Seq2[value.Value, value.Value], func() error, error)
	ThrowableFromError(err error) *host.Instance
	Echo(v value.Value) error

	Output() io.Writer
	Logger() *slog.Logger
}

var _ Host = (*host.Runtime)(nil)

// Evaluator runs fragments. It holds no per-fragment state; everything a
// fragment changes flows back through the Result.
type Evaluator struct {
	host   Host
	logger *slog.Logger
}

// New creates an evaluator over h
func New(h Host) *Evaluator {
	return &Evaluator{host: h, logger: h.Logger()}
}

// Host returns the runtime the evaluator delegates to
func (e *Evaluator) Host() Host { return e.host }

// returnSignal unwinds to the nearest call boundary
type returnSignal struct {
	value value.Value
}

// loopSignal unwinds to the loop depth levels out
type loopSignal struct {
	depth int
	cont  bool
}

func (s loopSignal) keyword() string {
	if s.cont {
		return "continue"
	}
	return "break"
}

// Evaluate runs prog against s. Statements run in order; the Result
// describes the last one and carries every other binding as a side
// assignment.
func (e *Evaluator) Evaluate(prog []ast.Stmt, s session.Session) (res result.Result, err error) {
	if len(prog) == 0 {
		return result.Result{}, replerr.Evalf("", "Empty expression")
	}
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()

	f := topFrame(s)
	var scope []result.Signal
	for i, stmt := range prog {
		r, returned, err := e.topStatement(f, stmt)
		if err != nil {
			return result.Result{}, surface(err)
		}
		if returned || i == len(prog)-1 {
			res = r
			break
		}
		switch r.Signal.Kind {
		case result.SignalNamespace, result.SignalImport:
			scope = append(scope, r.Signal)
		}
	}

	primary := ""
	if res.Signal.Kind == result.SignalBind {
		primary = res.Signal.Name
	}
	res.Side, res.Removed = f.changes(s.Vars(), primary)
	res.Scope = scope
	return res, nil
}

// panicError turns a stray panic into an evaluation error
func panicError(r any) error {
	switch sig := r.(type) {
	case loopSignal:
		return replerr.Evalf("Stmt_Break", "'%s' not in the 'loop' or 'switch' context", sig.keyword())
	case returnSignal:
		return nil
	case error:
		return replerr.Evalf("", "%s", sig.Error())
	}
	return replerr.Evalf("", "%v", r)
}

// surface converts an uncaught exception into the error the console
// reports
func surface(err error) error {
	var thrown *host.Thrown
	if errors.As(err, &thrown) {
		return &replerr.EvaluationError{Subject: thrown.Subject(), Reason: thrown.Message()}
	}
	return err
}

// topStatement runs one top-level statement. returned reports an early
// return, whose value becomes the fragment's value.
func (e *Evaluator) topStatement(f *frame, stmt ast.Stmt) (res result.Result, returned bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			sig, ok := r.(returnSignal)
			if !ok {
				panic(r)
			}
			res, returned, err = result.Of(sig.value), true, nil
		}
	}()

	switch s := stmt.(type) {
	case *ast.ExprStmt:
		return e.topExpression(f, s.Expr)
	case *ast.Echo:
		if err := e.exec(f, s); err != nil {
			return res, false, err
		}
		return result.Output(value.Null), false, nil
	case *ast.If, *ast.Try, *ast.Block:
		f.last, f.lastOutput = value.Null, false
		if err := e.exec(f, s); err != nil {
			return res, false, err
		}
		if f.lastOutput {
			return result.Output(f.last), false, nil
		}
		return result.Of(f.last), false, nil
	case *ast.For, *ast.While, *ast.DoWhile, *ast.Foreach, *ast.Switch, *ast.Unset, *ast.ConstDecl, *ast.Nop:
		if err := e.exec(f, s); err != nil {
			return res, false, err
		}
		return silent(value.Null), false, nil
	case *ast.FuncDecl:
		fn, err := e.declareFunction(f, s)
		if err != nil {
			return res, false, err
		}
		v := value.Fn(fn)
		f.set(s.Name, v)
		return result.Result{Value: v, Type: "Function", Signal: result.Bind("$" + s.Name)}, false, nil
	case *ast.ClassDecl:
		c, err := e.declareClass(f, s)
		if err != nil {
			return res, false, err
		}
		return result.Declared("Class", c.Name, result.Bind(c.Name)), false, nil
	case *ast.InterfaceDecl:
		c, err := e.declareInterface(f, s)
		if err != nil {
			return res, false, err
		}
		return result.Declared("Interface", c.Name, result.Silent), false, nil
	case *ast.TraitDecl:
		c, err := e.declareTrait(f, s)
		if err != nil {
			return res, false, err
		}
		return result.Declared("Trait", c.Name, result.Silent), false, nil
	case *ast.EnumDecl:
		c, err := e.declareEnum(f, s)
		if err != nil {
			return res, false, err
		}
		return result.Declared("EnumDefinition", c.Name, result.Silent), false, nil
	case *ast.Namespace:
		if err := e.exec(f, s); err != nil {
			return res, false, err
		}
		ns, _ := f.names.Namespace()
		return result.Result{Value: value.Str(ns), Type: "Namespace", Signal: result.Namespace(ns)}, false, nil
	case *ast.Use:
		aliases := useAliases(s)
		for _, a := range aliases {
			f.names = f.names.WithAlias(a.Alias, a.FullName)
		}
		return result.Result{Value: value.Null, Type: "Import", Signal: result.Import(aliases...)}, false, nil
	case *ast.Return:
		v := value.Null
		if s.Expr != nil {
			if v, err = e.expr(f, s.Expr); err != nil {
				return res, false, err
			}
		}
		return result.Of(v), true, nil
	}
	if err := e.exec(f, stmt); err != nil {
		return res, false, err
	}
	return silent(value.Null), false, nil
}

func silent(v value.Value) result.Result {
	return result.Result{Value: v, Type: value.TypeOf(v), Signal: result.Silent}
}

// topExpression evaluates an expression statement and picks the signal
// its shape calls for
func (e *Evaluator) topExpression(f *frame, x ast.Expr) (result.Result, bool, error) {
	f.lastOutput = false
	v, err := e.expr(f, x)
	if err != nil {
		return result.Result{}, false, err
	}
	switch n := x.(type) {
	case *ast.Assign:
		return assignResult(f, n.Target, v), false, nil
	case *ast.CompoundAssign:
		return assignResult(f, n.Target, v), false, nil
	case *ast.Print:
		return result.Output(v), false, nil
	case *ast.FuncCall:
		if f.lastOutput {
			return result.Output(v), false, nil
		}
	}
	return result.Of(v), false, nil
}

// assignResult reports an assignment to a simple variable, or to an
// element of one, as a binding of that variable
func assignResult(f *frame, target ast.Expr, v value.Value) result.Result {
	switch t := target.(type) {
	case *ast.Variable:
		if t.NameExpr == nil {
			return result.Bound("$"+t.Name, v)
		}
	case *ast.Index:
		if root, ok := rootVariable(t); ok {
			if r, found := f.lookup(root); found {
				return result.Bound("$"+root, r.Value)
			}
		}
	}
	return silent(v)
}

// rootVariable returns the variable an index chain starts from
func rootVariable(x ast.Expr) (string, bool) {
	for {
		switch t := x.(type) {
		case *ast.Index:
			x = t.Target
		case *ast.Variable:
			return t.Name, t.NameExpr == nil && t.Name != "this"
		default:
			return "", false
		}
	}
}

func useAliases(s *ast.Use) []session.Alias {
	out := make([]session.Alias, 0, len(s.Items))
	for _, item := range s.Items {
		alias := item.Alias
		if alias == "" {
			alias = shortName(item.Name)
		}
		out = append(out, session.Alias{Alias: alias, FullName: trimSlash(item.Name)})
	}
	return out
}

// errorfAt reports a failure for the node kind of n
func errorfAt(n ast.Node, format string, args ...any) error {
	return replerr.Evalf(n.Kind(), format, args...)
}

// unsupported reports a node the evaluator has no rule for
func unsupported(n ast.Node) error {
	if _, ok := n.(ast.Stmt); ok {
		return replerr.Evalf(n.Kind(), "Unsupported statement type: %s", n.Kind())
	}
	return replerr.Evalf(n.Kind(), "Unsupported expression type: %s", n.Kind())
}

func debugf(l *slog.Logger, msg string, args ...any) {
	if l != nil {
		l.Debug(msg, args...)
	}
}
