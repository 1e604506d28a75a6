package eval

import (
	"strings"

	"github.com/itsmostafa/phunkie/internal/ast"
	"github.com/itsmostafa/phunkie/internal/host"
	"github.com/itsmostafa/phunkie/internal/replerr"
	"github.com/itsmostafa/phunkie/internal/session"
	"github.com/itsmostafa/phunkie/internal/value"
)

// capture is a variable a closure carries from where it was created
type capture struct {
	name  string
	cell  *value.Ref
	byRef bool
}

// function is a user-defined function, method, closure or arrow function
type function struct {
	e *Evaluator

	name    string
	method  string
	params  []ast.Param
	meta    []value.Param
	types   []string
	returns string

	body      []ast.Stmt
	arrow     ast.Expr
	generator bool

	names    session.Session
	captures []capture

	this   *host.Instance
	self   *host.Class
	static *host.Class
}

var _ value.Callable = (*function)(nil)

func (fn *function) Name() string { return fn.name }

func (fn *function) Params() ([]value.Param, bool) { return fn.meta, true }

func (fn *function) Call(args []value.Value) (value.Value, error) {
	return fn.invoke(fn.this, fn.self, fn.static, args)
}

// methodBody adapts fn to a host method
func (fn *function) methodBody() host.MethodFunc {
	return func(inv host.Invocation, args []value.Value) (value.Value, error) {
		return fn.invoke(inv.This, inv.Class, inv.Static, args)
	}
}

var builtinTypes = map[string]bool{
	"int": true, "float": true, "string": true, "bool": true, "array": true,
	"callable": true, "iterable": true, "object": true, "mixed": true,
	"null": true, "void": true, "never": true, "false": true, "true": true,
	"self": true, "static": true, "parent": true,
}

// resolveType rewrites the class names of a declared type to their fully
// qualified form
func (e *Evaluator) resolveType(f *frame, t *ast.TypeExpr) *ast.TypeExpr {
	if t == nil {
		return nil
	}
	out := &ast.TypeExpr{Name: t.Name, Nullable: t.Nullable}
	for _, u := range t.Union {
		out.Union = append(out.Union, e.resolveType(f, u))
	}
	for _, u := range t.Intersection {
		out.Intersection = append(out.Intersection, e.resolveType(f, u))
	}
	if t.Name != "" && !builtinTypes[strings.ToLower(t.Name)] {
		out.Name = e.className(f, t.Name)
	}
	return out
}

func (e *Evaluator) typeString(f *frame, t *ast.TypeExpr) string {
	if t == nil {
		return ""
	}
	return e.resolveType(f, t).String()
}

// newFunction builds a callable for a declaration made in f
func (e *Evaluator) newFunction(f *frame, name string, params []ast.Param, returns *ast.TypeExpr) *function {
	fn := &function{
		e:       e,
		name:    name,
		method:  name,
		params:  params,
		returns: e.typeString(f, returns),
		names:   f.names,
	}
	for _, p := range params {
		typ := e.typeString(f, p.Type)
		fn.types = append(fn.types, typ)
		fn.meta = append(fn.meta, value.Param{
			Name:     p.Name,
			Type:     typ,
			Optional: p.Default != nil || p.Variadic,
			Default:  value.Absent,
			Variadic: p.Variadic,
			ByRef:    p.ByRef,
		})
	}
	return fn
}

func (e *Evaluator) arrowFunction(f *frame, n *ast.ArrowFn) *function {
	fn := e.newFunction(f, "{closure}", n.Params, n.ReturnType)
	fn.arrow = n.Body
	for _, name := range f.order {
		fn.captures = append(fn.captures, capture{name: name, cell: &value.Ref{Value: f.vars[name].Value}})
	}
	fn.self, fn.static = f.self, f.static
	if !n.Static {
		fn.this = f.this
	}
	return fn
}

func (e *Evaluator) closure(f *frame, n *ast.Closure) (value.Value, error) {
	fn := e.newFunction(f, "{closure}", n.Params, n.ReturnType)
	fn.body, fn.generator = n.Body, n.Generator
	for _, u := range n.Uses {
		if u.ByRef {
			fn.captures = append(fn.captures, capture{name: u.Name, cell: f.slot(u.Name), byRef: true})
			continue
		}
		v := value.Null
		if r, ok := f.lookup(u.Name); ok {
			v = r.Value
		}
		fn.captures = append(fn.captures, capture{name: u.Name, cell: &value.Ref{Value: v}})
	}
	fn.self, fn.static = f.self, f.static
	if !n.Static {
		fn.this = f.this
	}
	return value.Fn(fn), nil
}

// invoke runs fn with $this, self and static bound
func (fn *function) invoke(this *host.Instance, self, static *host.Class, args []value.Value) (value.Value, error) {
	f := newFrame(fn.names)
	f.this, f.self, f.static = this, self, static
	f.function, f.method = fn.method, fn.method
	if self != nil && fn.name != "{closure}" {
		f.method = self.Name + "::" + fn.method
	}
	for _, a := range args {
		if !a.IsAbsent() {
			f.args = append(f.args, value.Deref(a))
		}
	}
	for _, c := range fn.captures {
		if c.byRef {
			f.bind(c.name, c.cell)
		} else {
			f.set(c.name, c.cell.Value)
		}
	}
	if err := fn.bindParams(f, args); err != nil {
		return value.Null, err
	}

	if fn.generator {
		return value.Gen(fn.generatorOf(f)), nil
	}
	v, err := fn.run(f)
	if err != nil {
		return value.Null, err
	}
	return fn.checkReturn(f, v)
}

func (fn *function) bindParams(f *frame, args []value.Value) error {
	rt := fn.e.host
	for i, p := range fn.params {
		typ := fn.types[i]
		if p.Variadic {
			rest := value.NewArray()
			for j := i; j < len(args); j++ {
				v, err := fn.coerceArg(f, j, p, typ, value.Deref(args[j]))
				if err != nil {
					return err
				}
				rest.Push(v)
			}
			f.set(p.Name, value.Arr(rest))
			break
		}

		var v value.Value
		switch {
		case i < len(args) && !args[i].IsAbsent():
			if p.ByRef && args[i].Kind == value.KindRef {
				f.bind(p.Name, args[i].AsRef())
			}
			v = value.Deref(args[i])
		case p.Default != nil:
			d, err := fn.e.expr(f, p.Default)
			if err != nil {
				return err
			}
			v = d
		default:
			given := 0
			for _, a := range args {
				if !a.IsAbsent() {
					given++
				}
			}
			if err := value.CheckArity(fn.name, fn.meta, given); err != nil {
				return err
			}
			return replerr.Typef(fn.name, "%s(): Argument #%d ($%s) not passed", fn.name, i+1, p.Name)
		}

		if !(v.IsNull() && nullDefault(p)) {
			cv, err := fn.coerceArg(f, i, p, typ, v)
			if err != nil {
				return err
			}
			v = cv
		}
		if r, ok := f.lookup(p.Name); ok && p.ByRef {
			r.Value = v
		} else {
			f.set(p.Name, v)
		}
		if p.Promote != "" && f.this != nil {
			if err := rt.SetProperty(value.Obj(f.this), p.Name, v, f.self); err != nil {
				return err
			}
		}
	}
	return nil
}

func nullDefault(p ast.Param) bool {
	c, ok := p.Default.(*ast.ConstFetch)
	return ok && strings.EqualFold(c.Name, "null")
}

func (fn *function) coerceArg(f *frame, i int, p ast.Param, typ string, v value.Value) (value.Value, error) {
	if typ == "" {
		return v, nil
	}
	cv, err := fn.e.host.CoerceType(typ, v, f.self)
	if err != nil {
		return value.Null, replerr.Typef(fn.name, "%s(): Argument #%d ($%s) must be of type %s, %s given",
			fn.name, i+1, p.Name, typ, value.DebugType(v))
	}
	return cv, nil
}

func (fn *function) checkReturn(f *frame, v value.Value) (value.Value, error) {
	switch strings.ToLower(fn.returns) {
	case "":
		return v, nil
	case "void", "never":
		return value.Null, nil
	}
	cv, err := fn.e.host.CoerceType(fn.returns, v, f.self)
	if err != nil {
		return value.Null, replerr.Typef(fn.name, "%s(): Return value must be of type %s, %s returned",
			fn.name, fn.returns, value.DebugType(v))
	}
	return cv, nil
}

// genStop unwinds a generator body whose consumer stopped early
type genStop struct{}

// generatorState is the producer side of a running generator traversal
type generatorState struct {
	yield   func(k, v value.Value) bool
	nextKey int64
}

func (g *generatorState) emit(k, v value.Value) {
	if k.IsAbsent() {
		k = value.Int(g.nextKey)
		g.nextKey++
	} else if k.Kind == value.KindInt && k.AsInt() >= g.nextKey {
		g.nextKey = k.AsInt() + 1
	}
	if !g.yield(k, v) {
		panic(genStop{})
	}
}

// generatorOf wraps a bound call frame in a generator. Each traversal
// replays the body on its own copy of the frame.
func (fn *function) generatorOf(f *frame) *value.Generator {
	var g *value.Generator
	g = value.NewGenerator(func(yield func(k, v value.Value) bool) error {
		run := f.copyVars()
		run.gen = &generatorState{yield: yield}
		v, err := fn.run(run)
		if err != nil {
			return err
		}
		if !v.IsAbsent() {
			g.SetReturn(v)
		}
		return nil
	})
	return g
}

// run executes the body and recovers its return
func (fn *function) run(f *frame) (v value.Value, err error) {
	defer func() {
		r := recover()
		switch sig := r.(type) {
		case nil:
		case returnSignal:
			v, err = sig.value, nil
		case genStop:
			v, err = value.Absent, nil
		default:
			panic(r)
		}
	}()
	if fn.arrow != nil {
		return fn.e.expr(f, fn.arrow)
	}
	return value.Null, fn.e.block(f, fn.body)
}

func (e *Evaluator) yield(f *frame, n *ast.Yield) (value.Value, error) {
	if f.gen == nil {
		return value.Null, errorfAt(n, "The \"yield\" expression can only be used inside a function")
	}
	k, v := value.Absent, value.Null
	var err error
	if n.Key != nil {
		if k, err = e.expr(f, n.Key); err != nil {
			return value.Null, err
		}
	}
	if n.Value != nil {
		if v, err = e.expr(f, n.Value); err != nil {
			return value.Null, err
		}
	}
	f.gen.emit(k, v)
	return value.Null, nil
}

// yieldFrom delegates to an inner iterable and evaluates to the inner
// generator's return value
func (e *Evaluator) yieldFrom(f *frame, n *ast.YieldFrom) (value.Value, error) {
	if f.gen == nil {
		return value.Null, errorfAt(n, "The \"yield\" expression can only be used inside a function")
	}
	inner, err := e.expr(f, n.Expr)
	if err != nil {
		return value.Null, err
	}
	seq, seqErr, err := e.host.Iterate(inner)
	if err != nil {
		return value.Null, err
	}
	stopped := false
	for k, v := range seq {
		if !f.gen.yield(k, v) {
			stopped = true
			break
		}
	}
	if stopped {
		panic(genStop{})
	}
	if err := seqErr(); err != nil {
		return value.Null, err
	}
	if inner.Kind == value.KindGenerator {
		return inner.AsGenerator().Return(), nil
	}
	return value.Null, nil
}

// call evaluates the arguments for callee, invokes it and writes back
// by-reference arguments that are not plain variables
func (e *Evaluator) call(f *frame, callee value.Callable, astArgs []ast.Arg) (value.Value, []value.Value, error) {
	params, hasMeta := callee.Params()
	var (
		positional []value.Value
		named      []value.NamedArg
		writeback  []func() error
	)
	for _, a := range astArgs {
		switch {
		case a.Unpack:
			v, err := e.expr(f, a.Value)
			if err != nil {
				return value.Null, nil, err
			}
			spread := value.NewArray()
			if err := e.spreadInto(spread, v); err != nil {
				return value.Null, nil, err
			}
			for k, el := range spread.All() {
				if k.IsStr {
					named = append(named, value.NamedArg{Name: k.Str, Value: el})
				} else {
					positional = append(positional, el)
				}
			}
		case a.Name != "":
			v, err := e.expr(f, a.Value)
			if err != nil {
				return value.Null, nil, err
			}
			named = append(named, value.NamedArg{Name: a.Name, Value: v})
		case hasMeta && byRefAt(params, len(positional)):
			cell, wb, err := e.reference(f, a.Value)
			if err != nil {
				return value.Null, nil, err
			}
			positional = append(positional, value.RefTo(cell))
			if wb != nil {
				writeback = append(writeback, wb)
			}
		default:
			v, err := e.expr(f, a.Value)
			if err != nil {
				return value.Null, nil, err
			}
			positional = append(positional, v)
		}
	}
	args, err := value.BindNamed(callee, positional, named)
	if err != nil {
		return value.Null, nil, err
	}
	v, err := callee.Call(args)
	if err != nil {
		return value.Null, nil, err
	}
	for _, wb := range writeback {
		if err := wb(); err != nil {
			return value.Null, nil, err
		}
	}
	plain := make([]value.Value, len(args))
	for i, a := range args {
		plain[i] = value.Deref(a)
	}
	return v, plain, nil
}

func byRefAt(params []value.Param, i int) bool {
	if i < len(params) {
		return params[i].ByRef
	}
	n := len(params)
	return n > 0 && params[n-1].Variadic && params[n-1].ByRef
}

// reference returns a cell for a by-reference argument. Elements and
// properties get a temporary cell written back after the call.
func (e *Evaluator) reference(f *frame, x ast.Expr) (*value.Ref, func() error, error) {
	switch t := x.(type) {
	case *ast.Variable:
		name, err := e.varName(f, t)
		if err != nil {
			return nil, nil, err
		}
		return f.slot(name), nil, nil
	case *ast.Index, *ast.PropertyFetch, *ast.StaticPropFetch:
		current, ok, err := e.quiet(f, x)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			current = value.Null
		}
		cell := &value.Ref{Value: current}
		return cell, func() error { return e.assignTo(f, x, cell.Value) }, nil
	}
	v, err := e.expr(f, x)
	if err != nil {
		return nil, nil, err
	}
	return &value.Ref{Value: v}, nil, nil
}

func (e *Evaluator) funcCall(f *frame, n *ast.FuncCall) (value.Value, error) {
	var (
		callee value.Callable
		err    error
	)
	switch {
	case n.Name != "":
		if !n.FirstClass {
			if v, ok, err := e.scopeFunction(f, n); ok || err != nil {
				return v, err
			}
		}
		callee, err = e.namedCallable(f, n.Name)
	default:
		callee, err = e.calleeOf(f, n.Callee)
	}
	if err != nil {
		return value.Null, err
	}
	if n.FirstClass {
		return value.Fn(callee), nil
	}
	v, args, err := e.call(f, callee, n.Args)
	if err != nil {
		return value.Null, err
	}
	if n.Name != "" && host.IsOutputCall(n.Name, args) {
		f.lastOutput = true
	}
	return v, nil
}

// namedCallable resolves f(...): a session variable holding a callable,
// then the namespaced name, then the unqualified name
func (e *Evaluator) namedCallable(f *frame, name string) (value.Callable, error) {
	if !strings.Contains(name, `\`) {
		if r, ok := f.lookup(name); ok && r.Value.Kind == value.KindCallable {
			return r.Value.AsCallable(), nil
		}
	}
	resolved := f.names.ResolveName(name)
	if fn, ok := e.host.LookupFunction(resolved); ok {
		return fn, nil
	}
	if fn, ok := e.host.LookupFunction(shortName(name)); ok {
		return fn, nil
	}
	return nil, replerr.Evalf(name, "Function not found: %s (resolved to: %s)", name, resolved)
}

// calleeOf resolves $f(...) and (expr)(...)
func (e *Evaluator) calleeOf(f *frame, x ast.Expr) (value.Callable, error) {
	v, err := e.expr(f, x)
	if err != nil {
		return nil, err
	}
	if _, isVar := x.(*ast.Variable); isVar {
		switch v.Kind {
		case value.KindCallable:
			return v.AsCallable(), nil
		case value.KindString:
			if c, err := e.namedCallable(f, v.AsString()); err == nil {
				return c, nil
			}
			if c, err := e.host.Callable(v, f.self); err == nil {
				return c, nil
			}
		case value.KindArray, value.KindObject:
			if c, err := e.host.Callable(v, f.self); err == nil {
				return c, nil
			}
		}
		return nil, errorfAt(x, "Variable is not callable")
	}
	c, err := e.host.Callable(v, f.self)
	if err != nil {
		return nil, errorfAt(x, "Expression is not callable")
	}
	return c, nil
}

// scopeFunction handles the builtins that read or write the caller's
// variables
func (e *Evaluator) scopeFunction(f *frame, n *ast.FuncCall) (value.Value, bool, error) {
	name := strings.ToLower(shortName(n.Name))
	switch name {
	case "compact", "extract", "get_defined_vars", "func_get_args", "func_num_args":
	default:
		return value.Null, false, nil
	}
	var args []value.Value
	for _, a := range n.Args {
		v, err := e.expr(f, a.Value)
		if err != nil {
			return value.Null, true, err
		}
		if a.Unpack {
			spread := value.NewArray()
			if err := e.spreadInto(spread, v); err != nil {
				return value.Null, true, err
			}
			args = append(args, spread.Values()...)
			continue
		}
		args = append(args, v)
	}

	switch name {
	case "compact":
		out := value.NewArray()
		var collect func(v value.Value)
		collect = func(v value.Value) {
			switch v.Kind {
			case value.KindString:
				if r, ok := f.lookup(v.AsString()); ok {
					out.Put(value.StrKey(v.AsString()), r.Value)
				}
			case value.KindArray:
				for _, el := range v.AsArray().All() {
					collect(el)
				}
			}
		}
		for _, a := range args {
			collect(a)
		}
		return value.Arr(out), true, nil
	case "extract":
		if len(args) == 0 || args[0].Kind != value.KindArray {
			return value.Null, true, replerr.Typef("extract", "extract(): Argument #1 ($array) must be of type array, %s given", debugTypeAt(args, 0))
		}
		count := 0
		for k, v := range args[0].AsArray().All() {
			if !k.IsStr || k.Str == "this" {
				continue
			}
			f.set(k.Str, v)
			count++
		}
		return value.Int(int64(count)), true, nil
	case "get_defined_vars":
		return value.Arr(f.snapshot()), true, nil
	case "func_get_args":
		return value.List(f.args...), true, nil
	default:
		return value.Int(int64(len(f.args))), true, nil
	}
}

func debugTypeAt(args []value.Value, i int) string {
	if i < len(args) {
		return value.DebugType(args[i])
	}
	return "null"
}

func (e *Evaluator) methodCall(f *frame, n *ast.MethodCall) (value.Value, error) {
	obj, err := e.expr(f, n.Object)
	if err != nil {
		return value.Null, err
	}
	if n.NullSafe && obj.IsNull() {
		return value.Null, nil
	}
	name, err := e.memberName(f, n.Method, n.MethodExpr)
	if err != nil {
		return value.Null, err
	}
	callee, err := e.host.Method(obj, name, f.self)
	if err != nil {
		return value.Null, err
	}
	if n.FirstClass {
		return value.Fn(callee), nil
	}
	v, _, err := e.call(f, callee, n.Args)
	return v, err
}

func (e *Evaluator) staticCall(f *frame, n *ast.StaticCall) (value.Value, error) {
	c, err := e.resolveClass(f, n.Class)
	if err != nil {
		return value.Null, err
	}
	name, err := e.memberName(f, n.Method, n.MethodExpr)
	if err != nil {
		return value.Null, err
	}
	inv := host.Invocation{This: f.this}
	switch strings.ToLower(n.Class.Name) {
	case "self", "parent", "static":
		inv.Static = f.static
	}
	callee, err := e.host.StaticMethod(c, name, inv, f.self)
	if err != nil {
		return value.Null, err
	}
	if n.FirstClass {
		return value.Fn(callee), nil
	}
	v, _, err := e.call(f, callee, n.Args)
	return v, err
}

// callMethod invokes a public method with already evaluated arguments
func (e *Evaluator) callMethod(obj value.Value, name string, args ...value.Value) (value.Value, error) {
	m, err := e.host.Method(obj, name, nil)
	if err != nil {
		return value.Null, err
	}
	return m.Call(args)
}

func (e *Evaluator) newObject(f *frame, n *ast.New) (value.Value, error) {
	var c *host.Class
	var err error
	if n.Anon != nil {
		c, err = e.declareAnonymous(f, n.Anon)
	} else {
		c, err = e.resolveClass(f, n.Class)
	}
	if err != nil {
		return value.Null, err
	}
	ctor, err := e.host.ConstructorOf(c, f.self)
	if err != nil {
		return value.Null, err
	}
	v, _, err := e.call(f, ctor, n.Args)
	return v, err
}
