package eval

import (
	"os"
	"strings"

	"github.com/itsmostafa/phunkie/internal/ast"
	"github.com/itsmostafa/phunkie/internal/host"
	"github.com/itsmostafa/phunkie/internal/value"
)

func (e *Evaluator) expr(f *frame, x ast.Expr) (value.Value, error) {
	switch n := x.(type) {
	case *ast.IntLit:
		return value.Int(n.Value), nil
	case *ast.FloatLit:
		return value.Float(n.Value), nil
	case *ast.StringLit:
		return value.Str(n.Value), nil
	case *ast.Interpolated:
		var b strings.Builder
		for _, part := range n.Parts {
			v, err := e.expr(f, part)
			if err != nil {
				return value.Null, err
			}
			b.WriteString(value.Stringify(v))
		}
		return value.Str(b.String()), nil
	case *ast.ConstFetch:
		return e.constant(f, n)
	case *ast.ClassConstFetch:
		return e.classConstant(f, n)
	case *ast.StaticPropFetch:
		c, err := e.resolveClass(f, n.Class)
		if err != nil {
			return value.Null, err
		}
		return e.host.GetStaticProperty(c, n.Name, f.self)
	case *ast.MagicConst:
		return e.magic(f, n), nil
	case *ast.Variable:
		return e.variable(f, n)
	case *ast.Assign:
		return e.assign(f, n)
	case *ast.CompoundAssign:
		return e.compoundAssign(f, n)
	case *ast.ListExpr:
		return value.Null, errorfAt(n, "Cannot use list() outside of an assignment")
	case *ast.Binary:
		return e.binary(f, n)
	case *ast.Unary:
		return e.unary(f, n)
	case *ast.Cast:
		return e.cast(f, n)
	case *ast.Isset:
		for _, v := range n.Vars {
			set, err := e.isset(f, v)
			if err != nil || !set {
				return value.Bool(false), err
			}
		}
		return value.Bool(true), nil
	case *ast.Empty:
		v, ok, err := e.quiet(f, n.Expr)
		if err != nil {
			return value.Null, err
		}
		return value.Bool(!ok || !value.Truthy(v)), nil
	case *ast.IncDec:
		return e.incDec(f, n)
	case *ast.Ternary:
		cond, err := e.expr(f, n.Cond)
		if err != nil {
			return value.Null, err
		}
		if value.Truthy(cond) {
			if n.Then == nil {
				return cond, nil
			}
			return e.expr(f, n.Then)
		}
		return e.expr(f, n.Else)
	case *ast.Match:
		return e.match(f, n)
	case *ast.ArrowFn:
		return value.Fn(e.arrowFunction(f, n)), nil
	case *ast.Closure:
		return e.closure(f, n)
	case *ast.FuncCall:
		return e.funcCall(f, n)
	case *ast.MethodCall:
		return e.methodCall(f, n)
	case *ast.StaticCall:
		return e.staticCall(f, n)
	case *ast.PropertyFetch:
		obj, err := e.expr(f, n.Object)
		if err != nil {
			return value.Null, err
		}
		if n.NullSafe && obj.IsNull() {
			return value.Null, nil
		}
		name, err := e.memberName(f, n.Name, n.NameExpr)
		if err != nil {
			return value.Null, err
		}
		return e.host.GetProperty(obj, name, f.self)
	case *ast.ArrayLit:
		return e.arrayLiteral(f, n)
	case *ast.Index:
		return e.index(f, n)
	case *ast.New:
		return e.newObject(f, n)
	case *ast.Print:
		v, err := e.expr(f, n.Expr)
		if err != nil {
			return value.Null, err
		}
		if err := e.host.Echo(v); err != nil {
			return value.Null, err
		}
		return value.Int(1), nil
	case *ast.Throw:
		return value.Null, e.throw(f, n)
	case *ast.Instanceof:
		return e.instanceOf(f, n)
	case *ast.Clone:
		v, err := e.expr(f, n.Expr)
		if err != nil {
			return value.Null, err
		}
		return e.host.Clone(v)
	case *ast.Suppress:
		v, err := e.expr(f, n.Expr)
		if err != nil {
			debugf(e.logger, "failure suppressed", "error", err)
			return value.Null, nil
		}
		return v, nil
	case *ast.Yield:
		return e.yield(f, n)
	case *ast.YieldFrom:
		return e.yieldFrom(f, n)
	}
	return value.Null, unsupported(x)
}

func (e *Evaluator) constant(f *frame, n *ast.ConstFetch) (value.Value, error) {
	name := n.Name
	switch strings.ToLower(name) {
	case "true":
		return value.Bool(true), nil
	case "false":
		return value.Bool(false), nil
	case "null", "none":
		return value.Null, nil
	}
	if v, ok := e.host.Constant(f.names.ResolveName(name)); ok {
		return v, nil
	}
	if v, ok := e.host.Constant(trimSlash(name)); ok {
		return v, nil
	}
	return value.Null, errorfAt(n, "Undefined constant \"%s\"", trimSlash(name))
}

func (e *Evaluator) classConstant(f *frame, n *ast.ClassConstFetch) (value.Value, error) {
	name := n.Name
	if n.NameExpr != nil {
		v, err := e.expr(f, n.NameExpr)
		if err != nil {
			return value.Null, err
		}
		if v.Kind != value.KindString {
			return value.Null, errorfAt(n, "Cannot use value of type %s as class constant name", value.DebugType(v))
		}
		name = v.AsString()
	}
	if n.Class.Expr != nil && name == "class" {
		v, err := e.expr(f, n.Class.Expr)
		if err != nil {
			return value.Null, err
		}
		if v.Kind != value.KindObject {
			return value.Null, errorfAt(n, "Cannot use \"::class\" on value of type %s", value.DebugType(v))
		}
		return value.Str(v.AsObject().ClassName()), nil
	}
	if n.Class.Expr == nil && name == "class" {
		switch strings.ToLower(n.Class.Name) {
		case "self", "static", "parent":
		default:
			return value.Str(trimSlash(e.className(f, n.Class.Name))), nil
		}
	}
	c, err := e.resolveClass(f, n.Class)
	if err != nil {
		return value.Null, err
	}
	return e.host.ClassConstant(c, name, f.self)
}

func (e *Evaluator) magic(f *frame, n *ast.MagicConst) value.Value {
	switch n.Name {
	case "__LINE__":
		return value.Int(1)
	case "__FILE__":
		return value.Str("php://stdin")
	case "__DIR__":
		dir, err := os.Getwd()
		if err != nil {
			return value.Str("")
		}
		return value.Str(dir)
	case "__FUNCTION__":
		return value.Str(f.function)
	case "__CLASS__":
		if f.self != nil {
			return value.Str(f.self.Name)
		}
	case "__METHOD__":
		return value.Str(f.method)
	case "__NAMESPACE__":
		ns, _ := f.names.Namespace()
		return value.Str(ns)
	}
	return value.Str("")
}

// varName resolves the name of $x, $$x and ${expr}
func (e *Evaluator) varName(f *frame, n *ast.Variable) (string, error) {
	if n.NameExpr == nil {
		return n.Name, nil
	}
	v, err := e.expr(f, n.NameExpr)
	if err != nil {
		return "", err
	}
	if v.Kind != value.KindString {
		return "", errorfAt(n, "Variable variable name must be a string")
	}
	return v.AsString(), nil
}

func (e *Evaluator) variable(f *frame, n *ast.Variable) (value.Value, error) {
	name, err := e.varName(f, n)
	if err != nil {
		return value.Null, err
	}
	if name == "this" {
		if f.this == nil {
			return value.Null, errorfAt(n, "Using $this when not in object context")
		}
		return value.Obj(f.this), nil
	}
	r, ok := f.lookup(name)
	if !ok {
		return value.Null, errorfAt(n, "Undefined variable $%s", name)
	}
	return r.Value, nil
}

func (e *Evaluator) binary(f *frame, n *ast.Binary) (value.Value, error) {
	switch n.Op {
	case "&&", "and":
		l, err := e.truthy(f, n.Left)
		if err != nil || !l {
			return value.Bool(false), err
		}
		r, err := e.truthy(f, n.Right)
		return value.Bool(r), err
	case "||", "or":
		l, err := e.truthy(f, n.Left)
		if err != nil || l {
			return value.Bool(l), err
		}
		r, err := e.truthy(f, n.Right)
		return value.Bool(r), err
	case "??":
		v, ok, err := e.quiet(f, n.Left)
		if err != nil {
			return value.Null, err
		}
		if ok && !v.IsNull() {
			return v, nil
		}
		return e.expr(f, n.Right)
	}
	l, err := e.expr(f, n.Left)
	if err != nil {
		return value.Null, err
	}
	r, err := e.expr(f, n.Right)
	if err != nil {
		return value.Null, err
	}
	return operate(n.Op, l, r)
}

// operate applies a non-short-circuit binary operator
func operate(op string, l, r value.Value) (value.Value, error) {
	switch op {
	case "+", "-", "*", "/", "%", "**":
		return value.Arith(op, l, r)
	case ".":
		ls, err := value.ToStr(l)
		if err != nil {
			return value.Null, err
		}
		rs, err := value.ToStr(r)
		if err != nil {
			return value.Null, err
		}
		return value.Str(ls + rs), nil
	case "&", "|", "^", "<<", ">>":
		return value.Bitwise(op, l, r)
	case "xor":
		return value.Bool(value.Truthy(l) != value.Truthy(r)), nil
	case "==":
		return value.Bool(value.LooseEquals(l, r)), nil
	case "!=", "<>":
		return value.Bool(!value.LooseEquals(l, r)), nil
	case "===":
		return value.Bool(value.Identical(l, r)), nil
	case "!==":
		return value.Bool(!value.Identical(l, r)), nil
	case "<":
		return value.Bool(value.Compare(l, r) < 0), nil
	case "<=":
		return value.Bool(value.Compare(l, r) <= 0), nil
	case ">":
		return value.Bool(value.Compare(l, r) > 0), nil
	case ">=":
		return value.Bool(value.Compare(l, r) >= 0), nil
	case "<=>":
		return value.Int(int64(value.Compare(l, r))), nil
	}
	return value.Null, errorfAt(&ast.Binary{}, "Unsupported binary operator: %s", op)
}

func (e *Evaluator) unary(f *frame, n *ast.Unary) (value.Value, error) {
	v, err := e.expr(f, n.Operand)
	if err != nil {
		return value.Null, err
	}
	switch n.Op {
	case "!":
		return value.Bool(!value.Truthy(v)), nil
	case "-":
		return value.Negate(v)
	case "+":
		return value.Plus(v)
	case "~":
		return value.BitNot(v)
	}
	return value.Null, errorfAt(n, "Unsupported unary operator: %s", n.Op)
}

func (e *Evaluator) cast(f *frame, n *ast.Cast) (value.Value, error) {
	v, err := e.expr(f, n.Expr)
	if err != nil {
		return value.Null, err
	}
	switch n.To {
	case "int":
		return value.Int(value.ToInt(v)), nil
	case "float":
		return value.Float(value.ToFloat(v)), nil
	case "string":
		s, err := value.ToStr(v)
		return value.Str(s), err
	case "bool":
		return value.Bool(value.Truthy(v)), nil
	case "array":
		return value.Arr(value.ToArray(v)), nil
	case "object":
		return e.toObject(v)
	case "unset":
		return value.Null, nil
	}
	return value.Null, errorfAt(n, "Unsupported cast: (%s)", n.To)
}

// toObject implements the (object) cast
func (e *Evaluator) toObject(v value.Value) (value.Value, error) {
	if v.Kind == value.KindObject {
		return v, nil
	}
	obj, err := e.host.Construct("stdClass", nil)
	if err != nil {
		return value.Null, err
	}
	switch v.Kind {
	case value.KindNull:
	case value.KindArray:
		for k, el := range v.AsArray().All() {
			if err := e.host.SetProperty(obj, k.String(), el, nil); err != nil {
				return value.Null, err
			}
		}
	default:
		if err := e.host.SetProperty(obj, "scalar", v, nil); err != nil {
			return value.Null, err
		}
	}
	return obj, nil
}

// quiet evaluates x the way isset and ?? do: a missing variable, key or
// property yields ok=false. Any other failure is returned as err.
func (e *Evaluator) quiet(f *frame, x ast.Expr) (value.Value, bool, error) {
	switch n := x.(type) {
	case *ast.Variable:
		name, err := e.varName(f, n)
		if err != nil {
			return value.Null, false, err
		}
		if name == "this" {
			return value.Obj(f.this), f.this != nil, nil
		}
		r, ok := f.lookup(name)
		if !ok {
			return value.Null, false, nil
		}
		return r.Value, true, nil
	case *ast.Index:
		if n.Index == nil {
			return value.Null, false, nil
		}
		container, ok, err := e.quiet(f, n.Target)
		if err != nil || !ok {
			return value.Null, false, err
		}
		key, err := e.expr(f, n.Index)
		if err != nil {
			return value.Null, false, err
		}
		return e.offsetIfSet(n, container, key)
	case *ast.PropertyFetch:
		obj, ok, err := e.quiet(f, n.Object)
		if err != nil || !ok || obj.Kind != value.KindObject {
			return value.Null, false, err
		}
		name, err := e.memberName(f, n.Name, n.NameExpr)
		if err != nil {
			return value.Null, false, err
		}
		if !e.host.HasProperty(obj, name, f.self) {
			return value.Null, false, nil
		}
		v, err := e.host.GetProperty(obj, name, f.self)
		return v, err == nil, err
	case *ast.StaticPropFetch:
		c, err := e.resolveClass(f, n.Class)
		if err != nil {
			return value.Null, false, nil
		}
		v, err := e.host.GetStaticProperty(c, n.Name, f.self)
		return v, err == nil, nil
	}
	v, err := e.expr(f, x)
	return v, err == nil, err
}

func (e *Evaluator) isset(f *frame, x ast.Expr) (bool, error) {
	v, ok, err := e.quiet(f, x)
	return ok && !v.IsNull(), err
}

// offsetIfSet reads container[key] when present
func (e *Evaluator) offsetIfSet(at ast.Node, container, key value.Value) (value.Value, bool, error) {
	switch container.Kind {
	case value.KindArray:
		k, err := value.ToKey(key)
		if err != nil {
			return value.Null, false, errorfAt(at, "%s", err.Error())
		}
		v, ok := container.AsArray().Get(k)
		return v, ok, nil
	case value.KindString:
		s := container.AsString()
		i, ok := stringOffset(s, key)
		if !ok {
			return value.Null, false, nil
		}
		return value.Str(s[i : i+1]), true, nil
	case value.KindObject:
		exists, err := e.callMethod(container, "offsetExists", key)
		if err != nil || !value.Truthy(exists) {
			return value.Null, false, err
		}
		v, err := e.callMethod(container, "offsetGet", key)
		return v, err == nil, err
	}
	return value.Null, false, nil
}

// stringOffset maps a possibly negative string offset to a byte index
func stringOffset(s string, key value.Value) (int, bool) {
	if key.Kind != value.KindInt && !(key.Kind == value.KindString && value.IsNumeric(key)) {
		return 0, false
	}
	i := value.ToInt(key)
	if i < 0 {
		i += int64(len(s))
	}
	if i < 0 || i >= int64(len(s)) {
		return 0, false
	}
	return int(i), true
}

func (e *Evaluator) index(f *frame, n *ast.Index) (value.Value, error) {
	if n.Index == nil {
		return value.Null, errorfAt(n, "Cannot use [] for reading")
	}
	container, err := e.expr(f, n.Target)
	if err != nil {
		return value.Null, err
	}
	key, err := e.expr(f, n.Index)
	if err != nil {
		return value.Null, err
	}
	switch container.Kind {
	case value.KindArray:
		k, err := value.ToKey(key)
		if err != nil {
			return value.Null, errorfAt(n, "%s", err.Error())
		}
		v, ok := container.AsArray().Get(k)
		if !ok {
			return value.Null, errorfAt(n, "Undefined array index: %s", k)
		}
		return v, nil
	case value.KindString:
		s := container.AsString()
		i, ok := stringOffset(s, key)
		if !ok {
			return value.Null, errorfAt(n, "Uninitialized string offset %s", value.Stringify(key))
		}
		return value.Str(s[i : i+1]), nil
	case value.KindObject:
		if _, err := e.host.Method(container, "offsetGet", f.self); err == nil {
			return e.callMethod(container, "offsetGet", key)
		}
	}
	return value.Null, errorfAt(n, "Cannot use array access on non-array type: %s", value.TypeOf(container))
}

func (e *Evaluator) arrayLiteral(f *frame, n *ast.ArrayLit) (value.Value, error) {
	out := value.NewArray()
	for _, item := range n.Items {
		if item == nil {
			return value.Null, errorfAt(n, "Cannot use empty array elements in arrays")
		}
		v, err := e.expr(f, item.Value)
		if err != nil {
			return value.Null, err
		}
		if item.Unpack {
			if err := e.spreadInto(out, v); err != nil {
				return value.Null, err
			}
			continue
		}
		if item.Key == nil {
			out.Push(v)
			continue
		}
		kv, err := e.expr(f, item.Key)
		if err != nil {
			return value.Null, err
		}
		k, err := value.ToKey(kv)
		if err != nil {
			return value.Null, errorfAt(n, "%s", err.Error())
		}
		out.Put(k, v)
	}
	return value.Arr(out), nil
}

// spreadInto unpacks an iterable into an array under construction.
// String keys are kept; integer keys are renumbered.
func (e *Evaluator) spreadInto(out *value.Array, v value.Value) error {
	if v.Kind != value.KindArray && v.Kind != value.KindGenerator && !e.host.InstanceOf(v, "Traversable") {
		return errorfAt(&ast.ArrayLit{}, "Only arrays and Traversables can be unpacked")
	}
	seq, seqErr, err := e.host.Iterate(v)
	if err != nil {
		return err
	}
	for k, el := range seq {
		if k.Kind == value.KindString {
			out.Put(value.StrKey(k.AsString()), el)
		} else {
			out.Push(el)
		}
	}
	return seqErr()
}

func (e *Evaluator) match(f *frame, n *ast.Match) (value.Value, error) {
	subject, err := e.expr(f, n.Subject)
	if err != nil {
		return value.Null, err
	}
	for _, arm := range n.Arms {
		if arm.Conds == nil {
			return e.expr(f, arm.Body)
		}
		for _, c := range arm.Conds {
			v, err := e.expr(f, c)
			if err != nil {
				return value.Null, err
			}
			if value.Identical(subject, v) {
				return e.expr(f, arm.Body)
			}
		}
	}
	return value.Null, errorfAt(n, "No matching case found in match expression")
}

func (e *Evaluator) incDec(f *frame, n *ast.IncDec) (value.Value, error) {
	old, err := e.readForWrite(f, n.Target)
	if err != nil {
		return value.Null, err
	}
	verb := "increment"
	if n.Op == "--" {
		verb = "decrement"
	}
	var updated value.Value
	switch {
	case old.IsNull() && n.Op == "++":
		updated = value.Int(1)
	case old.IsNull():
		updated = value.Null
	case old.Kind == value.KindBool:
		updated = old
	default:
		num, ok := value.ToNumber(old)
		if !ok || (old.Kind == value.KindString && !value.IsNumeric(old)) {
			return value.Null, errorfAt(n, "Cannot %s non-numeric value of type %s", verb, value.DebugType(old))
		}
		delta := "+"
		if n.Op == "--" {
			delta = "-"
		}
		if updated, err = value.Arith(delta, num, value.Int(1)); err != nil {
			return value.Null, err
		}
	}
	if err := e.assignTo(f, n.Target, updated); err != nil {
		return value.Null, err
	}
	if n.Prefix {
		return updated, nil
	}
	return old, nil
}

func (e *Evaluator) throw(f *frame, n *ast.Throw) error {
	v, err := e.expr(f, n.Expr)
	if err != nil {
		return err
	}
	if v.Kind != value.KindObject || !e.host.InstanceOf(v, "Throwable") {
		return errorfAt(n, "Can only throw objects")
	}
	obj := v.AsObject().(*host.Instance)
	debugf(e.logger, "exception thrown", "class", obj.ClassName())
	return &host.Thrown{Object: obj}
}

func (e *Evaluator) instanceOf(f *frame, n *ast.Instanceof) (value.Value, error) {
	v, err := e.expr(f, n.Expr)
	if err != nil {
		return value.Null, err
	}
	var name string
	switch {
	case n.Class.Expr != nil:
		target, err := e.expr(f, n.Class.Expr)
		if err != nil {
			return value.Null, err
		}
		switch target.Kind {
		case value.KindObject:
			name = target.AsObject().(*host.Instance).Class().Name
		case value.KindString:
			name = target.AsString()
		default:
			return value.Null, errorfAt(n, "Class name must be a valid object or a string")
		}
	default:
		switch strings.ToLower(n.Class.Name) {
		case "self", "static", "parent":
			c, err := e.resolveClass(f, n.Class)
			if err != nil {
				return value.Null, err
			}
			name = c.Name
		default:
			name = e.className(f, n.Class.Name)
		}
	}
	return value.Bool(e.host.InstanceOf(v, name)), nil
}

// memberName resolves a property or method name given statically or as
// an expression
func (e *Evaluator) memberName(f *frame, name string, nameExpr ast.Expr) (string, error) {
	if nameExpr == nil {
		return name, nil
	}
	v, err := e.expr(f, nameExpr)
	if err != nil {
		return "", err
	}
	if v.Kind != value.KindString {
		return "", errorfAt(nameExpr, "Member name must be a string, %s given", value.DebugType(v))
	}
	return v.AsString(), nil
}

// className resolves a class name against the namespace and imports,
// falling back to the global name when only that one is declared
func (e *Evaluator) className(f *frame, name string) string {
	resolved := f.names.ResolveName(name)
	if _, ok := e.host.Class(resolved); ok {
		return resolved
	}
	if _, ok := e.host.Class(trimSlash(name)); ok {
		return trimSlash(name)
	}
	return resolved
}

// resolveClass finds the class a ClassRef names, including self, static
// and parent
func (e *Evaluator) resolveClass(f *frame, ref ast.ClassRef) (*host.Class, error) {
	if ref.Expr != nil {
		v, err := e.expr(f, ref.Expr)
		if err != nil {
			return nil, err
		}
		switch v.Kind {
		case value.KindObject:
			return v.AsObject().(*host.Instance).Class(), nil
		case value.KindString:
			return e.lookupClass(f, v.AsString())
		}
		return nil, errorfAt(ref.Expr, "Cannot use value of type %s as class name", value.DebugType(v))
	}
	switch strings.ToLower(ref.Name) {
	case "self":
		if f.self == nil {
			return nil, errorfAt(&ast.ClassConstFetch{}, "Cannot use \"self\" when no class scope is active")
		}
		return f.self, nil
	case "static":
		if f.static == nil {
			return nil, errorfAt(&ast.ClassConstFetch{}, "Cannot use \"static\" when no class scope is active")
		}
		return f.static, nil
	case "parent":
		if f.self == nil || f.self.Parent == nil {
			return nil, errorfAt(&ast.ClassConstFetch{}, "Cannot use \"parent\" when current class scope has no parent")
		}
		return f.self.Parent, nil
	}
	return e.lookupClass(f, ref.Name)
}

func (e *Evaluator) lookupClass(f *frame, name string) (*host.Class, error) {
	resolved := e.className(f, name)
	if c, ok := e.host.Class(resolved); ok {
		return c, nil
	}
	return nil, errorfAt(&ast.New{}, "Class \"%s\" not found", trimSlash(resolved))
}

// qualify prefixes a declared name with the current namespace
func (f *frame) qualify(name string) string {
	if ns, ok := f.names.Namespace(); ok {
		return ns + `\` + name
	}
	return name
}

func trimSlash(name string) string { return strings.TrimPrefix(name, `\`) }

func shortName(name string) string {
	if i := strings.LastIndex(name, `\`); i >= 0 {
		return name[i+1:]
	}
	return name
}
