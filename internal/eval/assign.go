package eval

import (
	"github.com/itsmostafa/phunkie/internal/ast"
	"github.com/itsmostafa/phunkie/internal/value"
)

func (e *Evaluator) assign(f *frame, n *ast.Assign) (value.Value, error) {
	if n.ByRef {
		if target, ok := n.Target.(*ast.Variable); ok {
			name, err := e.varName(f, target)
			if err != nil {
				return value.Null, err
			}
			cell, wb, err := e.reference(f, n.Value)
			if err != nil {
				return value.Null, err
			}
			if wb != nil {
				// elements and properties cannot be shared; copy instead
				f.set(name, cell.Value)
				return cell.Value, nil
			}
			f.bind(name, cell)
			return cell.Value, nil
		}
	}
	v, err := e.expr(f, n.Value)
	if err != nil {
		return value.Null, err
	}
	if err := e.assignTo(f, n.Target, v); err != nil {
		return value.Null, err
	}
	return v, nil
}

func (e *Evaluator) compoundAssign(f *frame, n *ast.CompoundAssign) (value.Value, error) {
	if n.Op == "??" {
		cur, ok, err := e.quiet(f, n.Target)
		if err != nil {
			return value.Null, err
		}
		if ok && !cur.IsNull() {
			return cur, nil
		}
		v, err := e.expr(f, n.Value)
		if err != nil {
			return value.Null, err
		}
		return v, e.assignTo(f, n.Target, v)
	}
	cur, err := e.readForWrite(f, n.Target)
	if err != nil {
		return value.Null, err
	}
	rhs, err := e.expr(f, n.Value)
	if err != nil {
		return value.Null, err
	}
	v, err := operate(n.Op, cur, rhs)
	if err != nil {
		return value.Null, err
	}
	return v, e.assignTo(f, n.Target, v)
}

// readForWrite reads the current value of an assignment target. Missing
// variables, keys and properties read as null.
func (e *Evaluator) readForWrite(f *frame, x ast.Expr) (value.Value, error) {
	switch x.(type) {
	case *ast.Variable, *ast.Index, *ast.PropertyFetch, *ast.StaticPropFetch:
		v, ok, err := e.quiet(f, x)
		if err != nil || !ok {
			return value.Null, err
		}
		return v, nil
	}
	return e.expr(f, x)
}

// assignTo stores v into an assignment target. Arrays are values, so an
// element write rebuilds each enclosing array and stores it back.
func (e *Evaluator) assignTo(f *frame, target ast.Expr, v value.Value) error {
	v = value.Deref(v)
	switch t := target.(type) {
	case *ast.Variable:
		name, err := e.varName(f, t)
		if err != nil {
			return err
		}
		if name == "this" {
			return errorfAt(t, "Cannot re-assign $this")
		}
		f.slot(name).Value = v
		return nil
	case *ast.Index:
		return e.assignElement(f, t, v)
	case *ast.PropertyFetch:
		obj, err := e.expr(f, t.Object)
		if err != nil {
			return err
		}
		name, err := e.memberName(f, t.Name, t.NameExpr)
		if err != nil {
			return err
		}
		return e.host.SetProperty(obj, name, v, f.self)
	case *ast.StaticPropFetch:
		c, err := e.resolveClass(f, t.Class)
		if err != nil {
			return err
		}
		return e.host.SetStaticProperty(c, t.Name, v, f.self)
	case *ast.ListExpr:
		return e.destructure(f, t.Items, v)
	case *ast.ArrayLit:
		return e.destructure(f, t.Items, v)
	}
	return errorfAt(target, "Cannot assign to %s", target.Kind())
}

func (e *Evaluator) assignElement(f *frame, t *ast.Index, v value.Value) error {
	container, ok, err := e.quiet(f, t.Target)
	if err != nil {
		return err
	}
	if !ok || container.IsNull() {
		container = value.Arr(value.NewArray())
	}
	var key value.Value
	if t.Index != nil {
		if key, err = e.expr(f, t.Index); err != nil {
			return err
		}
	}

	switch container.Kind {
	case value.KindArray:
		arr := container.AsArray()
		if t.Index == nil {
			arr = arr.Append(v)
		} else {
			k, err := value.ToKey(key)
			if err != nil {
				return errorfAt(t, "%s", err.Error())
			}
			arr = arr.Set(k, v)
		}
		return e.assignTo(f, t.Target, value.Arr(arr))
	case value.KindObject:
		if t.Index == nil {
			key = value.Null
		}
		_, err := e.callMethod(container, "offsetSet", key, v)
		return err
	case value.KindString:
		if t.Index == nil {
			return errorfAt(t, "[] operator not supported for strings")
		}
		s := container.AsString()
		i := int(value.ToInt(key))
		if i < 0 {
			i += len(s)
		}
		if i < 0 {
			return errorfAt(t, "Illegal string offset %d", value.ToInt(key))
		}
		c, err := value.ToStr(v)
		if err != nil {
			return err
		}
		if c == "" {
			return errorfAt(t, "Cannot assign an empty string to a string offset")
		}
		for len(s) <= i {
			s += " "
		}
		return e.assignTo(f, t.Target, value.Str(s[:i]+c[:1]+s[i+1:]))
	}
	return errorfAt(t, "Cannot use a scalar value as an array")
}

// destructure assigns the elements of v to list targets. Keyless items
// take consecutive integer keys, holes skip one.
func (e *Evaluator) destructure(f *frame, items []*ast.ArrayItem, v value.Value) error {
	arr := v.AsArray()
	if v.Kind != value.KindArray {
		arr = value.NewArray()
	}
	var pos int64
	for _, item := range items {
		if item == nil {
			pos++
			continue
		}
		var k value.Key
		if item.Key != nil {
			kv, err := e.expr(f, item.Key)
			if err != nil {
				return err
			}
			if k, err = value.ToKey(kv); err != nil {
				return errorfAt(item.Key, "%s", err.Error())
			}
		} else {
			k = value.IntKey(pos)
			pos++
		}
		el, _ := arr.Get(k)
		if err := e.assignTo(f, item.Value, el); err != nil {
			return err
		}
	}
	return nil
}
