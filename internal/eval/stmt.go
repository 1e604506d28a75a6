package eval

import (
	"github.com/itsmostafa/phunkie/internal/ast"
	"github.com/itsmostafa/phunkie/internal/value"
)

func (e *Evaluator) block(f *frame, stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := e.exec(f, s); err != nil {
			return err
		}
	}
	return nil
}

func (e *Evaluator) exec(f *frame, stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		f.lastOutput = false
		v, err := e.expr(f, s.Expr)
		if err != nil {
			return err
		}
		f.last = v
		if _, ok := s.Expr.(*ast.Print); ok {
			f.lastOutput = true
		}
		return nil
	case *ast.Echo:
		for _, x := range s.Exprs {
			v, err := e.expr(f, x)
			if err != nil {
				return err
			}
			if err := e.host.Echo(v); err != nil {
				return err
			}
		}
		f.last, f.lastOutput = value.Null, true
		return nil
	case *ast.If:
		return e.execIf(f, s)
	case *ast.Switch:
		return e.execSwitch(f, s)
	case *ast.For:
		return e.execFor(f, s)
	case *ast.While:
		return e.execWhile(f, s)
	case *ast.DoWhile:
		return e.execDoWhile(f, s)
	case *ast.Foreach:
		return e.execForeach(f, s)
	case *ast.Return:
		v := value.Null
		if s.Expr != nil {
			var err error
			if v, err = e.expr(f, s.Expr); err != nil {
				return err
			}
		}
		panic(returnSignal{value: v})
	case *ast.Break:
		panic(loopSignal{depth: max(s.Depth, 1)})
	case *ast.Continue:
		panic(loopSignal{depth: max(s.Depth, 1), cont: true})
	case *ast.Block:
		return e.block(f, s.Stmts)
	case *ast.Try:
		return e.execTry(f, s)
	case *ast.Unset:
		for _, x := range s.Vars {
			if err := e.unset(f, x); err != nil {
				return err
			}
		}
		return nil
	case *ast.ConstDecl:
		for _, c := range s.Consts {
			v, err := e.expr(f, c.Value)
			if err != nil {
				return err
			}
			if err := e.host.DefineConstant(f.qualify(c.Name), v); err != nil {
				return err
			}
		}
		return nil
	case *ast.FuncDecl:
		_, err := e.declareFunction(f, s)
		return err
	case *ast.ClassDecl:
		_, err := e.declareClass(f, s)
		return err
	case *ast.InterfaceDecl:
		_, err := e.declareInterface(f, s)
		return err
	case *ast.TraitDecl:
		_, err := e.declareTrait(f, s)
		return err
	case *ast.EnumDecl:
		_, err := e.declareEnum(f, s)
		return err
	case *ast.Namespace:
		f.names = f.names.WithNamespace(s.Name)
		if s.Braced {
			return e.block(f, s.Body)
		}
		return nil
	case *ast.Use:
		for _, a := range useAliases(s) {
			f.names = f.names.WithAlias(a.Alias, a.FullName)
		}
		return nil
	case *ast.Nop:
		return nil
	}
	return unsupported(stmt)
}

func (e *Evaluator) execIf(f *frame, s *ast.If) error {
	ok, err := e.truthy(f, s.Cond)
	if err != nil {
		return err
	}
	if ok {
		return e.block(f, s.Then)
	}
	for _, branch := range s.ElseIfs {
		ok, err := e.truthy(f, branch.Cond)
		if err != nil {
			return err
		}
		if ok {
			return e.block(f, branch.Body)
		}
	}
	return e.block(f, s.Else)
}

func (e *Evaluator) truthy(f *frame, x ast.Expr) (bool, error) {
	v, err := e.expr(f, x)
	if err != nil {
		return false, err
	}
	return value.Truthy(v), nil
}

// loopControl is what one loop iteration asks of its loop
type loopControl int

const (
	loopNext loopControl = iota
	loopBreak
	// loopUnwind means a signal for an outer construct is pending
	loopUnwind
)

// iteration runs a loop body once. Break and continue aimed at this loop
// are absorbed; anything else that unwinds is handed back as pending so
// the caller can re-raise it outside any iterator.
func (e *Evaluator) iteration(f *frame, body []ast.Stmt) (ctl loopControl, pending any, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if sig, ok := r.(loopSignal); ok {
			if sig.depth <= 1 {
				if sig.cont {
					ctl = loopNext
				} else {
					ctl = loopBreak
				}
				return
			}
			sig.depth--
			r = sig
		}
		ctl, pending = loopUnwind, r
	}()
	return loopNext, nil, e.block(f, body)
}

// step runs one iteration and reports whether the loop should stop
func (e *Evaluator) step(f *frame, body []ast.Stmt) (stop bool, err error) {
	ctl, pending, err := e.iteration(f, body)
	switch {
	case err != nil:
		return true, err
	case ctl == loopUnwind:
		panic(pending)
	}
	return ctl == loopBreak, nil
}

func (e *Evaluator) execWhile(f *frame, s *ast.While) error {
	for {
		ok, err := e.truthy(f, s.Cond)
		if err != nil || !ok {
			return err
		}
		if stop, err := e.step(f, s.Body); stop || err != nil {
			return err
		}
	}
}

func (e *Evaluator) execDoWhile(f *frame, s *ast.DoWhile) error {
	for {
		if stop, err := e.step(f, s.Body); stop || err != nil {
			return err
		}
		ok, err := e.truthy(f, s.Cond)
		if err != nil || !ok {
			return err
		}
	}
}

func (e *Evaluator) execFor(f *frame, s *ast.For) error {
	if _, err := e.exprs(f, s.Init); err != nil {
		return err
	}
	for {
		if len(s.Cond) > 0 {
			v, err := e.exprs(f, s.Cond)
			if err != nil {
				return err
			}
			if !value.Truthy(v) {
				return nil
			}
		}
		if stop, err := e.step(f, s.Body); stop || err != nil {
			return err
		}
		if _, err := e.exprs(f, s.Loop); err != nil {
			return err
		}
	}
}

// exprs evaluates a comma list and returns the last value
func (e *Evaluator) exprs(f *frame, xs []ast.Expr) (value.Value, error) {
	last := value.Null
	for _, x := range xs {
		v, err := e.expr(f, x)
		if err != nil {
			return value.Null, err
		}
		last = v
	}
	return last, nil
}

func (e *Evaluator) execForeach(f *frame, s *ast.Foreach) error {
	subject, err := e.expr(f, s.Subject)
	if err != nil {
		return err
	}
	if s.ByRef && subject.Kind == value.KindArray {
		return e.foreachByRef(f, s, subject.AsArray())
	}
	seq, seqErr, err := e.host.Iterate(subject)
	if err != nil {
		return err
	}

	var pending any
	for k, v := range seq {
		if s.Key != nil {
			if err = e.assignTo(f, s.Key, k); err != nil {
				break
			}
		}
		if err = e.assignTo(f, s.Value, v); err != nil {
			break
		}
		var ctl loopControl
		ctl, pending, err = e.iteration(f, s.Body)
		if err != nil || ctl != loopNext {
			break
		}
	}
	if pending != nil {
		panic(pending)
	}
	if err != nil {
		return err
	}
	return seqErr()
}

// foreachByRef iterates an array variable, writing each element back
// after the body ran
func (e *Evaluator) foreachByRef(f *frame, s *ast.Foreach, arr *value.Array) error {
	name, isVar := simpleVariable(s.Value)
	for _, k := range arr.Keys() {
		current, err := e.expr(f, s.Subject)
		if err != nil {
			return err
		}
		el, ok := current.AsArray().Get(k)
		if !ok {
			continue
		}
		cell := &value.Ref{Value: el}
		if isVar {
			f.bind(name, cell)
		} else if err := e.assignTo(f, s.Value, el); err != nil {
			return err
		}
		if s.Key != nil {
			if err := e.assignTo(f, s.Key, k.Value()); err != nil {
				return err
			}
		}
		ctl, pending, err := e.iteration(f, s.Body)
		if err == nil && isVar {
			current, err = e.expr(f, s.Subject)
			if err == nil {
				err = e.assignTo(f, s.Subject, value.Arr(current.AsArray().Set(k, cell.Value)))
			}
		}
		switch {
		case ctl == loopUnwind:
			panic(pending)
		case err != nil:
			return err
		case ctl == loopBreak:
			return nil
		}
	}
	return nil
}

func simpleVariable(x ast.Expr) (string, bool) {
	v, ok := x.(*ast.Variable)
	if !ok || v.NameExpr != nil {
		return "", false
	}
	return v.Name, true
}

// execSwitch compares loosely and falls through until a break. The switch
// counts as a loop level for break and continue.
func (e *Evaluator) execSwitch(f *frame, s *ast.Switch) error {
	subject, err := e.expr(f, s.Subject)
	if err != nil {
		return err
	}
	start := -1
	for i, c := range s.Cases {
		if c.Cond == nil {
			continue
		}
		v, err := e.expr(f, c.Cond)
		if err != nil {
			return err
		}
		if value.LooseEquals(subject, v) {
			start = i
			break
		}
	}
	if start < 0 {
		for i, c := range s.Cases {
			if c.Cond == nil {
				start = i
				break
			}
		}
	}
	if start < 0 {
		return nil
	}
	var body []ast.Stmt
	for _, c := range s.Cases[start:] {
		body = append(body, c.Body...)
	}
	ctl, pending, err := e.iteration(f, body)
	if ctl == loopUnwind {
		panic(pending)
	}
	return err
}

// execTry runs the body, hands failures to the first matching catch and
// always runs finally, also when a return or break unwinds through it
func (e *Evaluator) execTry(f *frame, s *ast.Try) (err error) {
	if len(s.Finally) > 0 {
		defer func() {
			r := recover()
			if ferr := e.block(f, s.Finally); ferr != nil {
				err = ferr
			}
			if r != nil {
				panic(r)
			}
		}()
	}
	err = e.block(f, s.Body)
	if err == nil || len(s.Catches) == 0 {
		return err
	}
	thrown := e.host.ThrowableFromError(err)
	obj := value.Obj(thrown)
	for _, c := range s.Catches {
		for _, typ := range c.Types {
			if !e.host.InstanceOf(obj, e.className(f, typ)) {
				continue
			}
			debugf(e.logger, "exception caught", "class", thrown.ClassName(), "catch", typ)
			if c.Var != "" {
				f.set(c.Var, obj)
			}
			return e.block(f, c.Body)
		}
	}
	return err
}

func (e *Evaluator) unset(f *frame, x ast.Expr) error {
	switch t := x.(type) {
	case *ast.Variable:
		name, err := e.varName(f, t)
		if err != nil {
			return err
		}
		f.unset(name)
		return nil
	case *ast.Index:
		if t.Index == nil {
			return errorfAt(t, "Cannot use [] for unsetting")
		}
		container, ok, err := e.quiet(f, t.Target)
		if err != nil || !ok {
			return err
		}
		key, err := e.expr(f, t.Index)
		if err != nil {
			return err
		}
		switch container.Kind {
		case value.KindArray:
			k, err := value.ToKey(key)
			if err != nil {
				return errorfAt(t, "%s", err.Error())
			}
			return e.assignTo(f, t.Target, value.Arr(container.AsArray().Delete(k)))
		case value.KindObject:
			_, err := e.callMethod(container, "offsetUnset", key)
			return err
		}
		return nil
	case *ast.PropertyFetch:
		obj, ok, err := e.quiet(f, t.Object)
		if err != nil || !ok {
			return err
		}
		name, err := e.memberName(f, t.Name, t.NameExpr)
		if err != nil {
			return err
		}
		return e.host.UnsetProperty(obj, name, f.self)
	}
	return errorfAt(x, "Cannot unset %s", x.Kind())
}
