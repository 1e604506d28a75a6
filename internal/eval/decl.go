package eval

import (
	"strings"

	"github.com/itsmostafa/phunkie/internal/ast"
	"github.com/itsmostafa/phunkie/internal/host"
	"github.com/itsmostafa/phunkie/internal/replerr"
	"github.com/itsmostafa/phunkie/internal/value"
)

func (e *Evaluator) declareFunction(f *frame, s *ast.FuncDecl) (*function, error) {
	name := f.qualify(s.Name)
	for _, p := range s.Params {
		if p.Type == nil {
			continue
		}
		if unknown, ok := e.host.TypeExists(e.typeString(f, p.Type)); !ok {
			return nil, replerr.Evalf(unknown, "Class '%s' not found", unknown)
		}
	}
	fn := e.newFunction(f, name, s.Params, s.ReturnType)
	fn.body, fn.generator = s.Body, s.Generator
	if err := e.host.DeclareFunction(name, fn); err != nil {
		return nil, err
	}
	return fn, nil
}

func (e *Evaluator) declareClass(f *frame, s *ast.ClassDecl) (*host.Class, error) {
	spec := &host.ClassSpec{
		Name:     f.qualify(s.Name),
		Kind:     host.KindClass,
		Abstract: s.Abstract,
		Final:    s.Final,
		Readonly: s.Readonly,
	}
	if s.Extends != "" {
		spec.Parent = e.className(f, s.Extends)
	}
	spec.Interfaces = e.classNames(f, s.Implements)
	e.members(f, spec, s.Body)
	return e.host.Declare(spec)
}

// declareAnonymous declares the class of a new class(...) expression
func (e *Evaluator) declareAnonymous(f *frame, s *ast.ClassDecl) (*host.Class, error) {
	spec := &host.ClassSpec{
		Name:      "class@anonymous",
		Kind:      host.KindClass,
		Final:     true,
		Readonly:  s.Readonly,
		Anonymous: true,
	}
	if s.Extends != "" {
		spec.Parent = e.className(f, s.Extends)
	}
	spec.Interfaces = e.classNames(f, s.Implements)
	e.members(f, spec, s.Body)
	return e.host.Declare(spec)
}

func (e *Evaluator) declareInterface(f *frame, s *ast.InterfaceDecl) (*host.Class, error) {
	spec := &host.ClassSpec{
		Name:       f.qualify(s.Name),
		Kind:       host.KindInterface,
		Interfaces: e.classNames(f, s.Extends),
	}
	e.members(f, spec, s.Body)
	return e.host.Declare(spec)
}

func (e *Evaluator) declareTrait(f *frame, s *ast.TraitDecl) (*host.Class, error) {
	spec := &host.ClassSpec{Name: f.qualify(s.Name), Kind: host.KindTrait}
	e.members(f, spec, s.Body)
	return e.host.Declare(spec)
}

func (e *Evaluator) declareEnum(f *frame, s *ast.EnumDecl) (*host.Class, error) {
	spec := &host.ClassSpec{
		Name:        f.qualify(s.Name),
		Kind:        host.KindEnum,
		Final:       true,
		BackingType: strings.ToLower(s.BackingType),
		Interfaces:  e.classNames(f, s.Implements),
	}
	e.members(f, spec, s.Body)
	for _, c := range s.Body.Cases {
		cs := host.CaseSpec{Name: c.Name}
		if c.Value != nil {
			cs.Value = e.classInit(f, c.Value)
		}
		spec.Cases = append(spec.Cases, cs)
	}
	return e.host.Declare(spec)
}

func (e *Evaluator) classNames(f *frame, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = e.className(f, n)
	}
	return out
}

// classInit evaluates a constant or property initializer with self and
// static bound to the declaring class
func (e *Evaluator) classInit(f *frame, x ast.Expr) func(c *host.Class) (value.Value, error) {
	names := f.names
	return func(c *host.Class) (value.Value, error) {
		cf := newFrame(names)
		cf.self, cf.static = c, c
		return e.expr(cf, x)
	}
}

// members fills spec from a class-like body
func (e *Evaluator) members(f *frame, spec *host.ClassSpec, body ast.ClassBody) {
	spec.Traits = e.classNames(f, body.TraitUses)
	for _, c := range body.Consts {
		spec.Consts = append(spec.Consts, host.ConstSpec{
			Name:       c.Name,
			Visibility: host.ParseVisibility(c.Visibility),
			Final:      c.Final,
			Value:      e.classInit(f, c.Value),
		})
	}
	for _, p := range body.Props {
		ps := host.PropSpec{
			Name:       p.Name,
			Type:       e.typeString(f, p.Type),
			Typed:      p.Type != nil,
			Static:     p.Static,
			Readonly:   p.Readonly,
			Visibility: host.ParseVisibility(p.Visibility),
		}
		if p.Default != nil {
			ps.Default = e.classInit(f, p.Default)
		}
		spec.Props = append(spec.Props, ps)
	}
	for _, m := range body.Methods {
		fn := e.newFunction(f, spec.Name+"::"+m.Name, m.Params, m.ReturnType)
		fn.method = m.Name
		fn.body, fn.generator = m.Body, m.Generator
		abstract := m.Abstract || spec.Kind == host.KindInterface
		ms := host.MethodSpec{
			Name:       m.Name,
			Params:     fn.meta,
			Static:     m.Static,
			Abstract:   abstract,
			Final:      m.Final,
			Visibility: host.ParseVisibility(m.Visibility),
		}
		if !abstract {
			ms.Body = fn.methodBody()
		}
		spec.Methods = append(spec.Methods, ms)

		if !strings.EqualFold(m.Name, "__construct") {
			continue
		}
		for i, p := range m.Params {
			if p.Promote == "" {
				continue
			}
			spec.Props = append(spec.Props, host.PropSpec{
				Name:       p.Name,
				Type:       fn.types[i],
				Typed:      p.Type != nil,
				Readonly:   p.Readonly,
				Visibility: host.ParseVisibility(p.Promote),
			})
		}
	}
}
