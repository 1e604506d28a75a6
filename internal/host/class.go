package host

import (
	"fmt"
	"slices"
	"strings"

	"github.com/itsmostafa/phunkie/internal/replerr"
	"github.com/itsmostafa/phunkie/internal/value"
)

// Visibility of a class member
type Visibility int

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return "public"
	}
}

// ParseVisibility maps a modifier keyword to a Visibility
func ParseVisibility(s string) Visibility {
	switch strings.ToLower(s) {
	case "protected":
		return Protected
	case "private":
		return Private
	default:
		return Public
	}
}

// ClassKind tells classes, interfaces, traits and enums apart
type ClassKind int

const (
	KindClass ClassKind = iota
	KindInterface
	KindTrait
	KindEnum
)

func (k ClassKind) String() string {
	switch k {
	case KindInterface:
		return "interface"
	case KindTrait:
		return "trait"
	case KindEnum:
		return "enum"
	default:
		return "class"
	}
}

// Invocation is the context a method body runs in
type Invocation struct {
	// This is nil for static calls
	This *Instance
	// Class is the declaring class, what self refers to
	Class *Class
	// Static is the late static binding class
	Static *Class
}

// MethodFunc implements a method body
type MethodFunc func(inv Invocation, args []value.Value) (value.Value, error)

// Method is a declared or builtin method
type Method struct {
	Name       string
	Class      *Class
	Params     []value.Param
	HasParams  bool
	Body       MethodFunc
	Static     bool
	Abstract   bool
	Final      bool
	Visibility Visibility
	fromTrait  bool
}

// Property is a declared property
type Property struct {
	Name       string
	Class      *Class
	Type       string
	Typed      bool
	Static     bool
	Readonly   bool
	Visibility Visibility
	// Default is nil when the property has no initializer
	Default func(c *Class) (value.Value, error)
}

// Constant is a class constant, evaluated on first access
type Constant struct {
	Name       string
	Class      *Class
	Visibility Visibility
	Final      bool
	eval       func(c *Class) (value.Value, error)
	value      value.Value
	resolved   bool
	resolving  bool
}

type staticSlot struct {
	prop  *Property
	value value.Value
	ready bool
}

// Class is a registered class, interface, trait or enum
type Class struct {
	Name        string
	Kind        ClassKind
	Parent      *Class
	Interfaces  []*Class
	Abstract    bool
	Final       bool
	Readonly    bool
	Anonymous   bool
	BackingType string

	consts     map[string]*Constant
	constOrder []string
	props      []*Property
	statics    map[string]*staticSlot
	methods    map[string]*Method
	cases      []string
	caseObjs   map[string]*Instance
	builtin    bool
}

func newClass(name string, kind ClassKind) *Class {
	return &Class{
		Name:     name,
		Kind:     kind,
		consts:   make(map[string]*Constant),
		statics:  make(map[string]*staticSlot),
		methods:  make(map[string]*Method),
		caseObjs: make(map[string]*Instance),
	}
}

// IsSubclassOf reports whether c is name or extends or implements it
func (c *Class) IsSubclassOf(name string) bool {
	name = normalize(name)
	for k := c; k != nil; k = k.Parent {
		if strings.ToLower(k.Name) == name {
			return true
		}
		for _, i := range k.Interfaces {
			if i.IsSubclassOf(name) {
				return true
			}
		}
	}
	return false
}

// FindMethod looks a method up along the parent chain
func (c *Class) FindMethod(name string) (*Method, bool) {
	key := strings.ToLower(name)
	for k := c; k != nil; k = k.Parent {
		if m, ok := k.methods[key]; ok {
			return m, true
		}
	}
	if c.Kind == KindInterface || c.Abstract {
		for _, i := range c.allInterfaces() {
			if m, ok := i.methods[key]; ok {
				return m, true
			}
		}
	}
	return nil, false
}

// HasMethod reports whether name resolves to a method of c
func (c *Class) HasMethod(name string) bool {
	_, ok := c.FindMethod(name)
	return ok
}

// Methods returns the names of every method visible on c
func (c *Class) Methods() []string {
	seen := make(map[string]bool)
	var names []string
	for k := c; k != nil; k = k.Parent {
		keys := make([]string, 0, len(k.methods))
		for key := range k.methods {
			keys = append(keys, key)
		}
		slices.Sort(keys)
		for _, key := range keys {
			if !seen[key] {
				seen[key] = true
				names = append(names, k.methods[key].Name)
			}
		}
	}
	return names
}

// Property looks up an instance property declaration
func (c *Class) Property(name string) (*Property, bool) {
	for _, p := range c.props {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// HasProperty reports whether c declares an instance or static property name
func (c *Class) HasProperty(name string) bool {
	if _, ok := c.Property(name); ok {
		return true
	}
	_, ok := c.statics[name]
	return ok
}

// Cases returns the enum case names in declaration order
func (c *Class) Cases() []string { return slices.Clone(c.cases) }

func (c *Class) allInterfaces() []*Class {
	var out []*Class
	seen := make(map[*Class]bool)
	var walk func(k *Class)
	walk = func(k *Class) {
		for _, i := range k.Interfaces {
			if !seen[i] {
				seen[i] = true
				out = append(out, i)
				walk(i)
			}
		}
	}
	for k := c; k != nil; k = k.Parent {
		walk(k)
	}
	return out
}

func (c *Class) findConstant(name string) (*Constant, bool) {
	for k := c; k != nil; k = k.Parent {
		if cst, ok := k.consts[name]; ok {
			return cst, true
		}
	}
	for _, i := range c.allInterfaces() {
		if cst, ok := i.consts[name]; ok {
			return cst, true
		}
	}
	return nil, false
}

// ConstSpec declares a class constant
type ConstSpec struct {
	Name       string
	Visibility Visibility
	Final      bool
	Value      func(c *Class) (value.Value, error)
}

// PropSpec declares a property
type PropSpec struct {
	Name       string
	Type       string
	Typed      bool
	Static     bool
	Readonly   bool
	Visibility Visibility
	Default    func(c *Class) (value.Value, error)
}

// MethodSpec declares a method; Body is nil for abstract methods
type MethodSpec struct {
	Name       string
	Params     []value.Param
	Static     bool
	Abstract   bool
	Final      bool
	Visibility Visibility
	Body       MethodFunc
}

// CaseSpec declares an enum case
type CaseSpec struct {
	Name  string
	Value func(c *Class) (value.Value, error)
}

// ClassSpec describes a class-like declaration before validation
type ClassSpec struct {
	Name        string
	Kind        ClassKind
	Parent      string
	Interfaces  []string
	Traits      []string
	Abstract    bool
	Final       bool
	Readonly    bool
	Anonymous   bool
	BackingType string
	Consts      []ConstSpec
	Props       []PropSpec
	Methods     []MethodSpec
	Cases       []CaseSpec
}

// Class looks up a registered class-like type by name
func (rt *Runtime) Class(name string) (*Class, bool) {
	c, ok := rt.classes[normalize(name)]
	return c, ok
}

// ClassExists reports whether a class of the given kind is registered
func (rt *Runtime) ClassExists(name string, kind ClassKind) bool {
	c, ok := rt.Class(name)
	return ok && c.Kind == kind
}

// Declare validates spec and registers the resulting type
func (rt *Runtime) Declare(spec *ClassSpec) (*Class, error) {
	name := strings.TrimPrefix(spec.Name, `\`)
	if !spec.Anonymous {
		if err := rt.checkDuplicate(name, spec.Kind); err != nil {
			return nil, err
		}
	}

	c := newClass(name, spec.Kind)
	c.Abstract, c.Final, c.Readonly, c.Anonymous = spec.Abstract, spec.Final, spec.Readonly, spec.Anonymous
	c.BackingType = spec.BackingType

	if spec.Parent != "" {
		parent, ok := rt.Class(spec.Parent)
		if !ok || parent.Kind != KindClass {
			return nil, replerr.Evalf(name, "Cannot extend non-existent class: %s", spec.Parent)
		}
		if parent.Final {
			return nil, replerr.Evalf(name, "Class %s cannot extend final class %s", name, parent.Name)
		}
		c.Parent = parent
	}

	for _, iname := range spec.Interfaces {
		iface, ok := rt.Class(iname)
		if !ok || iface.Kind != KindInterface {
			if spec.Kind == KindInterface {
				return nil, replerr.Evalf(name, "Cannot extend non-existent interface: %s", iname)
			}
			return nil, replerr.Evalf(name, "Cannot implement non-existent interface: %s", iname)
		}
		c.Interfaces = append(c.Interfaces, iface)
	}
	if spec.Kind == KindEnum {
		c.Interfaces = append(c.Interfaces, rt.classes["unitenum"])
		if spec.BackingType != "" {
			c.Interfaces = append(c.Interfaces, rt.classes["backedenum"])
		}
	}

	c.inheritMembers()

	for _, tname := range spec.Traits {
		trait, ok := rt.Class(tname)
		if !ok || trait.Kind != KindTrait {
			return nil, replerr.Evalf(name, "Trait \"%s\" not found", tname)
		}
		c.useTrait(trait)
	}

	for _, cs := range spec.Consts {
		c.addConstant(cs)
	}
	for _, ps := range spec.Props {
		c.addProperty(ps)
	}
	for _, ms := range spec.Methods {
		if err := c.addMethod(ms); err != nil {
			return nil, err
		}
	}

	if spec.Kind == KindEnum {
		if err := rt.buildEnum(c, spec); err != nil {
			return nil, err
		}
	}

	if err := c.checkAbstracts(); err != nil {
		return nil, err
	}

	if !spec.Anonymous {
		rt.classes[strings.ToLower(name)] = c
	}
	rt.logger.Debug("type declared", "kind", spec.Kind.String(), "name", name)
	return c, nil
}

func (rt *Runtime) checkDuplicate(name string, kind ClassKind) error {
	if _, exists := rt.Class(name); !exists {
		return nil
	}
	switch kind {
	case KindInterface:
		return replerr.Evalf(name, "Interface %s already exists", name)
	case KindTrait:
		return replerr.Evalf(name, "Trait %s already exists", name)
	case KindEnum:
		return replerr.Evalf(name, "Cannot declare enum %s, because the name is already in use", name)
	default:
		return replerr.Evalf(name, "Class '%s' is already defined", name)
	}
}

// inheritMembers shares the parent's instance property list and static
// slots; redeclared statics get their own slot later
func (c *Class) inheritMembers() {
	if c.Parent == nil {
		return
	}
	c.props = slices.Clone(c.Parent.props)
	for name, slot := range c.Parent.statics {
		c.statics[name] = slot
	}
}

func (c *Class) useTrait(t *Class) {
	for _, name := range t.constOrder {
		cst := *t.consts[name]
		cst.Class = c
		if _, exists := c.consts[name]; !exists {
			c.constOrder = append(c.constOrder, name)
		}
		c.consts[name] = &cst
	}
	for _, p := range t.props {
		cp := *p
		cp.Class = c
		c.setProperty(&cp)
	}
	for name, slot := range t.statics {
		cp := *slot.prop
		cp.Class = c
		c.statics[name] = &staticSlot{prop: &cp}
	}
	for key, m := range t.methods {
		cm := *m
		cm.Class = c
		cm.fromTrait = true
		c.methods[key] = &cm
	}
}

func (c *Class) addConstant(cs ConstSpec) {
	if _, exists := c.consts[cs.Name]; !exists {
		c.constOrder = append(c.constOrder, cs.Name)
	}
	c.consts[cs.Name] = &Constant{
		Name:       cs.Name,
		Class:      c,
		Visibility: cs.Visibility,
		Final:      cs.Final,
		eval:       cs.Value,
	}
}

func (c *Class) addProperty(ps PropSpec) {
	p := &Property{
		Name:       ps.Name,
		Class:      c,
		Type:       ps.Type,
		Typed:      ps.Typed,
		Static:     ps.Static,
		Readonly:   ps.Readonly || c.Readonly,
		Visibility: ps.Visibility,
		Default:    ps.Default,
	}
	if ps.Static {
		c.statics[ps.Name] = &staticSlot{prop: p}
		return
	}
	c.setProperty(p)
}

func (c *Class) setProperty(p *Property) {
	for i, existing := range c.props {
		if existing.Name == p.Name {
			c.props[i] = p
			return
		}
	}
	c.props = append(c.props, p)
}

func (c *Class) addMethod(ms MethodSpec) error {
	key := strings.ToLower(ms.Name)
	if existing, ok := c.methods[key]; ok && existing.Class == c && !existing.fromTrait {
		return replerr.Evalf(c.Name, "Cannot redeclare %s::%s()", c.Name, ms.Name)
	}
	if c.Parent != nil {
		if pm, ok := c.Parent.FindMethod(ms.Name); ok && pm.Final {
			return replerr.Evalf(c.Name, "Cannot override final method %s::%s()", pm.Class.Name, pm.Name)
		}
	}
	abstract := ms.Abstract || ms.Body == nil
	switch {
	case ms.Abstract && c.Kind == KindClass && !c.Abstract:
		return replerr.Evalf(c.Name, "Class %s contains abstract method %s and must therefore be declared abstract", c.Name, ms.Name)
	case ms.Body == nil && !ms.Abstract && c.Kind != KindInterface:
		return replerr.Evalf(c.Name, "Non-abstract method %s::%s() must contain body", c.Name, ms.Name)
	}
	c.methods[key] = &Method{
		Name:       ms.Name,
		Class:      c,
		Params:     ms.Params,
		HasParams:  ms.Params != nil,
		Body:       ms.Body,
		Static:     ms.Static,
		Abstract:   abstract,
		Final:      ms.Final,
		Visibility: ms.Visibility,
	}
	return nil
}

// checkAbstracts verifies that a concrete class implements every
// abstract and interface method it inherits
func (c *Class) checkAbstracts() error {
	if c.Abstract || c.Kind == KindInterface || c.Kind == KindTrait {
		return nil
	}
	var missing []string
	seen := make(map[string]bool)
	check := func(m *Method) {
		key := strings.ToLower(m.Name)
		if seen[key] {
			return
		}
		seen[key] = true
		impl, ok := c.findConcrete(key)
		if !ok || impl.Abstract {
			missing = append(missing, m.Class.Name+"::"+m.Name)
		}
	}
	for k := c; k != nil; k = k.Parent {
		for _, key := range sortedKeys(k.methods) {
			if m := k.methods[key]; m.Abstract {
				check(m)
			}
		}
	}
	for _, i := range c.allInterfaces() {
		for _, key := range sortedKeys(i.methods) {
			check(i.methods[key])
		}
	}
	if len(missing) == 0 {
		return nil
	}
	word := "method"
	if len(missing) > 1 {
		word = "methods"
	}
	return replerr.Evalf(c.Name,
		"Class %s contains %d abstract %s and must therefore be declared abstract or implement the remaining methods (%s)",
		c.Name, len(missing), word, strings.Join(missing, ", "))
}

func (c *Class) findConcrete(key string) (*Method, bool) {
	for k := c; k != nil; k = k.Parent {
		if m, ok := k.methods[key]; ok && !m.Abstract {
			return m, true
		}
	}
	return nil, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// constant resolves a class constant, evaluating its initializer once
func (rt *Runtime) constant(c *Class, name string, scope *Class) (value.Value, error) {
	cst, ok := c.findConstant(name)
	if !ok {
		if c.Kind == KindEnum {
			if obj, ok := c.caseObjs[name]; ok {
				return value.Obj(obj), nil
			}
		}
		return value.Null, replerr.Evalf(c.Name, "Undefined constant %s::%s", c.Name, name)
	}
	if !accessible(cst.Visibility, cst.Class, scope) {
		return value.Null, replerr.Evalf(c.Name, "Cannot access %s constant %s::%s", cst.Visibility, c.Name, name)
	}
	if cst.resolved {
		return cst.value, nil
	}
	if cst.resolving {
		return value.Null, replerr.Evalf(c.Name, "Cannot declare self-referencing constant %s::%s", cst.Class.Name, name)
	}
	cst.resolving = true
	defer func() { cst.resolving = false }()
	v, err := cst.eval(cst.Class)
	if err != nil {
		return value.Null, err
	}
	cst.value, cst.resolved = v, true
	return v, nil
}

// ClassConstant reads C::NAME, including enum cases and C::class
func (rt *Runtime) ClassConstant(c *Class, name string, scope *Class) (value.Value, error) {
	if name == "class" {
		return value.Str(c.Name), nil
	}
	return rt.constant(c, name, scope)
}

// accessible reports whether a member declared on owner with visibility
// vis can be reached from code running in scope
func accessible(vis Visibility, owner, scope *Class) bool {
	switch vis {
	case Private:
		return scope != nil && scope == owner
	case Protected:
		return scope != nil && (scope.IsSubclassOf(owner.Name) || owner.IsSubclassOf(scope.Name))
	default:
		return true
	}
}

func scopeName(scope *Class) string {
	if scope == nil {
		return "global scope"
	}
	return "scope " + scope.Name
}

func (c *Class) describeKind() string {
	if c.Abstract && c.Kind == KindClass {
		return "abstract class"
	}
	return c.Kind.String()
}

func (c *Class) String() string { return fmt.Sprintf("%s %s", c.Kind, c.Name) }
