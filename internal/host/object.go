package host

import (
	"fmt"
	"strings"

	"github.com/itsmostafa/phunkie/internal/value"
)

// Instance is an object created by the runtime. Instances have reference
// semantics: every copy of the value shares the same property table.
type Instance struct {
	rt       *Runtime
	id       int
	class    *Class
	props    *value.Array
	written  map[string]bool
	caseName string
	isCase   bool
	// native holds the Go-side state of builtin classes
	native any
}

var _ value.Object = (*Instance)(nil)

// Class returns the instantiated class
func (o *Instance) Class() *Class { return o.class }

// ClassName returns the class name; anonymous classes report class@anonymous
func (o *Instance) ClassName() string {
	if o.class.Anonymous {
		return "class@anonymous"
	}
	return o.class.Name
}

// Handle returns the instance id
func (o *Instance) Handle() int { return o.id }

// TypeName returns the type shown next to results
func (o *Instance) TypeName() string {
	switch {
	case o.class.Anonymous:
		return "class@anonymous"
	case o.class.Kind == KindEnum:
		return o.class.Name
	}
	if o.class.HasMethod("showType") {
		if s, ok := o.callString("showType"); ok {
			return s
		}
	}
	return o.class.Name
}

// Describe renders the object for result lines
func (o *Instance) Describe() string {
	for _, name := range []string{"show", "toString", "__toString"} {
		if m, ok := o.class.FindMethod(name); ok && !m.Class.builtin {
			if s, ok := o.callString(name); ok {
				return s
			}
		}
	}
	if o.isCase {
		return o.class.Name + "::" + o.caseName
	}
	if o.class.Anonymous {
		return fmt.Sprintf("a@%08x", o.id)
	}
	return fmt.Sprintf("%s@%08x", o.class.Name, o.id)
}

// ToString returns the __toString rendering when the class defines one
func (o *Instance) ToString() (string, bool) {
	if !o.class.HasMethod("__toString") {
		return "", false
	}
	return o.callString("__toString")
}

// Properties returns the initialized properties in declaration order
func (o *Instance) Properties() *value.Array {
	out := value.NewArray()
	for k, v := range o.props.All() {
		if !v.IsAbsent() {
			out.Put(k, v)
		}
	}
	return out
}

// EnumCase returns the case name of an enum case object
func (o *Instance) EnumCase() (string, bool) { return o.caseName, o.isCase }

func (o *Instance) callString(method string) (string, bool) {
	m, ok := o.class.FindMethod(method)
	if !ok || m.Body == nil || m.Static {
		return "", false
	}
	v, err := m.Body(Invocation{This: o, Class: m.Class, Static: o.class}, nil)
	if err != nil || v.Kind != value.KindString {
		return "", false
	}
	return v.AsString(), true
}

// message returns the message property of a throwable
func (o *Instance) message() string {
	v, _ := o.props.Get(value.StrKey("message"))
	return value.Stringify(v)
}

// Prop reads a property without visibility checks
func (o *Instance) Prop(name string) value.Value {
	v, ok := o.props.Get(value.StrKey(name))
	if !ok || v.IsAbsent() {
		return value.Null
	}
	return v
}

// SetProp writes a property without visibility checks
func (o *Instance) SetProp(name string, v value.Value) {
	o.props.Put(value.StrKey(name), v)
}

func (rt *Runtime) instantiate(c *Class) (*Instance, error) {
	o := &Instance{
		rt:      rt,
		id:      rt.nextHandle(),
		class:   c,
		props:   value.NewArray(),
		written: make(map[string]bool),
	}
	for _, p := range c.props {
		v := value.Null
		switch {
		case p.Default != nil:
			d, err := p.Default(p.Class)
			if err != nil {
				return nil, err
			}
			v = d
		case p.Typed:
			v = value.Absent
		}
		o.props.Put(value.StrKey(p.Name), v)
	}
	return o, nil
}

// Construct instantiates class with positional constructor arguments
func (rt *Runtime) Construct(class string, args []value.Value) (value.Value, error) {
	ctor, err := rt.Constructor(class, nil)
	if err != nil {
		return value.Null, err
	}
	return ctor.Call(args)
}

// Constructor returns a callable that creates an instance of class and
// runs its constructor. Its parameters are the constructor's.
func (rt *Runtime) Constructor(class string, scope *Class) (value.Callable, error) {
	c, ok := rt.Class(class)
	if !ok {
		return nil, errorf("Error", "Class \"%s\" not found", strings.TrimPrefix(class, `\`))
	}
	return rt.ConstructorOf(c, scope)
}

// ConstructorOf is Constructor for an already resolved class
func (rt *Runtime) ConstructorOf(c *Class, scope *Class) (value.Callable, error) {
	switch {
	case c.Kind != KindClass:
		return nil, errorf("Error", "Cannot instantiate %s %s", c.Kind, c.Name)
	case c.Abstract:
		return nil, errorf("Error", "Cannot instantiate %s %s", c.describeKind(), c.Name)
	}
	m, hasCtor := c.FindMethod("__construct")
	if hasCtor && !accessible(m.Visibility, m.Class, scope) {
		return nil, errorf("Error", "Call to %s %s::__construct() from %s", m.Visibility, c.Name, scopeName(scope))
	}
	fn := &boundCallable{
		name: c.Name + "::__construct",
		call: func(args []value.Value) (value.Value, error) {
			o, err := rt.instantiate(c)
			if err != nil {
				return value.Null, err
			}
			if hasCtor && m.Body != nil {
				if _, err := m.Body(Invocation{This: o, Class: m.Class, Static: c}, args); err != nil {
					return value.Null, err
				}
			}
			rt.logger.Debug("object constructed", "class", c.Name, "handle", o.id)
			return value.Obj(o), nil
		},
	}
	if hasCtor {
		fn.params, fn.hasParams = m.Params, m.HasParams
	} else {
		fn.params, fn.hasParams = []value.Param{}, true
	}
	return fn, nil
}

// boundCallable adapts a method or constructor to value.Callable
type boundCallable struct {
	name      string
	params    []value.Param
	hasParams bool
	call      func(args []value.Value) (value.Value, error)
}

func (b *boundCallable) Name() string                            { return b.name }
func (b *boundCallable) Params() ([]value.Param, bool)           { return b.params, b.hasParams }
func (b *boundCallable) Call(args []value.Value) (value.Value, error) { return b.call(args) }

func (rt *Runtime) bind(m *Method, inv Invocation) value.Callable {
	return &boundCallable{
		name:      m.Class.Name + "::" + m.Name,
		params:    m.Params,
		hasParams: m.HasParams,
		call: func(args []value.Value) (value.Value, error) {
			if m.Body == nil {
				return value.Null, errorf("Error", "Cannot call abstract method %s::%s()", m.Class.Name, m.Name)
			}
			if m.HasParams {
				if err := value.CheckArity(m.Class.Name+"::"+m.Name, m.Params, len(args)); err != nil {
					return value.Null, err
				}
			}
			return m.Body(inv, args)
		},
	}
}

// Method resolves $obj->name for a call from scope
func (rt *Runtime) Method(obj value.Value, name string, scope *Class) (value.Callable, error) {
	switch obj.Kind {
	case value.KindGenerator:
		return generatorMethod(obj.AsGenerator(), name)
	case value.KindCallable:
		if strings.EqualFold(name, "__invoke") || strings.EqualFold(name, "call") {
			return obj.AsCallable(), nil
		}
		return nil, errorf("Error", "Call to undefined method Closure::%s()", name)
	case value.KindObject:
	default:
		return nil, errorf("Error", "Call to a member function %s() on %s", name, value.DebugType(obj))
	}

	o := obj.AsObject().(*Instance)
	m, ok := o.class.FindMethod(name)
	if ok && accessible(m.Visibility, m.Class, scope) {
		if m.Static {
			return rt.bind(m, Invocation{Class: m.Class, Static: o.class}), nil
		}
		return rt.bind(m, Invocation{This: o, Class: m.Class, Static: o.class}), nil
	}
	if magic, found := o.class.FindMethod("__call"); found {
		return &boundCallable{
			name: o.class.Name + "::" + name,
			call: func(args []value.Value) (value.Value, error) {
				return magic.Body(Invocation{This: o, Class: magic.Class, Static: o.class},
					[]value.Value{value.Str(name), value.List(args...)})
			},
		}, nil
	}
	if ok {
		return nil, errorf("Error", "Call to %s method %s::%s() from %s", m.Visibility, o.class.Name, m.Name, scopeName(scope))
	}
	return nil, errorf("Error", "Call to undefined method %s::%s()", o.ClassName(), name)
}

// StaticMethod resolves Class::name. inv carries the caller's $this and
// late static binding class for parent::, self:: and static:: forwarding.
func (rt *Runtime) StaticMethod(c *Class, name string, inv Invocation, scope *Class) (value.Callable, error) {
	m, ok := c.FindMethod(name)
	if !ok {
		if magic, found := c.FindMethod("__callStatic"); found {
			return &boundCallable{
				name: c.Name + "::" + name,
				call: func(args []value.Value) (value.Value, error) {
					return magic.Body(Invocation{Class: magic.Class, Static: c},
						[]value.Value{value.Str(name), value.List(args...)})
				},
			}, nil
		}
		return nil, errorf("Error", "Call to undefined method %s::%s()", c.Name, name)
	}
	if !accessible(m.Visibility, m.Class, scope) {
		return nil, errorf("Error", "Call to %s method %s::%s() from %s", m.Visibility, c.Name, m.Name, scopeName(scope))
	}
	static := c
	if inv.Static != nil && inv.Static.IsSubclassOf(c.Name) {
		static = inv.Static
	}
	if m.Static {
		return rt.bind(m, Invocation{Class: m.Class, Static: static}), nil
	}
	if inv.This == nil || !inv.This.class.IsSubclassOf(m.Class.Name) {
		return nil, errorf("Error", "Non-static method %s::%s() cannot be called statically", c.Name, m.Name)
	}
	return rt.bind(m, Invocation{This: inv.This, Class: m.Class, Static: inv.This.class}), nil
}

// GetProperty reads $obj->name from scope
func (rt *Runtime) GetProperty(obj value.Value, name string, scope *Class) (value.Value, error) {
	if obj.Kind != value.KindObject {
		return value.Null, errorf("Error", "Cannot access property on non-object type: %s", value.DebugType(obj))
	}
	o := obj.AsObject().(*Instance)
	if o.isCase {
		switch name {
		case "name":
			return value.Str(o.caseName), nil
		case "value":
			if o.class.BackingType != "" {
				return o.Prop("value"), nil
			}
		}
	}
	p, declared := o.class.Property(name)
	if declared && !accessible(p.Visibility, p.Class, scope) {
		if magic, ok := o.class.FindMethod("__get"); ok {
			return magic.Body(Invocation{This: o, Class: magic.Class, Static: o.class}, []value.Value{value.Str(name)})
		}
		return value.Null, errorf("Error", "Cannot access %s property %s::$%s", p.Visibility, o.class.Name, name)
	}
	v, ok := o.props.Get(value.StrKey(name))
	switch {
	case ok && v.IsAbsent():
		return value.Null, errorf("Error", "Typed property %s::$%s must not be accessed before initialization", o.class.Name, name)
	case ok:
		return v, nil
	}
	if magic, found := o.class.FindMethod("__get"); found {
		return magic.Body(Invocation{This: o, Class: magic.Class, Static: o.class}, []value.Value{value.Str(name)})
	}
	return value.Null, errorf("Error", "Undefined property: %s::$%s", o.ClassName(), name)
}

// HasProperty reports whether $obj->name is set, for isset()
func (rt *Runtime) HasProperty(obj value.Value, name string, scope *Class) bool {
	if obj.Kind != value.KindObject {
		return false
	}
	o := obj.AsObject().(*Instance)
	if p, declared := o.class.Property(name); declared && !accessible(p.Visibility, p.Class, scope) {
		return false
	}
	if v, ok := o.props.Get(value.StrKey(name)); ok {
		return !v.IsAbsent() && !v.IsNull()
	}
	if magic, found := o.class.FindMethod("__isset"); found {
		v, err := magic.Body(Invocation{This: o, Class: magic.Class, Static: o.class}, []value.Value{value.Str(name)})
		return err == nil && value.Truthy(v)
	}
	if o.isCase && (name == "name" || (name == "value" && o.class.BackingType != "")) {
		return true
	}
	return false
}

// SetProperty writes $obj->name = v from scope
func (rt *Runtime) SetProperty(obj value.Value, name string, v value.Value, scope *Class) error {
	if obj.Kind != value.KindObject {
		return errorf("Error", "Attempt to assign property \"%s\" on %s", name, value.DebugType(obj))
	}
	o := obj.AsObject().(*Instance)
	if o.isCase {
		return errorf("Error", "Cannot modify readonly property %s::$%s", o.class.Name, name)
	}
	p, declared := o.class.Property(name)
	if !declared {
		if magic, found := o.class.FindMethod("__set"); found {
			_, err := magic.Body(Invocation{This: o, Class: magic.Class, Static: o.class}, []value.Value{value.Str(name), v})
			return err
		}
		o.SetProp(name, v)
		return nil
	}
	if !accessible(p.Visibility, p.Class, scope) {
		if magic, found := o.class.FindMethod("__set"); found {
			_, err := magic.Body(Invocation{This: o, Class: magic.Class, Static: o.class}, []value.Value{value.Str(name), v})
			return err
		}
		return errorf("Error", "Cannot access %s property %s::$%s", p.Visibility, o.class.Name, name)
	}
	if p.Readonly {
		if o.written[name] || scope == nil || !scope.IsSubclassOf(p.Class.Name) {
			return errorf("Error", "Cannot modify readonly property %s::$%s", o.class.Name, name)
		}
		o.written[name] = true
	}
	if p.Typed {
		coerced, err := rt.CoerceType(p.Type, v, o.class)
		if err != nil {
			return errorf("TypeError", "Cannot assign %s to property %s::$%s of type %s", value.DebugType(v), o.class.Name, name, p.Type)
		}
		v = coerced
	}
	o.SetProp(name, v)
	return nil
}

// UnsetProperty removes $obj->name
func (rt *Runtime) UnsetProperty(obj value.Value, name string, scope *Class) error {
	if obj.Kind != value.KindObject {
		return nil
	}
	o := obj.AsObject().(*Instance)
	if p, declared := o.class.Property(name); declared {
		if !accessible(p.Visibility, p.Class, scope) {
			return errorf("Error", "Cannot access %s property %s::$%s", p.Visibility, o.class.Name, name)
		}
		if p.Readonly {
			return errorf("Error", "Cannot unset readonly property %s::$%s", o.class.Name, name)
		}
	}
	o.props = o.props.Delete(value.StrKey(name))
	return nil
}

func (rt *Runtime) staticSlot(c *Class, name string, scope *Class) (*staticSlot, error) {
	slot, ok := c.statics[name]
	if !ok {
		return nil, errorf("Error", "Access to undeclared static property %s::$%s", c.Name, name)
	}
	if !accessible(slot.prop.Visibility, slot.prop.Class, scope) {
		return nil, errorf("Error", "Cannot access %s property %s::$%s", slot.prop.Visibility, c.Name, name)
	}
	if !slot.ready {
		slot.ready = true
		slot.value = value.Null
		if slot.prop.Default != nil {
			v, err := slot.prop.Default(slot.prop.Class)
			if err != nil {
				slot.ready = false
				return nil, err
			}
			slot.value = v
		}
	}
	return slot, nil
}

// GetStaticProperty reads C::$name
func (rt *Runtime) GetStaticProperty(c *Class, name string, scope *Class) (value.Value, error) {
	slot, err := rt.staticSlot(c, name, scope)
	if err != nil {
		return value.Null, err
	}
	return slot.value, nil
}

// SetStaticProperty writes C::$name = v
func (rt *Runtime) SetStaticProperty(c *Class, name string, v value.Value, scope *Class) error {
	slot, err := rt.staticSlot(c, name, scope)
	if err != nil {
		return err
	}
	slot.value = v
	return nil
}

// InstanceOf reports whether v is an object of class or one of its subtypes
func (rt *Runtime) InstanceOf(v value.Value, class string) bool {
	switch v.Kind {
	case value.KindObject:
		c := v.AsObject().(*Instance).class
		if normalize(class) == "stringable" && c.HasMethod("__toString") {
			return true
		}
		return c.IsSubclassOf(class)
	case value.KindCallable:
		return strings.EqualFold(strings.TrimPrefix(class, `\`), "Closure")
	case value.KindGenerator:
		switch normalize(class) {
		case "generator", "traversable", "iterator":
			return true
		}
	}
	return false
}

// Clone shallow-copies an object and runs __clone on the copy
func (rt *Runtime) Clone(v value.Value) (value.Value, error) {
	if v.Kind != value.KindObject {
		return value.Null, errorf("Error", "__clone method called on non-object (%s)", value.DebugType(v))
	}
	o := v.AsObject().(*Instance)
	if o.isCase {
		return value.Null, errorf("Error", "Trying to clone an uncloneable object of class %s", o.class.Name)
	}
	cp := &Instance{
		rt:      rt,
		id:      rt.nextHandle(),
		class:   o.class,
		props:   o.props.Copy(),
		written: make(map[string]bool),
		native:  cloneNative(o.native),
	}
	if m, ok := o.class.FindMethod("__clone"); ok && m.Body != nil {
		if _, err := m.Body(Invocation{This: cp, Class: m.Class, Static: o.class}, nil); err != nil {
			return value.Null, err
		}
	}
	for k := range o.written {
		cp.written[k] = true
	}
	return value.Obj(cp), nil
}

// Callable turns a callable value, a function name, a "C::m" string, a
// [object-or-class, method] pair or an invokable object into a Callable
func (rt *Runtime) Callable(v value.Value, scope *Class) (value.Callable, error) {
	switch v.Kind {
	case value.KindCallable:
		return v.AsCallable(), nil
	case value.KindString:
		name := v.AsString()
		if class, method, ok := strings.Cut(name, "::"); ok {
			c, found := rt.Class(class)
			if !found {
				return nil, errorf("Error", "Class \"%s\" not found", class)
			}
			return rt.StaticMethod(c, method, Invocation{}, scope)
		}
		if fn, ok := rt.LookupFunction(name); ok {
			return fn, nil
		}
		return nil, errorf("Error", "Call to undefined function %s()", name)
	case value.KindArray:
		a := v.AsArray()
		if a.Len() == 2 {
			target, _ := a.Get(value.IntKey(0))
			method, _ := a.Get(value.IntKey(1))
			if method.Kind == value.KindString {
				switch target.Kind {
				case value.KindObject:
					return rt.Method(target, method.AsString(), scope)
				case value.KindString:
					c, found := rt.Class(target.AsString())
					if !found {
						return nil, errorf("Error", "Class \"%s\" not found", target.AsString())
					}
					return rt.StaticMethod(c, method.AsString(), Invocation{}, scope)
				}
			}
		}
	case value.KindObject:
		o := v.AsObject().(*Instance)
		if o.class.HasMethod("__invoke") {
			return rt.Method(v, "__invoke", scope)
		}
	}
	return nil, errorf("Error", "Value not callable")
}

// IsCallable reports whether Callable would succeed for v
func (rt *Runtime) IsCallable(v value.Value) bool {
	_, err := rt.Callable(v, nil)
	return err == nil
}
