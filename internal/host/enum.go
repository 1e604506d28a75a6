package host

import (
	"fmt"

	"github.com/itsmostafa/phunkie/internal/value"
)

func (rt *Runtime) buildEnum(c *Class, spec *ClassSpec) error {
	if len(spec.Props) > 0 {
		return errorf("Error", "Enum %s cannot include properties", c.Name)
	}
	seen := make(map[string]string)
	for _, cs := range spec.Cases {
		if _, dup := c.caseObjs[cs.Name]; dup {
			return errorf("Error", "Cannot redefine class constant %s::%s", c.Name, cs.Name)
		}
		o := &Instance{
			rt:       rt,
			id:       rt.nextHandle(),
			class:    c,
			props:    value.NewArray(),
			written:  make(map[string]bool),
			caseName: cs.Name,
			isCase:   true,
		}
		o.props.Put(value.StrKey("name"), value.Str(cs.Name))
		switch {
		case c.BackingType != "" && cs.Value == nil:
			return errorf("Error", "Case %s of backed enum %s must have a value", cs.Name, c.Name)
		case c.BackingType == "" && cs.Value != nil:
			return errorf("Error", "Case %s of non-backed enum %s must not have a value", cs.Name, c.Name)
		case cs.Value != nil:
			v, err := cs.Value(c)
			if err != nil {
				return err
			}
			if value.DebugType(v) != c.BackingType {
				return errorf("TypeError", "Enum case type %s does not match enum backing type %s", value.DebugType(v), c.BackingType)
			}
			key := value.Format(v)
			if other, dup := seen[key]; dup {
				return errorf("Error", "Duplicate value in enum %s for cases %s and %s", c.Name, other, cs.Name)
			}
			seen[key] = cs.Name
			o.props.Put(value.StrKey("value"), v)
		}
		c.cases = append(c.cases, cs.Name)
		c.caseObjs[cs.Name] = o
	}

	c.addNative("cases", "", true, func(inv Invocation, _ []value.Value) (value.Value, error) {
		out := value.NewArray()
		for _, name := range c.cases {
			out.Push(value.Obj(c.caseObjs[name]))
		}
		return value.Arr(out), nil
	})
	if c.BackingType == "" {
		return nil
	}
	c.addNative("from", "int|string value", true, func(_ Invocation, args []value.Value) (value.Value, error) {
		if o, ok := c.caseFor(args[0]); ok {
			return value.Obj(o), nil
		}
		shown := value.Format(args[0])
		if args[0].Kind == value.KindString {
			shown = fmt.Sprintf("%q", args[0].AsString())
		}
		return value.Null, errorf("ValueError", "%s is not a valid backing value for enum %s", shown, c.Name)
	})
	c.addNative("tryFrom", "int|string value", true, func(_ Invocation, args []value.Value) (value.Value, error) {
		if o, ok := c.caseFor(args[0]); ok {
			return value.Obj(o), nil
		}
		return value.Null, nil
	})
	return nil
}

func (c *Class) caseFor(v value.Value) (*Instance, bool) {
	for _, name := range c.cases {
		o := c.caseObjs[name]
		if value.LooseEquals(o.Prop("value"), v) && (v.Kind == value.KindString) == (o.Prop("value").Kind == value.KindString) {
			return o, true
		}
	}
	return nil, false
}

// addNative installs a Go-implemented method unless the class declares it
func (c *Class) addNative(name, sig string, static bool, body MethodFunc) {
	key := normalize(name)
	if m, ok := c.methods[key]; ok && m.Class == c {
		return
	}
	c.methods[key] = &Method{
		Name:      name,
		Class:     c,
		Params:    value.ParseParams(sig),
		HasParams: true,
		Body:      body,
		Static:    static,
	}
}
