package host

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/itsmostafa/phunkie/internal/replerr"
	"github.com/itsmostafa/phunkie/internal/value"
)

var (
	packagedImport = regexp.MustCompile(`^([a-z_]+)::([a-z_]+)/(.+)$`)
	coreImport     = regexp.MustCompile(`^([a-z_]+)/(.+)$`)
)

// module is an importable group of library functions
type module struct {
	name  string
	funcs []moduleFunc
	// setup runs before the first function of the module is registered
	setup func(rt *Runtime) error
}

type moduleFunc struct {
	name string
	sig  string
	fn   func(rt *Runtime) builtinFunc
}

type pkg struct {
	namespace string
	modules   map[string]*module
}

var packages = map[string]*pkg{
	"phunkie": {namespace: `Phunkie\Functions`, modules: map[string]*module{
		"immlist": immlistModule,
		"option":  optionModule,
		"str":     strModule,
	}},
	"effect": {namespace: `Phunkie\Effect\Functions`, modules: map[string]*module{
		"console": consoleModule,
	}},
	"streams": {namespace: `Phunkie\Streams\Functions`, modules: map[string]*module{
		"stream": streamModule,
	}},
}

// Import registers the functions named by spec (module/function,
// module/* or package::module/function) and returns their qualified names
func (rt *Runtime) Import(spec string) ([]string, error) {
	pkgName, modName, fnSpec := "phunkie", "", ""
	if m := packagedImport.FindStringSubmatch(spec); m != nil {
		pkgName, modName, fnSpec = m[1], m[2], m[3]
		if _, ok := packages[pkgName]; !ok || pkgName == "phunkie" {
			return nil, replerr.Evalf(spec, "Unknown package '%s'", pkgName)
		}
	} else if m := coreImport.FindStringSubmatch(spec); m != nil {
		modName, fnSpec = m[1], m[2]
	} else {
		return nil, replerr.Evalf(spec, "Invalid import format. Use :import module/function or :import package::module/function")
	}

	p := packages[pkgName]
	mod, ok := p.modules[modName]
	if !ok {
		return nil, replerr.Evalf(spec, "Module '%s' not found in package 'phunkie/%s'", modName, pkgName)
	}
	selected := mod.funcs
	if fnSpec != "*" {
		selected = nil
		for _, f := range mod.funcs {
			if f.name == fnSpec {
				selected = []moduleFunc{f}
			}
		}
		if selected == nil {
			return nil, replerr.Evalf(spec, "Function '%s' not found in module '%s'", fnSpec, modName)
		}
	}
	if mod.setup != nil {
		if err := mod.setup(rt); err != nil {
			return nil, fmt.Errorf("Error loading module: %w", err)
		}
	}

	names := make([]string, 0, len(selected))
	for _, f := range selected {
		full := fmt.Sprintf(`\%s\%s\%s`, p.namespace, modName, f.name)
		params := value.ParseParams(f.sig)
		fn := &value.NativeFunc{FuncName: f.name, Meta: params, Value: rt.coerceArgs(f.name, params, f.fn(rt))}
		rt.imported[normalize(full)] = fn
		if _, exists := rt.imported[normalize(f.name)]; !exists {
			rt.imported[normalize(f.name)] = fn
		}
		names = append(names, full)
		rt.logger.Debug("function imported", "name", full)
	}
	return names, nil
}

func pure(fn builtinFunc) func(*Runtime) builtinFunc {
	return func(*Runtime) builtinFunc { return fn }
}

func listOf(v value.Value) []value.Value {
	return v.AsArray().Values()
}

var immlistModule = &module{name: "immlist", funcs: []moduleFunc{
	{"head", "array list", pure(func(a ...value.Value) (value.Value, error) {
		l := listOf(a[0])
		if len(l) == 0 {
			return value.Null, errorf("Error", "Cannot get head of empty list")
		}
		return l[0], nil
	})},
	{"tail", "array list", pure(func(a ...value.Value) (value.Value, error) {
		l := listOf(a[0])
		if len(l) == 0 {
			return value.Null, errorf("Error", "Cannot get tail of empty list")
		}
		return value.List(l[1:]...), nil
	})},
	{"init", "array list", pure(func(a ...value.Value) (value.Value, error) {
		l := listOf(a[0])
		if len(l) == 0 {
			return value.Null, errorf("Error", "Cannot get init of empty list")
		}
		return value.List(l[:len(l)-1]...), nil
	})},
	{"last", "array list", pure(func(a ...value.Value) (value.Value, error) {
		l := listOf(a[0])
		if len(l) == 0 {
			return value.Null, errorf("Error", "Cannot get last of empty list")
		}
		return l[len(l)-1], nil
	})},
	{"reverse", "array list", pure(func(a ...value.Value) (value.Value, error) {
		l := listOf(a[0])
		out := make([]value.Value, len(l))
		for i, v := range l {
			out[len(l)-1-i] = v
		}
		return value.List(out...), nil
	})},
	{"take", "int n, array list", pure(func(a ...value.Value) (value.Value, error) {
		l := listOf(a[1])
		n := min(max(int(a[0].AsInt()), 0), len(l))
		return value.List(l[:n]...), nil
	})},
	{"drop", "int n, array list", pure(func(a ...value.Value) (value.Value, error) {
		l := listOf(a[1])
		n := min(max(int(a[0].AsInt()), 0), len(l))
		return value.List(l[n:]...), nil
	})},
	{"zip", "array left, array right", pure(func(a ...value.Value) (value.Value, error) {
		l, r := listOf(a[0]), listOf(a[1])
		out := value.NewArray()
		for i := 0; i < min(len(l), len(r)); i++ {
			out.Push(value.List(l[i], r[i]))
		}
		return value.Arr(out), nil
	})},
	{"concat", "array ...lists", pure(func(a ...value.Value) (value.Value, error) {
		out := value.NewArray()
		for _, l := range a {
			for _, v := range listOf(l) {
				out.Push(v)
			}
		}
		return value.Arr(out), nil
	})},
	{"fold", "array list, mixed initial, callable f", func(rt *Runtime) builtinFunc {
		return func(a ...value.Value) (value.Value, error) {
			acc := a[1]
			for _, v := range listOf(a[0]) {
				r, err := rt.call(a[2], acc, v)
				if err != nil {
					return value.Null, err
				}
				acc = r
			}
			return acc, nil
		}
	}},
}}

var optionModule = &module{
	name:  "option",
	setup: declareOption,
	funcs: []moduleFunc{
		{"some", "mixed value", func(rt *Runtime) builtinFunc {
			return func(a ...value.Value) (value.Value, error) {
				return rt.Construct("Some", []value.Value{a[0]})
			}
		}},
		{"none", "", func(rt *Runtime) builtinFunc {
			return func(...value.Value) (value.Value, error) {
				return rt.Construct("None", nil)
			}
		}},
		{"is_some", "mixed option", func(rt *Runtime) builtinFunc {
			return func(a ...value.Value) (value.Value, error) {
				return value.Bool(rt.InstanceOf(a[0], "Some")), nil
			}
		}},
		{"is_none", "mixed option", func(rt *Runtime) builtinFunc {
			return func(a ...value.Value) (value.Value, error) {
				return value.Bool(rt.InstanceOf(a[0], "None")), nil
			}
		}},
		{"get_or_else", "mixed option, mixed default", func(rt *Runtime) builtinFunc {
			return func(a ...value.Value) (value.Value, error) {
				if o, ok := a[0].AsObject().(*Instance); ok && a[0].Kind == value.KindObject && rt.InstanceOf(a[0], "Some") {
					return o.Prop("value"), nil
				}
				return a[1], nil
			}
		}},
	},
}

// declareOption registers the Option, Some and None classes on first use
func declareOption(rt *Runtime) error {
	if _, ok := rt.Class("Option"); ok {
		return nil
	}
	specs := []*ClassSpec{
		{Name: "Option", Kind: KindClass, Abstract: true, Methods: []MethodSpec{
			{Name: "isDefined", Params: []value.Param{}, Body: func(inv Invocation, _ []value.Value) (value.Value, error) {
				return value.Bool(inv.This.class.Name == "Some"), nil
			}},
			{Name: "getOrElse", Params: value.ParseParams("mixed default"), Body: func(inv Invocation, args []value.Value) (value.Value, error) {
				if inv.This.class.Name == "Some" {
					return inv.This.Prop("value"), nil
				}
				return args[0], nil
			}},
			{Name: "showType", Params: []value.Param{}, Body: func(inv Invocation, _ []value.Value) (value.Value, error) {
				if inv.This.class.Name == "Some" {
					return value.Str("Option<" + value.TypeOf(inv.This.Prop("value")) + ">"), nil
				}
				return value.Str("None"), nil
			}},
		}},
		{Name: "Some", Kind: KindClass, Parent: "Option", Final: true,
			Props: []PropSpec{{Name: "value", Visibility: Private}},
			Methods: []MethodSpec{
				{Name: "__construct", Params: value.ParseParams("mixed value"), Body: func(inv Invocation, args []value.Value) (value.Value, error) {
					inv.This.SetProp("value", args[0])
					return value.Null, nil
				}},
				{Name: "get", Params: []value.Param{}, Body: func(inv Invocation, _ []value.Value) (value.Value, error) {
					return inv.This.Prop("value"), nil
				}},
				{Name: "show", Params: []value.Param{}, Body: func(inv Invocation, _ []value.Value) (value.Value, error) {
					return value.Str("Some(" + value.Format(inv.This.Prop("value")) + ")"), nil
				}},
			}},
		{Name: "None", Kind: KindClass, Parent: "Option", Final: true, Methods: []MethodSpec{
			{Name: "get", Params: []value.Param{}, Body: func(Invocation, []value.Value) (value.Value, error) {
				return value.Null, rt.Throw("LogicException", "Cannot get value of None")
			}},
			{Name: "show", Params: []value.Param{}, Body: func(Invocation, []value.Value) (value.Value, error) {
				return value.Str("None"), nil
			}},
		}},
	}
	for _, spec := range specs {
		if _, err := rt.Declare(spec); err != nil {
			return err
		}
	}
	return nil
}

var strModule = &module{name: "str", funcs: []moduleFunc{
	{"words", "string s", pure(func(a ...value.Value) (value.Value, error) {
		out := value.NewArray()
		for _, w := range strings.Fields(a[0].AsString()) {
			out.Push(value.Str(w))
		}
		return value.Arr(out), nil
	})},
	{"unwords", "array words", pure(func(a ...value.Value) (value.Value, error) {
		parts := make([]string, 0, a[0].AsArray().Len())
		for _, v := range a[0].AsArray().All() {
			parts = append(parts, value.Stringify(v))
		}
		return value.Str(strings.Join(parts, " ")), nil
	})},
	{"lines", "string s", pure(func(a ...value.Value) (value.Value, error) {
		out := value.NewArray()
		for _, l := range strings.Split(a[0].AsString(), "\n") {
			out.Push(value.Str(strings.TrimSuffix(l, "\r")))
		}
		return value.Arr(out), nil
	})},
	{"capitalize", "string s", pure(func(a ...value.Value) (value.Value, error) {
		return value.Str(mapFirst(a[0].AsString(), upper)), nil
	})},
}}

var consoleModule = &module{name: "console", funcs: []moduleFunc{
	{"println", "mixed value = ''", func(rt *Runtime) builtinFunc {
		return func(a ...value.Value) (value.Value, error) {
			v := argOr(a, 0, value.Str(""))
			s := value.Format(v)
			if v.Kind == value.KindString {
				s = v.AsString()
			}
			_, err := fmt.Fprintln(rt.out, s)
			return value.Null, err
		}
	}},
	{"print_table", "array rows", func(rt *Runtime) builtinFunc {
		return func(a ...value.Value) (value.Value, error) {
			_, err := fmt.Fprintln(rt.out, renderTable(a[0].AsArray()))
			return value.Null, err
		}
	}},
}}

// renderTable draws rows as a bordered table. The keys of the first row
// become the headers when it is an associative array.
func renderTable(rows *value.Array) string {
	t := table.New().Border(lipgloss.NormalBorder())
	var headers []string
	for i, row := range rows.Values() {
		cells := value.ToArray(row)
		if i == 0 && !cells.IsList() {
			for k := range cells.All() {
				headers = append(headers, k.String())
			}
			t.Headers(headers...)
		}
		line := make([]string, 0, cells.Len())
		for _, v := range cells.All() {
			line = append(line, value.Stringify(v))
		}
		t.Row(line...)
	}
	return t.String()
}

var streamModule = &module{name: "stream", funcs: []moduleFunc{
	{"iterate", "mixed initial, callable f", func(rt *Runtime) builtinFunc {
		return func(a ...value.Value) (value.Value, error) {
			seed, f := a[0], a[1]
			return value.Gen(value.NewGenerator(func(yield func(k, v value.Value) bool) error {
				cur := seed
				for i := int64(0); ; i++ {
					if !yield(value.Int(i), cur) {
						return nil
					}
					next, err := rt.call(f, cur)
					if err != nil {
						return err
					}
					cur = next
				}
			})), nil
		}
	}},
	{"repeat", "mixed value", pure(func(a ...value.Value) (value.Value, error) {
		v := a[0]
		return value.Gen(value.NewGenerator(func(yield func(k, v value.Value) bool) error {
			for i := int64(0); yield(value.Int(i), v); i++ {
			}
			return nil
		})), nil
	})},
	{"take_while", "callable predicate, mixed stream", func(rt *Runtime) builtinFunc {
		return func(a ...value.Value) (value.Value, error) {
			pred, src := a[0], a[1]
			return value.Gen(value.NewGenerator(func(yield func(k, v value.Value) bool) error {
				seq, done, err := rt.Iterate(src)
				if err != nil {
					return err
				}
				for k, v := range seq {
					ok, err := rt.call(pred, v)
					if err != nil {
						return err
					}
					if !value.Truthy(ok) || !yield(k, v) {
						return nil
					}
				}
				return done()
			})), nil
		}
	}},
	{"take", "int n, mixed stream", func(rt *Runtime) builtinFunc {
		return func(a ...value.Value) (value.Value, error) {
			n, src := a[0].AsInt(), a[1]
			return value.Gen(value.NewGenerator(func(yield func(k, v value.Value) bool) error {
				if n <= 0 {
					return nil
				}
				seq, done, err := rt.Iterate(src)
				if err != nil {
					return err
				}
				i := int64(0)
				for k, v := range seq {
					if !yield(k, v) {
						return nil
					}
					if i++; i >= n {
						return nil
					}
				}
				return done()
			})), nil
		}
	}},
}}
