package host

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/iancoleman/orderedmap"

	"github.com/itsmostafa/phunkie/internal/value"
)

const (
	jsonErrNone      = 0
	jsonErrDepth     = 1
	jsonErrSyntax    = 4
	jsonErrUTF8      = 5
	jsonErrRecursion = 6
	jsonErrInfNaN    = 7
	jsonErrType      = 8
)

var jsonMessages = map[int]string{
	jsonErrNone:      "No error",
	jsonErrDepth:     "Maximum stack depth exceeded",
	jsonErrSyntax:    "Syntax error",
	jsonErrUTF8:      "Malformed UTF-8 characters, possibly incorrectly encoded",
	jsonErrRecursion: "Recursion detected",
	jsonErrInfNaN:    "Inf and NaN cannot be JSON encoded",
	jsonErrType:      "Type is not supported",
}

type jsonFailure struct{ code int }

func (e *jsonFailure) Error() string { return jsonMessages[e.code] }

func (rt *Runtime) registerJSON() {
	rt.def("json_encode", "mixed value, int flags = 0, int depth = 512", func(a ...value.Value) (value.Value, error) {
		flags := intArg(a, 1, 0)
		enc := &jsonEncoder{rt: rt, flags: flags, depth: int(intArg(a, 2, 512))}
		if err := enc.encode(a[0], 0); err != nil {
			return rt.jsonFail(err, flags)
		}
		rt.jsonError = jsonErrNone
		return value.Str(enc.buf.String()), nil
	})
	rt.def("json_decode", "string json, ?bool associative, int depth = 512, int flags = 0", func(a ...value.Value) (value.Value, error) {
		flags := intArg(a, 3, 0)
		assoc := boolArg(a, 1) || flags&jsonObjectAsArray != 0
		v, err := rt.decodeJSON(a[0].AsString(), assoc)
		if err != nil {
			if _, failed := rt.jsonFail(err, flags); flags&jsonThrowOnError != 0 {
				return value.Null, failed
			}
			return value.Null, nil
		}
		rt.jsonError = jsonErrNone
		return v, nil
	})
	rt.def("json_last_error", "", func(...value.Value) (value.Value, error) {
		return value.Int(int64(rt.jsonError)), nil
	})
	rt.def("json_last_error_msg", "", func(...value.Value) (value.Value, error) {
		return value.Str(jsonMessages[rt.jsonError]), nil
	})
	rt.def("json_validate", "string json", func(a ...value.Value) (value.Value, error) {
		return value.Bool(json.Valid([]byte(a[0].AsString()))), nil
	})
}

func (rt *Runtime) jsonFail(err error, flags int64) (value.Value, error) {
	f, ok := err.(*jsonFailure)
	if !ok {
		return value.Null, err
	}
	rt.jsonError = f.code
	if flags&jsonThrowOnError != 0 {
		return value.Null, rt.Throw("JsonException", f.Error())
	}
	return value.Bool(false), nil
}

type jsonEncoder struct {
	rt    *Runtime
	flags int64
	depth int
	buf   bytes.Buffer
	seen  []*Instance
}

func (e *jsonEncoder) pretty() bool { return e.flags&jsonPrettyPrint != 0 }

func (e *jsonEncoder) newline(level int) {
	if e.pretty() {
		e.buf.WriteByte('\n')
		e.buf.WriteString(strings.Repeat("    ", level))
	}
}

func (e *jsonEncoder) encode(v value.Value, level int) error {
	if level > e.depth {
		return &jsonFailure{jsonErrDepth}
	}
	switch v.Kind {
	case value.KindNull:
		e.buf.WriteString("null")
	case value.KindBool:
		e.buf.WriteString(strconv.FormatBool(v.AsBool()))
	case value.KindInt:
		e.buf.WriteString(strconv.FormatInt(v.AsInt(), 10))
	case value.KindFloat:
		f := v.AsFloat()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return &jsonFailure{jsonErrInfNaN}
		}
		s := value.ReprFloat(f)
		if e.flags&jsonPreserveZeroFraction != 0 {
			s = value.ExportFloat(f)
		}
		e.buf.WriteString(s)
	case value.KindString:
		return e.str(v.AsString())
	case value.KindArray:
		a := v.AsArray()
		if a.IsList() && e.flags&16 == 0 {
			return e.list(a.Values(), level)
		}
		return e.object(a, level)
	case value.KindObject:
		return e.instance(v, level)
	case value.KindCallable, value.KindGenerator:
		e.buf.WriteString("{}")
	default:
		return &jsonFailure{jsonErrType}
	}
	return nil
}

func (e *jsonEncoder) list(vals []value.Value, level int) error {
	if len(vals) == 0 {
		e.buf.WriteString("[]")
		return nil
	}
	e.buf.WriteByte('[')
	for i, el := range vals {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		e.newline(level + 1)
		if err := e.encode(el, level+1); err != nil {
			return err
		}
	}
	e.newline(level)
	e.buf.WriteByte(']')
	return nil
}

func (e *jsonEncoder) object(a *value.Array, level int) error {
	if a.Len() == 0 {
		e.buf.WriteString("{}")
		return nil
	}
	e.buf.WriteByte('{')
	i := 0
	for k, el := range a.All() {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		i++
		e.newline(level + 1)
		if err := e.str(k.String()); err != nil {
			return err
		}
		e.buf.WriteByte(':')
		if e.pretty() {
			e.buf.WriteByte(' ')
		}
		if err := e.encode(el, level+1); err != nil {
			return err
		}
	}
	e.newline(level)
	e.buf.WriteByte('}')
	return nil
}

func (e *jsonEncoder) instance(v value.Value, level int) error {
	o, ok := v.AsObject().(*Instance)
	if !ok {
		return &jsonFailure{jsonErrType}
	}
	for _, s := range e.seen {
		if s == o {
			return &jsonFailure{jsonErrRecursion}
		}
	}
	e.seen = append(e.seen, o)
	defer func() { e.seen = e.seen[:len(e.seen)-1] }()

	switch {
	case o.isCase && o.class.BackingType != "":
		return e.encode(o.Prop("value"), level)
	case o.isCase:
		return &jsonFailure{jsonErrType}
	case e.rt.InstanceOf(v, "JsonSerializable"):
		m, err := e.rt.Method(v, "jsonSerialize", nil)
		if err != nil {
			return err
		}
		data, err := m.Call(nil)
		if err != nil {
			return err
		}
		return e.encode(data, level)
	}
	if a, ok := ArrayStorage(v); ok {
		return e.object(a, level)
	}
	return e.object(e.rt.PublicProperties(v), level)
}

func (e *jsonEncoder) str(s string) error {
	if !utf8.ValidString(s) {
		return &jsonFailure{jsonErrUTF8}
	}
	e.buf.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			e.buf.WriteString(`\"`)
		case r == '\\':
			e.buf.WriteString(`\\`)
		case r == '/' && e.flags&jsonUnescapedSlashes == 0:
			e.buf.WriteString(`\/`)
		case r == '\n':
			e.buf.WriteString(`\n`)
		case r == '\r':
			e.buf.WriteString(`\r`)
		case r == '\t':
			e.buf.WriteString(`\t`)
		case r == '\b':
			e.buf.WriteString(`\b`)
		case r == '\f':
			e.buf.WriteString(`\f`)
		case r < 0x20:
			fmt.Fprintf(&e.buf, `\u%04x`, r)
		case r > 0x7f && e.flags&jsonUnescapedUnicode == 0:
			if r > 0xffff {
				hi, lo := utf16.EncodeRune(r)
				fmt.Fprintf(&e.buf, `\u%04x\u%04x`, hi, lo)
			} else {
				fmt.Fprintf(&e.buf, `\u%04x`, r)
			}
		default:
			e.buf.WriteRune(r)
		}
	}
	e.buf.WriteByte('"')
	return nil
}

// decodeJSON parses text keeping object key order. Objects become
// stdClass instances unless assoc is set.
func (rt *Runtime) decodeJSON(text string, assoc bool) (value.Value, error) {
	text = strings.TrimSpace(text)
	if text == "" || !json.Valid([]byte(text)) {
		return value.Null, &jsonFailure{jsonErrSyntax}
	}
	switch text[0] {
	case '{':
		m := orderedmap.New()
		if err := json.Unmarshal([]byte(text), m); err != nil {
			return value.Null, &jsonFailure{jsonErrSyntax}
		}
		return rt.fromJSON(*m, assoc)
	case '[':
		raw := []json.RawMessage{}
		if err := json.Unmarshal([]byte(text), &raw); err != nil {
			return value.Null, &jsonFailure{jsonErrSyntax}
		}
		out := value.NewArray()
		for _, r := range raw {
			el, err := rt.decodeJSON(string(r), assoc)
			if err != nil {
				return value.Null, err
			}
			out.Push(el)
		}
		return value.Arr(out), nil
	}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var scalar any
	if err := dec.Decode(&scalar); err != nil {
		return value.Null, &jsonFailure{jsonErrSyntax}
	}
	return rt.fromJSON(scalar, assoc)
}

func (rt *Runtime) fromJSON(v any, assoc bool) (value.Value, error) {
	switch x := v.(type) {
	case nil:
		return value.Null, nil
	case bool:
		return value.Bool(x), nil
	case string:
		return value.Str(x), nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return value.Int(n), nil
		}
		f, _ := x.Float64()
		return value.Float(f), nil
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return value.Int(int64(x)), nil
		}
		return value.Float(x), nil
	case []any:
		out := value.NewArray()
		for _, el := range x {
			dv, err := rt.fromJSON(el, assoc)
			if err != nil {
				return value.Null, err
			}
			out.Push(dv)
		}
		return value.Arr(out), nil
	case orderedmap.OrderedMap:
		out := value.NewArray()
		for _, k := range x.Keys() {
			el, _ := x.Get(k)
			dv, err := rt.fromJSON(el, assoc)
			if err != nil {
				return value.Null, err
			}
			out.Put(value.StrKey(k), dv)
		}
		if assoc {
			return value.Arr(out), nil
		}
		obj, err := rt.Construct("stdClass", nil)
		if err != nil {
			return value.Null, err
		}
		inst := obj.AsObject().(*Instance)
		for k, el := range out.All() {
			inst.SetProp(k.String(), el)
		}
		return obj, nil
	case *orderedmap.OrderedMap:
		return rt.fromJSON(*x, assoc)
	}
	return value.Null, &jsonFailure{jsonErrType}
}
