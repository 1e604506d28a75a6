package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatFloat renders f the way string conversion does (14 significant digits)
func FormatFloat(f float64) string {
	return formatFloat(f, 14, false)
}

// ReprFloat renders f with the shortest round-trip digits, as var_dump does
func ReprFloat(f float64) string {
	return formatFloat(f, -1, false)
}

// ExportFloat renders f for var_export, keeping a fractional marker
func ExportFloat(f float64) string {
	return formatFloat(f, -1, true)
}

func formatFloat(f float64, precision int, keepPoint bool) string {
	switch {
	case math.IsNaN(f):
		return "NAN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	case f == 0:
		s := "0"
		if math.Signbit(f) {
			s = "-0"
		}
		if keepPoint {
			s += ".0"
		}
		return s
	}

	prec := precision
	if prec > 0 {
		prec--
	}
	sci := strconv.FormatFloat(f, 'e', prec, 64)
	mant, expPart, _ := strings.Cut(sci, "e")
	exp, _ := strconv.Atoi(expPart)

	limit := 15
	if precision > 0 {
		limit = precision
	}
	if exp < -4 || exp >= limit {
		mant = trimFraction(mant)
		if !strings.Contains(mant, ".") {
			mant += ".0"
		}
		sign := "+"
		if exp < 0 {
			sign = "-"
			exp = -exp
		}
		return fmt.Sprintf("%sE%s%d", mant, sign, exp)
	}

	rounded, _ := strconv.ParseFloat(sci, 64)
	s := strconv.FormatFloat(rounded, 'f', -1, 64)
	if keepPoint && !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func trimFraction(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// AddSlashes escapes quotes, backslashes and NUL bytes
func AddSlashes(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\'', '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case 0:
			b.WriteString(`\0`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Format renders v for the result line of the console
func Format(v Value) string {
	switch v.Kind {
	case KindNull, KindAbsent:
		return "null"
	case KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case KindFloat:
		return FormatFloat(v.AsFloat())
	case KindString:
		return `"` + AddSlashes(v.AsString()) + `"`
	case KindArray:
		parts := make([]string, 0, v.AsArray().Len())
		for _, item := range v.AsArray().All() {
			parts = append(parts, Format(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindCallable:
		return "<function>"
	case KindGenerator:
		return fmt.Sprintf("Generator@%08x", v.AsGenerator().ID())
	case KindObject:
		return v.AsObject().Describe()
	default:
		return "<unknown>"
	}
}

// Stringify renders v inside interpolated strings
func Stringify(v Value) string {
	switch v.Kind {
	case KindString:
		return v.AsString()
	case KindInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case KindFloat:
		return FormatFloat(v.AsFloat())
	case KindBool:
		if v.AsBool() {
			return "1"
		}
		return ""
	case KindNull, KindAbsent:
		return ""
	case KindArray:
		return "Array"
	case KindCallable:
		return "Closure"
	case KindGenerator:
		return "Generator"
	case KindObject:
		o := v.AsObject()
		if s, ok := o.ToString(); ok {
			return s
		}
		return o.TypeName()
	default:
		return ""
	}
}

// EchoString renders v for echo, where objects without __toString print as Object
func EchoString(v Value) string {
	if v.Kind == KindObject {
		if s, ok := v.AsObject().ToString(); ok {
			return s
		}
		return "Object"
	}
	return Stringify(v)
}

// Export renders v as var_export does
func Export(v Value) string {
	var b strings.Builder
	export(&b, v, 0)
	return b.String()
}

func exportString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

func export(b *strings.Builder, v Value, depth int) {
	pad := strings.Repeat("  ", depth)
	switch v.Kind {
	case KindNull, KindAbsent:
		b.WriteString("NULL")
	case KindBool:
		if v.AsBool() {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case KindInt:
		b.WriteString(strconv.FormatInt(v.AsInt(), 10))
	case KindFloat:
		b.WriteString(ExportFloat(v.AsFloat()))
	case KindString:
		b.WriteString(exportString(v.AsString()))
	case KindArray:
		b.WriteString("array (\n")
		exportEntries(b, v.AsArray(), depth)
		b.WriteString(pad + ")")
	case KindCallable:
		b.WriteString("\\Closure::__set_state(array(\n" + pad + "))")
	case KindGenerator:
		b.WriteString("\\Generator::__set_state(array(\n" + pad + "))")
	case KindObject:
		o := v.AsObject()
		if c, ok := o.EnumCase(); ok {
			b.WriteString("\\" + o.ClassName() + "::" + c)
			return
		}
		b.WriteString("\\" + o.ClassName() + "::__set_state(array(\n")
		exportEntries(b, o.Properties(), depth)
		b.WriteString(pad + "))")
	}
}

func exportEntries(b *strings.Builder, a *Array, depth int) {
	inner := strings.Repeat("  ", depth+1)
	for k, item := range a.All() {
		b.WriteString(inner)
		if k.IsStr {
			b.WriteString(exportString(k.Str))
		} else {
			b.WriteString(strconv.FormatInt(k.Int, 10))
		}
		b.WriteString(" => ")
		if item.Kind == KindArray || (item.Kind == KindObject && !isEnum(item)) {
			b.WriteString("\n" + inner)
		}
		export(b, item, depth+1)
		b.WriteString(",\n")
	}
}

func isEnum(v Value) bool {
	_, ok := v.AsObject().EnumCase()
	return ok
}

// Dump renders v as var_dump does, including the trailing newline
func Dump(v Value) string {
	var b strings.Builder
	dump(&b, v, 0)
	return b.String()
}

func dump(b *strings.Builder, v Value, depth int) {
	pad := strings.Repeat("  ", depth)
	b.WriteString(pad)
	switch v.Kind {
	case KindNull, KindAbsent:
		b.WriteString("NULL\n")
	case KindBool:
		fmt.Fprintf(b, "bool(%t)\n", v.AsBool())
	case KindInt:
		fmt.Fprintf(b, "int(%d)\n", v.AsInt())
	case KindFloat:
		fmt.Fprintf(b, "float(%s)\n", ReprFloat(v.AsFloat()))
	case KindString:
		fmt.Fprintf(b, "string(%d) \"%s\"\n", len(v.AsString()), v.AsString())
	case KindArray:
		a := v.AsArray()
		fmt.Fprintf(b, "array(%d) {\n", a.Len())
		dumpEntries(b, a, depth)
		b.WriteString(pad + "}\n")
	case KindCallable:
		b.WriteString("object(Closure)#1 (0) {\n" + pad + "}\n")
	case KindGenerator:
		fmt.Fprintf(b, "object(Generator)#%d (0) {\n%s}\n", v.AsGenerator().ID(), pad)
	case KindObject:
		o := v.AsObject()
		if c, ok := o.EnumCase(); ok {
			fmt.Fprintf(b, "enum(%s::%s)\n", o.ClassName(), c)
			return
		}
		props := o.Properties()
		fmt.Fprintf(b, "object(%s)#%d (%d) {\n", o.ClassName(), o.Handle(), props.Len())
		dumpEntries(b, props, depth)
		b.WriteString(pad + "}\n")
	}
}

func dumpEntries(b *strings.Builder, a *Array, depth int) {
	inner := strings.Repeat("  ", depth+1)
	for k, item := range a.All() {
		if k.IsStr {
			fmt.Fprintf(b, "%s[\"%s\"]=>\n", inner, k.Str)
		} else {
			fmt.Fprintf(b, "%s[%d]=>\n", inner, k.Int)
		}
		dump(b, item, depth+1)
	}
}

// PrintR renders v as print_r does
func PrintR(v Value) string {
	var b strings.Builder
	printR(&b, v, 0)
	return b.String()
}

func printR(b *strings.Builder, v Value, depth int) {
	switch v.Kind {
	case KindArray:
		printRBlock(b, "Array", v.AsArray(), depth)
	case KindObject:
		o := v.AsObject()
		if c, ok := o.EnumCase(); ok {
			b.WriteString(o.ClassName() + " Enum ( [name] => " + c + " )")
			return
		}
		printRBlock(b, o.ClassName()+" Object", o.Properties(), depth)
	case KindCallable:
		b.WriteString("Closure Object\n" + strings.Repeat(" ", depth*8) + "(\n" + strings.Repeat(" ", depth*8) + ")\n")
	default:
		b.WriteString(Stringify(v))
	}
}

func printRBlock(b *strings.Builder, title string, a *Array, depth int) {
	pad := strings.Repeat(" ", depth*8)
	b.WriteString(title + "\n" + pad + "(\n")
	for k, item := range a.All() {
		fmt.Fprintf(b, "%s    [%s] => ", pad, k.String())
		printR(b, item, depth+1)
		b.WriteString("\n")
	}
	b.WriteString(pad + ")\n")
}
