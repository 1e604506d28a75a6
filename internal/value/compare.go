package value

import (
	"math"
	"strings"
)

// LooseEquals implements ==
func LooseEquals(a, b Value) bool {
	switch {
	case a.Kind == KindNull && b.Kind == KindNull:
		return true
	case a.Kind == KindBool || b.Kind == KindBool:
		return Truthy(a) == Truthy(b)
	case a.Kind == KindNull:
		return looseNull(b)
	case b.Kind == KindNull:
		return looseNull(a)
	case a.IsNumber() && b.IsNumber():
		return compareNumbers(a, b) == 0
	case a.IsNumber() && b.Kind == KindString:
		return numberStringCompare(a, b.AsString()) == 0
	case a.Kind == KindString && b.IsNumber():
		return numberStringCompare(b, a.AsString()) == 0
	case a.Kind == KindString && b.Kind == KindString:
		return compareStrings(a.AsString(), b.AsString()) == 0
	case a.Kind == KindArray && b.Kind == KindArray:
		x, y := a.AsArray(), b.AsArray()
		if x.Len() != y.Len() {
			return false
		}
		for k, xv := range x.All() {
			yv, ok := y.Get(k)
			if !ok || !LooseEquals(xv, yv) {
				return false
			}
		}
		return true
	case a.Kind == KindObject && b.Kind == KindObject:
		x, y := a.AsObject(), b.AsObject()
		if x.Handle() == y.Handle() {
			return true
		}
		if x.ClassName() != y.ClassName() {
			return false
		}
		if _, ok := x.EnumCase(); ok {
			return false
		}
		return LooseEquals(Arr(x.Properties()), Arr(y.Properties()))
	case a.Kind == KindObject && b.Kind == KindString:
		s, ok := a.AsObject().ToString()
		return ok && s == b.AsString()
	case a.Kind == KindString && b.Kind == KindObject:
		return LooseEquals(b, a)
	default:
		return Identical(a, b)
	}
}

func looseNull(v Value) bool {
	switch v.Kind {
	case KindString:
		return v.AsString() == ""
	case KindObject, KindCallable, KindGenerator:
		return false
	default:
		return !Truthy(v)
	}
}

// Identical implements ===
func Identical(a, b Value) (same bool) {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull, KindAbsent:
		return true
	case KindBool:
		return a.AsBool() == b.AsBool()
	case KindInt:
		return a.AsInt() == b.AsInt()
	case KindFloat:
		return a.AsFloat() == b.AsFloat()
	case KindString:
		return a.AsString() == b.AsString()
	case KindArray:
		x, y := a.AsArray(), b.AsArray()
		if x.Len() != y.Len() {
			return false
		}
		for i := 0; i < x.Len(); i++ {
			xk, xv := x.At(i)
			yk, yv := y.At(i)
			if xk != yk || !Identical(xv, yv) {
				return false
			}
		}
		return true
	case KindObject:
		return a.AsObject().Handle() == b.AsObject().Handle()
	default:
		defer func() {
			if recover() != nil {
				same = false
			}
		}()
		return a.Data == b.Data
	}
}

// Compare implements <=> and returns -1, 0 or 1
func Compare(a, b Value) int {
	switch {
	case a.Kind == KindBool || b.Kind == KindBool, a.Kind == KindNull && b.Kind == KindNull:
		return compareBools(Truthy(a), Truthy(b))
	case a.Kind == KindNull:
		if b.Kind == KindString {
			return sign(strings.Compare("", b.AsString()))
		}
		return compareBools(false, Truthy(b))
	case b.Kind == KindNull:
		return -Compare(b, a)
	case a.IsNumber() && b.IsNumber():
		return compareNumbers(a, b)
	case a.IsNumber() && b.Kind == KindString:
		return numberStringCompare(a, b.AsString())
	case a.Kind == KindString && b.IsNumber():
		return -numberStringCompare(b, a.AsString())
	case a.Kind == KindString && b.Kind == KindString:
		return compareStrings(a.AsString(), b.AsString())
	case a.Kind == KindArray && b.Kind == KindArray:
		x, y := a.AsArray(), b.AsArray()
		if x.Len() != y.Len() {
			return sign(x.Len() - y.Len())
		}
		for k, xv := range x.All() {
			yv, ok := y.Get(k)
			if !ok {
				return 1
			}
			if c := Compare(xv, yv); c != 0 {
				return c
			}
		}
		return 0
	case a.Kind == KindArray:
		return 1
	case b.Kind == KindArray:
		return -1
	case a.Kind == KindObject && b.Kind == KindString, a.Kind == KindString && b.Kind == KindObject:
		x, _ := ToStr(a)
		y, _ := ToStr(b)
		return compareStrings(x, y)
	default:
		if LooseEquals(a, b) {
			return 0
		}
		return 1
	}
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}

func compareNumbers(a, b Value) int {
	if a.Kind == KindInt && b.Kind == KindInt {
		x, y := a.AsInt(), b.AsInt()
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	}
	x, y := ToFloat(a), ToFloat(b)
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return 1
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func numberStringCompare(n Value, s string) int {
	if sv, ok := ParseNumeric(s); ok {
		return compareNumbers(n, sv)
	}
	return compareStrings(Stringify(n), s)
}

func compareStrings(a, b string) int {
	x, okA := ParseNumeric(a)
	y, okB := ParseNumeric(b)
	if okA && okB {
		return compareNumbers(x, y)
	}
	return sign(strings.Compare(a, b))
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
