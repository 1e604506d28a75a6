package value

import (
	"math"
	"strconv"
	"strings"

	"github.com/itsmostafa/phunkie/internal/replerr"
)

const numericSpace = " \t\n\r\v\f"

// ParseNumeric parses a numeric string. Leading and trailing whitespace is
// allowed; anything else makes the string non-numeric.
func ParseNumeric(s string) (Value, bool) {
	t := strings.Trim(s, numericSpace)
	if t == "" {
		return Null, false
	}
	if n, err := strconv.ParseInt(t, 10, 64); err == nil {
		return Int(n), true
	}
	if !looksNumeric(t) {
		return Null, false
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return Float(f), true
		}
		return Null, false
	}
	return Float(f), true
}

// looksNumeric rejects forms strconv accepts but the language does not
// (hex floats, underscores, inf, nan).
func looksNumeric(s string) bool {
	end := numericPrefixLen(s)
	return end == len(s) && end > 0
}

// numericPrefixLen returns the length of the longest leading decimal number
func numericPrefixLen(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
			frac++
		}
		if digits+frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && s[k] >= '0' && s[k] <= '9' {
			k++
		}
		if k > j {
			i = k
		}
	}
	return i
}

// IsNumeric reports whether v is a number or a numeric string
func IsNumeric(v Value) bool {
	switch v.Kind {
	case KindInt, KindFloat:
		return true
	case KindString:
		_, ok := ParseNumeric(v.AsString())
		return ok
	default:
		return false
	}
}

// ToNumber converts v for arithmetic. ok is false when v cannot take part in
// arithmetic at all; a string with a numeric prefix yields that prefix.
func ToNumber(v Value) (Value, bool) {
	switch v.Kind {
	case KindInt, KindFloat:
		return v, true
	case KindNull:
		return Int(0), true
	case KindBool:
		if v.AsBool() {
			return Int(1), true
		}
		return Int(0), true
	case KindString:
		s := v.AsString()
		if n, ok := ParseNumeric(s); ok {
			return n, true
		}
		t := strings.TrimLeft(s, numericSpace)
		end := numericPrefixLen(t)
		if end == 0 {
			return Int(0), false
		}
		n, _ := ParseNumeric(t[:end])
		return n, true
	default:
		return Int(0), false
	}
}

// ToInt converts v to an integer following cast rules
func ToInt(v Value) int64 {
	switch v.Kind {
	case KindInt:
		return v.AsInt()
	case KindFloat:
		return floatToInt(v.AsFloat())
	case KindArray:
		if v.AsArray().Len() > 0 {
			return 1
		}
		return 0
	case KindObject, KindCallable, KindGenerator:
		return 1
	default:
		n, _ := ToNumber(v)
		if n.Kind == KindFloat {
			return floatToInt(n.AsFloat())
		}
		return n.AsInt()
	}
}

func floatToInt(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0
	}
	return int64(f)
}

// ToFloat converts v to a float following cast rules
func ToFloat(v Value) float64 {
	switch v.Kind {
	case KindFloat:
		return v.AsFloat()
	case KindInt:
		return float64(v.AsInt())
	default:
		n, _ := ToNumber(v)
		if n.Kind == KindFloat {
			return n.AsFloat()
		}
		if n.Kind == KindInt {
			return float64(n.AsInt())
		}
		return float64(ToInt(v))
	}
}

// ToStr converts v to a string for concatenation and casts
func ToStr(v Value) (string, error) {
	switch v.Kind {
	case KindString:
		return v.AsString(), nil
	case KindObject:
		o := v.AsObject()
		if s, ok := o.ToString(); ok {
			return s, nil
		}
		return "", replerr.Evalf(o.ClassName(), "Object of class %s could not be converted to string", o.ClassName())
	case KindCallable:
		return "", replerr.Evalf("Closure", "Object of class Closure could not be converted to string")
	default:
		return Stringify(v), nil
	}
}
