package value

import (
	"math"

	"github.com/itsmostafa/phunkie/internal/replerr"
)

func unsupported(op string, a, b Value) error {
	return replerr.Typef(op, "Unsupported operand types: %s %s %s", DebugType(a), op, DebugType(b))
}

// numericOperands converts both operands for an arithmetic operator
func numericOperands(op string, a, b Value) (Value, Value, error) {
	x, okA := ToNumber(a)
	y, okB := ToNumber(b)
	if !okA || !okB {
		return Null, Null, unsupported(op, a, b)
	}
	return x, y, nil
}

// Arith applies one of + - * / % ** to a and b
func Arith(op string, a, b Value) (Value, error) {
	if op == "+" && a.Kind == KindArray && b.Kind == KindArray {
		return Arr(Union(a.AsArray(), b.AsArray())), nil
	}
	if a.Kind == KindArray || b.Kind == KindArray {
		return Null, unsupported(op, a, b)
	}
	if op == "%" {
		return mod(a, b)
	}
	x, y, err := numericOperands(op, a, b)
	if err != nil {
		return Null, err
	}
	if x.Kind == KindInt && y.Kind == KindInt {
		return intArith(op, x.AsInt(), y.AsInt())
	}
	return floatArith(op, ToFloat(x), ToFloat(y))
}

// Union returns a with the entries of b whose keys a lacks
func Union(a, b *Array) *Array {
	out := a
	for k, v := range b.All() {
		if !out.Has(k) {
			out = out.Set(k, v)
		}
	}
	return out
}

func divisionByZero() error {
	return replerr.Evalf("DivisionByZeroError", "Division by zero")
}

func intArith(op string, x, y int64) (Value, error) {
	switch op {
	case "+":
		r := x + y
		if (x > 0 && y > 0 && r < 0) || (x < 0 && y < 0 && r >= 0) {
			return Float(float64(x) + float64(y)), nil
		}
		return Int(r), nil
	case "-":
		r := x - y
		if (x >= 0 && y < 0 && r < 0) || (x < 0 && y > 0 && r >= 0) {
			return Float(float64(x) - float64(y)), nil
		}
		return Int(r), nil
	case "*":
		if r, ok := mulInt(x, y); ok {
			return Int(r), nil
		}
		return Float(float64(x) * float64(y)), nil
	case "/":
		if y == 0 {
			return Null, divisionByZero()
		}
		if x%y == 0 && !(x == math.MinInt64 && y == -1) {
			return Int(x / y), nil
		}
		return Float(float64(x) / float64(y)), nil
	case "**":
		if y < 0 {
			return Float(math.Pow(float64(x), float64(y))), nil
		}
		return intPow(x, y), nil
	}
	return Null, replerr.Evalf(op, "Unknown arithmetic operator %s", op)
}

func intPow(base, exp int64) Value {
	result, b := int64(1), base
	for e := exp; e > 0; e >>= 1 {
		if e&1 == 1 {
			r, ok := mulInt(result, b)
			if !ok {
				return Float(math.Pow(float64(base), float64(exp)))
			}
			result = r
		}
		if e > 1 {
			nb, ok := mulInt(b, b)
			if !ok {
				return Float(math.Pow(float64(base), float64(exp)))
			}
			b = nb
		}
	}
	return Int(result)
}

// mulInt multiplies and reports false on overflow
func mulInt(x, y int64) (int64, bool) {
	if x == 0 || y == 0 {
		return 0, true
	}
	r := x * y
	if r/y != x || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
		return 0, false
	}
	return r, true
}

func floatArith(op string, x, y float64) (Value, error) {
	switch op {
	case "+":
		return Float(x + y), nil
	case "-":
		return Float(x - y), nil
	case "*":
		return Float(x * y), nil
	case "/":
		if y == 0 {
			return Null, divisionByZero()
		}
		return Float(x / y), nil
	case "**":
		return Float(math.Pow(x, y)), nil
	}
	return Null, replerr.Evalf(op, "Unknown arithmetic operator %s", op)
}

func mod(a, b Value) (Value, error) {
	if _, _, err := numericOperands("%", a, b); err != nil {
		return Null, err
	}
	x, y := ToInt(a), ToInt(b)
	if y == 0 {
		return Null, replerr.Evalf("DivisionByZeroError", "Modulo by zero")
	}
	if y == -1 {
		return Int(0), nil
	}
	return Int(x % y), nil
}

// Bitwise applies one of & | ^ << >> to a and b
func Bitwise(op string, a, b Value) (Value, error) {
	if a.Kind == KindString && b.Kind == KindString && op != "<<" && op != ">>" {
		return Str(stringBitwise(op, a.AsString(), b.AsString())), nil
	}
	if a.Kind == KindArray || b.Kind == KindArray {
		return Null, unsupported(op, a, b)
	}
	if _, _, err := numericOperands(op, a, b); err != nil {
		return Null, err
	}
	x, y := ToInt(a), ToInt(b)
	switch op {
	case "&":
		return Int(x & y), nil
	case "|":
		return Int(x | y), nil
	case "^":
		return Int(x ^ y), nil
	case "<<", ">>":
		if y < 0 {
			return Null, replerr.Evalf("ArithmeticError", "Bit shift by negative number")
		}
		if y >= 64 {
			if op == ">>" && x < 0 {
				return Int(-1), nil
			}
			return Int(0), nil
		}
		if op == "<<" {
			return Int(x << uint(y)), nil
		}
		return Int(x >> uint(y)), nil
	}
	return Null, replerr.Evalf(op, "Unknown bitwise operator %s", op)
}

func stringBitwise(op, a, b string) string {
	n := min(len(a), len(b))
	if op == "|" {
		n = max(len(a), len(b))
	}
	out := make([]byte, n)
	for i := range out {
		var x, y byte
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		switch op {
		case "&":
			out[i] = x & y
		case "|":
			out[i] = x | y
		default:
			out[i] = x ^ y
		}
	}
	return string(out)
}

// Negate implements unary minus
func Negate(v Value) (Value, error) {
	if v.Kind == KindInt && v.AsInt() != math.MinInt64 {
		return Int(-v.AsInt()), nil
	}
	return Arith("*", v, Int(-1))
}

// Plus implements unary plus
func Plus(v Value) (Value, error) {
	return Arith("*", v, Int(1))
}

// BitNot implements ~
func BitNot(v Value) (Value, error) {
	switch v.Kind {
	case KindInt:
		return Int(^v.AsInt()), nil
	case KindFloat:
		return Int(^ToInt(v)), nil
	case KindString:
		s := []byte(v.AsString())
		for i := range s {
			s[i] = ^s[i]
		}
		return Str(string(s)), nil
	default:
		return Null, replerr.Typef("~", "Cannot perform bitwise not on %s", DebugType(v))
	}
}

// ToArray implements the (array) cast
func ToArray(v Value) *Array {
	switch v.Kind {
	case KindArray:
		return v.AsArray()
	case KindNull:
		return NewArray()
	case KindObject:
		return v.AsObject().Properties()
	default:
		return NewList(v)
	}
}
