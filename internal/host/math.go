package host

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/itsmostafa/phunkie/internal/value"
)

var rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))

func roundHalfUp(f float64, precision int) float64 {
	pow := math.Pow(10, float64(precision))
	scaled := f * pow
	if math.IsInf(scaled, 0) {
		return f
	}
	return math.Round(scaled) / pow
}

func (rt *Runtime) registerMath() {
	float1 := func(name string, fn func(float64) float64) {
		rt.def(name, "float num", func(a ...value.Value) (value.Value, error) {
			return value.Float(fn(a[0].AsFloat())), nil
		})
	}
	float1("sqrt", math.Sqrt)
	float1("exp", math.Exp)
	float1("log10", math.Log10)
	float1("log2", math.Log2)
	float1("sin", math.Sin)
	float1("cos", math.Cos)
	float1("tan", math.Tan)
	float1("asin", math.Asin)
	float1("acos", math.Acos)
	float1("atan", math.Atan)
	float1("deg2rad", func(f float64) float64 { return f * math.Pi / 180 })
	float1("rad2deg", func(f float64) float64 { return f * 180 / math.Pi })

	rt.def("abs", "int|float num", func(a ...value.Value) (value.Value, error) {
		if a[0].Kind == value.KindInt {
			n := a[0].AsInt()
			if n == math.MinInt64 {
				return value.Float(-float64(n)), nil
			}
			if n < 0 {
				n = -n
			}
			return value.Int(n), nil
		}
		return value.Float(math.Abs(a[0].AsFloat())), nil
	})
	rt.def("floor", "int|float num", func(a ...value.Value) (value.Value, error) {
		return value.Float(math.Floor(value.ToFloat(a[0]))), nil
	})
	rt.def("ceil", "int|float num", func(a ...value.Value) (value.Value, error) {
		return value.Float(math.Ceil(value.ToFloat(a[0]))), nil
	})
	rt.def("round", "int|float num, int precision = 0", func(a ...value.Value) (value.Value, error) {
		return value.Float(roundHalfUp(value.ToFloat(a[0]), int(intArg(a, 1, 0)))), nil
	})
	rt.def("log", "float num, float base = 0", func(a ...value.Value) (value.Value, error) {
		if len(a) > 1 && a[1].AsFloat() > 0 {
			return value.Float(math.Log(a[0].AsFloat()) / math.Log(a[1].AsFloat())), nil
		}
		return value.Float(math.Log(a[0].AsFloat())), nil
	})
	rt.def("pow", "mixed num, mixed exponent", func(a ...value.Value) (value.Value, error) {
		return value.Arith("**", a[0], a[1])
	})
	rt.def("intdiv", "int num1, int num2", func(a ...value.Value) (value.Value, error) {
		x, y := a[0].AsInt(), a[1].AsInt()
		switch {
		case y == 0:
			return value.Null, errorf("DivisionByZeroError", "Division by zero")
		case x == math.MinInt64 && y == -1:
			return value.Null, errorf("ArithmeticError", "Division of PHP_INT_MIN by -1 is not an integer")
		}
		return value.Int(x / y), nil
	})
	rt.def("fmod", "float num1, float num2", func(a ...value.Value) (value.Value, error) {
		return value.Float(math.Mod(a[0].AsFloat(), a[1].AsFloat())), nil
	})
	rt.def("fdiv", "float num1, float num2", func(a ...value.Value) (value.Value, error) {
		return value.Float(a[0].AsFloat() / a[1].AsFloat()), nil
	})
	rt.def("pi", "", func(...value.Value) (value.Value, error) {
		return value.Float(math.Pi), nil
	})
	rt.def("is_nan", "float num", func(a ...value.Value) (value.Value, error) {
		return value.Bool(math.IsNaN(a[0].AsFloat())), nil
	})
	rt.def("is_infinite", "float num", func(a ...value.Value) (value.Value, error) {
		return value.Bool(math.IsInf(a[0].AsFloat(), 0)), nil
	})
	rt.def("is_finite", "float num", func(a ...value.Value) (value.Value, error) {
		f := a[0].AsFloat()
		return value.Bool(!math.IsInf(f, 0) && !math.IsNaN(f)), nil
	})
	rt.def("max", "mixed value, mixed ...values", func(a ...value.Value) (value.Value, error) {
		return extreme("max", a, 1)
	})
	rt.def("min", "mixed value, mixed ...values", func(a ...value.Value) (value.Value, error) {
		return extreme("min", a, -1)
	})
	random := func(name string) {
		rt.def(name, "int min = 0, int max = PHP_INT_MAX", func(a ...value.Value) (value.Value, error) {
			lo, hi := intArg(a, 0, 0), intArg(a, 1, math.MaxInt32)
			if len(a) == 1 {
				return value.Null, errorf("ArgumentCountError", "%s() expects exactly 2 arguments, 1 given", name)
			}
			if hi < lo {
				return value.Null, errorf("ValueError", "%s(): Argument #2 ($max) must be greater than or equal to argument #1 ($min)", name)
			}
			return value.Int(lo + rng.Int64N(hi-lo+1)), nil
		})
	}
	random("rand")
	random("mt_rand")
	rt.def("random_int", "int min, int max", func(a ...value.Value) (value.Value, error) {
		lo, hi := a[0].AsInt(), a[1].AsInt()
		if hi < lo {
			return value.Null, errorf("ValueError", "random_int(): Argument #1 ($min) must be less than or equal to argument #2 ($max)")
		}
		return value.Int(lo + rng.Int64N(hi-lo+1)), nil
	})
	rt.def("mt_getrandmax", "", func(...value.Value) (value.Value, error) {
		return value.Int(math.MaxInt32), nil
	})
	rt.alias("getrandmax", "mt_getrandmax")
	seed := func(a ...value.Value) (value.Value, error) {
		s := uint64(intArg(a, 0, int64(rand.Uint64()>>1)))
		rng = rand.New(rand.NewPCG(s, s))
		return value.Null, nil
	}
	rt.def("mt_srand", "int seed = 0", seed)
	rt.def("srand", "int seed = 0", seed)

	base := func(name string, from, to int) {
		rt.def(name, "mixed num", func(a ...value.Value) (value.Value, error) {
			if from == 10 {
				return value.Str(strconv.FormatUint(uint64(value.ToInt(a[0])), to)), nil
			}
			s := strings.ToLower(value.Stringify(a[0]))
			n, _ := strconv.ParseInt(filterDigits(s, from), from, 64)
			return value.Int(n), nil
		})
	}
	base("decbin", 10, 2)
	base("dechex", 10, 16)
	base("decoct", 10, 8)
	base("bindec", 2, 10)
	base("hexdec", 16, 10)
	base("octdec", 8, 10)
	rt.def("base_convert", "string num, int from_base, int to_base", func(a ...value.Value) (value.Value, error) {
		from, to := int(a[1].AsInt()), int(a[2].AsInt())
		if from < 2 || from > 36 || to < 2 || to > 36 {
			return value.Null, errorf("ValueError", "base_convert(): Argument #2 ($from_base) must be between 2 and 36 (inclusive)")
		}
		n, _ := strconv.ParseUint(filterDigits(strings.ToLower(a[0].AsString()), from), from, 64)
		return value.Str(strconv.FormatUint(n, to)), nil
	})
}

// filterDigits drops characters that are not digits of base, as PHP does
func filterDigits(s string, base int) string {
	var b strings.Builder
	for _, r := range s {
		d := strings.IndexRune("0123456789abcdefghijklmnopqrstuvwxyz", r)
		if d >= 0 && d < base {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "0"
	}
	return b.String()
}

func extreme(name string, args []value.Value, dir int) (value.Value, error) {
	vals := args
	if len(args) == 1 {
		if args[0].Kind != value.KindArray {
			return value.Null, errorf("TypeError", "%s(): Argument #1 ($value) must be of type array, %s given", name, value.DebugType(args[0]))
		}
		vals = args[0].AsArray().Values()
		if len(vals) == 0 {
			return value.Null, errorf("ValueError", "%s(): Argument #1 ($value) must contain at least one element", name)
		}
	}
	best := vals[0]
	for _, v := range vals[1:] {
		if value.Compare(v, best)*dir > 0 {
			best = v
		}
	}
	return best, nil
}
