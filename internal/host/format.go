package host

import (
	"strconv"
	"strings"

	"github.com/itsmostafa/phunkie/internal/value"
)

// sprintf implements PHP's format directives:
// %[argnum$][flags][width][.precision]specifier
func sprintf(format string, args []value.Value) (string, error) {
	var b strings.Builder
	next := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(format) {
			return "", errorf("ValueError", "Missing format specifier at end of string")
		}
		if format[i] == '%' {
			b.WriteByte('%')
			continue
		}

		argnum := -1
		if j := i; j < len(format) {
			for j < len(format) && format[j] >= '0' && format[j] <= '9' {
				j++
			}
			if j < len(format) && j > i && format[j] == '$' {
				n, _ := strconv.Atoi(format[i:j])
				if n == 0 {
					return "", errorf("ValueError", "Argument number specifier must be greater than zero and less than %d", 2147483647)
				}
				argnum = n - 1
				i = j + 1
			}
		}

		left, plus, padChar := false, false, byte(' ')
	flags:
		for i < len(format) {
			switch format[i] {
			case '-':
				left = true
			case '+':
				plus = true
			case '0':
				padChar = '0'
			case ' ':
				padChar = ' '
			case '\'':
				if i+1 < len(format) {
					i++
					padChar = format[i]
				}
			default:
				break flags
			}
			i++
		}

		width := 0
		for i < len(format) && format[i] >= '0' && format[i] <= '9' {
			width = width*10 + int(format[i]-'0')
			i++
		}
		precision := -1
		if i < len(format) && format[i] == '.' {
			i++
			precision = 0
			for i < len(format) && format[i] >= '0' && format[i] <= '9' {
				precision = precision*10 + int(format[i]-'0')
				i++
			}
		}
		if i >= len(format) {
			return "", errorf("ValueError", "Missing format specifier at end of string")
		}
		spec := format[i]

		idx := argnum
		if idx < 0 {
			idx = next
			next++
		}
		if idx >= len(args) {
			return "", errorf("ArgumentCountError", "%d arguments are required, %d given", idx+2, len(args)+1)
		}
		arg := args[idx]

		var s string
		switch spec {
		case 'd', 'i':
			n := value.ToInt(arg)
			s = strconv.FormatInt(n, 10)
			if plus && n >= 0 {
				s = "+" + s
			}
		case 'u':
			s = strconv.FormatUint(uint64(value.ToInt(arg)), 10)
		case 'f', 'F':
			if precision < 0 {
				precision = 6
			}
			f := value.ToFloat(arg)
			s = strconv.FormatFloat(roundHalfUp(f, precision), 'f', precision, 64)
			if plus && f >= 0 {
				s = "+" + s
			}
		case 'e', 'E':
			if precision < 0 {
				precision = 6
			}
			s = strconv.FormatFloat(value.ToFloat(arg), byte(spec), precision, 64)
			s = strings.Replace(strings.Replace(s, "e+0", "e+", 1), "e-0", "e-", 1)
			s = strings.Replace(strings.Replace(s, "E+0", "E+", 1), "E-0", "E-", 1)
		case 'g', 'G':
			if precision < 0 {
				precision = 6
			}
			s = strconv.FormatFloat(value.ToFloat(arg), byte(spec), precision, 64)
		case 's':
			str, err := value.ToStr(arg)
			if err != nil {
				return "", err
			}
			s = str
			if precision >= 0 && precision < len(s) {
				s = s[:precision]
			}
		case 'x':
			s = strconv.FormatUint(uint64(value.ToInt(arg)), 16)
		case 'X':
			s = strings.ToUpper(strconv.FormatUint(uint64(value.ToInt(arg)), 16))
		case 'o':
			s = strconv.FormatUint(uint64(value.ToInt(arg)), 8)
		case 'b':
			s = strconv.FormatUint(uint64(value.ToInt(arg)), 2)
		case 'c':
			s = string([]byte{byte(value.ToInt(arg))})
		default:
			return "", errorf("ValueError", "Unknown format specifier \"%c\"", spec)
		}

		if pad := width - len(s); pad > 0 {
			switch {
			case left && padChar == '0':
				s += strings.Repeat(" ", pad)
			case left:
				s += strings.Repeat(string(padChar), pad)
			case padChar == '0' && len(s) > 0 && (s[0] == '-' || s[0] == '+'):
				s = s[:1] + strings.Repeat("0", pad) + s[1:]
			default:
				s = strings.Repeat(string(padChar), pad) + s
			}
		}
		b.WriteString(s)
	}
	return b.String(), nil
}
