package host

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"html"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/itsmostafa/phunkie/internal/value"
)

const defaultTrimChars = " \t\n\r\x00\x0B"

var (
	upper = cases.Upper(language.Und)
	lower = cases.Lower(language.Und)
)

func (rt *Runtime) registerStrings() {
	str := func(s string) (value.Value, error) { return value.Str(s), nil }

	rt.def("strlen", "string string", func(a ...value.Value) (value.Value, error) {
		return value.Int(int64(len(a[0].AsString()))), nil
	})
	rt.def("mb_strlen", "string string", func(a ...value.Value) (value.Value, error) {
		return value.Int(int64(utf8.RuneCountInString(a[0].AsString()))), nil
	})
	rt.def("strtoupper", "string string", func(a ...value.Value) (value.Value, error) {
		return str(strings.ToUpper(a[0].AsString()))
	})
	rt.def("strtolower", "string string", func(a ...value.Value) (value.Value, error) {
		return str(strings.ToLower(a[0].AsString()))
	})
	rt.def("mb_strtoupper", "string string", func(a ...value.Value) (value.Value, error) {
		return str(upper.String(a[0].AsString()))
	})
	rt.def("mb_strtolower", "string string", func(a ...value.Value) (value.Value, error) {
		return str(lower.String(a[0].AsString()))
	})
	rt.def("ucfirst", "string string", func(a ...value.Value) (value.Value, error) {
		return str(mapFirst(a[0].AsString(), upper))
	})
	rt.def("lcfirst", "string string", func(a ...value.Value) (value.Value, error) {
		return str(mapFirst(a[0].AsString(), lower))
	})
	rt.def("ucwords", "string string, string separators = ' \t\r\n\f\v'", func(a ...value.Value) (value.Value, error) {
		seps := " \t\r\n\f\v"
		if len(a) > 1 {
			seps = a[1].AsString()
		}
		return str(ucwords(a[0].AsString(), seps))
	})
	rt.def("trim", "string string, string characters = ' \n\r\t\v\x00'", func(a ...value.Value) (value.Value, error) {
		return str(strings.Trim(a[0].AsString(), trimMask(a)))
	})
	rt.def("ltrim", "string string, string characters = ' \n\r\t\v\x00'", func(a ...value.Value) (value.Value, error) {
		return str(strings.TrimLeft(a[0].AsString(), trimMask(a)))
	})
	rt.def("rtrim", "string string, string characters = ' \n\r\t\v\x00'", func(a ...value.Value) (value.Value, error) {
		return str(strings.TrimRight(a[0].AsString(), trimMask(a)))
	})
	rt.alias("chop", "rtrim")
	rt.def("str_repeat", "string string, int times", func(a ...value.Value) (value.Value, error) {
		n := a[1].AsInt()
		if n < 0 {
			return value.Null, errorf("ValueError", "str_repeat(): Argument #2 ($times) must be greater than or equal to 0")
		}
		return str(strings.Repeat(a[0].AsString(), int(n)))
	})
	rt.def("str_pad", "string string, int length, string pad_string = ' ', int pad_type = 1", func(a ...value.Value) (value.Value, error) {
		pad := " "
		if len(a) > 2 {
			pad = a[2].AsString()
		}
		if pad == "" {
			return value.Null, errorf("ValueError", "str_pad(): Argument #3 ($pad_string) must be a non-empty string")
		}
		return str(strPad(a[0].AsString(), int(a[1].AsInt()), pad, intArg(a, 3, padRight)))
	})
	rt.def("str_replace", "mixed search, mixed replace, mixed subject", func(a ...value.Value) (value.Value, error) {
		return strReplace(a[0], a[1], a[2], false), nil
	})
	rt.def("str_ireplace", "mixed search, mixed replace, mixed subject", func(a ...value.Value) (value.Value, error) {
		return strReplace(a[0], a[1], a[2], true), nil
	})
	rt.def("str_contains", "string haystack, string needle", func(a ...value.Value) (value.Value, error) {
		return value.Bool(strings.Contains(a[0].AsString(), a[1].AsString())), nil
	})
	rt.def("str_starts_with", "string haystack, string needle", func(a ...value.Value) (value.Value, error) {
		return value.Bool(strings.HasPrefix(a[0].AsString(), a[1].AsString())), nil
	})
	rt.def("str_ends_with", "string haystack, string needle", func(a ...value.Value) (value.Value, error) {
		return value.Bool(strings.HasSuffix(a[0].AsString(), a[1].AsString())), nil
	})
	rt.def("str_split", "string string, int length = 1", func(a ...value.Value) (value.Value, error) {
		n := int(intArg(a, 1, 1))
		if n < 1 {
			return value.Null, errorf("ValueError", "str_split(): Argument #2 ($length) must be greater than 0")
		}
		s := a[0].AsString()
		out := value.NewArray()
		if s == "" {
			out.Push(value.Str(""))
		}
		for len(s) > 0 {
			k := min(n, len(s))
			out.Push(value.Str(s[:k]))
			s = s[k:]
		}
		return value.Arr(out), nil
	})
	rt.def("mb_str_split", "string string, int length = 1", func(a ...value.Value) (value.Value, error) {
		n := int(intArg(a, 1, 1))
		runes := []rune(a[0].AsString())
		out := value.NewArray()
		for len(runes) > 0 && n > 0 {
			k := min(n, len(runes))
			out.Push(value.Str(string(runes[:k])))
			runes = runes[k:]
		}
		return value.Arr(out), nil
	})
	rt.def("substr", "string string, int offset, ?int length", func(a ...value.Value) (value.Value, error) {
		s := a[0].AsString()
		start, end := sliceBounds(len(s), a[1].AsInt(), argOr(a, 2, value.Null))
		return str(s[start:end])
	})
	rt.def("mb_substr", "string string, int start, ?int length", func(a ...value.Value) (value.Value, error) {
		r := []rune(a[0].AsString())
		start, end := sliceBounds(len(r), a[1].AsInt(), argOr(a, 2, value.Null))
		return str(string(r[start:end]))
	})
	rt.def("substr_count", "string haystack, string needle", func(a ...value.Value) (value.Value, error) {
		if a[1].AsString() == "" {
			return value.Null, errorf("ValueError", "substr_count(): Argument #2 ($needle) cannot be empty")
		}
		return value.Int(int64(strings.Count(a[0].AsString(), a[1].AsString()))), nil
	})
	rt.def("strpos", "string haystack, string needle, int offset = 0", func(a ...value.Value) (value.Value, error) {
		return strpos(a[0].AsString(), a[1].AsString(), intArg(a, 2, 0), false), nil
	})
	rt.def("stripos", "string haystack, string needle, int offset = 0", func(a ...value.Value) (value.Value, error) {
		return strpos(strings.ToLower(a[0].AsString()), strings.ToLower(a[1].AsString()), intArg(a, 2, 0), false), nil
	})
	rt.def("strrpos", "string haystack, string needle, int offset = 0", func(a ...value.Value) (value.Value, error) {
		return strpos(a[0].AsString(), a[1].AsString(), intArg(a, 2, 0), true), nil
	})
	rt.def("strstr", "string haystack, string needle, bool before_needle = false", func(a ...value.Value) (value.Value, error) {
		s, needle := a[0].AsString(), a[1].AsString()
		i := strings.Index(s, needle)
		if i < 0 {
			return value.Bool(false), nil
		}
		if boolArg(a, 2) {
			return str(s[:i])
		}
		return str(s[i:])
	})
	rt.def("strrev", "string string", func(a ...value.Value) (value.Value, error) {
		b := []byte(a[0].AsString())
		for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
			b[i], b[j] = b[j], b[i]
		}
		return str(string(b))
	})
	rt.def("strcmp", "string string1, string string2", func(a ...value.Value) (value.Value, error) {
		return value.Int(int64(strings.Compare(a[0].AsString(), a[1].AsString()))), nil
	})
	rt.def("strcasecmp", "string string1, string string2", func(a ...value.Value) (value.Value, error) {
		return value.Int(int64(strings.Compare(strings.ToLower(a[0].AsString()), strings.ToLower(a[1].AsString())))), nil
	})
	rt.def("str_word_count", "string string", func(a ...value.Value) (value.Value, error) {
		return value.Int(int64(len(strings.Fields(a[0].AsString())))), nil
	})
	rt.def("sprintf", "string format, mixed ...values", func(a ...value.Value) (value.Value, error) {
		s, err := sprintf(a[0].AsString(), a[1:])
		return value.Str(s), err
	})
	rt.def("vsprintf", "string format, array values", func(a ...value.Value) (value.Value, error) {
		s, err := sprintf(a[0].AsString(), a[1].AsArray().Values())
		return value.Str(s), err
	})
	rt.def("number_format", "float num, int decimals = 0, ?string decimal_separator = '.', ?string thousands_separator", func(a ...value.Value) (value.Value, error) {
		point, sep := ".", ","
		if len(a) > 2 && !a[2].IsNull() {
			point = a[2].AsString()
		}
		if len(a) > 3 && !a[3].IsNull() {
			sep = a[3].AsString()
		}
		return str(numberFormat(a[0].AsFloat(), int(intArg(a, 1, 0)), point, sep))
	})
	rt.def("implode", "mixed separator, ?array array", func(a ...value.Value) (value.Value, error) {
		sep, arr := a[0], argOr(a, 1, value.Null)
		if sep.Kind == value.KindArray {
			sep, arr = value.Str(""), sep
			if len(a) > 1 && a[1].Kind == value.KindString {
				sep = a[1]
			}
		}
		if arr.Kind != value.KindArray {
			return value.Null, errorf("TypeError", "implode(): Argument #2 ($array) must be of type ?array, %s given", value.DebugType(arr))
		}
		parts := make([]string, 0, arr.AsArray().Len())
		for _, v := range arr.AsArray().All() {
			s, err := value.ToStr(v)
			if err != nil {
				return value.Null, err
			}
			parts = append(parts, s)
		}
		return str(strings.Join(parts, value.Stringify(sep)))
	})
	rt.alias("join", "implode")
	rt.def("explode", "string separator, string string, int limit = PHP_INT_MAX", func(a ...value.Value) (value.Value, error) {
		sep := a[0].AsString()
		if sep == "" {
			return value.Null, errorf("ValueError", "explode(): Argument #1 ($separator) cannot be empty")
		}
		limit := intArg(a, 2, math.MaxInt64)
		if limit == 0 {
			limit = 1
		}
		return value.Arr(explode(sep, a[1].AsString(), limit)), nil
	})
	rt.def("nl2br", "string string", func(a ...value.Value) (value.Value, error) {
		r := strings.NewReplacer("\r\n", "<br />\r\n", "\n", "<br />\n", "\r", "<br />\r")
		return str(r.Replace(a[0].AsString()))
	})
	rt.def("wordwrap", "string string, int width = 75, string break = '\n', bool cut_long_words = false", func(a ...value.Value) (value.Value, error) {
		brk := "\n"
		if len(a) > 2 {
			brk = a[2].AsString()
		}
		return str(wordwrap(a[0].AsString(), int(intArg(a, 1, 75)), brk, boolArg(a, 3)))
	})
	rt.def("addslashes", "string string", func(a ...value.Value) (value.Value, error) {
		return str(value.AddSlashes(a[0].AsString()))
	})
	rt.def("htmlspecialchars", "string string", func(a ...value.Value) (value.Value, error) {
		return str(html.EscapeString(a[0].AsString()))
	})
	rt.def("html_entity_decode", "string string", func(a ...value.Value) (value.Value, error) {
		return str(html.UnescapeString(a[0].AsString()))
	})
	rt.def("md5", "string string", func(a ...value.Value) (value.Value, error) {
		sum := md5.Sum([]byte(a[0].AsString()))
		return str(hex.EncodeToString(sum[:]))
	})
	rt.def("sha1", "string string", func(a ...value.Value) (value.Value, error) {
		sum := sha1.Sum([]byte(a[0].AsString()))
		return str(hex.EncodeToString(sum[:]))
	})
	rt.def("crc32", "string string", func(a ...value.Value) (value.Value, error) {
		return value.Int(int64(crc32.ChecksumIEEE([]byte(a[0].AsString())))), nil
	})
	rt.def("bin2hex", "string string", func(a ...value.Value) (value.Value, error) {
		return str(hex.EncodeToString([]byte(a[0].AsString())))
	})
	rt.def("uniqid", "string prefix = ''", func(a ...value.Value) (value.Value, error) {
		now := time.Now()
		return str(fmt.Sprintf("%s%08x%05x", strArg(a, 0), now.Unix(), now.Nanosecond()/1000))
	})
	rt.def("chr", "int codepoint", func(a ...value.Value) (value.Value, error) {
		n := a[0].AsInt() % 256
		if n < 0 {
			n += 256
		}
		return str(string([]byte{byte(n)}))
	})
	rt.def("ord", "string character", func(a ...value.Value) (value.Value, error) {
		s := a[0].AsString()
		if s == "" {
			return value.Int(0), nil
		}
		return value.Int(int64(s[0])), nil
	})
	rt.def("lcg_value", "", func(...value.Value) (value.Value, error) {
		return value.Float(rng.Float64()), nil
	})
}

func mapFirst(s string, c cases.Caser) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return c.String(string(r)) + s[size:]
}

func ucwords(s, seps string) string {
	var b strings.Builder
	start := true
	for _, r := range s {
		if start {
			b.WriteString(upper.String(string(r)))
		} else {
			b.WriteRune(r)
		}
		start = strings.ContainsRune(seps, r)
	}
	return b.String()
}

// trimMask expands a PHP character list, including a..z ranges
func trimMask(args []value.Value) string {
	if len(args) < 2 {
		return defaultTrimChars
	}
	chars := args[1].AsString()
	var b strings.Builder
	for i := 0; i < len(chars); i++ {
		if i+3 < len(chars) && chars[i+1:i+3] == ".." {
			for c := int(chars[i]); c <= int(chars[i+3]); c++ {
				b.WriteByte(byte(c))
			}
			i += 3
			continue
		}
		b.WriteByte(chars[i])
	}
	return b.String()
}

func strPad(s string, length int, pad string, mode int64) string {
	missing := length - len(s)
	if missing <= 0 {
		return s
	}
	fill := func(n int) string {
		return strings.Repeat(pad, n/len(pad)+1)[:n]
	}
	switch mode {
	case padLeft:
		return fill(missing) + s
	case padBoth:
		left := missing / 2
		return fill(left) + s + fill(missing-left)
	default:
		return s + fill(missing)
	}
}

func replaceOne(subject, search, repl string, fold bool) string {
	if search == "" {
		return subject
	}
	if !fold {
		return strings.ReplaceAll(subject, search, repl)
	}
	var b strings.Builder
	ls, lsearch := strings.ToLower(subject), strings.ToLower(search)
	for {
		i := strings.Index(ls, lsearch)
		if i < 0 {
			b.WriteString(subject)
			return b.String()
		}
		b.WriteString(subject[:i])
		b.WriteString(repl)
		subject, ls = subject[i+len(search):], ls[i+len(search):]
	}
}

func strReplace(search, repl, subject value.Value, fold bool) value.Value {
	apply := func(s string) string {
		if search.Kind != value.KindArray {
			return replaceOne(s, value.Stringify(search), value.Stringify(repl), fold)
		}
		repls := []value.Value{}
		if repl.Kind == value.KindArray {
			repls = repl.AsArray().Values()
		}
		for i, needle := range search.AsArray().Values() {
			r := ""
			switch {
			case repl.Kind != value.KindArray:
				r = value.Stringify(repl)
			case i < len(repls):
				r = value.Stringify(repls[i])
			}
			s = replaceOne(s, value.Stringify(needle), r, fold)
		}
		return s
	}
	if subject.Kind == value.KindArray {
		out := value.NewArray()
		for k, v := range subject.AsArray().All() {
			out.Put(k, value.Str(apply(value.Stringify(v))))
		}
		return value.Arr(out)
	}
	return value.Str(apply(value.Stringify(subject)))
}

// sliceBounds resolves PHP substr offsets against a length n
func sliceBounds(n int, offset int64, length value.Value) (int, int) {
	start := int(offset)
	if start < 0 {
		start = max(n+start, 0)
	}
	start = min(start, n)
	end := n
	if !length.IsNull() {
		l := int(value.ToInt(length))
		if l < 0 {
			end = max(n+l, start)
		} else {
			end = min(start+l, n)
		}
	}
	return start, end
}

func strpos(s, needle string, offset int64, last bool) value.Value {
	if offset < 0 {
		offset += int64(len(s))
	}
	if offset < 0 || offset > int64(len(s)) {
		return value.Bool(false)
	}
	var i int
	if last {
		i = strings.LastIndex(s[offset:], needle)
	} else {
		i = strings.Index(s[offset:], needle)
	}
	if i < 0 {
		return value.Bool(false)
	}
	return value.Int(int64(i) + offset)
}

func explode(sep, s string, limit int64) *value.Array {
	parts := strings.Split(s, sep)
	switch {
	case limit > 0 && int64(len(parts)) > limit:
		rest := strings.Join(parts[limit-1:], sep)
		parts = append(parts[:limit-1], rest)
	case limit < 0:
		if -limit >= int64(len(parts)) {
			parts = nil
		} else {
			parts = parts[:int64(len(parts))+limit]
		}
	}
	out := value.NewArray()
	for _, p := range parts {
		out.Push(value.Str(p))
	}
	return out
}

func numberFormat(f float64, decimals int, point, sep string) string {
	decimals = max(decimals, 0)
	p := message.NewPrinter(language.English)
	s := p.Sprintf("%.*f", decimals, roundHalfUp(f, decimals))
	s = strings.NewReplacer(",", "\x00", ".", "\x01").Replace(s)
	return strings.NewReplacer("\x00", sep, "\x01", point).Replace(s)
}

func wordwrap(s string, width int, brk string, cut bool) string {
	var lines []string
	for _, para := range strings.Split(s, brk) {
		words := strings.Split(para, " ")
		line := ""
		for i, w := range words {
			for cut && len(w) > width && width > 0 {
				if line != "" {
					lines = append(lines, line)
					line = ""
				}
				lines = append(lines, w[:width])
				w = w[width:]
			}
			switch {
			case i == 0 || line == "":
				line += w
			case len(line)+1+len(w) <= width:
				line += " " + w
			default:
				lines = append(lines, line)
				line = w
			}
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, brk)
}
