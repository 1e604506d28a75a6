package host

import (
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/itsmostafa/phunkie/internal/value"
)

var closingDelimiter = map[byte]byte{'(': ')', '{': '}', '[': ']', '<': '>'}

// compilePattern turns a delimited PCRE pattern such as /a+/i into a
// regexp2 expression
func (rt *Runtime) compilePattern(fn, pattern string) (*regexp2.Regexp, error) {
	if re, ok := rt.patterns[pattern]; ok {
		return re, nil
	}
	p := strings.TrimLeft(pattern, " \t\n\r")
	if p == "" {
		return nil, errorf("ValueError", "%s(): Argument #1 ($pattern) must not be empty", fn)
	}
	delim := p[0]
	if delim == '\\' || (delim >= '0' && delim <= '9') || (delim|0x20 >= 'a' && delim|0x20 <= 'z') {
		return nil, errorf("Error", "%s(): Delimiter must not be alphanumeric, backslash, or NUL", fn)
	}
	end := delim
	if c, ok := closingDelimiter[delim]; ok {
		end = c
	}
	i := strings.LastIndexByte(p[1:], end)
	if i < 0 {
		return nil, errorf("Error", "%s(): No ending delimiter '%c' found", fn, end)
	}
	expr, mods := p[1:i+1], p[i+2:]

	opts := regexp2.None
	for _, m := range mods {
		switch m {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		case 'x':
			opts |= regexp2.IgnorePatternWhitespace
		case 'u', 'D', 'U', 'S', 'X', 'J', '\n', '\r', ' ':
		default:
			return nil, errorf("Error", "%s(): Unknown modifier '%c'", fn, m)
		}
	}
	expr = strings.ReplaceAll(expr, "(?P<", "(?<")
	re, err := regexp2.Compile(expr, opts)
	if err != nil {
		return nil, errorf("Error", "%s(): Compilation failed: %s", fn, err.Error())
	}
	if rt.patterns == nil {
		rt.patterns = make(map[string]*regexp2.Regexp)
	}
	rt.patterns[pattern] = re
	return re, nil
}

type runeText struct {
	runes []rune
}

// byteOffset converts a regexp2 rune index into a byte offset
func (t runeText) byteOffset(i int) int {
	return len(string(t.runes[:i]))
}

// groupsOf renders a match as PHP does: named groups appear under their
// name and their number, and unmatched trailing groups are dropped unless
// keepUnmatched is set
func groupsOf(re *regexp2.Regexp, m *regexp2.Match, text runeText, offsets, keepUnmatched bool) *value.Array {
	out := value.NewArray()
	groups := m.Groups()
	last := len(groups) - 1
	if !keepUnmatched {
		for last > 0 && len(groups[last].Captures) == 0 {
			last--
		}
	}
	for i := 0; i <= last; i++ {
		g := groups[i]
		var v value.Value
		matched := len(g.Captures) > 0
		switch {
		case offsets && matched:
			v = value.List(value.Str(g.String()), value.Int(int64(text.byteOffset(g.Index))))
		case offsets:
			v = value.List(value.Str(""), value.Int(-1))
		case matched:
			v = value.Str(g.String())
		case keepUnmatched:
			v = value.Null
		default:
			v = value.Str("")
		}
		if name := re.GroupNameFromNumber(i); name != strconv.Itoa(i) {
			out.Put(value.StrKey(name), v)
		}
		out.Put(value.IntKey(int64(i)), v)
	}
	return out
}

func allMatches(re *regexp2.Regexp, subject string, limit int) ([]*regexp2.Match, error) {
	var out []*regexp2.Match
	m, err := re.FindStringMatch(subject)
	for err == nil && m != nil && (limit < 0 || len(out) < limit) {
		out = append(out, m)
		m, err = re.FindNextMatch(m)
	}
	if err != nil {
		return nil, errorf("Error", "Backtrack limit exhausted: %s", err.Error())
	}
	return out, nil
}

// expandReplacement substitutes $n, ${n} and \n references
func expandReplacement(repl string, groups []regexp2.Group) string {
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		c := repl[i]
		if (c != '$' && c != '\\') || i+1 >= len(repl) {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		braced := c == '$' && repl[j] == '{'
		if braced {
			j++
		}
		k := j
		for k < len(repl) && k-j < 2 && repl[k] >= '0' && repl[k] <= '9' {
			k++
		}
		if k == j || (braced && (k >= len(repl) || repl[k] != '}')) {
			if c == '\\' && repl[j] == '\\' {
				b.WriteByte('\\')
				i++
				continue
			}
			b.WriteByte(c)
			continue
		}
		n, _ := strconv.Atoi(repl[j:k])
		if n < len(groups) {
			b.WriteString(groups[n].String())
		}
		if braced {
			k++
		}
		i = k - 1
	}
	return b.String()
}

func (rt *Runtime) replaceAll(fn string, pattern value.Value, subject string, limit int, replace func(m *regexp2.Match, i int) (string, error)) (string, int, error) {
	patterns := []value.Value{pattern}
	if pattern.Kind == value.KindArray {
		patterns = pattern.AsArray().Values()
	}
	count := 0
	for pi, p := range patterns {
		re, err := rt.compilePattern(fn, value.Stringify(p))
		if err != nil {
			return "", 0, err
		}
		matches, err := allMatches(re, subject, limit)
		if err != nil {
			return "", 0, err
		}
		runes := []rune(subject)
		var b strings.Builder
		prev := 0
		for _, m := range matches {
			b.WriteString(string(runes[prev:m.Index]))
			r, err := replace(m, pi)
			if err != nil {
				return "", 0, err
			}
			b.WriteString(r)
			prev = m.Index + m.Length
		}
		b.WriteString(string(runes[prev:]))
		subject = b.String()
		count += len(matches)
	}
	return subject, count, nil
}

func (rt *Runtime) registerRegex() {
	rt.def("preg_match", "string pattern, string subject, &array matches, int flags = 0, int offset = 0", func(a ...value.Value) (value.Value, error) {
		re, err := rt.compilePattern("preg_match", a[0].AsString())
		if err != nil {
			return value.Null, err
		}
		subject := a[1].AsString()
		text := runeText{[]rune(subject)}
		start := utf8Index(subject, int(intArg(a, 4, 0)))
		m, err := re.FindStringMatchStartingAt(subject, start)
		if err != nil {
			return value.Null, errorf("Error", "Backtrack limit exhausted: %s", err.Error())
		}
		flags := intArg(a, 3, 0)
		groups := value.NewArray()
		if m != nil {
			groups = groupsOf(re, m, text, flags&pregOffsetCapture != 0, flags&512 != 0)
		}
		if len(a) > 2 {
			a[2].AsRef().Value = value.Arr(groups)
		}
		if m == nil {
			return value.Int(0), nil
		}
		return value.Int(1), nil
	})
	rt.def("preg_match_all", "string pattern, string subject, &array matches, int flags = 1, int offset = 0", func(a ...value.Value) (value.Value, error) {
		re, err := rt.compilePattern("preg_match_all", a[0].AsString())
		if err != nil {
			return value.Null, err
		}
		subject := a[1].AsString()
		text := runeText{[]rune(subject)}
		matches, err := allMatches(re, subject, -1)
		if err != nil {
			return value.Null, err
		}
		offset := utf8Index(subject, int(intArg(a, 4, 0)))
		kept := matches[:0]
		for _, m := range matches {
			if m.Index >= offset {
				kept = append(kept, m)
			}
		}
		flags := intArg(a, 3, pregPatternOrder)
		offsets := flags&pregOffsetCapture != 0
		out := value.NewArray()
		if flags&pregSetOrder != 0 {
			for _, m := range kept {
				out.Push(value.Arr(groupsOf(re, m, text, offsets, false)))
			}
		} else {
			for _, n := range re.GetGroupNumbers() {
				col := value.NewArray()
				for _, m := range kept {
					g := m.GroupByNumber(n)
					switch {
					case offsets && g != nil && len(g.Captures) > 0:
						col.Push(value.List(value.Str(g.String()), value.Int(int64(text.byteOffset(g.Index)))))
					case g != nil && len(g.Captures) > 0:
						col.Push(value.Str(g.String()))
					default:
						col.Push(value.Str(""))
					}
				}
				if name := re.GroupNameFromNumber(n); name != strconv.Itoa(n) {
					out.Put(value.StrKey(name), value.Arr(col))
				}
				out.Put(value.IntKey(int64(n)), value.Arr(col))
			}
		}
		if len(a) > 2 {
			a[2].AsRef().Value = value.Arr(out)
		}
		return value.Int(int64(len(kept))), nil
	})
	rt.def("preg_replace", "mixed pattern, mixed replacement, mixed subject, int limit = -1", func(a ...value.Value) (value.Value, error) {
		limit := int(intArg(a, 3, -1))
		replFor := func(i int) string {
			if a[1].Kind != value.KindArray {
				return value.Stringify(a[1])
			}
			vals := a[1].AsArray().Values()
			if i < len(vals) {
				return value.Stringify(vals[i])
			}
			return ""
		}
		return rt.mapSubjects(a[2], func(s string) (string, error) {
			out, _, err := rt.replaceAll("preg_replace", a[0], s, limit, func(m *regexp2.Match, pi int) (string, error) {
				return expandReplacement(replFor(pi), m.Groups()), nil
			})
			return out, err
		})
	})
	rt.def("preg_replace_callback", "mixed pattern, callable callback, mixed subject, int limit = -1", func(a ...value.Value) (value.Value, error) {
		limit := int(intArg(a, 3, -1))
		return rt.mapSubjects(a[2], func(s string) (string, error) {
			text := runeText{[]rune(s)}
			out, _, err := rt.replaceAll("preg_replace_callback", a[0], s, limit, func(m *regexp2.Match, pi int) (string, error) {
				re, err := rt.compilePattern("preg_replace_callback", patternAt(a[0], pi))
				if err != nil {
					return "", err
				}
				r, err := rt.call(a[1], value.Arr(groupsOf(re, m, text, false, false)))
				if err != nil {
					return "", err
				}
				return value.ToStr(r)
			})
			return out, err
		})
	})
	rt.def("preg_split", "string pattern, string subject, int limit = -1, int flags = 0", func(a ...value.Value) (value.Value, error) {
		re, err := rt.compilePattern("preg_split", a[0].AsString())
		if err != nil {
			return value.Null, err
		}
		subject := a[1].AsString()
		runes := []rune(subject)
		text := runeText{runes}
		limit := int(intArg(a, 2, -1))
		if limit == 0 {
			limit = -1
		}
		flags := intArg(a, 3, 0)
		noEmpty := flags&pregSplitNoEmpty != 0
		out := value.NewArray()
		push := func(s string, at int) {
			if noEmpty && s == "" {
				return
			}
			if flags&pregSplitOffsetCapture != 0 {
				out.Push(value.List(value.Str(s), value.Int(int64(text.byteOffset(at)))))
				return
			}
			out.Push(value.Str(s))
		}
		matches, err := allMatches(re, subject, -1)
		if err != nil {
			return value.Null, err
		}
		prev := 0
		for _, m := range matches {
			if limit > 0 && out.Len() >= limit-1 {
				break
			}
			if m.Length == 0 && (m.Index == 0 || m.Index == len(runes)) {
				continue
			}
			push(string(runes[prev:m.Index]), prev)
			if flags&pregSplitDelimCapture != 0 {
				for _, g := range m.Groups()[1:] {
					if len(g.Captures) > 0 && (!noEmpty || g.Length > 0) {
						push(g.String(), g.Index)
					}
				}
			}
			prev = m.Index + m.Length
		}
		push(string(runes[prev:]), prev)
		return value.Arr(out), nil
	})
	rt.def("preg_quote", "string str, ?string delimiter", func(a ...value.Value) (value.Value, error) {
		special := `.\+*?[^]$(){}=!<>|:-#/`
		if len(a) > 1 && !a[1].IsNull() {
			special += a[1].AsString()
		}
		var b strings.Builder
		for _, r := range a[0].AsString() {
			if r == 0 {
				b.WriteString(`\000`)
				continue
			}
			if strings.ContainsRune(special, r) && r != '/' || (r == '/' && len(a) > 1 && a[1].AsString() == "/") {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
		return value.Str(b.String()), nil
	})
	rt.def("preg_grep", "string pattern, array array, int flags = 0", func(a ...value.Value) (value.Value, error) {
		re, err := rt.compilePattern("preg_grep", a[0].AsString())
		if err != nil {
			return value.Null, err
		}
		invert := intArg(a, 2, 0) == 1
		out := value.NewArray()
		for k, v := range a[1].AsArray().All() {
			ok, err := re.MatchString(value.Stringify(v))
			if err != nil {
				return value.Null, errorf("Error", "Backtrack limit exhausted: %s", err.Error())
			}
			if ok != invert {
				out.Put(k, v)
			}
		}
		return value.Arr(out), nil
	})
}

func patternAt(pattern value.Value, i int) string {
	if pattern.Kind == value.KindArray {
		return value.Stringify(pattern.AsArray().Values()[i])
	}
	return value.Stringify(pattern)
}

func (rt *Runtime) mapSubjects(subject value.Value, fn func(string) (string, error)) (value.Value, error) {
	if subject.Kind != value.KindArray {
		s, err := fn(value.Stringify(subject))
		return value.Str(s), err
	}
	out := value.NewArray()
	for k, v := range subject.AsArray().All() {
		s, err := fn(value.Stringify(v))
		if err != nil {
			return value.Null, err
		}
		out.Put(k, value.Str(s))
	}
	return value.Arr(out), nil
}

// utf8Index converts a byte offset into a rune index
func utf8Index(s string, offset int) int {
	if offset <= 0 {
		return 0
	}
	if offset > len(s) {
		offset = len(s)
	}
	return len([]rune(s[:offset]))
}
