package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/itsmostafa/phunkie/internal/ast"
)

// interpolate decodes a double-quoted or heredoc body into a string
// literal, or into an Interpolated node when it embeds variables
func interpolate(raw string, heredoc bool) (ast.Expr, error) {
	var (
		parts []ast.Expr
		lit   strings.Builder
		dyn   bool
	)
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, &ast.StringLit{Value: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(raw); {
		c := raw[i]
		switch {
		case c == '\\' && i+1 < len(raw):
			n := decodeEscape(raw[i+1:], heredoc, &lit)
			i += 1 + n
		case c == '$' && i+1 < len(raw) && isIdentStart(raw[i+1]):
			expr, n := simpleInterpolation(raw[i:])
			flush()
			parts = append(parts, expr)
			dyn = true
			i += n
		case c == '{' && i+1 < len(raw) && raw[i+1] == '$':
			end := matchBrace(raw, i)
			if end < 0 {
				return nil, fmt.Errorf("Syntax error, unexpected end of file in interpolated string")
			}
			expr, err := ParseExpr(raw[i+1 : end])
			if err != nil {
				return nil, err
			}
			flush()
			parts = append(parts, expr)
			dyn = true
			i = end + 1
		case c == '$' && i+1 < len(raw) && raw[i+1] == '{':
			end := matchBrace(raw, i+1)
			if end < 0 {
				return nil, fmt.Errorf("Syntax error, unexpected end of file in interpolated string")
			}
			inner := raw[i+2 : end]
			var expr ast.Expr
			if isPlainName(inner) {
				expr = &ast.Variable{Name: inner}
			} else {
				nameExpr, err := ParseExpr(inner)
				if err != nil {
					return nil, err
				}
				expr = &ast.Variable{NameExpr: nameExpr}
			}
			flush()
			parts = append(parts, expr)
			dyn = true
			i = end + 1
		default:
			lit.WriteByte(c)
			i++
		}
	}

	if !dyn {
		return &ast.StringLit{Value: lit.String()}, nil
	}
	flush()
	return &ast.Interpolated{Parts: parts}, nil
}

func isPlainName(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	return true
}

// decodeEscape writes the escape starting after a backslash and returns
// how many bytes it consumed
func decodeEscape(s string, heredoc bool, b *strings.Builder) int {
	switch s[0] {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'v':
		b.WriteByte('\v')
	case 'e':
		b.WriteByte(0x1b)
	case 'f':
		b.WriteByte('\f')
	case '\\':
		b.WriteByte('\\')
	case '$':
		b.WriteByte('$')
	case '"':
		if heredoc {
			b.WriteString(`\"`)
		} else {
			b.WriteByte('"')
		}
	case 'x':
		n := 1
		for n < len(s) && n < 3 && isHex(s[n]) {
			n++
		}
		if n == 1 {
			b.WriteString(`\x`)
			return 1
		}
		v, _ := strconv.ParseUint(s[1:n], 16, 8)
		b.WriteByte(byte(v))
		return n
	case 'u':
		if len(s) > 2 && s[1] == '{' {
			if end := strings.IndexByte(s, '}'); end > 2 {
				if v, err := strconv.ParseUint(s[2:end], 16, 32); err == nil {
					b.WriteString(string(rune(v)))
					return end + 1
				}
			}
		}
		b.WriteString(`\u`)
	case '0', '1', '2', '3', '4', '5', '6', '7':
		n := 1
		for n < len(s) && n < 3 && s[n] >= '0' && s[n] <= '7' {
			n++
		}
		v, _ := strconv.ParseUint(s[:n], 8, 16)
		b.WriteByte(byte(v))
		return n
	default:
		b.WriteByte('\\')
		r, size := utf8.DecodeRuneInString(s)
		b.WriteRune(r)
		return size
	}
	return 1
}

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// simpleInterpolation reads $name, $name[key] and $name->prop from s
func simpleInterpolation(s string) (ast.Expr, int) {
	i := 1
	for i < len(s) && isIdentChar(s[i]) {
		i++
	}
	var expr ast.Expr = &ast.Variable{Name: s[1:i]}

	switch {
	case i < len(s) && s[i] == '[':
		end := strings.IndexByte(s[i:], ']')
		if end < 0 {
			return expr, i
		}
		key := s[i+1 : i+end]
		var idx ast.Expr
		switch {
		case strings.HasPrefix(key, "$") && isPlainName(key[1:]):
			idx = &ast.Variable{Name: key[1:]}
		case isIntKey(key):
			n, _ := strconv.ParseInt(key, 10, 64)
			idx = &ast.IntLit{Value: n}
		case len(key) >= 2 && key[0] == '\'' && key[len(key)-1] == '\'':
			idx = &ast.StringLit{Value: key[1 : len(key)-1]}
		case isPlainName(key):
			idx = &ast.StringLit{Value: key}
		default:
			return expr, i
		}
		return &ast.Index{Target: expr, Index: idx}, i + end + 1
	case strings.HasPrefix(s[i:], "->") && i+2 < len(s) && isIdentStart(s[i+2]):
		j := i + 2
		for j < len(s) && isIdentChar(s[j]) {
			j++
		}
		return &ast.PropertyFetch{Object: expr, Name: s[i+2 : j]}, j
	case strings.HasPrefix(s[i:], "?->") && i+3 < len(s) && isIdentStart(s[i+3]):
		j := i + 3
		for j < len(s) && isIdentChar(s[j]) {
			j++
		}
		return &ast.PropertyFetch{Object: expr, Name: s[i+3 : j], NullSafe: true}, j
	}
	return expr, i
}

func isIntKey(s string) bool {
	if strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// matchBrace returns the index of the brace closing the one at open
func matchBrace(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
