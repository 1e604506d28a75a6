// Package detector decides whether buffered console input forms a complete
// fragment or needs more lines.
package detector

import (
	"regexp"
	"strings"

	"github.com/dlclark/regexp2"
)

var (
	trailingAttribute = regexp.MustCompile(`#\[[^\]]*\]\s*$`)
	attribute         = regexp.MustCompile(`#\[[^\]]*\]`)
	declarationWord   = regexp.MustCompile(`\b(class|interface|trait|enum|function|public|protected|private|readonly)\b`)

	// heredocOpen needs a backreference to pair the optional quotes
	heredocOpen = regexp2.MustCompile(`<<<\s*(['"]?)([A-Za-z_][A-Za-z0-9_]*)\1`, regexp2.None)
)

// IsComplete reports whether input is balanced and ready for parsing.
// Trailing binary operators are not detected here; the parser rejects them.
func IsComplete(input string) bool {
	trimmed := strings.TrimSpace(input)

	if trailingAttribute.MatchString(trimmed) {
		return false
	}
	if locs := attribute.FindAllStringIndex(trimmed, -1); len(locs) > 0 {
		after := trimmed[locs[len(locs)-1][1]:]
		if strings.TrimSpace(after) == "" && !declarationWord.MatchString(after) {
			return false
		}
	}

	if !heredocClosed(input) {
		return false
	}

	return balanced(input)
}

// heredocClosed reports false when a heredoc or nowdoc opener has no
// closing identifier line yet.
func heredocClosed(input string) bool {
	m, err := heredocOpen.FindStringMatch(input)
	if err != nil || m == nil {
		return true
	}
	ident := m.GroupByNumber(2).String()
	closing := regexp.MustCompile(`^\s*` + regexp.QuoteMeta(ident) + `\s*;?\s*$`)

	lines := strings.Split(input, "\n")
	opened := false
	for _, line := range lines {
		if !opened {
			if ok, _ := heredocOpen.MatchString(line); ok {
				opened = true
			}
			continue
		}
		if closing.MatchString(line) {
			return true
		}
	}
	return !opened
}

// balanced counts braces, brackets and parentheses outside quoted strings
func balanced(input string) bool {
	braces, brackets, parens := 0, 0, 0
	inDouble, inSingle, escape := false, false, false

	for i := 0; i < len(input); i++ {
		c := input[i]
		if escape {
			escape = false
			continue
		}
		switch {
		case c == '\\':
			escape = true
			continue
		case c == '"' && !inSingle:
			inDouble = !inDouble
			continue
		case c == '\'' && !inDouble:
			inSingle = !inSingle
			continue
		}
		if inDouble || inSingle {
			continue
		}
		switch c {
		case '{':
			braces++
		case '}':
			braces--
		case '[':
			brackets++
		case ']':
			brackets--
		case '(':
			parens++
		case ')':
			parens--
		}
	}

	return braces == 0 && brackets == 0 && parens == 0 && !inDouble && !inSingle
}
