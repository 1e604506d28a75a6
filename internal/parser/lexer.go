package parser

import (
	"fmt"
	"strings"
)

// TokenType enumerates lexical token kinds
type TokenType int

const (
	EOF TokenType = iota
	Variable
	Ident
	IntLit
	FloatLit
	StringLit
	Template
	Cast
	Op
)

var tokenNames = map[TokenType]string{
	EOF:       "end of file",
	Variable:  "variable",
	Ident:     "identifier",
	IntLit:    "integer",
	FloatLit:  "float",
	StringLit: "string",
	Template:  "string",
	Cast:      "cast",
	Op:        "operator",
}

func (t TokenType) String() string { return tokenNames[t] }

// Token is one lexical token
type Token struct {
	Type  TokenType
	Value string
	Line  int
	// Heredoc marks a Template lexed from heredoc syntax
	Heredoc bool
}

func (t Token) describe() string {
	switch t.Type {
	case EOF:
		return "end of file"
	case Variable:
		return fmt.Sprintf(`variable "$%s"`, t.Value)
	case StringLit, Template:
		return fmt.Sprintf(`double-quoted string "%s"`, t.Value)
	case IntLit:
		return fmt.Sprintf(`integer "%s"`, t.Value)
	case FloatLit:
		return fmt.Sprintf(`floating-point number "%s"`, t.Value)
	case Ident:
		return fmt.Sprintf(`identifier "%s"`, t.Value)
	default:
		return fmt.Sprintf(`token "%s"`, t.Value)
	}
}

// operators sorted longest first so the lexer can match greedily
var operators = []string{
	"<<=", ">>=", "**=", "...", "<=>", "===", "!==", "??=", "?->",
	"++", "--", "->", "=>", "::", "==", "!=", "<>", "<=", ">=", "&&", "||", "??",
	"+=", "-=", "*=", "/=", ".=", "%=", "&=", "|=", "^=", "<<", ">>", "**",
	"+", "-", "*", "/", "%", "=", "<", ">", "!", ".", ",", ";", "(", ")",
	"[", "]", "{", "}", "?", ":", "&", "|", "^", "~", "@", "$", `\`,
}

var castTypes = map[string]string{
	"int": "int", "integer": "int",
	"float": "float", "double": "float", "real": "float",
	"string": "string", "binary": "string",
	"bool": "bool", "boolean": "bool",
	"array": "array", "object": "object", "unset": "unset",
}

type lexError struct {
	line int
	msg  string
}

func (e *lexError) Error() string { return fmt.Sprintf("%s on line %d", e.msg, e.line) }

type lexer struct {
	src    string
	pos    int
	line   int
	tokens []Token
}

// Lex splits src into tokens
func Lex(src string) ([]Token, error) {
	l := &lexer{src: src, line: 1}
	if err := l.run(); err != nil {
		return nil, err
	}
	return l.tokens, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (l *lexer) peekByte(off int) byte {
	if l.pos+off < len(l.src) {
		return l.src[l.pos+off]
	}
	return 0
}

func (l *lexer) emit(t TokenType, v string, line int) {
	l.tokens = append(l.tokens, Token{Type: t, Value: v, Line: line})
}

func (l *lexer) run() error {
	if strings.HasPrefix(strings.TrimLeft(l.src, " \t\r\n"), "<?php") {
		idx := strings.Index(l.src, "<?php")
		l.line += strings.Count(l.src[:idx], "\n")
		l.pos = idx + len("<?php")
	}

	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r' || c == '\v' || c == '\f':
			l.pos++
		case c == '#' && l.peekByte(1) == '[':
			if err := l.skipAttribute(); err != nil {
				return err
			}
		case c == '#' || (c == '/' && l.peekByte(1) == '/'):
			l.skipLineComment()
		case c == '/' && l.peekByte(1) == '*':
			if err := l.skipBlockComment(); err != nil {
				return err
			}
		case c == '?' && l.peekByte(1) == '>':
			l.emit(Op, ";", l.line)
			l.pos += 2
		case c == '$' && isIdentStart(l.peekByte(1)):
			start := l.pos + 1
			l.pos++
			for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
				l.pos++
			}
			l.emit(Variable, l.src[start:l.pos], l.line)
		case isIdentStart(c) || (c == '\\' && isIdentStart(l.peekByte(1))):
			l.lexName()
		case isDigit(c) || (c == '.' && isDigit(l.peekByte(1))):
			if err := l.lexNumber(); err != nil {
				return err
			}
		case c == '\'':
			if err := l.lexSingleQuoted(); err != nil {
				return err
			}
		case c == '"':
			if err := l.lexDoubleQuoted(); err != nil {
				return err
			}
		case c == '<' && strings.HasPrefix(l.src[l.pos:], "<<<"):
			ok, err := l.lexHeredoc()
			if err != nil {
				return err
			}
			if !ok {
				l.lexOperator()
			}
		case c == '(' && l.lexCast():
		default:
			if !l.lexOperator() {
				return &lexError{line: l.line, msg: fmt.Sprintf(`Syntax error, unexpected character "%c"`, c)}
			}
		}
	}
	l.emit(EOF, "", l.line)
	return nil
}

func (l *lexer) skipLineComment() {
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		if strings.HasPrefix(l.src[l.pos:], "?>") {
			return
		}
		l.pos++
	}
}

func (l *lexer) skipBlockComment() error {
	start := l.line
	end := strings.Index(l.src[l.pos+2:], "*/")
	if end < 0 {
		return &lexError{line: start, msg: fmt.Sprintf("Unterminated comment starting line %d", start)}
	}
	body := l.src[l.pos : l.pos+2+end+2]
	l.line += strings.Count(body, "\n")
	l.pos += len(body)
	return nil
}

// skipAttribute drops an attribute group, honoring nested brackets and strings
func (l *lexer) skipAttribute() error {
	start := l.line
	depth := 0
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				l.pos++
				return nil
			}
		case '\n':
			l.line++
		case '\'', '"':
			quote := c
			l.pos++
			for l.pos < len(l.src) && l.src[l.pos] != quote {
				if l.src[l.pos] == '\\' {
					l.pos++
				}
				l.pos++
			}
		}
		l.pos++
	}
	return &lexError{line: start, msg: "Syntax error, unexpected end of file"}
}

func (l *lexer) lexName() {
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if isIdentChar(c) {
			l.pos++
			continue
		}
		if c == '\\' && isIdentStart(l.peekByte(1)) {
			l.pos++
			continue
		}
		break
	}
	l.emit(Ident, l.src[start:l.pos], l.line)
}

func (l *lexer) lexNumber() error {
	start := l.pos
	src := l.src
	if src[l.pos] == '0' && l.pos+1 < len(src) && strings.ContainsRune("xXbBoO", rune(src[l.pos+1])) {
		l.pos += 2
		for l.pos < len(src) && (isIdentChar(src[l.pos])) {
			l.pos++
		}
		l.emit(IntLit, src[start:l.pos], l.line)
		return nil
	}

	isFloat := false
	digits := func() {
		for l.pos < len(src) && (isDigit(src[l.pos]) || (src[l.pos] == '_' && l.pos+1 < len(src) && isDigit(src[l.pos+1]))) {
			l.pos++
		}
	}
	digits()
	if l.pos+1 < len(src) && src[l.pos] == '.' && isDigit(src[l.pos+1]) {
		isFloat = true
		l.pos++
		digits()
	}
	if l.pos < len(src) && (src[l.pos] == 'e' || src[l.pos] == 'E') {
		j := l.pos + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j < len(src) && isDigit(src[j]) {
			isFloat = true
			l.pos = j
			digits()
		}
	}
	if isFloat {
		l.emit(FloatLit, src[start:l.pos], l.line)
	} else {
		l.emit(IntLit, src[start:l.pos], l.line)
	}
	return nil
}

func (l *lexer) lexSingleQuoted() error {
	startLine := l.line
	l.pos++
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\\' && (l.peekByte(1) == '\'' || l.peekByte(1) == '\\'):
			b.WriteByte(l.src[l.pos+1])
			l.pos += 2
		case c == '\'':
			l.pos++
			l.emit(StringLit, b.String(), startLine)
			return nil
		default:
			if c == '\n' {
				l.line++
			}
			b.WriteByte(c)
			l.pos++
		}
	}
	return &lexError{line: startLine, msg: "Syntax error, unexpected end of file, unterminated string"}
}

func (l *lexer) lexDoubleQuoted() error {
	startLine := l.line
	l.pos++
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case '\\':
			l.pos += 2
			continue
		case '\n':
			l.line++
		case '"':
			l.tokens = append(l.tokens, Token{Type: Template, Value: l.src[start:l.pos], Line: startLine})
			l.pos++
			return nil
		}
		l.pos++
	}
	return &lexError{line: startLine, msg: "Syntax error, unexpected end of file, unterminated string"}
}

// lexHeredoc reads <<<ID ... ID and <<<'ID' ... ID. It reports false when
// the text after <<< is not a heredoc opener.
func (l *lexer) lexHeredoc() (bool, error) {
	i := l.pos + 3
	for i < len(l.src) && (l.src[i] == ' ' || l.src[i] == '\t') {
		i++
	}
	quote := byte(0)
	if i < len(l.src) && (l.src[i] == '\'' || l.src[i] == '"') {
		quote = l.src[i]
		i++
	}
	idStart := i
	for i < len(l.src) && isIdentChar(l.src[i]) {
		i++
	}
	if i == idStart {
		return false, nil
	}
	ident := l.src[idStart:i]
	if quote != 0 {
		if i >= len(l.src) || l.src[i] != quote {
			return false, nil
		}
		i++
	}
	if i < len(l.src) && l.src[i] == '\r' {
		i++
	}
	if i >= len(l.src) || l.src[i] != '\n' {
		return false, nil
	}
	startLine := l.line
	i++
	bodyStart := i

	lines := strings.SplitAfter(l.src[bodyStart:], "\n")
	offset := bodyStart
	for n, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, ident) && (len(trimmed) == len(ident) || !isIdentChar(trimmed[len(ident)])) {
			indent := len(line) - len(trimmed)
			body := lines[:n]
			text := dedent(body, indent)
			l.pos = offset + indent + len(ident)
			l.line = startLine + n + 1
			if quote == '\'' {
				l.emit(StringLit, text, startLine)
			} else {
				l.tokens = append(l.tokens, Token{Type: Template, Value: text, Line: startLine, Heredoc: true})
			}
			return true, nil
		}
		offset += len(line)
	}
	return false, &lexError{line: startLine, msg: "Syntax error, unexpected end of file, unterminated heredoc"}
}

func dedent(lines []string, indent int) string {
	var b strings.Builder
	for _, line := range lines {
		n := 0
		for n < indent && n < len(line) && (line[n] == ' ' || line[n] == '\t') {
			n++
		}
		b.WriteString(line[n:])
	}
	return strings.TrimSuffix(strings.TrimSuffix(b.String(), "\n"), "\r")
}

// lexCast recognises (int), (string) and friends
func (l *lexer) lexCast() bool {
	i := l.pos + 1
	for i < len(l.src) && (l.src[i] == ' ' || l.src[i] == '\t') {
		i++
	}
	start := i
	for i < len(l.src) && isIdentChar(l.src[i]) {
		i++
	}
	word := strings.ToLower(l.src[start:i])
	for i < len(l.src) && (l.src[i] == ' ' || l.src[i] == '\t') {
		i++
	}
	if i >= len(l.src) || l.src[i] != ')' {
		return false
	}
	to, ok := castTypes[word]
	if !ok {
		return false
	}
	l.emit(Cast, to, l.line)
	l.pos = i + 1
	return true
}

func (l *lexer) lexOperator() bool {
	rest := l.src[l.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			l.emit(Op, op, l.line)
			l.pos += len(op)
			return true
		}
	}
	return false
}
