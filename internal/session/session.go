// Package session holds the immutable state threaded through console turns.
package session

import (
	"fmt"
	"slices"
	"strings"

	"github.com/itsmostafa/phunkie/internal/value"
)

// Alias maps a short name to a fully qualified name imported with use
type Alias struct {
	Alias    string
	FullName string
}

// Variable is one named binding
type Variable struct {
	Name  string
	Value value.Value
}

// entry is a history cell. Cells are never mutated, so sessions share
// their common prefix.
type entry struct {
	text string
	prev *entry
}

// Session is an immutable snapshot of console state. Every transformer
// returns a new Session and leaves the receiver unchanged.
type Session struct {
	vars         *value.Array
	history      *entry
	historyLen   int
	colorEnabled bool
	counter      int
	incomplete   string
	namespace    string
	hasNamespace bool
	aliases      []Alias
}

// New creates an empty session
func New(colorEnabled bool) Session {
	return Session{vars: value.NewArray(), colorEnabled: colorEnabled}
}

// Variable looks up a variable by name, including the leading $
func (s Session) Variable(name string) (value.Value, bool) {
	return s.vars.Get(value.StrKey(name))
}

// Vars returns the variable table as an immutable array keyed by name
func (s Session) Vars() *value.Array {
	if s.vars == nil {
		return value.NewArray()
	}
	return s.vars
}

// Variables returns the variables in definition order
func (s Session) Variables() []Variable {
	out := make([]Variable, 0, s.Vars().Len())
	for k, v := range s.Vars().All() {
		out = append(out, Variable{Name: k.String(), Value: v})
	}
	return out
}

// WithVariable binds name to v
func (s Session) WithVariable(name string, v value.Value) Session {
	s.vars = s.Vars().Set(value.StrKey(name), v)
	return s
}

// WithoutVariable removes name
func (s Session) WithoutVariable(name string) Session {
	s.vars = s.Vars().Delete(value.StrKey(name))
	return s
}

// WithVars replaces the whole variable table
func (s Session) WithVars(vars *value.Array) Session {
	s.vars = vars
	return s
}

// History returns the evaluated inputs, oldest first
func (s Session) History() []string {
	out := make([]string, s.historyLen)
	for i, e := s.historyLen-1, s.history; e != nil; i, e = i-1, e.prev {
		out[i] = e.text
	}
	return out
}

// WithHistory appends text to the history
func (s Session) WithHistory(text string) Session {
	s.history = &entry{text: text, prev: s.history}
	s.historyLen++
	return s
}

// ColorEnabled reports whether output is colored
func (s Session) ColorEnabled() bool { return s.colorEnabled }

// WithColor toggles colored output
func (s Session) WithColor(enabled bool) Session {
	s.colorEnabled = enabled
	return s
}

// Counter returns the index the next result variable will use
func (s Session) Counter() int { return s.counter }

// NextVariable returns the next result variable name and advances the counter
func (s Session) NextVariable() (string, Session) {
	name := fmt.Sprintf("$var%d", s.counter)
	s.counter++
	return name, s
}

// Incomplete returns the buffered multi-line input
func (s Session) Incomplete() string { return s.incomplete }

// WithIncomplete replaces the buffered multi-line input
func (s Session) WithIncomplete(buffer string) Session {
	s.incomplete = buffer
	return s
}

// Namespace returns the current namespace and whether one is set
func (s Session) Namespace() (string, bool) { return s.namespace, s.hasNamespace }

// WithNamespace sets the current namespace; an empty name clears it
func (s Session) WithNamespace(name string) Session {
	s.namespace = strings.Trim(name, `\`)
	s.hasNamespace = s.namespace != ""
	return s
}

// Aliases returns the use imports in declaration order
func (s Session) Aliases() []Alias { return slices.Clone(s.aliases) }

// Alias resolves a use alias. Aliases are matched case-insensitively.
func (s Session) Alias(name string) (string, bool) {
	for _, a := range s.aliases {
		if strings.EqualFold(a.Alias, name) {
			return a.FullName, true
		}
	}
	return "", false
}

// WithAlias adds or replaces a use import
func (s Session) WithAlias(alias, fullName string) Session {
	fullName = strings.TrimPrefix(fullName, `\`)
	out := make([]Alias, 0, len(s.aliases)+1)
	replaced := false
	for _, a := range s.aliases {
		if strings.EqualFold(a.Alias, alias) {
			a.FullName = fullName
			replaced = true
		}
		out = append(out, a)
	}
	if !replaced {
		out = append(out, Alias{Alias: alias, FullName: fullName})
	}
	s.aliases = out
	return s
}

// Reset clears everything except the color setting
func (s Session) Reset() Session {
	return New(s.colorEnabled)
}

// ResolveName qualifies a class or function name against the namespace and
// use aliases. A leading backslash marks an already qualified name.
func (s Session) ResolveName(name string) string {
	if strings.HasPrefix(name, `\`) {
		return name[1:]
	}
	first, rest, qualified := strings.Cut(name, `\`)
	if full, ok := s.Alias(first); ok {
		if qualified {
			return full + `\` + rest
		}
		return full
	}
	if s.hasNamespace {
		return s.namespace + `\` + name
	}
	return name
}
