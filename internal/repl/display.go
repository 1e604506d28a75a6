package repl

import (
	"fmt"
	"strings"

	"github.com/itsmostafa/phunkie/internal/result"
	"github.com/itsmostafa/phunkie/internal/session"
	"github.com/itsmostafa/phunkie/internal/value"
)

// display applies res to s, prints it and returns the new session along
// with the variable the value was bound to, if any. Side assignments land
// after the primary binding.
func (c *Console) display(res result.Result, s session.Session, input string) (session.Session, string) {
	s, name := c.present(res, res.ApplyScope(s).WithHistory(input))
	return res.ApplyBindings(s), name
}

func (c *Console) present(res result.Result, s session.Session) (session.Session, string) {
	switch res.Signal.Kind {
	case result.SignalNamespace:
		s = s.WithNamespace(res.Signal.Name)
		if ns, ok := s.Namespace(); ok {
			fmt.Fprintf(c.out, "Namespace set to: %s\n", ns)
		} else {
			fmt.Fprintln(c.out, "Namespace cleared")
		}
		return s, ""

	case result.SignalImport:
		for _, a := range res.Signal.Aliases {
			s = s.WithAlias(a.Alias, a.FullName)
		}
		noun := "class/function"
		if len(res.Signal.Aliases) != 1 {
			noun = "classes/functions"
		}
		fmt.Fprintf(c.out, "Imported %d %s\n", len(res.Signal.Aliases), noun)
		return s, ""

	case result.SignalSilent:
		switch res.Type {
		case "Trait", "Interface", "Class":
			formatDeclared(c.out, c.st, strings.ToLower(res.Type), declaredName(res))
		case "EnumDefinition":
			formatEnum(c.out, c.st, declaredName(res))
		}
		return s, ""

	case result.SignalBind:
		name := res.Signal.Name
		if strings.HasPrefix(name, "$") {
			s = s.WithVariable(name, res.Value)
		}
		switch res.Type {
		case "Function":
			formatDeclared(c.out, c.st, "function", strings.TrimPrefix(name, "$"))
		case "Class", "Interface", "Trait":
			formatDeclared(c.out, c.st, strings.ToLower(res.Type), name)
		case "EnumDefinition":
			formatEnum(c.out, c.st, name)
		default:
			formatBinding(c.out, c.st, name, res.Type, value.Format(res.Value))
		}
		return s, name
	}

	if res.SideEffectOnly {
		fmt.Fprintln(c.out)
		return s, ""
	}

	name, s := s.NextVariable()
	s = s.WithVariable(name, res.Value)
	formatBinding(c.out, c.st, name, res.Type, value.Format(res.Value))
	return s, name
}

func declaredName(res result.Result) string {
	if res.Value.Kind == value.KindString {
		return res.Value.AsString()
	}
	return ""
}

// kindOf returns the kind of a display type: type constructors take one
// type argument, everything else is a proper type
func kindOf(typ string) string {
	base, _, generic := strings.Cut(typ, "<")
	switch {
	case generic, base == "Array", base == "Generator":
		return "* -> *"
	}
	return "*"
}
