package repl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/itsmostafa/phunkie/internal/replerr"
	"github.com/itsmostafa/phunkie/internal/result"
	"github.com/itsmostafa/phunkie/internal/session"
	"github.com/itsmostafa/phunkie/internal/value"
)

const helpText = `
Phunkie Console - REPL Commands:

  :help           Show this help message
  :exit           Exit the REPL (also :quit, Ctrl-C, Ctrl-D)
  :vars           List all defined variables
  :history        Show command history
  :reset          Reset the REPL state (clear all variables and history)
  :load <file>    Load a .phunkie or .php file (functions & classes become available)
  :import <spec>  Import library functions (module/function, module/* or package::module/function)
  :type <expr>    Show the type of an expression
  :kind <expr>    Show the kind of an expression's type (also :k)

Evaluate any PHP expression or statement:
  [1, 2, 3]
  array_map(fn($x) => $x + 1, $var0)
  function greet($name) { return "Hello, $name"; }
`

// command runs a colon command. Commands that take an argument are only
// recognised when one is given.
func (c *Console) command(input string, s session.Session) (Bounce, error) {
	name, arg := splitCommand(input)
	c.logger.Debug("command", "name", name)

	if arg != "" {
		switch name {
		case ":load":
			return more(c.load(arg, s)), nil
		case ":import":
			c.importFunctions(arg)
			return more(s), nil
		case ":type":
			c.showType(arg, s)
			return more(s), nil
		case ":kind", ":k":
			c.showKind(arg, s)
			return more(s), nil
		}
	} else {
		switch name {
		case ":exit", ":quit":
			c.exit()
			return done, nil
		case ":help":
			fmt.Fprintln(c.out, helpText)
			return more(s), nil
		case ":vars":
			c.printVariables(s)
			return more(s), nil
		case ":history":
			c.printHistory(s)
			return more(s), nil
		case ":reset":
			c.rt.Reset()
			fmt.Fprintln(c.out, "REPL state reset")
			return more(s.Reset()), nil
		}
	}

	err := &replerr.CommandError{Command: input, Reason: "Unknown command: " + input}
	if c.cfg.Script {
		return done, err
	}
	c.printError(err)
	return more(s), nil
}

// splitCommand separates the command word from its trimmed argument
func splitCommand(input string) (string, string) {
	i := strings.IndexFunc(input, unicode.IsSpace)
	if i < 0 {
		return input, ""
	}
	return input[:i], strings.TrimSpace(input[i:])
}

func (c *Console) printVariables(s session.Session) {
	vars := s.Variables()
	if len(vars) == 0 {
		fmt.Fprintln(c.out, "No variables defined")
		return
	}
	var b strings.Builder
	b.WriteString("\nDefined variables:\n")
	for _, v := range vars {
		fmt.Fprintf(&b, "  %s = %s\n", v.Name, value.Export(v.Value))
	}
	fmt.Fprintln(c.out, b.String())
}

func (c *Console) printHistory(s session.Session) {
	history := s.History()
	if len(history) == 0 {
		fmt.Fprintln(c.out, "No history")
		return
	}
	var b strings.Builder
	b.WriteString("\nCommand history:\n")
	for i, entry := range history {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, entry)
	}
	fmt.Fprintln(c.out, b.String())
}

// load evaluates a source file. Its declarations and variables are kept,
// its output is discarded.
func (c *Console) load(path string, s session.Session) session.Session {
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(c.out, "Error: File not found: %s\n", path)
		return s
	}
	if ext := filepath.Ext(path); ext != ".phunkie" && ext != ".php" {
		fmt.Fprintln(c.out, "Error: File must have .phunkie or .php extension")
		return s
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(c.out, "Error: Could not read file: %s\n", path)
		return s
	}

	src := StripOpenTag(string(data))
	if strings.TrimSpace(src) == "" {
		fmt.Fprintf(c.out, "// file %s loaded\n", filepath.Base(path))
		return s
	}
	prev := c.rt.SetOutput(io.Discard)
	res, err := c.evaluate(src, s)
	c.rt.SetOutput(prev)
	if err != nil {
		fmt.Fprintf(c.out, "Error loading file: %s\n", replerr.Reason(err))
		return s
	}

	s = res.Apply(s)
	switch res.Signal.Kind {
	case result.SignalBind:
		if strings.HasPrefix(res.Signal.Name, "$") {
			s = s.WithVariable(res.Signal.Name, res.Value)
		}
	case result.SignalNamespace:
		s = s.WithNamespace(res.Signal.Name)
	case result.SignalImport:
		for _, a := range res.Signal.Aliases {
			s = s.WithAlias(a.Alias, a.FullName)
		}
	}
	c.logger.Debug("file loaded", "path", path)
	fmt.Fprintf(c.out, "// file %s loaded\n", filepath.Base(path))
	return s
}

// StripOpenTag removes a leading <?php tag from source text
func StripOpenTag(src string) string {
	trimmed := strings.TrimLeft(src, " \t\r\n")
	if rest, ok := strings.CutPrefix(trimmed, "<?php"); ok {
		return strings.TrimLeft(rest, " \t\r\n")
	}
	return src
}

func (c *Console) importFunctions(spec string) {
	names, err := c.rt.Import(spec)
	if err != nil {
		var ee *replerr.EvaluationError
		if errors.As(err, &ee) {
			fmt.Fprintf(c.out, "Error: %s\n", ee.Reason)
		} else {
			fmt.Fprintln(c.out, err.Error())
		}
		return
	}
	for _, name := range names {
		formatImported(c.out, c.st, name)
	}
}

func (c *Console) showType(expr string, s session.Session) {
	res, err := c.evaluate(expr, s)
	if err != nil {
		c.printError(err)
		return
	}
	fmt.Fprintln(c.out, res.Type)
}

func (c *Console) showKind(expr string, s session.Session) {
	res, err := c.evaluate(expr, s)
	if err != nil {
		c.printError(err)
		return
	}
	fmt.Fprintln(c.out, kindOf(res.Type))
}
