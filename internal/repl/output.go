package repl

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// styles renders console output. With color disabled every style renders
// its input unchanged.
type styles struct {
	enabled bool

	// prompt for the phunkie label of the prompt and banner
	prompt lipgloss.Style

	// name for bold variable names
	name lipgloss.Style

	// typ for bold pink type names
	typ lipgloss.Style

	// value for bold formatted values
	value lipgloss.Style

	// errKind for the red kind prefix of errors
	errKind lipgloss.Style

	// keyword for declaration keywords
	keyword lipgloss.Style

	// imported for the :import confirmation
	imported lipgloss.Style

	// comment for dim comment lines
	comment lipgloss.Style
}

func newStyles(w io.Writer, enabled bool) styles {
	r := lipgloss.NewRenderer(w)
	if enabled {
		r.SetColorProfile(termenv.TrueColor)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return styles{
		enabled:  enabled,
		prompt:   r.NewStyle().Foreground(lipgloss.Color("#5555FF")),
		name:     r.NewStyle().Bold(true),
		typ:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("13")),
		value:    r.NewStyle().Bold(true),
		errKind:  r.NewStyle().Foreground(lipgloss.Color("1")),
		keyword:  r.NewStyle().Foreground(lipgloss.Color("13")),
		imported: r.NewStyle().Foreground(lipgloss.Color("5")),
		comment:  r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (st styles) render(s lipgloss.Style, text string) string {
	if !st.enabled {
		return text
	}
	return s.Render(text)
}

// label colors the leading word of a prompt
func (st styles) label(prompt string) string {
	word, rest, ok := strings.Cut(prompt, " ")
	if !ok {
		return st.render(st.prompt, prompt)
	}
	return st.render(st.prompt, word) + " " + rest
}

// formatBanner writes the welcome banner
func formatBanner(w io.Writer, st styles) {
	fmt.Fprintf(w, "Welcome to %s console.\n\nType in expressions to have them evaluated.\n\n",
		st.render(st.prompt, "phunkie"))
}

// formatBinding writes a `$name: Type = value` result line
func formatBinding(w io.Writer, st styles, name, typ, formatted string) {
	fmt.Fprintf(w, "%s: %s = %s\n",
		st.render(st.name, name), st.render(st.typ, typ), st.render(st.value, formatted))
}

// formatDeclared writes a `// kind name defined` line
func formatDeclared(w io.Writer, st styles, kind, name string) {
	if name == "" {
		fmt.Fprintf(w, "// %s defined\n", st.render(st.keyword, kind))
		return
	}
	fmt.Fprintf(w, "// %s %s defined\n", st.render(st.keyword, kind), name)
}

// formatEnum writes the enum declaration line, dimmed as a whole
func formatEnum(w io.Writer, st styles, name string) {
	fmt.Fprintln(w, st.render(st.comment, "// enum "+name+" defined"))
}

// formatError writes an error as `Kind: reason`
func formatError(w io.Writer, st styles, kind, reason string) {
	fmt.Fprintf(w, "%s %s\n", st.render(st.errKind, kind+":"), reason)
}

// formatImported writes one :import confirmation line
func formatImported(w io.Writer, st styles, fullName string) {
	fmt.Fprintf(w, "%s function %s()\n", st.render(st.imported, "imported"), fullName)
}
