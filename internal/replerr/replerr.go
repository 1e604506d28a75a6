// Package replerr defines the user-facing error taxonomy of the console.
package replerr

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Error is implemented by every failure the console reports to the user
type Error interface {
	error
	// Kind returns the label printed before the reason
	Kind() string
	// Message returns the reason without the kind prefix
	Message() string
}

// ParseError reports a fragment the parser could not accept
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string   { return e.Kind() + ": " + e.Reason }
func (e *ParseError) Kind() string    { return "Parse error" }
func (e *ParseError) Message() string { return e.Reason }

// EvaluationError reports valid syntax with invalid semantics
type EvaluationError struct {
	Subject string
	Reason  string
}

func (e *EvaluationError) Error() string   { return e.Kind() + ": " + e.Reason }
func (e *EvaluationError) Kind() string    { return "Error" }
func (e *EvaluationError) Message() string { return e.Reason }

// TypeError reports an arity or type-contract violation
type TypeError struct {
	Subject string
	Reason  string
}

func (e *TypeError) Error() string   { return e.Kind() + ": " + e.Reason }
func (e *TypeError) Kind() string    { return "TypeError" }
func (e *TypeError) Message() string { return e.Reason }

// CommandError reports a malformed console command
type CommandError struct {
	Command string
	Reason  string
}

func (e *CommandError) Error() string   { return e.Kind() + ": " + e.Reason }
func (e *CommandError) Kind() string    { return "CommandError" }
func (e *CommandError) Message() string { return e.Reason }

// Evalf builds an EvaluationError with a formatted reason
func Evalf(subject, format string, args ...any) *EvaluationError {
	return &EvaluationError{Subject: subject, Reason: fmt.Sprintf(format, args...)}
}

// Typef builds a TypeError with a formatted reason
func Typef(subject, format string, args ...any) *TypeError {
	return &TypeError{Subject: subject, Reason: fmt.Sprintf(format, args...)}
}

// From classifies any error into the taxonomy. Untyped errors become
// evaluation errors carrying the error text as reason.
func From(err error) Error {
	if err == nil {
		return nil
	}
	var re Error
	if errors.As(err, &re) {
		return re
	}
	return &EvaluationError{Reason: err.Error()}
}

// Reason returns the message of err without any kind prefix
func Reason(err error) string {
	return From(err).Message()
}

// IsType reports whether err is a TypeError
func IsType(err error) bool {
	var te *TypeError
	return errors.As(err, &te)
}

var (
	exactlyExpected = regexp.MustCompile(`\s+and\s+exactly\s+\d+\s+expected`)
	whitespace      = regexp.MustCompile(`\s+`)
)

// Clean strips host noise from an error message and collapses whitespace
func Clean(msg string) string {
	msg = exactlyExpected.ReplaceAllString(msg, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(msg, " "))
}
