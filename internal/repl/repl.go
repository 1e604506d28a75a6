// Package repl is the interactive console: it reads fragments, buffers
// incomplete ones, evaluates the rest and prints what they produced.
package repl

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/itsmostafa/phunkie/internal/detector"
	"github.com/itsmostafa/phunkie/internal/eval"
	"github.com/itsmostafa/phunkie/internal/host"
	"github.com/itsmostafa/phunkie/internal/parser"
	"github.com/itsmostafa/phunkie/internal/replerr"
	"github.com/itsmostafa/phunkie/internal/result"
	"github.com/itsmostafa/phunkie/internal/session"
)

const (
	// DefaultPrompt is shown when no input is buffered
	DefaultPrompt = "phunkie > "
	// DefaultContinuationPrompt is shown while a fragment is incomplete
	DefaultContinuationPrompt = "phunkie { "
)

// Config holds the configuration for a console
type Config struct {
	Input              LineReader
	Output             io.Writer
	Color              bool
	Prompt             string
	ContinuationPrompt string
	// Banner prints the welcome message before the first prompt
	Banner bool
	// Script stops at the first failing fragment and returns its error
	// instead of printing it
	Script     bool
	Transcript *Transcript
	Logger     *slog.Logger
}

// Bounce is the outcome of one console step: either the session to
// continue with or the end of the loop
type Bounce struct {
	Next *session.Session
	Done bool
}

func more(s session.Session) Bounce { return Bounce{Next: &s} }

var done = Bounce{Done: true}

// Console runs the read-eval-print loop
type Console struct {
	cfg    Config
	rt     *host.Runtime
	ev     *eval.Evaluator
	st     styles
	out    io.Writer
	logger *slog.Logger
	id     string
	turns  int
}

// New creates a console with a fresh runtime
func New(cfg Config) *Console {
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.ContinuationPrompt == "" {
		cfg.ContinuationPrompt = DefaultContinuationPrompt
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rt := host.New(host.WithOutput(cfg.Output), host.WithLogger(logger))
	id := uuid.New().String()
	return &Console{
		cfg:    cfg,
		rt:     rt,
		ev:     eval.New(rt),
		st:     newStyles(cfg.Output, cfg.Color),
		out:    cfg.Output,
		logger: logger.With("session", id),
		id:     id,
	}
}

// SessionID identifies this console in logs and the session log
func (c *Console) SessionID() string { return c.id }

// Run drives the loop from s until input ends or the user exits and
// returns the final session
func (c *Console) Run(s session.Session) (session.Session, error) {
	if c.cfg.Banner {
		formatBanner(c.out, c.st)
	}
	c.logger.Debug("console started")

	b := more(s)
	for !b.Done {
		s = *b.Next
		var err error
		if b, err = c.step(s); err != nil {
			return s, err
		}
	}
	return s, nil
}

// step reads one line and processes it
func (c *Console) step(s session.Session) (Bounce, error) {
	prompt := c.cfg.Prompt
	if s.Incomplete() != "" {
		prompt = c.cfg.ContinuationPrompt
	}
	line, err := c.cfg.Input.ReadLine(c.st.label(prompt))
	if errors.Is(err, io.EOF) {
		if s.Incomplete() != "" && c.cfg.Script {
			return done, fmt.Errorf("unexpected end of input: %w", &replerr.ParseError{
				Input:  s.Incomplete(),
				Reason: "Syntax error, unexpected end of file",
			})
		}
		c.exit()
		return done, nil
	}
	if err != nil {
		return done, fmt.Errorf("failed to read input: %w", err)
	}
	return c.process(line, s)
}

// process handles one line of input against s
func (c *Console) process(line string, s session.Session) (Bounce, error) {
	input := line
	if s.Incomplete() != "" {
		input = s.Incomplete() + "\n" + line
	}
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return more(s), nil
	}
	if strings.HasPrefix(trimmed, ":") && s.Incomplete() == "" {
		return c.command(trimmed, s)
	}
	if !detector.IsComplete(input) {
		return more(s.WithIncomplete(input)), nil
	}

	s = s.WithIncomplete("")
	c.turns++
	res, err := c.evaluate(trimmed, s)
	if err != nil {
		c.record(Turn{Input: trimmed, Error: err.Error()})
		c.logger.Debug("turn failed", "turn", c.turns, "error", err)
		if c.cfg.Script {
			return done, err
		}
		c.printError(err)
		return more(s), nil
	}
	next, name := c.display(res, s, trimmed)
	c.record(Turn{Input: trimmed, Variable: name, Type: res.Type})
	c.logger.Debug("turn evaluated", "turn", c.turns, "signal", res.Signal.Kind, "type", res.Type)
	return more(next), nil
}

// evaluate parses and runs a fragment without touching the session
func (c *Console) evaluate(input string, s session.Session) (result.Result, error) {
	prog, err := parser.Parse(input)
	if err != nil {
		return result.Result{}, err
	}
	return c.ev.Evaluate(prog, s)
}

// Eval evaluates a single fragment against s, prints its result line and
// returns the updated session
func (c *Console) Eval(input string, s session.Session) (session.Session, error) {
	input = strings.TrimSpace(input)
	c.turns++
	res, err := c.evaluate(input, s)
	if err != nil {
		return s, err
	}
	next, _ := c.display(res, s, input)
	return next, nil
}

func (c *Console) printError(err error) {
	re := replerr.From(err)
	formatError(c.out, c.st, re.Kind(), replerr.Clean(re.Message()))
}

func (c *Console) exit() {
	if !c.cfg.Script {
		fmt.Fprintln(c.out, "\nbye \\o")
	}
	c.logger.Debug("console stopped", "turns", c.turns)
}

func (c *Console) record(turn Turn) {
	if c.cfg.Transcript == nil {
		return
	}
	turn.SessionID, turn.Number = c.id, c.turns
	if err := c.cfg.Transcript.Append(turn); err != nil {
		c.logger.Error("session log", "error", err)
	}
}
