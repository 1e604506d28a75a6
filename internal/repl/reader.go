package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/peterh/liner"
)

// LineReader supplies console input one line at a time. ReadLine returns
// io.EOF once input is exhausted.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// ScanReader reads lines from any io.Reader. When w is set the prompt is
// written before each read, as a terminal would show it.
type ScanReader struct {
	sc *bufio.Scanner
	w  io.Writer
}

// NewScanReader creates a reader over r that echoes prompts to w. A nil w
// suppresses prompts.
func NewScanReader(r io.Reader, w io.Writer) *ScanReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &ScanReader{sc: sc, w: w}
}

func (r *ScanReader) ReadLine(prompt string) (string, error) {
	if r.w != nil {
		fmt.Fprint(r.w, prompt)
	}
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimRight(r.sc.Text(), "\r"), nil
}

// TerminalReader is an interactive line editor with persistent history
type TerminalReader struct {
	ln          *liner.State
	historyFile string
	limit       int
}

// NewTerminalReader opens the line editor and loads historyFile when it
// is set. Close must be called to restore the terminal and save history.
func NewTerminalReader(historyFile string, limit int) *TerminalReader {
	ln := liner.NewLiner()
	ln.SetCtrlCAborts(true)
	t := &TerminalReader{ln: ln, historyFile: historyFile, limit: limit}
	if historyFile == "" {
		return t
	}
	if f, err := os.Open(historyFile); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	return t
}

func (t *TerminalReader) ReadLine(prompt string) (string, error) {
	// the editor measures the prompt itself and rejects escape sequences
	line, err := t.ln.Prompt(ansi.Strip(prompt))
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		t.ln.AppendHistory(line)
	}
	return line, nil
}

// Close saves the history, keeping the most recent entries, and restores
// the terminal
func (t *TerminalReader) Close() error {
	defer t.ln.Close()
	if t.historyFile == "" {
		return nil
	}
	f, err := os.Create(t.historyFile)
	if err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	defer f.Close()
	if _, err := t.ln.WriteHistory(f); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return trimHistory(t.historyFile, t.limit)
}

// trimHistory keeps the last limit lines of the history file
func trimHistory(path string, limit int) error {
	if limit <= 0 {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) <= limit {
		return nil
	}
	lines = lines[len(lines)-limit:]
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}
	return nil
}
