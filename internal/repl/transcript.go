package repl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Turn is one evaluated fragment as recorded in the session log
type Turn struct {
	SessionID string    `json:"session_id"`
	Number    int       `json:"turn"`
	Input     string    `json:"input"`
	Variable  string    `json:"variable,omitempty"`
	Type      string    `json:"type,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcript appends turns to a JSON lines file
type Transcript struct {
	path string
}

// NewTranscript creates a transcript writing to path
func NewTranscript(path string) *Transcript {
	return &Transcript{path: path}
}

// Append records a turn
func (t *Transcript) Append(turn Turn) error {
	turn.Timestamp = time.Now()

	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open session log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write turn: %w", err)
	}

	return nil
}

// Turns reads every recorded turn, optionally only those of one session
func (t *Transcript) Turns(sessionID string) ([]Turn, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Turn{}, nil
		}
		return nil, fmt.Errorf("failed to open session log: %w", err)
	}
	defer f.Close()

	var turns []Turn
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var turn Turn
		if err := json.Unmarshal(scanner.Bytes(), &turn); err != nil {
			continue // Skip malformed entries
		}
		if sessionID != "" && turn.SessionID != sessionID {
			continue
		}
		turns = append(turns, turn)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session log: %w", err)
	}

	return turns, nil
}
