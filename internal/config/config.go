// Package config loads console settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the home directory
const FileName = ".phunkierc.yaml"

// Config holds console settings
type Config struct {
	// Color enables ANSI styling of prompts and results
	Color bool `yaml:"color"`

	// HistoryFile persists line-editor history; empty disables it
	HistoryFile string `yaml:"history_file"`

	// HistoryLimit is the number of history entries kept on disk
	HistoryLimit int `yaml:"history_limit"`

	// Prompt is shown when no input is buffered
	Prompt string `yaml:"prompt"`

	// ContinuationPrompt is shown while a fragment is incomplete
	ContinuationPrompt string `yaml:"continuation_prompt"`

	// SessionLog appends every evaluated turn as JSON lines; empty disables it
	SessionLog string `yaml:"session_log"`

	// Debug enables debug logging on stderr
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		HistoryFile:        DefaultHistoryFile(),
		HistoryLimit:       500,
		Prompt:             "phunkie > ",
		ContinuationPrompt: "phunkie { ",
	}
}

// DefaultHistoryFile returns ~/.phunkie_history, or a file in the temp
// directory when the home directory is unknown
func DefaultHistoryFile() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".phunkie_history")
	}
	return filepath.Join(os.TempDir(), ".phunkie_history")
}

// DefaultPath returns the config file in the home directory
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, FileName)
}

// Load reads path over the defaults. A missing file yields the defaults
// unless the path was given explicitly.
func Load(path string, explicit bool) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultConfig().HistoryLimit
	}
	return cfg, nil
}
