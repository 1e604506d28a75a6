package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/itsmostafa/phunkie/internal/config"
	"github.com/itsmostafa/phunkie/internal/repl"
	"github.com/itsmostafa/phunkie/internal/session"
	"github.com/itsmostafa/phunkie/internal/version"
)

var (
	colorEnabled bool
	historyFile  string
	noHistory    bool
	configFile   string
	sessionLog   string
	debug        bool
)

var rootCmd = &cobra.Command{
	Use:   "phunkie [file]",
	Short: "Interactive console for PHP expressions and statements",
	Long: `Phunkie is an interactive read-eval-print console for PHP expressions and
statements. Each result is bound to a variable and shown with its type.

With a file argument the file is evaluated non-interactively and evaluation
stops at the first error.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := settings(cmd.Flags())
		if err != nil {
			return err
		}
		if len(args) == 1 {
			return runScript(cmd, cfg, args[0])
		}
		return runConsole(cmd, cfg)
	},
}

func init() {
	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(fmt.Sprintf("phunkie %s\n", version.String()))

	flags := rootCmd.PersistentFlags()

	// Color and history flags with env var fallback
	defaultColor := false
	if env, err := strconv.ParseBool(os.Getenv("PHUNKIE_COLOR")); err == nil {
		defaultColor = env
	}
	flags.BoolVarP(&colorEnabled, "color", "c", defaultColor, "Enable colored output")

	defaultHistory := config.DefaultHistoryFile()
	if env := os.Getenv("PHUNKIE_HISTORY"); env != "" {
		defaultHistory = env
	}
	flags.StringVar(&historyFile, "history-file", defaultHistory, "File that persists line history")
	flags.BoolVar(&noHistory, "no-history", false, "Do not read or write the history file")

	flags.StringVar(&configFile, "config", "", "YAML config file (default ~/"+config.FileName+")")
	flags.StringVar(&sessionLog, "session-log", "", "Append every evaluated turn to this JSON lines file")
	flags.BoolVar(&debug, "debug", false, "Log debug information to stderr")
}

// settings merges the config file with the environment and flags, which
// take precedence over the file
func settings(flags *pflag.FlagSet) (config.Config, error) {
	path, explicit := config.DefaultPath(), false
	if configFile != "" {
		path, explicit = configFile, true
	}
	cfg, err := config.Load(path, explicit)
	if err != nil {
		return cfg, err
	}

	if flags.Changed("color") || os.Getenv("PHUNKIE_COLOR") != "" {
		cfg.Color = colorEnabled
	}
	if flags.Changed("history-file") || os.Getenv("PHUNKIE_HISTORY") != "" {
		cfg.HistoryFile = historyFile
	}
	if noHistory {
		cfg.HistoryFile = ""
	}
	if flags.Changed("session-log") {
		cfg.SessionLog = sessionLog
	}
	if flags.Changed("debug") {
		cfg.Debug = debug
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelError
	if cfg.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func consoleConfig(cmd *cobra.Command, cfg config.Config) repl.Config {
	rc := repl.Config{
		Output:             cmd.OutOrStdout(),
		Color:              cfg.Color,
		Prompt:             cfg.Prompt,
		ContinuationPrompt: cfg.ContinuationPrompt,
		Logger:             newLogger(cfg),
	}
	if cfg.SessionLog != "" {
		rc.Transcript = repl.NewTranscript(cfg.SessionLog)
	}
	return rc
}

func runConsole(cmd *cobra.Command, cfg config.Config) error {
	rc := consoleConfig(cmd, cfg)
	rc.Banner = true

	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		term := repl.NewTerminalReader(cfg.HistoryFile, cfg.HistoryLimit)
		defer func() {
			if err := term.Close(); err != nil {
				rc.Logger.Error("history", "error", err)
			}
		}()
		rc.Input = term
	} else {
		rc.Input = repl.NewScanReader(cmd.InOrStdin(), rc.Output)
	}

	_, err := repl.New(rc).Run(session.New(cfg.Color))
	return err
}

func runScript(cmd *cobra.Command, cfg config.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	rc := consoleConfig(cmd, cfg)
	rc.Script = true
	rc.Input = repl.NewScanReader(strings.NewReader(repl.StripOpenTag(string(data))), nil)

	if _, err := repl.New(rc).Run(session.New(cfg.Color)); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
