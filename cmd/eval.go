package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/itsmostafa/phunkie/internal/repl"
	"github.com/itsmostafa/phunkie/internal/session"
)

var evalCmd = &cobra.Command{
	Use:   "eval <fragment>",
	Short: "Evaluate one fragment and print its result",
	Long: `Evaluate a single fragment, print the result line the console would show
and exit. Arguments are joined with spaces. The exit status is non-zero when
the fragment fails to parse or evaluate.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := settings(cmd.Flags())
		if err != nil {
			return err
		}
		c := repl.New(consoleConfig(cmd, cfg))
		_, err = c.Eval(strings.Join(args, " "), session.New(cfg.Color))
		return err
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)
}
