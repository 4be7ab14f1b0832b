package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/timvw/term-courier/internal/console"
)

var flagConsoleTheme string

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive console for picking targets and sending lines",
	Long: `Launch an interactive terminal UI over the dispatch engine: type a line and
press Enter to send it, with per-line ✓/✗ status and the strategy that
delivered it.

Keys: ctrl+p picks a new target under the pointer (after the pick delay),
ctrl+e toggles auto-enter, ctrl+t cycles the output mode, ctrl+l clears the
history, q or ctrl+c quits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel() // stops in-flight sends when the TUI exits

		eng, err := newEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.Close(ctx)

		theme := flagConsoleTheme
		if theme == "" {
			theme = eng.cfg.Theme
		}

		c := &console.Console{
			Session:   eng.session,
			Theme:     console.ThemeByName(theme),
			PickDelay: eng.cfg.PickDelayDuration,
			Version:   Version,
		}
		return c.Run(ctx)
	},
}

func init() {
	consoleCmd.Flags().StringVar(&flagConsoleTheme, "theme", "",
		"color theme: dark, light (default: config theme)")
	rootCmd.AddCommand(consoleCmd)
}
