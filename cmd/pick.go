package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/timvw/term-courier/internal/model"
)

var (
	flagPickDelay string
	flagPickAt    string
	flagPickJSON  bool
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Resolve and classify the window under the pointer",
	Long: `Wait for the pick delay, then resolve the window under the mouse pointer
to a handle and classify it into a terminal profile.

The delay exists so the operator can move the pointer onto the target after
pressing Enter on this command. Use --at X,Y to resolve a fixed screen point
immediately instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := newEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.Close(ctx)

		var target model.SendTarget
		if flagPickAt != "" {
			p, err := parsePoint(flagPickAt)
			if err != nil {
				return err
			}
			target, err = eng.session.PickAt(ctx, p)
			if err != nil {
				return err
			}
		} else {
			delay := eng.cfg.PickDelayDuration
			if flagPickDelay != "" {
				delay, err = time.ParseDuration(flagPickDelay)
				if err != nil {
					return fmt.Errorf("invalid --delay: %w", err)
				}
			}
			if err := waitForPick(ctx, delay); err != nil {
				return err
			}
			target, err = eng.session.PickAtPointer(ctx)
			if err != nil {
				return err
			}
		}

		if flagPickJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(target)
		}

		w := target.Window
		fmt.Printf("window:   %s\n", w.ID)
		fmt.Printf("process:  %s (pid %d)\n", w.ProcessName, w.PID)
		fmt.Printf("class:    %s\n", w.Class)
		fmt.Printf("title:    %s\n", w.Title)
		fmt.Printf("profile:  %s (%s)\n", target.Profile.ID, target.Profile.Name)
		fmt.Printf("strategy: %s\n", strategyChain(target.Profile))
		return nil
	},
}

// strategyChain renders "primary (fallbacks: a, b)" for a profile.
func strategyChain(p model.TerminalProfile) string {
	s := string(p.Strategy)
	if len(p.Fallbacks) == 0 {
		return s
	}
	s += " (fallbacks:"
	for i, f := range p.Fallbacks {
		if i > 0 {
			s += ","
		}
		s += " " + string(f)
	}
	return s + ")"
}

func init() {
	pickCmd.Flags().StringVar(&flagPickDelay, "delay", "", "pick delay, e.g. 5s or 0 (default: config pick_delay)")
	pickCmd.Flags().StringVar(&flagPickAt, "at", "", "resolve a fixed screen point \"X,Y\" instead of the pointer")
	pickCmd.Flags().BoolVar(&flagPickJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(pickCmd)
}
