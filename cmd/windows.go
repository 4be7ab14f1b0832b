package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/timvw/term-courier/internal/model"
)

var (
	flagWindowsAll  bool
	flagWindowsJSON bool
)

// windowRow is one line of `term-courier windows` output.
type windowRow struct {
	ID      string          `json:"id"`
	PID     int             `json:"pid"`
	Process string          `json:"process"`
	Class   string          `json:"class"`
	Title   string          `json:"title"`
	Rect    model.Rect      `json:"rect"`
	Profile model.ProfileID `json:"profile"`
}

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List visible windows with their classification",
	Long: `List top-level windows with their owning process, window class, title and
classified terminal profile.

Desktop-shell surfaces (panels, docks, wallpaper windows) and this process's
own windows are skipped unless --all is given. Window ids can be passed to
"inspect" and "send --window".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := newEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.Close(ctx)

		windows, err := eng.sys.ListWindows(ctx)
		if err != nil {
			return fmt.Errorf("failed to list windows: %w", err)
		}

		rows := make([]windowRow, 0, len(windows))
		for _, w := range windows {
			if !flagWindowsAll && !eng.session.Resolver.Eligible(w) {
				continue
			}
			rows = append(rows, windowRow{
				ID:      w.ID,
				PID:     w.PID,
				Process: w.ProcessName,
				Class:   w.Class,
				Title:   w.Title,
				Rect:    w.Rect,
				Profile: eng.session.Classifier.Classify(w).ID,
			})
		}

		if flagWindowsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		for _, r := range rows {
			fmt.Printf("%-12s %-8d %-16s %-20s %-16s %s\n",
				r.ID, r.PID, r.Process, r.Class, r.Profile, r.Title)
		}
		return nil
	},
}

func init() {
	windowsCmd.Flags().BoolVar(&flagWindowsAll, "all", false, "include excluded desktop-shell windows")
	windowsCmd.Flags().BoolVar(&flagWindowsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(windowsCmd)
}
