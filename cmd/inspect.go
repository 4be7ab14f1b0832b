package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/timvw/term-courier/internal/model"
)

// inspectReport is the full resolved metadata for one window.
type inspectReport struct {
	Window   model.Window          `json:"window"`
	Alive    bool                  `json:"alive"`
	Eligible bool                  `json:"eligible"`
	Profile  model.TerminalProfile `json:"profile"`
	Children []model.Window        `json:"children,omitempty"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <window-id>",
	Short: "Dump one window's resolved metadata",
	Long: `Resolve a window id to its full metadata: owning process, class, title,
geometry, liveness, eligibility as a send target, classified profile, and
child windows.

Window ids come from "windows" or "pick".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id := args[0]

		eng, err := newEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.Close(ctx)

		w, err := eng.sys.WindowInfo(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to inspect window %q: %w", id, err)
		}

		children, err := eng.sys.ChildWindows(ctx, id)
		if err != nil {
			eng.log.Debug("child window listing failed", "window", id, "error", err)
		}

		report := inspectReport{
			Window:   w,
			Alive:    eng.sys.IsAlive(ctx, id),
			Eligible: eng.session.Resolver.Eligible(w),
			Profile:  eng.session.Classifier.Classify(w),
			Children: children,
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
