package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/timvw/term-courier/internal/profile"
)

var flagProfilesJSON bool

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Print the effective terminal-profile table",
	Long: `Print the terminal profiles the classifier will use: the builtin table with
any config-file overrides applied (matched by profile id; unknown ids are
appended as custom profiles).

Profiles are evaluated in the printed order; the first match wins.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		overrides, err := cfg.TerminalProfiles()
		if err != nil {
			return fmt.Errorf("profiles: %w", err)
		}
		table := profile.Merge(profile.Builtins(), overrides)

		if flagProfilesJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(table)
		}

		for _, p := range table {
			fmt.Printf("%-18s %-22s %-32s enter=%-8s pace=%s\n",
				p.ID, p.Name, strategyChain(p), p.EnterChord, p.SendDelay)
		}
		return nil
	},
}

func init() {
	profilesCmd.Flags().BoolVar(&flagProfilesJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(profilesCmd)
}
