package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/timvw/term-courier/internal/model"
	"github.com/timvw/term-courier/internal/script"
)

var (
	flagSendFile     string
	flagSendWatch    bool
	flagSendNoEnter  bool
	flagSendContinue bool
	flagSendWindow   string
	flagSendAt       string
	flagSendPick     bool
	flagSendJSON     bool
)

var sendCmd = &cobra.Command{
	Use:   "send [text...]",
	Short: "Dispatch command text to a terminal window or serial port",
	Long: `Deliver command lines to the target and report the outcome per line.

Text sources, first match wins: --file <path> (one command per line, "#"
comments and blank lines skipped), argument text, or piped stdin. Multi-line
input is dispatched line by line in source order; a later line is never sent
before the one above it completed.

The target comes from --window <id>, --at X,Y, or --pick (pointer pick after
the configured delay). With --mode serial no window target is needed.

--watch re-sends the file after every change (editor save) until interrupted.

Exits non-zero when any line fails; failed lines carry an error code:
not_found, target_lost, focus_failed, send_failed.`,
	RunE: runSend,
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if flagSendWatch {
		if flagSendFile == "" {
			return fmt.Errorf("--watch requires --file")
		}
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	eng, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close(ctx)

	if flagSendNoEnter {
		eng.session.SetAutoEnter(false)
	}
	if flagSendContinue {
		eng.session.ContinueOnFailure = true
	}

	if err := bindTarget(ctx, eng, flagSendWindow, flagSendAt, flagSendPick); err != nil {
		return err
	}

	// Script dispatch, optionally re-sent on change.
	if flagSendFile != "" {
		err := sendScript(ctx, eng, flagSendFile)
		if !flagSendWatch {
			return err
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "send: %v\n", err)
		}
		fmt.Fprintf(os.Stderr, "watching %s (ctrl+c to stop)\n", flagSendFile)
		return script.Watch(ctx, flagSendFile, 0, func() {
			if err := sendScript(ctx, eng, flagSendFile); err != nil {
				fmt.Fprintf(os.Stderr, "send: %v\n", err)
			}
		})
	}

	// Argument text, or piped stdin.
	text := strings.Join(args, " ")
	if text == "" {
		text, err = readPipedStdin()
		if err != nil {
			return err
		}
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("nothing to send: pass text, --file, or pipe stdin")
	}

	return reportResults(eng.session.Send(ctx, text))
}

// sendScript loads the script file and dispatches its lines in order.
func sendScript(ctx context.Context, eng *engine, path string) error {
	units, err := script.Load(path, eng.session.AutoEnter())
	if err != nil {
		return err
	}
	return reportResults(eng.session.SendUnits(ctx, units))
}

// reportResults prints per-line outcomes and returns an error when any
// line failed, so the process exits non-zero.
func reportResults(results []model.DispatchResult) error {
	if flagSendJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.OK {
				detail := string(r.Strategy)
				if r.FallbackUsed {
					detail += " fallback"
				}
				fmt.Printf("ok   %s  (%s, %dms)\n", r.Text, detail, r.DurationMs)
			} else {
				fmt.Printf("fail %s  (%s: %s)\n", r.Text, r.Code, r.Error)
			}
		}
	}

	failed := 0
	for _, r := range results {
		if !r.OK {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d lines failed", failed, len(results))
	}
	return nil
}

// readPipedStdin returns stdin's content when it is a pipe or redirect,
// and empty when stdin is an interactive terminal.
func readPipedStdin() (string, error) {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return "", err
	}
	if fi.Mode()&os.ModeCharDevice != 0 {
		return "", nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func init() {
	sendCmd.Flags().StringVar(&flagSendFile, "file", "", "read command lines from a script file")
	sendCmd.Flags().BoolVar(&flagSendWatch, "watch", false, "re-send the script file on every change (requires --file)")
	sendCmd.Flags().BoolVar(&flagSendNoEnter, "no-enter", false, "do not press Enter after each line")
	sendCmd.Flags().BoolVar(&flagSendContinue, "continue-on-failure", false, "keep sending later lines after one fails")
	sendCmd.Flags().StringVar(&flagSendWindow, "window", "", "target window id (from \"windows\" or \"pick\")")
	sendCmd.Flags().StringVar(&flagSendAt, "at", "", "target the window at screen point \"X,Y\"")
	sendCmd.Flags().BoolVar(&flagSendPick, "pick", false, "pick the target under the pointer after the pick delay")
	sendCmd.Flags().BoolVar(&flagSendJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(sendCmd)
}
