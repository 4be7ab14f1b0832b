package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/timvw/term-courier/internal/intake"
	"github.com/timvw/term-courier/internal/model"
)

var (
	flagListenSocket string
	flagListenWindow string
	flagListenAt     string
	flagListenPick   bool
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Accept command lines over a local unixgram socket",
	Long: `Bind a private unixgram socket and dispatch every JSON datagram

    {"text": "...", "auto_enter": bool}

to the current target, in arrival order. The socket is created 0600 under
$XDG_RUNTIME_DIR/term-courier by default. Malformed, blank or oversized
datagrams are dropped.

Pick the target up front with --window, --at or --pick, or run in serial
mode. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eng, err := newEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.Close(ctx)

		if err := bindTarget(ctx, eng, flagListenWindow, flagListenAt, flagListenPick); err != nil {
			return err
		}

		socketPath := flagListenSocket
		if socketPath == "" {
			socketPath = eng.cfg.IntakeSocket
		}
		if socketPath == "" {
			socketPath = intake.DefaultSocketPath()
		}

		// The collector's read loop calls the handler synchronously, so
		// socket-submitted batches never interleave.
		handler := func(req intake.Request) {
			autoEnter := eng.session.AutoEnter()
			if req.AutoEnter != nil {
				autoEnter = *req.AutoEnter
			}
			results := eng.session.SendUnits(ctx, model.SplitUnits(req.Text, autoEnter))
			for _, r := range results {
				if r.OK {
					eng.log.Info("delivered", "line", r.Line, "text", r.Text,
						"strategy", r.Strategy, "duration_ms", r.DurationMs)
				} else {
					eng.log.Error("delivery failed", "line", r.Line, "text", r.Text,
						"code", r.Code, "error", r.Error)
				}
			}
		}

		collector := intake.NewCollector(handler, socketPath)
		if err := collector.Start(ctx); err != nil {
			return fmt.Errorf("intake: %w", err)
		}
		fmt.Fprintf(os.Stderr, "intake: listening on %s\n", collector.SocketPath())

		<-ctx.Done()
		return nil
	},
}

func init() {
	listenCmd.Flags().StringVar(&flagListenSocket, "socket", "", "unixgram socket path (default: config intake_socket, else $XDG_RUNTIME_DIR/term-courier/intake.sock)")
	listenCmd.Flags().StringVar(&flagListenWindow, "window", "", "target window id (from \"windows\" or \"pick\")")
	listenCmd.Flags().StringVar(&flagListenAt, "at", "", "target the window at screen point \"X,Y\"")
	listenCmd.Flags().BoolVar(&flagListenPick, "pick", false, "pick the target under the pointer after the pick delay")
	rootCmd.AddCommand(listenCmd)
}
