package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/timvw/term-courier/internal/config"
	"github.com/timvw/term-courier/internal/dispatch"
	"github.com/timvw/term-courier/internal/focus"
	"github.com/timvw/term-courier/internal/logging"
	"github.com/timvw/term-courier/internal/model"
	telem "github.com/timvw/term-courier/internal/otel"
	"github.com/timvw/term-courier/internal/profile"
	"github.com/timvw/term-courier/internal/resolver"
	"github.com/timvw/term-courier/internal/serialio"
	"github.com/timvw/term-courier/internal/strategy"
	"github.com/timvw/term-courier/internal/winsys"
)

// Version is injected at build time via -ldflags. Exported to OTEL
// service metadata and the --version flag.
var Version = "dev"

var (
	// Global flags.
	flagMode string
)

var rootCmd = &cobra.Command{
	Use:   "term-courier",
	Short: "Deliver command text into terminal windows and serial consoles",
	Long: `term-courier resolves the terminal window under a screen point, classifies
it into a terminal profile, and delivers operator-authored command lines
into it: simulated keystrokes, clipboard paste, synthetic window messages,
or a serial port, with per-profile fallbacks and pacing.

It sends exactly what it is told to send — no terminal emulation, no
output parsing, no command generation.

Configuration is loaded from .term-courier.yaml or TERM_COURIER_* environment
variables. See the README for all configuration options.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVar(&flagMode, "mode", envOrDefault("TERM_COURIER_MODE", ""), "output mode: terminal, clipboard, serial (default: config)")
}

// loadConfig resolves the effective configuration: defaults, then the
// config file, then TERM_COURIER_* env vars, then explicit flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if flagMode != "" {
		if _, err := model.ParseMode(flagMode); err != nil {
			return nil, err
		}
		cfg.Mode = flagMode
	}
	return cfg, nil
}

// engine is the assembled dispatch pipeline shared by the subcommands:
// window system, resolver, classifier, strategy registry, session.
type engine struct {
	cfg     *config.Config
	log     *slog.Logger
	tel     *telem.Telemetry
	sys     *winsys.X11
	session *dispatch.Session

	closeLog func() error
}

// newEngine loads configuration, initializes logging and telemetry, and
// wires the dispatch pipeline. The caller owns the engine and must Close it.
func newEngine(ctx context.Context) (*engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, closeLog, err := logging.Init(cfg.Logging, Version)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	if cfg.ConfigFile != "" {
		log.Debug("config loaded", "file", cfg.ConfigFile)
	}

	// Wire build version into OTEL service metadata.
	telem.Version = Version

	// Initialize OTEL (no-op if no endpoint configured).
	tel, err := telem.Init(ctx, telem.OTELConfig{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
	})
	if err != nil {
		log.Warn("otel init failed", "error", err)
	}
	var metrics *telem.Metrics
	if tel != nil {
		metrics = tel.Metrics
	}

	sys, err := winsys.Detect(cfg.LivenessTTLDuration)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("window system: %w", err)
	}

	overrides, err := cfg.TerminalProfiles()
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("profiles: %w", err)
	}
	classifier := profile.NewClassifier(profile.Merge(profile.Builtins(), overrides)...)

	// The serial port opens lazily on the first serial-mode send and is
	// released by Session.Close (or a mode switch away from serial).
	serialStrat := &strategy.Serial{
		Open: func() (strategy.SerialPort, error) {
			return serialio.Open(serialio.Config{
				Device:     cfg.Serial.Device,
				Baud:       cfg.Serial.Baud,
				LineEnding: cfg.Serial.LineEnding,
			})
		},
		Metrics: metrics,
	}

	registry := strategy.NewRegistry(
		&strategy.Keystrokes{Keyboard: sys},
		&strategy.ClipboardPaste{Clipboard: winsys.SystemClipboard{}, Keyboard: sys, Metrics: metrics},
		&strategy.WindowMessage{Keyboard: sys},
		serialStrat,
	)

	dispatcher := &dispatch.Dispatcher{
		Sys:          sys,
		Focus:        &focus.Controller{Sys: sys, Metrics: metrics},
		Registry:     registry,
		Metrics:      metrics,
		Logger:       log,
		AdaptivePace: cfg.AdaptivePacingOn(),
	}

	session := dispatch.NewSession(dispatcher, resolver.New(sys, cfg.ExcludeClasses...), classifier)
	session.Logger = log
	session.SerialCloser = serialStrat
	session.ContinueOnFailure = cfg.ContinueOnFailure
	session.SetAutoEnter(cfg.AutoEnterOn())

	mode, err := model.ParseMode(cfg.Mode)
	if err != nil {
		_ = closeLog()
		return nil, err
	}
	session.SetMode(mode)

	return &engine{
		cfg:      cfg,
		log:      log,
		tel:      tel,
		sys:      sys,
		session:  session,
		closeLog: closeLog,
	}, nil
}

// Close releases the serial route, flushes telemetry, and closes the log
// sink, in that order.
func (e *engine) Close(ctx context.Context) {
	if err := e.session.Close(); err != nil {
		e.log.Warn("session close", "error", err)
	}
	if e.tel != nil {
		e.tel.Shutdown(ctx)
	}
	if e.closeLog != nil {
		_ = e.closeLog()
	}
}

// bindTarget resolves the initial send target from the --window, --at and
// --pick flags. Serial mode routes past windows entirely and needs none.
func bindTarget(ctx context.Context, eng *engine, windowID, at string, pick bool) error {
	if eng.session.Mode() == model.ModeSerial {
		return nil
	}
	switch {
	case windowID != "":
		_, err := eng.session.PickWindow(ctx, windowID)
		return err
	case at != "":
		p, err := parsePoint(at)
		if err != nil {
			return err
		}
		_, err = eng.session.PickAt(ctx, p)
		return err
	case pick:
		if err := waitForPick(ctx, eng.cfg.PickDelayDuration); err != nil {
			return err
		}
		_, err := eng.session.PickAtPointer(ctx)
		return err
	}
	return fmt.Errorf("no target: use --window, --at or --pick (or serial mode)")
}

// waitForPick gives the operator time to move the pointer onto the target
// before the point is sampled.
func waitForPick(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	fmt.Fprintf(os.Stderr, "put the pointer on the target window (picking in %s)\n", delay)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// parsePoint parses an "X,Y" screen coordinate.
func parsePoint(s string) (model.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return model.Point{}, fmt.Errorf("invalid point %q (want X,Y)", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return model.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return model.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	return model.Point{X: x, Y: y}, nil
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
