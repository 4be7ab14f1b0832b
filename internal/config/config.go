// Package config loads term-courier configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Environment variables (TERM_COURIER_*)
//  2. Config file
//  3. Built-in defaults
//
// Config file search order:
//  1. .term-courier.yaml in current directory
//  2. ~/.config/term-courier/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/timvw/term-courier/internal/logging"
	"github.com/timvw/term-courier/internal/model"
)

// SerialConfig describes the serial route.
type SerialConfig struct {
	Device     string `yaml:"device"`
	Baud       int    `yaml:"baud"`
	LineEnding string `yaml:"line_ending"` // "lf" (default), "crlf", "cr"
}

// ProfileConfig overrides a builtin terminal profile or defines a new one.
// Empty fields keep the builtin value; an unknown id adds a profile ahead
// of the generic fallback.
type ProfileConfig struct {
	ID             string            `yaml:"id"`
	Name           string            `yaml:"name"`
	Rules          []model.MatchRule `yaml:"rules"`
	Strategy       string            `yaml:"strategy"`
	Fallbacks      []string          `yaml:"fallbacks"`
	PasteShortcut  string            `yaml:"paste_shortcut"`
	PasteButton    int               `yaml:"paste_button"`
	EnterChord     string            `yaml:"enter_chord"`
	MultilineInput bool              `yaml:"multiline_input"`
	SendDelay      string            `yaml:"send_delay"`     // Go duration string, e.g. "15ms"
	FocusAttempts  int               `yaml:"focus_attempts"` // activate-then-verify rounds
	FocusDelay     string            `yaml:"focus_delay"`    // Go duration string, e.g. "100ms"
}

// Config holds all term-courier configuration.
type Config struct {
	// Dispatch behavior
	Mode              string `yaml:"mode"`       // terminal, clipboard, serial
	AutoEnter         *bool  `yaml:"auto_enter"` // default true
	ContinueOnFailure bool   `yaml:"continue_on_failure"`
	AdaptivePacing    *bool  `yaml:"adaptive_pacing"` // default true

	// Target picking
	PickDelay      string   `yaml:"pick_delay"`      // Go duration string, e.g. "3s"
	ExcludeClasses []string `yaml:"exclude_classes"` // appended to resolver defaults

	// Window metadata cache
	LivenessTTL string `yaml:"liveness_ttl"` // Go duration string; "0"/"off" disables

	// Serial route
	Serial SerialConfig `yaml:"serial"`

	// Terminal profile overrides
	Profiles []ProfileConfig `yaml:"profiles"`

	// Logging
	Logging logging.Config `yaml:"logging"`

	// Intake socket path (empty means the runtime-dir default)
	IntakeSocket string `yaml:"intake_socket"`

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs, e.g. "Authorization=Basic abc123"

	// Console theme: "dark" or "light"
	Theme string `yaml:"theme"`

	// Parsed durations (not from YAML, set after loading)
	PickDelayDuration   time.Duration `yaml:"-"`
	LivenessTTLDuration time.Duration `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		Mode:        "terminal",
		PickDelay:   "3s",
		LivenessTTL: "5s",
		Serial:      SerialConfig{Baud: 9600, LineEnding: "lf"},
		Theme:       "dark",
	}
}

// AutoEnterOn reports the auto-enter setting; unset means on.
func (c *Config) AutoEnterOn() bool {
	return c.AutoEnter == nil || *c.AutoEnter
}

// AdaptivePacingOn reports the adaptive pacing setting; unset means on.
func (c *Config) AdaptivePacingOn() bool {
	return c.AdaptivePacing == nil || *c.AdaptivePacing
}

// Load reads configuration from file and environment variables.
// Environment variables always override file values.
func Load() (*Config, error) {
	cfg := Defaults()

	// Try to load config file
	if path, data, err := findConfigFile(); err == nil {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	}

	// Environment variables override everything
	mergeEnv(cfg)

	// Parse durations
	var err error
	cfg.PickDelayDuration, err = parseDurationOrDisable(cfg.PickDelay, 3*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid pick delay %q: %w", cfg.PickDelay, err)
	}
	cfg.LivenessTTLDuration, err = parseDurationOrDisable(cfg.LivenessTTL, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid liveness TTL %q: %w", cfg.LivenessTTL, err)
	}

	if _, err := model.ParseMode(cfg.Mode); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile() (string, []byte, error) {
	// 1. Current directory
	if data, err := os.ReadFile(".term-courier.yaml"); err == nil {
		return ".term-courier.yaml", data, nil
	}

	// 2. XDG config dir / ~/.config
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "term-courier", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.Mode != "" {
		cfg.Mode = file.Mode
	}
	if file.AutoEnter != nil {
		cfg.AutoEnter = file.AutoEnter
	}
	if file.ContinueOnFailure {
		cfg.ContinueOnFailure = file.ContinueOnFailure
	}
	if file.AdaptivePacing != nil {
		cfg.AdaptivePacing = file.AdaptivePacing
	}
	if file.PickDelay != "" {
		cfg.PickDelay = file.PickDelay
	}
	if len(file.ExcludeClasses) > 0 {
		cfg.ExcludeClasses = file.ExcludeClasses
	}
	if file.LivenessTTL != "" {
		cfg.LivenessTTL = file.LivenessTTL
	}
	if file.Serial.Device != "" {
		cfg.Serial.Device = file.Serial.Device
	}
	if file.Serial.Baud > 0 {
		cfg.Serial.Baud = file.Serial.Baud
	}
	if file.Serial.LineEnding != "" {
		cfg.Serial.LineEnding = file.Serial.LineEnding
	}
	if len(file.Profiles) > 0 {
		cfg.Profiles = file.Profiles
	}
	if file.Logging.Level != "" {
		cfg.Logging.Level = file.Logging.Level
	}
	if file.Logging.Format != "" {
		cfg.Logging.Format = file.Logging.Format
	}
	if file.Logging.File != "" {
		cfg.Logging.File = file.Logging.File
	}
	if file.IntakeSocket != "" {
		cfg.IntakeSocket = file.IntakeSocket
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
	if file.Theme != "" {
		cfg.Theme = file.Theme
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) {
	if v := os.Getenv("TERM_COURIER_MODE"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("TERM_COURIER_AUTO_ENTER"); v != "" {
		b := v == "true" || v == "1"
		cfg.AutoEnter = &b
	}
	if v := os.Getenv("TERM_COURIER_CONTINUE_ON_FAILURE"); v == "true" || v == "1" {
		cfg.ContinueOnFailure = true
	}
	if v := os.Getenv("TERM_COURIER_ADAPTIVE_PACING"); v != "" {
		b := v == "true" || v == "1"
		cfg.AdaptivePacing = &b
	}
	if v := os.Getenv("TERM_COURIER_PICK_DELAY"); v != "" {
		cfg.PickDelay = v
	}
	if v := os.Getenv("TERM_COURIER_EXCLUDE_CLASSES"); v != "" {
		cfg.ExcludeClasses = splitList(v)
	}
	if v := os.Getenv("TERM_COURIER_LIVENESS_TTL"); v != "" {
		cfg.LivenessTTL = v
	}
	if v := os.Getenv("TERM_COURIER_SERIAL_DEVICE"); v != "" {
		cfg.Serial.Device = v
	}
	if v := os.Getenv("TERM_COURIER_SERIAL_BAUD"); v != "" {
		var baud int
		if _, err := fmt.Sscanf(v, "%d", &baud); err == nil && baud > 0 {
			cfg.Serial.Baud = baud
		}
	}
	if v := os.Getenv("TERM_COURIER_SERIAL_LINE_ENDING"); v != "" {
		cfg.Serial.LineEnding = v
	}
	if v := os.Getenv("TERM_COURIER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TERM_COURIER_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("TERM_COURIER_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
	if v := os.Getenv("TERM_COURIER_INTAKE_SOCKET"); v != "" {
		cfg.IntakeSocket = v
	}
	if v := os.Getenv("TERM_COURIER_THEME"); v != "" {
		cfg.Theme = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}
}

// TerminalProfiles converts the configured profile entries into table rows
// for merging over the builtins.
func (c *Config) TerminalProfiles() ([]model.TerminalProfile, error) {
	var out []model.TerminalProfile
	for i, pc := range c.Profiles {
		if strings.TrimSpace(pc.ID) == "" {
			return nil, fmt.Errorf("profiles[%d]: id is required", i)
		}
		p := model.TerminalProfile{
			ID:             model.ProfileID(pc.ID),
			Name:           pc.Name,
			Rules:          pc.Rules,
			Strategy:       model.StrategyKind(pc.Strategy),
			PasteShortcut:  pc.PasteShortcut,
			PasteButton:    pc.PasteButton,
			EnterChord:     pc.EnterChord,
			MultilineInput: pc.MultilineInput,
		}
		for _, f := range pc.Fallbacks {
			p.Fallbacks = append(p.Fallbacks, model.StrategyKind(f))
		}
		if pc.SendDelay != "" {
			d, err := time.ParseDuration(pc.SendDelay)
			if err != nil {
				return nil, fmt.Errorf("profiles[%d] (%s): invalid send_delay %q: %w", i, pc.ID, pc.SendDelay, err)
			}
			p.SendDelay = d
		}
		p.FocusRetry.MaxAttempts = pc.FocusAttempts
		if pc.FocusDelay != "" {
			d, err := time.ParseDuration(pc.FocusDelay)
			if err != nil {
				return nil, fmt.Errorf("profiles[%d] (%s): invalid focus_delay %q: %w", i, pc.ID, pc.FocusDelay, err)
			}
			p.FocusRetry.Delay = d
		}
		out = append(out, p)
	}
	return out, nil
}

// parseDurationOrDisable parses a duration string. "0", "off", "disable" return 0.
// Empty string returns the fallback value.
func parseDurationOrDisable(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	if s == "0" || s == "off" || s == "disable" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// MatchesExcludeList reports whether name matches any exclusion pattern.
// Patterns are literal, except a trailing "*" which matches any suffix.
func MatchesExcludeList(name string, patterns []string) bool {
	for _, pat := range patterns {
		if pat == "" {
			continue
		}
		if strings.HasSuffix(pat, "*") {
			if strings.HasPrefix(name, strings.TrimSuffix(pat, "*")) {
				return true
			}
			continue
		}
		if name == pat {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
