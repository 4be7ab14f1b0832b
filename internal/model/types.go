package model

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects the output route for dispatched commands.
type Mode string

const (
	// ModeTerminal delivers through the classified profile's strategy.
	ModeTerminal Mode = "terminal"
	// ModeClipboard forces clipboard-paste delivery regardless of profile.
	ModeClipboard Mode = "clipboard"
	// ModeSerial writes to the configured serial port; windows and focus
	// are not involved at all.
	ModeSerial Mode = "serial"
)

// ParseMode validates a mode string. An empty string means ModeTerminal.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeTerminal:
		return ModeTerminal, nil
	case ModeClipboard:
		return ModeClipboard, nil
	case ModeSerial:
		return ModeSerial, nil
	default:
		return "", fmt.Errorf("unknown mode %q (supported: terminal, clipboard, serial)", s)
	}
}

// ProfileID identifies a terminal profile. The builtin set below is closed;
// configuration may introduce additional ids for custom profiles.
type ProfileID string

const (
	ProfilePowerShell      ProfileID = "powershell"
	ProfileMobaXterm       ProfileID = "mobaxterm"
	ProfileSecureCRT       ProfileID = "securecrt"
	ProfileXshell          ProfileID = "xshell"
	ProfilePuTTY           ProfileID = "putty"
	ProfileWindowsTerminal ProfileID = "windows_terminal"
	ProfileGeneric         ProfileID = "generic"

	// ProfileSerial is the pseudo-profile bound when the operator selects
	// serial mode. It never appears in the classifier table.
	ProfileSerial ProfileID = "serial"
)

// StrategyKind names a delivery mechanism.
type StrategyKind string

const (
	// StrategyKeystrokes synthesizes one key event pair per character.
	StrategyKeystrokes StrategyKind = "keystrokes"
	// StrategyClipboardPaste writes the clipboard then injects the
	// profile's paste shortcut or mouse button.
	StrategyClipboardPaste StrategyKind = "clipboard_paste"
	// StrategyWindowMessage posts text directly to the target window
	// without requiring foreground focus.
	StrategyWindowMessage StrategyKind = "window_message"
	// StrategySerial writes raw bytes to the open serial port.
	StrategySerial StrategyKind = "serial"
)

// Point is a screen coordinate in pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect is a window's on-screen geometry.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Area returns the rectangle's area in square pixels.
func (r Rect) Area() int {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// Window is the resolved metadata snapshot for an OS window handle.
// The OS owns the window; this is a weak reference. The window can close at
// any moment, so liveness is a query against the window system, never a
// stored field.
type Window struct {
	// ID is the opaque OS window identifier (X11 window id, decimal string).
	ID string `json:"id"`
	// PID is the owning process id.
	PID int `json:"pid"`
	// ProcessName is the owning process's short name (e.g. "putty").
	ProcessName string `json:"process_name"`
	// Class is the window class (X11 WM_CLASS class component).
	Class string `json:"class"`
	// Title is the window title at resolve time.
	Title string `json:"title"`
	// Rect is the window's screen geometry at resolve time.
	Rect Rect `json:"rect"`
}

// String renders a compact human-readable form for logs and status lines.
func (w Window) String() string {
	return fmt.Sprintf("%s (%s/%s pid=%d)", w.Title, w.ProcessName, w.Class, w.PID)
}

// MatchRule is one predicate over a window's identity. Comparisons are
// case-insensitive substring matches. Empty fields are wildcards; a rule
// with all fields empty matches every window.
type MatchRule struct {
	Process string `json:"process,omitempty" yaml:"process,omitempty"`
	Class   string `json:"class,omitempty" yaml:"class,omitempty"`
	Title   string `json:"title,omitempty" yaml:"title,omitempty"`
}

// Matches reports whether every non-empty field is a case-insensitive
// substring of the window's corresponding attribute.
func (r MatchRule) Matches(w Window) bool {
	if r.Process != "" && !containsFold(w.ProcessName, r.Process) {
		return false
	}
	if r.Class != "" && !containsFold(w.Class, r.Class) {
		return false
	}
	if r.Title != "" && !containsFold(w.Title, r.Title) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// RetryPolicy bounds focus acquisition polling.
type RetryPolicy struct {
	// MaxAttempts is the number of activate-then-verify rounds.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`
	// Delay is the sleep between attempts.
	Delay time.Duration `json:"delay" yaml:"delay"`
}

// TerminalProfile is an immutable descriptor for one class of terminal
// program: how to recognize its windows and how to deliver text to them.
// Strategies never mutate a profile; all per-send mutable state lives on
// the SendTarget.
type TerminalProfile struct {
	ID   ProfileID `json:"id"`
	Name string    `json:"name"`

	// Rules are evaluated in order; the profile matches a window when any
	// rule matches. Title rules only confirm a window belongs to the
	// terminal (not a settings dialog of the same process); they never
	// select which window.
	Rules []MatchRule `json:"rules,omitempty"`

	// Strategy is the primary delivery mechanism; Fallbacks are tried once
	// each, in order, when the primary reports a send failure.
	Strategy  StrategyKind   `json:"strategy"`
	Fallbacks []StrategyKind `json:"fallbacks,omitempty"`

	// PasteShortcut is the key chord injected after a clipboard write
	// (e.g. "ctrl+shift+v", "shift+Insert"). PasteButton, when non-zero,
	// selects a mouse-button paste instead (middle-click convention).
	PasteShortcut string `json:"paste_shortcut,omitempty"`
	PasteButton   int    `json:"paste_button,omitempty"`

	// EnterChord is the execute key for this terminal.
	EnterChord string `json:"enter_chord"`

	// MultilineInput indicates the terminal accepts literal line-break
	// keystrokes inside one injection. When false, multi-line text is
	// split and sent line-by-line with an explicit Enter between lines.
	MultilineInput bool `json:"multiline_input"`

	// SendDelay is the inter-keystroke pacing; the starting point for the
	// per-target adaptive pace.
	SendDelay time.Duration `json:"send_delay"`

	// FocusRetry bounds focus acquisition for this terminal.
	FocusRetry RetryPolicy `json:"focus_retry"`
}

// Matches reports whether any rule matches the window.
func (p TerminalProfile) Matches(w Window) bool {
	for _, r := range p.Rules {
		if r.Matches(w) {
			return true
		}
	}
	return false
}

// CommandUnit is one logical piece of text to deliver plus its auto-enter
// flag: the unit of a single dispatch call.
type CommandUnit struct {
	Text      string `json:"text"`
	AutoEnter bool   `json:"auto_enter"`
}

// SplitUnits turns a multi-line block into one CommandUnit per line, in
// source order. CRLF is normalized, blank lines and "#" comment lines are
// dropped (they carry nothing deliverable).
func SplitUnits(text string, autoEnter bool) []CommandUnit {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	var units []CommandUnit
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		units = append(units, CommandUnit{Text: line, AutoEnter: autoEnter})
	}
	return units
}

// SendTarget is the mutable session state for the currently selected
// destination. A new pick builds a fresh SendTarget; an existing one is
// never rebound to a different window. Once the handle dies, the next
// dispatch fails fast with a target-lost error instead of silently
// no-opping.
type SendTarget struct {
	Window  Window          `json:"window"`
	Profile TerminalProfile `json:"profile"`

	// PickedAt is when the operator completed the pick gesture.
	PickedAt time.Time `json:"picked_at"`
	// LastFocusedAt is when focus acquisition last succeeded.
	LastFocusedAt time.Time `json:"last_focused_at,omitempty"`
	// LastResult is the most recent dispatch outcome.
	LastResult *DispatchResult `json:"last_result,omitempty"`

	// Pace is the adaptive inter-keystroke delay, seeded from the
	// profile's SendDelay and adjusted after every send.
	Pace time.Duration `json:"pace"`
}

// NewSendTarget builds the session state for a freshly picked window.
func NewSendTarget(w Window, p TerminalProfile) *SendTarget {
	return &SendTarget{
		Window:   w,
		Profile:  p,
		PickedAt: time.Now().UTC(),
		Pace:     p.SendDelay,
	}
}

// DispatchResult is the per-unit report surfaced to the operator.
type DispatchResult struct {
	// Batch groups the results of one multi-line dispatch.
	Batch string `json:"batch,omitempty"`
	// Line is the 0-based index of the unit within its batch.
	Line int `json:"line"`
	// Text is the dispatched command text.
	Text string `json:"text"`
	// Strategy is the mechanism that delivered the unit (or the last one
	// tried, on failure).
	Strategy StrategyKind `json:"strategy,omitempty"`
	// FallbackUsed is true when a fallback strategy delivered after the
	// primary failed.
	FallbackUsed bool `json:"fallback_used,omitempty"`

	OK bool `json:"ok"`
	// Code classifies the failure; empty on success.
	Code ErrorCode `json:"code,omitempty"`
	// Error is the failure message; empty on success.
	Error string `json:"error,omitempty"`

	DurationMs int64     `json:"duration_ms"`
	SentAt     time.Time `json:"sent_at"`
}
