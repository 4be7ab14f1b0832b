// Package profile maps resolved windows to terminal profiles.
//
// Each profile recognizes one class of terminal program (process name,
// window class, title patterns) and carries its delivery configuration:
// which strategy to use, the paste variant, keystroke pacing, and the
// focus retry budget. Terminal-specific quirks live here as data, not as
// code branches — adding a terminal program is a profile entry, never a
// new code path.
//
// The Classifier tries each profile in declared order and returns the
// first match. The generic profile's always-true rule sits last, so
// classification is total: every window gets exactly one profile.
package profile

import (
	"time"

	"github.com/timvw/term-courier/internal/model"
)

// Classifier holds an ordered profile table. Declared order is the
// tie-break when a window matches several profiles (a terminal embedding
// another terminal's window class classifies as whichever is listed
// first).
type Classifier struct {
	profiles []model.TerminalProfile
}

// NewClassifier creates a classifier over the given table. With no
// profiles it uses Builtins().
func NewClassifier(profiles ...model.TerminalProfile) *Classifier {
	if len(profiles) == 0 {
		profiles = Builtins()
	}
	return &Classifier{profiles: profiles}
}

// Classify returns the first profile whose rules match the window. Total
// and idempotent: unmatched windows get the generic profile, and the same
// window always classifies the same way.
func (c *Classifier) Classify(w model.Window) model.TerminalProfile {
	for _, p := range c.profiles {
		if p.Matches(w) {
			return p
		}
	}
	// Unreachable with a well-formed table (generic matches everything),
	// but a hand-built table without generic still gets a total answer.
	return Generic()
}

// Profiles returns the table in evaluation order.
func (c *Classifier) Profiles() []model.TerminalProfile {
	out := make([]model.TerminalProfile, len(c.profiles))
	copy(out, c.profiles)
	return out
}

// ByID returns the profile with the given id.
func (c *Classifier) ByID(id model.ProfileID) (model.TerminalProfile, bool) {
	for _, p := range c.profiles {
		if p.ID == id {
			return p, true
		}
	}
	return model.TerminalProfile{}, false
}

// defaultFocusRetry bounds focus acquisition for terminals without their
// own budget. Window managers process activation asynchronously, so one
// synchronous check produces false negatives; five polls at 100ms cover
// observed activation latencies without stalling the operator.
var defaultFocusRetry = model.RetryPolicy{MaxAttempts: 5, Delay: 100 * time.Millisecond}

// Builtins returns the built-in profile table in evaluation order.
//
// Order is the tie-break policy: the Windows Terminal class rule runs
// before the broad process-name rules (a PowerShell tab inside Windows
// Terminal classifies as windows_terminal, not powershell), and generic
// runs last with an always-true rule. Send delays follow each terminal's
// observed input-buffer tolerance.
func Builtins() []model.TerminalProfile {
	return []model.TerminalProfile{
		{
			ID:   model.ProfileWindowsTerminal,
			Name: "Windows Terminal",
			Rules: []model.MatchRule{
				{Class: "CASCADIA_HOSTING_WINDOW_CLASS"},
				{Class: "WindowsTerminal"},
				{Process: "windowsterminal"},
			},
			// Windows Terminal's input buffer drops rapid synthetic
			// keystrokes; paste delivers the whole unit at once.
			Strategy:       model.StrategyClipboardPaste,
			Fallbacks:      []model.StrategyKind{model.StrategyKeystrokes},
			PasteShortcut:  "ctrl+shift+v",
			EnterChord:     "Return",
			MultilineInput: true,
			SendDelay:      8 * time.Millisecond,
			FocusRetry:     defaultFocusRetry,
		},
		{
			ID:   model.ProfilePowerShell,
			Name: "PowerShell",
			Rules: []model.MatchRule{
				{Process: "powershell"},
				{Process: "pwsh"},
				// Console host windows carry the shell in the title.
				{Class: "ConsoleWindowClass", Title: "powershell"},
			},
			Strategy:      model.StrategyKeystrokes,
			Fallbacks:     []model.StrategyKind{model.StrategyClipboardPaste},
			PasteShortcut: "ctrl+v",
			EnterChord:    "Return",
			SendDelay:     15 * time.Millisecond,
			FocusRetry:    defaultFocusRetry,
		},
		{
			ID:   model.ProfileMobaXterm,
			Name: "MobaXterm",
			Rules: []model.MatchRule{
				{Process: "mobaxterm"},
				{Class: "mobaxterm"},
			},
			Strategy:      model.StrategyKeystrokes,
			Fallbacks:     []model.StrategyKind{model.StrategyClipboardPaste},
			PasteShortcut: "shift+Insert",
			EnterChord:    "Return",
			SendDelay:     10 * time.Millisecond,
			FocusRetry:    defaultFocusRetry,
		},
		{
			ID:   model.ProfileSecureCRT,
			Name: "SecureCRT",
			Rules: []model.MatchRule{
				{Process: "securecrt"},
				{Class: "securecrt"},
			},
			Strategy:      model.StrategyKeystrokes,
			Fallbacks:     []model.StrategyKind{model.StrategyClipboardPaste},
			PasteShortcut: "shift+Insert",
			EnterChord:    "Return",
			SendDelay:     10 * time.Millisecond,
			FocusRetry:    defaultFocusRetry,
		},
		{
			ID:   model.ProfileXshell,
			Name: "Xshell",
			Rules: []model.MatchRule{
				{Process: "xshell"},
				{Class: "xshell"},
			},
			Strategy:      model.StrategyKeystrokes,
			Fallbacks:     []model.StrategyKind{model.StrategyClipboardPaste},
			PasteShortcut: "shift+Insert",
			EnterChord:    "Return",
			SendDelay:     10 * time.Millisecond,
			FocusRetry:    defaultFocusRetry,
		},
		{
			ID:   model.ProfilePuTTY,
			Name: "PuTTY",
			Rules: []model.MatchRule{
				{Process: "putty"},
				{Class: "putty"},
			},
			Strategy: model.StrategyKeystrokes,
			// PuTTY's paste convention is a mouse button, not a chord.
			Fallbacks:   []model.StrategyKind{model.StrategyClipboardPaste},
			PasteButton: 2,
			EnterChord:  "Return",
			SendDelay:   10 * time.Millisecond,
			FocusRetry:  defaultFocusRetry,
		},
		Generic(),
	}
}

// Generic is the fallback profile: simulated keystrokes with conservative
// pacing, the safest common denominator for unrecognized terminals. Its
// single empty rule matches every window, which is what makes Classify
// total.
func Generic() model.TerminalProfile {
	return model.TerminalProfile{
		ID:         model.ProfileGeneric,
		Name:       "Generic terminal",
		Rules:      []model.MatchRule{{}},
		Strategy:   model.StrategyKeystrokes,
		EnterChord: "Return",
		SendDelay:  10 * time.Millisecond,
		FocusRetry: model.RetryPolicy{MaxAttempts: 5, Delay: 150 * time.Millisecond},
	}
}

// Serial is the pseudo-profile bound when the operator selects serial
// mode. It never appears in the classifier table: serial delivery is
// chosen by operator mode, not by window classification.
func Serial() model.TerminalProfile {
	return model.TerminalProfile{
		ID:       model.ProfileSerial,
		Name:     "Serial port",
		Strategy: model.StrategySerial,
	}
}

// Merge overlays overrides onto a base table by profile id. Non-zero
// override fields replace the base profile's; profiles with new ids are
// inserted before the trailing generic entry so the always-true rule
// stays last. The returned table is a fresh slice.
func Merge(base []model.TerminalProfile, overrides []model.TerminalProfile) []model.TerminalProfile {
	merged := make([]model.TerminalProfile, len(base))
	copy(merged, base)

	for _, o := range overrides {
		if i := indexByID(merged, o.ID); i >= 0 {
			merged[i] = overlay(merged[i], o)
			continue
		}
		if g := indexByID(merged, model.ProfileGeneric); g >= 0 {
			merged = append(merged[:g], append([]model.TerminalProfile{o}, merged[g:]...)...)
		} else {
			merged = append(merged, o)
		}
	}
	return merged
}

func indexByID(profiles []model.TerminalProfile, id model.ProfileID) int {
	for i, p := range profiles {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// overlay replaces base fields with non-zero override fields.
// MultilineInput true in an override enables it; overrides cannot set it
// back to false without replacing the whole profile under a new id.
func overlay(base, o model.TerminalProfile) model.TerminalProfile {
	out := base
	if o.Name != "" {
		out.Name = o.Name
	}
	if len(o.Rules) > 0 {
		out.Rules = o.Rules
	}
	if o.Strategy != "" {
		out.Strategy = o.Strategy
	}
	if len(o.Fallbacks) > 0 {
		out.Fallbacks = o.Fallbacks
	}
	if o.PasteShortcut != "" {
		out.PasteShortcut = o.PasteShortcut
	}
	if o.PasteButton != 0 {
		out.PasteButton = o.PasteButton
	}
	if o.EnterChord != "" {
		out.EnterChord = o.EnterChord
	}
	if o.MultilineInput {
		out.MultilineInput = true
	}
	if o.SendDelay != 0 {
		out.SendDelay = o.SendDelay
	}
	if o.FocusRetry.MaxAttempts != 0 {
		out.FocusRetry.MaxAttempts = o.FocusRetry.MaxAttempts
	}
	if o.FocusRetry.Delay != 0 {
		out.FocusRetry.Delay = o.FocusRetry.Delay
	}
	return out
}
