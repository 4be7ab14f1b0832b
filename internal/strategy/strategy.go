// Package strategy implements the delivery mechanisms that move command
// text into a target: synthesized keystrokes, clipboard paste, direct
// window messages, and serial writes.
//
// A strategy delivers text; it never submits. The Enter press (or serial
// line terminator) is a separate Submit call, always driven by the
// dispatcher, so auto-enter stays a single decision point and no payload
// smuggles its own execute.
package strategy

import (
	"context"
	"strings"

	"github.com/timvw/term-courier/internal/model"
)

// Strategy is one delivery mechanism. Implementations read the target's
// profile and pace but never mutate the profile; per-send mutable state
// lives on the SendTarget.
type Strategy interface {
	// Kind names the mechanism.
	Kind() model.StrategyKind

	// NeedsFocus reports whether the target window must hold input focus
	// before Send. Focus-free strategies let the dispatcher skip
	// acquisition entirely.
	NeedsFocus() bool

	// Send delivers the unit's text to the target without submitting it.
	Send(ctx context.Context, target *model.SendTarget, unit model.CommandUnit) error

	// Submit injects the execute action: the profile's enter chord, or
	// the line terminator on the serial route.
	Submit(ctx context.Context, target *model.SendTarget) error
}

// Registry maps strategy kinds to their implementations.
type Registry struct {
	strategies map[model.StrategyKind]Strategy
}

// NewRegistry builds a registry over the given strategies.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: make(map[model.StrategyKind]Strategy, len(strategies))}
	for _, s := range strategies {
		r.strategies[s.Kind()] = s
	}
	return r
}

// Register adds or replaces a strategy.
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Kind()] = s
}

// For returns the implementation for a kind.
func (r *Registry) For(kind model.StrategyKind) (Strategy, bool) {
	s, ok := r.strategies[kind]
	return s, ok
}

// Chain returns the ordered strategies to try for one send. Terminal mode
// follows the profile: primary first, then fallbacks, duplicates dropped.
// Clipboard mode forces clipboard paste with no fallbacks (the operator
// asked for exactly that route), and serial mode is always just the
// serial writer. Kinds with no registered implementation are skipped.
func (r *Registry) Chain(p model.TerminalProfile, mode model.Mode) []Strategy {
	var kinds []model.StrategyKind
	switch mode {
	case model.ModeSerial:
		kinds = []model.StrategyKind{model.StrategySerial}
	case model.ModeClipboard:
		kinds = []model.StrategyKind{model.StrategyClipboardPaste}
	default:
		kinds = make([]model.StrategyKind, 0, 1+len(p.Fallbacks))
		kinds = append(kinds, p.Strategy)
		kinds = append(kinds, p.Fallbacks...)
	}

	seen := make(map[model.StrategyKind]bool, len(kinds))
	chain := make([]Strategy, 0, len(kinds))
	for _, k := range kinds {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		if s, ok := r.strategies[k]; ok {
			chain = append(chain, s)
		}
	}
	return chain
}

// payload renders a unit's deliverable text: line breaks normalized to
// "\n" and at most one trailing break stripped. Submission is never part
// of the payload.
func payload(unit model.CommandUnit) string {
	text := strings.ReplaceAll(unit.Text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSuffix(text, "\n")
}

// enterChord returns the profile's execute key, defaulting to Return.
func enterChord(p model.TerminalProfile) string {
	if p.EnterChord != "" {
		return p.EnterChord
	}
	return "Return"
}
