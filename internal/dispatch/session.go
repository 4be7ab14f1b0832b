package dispatch

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/timvw/term-courier/internal/model"
	"github.com/timvw/term-courier/internal/profile"
	"github.com/timvw/term-courier/internal/resolver"
)

// Session owns the operator's mutable dispatch state: the one current
// target, the mode, and the auto-enter default. There is exactly one
// current target at a time; a new pick atomically replaces the old
// binding and a lost target clears it.
//
// Sends serialize on an internal mutex, so concurrent callers (TUI,
// intake socket) deliver whole batches in arrival order. State reads
// never wait behind an in-flight send: the dispatcher works on a private
// copy of the target and the session folds the mutations back afterwards.
type Session struct {
	Dispatcher *Dispatcher
	Resolver   *resolver.Resolver
	Classifier *profile.Classifier
	Logger     *slog.Logger // nil means slog.Default()

	// SerialCloser releases the serial route when the session leaves
	// serial mode and on Close. Usually the *strategy.Serial.
	SerialCloser io.Closer

	// ContinueOnFailure keeps delivering later batch units after one
	// fails, instead of stopping at the first hole.
	ContinueOnFailure bool

	stateMu   sync.Mutex // guards current, mode, autoEnter
	sendMu    sync.Mutex // serializes sends; batches never interleave
	current   *model.SendTarget
	mode      model.Mode
	autoEnter bool
}

// NewSession builds a session in terminal mode with auto-enter on.
func NewSession(d *Dispatcher, r *resolver.Resolver, c *profile.Classifier) *Session {
	return &Session{
		Dispatcher: d,
		Resolver:   r,
		Classifier: c,
		mode:       model.ModeTerminal,
		autoEnter:  true,
	}
}

// PickAt resolves and binds the window under the screen point.
func (s *Session) PickAt(ctx context.Context, p model.Point) (model.SendTarget, error) {
	w, err := s.Resolver.Resolve(ctx, p)
	if err != nil {
		return model.SendTarget{}, err
	}
	return s.bind(w), nil
}

// PickAtPointer resolves and binds the window under the pointer: the
// final step of a pick gesture.
func (s *Session) PickAtPointer(ctx context.Context) (model.SendTarget, error) {
	w, err := s.Resolver.ResolveAtPointer(ctx)
	if err != nil {
		return model.SendTarget{}, err
	}
	return s.bind(w), nil
}

// PickWindow binds an explicitly named window id, bypassing pointer
// resolution. The id is still verified against the window system.
func (s *Session) PickWindow(ctx context.Context, id string) (model.SendTarget, error) {
	w, err := s.Dispatcher.Sys.WindowInfo(ctx, id)
	if err != nil {
		return model.SendTarget{}, model.NotFound("window "+id, err)
	}
	return s.bind(w), nil
}

// bind classifies the window and swaps it in as the current target.
func (s *Session) bind(w model.Window) model.SendTarget {
	p := s.Classifier.Classify(w)
	t := model.NewSendTarget(w, p)

	s.stateMu.Lock()
	s.current = t
	s.stateMu.Unlock()

	s.logger().Info("target picked",
		"window", w.ID,
		"process", w.ProcessName,
		"class", w.Class,
		"title", w.Title,
		"profile", string(p.ID))
	return *t
}

// Current returns a snapshot of the current target.
func (s *Session) Current() (model.SendTarget, bool) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.current == nil {
		return model.SendTarget{}, false
	}
	return *s.current, true
}

// Clear drops the current binding.
func (s *Session) Clear() {
	s.stateMu.Lock()
	s.current = nil
	s.stateMu.Unlock()
}

// Mode returns the active delivery mode.
func (s *Session) Mode() model.Mode {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.mode
}

// SetMode switches the delivery mode. Leaving serial mode releases the
// open port; the next serial stretch reopens it.
func (s *Session) SetMode(m model.Mode) {
	s.stateMu.Lock()
	prev := s.mode
	s.mode = m
	s.stateMu.Unlock()

	if prev == model.ModeSerial && m != model.ModeSerial && s.SerialCloser != nil {
		if err := s.SerialCloser.Close(); err != nil {
			s.logger().Warn("closing serial port", "error", err)
		}
	}
	if prev != m {
		s.logger().Info("mode changed", "from", string(prev), "to", string(m))
	}
}

// CycleMode advances terminal -> clipboard -> serial -> terminal.
func (s *Session) CycleMode() model.Mode {
	var next model.Mode
	switch s.Mode() {
	case model.ModeTerminal:
		next = model.ModeClipboard
	case model.ModeClipboard:
		next = model.ModeSerial
	default:
		next = model.ModeTerminal
	}
	s.SetMode(next)
	return next
}

// AutoEnter returns the session's auto-enter default.
func (s *Session) AutoEnter() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.autoEnter
}

// SetAutoEnter sets the auto-enter default for subsequent sends.
func (s *Session) SetAutoEnter(on bool) {
	s.stateMu.Lock()
	s.autoEnter = on
	s.stateMu.Unlock()
}

// ToggleAutoEnter flips the auto-enter default and returns the new value.
func (s *Session) ToggleAutoEnter() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.autoEnter = !s.autoEnter
	return s.autoEnter
}

// Send splits text into command units using the session's auto-enter
// default and delivers them in order.
func (s *Session) Send(ctx context.Context, text string) []model.DispatchResult {
	return s.SendUnits(ctx, model.SplitUnits(text, s.AutoEnter()))
}

// SendUnits delivers pre-split units in order as one batch. In window
// modes a missing binding fails fast with not_found; serial mode needs no
// pick at all. A target_lost outcome clears the binding.
func (s *Session) SendUnits(ctx context.Context, units []model.CommandUnit) []model.DispatchResult {
	if len(units) == 0 {
		return nil
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.stateMu.Lock()
	bound := s.current
	mode := s.mode
	s.stateMu.Unlock()

	// The dispatcher mutates its target (pace, last result); give it a
	// copy so session state only changes under stateMu below.
	var work model.SendTarget
	switch {
	case mode == model.ModeSerial:
		work = *SerialTarget()
	case bound == nil:
		res := model.DispatchResult{
			Text:   units[0].Text,
			Code:   model.CodeNotFound,
			Error:  "no target picked",
			SentAt: time.Now().UTC(),
		}
		s.logger().Error("dispatch failed", "code", string(res.Code), "error", res.Error)
		return []model.DispatchResult{res}
	default:
		work = *bound
	}

	results := s.Dispatcher.DispatchAll(ctx, &work, mode, units, Options{
		ContinueOnFailure: s.ContinueOnFailure,
	})

	if mode != model.ModeSerial {
		s.stateMu.Lock()
		if s.current == bound {
			if lostTarget(results) {
				s.current = nil
				s.stateMu.Unlock()
				s.logger().Warn("target lost, binding cleared", "window", bound.Window.ID)
			} else {
				bound.Pace = work.Pace
				bound.LastFocusedAt = work.LastFocusedAt
				bound.LastResult = work.LastResult
				s.stateMu.Unlock()
			}
		} else {
			s.stateMu.Unlock()
		}
	}
	return results
}

// Close releases session resources (the serial route, if open).
func (s *Session) Close() error {
	if s.SerialCloser != nil {
		return s.SerialCloser.Close()
	}
	return nil
}

func lostTarget(results []model.DispatchResult) bool {
	for _, r := range results {
		if r.Code == model.CodeTargetLost {
			return true
		}
	}
	return false
}

func (s *Session) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
