package strategy

import (
	"context"
	"fmt"

	"github.com/timvw/term-courier/internal/model"
	"github.com/timvw/term-courier/internal/winsys"
)

// WindowMessage posts text straight to the target window without taking
// foreground focus (send-event injection addressed by window id). Not
// every terminal honors synthetic events, so this is opt-in per profile,
// but when it works the operator's own focus is never stolen.
type WindowMessage struct {
	Keyboard winsys.Keyboard
}

func (s *WindowMessage) Kind() model.StrategyKind { return model.StrategyWindowMessage }

func (s *WindowMessage) NeedsFocus() bool { return false }

func (s *WindowMessage) Send(ctx context.Context, target *model.SendTarget, unit model.CommandUnit) error {
	text := payload(unit)
	if text == "" {
		return nil
	}
	if err := s.Keyboard.PostText(ctx, target.Window.ID, text, target.Pace); err != nil {
		return model.SendFailed(fmt.Errorf("post text to window %s: %w", target.Window.ID, err))
	}
	return nil
}

func (s *WindowMessage) Submit(ctx context.Context, target *model.SendTarget) error {
	if err := s.Keyboard.PressKeys(ctx, target.Window.ID, enterChord(target.Profile)); err != nil {
		return model.SendFailed(fmt.Errorf("post %s to window %s: %w", enterChord(target.Profile), target.Window.ID, err))
	}
	return nil
}
