package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/timvw/term-courier/internal/model"
	"github.com/timvw/term-courier/internal/winsys"
)

// Keystrokes synthesizes one key event pair per character into the
// focused window, paced by the target's adaptive delay. The universal
// mechanism: every terminal accepts typed input.
type Keystrokes struct {
	Keyboard winsys.Keyboard
}

func (s *Keystrokes) Kind() model.StrategyKind { return model.StrategyKeystrokes }

func (s *Keystrokes) NeedsFocus() bool { return true }

// Send types the unit's text. Terminals that reject literal line breaks
// inside one injection get the text line by line, with the enter chord
// pressed between lines but never after the last.
func (s *Keystrokes) Send(ctx context.Context, target *model.SendTarget, unit model.CommandUnit) error {
	text := payload(unit)
	if text == "" {
		return nil
	}

	if target.Profile.MultilineInput || !strings.Contains(text, "\n") {
		if err := s.Keyboard.TypeText(ctx, text, target.Pace); err != nil {
			return model.SendFailed(fmt.Errorf("type text: %w", err))
		}
		return nil
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			if err := s.Keyboard.TypeText(ctx, line, target.Pace); err != nil {
				return model.SendFailed(fmt.Errorf("type line %d: %w", i+1, err))
			}
		}
		if i < len(lines)-1 {
			if err := s.Keyboard.PressKeys(ctx, "", enterChord(target.Profile)); err != nil {
				return model.SendFailed(fmt.Errorf("line break after line %d: %w", i+1, err))
			}
		}
	}
	return nil
}

func (s *Keystrokes) Submit(ctx context.Context, target *model.SendTarget) error {
	if err := s.Keyboard.PressKeys(ctx, "", enterChord(target.Profile)); err != nil {
		return model.SendFailed(fmt.Errorf("press %s: %w", enterChord(target.Profile), err))
	}
	return nil
}
