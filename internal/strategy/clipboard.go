package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/timvw/term-courier/internal/model"
	tcotel "github.com/timvw/term-courier/internal/otel"
	"github.com/timvw/term-courier/internal/winsys"
)

// clipboardSettle is the minimum wait between the clipboard write and the
// paste injection. The write and the terminal's paste handler race
// through the clipboard owner; pasting too early delivers the previous
// clipboard contents.
const clipboardSettle = 50 * time.Millisecond

// ClipboardPaste stages the whole unit on the system clipboard and
// injects the profile's paste gesture. Delivers large payloads in one
// beat and survives input buffers that drop rapid keystrokes, at the
// cost of clobbering the user's clipboard.
type ClipboardPaste struct {
	Clipboard winsys.Clipboard
	Keyboard  winsys.Keyboard
	Sleep     func(time.Duration) // nil means time.Sleep; injectable for tests
	Metrics   *tcotel.Metrics     // nil-safe
}

func (s *ClipboardPaste) Kind() model.StrategyKind { return model.StrategyClipboardPaste }

func (s *ClipboardPaste) NeedsFocus() bool { return true }

// Send writes the payload to the clipboard, waits for the write to
// settle, then triggers the paste: the profile's mouse button when set
// (PuTTY convention), otherwise its paste chord, defaulting to ctrl+v.
func (s *ClipboardPaste) Send(ctx context.Context, target *model.SendTarget, unit model.CommandUnit) error {
	text := payload(unit)
	if text == "" {
		return nil
	}

	if err := s.Clipboard.WriteAll(text); err != nil {
		return model.SendFailed(fmt.Errorf("clipboard write: %w", err))
	}
	s.Metrics.RecordClipboardWrite(ctx)

	settle := clipboardSettle
	if target.Pace > settle {
		settle = target.Pace
	}
	s.sleep(settle)

	if btn := target.Profile.PasteButton; btn != 0 {
		if err := s.Keyboard.Click(ctx, target.Window.ID, btn); err != nil {
			return model.SendFailed(fmt.Errorf("paste click (button %d): %w", btn, err))
		}
		return nil
	}

	chord := target.Profile.PasteShortcut
	if chord == "" {
		chord = "ctrl+v"
	}
	if err := s.Keyboard.PressKeys(ctx, "", chord); err != nil {
		return model.SendFailed(fmt.Errorf("paste chord %s: %w", chord, err))
	}
	return nil
}

func (s *ClipboardPaste) Submit(ctx context.Context, target *model.SendTarget) error {
	if err := s.Keyboard.PressKeys(ctx, "", enterChord(target.Profile)); err != nil {
		return model.SendFailed(fmt.Errorf("press %s: %w", enterChord(target.Profile), err))
	}
	return nil
}

func (s *ClipboardPaste) sleep(d time.Duration) {
	if s.Sleep != nil {
		s.Sleep(d)
		return
	}
	time.Sleep(d)
}
