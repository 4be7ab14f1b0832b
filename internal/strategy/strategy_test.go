package strategy

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/timvw/term-courier/internal/model"
)

// fakeKeyboard records injection calls in order.
type kbCall struct {
	op     string // type, post, keys, click
	window string
	text   string
	delay  time.Duration
	button int
}

type fakeKeyboard struct {
	calls    []kbCall
	typeErr  error
	postErr  error
	keysErr  error
	clickErr error
}

func (f *fakeKeyboard) TypeText(ctx context.Context, text string, delay time.Duration) error {
	f.calls = append(f.calls, kbCall{op: "type", text: text, delay: delay})
	return f.typeErr
}

func (f *fakeKeyboard) PostText(ctx context.Context, windowID, text string, delay time.Duration) error {
	f.calls = append(f.calls, kbCall{op: "post", window: windowID, text: text, delay: delay})
	return f.postErr
}

func (f *fakeKeyboard) PressKeys(ctx context.Context, windowID, chord string) error {
	f.calls = append(f.calls, kbCall{op: "keys", window: windowID, text: chord})
	return f.keysErr
}

func (f *fakeKeyboard) Click(ctx context.Context, windowID string, button int) error {
	f.calls = append(f.calls, kbCall{op: "click", window: windowID, button: button})
	return f.clickErr
}

func (f *fakeKeyboard) ops() string {
	var ops []string
	for _, c := range f.calls {
		ops = append(ops, c.op)
	}
	return strings.Join(ops, ",")
}

type fakeClipboard struct {
	content  string
	writes   int
	writeErr error
}

func (f *fakeClipboard) ReadAll() (string, error) { return f.content, nil }

func (f *fakeClipboard) WriteAll(text string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes++
	f.content = text
	return nil
}

type fakeSerialPort struct {
	wire     strings.Builder
	writeErr error
	closes   int
}

func (f *fakeSerialPort) WriteText(text string) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.wire.WriteString(text)
	return len(text), nil
}

func (f *fakeSerialPort) WriteTerminator() (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.wire.WriteString("\n")
	return 1, nil
}

func (f *fakeSerialPort) Close() error {
	f.closes++
	return nil
}

func puttyTarget() *model.SendTarget {
	return model.NewSendTarget(
		model.Window{ID: "100", PID: 42, ProcessName: "putty"},
		model.TerminalProfile{
			ID:          model.ProfilePuTTY,
			Strategy:    model.StrategyKeystrokes,
			Fallbacks:   []model.StrategyKind{model.StrategyClipboardPaste},
			PasteButton: 2,
			EnterChord:  "Return",
			SendDelay:   10 * time.Millisecond,
		},
	)
}

func unit(text string) model.CommandUnit {
	return model.CommandUnit{Text: text, AutoEnter: true}
}

func TestPayload(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"ls -la", "ls -la"},
		{"ls -la\n", "ls -la"},
		{"ls -la\r\n", "ls -la"},
		{"a\nb\n", "a\nb"},
		{"a\r\nb", "a\nb"},
		{"a\n\n", "a\n"},
		{"", ""},
		{"\n", ""},
	}
	for _, tt := range tests {
		if got := payload(unit(tt.text)); got != tt.want {
			t.Errorf("payload(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestRegistry_Chain(t *testing.T) {
	kb := &fakeKeyboard{}
	reg := NewRegistry(
		&Keystrokes{Keyboard: kb},
		&ClipboardPaste{Clipboard: &fakeClipboard{}, Keyboard: kb, Sleep: func(time.Duration) {}},
		&WindowMessage{Keyboard: kb},
		&Serial{Open: func() (SerialPort, error) { return &fakeSerialPort{}, nil }},
	)
	profile := puttyTarget().Profile

	tests := []struct {
		name string
		mode model.Mode
		want []model.StrategyKind
	}{
		{
			name: "terminal mode follows profile order",
			mode: model.ModeTerminal,
			want: []model.StrategyKind{model.StrategyKeystrokes, model.StrategyClipboardPaste},
		},
		{
			name: "clipboard mode forces paste with no fallbacks",
			mode: model.ModeClipboard,
			want: []model.StrategyKind{model.StrategyClipboardPaste},
		},
		{
			name: "serial mode is just the serial writer",
			mode: model.ModeSerial,
			want: []model.StrategyKind{model.StrategySerial},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := reg.Chain(profile, tt.mode)
			if len(chain) != len(tt.want) {
				t.Fatalf("chain length = %d, want %d", len(chain), len(tt.want))
			}
			for i, s := range chain {
				if s.Kind() != tt.want[i] {
					t.Errorf("chain[%d] = %q, want %q", i, s.Kind(), tt.want[i])
				}
			}
		})
	}
}

func TestRegistry_ChainDeduplicates(t *testing.T) {
	kb := &fakeKeyboard{}
	reg := NewRegistry(&Keystrokes{Keyboard: kb})

	p := model.TerminalProfile{
		Strategy:  model.StrategyKeystrokes,
		Fallbacks: []model.StrategyKind{model.StrategyKeystrokes, model.StrategyKeystrokes},
	}
	chain := reg.Chain(p, model.ModeTerminal)
	if len(chain) != 1 {
		t.Errorf("chain length = %d, want 1 after dedupe", len(chain))
	}
}

func TestRegistry_ChainSkipsUnregistered(t *testing.T) {
	kb := &fakeKeyboard{}
	reg := NewRegistry(&Keystrokes{Keyboard: kb})

	p := model.TerminalProfile{
		Strategy:  model.StrategyClipboardPaste,
		Fallbacks: []model.StrategyKind{model.StrategyKeystrokes},
	}
	chain := reg.Chain(p, model.ModeTerminal)
	if len(chain) != 1 || chain[0].Kind() != model.StrategyKeystrokes {
		t.Errorf("chain = %v, want just the registered keystrokes strategy", chain)
	}
}

func TestKeystrokes_SingleLine(t *testing.T) {
	kb := &fakeKeyboard{}
	s := &Keystrokes{Keyboard: kb}
	target := puttyTarget()

	if err := s.Send(context.Background(), target, unit("uptime")); err != nil {
		t.Fatalf("Send returned %v", err)
	}
	if kb.ops() != "type" {
		t.Fatalf("ops = %q, want single type (no enter from Send)", kb.ops())
	}
	if kb.calls[0].text != "uptime" {
		t.Errorf("typed %q, want %q", kb.calls[0].text, "uptime")
	}
	if kb.calls[0].delay != target.Pace {
		t.Errorf("delay = %v, want target pace %v", kb.calls[0].delay, target.Pace)
	}
}

func TestKeystrokes_MultilineSplit(t *testing.T) {
	kb := &fakeKeyboard{}
	s := &Keystrokes{Keyboard: kb}

	err := s.Send(context.Background(), puttyTarget(), unit("cd /tmp\nls"))
	if err != nil {
		t.Fatalf("Send returned %v", err)
	}
	// Line, enter between lines, line. No enter after the last.
	if kb.ops() != "type,keys,type" {
		t.Fatalf("ops = %q, want type,keys,type", kb.ops())
	}
	if kb.calls[0].text != "cd /tmp" || kb.calls[2].text != "ls" {
		t.Errorf("lines = %q, %q", kb.calls[0].text, kb.calls[2].text)
	}
	if kb.calls[1].text != "Return" {
		t.Errorf("line break chord = %q, want Return", kb.calls[1].text)
	}
}

func TestKeystrokes_MultilineCapableTerminal(t *testing.T) {
	kb := &fakeKeyboard{}
	s := &Keystrokes{Keyboard: kb}
	target := puttyTarget()
	target.Profile.MultilineInput = true

	if err := s.Send(context.Background(), target, unit("cd /tmp\nls")); err != nil {
		t.Fatalf("Send returned %v", err)
	}
	if kb.ops() != "type" {
		t.Fatalf("ops = %q, want one type call with the break inline", kb.ops())
	}
	if kb.calls[0].text != "cd /tmp\nls" {
		t.Errorf("typed %q, want text with literal break", kb.calls[0].text)
	}
}

func TestKeystrokes_EmptyPayloadIsNoop(t *testing.T) {
	kb := &fakeKeyboard{}
	s := &Keystrokes{Keyboard: kb}

	if err := s.Send(context.Background(), puttyTarget(), unit("\n")); err != nil {
		t.Fatalf("Send returned %v", err)
	}
	if len(kb.calls) != 0 {
		t.Errorf("calls = %v, want none for empty payload", kb.calls)
	}
}

func TestKeystrokes_SendFailureCode(t *testing.T) {
	kb := &fakeKeyboard{typeErr: errors.New("xdotool crashed")}
	s := &Keystrokes{Keyboard: kb}

	err := s.Send(context.Background(), puttyTarget(), unit("x"))
	if model.CodeOf(err) != model.CodeSendFailed {
		t.Errorf("CodeOf(err) = %q, want %q", model.CodeOf(err), model.CodeSendFailed)
	}
}

func TestKeystrokes_Submit(t *testing.T) {
	kb := &fakeKeyboard{}
	s := &Keystrokes{Keyboard: kb}

	if err := s.Submit(context.Background(), puttyTarget()); err != nil {
		t.Fatalf("Submit returned %v", err)
	}
	if kb.ops() != "keys" || kb.calls[0].text != "Return" {
		t.Errorf("calls = %v, want one Return chord", kb.calls)
	}
}

func TestClipboardPaste_WriteSettleThenChord(t *testing.T) {
	kb := &fakeKeyboard{}
	clip := &fakeClipboard{}
	var slept []time.Duration
	s := &ClipboardPaste{
		Clipboard: clip,
		Keyboard:  kb,
		Sleep:     func(d time.Duration) { slept = append(slept, d) },
	}
	target := puttyTarget()
	target.Profile.PasteButton = 0
	target.Profile.PasteShortcut = "shift+Insert"

	if err := s.Send(context.Background(), target, unit("echo hi\n")); err != nil {
		t.Fatalf("Send returned %v", err)
	}
	if clip.content != "echo hi" {
		t.Errorf("clipboard = %q, want payload without trailing break", clip.content)
	}
	if len(slept) != 1 || slept[0] != clipboardSettle {
		t.Errorf("slept %v, want one settle of %v", slept, clipboardSettle)
	}
	if kb.ops() != "keys" || kb.calls[0].text != "shift+Insert" {
		t.Errorf("calls = %v, want shift+Insert after the write", kb.calls)
	}
}

func TestClipboardPaste_SettleTracksSlowPace(t *testing.T) {
	var slept []time.Duration
	s := &ClipboardPaste{
		Clipboard: &fakeClipboard{},
		Keyboard:  &fakeKeyboard{},
		Sleep:     func(d time.Duration) { slept = append(slept, d) },
	}
	target := puttyTarget()
	target.Profile.PasteButton = 0
	target.Pace = 80 * time.Millisecond

	if err := s.Send(context.Background(), target, unit("x")); err != nil {
		t.Fatalf("Send returned %v", err)
	}
	if len(slept) != 1 || slept[0] != 80*time.Millisecond {
		t.Errorf("slept %v, want the slower adaptive pace", slept)
	}
}

func TestClipboardPaste_MouseButton(t *testing.T) {
	kb := &fakeKeyboard{}
	s := &ClipboardPaste{Clipboard: &fakeClipboard{}, Keyboard: kb, Sleep: func(time.Duration) {}}
	target := puttyTarget() // PasteButton 2

	if err := s.Send(context.Background(), target, unit("x")); err != nil {
		t.Fatalf("Send returned %v", err)
	}
	if kb.ops() != "click" {
		t.Fatalf("ops = %q, want click paste", kb.ops())
	}
	if kb.calls[0].button != 2 || kb.calls[0].window != "100" {
		t.Errorf("click = %+v, want middle click on window 100", kb.calls[0])
	}
}

func TestClipboardPaste_DefaultChord(t *testing.T) {
	kb := &fakeKeyboard{}
	s := &ClipboardPaste{Clipboard: &fakeClipboard{}, Keyboard: kb, Sleep: func(time.Duration) {}}
	target := puttyTarget()
	target.Profile.PasteButton = 0
	target.Profile.PasteShortcut = ""

	if err := s.Send(context.Background(), target, unit("x")); err != nil {
		t.Fatalf("Send returned %v", err)
	}
	if kb.calls[0].text != "ctrl+v" {
		t.Errorf("chord = %q, want ctrl+v default", kb.calls[0].text)
	}
}

func TestClipboardPaste_WriteErrorStopsPaste(t *testing.T) {
	kb := &fakeKeyboard{}
	s := &ClipboardPaste{
		Clipboard: &fakeClipboard{writeErr: errors.New("no clipboard owner")},
		Keyboard:  kb,
		Sleep:     func(time.Duration) {},
	}

	err := s.Send(context.Background(), puttyTarget(), unit("x"))
	if model.CodeOf(err) != model.CodeSendFailed {
		t.Fatalf("CodeOf(err) = %q, want %q", model.CodeOf(err), model.CodeSendFailed)
	}
	if len(kb.calls) != 0 {
		t.Errorf("paste attempted after failed write: %v", kb.calls)
	}
}

func TestWindowMessage_TargetsWindowWithoutFocus(t *testing.T) {
	kb := &fakeKeyboard{}
	s := &WindowMessage{Keyboard: kb}
	target := puttyTarget()

	if s.NeedsFocus() {
		t.Error("NeedsFocus = true, want false")
	}
	if err := s.Send(context.Background(), target, unit("uptime")); err != nil {
		t.Fatalf("Send returned %v", err)
	}
	if kb.ops() != "post" || kb.calls[0].window != "100" {
		t.Errorf("calls = %v, want one post to window 100", kb.calls)
	}

	if err := s.Submit(context.Background(), target); err != nil {
		t.Fatalf("Submit returned %v", err)
	}
	last := kb.calls[len(kb.calls)-1]
	if last.op != "keys" || last.window != "100" || last.text != "Return" {
		t.Errorf("submit call = %+v, want targeted Return", last)
	}
}

func TestSerial_LazyOpenOnce(t *testing.T) {
	port := &fakeSerialPort{}
	opens := 0
	s := &Serial{Open: func() (SerialPort, error) {
		opens++
		return port, nil
	}}
	target := puttyTarget()

	if err := s.Send(context.Background(), target, unit("uptime")); err != nil {
		t.Fatalf("Send returned %v", err)
	}
	if err := s.Submit(context.Background(), target); err != nil {
		t.Fatalf("Submit returned %v", err)
	}
	if err := s.Send(context.Background(), target, unit("dmesg")); err != nil {
		t.Fatalf("second Send returned %v", err)
	}
	if opens != 1 {
		t.Errorf("opened %d times, want 1", opens)
	}
	if got := port.wire.String(); got != "uptime\ndmesg" {
		t.Errorf("wire = %q, want %q", got, "uptime\ndmesg")
	}
}

func TestSerial_OpenErrorIsSendFailed(t *testing.T) {
	s := &Serial{Open: func() (SerialPort, error) {
		return nil, errors.New("no such device")
	}}

	err := s.Send(context.Background(), puttyTarget(), unit("x"))
	if model.CodeOf(err) != model.CodeSendFailed {
		t.Errorf("CodeOf(err) = %q, want %q", model.CodeOf(err), model.CodeSendFailed)
	}
}

func TestSerial_NotConfigured(t *testing.T) {
	s := &Serial{}
	if err := s.Send(context.Background(), puttyTarget(), unit("x")); err == nil {
		t.Fatal("Send with no Open func returned nil error")
	}
}

func TestSerial_CloseThenReopen(t *testing.T) {
	opens := 0
	s := &Serial{Open: func() (SerialPort, error) {
		opens++
		return &fakeSerialPort{}, nil
	}}
	target := puttyTarget()

	if err := s.Send(context.Background(), target, unit("a")); err != nil {
		t.Fatalf("Send returned %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close returned %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close returned %v", err)
	}
	if err := s.Send(context.Background(), target, unit("b")); err != nil {
		t.Fatalf("Send after Close returned %v", err)
	}
	if opens != 2 {
		t.Errorf("opened %d times, want reopen after Close", opens)
	}
}

func TestNeedsFocusMatrix(t *testing.T) {
	kb := &fakeKeyboard{}
	tests := []struct {
		s    Strategy
		want bool
	}{
		{&Keystrokes{Keyboard: kb}, true},
		{&ClipboardPaste{Clipboard: &fakeClipboard{}, Keyboard: kb}, true},
		{&WindowMessage{Keyboard: kb}, false},
		{&Serial{}, false},
	}
	for _, tt := range tests {
		if got := tt.s.NeedsFocus(); got != tt.want {
			t.Errorf("%s NeedsFocus = %v, want %v", tt.s.Kind(), got, tt.want)
		}
	}
}
