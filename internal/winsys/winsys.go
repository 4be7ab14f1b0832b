// Package winsys abstracts the host window system, input injection, and
// clipboard behind narrow interfaces.
//
// The engine never talks to the OS directly: window queries, keystroke
// synthesis, and clipboard access all go through these interfaces, so the
// core stays portable to any platform with equivalent primitives. The X11
// implementation shells out to xdotool, xprop, and xwininfo; tests inject
// fakes.
package winsys

import (
	"context"
	"time"

	"github.com/timvw/term-courier/internal/model"
)

// WindowSystem abstracts window queries and activation.
type WindowSystem interface {
	// ListWindows returns the visible top-level windows with geometry and
	// owning-process metadata.
	ListWindows(ctx context.Context) ([]model.Window, error)

	// ChildWindows returns the direct children of a window. Children often
	// carry partial metadata (geometry and id only); callers fill gaps
	// from the parent.
	ChildWindows(ctx context.Context, id string) ([]model.Window, error)

	// WindowInfo resolves current metadata for a window id.
	WindowInfo(ctx context.Context, id string) (model.Window, error)

	// ActiveWindow returns the window currently holding input focus.
	ActiveWindow(ctx context.Context) (model.Window, error)

	// PointerLocation returns the current pointer position in screen
	// coordinates.
	PointerLocation(ctx context.Context) (model.Point, error)

	// Activate asks the window manager to raise the window and give it
	// input focus. Completion of the request does not guarantee focus;
	// callers verify via ActiveWindow.
	Activate(ctx context.Context, id string) error

	// IsAlive reports whether the window still exists.
	IsAlive(ctx context.Context, id string) bool
}

// Keyboard abstracts input injection.
type Keyboard interface {
	// TypeText synthesizes keystrokes into the focused window, pacing
	// each character by delay.
	TypeText(ctx context.Context, text string, delay time.Duration) error

	// PostText delivers text directly to the window without changing
	// focus (send-event injection rather than hardware-level events).
	PostText(ctx context.Context, windowID, text string, delay time.Duration) error

	// PressKeys injects a named key chord (e.g. "Return", "ctrl+shift+v",
	// "shift+Insert"). An empty windowID targets the focused window.
	PressKeys(ctx context.Context, windowID, chord string) error

	// Click presses a mouse button inside the window (1=left, 2=middle,
	// 3=right).
	Click(ctx context.Context, windowID string, button int) error
}

// Clipboard abstracts the process-wide OS clipboard.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}
