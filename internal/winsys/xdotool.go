package winsys

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/timvw/term-courier/internal/model"
)

// X11 implements WindowSystem and Keyboard by shelling out to xdotool,
// xprop, and xwininfo. Window metadata probes are memoized in a short-TTL
// cache because every probe is a subprocess.
type X11 struct {
	cache *AttrCache
}

// NewX11 creates the X11 backend. cacheTTL bounds how stale window
// metadata and liveness answers may be; 0 disables caching.
func NewX11(cacheTTL time.Duration) *X11 {
	return &X11{cache: NewAttrCache(cacheTTL)}
}

// Cache exposes the attribute cache so callers can invalidate entries
// after a target is lost.
func (x *X11) Cache() *AttrCache { return x.cache }

// maxListWindows caps enumeration so a pathological desktop (hundreds of
// mapped windows) cannot turn one pick into hundreds of subprocesses.
const maxListWindows = 128

// ListWindows returns visible top-level windows. Windows that vanish
// between enumeration and metadata lookup are skipped.
func (x *X11) ListWindows(ctx context.Context) ([]model.Window, error) {
	// An empty --name pattern matches every visible window.
	out, err := run(ctx, "xdotool", "search", "--onlyvisible", "--name", "")
	if err != nil {
		return nil, fmt.Errorf("xdotool search: %w", err)
	}

	ids := strings.Fields(strings.TrimSpace(out))
	if len(ids) > maxListWindows {
		ids = ids[:maxListWindows]
	}

	var windows []model.Window
	for _, id := range ids {
		w, err := x.WindowInfo(ctx, id)
		if err != nil {
			continue
		}
		windows = append(windows, w)
	}
	return windows, nil
}

// WindowInfo resolves current metadata for a window id.
func (x *X11) WindowInfo(ctx context.Context, id string) (model.Window, error) {
	id = normalizeID(id)
	if w, ok := x.cache.Lookup(id); ok {
		return w, nil
	}

	// Geometry failing means the window is gone; everything else is
	// best-effort (some windows have no pid or class).
	out, err := run(ctx, "xdotool", "getwindowgeometry", "--shell", id)
	if err != nil {
		return model.Window{}, fmt.Errorf("xdotool getwindowgeometry %s: %w", id, err)
	}
	vars := parseShellInts(out)
	w := model.Window{
		ID: id,
		Rect: model.Rect{
			X:      vars["X"],
			Y:      vars["Y"],
			Width:  vars["WIDTH"],
			Height: vars["HEIGHT"],
		},
	}

	if out, err := run(ctx, "xdotool", "getwindowpid", id); err == nil {
		w.PID, _ = strconv.Atoi(strings.TrimSpace(out))
	}
	if out, err := run(ctx, "xdotool", "getwindowname", id); err == nil {
		w.Title = strings.TrimSpace(out)
	}
	if out, err := run(ctx, "xprop", "-id", id, "WM_CLASS"); err == nil {
		w.Class = parseWMClass(out)
	}
	if w.PID > 0 {
		w.ProcessName = processName(w.PID)
	}

	x.cache.Store(id, w)
	return w, nil
}

// ChildWindows parses the direct children of a window from xwininfo.
// Children carry id, geometry (absolute coordinates), and whatever title
// and class the tree listing shows; pid is left for the caller to inherit.
func (x *X11) ChildWindows(ctx context.Context, id string) ([]model.Window, error) {
	out, err := run(ctx, "xwininfo", "-id", normalizeID(id), "-children")
	if err != nil {
		return nil, fmt.Errorf("xwininfo -children %s: %w", id, err)
	}
	return parseChildren(out), nil
}

// ActiveWindow returns the window currently holding input focus.
func (x *X11) ActiveWindow(ctx context.Context) (model.Window, error) {
	out, err := run(ctx, "xdotool", "getactivewindow")
	if err != nil {
		return model.Window{}, fmt.Errorf("xdotool getactivewindow: %w", err)
	}
	return x.WindowInfo(ctx, strings.TrimSpace(out))
}

// PointerLocation returns the current pointer position.
func (x *X11) PointerLocation(ctx context.Context) (model.Point, error) {
	out, err := run(ctx, "xdotool", "getmouselocation", "--shell")
	if err != nil {
		return model.Point{}, fmt.Errorf("xdotool getmouselocation: %w", err)
	}
	vars := parseShellInts(out)
	return model.Point{X: vars["X"], Y: vars["Y"]}, nil
}

// Activate raises the window and requests input focus. --sync waits for
// the window manager to process the request.
func (x *X11) Activate(ctx context.Context, id string) error {
	if _, err := run(ctx, "xdotool", "windowactivate", "--sync", normalizeID(id)); err != nil {
		return fmt.Errorf("xdotool windowactivate %s: %w", id, err)
	}
	return nil
}

// IsAlive reports whether the window still exists. A fresh cache entry
// counts as alive; a dead probe invalidates the entry so the next answer
// is not stale.
func (x *X11) IsAlive(ctx context.Context, id string) bool {
	id = normalizeID(id)
	if _, ok := x.cache.Lookup(id); ok {
		return true
	}
	if _, err := run(ctx, "xdotool", "getwindowname", id); err != nil {
		x.cache.Invalidate(id)
		return false
	}
	// Window exists; refresh the full entry while we are here.
	_, err := x.WindowInfo(ctx, id)
	return err == nil
}

// TypeText synthesizes keystrokes into the focused window.
func (x *X11) TypeText(ctx context.Context, text string, delay time.Duration) error {
	args := []string{"type", "--clearmodifiers", "--delay", millis(delay), "--", text}
	if _, err := run(ctx, "xdotool", args...); err != nil {
		return fmt.Errorf("xdotool type: %w", err)
	}
	return nil
}

// PostText delivers text straight to the window id via send-event
// injection; the window does not need focus.
func (x *X11) PostText(ctx context.Context, windowID, text string, delay time.Duration) error {
	args := []string{"type", "--window", normalizeID(windowID), "--delay", millis(delay), "--", text}
	if _, err := run(ctx, "xdotool", args...); err != nil {
		return fmt.Errorf("xdotool type --window %s: %w", windowID, err)
	}
	return nil
}

// PressKeys injects a named key chord.
func (x *X11) PressKeys(ctx context.Context, windowID, chord string) error {
	args := []string{"key", "--clearmodifiers"}
	if windowID != "" {
		args = append(args, "--window", normalizeID(windowID))
	}
	args = append(args, "--", chord)
	if _, err := run(ctx, "xdotool", args...); err != nil {
		return fmt.Errorf("xdotool key %s: %w", chord, err)
	}
	return nil
}

// Click presses a mouse button inside the window.
func (x *X11) Click(ctx context.Context, windowID string, button int) error {
	args := []string{"click", "--window", normalizeID(windowID), strconv.Itoa(button)}
	if _, err := run(ctx, "xdotool", args...); err != nil {
		return fmt.Errorf("xdotool click %d: %w", button, err)
	}
	return nil
}

// run executes an external tool and returns its stdout.
func run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("%w: %s", err, string(exitErr.Stderr))
		}
		return "", err
	}
	return string(out), nil
}

// millis renders a duration as integer milliseconds for xdotool --delay.
func millis(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	return strconv.FormatInt(ms, 10)
}

// normalizeID converts window ids to decimal form. xdotool prints decimal
// ids but xwininfo prints hex; both tools accept either, and a single form
// keeps cache keys and comparisons consistent.
func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	if n, err := strconv.ParseInt(id, 0, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return id
}

// parseShellInts parses xdotool --shell output (KEY=value lines) into a
// map of the integer-valued keys.
func parseShellInts(out string) map[string]int {
	vars := make(map[string]int)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}
		if n, err := strconv.Atoi(line[idx+1:]); err == nil {
			vars[line[:idx]] = n
		}
	}
	return vars
}

// parseWMClass extracts the class component from xprop WM_CLASS output:
//
//	WM_CLASS(STRING) = "instance", "Class"
//
// The second quoted string is the class; the first is the instance.
func parseWMClass(out string) string {
	parts := wmClassRe.FindAllStringSubmatch(out, -1)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1][1]
}

var wmClassRe = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)

// childLineRe matches one child entry of xwininfo -children output:
//
//	0x1600021 "title": ("instance" "Class")  1408x768+0+0  +604+322
//
// The trailing +x+y pair is the absolute screen position; the pair inside
// the relative geometry is ignored.
var childLineRe = regexp.MustCompile(`^\s+(0x[0-9a-fA-F]+)(.*?)(\d+)x(\d+)[+-]-?\d+[+-]-?\d+\s+\+(-?\d+)\+(-?\d+)\s*$`)

var childTitleRe = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
var childClassRe = regexp.MustCompile(`\("(?:[^"\\]|\\.)*"\s+"((?:[^"\\]|\\.)*)"\)`)

// parseChildren extracts the direct children from xwininfo -children
// output. Entries without parseable geometry are skipped.
func parseChildren(out string) []model.Window {
	var children []model.Window
	inChildren := false
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "child:") || strings.Contains(line, "children:") {
			inChildren = true
			continue
		}
		if !inChildren {
			continue
		}
		m := childLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		w := model.Window{ID: normalizeID(m[1])}
		w.Rect.Width, _ = strconv.Atoi(m[3])
		w.Rect.Height, _ = strconv.Atoi(m[4])
		w.Rect.X, _ = strconv.Atoi(m[5])
		w.Rect.Y, _ = strconv.Atoi(m[6])

		meta := m[2]
		if tm := childTitleRe.FindStringSubmatch(meta); tm != nil {
			w.Title = tm[1]
		}
		if cm := childClassRe.FindStringSubmatch(meta); cm != nil {
			w.Class = cm[1]
		}
		children = append(children, w)
	}
	return children
}

// processName resolves a pid to its short command name via /proc.
func processName(pid int) string {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
