// Package resolver turns a screen point into the window the operator
// pointed at.
//
// Terminal emulators often host the actually-focusable input surface in a
// child control, so the walk prefers the deepest window containing the
// point over its top-level container. The resolver is a read-only query:
// it never activates or mutates anything.
package resolver

import (
	"context"
	"fmt"
	"os"

	"github.com/timvw/term-courier/internal/config"
	"github.com/timvw/term-courier/internal/model"
	"github.com/timvw/term-courier/internal/winsys"
)

// maxDescendDepth bounds the child-window walk. Terminal emulators nest
// their input surface one or two levels down; four covers pathological
// wrappers without risking a runaway tree.
const maxDescendDepth = 4

// defaultExcludedClasses are desktop-shell surfaces that sit under the
// pointer everywhere but are never command targets.
var defaultExcludedClasses = []string{
	"Desktop",
	"xfdesktop",
	"plasmashell",
	"Gnome-shell",
	"Polybar",
	"Plank",
	"Conky",
	"Xfce4-panel",
	"Gnome-panel",
}

// Resolver resolves screen points to window handles.
type Resolver struct {
	Sys winsys.WindowSystem

	// SelfPID is this process's pid; windows it owns are rejected because
	// the application cannot target itself. Defaults to os.Getpid() via
	// New.
	SelfPID int

	// ExcludedClasses extends the default desktop-shell exclusion list.
	// Entries are literal class names or trailing-"*" prefixes.
	ExcludedClasses []string
}

// New creates a Resolver over the given window system.
func New(sys winsys.WindowSystem, extraExcluded ...string) *Resolver {
	return &Resolver{
		Sys:             sys,
		SelfPID:         os.Getpid(),
		ExcludedClasses: extraExcluded,
	}
}

// Resolve returns the deepest eligible window under the screen point.
// Returns a not_found error when the point is over the desktop or only
// over excluded/own windows; that is reported to the operator, never
// retried.
func (r *Resolver) Resolve(ctx context.Context, p model.Point) (model.Window, error) {
	windows, err := r.Sys.ListWindows(ctx)
	if err != nil {
		return model.Window{}, model.NotFound("list windows", err)
	}

	top, ok := r.pickSmallest(windows, p)
	if !ok {
		return model.Window{}, model.NotFound(fmt.Sprintf("no window at (%d,%d)", p.X, p.Y), nil)
	}

	deepest := r.descend(ctx, top, p)

	// Children parsed from the tree listing carry partial metadata;
	// inherit identity from the top-level owner.
	if deepest.ID != top.ID {
		if deepest.PID == 0 {
			deepest.PID = top.PID
		}
		if deepest.ProcessName == "" {
			deepest.ProcessName = top.ProcessName
		}
		if deepest.Class == "" {
			deepest.Class = top.Class
		}
		if deepest.Title == "" {
			deepest.Title = top.Title
		}
	}

	return deepest, nil
}

// ResolveAtPointer resolves at the current pointer position: the final
// point of a pick gesture.
func (r *Resolver) ResolveAtPointer(ctx context.Context) (model.Window, error) {
	p, err := r.Sys.PointerLocation(ctx)
	if err != nil {
		return model.Window{}, model.NotFound("pointer location", err)
	}
	return r.Resolve(ctx, p)
}

// pickSmallest chooses the most specific (smallest-area) eligible window
// containing the point.
func (r *Resolver) pickSmallest(windows []model.Window, p model.Point) (model.Window, bool) {
	var best model.Window
	found := false
	for _, w := range windows {
		if !w.Rect.Contains(p) {
			continue
		}
		if !r.Eligible(w) {
			continue
		}
		if !found || w.Rect.Area() < best.Rect.Area() {
			best = w
			found = true
		}
	}
	return best, found
}

// descend walks into child windows containing the point, preferring the
// smallest child at each level.
func (r *Resolver) descend(ctx context.Context, w model.Window, p model.Point) model.Window {
	current := w
	for depth := 0; depth < maxDescendDepth; depth++ {
		children, err := r.Sys.ChildWindows(ctx, current.ID)
		if err != nil || len(children) == 0 {
			break
		}

		var next model.Window
		found := false
		for _, c := range children {
			if c.Rect.Area() == 0 || !c.Rect.Contains(p) {
				continue
			}
			if !found || c.Rect.Area() < next.Rect.Area() {
				next = c
				found = true
			}
		}
		if !found {
			break
		}
		current = next
	}
	return current
}

// Eligible reports whether a window is a legal command target: not owned
// by this process and not an excluded desktop-shell class.
func (r *Resolver) Eligible(w model.Window) bool {
	if r.SelfPID != 0 && w.PID == r.SelfPID {
		return false
	}
	if config.MatchesExcludeList(w.Class, defaultExcludedClasses) {
		return false
	}
	return !config.MatchesExcludeList(w.Class, r.ExcludedClasses)
}
