// Package focus brings target windows to the foreground before delivery.
//
// Activation is a request to the window manager, not a guarantee: WMs
// process it asynchronously and may refuse (focus stealing prevention).
// The controller therefore activates once and then polls the active
// window until it matches the target or the profile's retry budget runs
// out. Keystrokes land in whatever window holds focus, so nothing is
// sent until the window system confirms the handoff.
package focus

import (
	"context"
	"fmt"
	"time"

	"github.com/timvw/term-courier/internal/model"
	tcotel "github.com/timvw/term-courier/internal/otel"
	"github.com/timvw/term-courier/internal/winsys"
)

// Controller acquires input focus on send targets.
type Controller struct {
	Sys     winsys.WindowSystem
	Sleep   func(time.Duration) // nil means time.Sleep; injectable for tests
	Metrics *tcotel.Metrics     // OTEL metric counters; nil-safe
}

// Acquire activates the target window and polls until the window system
// reports it focused. On success it stamps target.LastFocusedAt.
//
// A vanished window is target_lost: the binding is dead and the caller
// must drop it. An exhausted retry budget is focus_failed: the window
// still exists, the binding survives, and the operator may retry.
func (c *Controller) Acquire(ctx context.Context, target *model.SendTarget) error {
	w := target.Window

	if !c.Sys.IsAlive(ctx, w.ID) {
		c.Metrics.RecordTargetLost(ctx)
		return model.TargetLost(fmt.Errorf("window %s no longer exists", w.ID))
	}

	if err := c.Sys.Activate(ctx, w.ID); err != nil {
		c.Metrics.RecordFocusFailure(ctx)
		return model.FocusFailed(fmt.Errorf("activate window %s: %w", w.ID, err))
	}

	attempts := target.Profile.FocusRetry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := target.Profile.FocusRetry.Delay

	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				c.Metrics.RecordFocusAttempts(ctx, int64(i))
				return model.FocusFailed(ctx.Err())
			default:
			}
			c.sleep(delay)
		}
		if c.focused(ctx, w) {
			c.Metrics.RecordFocusAttempts(ctx, int64(i+1))
			target.LastFocusedAt = time.Now().UTC()
			return nil
		}
	}

	c.Metrics.RecordFocusAttempts(ctx, int64(attempts))
	c.Metrics.RecordFocusFailure(ctx)
	return model.FocusFailed(fmt.Errorf("window %s did not take focus after %d attempts", w.ID, attempts))
}

// focused reports whether the window system considers the target focused.
// Matching by PID as well as ID covers reparenting window managers, where
// the active toplevel differs from the resolved child window.
func (c *Controller) focused(ctx context.Context, w model.Window) bool {
	active, err := c.Sys.ActiveWindow(ctx)
	if err != nil {
		return false
	}
	if active.ID == w.ID {
		return true
	}
	return w.PID != 0 && active.PID == w.PID
}

func (c *Controller) sleep(d time.Duration) {
	if c.Sleep != nil {
		c.Sleep(d)
		return
	}
	time.Sleep(d)
}
