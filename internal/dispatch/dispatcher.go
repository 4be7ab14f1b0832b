// Package dispatch drives command units through the delivery pipeline:
// liveness check, focus acquisition, strategy chain, submission. The
// Session on top owns the operator's mutable state (current target, mode,
// auto-enter) and serializes sends so multi-line batches arrive in order.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/timvw/term-courier/internal/focus"
	"github.com/timvw/term-courier/internal/model"
	tcotel "github.com/timvw/term-courier/internal/otel"
	"github.com/timvw/term-courier/internal/profile"
	"github.com/timvw/term-courier/internal/strategy"
	"github.com/timvw/term-courier/internal/winsys"
)

var tracer = otel.Tracer("term-courier")

// Dispatcher delivers command units to a send target.
type Dispatcher struct {
	Sys      winsys.WindowSystem
	Focus    *focus.Controller
	Registry *strategy.Registry
	Metrics  *tcotel.Metrics // nil-safe
	Logger   *slog.Logger    // nil means slog.Default()

	// AdaptivePace adjusts the target's keystroke pace after every send.
	AdaptivePace bool
}

// Options control a multi-unit dispatch.
type Options struct {
	// ContinueOnFailure keeps delivering later units after one fails.
	// Off by default: commands often depend on their predecessors, and
	// executing the tail after a hole is worse than stopping.
	ContinueOnFailure bool
}

// SerialTarget returns the pseudo-target used in serial mode, where no
// window is involved and the port itself is the destination.
func SerialTarget() *model.SendTarget {
	return model.NewSendTarget(model.Window{}, profile.Serial())
}

// Dispatch delivers one unit to the target and reports the outcome. The
// result is also stored as target.LastResult, and the target's pace
// adapts when AdaptivePace is on. Never returns an error; failures are
// encoded in the result so batch callers keep a uniform record.
func (d *Dispatcher) Dispatch(ctx context.Context, target *model.SendTarget, mode model.Mode, unit model.CommandUnit) model.DispatchResult {
	return d.dispatchUnit(ctx, target, mode, unit, "", 0)
}

// DispatchAll delivers units strictly in order under one batch id. On a
// failed unit the batch stops unless opts.ContinueOnFailure is set; units
// never reorder or interleave.
func (d *Dispatcher) DispatchAll(ctx context.Context, target *model.SendTarget, mode model.Mode, units []model.CommandUnit, opts Options) []model.DispatchResult {
	if len(units) == 0 {
		return nil
	}
	batch := uuid.NewString()
	ctx, span := tracer.Start(ctx, "dispatch_batch",
		trace.WithAttributes(
			attribute.String("dispatch.batch", batch),
			attribute.Int("dispatch.units", len(units)),
		))
	defer span.End()

	results := make([]model.DispatchResult, 0, len(units))
	for i, u := range units {
		select {
		case <-ctx.Done():
			return results
		default:
		}
		res := d.dispatchUnit(ctx, target, mode, u, batch, i)
		results = append(results, res)
		if !res.OK && !opts.ContinueOnFailure {
			break
		}
		// A lost target cannot deliver the rest of the batch either way.
		if res.Code == model.CodeTargetLost {
			break
		}
	}
	return results
}

func (d *Dispatcher) dispatchUnit(ctx context.Context, target *model.SendTarget, mode model.Mode, unit model.CommandUnit, batch string, line int) model.DispatchResult {
	start := time.Now()
	res := model.DispatchResult{
		Batch:  batch,
		Line:   line,
		Text:   unit.Text,
		SentAt: start.UTC(),
	}

	ctx, span := tracer.Start(ctx, "dispatch",
		trace.WithAttributes(
			attribute.String("dispatch.mode", string(mode)),
			attribute.String("dispatch.profile", string(target.Profile.ID)),
			attribute.Bool("dispatch.auto_enter", unit.AutoEnter),
			attribute.Int("dispatch.text_len", len(unit.Text)),
		))
	defer span.End()

	err := d.deliver(ctx, target, mode, unit, &res)
	res.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		res.Code = model.CodeOf(err)
		res.Error = err.Error()
	} else {
		res.OK = true
	}

	// Serial writes are not keystroke-paced, so only window routes adapt.
	if d.AdaptivePace && mode != model.ModeSerial {
		target.Pace = NextPace(target.Pace, res.OK)
	}
	last := res
	target.LastResult = &last

	outcome := "ok"
	if !res.OK {
		outcome = string(res.Code)
	}
	d.Metrics.RecordSend(ctx, string(res.Strategy), string(target.Profile.ID), outcome, float64(res.DurationMs))
	if res.OK {
		d.Metrics.RecordLines(ctx, 1)
	}

	span.SetAttributes(
		attribute.String("dispatch.strategy", string(res.Strategy)),
		attribute.Bool("dispatch.ok", res.OK),
		attribute.Bool("dispatch.fallback_used", res.FallbackUsed),
		attribute.String("dispatch.outcome", outcome),
	)

	logger := d.logger()
	if res.OK {
		logger.Info("dispatched",
			"strategy", string(res.Strategy),
			"profile", string(target.Profile.ID),
			"mode", string(mode),
			"fallback", res.FallbackUsed,
			"duration_ms", res.DurationMs)
	} else {
		logger.Error("dispatch failed",
			"code", string(res.Code),
			"strategy", string(res.Strategy),
			"profile", string(target.Profile.ID),
			"mode", string(mode),
			"error", res.Error)
	}

	return res
}

// deliver runs the pipeline for one unit: liveness, then the strategy
// chain with lazy focus acquisition, then submission. Focus is acquired
// at most once per unit, and only when a strategy that needs it is about
// to run.
func (d *Dispatcher) deliver(ctx context.Context, target *model.SendTarget, mode model.Mode, unit model.CommandUnit, res *model.DispatchResult) error {
	if mode != model.ModeSerial {
		if !d.Sys.IsAlive(ctx, target.Window.ID) {
			d.Metrics.RecordTargetLost(ctx)
			return model.TargetLost(fmt.Errorf("window %s no longer exists", target.Window.ID))
		}
	}

	chain := d.Registry.Chain(target.Profile, mode)
	if len(chain) == 0 {
		return model.SendFailed(fmt.Errorf("no delivery strategy for profile %s in %s mode", target.Profile.ID, mode))
	}

	focused := false
	var lastErr error
	for i, strat := range chain {
		res.Strategy = strat.Kind()

		if strat.NeedsFocus() && !focused {
			if err := d.Focus.Acquire(ctx, target); err != nil {
				// Nothing was typed; on focus_failed the binding stays
				// valid and the operator may simply retry.
				return err
			}
			focused = true
		}

		if err := strat.Send(ctx, target, unit); err != nil {
			if model.FatalToTarget(err) {
				return err
			}
			lastErr = err
			if i < len(chain)-1 {
				d.logger().Warn("strategy failed, trying fallback",
					"strategy", string(strat.Kind()),
					"next", string(chain[i+1].Kind()),
					"error", err)
			}
			continue
		}

		if i > 0 {
			res.FallbackUsed = true
			d.Metrics.RecordFallback(ctx, string(strat.Kind()))
		}

		// Submission is its own step so a payload never embeds its Enter
		// and auto-enter stays one decision point.
		if unit.AutoEnter {
			if err := strat.Submit(ctx, target); err != nil {
				return err
			}
		}
		return nil
	}
	return lastErr
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
