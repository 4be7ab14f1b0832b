package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "term-courier"

// Metrics holds all OTEL metric instruments for term-courier.
// All counters are cumulative (monotonic) and safe for concurrent use.
type Metrics struct {
	// Dispatch counters (partitioned by strategy + profile + outcome via attributes)
	Sends     metric.Int64Counter
	Fallbacks metric.Int64Counter
	Lines     metric.Int64Counter

	// Focus counters
	FocusAttempts metric.Int64Counter
	FocusFailures metric.Int64Counter
	TargetsLost   metric.Int64Counter

	// Transport counters
	ClipboardWrites metric.Int64Counter
	SerialBytes     metric.Int64Counter

	// Send latency, per delivered unit
	SendDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments. Returns no-op instruments
// when no MeterProvider is registered (safe to call unconditionally).
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	// --- Dispatch counters ---

	m.Sends, err = meter.Int64Counter("dispatch.sends",
		metric.WithDescription("Total dispatch attempts partitioned by strategy, profile and outcome"),
		metric.WithUnit("{send}"))
	if err != nil {
		return nil, err
	}

	m.Fallbacks, err = meter.Int64Counter("dispatch.fallbacks",
		metric.WithDescription("Number of sends delivered by a fallback strategy after the primary failed"))
	if err != nil {
		return nil, err
	}

	m.Lines, err = meter.Int64Counter("dispatch.lines",
		metric.WithDescription("Total command lines delivered to targets"),
		metric.WithUnit("{line}"))
	if err != nil {
		return nil, err
	}

	// --- Focus counters ---

	m.FocusAttempts, err = meter.Int64Counter("focus.attempts",
		metric.WithDescription("Focus verification polls performed while acquiring targets"))
	if err != nil {
		return nil, err
	}

	m.FocusFailures, err = meter.Int64Counter("focus.failures",
		metric.WithDescription("Number of focus acquisitions that exhausted their retry budget"))
	if err != nil {
		return nil, err
	}

	m.TargetsLost, err = meter.Int64Counter("targets.lost",
		metric.WithDescription("Number of sends aborted because the bound window no longer exists"))
	if err != nil {
		return nil, err
	}

	// --- Transport counters ---

	m.ClipboardWrites, err = meter.Int64Counter("clipboard.writes",
		metric.WithDescription("Number of payloads staged on the system clipboard for paste delivery"))
	if err != nil {
		return nil, err
	}

	m.SerialBytes, err = meter.Int64Counter("serial.bytes",
		metric.WithDescription("Total bytes written to serial devices"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}

	// --- Latency ---

	m.SendDuration, err = meter.Float64Histogram("dispatch.duration",
		metric.WithDescription("Wall time per dispatched unit, from liveness check to strategy completion"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordSend records one dispatch attempt with its delivering strategy,
// target profile and outcome code ("ok" on success).
func (m *Metrics) RecordSend(ctx context.Context, strategy, profile, outcome string, durationMs float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("dispatch.strategy", strategy),
		attribute.String("dispatch.profile", profile),
		attribute.String("dispatch.outcome", outcome),
	)
	m.Sends.Add(ctx, 1, attrs)
	m.SendDuration.Record(ctx, durationMs, attrs)
}

// RecordFallback records a send that succeeded on a fallback strategy.
func (m *Metrics) RecordFallback(ctx context.Context, strategy string) {
	if m == nil {
		return
	}
	m.Fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dispatch.strategy", strategy),
	))
}

// RecordLines records delivered command lines.
func (m *Metrics) RecordLines(ctx context.Context, n int64) {
	if m == nil {
		return
	}
	m.Lines.Add(ctx, n)
}

// RecordFocusAttempts records verification polls used by one acquisition.
func (m *Metrics) RecordFocusAttempts(ctx context.Context, n int64) {
	if m == nil {
		return
	}
	m.FocusAttempts.Add(ctx, n)
}

// RecordFocusFailure records an acquisition that ran out of retries.
func (m *Metrics) RecordFocusFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.FocusFailures.Add(ctx, 1)
}

// RecordTargetLost records a send aborted on a vanished window.
func (m *Metrics) RecordTargetLost(ctx context.Context) {
	if m == nil {
		return
	}
	m.TargetsLost.Add(ctx, 1)
}

// RecordClipboardWrite records a payload staged for paste delivery.
func (m *Metrics) RecordClipboardWrite(ctx context.Context) {
	if m == nil {
		return
	}
	m.ClipboardWrites.Add(ctx, 1)
}

// RecordSerialBytes records bytes written to a serial device.
func (m *Metrics) RecordSerialBytes(ctx context.Context, n int64) {
	if m == nil {
		return
	}
	m.SerialBytes.Add(ctx, n)
}
