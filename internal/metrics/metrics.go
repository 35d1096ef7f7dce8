// Package metrics defines the OpenTelemetry instruments shared by the journal bus,
// the file sink and the replay coordinator.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// InstrumentationName is the meter name used when no meter is supplied.
const InstrumentationName = "github.com/rmacdonaldsmith/sysevents"

// Phase attribute values separate the journal snapshot from events buffered while
// switching over to live forwarding.
const (
	PhaseReplay  = "replay"
	PhaseHandoff = "handoff"
)

// Metrics contains the instruments for event capture.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// EventsRecorded counts events captured into the journal by name.
	EventsRecorded metric.Int64Counter

	// LinesWritten counts lines appended to the destination.
	LinesWritten metric.Int64Counter

	// WriteFailures counts Process calls that could not append.
	WriteFailures metric.Int64Counter

	// EventsReplayed counts journal events fed to a sink at attach time.
	EventsReplayed metric.Int64Counter
}

// New registers all instruments with meter.
func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.EventsRecorded, err = meter.Int64Counter(
		"sysevents_events_recorded_total",
		metric.WithDescription("Events captured into the journal"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create events_recorded_total: %w", err)
	}

	m.LinesWritten, err = meter.Int64Counter(
		"sysevents_lines_written_total",
		metric.WithDescription("Lines appended to the event log"),
		metric.WithUnit("{line}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create lines_written_total: %w", err)
	}

	m.WriteFailures, err = meter.Int64Counter(
		"sysevents_write_failures_total",
		metric.WithDescription("Event log appends that failed"),
		metric.WithUnit("{line}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create write_failures_total: %w", err)
	}

	m.EventsReplayed, err = meter.Int64Counter(
		"sysevents_events_replayed_total",
		metric.WithDescription("Journal events replayed into a sink"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create events_replayed_total: %w", err)
	}

	return m, nil
}

// Default returns instruments from the global meter provider. Until an SDK provider is
// installed with otel.SetMeterProvider they record nothing. It is the fallback for
// components built without WithMetrics. If registration fails it returns nil, which
// every method treats as a no-op.
func Default() *Metrics {
	m, err := New(otel.Meter(InstrumentationName))
	if err != nil {
		return nil
	}
	return m
}

// Recorded counts one journal append.
func (m *Metrics) Recorded(ctx context.Context, name string) {
	if m == nil {
		return
	}
	m.EventsRecorded.Add(ctx, 1, metric.WithAttributes(attribute.String("event", name)))
}

// Written counts one successful append for the given destination.
func (m *Metrics) Written(ctx context.Context, path string) {
	if m == nil {
		return
	}
	m.LinesWritten.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
}

// Failed counts one failed append for the given destination.
func (m *Metrics) Failed(ctx context.Context, path string) {
	if m == nil {
		return
	}
	m.WriteFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
}

// Replayed counts n events replayed in the given phase.
func (m *Metrics) Replayed(ctx context.Context, n int, phase string) {
	if m == nil || n == 0 {
		return
	}
	m.EventsReplayed.Add(ctx, int64(n), metric.WithAttributes(attribute.String("phase", phase)))
}
