package telemetry

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics is the set of OpenTelemetry instruments C3 emits into (C6
// failures are recorded by C3 via StoreError),
// plus an atomic mirror of the same counts so GET /stats can render a
// snapshot without depending on the OTLP collector being reachable.
type Metrics struct {
	eventsReceived   metric.Int64Counter
	decisions        metric.Int64Counter
	pricesWritten    metric.Int64Counter
	pricesUnchanged  metric.Int64Counter
	storeErrors      metric.Int64Counter
	processingTimeMS metric.Float64Histogram

	snapshot Snapshot
}

// Snapshot is the in-process atomic mirror rendered by GET /stats.
type Snapshot struct {
	EventsReceivedBySourceA int64
	EventsReceivedBySourceB int64
	Written                 int64
	Unchanged               int64
	Skipped                 int64
	Retried                 int64
	StoreErrors             int64
}

// NewMetrics creates the Metrics instrument set on the given meter.
func NewMetrics(m metric.Meter) (*Metrics, error) {
	eventsReceived, err := m.Int64Counter("repricer.events_received",
		metric.WithDescription("offer-change events received, by source"))
	if err != nil {
		return nil, err
	}
	decisions, err := m.Int64Counter("repricer.decisions",
		metric.WithDescription("repricing decisions, by reason"))
	if err != nil {
		return nil, err
	}
	pricesWritten, err := m.Int64Counter("repricer.prices_written",
		metric.WithDescription("calculated prices persisted with a changed value"))
	if err != nil {
		return nil, err
	}
	pricesUnchanged, err := m.Int64Counter("repricer.prices_unchanged",
		metric.WithDescription("calculated prices not persisted because the value was unchanged"))
	if err != nil {
		return nil, err
	}
	storeErrors, err := m.Int64Counter("repricer.store_errors",
		metric.WithDescription("store gateway errors, by error code"))
	if err != nil {
		return nil, err
	}
	processingTimeMS, err := m.Float64Histogram("repricer.processing_time_ms",
		metric.WithDescription("end-to-end per-event processing time"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		eventsReceived:   eventsReceived,
		decisions:        decisions,
		pricesWritten:    pricesWritten,
		pricesUnchanged:  pricesUnchanged,
		storeErrors:      storeErrors,
		processingTimeMS: processingTimeMS,
	}, nil
}

// EventReceived records an inbound offer-change event.
func (m *Metrics) EventReceived(ctx context.Context, source string) {
	m.eventsReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
	switch source {
	case "A":
		atomic.AddInt64(&m.snapshot.EventsReceivedBySourceA, 1)
	case "B":
		atomic.AddInt64(&m.snapshot.EventsReceivedBySourceB, 1)
	}
}

// Decision records a C4 decision outcome by reason.
func (m *Metrics) Decision(ctx context.Context, reason string) {
	m.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	if reason != "ok" {
		atomic.AddInt64(&m.snapshot.Skipped, 1)
	}
}

// PriceWritten records a calculated price: changed=true for one that was
// written through C6, changed=false for one that was left unwritten because
// it matched the listed price.
func (m *Metrics) PriceWritten(ctx context.Context, changed bool) {
	if changed {
		m.pricesWritten.Add(ctx, 1)
		atomic.AddInt64(&m.snapshot.Written, 1)
		return
	}
	m.pricesUnchanged.Add(ctx, 1)
	atomic.AddInt64(&m.snapshot.Unchanged, 1)
}

// Retried records an event outcome that the orchestrator will retry.
func (m *Metrics) Retried(ctx context.Context) {
	atomic.AddInt64(&m.snapshot.Retried, 1)
}

// StoreError records a C6 failure by error code.
func (m *Metrics) StoreError(ctx context.Context, code string) {
	m.storeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
	atomic.AddInt64(&m.snapshot.StoreErrors, 1)
}

// ProcessingTime records one event's end-to-end latency in milliseconds.
func (m *Metrics) ProcessingTime(ctx context.Context, ms float64) {
	m.processingTimeMS.Record(ctx, ms)
}

// Snapshot returns a consistent-enough point-in-time copy of the atomic
// counters for GET /stats.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		EventsReceivedBySourceA: atomic.LoadInt64(&m.snapshot.EventsReceivedBySourceA),
		EventsReceivedBySourceB: atomic.LoadInt64(&m.snapshot.EventsReceivedBySourceB),
		Written:                 atomic.LoadInt64(&m.snapshot.Written),
		Unchanged:               atomic.LoadInt64(&m.snapshot.Unchanged),
		Skipped:                 atomic.LoadInt64(&m.snapshot.Skipped),
		Retried:                 atomic.LoadInt64(&m.snapshot.Retried),
		StoreErrors:             atomic.LoadInt64(&m.snapshot.StoreErrors),
	}
}
