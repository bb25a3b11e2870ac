package tap

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Cache outcomes recorded on query metrics.
const (
	outcomeHit    = "hit"
	outcomeMiss   = "miss"
	outcomeBypass = "bypass"
	outcomeError  = "error"
)

type metrics struct {
	queries  metric.Int64Counter
	duration metric.Float64Histogram
}

func newMetrics(meter metric.Meter) *metrics {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("esotap/tap")
	}

	m := &metrics{}
	var err error
	m.queries, err = meter.Int64Counter("esotap.tap.queries",
		metric.WithDescription("TAP query executions by cache outcome"))
	if err != nil {
		m.queries = nil
	}
	m.duration, err = meter.Float64Histogram("esotap.tap.query_duration",
		metric.WithDescription("TAP query wall time in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		m.duration = nil
	}
	return m
}

func (m *metrics) record(ctx context.Context, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if m.queries != nil {
		m.queries.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
}
