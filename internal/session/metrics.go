package session

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/chaz8081/gostt-live/internal/session"

// metrics records session outcomes through the global meter provider.
type metrics struct {
	attrs     metric.MeasurementOption
	started   metric.Int64Counter
	ended     metric.Int64Counter
	dropped   metric.Int64Counter
	durations metric.Float64Histogram
}

func newMetrics(engine string) *metrics {
	meter := otel.Meter(meterName)
	m := &metrics{attrs: metric.WithAttributes(attribute.String("engine", engine))}

	var err error
	if m.started, err = meter.Int64Counter("gostt.session.started",
		metric.WithDescription("Recognition sessions that entered starting. Each is later counted once in gostt.session.ended.")); err != nil {
		otel.Handle(err)
	}
	if m.ended, err = meter.Int64Counter("gostt.session.ended",
		metric.WithDescription("Recognition sessions torn down, by outcome.")); err != nil {
		otel.Handle(err)
	}
	if m.dropped, err = meter.Int64Counter("gostt.session.dropped_frames",
		metric.WithDescription("Audio frames dropped because the frame queue was full.")); err != nil {
		otel.Handle(err)
	}
	if m.durations, err = meter.Float64Histogram("gostt.session.duration",
		metric.WithDescription("Wall time from start to teardown."),
		metric.WithUnit("s")); err != nil {
		otel.Handle(err)
	}
	return m
}

func (m *metrics) recordStart() {
	m.started.Add(context.Background(), 1, m.attrs)
}

func (m *metrics) recordEnd(outcome string, since time.Time, dropped int64) {
	ctx := context.Background()
	m.ended.Add(ctx, 1, m.attrs, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.durations.Record(ctx, time.Since(since).Seconds(), m.attrs)
	if dropped > 0 {
		m.dropped.Add(ctx, dropped, m.attrs)
	}
}
