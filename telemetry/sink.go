package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/arc-framework/readiness/signal"
)

// Sink implements coordinator.MetricsSink on top of an OpenTelemetry
// meter, generalizing the teacher's Metrics struct
// (internal/telemetry/metrics.go) from bootstrap-phase-specific
// instruments to the three readiness-domain recordings the coordinator
// contract requires.
type Sink struct {
	signalDuration metric.Float64Histogram
	signalStatus   metric.Int64Counter
	totalDuration  metric.Float64Histogram
}

// NewSink creates and registers the readiness metrics instrument set.
func NewSink(meter metric.Meter) (*Sink, error) {
	signalDuration, err := meter.Float64Histogram(
		"readiness.signal.duration_seconds",
		metric.WithDescription("Per-signal wait duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create signal_duration metric: %w", err)
	}

	signalStatus, err := meter.Int64Counter(
		"readiness.signal.status_total",
		metric.WithDescription("Signal terminal status counts by name and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("create signal_status metric: %w", err)
	}

	totalDuration, err := meter.Float64Histogram(
		"readiness.run.duration_seconds",
		metric.WithDescription("Total coordinator run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create total_duration metric: %w", err)
	}

	return &Sink{
		signalDuration: signalDuration,
		signalStatus:   signalStatus,
		totalDuration:  totalDuration,
	}, nil
}

// RecordSignalDuration implements coordinator.MetricsSink.
func (s *Sink) RecordSignalDuration(name string, d time.Duration) {
	attrs := attribute.NewSet(attribute.String("signal", name))
	s.signalDuration.Record(context.Background(), d.Seconds(), metric.WithAttributeSet(attrs))
}

// RecordSignalStatus implements coordinator.MetricsSink.
func (s *Sink) RecordSignalStatus(name string, status signal.Status) {
	attrs := attribute.NewSet(
		attribute.String("signal", name),
		attribute.String("status", string(status)),
	)
	s.signalStatus.Add(context.Background(), 1, metric.WithAttributeSet(attrs))
}

// RecordTotalDuration implements coordinator.MetricsSink.
func (s *Sink) RecordTotalDuration(d time.Duration) {
	s.totalDuration.Record(context.Background(), d.Seconds())
}

// Tracer exposes the provider's tracer so the coordinator can open a
// span per signal execution (span name "coordinator.signal.<name>").
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer for span naming convenience.
func NewTracer(tracer trace.Tracer) *Tracer {
	return &Tracer{tracer: tracer}
}

// StartSignalSpan opens a span named "coordinator.signal.<name>".
func (t *Tracer) StartSignalSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "coordinator.signal."+name)
}
