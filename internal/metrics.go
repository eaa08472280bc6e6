package internal

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/AnatoleLucet/observe"

type metrics struct {
	firings     metric.Int64Counter
	invocations metric.Int64Counter
	failures    metric.Int64Counter
	waves       metric.Int64Histogram
}

// newMetrics falls back to no-op instruments for any instrument that fails to register.
func newMetrics(provider metric.MeterProvider, logger *slog.Logger) *metrics {
	meter := provider.Meter(meterName)
	fallback := noop.NewMeterProvider().Meter(meterName)

	var failed []string
	m := &metrics{}

	var err error
	if m.firings, err = meter.Int64Counter("observe_firings_total",
		metric.WithDescription("Number of trigger firings dispatched"),
	); err != nil {
		failed = append(failed, "firings: "+err.Error())
		m.firings, _ = fallback.Int64Counter("observe_firings_total")
	}

	if m.invocations, err = meter.Int64Counter("observe_invocations_total",
		metric.WithDescription("Number of reaction bodies invoked"),
	); err != nil {
		failed = append(failed, "invocations: "+err.Error())
		m.invocations, _ = fallback.Int64Counter("observe_invocations_total")
	}

	if m.failures, err = meter.Int64Counter("observe_callback_failures_total",
		metric.WithDescription("Number of reaction bodies that failed"),
	); err != nil {
		failed = append(failed, "failures: "+err.Error())
		m.failures, _ = fallback.Int64Counter("observe_callback_failures_total")
	}

	if m.waves, err = meter.Int64Histogram("observe_dispatch_waves",
		metric.WithDescription("Waves needed for a dispatch to settle"),
	); err != nil {
		failed = append(failed, "waves: "+err.Error())
		m.waves, _ = fallback.Int64Histogram("observe_dispatch_waves")
	}

	if len(failed) > 0 {
		logger.Error("failed to initialize some observer metrics",
			slog.Int("failed_count", len(failed)),
			slog.Any("errors", failed),
		)
	}

	return m
}

func (m *metrics) fired(ctx context.Context, f Firing) {
	m.firings.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", f.Kind.String())))
}

func (m *metrics) invoked(ctx context.Context) {
	m.invocations.Add(ctx, 1)
}

func (m *metrics) failed(ctx context.Context, reaction string) {
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("reaction", reaction)))
}

func (m *metrics) settled(ctx context.Context, waves int) {
	m.waves.Record(ctx, int64(waves))
}
