package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for dispatch metrics.
const meterName = "github.com/xraph/taskhub"

// Metrics returns middleware that records per-dispatch metrics using the
// global MeterProvider.
//
// Instruments:
//   - taskhub.dispatch.duration (Float64Histogram): seconds, with
//     attributes kind, task_name, status ("ok" or "error")
//   - taskhub.dispatch.executions (Int64Counter): with the same attributes
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(meterName))
}

// MetricsWithMeter returns metrics middleware using the provided meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// The API hands back noop instruments on error.
	duration, _ := meter.Float64Histogram(
		"taskhub.dispatch.duration",
		metric.WithDescription("Duration of orchestration and activity dispatches in seconds"),
		metric.WithUnit("s"),
	)
	executions, _ := meter.Int64Counter(
		"taskhub.dispatch.executions",
		metric.WithDescription("Total number of dispatches"),
		metric.WithUnit("{dispatch}"),
	)

	return func(ctx context.Context, dc *DispatchContext, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}
		info := dc.Info()
		attrs := metric.WithAttributes(
			attribute.String("kind", string(info.Kind)),
			attribute.String("task_name", info.Name),
			attribute.String("status", status),
		)
		duration.Record(ctx, elapsed, attrs)
		executions.Add(ctx, 1, attrs)
		return err
	}
}
