package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for dispatch tracing.
const tracerName = "github.com/xraph/taskhub"

// Tracing returns middleware that wraps each dispatch in a span from the
// global TracerProvider.
//
// Spans are named "taskhub.<kind>.execute" and carry taskhub.hub,
// taskhub.task.name, taskhub.task.version, taskhub.instance.id and
// taskhub.execution.id.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer returns tracing middleware using the provided tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, dc *DispatchContext, next Handler) error {
		info := dc.Info()
		ctx, span := tracer.Start(ctx, "taskhub."+string(info.Kind)+".execute",
			trace.WithAttributes(
				attribute.String("taskhub.hub", info.Hub),
				attribute.String("taskhub.task.name", info.Name),
				attribute.String("taskhub.task.version", info.Version),
				attribute.String("taskhub.instance.id", info.InstanceID),
				attribute.String("taskhub.execution.id", info.ExecutionID),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return err
	}
}
