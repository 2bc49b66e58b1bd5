package middleware

import (
	"log/slog"
	"reflect"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/taskhub/resolve"
	"github.com/xraph/taskhub/throttle"
)

// Identity types of the built-in descriptors.
type (
	loggingMiddleware  struct{}
	recoverMiddleware  struct{}
	timeoutMiddleware  struct{}
	tenantMiddleware   struct{}
	tracingMiddleware  struct{}
	metricsMiddleware  struct{}
	throttleMiddleware struct{}
)

func builtin[ID any](name string, m Middleware) Descriptor {
	return Descriptor{
		Name: name,
		Type: reflect.TypeFor[ID](),
		New:  func(resolve.Resolver) (Middleware, error) { return m, nil },
	}
}

// LoggingDescriptor describes Logging.
func LoggingDescriptor(logger *slog.Logger) Descriptor {
	return builtin[loggingMiddleware]("logging", Logging(logger))
}

// RecoverDescriptor describes Recover.
func RecoverDescriptor(logger *slog.Logger) Descriptor {
	return builtin[recoverMiddleware]("recover", Recover(logger))
}

// TimeoutDescriptor describes Timeout.
func TimeoutDescriptor(d time.Duration) Descriptor {
	return builtin[timeoutMiddleware]("timeout", Timeout(d))
}

// TenantDescriptor describes Tenant.
func TenantDescriptor() Descriptor {
	return builtin[tenantMiddleware]("tenant", Tenant())
}

// TracingDescriptor describes tracing with tracer, or with the global
// TracerProvider when tracer is nil.
func TracingDescriptor(tracer trace.Tracer) Descriptor {
	if tracer == nil {
		return builtin[tracingMiddleware]("tracing", Tracing())
	}
	return builtin[tracingMiddleware]("tracing", TracingWithTracer(tracer))
}

// MetricsDescriptor describes metrics with meter, or with the global
// MeterProvider when meter is nil.
func MetricsDescriptor(meter metric.Meter) Descriptor {
	if meter == nil {
		return builtin[metricsMiddleware]("metrics", Metrics())
	}
	return builtin[metricsMiddleware]("metrics", MetricsWithMeter(meter))
}

// ThrottleDescriptor describes Throttle over m.
func ThrottleDescriptor(m *throttle.Manager) Descriptor {
	return builtin[throttleMiddleware]("throttle", Throttle(m))
}
