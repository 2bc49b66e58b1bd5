package hub

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/taskhub"
	"github.com/xraph/taskhub/ext"
	"github.com/xraph/taskhub/resolve"
)

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger handed to every hub.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) { rt.logger = l }
}

// WithResolver sets the ambient resolver hubs build against. Pass a
// *resolve.Container to have the default client and the client provider
// registered into it.
func WithResolver(r resolve.Resolver) Option {
	return func(rt *Runtime) {
		rt.resolver = r
		rt.container, _ = r.(*resolve.Container)
	}
}

// WithContainer is WithResolver for a container.
func WithContainer(c *resolve.Container) Option {
	return func(rt *Runtime) {
		rt.resolver = c
		rt.container = c
	}
}

// WithConfig sets the configuration every worker hub starts from.
func WithConfig(cfg taskhub.Config) Option {
	return func(rt *Runtime) { rt.config = cfg }
}

// WithExtension registers an extension with every hub.
func WithExtension(e ext.Extension) Option {
	return func(rt *Runtime) { rt.pending = append(rt.pending, e) }
}

// WithTracerProvider sets the TracerProvider used by the tracing
// middleware. If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(rt *Runtime) { rt.tracerProvider = tp }
}

// WithMeterProvider sets the MeterProvider used by the metrics
// middleware. If not set, the global otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(rt *Runtime) { rt.meterProvider = mp }
}

// WithInstrumentation adds tracing and metrics middleware to both
// pipelines of every worker hub, right after the scope boundary.
func WithInstrumentation() Option {
	return func(rt *Runtime) { rt.instrument = true }
}
