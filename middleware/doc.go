// Package middleware composes the pipelines that wrap every orchestration
// and activity dispatch.
//
// A [Middleware] receives the dispatch context, the per-dispatch
// [DispatchContext] and the next [Handler]. Pipelines are composed with
// [Chain]; the first middleware is the outermost wrapper.
//
// Workers are configured with [Descriptor] values rather than middleware
// functions. A descriptor names a middleware type and knows how to
// instantiate it for one dispatch from the resolver active at that point.
// The [ScopeBoundaryDescriptor] must be present in every pipeline; [Compose]
// always places it first so that everything after it resolves services from
// a dispatch-scoped resolver that is released when the dispatch ends.
//
//	// boundary → logging → recover → handler
//	descs := []middleware.Descriptor{
//	    middleware.ScopeBoundaryDescriptor(),
//	    middleware.Func("logging", middleware.Logging(logger)),
//	    middleware.Func("recover", middleware.Recover(logger)),
//	}
//	pipeline, err := middleware.Compose(descs)
//
// # Built-in Middleware
//
//   - [Logging] logs task name, instance, duration and outcome
//   - [Recover] converts panics into errors
//   - [Timeout] bounds each dispatch with a deadline
//   - [Tracing] wraps the dispatch in an OpenTelemetry span
//   - [Metrics] records duration and outcome counters
//   - [Tenant] restores the forge scope carried in orchestration tags
//   - [Throttle] waits for a per-task or per-tenant slot from a throttle.Manager
//
// Middleware may short-circuit by returning without calling next.
package middleware
