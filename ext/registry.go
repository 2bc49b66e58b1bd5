package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/taskhub/middleware"
	"github.com/xraph/taskhub/orchestration"
)

// entry pairs a hook implementation with the extension name captured at
// registration time.
type entry[H any] struct {
	name string
	hook H
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
// Register all extensions before the runtime starts.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	workerStarted          []entry[WorkerStarted]
	workerStopped          []entry[WorkerStopped]
	forcedShutdown         []entry[ForcedShutdown]
	dispatchStarted        []entry[DispatchStarted]
	dispatchCompleted      []entry[DispatchCompleted]
	dispatchFailed         []entry[DispatchFailed]
	orchestrationScheduled []entry[OrchestrationScheduled]
	shutdown               []entry[Shutdown]
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(WorkerStarted); ok {
		r.workerStarted = append(r.workerStarted, entry[WorkerStarted]{name, h})
	}
	if h, ok := e.(WorkerStopped); ok {
		r.workerStopped = append(r.workerStopped, entry[WorkerStopped]{name, h})
	}
	if h, ok := e.(ForcedShutdown); ok {
		r.forcedShutdown = append(r.forcedShutdown, entry[ForcedShutdown]{name, h})
	}
	if h, ok := e.(DispatchStarted); ok {
		r.dispatchStarted = append(r.dispatchStarted, entry[DispatchStarted]{name, h})
	}
	if h, ok := e.(DispatchCompleted); ok {
		r.dispatchCompleted = append(r.dispatchCompleted, entry[DispatchCompleted]{name, h})
	}
	if h, ok := e.(DispatchFailed); ok {
		r.dispatchFailed = append(r.dispatchFailed, entry[DispatchFailed]{name, h})
	}
	if h, ok := e.(OrchestrationScheduled); ok {
		r.orchestrationScheduled = append(r.orchestrationScheduled, entry[OrchestrationScheduled]{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, entry[Shutdown]{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Worker event emitters
// ──────────────────────────────────────────────────

// EmitWorkerStarted notifies all extensions that implement WorkerStarted.
func (r *Registry) EmitWorkerStarted(ctx context.Context, hub string) {
	for _, e := range r.workerStarted {
		if err := e.hook.OnWorkerStarted(ctx, hub); err != nil {
			r.logHookError("OnWorkerStarted", e.name, err)
		}
	}
}

// EmitWorkerStopped notifies all extensions that implement WorkerStopped.
func (r *Registry) EmitWorkerStopped(ctx context.Context, hub string, elapsed time.Duration) {
	for _, e := range r.workerStopped {
		if err := e.hook.OnWorkerStopped(ctx, hub, elapsed); err != nil {
			r.logHookError("OnWorkerStopped", e.name, err)
		}
	}
}

// EmitForcedShutdown notifies all extensions that implement ForcedShutdown.
func (r *Registry) EmitForcedShutdown(ctx context.Context, hub string, waited time.Duration) {
	for _, e := range r.forcedShutdown {
		if err := e.hook.OnForcedShutdown(ctx, hub, waited); err != nil {
			r.logHookError("OnForcedShutdown", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Dispatch event emitters
// ──────────────────────────────────────────────────

// EmitDispatchStarted notifies all extensions that implement DispatchStarted.
func (r *Registry) EmitDispatchStarted(ctx context.Context, info middleware.Info) {
	for _, e := range r.dispatchStarted {
		if err := e.hook.OnDispatchStarted(ctx, info); err != nil {
			r.logHookError("OnDispatchStarted", e.name, err)
		}
	}
}

// EmitDispatchCompleted notifies all extensions that implement DispatchCompleted.
func (r *Registry) EmitDispatchCompleted(ctx context.Context, info middleware.Info, elapsed time.Duration) {
	for _, e := range r.dispatchCompleted {
		if err := e.hook.OnDispatchCompleted(ctx, info, elapsed); err != nil {
			r.logHookError("OnDispatchCompleted", e.name, err)
		}
	}
}

// EmitDispatchFailed notifies all extensions that implement DispatchFailed.
func (r *Registry) EmitDispatchFailed(ctx context.Context, info middleware.Info, dispatchErr error) {
	for _, e := range r.dispatchFailed {
		if err := e.hook.OnDispatchFailed(ctx, info, dispatchErr); err != nil {
			r.logHookError("OnDispatchFailed", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Other event emitters
// ──────────────────────────────────────────────────

// EmitOrchestrationScheduled notifies all extensions that implement
// OrchestrationScheduled.
func (r *Registry) EmitOrchestrationScheduled(ctx context.Context, hub, name string, inst orchestration.Instance) {
	for _, e := range r.orchestrationScheduled {
		if err := e.hook.OnOrchestrationScheduled(ctx, hub, name, inst); err != nil {
			r.logHookError("OnOrchestrationScheduled", e.name, err)
		}
	}
}

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Hook errors never reach the dispatch pipeline.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
