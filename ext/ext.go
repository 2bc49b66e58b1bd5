package ext

import (
	"context"
	"time"

	"github.com/xraph/taskhub/middleware"
	"github.com/xraph/taskhub/orchestration"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Worker lifecycle hooks
// ──────────────────────────────────────────────────

// WorkerStarted is called after a worker hub starts.
type WorkerStarted interface {
	OnWorkerStarted(ctx context.Context, hub string) error
}

// WorkerStopped is called after a worker hub stops within its deadline.
type WorkerStopped interface {
	OnWorkerStopped(ctx context.Context, hub string, elapsed time.Duration) error
}

// ForcedShutdown is called when a worker hub's stop deadline passes before
// the engine finished stopping.
type ForcedShutdown interface {
	OnForcedShutdown(ctx context.Context, hub string, waited time.Duration) error
}

// ──────────────────────────────────────────────────
// Dispatch hooks
// ──────────────────────────────────────────────────

// DispatchStarted is called before a work item enters its pipeline.
type DispatchStarted interface {
	OnDispatchStarted(ctx context.Context, info middleware.Info) error
}

// DispatchCompleted is called after a pipeline returns without error.
type DispatchCompleted interface {
	OnDispatchCompleted(ctx context.Context, info middleware.Info, elapsed time.Duration) error
}

// DispatchFailed is called after a pipeline returns an error.
type DispatchFailed interface {
	OnDispatchFailed(ctx context.Context, info middleware.Info, err error) error
}

// ──────────────────────────────────────────────────
// Other hooks
// ──────────────────────────────────────────────────

// OrchestrationScheduled is called after a client hub starts an instance.
type OrchestrationScheduled interface {
	OnOrchestrationScheduled(ctx context.Context, hub, name string, inst orchestration.Instance) error
}

// Shutdown is called when the runtime is shutting down.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
