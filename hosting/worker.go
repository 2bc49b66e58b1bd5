package hosting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/xraph/taskhub"
	"github.com/xraph/taskhub/ext"
	"github.com/xraph/taskhub/worker"
)

// Compile-time interface check.
var _ Worker = (*HubWorker)(nil)

// HubWorker is the default worker target. It owns one worker.Worker and
// applies the hub Config to it on Start.
type HubWorker struct {
	name       string
	worker     *worker.Worker
	config     taskhub.Config
	logger     *slog.Logger
	extensions *ext.Registry
	forced     atomic.Bool
}

// Init implements Worker.
func (h *HubWorker) Init(b WorkerBinding) error {
	if b.Worker == nil {
		return fmt.Errorf("hosting: hub %q: worker binding has no worker", b.Name)
	}
	b.defaults()
	h.name = b.Name
	h.worker = b.Worker
	h.config = b.Config
	h.logger = b.Logger
	h.extensions = b.Extensions
	return nil
}

// Name implements Worker.
func (h *HubWorker) Name() string { return h.name }

// Worker returns the underlying dispatch worker.
func (h *HubWorker) Worker() *worker.Worker { return h.worker }

// Config returns the hub configuration applied on Start.
func (h *HubWorker) Config() taskhub.Config { return h.config }

// ForcedShutdown reports whether the last Stop gave up waiting on the
// engine.
func (h *HubWorker) ForcedShutdown() bool { return h.forced.Load() }

// Start provisions the engine when configured to, applies the dispatcher
// settings and starts dispatching.
func (h *HubWorker) Start(ctx context.Context) error {
	if h.worker == nil {
		return fmt.Errorf("hosting: hub %q: %w", h.name, taskhub.ErrNotBuilt)
	}
	if h.config.CreateIfNotExists {
		if err := h.worker.Service().CreateIfNotExists(ctx); err != nil {
			return fmt.Errorf("hosting: hub %q: create orchestration service: %w", h.name, err)
		}
	}

	h.worker.OrchestrationDispatcher().SetIncludeDetails(h.config.IncludeDetails.Has(taskhub.IncludeOrchestrations))
	h.worker.ActivityDispatcher().SetIncludeDetails(h.config.IncludeDetails.Has(taskhub.IncludeActivities))
	h.worker.SetErrorPropagationMode(h.config.ErrorPropagationMode)

	if err := h.worker.Start(ctx); err != nil {
		return err
	}
	h.forced.Store(false)
	h.extensions.EmitWorkerStarted(ctx, h.name)
	return nil
}

// Stop races the worker shutdown against ctx, bounded by the configured
// ShutdownTimeout when ctx has no deadline. When ctx wins, the shutdown
// keeps running in the background, a forced shutdown is reported to the
// log and to extensions, and Stop returns nil.
func (h *HubWorker) Stop(ctx context.Context) error {
	if h.worker == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok && h.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.ShutdownTimeout)
		defer cancel()
	}
	start := time.Now()

	stopped := make(chan error, 1)
	go func() { stopped <- h.worker.Stop(ctx) }()

	select {
	case err := <-stopped:
		if err == nil {
			h.extensions.EmitWorkerStopped(ctx, h.name, time.Since(start))
			return nil
		}
		if ctx.Err() == nil {
			return err
		}
		// An error after the deadline is reported as a forced shutdown.
	case <-ctx.Done():
	}

	waited := time.Since(start)
	h.forced.Store(true)
	reason := taskhub.ErrShutdownTimeout
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = fmt.Errorf("%w: %w", taskhub.ErrShutdownTimeout, ctx.Err())
	}
	h.logger.Warn("forced shutdown: orchestration service did not stop before the deadline",
		slog.String("hub", h.name),
		slog.Duration("waited", waited),
		slog.String("error", reason.Error()),
	)
	h.extensions.EmitForcedShutdown(context.WithoutCancel(ctx), h.name, waited)
	return nil
}
