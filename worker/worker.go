// Package worker runs the dispatch loops of one worker hub. A Worker pulls
// orchestration and activity work items from an orchestration service and
// pushes each one through its middleware pipeline to the registered task.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xraph/taskhub"
	"github.com/xraph/taskhub/backoff"
	"github.com/xraph/taskhub/ext"
	"github.com/xraph/taskhub/id"
	"github.com/xraph/taskhub/middleware"
	"github.com/xraph/taskhub/orchestration"
	"github.com/xraph/taskhub/resolve"
	"github.com/xraph/taskhub/task"
)

// Worker dispatches work items from one orchestration service.
type Worker struct {
	name            string
	service         orchestration.Service
	resolver        resolve.Resolver
	orchestrations  *task.Registry[task.OrchestrationDescriptor]
	activities      *task.Registry[task.ActivityDescriptor]
	orchPipeline    middleware.Middleware
	actPipeline     middleware.Middleware
	extensions      *ext.Registry
	backoff         backoff.Strategy
	limiter         *rate.Limiter
	orchConcurrency int
	actConcurrency  int
	workerID        id.ID
	logger          *slog.Logger

	orchDispatcher *Dispatcher
	actDispatcher  *Dispatcher
	propagation    atomic.Uint32

	mu           sync.Mutex
	running      bool
	stopFetch    context.CancelFunc
	stopDispatch context.CancelFunc
	done         chan struct{}
}

// Option configures a Worker.
type Option func(*Worker)

// WithName sets the hub name reported in logs, hooks and telemetry.
func WithName(name string) Option {
	return func(w *Worker) { w.name = name }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Worker) { w.logger = l }
}

// WithResolver sets the root resolver dispatch scopes are opened from.
func WithResolver(r resolve.Resolver) Option {
	return func(w *Worker) { w.resolver = r }
}

// WithExtensions sets the extension registry notified of dispatches.
func WithExtensions(r *ext.Registry) Option {
	return func(w *Worker) { w.extensions = r }
}

// WithOrchestrations sets the orchestration registry.
func WithOrchestrations(r *task.Registry[task.OrchestrationDescriptor]) Option {
	return func(w *Worker) { w.orchestrations = r }
}

// WithActivities sets the activity registry.
func WithActivities(r *task.Registry[task.ActivityDescriptor]) Option {
	return func(w *Worker) { w.activities = r }
}

// WithOrchestrationPipeline sets the composed orchestration pipeline.
func WithOrchestrationPipeline(m middleware.Middleware) Option {
	return func(w *Worker) { w.orchPipeline = m }
}

// WithActivityPipeline sets the composed activity pipeline.
func WithActivityPipeline(m middleware.Middleware) Option {
	return func(w *Worker) { w.actPipeline = m }
}

// WithConcurrency sets the number of orchestration and activity loops.
func WithConcurrency(orchestrations, activities int) Option {
	return func(w *Worker) {
		w.orchConcurrency = max(orchestrations, 1)
		w.actConcurrency = max(activities, 1)
	}
}

// WithBackoff sets the delay strategy between failed fetches.
func WithBackoff(s backoff.Strategy) Option {
	return func(w *Worker) { w.backoff = s }
}

// WithDispatchRate caps fetches per second across all loops. A
// non-positive rate removes the cap.
func WithDispatchRate(perSecond float64, burst int) Option {
	return func(w *Worker) {
		if perSecond <= 0 {
			w.limiter = nil
			return
		}
		w.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// New creates a Worker for service.
func New(service orchestration.Service, opts ...Option) *Worker {
	w := &Worker{
		service:         service,
		resolver:        resolve.Empty(),
		orchestrations:  task.NewRegistry[task.OrchestrationDescriptor](),
		activities:      task.NewRegistry[task.ActivityDescriptor](),
		orchPipeline:    middleware.ScopeBoundary(),
		actPipeline:     middleware.ScopeBoundary(),
		backoff:         backoff.DefaultStrategy(),
		orchConcurrency: 1,
		actConcurrency:  1,
		workerID:        id.NewWorkerID(),
		logger:          slog.Default(),
		orchDispatcher:  &Dispatcher{kind: middleware.KindOrchestration},
		actDispatcher:   &Dispatcher{kind: middleware.KindActivity},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.extensions == nil {
		w.extensions = ext.NewRegistry(w.logger)
	}
	return w
}

// Name returns the hub name.
func (w *Worker) Name() string { return w.name }

// ID returns the worker's unique identifier.
func (w *Worker) ID() id.ID { return w.workerID }

// Service returns the orchestration service the worker pulls from.
func (w *Worker) Service() orchestration.Service { return w.service }

// OrchestrationDispatcher returns the orchestration dispatcher settings.
func (w *Worker) OrchestrationDispatcher() *Dispatcher { return w.orchDispatcher }

// ActivityDispatcher returns the activity dispatcher settings.
func (w *Worker) ActivityDispatcher() *Dispatcher { return w.actDispatcher }

// ErrorPropagationMode returns how activity failures reach orchestrations.
func (w *Worker) ErrorPropagationMode() taskhub.ErrorPropagationMode {
	return taskhub.ErrorPropagationMode(w.propagation.Load())
}

// SetErrorPropagationMode changes how activity failures reach orchestrations.
func (w *Worker) SetErrorPropagationMode(m taskhub.ErrorPropagationMode) {
	w.propagation.Store(uint32(m))
}

// Running reports whether the dispatch loops are running.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Start starts the orchestration service and launches the dispatch loops.
// It returns once the loops are running. Starting a running worker is a
// no-op.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	if err := w.service.Start(ctx); err != nil {
		return fmt.Errorf("worker %q: start orchestration service: %w", w.name, err)
	}

	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
	fetchCtx, stopFetch := context.WithCancel(dispatchCtx)
	w.stopFetch, w.stopDispatch = stopFetch, stopDispatch
	w.done = make(chan struct{})
	w.running = true

	w.logger.Info("worker starting",
		slog.String("hub", w.name),
		slog.String("worker_id", w.workerID.String()),
		slog.Int("orchestration_concurrency", w.orchConcurrency),
		slog.Int("activity_concurrency", w.actConcurrency),
	)

	var g errgroup.Group
	for range w.orchConcurrency {
		g.Go(func() error {
			fetchLoop(w, fetchCtx, dispatchCtx, middleware.KindOrchestration,
				w.service.FetchOrchestrationWorkItem, w.dispatchOrchestration)
			return nil
		})
	}
	for range w.actConcurrency {
		g.Go(func() error {
			fetchLoop(w, fetchCtx, dispatchCtx, middleware.KindActivity,
				w.service.FetchActivityWorkItem, w.dispatchActivity)
			return nil
		})
	}
	done := w.done
	go func() {
		_ = g.Wait()
		close(done)
	}()
	return nil
}

// Stop stops fetching, waits for in-flight dispatches and stops the
// orchestration service. When ctx is done first, in-flight dispatches are
// cancelled before the service is stopped. The service stop itself is not
// bounded by ctx.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	stopFetch, stopDispatch, done := w.stopFetch, w.stopDispatch, w.done
	w.mu.Unlock()

	w.logger.Info("worker stopping", slog.String("hub", w.name), slog.String("worker_id", w.workerID.String()))
	start := time.Now()

	stopFetch()
	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("worker drain timed out, cancelling active dispatches", slog.String("hub", w.name))
		stopDispatch()
		<-done
	}
	stopDispatch()

	// ctx bounds the drain only.
	if err := w.service.Stop(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("worker %q: stop orchestration service: %w", w.name, err)
	}
	w.logger.Info("worker stopped", slog.String("hub", w.name), slog.Duration("elapsed", time.Since(start)))
	return nil
}
