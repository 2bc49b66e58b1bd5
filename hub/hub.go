// Package hub is the configuration root of a taskhub application. A
// Runtime hands out named worker and client builders, builds each of them
// exactly once and starts and stops the resulting workers together.
//
//	rt := hub.New(hub.WithLogger(logger))
//	rt.ConfigureWorker("orders", func(b *builder.WorkerBuilder) error {
//		b.WithOrchestrationService(local.New())
//		b.AddOrchestration(task.OrchestrationOf[*PlaceOrder]())
//		b.AddClient()
//		return nil
//	})
//	if err := rt.Build(ctx); err != nil { ... }
//	if err := rt.Start(ctx); err != nil { ... }
//	defer rt.Stop(shutdownCtx)
package hub

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/taskhub"
	"github.com/xraph/taskhub/builder"
	"github.com/xraph/taskhub/client"
	"github.com/xraph/taskhub/ext"
	"github.com/xraph/taskhub/hosting"
	"github.com/xraph/taskhub/middleware"
	"github.com/xraph/taskhub/observability"
	"github.com/xraph/taskhub/resolve"
)

const instrumentationName = "github.com/xraph/taskhub"

// Runtime owns the builders of an application's hubs and the hubs built
// from them. Configuration methods are not safe for concurrent use; the
// built runtime is.
type Runtime struct {
	logger         *slog.Logger
	resolver       resolve.Resolver
	container      *resolve.Container
	config         taskhub.Config
	extensions     *ext.Registry
	pending        []ext.Extension
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	instrument     bool

	workers      *builder.Registry[*builder.WorkerBuilder]
	clients      *builder.Registry[*builder.ClientBuilder]
	workerBuilds []func(resolve.Resolver) error
	clientBuilds []func(resolve.Resolver) error

	mu           sync.Mutex
	built        bool
	sealed       atomic.Bool
	builtWorkers []hosting.Worker
	workerByName map[string]hosting.Worker
	containers   []client.Container
	provider     *client.Provider
}

// New creates a Runtime.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		logger:       slog.Default(),
		config:       taskhub.DefaultConfig(),
		workers:      builder.NewRegistry(builder.NewWorkerBuilder),
		clients:      builder.NewRegistry(builder.NewClientBuilder),
		workerByName: make(map[string]hosting.Worker),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.resolver == nil {
		rt.container = resolve.NewContainer()
		rt.resolver = rt.container
	}

	rt.extensions = ext.NewRegistry(rt.logger)
	rt.extensions.Register(observability.NewMetricsExtension())
	for _, e := range rt.pending {
		rt.extensions.Register(e)
	}
	rt.pending = nil
	return rt
}

// Extensions returns the extension registry shared by all hubs.
func (rt *Runtime) Extensions() *ext.Registry { return rt.extensions }

// Resolver returns the ambient resolver.
func (rt *Runtime) Resolver() resolve.Resolver { return rt.resolver }

// ──────────────────────────────────────────────────
// Configuration
// ──────────────────────────────────────────────────

// Worker returns the worker builder for name, creating it and scheduling
// its build on first use.
func (rt *Runtime) Worker(name string) *builder.WorkerBuilder {
	b, created := rt.workers.GetOrAdd(name)
	if created {
		b.WithLogger(rt.logger).WithExtensions(rt.extensions).WithConfig(rt.config)
		rt.warnIfSealed("worker", name)
		rt.workerBuilds = append(rt.workerBuilds, func(r resolve.Resolver) error {
			return rt.buildWorker(b, r)
		})
	}
	return b
}

// Client returns the client builder for name, creating it and scheduling
// its build on first use.
func (rt *Runtime) Client(name string) *builder.ClientBuilder {
	b, created := rt.clients.GetOrAdd(name)
	if created {
		b.WithLogger(rt.logger).WithExtensions(rt.extensions)
		rt.warnIfSealed("client", name)
		rt.clientBuilds = append(rt.clientBuilds, func(r resolve.Resolver) error {
			return rt.buildClient(b, r)
		})
	}
	return b
}

func (rt *Runtime) warnIfSealed(kind, name string) {
	if rt.sealed.Load() {
		rt.logger.Warn("taskhub: hub added after Build will never be built",
			slog.String("kind", kind),
			slog.String("hub", name),
		)
	}
}

// AddWorker returns the worker builder for name after running configure on
// it. It fails with ErrAlreadyBuilt once Build has run.
func (rt *Runtime) AddWorker(name string, configure func(*builder.WorkerBuilder) error) (*builder.WorkerBuilder, error) {
	if rt.sealed.Load() {
		return nil, fmt.Errorf("taskhub: add worker %q: %w", name, taskhub.ErrAlreadyBuilt)
	}
	b := rt.Worker(name)
	if configure != nil {
		if err := configure(b); err != nil {
			return nil, fmt.Errorf("taskhub: configure worker %q: %w", name, err)
		}
	}
	return b, nil
}

// ConfigureWorker is AddWorker with hosting.HubWorker preset as the build
// target.
func (rt *Runtime) ConfigureWorker(name string, configure func(*builder.WorkerBuilder) error) (*builder.WorkerBuilder, error) {
	return rt.AddWorker(name, func(b *builder.WorkerBuilder) error {
		if b.BuildTarget() == nil {
			if err := builder.UseWorkerTarget[*hosting.HubWorker](b); err != nil {
				return err
			}
		}
		if configure == nil {
			return nil
		}
		return configure(b)
	})
}

// AddClient returns the client builder for name after running configure on
// it. hosting.HubClient is preset as the build target. It fails with
// ErrAlreadyBuilt once Build has run.
func (rt *Runtime) AddClient(name string, configure func(*builder.ClientBuilder) error) (*builder.ClientBuilder, error) {
	if rt.sealed.Load() {
		return nil, fmt.Errorf("taskhub: add client %q: %w", name, taskhub.ErrAlreadyBuilt)
	}
	b := rt.Client(name)
	if b.BuildTarget() == nil {
		if err := builder.UseClientTarget[*hosting.HubClient](b); err != nil {
			return nil, err
		}
	}
	if configure != nil {
		if err := configure(b); err != nil {
			return nil, fmt.Errorf("taskhub: configure client %q: %w", name, err)
		}
	}
	return b, nil
}

// ──────────────────────────────────────────────────
// Build
// ──────────────────────────────────────────────────

// Build runs every scheduled build once: worker hubs in creation order,
// then client hubs, including the ones derived from workers. It then
// publishes the client provider. A second call returns
// taskhub.ErrAlreadyBuilt.
func (rt *Runtime) Build(ctx context.Context) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.built {
		return taskhub.ErrAlreadyBuilt
	}
	rt.built = true
	defer rt.sealed.Store(true)

	for _, build := range rt.workerBuilds {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := build(rt.resolver); err != nil {
			return err
		}
	}
	// Worker builds may schedule derived client builds.
	for i := 0; i < len(rt.clientBuilds); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := rt.clientBuilds[i](rt.resolver); err != nil {
			return err
		}
	}

	rt.provider = client.NewProvider(rt.containers...)
	if rt.container != nil {
		resolve.TryProvideValue(rt.container, rt.provider)
	}

	rt.logger.Info("taskhub runtime built",
		slog.Int("workers", len(rt.builtWorkers)),
		slog.Any("clients", rt.provider.Names()),
	)
	return nil
}

func (rt *Runtime) buildWorker(b *builder.WorkerBuilder, r resolve.Resolver) error {
	if rt.instrument {
		rt.instrumentPipelines(b)
	}
	w, err := b.Build(r)
	if err != nil {
		return err
	}
	rt.builtWorkers = append(rt.builtWorkers, w)
	rt.workerByName[b.Name()] = w

	if b.ClientRequested() {
		cb := rt.Client(b.Name())
		if !cb.HasClientFactory() {
			builder.DeriveClient(b, cb)
		}
	}
	return nil
}

func (rt *Runtime) buildClient(b *builder.ClientBuilder, r resolve.Resolver) error {
	c, err := b.Build(r)
	if err != nil {
		return err
	}
	rt.containers = append(rt.containers, client.NewContainer(b.Name(), c))
	if b.Direct() && rt.container != nil {
		resolve.TryProvideValue(rt.container, c)
	}
	return nil
}

// instrumentPipelines inserts tracing and metrics right after the scope
// boundary unless they are already present.
func (rt *Runtime) instrumentPipelines(b *builder.WorkerBuilder) {
	var tracer trace.Tracer
	if rt.tracerProvider != nil {
		tracer = rt.tracerProvider.Tracer(instrumentationName)
	}
	var meter metric.Meter
	if rt.meterProvider != nil {
		meter = rt.meterProvider.Meter(instrumentationName)
	}
	extra := []middleware.Descriptor{middleware.TracingDescriptor(tracer), middleware.MetricsDescriptor(meter)}

	for _, list := range []*[]middleware.Descriptor{b.OrchestrationMiddleware(), b.ActivityMiddleware()} {
		at := slices.IndexFunc(*list, func(d middleware.Descriptor) bool {
			return d.Is(middleware.ScopeBoundaryDescriptor())
		}) + 1
		for _, d := range extra {
			if middleware.Contains(*list, d) {
				continue
			}
			*list = slices.Insert(*list, at, d)
			at++
		}
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Start starts every built worker concurrently.
func (rt *Runtime) Start(ctx context.Context) error {
	workers, err := rt.workersIfBuilt()
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(func() error {
			if err := w.Start(gctx); err != nil {
				return fmt.Errorf("taskhub: start worker %q: %w", w.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Stop stops every built worker concurrently and then notifies extensions
// of the shutdown. Workers that do not stop before ctx is done are left to
// finish in the background.
func (rt *Runtime) Stop(ctx context.Context) error {
	workers, err := rt.workersIfBuilt()
	if err != nil {
		return err
	}
	var g errgroup.Group
	for _, w := range workers {
		g.Go(func() error {
			if err := w.Stop(ctx); err != nil {
				return fmt.Errorf("taskhub: stop worker %q: %w", w.Name(), err)
			}
			return nil
		})
	}
	err = g.Wait()
	rt.extensions.EmitShutdown(context.WithoutCancel(ctx))
	return err
}

func (rt *Runtime) workersIfBuilt() ([]hosting.Worker, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if !rt.built {
		return nil, taskhub.ErrNotBuilt
	}
	return slices.Clone(rt.builtWorkers), nil
}

// ──────────────────────────────────────────────────
// Built hubs
// ──────────────────────────────────────────────────

// Clients returns the client provider, or nil before Build.
func (rt *Runtime) Clients() *client.Provider {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.provider
}

// Workers returns the built workers in build order.
func (rt *Runtime) Workers() []hosting.Worker {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return slices.Clone(rt.builtWorkers)
}

// WorkerNamed returns the built worker for name.
func (rt *Runtime) WorkerNamed(name string) (hosting.Worker, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	w, ok := rt.workerByName[name]
	return w, ok
}
