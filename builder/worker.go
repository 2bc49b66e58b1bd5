package builder

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/xraph/taskhub"
	"github.com/xraph/taskhub/backoff"
	"github.com/xraph/taskhub/ext"
	"github.com/xraph/taskhub/hosting"
	"github.com/xraph/taskhub/middleware"
	"github.com/xraph/taskhub/orchestration"
	"github.com/xraph/taskhub/resolve"
	"github.com/xraph/taskhub/task"
	"github.com/xraph/taskhub/worker"
)

var workerTargetType = reflect.TypeFor[hosting.Worker]()

// WorkerBuilder accumulates the configuration of one worker hub.
//
// Both middleware lists start with the scope boundary descriptor. Build
// fails if a caller has removed it from either list.
type WorkerBuilder struct {
	name   string
	target reflect.Type

	serviceFactory func(resolve.Resolver) (orchestration.Service, error)
	service        orchestration.Service
	serviceErr     error
	serviceDone    bool

	orchMiddleware []middleware.Descriptor
	actMiddleware  []middleware.Descriptor
	orchestrations []task.OrchestrationDescriptor
	activities     []task.ActivityDescriptor

	addClient  bool
	config     taskhub.Config
	logger     *slog.Logger
	extensions *ext.Registry
	backoff    backoff.Strategy
}

// NewWorkerBuilder returns a builder for the hub name.
func NewWorkerBuilder(name string) *WorkerBuilder {
	return &WorkerBuilder{
		name:           name,
		orchMiddleware: []middleware.Descriptor{middleware.ScopeBoundaryDescriptor()},
		actMiddleware:  []middleware.Descriptor{middleware.ScopeBoundaryDescriptor()},
		config:         taskhub.DefaultConfig(),
		logger:         slog.Default(),
	}
}

// Name returns the hub name.
func (b *WorkerBuilder) Name() string { return b.name }

// SetBuildTarget sets the type Build instantiates. t must be a pointer to a
// struct implementing hosting.Worker.
func (b *WorkerBuilder) SetBuildTarget(t reflect.Type) error {
	if err := checkTarget(b.name, t, workerTargetType); err != nil {
		return err
	}
	b.target = t
	return nil
}

// BuildTarget returns the configured target type, or nil.
func (b *WorkerBuilder) BuildTarget() reflect.Type { return b.target }

// UseWorkerTarget sets T as the build target of b.
func UseWorkerTarget[T hosting.Worker](b *WorkerBuilder) error {
	return b.SetBuildTarget(reflect.TypeFor[T]())
}

// WithOrchestrationService uses svc as the hub's engine.
func (b *WorkerBuilder) WithOrchestrationService(svc orchestration.Service) *WorkerBuilder {
	return b.WithOrchestrationServiceFactory(func(resolve.Resolver) (orchestration.Service, error) { return svc, nil })
}

// WithOrchestrationServiceFactory creates the hub's engine at build time.
// The factory runs at most once.
func (b *WorkerBuilder) WithOrchestrationServiceFactory(fn func(resolve.Resolver) (orchestration.Service, error)) *WorkerBuilder {
	b.serviceFactory = fn
	b.service, b.serviceErr, b.serviceDone = nil, nil, false
	return b
}

// UseOrchestrationMiddleware appends d to the orchestration pipeline.
func (b *WorkerBuilder) UseOrchestrationMiddleware(d middleware.Descriptor) *WorkerBuilder {
	b.orchMiddleware = append(b.orchMiddleware, d)
	return b
}

// UseActivityMiddleware appends d to the activity pipeline.
func (b *WorkerBuilder) UseActivityMiddleware(d middleware.Descriptor) *WorkerBuilder {
	b.actMiddleware = append(b.actMiddleware, d)
	return b
}

// OrchestrationMiddleware returns the orchestration middleware list for
// in-place edits.
func (b *WorkerBuilder) OrchestrationMiddleware() *[]middleware.Descriptor { return &b.orchMiddleware }

// ActivityMiddleware returns the activity middleware list for in-place
// edits.
func (b *WorkerBuilder) ActivityMiddleware() *[]middleware.Descriptor { return &b.actMiddleware }

// AddOrchestration registers an orchestration. Later registrations of the
// same name and version win.
func (b *WorkerBuilder) AddOrchestration(d task.OrchestrationDescriptor) *WorkerBuilder {
	b.orchestrations = append(b.orchestrations, d)
	return b
}

// AddActivity registers an activity. Later registrations of the same name
// and version win.
func (b *WorkerBuilder) AddActivity(d task.ActivityDescriptor) *WorkerBuilder {
	b.activities = append(b.activities, d)
	return b
}

// AddClient asks for a client of the same name backed by this hub's engine.
func (b *WorkerBuilder) AddClient() *WorkerBuilder {
	b.addClient = true
	return b
}

// ClientRequested reports whether AddClient was called.
func (b *WorkerBuilder) ClientRequested() bool { return b.addClient }

// WithConfig replaces the hub configuration.
func (b *WorkerBuilder) WithConfig(cfg taskhub.Config) *WorkerBuilder {
	b.config = cfg
	return b
}

// Config returns the hub configuration.
func (b *WorkerBuilder) Config() taskhub.Config { return b.config }

// WithLogger sets the logger handed to the worker and its target.
func (b *WorkerBuilder) WithLogger(l *slog.Logger) *WorkerBuilder {
	b.logger = l
	return b
}

// WithExtensions sets the extension registry handed to the worker.
func (b *WorkerBuilder) WithExtensions(r *ext.Registry) *WorkerBuilder {
	b.extensions = r
	return b
}

// WithBackoff sets the fetch error back-off of the worker.
func (b *WorkerBuilder) WithBackoff(s backoff.Strategy) *WorkerBuilder {
	b.backoff = s
	return b
}

// Service returns the hub's engine, running the factory on first use or
// falling back to the orchestration.Service registered in r.
func (b *WorkerBuilder) Service(r resolve.Resolver) (orchestration.Service, error) {
	if b.serviceDone {
		return b.service, b.serviceErr
	}
	b.serviceDone = true

	if b.serviceFactory != nil {
		b.service, b.serviceErr = b.serviceFactory(r)
		if b.serviceErr == nil && b.service == nil {
			b.serviceErr = taskhub.ErrMissingEngine
		}
		return b.service, b.serviceErr
	}

	svc, ok, err := resolve.Optional[orchestration.Service](r)
	switch {
	case err != nil:
		b.serviceErr = err
	case !ok || svc == nil:
		b.serviceErr = taskhub.ErrMissingEngine
	default:
		b.service = svc
	}
	return b.service, b.serviceErr
}

// Build validates the configuration and returns the initialised target.
// It checks, in order, the build target, the engine and the scope boundary
// in both middleware lists.
func (b *WorkerBuilder) Build(r resolve.Resolver) (hosting.Worker, error) {
	if r == nil {
		r = resolve.Empty()
	}
	if b.target == nil {
		return nil, &taskhub.ConfigurationError{Hub: b.name, Op: "build worker", Err: taskhub.ErrMissingBuildTarget}
	}

	svc, err := b.Service(r)
	if err != nil {
		cerr := &taskhub.ConfigurationError{Hub: b.name, Op: "build worker", Err: taskhub.ErrMissingEngine}
		if !errors.Is(err, taskhub.ErrMissingEngine) {
			cerr.Detail = err.Error()
		}
		return nil, cerr
	}

	boundary := middleware.ScopeBoundaryDescriptor()
	if !middleware.Contains(b.orchMiddleware, boundary) {
		return nil, &taskhub.ConfigurationError{Hub: b.name, Op: "build worker", Err: taskhub.ErrMissingRequiredMiddleware,
			Detail: fmt.Sprintf("orchestration middleware must include %s", boundary)}
	}
	if !middleware.Contains(b.actMiddleware, boundary) {
		return nil, &taskhub.ConfigurationError{Hub: b.name, Op: "build worker", Err: taskhub.ErrMissingRequiredMiddleware,
			Detail: fmt.Sprintf("activity middleware must include %s", boundary)}
	}

	if err := b.config.Validate(); err != nil {
		return nil, &taskhub.ConfigurationError{Hub: b.name, Op: "build worker", Err: taskhub.ErrInvalidConfig, Detail: err.Error()}
	}

	for _, d := range b.orchestrations {
		if err := d.Validate(); err != nil {
			return nil, &taskhub.ConfigurationError{Hub: b.name, Op: "build worker", Err: taskhub.ErrInvalidDescriptor, Detail: err.Error()}
		}
	}
	for _, d := range b.activities {
		if err := d.Validate(); err != nil {
			return nil, &taskhub.ConfigurationError{Hub: b.name, Op: "build worker", Err: taskhub.ErrInvalidDescriptor, Detail: err.Error()}
		}
	}

	orchPipeline, err := middleware.Compose(b.orchMiddleware)
	if err != nil {
		return nil, &taskhub.ConfigurationError{Hub: b.name, Op: "compose orchestration middleware", Err: taskhub.ErrInvalidDescriptor, Detail: err.Error()}
	}
	actPipeline, err := middleware.Compose(b.actMiddleware)
	if err != nil {
		return nil, &taskhub.ConfigurationError{Hub: b.name, Op: "compose activity middleware", Err: taskhub.ErrInvalidDescriptor, Detail: err.Error()}
	}

	extensions := b.extensions
	if extensions == nil {
		extensions = ext.NewRegistry(b.logger)
	}

	opts := []worker.Option{
		worker.WithName(b.name),
		worker.WithLogger(b.logger),
		worker.WithResolver(r),
		worker.WithExtensions(extensions),
		worker.WithOrchestrations(task.OrchestrationRegistry(b.orchestrations)),
		worker.WithActivities(task.ActivityRegistry(b.activities)),
		worker.WithOrchestrationPipeline(orchPipeline),
		worker.WithActivityPipeline(actPipeline),
		worker.WithConcurrency(b.config.OrchestrationConcurrency, b.config.ActivityConcurrency),
		worker.WithDispatchRate(b.config.DispatchRate, b.config.DispatchBurst),
	}
	if b.backoff != nil {
		opts = append(opts, worker.WithBackoff(b.backoff))
	}
	w := worker.New(svc, opts...)

	target := instantiate[hosting.Worker](b.target)
	if err := target.Init(hosting.WorkerBinding{
		Name:       b.name,
		Worker:     w,
		Resolver:   r,
		Logger:     b.logger,
		Config:     b.config,
		Extensions: extensions,
	}); err != nil {
		return nil, fmt.Errorf("taskhub: hub %q: init worker target: %w", b.name, err)
	}
	return target, nil
}
