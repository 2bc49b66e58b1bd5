package builder

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/xraph/taskhub"
	"github.com/xraph/taskhub/ext"
	"github.com/xraph/taskhub/hosting"
	"github.com/xraph/taskhub/orchestration"
	"github.com/xraph/taskhub/resolve"
)

var clientTargetType = reflect.TypeFor[hosting.Client]()

// ClientBuilder accumulates the configuration of one client hub.
type ClientBuilder struct {
	name          string
	target        reflect.Type
	clientFactory func(resolve.Resolver) (orchestration.Client, error)
	direct        bool
	logger        *slog.Logger
	extensions    *ext.Registry
}

// NewClientBuilder returns a builder for the hub name. Only the default
// client is registered for direct injection unless RegisterDirectly is
// called.
func NewClientBuilder(name string) *ClientBuilder {
	return &ClientBuilder{
		name:   name,
		direct: name == taskhub.DefaultName,
		logger: slog.Default(),
	}
}

// Name returns the hub name.
func (b *ClientBuilder) Name() string { return b.name }

// SetBuildTarget sets the type Build instantiates. t must be a pointer to a
// struct implementing hosting.Client.
func (b *ClientBuilder) SetBuildTarget(t reflect.Type) error {
	if err := checkTarget(b.name, t, clientTargetType); err != nil {
		return err
	}
	b.target = t
	return nil
}

// BuildTarget returns the configured target type, or nil.
func (b *ClientBuilder) BuildTarget() reflect.Type { return b.target }

// UseClientTarget sets T as the build target of b.
func UseClientTarget[T hosting.Client](b *ClientBuilder) error {
	return b.SetBuildTarget(reflect.TypeFor[T]())
}

// WithOrchestrationServiceClient uses c as the hub's engine client.
func (b *ClientBuilder) WithOrchestrationServiceClient(c orchestration.Client) *ClientBuilder {
	return b.WithOrchestrationServiceClientFactory(func(resolve.Resolver) (orchestration.Client, error) { return c, nil })
}

// WithOrchestrationServiceClientFactory creates the engine client at build
// time.
func (b *ClientBuilder) WithOrchestrationServiceClientFactory(fn func(resolve.Resolver) (orchestration.Client, error)) *ClientBuilder {
	b.clientFactory = fn
	return b
}

// HasClientFactory reports whether an engine client source is configured.
func (b *ClientBuilder) HasClientFactory() bool { return b.clientFactory != nil }

// RegisterDirectly marks the client for direct injection.
func (b *ClientBuilder) RegisterDirectly() *ClientBuilder {
	b.direct = true
	return b
}

// Direct reports whether the client is registered for direct injection.
func (b *ClientBuilder) Direct() bool { return b.direct }

// WithLogger sets the logger handed to the target.
func (b *ClientBuilder) WithLogger(l *slog.Logger) *ClientBuilder {
	b.logger = l
	return b
}

// WithExtensions sets the extension registry handed to the target.
func (b *ClientBuilder) WithExtensions(r *ext.Registry) *ClientBuilder {
	b.extensions = r
	return b
}

// Build validates the configuration and returns the initialised target.
func (b *ClientBuilder) Build(r resolve.Resolver) (hosting.Client, error) {
	if r == nil {
		r = resolve.Empty()
	}
	if b.target == nil {
		return nil, &taskhub.ConfigurationError{Hub: b.name, Op: "build client", Err: taskhub.ErrMissingBuildTarget}
	}
	c, err := b.engineClient(r)
	if err != nil {
		var capErr *taskhub.CapabilityError
		if errors.As(err, &capErr) {
			return nil, err
		}
		return nil, &taskhub.ConfigurationError{Hub: b.name, Op: "build client", Err: taskhub.ErrMissingEngineClient, Detail: err.Error()}
	}
	if c == nil {
		return nil, &taskhub.ConfigurationError{Hub: b.name, Op: "build client", Err: taskhub.ErrMissingEngineClient}
	}

	target := instantiate[hosting.Client](b.target)
	if err := target.Init(hosting.ClientBinding{
		Name:       b.name,
		Client:     c,
		Resolver:   r,
		Logger:     b.logger,
		Extensions: b.extensions,
	}); err != nil {
		return nil, fmt.Errorf("taskhub: hub %q: init client target: %w", b.name, err)
	}
	return target, nil
}

// engineClient returns the explicit factory's client, or the
// orchestration.Client registered on r when no factory is set.
func (b *ClientBuilder) engineClient(r resolve.Resolver) (orchestration.Client, error) {
	if b.clientFactory != nil {
		return b.clientFactory(r)
	}
	c, ok, err := resolve.Optional[orchestration.Client](r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return c, nil
}

// DeriveClient configures cb to reuse the engine of wb as its client. The
// engine must implement orchestration.Client; otherwise the client build
// fails with a *taskhub.CapabilityError. cb gets the default client target
// if it has none.
func DeriveClient(wb *WorkerBuilder, cb *ClientBuilder) {
	if cb.target == nil {
		cb.target = reflect.TypeFor[*hosting.HubClient]()
	}
	cb.WithOrchestrationServiceClientFactory(func(r resolve.Resolver) (orchestration.Client, error) {
		svc, err := wb.Service(r)
		if err != nil {
			return nil, err
		}
		c, ok := svc.(orchestration.Client)
		if !ok {
			return nil, &taskhub.CapabilityError{Hub: wb.name, Engine: fmt.Sprintf("%T", svc)}
		}
		return c, nil
	})
}
