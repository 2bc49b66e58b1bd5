// Package extension mounts a taskhub runtime into a Forge application.
//
// Register builds every configured hub, Start starts the workers and Stop
// drains them with the same forced-shutdown semantics as hub.Runtime.
// Hub settings can be supplied programmatically or from the app
// configuration under "extensions.taskhub" or "taskhub".
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/taskhub"
	"github.com/xraph/taskhub/client"
	"github.com/xraph/taskhub/hosting"
	"github.com/xraph/taskhub/hub"
	"github.com/xraph/taskhub/resolve"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "taskhub"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Named orchestration worker and client hubs"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

var _ forge.Extension = (*Extension)(nil)

var errNotRegistered = errors.New("taskhub: extension not registered")

// Extension adapts a hub.Runtime to forge.Extension.
type Extension struct {
	*forge.BaseExtension

	config      Config
	logger      *slog.Logger
	runtimeOpts []hub.Option
	setup       []func(*hub.Runtime) error
	rt          *hub.Runtime
}

// New creates a taskhub Forge extension.
func New(opts ...ExtOption) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
		config:        DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Runtime returns the built runtime, or nil before Register.
func (e *Extension) Runtime() *hub.Runtime { return e.rt }

// Clients returns the runtime's client provider, or nil before Register.
func (e *Extension) Clients() *client.Provider {
	if e.rt == nil {
		return nil
	}
	return e.rt.Clients()
}

// Settings returns the configuration in effect after Register.
func (e *Extension) Settings() Config { return e.config }

// Register implements [forge.Extension]. It loads configuration,
// configures every hub and builds the runtime. Hubs without an explicit
// engine resolve orchestration.Service and orchestration.Client from the
// app container; the built runtime and its client provider are registered
// back into it.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}
	if err := e.loadConfiguration(); err != nil {
		return err
	}

	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}
	opts := make([]hub.Option, 0, len(e.runtimeOpts)+3)
	opts = append(opts,
		hub.WithLogger(logger),
		hub.WithConfig(e.config.Hub),
		hub.WithContainer(resolve.NewChildContainer(newAppResolver(fapp))),
	)
	opts = append(opts, e.runtimeOpts...)
	rt := hub.New(opts...)

	for _, fn := range e.setup {
		if err := fn(rt); err != nil {
			return fmt.Errorf("taskhub: configure hubs: %w", err)
		}
	}
	if err := rt.Build(context.Background()); err != nil {
		return fmt.Errorf("taskhub: build runtime: %w", err)
	}
	e.rt = rt

	// Register the runtime and its clients so other extensions can use them.
	if err := vessel.Provide(fapp.Container(), func() (*hub.Runtime, error) {
		return rt, nil
	}); err != nil {
		return fmt.Errorf("taskhub: register runtime in container: %w", err)
	}
	if err := vessel.Provide(fapp.Container(), func() (*client.Provider, error) {
		return rt.Clients(), nil
	}); err != nil {
		return fmt.Errorf("taskhub: register client provider in container: %w", err)
	}
	return nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.rt == nil {
		return errNotRegistered
	}
	if !e.config.DisableAutoStart {
		if err := e.rt.Start(ctx); err != nil {
			return err
		}
	}
	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension]. Workers that miss the deadline are
// reported as forced shutdowns, not errors.
func (e *Extension) Stop(ctx context.Context) error {
	if e.rt == nil {
		e.MarkStopped()
		return nil
	}
	err := e.rt.Stop(ctx)
	e.MarkStopped()
	return err
}

// Health implements [forge.Extension]. It fails while any default-target
// worker is not dispatching.
func (e *Extension) Health(context.Context) error {
	if e.rt == nil {
		return errNotRegistered
	}
	if e.rt.Clients() == nil {
		return taskhub.ErrNotBuilt
	}
	var errs []error
	for _, w := range e.rt.Workers() {
		hw, ok := w.(*hosting.HubWorker)
		if !ok {
			continue
		}
		if hw.Worker() == nil || !hw.Worker().Running() {
			errs = append(errs, fmt.Errorf("taskhub: worker %q is not running", w.Name()))
		}
	}
	return errors.Join(errs...)
}

// loadConfiguration prefers the app configuration over programmatic
// settings, keeping programmatic flags that were switched on.
func (e *Extension) loadConfiguration() error {
	programmatic := e.config

	fileConfig, loaded := e.tryLoadFromConfigFile()
	if !loaded {
		if programmatic.RequireConfig {
			return errors.New("taskhub: configuration is required but not found; " +
				"ensure 'extensions.taskhub' or 'taskhub' key exists in your config")
		}
		e.config = programmatic
	} else {
		if programmatic.DisableAutoStart {
			fileConfig.DisableAutoStart = true
		}
		e.config = fileConfig
	}

	if err := e.config.Hub.Validate(); err != nil {
		return err
	}

	e.Logger().Debug("taskhub: configuration loaded",
		forge.F("disable_auto_start", e.config.DisableAutoStart),
		forge.F("create_if_not_exists", e.config.Hub.CreateIfNotExists),
		forge.F("shutdown_timeout", e.config.Hub.ShutdownTimeout.String()),
	)
	return nil
}

// tryLoadFromConfigFile binds "extensions.taskhub" or "taskhub" over the
// defaults.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	for _, key := range []string{"extensions.taskhub", "taskhub"} {
		if !cm.IsSet(key) {
			continue
		}
		cfg := DefaultConfig()
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("taskhub: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("taskhub: loaded config from file", forge.F("key", key))
		return cfg, true
	}
	return Config{}, false
}
