package extension

import (
	"log/slog"

	"github.com/xraph/taskhub/builder"
	"github.com/xraph/taskhub/ext"
	"github.com/xraph/taskhub/hub"
)

// ExtOption configures the taskhub Forge extension.
type ExtOption func(*Extension)

// WithWorker configures a worker hub named name. The runtime's default
// HubWorker target is preset before configure runs.
func WithWorker(name string, configure func(*builder.WorkerBuilder) error) ExtOption {
	return func(e *Extension) {
		e.setup = append(e.setup, func(rt *hub.Runtime) error {
			_, err := rt.ConfigureWorker(name, configure)
			return err
		})
	}
}

// WithClient configures a standalone client hub named name.
func WithClient(name string, configure func(*builder.ClientBuilder) error) ExtOption {
	return func(e *Extension) {
		e.setup = append(e.setup, func(rt *hub.Runtime) error {
			_, err := rt.AddClient(name, configure)
			return err
		})
	}
}

// WithExtension registers a lifecycle extension on the runtime.
func WithExtension(x ext.Extension) ExtOption {
	return func(e *Extension) {
		e.runtimeOpts = append(e.runtimeOpts, hub.WithExtension(x))
	}
}

// WithRuntimeOptions passes options straight to hub.New.
func WithRuntimeOptions(opts ...hub.Option) ExtOption {
	return func(e *Extension) {
		e.runtimeOpts = append(e.runtimeOpts, opts...)
	}
}

// WithConfig sets the extension configuration directly.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithDisableAutoStart keeps the runtime idle when the app starts.
func WithDisableAutoStart() ExtOption {
	return func(e *Extension) {
		e.config.DisableAutoStart = true
	}
}

// WithRequireConfig requires config to be present in the app configuration.
func WithRequireConfig(require bool) ExtOption {
	return func(e *Extension) {
		e.config.RequireConfig = require
	}
}

// WithLogger sets the structured logger handed to the runtime.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}
