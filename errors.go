package taskhub

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Build errors.
	ErrInvalidBuildTarget        = errors.New("taskhub: invalid build target")
	ErrMissingBuildTarget        = errors.New("taskhub: no build target configured")
	ErrMissingEngine             = errors.New("taskhub: no orchestration service configured")
	ErrMissingEngineClient       = errors.New("taskhub: no orchestration service client configured")
	ErrMissingRequiredMiddleware = errors.New("taskhub: required middleware missing")
	ErrInvalidDescriptor         = errors.New("taskhub: invalid descriptor")
	ErrInvalidConfig             = errors.New("taskhub: invalid config")

	// Capability errors.
	ErrEngineNotClientCapable = errors.New("taskhub: orchestration service cannot act as a client")

	// Lookup errors.
	ErrUnknownClient     = errors.New("taskhub: unknown client")
	ErrUnknownTask       = errors.New("taskhub: no task registered")
	ErrInstanceNotFound  = errors.New("taskhub: orchestration instance not found")
	ErrInstanceExists    = errors.New("taskhub: orchestration instance already running")
	ErrServiceNotStarted = errors.New("taskhub: orchestration service not started")

	// Task errors.
	ErrTaskFailed = errors.New("taskhub: task failed")

	// Lifecycle errors.
	ErrAlreadyBuilt    = errors.New("taskhub: already built")
	ErrNotBuilt        = errors.New("taskhub: not built")
	ErrShutdownTimeout = errors.New("taskhub: shutdown timed out")
	ErrWaitTimeout     = errors.New("taskhub: timed out waiting for orchestration")
)

// ConfigurationError reports a hub that cannot be built as configured.
// Err is one of the build sentinels above.
type ConfigurationError struct {
	Hub    string
	Op     string
	Detail string
	Err    error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "taskhub: hub %q: %s: %v", e.Hub, e.Op, e.Err)
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteString(")")
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// LookupError is returned when no client is registered under Name.
// Known holds the registered names in sorted order.
type LookupError struct {
	Name  string
	Known []string
}

func (e *LookupError) Error() string {
	quoted := make([]string, len(e.Known))
	for i, n := range e.Known {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return fmt.Sprintf("taskhub: client %q not found; must be one of the available clients: [%s]",
		e.Name, strings.Join(quoted, ", "))
}

func (e *LookupError) Unwrap() error { return ErrUnknownClient }

// CapabilityError is returned when a worker hub asked to derive a client
// uses an orchestration service that does not implement the client surface.
type CapabilityError struct {
	Hub    string
	Engine string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("taskhub: hub %q: orchestration service %s cannot act as a client", e.Hub, e.Engine)
}

func (e *CapabilityError) Unwrap() error { return ErrEngineNotClientCapable }
