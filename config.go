package taskhub

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultName is the name of the default hub. It is also the only client
// name that is registered for direct injection.
const DefaultName = ""

// Config holds per-hub worker settings.
type Config struct {
	// CreateIfNotExists asks the orchestration service to provision its
	// backing resources before the worker starts.
	CreateIfNotExists bool `json:"create_if_not_exists" mapstructure:"create_if_not_exists"`

	// IncludeDetails selects which dispatchers attach error details to
	// failure results.
	IncludeDetails IncludeDetails `json:"include_details" mapstructure:"include_details"`

	// ErrorPropagationMode selects how activity failures reach the
	// orchestration that scheduled them.
	ErrorPropagationMode ErrorPropagationMode `json:"error_propagation_mode" mapstructure:"error_propagation_mode"`

	// OrchestrationConcurrency is the number of orchestration dispatch loops.
	OrchestrationConcurrency int `json:"orchestration_concurrency" mapstructure:"orchestration_concurrency"`

	// ActivityConcurrency is the number of activity dispatch loops.
	ActivityConcurrency int `json:"activity_concurrency" mapstructure:"activity_concurrency"`

	// DispatchRate caps fetches per second across all loops of a worker.
	// Zero disables the limit.
	DispatchRate float64 `json:"dispatch_rate" mapstructure:"dispatch_rate"`

	// DispatchBurst is the limiter burst when DispatchRate is set.
	DispatchBurst int `json:"dispatch_burst" mapstructure:"dispatch_burst"`

	// ShutdownTimeout bounds Stop when the caller's context has no deadline.
	ShutdownTimeout time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		IncludeDetails:           IncludeNone,
		ErrorPropagationMode:     PropagateSerialized,
		OrchestrationConcurrency: 4,
		ActivityConcurrency:      8,
		DispatchBurst:            1,
		ShutdownTimeout:          30 * time.Second,
	}
}

// Validate reports settings that would leave a worker unable to run.
func (c Config) Validate() error {
	var errs []error
	if c.OrchestrationConcurrency < 1 {
		errs = append(errs, fmt.Errorf("orchestration_concurrency must be at least 1, got %d", c.OrchestrationConcurrency))
	}
	if c.ActivityConcurrency < 1 {
		errs = append(errs, fmt.Errorf("activity_concurrency must be at least 1, got %d", c.ActivityConcurrency))
	}
	if c.DispatchRate < 0 {
		errs = append(errs, fmt.Errorf("dispatch_rate must not be negative, got %v", c.DispatchRate))
	}
	if c.DispatchRate > 0 && c.DispatchBurst < 1 {
		errs = append(errs, fmt.Errorf("dispatch_burst must be at least 1 when dispatch_rate is set, got %d", c.DispatchBurst))
	}
	if c.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("shutdown_timeout must not be negative, got %v", c.ShutdownTimeout))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// ──────────────────────────────────────────────────
// IncludeDetails
// ──────────────────────────────────────────────────

// IncludeDetails is a bit set naming the dispatchers that attach error
// details to failure results.
type IncludeDetails uint8

const (
	IncludeNone           IncludeDetails = 0
	IncludeOrchestrations IncludeDetails = 1 << 0
	IncludeActivities     IncludeDetails = 1 << 1
	IncludeAll                           = IncludeOrchestrations | IncludeActivities
)

// Has reports whether every flag in f is set.
func (d IncludeDetails) Has(f IncludeDetails) bool { return d&f == f }

func (d IncludeDetails) String() string {
	switch d {
	case IncludeNone:
		return "none"
	case IncludeAll:
		return "all"
	case IncludeOrchestrations:
		return "orchestrations"
	case IncludeActivities:
		return "activities"
	default:
		return fmt.Sprintf("IncludeDetails(%d)", uint8(d))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d IncludeDetails) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText accepts "none", "all", or a comma separated list of
// "orchestrations" and "activities".
func (d *IncludeDetails) UnmarshalText(text []byte) error {
	var out IncludeDetails
	for _, part := range strings.Split(string(text), ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "", "none":
		case "all":
			out |= IncludeAll
		case "orchestrations", "orchestration":
			out |= IncludeOrchestrations
		case "activities", "activity":
			out |= IncludeActivities
		default:
			return fmt.Errorf("taskhub: unknown include_details value %q", part)
		}
	}
	*d = out
	return nil
}

// ──────────────────────────────────────────────────
// ErrorPropagationMode
// ──────────────────────────────────────────────────

// ErrorPropagationMode selects how a failed activity is reported to the
// orchestration that called it.
type ErrorPropagationMode uint8

const (
	// PropagateSerialized reports the failure as a message and an optional
	// details string.
	PropagateSerialized ErrorPropagationMode = iota
	// PropagateFailureDetails reports the failure as structured details.
	PropagateFailureDetails
)

func (m ErrorPropagationMode) String() string {
	switch m {
	case PropagateSerialized:
		return "serialized"
	case PropagateFailureDetails:
		return "failure_details"
	default:
		return fmt.Sprintf("ErrorPropagationMode(%d)", uint8(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m ErrorPropagationMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ErrorPropagationMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "serialized", "serialized_exception":
		*m = PropagateSerialized
	case "failure_details", "failuredetails":
		*m = PropagateFailureDetails
	default:
		return fmt.Errorf("taskhub: unknown error_propagation_mode %q", text)
	}
	return nil
}
