// Package task defines the units a worker hub dispatches: orchestrations,
// which coordinate work and may call activities, and activities, which do
// the work. Both are registered through descriptors that pair a name and a
// version with a constructor.
package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/taskhub"
)

// OrchestrationContext is the engine's view of a running orchestration.
type OrchestrationContext interface {
	InstanceID() string
	ExecutionID() string
	Name() string
	Version() string
	Tags() map[string]string

	// IsReplaying reports whether the engine is replaying history. Side
	// effects outside activities should be skipped while it is true.
	IsReplaying() bool

	// CallActivity schedules an activity and waits for its result.
	CallActivity(ctx context.Context, name, version string, input []byte) ([]byte, error)
}

// ActivityContext describes the activity being run.
type ActivityContext interface {
	InstanceID() string
	Name() string
	Version() string
}

// Orchestration coordinates activities for one instance.
type Orchestration interface {
	Execute(ctx context.Context, oc OrchestrationContext, input []byte) ([]byte, error)
}

// Activity performs one unit of work.
type Activity interface {
	Run(ctx context.Context, ac ActivityContext, input []byte) ([]byte, error)
}

// OrchestrationFunc adapts a function to Orchestration.
type OrchestrationFunc func(ctx context.Context, oc OrchestrationContext, input []byte) ([]byte, error)

// Execute implements Orchestration.
func (f OrchestrationFunc) Execute(ctx context.Context, oc OrchestrationContext, input []byte) ([]byte, error) {
	return f(ctx, oc, input)
}

// ActivityFunc adapts a function to Activity.
type ActivityFunc func(ctx context.Context, ac ActivityContext, input []byte) ([]byte, error)

// Run implements Activity.
func (f ActivityFunc) Run(ctx context.Context, ac ActivityContext, input []byte) ([]byte, error) {
	return f(ctx, ac, input)
}

// FailureDetails describes a failed task.
type FailureDetails struct {
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
	// Details is the full error chain. It is only set when the dispatcher
	// was told to include details.
	Details string `json:"details,omitempty"`
}

// NewFailureDetails describes err. Details are filled in when include is set.
func NewFailureDetails(err error, include bool) *FailureDetails {
	fd := &FailureDetails{ErrorType: fmt.Sprintf("%T", rootCause(err)), Message: err.Error()}
	if include {
		fd.Details = fmt.Sprintf("%+v", err)
	}
	return fd
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// FailedError is returned by CallActivity when the activity failed and the
// worker propagates structured failure details.
type FailedError struct {
	TaskName string
	Failure  FailureDetails
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("task %q failed: %s", e.TaskName, e.Failure.Message)
}

// Is matches taskhub.ErrTaskFailed.
func (e *FailedError) Is(target error) bool { return target == taskhub.ErrTaskFailed }
