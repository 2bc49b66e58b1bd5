// Package orchestration defines the contract between a worker hub and the
// orchestration engine behind it. Service is the worker-side surface: it
// provisions the backend, hands out work items and accepts their results.
// Client is the caller-side surface for scheduling and querying instances.
//
// Engines that implement both interfaces can back a worker hub and the
// client derived from it.
package orchestration

import (
	"context"
	"time"

	"github.com/xraph/taskhub/task"
)

// Service is the worker-side engine surface.
type Service interface {
	// CreateIfNotExists provisions backing resources. It is idempotent.
	CreateIfNotExists(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	// FetchOrchestrationWorkItem blocks until an orchestration is ready or
	// ctx is done, in which case it returns ctx.Err(). It returns a non-nil
	// item or an error; a (nil, nil) return is treated as an empty poll and
	// backed off like a failed fetch.
	FetchOrchestrationWorkItem(ctx context.Context) (*OrchestrationWorkItem, error)
	CompleteOrchestrationWorkItem(ctx context.Context, item *OrchestrationWorkItem, result *OrchestrationResult) error

	// FetchActivityWorkItem blocks until an activity is ready or ctx is done.
	// The same non-nil-or-error contract applies.
	FetchActivityWorkItem(ctx context.Context) (*ActivityWorkItem, error)
	CompleteActivityWorkItem(ctx context.Context, item *ActivityWorkItem, result *ActivityResult) error
}

// Client is the caller-side engine surface.
type Client interface {
	StartOrchestration(ctx context.Context, req StartRequest) (Instance, error)

	// WaitForOrchestration blocks until the instance reaches a terminal
	// status, the timeout elapses or ctx is done. A non-positive timeout
	// waits on ctx alone.
	WaitForOrchestration(ctx context.Context, inst Instance, timeout time.Duration) (*State, error)

	GetOrchestrationState(ctx context.Context, instanceID string) (*State, error)
}

// Instance identifies one execution of an orchestration instance.
type Instance struct {
	InstanceID  string `json:"instance_id"`
	ExecutionID string `json:"execution_id"`
}

// StartRequest schedules a new orchestration instance. An empty InstanceID
// asks the engine to mint one.
type StartRequest struct {
	Name       string
	Version    string
	InstanceID string
	Input      []byte
	Tags       map[string]string
}

// OrchestrationWorkItem is an orchestration ready to run. Context is the
// engine's runtime handle for the instance.
type OrchestrationWorkItem struct {
	LockToken string
	Instance  Instance
	Name      string
	Version   string
	Input     []byte
	Tags      map[string]string
	Context   task.OrchestrationContext
}

// ActivityWorkItem is an activity ready to run.
type ActivityWorkItem struct {
	LockToken string
	Instance  Instance
	Name      string
	Version   string
	Input     []byte
	Tags      map[string]string
}

// OrchestrationResult reports how an orchestration dispatch ended.
type OrchestrationResult struct {
	Status  Status
	Output  []byte
	Failure *task.FailureDetails
}

// ActivityResult reports how an activity dispatch ended. On failure the
// worker sets either Failure or Reason and Details, depending on its error
// propagation mode.
type ActivityResult struct {
	Output  []byte
	Failure *task.FailureDetails
	Reason  string
	Details string
}

// Failed reports whether the activity failed.
func (r *ActivityResult) Failed() bool { return r.Failure != nil || r.Reason != "" }
