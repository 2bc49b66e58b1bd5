package orchestration

import (
	"maps"
	"slices"
	"time"

	"github.com/xraph/taskhub/task"
)

// Status is the lifecycle status of an orchestration instance.
type Status string

const (
	StatusPending    Status = "pending"
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusTerminated Status = "terminated"
)

// IsTerminal reports whether the instance will not run again.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTerminated:
		return true
	default:
		return false
	}
}

// State is a snapshot of an orchestration instance.
type State struct {
	Instance
	Name          string               `json:"name"`
	Version       string               `json:"version,omitempty"`
	Status        Status               `json:"status"`
	Input         []byte               `json:"input,omitempty"`
	Output        []byte               `json:"output,omitempty"`
	Failure       *task.FailureDetails `json:"failure,omitempty"`
	Tags          map[string]string    `json:"tags,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	LastUpdatedAt time.Time            `json:"last_updated_at"`
	CompletedAt   *time.Time           `json:"completed_at,omitempty"`
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Input = slices.Clone(s.Input)
	cp.Output = slices.Clone(s.Output)
	cp.Tags = maps.Clone(s.Tags)
	if s.Failure != nil {
		f := *s.Failure
		cp.Failure = &f
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
