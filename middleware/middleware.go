package middleware

import (
	"context"
)

// Kind distinguishes the two dispatch pipelines.
type Kind string

const (
	KindOrchestration Kind = "orchestration"
	KindActivity      Kind = "activity"
)

// Info describes the work item being dispatched.
type Info struct {
	Hub         string
	Kind        Kind
	Name        string
	Version     string
	InstanceID  string
	ExecutionID string
	Tags        map[string]string
}

// Handler is the terminal function that runs the task.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic. It MUST call next to
// continue the chain unless it intends to short-circuit the dispatch.
type Middleware func(ctx context.Context, dc *DispatchContext, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// The first middleware in the list is the outermost wrapper.
//
//	Chain(a, b)(ctx, dc, h) runs a → b → h
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, dc *DispatchContext, next Handler) error {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, dc, prev)
			}
		}
		return h(ctx)
	}
}
