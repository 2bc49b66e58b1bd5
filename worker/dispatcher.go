package worker

import (
	"sync/atomic"

	"github.com/xraph/taskhub/middleware"
)

// Dispatcher holds the runtime settings of one dispatch pipeline.
type Dispatcher struct {
	kind           middleware.Kind
	includeDetails atomic.Bool
}

// Kind returns the pipeline this dispatcher serves.
func (d *Dispatcher) Kind() middleware.Kind { return d.kind }

// IncludeDetails reports whether failure results carry the full error chain.
func (d *Dispatcher) IncludeDetails() bool { return d.includeDetails.Load() }

// SetIncludeDetails toggles the full error chain on failure results.
func (d *Dispatcher) SetIncludeDetails(v bool) { d.includeDetails.Store(v) }
