package relayhook

import (
	"context"

	"github.com/xraph/relay"
	"github.com/xraph/relay/catalog"
)

// Lifecycle event types, used as event.Event.Type when sending via Relay.
const (
	EventWorkerStarted          = "taskhub.worker.started"
	EventWorkerStopped          = "taskhub.worker.stopped"
	EventWorkerForcedShutdown   = "taskhub.worker.forced_shutdown"
	EventDispatchCompleted      = "taskhub.dispatch.completed"
	EventDispatchFailed         = "taskhub.dispatch.failed"
	EventOrchestrationScheduled = "taskhub.orchestration.scheduled"
)

const definitionVersion = "2026-01-01"

// AllDefinitions returns webhook definitions for every taskhub event type.
func AllDefinitions() []catalog.WebhookDefinition {
	return []catalog.WebhookDefinition{
		// ── Worker events ───────────────────────────────
		{
			Name:        EventWorkerStarted,
			Description: "Fired when a worker hub starts dispatching.",
			Group:       "workers",
			Version:     definitionVersion,
		},
		{
			Name:        EventWorkerStopped,
			Description: "Fired when a worker hub stops within its deadline.",
			Group:       "workers",
			Version:     definitionVersion,
		},
		{
			Name:        EventWorkerForcedShutdown,
			Description: "Fired when a worker hub misses its stop deadline.",
			Group:       "workers",
			Version:     definitionVersion,
		},
		// ── Dispatch events ─────────────────────────────
		{
			Name:        EventDispatchCompleted,
			Description: "Fired after an orchestration or activity dispatch succeeds.",
			Group:       "dispatch",
			Version:     definitionVersion,
		},
		{
			Name:        EventDispatchFailed,
			Description: "Fired when an orchestration or activity dispatch fails.",
			Group:       "dispatch",
			Version:     definitionVersion,
		},
		// ── Client events ───────────────────────────────
		{
			Name:        EventOrchestrationScheduled,
			Description: "Fired when a client schedules a new orchestration instance.",
			Group:       "orchestrations",
			Version:     definitionVersion,
		},
	}
}

// RegisterAll registers every taskhub event type in the Relay catalog.
// Call it once at startup before sending events.
func RegisterAll(ctx context.Context, r *relay.Relay) error {
	for _, def := range AllDefinitions() {
		if _, err := r.RegisterEventType(ctx, def); err != nil {
			return err
		}
	}
	return nil
}
