package relayhook

import (
	"context"
	"time"

	"github.com/xraph/relay"
	"github.com/xraph/relay/event"

	"github.com/xraph/taskhub/ext"
	"github.com/xraph/taskhub/middleware"
	"github.com/xraph/taskhub/orchestration"
	"github.com/xraph/taskhub/scope"
)

// Compile-time interface checks.
var (
	_ ext.Extension              = (*Extension)(nil)
	_ ext.WorkerStarted          = (*Extension)(nil)
	_ ext.WorkerStopped          = (*Extension)(nil)
	_ ext.ForcedShutdown         = (*Extension)(nil)
	_ ext.DispatchCompleted      = (*Extension)(nil)
	_ ext.DispatchFailed         = (*Extension)(nil)
	_ ext.OrchestrationScheduled = (*Extension)(nil)
)

// Extension sends taskhub lifecycle events through [relay.Relay.Send].
type Extension struct {
	relay    *relay.Relay
	enabled  map[string]bool // nil = all enabled
	payloads map[string]PayloadFunc
}

// New creates an Extension that sends through r.
func New(r *relay.Relay, opts ...Option) *Extension {
	h := &Extension{relay: r}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements ext.Extension.
func (h *Extension) Name() string { return "relay-hook" }

// ── Worker hooks ────────────────────────────────────

// OnWorkerStarted implements ext.WorkerStarted.
func (h *Extension) OnWorkerStarted(ctx context.Context, hub string) error {
	return h.send(ctx, EventWorkerStarted, "", &workerPayload{Hub: hub})
}

// OnWorkerStopped implements ext.WorkerStopped.
func (h *Extension) OnWorkerStopped(ctx context.Context, hub string, elapsed time.Duration) error {
	return h.send(ctx, EventWorkerStopped, "", &workerPayload{
		Hub:       hub,
		ElapsedMs: elapsed.Milliseconds(),
	})
}

// OnForcedShutdown implements ext.ForcedShutdown.
func (h *Extension) OnForcedShutdown(ctx context.Context, hub string, waited time.Duration) error {
	return h.send(ctx, EventWorkerForcedShutdown, "", &workerPayload{
		Hub:       hub,
		ElapsedMs: waited.Milliseconds(),
	})
}

// ── Dispatch hooks ──────────────────────────────────

// OnDispatchCompleted implements ext.DispatchCompleted.
func (h *Extension) OnDispatchCompleted(ctx context.Context, info middleware.Info, elapsed time.Duration) error {
	p := newDispatchPayload(info)
	p.ElapsedMs = elapsed.Milliseconds()
	return h.send(ctx, EventDispatchCompleted, info.Tags[scope.TagOrgID], p)
}

// OnDispatchFailed implements ext.DispatchFailed.
func (h *Extension) OnDispatchFailed(ctx context.Context, info middleware.Info, dispatchErr error) error {
	p := newDispatchPayload(info)
	if dispatchErr != nil {
		p.Error = dispatchErr.Error()
	}
	return h.send(ctx, EventDispatchFailed, info.Tags[scope.TagOrgID], p)
}

// ── Client hooks ────────────────────────────────────

// OnOrchestrationScheduled implements ext.OrchestrationScheduled.
func (h *Extension) OnOrchestrationScheduled(ctx context.Context, hub, name string, inst orchestration.Instance) error {
	return h.send(ctx, EventOrchestrationScheduled, "", &scheduledPayload{
		Hub:         hub,
		Name:        name,
		InstanceID:  inst.InstanceID,
		ExecutionID: inst.ExecutionID,
	})
}

// ── Internal helpers ────────────────────────────────

// send emits an event through Relay if the event type is enabled.
func (h *Extension) send(ctx context.Context, eventType, tenantID string, defaultData any) error {
	if h.enabled != nil && !h.enabled[eventType] {
		return nil
	}

	data := defaultData
	if fn, ok := h.payloads[eventType]; ok {
		custom, err := fn(defaultData)
		if err != nil {
			return err
		}
		data = custom
	}

	return h.relay.Send(ctx, &event.Event{
		Type:     eventType,
		TenantID: tenantID,
		Data:     data,
	})
}

// ── Default payload types ───────────────────────────

type workerPayload struct {
	Hub       string `json:"hub"`
	ElapsedMs int64  `json:"elapsed_ms,omitempty"`
}

type dispatchPayload struct {
	Hub         string `json:"hub"`
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	InstanceID  string `json:"instance_id"`
	ExecutionID string `json:"execution_id,omitempty"`
	ScopeAppID  string `json:"scope_app_id,omitempty"`
	ScopeOrgID  string `json:"scope_org_id,omitempty"`
	ElapsedMs   int64  `json:"elapsed_ms,omitempty"`
	Error       string `json:"error,omitempty"`
}

func newDispatchPayload(info middleware.Info) *dispatchPayload {
	return &dispatchPayload{
		Hub:         info.Hub,
		Kind:        string(info.Kind),
		Name:        info.Name,
		Version:     info.Version,
		InstanceID:  info.InstanceID,
		ExecutionID: info.ExecutionID,
		ScopeAppID:  info.Tags[scope.TagAppID],
		ScopeOrgID:  info.Tags[scope.TagOrgID],
	}
}

type scheduledPayload struct {
	Hub         string `json:"hub"`
	Name        string `json:"name"`
	InstanceID  string `json:"instance_id"`
	ExecutionID string `json:"execution_id,omitempty"`
}
