package audithook

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/xraph/taskhub/ext"
	"github.com/xraph/taskhub/middleware"
	"github.com/xraph/taskhub/orchestration"
)

// Compile-time interface checks.
var (
	_ ext.Extension              = (*Extension)(nil)
	_ ext.WorkerStarted          = (*Extension)(nil)
	_ ext.WorkerStopped          = (*Extension)(nil)
	_ ext.ForcedShutdown         = (*Extension)(nil)
	_ ext.DispatchStarted        = (*Extension)(nil)
	_ ext.DispatchCompleted      = (*Extension)(nil)
	_ ext.DispatchFailed         = (*Extension)(nil)
	_ ext.OrchestrationScheduled = (*Extension)(nil)
	_ ext.Shutdown               = (*Extension)(nil)
)

// Recorder persists audit entries.
type Recorder interface {
	Record(ctx context.Context, e *Entry) error
}

// RecorderFunc adapts a plain function to [Recorder].
type RecorderFunc func(ctx context.Context, e *Entry) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, e *Entry) error { return f(ctx, e) }

// Severity levels.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Entry is one audit record.
type Entry struct {
	Action    string         `json:"action"`
	Category  string         `json:"category"`
	Subject   string         `json:"subject"`
	SubjectID string         `json:"subject_id,omitempty"`
	Hub       string         `json:"hub"`
	Outcome   string         `json:"outcome"`
	Severity  string         `json:"severity"`
	Reason    string         `json:"reason,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	At        time.Time      `json:"at"`
}

// Extension turns lifecycle hooks into audit entries.
type Extension struct {
	recorder Recorder
	enabled  map[string]struct{}
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Extension that records through r.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Worker hooks
// ──────────────────────────────────────────────────

// OnWorkerStarted implements ext.WorkerStarted.
func (e *Extension) OnWorkerStarted(ctx context.Context, hub string) error {
	e.record(ctx, &Entry{
		Action:   ActionWorkerStarted,
		Category: CategoryLifecycle,
		Subject:  SubjectHub,
		Hub:      hub,
		Outcome:  OutcomeSuccess,
		Severity: SeverityInfo,
	})
	return nil
}

// OnWorkerStopped implements ext.WorkerStopped.
func (e *Extension) OnWorkerStopped(ctx context.Context, hub string, elapsed time.Duration) error {
	e.record(ctx, &Entry{
		Action:   ActionWorkerStopped,
		Category: CategoryLifecycle,
		Subject:  SubjectHub,
		Hub:      hub,
		Outcome:  OutcomeSuccess,
		Severity: SeverityInfo,
		Metadata: map[string]any{"elapsed_ms": elapsed.Milliseconds()},
	})
	return nil
}

// OnForcedShutdown implements ext.ForcedShutdown.
func (e *Extension) OnForcedShutdown(ctx context.Context, hub string, waited time.Duration) error {
	e.record(ctx, &Entry{
		Action:   ActionWorkerForcedStop,
		Category: CategoryLifecycle,
		Subject:  SubjectHub,
		Hub:      hub,
		Outcome:  OutcomeFailure,
		Severity: SeverityWarning,
		Reason:   "stop deadline exceeded",
		Metadata: map[string]any{"waited_ms": waited.Milliseconds()},
	})
	return nil
}

// ──────────────────────────────────────────────────
// Dispatch hooks
// ──────────────────────────────────────────────────

// OnDispatchStarted implements ext.DispatchStarted.
func (e *Extension) OnDispatchStarted(ctx context.Context, info middleware.Info) error {
	e.record(ctx, dispatchEntry(ActionDispatchStarted, info, OutcomeSuccess, SeverityInfo))
	return nil
}

// OnDispatchCompleted implements ext.DispatchCompleted.
func (e *Extension) OnDispatchCompleted(ctx context.Context, info middleware.Info, elapsed time.Duration) error {
	en := dispatchEntry(ActionDispatchCompleted, info, OutcomeSuccess, SeverityInfo)
	en.Metadata["elapsed_ms"] = elapsed.Milliseconds()
	e.record(ctx, en)
	return nil
}

// OnDispatchFailed implements ext.DispatchFailed.
func (e *Extension) OnDispatchFailed(ctx context.Context, info middleware.Info, dispatchErr error) error {
	sev := SeverityWarning
	if info.Kind == middleware.KindOrchestration {
		sev = SeverityCritical
	}
	en := dispatchEntry(ActionDispatchFailed, info, OutcomeFailure, sev)
	if dispatchErr != nil {
		en.Reason = dispatchErr.Error()
	}
	e.record(ctx, en)
	return nil
}

// ──────────────────────────────────────────────────
// Other hooks
// ──────────────────────────────────────────────────

// OnOrchestrationScheduled implements ext.OrchestrationScheduled.
func (e *Extension) OnOrchestrationScheduled(ctx context.Context, hub, name string, inst orchestration.Instance) error {
	e.record(ctx, &Entry{
		Action:    ActionOrchestrationSchedule,
		Category:  CategoryClient,
		Subject:   SubjectOrchestration,
		SubjectID: inst.InstanceID,
		Hub:       hub,
		Outcome:   OutcomeSuccess,
		Severity:  SeverityInfo,
		Metadata: map[string]any{
			"name":         name,
			"execution_id": inst.ExecutionID,
		},
	})
	return nil
}

// OnShutdown implements ext.Shutdown.
func (e *Extension) OnShutdown(ctx context.Context) error {
	e.record(ctx, &Entry{
		Action:   ActionRuntimeShutdown,
		Category: CategoryLifecycle,
		Subject:  SubjectRuntime,
		Outcome:  OutcomeSuccess,
		Severity: SeverityInfo,
	})
	return nil
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func dispatchEntry(action string, info middleware.Info, outcome, severity string) *Entry {
	subject := SubjectActivity
	if info.Kind == middleware.KindOrchestration {
		subject = SubjectOrchestration
	}
	meta := map[string]any{
		"name":         info.Name,
		"execution_id": info.ExecutionID,
	}
	if info.Version != "" {
		meta["version"] = info.Version
	}
	if len(info.Tags) > 0 {
		meta["tags"] = maps.Clone(info.Tags)
	}
	return &Entry{
		Action:    action,
		Category:  CategoryDispatch,
		Subject:   subject,
		SubjectID: info.InstanceID,
		Hub:       info.Hub,
		Outcome:   outcome,
		Severity:  severity,
		Metadata:  meta,
	}
}

func (e *Extension) record(ctx context.Context, en *Entry) {
	if e.enabled != nil {
		if _, ok := e.enabled[en.Action]; !ok {
			return
		}
	}
	en.At = e.now().UTC()
	if err := e.recorder.Record(ctx, en); err != nil {
		e.logger.Warn("audit_hook: failed to record audit entry",
			slog.String("action", en.Action),
			slog.String("hub", en.Hub),
			slog.String("error", err.Error()),
		)
	}
}
