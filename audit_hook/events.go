package audithook

// Actions recorded by the extension.
const (
	ActionWorkerStarted         = "taskhub.worker.started"
	ActionWorkerStopped         = "taskhub.worker.stopped"
	ActionWorkerForcedStop      = "taskhub.worker.forced_shutdown"
	ActionDispatchStarted       = "taskhub.dispatch.started"
	ActionDispatchCompleted     = "taskhub.dispatch.completed"
	ActionDispatchFailed        = "taskhub.dispatch.failed"
	ActionOrchestrationSchedule = "taskhub.orchestration.scheduled"
	ActionRuntimeShutdown       = "taskhub.runtime.shutdown"
)

// Categories group actions for filtering on the backend.
const (
	CategoryLifecycle = "lifecycle"
	CategoryDispatch  = "dispatch"
	CategoryClient    = "client"
)

// Subjects name the kind of thing an entry is about.
const (
	SubjectHub           = "hub"
	SubjectOrchestration = "orchestration"
	SubjectActivity      = "activity"
	SubjectRuntime       = "runtime"
)

// AllActions lists every action the extension can emit.
var AllActions = []string{
	ActionWorkerStarted,
	ActionWorkerStopped,
	ActionWorkerForcedStop,
	ActionDispatchStarted,
	ActionDispatchCompleted,
	ActionDispatchFailed,
	ActionOrchestrationSchedule,
	ActionRuntimeShutdown,
}
