// Package ext defines the extension system for task hubs.
//
// Extensions are notified of lifecycle events and can react to them by
// recording metrics, writing audit logs and so on. Each lifecycle hook is
// a separate interface so extensions opt in only to the events they care
// about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	func (e *MyExtension) OnDispatchCompleted(ctx context.Context, info middleware.Info, elapsed time.Duration) error {
//	    log.Printf("%s %s completed in %s", info.Kind, info.Name, elapsed)
//	    return nil
//	}
//
// # Worker Hooks
//
//   - [WorkerStarted] the worker hub began dispatching
//   - [WorkerStopped] the worker hub stopped within its deadline
//   - [ForcedShutdown] the stop deadline passed before the worker stopped
//
// # Dispatch Hooks
//
//   - [DispatchStarted] a work item entered its pipeline
//   - [DispatchCompleted] the pipeline returned without error
//   - [DispatchFailed] the pipeline returned an error
//
// # Other Hooks
//
//   - [OrchestrationScheduled] a client hub started an instance
//   - [Shutdown] the runtime is shutting down
//
// Hook errors are logged and never propagated.
package ext
