// Package audithook records task hub lifecycle events as audit entries.
//
// The extension forwards worker, dispatch and scheduling events to a
// [Recorder] supplied by the caller. It carries no storage of its own;
// bridge it to whatever trail the application keeps:
//
//	rec := audithook.RecorderFunc(func(ctx context.Context, e *audithook.Entry) error {
//	    return trail.Append(ctx, e.Action, e.Subject, e.Metadata)
//	})
//	rt := hub.New(hub.WithExtension(audithook.New(rec,
//	    audithook.WithActions(audithook.ActionDispatchFailed, audithook.ActionWorkerForcedStop),
//	)))
//
// Recorder errors are logged and swallowed so an unavailable audit backend
// never fails a dispatch.
package audithook
