// Package relayhook forwards taskhub lifecycle events to Relay for webhook
// delivery. Registered as an extension, it sends typed events such as
// taskhub.worker.forced_shutdown or taskhub.dispatch.failed.
//
// Usage:
//
//	r, _ := relay.New(relay.WithStore(store))
//	relayhook.RegisterAll(ctx, r)
//
//	rt := hub.New(hub.WithExtension(relayhook.New(r)))
//
// To forward only some events:
//
//	hook := relayhook.New(r,
//	    relayhook.WithEvents(
//	        relayhook.EventWorkerForcedShutdown,
//	        relayhook.EventDispatchFailed,
//	    ),
//	)
package relayhook
