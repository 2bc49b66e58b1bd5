// Package taskhub hosts durable workflow workers and clients inside a Go
// process. It is the front-end to an orchestration engine: hubs are declared
// by name, configured through builders, and materialised once the process is
// wired.
//
// A hub is either a worker (it pulls orchestration and activity work items
// from an engine and dispatches them through middleware pipelines) or a
// client (it schedules and queries orchestration instances). Names are case
// sensitive; the empty name is the default hub.
//
// # Quick Start
//
//	rt := hub.New(hub.WithLogger(logger))
//	_, err := rt.ConfigureWorker(taskhub.DefaultName, func(b *builder.WorkerBuilder) error {
//	    b.WithOrchestrationService(local.New())
//	    b.AddOrchestration(task.OrchestrationOf[*PlaceOrder]())
//	    b.AddActivity(task.ActivityOf[*ChargeCard]())
//	    b.AddClient()
//	    return nil
//	})
//	err = rt.Build(ctx)
//	err = rt.Start(ctx)
//
//	c, err := rt.Clients().GetClient()
//
// # Architecture
//
// Every dispatch runs inside a resolution scope opened by the scope boundary
// middleware, which always sits at the head of both pipelines. Builders are
// collected in named registries and built after configuration finishes, so
// a hub configured from several places is built exactly once.
//
// The root package holds configuration, error values and the name sentinel.
// Subsystems live in their own packages and the hub package wires them.
package taskhub
