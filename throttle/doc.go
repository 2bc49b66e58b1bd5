// Package throttle caps how fast and how many dispatches of a task may run.
//
// Limits are keyed by task name, optionally narrowed to one tenant (the
// forge org scope carried in the instance tags):
//
//	m := throttle.NewManager(
//	    throttle.Limit{Task: "SendInvoice", MaxConcurrency: 4, Rate: 10, Burst: 20},
//	)
//	m.SetTenantLimit(throttle.TenantLimit{Task: "SendInvoice", Tenant: "org_42", MaxConcurrency: 1})
//
// Mount it on a worker with middleware.ThrottleDescriptor(m). Tasks without
// a Limit run unthrottled.
package throttle
