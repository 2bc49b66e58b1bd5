// Package observability records hub lifecycle metrics through the go-utils
// metric factory. Register MetricsExtension on the runtime's extension
// registry to count dispatches, failures, scheduled instances and forced
// shutdowns.
package observability

import (
	"context"
	"time"

	gu "github.com/xraph/go-utils/metrics"

	"github.com/xraph/taskhub/ext"
	"github.com/xraph/taskhub/middleware"
	"github.com/xraph/taskhub/orchestration"
)

// Compile-time interface checks.
var (
	_ ext.Extension              = (*MetricsExtension)(nil)
	_ ext.WorkerStarted          = (*MetricsExtension)(nil)
	_ ext.ForcedShutdown         = (*MetricsExtension)(nil)
	_ ext.DispatchCompleted      = (*MetricsExtension)(nil)
	_ ext.DispatchFailed         = (*MetricsExtension)(nil)
	_ ext.OrchestrationScheduled = (*MetricsExtension)(nil)
)

// MetricsExtension counts hub lifecycle events.
type MetricsExtension struct {
	WorkersStarted          gu.Counter
	ForcedShutdowns         gu.Counter
	OrchestrationsCompleted gu.Counter
	OrchestrationsFailed    gu.Counter
	ActivitiesCompleted     gu.Counter
	ActivitiesFailed        gu.Counter
	OrchestrationsScheduled gu.Counter
}

// NewMetricsExtension creates a MetricsExtension using a default metrics collector.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithFactory(gu.NewMetricsCollector("taskhub/observability"))
}

// NewMetricsExtensionWithFactory creates a MetricsExtension with the provided
// MetricFactory. Use gu.NewMetricsCollector in tests.
func NewMetricsExtensionWithFactory(factory gu.MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		WorkersStarted:          factory.Counter("taskhub.worker.started"),
		ForcedShutdowns:         factory.Counter("taskhub.worker.forced_shutdown"),
		OrchestrationsCompleted: factory.Counter("taskhub.orchestration.completed"),
		OrchestrationsFailed:    factory.Counter("taskhub.orchestration.failed"),
		ActivitiesCompleted:     factory.Counter("taskhub.activity.completed"),
		ActivitiesFailed:        factory.Counter("taskhub.activity.failed"),
		OrchestrationsScheduled: factory.Counter("taskhub.orchestration.scheduled"),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnWorkerStarted implements ext.WorkerStarted.
func (m *MetricsExtension) OnWorkerStarted(context.Context, string) error {
	m.WorkersStarted.Inc()
	return nil
}

// OnForcedShutdown implements ext.ForcedShutdown.
func (m *MetricsExtension) OnForcedShutdown(context.Context, string, time.Duration) error {
	m.ForcedShutdowns.Inc()
	return nil
}

// OnDispatchCompleted implements ext.DispatchCompleted.
func (m *MetricsExtension) OnDispatchCompleted(_ context.Context, info middleware.Info, _ time.Duration) error {
	if info.Kind == middleware.KindActivity {
		m.ActivitiesCompleted.Inc()
	} else {
		m.OrchestrationsCompleted.Inc()
	}
	return nil
}

// OnDispatchFailed implements ext.DispatchFailed.
func (m *MetricsExtension) OnDispatchFailed(_ context.Context, info middleware.Info, _ error) error {
	if info.Kind == middleware.KindActivity {
		m.ActivitiesFailed.Inc()
	} else {
		m.OrchestrationsFailed.Inc()
	}
	return nil
}

// OnOrchestrationScheduled implements ext.OrchestrationScheduled.
func (m *MetricsExtension) OnOrchestrationScheduled(context.Context, string, string, orchestration.Instance) error {
	m.OrchestrationsScheduled.Inc()
	return nil
}
