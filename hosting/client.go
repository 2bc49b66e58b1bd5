package hosting

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/xraph/taskhub/ext"
	"github.com/xraph/taskhub/orchestration"
	"github.com/xraph/taskhub/scope"
)

// Compile-time interface check.
var _ Client = (*HubClient)(nil)

// HubClient is the default client target. Orchestrations it schedules carry
// the caller's forge scope in their tags.
type HubClient struct {
	name       string
	client     orchestration.Client
	logger     *slog.Logger
	extensions *ext.Registry
}

// Init implements Client.
func (c *HubClient) Init(b ClientBinding) error {
	if b.Client == nil {
		return fmt.Errorf("hosting: hub %q: client binding has no engine client", b.Name)
	}
	b.defaults()
	c.name = b.Name
	c.client = b.Client
	c.logger = b.Logger
	c.extensions = b.Extensions
	return nil
}

// Name implements Client.
func (c *HubClient) Name() string { return c.name }

// Engine returns the engine client.
func (c *HubClient) Engine() orchestration.Client { return c.client }

// StartOrchestration schedules req on the engine.
func (c *HubClient) StartOrchestration(ctx context.Context, req orchestration.StartRequest) (orchestration.Instance, error) {
	req.Tags = scope.CaptureTags(ctx, req.Tags)
	inst, err := c.client.StartOrchestration(ctx, req)
	if err != nil {
		return orchestration.Instance{}, fmt.Errorf("hub %q: start orchestration %q: %w", c.name, req.Name, err)
	}
	c.logger.Debug("orchestration scheduled",
		slog.String("hub", c.name),
		slog.String("orchestration", req.Name),
		slog.String("instance_id", inst.InstanceID),
	)
	c.extensions.EmitOrchestrationScheduled(ctx, c.name, req.Name, inst)
	return inst, nil
}

// ScheduleOption configures Schedule.
type ScheduleOption func(*orchestration.StartRequest)

// WithInstanceID sets the instance ID instead of letting the engine mint
// one.
func WithInstanceID(id string) ScheduleOption {
	return func(r *orchestration.StartRequest) { r.InstanceID = id }
}

// WithVersion selects an orchestration version.
func WithVersion(v string) ScheduleOption {
	return func(r *orchestration.StartRequest) { r.Version = v }
}

// WithTags adds tags to the instance.
func WithTags(tags map[string]string) ScheduleOption {
	return func(r *orchestration.StartRequest) {
		if r.Tags == nil {
			r.Tags = make(map[string]string, len(tags))
		}
		maps.Copy(r.Tags, tags)
	}
}

// Schedule JSON-encodes input and starts the named orchestration.
func (c *HubClient) Schedule(ctx context.Context, name string, input any, opts ...ScheduleOption) (orchestration.Instance, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return orchestration.Instance{}, fmt.Errorf("marshal input for orchestration %q: %w", name, err)
	}
	req := orchestration.StartRequest{Name: name, Input: payload}
	for _, opt := range opts {
		opt(&req)
	}
	return c.StartOrchestration(ctx, req)
}

// WaitForOrchestration blocks until the instance finishes, timeout elapses
// or ctx is done.
func (c *HubClient) WaitForOrchestration(ctx context.Context, inst orchestration.Instance, timeout time.Duration) (*orchestration.State, error) {
	return c.client.WaitForOrchestration(ctx, inst, timeout)
}

// GetOrchestrationState returns the current state of an instance.
func (c *HubClient) GetOrchestrationState(ctx context.Context, instanceID string) (*orchestration.State, error) {
	return c.client.GetOrchestrationState(ctx, instanceID)
}

// Output decodes the output of a completed instance into Out.
func Output[Out any](st *orchestration.State) (Out, error) {
	var out Out
	if st == nil || len(st.Output) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(st.Output, &out); err != nil {
		return out, fmt.Errorf("unmarshal output of instance %q: %w", st.InstanceID, err)
	}
	return out, nil
}
