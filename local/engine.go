// Package local is an in-process orchestration engine. It implements both
// orchestration.Service and orchestration.Client over channels, runs each
// orchestration to completion on the worker that fetched it, and keeps
// instance state in a pluggable StateStore.
//
// The engine does not record or replay history: an orchestration that is
// interrupted is not resumed. Use it for development, tests and
// single-process deployments.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/xraph/taskhub"
	"github.com/xraph/taskhub/id"
	"github.com/xraph/taskhub/orchestration"
	"github.com/xraph/taskhub/task"
)

// Compile-time interface checks.
var (
	_ orchestration.Service = (*Engine)(nil)
	_ orchestration.Client  = (*Engine)(nil)
)

// Option configures an Engine.
type Option func(*Engine)

// WithStateStore sets the instance state store. The default is a MemoryStore.
func WithStateStore(s StateStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithQueueSize sets the capacity of the work item queues.
func WithQueueSize(n int) Option {
	return func(e *Engine) { e.queueSize = max(n, 1) }
}

// WithStopDelay makes Stop take d regardless of its context, simulating a
// backend with a slow shutdown.
func WithStopDelay(d time.Duration) Option {
	return func(e *Engine) { e.stopDelay = d }
}

// Engine is the in-process orchestration engine.
type Engine struct {
	store     StateStore
	logger    *slog.Logger
	queueSize int
	stopDelay time.Duration

	orchQ chan *orchestration.OrchestrationWorkItem
	actQ  chan *orchestration.ActivityWorkItem

	mu          sync.Mutex
	started     bool
	provisioned bool
	pending     map[string]chan *orchestration.ActivityResult
	waiters     map[string][]chan struct{}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		store:     NewMemoryStore(),
		logger:    slog.Default(),
		queueSize: 1024,
		pending:   make(map[string]chan *orchestration.ActivityResult),
		waiters:   make(map[string][]chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.orchQ = make(chan *orchestration.OrchestrationWorkItem, e.queueSize)
	e.actQ = make(chan *orchestration.ActivityWorkItem, e.queueSize)
	return e
}

// Provisioned reports whether CreateIfNotExists has run.
func (e *Engine) Provisioned() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.provisioned
}

// Started reports whether the engine is started.
func (e *Engine) Started() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

// ──────────────────────────────────────────────────
// orchestration.Service
// ──────────────────────────────────────────────────

// CreateIfNotExists checks the state store and marks the engine provisioned.
func (e *Engine) CreateIfNotExists(ctx context.Context) error {
	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("local: ping state store: %w", err)
	}
	e.mu.Lock()
	e.provisioned = true
	e.mu.Unlock()
	return nil
}

// Start marks the engine ready to hand out work items.
func (e *Engine) Start(context.Context) error {
	e.mu.Lock()
	e.started = true
	e.mu.Unlock()
	return nil
}

// Stop stops handing out work items. Queued items stay queued.
func (e *Engine) Stop(context.Context) error {
	if e.stopDelay > 0 {
		time.Sleep(e.stopDelay)
	}
	e.mu.Lock()
	e.started = false
	e.mu.Unlock()
	return nil
}

// FetchOrchestrationWorkItem implements orchestration.Service.
func (e *Engine) FetchOrchestrationWorkItem(ctx context.Context) (*orchestration.OrchestrationWorkItem, error) {
	if !e.Started() {
		return nil, taskhub.ErrServiceNotStarted
	}
	select {
	case item := <-e.orchQ:
		if err := e.update(ctx, item.Instance.InstanceID, func(st *orchestration.State) {
			st.Status = orchestration.StatusRunning
		}); err != nil {
			e.logger.Warn("mark orchestration running failed",
				slog.String("instance_id", item.Instance.InstanceID),
				slog.String("error", err.Error()),
			)
		}
		return item, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CompleteOrchestrationWorkItem records the final status and wakes waiters.
func (e *Engine) CompleteOrchestrationWorkItem(ctx context.Context, item *orchestration.OrchestrationWorkItem, result *orchestration.OrchestrationResult) error {
	err := e.update(ctx, item.Instance.InstanceID, func(st *orchestration.State) {
		now := time.Now().UTC()
		st.Status = result.Status
		st.Output = result.Output
		st.Failure = result.Failure
		st.CompletedAt = &now
	})
	e.notify(item.Instance.InstanceID)
	if err != nil {
		return fmt.Errorf("local: complete orchestration %q: %w", item.Instance.InstanceID, err)
	}
	return nil
}

// FetchActivityWorkItem implements orchestration.Service.
func (e *Engine) FetchActivityWorkItem(ctx context.Context) (*orchestration.ActivityWorkItem, error) {
	if !e.Started() {
		return nil, taskhub.ErrServiceNotStarted
	}
	select {
	case item := <-e.actQ:
		return item, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CompleteActivityWorkItem hands the result to the waiting orchestration.
// Results for orchestrations that stopped waiting are dropped.
func (e *Engine) CompleteActivityWorkItem(_ context.Context, item *orchestration.ActivityWorkItem, result *orchestration.ActivityResult) error {
	e.mu.Lock()
	ch, ok := e.pending[item.LockToken]
	e.mu.Unlock()
	if !ok {
		e.logger.Debug("dropping activity result with no waiter",
			slog.String("instance_id", item.Instance.InstanceID),
			slog.String("activity", item.Name),
		)
		return nil
	}
	select {
	case ch <- result:
	default:
	}
	return nil
}

// ──────────────────────────────────────────────────
// orchestration.Client
// ──────────────────────────────────────────────────

// StartOrchestration records a pending instance and queues it.
func (e *Engine) StartOrchestration(ctx context.Context, req orchestration.StartRequest) (orchestration.Instance, error) {
	if req.Name == "" {
		return orchestration.Instance{}, errors.New("local: orchestration name is required")
	}
	instanceID := req.InstanceID
	if instanceID == "" {
		instanceID = id.NewInstanceID().String()
	}

	existing, err := e.store.GetState(ctx, instanceID)
	switch {
	case err == nil && !existing.Status.IsTerminal():
		return orchestration.Instance{}, fmt.Errorf("%w: %s", taskhub.ErrInstanceExists, instanceID)
	case err != nil && !errors.Is(err, taskhub.ErrInstanceNotFound):
		return orchestration.Instance{}, fmt.Errorf("local: load instance %q: %w", instanceID, err)
	}

	inst := orchestration.Instance{InstanceID: instanceID, ExecutionID: id.NewExecutionID().String()}
	now := time.Now().UTC()
	st := &orchestration.State{
		Instance:      inst,
		Name:          req.Name,
		Version:       req.Version,
		Status:        orchestration.StatusPending,
		Input:         req.Input,
		Tags:          req.Tags,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	if err := e.store.SaveState(ctx, st); err != nil {
		return orchestration.Instance{}, fmt.Errorf("local: save instance %q: %w", instanceID, err)
	}

	item := &orchestration.OrchestrationWorkItem{
		LockToken: id.NewWorkItemID().String(),
		Instance:  inst,
		Name:      req.Name,
		Version:   req.Version,
		Input:     req.Input,
		Tags:      req.Tags,
	}
	item.Context = &orchestrationContext{engine: e, item: item}

	select {
	case e.orchQ <- item:
		return inst, nil
	case <-ctx.Done():
		return orchestration.Instance{}, ctx.Err()
	}
}

// WaitForOrchestration implements orchestration.Client.
func (e *Engine) WaitForOrchestration(ctx context.Context, inst orchestration.Instance, timeout time.Duration) (*orchestration.State, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for {
		ch := e.watch(inst.InstanceID)
		st, err := e.store.GetState(ctx, inst.InstanceID)
		if err != nil {
			e.unwatch(inst.InstanceID, ch)
			return nil, err
		}
		if st.Status.IsTerminal() && (inst.ExecutionID == "" || st.ExecutionID == inst.ExecutionID) {
			e.unwatch(inst.InstanceID, ch)
			return st, nil
		}

		select {
		case <-ch:
		case <-ctx.Done():
			e.unwatch(inst.InstanceID, ch)
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return st, fmt.Errorf("%w: %s", taskhub.ErrWaitTimeout, inst.InstanceID)
			}
			return st, ctx.Err()
		}
	}
}

// GetOrchestrationState implements orchestration.Client.
func (e *Engine) GetOrchestrationState(ctx context.Context, instanceID string) (*orchestration.State, error) {
	return e.store.GetState(ctx, instanceID)
}

// ──────────────────────────────────────────────────
// Internals
// ──────────────────────────────────────────────────

func (e *Engine) update(ctx context.Context, instanceID string, fn func(*orchestration.State)) error {
	st, err := e.store.GetState(ctx, instanceID)
	if err != nil {
		return err
	}
	fn(st)
	st.LastUpdatedAt = time.Now().UTC()
	return e.store.SaveState(ctx, st)
}

func (e *Engine) watch(instanceID string) chan struct{} {
	ch := make(chan struct{})
	e.mu.Lock()
	e.waiters[instanceID] = append(e.waiters[instanceID], ch)
	e.mu.Unlock()
	return ch
}

func (e *Engine) unwatch(instanceID string, ch chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ws := slices.DeleteFunc(e.waiters[instanceID], func(c chan struct{}) bool { return c == ch })
	if len(ws) == 0 {
		delete(e.waiters, instanceID)
		return
	}
	e.waiters[instanceID] = ws
}

func (e *Engine) notify(instanceID string) {
	e.mu.Lock()
	ws := e.waiters[instanceID]
	delete(e.waiters, instanceID)
	e.mu.Unlock()
	for _, ch := range ws {
		close(ch)
	}
}

// orchestrationContext is the runtime handle given to orchestrations.
type orchestrationContext struct {
	engine *Engine
	item   *orchestration.OrchestrationWorkItem
}

func (c *orchestrationContext) InstanceID() string      { return c.item.Instance.InstanceID }
func (c *orchestrationContext) ExecutionID() string     { return c.item.Instance.ExecutionID }
func (c *orchestrationContext) Name() string            { return c.item.Name }
func (c *orchestrationContext) Version() string         { return c.item.Version }
func (c *orchestrationContext) Tags() map[string]string { return c.item.Tags }
func (c *orchestrationContext) IsReplaying() bool       { return false }

// CallActivity queues the activity and blocks until its result arrives.
func (c *orchestrationContext) CallActivity(ctx context.Context, name, version string, input []byte) ([]byte, error) {
	e := c.engine
	item := &orchestration.ActivityWorkItem{
		LockToken: id.NewWorkItemID().String(),
		Instance:  c.item.Instance,
		Name:      name,
		Version:   version,
		Input:     input,
		Tags:      c.item.Tags,
	}
	ch := make(chan *orchestration.ActivityResult, 1)
	e.mu.Lock()
	e.pending[item.LockToken] = ch
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.pending, item.LockToken)
		e.mu.Unlock()
	}()

	select {
	case e.actQ <- item:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-ch:
		switch {
		case res.Failure != nil:
			return nil, &task.FailedError{TaskName: name, Failure: *res.Failure}
		case res.Reason != "":
			if res.Details != "" {
				return nil, fmt.Errorf("%w: activity %q: %s\n%s", taskhub.ErrTaskFailed, name, res.Reason, res.Details)
			}
			return nil, fmt.Errorf("%w: activity %q: %s", taskhub.ErrTaskFailed, name, res.Reason)
		}
		return res.Output, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
