package hosting_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/taskhub"
	"github.com/xraph/taskhub/ext"
	"github.com/xraph/taskhub/hosting"
	"github.com/xraph/taskhub/local"
	"github.com/xraph/taskhub/orchestration"
	"github.com/xraph/taskhub/scope"
	"github.com/xraph/taskhub/task"
	"github.com/xraph/taskhub/worker"
)

type recordingExt struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingExt) Name() string { return "recording" }

func (r *recordingExt) add(ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingExt) has(ev string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == ev {
			return true
		}
	}
	return false
}

func (r *recordingExt) OnWorkerStarted(context.Context, string) error {
	r.add("started")
	return nil
}

func (r *recordingExt) OnWorkerStopped(context.Context, string, time.Duration) error {
	r.add("stopped")
	return nil
}

func (r *recordingExt) OnForcedShutdown(context.Context, string, time.Duration) error {
	r.add("forced")
	return nil
}

func (r *recordingExt) OnOrchestrationScheduled(context.Context, string, string, orchestration.Instance) error {
	r.add("scheduled")
	return nil
}

func newHubWorker(t *testing.T, e *local.Engine, cfg taskhub.Config, logger *slog.Logger, rec *recordingExt) *hosting.HubWorker {
	t.Helper()
	exts := ext.NewRegistry(logger)
	exts.Register(rec)
	hw := &hosting.HubWorker{}
	err := hw.Init(hosting.WorkerBinding{
		Name:       "orders",
		Worker:     worker.New(e, worker.WithName("orders"), worker.WithLogger(logger)),
		Logger:     logger,
		Config:     cfg,
		Extensions: exts,
	})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return hw
}

func TestHubWorkerInitRequiresWorker(t *testing.T) {
	if err := (&hosting.HubWorker{}).Init(hosting.WorkerBinding{Name: "x"}); err == nil {
		t.Fatal("expected error for binding without a worker")
	}
}

func TestHubWorkerStartAppliesConfig(t *testing.T) {
	e := local.New()
	cfg := taskhub.DefaultConfig()
	cfg.CreateIfNotExists = true
	cfg.IncludeDetails = taskhub.IncludeActivities
	cfg.ErrorPropagationMode = taskhub.PropagateFailureDetails

	rec := &recordingExt{}
	hw := newHubWorker(t, e, cfg, slog.Default(), rec)
	ctx := context.Background()

	if err := hw.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = hw.Stop(ctx) }()

	if !e.Provisioned() {
		t.Fatal("CreateIfNotExists was not called")
	}
	w := hw.Worker()
	if w.OrchestrationDispatcher().IncludeDetails() {
		t.Fatal("orchestration details should be excluded")
	}
	if !w.ActivityDispatcher().IncludeDetails() {
		t.Fatal("activity details should be included")
	}
	if w.ErrorPropagationMode() != taskhub.PropagateFailureDetails {
		t.Fatalf("mode = %v", w.ErrorPropagationMode())
	}
	if !rec.has("started") {
		t.Fatal("WorkerStarted hook not emitted")
	}
}

func TestHubWorkerSkipsProvisioningByDefault(t *testing.T) {
	e := local.New()
	hw := newHubWorker(t, e, taskhub.DefaultConfig(), slog.Default(), &recordingExt{})
	ctx := context.Background()
	if err := hw.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = hw.Stop(ctx) }()
	if e.Provisioned() {
		t.Fatal("CreateIfNotExists should not run when disabled")
	}
}

func TestHubWorkerGracefulStop(t *testing.T) {
	e := local.New()
	rec := &recordingExt{}
	hw := newHubWorker(t, e, taskhub.DefaultConfig(), slog.Default(), rec)
	ctx := context.Background()

	if err := hw.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := hw.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if hw.ForcedShutdown() {
		t.Fatal("graceful stop reported as forced")
	}
	if !rec.has("stopped") {
		t.Fatal("WorkerStopped hook not emitted")
	}
}

func TestHubWorkerForcedShutdown(t *testing.T) {
	e := local.New(local.WithStopDelay(5 * time.Second))
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))
	rec := &recordingExt{}
	hw := newHubWorker(t, e, taskhub.DefaultConfig(), logger, rec)

	if err := hw.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := hw.Stop(ctx)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("forced shutdown should not be an error, got %v", err)
	}
	if elapsed > time.Second {
		t.Fatalf("Stop blocked for %v, want about 100ms", elapsed)
	}
	if !hw.ForcedShutdown() {
		t.Fatal("expected forced shutdown indication")
	}
	if !rec.has("forced") {
		t.Fatal("ForcedShutdown hook not emitted")
	}
	if !strings.Contains(logs.String(), "level=WARN") || !strings.Contains(logs.String(), "forced shutdown") {
		t.Fatalf("expected warning log, got %q", logs.String())
	}
}

// deadlineEngine is an engine whose Stop returns ctx.Err() when ctx ends
// before its own shutdown completes.
type deadlineEngine struct {
	*local.Engine
}

func (e deadlineEngine) Stop(ctx context.Context) error {
	select {
	case <-time.After(5 * time.Second):
		return e.Engine.Stop(ctx)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestHubWorkerForcedShutdownWithContextAwareEngine(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for i := range 50 {
		rec := &recordingExt{}
		exts := ext.NewRegistry(logger)
		exts.Register(rec)
		hw := &hosting.HubWorker{}
		err := hw.Init(hosting.WorkerBinding{
			Name:       "orders",
			Worker:     worker.New(deadlineEngine{local.New()}, worker.WithName("orders"), worker.WithLogger(logger)),
			Logger:     logger,
			Config:     taskhub.DefaultConfig(),
			Extensions: exts,
		})
		if err != nil {
			t.Fatalf("Init: %v", err)
		}
		if err := hw.Start(context.Background()); err != nil {
			t.Fatal(err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		err = hw.Stop(ctx)
		cancel()

		if err != nil {
			t.Fatalf("iteration %d: Stop = %v, want nil", i, err)
		}
		if !hw.ForcedShutdown() || !rec.has("forced") {
			t.Fatalf("iteration %d: expected forced shutdown", i)
		}
	}
}

func TestHubWorkerStartBeforeInit(t *testing.T) {
	var hw hosting.HubWorker
	if err := hw.Start(context.Background()); err == nil {
		t.Fatal("expected error starting an uninitialised worker")
	}
	if err := hw.Stop(context.Background()); err != nil {
		t.Fatalf("Stop on uninitialised worker: %v", err)
	}
}

func TestHubClientInitRequiresEngine(t *testing.T) {
	if err := (&hosting.HubClient{}).Init(hosting.ClientBinding{Name: "x"}); err == nil {
		t.Fatal("expected error for binding without a client")
	}
}

func TestHubClientScheduleAndWait(t *testing.T) {
	e := local.New()
	w := worker.New(e, worker.WithOrchestrations(task.OrchestrationRegistry([]task.OrchestrationDescriptor{
		task.OrchestrationFromFunc("double", "", task.TypedOrchestration(
			func(_ context.Context, _ task.OrchestrationContext, n int) (int, error) { return n * 2, nil })),
	})))
	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = w.Stop(ctx) }()

	rec := &recordingExt{}
	exts := ext.NewRegistry(nil)
	exts.Register(rec)
	hc := &hosting.HubClient{}
	if err := hc.Init(hosting.ClientBinding{Name: "orders", Client: e, Extensions: exts}); err != nil {
		t.Fatal(err)
	}
	if hc.Name() != "orders" || hc.Engine() == nil {
		t.Fatal("client not bound")
	}

	scoped := forge.WithScope(ctx, forge.NewOrgScope("app-1", "org-1"))
	inst, err := hc.Schedule(scoped, "double", 21, hosting.WithInstanceID("calc-1"), hosting.WithTags(map[string]string{"k": "v"}))
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if inst.InstanceID != "calc-1" {
		t.Fatalf("instance id = %q", inst.InstanceID)
	}
	if !rec.has("scheduled") {
		t.Fatal("OrchestrationScheduled hook not emitted")
	}

	st, err := hc.WaitForOrchestration(ctx, inst, 5*time.Second)
	if err != nil {
		t.Fatalf("WaitForOrchestration: %v", err)
	}
	got, err := hosting.Output[int](st)
	if err != nil {
		t.Fatal(err)
	}
	if got != 42 {
		t.Fatalf("output = %d, want 42", got)
	}
	if st.Tags[scope.TagAppID] != "app-1" || st.Tags[scope.TagOrgID] != "org-1" || st.Tags["k"] != "v" {
		t.Fatalf("tags = %v", st.Tags)
	}

	again, err := hc.GetOrchestrationState(ctx, "calc-1")
	if err != nil || again.Status != orchestration.StatusCompleted {
		t.Fatalf("GetOrchestrationState = %+v, %v", again, err)
	}
}
