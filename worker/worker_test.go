package worker_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/taskhub"
	"github.com/xraph/taskhub/backoff"
	"github.com/xraph/taskhub/ext"
	"github.com/xraph/taskhub/local"
	"github.com/xraph/taskhub/middleware"
	"github.com/xraph/taskhub/orchestration"
	"github.com/xraph/taskhub/task"
	"github.com/xraph/taskhub/worker"
)

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

type greetInput struct {
	Name string `json:"name"`
}

func greetActivity() task.ActivityDescriptor {
	return task.ActivityFromFunc("greet", "", task.TypedActivity(
		func(_ context.Context, _ task.ActivityContext, in greetInput) (string, error) {
			return "hello " + in.Name, nil
		}))
}

func failActivity() task.ActivityDescriptor {
	return task.ActivityFromFunc("fail", "", func(context.Context, task.ActivityContext, []byte) ([]byte, error) {
		return nil, errors.New("boom")
	})
}

// callOrchestration calls the named activity and returns its output, or
// the error text of a failed call.
func callOrchestration(name, activity string) task.OrchestrationDescriptor {
	return task.OrchestrationFromFunc(name, "", task.TypedOrchestration(
		func(ctx context.Context, oc task.OrchestrationContext, in greetInput) (string, error) {
			return task.CallActivity[string](ctx, oc, activity, "", in)
		}))
}

func registries(orchs []task.OrchestrationDescriptor, acts []task.ActivityDescriptor) worker.Option {
	return func(w *worker.Worker) {
		worker.WithOrchestrations(task.OrchestrationRegistry(orchs))(w)
		worker.WithActivities(task.ActivityRegistry(acts))(w)
	}
}

func startWorker(t *testing.T, e *local.Engine, opts ...worker.Option) *worker.Worker {
	t.Helper()
	w := worker.New(e, opts...)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = w.Stop(ctx)
	})
	return w
}

func run(t *testing.T, e *local.Engine, name string, input string) *orchestration.State {
	t.Helper()
	ctx := context.Background()
	inst, err := e.StartOrchestration(ctx, orchestration.StartRequest{Name: name, Input: []byte(input)})
	if err != nil {
		t.Fatalf("StartOrchestration: %v", err)
	}
	st, err := e.WaitForOrchestration(ctx, inst, 5*time.Second)
	if err != nil {
		t.Fatalf("WaitForOrchestration: %v", err)
	}
	return st
}

// ──────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────

func TestOrchestrationCallsActivity(t *testing.T) {
	e := local.New()
	startWorker(t, e,
		worker.WithName("orders"),
		registries(
			[]task.OrchestrationDescriptor{callOrchestration("hello", "greet")},
			[]task.ActivityDescriptor{greetActivity()},
		),
	)

	st := run(t, e, "hello", `{"name":"ada"}`)
	if st.Status != orchestration.StatusCompleted {
		t.Fatalf("status = %s, failure = %+v", st.Status, st.Failure)
	}
	if string(st.Output) != `"hello ada"` {
		t.Fatalf("output = %s", st.Output)
	}
}

func TestUnknownOrchestrationFails(t *testing.T) {
	e := local.New()
	startWorker(t, e)

	st := run(t, e, "nobody-home", "")
	if st.Status != orchestration.StatusFailed {
		t.Fatalf("status = %s, want failed", st.Status)
	}
	if st.Failure == nil || !strings.Contains(st.Failure.Message, "nobody-home") {
		t.Fatalf("failure = %+v", st.Failure)
	}
}

func TestIncludeDetails(t *testing.T) {
	tests := []struct {
		name    string
		include bool
	}{
		{name: "excluded", include: false},
		{name: "included", include: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := local.New()
			w := startWorker(t, e, registries(
				[]task.OrchestrationDescriptor{callOrchestration("hello", "fail")},
				[]task.ActivityDescriptor{failActivity()},
			))
			w.OrchestrationDispatcher().SetIncludeDetails(tt.include)

			st := run(t, e, "hello", `{}`)
			if st.Status != orchestration.StatusFailed || st.Failure == nil {
				t.Fatalf("status = %s, failure = %+v", st.Status, st.Failure)
			}
			if got := st.Failure.Details != ""; got != tt.include {
				t.Fatalf("details present = %v, want %v", got, tt.include)
			}
		})
	}
}

func TestErrorPropagationModes(t *testing.T) {
	tests := []struct {
		name       string
		mode       taskhub.ErrorPropagationMode
		wantFailed bool
	}{
		{name: "serialized", mode: taskhub.PropagateSerialized, wantFailed: false},
		{name: "failure details", mode: taskhub.PropagateFailureDetails, wantFailed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				mu     sync.Mutex
				gotErr error
			)
			orch := task.OrchestrationFromFunc("inspect", "", func(ctx context.Context, oc task.OrchestrationContext, _ []byte) ([]byte, error) {
				_, err := oc.CallActivity(ctx, "fail", "", nil)
				mu.Lock()
				gotErr = err
				mu.Unlock()
				return nil, nil
			})

			e := local.New()
			w := startWorker(t, e, registries(
				[]task.OrchestrationDescriptor{orch},
				[]task.ActivityDescriptor{failActivity()},
			))
			w.SetErrorPropagationMode(tt.mode)
			if w.ErrorPropagationMode() != tt.mode {
				t.Fatalf("mode = %v", w.ErrorPropagationMode())
			}

			run(t, e, "inspect", "")

			mu.Lock()
			defer mu.Unlock()
			if !errors.Is(gotErr, taskhub.ErrTaskFailed) {
				t.Fatalf("got %v, want ErrTaskFailed", gotErr)
			}
			var fe *task.FailedError
			if errors.As(gotErr, &fe) != tt.wantFailed {
				t.Fatalf("FailedError = %v, want %v", !tt.wantFailed, tt.wantFailed)
			}
		})
	}
}

func TestPipelineRunsAroundEveryDispatch(t *testing.T) {
	var (
		mu    sync.Mutex
		kinds []middleware.Kind
	)
	record := func(ctx context.Context, dc *middleware.DispatchContext, next middleware.Handler) error {
		if _, ok := dc.Scope(); !ok {
			t.Error("dispatch ran outside a scope")
		}
		mu.Lock()
		kinds = append(kinds, dc.Info().Kind)
		mu.Unlock()
		return next(ctx)
	}
	pipeline := func(extra middleware.Descriptor) middleware.Middleware {
		m, err := middleware.Compose([]middleware.Descriptor{middleware.ScopeBoundaryDescriptor(), extra})
		if err != nil {
			t.Fatal(err)
		}
		return m
	}

	e := local.New()
	startWorker(t, e,
		worker.WithOrchestrationPipeline(pipeline(middleware.Func("record", record))),
		worker.WithActivityPipeline(pipeline(middleware.Func("record", record))),
		registries(
			[]task.OrchestrationDescriptor{callOrchestration("hello", "greet")},
			[]task.ActivityDescriptor{greetActivity()},
		),
	)

	run(t, e, "hello", `{"name":"bo"}`)

	mu.Lock()
	defer mu.Unlock()
	if len(kinds) != 2 {
		t.Fatalf("kinds = %v, want one orchestration and one activity", kinds)
	}
}

type countingExt struct {
	mu        sync.Mutex
	started   int
	completed int
	failed    int
}

func (c *countingExt) Name() string { return "counting" }

func (c *countingExt) OnDispatchStarted(context.Context, middleware.Info) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started++
	return nil
}

func (c *countingExt) OnDispatchCompleted(context.Context, middleware.Info, time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed++
	return nil
}

func (c *countingExt) OnDispatchFailed(context.Context, middleware.Info, error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed++
	return nil
}

func TestDispatchHooks(t *testing.T) {
	counter := &countingExt{}
	exts := ext.NewRegistry(nil)
	exts.Register(counter)

	e := local.New()
	startWorker(t, e,
		worker.WithExtensions(exts),
		registries(
			[]task.OrchestrationDescriptor{callOrchestration("hello", "fail")},
			[]task.ActivityDescriptor{failActivity()},
		),
	)

	run(t, e, "hello", `{}`)

	counter.mu.Lock()
	defer counter.mu.Unlock()
	if counter.started != 2 || counter.failed != 2 || counter.completed != 0 {
		t.Fatalf("started=%d completed=%d failed=%d", counter.started, counter.completed, counter.failed)
	}
}

func TestPanickingActivityFailsDispatch(t *testing.T) {
	panicky := task.ActivityFromFunc("panicky", "", func(context.Context, task.ActivityContext, []byte) ([]byte, error) {
		panic("kaboom")
	})

	e := local.New()
	startWorker(t, e, registries(
		[]task.OrchestrationDescriptor{callOrchestration("hello", "panicky")},
		[]task.ActivityDescriptor{panicky},
	))

	st := run(t, e, "hello", `{}`)
	if st.Status != orchestration.StatusFailed {
		t.Fatalf("status = %s, want failed", st.Status)
	}
}

func TestStartStop(t *testing.T) {
	e := local.New()
	w := worker.New(e, worker.WithName("orders"), worker.WithConcurrency(2, 3))
	ctx := context.Background()

	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if !w.Running() || !e.Started() {
		t.Fatal("expected worker and engine running")
	}
	if err := w.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if w.Running() || e.Started() {
		t.Fatal("expected worker and engine stopped")
	}
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestStopCancelsDispatchesOnDeadline(t *testing.T) {
	entered := make(chan struct{})
	blocking := task.OrchestrationFromFunc("block", "", func(ctx context.Context, _ task.OrchestrationContext, _ []byte) ([]byte, error) {
		close(entered)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	e := local.New()
	w := worker.New(e, registries([]task.OrchestrationDescriptor{blocking}, nil))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := e.StartOrchestration(context.Background(), orchestration.StartRequest{Name: "block"}); err != nil {
		t.Fatal(err)
	}
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

// emptyFetchEngine reports empty polls for orchestrations.
type emptyFetchEngine struct {
	*local.Engine
	fetches atomic.Int64
}

func (e *emptyFetchEngine) FetchOrchestrationWorkItem(context.Context) (*orchestration.OrchestrationWorkItem, error) {
	e.fetches.Add(1)
	return nil, nil
}

func TestEmptyFetchBacksOff(t *testing.T) {
	e := &emptyFetchEngine{Engine: local.New()}
	w := worker.New(e,
		worker.WithConcurrency(1, 1),
		worker.WithBackoff(backoff.NewConstant(20*time.Millisecond)),
	)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := w.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}

	if n := e.fetches.Load(); n == 0 || n > 20 {
		t.Fatalf("fetches = %d, want a handful spaced by the back-off", n)
	}
}

// stopContextEngine records the context error seen by Stop.
type stopContextEngine struct {
	*local.Engine
	mu     sync.Mutex
	stopOK bool
}

func (e *stopContextEngine) Stop(ctx context.Context) error {
	e.mu.Lock()
	e.stopOK = ctx.Err() == nil
	e.mu.Unlock()
	return e.Engine.Stop(ctx)
}

func TestStopDoesNotCancelEngineStop(t *testing.T) {
	e := &stopContextEngine{Engine: local.New()}
	w := worker.New(e)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.stopOK {
		t.Fatal("engine Stop received a cancelled context")
	}
}

func TestDispatchRateLimit(t *testing.T) {
	e := local.New()
	startWorker(t, e,
		worker.WithDispatchRate(1000, 10),
		registries(
			[]task.OrchestrationDescriptor{callOrchestration("hello", "greet")},
			[]task.ActivityDescriptor{greetActivity()},
		),
	)

	for range 3 {
		if st := run(t, e, "hello", `{"name":"x"}`); st.Status != orchestration.StatusCompleted {
			t.Fatalf("status = %s", st.Status)
		}
	}
}

func TestDefaultsAndIdentity(t *testing.T) {
	w := worker.New(local.New(), worker.WithName("billing"))
	if w.Name() != "billing" {
		t.Fatalf("Name = %q", w.Name())
	}
	if w.ID().Prefix() != "wkr" {
		t.Fatalf("ID prefix = %q", w.ID().Prefix())
	}
	if w.ErrorPropagationMode() != taskhub.PropagateSerialized {
		t.Fatalf("default mode = %v", w.ErrorPropagationMode())
	}
	if w.OrchestrationDispatcher().Kind() != middleware.KindOrchestration || w.ActivityDispatcher().Kind() != middleware.KindActivity {
		t.Fatal("dispatcher kinds mismatch")
	}
	if w.OrchestrationDispatcher().IncludeDetails() {
		t.Fatal("details included by default")
	}
}
