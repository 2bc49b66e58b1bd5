package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/taskhub"
	"github.com/xraph/taskhub/middleware"
	"github.com/xraph/taskhub/orchestration"
	"github.com/xraph/taskhub/task"
)

// fetchLoop is run by each dispatch goroutine. Fetches stop when fetchCtx
// is done; dispatches run under dispatchCtx so they can drain after fetching
// stops.
func fetchLoop[T any](
	w *Worker,
	fetchCtx, dispatchCtx context.Context,
	kind middleware.Kind,
	fetch func(context.Context) (*T, error),
	dispatch func(context.Context, *T),
) {
	attempt := 0
	for {
		if w.limiter != nil {
			if err := w.limiter.Wait(fetchCtx); err != nil {
				return
			}
		}

		item, err := fetch(fetchCtx)
		if err != nil || item == nil {
			if fetchCtx.Err() != nil {
				return
			}
			attempt++
			delay := w.backoff.Delay(attempt)
			if err != nil {
				w.logger.Warn("fetch work item failed",
					slog.String("hub", w.name),
					slog.String("kind", string(kind)),
					slog.Int("attempt", attempt),
					slog.Duration("retry_in", delay),
					slog.String("error", err.Error()),
				)
			} else {
				w.logger.Debug("fetch returned no work item",
					slog.String("hub", w.name),
					slog.String("kind", string(kind)),
					slog.Duration("retry_in", delay),
				)
			}
			select {
			case <-fetchCtx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		attempt = 0
		dispatch(dispatchCtx, item)
	}
}

func (w *Worker) dispatchOrchestration(ctx context.Context, item *orchestration.OrchestrationWorkItem) {
	key := task.Key{Name: item.Name, Version: item.Version}
	dc := middleware.NewDispatchContext(middleware.Info{
		Hub:         w.name,
		Kind:        middleware.KindOrchestration,
		Name:        item.Name,
		Version:     item.Version,
		InstanceID:  item.Instance.InstanceID,
		ExecutionID: item.Instance.ExecutionID,
		Tags:        item.Tags,
	}, w.resolver)
	middleware.SetProperty(dc, item)

	var output []byte
	err := w.run(ctx, dc, w.orchPipeline, func(ctx context.Context) error {
		d, ok := w.orchestrations.Get(item.Name, item.Version)
		if !ok {
			return fmt.Errorf("%w: orchestration %s", taskhub.ErrUnknownTask, key)
		}
		o, err := d.New(dc.Resolver())
		if err != nil {
			return fmt.Errorf("create orchestration %s: %w", key, err)
		}
		out, err := o.Execute(ctx, item.Context, item.Input)
		if err != nil {
			return err
		}
		output = out
		return nil
	})

	result := &orchestration.OrchestrationResult{Status: orchestration.StatusCompleted, Output: output}
	if err != nil {
		result.Status = orchestration.StatusFailed
		result.Output = nil
		result.Failure = task.NewFailureDetails(err, w.orchDispatcher.IncludeDetails())
	}
	if cerr := w.service.CompleteOrchestrationWorkItem(context.WithoutCancel(ctx), item, result); cerr != nil {
		w.logger.Error("complete orchestration work item failed",
			slog.String("hub", w.name),
			slog.String("instance_id", item.Instance.InstanceID),
			slog.String("error", cerr.Error()),
		)
	}
}

func (w *Worker) dispatchActivity(ctx context.Context, item *orchestration.ActivityWorkItem) {
	key := task.Key{Name: item.Name, Version: item.Version}
	dc := middleware.NewDispatchContext(middleware.Info{
		Hub:         w.name,
		Kind:        middleware.KindActivity,
		Name:        item.Name,
		Version:     item.Version,
		InstanceID:  item.Instance.InstanceID,
		ExecutionID: item.Instance.ExecutionID,
		Tags:        item.Tags,
	}, w.resolver)
	middleware.SetProperty(dc, item)

	var output []byte
	err := w.run(ctx, dc, w.actPipeline, func(ctx context.Context) error {
		d, ok := w.activities.Get(item.Name, item.Version)
		if !ok {
			return fmt.Errorf("%w: activity %s", taskhub.ErrUnknownTask, key)
		}
		a, err := d.New(dc.Resolver())
		if err != nil {
			return fmt.Errorf("create activity %s: %w", key, err)
		}
		out, err := a.Run(ctx, activityContext{item: item}, item.Input)
		if err != nil {
			return err
		}
		output = out
		return nil
	})

	result := &orchestration.ActivityResult{Output: output}
	if err != nil {
		result.Output = nil
		include := w.actDispatcher.IncludeDetails()
		switch w.ErrorPropagationMode() {
		case taskhub.PropagateFailureDetails:
			result.Failure = task.NewFailureDetails(err, include)
		default:
			result.Reason = err.Error()
			if result.Reason == "" {
				result.Reason = "activity failed"
			}
			if include {
				result.Details = fmt.Sprintf("%+v", err)
			}
		}
	}
	if cerr := w.service.CompleteActivityWorkItem(context.WithoutCancel(ctx), item, result); cerr != nil {
		w.logger.Error("complete activity work item failed",
			slog.String("hub", w.name),
			slog.String("instance_id", item.Instance.InstanceID),
			slog.String("activity", key.String()),
			slog.String("error", cerr.Error()),
		)
	}
}

// run pushes one dispatch through pipeline and reports it to extensions.
// A panic that escapes the pipeline fails the dispatch instead of the loop.
func (w *Worker) run(ctx context.Context, dc *middleware.DispatchContext, pipeline middleware.Middleware, terminal middleware.Handler) (err error) {
	info := dc.Info()
	w.extensions.EmitDispatchStarted(ctx, info)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("dispatch panicked",
				slog.String("hub", w.name),
				slog.String("kind", string(info.Kind)),
				slog.String("task_name", info.Name),
				slog.Any("panic", r),
			)
			err = fmt.Errorf("panic in %s %s: %v", info.Kind, info.Name, r)
		}
		if err != nil {
			w.extensions.EmitDispatchFailed(ctx, info, err)
			return
		}
		w.extensions.EmitDispatchCompleted(ctx, info, time.Since(start))
	}()

	return pipeline(ctx, dc, terminal)
}

type activityContext struct {
	item *orchestration.ActivityWorkItem
}

func (c activityContext) InstanceID() string { return c.item.Instance.InstanceID }
func (c activityContext) Name() string       { return c.item.Name }
func (c activityContext) Version() string    { return c.item.Version }
