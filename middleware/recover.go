package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Recover returns middleware that converts panics further down the
// pipeline into errors and logs them with a stack trace.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, dc *DispatchContext, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				info := dc.Info()
				logger.Error("task panicked",
					slog.String("kind", string(info.Kind)),
					slog.String("task_name", info.Name),
					slog.String("instance_id", info.InstanceID),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				retErr = fmt.Errorf("panic in %s %s: %v", info.Kind, info.Name, r)
			}
		}()
		return next(ctx)
	}
}
