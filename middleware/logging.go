package middleware

import (
	"context"
	"log/slog"
	"time"
)

// Logging returns middleware that logs dispatch start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, dc *DispatchContext, next Handler) error {
		info := dc.Info()
		attrs := []any{
			slog.String("hub", info.Hub),
			slog.String("kind", string(info.Kind)),
			slog.String("task_name", info.Name),
			slog.String("instance_id", info.InstanceID),
		}
		logger.Debug("dispatch started", attrs...)

		start := time.Now()
		err := next(ctx)
		attrs = append(attrs, slog.Duration("elapsed", time.Since(start)))

		if err != nil {
			logger.Error("dispatch failed", append(attrs, slog.String("error", err.Error()))...)
		} else {
			logger.Info("dispatch completed", attrs...)
		}
		return err
	}
}
