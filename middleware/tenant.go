package middleware

import (
	"context"

	"github.com/xraph/taskhub/scope"
)

// Tenant returns middleware that restores the forge scope captured in the
// orchestration tags, so tasks see the same app and org as the caller that
// scheduled them.
func Tenant() Middleware {
	return func(ctx context.Context, dc *DispatchContext, next Handler) error {
		return next(scope.RestoreTags(ctx, dc.Info().Tags))
	}
}
