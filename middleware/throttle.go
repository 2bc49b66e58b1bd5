package middleware

import (
	"context"
	"fmt"

	"github.com/xraph/taskhub/scope"
	"github.com/xraph/taskhub/throttle"
)

// Throttle returns middleware that waits for a slot in m before running the
// task. Limits are looked up by task name and by the org carried in the
// instance tags. A dispatch cancelled while waiting fails with the
// context's error.
func Throttle(m *throttle.Manager) Middleware {
	return func(ctx context.Context, dc *DispatchContext, next Handler) error {
		info := dc.Info()
		tenant := info.Tags[scope.TagOrgID]
		if err := m.Wait(ctx, info.Name, tenant); err != nil {
			return fmt.Errorf("throttle %s %q: %w", info.Kind, info.Name, err)
		}
		defer m.Release(info.Name, tenant)
		return next(ctx)
	}
}
