package middleware

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/xraph/taskhub/resolve"
)

// scopeBoundary is the identity type of the scope boundary descriptor.
type scopeBoundary struct{}

// ScopeBoundaryDescriptor describes the middleware that opens the dispatch
// scope. Worker builders seed both pipelines with it.
func ScopeBoundaryDescriptor() Descriptor {
	return Descriptor{
		Name: "scope-boundary",
		Type: reflect.TypeFor[scopeBoundary](),
		New:  func(resolve.Resolver) (Middleware, error) { return ScopeBoundary(), nil },
	}
}

// ScopeBoundary opens a resolution scope from the current resolver, makes
// it visible through DispatchContext.Scope for the rest of the pipeline,
// and closes it exactly once when the rest of the pipeline returns, fails,
// panics or short-circuits.
func ScopeBoundary() Middleware {
	return func(ctx context.Context, dc *DispatchContext, next Handler) (err error) {
		s, err := resolve.NewScope(dc.Resolver())
		if err != nil {
			return fmt.Errorf("middleware: open dispatch scope: %w", err)
		}
		SetProperty(dc, s)
		defer func() {
			ClearProperty[resolve.Scope](dc)
			if cerr := s.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("middleware: close dispatch scope: %w", cerr))
			}
		}()
		return next(ctx)
	}
}
