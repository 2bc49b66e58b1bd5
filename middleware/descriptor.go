package middleware

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/xraph/taskhub/resolve"
)

// Unit is a middleware implemented as a type. Units are instantiated once
// per dispatch, so they may hold dispatch-scoped dependencies.
type Unit interface {
	Dispatch(ctx context.Context, dc *DispatchContext, next Handler) error
}

// Descriptor names a middleware and instantiates it for one dispatch.
// Type is its identity when a pipeline is checked for required entries.
type Descriptor struct {
	Name string
	Type reflect.Type
	New  func(r resolve.Resolver) (Middleware, error)
}

func (d Descriptor) String() string {
	if d.Name != "" {
		return d.Name
	}
	if d.Type != nil {
		return d.Type.String()
	}
	return "<unnamed>"
}

// Is reports whether d has the identity of other.
func (d Descriptor) Is(other Descriptor) bool {
	return d.Type != nil && d.Type == other.Type
}

var funcType = reflect.TypeFor[Middleware]()

// Func describes a ready-made middleware function shared by every dispatch.
func Func(name string, m Middleware) Descriptor {
	return Descriptor{
		Name: name,
		Type: funcType,
		New:  func(resolve.Resolver) (Middleware, error) { return m, nil },
	}
}

// Of describes the middleware type T. Each dispatch resolves T from the
// dispatch scope, or uses a zero value when T is an unregistered struct
// pointer.
func Of[T Unit]() Descriptor {
	t := reflect.TypeFor[T]()
	return Descriptor{
		Name: t.String(),
		Type: t,
		New: func(r resolve.Resolver) (Middleware, error) {
			u, err := resolve.ResolveOrCreate[T](r)
			if err != nil {
				return nil, err
			}
			return u.Dispatch, nil
		},
	}
}

// New describes the middleware type T built by fn on every dispatch.
// Use it when T needs constructor arguments.
func New[T Unit](fn func(r resolve.Resolver) (T, error)) Descriptor {
	t := reflect.TypeFor[T]()
	return Descriptor{
		Name: t.String(),
		Type: t,
		New: func(r resolve.Resolver) (Middleware, error) {
			u, err := fn(r)
			if err != nil {
				return nil, err
			}
			return u.Dispatch, nil
		},
	}
}

// Contains reports whether any descriptor in descs has the identity of d.
func Contains(descs []Descriptor, d Descriptor) bool {
	for _, x := range descs {
		if x.Is(d) {
			return true
		}
	}
	return false
}

// ErrNoScopeBoundary is returned by Compose when the pipeline lacks the
// scope boundary.
var ErrNoScopeBoundary = errors.New("middleware: pipeline has no scope boundary")

// Compose lowers descs into one Middleware. The scope boundary runs first
// and the remaining descriptors follow in insertion order. Every
// descriptor except the boundary is instantiated per dispatch from the
// dispatch scope.
func Compose(descs []Descriptor) (Middleware, error) {
	boundary := ScopeBoundaryDescriptor()
	if !Contains(descs, boundary) {
		return nil, ErrNoScopeBoundary
	}

	stages := []Middleware{ScopeBoundary()}
	for _, d := range descs {
		if d.Is(boundary) {
			continue
		}
		if d.New == nil {
			return nil, fmt.Errorf("middleware: descriptor %s has no constructor", d)
		}
		stages = append(stages, lower(d))
	}
	return Chain(stages...), nil
}

func lower(d Descriptor) Middleware {
	return func(ctx context.Context, dc *DispatchContext, next Handler) error {
		m, err := d.New(dc.Resolver())
		if err != nil {
			return fmt.Errorf("middleware: create %s: %w", d, err)
		}
		return m(ctx, dc, next)
	}
}
