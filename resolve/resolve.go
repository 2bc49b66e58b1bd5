// Package resolve is the service resolution surface the hosting layer
// depends on. A Resolver hands out services by type; a Scope is a Resolver
// with a bounded lifetime whose scoped services are released on Close.
//
// Container is the built-in implementation. Anything satisfying Resolver can
// stand in for it, and scopes degrade to a no-op wrapper when the resolver
// cannot open one.
package resolve

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrNotFound is returned when no service is registered for a type.
var ErrNotFound = errors.New("resolve: service not registered")

// ErrScopeClosed is returned when resolving from a closed scope.
var ErrScopeClosed = errors.New("resolve: scope closed")

// Resolver hands out services by type.
type Resolver interface {
	// Resolve returns the service registered for t. It returns an error
	// wrapping ErrNotFound when nothing is registered.
	Resolve(t reflect.Type) (any, error)
}

// Scope is a Resolver whose scoped services live until Close.
type Scope interface {
	Resolver
	Close() error
}

// ScopeFactory is implemented by resolvers that can open child scopes.
type ScopeFactory interface {
	NewScope() (Scope, error)
}

// NewScope opens a child scope of r. Resolvers that cannot open scopes get
// a wrapper whose Close does nothing.
func NewScope(r Resolver) (Scope, error) {
	if f, ok := r.(ScopeFactory); ok {
		return f.NewScope()
	}
	return nopScope{r}, nil
}

type nopScope struct{ Resolver }

func (nopScope) Close() error { return nil }

// Resolve returns the service registered for T.
func Resolve[T any](r Resolver) (T, error) {
	var zero T
	t := reflect.TypeFor[T]()
	if r == nil {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, t)
	}
	v, err := r.Resolve(t)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("resolve: service for %s has type %T", t, v)
	}
	return typed, nil
}

// Optional is Resolve with a missing registration reported as ok=false
// instead of an error.
func Optional[T any](r Resolver) (T, bool, error) {
	v, err := Resolve[T](r)
	if errors.Is(err, ErrNotFound) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	return v, true, nil
}

// ResolveOrCreate resolves T from r and falls back to a zero value of the
// pointed-to struct when T is a struct pointer with no registration.
func ResolveOrCreate[T any](r Resolver) (T, error) {
	v, ok, err := Optional[T](r)
	if err != nil || ok {
		return v, err
	}
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return v, fmt.Errorf("%w: %s", ErrNotFound, t)
	}
	created, _ := reflect.New(t.Elem()).Interface().(T)
	return created, nil
}

// Empty returns a Resolver with no registrations.
func Empty() Resolver { return emptyResolver{} }

type emptyResolver struct{}

func (emptyResolver) Resolve(t reflect.Type) (any, error) {
	return nil, fmt.Errorf("%w: %s", ErrNotFound, t)
}
