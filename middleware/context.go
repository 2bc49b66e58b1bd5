package middleware

import (
	"reflect"
	"sync"

	"github.com/xraph/taskhub/resolve"
)

// DispatchContext is the property bag shared by every middleware of one
// dispatch. Properties are keyed by type. It is created per dispatch and
// never shared across dispatches.
type DispatchContext struct {
	info Info
	root resolve.Resolver

	mu    sync.RWMutex
	props map[reflect.Type]any
}

// NewDispatchContext creates the context for one dispatch. root is the
// resolver used until a scope boundary opens a dispatch scope.
func NewDispatchContext(info Info, root resolve.Resolver) *DispatchContext {
	if root == nil {
		root = resolve.Empty()
	}
	return &DispatchContext{info: info, root: root, props: make(map[reflect.Type]any)}
}

// Info returns the work item description.
func (c *DispatchContext) Info() Info { return c.info }

// Resolver returns the dispatch scope once the boundary has opened one,
// and the root resolver before that.
func (c *DispatchContext) Resolver() resolve.Resolver {
	if s, ok := c.Scope(); ok {
		return s
	}
	return c.root
}

// Scope returns the dispatch scope opened by the scope boundary.
func (c *DispatchContext) Scope() (resolve.Scope, bool) {
	return Property[resolve.Scope](c)
}

// SetProperty stores v under the type T, replacing any earlier value.
func SetProperty[T any](c *DispatchContext, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.props[reflect.TypeFor[T]()] = v
}

// Property returns the value stored under the type T.
func Property[T any](c *DispatchContext) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.props[reflect.TypeFor[T]()]
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// ClearProperty removes the value stored under the type T.
func ClearProperty[T any](c *DispatchContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.props, reflect.TypeFor[T]())
}
