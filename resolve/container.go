package resolve

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
)

// Lifetime controls how often a provider's factory runs.
type Lifetime int

const (
	// Singleton services are created once per Container.
	Singleton Lifetime = iota
	// Scoped services are created once per Scope. Resolved from the
	// Container itself they behave like singletons.
	Scoped
	// Transient services are created on every resolution.
	Transient
)

func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "singleton"
	case Scoped:
		return "scoped"
	case Transient:
		return "transient"
	default:
		return fmt.Sprintf("Lifetime(%d)", int(l))
	}
}

// Factory builds a service. The resolver it receives is the one the
// service is being resolved from, so scoped dependencies stay in scope.
type Factory func(r Resolver) (any, error)

type provider struct {
	lifetime Lifetime
	factory  Factory
}

// lazy memoises one factory call.
type lazy struct {
	once sync.Once
	v    any
	err  error
}

func (l *lazy) get(r Resolver, f Factory) (any, error) {
	l.once.Do(func() { l.v, l.err = f(r) })
	return l.v, l.err
}

// Container is a type-keyed service registry with singleton, scoped and
// transient lifetimes. It is safe for concurrent use.
type Container struct {
	mu         sync.RWMutex
	providers  map[reflect.Type]provider
	singletons map[reflect.Type]*lazy
	parent     Resolver
}

// NewContainer creates an empty Container.
func NewContainer() *Container {
	return &Container{
		providers:  make(map[reflect.Type]provider),
		singletons: make(map[reflect.Type]*lazy),
	}
}

// NewChildContainer creates an empty Container that resolves types it has
// no registration for from parent.
func NewChildContainer(parent Resolver) *Container {
	c := NewContainer()
	c.parent = parent
	return c
}

// Provide registers f for t, replacing any earlier registration.
func (c *Container) Provide(t reflect.Type, lt Lifetime, f Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[t] = provider{lifetime: lt, factory: f}
	delete(c.singletons, t)
}

// TryProvide registers f for t unless t is already registered. It reports
// whether the registration was added.
func (c *Container) TryProvide(t reflect.Type, lt Lifetime, f Factory) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.providers[t]; ok {
		return false
	}
	c.providers[t] = provider{lifetime: lt, factory: f}
	return true
}

// Has reports whether t is registered.
func (c *Container) Has(t reflect.Type) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.providers[t]
	return ok
}

// Resolve implements Resolver.
func (c *Container) Resolve(t reflect.Type) (any, error) {
	p, ok := c.provider(t)
	if !ok {
		return c.fallback(t)
	}
	if p.lifetime == Transient {
		return p.factory(c)
	}
	return c.singleton(t).get(c, p.factory)
}

// NewScope implements ScopeFactory.
func (c *Container) NewScope() (Scope, error) {
	return &containerScope{root: c, instances: make(map[reflect.Type]*lazy)}, nil
}

func (c *Container) fallback(t reflect.Type) (any, error) {
	if c.parent == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, t)
	}
	return c.parent.Resolve(t)
}

func (c *Container) provider(t reflect.Type) (provider, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.providers[t]
	return p, ok
}

func (c *Container) singleton(t reflect.Type) *lazy {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.singletons[t]
	if !ok {
		l = &lazy{}
		c.singletons[t] = l
	}
	return l
}

// containerScope resolves scoped services once per scope and closes the
// ones that implement io.Closer, newest first.
type containerScope struct {
	root *Container

	mu        sync.Mutex
	instances map[reflect.Type]*lazy
	order     []reflect.Type
	closed    bool
}

func (s *containerScope) Resolve(t reflect.Type) (any, error) {
	p, ok := s.root.provider(t)
	if !ok {
		return s.root.fallback(t)
	}
	switch p.lifetime {
	case Singleton:
		return s.root.Resolve(t)
	case Transient:
		return p.factory(s)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrScopeClosed
	}
	l, ok := s.instances[t]
	if !ok {
		l = &lazy{}
		s.instances[t] = l
		s.order = append(s.order, t)
	}
	s.mu.Unlock()
	return l.get(s, p.factory)
}

func (s *containerScope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	order, instances := s.order, s.instances
	s.mu.Unlock()

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		l := instances[order[i]]
		l.once.Do(func() {})
		if l.err != nil {
			continue
		}
		if c, ok := l.v.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("resolve: close %s: %w", order[i], err))
			}
		}
	}
	return errors.Join(errs...)
}

// ──────────────────────────────────────────────────
// Typed helpers
// ──────────────────────────────────────────────────

// Provide registers a typed factory for T.
func Provide[T any](c *Container, lt Lifetime, f func(r Resolver) (T, error)) {
	c.Provide(reflect.TypeFor[T](), lt, func(r Resolver) (any, error) { return f(r) })
}

// ProvideValue registers v as the singleton for T.
func ProvideValue[T any](c *Container, v T) {
	c.Provide(reflect.TypeFor[T](), Singleton, func(Resolver) (any, error) { return v, nil })
}

// TryProvideValue registers v for T unless T is already registered.
func TryProvideValue[T any](c *Container, v T) bool {
	return c.TryProvide(reflect.TypeFor[T](), Singleton, func(Resolver) (any, error) { return v, nil })
}
