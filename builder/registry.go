// Package builder holds the configuration-time side of a hub: named
// builders, collected in a Registry, that accumulate settings and are
// consumed exactly once by Build.
//
// Builders are not safe for concurrent use. Configuration is expected to
// run on one goroutine before the runtime is built.
package builder

import (
	"iter"
	"slices"
)

// Registry maps hub names to builders. A name is created on first lookup
// and every later lookup returns the same builder.
type Registry[B any] struct {
	newFn func(name string) B
	items map[string]B
	order []string
}

// NewRegistry returns a Registry that creates builders with newFn.
func NewRegistry[B any](newFn func(name string) B) *Registry[B] {
	return &Registry[B]{newFn: newFn, items: make(map[string]B)}
}

// GetOrAdd returns the builder for name, creating it if needed. created
// reports whether this call created it; the caller that sees true owns the
// builder's build.
func (r *Registry[B]) GetOrAdd(name string) (b B, created bool) {
	if b, ok := r.items[name]; ok {
		return b, false
	}
	b = r.newFn(name)
	r.items[name] = b
	r.order = append(r.order, name)
	return b, true
}

// Get returns the builder for name without creating it.
func (r *Registry[B]) Get(name string) (B, bool) {
	b, ok := r.items[name]
	return b, ok
}

// Names returns the registered names in sorted order.
func (r *Registry[B]) Names() []string {
	names := slices.Clone(r.order)
	slices.Sort(names)
	return names
}

// All yields builders in creation order.
func (r *Registry[B]) All() iter.Seq2[string, B] {
	return func(yield func(string, B) bool) {
		for _, name := range r.order {
			if !yield(name, r.items[name]) {
				return
			}
		}
	}
}

// Len returns the number of builders.
func (r *Registry[B]) Len() int { return len(r.items) }
