package task

import (
	"cmp"
	"slices"
	"sync"
)

// Key identifies a registered task.
type Key struct {
	Name    string
	Version string
}

func (k Key) String() string {
	if k.Version == "" {
		return k.Name
	}
	return k.Name + "@" + k.Version
}

// Registry maps (name, version) to a task descriptor. Registering the same
// key twice keeps the last descriptor. It is safe for concurrent use.
type Registry[D any] struct {
	mu      sync.RWMutex
	entries map[Key]D
}

// NewRegistry creates an empty registry.
func NewRegistry[D any]() *Registry[D] {
	return &Registry[D]{entries: make(map[Key]D)}
}

// Add registers d under (name, version), replacing any earlier entry.
func (r *Registry[D]) Add(name, version string, d D) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[Key{Name: name, Version: version}] = d
}

// Get returns the descriptor registered under (name, version).
func (r *Registry[D]) Get(name, version string) (D, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entries[Key{Name: name, Version: version}]
	return d, ok
}

// Keys returns the registered keys sorted by name, then version.
func (r *Registry[D]) Keys() []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]Key, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b Key) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.Version, b.Version)
	})
	return keys
}

// Len returns the number of registered tasks.
func (r *Registry[D]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// OrchestrationRegistry builds a registry from descs.
func OrchestrationRegistry(descs []OrchestrationDescriptor) *Registry[OrchestrationDescriptor] {
	r := NewRegistry[OrchestrationDescriptor]()
	for _, d := range descs {
		r.Add(d.Name, d.Version, d)
	}
	return r
}

// ActivityRegistry builds a registry from descs.
func ActivityRegistry(descs []ActivityDescriptor) *Registry[ActivityDescriptor] {
	r := NewRegistry[ActivityDescriptor]()
	for _, d := range descs {
		r.Add(d.Name, d.Version, d)
	}
	return r
}
