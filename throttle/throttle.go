package throttle

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultPollInterval is how often Wait retries a denied Acquire.
const DefaultPollInterval = 10 * time.Millisecond

// Limit bounds dispatches of one task.
type Limit struct {
	// Task is the orchestration or activity name.
	Task string

	// MaxConcurrency caps simultaneous dispatches. Zero means no cap.
	MaxConcurrency int

	// Rate is the sustained dispatches per second. Zero disables it.
	Rate float64

	// Burst is the token bucket size. Defaults to 1 when Rate is set.
	Burst int
}

type gate struct {
	max     int
	limiter *rate.Limiter
	active  int
}

func newGate(maxConcurrency int, r float64, burst int) *gate {
	g := &gate{max: maxConcurrency}
	if r > 0 {
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
	return g
}

func (g *gate) full() bool { return g.max > 0 && g.active >= g.max }

// Manager enforces task and tenant limits. It is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	tasks   map[string]*gate
	tenants map[tenantKey]*gate
	poll    time.Duration
	now     func() time.Time
}

// NewManager creates a Manager with the given task limits.
func NewManager(limits ...Limit) *Manager {
	m := &Manager{
		tasks:   make(map[string]*gate, len(limits)),
		tenants: make(map[tenantKey]*gate),
		poll:    DefaultPollInterval,
		now:     time.Now,
	}
	for _, l := range limits {
		m.tasks[l.Task] = newGate(l.MaxConcurrency, l.Rate, l.Burst)
	}
	return m
}

// SetPollInterval changes how often Wait retries. Non-positive values are
// ignored.
func (m *Manager) SetPollInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.poll = d
	m.mu.Unlock()
}

// Acquire reserves a slot for one dispatch of task on behalf of tenant.
// It reports false without side effects when any limit denies it. A
// successful Acquire must be paired with Release.
func (m *Manager) Acquire(task, tenant string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	tg := m.tasks[task]
	var ng *gate
	if tenant != "" {
		ng = m.tenants[tenantKey{task, tenant}]
	}
	if (tg != nil && tg.full()) || (ng != nil && ng.full()) {
		return false
	}

	now := m.now()
	var reserved []*rate.Reservation
	for _, g := range []*gate{tg, ng} {
		if g == nil || g.limiter == nil {
			continue
		}
		r := g.limiter.ReserveN(now, 1)
		if !r.OK() || r.DelayFrom(now) > 0 {
			r.CancelAt(now)
			for _, prev := range reserved {
				prev.CancelAt(now)
			}
			return false
		}
		reserved = append(reserved, r)
	}

	if tg != nil {
		tg.active++
	}
	if ng != nil {
		ng.active++
	}
	return true
}

// Wait blocks until Acquire succeeds or ctx is done.
func (m *Manager) Wait(ctx context.Context, task, tenant string) error {
	if m.Acquire(task, tenant) {
		return nil
	}
	m.mu.Lock()
	poll := m.poll
	m.mu.Unlock()

	t := time.NewTicker(poll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if m.Acquire(task, tenant) {
				return nil
			}
		}
	}
}

// Release frees the slot taken by Acquire.
func (m *Manager) Release(task, tenant string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if g := m.tasks[task]; g != nil && g.active > 0 {
		g.active--
	}
	if tenant != "" {
		if g := m.tenants[tenantKey{task, tenant}]; g != nil && g.active > 0 {
			g.active--
		}
	}
}

// SetLimit adds or replaces the limit for l.Task, keeping its active count.
func (m *Manager) SetLimit(l Limit) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := newGate(l.MaxConcurrency, l.Rate, l.Burst)
	if old := m.tasks[l.Task]; old != nil {
		g.active = old.active
	}
	m.tasks[l.Task] = g
}

// Active returns the number of dispatches of task holding a slot.
func (m *Manager) Active(task string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g := m.tasks[task]; g != nil {
		return g.active
	}
	return 0
}
