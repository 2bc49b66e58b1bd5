package throttle

// TenantLimit bounds dispatches of one task for one tenant.
type TenantLimit struct {
	Task           string
	Tenant         string
	MaxConcurrency int
	Rate           float64
	Burst          int
}

type tenantKey struct {
	task   string
	tenant string
}

// SetTenantLimit adds or replaces a tenant limit, keeping its active count.
func (m *Manager) SetTenantLimit(l TenantLimit) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := tenantKey{l.Task, l.Tenant}
	g := newGate(l.MaxConcurrency, l.Rate, l.Burst)
	if old := m.tenants[key]; old != nil {
		g.active = old.active
	}
	m.tenants[key] = g
}

// TenantActive returns the number of dispatches of task for tenant holding
// a slot.
func (m *Manager) TenantActive(task, tenant string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g := m.tenants[tenantKey{task, tenant}]; g != nil {
		return g.active
	}
	return 0
}
