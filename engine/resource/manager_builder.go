package resource

// ManagerOption defines a functional option for configuring a Manager.
type ManagerOption func(*manager)

// WithLRUCapacity overrides the bound on cached whole-geometry entries.
// Values below 1 are ignored.
//
// Parameters:
//   - capacity: maximum number of geometry entries retained in the cache
//
// Returns:
//   - ManagerOption: the option to apply
func WithLRUCapacity(capacity int) ManagerOption {
	return func(m *manager) {
		if capacity >= 1 {
			m.lruCapacity = capacity
		}
	}
}

// WithRetainCPU keeps a CPU-side copy of every buffer's contents alongside
// the backend allocation. Mirrors are refreshed on Write and dropped on
// disposal. Intended for headless use and tests.
//
// Returns:
//   - ManagerOption: the option to apply
func WithRetainCPU() ManagerOption {
	return func(m *manager) {
		m.retainCPU = true
	}
}
