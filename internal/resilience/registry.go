package resilience

import "sync"

// Registry holds named breakers so multiple call sites protecting the
// same upstream share state. It is an explicit dependency passed to
// constructors, not package-level state, so tests build isolated
// instances.
type Registry struct {
	defaults Config

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry creates a registry whose breakers inherit the given
// defaults.
func NewRegistry(defaults Config) *Registry {
	return &Registry{
		defaults: defaults,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for name, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[name]
	if !ok {
		b = NewBreaker(name, r.defaults)
		r.breakers[name] = b
	}
	return b
}

// Reset resets one named breaker. Unknown names are a no-op.
func (r *Registry) Reset(name string) {
	r.mu.Lock()
	b := r.breakers[name]
	r.mu.Unlock()
	if b != nil {
		b.Reset()
	}
}

// ResetAll resets every registered breaker.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	all := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		all = append(all, b)
	}
	r.mu.Unlock()
	for _, b := range all {
		b.Reset()
	}
}

// Snapshot returns per-breaker stats keyed by name.
func (r *Registry) Snapshot() map[string]Stats {
	r.mu.Lock()
	all := make(map[string]*Breaker, len(r.breakers))
	for name, b := range r.breakers {
		all[name] = b
	}
	r.mu.Unlock()

	stats := make(map[string]Stats, len(all))
	for name, b := range all {
		stats[name] = b.Snapshot()
	}
	return stats
}
