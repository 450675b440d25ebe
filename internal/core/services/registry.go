package services

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
	"github.com/ait-labs/ait-connectors/internal/core/ports/driving"
)

// Registry holds the active connectors by name. It is the lookup the
// HTTP handlers and the sync worker share.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]driving.ConnectorService
}

func NewRegistry() *Registry {
	return &Registry{connectors: make(map[string]driving.ConnectorService)}
}

// Register adds a connector. Re-registering a name replaces it.
func (r *Registry) Register(c driving.ConnectorService) {
	r.mu.Lock()
	r.connectors[c.Name()] = c
	r.mu.Unlock()
}

// Get returns the named connector or domain.ErrConnectorNotFound.
func (r *Registry) Get(name string) (driving.ConnectorService, error) {
	r.mu.RLock()
	c, ok := r.connectors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrConnectorNotFound, name)
	}
	return c, nil
}

// Remove drops a connector, e.g. after disconnect.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	delete(r.connectors, name)
	r.mu.Unlock()
}

// Names returns the registered connector names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.connectors))
	for name := range r.connectors {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// All returns every registered connector, ordered by name.
func (r *Registry) All() []driving.ConnectorService {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.connectors))
	for name := range r.connectors {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]driving.ConnectorService, 0, len(names))
	for _, name := range names {
		out = append(out, r.connectors[name])
	}
	return out
}
