package gateway

import (
	"fmt"
	"sync"
)

// Registry manages the configured gateway adapters, keyed by handle.
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
}

// NewRegistry creates an empty gateway registry.
func NewRegistry() *Registry {
	return &Registry{
		gateways: make(map[string]Gateway),
	}
}

// Register registers a gateway under its handle.
func (r *Registry) Register(g Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[g.Handle()] = g
}

// Get returns a gateway by handle.
func (r *Registry) Get(handle string) (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gateways[handle]
	if !ok {
		return nil, fmt.Errorf("gateway not found: %s", handle)
	}
	return g, nil
}

// List returns all registered gateway handles.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handles := make([]string, 0, len(r.gateways))
	for handle := range r.gateways {
		handles = append(handles, handle)
	}
	return handles
}
