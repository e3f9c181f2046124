package agent

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps agent types to their handlers. It is safe for
// concurrent use; registration normally happens once at startup but
// nothing prevents later additions.
type Registry struct {
	mu     sync.RWMutex
	agents map[Type]Agent
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[Type]Agent)}
}

// Register adds a handler for its declared type. Registering the same
// type twice is an error; replacing a live handler is never intended.
func (r *Registry) Register(a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := a.Type()
	if _, ok := r.agents[t]; ok {
		return fmt.Errorf("agent type %q already registered", t)
	}
	r.agents[t] = a
	return nil
}

// Get returns the handler for t.
func (r *Registry) Get(t Type) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return a, nil
}

// Types returns the registered types in sorted order.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]Type, 0, len(r.agents))
	for t := range r.agents {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
