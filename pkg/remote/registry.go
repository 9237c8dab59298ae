package remote

import (
	"fmt"
	"sync"
)

// Registry maps a caregiver role to the notifier for the service that owns
// that role. Adding a role is a registration, not a branching change in the
// write coordinator.
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
}

func NewRegistry() *Registry {
	return &Registry{notifiers: make(map[string]Notifier)}
}

func (r *Registry) Register(role string, n Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifiers[role] = n
}

func (r *Registry) For(role string) (Notifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.notifiers[role]
	if !ok {
		return nil, fmt.Errorf("no notifier registered for role %q", role)
	}
	return n, nil
}
