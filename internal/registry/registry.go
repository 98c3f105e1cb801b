// Package registry tracks the set of live connection handles shared by all
// relay sessions.
package registry

import (
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Handle is an open connection as seen by the registry and by fan-out.
// Implementations must be safe for concurrent use.
type Handle interface {
	ID() uuid.UUID
	IsOpen() bool
	Send(text string) error
}

// Registry is a concurrency-safe set of handles keyed by their ID.
// The zero value is not usable; call New.
type Registry struct {
	mutex   sync.RWMutex
	handles map[uuid.UUID]Handle
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{handles: make(map[uuid.UUID]Handle)}
}

// Add inserts h. Adding a handle whose ID is already present is a no-op.
func (r *Registry) Add(h Handle) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.handles[h.ID()]; exists {
		return
	}
	r.handles[h.ID()] = h
}

// Remove deletes h if present.
func (r *Registry) Remove(h Handle) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.handles, h.ID())
}

// Contains reports whether a handle with h's ID is registered.
func (r *Registry) Contains(h Handle) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, exists := r.handles[h.ID()]
	return exists
}

// Snapshot returns a point-in-time copy of all registered handles. The slice
// is owned by the caller and is unaffected by later Add or Remove calls.
func (r *Registry) Snapshot() []Handle {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return lo.Values(r.handles)
}

// Len returns the number of registered handles.
func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.handles)
}
