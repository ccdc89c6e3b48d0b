package session

import "sync"

// Registry tracks cancellable sessions by request id. It holds non-owning
// references: a cancel call signals the handle, and the session removes its
// own entry when it finishes.
//
// All methods are safe for concurrent access.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Handle
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Handle),
	}
}

// Register stores h under id, overwriting any existing entry. The displaced
// handle, if any, is returned; its session keeps running but can no longer
// be cancelled through the registry.
func (r *Registry) Register(id string, h *Handle) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.entries[id]
	r.entries[id] = h
	return prev
}

// RegisterIfAbsent stores h under id only if no entry exists.
func (r *Registry) RegisterIfAbsent(id string, h *Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; ok {
		return false
	}
	r.entries[id] = h
	return true
}

// Signal requests cancellation of the session registered under id.
// Returns true if an entry existed and its handle moved to CancelRequested,
// false for an unknown id or a session that already finished.
func (r *Registry) Signal(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.entries[id]
	if !ok {
		return false
	}
	return h.Cancel()
}

// SignalAndRemove signals the session registered under id and deletes its
// entry in one critical section, so an entry registered afterwards under the
// same id is left alone. The result is as for Signal.
func (r *Registry) SignalAndRemove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.entries[id]
	if !ok {
		return false
	}
	delete(r.entries, id)
	return h.Cancel()
}

// Remove deletes the entry for id. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// RemoveHandle deletes the entry for id only if it still refers to h, so a
// finishing session never evicts a newer one that reused its id.
func (r *Registry) RemoveHandle(id string, h *Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[id] != h {
		return false
	}
	delete(r.entries, id)
	return true
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
