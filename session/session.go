// Package session holds the session-id-to-engine-handle registry the
// external routing layer (out of scope) looks up against.
package session

import (
	"fmt"
	"sync"

	"github.com/evotree/symreg/evolution"
)

// Registry maps session id to a running engine. The mutex guards only the
// map (insert, remove, lookup); concurrent reads of an individual engine handle are the
// caller's responsibility, since the engine itself is single-threaded
// from its own scheduler (spec.md §5).
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*evolution.Engine
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*evolution.Engine)}
}

// Add inserts eng under id, replacing any existing handle.
func (r *Registry) Add(id string, eng *evolution.Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = eng
}

// Get returns the engine for id, or an error if no such session exists.
func (r *Registry) Get(id string) (*evolution.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	eng, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session: no engine registered for id %q", id)
	}
	return eng, nil
}

// Remove deletes id from the registry, if present.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Ids returns every currently registered session id, in no particular
// order.
func (r *Registry) Ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}
