package exam

import (
	"sync"
	"time"
)

// Registry live exam sessions keyed by session id
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry .
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
}

// Get nil if absent
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Remove unregister the session and return it, the caller closes it
func (r *Registry) Remove(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.sessions[id]
	delete(r.sessions, id)
	return s
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep close and drop every session expired at now, returns how many were dropped
func (r *Registry) Sweep(now time.Time, ttl time.Duration) int {
	var expired []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.Expired(now, ttl) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	return len(expired)
}

func (r *Registry) ids() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}
