package simulation

import (
	"sync"
	"time"

	"arsflow/internal/expressions"
	"arsflow/pkg/schema"
)

// Session is one server-held simulation of a scenario. All state lives here;
// clients only see SimulationState snapshots.
type Session struct {
	mu sync.Mutex

	id       string
	scenario *schema.Scenario
	nodes    map[string]*schema.ScenarioNode
	current  string
	scope    *expressions.SessionScope
	status   schema.SimulationStatus

	startedAt time.Time
	updatedAt time.Time
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// touch must be called with s.mu held.
func (s *Session) touch() {
	s.updatedAt = time.Now().UTC()
}

// Registry holds live simulation sessions. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a session.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.id] = s
}

// Get returns the session or a NOT_FOUND error.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "simulation %q not found", id)
	}
	return s, nil
}

// Remove drops a session.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ExpireIdle marks running sessions idle for longer than maxIdle as expired
// and returns their ids. Expired sessions stay in the registry until Sweep
// so that a final poll can observe the expired status.
func (r *Registry) ExpireIdle(maxIdle time.Duration) []string {
	cutoff := time.Now().UTC().Add(-maxIdle)

	r.mu.RLock()
	candidates := make([]*Session, 0)
	for _, s := range r.sessions {
		candidates = append(candidates, s)
	}
	r.mu.RUnlock()

	var expired []string
	for _, s := range candidates {
		s.mu.Lock()
		if s.status == schema.SimulationStatusRunning && s.updatedAt.Before(cutoff) {
			s.status = schema.SimulationStatusExpired
			s.touch()
			expired = append(expired, s.id)
		}
		s.mu.Unlock()
	}
	return expired
}

// Sweep removes terminal sessions untouched for longer than retention and
// returns how many were removed.
func (r *Registry) Sweep(retention time.Duration) int {
	cutoff := time.Now().UTC().Add(-retention)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		s.mu.Lock()
		terminal := s.status != schema.SimulationStatusRunning
		stale := s.updatedAt.Before(cutoff)
		s.mu.Unlock()
		if terminal && stale {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
