package mcp

import "sync"

// SessionRegistry maps simulation IDs to MCP session IDs. Populated when a
// session opens a simulation through arsflow.simulate.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]string // simulationID → sessionID
}

// NewSessionRegistry creates a new empty SessionRegistry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]string)}
}

// Register associates a simulation ID with a session ID.
// An existing mapping is overwritten (reconnect).
func (r *SessionRegistry) Register(simulationID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[simulationID] = sessionID
}

// SessionFor returns the session ID watching the given simulation, if any.
func (r *SessionRegistry) SessionFor(simulationID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.sessions[simulationID]
	return sid, ok
}

// Remove deletes all simulation mappings for the given session ID.
// Called when a session disconnects.
func (r *SessionRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for simID, sid := range r.sessions {
		if sid == sessionID {
			delete(r.sessions, simID)
		}
	}
}
