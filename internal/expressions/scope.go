package expressions

import (
	"sync"
)

// SessionScope accumulates the variables visible to conditions and prompts
// over the life of one simulation session. It enforces:
//   - Scenario metadata is immutable after init (frozen on construction).
//   - Caller inputs are recorded per input node; revisiting a node (retry
//     loops) overwrites the previous entry, last answer wins.
//   - Snapshots handed to evaluators are copies; evaluation never mutates
//     live session state.
type SessionScope struct {
	mu       sync.RWMutex
	session  map[string]any // mutable session variables
	inputs   map[string]any // input node id -> last caller answer
	scenario map[string]any // scenario metadata (immutable after init)
}

// NewSessionScope creates a SessionScope seeded with scenario metadata and
// optional initial session variables. Both maps are deep-copied.
func NewSessionScope(scenario, session map[string]any) *SessionScope {
	s := &SessionScope{
		session:  deepCopyMap(session),
		inputs:   make(map[string]any),
		scenario: deepCopyMap(scenario),
	}
	if s.session == nil {
		s.session = make(map[string]any)
	}
	return s
}

// RecordInput stores the caller's answer for an input node. The value is
// deep-copied at insertion; later mutation of the original does not leak in.
func (s *SessionScope) RecordInput(nodeID string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs[nodeID] = deepCopyAny(value)
}

// SetVar sets a session variable.
func (s *SessionScope) SetVar(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session[key] = deepCopyAny(value)
}

// EvalData builds the data map handed to the CEL engine. All maps are copies
// and safe for concurrent use. The node map describes the node the simulation
// is currently leaving.
func (s *SessionScope) EvalData(node map[string]any) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"session":  deepCopyMap(s.session),
		"inputs":   deepCopyMap(s.inputs),
		"scenario": s.scenario, // frozen at init
		"node":     node,
	}
}

// PromptData builds the scope handed to the PromptRenderer.
func (s *SessionScope) PromptData() *PromptScope {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &PromptScope{
		Session:  deepCopyMap(s.session),
		Inputs:   deepCopyMap(s.inputs),
		Scenario: s.scenario,
	}
}

// SessionData returns a copy of the current session variables, for persisting
// into the simulation state returned to clients.
func (s *SessionScope) SessionData() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopyMap(s.session)
}

// Inputs returns a copy of all recorded caller inputs.
func (s *SessionScope) Inputs() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopyMap(s.inputs)
}

// --- Deep copy utilities ---

// deepCopyMap creates a deep copy of a map[string]any.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = deepCopyAny(v)
	}
	return cp
}

// deepCopyAny recursively deep-copies a value.
// Handles maps, slices, and primitives (which are inherently immutable).
func deepCopyAny(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cp := make([]any, len(val))
		for i, item := range val {
			cp[i] = deepCopyAny(item)
		}
		return cp
	default:
		// Primitives (string, float64, bool, nil, int, int64) are value types.
		return v
	}
}
