package schema

import "time"

// ActionType enumerates the actions a simulation session accepts.
type ActionType string

const (
	ActionNext            ActionType = "next"
	ActionInput           ActionType = "input"
	ActionConditionSelect ActionType = "condition_select"
	ActionRestart         ActionType = "restart"
	ActionStop            ActionType = "stop"
)

// SimulationStatus represents the lifecycle state of a simulation session.
type SimulationStatus string

const (
	SimulationStatusRunning   SimulationStatus = "running"
	SimulationStatusCompleted SimulationStatus = "completed"
	SimulationStatusStopped   SimulationStatus = "stopped"
	SimulationStatusExpired   SimulationStatus = "expired"
)

// SimulationState is the server-computed view of a session after start or
// after an action. Clients render it verbatim: the set of legal actions is
// AvailableActions and nothing else, and IsCompleted is authoritative.
type SimulationState struct {
	SimulationID     string           `json:"simulation_id"`
	ScenarioID       string           `json:"scenario_id"`
	CurrentNodeID    string           `json:"current_node_id"`
	NodeData         *ScenarioNode    `json:"node_data,omitempty"`
	AvailableActions []ActionType     `json:"available_actions"`
	Status           SimulationStatus `json:"status"`
	SessionData      map[string]any   `json:"session_data,omitempty"`
	IsCompleted      bool             `json:"is_completed"`
	StartedAt        time.Time        `json:"started_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// SimulationAction is the client request advancing a session.
type SimulationAction struct {
	ActionType      ActionType `json:"action_type"`
	InputValue      string     `json:"input_value,omitempty"`
	ConditionChoice string     `json:"condition_choice,omitempty"`
}

// Allows reports whether the state currently offers the given action.
func (s *SimulationState) Allows(a ActionType) bool {
	for _, av := range s.AvailableActions {
		if av == a {
			return true
		}
	}
	return false
}
