package streaming

import "context"

// StreamEvent is a real-time event emitted by the editor, simulator, and
// TTS worker.
type StreamEvent struct {
	ScenarioID   string `json:"scenario_id,omitempty"`
	SimulationID string `json:"simulation_id,omitempty"`
	NodeID       string `json:"node_id,omitempty"`
	EventType    string `json:"event_type"`
	Payload      any    `json:"payload,omitempty"`
}

// EventFilter specifies which events a subscriber wants to receive.
type EventFilter struct {
	ScenarioID   string   `json:"scenario_id,omitempty"`
	SimulationID string   `json:"simulation_id,omitempty"`
	EventTypes   []string `json:"event_types,omitempty"`
}

// EventHub provides pub/sub for real-time events.
type EventHub interface {
	Publish(ctx context.Context, event StreamEvent) error
	Subscribe(ctx context.Context, filter EventFilter) (<-chan StreamEvent, func(), error)
}
