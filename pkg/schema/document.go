package schema

import "encoding/json"

// ScenarioDocument is the client-side import/export format: the scenario
// header plus the full node and edge sets in editor shape. Documents are
// validated before import; see internal/validation.
type ScenarioDocument struct {
	Scenario DocumentScenario `json:"scenario"`
	Nodes    []DocumentNode   `json:"nodes"`
	Edges    []DocumentEdge   `json:"edges"`
}

// DocumentScenario is the scenario header carried in a document.
type DocumentScenario struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Category    string         `json:"category,omitempty"`
	Version     string         `json:"version,omitempty"`
	Metadata    map[string]any `json:"scenario_metadata,omitempty"`
}

// DocumentNode is a node in editor shape: nested position, display label.
type DocumentNode struct {
	ID       string          `json:"id"`
	Type     NodeType        `json:"type"`
	Label    string          `json:"label,omitempty"`
	Position DocumentPoint   `json:"position"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// DocumentPoint is an x/y canvas coordinate.
type DocumentPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DocumentEdge is an edge in editor shape.
type DocumentEdge struct {
	ID        string `json:"id,omitempty"`
	Source    string `json:"source"`
	Target    string `json:"target"`
	Condition string `json:"condition,omitempty"`
	Label     string `json:"label,omitempty"`
}
