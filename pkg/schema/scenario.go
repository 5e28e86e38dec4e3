package schema

import (
	"encoding/json"
	"time"
)

// NodeType enumerates the kinds of nodes in an ARS call flow.
type NodeType string

const (
	NodeTypeStart    NodeType = "start"
	NodeTypeMessage  NodeType = "message"
	NodeTypeBranch   NodeType = "branch"
	NodeTypeTransfer NodeType = "transfer"
	NodeTypeEnd      NodeType = "end"
	NodeTypeInput    NodeType = "input"
)

// Valid reports whether t is a member of the closed node type enumeration.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeStart, NodeTypeMessage, NodeTypeBranch, NodeTypeTransfer, NodeTypeEnd, NodeTypeInput:
		return true
	}
	return false
}

// DefaultLabel returns the editor's default display name for a node type.
func (t NodeType) DefaultLabel() string {
	switch t {
	case NodeTypeStart:
		return "시작"
	case NodeTypeMessage:
		return "메시지"
	case NodeTypeBranch:
		return "분기"
	case NodeTypeTransfer:
		return "상담원 연결"
	case NodeTypeEnd:
		return "종료"
	case NodeTypeInput:
		return "입력"
	default:
		return string(t)
	}
}

// ScenarioStatus represents the lifecycle state of a scenario.
type ScenarioStatus string

const (
	ScenarioStatusDraft    ScenarioStatus = "draft"
	ScenarioStatusTesting  ScenarioStatus = "testing"
	ScenarioStatusActive   ScenarioStatus = "active"
	ScenarioStatusInactive ScenarioStatus = "inactive"
	ScenarioStatusArchived ScenarioStatus = "archived"
)

// Scenario is the top-level ARS flow aggregate. Nodes and connections are
// independently addressable resources under the scenario, not embedded
// documents; they are populated on full reads.
type Scenario struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Category    string         `json:"category,omitempty"`
	Version     string         `json:"version"` // dotted major.minor
	Status      ScenarioStatus `json:"status"`
	Metadata    map[string]any `json:"scenario_metadata,omitempty"`
	Nodes       []ScenarioNode `json:"nodes,omitempty"`
	Connections []Connection   `json:"connections,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ScenarioNode is one step of a call flow as exposed over the wire.
// Config is a type-dependent bag; decode it with DecodeConfig.
type ScenarioNode struct {
	NodeID    string          `json:"node_id"`
	NodeType  NodeType        `json:"node_type"`
	Name      string          `json:"name"`
	PositionX float64         `json:"position_x"`
	PositionY float64         `json:"position_y"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// Connection is a directed transition between two nodes of the same scenario.
// Condition, when set, is a CEL expression evaluated during simulation.
type Connection struct {
	ID           int64  `json:"id,omitempty"`
	SourceNodeID string `json:"source_node_id"`
	TargetNodeID string `json:"target_node_id"`
	Condition    string `json:"condition,omitempty"`
	Label        string `json:"label,omitempty"`
}

// ScenarioVersion is an immutable snapshot taken at deploy or on demand.
type ScenarioVersion struct {
	ScenarioID string          `json:"scenario_id"`
	Version    string          `json:"version"`
	Snapshot   json.RawMessage `json:"snapshot"` // full Scenario document
	Comment    string          `json:"comment,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
