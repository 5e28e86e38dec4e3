package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"arsflow/internal/graph"
	"arsflow/pkg/schema"
)

// LoadedScenario is a scenario fetched for editing: the header plus the node
// and edge sets mapped into editor shape.
type LoadedScenario struct {
	Scenario schema.Scenario
	Nodes    []graph.Node
	Edges    []graph.Edge
}

// LoadScenario fetches a scenario with its nodes and connections and maps
// them losslessly into editor shape. Edges get synthetic edge-{index} ids;
// the wire id is not meaningful to the editor.
func (c *Client) LoadScenario(ctx context.Context, scenarioID string) (*LoadedScenario, error) {
	var sc schema.Scenario
	if err := c.do(ctx, http.MethodGet, "/scenarios/"+scenarioID, nil, &sc); err != nil {
		return nil, err
	}

	loaded := &LoadedScenario{Scenario: sc}
	for _, n := range sc.Nodes {
		cfg, err := schema.DecodeConfig(n.NodeType, n.Config)
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeValidation,
				"decode config of node %q", n.NodeID).WithNode(n.NodeID).WithCause(err)
		}
		loaded.Nodes = append(loaded.Nodes, graph.Node{
			ID:       n.NodeID,
			Type:     n.NodeType,
			Label:    n.Name,
			Position: graph.Position{X: n.PositionX, Y: n.PositionY},
			Config:   cfg,
		})
	}
	for i, conn := range sc.Connections {
		loaded.Edges = append(loaded.Edges, graph.Edge{
			ID:        fmt.Sprintf("edge-%d", i),
			Source:    conn.SourceNodeID,
			Target:    conn.TargetNodeID,
			Condition: conn.Condition,
			Label:     conn.Label,
		})
	}
	return loaded, nil
}

// LoadIntoSession fetches a scenario and seeds an editing session with it.
func (c *Client) LoadIntoSession(ctx context.Context, scenarioID string, sess *graph.Session) (*LoadedScenario, error) {
	loaded, err := c.LoadScenario(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	sess.Load(loaded.Nodes, loaded.Edges)
	return loaded, nil
}

// SaveScenario persists an editing session with the delete-and-recreate
// strategy: delete every existing connection, delete every node present at
// load time, then POST the in-memory nodes and edges. Requests run strictly
// in sequence. A failed request does not halt or roll back the remainder;
// every per-request failure is collected into the returned error.
func (c *Client) SaveScenario(ctx context.Context, scenarioID string, sess *graph.Session) error {
	var failures []error

	var existing struct {
		Connections []schema.Connection `json:"connections"`
	}
	if err := c.do(ctx, http.MethodGet, "/scenarios/"+scenarioID+"/connections", nil, &existing); err != nil {
		failures = append(failures, fmt.Errorf("list connections: %w", err))
	}
	for _, conn := range existing.Connections {
		path := fmt.Sprintf("/scenarios/%s/connections/%d", scenarioID, conn.ID)
		if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
			failures = append(failures, fmt.Errorf("delete connection %d: %w", conn.ID, err))
		}
	}

	for _, nodeID := range sess.LoadedNodeIDs() {
		path := "/scenarios/" + scenarioID + "/nodes/" + nodeID
		if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
			failures = append(failures, fmt.Errorf("delete node %s: %w", nodeID, err))
		}
	}

	for _, n := range sess.Nodes() {
		raw, err := schema.EncodeConfig(n.Config)
		if err != nil {
			failures = append(failures, fmt.Errorf("encode config of node %s: %w", n.ID, err))
			continue
		}
		wire := schema.ScenarioNode{
			NodeID:    n.ID,
			NodeType:  n.Type,
			Name:      n.Label,
			PositionX: n.Position.X,
			PositionY: n.Position.Y,
			Config:    raw,
		}
		if err := c.do(ctx, http.MethodPost, "/scenarios/"+scenarioID+"/nodes", wire, nil); err != nil {
			failures = append(failures, fmt.Errorf("create node %s: %w", n.ID, err))
		}
	}

	for _, e := range sess.Edges() {
		wire := schema.Connection{
			SourceNodeID: e.Source,
			TargetNodeID: e.Target,
			Condition:    e.Condition,
			Label:        e.Label,
		}
		if err := c.do(ctx, http.MethodPost, "/scenarios/"+scenarioID+"/connections", wire, nil); err != nil {
			failures = append(failures, fmt.Errorf("create edge %s: %w", e.ID, err))
		}
	}

	return errors.Join(failures...)
}

// CreateScenario creates an empty scenario and returns it.
func (c *Client) CreateScenario(ctx context.Context, name, description, category string) (*schema.Scenario, error) {
	var sc schema.Scenario
	err := c.do(ctx, http.MethodPost, "/scenarios", map[string]any{
		"name":        name,
		"description": description,
		"category":    category,
	}, &sc)
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

// DeleteScenario removes a scenario and everything under it.
func (c *Client) DeleteScenario(ctx context.Context, scenarioID string) error {
	return c.do(ctx, http.MethodDelete, "/scenarios/"+scenarioID, nil, nil)
}

// ListScenarios returns scenario headers.
func (c *Client) ListScenarios(ctx context.Context) ([]schema.Scenario, error) {
	var out struct {
		Scenarios []schema.Scenario `json:"scenarios"`
	}
	if err := c.do(ctx, http.MethodGet, "/scenarios", nil, &out); err != nil {
		return nil, err
	}
	return out.Scenarios, nil
}
