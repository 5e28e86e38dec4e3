package client

import (
	"context"
	"net/http"

	"arsflow/pkg/schema"
)

// StartSimulation opens a simulation session on the server and returns its
// initial state. The state's AvailableActions is the complete set of legal
// next actions; the client never widens or reinterprets it.
func (c *Client) StartSimulation(ctx context.Context, scenarioID string) (*schema.SimulationState, error) {
	var state schema.SimulationState
	path := "/scenarios/" + scenarioID + "/simulation/start"
	if err := c.do(ctx, http.MethodPost, path, map[string]any{}, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// ExecuteAction advances a session. Illegal actions are rejected by the
// server with INVALID_ACTION; the client performs no legality check of its
// own beyond what AvailableActions already told it.
func (c *Client) ExecuteAction(ctx context.Context, simulationID string, action schema.SimulationAction) (*schema.SimulationState, error) {
	var state schema.SimulationState
	path := "/scenarios/simulation/" + simulationID + "/action"
	if err := c.do(ctx, http.MethodPost, path, action, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// GetSimulation fetches the current state of a session.
func (c *Client) GetSimulation(ctx context.Context, simulationID string) (*schema.SimulationState, error) {
	var state schema.SimulationState
	if err := c.do(ctx, http.MethodGet, "/scenarios/simulation/"+simulationID, nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// NodeAudio fetches the generated prompt audio of a node. A node without
// generated audio yields TTS_NOT_GENERATED, distinguishable from transport
// failures by code.
func (c *Client) NodeAudio(ctx context.Context, scenarioID, nodeID string) ([]byte, error) {
	return c.doRaw(ctx, "/scenarios/"+scenarioID+"/simulation/audio/"+nodeID)
}
