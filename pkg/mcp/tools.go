package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"arsflow/internal/diagram"
	"arsflow/internal/store"
	"arsflow/pkg/schema"
	"arsflow/pkg/transfer"
)

// handleQuery lists scenarios based on filters.
func (s *ArsflowServer) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := mcp.ParseStringMap(req, "filter", nil)

	sf := store.ScenarioFilter{
		Limit: extractInt(filter, "limit", 50),
	}
	if status, ok := filter["status"].(string); ok && status != "" {
		st := schema.ScenarioStatus(status)
		sf.Status = &st
	}
	if category, ok := filter["category"].(string); ok {
		sf.Category = category
	}

	scenarios, err := s.store.ListScenarios(ctx, sf)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	return marshalResult(map[string]any{"scenarios": scenarios})
}

// handleGet fetches a scenario and renders it as the canonical document.
func (s *ArsflowServer) handleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scenarioID, err := req.RequireString("scenario_id")
	if err != nil {
		return mcp.NewToolResultError("scenario_id is required"), nil
	}

	sc, getErr := s.store.GetScenario(ctx, scenarioID)
	if getErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scenario lookup failed: %v", getErr)), nil
	}

	return marshalResult(map[string]any{
		"id":       sc.ID,
		"status":   sc.Status,
		"document": transfer.FromScenario(sc),
	})
}

// handleValidate runs the full validation pipeline on a document without
// persisting anything. Validation failures are a normal result, not a tool
// error; the caller gets the issue lists either way.
func (s *ArsflowServer) handleValidate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docRaw := mcp.ParseStringMap(req, "document", nil)
	if docRaw == nil {
		return mcp.NewToolResultError("document is required"), nil
	}

	data, marshalErr := json.Marshal(docRaw)
	if marshalErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid document: %v", marshalErr)), nil
	}

	_, result, _ := s.transfer.Import(data)
	return marshalResult(map[string]any{
		"valid":    result.Valid(),
		"errors":   result.Errors,
		"warnings": result.Warnings,
	})
}

// handleExport exports a scenario, optionally through a jq filter.
func (s *ArsflowServer) handleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scenarioID, err := req.RequireString("scenario_id")
	if err != nil {
		return mcp.NewToolResultError("scenario_id is required"), nil
	}
	filter := req.GetString("filter", "")

	sc, getErr := s.store.GetScenario(ctx, scenarioID)
	if getErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scenario lookup failed: %v", getErr)), nil
	}

	out, exportErr := s.transfer.ExportFiltered(ctx, sc, filter)
	if exportErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("export failed: %v", exportErr)), nil
	}
	return marshalResult(out)
}

// handleSimulate opens a simulation session on a scenario.
func (s *ArsflowServer) handleSimulate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scenarioID, err := req.RequireString("scenario_id")
	if err != nil {
		return mcp.NewToolResultError("scenario_id is required"), nil
	}

	sc, getErr := s.store.GetScenario(ctx, scenarioID)
	if getErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scenario lookup failed: %v", getErr)), nil
	}

	state, startErr := s.driver.Start(ctx, sc)
	if startErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("simulation start failed: %v", startErr)), nil
	}

	// Map the session so notifications about this simulation reach it.
	s.captureSession(ctx, state.SimulationID)

	return marshalResult(state)
}

// handleAction drives a running simulation session.
func (s *ArsflowServer) handleAction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	simulationID, err := req.RequireString("simulation_id")
	if err != nil {
		return mcp.NewToolResultError("simulation_id is required"), nil
	}
	actionName, err := req.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("action is required"), nil
	}

	if actionName == "status" {
		state, getErr := s.driver.Get(simulationID)
		if getErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("status query failed: %v", getErr)), nil
		}
		return marshalResult(state)
	}

	action := schema.SimulationAction{
		ActionType:      schema.ActionType(actionName),
		InputValue:      req.GetString("input_value", ""),
		ConditionChoice: req.GetString("condition_choice", ""),
	}

	state, applyErr := s.driver.Apply(ctx, simulationID, action)
	if applyErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("action failed: %v", applyErr)), nil
	}
	return marshalResult(state)
}

// handleDiagram renders a scenario graph in the requested format.
func (s *ArsflowServer) handleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scenarioID, err := req.RequireString("scenario_id")
	if err != nil {
		return mcp.NewToolResultError("scenario_id is required"), nil
	}
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError("format is required"), nil
	}
	if format != "ascii" && format != "mermaid" {
		return mcp.NewToolResultError("format must be ascii or mermaid"), nil
	}

	sc, getErr := s.store.GetScenario(ctx, scenarioID)
	if getErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scenario lookup failed: %v", getErr)), nil
	}

	// Overlay the simulation position when asked for.
	currentNodeID := ""
	if simulationID := req.GetString("simulation_id", ""); simulationID != "" {
		state, stateErr := s.driver.Get(simulationID)
		if stateErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("simulation lookup failed: %v", stateErr)), nil
		}
		currentNodeID = state.CurrentNodeID
	}

	model, buildErr := diagram.Build(sc, currentNodeID)
	if buildErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("diagram build failed: %v", buildErr)), nil
	}

	if format == "mermaid" {
		return mcp.NewToolResultText(diagram.RenderMermaid(model)), nil
	}
	return mcp.NewToolResultText(diagram.RenderASCII(model)), nil
}

// --- Internal helpers ---

// extractInt safely extracts an integer from a filter map.
func extractInt(filter map[string]any, key string, defaultVal int) int {
	if filter == nil {
		return defaultVal
	}
	v, ok := filter[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case string:
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

// captureSession maps a simulation ID to the current MCP session for notifications.
func (s *ArsflowServer) captureSession(ctx context.Context, simulationID string) {
	if session := server.ClientSessionFromContext(ctx); session != nil {
		s.sessions.Register(simulationID, session.SessionID())
	}
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
