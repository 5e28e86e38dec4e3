package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arsflow/internal/expressions"
	"arsflow/internal/store"
	"arsflow/internal/validation"
	"arsflow/pkg/schema"
	"arsflow/pkg/transfer"
)

// --- Mock Store ---

type mockStore struct {
	store.Store // embed for unimplemented methods

	scenarios []*schema.Scenario
}

func (m *mockStore) GetScenario(_ context.Context, id string) (*schema.Scenario, error) {
	for _, sc := range m.scenarios {
		if sc.ID == id {
			return sc, nil
		}
	}
	return nil, schema.NewError(schema.ErrCodeNotFound, "scenario not found")
}

func (m *mockStore) ListScenarios(_ context.Context, filter store.ScenarioFilter) ([]*schema.Scenario, error) {
	result := make([]*schema.Scenario, 0)
	for _, sc := range m.scenarios {
		if filter.Status != nil && sc.Status != *filter.Status {
			continue
		}
		if filter.Category != "" && sc.Category != filter.Category {
			continue
		}
		result = append(result, sc)
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// --- Mock Driver ---

type mockDriver struct {
	startResult *schema.SimulationState
	startErr    error
	getResult   *schema.SimulationState
	getErr      error
	applyResult *schema.SimulationState
	applyErr    error

	lastAction schema.SimulationAction
	started    []*schema.Scenario
}

func (m *mockDriver) Start(_ context.Context, sc *schema.Scenario) (*schema.SimulationState, error) {
	m.started = append(m.started, sc)
	return m.startResult, m.startErr
}

func (m *mockDriver) Get(_ string) (*schema.SimulationState, error) {
	return m.getResult, m.getErr
}

func (m *mockDriver) Apply(_ context.Context, _ string, action schema.SimulationAction) (*schema.SimulationState, error) {
	m.lastAction = action
	return m.applyResult, m.applyErr
}

// --- Helpers ---

func newTestServer(t *testing.T, ms *mockStore, driver *mockDriver) *ArsflowServer {
	t.Helper()
	cel, err := expressions.NewCELEngine()
	require.NoError(t, err)
	v, err := validation.NewScenarioValidator(cel)
	require.NoError(t, err)

	return NewArsflowServer(ArsflowServerDeps{
		Store:    ms,
		Driver:   driver,
		Transfer: transfer.NewManager(v, expressions.NewGoJQEngine()),
	})
}

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

func testScenario() *schema.Scenario {
	return &schema.Scenario{
		ID:       "sc-1",
		Name:     "주문 조회",
		Category: "commerce",
		Version:  "1.0",
		Status:   schema.ScenarioStatusDraft,
		Nodes: []schema.ScenarioNode{
			{NodeID: "start-1", NodeType: schema.NodeTypeStart, Name: "시작"},
			{NodeID: "message-2", NodeType: schema.NodeTypeMessage, Name: "안내",
				Config: json.RawMessage(`{"text":"주문 조회 서비스입니다."}`)},
			{NodeID: "end-3", NodeType: schema.NodeTypeEnd, Name: "종료"},
		},
		Connections: []schema.Connection{
			{SourceNodeID: "start-1", TargetNodeID: "message-2"},
			{SourceNodeID: "message-2", TargetNodeID: "end-3"},
		},
	}
}

// --- Tests ---

func TestQueryTool(t *testing.T) {
	ms := &mockStore{scenarios: []*schema.Scenario{
		{ID: "sc-1", Name: "주문 조회", Status: schema.ScenarioStatusActive, Category: "commerce"},
		{ID: "sc-2", Name: "배송 안내", Status: schema.ScenarioStatusDraft, Category: "commerce"},
		{ID: "sc-3", Name: "상담 예약", Status: schema.ScenarioStatusActive, Category: "support"},
	}}
	s := newTestServer(t, ms, &mockDriver{})

	// Query all.
	result, err := s.handleQuery(context.Background(), buildRequest("arsflow.query", map[string]any{}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out struct {
		Scenarios []schema.Scenario `json:"scenarios"`
	}
	unmarshalResult(t, result, &out)
	assert.Len(t, out.Scenarios, 3)

	// Query with status filter.
	result, err = s.handleQuery(context.Background(), buildRequest("arsflow.query", map[string]any{
		"filter": map[string]any{"status": "active"},
	}))
	require.NoError(t, err)
	unmarshalResult(t, result, &out)
	assert.Len(t, out.Scenarios, 2)

	// Category filter with limit.
	result, err = s.handleQuery(context.Background(), buildRequest("arsflow.query", map[string]any{
		"filter": map[string]any{"category": "commerce", "limit": 1},
	}))
	require.NoError(t, err)
	unmarshalResult(t, result, &out)
	assert.Len(t, out.Scenarios, 1)
}

func TestGetTool(t *testing.T) {
	ms := &mockStore{scenarios: []*schema.Scenario{testScenario()}}
	s := newTestServer(t, ms, &mockDriver{})

	result, err := s.handleGet(context.Background(), buildRequest("arsflow.get", map[string]any{
		"scenario_id": "sc-1",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out struct {
		ID       string                  `json:"id"`
		Document schema.ScenarioDocument `json:"document"`
	}
	unmarshalResult(t, result, &out)
	assert.Equal(t, "sc-1", out.ID)
	assert.Equal(t, "주문 조회", out.Document.Scenario.Name)
	assert.Len(t, out.Document.Nodes, 3)
	assert.Len(t, out.Document.Edges, 2)
}

func TestGetToolNotFound(t *testing.T) {
	s := newTestServer(t, &mockStore{}, &mockDriver{})

	result, err := s.handleGet(context.Background(), buildRequest("arsflow.get", map[string]any{
		"scenario_id": "missing",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestGetToolMissingID(t *testing.T) {
	s := newTestServer(t, &mockStore{}, &mockDriver{})

	result, err := s.handleGet(context.Background(), buildRequest("arsflow.get", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestValidateTool(t *testing.T) {
	s := newTestServer(t, &mockStore{}, &mockDriver{})

	result, err := s.handleValidate(context.Background(), buildRequest("arsflow.validate", map[string]any{
		"document": map[string]any{
			"scenario": map[string]any{"name": "테스트"},
			"nodes": []any{
				map[string]any{"id": "start-1", "type": "start"},
				map[string]any{"id": "end-2", "type": "end"},
			},
			"edges": []any{
				map[string]any{"source": "start-1", "target": "end-2"},
			},
		},
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out struct {
		Valid  bool                     `json:"valid"`
		Errors []schema.ValidationIssue `json:"errors"`
	}
	unmarshalResult(t, result, &out)
	assert.True(t, out.Valid)
	assert.Empty(t, out.Errors)
}

// An invalid document is a normal tool result carrying the issue list,
// not a tool error.
func TestValidateToolInvalidDocument(t *testing.T) {
	s := newTestServer(t, &mockStore{}, &mockDriver{})

	result, err := s.handleValidate(context.Background(), buildRequest("arsflow.validate", map[string]any{
		"document": map[string]any{
			"scenario": map[string]any{"name": "테스트"},
			"nodes": []any{
				map[string]any{"id": "end-1", "type": "end"},
			},
			"edges": []any{},
		},
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out struct {
		Valid  bool                     `json:"valid"`
		Errors []schema.ValidationIssue `json:"errors"`
	}
	unmarshalResult(t, result, &out)
	assert.False(t, out.Valid)
	assert.NotEmpty(t, out.Errors)
}

func TestValidateToolMissingDocument(t *testing.T) {
	s := newTestServer(t, &mockStore{}, &mockDriver{})

	result, err := s.handleValidate(context.Background(), buildRequest("arsflow.validate", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestExportTool(t *testing.T) {
	ms := &mockStore{scenarios: []*schema.Scenario{testScenario()}}
	s := newTestServer(t, ms, &mockDriver{})

	result, err := s.handleExport(context.Background(), buildRequest("arsflow.export", map[string]any{
		"scenario_id": "sc-1",
		"filter":      ".nodes | length",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "3", extractText(t, result))

	// No filter returns the whole document.
	result, err = s.handleExport(context.Background(), buildRequest("arsflow.export", map[string]any{
		"scenario_id": "sc-1",
	}))
	require.NoError(t, err)
	var doc map[string]any
	unmarshalResult(t, result, &doc)
	assert.Contains(t, doc, "scenario")
}

func TestSimulateTool(t *testing.T) {
	ms := &mockStore{scenarios: []*schema.Scenario{testScenario()}}
	driver := &mockDriver{
		startResult: &schema.SimulationState{
			SimulationID:     "sim-1",
			ScenarioID:       "sc-1",
			Status:           schema.SimulationStatusRunning,
			AvailableActions: []schema.ActionType{schema.ActionNext, schema.ActionStop},
		},
	}
	s := newTestServer(t, ms, driver)

	result, err := s.handleSimulate(context.Background(), buildRequest("arsflow.simulate", map[string]any{
		"scenario_id": "sc-1",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var state schema.SimulationState
	unmarshalResult(t, result, &state)
	assert.Equal(t, "sim-1", state.SimulationID)
	assert.True(t, state.Allows(schema.ActionNext))

	// The driver received the stored scenario.
	require.Len(t, driver.started, 1)
	assert.Equal(t, "sc-1", driver.started[0].ID)
}

func TestSimulateToolUnknownScenario(t *testing.T) {
	s := newTestServer(t, &mockStore{}, &mockDriver{})

	result, err := s.handleSimulate(context.Background(), buildRequest("arsflow.simulate", map[string]any{
		"scenario_id": "missing",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestActionTool(t *testing.T) {
	driver := &mockDriver{
		applyResult: &schema.SimulationState{
			SimulationID: "sim-1",
			Status:       schema.SimulationStatusRunning,
		},
	}
	s := newTestServer(t, &mockStore{}, driver)

	result, err := s.handleAction(context.Background(), buildRequest("arsflow.action", map[string]any{
		"simulation_id": "sim-1",
		"action":        "input",
		"input_value":   "1234",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	assert.Equal(t, schema.ActionInput, driver.lastAction.ActionType)
	assert.Equal(t, "1234", driver.lastAction.InputValue)
}

func TestActionToolStatus(t *testing.T) {
	driver := &mockDriver{
		getResult: &schema.SimulationState{
			SimulationID: "sim-1",
			Status:       schema.SimulationStatusCompleted,
			IsCompleted:  true,
		},
	}
	s := newTestServer(t, &mockStore{}, driver)

	result, err := s.handleAction(context.Background(), buildRequest("arsflow.action", map[string]any{
		"simulation_id": "sim-1",
		"action":        "status",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var state schema.SimulationState
	unmarshalResult(t, result, &state)
	assert.True(t, state.IsCompleted)
	// Status never goes through Apply.
	assert.Empty(t, driver.lastAction.ActionType)
}

func TestActionToolRejected(t *testing.T) {
	driver := &mockDriver{
		applyErr: schema.NewError(schema.ErrCodeInvalidAction, "action next is not available"),
	}
	s := newTestServer(t, &mockStore{}, driver)

	result, err := s.handleAction(context.Background(), buildRequest("arsflow.action", map[string]any{
		"simulation_id": "sim-1",
		"action":        "next",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestActionToolMissingParams(t *testing.T) {
	s := newTestServer(t, &mockStore{}, &mockDriver{})

	// Missing simulation_id.
	result, err := s.handleAction(context.Background(), buildRequest("arsflow.action", map[string]any{
		"action": "next",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	// Missing action.
	result, err = s.handleAction(context.Background(), buildRequest("arsflow.action", map[string]any{
		"simulation_id": "sim-1",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestDiagramTool(t *testing.T) {
	ms := &mockStore{scenarios: []*schema.Scenario{testScenario()}}
	driver := &mockDriver{
		getResult: &schema.SimulationState{
			SimulationID:  "sim-1",
			CurrentNodeID: "message-2",
		},
	}
	s := newTestServer(t, ms, driver)

	result, err := s.handleDiagram(context.Background(), buildRequest("arsflow.diagram", map[string]any{
		"scenario_id": "sc-1",
		"format":      "mermaid",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	text := extractText(t, result)
	assert.Contains(t, text, "graph TD")
	assert.Contains(t, text, "start_1")

	// Overlay the simulation position.
	result, err = s.handleDiagram(context.Background(), buildRequest("arsflow.diagram", map[string]any{
		"scenario_id":   "sc-1",
		"format":        "mermaid",
		"simulation_id": "sim-1",
	}))
	require.NoError(t, err)
	assert.Contains(t, extractText(t, result), "class message_2 current")

	// Unknown format rejected.
	result, err = s.handleDiagram(context.Background(), buildRequest("arsflow.diagram", map[string]any{
		"scenario_id": "sc-1",
		"format":      "png",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

// --- Test helpers ---

func extractText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcp.GetTextFromContent(result.Content[0])
}

func unmarshalResult(t *testing.T, result *mcp.CallToolResult, target any) {
	t.Helper()
	text := extractText(t, result)
	require.NoError(t, json.Unmarshal([]byte(text), target))
}
