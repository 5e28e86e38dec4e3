package simulation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arsflow/internal/expressions"
	"arsflow/internal/streaming"
	"arsflow/pkg/schema"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	cel, err := expressions.NewCELEngine()
	require.NoError(t, err)
	return NewRunner(cel, expressions.NewExprEngine(), nil, nil)
}

// orderScenario: start → greeting → menu(1: lookup, 2: transfer) → ... → end
func orderScenario() *schema.Scenario {
	return &schema.Scenario{
		ID:      "sc-order",
		Name:    "주문 조회",
		Version: "1.0",
		Nodes: []schema.ScenarioNode{
			{NodeID: "start-1", NodeType: schema.NodeTypeStart},
			{NodeID: "message-2", NodeType: schema.NodeTypeMessage,
				Config: json.RawMessage(`{"text":"환영합니다"}`)},
			{NodeID: "branch-3", NodeType: schema.NodeTypeBranch,
				Config: json.RawMessage(`{"branches":[{"key":"1","label":"주문 조회","target":"input-4"},{"key":"2","label":"상담원 연결","target":"transfer-6"}]}`)},
			{NodeID: "input-4", NodeType: schema.NodeTypeInput,
				Config: json.RawMessage(`{"input_type":"digits","input_validation":"len(value) == 4"}`)},
			{NodeID: "message-5", NodeType: schema.NodeTypeMessage,
				Config: json.RawMessage(`{"text":"주문번호 ${{inputs.input-4}} 조회 결과입니다"}`)},
			{NodeID: "transfer-6", NodeType: schema.NodeTypeTransfer,
				Config: json.RawMessage(`{"transfer_type":"agent"}`)},
			{NodeID: "end-7", NodeType: schema.NodeTypeEnd},
		},
		Connections: []schema.Connection{
			{ID: 1, SourceNodeID: "start-1", TargetNodeID: "message-2"},
			{ID: 2, SourceNodeID: "message-2", TargetNodeID: "branch-3"},
			{ID: 3, SourceNodeID: "input-4", TargetNodeID: "message-5"},
			{ID: 4, SourceNodeID: "message-5", TargetNodeID: "end-7"},
			{ID: 5, SourceNodeID: "transfer-6", TargetNodeID: "end-7"},
		},
	}
}

func TestRunner_StartPositionsAtStartNode(t *testing.T) {
	r := newTestRunner(t)

	state, err := r.Start(context.Background(), orderScenario())
	require.NoError(t, err)
	assert.NotEmpty(t, state.SimulationID)
	assert.Equal(t, "start-1", state.CurrentNodeID)
	assert.Equal(t, schema.SimulationStatusRunning, state.Status)
	assert.False(t, state.IsCompleted)
	assert.ElementsMatch(t,
		[]schema.ActionType{schema.ActionNext, schema.ActionRestart, schema.ActionStop},
		state.AvailableActions)
}

func TestRunner_StartRequiresExactlyOneStartNode(t *testing.T) {
	r := newTestRunner(t)

	sc := orderScenario()
	sc.Nodes = sc.Nodes[1:]
	_, err := r.Start(context.Background(), sc)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeSimulation, schema.CodeOf(err))

	sc2 := orderScenario()
	sc2.Nodes = append(sc2.Nodes, schema.ScenarioNode{NodeID: "start-9", NodeType: schema.NodeTypeStart})
	_, err = r.Start(context.Background(), sc2)
	require.Error(t, err)
}

func TestRunner_FullWalkToCompletion(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	state, err := r.Start(ctx, orderScenario())
	require.NoError(t, err)
	id := state.SimulationID

	state, err = r.Apply(ctx, id, schema.SimulationAction{ActionType: schema.ActionNext})
	require.NoError(t, err)
	assert.Equal(t, "message-2", state.CurrentNodeID)

	state, err = r.Apply(ctx, id, schema.SimulationAction{ActionType: schema.ActionNext})
	require.NoError(t, err)
	assert.Equal(t, "branch-3", state.CurrentNodeID)
	assert.True(t, state.Allows(schema.ActionConditionSelect))
	assert.False(t, state.Allows(schema.ActionNext))

	state, err = r.Apply(ctx, id, schema.SimulationAction{
		ActionType: schema.ActionConditionSelect, ConditionChoice: "1"})
	require.NoError(t, err)
	assert.Equal(t, "input-4", state.CurrentNodeID)

	state, err = r.Apply(ctx, id, schema.SimulationAction{
		ActionType: schema.ActionInput, InputValue: "5678"})
	require.NoError(t, err)
	assert.Equal(t, "message-5", state.CurrentNodeID)

	// Prompt placeholders resolve against the recorded input.
	cfg, err := schema.DecodeConfig(schema.NodeTypeMessage, state.NodeData.Config)
	require.NoError(t, err)
	assert.Equal(t, "주문번호 5678 조회 결과입니다", cfg.(*schema.MessageConfig).Text)

	state, err = r.Apply(ctx, id, schema.SimulationAction{ActionType: schema.ActionNext})
	require.NoError(t, err)
	assert.Equal(t, "end-7", state.CurrentNodeID)
	assert.True(t, state.IsCompleted)
	assert.Equal(t, schema.SimulationStatusCompleted, state.Status)
	assert.Equal(t, []schema.ActionType{schema.ActionRestart}, state.AvailableActions)
}

func TestRunner_InvalidInputKeepsSessionOnNode(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	state, err := r.Start(ctx, orderScenario())
	require.NoError(t, err)
	id := state.SimulationID

	_, err = r.Apply(ctx, id, schema.SimulationAction{ActionType: schema.ActionNext})
	require.NoError(t, err)
	_, err = r.Apply(ctx, id, schema.SimulationAction{ActionType: schema.ActionNext})
	require.NoError(t, err)
	_, err = r.Apply(ctx, id, schema.SimulationAction{
		ActionType: schema.ActionConditionSelect, ConditionChoice: "1"})
	require.NoError(t, err)

	// Too short for the len(value) == 4 rule.
	_, err = r.Apply(ctx, id, schema.SimulationAction{
		ActionType: schema.ActionInput, InputValue: "12"})
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))

	state, err = r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "input-4", state.CurrentNodeID, "rejected input must not advance the session")

	// Retry with a valid value succeeds.
	state, err = r.Apply(ctx, id, schema.SimulationAction{
		ActionType: schema.ActionInput, InputValue: "1234"})
	require.NoError(t, err)
	assert.Equal(t, "message-5", state.CurrentNodeID)
}

func TestRunner_WrongActionForNodeRejected(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	state, err := r.Start(ctx, orderScenario())
	require.NoError(t, err)

	_, err = r.Apply(ctx, state.SimulationID, schema.SimulationAction{
		ActionType: schema.ActionInput, InputValue: "1"})
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeInvalidAction, schema.CodeOf(err))
}

func TestRunner_UnknownBranchChoiceRejected(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	state, err := r.Start(ctx, orderScenario())
	require.NoError(t, err)
	id := state.SimulationID

	_, err = r.Apply(ctx, id, schema.SimulationAction{ActionType: schema.ActionNext})
	require.NoError(t, err)
	_, err = r.Apply(ctx, id, schema.SimulationAction{ActionType: schema.ActionNext})
	require.NoError(t, err)

	_, err = r.Apply(ctx, id, schema.SimulationAction{
		ActionType: schema.ActionConditionSelect, ConditionChoice: "9"})
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeInvalidAction, schema.CodeOf(err))
}

func TestRunner_ConditionedConnections(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	sc := &schema.Scenario{
		ID: "sc-cond", Name: "조건 분기", Version: "1.0",
		Nodes: []schema.ScenarioNode{
			{NodeID: "start-1", NodeType: schema.NodeTypeStart},
			{NodeID: "input-2", NodeType: schema.NodeTypeInput,
				Config: json.RawMessage(`{"input_type":"digits"}`)},
			{NodeID: "message-3", NodeType: schema.NodeTypeMessage,
				Config: json.RawMessage(`{"text":"VIP 고객님 환영합니다"}`)},
			{NodeID: "message-4", NodeType: schema.NodeTypeMessage,
				Config: json.RawMessage(`{"text":"일반 상담입니다"}`)},
			{NodeID: "end-5", NodeType: schema.NodeTypeEnd},
		},
		Connections: []schema.Connection{
			{ID: 1, SourceNodeID: "start-1", TargetNodeID: "input-2"},
			{ID: 2, SourceNodeID: "input-2", TargetNodeID: "message-3",
				Condition: `inputs["input-2"] == "7777"`},
			{ID: 3, SourceNodeID: "input-2", TargetNodeID: "message-4"},
			{ID: 4, SourceNodeID: "message-3", TargetNodeID: "end-5"},
			{ID: 5, SourceNodeID: "message-4", TargetNodeID: "end-5"},
		},
	}

	state, err := r.Start(ctx, sc)
	require.NoError(t, err)
	id := state.SimulationID

	_, err = r.Apply(ctx, id, schema.SimulationAction{ActionType: schema.ActionNext})
	require.NoError(t, err)

	state, err = r.Apply(ctx, id, schema.SimulationAction{
		ActionType: schema.ActionInput, InputValue: "7777"})
	require.NoError(t, err)
	assert.Equal(t, "message-3", state.CurrentNodeID, "true condition wins over the default edge")
}

func TestRunner_StopThenRestart(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	state, err := r.Start(ctx, orderScenario())
	require.NoError(t, err)
	id := state.SimulationID

	state, err = r.Apply(ctx, id, schema.SimulationAction{ActionType: schema.ActionStop})
	require.NoError(t, err)
	assert.Equal(t, schema.SimulationStatusStopped, state.Status)
	assert.Equal(t, []schema.ActionType{schema.ActionRestart}, state.AvailableActions)

	// Anything but restart is rejected on a stopped session.
	_, err = r.Apply(ctx, id, schema.SimulationAction{ActionType: schema.ActionNext})
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeInvalidAction, schema.CodeOf(err))

	state, err = r.Apply(ctx, id, schema.SimulationAction{ActionType: schema.ActionRestart})
	require.NoError(t, err)
	assert.Equal(t, schema.SimulationStatusRunning, state.Status)
	assert.Equal(t, "start-1", state.CurrentNodeID)
	assert.Empty(t, state.SessionData)
}

func TestRunner_DeadEndReported(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	sc := &schema.Scenario{
		ID: "sc-dead", Name: "t", Version: "1.0",
		Nodes: []schema.ScenarioNode{
			{NodeID: "start-1", NodeType: schema.NodeTypeStart},
		},
	}
	state, err := r.Start(ctx, sc)
	require.NoError(t, err)

	_, err = r.Apply(ctx, state.SimulationID, schema.SimulationAction{ActionType: schema.ActionNext})
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeSimulation, schema.CodeOf(err))
}

func TestRunner_PublishesLifecycleEvents(t *testing.T) {
	cel, err := expressions.NewCELEngine()
	require.NoError(t, err)
	hub := streaming.NewMemoryHub()
	r := NewRunner(cel, expressions.NewExprEngine(), hub, nil)
	ctx := context.Background()

	ch, cancel, err := hub.Subscribe(ctx, streaming.EventFilter{ScenarioID: "sc-order"})
	require.NoError(t, err)
	defer cancel()

	state, err := r.Start(ctx, orderScenario())
	require.NoError(t, err)
	_, err = r.Apply(ctx, state.SimulationID, schema.SimulationAction{ActionType: schema.ActionNext})
	require.NoError(t, err)

	started := <-ch
	assert.Equal(t, schema.EventSimulationStarted, started.EventType)
	assert.Equal(t, state.SimulationID, started.SimulationID)
	advanced := <-ch
	assert.Equal(t, schema.EventSimulationAdvanced, advanced.EventType)
	assert.Equal(t, "message-2", advanced.NodeID)
}

func TestRunner_GetUnknownSimulation(t *testing.T) {
	r := newTestRunner(t)
	_, err := r.Get("missing")
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeNotFound, schema.CodeOf(err))
}
