package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arsflow/pkg/schema"
)

func newTestStore(t *testing.T) *LibSQLStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	s, err := NewLibSQLStore("file:" + dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = s.Close()
		_ = os.RemoveAll(dir)
	})
	return s
}

func seedScenario(t *testing.T, s *LibSQLStore) *schema.Scenario {
	t.Helper()
	sc := &schema.Scenario{
		ID:      uuid.New().String(),
		Name:    "주문 조회",
		Version: "1.0",
		Status:  schema.ScenarioStatusDraft,
	}
	require.NoError(t, s.CreateScenario(context.Background(), sc))
	return sc
}

// --- Scenario tests ---

func TestCreateAndGetScenario(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sc := &schema.Scenario{
		ID:       uuid.New().String(),
		Name:     "잔액 조회",
		Category: "banking",
		Version:  "1.0",
		Status:   schema.ScenarioStatusDraft,
		Metadata: map[string]any{"owner": "cs-team"},
	}
	require.NoError(t, s.CreateScenario(ctx, sc))

	got, err := s.GetScenario(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, "잔액 조회", got.Name)
	assert.Equal(t, "banking", got.Category)
	assert.Equal(t, schema.ScenarioStatusDraft, got.Status)
	assert.Equal(t, "cs-team", got.Metadata["owner"])
	assert.Empty(t, got.Nodes)
}

func TestGetScenario_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetScenario(context.Background(), "nonexistent")
	require.Error(t, err)
	flowErr, ok := err.(*schema.FlowError)
	require.True(t, ok)
	assert.Equal(t, schema.ErrCodeNotFound, flowErr.Code)
}

func TestUpdateScenario(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sc := seedScenario(t, s)

	name := "주문 조회 v2"
	status := schema.ScenarioStatusActive
	require.NoError(t, s.UpdateScenario(ctx, sc.ID, ScenarioUpdate{Name: &name, Status: &status}))

	got, err := s.GetScenario(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, "주문 조회 v2", got.Name)
	assert.Equal(t, schema.ScenarioStatusActive, got.Status)
}

func TestListScenarios_FilterByStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedScenario(t, s)
	active := seedScenario(t, s)
	status := schema.ScenarioStatusActive
	require.NoError(t, s.UpdateScenario(ctx, active.ID, ScenarioUpdate{Status: &status}))

	got, err := s.ListScenarios(ctx, ScenarioFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, active.ID, got[0].ID)
}

func TestDeleteScenario_CascadesChildren(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sc := seedScenario(t, s)

	require.NoError(t, s.CreateNode(ctx, sc.ID, &schema.ScenarioNode{
		NodeID: "start-1", NodeType: schema.NodeTypeStart,
	}))
	require.NoError(t, s.CreateNode(ctx, sc.ID, &schema.ScenarioNode{
		NodeID: "end-2", NodeType: schema.NodeTypeEnd,
	}))
	require.NoError(t, s.CreateConnection(ctx, sc.ID, &schema.Connection{
		SourceNodeID: "start-1", TargetNodeID: "end-2",
	}))

	require.NoError(t, s.DeleteScenario(ctx, sc.ID))

	nodes, err := s.ListNodes(ctx, sc.ID)
	require.NoError(t, err)
	assert.Empty(t, nodes)
	conns, err := s.ListConnections(ctx, sc.ID)
	require.NoError(t, err)
	assert.Empty(t, conns)
}

// --- Node tests ---

func TestCreateNode_DuplicateConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sc := seedScenario(t, s)

	n := &schema.ScenarioNode{NodeID: "message-1", NodeType: schema.NodeTypeMessage,
		Config: json.RawMessage(`{"text":"환영합니다"}`)}
	require.NoError(t, s.CreateNode(ctx, sc.ID, n))

	err := s.CreateNode(ctx, sc.ID, n)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeConflict, schema.CodeOf(err))
}

func TestNodeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sc := seedScenario(t, s)

	require.NoError(t, s.CreateNode(ctx, sc.ID, &schema.ScenarioNode{
		NodeID: "branch-1", NodeType: schema.NodeTypeBranch, Name: "분기",
		PositionX: 120.5, PositionY: -40,
		Config: json.RawMessage(`{"branches":[{"key":"1","label":"조회"}]}`),
	}))

	nodes, err := s.ListNodes(ctx, sc.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, schema.NodeTypeBranch, nodes[0].NodeType)
	assert.Equal(t, 120.5, nodes[0].PositionX)
	assert.JSONEq(t, `{"branches":[{"key":"1","label":"조회"}]}`, string(nodes[0].Config))
}

func TestDeleteAllNodes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sc := seedScenario(t, s)

	for _, id := range []string{"start-1", "message-2", "end-3"} {
		require.NoError(t, s.CreateNode(ctx, sc.ID, &schema.ScenarioNode{
			NodeID: id, NodeType: schema.NodeTypeMessage,
		}))
	}
	require.NoError(t, s.DeleteAllNodes(ctx, sc.ID))

	nodes, err := s.ListNodes(ctx, sc.ID)
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

// --- Connection tests ---

func TestCreateConnection_AssignsID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sc := seedScenario(t, s)

	c1 := &schema.Connection{SourceNodeID: "start-1", TargetNodeID: "message-2"}
	c2 := &schema.Connection{SourceNodeID: "message-2", TargetNodeID: "end-3",
		Condition: `inputs["input-1"] == "1"`, Label: "조회"}
	require.NoError(t, s.CreateConnection(ctx, sc.ID, c1))
	require.NoError(t, s.CreateConnection(ctx, sc.ID, c2))
	assert.Greater(t, c2.ID, c1.ID)

	conns, err := s.ListConnections(ctx, sc.ID)
	require.NoError(t, err)
	require.Len(t, conns, 2)
	assert.Equal(t, `inputs["input-1"] == "1"`, conns[1].Condition)
	assert.Equal(t, "조회", conns[1].Label)
}

func TestDeleteConnection_NotFound(t *testing.T) {
	s := newTestStore(t)
	sc := seedScenario(t, s)

	err := s.DeleteConnection(context.Background(), sc.ID, 999)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeNotFound, schema.CodeOf(err))
}

// --- Version tests ---

func TestVersionSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sc := seedScenario(t, s)

	v := &schema.ScenarioVersion{
		ScenarioID: sc.ID,
		Version:    "1.1",
		Snapshot:   json.RawMessage(`{"scenario":{"name":"주문 조회"},"nodes":[]}`),
		Comment:    "before branch rework",
	}
	require.NoError(t, s.CreateVersion(ctx, v))

	got, err := s.GetVersion(ctx, sc.ID, "1.1")
	require.NoError(t, err)
	assert.JSONEq(t, string(v.Snapshot), string(got.Snapshot))
	assert.Equal(t, "before branch rework", got.Comment)

	// Same version twice is a conflict, snapshots are immutable.
	err = s.CreateVersion(ctx, v)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeConflict, schema.CodeOf(err))
}

// --- Deployment tests ---

func TestDeploymentLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sc := seedScenario(t, s)

	d := &schema.Deployment{
		ID:          uuid.New().String(),
		ScenarioID:  sc.ID,
		Version:     "1.0",
		Environment: "production",
		Status:      schema.DeploymentStatusPending,
		DeployedBy:  "operator-kim",
	}
	require.NoError(t, s.CreateDeployment(ctx, d))

	done := schema.DeploymentStatusCompleted
	now := time.Now().UTC()
	require.NoError(t, s.UpdateDeployment(ctx, d.ID, DeploymentUpdate{Status: &done, CompletedAt: &now}))

	got, err := s.GetDeployment(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.DeploymentStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)

	latest, err := s.LatestDeployment(ctx, sc.ID, "production")
	require.NoError(t, err)
	assert.Equal(t, d.ID, latest.ID)
}

func TestLatestDeployment_IgnoresPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sc := seedScenario(t, s)

	require.NoError(t, s.CreateDeployment(ctx, &schema.Deployment{
		ID: uuid.New().String(), ScenarioID: sc.ID, Version: "1.0",
		Environment: "production", Status: schema.DeploymentStatusPending,
	}))

	_, err := s.LatestDeployment(ctx, sc.ID, "production")
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeNotFound, schema.CodeOf(err))
}
