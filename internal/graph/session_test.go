package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arsflow/pkg/schema"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession()
	s.Load([]Node{
		{ID: "start-1", Type: schema.NodeTypeStart, Label: "시작"},
		{ID: "message-2", Type: schema.NodeTypeMessage, Label: "메시지"},
		{ID: "end-3", Type: schema.NodeTypeEnd, Label: "종료"},
	}, []Edge{
		{ID: "edge-0", Source: "start-1", Target: "message-2"},
		{ID: "edge-1", Source: "message-2", Target: "end-3"},
	})
	return s
}

func TestSession_CounterSeededPastMaxSuffix(t *testing.T) {
	s := newTestSession(t)

	n, err := s.AddNode(schema.NodeTypeBranch, Position{X: 100, Y: 50})
	require.NoError(t, err)
	assert.Equal(t, "branch-4", n.ID, "counter must seed to 1 + max numeric suffix")
	assert.Equal(t, "분기", n.Label)
}

func TestSession_AddNodeUnknownType(t *testing.T) {
	s := NewSession()
	_, err := s.AddNode(schema.NodeType("teleport"), Position{})
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))
}

func TestSession_ConnectRequiresEndpoints(t *testing.T) {
	s := newTestSession(t)

	_, err := s.Connect("start-1", "ghost")
	require.Error(t, err)

	e, err := s.Connect("end-3", "start-1") // no type-compatibility check
	require.NoError(t, err)
	assert.Equal(t, "end-3", e.Source)
	assert.Len(t, s.Edges(), 3)
}

func TestSession_DeleteCascadesEdges(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Select("message-2"))
	require.NoError(t, s.DeleteSelected())

	for _, e := range s.Edges() {
		assert.NotEqual(t, "message-2", e.Source)
		assert.NotEqual(t, "message-2", e.Target)
	}
	assert.Len(t, s.Edges(), 0)
	assert.Len(t, s.Nodes(), 2)

	_, ok := s.Selected()
	assert.False(t, ok, "selection cleared after delete")
}

func TestSession_StartNodeNotDeletable(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Select("start-1"))

	err := s.DeleteSelected()
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeInvalidAction, schema.CodeOf(err))
	assert.Len(t, s.Nodes(), 3, "node set unchanged")
	assert.Len(t, s.Edges(), 2)
}

func TestSession_UpdateSelectedConfigKindMismatch(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Select("message-2"))

	err := s.UpdateSelectedConfig(&schema.BranchConfig{})
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))

	require.NoError(t, s.UpdateSelectedConfig(&schema.MessageConfig{Text: "hello"}))
	n, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "hello", n.Config.(*schema.MessageConfig).Text)
}

func TestSession_SelectionTracksCanonicalList(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Select("message-2"))
	require.NoError(t, s.UpdateSelectedLabel("인사말"))

	// The canonical list and the selection view must agree after mutation.
	n, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "인사말", n.Label)
	for _, cand := range s.Nodes() {
		if cand.ID == "message-2" {
			assert.Equal(t, "인사말", cand.Label)
		}
	}
}

func TestSession_LoadedNodeIDs(t *testing.T) {
	s := newTestSession(t)
	assert.ElementsMatch(t, []string{"start-1", "message-2", "end-3"}, s.LoadedNodeIDs())

	_, err := s.AddNode(schema.NodeTypeInput, Position{})
	require.NoError(t, err)
	assert.Len(t, s.LoadedNodeIDs(), 3, "newly added nodes are not in the loaded set")
}
