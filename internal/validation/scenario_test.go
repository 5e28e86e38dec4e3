package validation

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arsflow/pkg/schema"
)

// mockChecker rejects expressions contained in its bad set.
type mockChecker struct {
	bad map[string]bool
}

func newMockChecker(bad ...string) *mockChecker {
	m := &mockChecker{bad: make(map[string]bool, len(bad))}
	for _, b := range bad {
		m.bad[b] = true
	}
	return m
}

func (m *mockChecker) Check(expression string) error {
	if m.bad[expression] {
		return fmt.Errorf("compile error in %q", expression)
	}
	return nil
}

func validDoc() *schema.ScenarioDocument {
	return &schema.ScenarioDocument{
		Scenario: schema.DocumentScenario{Name: "주문 조회", Version: "1.0"},
		Nodes: []schema.DocumentNode{
			{ID: "start-1", Type: schema.NodeTypeStart},
			{ID: "message-2", Type: schema.NodeTypeMessage,
				Config: json.RawMessage(`{"text":"환영합니다"}`)},
			{ID: "end-3", Type: schema.NodeTypeEnd},
		},
		Edges: []schema.DocumentEdge{
			{Source: "start-1", Target: "message-2"},
			{Source: "message-2", Target: "end-3"},
		},
	}
}

// --- Interface compliance ---

func TestScenarioValidator_ImplementsValidator(t *testing.T) {
	var _ Validator = (*ScenarioValidator)(nil)
}

// --- Full pipeline ---

func TestScenarioValidator_FullValid(t *testing.T) {
	sv, err := NewScenarioValidator(newMockChecker())
	require.NoError(t, err)

	result := sv.Validate(validDoc())
	assert.True(t, result.Valid())
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestScenarioValidator_NilDoc(t *testing.T) {
	sv, err := NewScenarioValidator(nil)
	require.NoError(t, err)

	result := sv.Validate(nil)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "nil")
}

// --- Short-circuit ---

func TestScenarioValidator_StructuralFailShortCircuits(t *testing.T) {
	sv, err := NewScenarioValidator(nil)
	require.NoError(t, err)

	// Missing scenario name and empty node set → structural errors only;
	// the semantic start-node check never runs.
	doc := &schema.ScenarioDocument{}
	result := sv.Validate(doc)
	require.False(t, result.Valid())
	for _, e := range result.Errors {
		assert.NotContains(t, e.Message, "start node")
	}
}

// --- Start node count (property: zero or multiple both rejected) ---

func TestScenarioValidator_NoStartNode(t *testing.T) {
	sv, err := NewScenarioValidator(nil)
	require.NoError(t, err)

	doc := validDoc()
	doc.Nodes = doc.Nodes[1:] // drop start
	doc.Edges = doc.Edges[1:]

	result := sv.Validate(doc)
	require.False(t, result.Valid())
	assert.NotEmpty(t, result.Messages())
	assert.Contains(t, result.Errors[0].Message, "no start node")
}

func TestScenarioValidator_MultipleStartNodes(t *testing.T) {
	sv, err := NewScenarioValidator(nil)
	require.NoError(t, err)

	doc := validDoc()
	doc.Nodes = append(doc.Nodes, schema.DocumentNode{ID: "start-9", Type: schema.NodeTypeStart})

	result := sv.Validate(doc)
	require.False(t, result.Valid())
	found := false
	for _, e := range result.Errors {
		if e.Path == "nodes" {
			assert.Contains(t, e.Message, "2 start nodes")
			found = true
		}
	}
	assert.True(t, found)
}

// --- Duplicate ids named ---

func TestScenarioValidator_DuplicateNodeIDsNamed(t *testing.T) {
	sv, err := NewScenarioValidator(nil)
	require.NoError(t, err)

	doc := validDoc()
	doc.Nodes = append(doc.Nodes, schema.DocumentNode{ID: "message-2", Type: schema.NodeTypeMessage})

	result := sv.Validate(doc)
	require.False(t, result.Valid())

	found := false
	for _, e := range result.Errors {
		if e.Path == "nodes" && e.Message == "duplicate node ids: message-2" {
			found = true
		}
	}
	assert.True(t, found, "duplicate ids must be named in the error")
}

// --- Edge endpoints named by index ---

func TestScenarioValidator_EdgeMissingEndpointsNamedByIndex(t *testing.T) {
	sv, err := NewScenarioValidator(nil)
	require.NoError(t, err)

	doc := validDoc()
	doc.Edges = append(doc.Edges, schema.DocumentEdge{Source: "", Target: "end-3"})

	result := sv.Validate(doc)
	require.False(t, result.Valid())

	found := false
	for _, e := range result.Errors {
		if e.Message == "edge 2 is missing a source node id" {
			found = true
		}
	}
	assert.True(t, found, "edge errors must name the edge index")
}

func TestScenarioValidator_EdgeDanglingEndpoint(t *testing.T) {
	sv, err := NewScenarioValidator(nil)
	require.NoError(t, err)

	doc := validDoc()
	doc.Edges = append(doc.Edges, schema.DocumentEdge{Source: "message-2", Target: "ghost"})

	result := sv.Validate(doc)
	require.False(t, result.Valid())
	assert.Contains(t, result.Errors[0].Message, `non-existent target node "ghost"`)
}

// --- Condition compile checks ---

func TestScenarioValidator_BadEdgeCondition(t *testing.T) {
	sv, err := NewScenarioValidator(newMockChecker("!!!"))
	require.NoError(t, err)

	doc := validDoc()
	doc.Edges[0].Condition = "!!!"

	result := sv.Validate(doc)
	require.False(t, result.Valid())
	assert.Contains(t, result.Errors[0].Message, "does not compile")
}

func TestScenarioValidator_NilCheckerSkipsConditions(t *testing.T) {
	sv, err := NewScenarioValidator(nil)
	require.NoError(t, err)

	doc := validDoc()
	doc.Edges[0].Condition = "!!!"

	result := sv.Validate(doc)
	assert.True(t, result.Valid(), "nil checker skips condition checks")
}

// --- Graph-stage warnings pass through ---

func TestScenarioValidator_UnreachableNodeWarns(t *testing.T) {
	sv, err := NewScenarioValidator(nil)
	require.NoError(t, err)

	doc := validDoc()
	doc.Nodes = append(doc.Nodes, schema.DocumentNode{ID: "message-7", Type: schema.NodeTypeMessage,
		Config: json.RawMessage(`{"text":"?"}`)})
	doc.Edges = append(doc.Edges, schema.DocumentEdge{Source: "message-7", Target: "end-3"})

	result := sv.Validate(doc)
	assert.True(t, result.Valid(), "unreachable node is a warning, not an error")
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0].Message, "unreachable")
}
