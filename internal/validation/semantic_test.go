package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arsflow/pkg/schema"
)

func TestValidateSemantic_BranchOptionTargetMustExist(t *testing.T) {
	doc := validDoc()
	doc.Nodes = append(doc.Nodes, schema.DocumentNode{
		ID: "branch-4", Type: schema.NodeTypeBranch,
		Config: json.RawMessage(`{"branches":[{"key":"1","label":"잔액 조회","target":"ghost"}]}`),
	})
	doc.Edges = append(doc.Edges, schema.DocumentEdge{Source: "message-2", Target: "branch-4"})

	result := validateSemantic(doc, nil)
	require.False(t, result.Valid())
	assert.Contains(t, result.Errors[0].Message, `targets non-existent node "ghost"`)
}

func TestValidateSemantic_BranchDuplicateKeys(t *testing.T) {
	doc := validDoc()
	doc.Nodes = append(doc.Nodes, schema.DocumentNode{
		ID: "branch-4", Type: schema.NodeTypeBranch,
		Config: json.RawMessage(`{"branches":[{"key":"1"},{"key":"1"}]}`),
	})

	result := validateSemantic(doc, nil)
	require.False(t, result.Valid())
	assert.Contains(t, result.Errors[0].Message, `duplicate option key "1"`)
}

func TestValidateSemantic_MalformedConfigReported(t *testing.T) {
	doc := validDoc()
	doc.Nodes[1].Config = json.RawMessage(`{"text":42}`)

	result := validateSemantic(doc, nil)
	require.False(t, result.Valid())
	assert.Contains(t, result.Errors[0].Message, "message-2")
}

func TestValidateSemantic_EmptyMessageTextWarnsOnly(t *testing.T) {
	doc := validDoc()
	doc.Nodes[1].Config = nil

	result := validateSemantic(doc, nil)
	assert.True(t, result.Valid())
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0].Message, "no text")
}

func TestValidateGraph_DanglingNonTerminalWarns(t *testing.T) {
	doc := validDoc()
	doc.Edges = doc.Edges[:1] // message-2 loses its outgoing edge

	result := validateGraph(doc)
	assert.True(t, result.Valid())

	var msgs []string
	for _, w := range result.Warnings {
		msgs = append(msgs, w.Message)
	}
	assert.Contains(t, msgs, `message node "message-2" has no outgoing transition`)
	assert.Contains(t, msgs, `node "end-3" is unreachable from the start node`)
}

func TestValidateGraph_BranchTargetsCountAsTransitions(t *testing.T) {
	doc := &schema.ScenarioDocument{
		Scenario: schema.DocumentScenario{Name: "t"},
		Nodes: []schema.DocumentNode{
			{ID: "start-1", Type: schema.NodeTypeStart},
			{ID: "branch-2", Type: schema.NodeTypeBranch,
				Config: json.RawMessage(`{"branches":[{"key":"1","target":"end-3"}]}`)},
			{ID: "end-3", Type: schema.NodeTypeEnd},
		},
		Edges: []schema.DocumentEdge{{Source: "start-1", Target: "branch-2"}},
	}

	result := validateGraph(doc)
	assert.Empty(t, result.Warnings, "end-3 is reachable through the branch option target")
}
