package expressions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionScope_EvalDataSnapshots(t *testing.T) {
	scope := NewSessionScope(map[string]any{"category": "banking"}, nil)
	scope.SetVar("retries", 1)

	data := scope.EvalData(map[string]any{"id": "branch-2"})

	// Mutating the snapshot must not leak back into the live scope.
	data["session"].(map[string]any)["retries"] = 99
	assert.Equal(t, 1, scope.SessionData()["retries"])
	assert.Equal(t, "banking", data["scenario"].(map[string]any)["category"])
	assert.Equal(t, "branch-2", data["node"].(map[string]any)["id"])
}

func TestSessionScope_RecordInputOverwritesOnRevisit(t *testing.T) {
	scope := NewSessionScope(nil, nil)

	// Retry loop: the caller mistypes, comes back, types again.
	scope.RecordInput("input-5", "9999")
	scope.RecordInput("input-5", "1234")

	assert.Equal(t, "1234", scope.Inputs()["input-5"])
}

func TestSessionScope_InputValueFrozenAtRecord(t *testing.T) {
	scope := NewSessionScope(nil, nil)

	val := map[string]any{"digits": "1234"}
	scope.RecordInput("input-5", val)
	val["digits"] = "mutated"

	recorded, ok := scope.Inputs()["input-5"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1234", recorded["digits"])
}

func TestSessionScope_InitialSessionCopied(t *testing.T) {
	initial := map[string]any{"lang": "ko"}
	scope := NewSessionScope(nil, initial)
	initial["lang"] = "en"

	assert.Equal(t, "ko", scope.SessionData()["lang"])
}

func TestSessionScope_PromptData(t *testing.T) {
	scope := NewSessionScope(map[string]any{"name": "주문 조회"}, nil)
	scope.SetVar("balance", 50000)
	scope.RecordInput("input-3", "1")

	p := scope.PromptData()
	assert.Equal(t, 50000, p.Session["balance"])
	assert.Equal(t, "1", p.Inputs["input-3"])
	assert.Equal(t, "주문 조회", p.Scenario["name"])
}
