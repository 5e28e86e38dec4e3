package expressions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arsflow/pkg/schema"
)

func TestCELEngine_EdgeCondition(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	data := map[string]any{
		"session": map[string]any{"balance": 50000},
		"inputs":  map[string]any{"input-5": "1234"},
	}

	ok, err := e.EvaluateBool(context.Background(), `session.balance > 10000`, data)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.EvaluateBool(context.Background(), `inputs["input-5"] == "0000"`, data)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCELEngine_MissingScopesDefaultEmpty(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	// No data at all: scopes resolve to empty maps, not runtime nil errors.
	ok, err := e.EvaluateBool(context.Background(), `"vip" in session`, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCELEngine_NonBoolConditionRejected(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	_, err = e.EvaluateBool(context.Background(), `scenario.category`,
		map[string]any{"scenario": map[string]any{"category": "banking"}})
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeExecution, schema.CodeOf(err))
}

func TestCELEngine_CheckCompileOnly(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	assert.NoError(t, e.Check(`session.retries < 3`))

	err = e.Check(`session.retries <<< 3`)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))
}

func TestCELEngine_EmptyExpression(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	_, err = e.Evaluate(context.Background(), "", nil)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))
}

func TestCELEngine_CacheReuse(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	const expr = `session.tier == "gold"`
	_, err = e.Evaluate(context.Background(), expr, map[string]any{
		"session": map[string]any{"tier": "gold"},
	})
	require.NoError(t, err)

	e.mu.RLock()
	_, cached := e.cache[expr]
	e.mu.RUnlock()
	assert.True(t, cached)
}
