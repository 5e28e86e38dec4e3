package expressions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptRenderer_SessionVariable(t *testing.T) {
	r := NewPromptRenderer()

	out, err := r.Render("잔액은 ${{session.balance}}원입니다", &PromptScope{
		Session: map[string]any{"balance": 50000},
	})
	require.NoError(t, err)
	assert.Equal(t, "잔액은 50000원입니다", out)
}

func TestPromptRenderer_InputByNodeID(t *testing.T) {
	r := NewPromptRenderer()

	// Node ids contain dashes and resolve by direct key lookup.
	out, err := r.Render("입력하신 번호는 ${{inputs.input-5}}입니다", &PromptScope{
		Inputs: map[string]any{"input-5": "1234"},
	})
	require.NoError(t, err)
	assert.Equal(t, "입력하신 번호는 1234입니다", out)
}

func TestPromptRenderer_NestedPath(t *testing.T) {
	r := NewPromptRenderer()

	out, err := r.Render("${{session.customer.name}}님 안녕하세요", &PromptScope{
		Session: map[string]any{"customer": map[string]any{"name": "김민수"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "김민수님 안녕하세요", out)
}

func TestPromptRenderer_NoPlaceholdersPassThrough(t *testing.T) {
	r := NewPromptRenderer()

	out, err := r.Render("상담원을 연결해 드리겠습니다", nil)
	require.NoError(t, err)
	assert.Equal(t, "상담원을 연결해 드리겠습니다", out)
	assert.False(t, HasPlaceholders("상담원을 연결해 드리겠습니다"))
}

func TestPromptRenderer_UnknownNamespace(t *testing.T) {
	r := NewPromptRenderer()

	_, err := r.Render("${{steps.foo}}", &PromptScope{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown namespace")
}

func TestPromptRenderer_MissingField(t *testing.T) {
	r := NewPromptRenderer()

	_, err := r.Render("${{session.balance}}", &PromptScope{
		Session: map[string]any{"tier": "gold"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: [tier]")
}

func TestPromptRenderer_UnclosedReference(t *testing.T) {
	r := NewPromptRenderer()

	_, err := r.Render("잔액은 ${{session.balance", &PromptScope{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unclosed")
}

func TestPromptRenderer_NestedInterpolationRejected(t *testing.T) {
	r := NewPromptRenderer()

	_, err := r.Render("${{session.${{session.key}}}}", &PromptScope{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested interpolation")
}
