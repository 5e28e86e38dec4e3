package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeConfig_VariantByType(t *testing.T) {
	raw := json.RawMessage(`{"text":"안녕하세요","voice_actor_id":"va-1"}`)
	cfg, err := DecodeConfig(NodeTypeMessage, raw)
	require.NoError(t, err)

	msg, ok := cfg.(*MessageConfig)
	require.True(t, ok)
	assert.Equal(t, "안녕하세요", msg.Text)
	assert.Equal(t, "va-1", msg.VoiceActorID)
	assert.Equal(t, NodeTypeMessage, cfg.Kind())
}

func TestDecodeConfig_EmptyRawYieldsZeroValue(t *testing.T) {
	cfg, err := DecodeConfig(NodeTypeBranch, nil)
	require.NoError(t, err)

	br, ok := cfg.(*BranchConfig)
	require.True(t, ok)
	assert.Empty(t, br.Branches)
}

func TestDecodeConfig_UnknownType(t *testing.T) {
	_, err := DecodeConfig(NodeType("teleport"), nil)
	require.Error(t, err)
	assert.Equal(t, ErrCodeValidation, CodeOf(err))
}

func TestEncodeConfig_RoundTrip(t *testing.T) {
	in := &InputConfig{
		InputType:       "digits",
		InputPrompt:     "주민번호 뒷자리를 입력하세요",
		InputValidation: `len(value) == 7`,
	}
	raw, err := EncodeConfig(in)
	require.NoError(t, err)

	out, err := DecodeConfig(NodeTypeInput, raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestNodeType_DefaultLabel(t *testing.T) {
	assert.Equal(t, "시작", NodeTypeStart.DefaultLabel())
	assert.Equal(t, "종료", NodeTypeEnd.DefaultLabel())
	assert.True(t, NodeTypeTransfer.Valid())
	assert.False(t, NodeType("teleport").Valid())
}
