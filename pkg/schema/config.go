package schema

import "encoding/json"

// NodeConfig is the tagged union of per-type node configuration.
// Each node type carries only its relevant fields, so handling code can
// switch exhaustively instead of optional-chaining through a free-form map.
type NodeConfig interface {
	Kind() NodeType
}

// StartConfig carries no fields; start nodes are pure entry points.
type StartConfig struct{}

func (StartConfig) Kind() NodeType { return NodeTypeStart }

// MessageConfig configures a message playback node.
type MessageConfig struct {
	Text            string `json:"text"`
	VoiceActorID    string `json:"voice_actor_id,omitempty"`
	AudioFilePath   string `json:"audio_file_path,omitempty"`
	TTSGenerationID string `json:"tts_generation_id,omitempty"`
}

func (MessageConfig) Kind() NodeType { return NodeTypeMessage }

// BranchOption is one selectable choice at a branch node. Key is the DTMF
// digit or choice token; Target optionally pins the next node id.
type BranchOption struct {
	Key    string `json:"key"`
	Label  string `json:"label,omitempty"`
	Target string `json:"target,omitempty"`
}

// BranchConfig configures a branch (menu) node.
type BranchConfig struct {
	Branches []BranchOption `json:"branches"`
}

func (BranchConfig) Kind() NodeType { return NodeTypeBranch }

// TransferConfig configures a transfer-to-agent node.
type TransferConfig struct {
	TransferType    string `json:"transfer_type"` // e.g. agent, queue, external
	TransferMessage string `json:"transfer_message,omitempty"`
}

func (TransferConfig) Kind() NodeType { return NodeTypeTransfer }

// InputConfig configures a caller-input node. InputValidation, when set,
// is an expr rule evaluated against {"value": <input>} during simulation.
type InputConfig struct {
	InputType       string `json:"input_type"` // e.g. digits, speech
	InputPrompt     string `json:"input_prompt,omitempty"`
	InputValidation string `json:"input_validation,omitempty"`
}

func (InputConfig) Kind() NodeType { return NodeTypeInput }

// EndConfig carries no fields; end nodes terminate the flow.
type EndConfig struct{}

func (EndConfig) Kind() NodeType { return NodeTypeEnd }

// DecodeConfig parses a raw config bag into the variant matching the node type.
// An empty raw message yields the zero value of the variant.
func DecodeConfig(t NodeType, raw json.RawMessage) (NodeConfig, error) {
	decode := func(v NodeConfig) (NodeConfig, error) {
		if len(raw) == 0 {
			return v, nil
		}
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, NewErrorf(ErrCodeValidation, "decode %s config: %s", t, err.Error()).WithCause(err)
		}
		return v, nil
	}

	switch t {
	case NodeTypeStart:
		return decode(&StartConfig{})
	case NodeTypeMessage:
		return decode(&MessageConfig{})
	case NodeTypeBranch:
		return decode(&BranchConfig{})
	case NodeTypeTransfer:
		return decode(&TransferConfig{})
	case NodeTypeInput:
		return decode(&InputConfig{})
	case NodeTypeEnd:
		return decode(&EndConfig{})
	default:
		return nil, NewErrorf(ErrCodeValidation, "unknown node type %q", string(t))
	}
}

// EncodeConfig serializes a config variant back into a raw bag.
func EncodeConfig(c NodeConfig) (json.RawMessage, error) {
	if c == nil {
		return nil, nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, NewError(ErrCodeValidation, "encode node config").WithCause(err)
	}
	return data, nil
}
