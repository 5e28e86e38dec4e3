package store

import (
	"encoding/json"
	"time"

	"arsflow/pkg/schema"
)

// Event is an immutable entry in the scenario event log.
type Event struct {
	ID         int64           `json:"id"`
	ScenarioID string          `json:"scenario_id"`
	NodeID     string          `json:"node_id,omitempty"`
	Type       string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Actor      string          `json:"actor,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Sequence   int64           `json:"sequence"`
}

// --- Filter and update types ---

// ScenarioFilter specifies criteria for listing scenarios.
type ScenarioFilter struct {
	Status   *schema.ScenarioStatus `json:"status,omitempty"`
	Category string                 `json:"category,omitempty"`
	Since    *time.Time             `json:"since,omitempty"`
	Limit    int                    `json:"limit,omitempty"`
	Offset   int                    `json:"offset,omitempty"`
}

// ScenarioUpdate specifies mutable fields of a scenario.
type ScenarioUpdate struct {
	Name        *string                `json:"name,omitempty"`
	Description *string                `json:"description,omitempty"`
	Category    *string                `json:"category,omitempty"`
	Version     *string                `json:"version,omitempty"`
	Status      *schema.ScenarioStatus `json:"status,omitempty"`
	Metadata    map[string]any         `json:"scenario_metadata,omitempty"`
}

// DeploymentFilter specifies criteria for listing deployments.
type DeploymentFilter struct {
	ScenarioID  string                   `json:"scenario_id,omitempty"`
	Environment string                   `json:"environment,omitempty"`
	Status      *schema.DeploymentStatus `json:"status,omitempty"`
	Limit       int                      `json:"limit,omitempty"`
}

// DeploymentUpdate specifies mutable fields of a deployment.
type DeploymentUpdate struct {
	Status      *schema.DeploymentStatus `json:"status,omitempty"`
	CompletedAt *time.Time               `json:"completed_at,omitempty"`
}

// TTSScriptFilter specifies criteria for listing TTS scripts.
type TTSScriptFilter struct {
	VoiceActorID string `json:"voice_actor_id,omitempty"`
	NodeID       string `json:"node_id,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// GenerationFilter specifies criteria for listing TTS generations.
type GenerationFilter struct {
	ScriptID     string            `json:"script_id,omitempty"`
	VoiceActorID string            `json:"voice_actor_id,omitempty"`
	Status       *schema.TTSStatus `json:"status,omitempty"`
	Before       *time.Time        `json:"before,omitempty"` // created before; stuck-job sweeps
	Limit        int               `json:"limit,omitempty"`
}

// GenerationUpdate specifies mutable fields of a TTS generation.
type GenerationUpdate struct {
	Status        *schema.TTSStatus `json:"status,omitempty"`
	AudioFilePath *string           `json:"audio_file_path,omitempty"`
	QualityScore  *float64          `json:"quality_score,omitempty"`
	ErrorMessage  *string           `json:"error_message,omitempty"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
}

// LibraryFilter specifies criteria for listing library items.
type LibraryFilter struct {
	VoiceActorID string `json:"voice_actor_id,omitempty"`
	Search       string `json:"search,omitempty"` // substring match on text
	Limit        int    `json:"limit,omitempty"`
}

// EventFilter specifies criteria for listing events.
type EventFilter struct {
	ScenarioID string     `json:"scenario_id,omitempty"`
	NodeID     string     `json:"node_id,omitempty"`
	Since      *time.Time `json:"since,omitempty"`
	Limit      int        `json:"limit,omitempty"`
}
